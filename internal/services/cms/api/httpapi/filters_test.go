package httpapi

import (
	"net/http"
	"net/url"
	"testing"

	apperrors "github.com/louisbranch/folio/internal/platform/errors"
	"github.com/louisbranch/folio/internal/services/cms/domain"
)

func TestParseBoolean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{in: "true", want: true},
		{in: "false", want: false},
		{in: "1", want: true},
		{in: "0", want: false},
		{in: "TRUE", wantErr: true},
		{in: "False", wantErr: true},
		{in: "2", wantErr: true},
		{in: "-1", wantErr: true},
		{in: " true", wantErr: true},
		{in: "01", wantErr: true},
		{in: "yes", wantErr: true},
		{in: "", wantErr: true},
		{in: "t", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseBoolean(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseBoolean(%q) = %v, want error", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseBoolean(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestHasChildrenFilter(t *testing.T) {
	t.Parallel()

	var filter domain.PageFilter
	if err := HasChildrenFilter(url.Values{}, &filter); err != nil || filter.HasChildren != nil {
		t.Fatalf("absent parameter changed filter: %+v, %v", filter, err)
	}
	if err := HasChildrenFilter(url.Values{"has_children": {"false"}}, &filter); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if filter.HasChildren == nil || *filter.HasChildren {
		t.Fatalf("has_children=false gave %+v", filter.HasChildren)
	}

	err := HasChildrenFilter(url.Values{"has_children": {"maybe"}}, &filter)
	if err == nil || err.Error() != "has_children must be 'true' or 'false'" {
		t.Fatalf("err = %v", err)
	}
	if got := apperrors.HTTPStatus(err); got != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", got)
	}
}

func TestForExplorerFilter(t *testing.T) {
	t.Parallel()

	var filter domain.PageFilter
	if err := ForExplorerFilter(url.Values{"for_explorer": {"0"}}, &filter); err != nil || filter.ForExplorerOnly {
		t.Fatalf("for_explorer=0 gave %+v, %v", filter, err)
	}
	if err := ForExplorerFilter(url.Values{"for_explorer": {"True"}}, &filter); err != nil || !filter.ForExplorerOnly {
		t.Fatalf("for_explorer=True gave %+v, %v", filter, err)
	}
	err := ForExplorerFilter(url.Values{"for_explorer": {"nope"}}, &filter)
	if err == nil || err.Error() != "for_explorer must be 'true' or 'false'" {
		t.Fatalf("err = %v", err)
	}
}

func TestPageFilterFromQuery(t *testing.T) {
	t.Parallel()

	filter, err := pageFilterFromQuery(url.Values{"child_of": {"7"}, "limit": {"5"}, "offset": {"10"}})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if filter.ChildOf == nil || *filter.ChildOf != 7 || filter.Limit != 5 || filter.Offset != 10 {
		t.Fatalf("filter = %+v", filter)
	}

	filter, err = pageFilterFromQuery(url.Values{})
	if err != nil || filter.Limit != defaultLimit {
		t.Fatalf("default filter = %+v, %v", filter, err)
	}

	for _, query := range []url.Values{
		{"child_of": {"abc"}},
		{"limit": {"0"}},
		{"limit": {"101"}},
		{"offset": {"-1"}},
	} {
		if _, err := pageFilterFromQuery(query); apperrors.HTTPStatus(err) != http.StatusBadRequest {
			t.Fatalf("query %v: err = %v, want bad request", query, err)
		}
	}
}
