package httpapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/folio/internal/platform/errors"
	"github.com/louisbranch/folio/internal/services/cms/domain"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// ParseBoolean reads a query-string boolean: "true" or "1", "false" or "0".
func ParseBoolean(value string) (bool, error) {
	switch value {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected 'true' or 'false', got %q", value)
}

// HasChildrenFilter applies has_children: true keeps pages with children,
// false keeps leaves. An absent parameter leaves filter unchanged.
func HasChildrenFilter(query url.Values, filter *domain.PageFilter) error {
	if !query.Has("has_children") {
		return nil
	}
	hasChildren, err := ParseBoolean(query.Get("has_children"))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeBadRequest, "has_children must be 'true' or 'false'", err)
	}
	filter.HasChildren = &hasChildren
	return nil
}

// ForExplorerFilter applies for_explorer. Only true narrows the listing.
func ForExplorerFilter(query url.Values, filter *domain.PageFilter) error {
	if !query.Has("for_explorer") {
		return nil
	}
	forExplorer, err := ParseBoolean(query.Get("for_explorer"))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeBadRequest, "for_explorer must be 'true' or 'false'", err)
	}
	if forExplorer {
		filter.ForExplorerOnly = true
	}
	return nil
}

func childOfFilter(query url.Values, filter *domain.PageFilter) error {
	if !query.Has("child_of") {
		return nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(query.Get("child_of")), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.BadRequest("child_of must be a positive integer")
	}
	filter.ChildOf = &id
	return nil
}

func paginationFilter(query url.Values, filter *domain.PageFilter) error {
	filter.Limit = defaultLimit
	if query.Has("limit") {
		limit, err := strconv.Atoi(strings.TrimSpace(query.Get("limit")))
		if err != nil || limit < 1 {
			return apperrors.BadRequest("limit must be a positive integer")
		}
		if limit > maxLimit {
			return apperrors.BadRequest(fmt.Sprintf("limit cannot be higher than %d", maxLimit))
		}
		filter.Limit = limit
	}
	if query.Has("offset") {
		offset, err := strconv.Atoi(strings.TrimSpace(query.Get("offset")))
		if err != nil || offset < 0 {
			return apperrors.BadRequest("offset must be a positive integer")
		}
		filter.Offset = offset
	}
	return nil
}

// pageFilterFromQuery runs every listing filter in order and stops at the
// first bad parameter.
func pageFilterFromQuery(query url.Values) (domain.PageFilter, error) {
	var filter domain.PageFilter
	for _, apply := range []func(url.Values, *domain.PageFilter) error{
		childOfFilter,
		HasChildrenFilter,
		ForExplorerFilter,
		paginationFilter,
	} {
		if err := apply(query, &filter); err != nil {
			return domain.PageFilter{}, err
		}
	}
	return filter, nil
}
