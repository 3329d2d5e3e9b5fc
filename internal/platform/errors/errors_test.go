package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code Code
		want int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeInvalidMove, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeSlugInUse, http.StatusConflict},
		{CodeWorkflowInProgress, http.StatusConflict},
		{CodeWorkflowMissing, http.StatusUnprocessableEntity},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("%s.HTTPStatus() = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestAsFindsWrappedError(t *testing.T) {
	t.Parallel()

	base := BadRequest("has_children must be 'true' or 'false'")
	wrapped := fmt.Errorf("filter pages: %w", base)

	got, ok := As(wrapped)
	if !ok {
		t.Fatal("expected domain error")
	}
	if got.Code != CodeBadRequest {
		t.Fatalf("code = %s, want %s", got.Code, CodeBadRequest)
	}
	if HTTPStatus(wrapped) != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", HTTPStatus(wrapped))
	}
	if PublicMessage(wrapped) != "has_children must be 'true' or 'false'" {
		t.Fatalf("message = %q", PublicMessage(wrapped))
	}
}

func TestIsMatchesByCode(t *testing.T) {
	t.Parallel()

	err := Wrap(CodeNotFound, "page 4 not found", stderrors.New("no rows"))
	if !stderrors.Is(err, New(CodeNotFound, "")) {
		t.Fatal("expected code match")
	}
	if stderrors.Is(err, New(CodeSlugInUse, "")) {
		t.Fatal("unexpected code match")
	}
}

func TestPublicMessageHidesInternalErrors(t *testing.T) {
	t.Parallel()

	if got := PublicMessage(stderrors.New("disk on fire")); got != "Internal Server Error" {
		t.Fatalf("message = %q", got)
	}
	if got := HTTPStatus(nil); got != http.StatusOK {
		t.Fatalf("nil status = %d", got)
	}
}
