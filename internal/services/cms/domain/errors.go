package domain

import (
	"fmt"

	apperrors "github.com/louisbranch/folio/internal/platform/errors"
)

// Sentinel errors. Each carries a code so the HTTP layer can map it; match
// with errors.Is, which compares codes.
var (
	ErrNotFound           = apperrors.New(apperrors.CodeNotFound, "record not found")
	ErrInvalidMove        = apperrors.New(apperrors.CodeInvalidMove, "invalid page move")
	ErrSlugInUse          = apperrors.New(apperrors.CodeSlugInUse, "slug already in use")
	ErrInvalidSlug        = apperrors.New(apperrors.CodeInvalidSlug, "invalid slug")
	ErrTitleRequired      = apperrors.New(apperrors.CodeTitleRequired, "title is required")
	ErrWorkflowInProgress = apperrors.New(apperrors.CodeWorkflowInProgress, "page already in moderation")
	ErrNoWorkflow         = apperrors.New(apperrors.CodeWorkflowMissing, "no active workflow for page")
	ErrWorkflowFinished   = apperrors.New(apperrors.CodeWorkflowNotActive, "workflow is not in progress")
	ErrStoreNotConfigured = apperrors.New(apperrors.CodeUnknown, "store is not configured")
)

// NotFoundf returns an ErrNotFound-coded error with a specific message.
func NotFoundf(format string, args ...any) error {
	return apperrors.Wrap(apperrors.CodeNotFound, fmt.Sprintf(format, args...), ErrNotFound)
}

func invalidMovef(format string, args ...any) error {
	return apperrors.Wrap(apperrors.CodeInvalidMove, fmt.Sprintf(format, args...), ErrInvalidMove)
}

func slugInUsef(format string, args ...any) error {
	return apperrors.Wrap(apperrors.CodeSlugInUse, fmt.Sprintf(format, args...), ErrSlugInUse)
}
