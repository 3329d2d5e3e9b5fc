// Package errors provides structured errors with HTTP status mapping.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request errors
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"

	// Page tree errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeInvalidMove   Code = "PAGE_INVALID_MOVE"
	CodeSlugInUse     Code = "PAGE_SLUG_IN_USE"
	CodeInvalidSlug   Code = "PAGE_INVALID_SLUG"
	CodeTitleRequired Code = "PAGE_TITLE_REQUIRED"

	// Moderation errors
	CodeWorkflowInProgress Code = "WORKFLOW_IN_PROGRESS"
	CodeWorkflowMissing    Code = "WORKFLOW_MISSING"
	CodeWorkflowNotActive  Code = "WORKFLOW_NOT_IN_PROGRESS"

	// Notification errors
	CodeUnknownNotification Code = "UNKNOWN_NOTIFICATION"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeBadRequest,
		CodeInvalidSlug,
		CodeTitleRequired,
		CodeInvalidMove:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeSlugInUse,
		CodeWorkflowInProgress,
		CodeWorkflowNotActive:
		return http.StatusConflict
	case CodeWorkflowMissing:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
