package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/louisbranch/folio/internal/services/cms/domain"
)

type workflowStateResponse struct {
	ID                 int64     `json:"id"`
	PageID             int64     `json:"page_id"`
	WorkflowID         int64     `json:"workflow_id"`
	Status             string    `json:"status"`
	RequestedByID      *int64    `json:"requested_by_id"`
	CurrentTaskStateID *int64    `json:"current_task_state_id"`
	CreatedAt          time.Time `json:"created_at"`
}

func newWorkflowStateResponse(s domain.WorkflowState) workflowStateResponse {
	return workflowStateResponse{
		ID:                 s.ID,
		PageID:             s.PageID,
		WorkflowID:         s.WorkflowID,
		Status:             s.Status,
		RequestedByID:      s.RequestedByID,
		CurrentTaskStateID: s.CurrentTaskStateID,
		CreatedAt:          s.CreatedAt,
	}
}

func (a *api) submitWorkflow(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, http.StatusCreated, func(actor domain.User, id int64) (domain.WorkflowState, error) {
		return a.workflows.Submit(r.Context(), id, actor)
	})
}

func (a *api) approveWorkflow(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, http.StatusOK, func(actor domain.User, id int64) (domain.WorkflowState, error) {
		return a.workflows.Approve(r.Context(), id, actor)
	})
}

type rejectRequest struct {
	Comment string `json:"comment"`
}

func (req *rejectRequest) Bind(*http.Request) error {
	req.Comment = strings.TrimSpace(req.Comment)
	return nil
}

func (a *api) rejectWorkflow(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := render.Bind(r, &req); err != nil && !errors.Is(err, io.EOF) {
		a.renderError(w, r, badRequest(err))
		return
	}
	a.transition(w, r, http.StatusOK, func(actor domain.User, id int64) (domain.WorkflowState, error) {
		return a.workflows.Reject(r.Context(), id, actor, req.Comment)
	})
}

// transition runs one workflow step as the authenticated user.
func (a *api) transition(w http.ResponseWriter, r *http.Request, status int, step func(domain.User, int64) (domain.WorkflowState, error)) {
	id, err := pathID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	actor, ok := actorFromContext(r.Context())
	if !ok {
		a.renderError(w, r, errMissingToken)
		return
	}
	state, err := step(actor, id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	render.Status(r, status)
	render.JSON(w, r, newWorkflowStateResponse(state))
}
