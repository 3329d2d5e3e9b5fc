// Package httpapi serves the CMS admin API over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	apperrors "github.com/louisbranch/folio/internal/platform/errors"
	"github.com/louisbranch/folio/internal/platform/logging"
	"github.com/louisbranch/folio/internal/platform/metrics"
	"github.com/louisbranch/folio/internal/platform/timeouts"
	"github.com/louisbranch/folio/internal/services/cms/domain"
)

// APIPrefix is the mount point of the authenticated admin routes.
const APIPrefix = "/api/admin/v1"

// PageService is the tree behavior the API exposes.
type PageService interface {
	Get(ctx context.Context, id int64) (domain.Page, error)
	Ancestors(ctx context.Context, id int64) ([]domain.Page, error)
	List(ctx context.Context, filter domain.PageFilter) (domain.PageList, error)
	CreateRoot(ctx context.Context, input domain.NewPageInput) (domain.Page, error)
	AddChild(ctx context.Context, parentID int64, input domain.NewPageInput) (domain.Page, error)
	Move(ctx context.Context, pageID int64, targetID int64, pos domain.Position) (domain.Page, error)
}

// WorkflowService is the moderation behavior the API exposes.
type WorkflowService interface {
	Submit(ctx context.Context, pageID int64, actor domain.User) (domain.WorkflowState, error)
	Approve(ctx context.Context, stateID int64, actor domain.User) (domain.WorkflowState, error)
	Reject(ctx context.Context, stateID int64, actor domain.User, comment string) (domain.WorkflowState, error)
}

// Config wires the API to its services.
type Config struct {
	Pages     PageService
	Workflows WorkflowService
	Accounts  domain.AccountReader
	// Secret verifies HS256 bearer tokens.
	Secret  []byte
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Health reports readiness for /healthz. Nil always reports healthy.
	Health func(ctx context.Context) error
	Clock  func() time.Time
}

type api struct {
	pages     PageService
	workflows WorkflowService
	accounts  domain.AccountReader
	secret    []byte
	logger    *zap.Logger
	metrics   *metrics.Metrics
	health    func(ctx context.Context) error
	clock     func() time.Time
}

// NewRouter builds the admin API handler.
func NewRouter(cfg Config) (http.Handler, error) {
	if cfg.Pages == nil || cfg.Workflows == nil || cfg.Accounts == nil {
		return nil, errors.New("pages, workflows and accounts are required")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	a := &api{
		pages:     cfg.Pages,
		workflows: cfg.Workflows,
		accounts:  cfg.Accounts,
		secret:    cfg.Secret,
		logger:    logging.OrNop(cfg.Logger),
		metrics:   cfg.Metrics,
		health:    cfg.Health,
		clock:     cfg.Clock,
	}
	if a.clock == nil {
		a.clock = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeouts.Request))

	r.Get("/healthz", a.healthz)
	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(a.requireUser)

		r.Route("/pages", func(r chi.Router) {
			r.Get("/", a.listPages)
			r.Post("/", a.createPage)
			r.Get("/{id}", a.getPage)
			r.Post("/{id}/move", a.movePage)
			r.Post("/{id}/workflow/submit", a.submitWorkflow)
		})
		r.Post("/workflow-states/{id}/approve", a.approveWorkflow)
		r.Post("/workflow-states/{id}/reject", a.rejectWorkflow)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.renderError(w, r, apperrors.New(apperrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusMethodNotAllowed)
		render.JSON(w, r, errorResponse{Message: http.StatusText(http.StatusMethodNotAllowed)})
	})
	return r, nil
}

func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health(r.Context()); err != nil {
			a.logger.Warn("health check failed", zap.Error(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "unavailable"})
			return
		}
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Message string `json:"message"`
}

// renderError writes err as {"message": ...} with its mapped status.
// Internal errors are logged and replaced by a generic message.
func (a *api) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Message: apperrors.PublicMessage(err)})
}
