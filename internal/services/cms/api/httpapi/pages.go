package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "github.com/louisbranch/folio/internal/platform/errors"
	"github.com/louisbranch/folio/internal/services/cms/domain"
)

type pageResponse struct {
	ID                    int64      `json:"id"`
	ParentID              *int64     `json:"parent_id"`
	Title                 string     `json:"title"`
	Slug                  string     `json:"slug"`
	URLPath               string     `json:"url_path"`
	Depth                 int        `json:"depth"`
	NumChild              int        `json:"numchild"`
	ContentType           string     `json:"content_type,omitempty"`
	ForExplorer           bool       `json:"for_explorer"`
	Live                  bool       `json:"live"`
	HasUnpublishedChanges bool       `json:"has_unpublished_changes"`
	FirstPublishedAt      *time.Time `json:"first_published_at"`
	LastPublishedAt       *time.Time `json:"last_published_at"`
}

func newPageResponse(p domain.Page) pageResponse {
	return pageResponse{
		ID:                    p.ID,
		ParentID:              p.ParentID,
		Title:                 p.Title,
		Slug:                  p.Slug,
		URLPath:               p.URLPath,
		Depth:                 p.Depth,
		NumChild:              p.NumChild,
		ContentType:           p.ContentType,
		ForExplorer:           p.ForExplorer,
		Live:                  p.Live,
		HasUnpublishedChanges: p.HasUnpublishedChanges,
		FirstPublishedAt:      p.FirstPublishedAt,
		LastPublishedAt:       p.LastPublishedAt,
	}
}

type breadcrumb struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	URLPath string `json:"url_path"`
}

// pageDetailResponse adds the ancestor chain, root first, to a page.
type pageDetailResponse struct {
	pageResponse
	Ancestors []breadcrumb `json:"ancestors"`
}

type listMeta struct {
	TotalCount int `json:"total_count"`
}

type pageListResponse struct {
	Meta  listMeta       `json:"meta"`
	Items []pageResponse `json:"items"`
}

func (a *api) listPages(w http.ResponseWriter, r *http.Request) {
	filter, err := pageFilterFromQuery(r.URL.Query())
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	list, err := a.pages.List(r.Context(), filter)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	resp := pageListResponse{
		Meta:  listMeta{TotalCount: list.TotalCount},
		Items: make([]pageResponse, 0, len(list.Pages)),
	}
	for _, p := range list.Pages {
		resp.Items = append(resp.Items, newPageResponse(p))
	}
	render.JSON(w, r, resp)
}

func (a *api) getPage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	page, err := a.pages.Get(r.Context(), id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	ancestors, err := a.pages.Ancestors(r.Context(), id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	resp := pageDetailResponse{
		pageResponse: newPageResponse(page),
		Ancestors:    make([]breadcrumb, 0, len(ancestors)),
	}
	for _, p := range ancestors {
		resp.Ancestors = append(resp.Ancestors, breadcrumb{ID: p.ID, Title: p.Title, URLPath: p.URLPath})
	}
	render.JSON(w, r, resp)
}

type createPageRequest struct {
	ParentID    *int64 `json:"parent_id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	ContentType string `json:"content_type"`
	ForExplorer bool   `json:"for_explorer"`
}

func (req *createPageRequest) Bind(*http.Request) error {
	req.Title = strings.TrimSpace(req.Title)
	if req.ParentID != nil && *req.ParentID <= 0 {
		return errors.New("parent_id must be a positive integer")
	}
	return nil
}

func (a *api) createPage(w http.ResponseWriter, r *http.Request) {
	var req createPageRequest
	if err := render.Bind(r, &req); err != nil {
		a.renderError(w, r, badRequest(err))
		return
	}
	input := domain.NewPageInput{
		Title:       req.Title,
		Slug:        req.Slug,
		ContentType: req.ContentType,
		ForExplorer: req.ForExplorer,
	}
	var (
		page domain.Page
		err  error
	)
	if req.ParentID == nil {
		page, err = a.pages.CreateRoot(r.Context(), input)
	} else {
		page, err = a.pages.AddChild(r.Context(), *req.ParentID, input)
	}
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newPageResponse(page))
}

type movePageRequest struct {
	DestinationID int64  `json:"destination_id"`
	Position      string `json:"position"`
}

func (req *movePageRequest) Bind(*http.Request) error {
	if req.DestinationID <= 0 {
		return errors.New("destination_id must be a positive integer")
	}
	if req.Position == "" {
		req.Position = string(domain.PositionLastChild)
	}
	return nil
}

func (a *api) movePage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	var req movePageRequest
	if err := render.Bind(r, &req); err != nil {
		a.renderError(w, r, badRequest(err))
		return
	}
	page, err := a.pages.Move(r.Context(), id, req.DestinationID, domain.Position(req.Position))
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	render.JSON(w, r, newPageResponse(page))
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest("id must be a positive integer")
	}
	return id, nil
}

// badRequest keeps application errors as they are and turns anything else
// (decode failures, Bind validation) into a bad request.
func badRequest(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, io.EOF) {
		return apperrors.Wrap(apperrors.CodeBadRequest, "request body is required", err)
	}
	return apperrors.Wrap(apperrors.CodeBadRequest, err.Error(), err)
}
