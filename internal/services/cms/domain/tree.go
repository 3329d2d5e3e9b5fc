package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/louisbranch/folio/internal/services/cms/domain")

// Position is where Move places a page relative to its target.
type Position string

// PositionLastChild makes the moved page the target's last child.
const PositionLastChild Position = "last-child"

// NewPageInput describes a page to create.
type NewPageInput struct {
	Title       string
	Slug        string
	ContentType string
	ForExplorer bool
}

// Tree orchestrates page tree structure and materialized url paths.
type Tree struct {
	store TreeStore
	clock func() time.Time
}

// NewTree constructs tree use-cases.
func NewTree(store TreeStore, clock func() time.Time) *Tree {
	if clock == nil {
		clock = time.Now
	}
	return &Tree{store: store, clock: clock}
}

// Get returns one page.
func (t *Tree) Get(ctx context.Context, id int64) (Page, error) {
	if t == nil || t.store == nil {
		return Page{}, ErrStoreNotConfigured
	}
	return t.store.GetPage(ctx, id)
}

// Roots returns the root pages in order.
func (t *Tree) Roots(ctx context.Context) ([]Page, error) {
	if t == nil || t.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return t.store.ListRootPages(ctx)
}

// Children returns the direct children of a page in order.
func (t *Tree) Children(ctx context.Context, id int64) ([]Page, error) {
	if t == nil || t.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return t.store.ListChildren(ctx, id)
}

// Ancestors returns the ancestors of a page, root first.
func (t *Tree) Ancestors(ctx context.Context, id int64) ([]Page, error) {
	if t == nil || t.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return t.store.ListAncestors(ctx, id)
}

// List returns one filtered window of pages.
func (t *Tree) List(ctx context.Context, filter PageFilter) (PageList, error) {
	if t == nil || t.store == nil {
		return PageList{}, ErrStoreNotConfigured
	}
	return t.store.ListPages(ctx, filter)
}

// CreateRoot adds a new root page. Roots always have url path "/".
func (t *Tree) CreateRoot(ctx context.Context, input NewPageInput) (Page, error) {
	if t == nil || t.store == nil {
		return Page{}, ErrStoreNotConfigured
	}
	page, err := t.newPage(input)
	if err != nil {
		return Page{}, err
	}
	page.Depth = 1
	page.URLPath = RootURLPath
	return t.store.CreatePage(ctx, page)
}

// AddChild adds a page as the last child of parentID.
func (t *Tree) AddChild(ctx context.Context, parentID int64, input NewPageInput) (Page, error) {
	if t == nil || t.store == nil {
		return Page{}, ErrStoreNotConfigured
	}
	page, err := t.newPage(input)
	if err != nil {
		return Page{}, err
	}
	parent, err := t.store.GetPage(ctx, parentID)
	if err != nil {
		return Page{}, err
	}
	if err := t.ensureSlugFree(ctx, parent.ID, page.Slug, 0); err != nil {
		return Page{}, err
	}
	page.ParentID = &parent.ID
	page.Depth = parent.Depth + 1
	page.URLPath = parent.ChildURLPath(page.Slug)
	return t.store.CreatePage(ctx, page)
}

// Move places pageID relative to targetID and rewrites the url paths of the
// moved subtree. Only PositionLastChild is supported.
func (t *Tree) Move(ctx context.Context, pageID int64, targetID int64, pos Position) (Page, error) {
	if t == nil || t.store == nil {
		return Page{}, ErrStoreNotConfigured
	}
	ctx, span := tracer.Start(ctx, "Tree.Move", trace.WithAttributes(
		attribute.Int64("page.id", pageID),
		attribute.Int64("target.id", targetID),
	))
	defer span.End()

	moved, err := t.move(ctx, pageID, targetID, pos)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return moved, err
}

func (t *Tree) move(ctx context.Context, pageID int64, targetID int64, pos Position) (Page, error) {
	if pos == "" {
		pos = PositionLastChild
	}
	if pos != PositionLastChild {
		return Page{}, invalidMovef("unsupported position %q", pos)
	}
	if pageID == targetID {
		return Page{}, invalidMovef("cannot move page %d into itself", pageID)
	}
	page, err := t.store.GetPage(ctx, pageID)
	if err != nil {
		return Page{}, err
	}
	target, err := t.store.GetPage(ctx, targetID)
	if err != nil {
		return Page{}, err
	}
	ancestors, err := t.store.ListAncestors(ctx, target.ID)
	if err != nil {
		return Page{}, err
	}
	for _, ancestor := range ancestors {
		if ancestor.ID == page.ID {
			return Page{}, invalidMovef("cannot move page %d into its descendant %d", page.ID, target.ID)
		}
	}
	if err := t.ensureSlugFree(ctx, target.ID, page.Slug, page.ID); err != nil {
		return Page{}, err
	}
	paths := map[int64]string{}
	if err := t.subtreeURLPaths(ctx, page, target.ChildURLPath(page.Slug), paths); err != nil {
		return Page{}, err
	}
	move := PageMove{PageID: page.ID, ParentID: target.ID, URLPaths: paths, At: t.clock().UTC()}
	if err := t.store.MovePage(ctx, move); err != nil {
		return Page{}, fmt.Errorf("move page %d: %w", page.ID, err)
	}
	return t.store.GetPage(ctx, page.ID)
}

// SetURLPaths recomputes and saves the url path of every page, walking each
// root depth-first. It returns the number of pages saved.
func (t *Tree) SetURLPaths(ctx context.Context) (int, error) {
	if t == nil || t.store == nil {
		return 0, ErrStoreNotConfigured
	}
	ctx, span := tracer.Start(ctx, "Tree.SetURLPaths")
	defer span.End()

	roots, err := t.store.ListRootPages(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	total := 0
	for _, root := range roots {
		saved, err := t.setSubtree(ctx, root, nil)
		total += saved
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return total, err
		}
	}
	span.SetAttributes(attribute.Int("pages.saved", total))
	return total, nil
}

// setSubtree assigns node's url path from parent (nil for roots), saves it,
// then recurses into its children.
func (t *Tree) setSubtree(ctx context.Context, node Page, parent *Page) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if parent == nil {
		node.URLPath = RootURLPath
	} else {
		node.URLPath = parent.ChildURLPath(node.Slug)
	}
	node.UpdatedAt = t.clock().UTC()
	if err := t.store.UpdatePage(ctx, node); err != nil {
		return 0, fmt.Errorf("save page %d: %w", node.ID, err)
	}
	saved := 1

	children, err := t.store.ListChildren(ctx, node.ID)
	if err != nil {
		return saved, err
	}
	for _, child := range children {
		n, err := t.setSubtree(ctx, child, &node)
		saved += n
		if err != nil {
			return saved, err
		}
	}
	return saved, nil
}

// subtreeURLPaths records urlPath for node and the derived path of each of
// its descendants.
func (t *Tree) subtreeURLPaths(ctx context.Context, node Page, urlPath string, into map[int64]string) error {
	into[node.ID] = urlPath
	children, err := t.store.ListChildren(ctx, node.ID)
	if err != nil {
		return err
	}
	parent := Page{URLPath: urlPath}
	for _, child := range children {
		if err := t.subtreeURLPaths(ctx, child, parent.ChildURLPath(child.Slug), into); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) newPage(input NewPageInput) (Page, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Page{}, ErrTitleRequired
	}
	slug := NormalizeSlug(input.Slug)
	if !ValidSlug(slug) {
		return Page{}, fmt.Errorf("slug %q: %w", input.Slug, ErrInvalidSlug)
	}
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = "Page"
	}
	now := t.clock().UTC()
	return Page{
		Title:       title,
		Slug:        slug,
		ContentType: contentType,
		ForExplorer: input.ForExplorer,
		// Drafts until a workflow approves them.
		HasUnpublishedChanges: true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// ensureSlugFree rejects slug when another child of parentID (other than
// exceptID) already uses it.
func (t *Tree) ensureSlugFree(ctx context.Context, parentID int64, slug string, exceptID int64) error {
	siblings, err := t.store.ListChildren(ctx, parentID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	for _, sibling := range siblings {
		if sibling.ID != exceptID && sibling.Slug == slug {
			return slugInUsef("slug %q is already in use under page %d", slug, parentID)
		}
	}
	return nil
}
