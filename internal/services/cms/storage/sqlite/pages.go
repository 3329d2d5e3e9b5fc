package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/folio/internal/services/cms/domain"
)

const pageColumns = `id, parent_id, title, slug, url_path, depth, numchild, sort_order,
       content_type, for_explorer, live, has_unpublished_changes,
       first_published_at, last_published_at, go_live_at, expire_at, expired,
       created_at, updated_at`

// ancestorsCTE walks from the page bound to the first placeholder up to its
// root. The chain includes the page itself.
const ancestorsCTE = `WITH RECURSIVE chain(id, parent_id) AS (
    SELECT id, parent_id FROM pages WHERE id = ?
    UNION ALL
    SELECT p.id, p.parent_id FROM pages p JOIN chain c ON p.id = c.parent_id
)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (domain.Page, error) {
	var (
		page                           domain.Page
		parentID                       sql.NullInt64
		forExplorer, live, unpublished int
		expired                        int
		firstPublished, lastPublished  sql.NullInt64
		goLive, expire                 sql.NullInt64
		createdAt, updatedAt           int64
	)
	if err := row.Scan(
		&page.ID,
		&parentID,
		&page.Title,
		&page.Slug,
		&page.URLPath,
		&page.Depth,
		&page.NumChild,
		&page.SortOrder,
		&page.ContentType,
		&forExplorer,
		&live,
		&unpublished,
		&firstPublished,
		&lastPublished,
		&goLive,
		&expire,
		&expired,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Page{}, err
	}
	page.ParentID = fromNullID(parentID)
	page.ForExplorer = forExplorer != 0
	page.Live = live != 0
	page.HasUnpublishedChanges = unpublished != 0
	page.FirstPublishedAt = fromNullMillis(firstPublished)
	page.LastPublishedAt = fromNullMillis(lastPublished)
	page.GoLiveAt = fromNullMillis(goLive)
	page.ExpireAt = fromNullMillis(expire)
	page.Expired = expired != 0
	page.CreatedAt = fromMillis(createdAt)
	page.UpdatedAt = fromMillis(updatedAt)
	return page, nil
}

func queryPages(ctx context.Context, q dbtx, query string, args ...any) ([]domain.Page, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pages, nil
}

func getPage(ctx context.Context, q dbtx, id int64) (domain.Page, error) {
	row := q.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
	page, err := scanPage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Page{}, domain.NotFoundf("page %d not found", id)
		}
		return domain.Page{}, fmt.Errorf("get page: %w", err)
	}
	return page, nil
}

// GetPage returns one page by id.
func (s *Store) GetPage(ctx context.Context, id int64) (domain.Page, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Page{}, err
	}
	return getPage(ctx, s.sqlDB, id)
}

// ListRootPages returns pages without a parent in creation order.
func (s *Store) ListRootPages(ctx context.Context) ([]domain.Page, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	pages, err := queryPages(ctx, s.sqlDB, `SELECT `+pageColumns+` FROM pages WHERE parent_id IS NULL ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list root pages: %w", err)
	}
	return pages, nil
}

// ListChildren returns the direct children of parentID in sibling order.
func (s *Store) ListChildren(ctx context.Context, parentID int64) ([]domain.Page, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	pages, err := queryPages(ctx, s.sqlDB, `SELECT `+pageColumns+` FROM pages WHERE parent_id = ? ORDER BY sort_order, id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return pages, nil
}

// ListAncestors returns the ancestors of pageID, root first.
func (s *Store) ListAncestors(ctx context.Context, pageID int64) ([]domain.Page, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	pages, err := queryPages(ctx, s.sqlDB,
		ancestorsCTE+`
SELECT `+pageColumns+` FROM pages
 WHERE id IN (SELECT id FROM chain) AND id != ?
 ORDER BY depth`,
		pageID, pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ancestors: %w", err)
	}
	return pages, nil
}

// ListPages returns one window of pages matching filter, ordered by depth
// then sibling order.
func (s *Store) ListPages(ctx context.Context, filter domain.PageFilter) (domain.PageList, error) {
	if err := s.ready(ctx); err != nil {
		return domain.PageList{}, err
	}

	var (
		where []string
		args  []any
	)
	if filter.HasChildren != nil {
		if *filter.HasChildren {
			where = append(where, "numchild > 0")
		} else {
			where = append(where, "numchild = 0")
		}
	}
	if filter.ForExplorerOnly {
		where = append(where, "for_explorer = 1")
	}
	if filter.ChildOf != nil {
		where = append(where, "parent_id = ?")
		args = append(args, *filter.ChildOf)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`+clause, args...).Scan(&total); err != nil {
		return domain.PageList{}, fmt.Errorf("count pages: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	pages, err := queryPages(ctx, s.sqlDB,
		`SELECT `+pageColumns+` FROM pages`+clause+` ORDER BY depth, sort_order, id LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return domain.PageList{}, fmt.Errorf("list pages: %w", err)
	}
	if pages == nil {
		pages = []domain.Page{}
	}
	return domain.PageList{Pages: pages, TotalCount: total}, nil
}

// CreatePage inserts page as the last child of page.ParentID, or as the last
// root when it has no parent.
func (s *Store) CreatePage(ctx context.Context, page domain.Page) (domain.Page, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Page{}, err
	}
	now := time.Now().UTC()
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	if page.UpdatedAt.IsZero() {
		page.UpdatedAt = page.CreatedAt
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if page.ParentID != nil {
			parent, err := getPage(ctx, tx, *page.ParentID)
			if err != nil {
				return err
			}
			page.Depth = parent.Depth + 1
		} else {
			page.Depth = 1
		}
		sortOrder, err := nextSortOrder(ctx, tx, page.ParentID)
		if err != nil {
			return err
		}
		page.SortOrder = sortOrder
		page.NumChild = 0

		res, err := tx.ExecContext(ctx,
			`INSERT INTO pages (
			   parent_id, title, slug, url_path, depth, numchild, sort_order,
			   content_type, for_explorer, live, has_unpublished_changes,
			   first_published_at, last_published_at, go_live_at, expire_at, expired,
			   created_at, updated_at
			 ) VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			toNullID(page.ParentID),
			page.Title,
			page.Slug,
			page.URLPath,
			page.Depth,
			page.SortOrder,
			page.ContentType,
			boolToInt(page.ForExplorer),
			boolToInt(page.Live),
			boolToInt(page.HasUnpublishedChanges),
			toNullMillis(page.FirstPublishedAt),
			toNullMillis(page.LastPublishedAt),
			toNullMillis(page.GoLiveAt),
			toNullMillis(page.ExpireAt),
			boolToInt(page.Expired),
			toMillis(page.CreatedAt),
			toMillis(page.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("slug %q: %w", page.Slug, domain.ErrSlugInUse)
			}
			return fmt.Errorf("insert page: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert page id: %w", err)
		}
		page.ID = id
		if page.ParentID != nil {
			if err := adjustNumChild(ctx, tx, *page.ParentID, 1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Page{}, err
	}
	return page, nil
}

// UpdatePage saves the content and publishing columns of page. Structural
// columns (parent, depth, numchild, sort order) only change through
// CreatePage and MovePage.
func (s *Store) UpdatePage(ctx context.Context, page domain.Page) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if page.UpdatedAt.IsZero() {
		page.UpdatedAt = time.Now().UTC()
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE pages
		    SET title = ?, slug = ?, url_path = ?, content_type = ?, for_explorer = ?,
		        live = ?, has_unpublished_changes = ?,
		        first_published_at = ?, last_published_at = ?, go_live_at = ?, expire_at = ?,
		        expired = ?, updated_at = ?
		  WHERE id = ?`,
		page.Title,
		page.Slug,
		page.URLPath,
		page.ContentType,
		boolToInt(page.ForExplorer),
		boolToInt(page.Live),
		boolToInt(page.HasUnpublishedChanges),
		toNullMillis(page.FirstPublishedAt),
		toNullMillis(page.LastPublishedAt),
		toNullMillis(page.GoLiveAt),
		toNullMillis(page.ExpireAt),
		boolToInt(page.Expired),
		toMillis(page.UpdatedAt),
		page.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("slug %q: %w", page.Slug, domain.ErrSlugInUse)
		}
		return fmt.Errorf("update page: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	if affected == 0 {
		return domain.NotFoundf("page %d not found", page.ID)
	}
	return nil
}

// MovePage reparents move.PageID as the last child of move.ParentID and
// saves the subtree's new url paths, all in one transaction. Every id in
// move.URLPaths must belong to the moved subtree.
func (s *Store) MovePage(ctx context.Context, move domain.PageMove) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if move.At.IsZero() {
		move.At = time.Now().UTC()
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		page, err := getPage(ctx, tx, move.PageID)
		if err != nil {
			return err
		}
		parent, err := getPage(ctx, tx, move.ParentID)
		if err != nil {
			return err
		}
		sortOrder, err := nextSortOrder(ctx, tx, &parent.ID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE pages SET parent_id = ?, sort_order = ? WHERE id = ?`,
			parent.ID, sortOrder, page.ID,
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("slug %q: %w", page.Slug, domain.ErrSlugInUse)
			}
			return fmt.Errorf("reparent page: %w", err)
		}

		if delta := parent.Depth + 1 - page.Depth; delta != 0 {
			if _, err := tx.ExecContext(ctx,
				subtreeCTE+`UPDATE pages SET depth = depth + ? WHERE id IN (SELECT id FROM subtree)`,
				page.ID, delta,
			); err != nil {
				return fmt.Errorf("shift subtree depth: %w", err)
			}
		}

		for id, urlPath := range move.URLPaths {
			res, err := tx.ExecContext(ctx,
				subtreeCTE+`UPDATE pages SET url_path = ?, updated_at = ? WHERE id = ? AND id IN (SELECT id FROM subtree)`,
				page.ID, urlPath, toMillis(move.At), id,
			)
			if err != nil {
				return fmt.Errorf("save url path of page %d: %w", id, err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("save url path of page %d: %w", id, err)
			} else if n == 0 {
				return fmt.Errorf("page %d is not under moved page %d: %w", id, page.ID, domain.ErrInvalidMove)
			}
		}

		if page.ParentID != nil && *page.ParentID == parent.ID {
			return nil
		}
		if page.ParentID != nil {
			if err := adjustNumChild(ctx, tx, *page.ParentID, -1); err != nil {
				return err
			}
		}
		return adjustNumChild(ctx, tx, parent.ID, 1)
	})
}

// subtreeCTE binds subtree to the first argument and all its descendants.
const subtreeCTE = `WITH RECURSIVE subtree(id) AS (
     SELECT ?
     UNION ALL
     SELECT p.id FROM pages p JOIN subtree s ON p.parent_id = s.id
 )
 `

func nextSortOrder(ctx context.Context, q dbtx, parentID *int64) (int, error) {
	var next int
	var err error
	if parentID == nil {
		err = q.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order) + 1, 0) FROM pages WHERE parent_id IS NULL`).Scan(&next)
	} else {
		err = q.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order) + 1, 0) FROM pages WHERE parent_id = ?`, *parentID).Scan(&next)
	}
	if err != nil {
		return 0, fmt.Errorf("next sort order: %w", err)
	}
	return next, nil
}

func adjustNumChild(ctx context.Context, q dbtx, pageID int64, delta int) error {
	if _, err := q.ExecContext(ctx, `UPDATE pages SET numchild = numchild + ? WHERE id = ?`, delta, pageID); err != nil {
		return fmt.Errorf("adjust child count: %w", err)
	}
	return nil
}
