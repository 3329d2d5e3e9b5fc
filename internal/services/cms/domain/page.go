// Package domain models the page tree, accounts and moderation workflow of
// the CMS and hosts the use-cases that operate on them.
package domain

import (
	"regexp"
	"strings"
	"time"
)

// RootURLPath is the url path of every root page.
const RootURLPath = "/"

// Page is one node of the content tree.
type Page struct {
	ID                    int64
	ParentID              *int64
	Title                 string
	Slug                  string
	URLPath               string
	Depth                 int
	NumChild              int
	SortOrder             int
	ContentType           string
	ForExplorer           bool
	Live                  bool
	HasUnpublishedChanges bool
	FirstPublishedAt      *time.Time
	LastPublishedAt       *time.Time
	GoLiveAt              *time.Time
	ExpireAt              *time.Time
	Expired               bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsRoot reports whether the page has no parent.
func (p Page) IsRoot() bool {
	return p.ParentID == nil
}

// ModelName names the page type for template lookups.
func (Page) ModelName() string { return "Page" }

// ChildURLPath returns the url path of a child with slug under p.
func (p Page) ChildURLPath(slug string) string {
	return p.URLPath + slug + "/"
}

// PageFilter narrows a page listing.
type PageFilter struct {
	// HasChildren keeps branches when true and leaves when false.
	HasChildren *bool
	// ForExplorerOnly keeps only pages flagged for the explorer.
	ForExplorerOnly bool
	// ChildOf keeps direct children of the given page.
	ChildOf *int64
	Limit   int
	Offset  int
}

// PageList is one window of a filtered listing.
type PageList struct {
	Pages      []Page
	TotalCount int
}

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// NormalizeSlug lowercases and trims a slug.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// ValidSlug reports whether slug is usable as a url path segment.
func ValidSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}
