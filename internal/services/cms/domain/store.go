package domain

import (
	"context"
	"time"
)

// PageMove reparents PageID as the last child of ParentID. URLPaths holds
// the new url path of every page in the moved subtree, keyed by page id.
type PageMove struct {
	PageID   int64
	ParentID int64
	URLPaths map[int64]string
	At       time.Time
}

// WorkflowStart is a submission: the revision, the new in-progress workflow
// state and the task state of its first task.
type WorkflowStart struct {
	Revision  Revision
	State     WorkflowState
	TaskState TaskState
}

// PageReader is the read side of page persistence.
type PageReader interface {
	GetPage(ctx context.Context, id int64) (Page, error)
	ListRootPages(ctx context.Context) ([]Page, error)
	ListChildren(ctx context.Context, parentID int64) ([]Page, error)
}

// TreeStore persists the page tree.
type TreeStore interface {
	PageReader
	// CreatePage inserts page as the last child of page.ParentID (or as a
	// root) and increments the parent's child count.
	CreatePage(ctx context.Context, page Page) (Page, error)
	// UpdatePage saves the mutable, non-structural columns of page.
	UpdatePage(ctx context.Context, page Page) error
	// MovePage applies move in one transaction: reparent, shift the depth
	// of the subtree, fix both parents' child counts and save URLPaths.
	MovePage(ctx context.Context, move PageMove) error
	ListPages(ctx context.Context, filter PageFilter) (PageList, error)
	ListAncestors(ctx context.Context, pageID int64) ([]Page, error)
}

// AccountReader resolves users, groups and profiles.
type AccountReader interface {
	GetUser(ctx context.Context, id int64) (User, error)
	ListUsers(ctx context.Context, query UserQuery) ([]User, error)
	// UsersWithPagePermission returns active users that are superusers or
	// belong to a group granted permission on the page or an ancestor.
	UsersWithPagePermission(ctx context.Context, permission string, pageID int64) ([]User, error)
	GetUserProfile(ctx context.Context, userID int64) (UserProfile, error)
}

// AccountStore adds the writes used by fixtures and admin tooling.
type AccountStore interface {
	AccountReader
	CreateUser(ctx context.Context, user User) (User, error)
	CreateGroup(ctx context.Context, group Group) (Group, error)
	GetGroupByName(ctx context.Context, name string) (Group, error)
	AddUserToGroup(ctx context.Context, userID int64, groupID int64) error
	GrantPagePermission(ctx context.Context, grant GroupPagePermission) error
	PutUserProfile(ctx context.Context, profile UserProfile) error
}

// ModerationReader resolves workflow records for notifications.
type ModerationReader interface {
	GetRevision(ctx context.Context, id int64) (Revision, error)
	GetWorkflow(ctx context.Context, id int64) (Workflow, error)
	GetTask(ctx context.Context, id int64) (Task, error)
	GetWorkflowState(ctx context.Context, id int64) (WorkflowState, error)
	GetTaskState(ctx context.Context, id int64) (TaskState, error)
}

// ModerationStore persists workflows and their progress.
type ModerationStore interface {
	ModerationReader
	CreateRevision(ctx context.Context, revision Revision) (Revision, error)
	CreateWorkflow(ctx context.Context, workflow Workflow) (Workflow, error)
	CreateTask(ctx context.Context, task Task) (Task, error)
	AddWorkflowTask(ctx context.Context, workflowID int64, taskID int64) error
	ListWorkflowTasks(ctx context.Context, workflowID int64) ([]Task, error)
	AssignWorkflow(ctx context.Context, pageID int64, workflowID int64) error
	// FindWorkflowForPage returns the active workflow assigned to the page
	// or its nearest ancestor.
	FindWorkflowForPage(ctx context.Context, pageID int64) (Workflow, error)
	FindInProgressWorkflowState(ctx context.Context, pageID int64) (WorkflowState, error)
	// StartWorkflow stores start's revision, workflow state and first task
	// state in one transaction and points the state at that task state.
	StartWorkflow(ctx context.Context, start WorkflowStart) (WorkflowStart, error)
	UpdateWorkflowState(ctx context.Context, state WorkflowState) error
	CreateTaskState(ctx context.Context, state TaskState) (TaskState, error)
	UpdateTaskState(ctx context.Context, state TaskState) error
}
