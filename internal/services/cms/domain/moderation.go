package domain

import "time"

// Workflow state statuses.
const (
	WorkflowStatusInProgress = "in_progress"
	WorkflowStatusApproved   = "approved"
	WorkflowStatusRejected   = "rejected"
	WorkflowStatusCancelled  = "cancelled"
)

// Task state statuses.
const (
	TaskStatusInProgress = "in_progress"
	TaskStatusApproved   = "approved"
	TaskStatusRejected   = "rejected"
	TaskStatusSkipped    = "skipped"
	TaskStatusCancelled  = "cancelled"
)

// TaskKindGroupApproval is a task approved by members of its groups.
const TaskKindGroupApproval = "group_approval"

// Revision is a saved version of a page submitted for review.
type Revision struct {
	ID        int64
	PageID    int64
	UserID    *int64
	Submitted bool
	CreatedAt time.Time
}

// Workflow is an ordered list of approval tasks.
type Workflow struct {
	ID     int64
	Name   string
	Active bool
}

// Task is one step of a workflow.
type Task struct {
	ID       int64
	Name     string
	Kind     string
	Active   bool
	GroupIDs []int64
}

// IsGroupApproval reports whether the task is approved by group members.
func (t Task) IsGroupApproval() bool {
	return t.Kind == TaskKindGroupApproval
}

// WorkflowState tracks one page moving through a workflow.
type WorkflowState struct {
	ID                 int64
	PageID             int64
	WorkflowID         int64
	Status             string
	RequestedByID      *int64
	CurrentTaskStateID *int64
	CreatedAt          time.Time
}

// ModelName names the type for notification template lookups.
func (WorkflowState) ModelName() string { return "WorkflowState" }

// TaskState tracks one task of a workflow state.
type TaskState struct {
	ID              int64
	WorkflowStateID int64
	TaskID          int64
	RevisionID      int64
	Status          string
	Comment         string
	StartedAt       time.Time
	FinishedAt      *time.Time
	FinishedByID    *int64
}

// ModelName names the type for notification template lookups.
func (TaskState) ModelName() string { return "TaskState" }
