package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Workflows runs the moderation lifecycle of pages.
type Workflows struct {
	pages   TreeStore
	store   ModerationStore
	signals SignalSender
	clock   func() time.Time
}

// NewWorkflows constructs moderation use-cases. A nil signals sender drops
// every signal.
func NewWorkflows(pages TreeStore, store ModerationStore, signals SignalSender, clock func() time.Time) *Workflows {
	if signals == nil {
		signals = nopSignals{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &Workflows{pages: pages, store: store, signals: signals, clock: clock}
}

// Submit starts the page's workflow on a new revision and opens its first
// task. It signals workflow_submitted then task_submitted.
func (w *Workflows) Submit(ctx context.Context, pageID int64, actor User) (WorkflowState, error) {
	if w == nil || w.pages == nil || w.store == nil {
		return WorkflowState{}, ErrStoreNotConfigured
	}
	ctx, span := tracer.Start(ctx, "Workflows.Submit", trace.WithAttributes(attribute.Int64("page.id", pageID)))
	defer span.End()

	page, err := w.pages.GetPage(ctx, pageID)
	if err != nil {
		return WorkflowState{}, err
	}
	if _, err := w.store.FindInProgressWorkflowState(ctx, page.ID); err == nil {
		return WorkflowState{}, fmt.Errorf("page %d: %w", page.ID, ErrWorkflowInProgress)
	} else if !errors.Is(err, ErrNotFound) {
		return WorkflowState{}, err
	}
	workflow, err := w.store.FindWorkflowForPage(ctx, page.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return WorkflowState{}, fmt.Errorf("page %d: %w", page.ID, ErrNoWorkflow)
		}
		return WorkflowState{}, err
	}
	tasks, err := w.activeTasks(ctx, workflow.ID)
	if err != nil {
		return WorkflowState{}, err
	}
	if len(tasks) == 0 {
		return WorkflowState{}, fmt.Errorf("workflow %q has no active tasks: %w", workflow.Name, ErrNoWorkflow)
	}

	now := w.clock().UTC()
	actorID := actor.ID
	start, err := w.store.StartWorkflow(ctx, WorkflowStart{
		Revision: Revision{
			PageID:    page.ID,
			UserID:    &actorID,
			Submitted: true,
			CreatedAt: now,
		},
		State: WorkflowState{
			PageID:        page.ID,
			WorkflowID:    workflow.ID,
			Status:        WorkflowStatusInProgress,
			RequestedByID: &actorID,
			CreatedAt:     now,
		},
		TaskState: TaskState{
			TaskID:    tasks[0].ID,
			Status:    TaskStatusInProgress,
			StartedAt: now,
		},
	})
	if err != nil {
		return WorkflowState{}, err
	}
	state, taskState := start.State, start.TaskState

	page.HasUnpublishedChanges = true
	page.UpdatedAt = now
	if err := w.pages.UpdatePage(ctx, page); err != nil {
		return WorkflowState{}, err
	}

	if err := w.signals.Send(ctx, Signal{Kind: SignalWorkflowSubmitted, Sender: state, Actor: &actor}); err != nil {
		return state, fmt.Errorf("signal %s: %w", SignalWorkflowSubmitted, err)
	}
	if err := w.signals.Send(ctx, Signal{Kind: SignalTaskSubmitted, Sender: taskState, Actor: &actor}); err != nil {
		return state, fmt.Errorf("signal %s: %w", SignalTaskSubmitted, err)
	}
	return state, nil
}

// Approve finishes the current task. The next task opens if there is one;
// otherwise the workflow is approved and the page goes live.
func (w *Workflows) Approve(ctx context.Context, stateID int64, actor User) (WorkflowState, error) {
	if w == nil || w.pages == nil || w.store == nil {
		return WorkflowState{}, ErrStoreNotConfigured
	}
	ctx, span := tracer.Start(ctx, "Workflows.Approve", trace.WithAttributes(attribute.Int64("workflow_state.id", stateID)))
	defer span.End()

	state, current, err := w.loadInProgress(ctx, stateID)
	if err != nil {
		return WorkflowState{}, err
	}
	now := w.clock().UTC()
	if err := w.finishTask(ctx, &current, TaskStatusApproved, "", actor, now); err != nil {
		return WorkflowState{}, err
	}

	tasks, err := w.activeTasks(ctx, state.WorkflowID)
	if err != nil {
		return WorkflowState{}, err
	}
	if next, ok := nextTask(tasks, current.TaskID); ok {
		taskState, err := w.startTask(ctx, &state, next, current.RevisionID)
		if err != nil {
			return WorkflowState{}, err
		}
		if err := w.signals.Send(ctx, Signal{Kind: SignalTaskSubmitted, Sender: taskState, Actor: &actor}); err != nil {
			return state, fmt.Errorf("signal %s: %w", SignalTaskSubmitted, err)
		}
		return state, nil
	}

	state.Status = WorkflowStatusApproved
	state.CurrentTaskStateID = nil
	if err := w.store.UpdateWorkflowState(ctx, state); err != nil {
		return WorkflowState{}, err
	}
	if err := w.publish(ctx, state.PageID, now); err != nil {
		return WorkflowState{}, err
	}
	if err := w.signals.Send(ctx, Signal{Kind: SignalWorkflowApproved, Sender: state, Actor: &actor}); err != nil {
		return state, fmt.Errorf("signal %s: %w", SignalWorkflowApproved, err)
	}
	return state, nil
}

// Reject rejects the current task and the whole workflow. The rejected task
// state stays current so notifications can report it.
func (w *Workflows) Reject(ctx context.Context, stateID int64, actor User, comment string) (WorkflowState, error) {
	if w == nil || w.pages == nil || w.store == nil {
		return WorkflowState{}, ErrStoreNotConfigured
	}
	ctx, span := tracer.Start(ctx, "Workflows.Reject", trace.WithAttributes(attribute.Int64("workflow_state.id", stateID)))
	defer span.End()

	state, current, err := w.loadInProgress(ctx, stateID)
	if err != nil {
		return WorkflowState{}, err
	}
	now := w.clock().UTC()
	if err := w.finishTask(ctx, &current, TaskStatusRejected, strings.TrimSpace(comment), actor, now); err != nil {
		return WorkflowState{}, err
	}
	state.Status = WorkflowStatusRejected
	if err := w.store.UpdateWorkflowState(ctx, state); err != nil {
		return WorkflowState{}, err
	}
	if err := w.signals.Send(ctx, Signal{Kind: SignalWorkflowRejected, Sender: state, Actor: &actor}); err != nil {
		return state, fmt.Errorf("signal %s: %w", SignalWorkflowRejected, err)
	}
	return state, nil
}

func (w *Workflows) loadInProgress(ctx context.Context, stateID int64) (WorkflowState, TaskState, error) {
	state, err := w.store.GetWorkflowState(ctx, stateID)
	if err != nil {
		return WorkflowState{}, TaskState{}, err
	}
	if state.Status != WorkflowStatusInProgress || state.CurrentTaskStateID == nil {
		return WorkflowState{}, TaskState{}, fmt.Errorf("workflow state %d is %s: %w", state.ID, state.Status, ErrWorkflowFinished)
	}
	current, err := w.store.GetTaskState(ctx, *state.CurrentTaskStateID)
	if err != nil {
		return WorkflowState{}, TaskState{}, err
	}
	return state, current, nil
}

func (w *Workflows) startTask(ctx context.Context, state *WorkflowState, task Task, revisionID int64) (TaskState, error) {
	taskState, err := w.store.CreateTaskState(ctx, TaskState{
		WorkflowStateID: state.ID,
		TaskID:          task.ID,
		RevisionID:      revisionID,
		Status:          TaskStatusInProgress,
		StartedAt:       w.clock().UTC(),
	})
	if err != nil {
		return TaskState{}, err
	}
	state.CurrentTaskStateID = &taskState.ID
	if err := w.store.UpdateWorkflowState(ctx, *state); err != nil {
		return TaskState{}, err
	}
	return taskState, nil
}

func (w *Workflows) finishTask(ctx context.Context, taskState *TaskState, status string, comment string, actor User, at time.Time) error {
	actorID := actor.ID
	taskState.Status = status
	taskState.Comment = comment
	taskState.FinishedAt = &at
	taskState.FinishedByID = &actorID
	return w.store.UpdateTaskState(ctx, *taskState)
}

func (w *Workflows) publish(ctx context.Context, pageID int64, at time.Time) error {
	page, err := w.pages.GetPage(ctx, pageID)
	if err != nil {
		return err
	}
	page.Live = true
	page.HasUnpublishedChanges = false
	if page.FirstPublishedAt == nil {
		page.FirstPublishedAt = &at
	}
	page.LastPublishedAt = &at
	page.UpdatedAt = at
	return w.pages.UpdatePage(ctx, page)
}

func (w *Workflows) activeTasks(ctx context.Context, workflowID int64) ([]Task, error) {
	tasks, err := w.store.ListWorkflowTasks(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	active := tasks[:0:0]
	for _, task := range tasks {
		if task.Active {
			active = append(active, task)
		}
	}
	return active, nil
}

func nextTask(tasks []Task, currentTaskID int64) (Task, bool) {
	for i, task := range tasks {
		if task.ID == currentTaskID && i+1 < len(tasks) {
			return tasks[i+1], true
		}
	}
	return Task{}, false
}
