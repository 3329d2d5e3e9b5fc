package notify

import (
	"context"
	"fmt"

	"github.com/louisbranch/folio/internal/services/cms/domain"
	"github.com/louisbranch/folio/internal/services/cms/signals"
)

func asWorkflowState(instance any) (domain.WorkflowState, bool) {
	switch v := instance.(type) {
	case domain.WorkflowState:
		return v, true
	case *domain.WorkflowState:
		if v != nil {
			return *v, true
		}
	}
	return domain.WorkflowState{}, false
}

func asTaskState(instance any) (domain.TaskState, bool) {
	switch v := instance.(type) {
	case domain.TaskState:
		return v, true
	case *domain.TaskState:
		if v != nil {
			return *v, true
		}
	}
	return domain.TaskState{}, false
}

// workflowStateNotifier is the base for notifiers about WorkflowState events.
type workflowStateNotifier struct {
	emailNotifier
}

func (n workflowStateNotifier) CanHandle(_ context.Context, instance any) (bool, error) {
	_, ok := asWorkflowState(instance)
	return ok, nil
}

func (n workflowStateNotifier) Context(ctx context.Context, instance any, _ *domain.User) (map[string]any, error) {
	state, _ := asWorkflowState(instance)
	data := n.baseContext()
	page, err := n.deps.Pages.GetPage(ctx, state.PageID)
	if err != nil {
		return nil, fmt.Errorf("load page %d: %w", state.PageID, err)
	}
	workflow, err := n.deps.Moderation.GetWorkflow(ctx, state.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("load workflow %d: %w", state.WorkflowID, err)
	}
	data["page"] = page
	data["workflow"] = workflow
	data["workflow_state"] = state
	return data, nil
}

// requester returns the user that submitted the workflow, unless that user
// is the actor.
func (n workflowStateNotifier) requester(ctx context.Context, state domain.WorkflowState, actor *domain.User) ([]domain.User, error) {
	if state.RequestedByID == nil {
		return nil, nil
	}
	if actor != nil && actor.ID == *state.RequestedByID {
		return nil, nil
	}
	user, err := n.deps.Accounts.GetUser(ctx, *state.RequestedByID)
	if err != nil {
		return nil, fmt.Errorf("load requester %d: %w", *state.RequestedByID, err)
	}
	return []domain.User{user}, nil
}

// WorkflowStateApprovalNotifier tells the requester their workflow was
// approved.
type WorkflowStateApprovalNotifier struct {
	workflowStateNotifier
}

// NewWorkflowStateApprovalNotifier builds the "approved" notifier.
func NewWorkflowStateApprovalNotifier(deps Deps) WorkflowStateApprovalNotifier {
	return WorkflowStateApprovalNotifier{workflowStateNotifier{emailNotifier{notification: NotificationApproved, deps: deps}}}
}

// ValidRecipients returns the requester unless they approved it themselves.
func (n WorkflowStateApprovalNotifier) ValidRecipients(ctx context.Context, instance any, actor *domain.User) ([]domain.User, error) {
	state, _ := asWorkflowState(instance)
	users, err := n.requester(ctx, state, actor)
	if err != nil {
		return nil, err
	}
	return n.filterRecipients(ctx, users)
}

// WorkflowStateRejectionNotifier tells the requester their workflow was
// rejected, with the reviewer's comment.
type WorkflowStateRejectionNotifier struct {
	workflowStateNotifier
}

// NewWorkflowStateRejectionNotifier builds the "rejected" notifier.
func NewWorkflowStateRejectionNotifier(deps Deps) WorkflowStateRejectionNotifier {
	return WorkflowStateRejectionNotifier{workflowStateNotifier{emailNotifier{notification: NotificationRejected, deps: deps}}}
}

// ValidRecipients returns the requester unless they rejected it themselves.
func (n WorkflowStateRejectionNotifier) ValidRecipients(ctx context.Context, instance any, actor *domain.User) ([]domain.User, error) {
	state, _ := asWorkflowState(instance)
	users, err := n.requester(ctx, state, actor)
	if err != nil {
		return nil, err
	}
	return n.filterRecipients(ctx, users)
}

// Context adds the rejected task, its state and the comment.
func (n WorkflowStateRejectionNotifier) Context(ctx context.Context, instance any, actor *domain.User) (map[string]any, error) {
	data, err := n.workflowStateNotifier.Context(ctx, instance, actor)
	if err != nil {
		return nil, err
	}
	state, _ := asWorkflowState(instance)
	if state.CurrentTaskStateID == nil {
		return nil, fmt.Errorf("workflow state %d has no current task state", state.ID)
	}
	taskState, err := n.deps.Moderation.GetTaskState(ctx, *state.CurrentTaskStateID)
	if err != nil {
		return nil, fmt.Errorf("load task state %d: %w", *state.CurrentTaskStateID, err)
	}
	task, err := n.deps.Moderation.GetTask(ctx, taskState.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load task %d: %w", taskState.TaskID, err)
	}
	data["task"] = task
	data["task_state"] = taskState
	data["comment"] = taskState.Comment
	return data, nil
}

// WorkflowStateSubmissionNotifier tells superusers a page entered
// moderation.
type WorkflowStateSubmissionNotifier struct {
	workflowStateNotifier
}

// NewWorkflowStateSubmissionNotifier builds the workflow "submitted"
// notifier.
func NewWorkflowStateSubmissionNotifier(deps Deps) WorkflowStateSubmissionNotifier {
	return WorkflowStateSubmissionNotifier{workflowStateNotifier{emailNotifier{notification: NotificationSubmitted, deps: deps}}}
}

// ValidRecipients returns superusers, when enabled, other than the actor.
func (n WorkflowStateSubmissionNotifier) ValidRecipients(ctx context.Context, instance any, actor *domain.User) ([]domain.User, error) {
	if !n.deps.Settings.IncludeSuperusers {
		return nil, nil
	}
	users, err := n.deps.Accounts.ListUsers(ctx, domain.UserQuery{Superusers: true})
	if err != nil {
		return nil, fmt.Errorf("list superusers: %w", err)
	}
	return n.filterRecipients(ctx, excludeActor(users, actor))
}

// Context adds the requesting user.
func (n WorkflowStateSubmissionNotifier) Context(ctx context.Context, instance any, actor *domain.User) (map[string]any, error) {
	data, err := n.workflowStateNotifier.Context(ctx, instance, actor)
	if err != nil {
		return nil, err
	}
	state, _ := asWorkflowState(instance)
	var requester domain.User
	if state.RequestedByID != nil {
		if requester, err = n.deps.Accounts.GetUser(ctx, *state.RequestedByID); err != nil {
			return nil, fmt.Errorf("load requester %d: %w", *state.RequestedByID, err)
		}
	}
	data["requested_by"] = requester
	return data, nil
}

// GroupApprovalTaskStateSubmissionNotifier tells the members of a group
// approval task that a page awaits their review.
type GroupApprovalTaskStateSubmissionNotifier struct {
	emailNotifier
}

// NewGroupApprovalTaskStateSubmissionNotifier builds the task "submitted"
// notifier.
func NewGroupApprovalTaskStateSubmissionNotifier(deps Deps) GroupApprovalTaskStateSubmissionNotifier {
	return GroupApprovalTaskStateSubmissionNotifier{emailNotifier{notification: NotificationSubmitted, deps: deps}}
}

// CanHandle accepts task states whose task is a group approval task.
func (n GroupApprovalTaskStateSubmissionNotifier) CanHandle(ctx context.Context, instance any) (bool, error) {
	taskState, ok := asTaskState(instance)
	if !ok {
		return false, nil
	}
	task, err := n.deps.Moderation.GetTask(ctx, taskState.TaskID)
	if err != nil {
		return false, fmt.Errorf("load task %d: %w", taskState.TaskID, err)
	}
	return task.IsGroupApproval(), nil
}

// ValidRecipients returns the task's group members plus superusers, when
// enabled, other than the actor.
func (n GroupApprovalTaskStateSubmissionNotifier) ValidRecipients(ctx context.Context, instance any, actor *domain.User) ([]domain.User, error) {
	taskState, _ := asTaskState(instance)
	task, err := n.deps.Moderation.GetTask(ctx, taskState.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load task %d: %w", taskState.TaskID, err)
	}
	query := domain.UserQuery{Superusers: n.deps.Settings.IncludeSuperusers, GroupIDs: task.GroupIDs}
	users, err := n.deps.Accounts.ListUsers(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list task reviewers: %w", err)
	}
	return n.filterRecipients(ctx, excludeActor(users, actor))
}

// Context adds the page and task.
func (n GroupApprovalTaskStateSubmissionNotifier) Context(ctx context.Context, instance any, _ *domain.User) (map[string]any, error) {
	taskState, _ := asTaskState(instance)
	data := n.baseContext()
	state, err := n.deps.Moderation.GetWorkflowState(ctx, taskState.WorkflowStateID)
	if err != nil {
		return nil, fmt.Errorf("load workflow state %d: %w", taskState.WorkflowStateID, err)
	}
	page, err := n.deps.Pages.GetPage(ctx, state.PageID)
	if err != nil {
		return nil, fmt.Errorf("load page %d: %w", state.PageID, err)
	}
	task, err := n.deps.Moderation.GetTask(ctx, taskState.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load task %d: %w", taskState.TaskID, err)
	}
	data["page"] = page
	data["task"] = task
	data["task_state"] = taskState
	return data, nil
}

// Connect wires the workflow notifiers to the bus signals they handle.
func Connect(bus *signals.Bus, deps Deps, dispatcher Dispatcher) {
	receiver := func(n Notifier) signals.Receiver {
		return func(ctx context.Context, signal domain.Signal) error {
			_, err := dispatcher.Dispatch(ctx, n, signal.Sender, signal.Actor)
			return err
		}
	}
	bus.Connect(domain.SignalWorkflowSubmitted, receiver(NewWorkflowStateSubmissionNotifier(deps)))
	bus.Connect(domain.SignalWorkflowApproved, receiver(NewWorkflowStateApprovalNotifier(deps)))
	bus.Connect(domain.SignalWorkflowRejected, receiver(NewWorkflowStateRejectionNotifier(deps)))
	bus.Connect(domain.SignalTaskSubmitted, receiver(NewGroupApprovalTaskStateSubmissionNotifier(deps)))
}

var (
	_ Notifier = WorkflowStateApprovalNotifier{}
	_ Notifier = WorkflowStateRejectionNotifier{}
	_ Notifier = WorkflowStateSubmissionNotifier{}
	_ Notifier = GroupApprovalTaskStateSubmissionNotifier{}
)
