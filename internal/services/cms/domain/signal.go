package domain

import "context"

// SignalKind names a moderation event.
type SignalKind string

const (
	SignalWorkflowSubmitted SignalKind = "workflow_submitted"
	SignalWorkflowApproved  SignalKind = "workflow_approved"
	SignalWorkflowRejected  SignalKind = "workflow_rejected"
	SignalTaskSubmitted     SignalKind = "task_submitted"
)

// Signal is one event emitted by a use-case. Sender is the record the event
// is about (WorkflowState or TaskState); Actor is the user that caused it.
type Signal struct {
	Kind   SignalKind
	Sender any
	Actor  *User
}

// SignalSender delivers signals to interested receivers.
type SignalSender interface {
	Send(ctx context.Context, signal Signal) error
}

type nopSignals struct{}

func (nopSignals) Send(context.Context, Signal) error { return nil }
