package workflow

import (
	"context"

	"github.com/septentria/land-office/internal/domain/entity"
	"github.com/septentria/land-office/internal/domain/workflow"
)

// Engine drives a transaction's status forward through its task chain.
// Every status change is backed by exactly one new, persisted task row;
// the engine is the only writer of the transaction's denormalized status.
type Engine interface {
	// Start creates the chain's first task for a freshly saved transaction
	Start(ctx context.Context, p workflow.Principal, transactionID int64, notes string) error

	// Receive moves a paid (or fee-waived) transaction from Payment into
	// Received and auto-routes it to its working queue
	Receive(ctx context.Context, p workflow.Principal, transactionID int64, notes string) error

	// Take picks up a routed task, advancing the transaction to the
	// task's decided next status
	Take(ctx context.Context, p workflow.Principal, transactionID int64, notes string) error

	// SetNextStatus proposes the next status on the current task without
	// advancing; terminal targets (Returned/Delivered/Archived) close the
	// transaction immediately instead
	SetNextStatus(ctx context.Context, p workflow.Principal, transactionID int64, next workflow.Status, contact, notes string) error

	// DoReentry reopens a returned (or, with supervisor role, delivered or
	// archived) transaction and routes it back to the control desk
	DoReentry(ctx context.Context, p workflow.Principal, transactionID int64, notes string) error

	// ReturnToMe recalls a misrouted task back to the pending state
	ReturnToMe(ctx context.Context, p workflow.Principal, transactionID int64) error

	// Delete soft-deletes the transaction; the task chain is left intact
	// so Undelete can restore the status it recorded
	Delete(ctx context.Context, p workflow.Principal, transactionID int64) error

	// Undelete restores the transaction status from the current task
	Undelete(ctx context.Context, p workflow.Principal, transactionID int64) error

	// Status reports the transaction's status and current task
	Status(ctx context.Context, transactionID int64) (*StatusInfo, error)
}

// StatusInfo is the read projection returned by Status
type StatusInfo struct {
	TransactionID int64                `json:"transaction_id"`
	Code          string               `json:"code"`
	Status        workflow.Status      `json:"status"`
	StatusName    string               `json:"status_name"`
	CurrentTask   *entity.WorkflowTask `json:"current_task,omitempty"`
}
