package port

import (
	"context"
	"time"

	"github.com/septentria/land-office/internal/domain/entity"
	"github.com/septentria/land-office/internal/domain/workflow"
)

// TransactionRepository defines persistence operations for Transaction
type TransactionRepository interface {
	Create(ctx context.Context, txn *entity.Transaction) error
	GetByID(ctx context.Context, id int64) (*entity.Transaction, error)
	GetByCode(ctx context.Context, code string) (*entity.Transaction, error)

	// UpdateStatus writes the denormalized status cache. Only the workflow
	// engine calls this; it always pairs the write with a task-chain mutation.
	UpdateStatus(ctx context.Context, id int64, status workflow.Status) error

	SetPresentationTime(ctx context.Context, id int64, t time.Time) error
	SetClosingTime(ctx context.Context, id int64, t time.Time) error
	SetLastDeliveryTime(ctx context.Context, id int64, t time.Time) error
	SetLastReentryTime(ctx context.Context, id int64, t time.Time) error
	SetComplexityIndex(ctx context.Context, id int64, index float64) error

	List(ctx context.Context, status workflow.Status, limit, offset int) ([]*entity.Transaction, error)
}

// TaskRepository defines persistence operations for the workflow task chain
type TaskRepository interface {
	Create(ctx context.Context, task *entity.WorkflowTask) error

	// GetChain returns every task of a transaction ordered by sequence
	GetChain(ctx context.Context, transactionID int64) ([]*entity.WorkflowTask, error)

	// GetCurrent returns the newest open task of a transaction, or
	// workflow.ErrNotFound if the chain has no open head (terminal chains)
	GetCurrent(ctx context.Context, transactionID int64) (*entity.WorkflowTask, error)

	// GetLast returns the newest task regardless of its status
	GetLast(ctx context.Context, transactionID int64) (*entity.WorkflowTask, error)

	// Update persists a still-open task's mutable fields
	Update(ctx context.Context, task *entity.WorkflowTask) error

	// CloseTask persists a close guarded on the row still being open;
	// returns workflow.ErrConcurrencyConflict when a concurrent caller
	// closed it first
	CloseTask(ctx context.Context, task *entity.WorkflowTask) error
}

// PaymentRepository defines persistence operations for the payment ledger
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	GetByTransactionID(ctx context.Context, transactionID int64) ([]*entity.Payment, error)
	CountActive(ctx context.Context, transactionID int64) (int, error)

	CreateOrder(ctx context.Context, order *entity.PaymentOrder) error
	GetOrder(ctx context.Context, transactionID int64) (*entity.PaymentOrder, error)
	CancelOrder(ctx context.Context, transactionID int64) error
}

// ItemRepository defines persistence operations for transaction service lines
type ItemRepository interface {
	Create(ctx context.Context, item *entity.TransactionItem) error
	GetByTransactionID(ctx context.Context, transactionID int64) ([]*entity.TransactionItem, error)
	SoftDelete(ctx context.Context, id int64) error
}

// TransactionManager runs a function inside one database transaction.
// Every workflow engine operation is wrapped in exactly one of these so
// the task-chain and status writes land atomically.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
