package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/septentria/land-office/internal/application/port"
	"github.com/septentria/land-office/internal/domain/entity"
	"github.com/septentria/land-office/internal/domain/workflow"
)

// Logger is the narrow logging surface the engine needs
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Metrics records workflow transition outcomes; implementations live in
// the metrics package
type Metrics interface {
	RecordTransition(operation string, to workflow.Status)
	RecordRejection(operation string)
}

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	txnRepo     port.TransactionRepository
	taskRepo    port.TaskRepository
	paymentRepo port.PaymentRepository
	instruments port.InstrumentGateway
	txManager   port.TransactionManager
	logger      Logger
	metrics     Metrics
	now         func() time.Time

	// serializes in-process callers per transaction id; cross-process
	// races are caught by the guarded task close
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithMetrics sets the transition metrics recorder
func WithMetrics(m Metrics) EngineOption {
	return func(e *engineImpl) {
		e.metrics = m
	}
}

// WithClock overrides the engine's time source (tests)
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	txnRepo port.TransactionRepository,
	taskRepo port.TaskRepository,
	paymentRepo port.PaymentRepository,
	instruments port.InstrumentGateway,
	txManager port.TransactionManager,
	logger Logger,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		txnRepo:     txnRepo,
		taskRepo:    taskRepo,
		paymentRepo: paymentRepo,
		instruments: instruments,
		txManager:   txManager,
		logger:      logger,
		now:         time.Now,
		locks:       make(map[int64]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *engineImpl) lockFor(transactionID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[transactionID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[transactionID] = lock
	}
	return lock
}

// Start creates the chain's first task for a freshly saved transaction
func (e *engineImpl) Start(ctx context.Context, p workflow.Principal, transactionID int64, notes string) error {
	lock := e.lockFor(transactionID)
	lock.Lock()
	defer lock.Unlock()

	txn, err := e.txnRepo.GetByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if txn.Status != workflow.StatusPayment {
		return fmt.Errorf("%w: transaction %s already started its workflow", workflow.ErrInvalidTransition, txn.Code)
	}
	if _, err := e.taskRepo.GetLast(ctx, transactionID); err == nil {
		return fmt.Errorf("%w: transaction %s already has a task chain", workflow.ErrInvalidTransition, txn.Code)
	}

	task := entity.NewTask(transactionID, 1, workflow.StatusPayment, p.UserID, p.UserID, notes, e.now())
	task.Stamp()

	if err := e.taskRepo.Create(ctx, task); err != nil {
		return err
	}

	e.logger.Info("Workflow started", "transaction_id", transactionID, "code", txn.Code)
	e.record("start", workflow.StatusPayment)
	return nil
}

// Receive moves a transaction from Payment into Received. The reception
// event and the routed successor are appended in one atomic write, so the
// chain reads: ... -> [Payment, closed] -> [Received, closed] ->
// [Received, routed OnDelivery].
func (e *engineImpl) Receive(ctx context.Context, p workflow.Principal, transactionID int64, notes string) error {
	lock := e.lockFor(transactionID)
	lock.Lock()
	defer lock.Unlock()

	txn, policy, err := e.loadTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if txn.Status != workflow.StatusPayment {
		e.reject("receive")
		return fmt.Errorf("%w: transaction %s is not awaiting payment", workflow.ErrPreconditionNotMet, txn.Code)
	}

	cc, err := e.changeContext(ctx, txn, policy)
	if err != nil {
		return err
	}
	if err := policy.ValidateStatusChange(workflow.StatusReceived, cc); err != nil {
		e.reject("receive")
		return err
	}

	current, err := e.taskRepo.GetCurrent(ctx, transactionID)
	if err != nil {
		return err
	}

	now := e.now()
	routedTo := policy.NextStatusAfterReceive(txn.TypeID, txn.DocTypeID)

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current.Close(workflow.StatusReceived, now)
		if err := e.taskRepo.CloseTask(txCtx, current); err != nil {
			return err
		}

		// reception event: a zero-length, immediately closed interval
		event := entity.NewTask(transactionID, current.Sequence+1, workflow.StatusReceived, p.UserID, p.UserID, notes, now)
		event.Close(routedTo, now)
		if err := e.taskRepo.Create(txCtx, event); err != nil {
			return err
		}

		// routed successor awaiting pickup in its working queue
		routed := entity.NewTask(transactionID, current.Sequence+2, workflow.StatusReceived, "", p.UserID, notes, now)
		routed.NextStatus = routedTo
		routed.EndProcessTime = now
		routed.Status = workflow.TaskStatusOnDelivery
		routed.Stamp()
		if err := e.taskRepo.Create(txCtx, routed); err != nil {
			return err
		}

		if err := e.txnRepo.SetPresentationTime(txCtx, transactionID, now); err != nil {
			return err
		}
		return e.txnRepo.UpdateStatus(txCtx, transactionID, workflow.StatusReceived)
	})
	if err != nil {
		return err
	}

	e.logger.Info("Transaction received",
		"transaction_id", transactionID, "code", txn.Code, "routed_to", routedTo.String())
	e.record("receive", workflow.StatusReceived)
	return nil
}

// Take picks up a routed task, advancing the transaction to the decided
// next status
func (e *engineImpl) Take(ctx context.Context, p workflow.Principal, transactionID int64, notes string) error {
	lock := e.lockFor(transactionID)
	lock.Lock()
	defer lock.Unlock()

	txn, _, err := e.loadTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	current, err := e.taskRepo.GetCurrent(ctx, transactionID)
	if err != nil {
		return err
	}
	if current.NextStatus == workflow.StatusEndPoint {
		e.reject("take")
		return fmt.Errorf("%w: the task's next status has not been decided", workflow.ErrInvalidTransition)
	}

	now := e.now()
	newStatus := current.NextStatus

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current.Close(newStatus, now)
		if err := e.taskRepo.CloseTask(txCtx, current); err != nil {
			return err
		}

		task := entity.NewTask(transactionID, current.Sequence+1, newStatus, p.UserID, current.Responsible, notes, now)
		task.Stamp()
		if err := e.taskRepo.Create(txCtx, task); err != nil {
			return err
		}

		if newStatus.SetsClosingTime() {
			if err := e.txnRepo.SetClosingTime(txCtx, transactionID, now); err != nil {
				return err
			}
		}
		return e.txnRepo.UpdateStatus(txCtx, transactionID, newStatus)
	})
	if err != nil {
		return err
	}

	e.logger.Info("Task taken",
		"transaction_id", transactionID, "code", txn.Code, "status", newStatus.String(), "responsible", p.UserID)
	e.record("take", newStatus)
	return nil
}

// SetNextStatus proposes the next status on the current task. Terminal
// targets delegate to the closing path.
func (e *engineImpl) SetNextStatus(ctx context.Context, p workflow.Principal, transactionID int64, next workflow.Status, contact, notes string) error {
	if !next.IsValid() {
		return fmt.Errorf("%w: %q is not a workflow status", workflow.ErrInvalidTransition, string(next))
	}

	switch next {
	case workflow.StatusReturned, workflow.StatusDelivered, workflow.StatusArchived:
		return e.close(ctx, p, transactionID, next, notes)
	}

	lock := e.lockFor(transactionID)
	lock.Lock()
	defer lock.Unlock()

	txn, policy, err := e.loadTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	cc, err := e.changeContext(ctx, txn, policy)
	if err != nil {
		return err
	}
	if err := policy.ValidateStatusChange(next, cc); err != nil {
		e.reject("set_next_status")
		return err
	}

	current, err := e.taskRepo.GetCurrent(ctx, transactionID)
	if err != nil {
		return err
	}

	now := e.now()
	current.NextStatus = next
	current.NextContact = contact
	if notes != "" {
		current.Notes = notes
	}
	current.EndProcessTime = now
	current.Status = workflow.TaskStatusOnDelivery
	current.Stamp()

	if err := e.taskRepo.Update(ctx, current); err != nil {
		return err
	}

	e.logger.Info("Next status proposed",
		"transaction_id", transactionID, "code", txn.Code, "next", next.String(), "contact", contact)
	return nil
}

// close terminates the workflow: the current task is sealed, and a final,
// immediately closed task records the terminal status. No open head
// remains afterwards.
func (e *engineImpl) close(ctx context.Context, p workflow.Principal, transactionID int64, status workflow.Status, notes string) error {
	lock := e.lockFor(transactionID)
	lock.Lock()
	defer lock.Unlock()

	txn, policy, err := e.loadTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	cc, err := e.changeContext(ctx, txn, policy)
	if err != nil {
		return err
	}
	if err := policy.ValidateStatusChange(status, cc); err != nil {
		e.reject("close")
		return err
	}

	current, err := e.taskRepo.GetCurrent(ctx, transactionID)
	if err != nil {
		return err
	}

	now := e.now()

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current.Close(status, now)
		if err := e.taskRepo.CloseTask(txCtx, current); err != nil {
			return err
		}

		final := entity.NewTask(transactionID, current.Sequence+1, status, p.UserID, p.UserID, notes, now)
		final.Close(workflow.StatusEndPoint, now)
		if err := e.taskRepo.Create(txCtx, final); err != nil {
			return err
		}

		if err := e.txnRepo.SetLastDeliveryTime(txCtx, transactionID, now); err != nil {
			return err
		}
		return e.txnRepo.UpdateStatus(txCtx, transactionID, status)
	})
	if err != nil {
		return err
	}

	e.logger.Info("Transaction closed",
		"transaction_id", transactionID, "code", txn.Code, "status", status.String())
	e.record("close", status)
	return nil
}

// DoReentry reopens an eligible transaction and routes it back to the
// control desk, mirroring Receive's two-task pattern.
func (e *engineImpl) DoReentry(ctx context.Context, p workflow.Principal, transactionID int64, notes string) error {
	lock := e.lockFor(transactionID)
	lock.Lock()
	defer lock.Unlock()

	txn, _, err := e.loadTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if !workflow.IsReadyForReentry(txn.Status, p) {
		e.reject("reentry")
		return fmt.Errorf("%w: transaction %s in status %s cannot re-enter",
			workflow.ErrPreconditionNotMet, txn.Code, txn.Status.DisplayName())
	}

	last, err := e.taskRepo.GetLast(ctx, transactionID)
	if err != nil {
		return err
	}

	now := e.now()

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// reentry event, immediately closed
		event := entity.NewTask(transactionID, last.Sequence+1, workflow.StatusReentry, p.UserID, p.UserID, notes, now)
		event.Close(workflow.StatusControl, now)
		if err := e.taskRepo.Create(txCtx, event); err != nil {
			return err
		}

		// routed successor awaiting pickup at the control desk
		routed := entity.NewTask(transactionID, last.Sequence+2, workflow.StatusReentry, "", p.UserID, notes, now)
		routed.NextStatus = workflow.StatusControl
		routed.EndProcessTime = now
		routed.Status = workflow.TaskStatusOnDelivery
		routed.Stamp()
		if err := e.taskRepo.Create(txCtx, routed); err != nil {
			return err
		}

		if err := e.txnRepo.SetLastReentryTime(txCtx, transactionID, now); err != nil {
			return err
		}
		if err := e.txnRepo.SetClosingTime(txCtx, transactionID, entity.NoDate); err != nil {
			return err
		}
		return e.txnRepo.UpdateStatus(txCtx, transactionID, workflow.StatusReentry)
	})
	if err != nil {
		return err
	}

	e.logger.Info("Transaction re-entered", "transaction_id", transactionID, "code", txn.Code)
	e.record("reentry", workflow.StatusReentry)
	return nil
}

// ReturnToMe recalls a misrouted task back to the pending state
func (e *engineImpl) ReturnToMe(ctx context.Context, p workflow.Principal, transactionID int64) error {
	lock := e.lockFor(transactionID)
	lock.Lock()
	defer lock.Unlock()

	current, err := e.taskRepo.GetCurrent(ctx, transactionID)
	if err != nil {
		return err
	}
	if current.Status != workflow.TaskStatusOnDelivery {
		e.reject("return_to_me")
		return fmt.Errorf("%w: only routed tasks can be recalled", workflow.ErrInvalidTransition)
	}
	if current.Responsible != "" && current.Responsible != p.UserID {
		e.reject("return_to_me")
		return fmt.Errorf("%w: task is assigned to another user", workflow.ErrPreconditionNotMet)
	}

	current.Reset()
	current.Responsible = p.UserID
	current.Stamp()

	if err := e.taskRepo.Update(ctx, current); err != nil {
		return err
	}

	e.logger.Info("Task recalled", "transaction_id", transactionID, "user", p.UserID)
	return nil
}

// Delete soft-deletes the transaction. The task chain keeps the status it
// recorded, which is what Undelete restores from.
func (e *engineImpl) Delete(ctx context.Context, p workflow.Principal, transactionID int64) error {
	lock := e.lockFor(transactionID)
	lock.Lock()
	defer lock.Unlock()

	txn, _, err := e.loadTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if txn.Status != workflow.StatusPayment {
		e.reject("delete")
		return fmt.Errorf("%w: only transactions at the payment stage can be deleted", workflow.ErrPreconditionNotMet)
	}

	if err := e.txnRepo.UpdateStatus(ctx, transactionID, workflow.StatusDeleted); err != nil {
		return err
	}

	e.logger.Info("Transaction deleted", "transaction_id", transactionID, "code", txn.Code, "user", p.UserID)
	e.record("delete", workflow.StatusDeleted)
	return nil
}

// Undelete restores the transaction status from the current task
func (e *engineImpl) Undelete(ctx context.Context, p workflow.Principal, transactionID int64) error {
	lock := e.lockFor(transactionID)
	lock.Lock()
	defer lock.Unlock()

	txn, _, err := e.loadTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if txn.Status != workflow.StatusDeleted {
		e.reject("undelete")
		return fmt.Errorf("%w: transaction %s is not deleted", workflow.ErrPreconditionNotMet, txn.Code)
	}

	last, err := e.taskRepo.GetLast(ctx, transactionID)
	if err != nil {
		return err
	}
	if last.Status == workflow.TaskStatusClosed {
		e.reject("undelete")
		return fmt.Errorf("%w: the current task is already closed", workflow.ErrInvalidTransition)
	}

	if err := e.txnRepo.UpdateStatus(ctx, transactionID, last.CurrentStatus); err != nil {
		return err
	}

	e.logger.Info("Transaction restored",
		"transaction_id", transactionID, "code", txn.Code, "status", last.CurrentStatus.String())
	e.record("undelete", last.CurrentStatus)
	return nil
}

// Status reports the transaction's status and current task
func (e *engineImpl) Status(ctx context.Context, transactionID int64) (*StatusInfo, error) {
	txn, err := e.txnRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	info := &StatusInfo{
		TransactionID: txn.ID,
		Code:          txn.Code,
		Status:        txn.Status,
		StatusName:    txn.Status.DisplayName(),
	}
	if current, err := e.taskRepo.GetCurrent(ctx, transactionID); err == nil {
		info.CurrentTask = current
	}
	return info, nil
}

// loadTransaction fetches the transaction and resolves its jurisdiction policy
func (e *engineImpl) loadTransaction(ctx context.Context, transactionID int64) (*entity.Transaction, *workflow.Jurisdiction, error) {
	txn, err := e.txnRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, nil, err
	}
	policy, err := workflow.PolicyFor(txn.Jurisdiction)
	if err != nil {
		return nil, nil, err
	}
	return txn, policy, nil
}

// changeContext assembles the precondition snapshot for rule validation
func (e *engineImpl) changeContext(ctx context.Context, txn *entity.Transaction, policy *workflow.Jurisdiction) (workflow.ChangeContext, error) {
	payments, err := e.paymentRepo.CountActive(ctx, txn.ID)
	if err != nil {
		return workflow.ChangeContext{}, err
	}
	hasInstrument, err := e.instruments.HasInstrument(ctx, txn.ID)
	if err != nil {
		return workflow.ChangeContext{}, err
	}
	return workflow.ChangeContext{
		PaymentCount:     payments,
		FeeWaiver:        txn.FeeWaiver,
		IsRecordableCase: policy.IsRecordingDocumentCase(txn.TypeID, txn.DocTypeID),
		HasInstrument:    hasInstrument,
	}, nil
}

func (e *engineImpl) record(operation string, to workflow.Status) {
	if e.metrics != nil {
		e.metrics.RecordTransition(operation, to)
	}
}

func (e *engineImpl) reject(operation string) {
	if e.metrics != nil {
		e.metrics.RecordRejection(operation)
	}
}
