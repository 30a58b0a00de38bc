package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/septentria/land-office/internal/application/port"
	"github.com/septentria/land-office/internal/domain/entity"
	"github.com/septentria/land-office/internal/domain/workflow"
	"github.com/septentria/land-office/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// TaskRepository implements port.TaskRepository over the append-only
// workflow_tasks chain
type TaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new workflow task repository
func NewTaskRepository(db *sql.DB, logger *zap.Logger) port.TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

const taskColumns = `
	id, transaction_id, sequence,
	current_status, next_status,
	assigned_by, responsible, next_contact,
	check_in_time, end_process_time, check_out_time,
	notes, status, integrity_hash,
	created_at, updated_at`

// openTaskStatuses guards writes so only the chain's open head mutates
const openTaskStatuses = `('PENDING', 'ON_DELIVERY')`

// Create appends a new task row to the chain
func (r *TaskRepository) Create(ctx context.Context, task *entity.WorkflowTask) error {
	query := `
		INSERT INTO workflow_tasks (
			transaction_id, sequence,
			current_status, next_status,
			assigned_by, responsible, next_contact,
			check_in_time, end_process_time, check_out_time,
			notes, status, integrity_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		task.TransactionID,
		task.Sequence,
		task.CurrentStatus.String(),
		task.NextStatus.String(),
		task.AssignedBy,
		task.Responsible,
		task.NextContact,
		timeToDB(task.CheckInTime),
		timeToDB(task.EndProcessTime),
		timeToDB(task.CheckOutTime),
		task.Notes,
		task.Status.String(),
		task.IntegrityHash,
	)
	if err != nil {
		r.logger.Error("Failed to create workflow task",
			zap.Int64("transaction_id", task.TransactionID),
			zap.Int("sequence", task.Sequence),
			zap.Error(err))
		return fmt.Errorf("failed to create workflow task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	task.ID = id
	return nil
}

// GetChain retrieves every task of a transaction ordered by sequence
func (r *TaskRepository) GetChain(ctx context.Context, transactionID int64) ([]*entity.WorkflowTask, error) {
	query := `SELECT` + taskColumns + `
		FROM workflow_tasks
		WHERE transaction_id = ?
		ORDER BY sequence`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, transactionID)
	if err != nil {
		r.logger.Error("Failed to get task chain",
			zap.Int64("transaction_id", transactionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get task chain: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.WorkflowTask
	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// GetCurrent retrieves the newest open task of a transaction
func (r *TaskRepository) GetCurrent(ctx context.Context, transactionID int64) (*entity.WorkflowTask, error) {
	query := `SELECT` + taskColumns + `
		FROM workflow_tasks
		WHERE transaction_id = ? AND status IN ` + openTaskStatuses + `
		ORDER BY sequence DESC
		LIMIT 1`

	task, err := r.scanTask(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, transactionID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no open task for transaction %d", workflow.ErrNotFound, transactionID)
	}
	if err != nil {
		r.logger.Error("Failed to get current task",
			zap.Int64("transaction_id", transactionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get current task: %w", err)
	}

	return task, nil
}

// GetLast retrieves the newest task regardless of its status
func (r *TaskRepository) GetLast(ctx context.Context, transactionID int64) (*entity.WorkflowTask, error) {
	query := `SELECT` + taskColumns + `
		FROM workflow_tasks
		WHERE transaction_id = ?
		ORDER BY sequence DESC
		LIMIT 1`

	task, err := r.scanTask(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, transactionID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no tasks for transaction %d", workflow.ErrNotFound, transactionID)
	}
	if err != nil {
		r.logger.Error("Failed to get last task",
			zap.Int64("transaction_id", transactionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get last task: %w", err)
	}

	return task, nil
}

// Update persists a still-open task's mutable fields. Closed rows never
// match the guard, so a raced update surfaces as a conflict.
func (r *TaskRepository) Update(ctx context.Context, task *entity.WorkflowTask) error {
	return r.writeGuarded(ctx, task, "update")
}

// CloseTask persists a close guarded on the row still being open
func (r *TaskRepository) CloseTask(ctx context.Context, task *entity.WorkflowTask) error {
	return r.writeGuarded(ctx, task, "close")
}

func (r *TaskRepository) writeGuarded(ctx context.Context, task *entity.WorkflowTask, op string) error {
	query := `
		UPDATE workflow_tasks
		SET next_status = ?, responsible = ?, next_contact = ?,
			end_process_time = ?, check_out_time = ?,
			notes = ?, status = ?, integrity_hash = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN ` + openTaskStatuses

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		task.NextStatus.String(),
		task.Responsible,
		task.NextContact,
		timeToDB(task.EndProcessTime),
		timeToDB(task.CheckOutTime),
		task.Notes,
		task.Status.String(),
		task.IntegrityHash,
		task.ID,
	)
	if err != nil {
		r.logger.Error("Failed to write workflow task",
			zap.Int64("id", task.ID),
			zap.String("op", op),
			zap.Error(err))
		return fmt.Errorf("failed to %s workflow task: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: task %d was already closed", workflow.ErrConcurrencyConflict, task.ID)
	}
	return nil
}

func (r *TaskRepository) scanTask(row scanner) (*entity.WorkflowTask, error) {
	var task entity.WorkflowTask
	var currentStatus, nextStatus, taskStatus string
	var checkIn, endProcess, checkOut string

	err := row.Scan(
		&task.ID,
		&task.TransactionID,
		&task.Sequence,
		&currentStatus,
		&nextStatus,
		&task.AssignedBy,
		&task.Responsible,
		&task.NextContact,
		&checkIn,
		&endProcess,
		&checkOut,
		&task.Notes,
		&taskStatus,
		&task.IntegrityHash,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.CurrentStatus = workflow.Status(currentStatus)
	task.NextStatus = workflow.Status(nextStatus)
	task.Status = workflow.TaskStatus(taskStatus)

	for _, field := range []struct {
		dst *time.Time
		src string
	}{
		{&task.CheckInTime, checkIn},
		{&task.EndProcessTime, endProcess},
		{&task.CheckOutTime, checkOut},
	} {
		t, err := timeFromDB(field.src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %q: %w", field.src, err)
		}
		*field.dst = t
	}

	if !task.VerifyIntegrity() {
		return nil, fmt.Errorf("%w: task %d", workflow.ErrIntegrityMismatch, task.ID)
	}

	return &task, nil
}

// Verify interface compliance
var _ port.TaskRepository = (*TaskRepository)(nil)
