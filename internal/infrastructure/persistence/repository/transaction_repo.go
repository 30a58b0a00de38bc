package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/septentria/land-office/internal/application/port"
	"github.com/septentria/land-office/internal/domain/entity"
	"github.com/septentria/land-office/internal/domain/workflow"
	"github.com/septentria/land-office/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// Temporal columns are stored as RFC3339 UTC strings. The NoDate sentinel
// round-trips like any other timestamp, so no column is nullable.
func timeToDB(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func timeFromDB(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// TransactionRepository implements port.TransactionRepository
type TransactionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB, logger *zap.Logger) port.TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

const transactionColumns = `
	id, code, type_id, doc_type_id, jurisdiction,
	requested_by, agency_id,
	presentation_time, expected_delivery, last_reentry_time, closing_time, last_delivery_time,
	fee_waiver, complexity_index, status, ext_data,
	posted_by, posting_time, created_at, updated_at`

// Create inserts a new transaction
func (r *TransactionRepository) Create(ctx context.Context, txn *entity.Transaction) error {
	query := `
		INSERT INTO transactions (
			code, type_id, doc_type_id, jurisdiction,
			requested_by, agency_id,
			presentation_time, expected_delivery, last_reentry_time, closing_time, last_delivery_time,
			fee_waiver, complexity_index, status, ext_data,
			posted_by, posting_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	extData, err := json.Marshal(txn.ExtData)
	if err != nil {
		return fmt.Errorf("failed to encode extension data: %w", err)
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		txn.Code,
		txn.TypeID,
		txn.DocTypeID,
		txn.Jurisdiction,
		txn.RequestedBy,
		txn.AgencyID,
		timeToDB(txn.PresentationTime),
		timeToDB(txn.ExpectedDelivery),
		timeToDB(txn.LastReentryTime),
		timeToDB(txn.ClosingTime),
		timeToDB(txn.LastDeliveryTime),
		txn.FeeWaiver,
		txn.ComplexityIndex,
		txn.Status.String(),
		string(extData),
		txn.PostedBy,
		timeToDB(txn.PostingTime),
	)
	if err != nil {
		r.logger.Error("Failed to create transaction",
			zap.String("code", txn.Code),
			zap.Error(err))
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	txn.ID = id
	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*entity.Transaction, error) {
	query := `SELECT` + transactionColumns + ` FROM transactions WHERE id = ?`

	txn, err := r.scanTransaction(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: transaction %d", workflow.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get transaction by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// GetByCode retrieves a transaction by its office code
func (r *TransactionRepository) GetByCode(ctx context.Context, code string) (*entity.Transaction, error) {
	query := `SELECT` + transactionColumns + ` FROM transactions WHERE code = ?`

	txn, err := r.scanTransaction(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, code))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: transaction %s", workflow.ErrNotFound, code)
	}
	if err != nil {
		r.logger.Error("Failed to get transaction by code",
			zap.String("code", code),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// UpdateStatus writes the denormalized status cache
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, status workflow.Status) error {
	query := `UPDATE transactions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, status.String(), id)
	if err != nil {
		r.logger.Error("Failed to update transaction status",
			zap.Int64("id", id),
			zap.String("status", status.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return r.requireRow(result, id)
}

// SetPresentationTime stamps the reception timestamp
func (r *TransactionRepository) SetPresentationTime(ctx context.Context, id int64, t time.Time) error {
	return r.setTimeColumn(ctx, id, "presentation_time", t)
}

// SetClosingTime stamps (or resets) the closing-stage timestamp
func (r *TransactionRepository) SetClosingTime(ctx context.Context, id int64, t time.Time) error {
	return r.setTimeColumn(ctx, id, "closing_time", t)
}

// SetLastDeliveryTime stamps the last delivery or return timestamp
func (r *TransactionRepository) SetLastDeliveryTime(ctx context.Context, id int64, t time.Time) error {
	return r.setTimeColumn(ctx, id, "last_delivery_time", t)
}

// SetLastReentryTime stamps the last reentry timestamp
func (r *TransactionRepository) SetLastReentryTime(ctx context.Context, id int64, t time.Time) error {
	return r.setTimeColumn(ctx, id, "last_reentry_time", t)
}

// SetComplexityIndex writes the recomputed workload weight
func (r *TransactionRepository) SetComplexityIndex(ctx context.Context, id int64, index float64) error {
	query := `UPDATE transactions SET complexity_index = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, index, id)
	if err != nil {
		r.logger.Error("Failed to update complexity index",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to update complexity index: %w", err)
	}
	return r.requireRow(result, id)
}

// List retrieves transactions by status, newest first
func (r *TransactionRepository) List(ctx context.Context, status workflow.Status, limit, offset int) ([]*entity.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions
		WHERE status = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, status.String(), limit, offset)
	if err != nil {
		r.logger.Error("Failed to list transactions",
			zap.String("status", status.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*entity.Transaction
	for rows.Next() {
		txn, err := r.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func (r *TransactionRepository) setTimeColumn(ctx context.Context, id int64, column string, t time.Time) error {
	query := fmt.Sprintf(`UPDATE transactions SET %s = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, column)

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, timeToDB(t), id)
	if err != nil {
		r.logger.Error("Failed to update transaction timestamp",
			zap.Int64("id", id),
			zap.String("column", column),
			zap.Error(err))
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	return r.requireRow(result, id)
}

func (r *TransactionRepository) requireRow(result sql.Result, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: transaction %d", workflow.ErrNotFound, id)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for the shared scan path
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *TransactionRepository) scanTransaction(row scanner) (*entity.Transaction, error) {
	var txn entity.Transaction
	var status, extData string
	var presentation, expected, reentry, closing, delivery, posting string

	err := row.Scan(
		&txn.ID,
		&txn.Code,
		&txn.TypeID,
		&txn.DocTypeID,
		&txn.Jurisdiction,
		&txn.RequestedBy,
		&txn.AgencyID,
		&presentation,
		&expected,
		&reentry,
		&closing,
		&delivery,
		&txn.FeeWaiver,
		&txn.ComplexityIndex,
		&status,
		&extData,
		&txn.PostedBy,
		&posting,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Status = workflow.Status(status)
	if err := json.Unmarshal([]byte(extData), &txn.ExtData); err != nil {
		return nil, fmt.Errorf("failed to decode extension data: %w", err)
	}

	for _, field := range []struct {
		dst *time.Time
		src string
	}{
		{&txn.PresentationTime, presentation},
		{&txn.ExpectedDelivery, expected},
		{&txn.LastReentryTime, reentry},
		{&txn.ClosingTime, closing},
		{&txn.LastDeliveryTime, delivery},
		{&txn.PostingTime, posting},
	} {
		t, err := timeFromDB(field.src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %q: %w", field.src, err)
		}
		*field.dst = t
	}

	return &txn, nil
}

// Verify interface compliance
var _ port.TransactionRepository = (*TransactionRepository)(nil)
