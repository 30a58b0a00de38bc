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

// PaymentRepository implements port.PaymentRepository
type PaymentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sql.DB, logger *zap.Logger) port.PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: logger,
	}
}

// Create registers a new receipt row
func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (
			transaction_id, receipt_no, receipt_total_cents,
			posted_by, posting_time, status, integrity_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		payment.TransactionID,
		payment.ReceiptNo,
		payment.ReceiptTotalCents,
		payment.PostedBy,
		timeToDB(payment.PostingTime),
		payment.Status,
		payment.IntegrityHash,
	)
	if err != nil {
		r.logger.Error("Failed to create payment",
			zap.Int64("transaction_id", payment.TransactionID),
			zap.String("receipt_no", payment.ReceiptNo),
			zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	payment.ID = id
	return nil
}

// GetByTransactionID retrieves the full payment ledger of a transaction
func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID int64) ([]*entity.Payment, error) {
	query := `
		SELECT id, transaction_id, receipt_no, receipt_total_cents,
			posted_by, posting_time, status, integrity_hash
		FROM payments
		WHERE transaction_id = ?
		ORDER BY id`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, transactionID)
	if err != nil {
		r.logger.Error("Failed to get payments",
			zap.Int64("transaction_id", transactionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		var p entity.Payment
		var posting string
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.ReceiptNo, &p.ReceiptTotalCents,
			&p.PostedBy, &posting, &p.Status, &p.IntegrityHash); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		t, err := timeFromDB(posting)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %q: %w", posting, err)
		}
		p.PostingTime = t
		if !p.VerifyIntegrity() {
			return nil, fmt.Errorf("%w: payment %d", workflow.ErrIntegrityMismatch, p.ID)
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}

// CountActive counts the transaction's non-voided receipts
func (r *PaymentRepository) CountActive(ctx context.Context, transactionID int64) (int, error) {
	query := `SELECT COUNT(*) FROM payments WHERE transaction_id = ? AND status = 'A'`

	var count int
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, transactionID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count payments",
			zap.Int64("transaction_id", transactionID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return count, nil
}

// CreateOrder issues a payment order row
func (r *PaymentRepository) CreateOrder(ctx context.Context, order *entity.PaymentOrder) error {
	query := `
		INSERT INTO payment_orders (
			transaction_id, route_number, total_cents,
			issue_time, due_date, status
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		order.TransactionID,
		order.RouteNumber,
		order.TotalCents,
		timeToDB(order.IssueTime),
		timeToDB(order.DueDate),
		order.Status,
	)
	if err != nil {
		r.logger.Error("Failed to create payment order",
			zap.Int64("transaction_id", order.TransactionID),
			zap.Error(err))
		return fmt.Errorf("failed to create payment order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	order.ID = id
	return nil
}

// GetOrder retrieves the transaction's active payment order
func (r *PaymentRepository) GetOrder(ctx context.Context, transactionID int64) (*entity.PaymentOrder, error) {
	query := `
		SELECT id, transaction_id, route_number, total_cents,
			issue_time, due_date, status
		FROM payment_orders
		WHERE transaction_id = ? AND status = 'A'
		ORDER BY id DESC
		LIMIT 1`

	var order entity.PaymentOrder
	var issue, due string
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, transactionID).Scan(
		&order.ID, &order.TransactionID, &order.RouteNumber, &order.TotalCents,
		&issue, &due, &order.Status,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no payment order for transaction %d", workflow.ErrNotFound, transactionID)
	}
	if err != nil {
		r.logger.Error("Failed to get payment order",
			zap.Int64("transaction_id", transactionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment order: %w", err)
	}

	var parsed [2]time.Time
	for i, s := range []string{issue, due} {
		t, err := timeFromDB(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
		}
		parsed[i] = t
	}
	order.IssueTime, order.DueDate = parsed[0], parsed[1]

	return &order, nil
}

// CancelOrder voids the transaction's active payment order
func (r *PaymentRepository) CancelOrder(ctx context.Context, transactionID int64) error {
	query := `UPDATE payment_orders SET status = 'X' WHERE transaction_id = ? AND status = 'A'`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, transactionID)
	if err != nil {
		r.logger.Error("Failed to cancel payment order",
			zap.Int64("transaction_id", transactionID),
			zap.Error(err))
		return fmt.Errorf("failed to cancel payment order: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: no active payment order for transaction %d", workflow.ErrNotFound, transactionID)
	}
	return nil
}

// Verify interface compliance
var _ port.PaymentRepository = (*PaymentRepository)(nil)
