package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/septentria/land-office/internal/application/port"
	"github.com/septentria/land-office/internal/domain/entity"
	"github.com/septentria/land-office/internal/domain/workflow"
	"github.com/septentria/land-office/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// ItemRepository implements port.ItemRepository
type ItemRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewItemRepository creates a new service line repository
func NewItemRepository(db *sql.DB, logger *zap.Logger) port.ItemRepository {
	return &ItemRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new service line
func (r *ItemRepository) Create(ctx context.Context, item *entity.TransactionItem) error {
	query := `
		INSERT INTO transaction_items (
			transaction_id, item_type_id, treasury_code,
			quantity, unit, operation_value_cents,
			recording_rights_cents, sheets_revision_cents, foreign_recording_cents, discount_cents,
			status, posted_by, posting_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		item.TransactionID,
		item.ItemTypeID,
		item.TreasuryCode,
		item.Quantity,
		item.Unit,
		item.OperationValueCents,
		item.Fee.RecordingRightsCents,
		item.Fee.SheetsRevisionCents,
		item.Fee.ForeignRecordingCents,
		item.Fee.DiscountCents,
		item.Status,
		item.PostedBy,
		timeToDB(item.PostingTime),
	)
	if err != nil {
		r.logger.Error("Failed to create transaction item",
			zap.Int64("transaction_id", item.TransactionID),
			zap.Int64("item_type_id", item.ItemTypeID),
			zap.Error(err))
		return fmt.Errorf("failed to create transaction item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	item.ID = id
	return nil
}

// GetByTransactionID retrieves every line of a transaction, soft-deleted
// lines included
func (r *ItemRepository) GetByTransactionID(ctx context.Context, transactionID int64) ([]*entity.TransactionItem, error) {
	query := `
		SELECT id, transaction_id, item_type_id, treasury_code,
			quantity, unit, operation_value_cents,
			recording_rights_cents, sheets_revision_cents, foreign_recording_cents, discount_cents,
			status, posted_by, posting_time
		FROM transaction_items
		WHERE transaction_id = ?
		ORDER BY id`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, transactionID)
	if err != nil {
		r.logger.Error("Failed to get transaction items",
			zap.Int64("transaction_id", transactionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction items: %w", err)
	}
	defer rows.Close()

	var items []*entity.TransactionItem
	for rows.Next() {
		var item entity.TransactionItem
		var posting string
		if err := rows.Scan(
			&item.ID, &item.TransactionID, &item.ItemTypeID, &item.TreasuryCode,
			&item.Quantity, &item.Unit, &item.OperationValueCents,
			&item.Fee.RecordingRightsCents, &item.Fee.SheetsRevisionCents,
			&item.Fee.ForeignRecordingCents, &item.Fee.DiscountCents,
			&item.Status, &item.PostedBy, &posting,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction item: %w", err)
		}
		t, err := timeFromDB(posting)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %q: %w", posting, err)
		}
		item.PostingTime = t
		items = append(items, &item)
	}
	return items, rows.Err()
}

// SoftDelete marks a line deleted; the row stays for the audit trail
func (r *ItemRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE transaction_items SET status = 'X' WHERE id = ? AND status = 'A'`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete transaction item",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete transaction item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: active item %d", workflow.ErrNotFound, id)
	}
	return nil
}

// Verify interface compliance
var _ port.ItemRepository = (*ItemRepository)(nil)
