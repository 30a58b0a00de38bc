package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/septentria/land-office/internal/application/port"
	"github.com/septentria/land-office/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// InstrumentRepository implements port.InstrumentGateway over the
// instruments and certificates tables. The workflow core only reads
// presence flags; instrument content management lives elsewhere.
type InstrumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInstrumentRepository creates a new instrument gateway
func NewInstrumentRepository(db *sql.DB, logger *zap.Logger) port.InstrumentGateway {
	return &InstrumentRepository{
		db:     db,
		logger: logger,
	}
}

// HasInstrument reports whether a recording instrument is attached
func (r *InstrumentRepository) HasInstrument(ctx context.Context, transactionID int64) (bool, error) {
	return r.instrumentFlag(ctx, transactionID, `SELECT COUNT(*) FROM instruments WHERE transaction_id = ?`)
}

// IsInstrumentClosed reports whether the attached instrument was sealed
func (r *InstrumentRepository) IsInstrumentClosed(ctx context.Context, transactionID int64) (bool, error) {
	return r.instrumentFlag(ctx, transactionID,
		`SELECT COUNT(*) FROM instruments WHERE transaction_id = ? AND status = 'CLOSED'`)
}

// IsInstrumentHistoric reports whether the attached instrument belongs to
// the historic (pre-digital) registry
func (r *InstrumentRepository) IsInstrumentHistoric(ctx context.Context, transactionID int64) (bool, error) {
	return r.instrumentFlag(ctx, transactionID,
		`SELECT COUNT(*) FROM instruments WHERE transaction_id = ? AND status = 'HISTORIC'`)
}

// IssuedCertificateCount counts the certificates issued under the transaction
func (r *InstrumentRepository) IssuedCertificateCount(ctx context.Context, transactionID int64) (int, error) {
	query := `SELECT COUNT(*) FROM certificates WHERE transaction_id = ? AND status = 'ISSUED'`

	var count int
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, transactionID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count certificates",
			zap.Int64("transaction_id", transactionID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to count certificates: %w", err)
	}
	return count, nil
}

func (r *InstrumentRepository) instrumentFlag(ctx context.Context, transactionID int64, query string) (bool, error) {
	var count int
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, transactionID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to query instrument flag",
			zap.Int64("transaction_id", transactionID),
			zap.Error(err))
		return false, fmt.Errorf("failed to query instruments: %w", err)
	}
	return count > 0, nil
}

// Verify interface compliance
var _ port.InstrumentGateway = (*InstrumentRepository)(nil)
