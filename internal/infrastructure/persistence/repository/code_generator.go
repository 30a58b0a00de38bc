package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/septentria/land-office/internal/application/port"
	"github.com/septentria/land-office/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// CodeGenerator implements port.CodeGenerator with a database-backed
// counter. Codes look like "ZS-00417-3F9A": office prefix, zero-padded
// sequence, random suffix so codes cannot be guessed from the count.
type CodeGenerator struct {
	db     *sql.DB
	prefix string
	logger *zap.Logger
}

// NewCodeGenerator creates a generator issuing codes under the given
// office prefix
func NewCodeGenerator(db *sql.DB, prefix string, logger *zap.Logger) port.CodeGenerator {
	return &CodeGenerator{
		db:     db,
		prefix: strings.ToUpper(prefix),
		logger: logger,
	}
}

// NextTransactionCode reserves and returns the next transaction code
func (g *CodeGenerator) NextTransactionCode(ctx context.Context) (string, error) {
	exec := sqlite.ExecutorFrom(ctx, g.db)

	query := `
		INSERT INTO code_sequences (name, value) VALUES ('transaction', 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
		RETURNING value`

	var seq int64
	if err := exec.QueryRowContext(ctx, query).Scan(&seq); err != nil {
		g.logger.Error("Failed to advance transaction code sequence", zap.Error(err))
		return "", fmt.Errorf("failed to advance code sequence: %w", err)
	}

	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("%s-%05d-%s", g.prefix, seq, suffix), nil
}

// Verify interface compliance
var _ port.CodeGenerator = (*CodeGenerator)(nil)
