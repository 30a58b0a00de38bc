package port

import "context"

// CodeGenerator assigns the human-readable transaction code on first save.
// Numbering is an external office-wide service; the core only consumes it.
type CodeGenerator interface {
	NextTransactionCode(ctx context.Context) (string, error)
}

// InstrumentGateway exposes document and certificate presence for a
// transaction. The workflow core reads these flags for routing and
// control-data decisions; it never mutates documents or certificates.
type InstrumentGateway interface {
	HasInstrument(ctx context.Context, transactionID int64) (bool, error)
	IsInstrumentClosed(ctx context.Context, transactionID int64) (bool, error)
	IsInstrumentHistoric(ctx context.Context, transactionID int64) (bool, error)
	IssuedCertificateCount(ctx context.Context, transactionID int64) (int, error)
}
