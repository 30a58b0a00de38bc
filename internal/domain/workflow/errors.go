package workflow

import "errors"

// Error kinds are sentinels so callers can branch on the kind while the
// wrapped message stays human-readable.
var (
	// ErrInvalidTransition is returned when an operation is not allowed from
	// the current task-chain state (e.g. Take with an undecided next status)
	ErrInvalidTransition = errors.New("invalid workflow transition")

	// ErrPreconditionNotMet is returned when a business precondition fails
	// before any mutation (missing payment, missing document, role checks)
	ErrPreconditionNotMet = errors.New("workflow precondition not met")

	// ErrConcurrencyConflict is returned when the current task read at the
	// start of an operation was closed by a concurrent caller
	ErrConcurrencyConflict = errors.New("workflow task was modified concurrently")

	// ErrNotFound is returned when a transaction, task or payment does not resolve
	ErrNotFound = errors.New("record not found")

	// ErrValidationFailure is returned by tract/property consistency checks
	ErrValidationFailure = errors.New("validation failure")

	// ErrUnsupportedJurisdiction is returned when no policy is registered
	// for the configured jurisdiction name
	ErrUnsupportedJurisdiction = errors.New("unsupported jurisdiction")

	// ErrIntegrityMismatch is returned when a stored record's integrity
	// hash does not match its reloaded content
	ErrIntegrityMismatch = errors.New("record integrity hash mismatch")
)
