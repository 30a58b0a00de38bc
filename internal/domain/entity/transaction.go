package entity

import (
	"time"

	"github.com/septentria/land-office/internal/domain/workflow"
)

// NoDate is the sentinel meaning "not yet set". The recording office has
// carried forward a max-date convention from its historic records, so
// temporal fields are total and comparable instead of nullable.
var NoDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// IsNoDate reports whether t holds the unset-date sentinel
func IsNoDate(t time.Time) bool {
	return t.Equal(NoDate)
}

// Transaction is one case through the recorder's office, from intake to
// delivery or archival.
//
// Invariants:
//   - Status always equals the CurrentStatus of the newest task in the
//     transaction's task chain; the workflow engine is the only writer.
//   - Code is assigned once, on first save, and never changes.
//   - A transaction is never physically removed; Deleted/Archived are
//     soft terminal statuses.
type Transaction struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	TypeID       int64  `json:"type_id"`
	DocTypeID    int64  `json:"doc_type_id"`
	Jurisdiction string `json:"jurisdiction"`

	RequestedBy string `json:"requested_by"`
	AgencyID    int64  `json:"agency_id,omitempty"`

	PresentationTime time.Time `json:"presentation_time"`
	ExpectedDelivery time.Time `json:"expected_delivery"`
	LastReentryTime  time.Time `json:"last_reentry_time"`
	ClosingTime      time.Time `json:"closing_time"`
	LastDeliveryTime time.Time `json:"last_delivery_time"`

	FeeWaiver       bool            `json:"fee_waiver"`
	ComplexityIndex float64         `json:"complexity_index"`
	Status          workflow.Status `json:"status"`
	ExtData         TransactionExt  `json:"ext_data"`

	PostedBy    string    `json:"posted_by"`
	PostingTime time.Time `json:"posting_time"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TransactionExt holds the schema-versioned extension record persisted as
// JSON alongside the transaction. Typed on purpose: the schema version
// field is what lets old rows round-trip through newer code.
type TransactionExt struct {
	SchemaVersion  int    `json:"schema_version"`
	DeliveryNotes  string `json:"delivery_notes,omitempty"`
	BillingTaxCode string `json:"billing_tax_code,omitempty"`
	ExternalFileNo string `json:"external_file_no,omitempty"`
}

// CurrentExtSchemaVersion is stamped on every newly written extension record
const CurrentExtSchemaVersion = 2

// NewTransaction creates a transaction at the payment stage. Temporal
// fields start at the NoDate sentinel; the code is assigned on first save.
func NewTransaction(typeID, docTypeID int64, jurisdiction, requestedBy, postedBy string, now time.Time) *Transaction {
	return &Transaction{
		TypeID:           typeID,
		DocTypeID:        docTypeID,
		Jurisdiction:     jurisdiction,
		RequestedBy:      requestedBy,
		PresentationTime: NoDate,
		ExpectedDelivery: NoDate,
		LastReentryTime:  NoDate,
		ClosingTime:      NoDate,
		LastDeliveryTime: NoDate,
		Status:           workflow.StatusPayment,
		ExtData:          TransactionExt{SchemaVersion: CurrentExtSchemaVersion},
		PostedBy:         postedBy,
		PostingTime:      now,
	}
}

// IsClosed reports whether the transaction reached a terminal status
func (t *Transaction) IsClosed() bool {
	return t.Status.IsTerminal()
}
