package entity

import "time"

// Payment is one treasury receipt registered against a transaction.
// ReceiptTotalCents is never negative; fee-waiver transactions may carry
// zero payments and still proceed through reception.
type Payment struct {
	ID                int64     `json:"id"`
	TransactionID     int64     `json:"transaction_id"`
	ReceiptNo         string    `json:"receipt_no"`
	ReceiptTotalCents int64     `json:"receipt_total_cents"`
	PostedBy          string    `json:"posted_by"`
	PostingTime       time.Time `json:"posting_time"`
	Status            string    `json:"status"`
	IntegrityHash     string    `json:"-"`
}

// Payment status codes. Soft-delete only, the ledger keeps every row.
const (
	PaymentStatusActive  = "A"
	PaymentStatusDeleted = "X"
)

// Stamp recomputes the payment's integrity hash
func (p *Payment) Stamp() {
	p.IntegrityHash = p.ContentHash()
}

// ContentHash returns the RIHC checksum over the payment's canonical content
func (p *Payment) ContentHash() string {
	return IntegrityHash(
		formatInt(p.TransactionID),
		p.ReceiptNo,
		formatInt(p.ReceiptTotalCents),
		p.PostedBy,
		formatTime(p.PostingTime),
		p.Status,
	)
}

// VerifyIntegrity reports whether the stored hash still matches the content
func (p *Payment) VerifyIntegrity() bool {
	return p.IntegrityHash == p.ContentHash()
}

// PaymentOrder is the treasury payment slip issued for a transaction so
// the requester can pay at the bank before reception.
type PaymentOrder struct {
	ID            int64     `json:"id"`
	TransactionID int64     `json:"transaction_id"`
	RouteNumber   string    `json:"route_number"`
	TotalCents    int64     `json:"total_cents"`
	IssueTime     time.Time `json:"issue_time"`
	DueDate       time.Time `json:"due_date"`
	Status        string    `json:"status"`
}
