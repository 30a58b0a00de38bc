package entity

import "time"

// Fee is the charge breakdown of one service line. Amounts are int64
// cents, never floats.
//
// Invariant: Total = SubTotal - Discount, SubTotal = sum of the named
// charge components.
type Fee struct {
	RecordingRightsCents  int64 `json:"recording_rights_cents"`
	SheetsRevisionCents   int64 `json:"sheets_revision_cents"`
	ForeignRecordingCents int64 `json:"foreign_recording_cents"`
	DiscountCents         int64 `json:"discount_cents"`
}

// SubTotalCents returns the sum of the charge components before discount
func (f Fee) SubTotalCents() int64 {
	return f.RecordingRightsCents + f.SheetsRevisionCents + f.ForeignRecordingCents
}

// TotalCents returns the payable amount after discount
func (f Fee) TotalCents() int64 {
	return f.SubTotalCents() - f.DiscountCents
}

// Add returns the component-wise sum of two fees
func (f Fee) Add(other Fee) Fee {
	return Fee{
		RecordingRightsCents:  f.RecordingRightsCents + other.RecordingRightsCents,
		SheetsRevisionCents:   f.SheetsRevisionCents + other.SheetsRevisionCents,
		ForeignRecordingCents: f.ForeignRecordingCents + other.ForeignRecordingCents,
		DiscountCents:         f.DiscountCents + other.DiscountCents,
	}
}

// TransactionItem is one billable recording-act line attached to a
// transaction. Soft-deleted lines keep their row with status 'X'.
type TransactionItem struct {
	ID                  int64     `json:"id"`
	TransactionID       int64     `json:"transaction_id"`
	ItemTypeID          int64     `json:"item_type_id"`
	TreasuryCode        string    `json:"treasury_code"`
	Quantity            float64   `json:"quantity"`
	Unit                string    `json:"unit"`
	OperationValueCents int64     `json:"operation_value_cents"`
	Fee                 Fee       `json:"fee"`
	Status              string    `json:"status"`
	PostedBy            string    `json:"posted_by"`
	PostingTime         time.Time `json:"posting_time"`
}

// Item status codes, matching the payment ledger's soft-delete convention
const (
	ItemStatusActive  = "A"
	ItemStatusDeleted = "X"
)

// IsActive reports whether the line counts toward totals
func (i *TransactionItem) IsActive() bool {
	return i.Status == ItemStatusActive
}

// TotalFee sums the fees of the active lines
func TotalFee(items []*TransactionItem) Fee {
	var total Fee
	for _, item := range items {
		if item.IsActive() {
			total = total.Add(item.Fee)
		}
	}
	return total
}

// ComplexityIndex derives the transaction's workload weight from its
// active lines. Each line weighs at least one unit regardless of quantity.
func ComplexityIndex(items []*TransactionItem) float64 {
	var index float64
	for _, item := range items {
		if !item.IsActive() {
			continue
		}
		weight := item.Quantity
		if weight < 1 {
			weight = 1
		}
		index += weight
	}
	return index
}
