package entity

import (
	"time"

	"github.com/septentria/land-office/internal/domain/workflow"
)

// WorkflowTask is one interval of a transaction's life between two status
// changes: the append-only audit unit. Tasks are keyed by transaction id
// plus sequence number; "current" is the newest row whose status is still
// open. A task mutates only while open; once closed it is immutable.
type WorkflowTask struct {
	ID            int64 `json:"id"`
	TransactionID int64 `json:"transaction_id"`
	Sequence      int   `json:"sequence"`

	CurrentStatus workflow.Status `json:"current_status"`
	// NextStatus is the intended status once this task closes;
	// StatusEndPoint while no routing decision has been made.
	NextStatus workflow.Status `json:"next_status"`

	AssignedBy  string `json:"assigned_by"`
	Responsible string `json:"responsible"`
	NextContact string `json:"next_contact"`

	CheckInTime    time.Time `json:"check_in_time"`
	EndProcessTime time.Time `json:"end_process_time"`
	CheckOutTime   time.Time `json:"check_out_time"`

	Notes  string              `json:"notes"`
	Status workflow.TaskStatus `json:"status"`

	// IntegrityHash is the RIHC tamper-evidence checksum over the task's
	// canonical content, recomputed on every write.
	IntegrityHash string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTask creates an open task starting a new status interval
func NewTask(transactionID int64, sequence int, current workflow.Status, responsible, assignedBy, notes string, now time.Time) *WorkflowTask {
	return &WorkflowTask{
		TransactionID:  transactionID,
		Sequence:       sequence,
		CurrentStatus:  current,
		NextStatus:     workflow.StatusEndPoint,
		AssignedBy:     assignedBy,
		Responsible:    responsible,
		CheckInTime:    now,
		EndProcessTime: NoDate,
		CheckOutTime:   NoDate,
		Notes:          notes,
		Status:         workflow.TaskStatusPending,
	}
}

// IsOpen reports whether the task is the chain's active head
func (t *WorkflowTask) IsOpen() bool { return t.Status.IsOpen() }

// Close seals the task with its outgoing status. After this the row only
// ever receives reads.
func (t *WorkflowTask) Close(next workflow.Status, now time.Time) {
	t.NextStatus = next
	if IsNoDate(t.EndProcessTime) {
		t.EndProcessTime = now
	}
	t.CheckOutTime = now
	t.Status = workflow.TaskStatusClosed
	t.Stamp()
}

// Reset returns a misrouted open task to the pending state, clearing the
// routing decision and its timestamps
func (t *WorkflowTask) Reset() {
	t.NextStatus = workflow.StatusEndPoint
	t.NextContact = ""
	t.EndProcessTime = NoDate
	t.CheckOutTime = NoDate
	t.Status = workflow.TaskStatusPending
	t.Stamp()
}

// Stamp recomputes the task's integrity hash from its canonical content
func (t *WorkflowTask) Stamp() {
	t.IntegrityHash = t.ContentHash()
}

// ContentHash returns the RIHC checksum over the fields that must stay
// tamper evident once persisted
func (t *WorkflowTask) ContentHash() string {
	return IntegrityHash(
		formatInt(t.TransactionID),
		formatInt(int64(t.Sequence)),
		t.CurrentStatus.String(),
		t.NextStatus.String(),
		t.AssignedBy,
		t.Responsible,
		t.NextContact,
		formatTime(t.CheckInTime),
		formatTime(t.EndProcessTime),
		formatTime(t.CheckOutTime),
		t.Status.String(),
	)
}

// VerifyIntegrity reports whether the stored hash still matches the content
func (t *WorkflowTask) VerifyIntegrity() bool {
	return t.IntegrityHash == t.ContentHash()
}
