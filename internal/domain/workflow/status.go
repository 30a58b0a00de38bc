package workflow

// Status represents a transaction status in the recording-office lifecycle
type Status string

const (
	StatusPayment       Status = "PAYMENT"
	StatusReceived      Status = "RECEIVED"
	StatusReentry       Status = "REENTRY"
	StatusControl       Status = "CONTROL"
	StatusQualification Status = "QUALIFICATION"
	StatusRecording     Status = "RECORDING"
	StatusElaboration   Status = "ELABORATION"
	StatusRevision      Status = "REVISION"
	StatusJuridic       Status = "JURIDIC"
	StatusOnSign        Status = "ON_SIGN"
	StatusSafeguard     Status = "SAFEGUARD"
	StatusToDeliver     Status = "TO_DELIVER"
	StatusDelivered     Status = "DELIVERED"
	StatusToReturn      Status = "TO_RETURN"
	StatusReturned      Status = "RETURNED"
	StatusDeleted       Status = "DELETED"
	StatusArchived      Status = "ARCHIVED"

	// StatusUndefined and StatusEndPoint are sentinels: Undefined marks an
	// unresolved value, EndPoint marks a task whose next status has not
	// been decided yet. Neither is a real lifecycle status.
	StatusUndefined Status = "UNDEFINED"
	StatusEndPoint  Status = "END_POINT"
)

var validStatuses = map[Status]bool{
	StatusPayment:       true,
	StatusReceived:      true,
	StatusReentry:       true,
	StatusControl:       true,
	StatusQualification: true,
	StatusRecording:     true,
	StatusElaboration:   true,
	StatusRevision:      true,
	StatusJuridic:       true,
	StatusOnSign:        true,
	StatusSafeguard:     true,
	StatusToDeliver:     true,
	StatusDelivered:     true,
	StatusToReturn:      true,
	StatusReturned:      true,
	StatusDeleted:       true,
	StatusArchived:      true,
}

var terminalStatuses = map[Status]bool{
	StatusDelivered: true,
	StatusReturned:  true,
	StatusDeleted:   true,
	StatusArchived:  true,
}

// closingStatuses set the transaction's closing time when reached via Take
var closingStatuses = map[Status]bool{
	StatusToDeliver: true,
	StatusToReturn:  true,
	StatusArchived:  true,
}

var statusNames = map[Status]string{
	StatusPayment:       "Payment",
	StatusReceived:      "Received",
	StatusReentry:       "Reentry",
	StatusControl:       "Control desk",
	StatusQualification: "Qualification",
	StatusRecording:     "Recording",
	StatusElaboration:   "Elaboration",
	StatusRevision:      "Revision",
	StatusJuridic:       "Juridic revision",
	StatusOnSign:        "On sign",
	StatusSafeguard:     "Digitalization and safeguard",
	StatusToDeliver:     "To deliver",
	StatusDelivered:     "Delivered",
	StatusToReturn:      "To return",
	StatusReturned:      "Returned",
	StatusDeleted:       "Deleted",
	StatusArchived:      "Archived",
	StatusUndefined:     "Undefined",
	StatusEndPoint:      "Not yet determined",
}

// IsValid returns true if the status is a real lifecycle status (sentinels excluded)
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if no further transitions are allowed from the status
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// SetsClosingTime returns true if taking a task into this status closes the transaction
func (s Status) SetsClosingTime() bool {
	return closingStatuses[s]
}

// String returns the string code of the status
func (s Status) String() string {
	return string(s)
}

// DisplayName returns the human-readable name of the status
func (s Status) DisplayName() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return string(s)
}

// TaskStatus represents the state of a single workflow task record
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusOnDelivery TaskStatus = "ON_DELIVERY"
	TaskStatusClosed     TaskStatus = "CLOSED"
	TaskStatusDeleted    TaskStatus = "DELETED"
	TaskStatusHistoric   TaskStatus = "HISTORIC"
)

// IsOpen returns true if the task is the chain's active head (not yet closed)
func (s TaskStatus) IsOpen() bool {
	return s == TaskStatusPending || s == TaskStatusOnDelivery
}

// String returns the string code of the task status
func (s TaskStatus) String() string {
	return string(s)
}
