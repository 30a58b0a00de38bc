package workflow

// ControlInput is the read-only snapshot a control-data projection is
// computed from. Everything is already loaded; ComputeControlData never
// touches storage.
type ControlInput struct {
	Status           Status
	NextStatus       Status
	TaskStatus       TaskStatus
	Responsible      string
	TypeID           int64
	DocTypeID        int64
	PaymentCount     int
	FeeWaiver        bool
	HasPaymentOrder  bool
	HasInstrument    bool
	InstrumentClosed bool
	DocIsHistoric    bool
	CertificateCount int
	Principal        Principal
}

// ControlData is the set of UI/action gates derived from a transaction's
// workflow state and the calling user's roles. Pure projection, no side
// effects, recomputed on every read.
type ControlData struct {
	CanEdit                 bool `json:"canEdit"`
	CanEditServices         bool `json:"canEditServices"`
	CanGeneratePaymentOrder bool `json:"canGeneratePaymentOrder"`
	CanCancelPaymentOrder   bool `json:"canCancelPaymentOrder"`
	CanRegisterPayment      bool `json:"canRegisterPayment"`
	CanReceive              bool `json:"canReceive"`
	CanSetNextStatus        bool `json:"canSetNextStatus"`
	CanTake                 bool `json:"canTake"`
	CanReturnToMe           bool `json:"canReturnToMe"`
	CanReentry              bool `json:"canReentry"`
	CanEditDocument         bool `json:"canEditDocument"`
	ShowServicesTab         bool `json:"showServicesTab"`
	ShowPaymentsTab         bool `json:"showPaymentsTab"`
	ShowInstrumentTab       bool `json:"showInstrumentTab"`
	ShowCertificatesTab     bool `json:"showCertificatesTab"`
}

// ComputeControlData derives the action gates for one transaction and caller
func ComputeControlData(in ControlInput, j *Jurisdiction) ControlData {
	var cd ControlData

	user := in.Principal
	recordable := j.IsRecordingDocumentCase(in.TypeID, in.DocTypeID)
	certCase := j.IsCertificateIssueCase(in.TypeID, in.DocTypeID)
	terminal := in.Status.IsTerminal()

	cd.CanEdit = in.Status == StatusPayment && !terminal
	cd.CanEditServices = cd.CanEdit
	cd.CanGeneratePaymentOrder = in.Status == StatusPayment && !in.HasPaymentOrder
	cd.CanCancelPaymentOrder = in.Status == StatusPayment && in.HasPaymentOrder && in.PaymentCount == 0
	cd.CanRegisterPayment = in.Status == StatusPayment && user.IsInRole(RoleCashier)

	cd.CanReceive = in.Status == StatusPayment &&
		(in.PaymentCount > 0 || in.FeeWaiver) &&
		(user.IsInRole(RoleReceptionist) || user.IsSupervisor())

	cd.CanSetNextStatus = !terminal && in.Status != StatusPayment && in.TaskStatus == TaskStatusPending
	cd.CanTake = in.TaskStatus == TaskStatusOnDelivery && in.NextStatus != StatusEndPoint
	cd.CanReturnToMe = in.TaskStatus == TaskStatusOnDelivery && in.Responsible == user.UserID
	cd.CanReentry = IsReadyForReentry(in.Status, in.Principal)
	cd.CanEditDocument = UserCanEditDocument(in.Principal, in.Status, in.Responsible, in.DocIsHistoric)

	cd.ShowServicesTab = !certCase || recordable
	cd.ShowPaymentsTab = true
	cd.ShowInstrumentTab = recordable && (in.HasInstrument || !terminal)
	cd.ShowCertificatesTab = certCase || in.CertificateCount > 0

	return cd
}
