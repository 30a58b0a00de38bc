package workflow

import "fmt"

// ChangeContext carries the already-loaded transaction facts a status-change
// validation needs. Building it is the caller's job; the rules stay pure.
type ChangeContext struct {
	PaymentCount     int
	FeeWaiver        bool
	IsRecordableCase bool
	HasInstrument    bool
}

// instrumentRequired lists the targets that need the recorded document
// captured before the transaction may move into them
var instrumentRequired = map[Status]bool{
	StatusRevision:  true,
	StatusOnSign:    true,
	StatusArchived:  true,
	StatusToDeliver: true,
}

// ValidateStatusChange checks the business preconditions for moving a
// transaction into target. A nil return means the change is allowed.
func (j *Jurisdiction) ValidateStatusChange(target Status, cc ChangeContext) error {
	if target == StatusReceived && cc.PaymentCount == 0 && !cc.FeeWaiver {
		return fmt.Errorf("%w: a payment receipt must be registered before reception", ErrPreconditionNotMet)
	}
	if instrumentRequired[target] && cc.IsRecordableCase && !cc.HasInstrument {
		return fmt.Errorf("%w: the recorded document must be captured before moving to %s",
			ErrPreconditionNotMet, target.DisplayName())
	}
	return nil
}

// IsReadyForReentry returns true if the transaction can re-enter the
// office. Returned transactions re-enter freely; delivered or archived
// ones only under a supervisor.
func IsReadyForReentry(status Status, p Principal) bool {
	switch status {
	case StatusReturned:
		return true
	case StatusDelivered, StatusArchived:
		return p.IsSupervisor()
	default:
		return false
	}
}

// editableDocStatuses are the working-queue statuses during which the
// responsible officer may edit the recorded document
var editableDocStatuses = map[Status]bool{
	StatusRecording:   true,
	StatusElaboration: true,
	StatusJuridic:     true,
}

// UserCanEditDocument gates document editing: only document-handling roles,
// and only while the transaction sits in a working queue assigned to the
// caller, or when the document is a historic capture.
func UserCanEditDocument(p Principal, status Status, responsible string, docIsHistoric bool) bool {
	if !p.IsInRole(RoleRegistrar) && !p.IsInRole(RoleCertificator) && !p.IsInRole(RoleLegalAdvisor) {
		return false
	}
	if docIsHistoric {
		return true
	}
	return editableDocStatuses[status] && responsible == p.UserID
}
