package workflow

import "fmt"

// idSet is a membership table over transaction-type or document-type ids
type idSet map[int64]bool

func (s idSet) contains(id int64) bool {
	return s[id]
}

// Jurisdiction is the deployment-specific ruleset governing workflow
// branching. The historic implementation branched on a license name at
// every decision point; here each jurisdiction is a data table resolved
// once, at transaction creation, and carried with the transaction.
type Jurisdiction struct {
	Name string

	// routing tables consulted by NextStatusAfterReceive, checked in order
	officerDocTypes      idSet // recorder-officer cases route to Revision
	juridicTypes         idSet // juridic cases route to Juridic
	recordingDocTypes    idSet // recordable documents route to Recording
	certificateTypes     idSet // certificate issuance routes to Elaboration
	recordingTxnTypes    idSet // transaction types that carry a recordable document
	certificateTxnTypes  idSet // transaction types that issue certificates
	archivableDocTypes   idSet // documents that may be archived instead of delivered
	digitalizationDenied idSet // excluded from digitalization even when recordable
	unsignedDocTypes     idSet // documents that never reach OnSign
}

// jurisdiction policy tables. Ids reference the recording-act/document
// taxonomy seeded by migrations; they differ per deployment because each
// state's recorder office runs its own classification catalog.
var jurisdictions = map[string]*Jurisdiction{
	"Zacatecas": {
		Name:                 "Zacatecas",
		officerDocTypes:      idSet{751: true, 752: true},
		juridicTypes:         idSet{704: true},
		recordingDocTypes:    idSet{708: true, 709: true, 710: true, 711: true},
		certificateTypes:     idSet{712: true, 713: true, 714: true},
		recordingTxnTypes:    idSet{700: true, 704: true},
		certificateTxnTypes:  idSet{702: true},
		archivableDocTypes:   idSet{722: true, 761: true},
		digitalizationDenied: idSet{711: true},
		unsignedDocTypes:     idSet{722: true},
	},
	"Tlaxcala": {
		Name:                 "Tlaxcala",
		officerDocTypes:      idSet{751: true},
		juridicTypes:         idSet{704: true, 705: true},
		recordingDocTypes:    idSet{708: true, 709: true, 710: true},
		certificateTypes:     idSet{712: true, 713: true},
		recordingTxnTypes:    idSet{700: true},
		certificateTxnTypes:  idSet{702: true, 706: true},
		archivableDocTypes:   idSet{722: true, 723: true, 761: true},
		digitalizationDenied: idSet{710: true, 761: true},
		unsignedDocTypes:     idSet{722: true, 723: true},
	},
}

// PolicyFor resolves the jurisdiction policy for a deployment name.
// Unknown names fail fast instead of silently defaulting, so a
// misconfigured deployment cannot run with half-empty rule tables.
func PolicyFor(name string) (*Jurisdiction, error) {
	j, ok := jurisdictions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedJurisdiction, name)
	}
	return j, nil
}

// SupportedJurisdictions returns the registered jurisdiction names
func SupportedJurisdictions() []string {
	names := make([]string, 0, len(jurisdictions))
	for name := range jurisdictions {
		names = append(names, name)
	}
	return names
}

// NextStatusAfterReceive computes where a freshly received transaction is
// routed. Default is the control desk; specific case classes short-circuit
// directly into their working queue.
func (j *Jurisdiction) NextStatusAfterReceive(typeID, docTypeID int64) Status {
	switch {
	case j.officerDocTypes.contains(docTypeID):
		return StatusRevision
	case j.juridicTypes.contains(typeID) || j.juridicTypes.contains(docTypeID):
		return StatusJuridic
	case j.IsRecordingDocumentCase(typeID, docTypeID):
		return StatusRecording
	case j.IsCertificateIssueCase(typeID, docTypeID):
		return StatusElaboration
	default:
		return StatusControl
	}
}

// IsRecordingDocumentCase returns true if the transaction carries a
// document destined for recording. Both the transaction type and the
// document class must be recordable; while the document class is still
// unset the case routes through the control desk.
func (j *Jurisdiction) IsRecordingDocumentCase(typeID, docTypeID int64) bool {
	return j.recordingTxnTypes.contains(typeID) && j.recordingDocTypes.contains(docTypeID)
}

// IsCertificateIssueCase returns true if the transaction issues certificates
func (j *Jurisdiction) IsCertificateIssueCase(typeID, docTypeID int64) bool {
	return j.certificateTxnTypes.contains(typeID) || j.certificateTypes.contains(docTypeID)
}

// IsArchivable returns true if the document class is archived in-office
// rather than delivered back to the requester
func (j *Jurisdiction) IsArchivable(typeID, docTypeID int64) bool {
	return j.archivableDocTypes.contains(docTypeID)
}

// IsDigitalizable returns true if the recorded document must pass through
// the digitalization/safeguard stage
func (j *Jurisdiction) IsDigitalizable(typeID, docTypeID int64) bool {
	if !j.IsRecordingDocumentCase(typeID, docTypeID) {
		return false
	}
	if j.IsCertificateIssueCase(typeID, docTypeID) {
		return false
	}
	return !j.digitalizationDenied.contains(typeID) && !j.digitalizationDenied.contains(docTypeID)
}

// IsSignable returns true if the document class requires the registrar's signature
func (j *Jurisdiction) IsSignable(typeID, docTypeID int64) bool {
	return !j.unsignedDocTypes.contains(docTypeID)
}
