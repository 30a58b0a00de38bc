package entity

import (
	"fmt"
	"time"

	"github.com/septentria/land-office/internal/domain/workflow"
)

// RecordingAct is a legal act (sale, mortgage, annotation) recorded
// against one or more properties through a land record.
type RecordingAct struct {
	ID           int64     `json:"id"`
	RecordID     int64     `json:"record_id"`
	TypeID       int64     `json:"type_id"`
	PropertyIDs  []int64   `json:"property_ids"`
	IsAnnotation bool      `json:"is_annotation"`
	IsPending    bool      `json:"is_pending"`
	RecordedAt   time.Time `json:"recorded_at"`
	Status       string    `json:"status"`
}

// TractEntry is one link in a property's chronological chain of
// recording acts
type TractEntry struct {
	ActID      int64     `json:"act_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Property is a registered real-estate unit. Its tract is the ordered
// history of recording acts affecting it; the first entry is the
// property's antecedent.
type Property struct {
	ID    int64        `json:"id"`
	UID   string       `json:"uid"`
	Tract []TractEntry `json:"tract"`
}

// FirstAct returns the opening act of the tract, or zero if empty
func (p *Property) FirstAct() int64 {
	if len(p.Tract) == 0 {
		return 0
	}
	return p.Tract[0].ActID
}

// LastAct returns the most recent act of the tract, or zero if empty
func (p *Property) LastAct() int64 {
	if len(p.Tract) == 0 {
		return 0
	}
	return p.Tract[len(p.Tract)-1].ActID
}

// AntecedentOf returns the act immediately preceding actID in the tract,
// or zero when actID opens the tract or is not part of it
func (p *Property) AntecedentOf(actID int64) int64 {
	for i, entry := range p.Tract {
		if entry.ActID == actID {
			if i == 0 {
				return 0
			}
			return p.Tract[i-1].ActID
		}
	}
	return 0
}

// TractValidator enforces tract consistency for destructive operations.
// Acts are looked up through the supplied resolver so the validator stays
// independent of storage.
type TractValidator struct {
	ResolveAct func(actID int64) (*RecordingAct, bool)
}

// CanDeleteProperty rejects deletion while the property is referenced by
// more than one act in its tract, or while any tract act carries a
// pending annotation.
func (v *TractValidator) CanDeleteProperty(p *Property) error {
	if len(p.Tract) > 1 {
		return errTract("property %s is referenced by %d recording acts", p.UID, len(p.Tract))
	}
	for _, entry := range p.Tract {
		act, ok := v.ResolveAct(entry.ActID)
		if !ok {
			continue
		}
		if act.IsAnnotation && act.IsPending {
			return errTract("property %s has pending annotations", p.UID)
		}
	}
	return nil
}

// CanDeleteAct rejects deletion of an act that is not the last entry of
// every tract it appears in; removing a mid-tract act would break the
// chain of antecedents.
func (v *TractValidator) CanDeleteAct(act *RecordingAct, properties []*Property) error {
	for _, prop := range properties {
		for _, entry := range prop.Tract {
			if entry.ActID == act.ID && prop.LastAct() != act.ID {
				return errTract("act %d is not the last act in the tract of property %s", act.ID, prop.UID)
			}
		}
	}
	return nil
}

func errTract(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{workflow.ErrValidationFailure}, args...)...)
}
