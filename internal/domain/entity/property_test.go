package entity

import (
	"errors"
	"testing"

	"github.com/septentria/land-office/internal/domain/workflow"
)

func tractValidator(acts map[int64]*RecordingAct) *TractValidator {
	return &TractValidator{
		ResolveAct: func(actID int64) (*RecordingAct, bool) {
			act, ok := acts[actID]
			return act, ok
		},
	}
}

func TestProperty_TractNavigation(t *testing.T) {
	p := &Property{
		UID: "FR-01-0001",
		Tract: []TractEntry{
			{ActID: 10},
			{ActID: 11},
			{ActID: 12},
		},
	}

	if p.FirstAct() != 10 {
		t.Errorf("FirstAct() = %d", p.FirstAct())
	}
	if p.LastAct() != 12 {
		t.Errorf("LastAct() = %d", p.LastAct())
	}
	if p.AntecedentOf(11) != 10 {
		t.Errorf("AntecedentOf(11) = %d", p.AntecedentOf(11))
	}
	if p.AntecedentOf(10) != 0 {
		t.Error("the tract's opening act has no antecedent")
	}
	if p.AntecedentOf(99) != 0 {
		t.Error("acts outside the tract have no antecedent")
	}
}

func TestProperty_EmptyTract(t *testing.T) {
	p := &Property{UID: "FR-01-0002"}
	if p.FirstAct() != 0 || p.LastAct() != 0 {
		t.Error("empty tract has no first or last act")
	}
}

func TestCanDeleteProperty_MultipleActs(t *testing.T) {
	v := tractValidator(nil)
	p := &Property{UID: "FR-01-0003", Tract: []TractEntry{{ActID: 1}, {ActID: 2}}}

	err := v.CanDeleteProperty(p)
	if !errors.Is(err, workflow.ErrValidationFailure) {
		t.Errorf("CanDeleteProperty() = %v, want ErrValidationFailure", err)
	}
}

func TestCanDeleteProperty_PendingAnnotation(t *testing.T) {
	acts := map[int64]*RecordingAct{
		1: {ID: 1, IsAnnotation: true, IsPending: true},
	}
	v := tractValidator(acts)
	p := &Property{UID: "FR-01-0004", Tract: []TractEntry{{ActID: 1}}}

	err := v.CanDeleteProperty(p)
	if !errors.Is(err, workflow.ErrValidationFailure) {
		t.Errorf("CanDeleteProperty() = %v, want ErrValidationFailure", err)
	}
}

func TestCanDeleteProperty_SingleClosedAct(t *testing.T) {
	acts := map[int64]*RecordingAct{
		1: {ID: 1},
	}
	v := tractValidator(acts)
	p := &Property{UID: "FR-01-0005", Tract: []TractEntry{{ActID: 1}}}

	if err := v.CanDeleteProperty(p); err != nil {
		t.Errorf("CanDeleteProperty() = %v", err)
	}
}

func TestCanDeleteAct(t *testing.T) {
	v := tractValidator(nil)
	act := &RecordingAct{ID: 11}
	props := []*Property{
		{UID: "FR-01-0006", Tract: []TractEntry{{ActID: 10}, {ActID: 11}, {ActID: 12}}},
	}

	err := v.CanDeleteAct(act, props)
	if !errors.Is(err, workflow.ErrValidationFailure) {
		t.Errorf("deleting a mid-tract act: got %v, want ErrValidationFailure", err)
	}

	last := &RecordingAct{ID: 12}
	if err := v.CanDeleteAct(last, props); err != nil {
		t.Errorf("deleting the tract's last act: got %v", err)
	}

	unrelated := &RecordingAct{ID: 99}
	if err := v.CanDeleteAct(unrelated, props); err != nil {
		t.Errorf("deleting an act outside the tract: got %v", err)
	}
}
