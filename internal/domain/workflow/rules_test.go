package workflow

import (
	"errors"
	"testing"
)

func TestValidateStatusChange_PaymentRequired(t *testing.T) {
	j, _ := PolicyFor("Zacatecas")

	err := j.ValidateStatusChange(StatusReceived, ChangeContext{PaymentCount: 0})
	if !errors.Is(err, ErrPreconditionNotMet) {
		t.Errorf("ValidateStatusChange(Received, no payments) = %v, want ErrPreconditionNotMet", err)
	}

	if err := j.ValidateStatusChange(StatusReceived, ChangeContext{PaymentCount: 1}); err != nil {
		t.Errorf("ValidateStatusChange(Received, 1 payment) = %v", err)
	}

	// fee-waiver transactions proceed with zero payments
	if err := j.ValidateStatusChange(StatusReceived, ChangeContext{FeeWaiver: true}); err != nil {
		t.Errorf("ValidateStatusChange(Received, fee waiver) = %v", err)
	}
}

func TestValidateStatusChange_InstrumentRequired(t *testing.T) {
	j, _ := PolicyFor("Zacatecas")

	for _, target := range []Status{StatusRevision, StatusOnSign, StatusArchived, StatusToDeliver} {
		t.Run(string(target), func(t *testing.T) {
			err := j.ValidateStatusChange(target, ChangeContext{IsRecordableCase: true})
			if !errors.Is(err, ErrPreconditionNotMet) {
				t.Errorf("recordable case without instrument: got %v, want ErrPreconditionNotMet", err)
			}

			if err := j.ValidateStatusChange(target, ChangeContext{IsRecordableCase: true, HasInstrument: true}); err != nil {
				t.Errorf("recordable case with instrument: got %v", err)
			}

			// non-recordable cases never require the instrument
			if err := j.ValidateStatusChange(target, ChangeContext{}); err != nil {
				t.Errorf("non-recordable case: got %v", err)
			}
		})
	}
}

func TestValidateStatusChange_UnaffectedTargets(t *testing.T) {
	j, _ := PolicyFor("Tlaxcala")

	for _, target := range []Status{StatusControl, StatusQualification, StatusRecording, StatusJuridic} {
		if err := j.ValidateStatusChange(target, ChangeContext{IsRecordableCase: true}); err != nil {
			t.Errorf("ValidateStatusChange(%s) = %v", target, err)
		}
	}
}

func TestIsReadyForReentry(t *testing.T) {
	clerk := Principal{UserID: "u1", Roles: []string{RoleRegistrar}}
	boss := Principal{UserID: "u2", Roles: []string{RoleSupervisor}}

	tests := []struct {
		name     string
		status   Status
		caller   Principal
		expected bool
	}{
		{"returned, any caller", StatusReturned, clerk, true},
		{"delivered needs supervisor", StatusDelivered, clerk, false},
		{"delivered with supervisor", StatusDelivered, boss, true},
		{"archived needs supervisor", StatusArchived, clerk, false},
		{"archived with supervisor", StatusArchived, boss, true},
		{"control never eligible", StatusControl, boss, false},
		{"payment never eligible", StatusPayment, boss, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsReadyForReentry(tt.status, tt.caller); got != tt.expected {
				t.Errorf("IsReadyForReentry(%s) = %v, want %v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestUserCanEditDocument(t *testing.T) {
	registrar := Principal{UserID: "reg1", Roles: []string{RoleRegistrar}}
	cashier := Principal{UserID: "cash1", Roles: []string{RoleCashier}}

	tests := []struct {
		name        string
		caller      Principal
		status      Status
		responsible string
		historic    bool
		expected    bool
	}{
		{"registrar on own recording task", registrar, StatusRecording, "reg1", false, true},
		{"registrar on someone else's task", registrar, StatusRecording, "other", false, false},
		{"registrar outside working queue", registrar, StatusControl, "reg1", false, false},
		{"historic document always editable by role", registrar, StatusDelivered, "other", true, true},
		{"cashier never edits documents", cashier, StatusRecording, "cash1", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserCanEditDocument(tt.caller, tt.status, tt.responsible, tt.historic)
			if got != tt.expected {
				t.Errorf("UserCanEditDocument() = %v, want %v", got, tt.expected)
			}
		})
	}
}
