package workflow

import "testing"

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusPayment, false},
		{StatusReceived, false},
		{StatusReentry, false},
		{StatusControl, false},
		{StatusQualification, false},
		{StatusRecording, false},
		{StatusElaboration, false},
		{StatusRevision, false},
		{StatusJuridic, false},
		{StatusOnSign, false},
		{StatusSafeguard, false},
		{StatusToDeliver, false},
		{StatusToReturn, false},
		{StatusDelivered, true},
		{StatusReturned, true},
		{StatusDeleted, true},
		{StatusArchived, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.expected {
				t.Errorf("Status.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		expected bool
	}{
		{"lifecycle status", StatusControl, true},
		{"terminal status", StatusArchived, true},
		{"end point sentinel", StatusEndPoint, false},
		{"undefined sentinel", StatusUndefined, false},
		{"unknown", Status("BOGUS"), false},
		{"empty", Status(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.expected {
				t.Errorf("Status.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStatus_SetsClosingTime(t *testing.T) {
	for _, s := range []Status{StatusToDeliver, StatusToReturn, StatusArchived} {
		if !s.SetsClosingTime() {
			t.Errorf("%s should set the closing time", s)
		}
	}
	for _, s := range []Status{StatusControl, StatusDelivered, StatusReturned} {
		if s.SetsClosingTime() {
			t.Errorf("%s should not set the closing time", s)
		}
	}
}

func TestStatus_DisplayName(t *testing.T) {
	if got := StatusSafeguard.DisplayName(); got != "Digitalization and safeguard" {
		t.Errorf("DisplayName() = %q", got)
	}
	if got := Status("BOGUS").DisplayName(); got != "BOGUS" {
		t.Errorf("DisplayName() fallback = %q", got)
	}
}

func TestTaskStatus_IsOpen(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		expected bool
	}{
		{TaskStatusPending, true},
		{TaskStatusOnDelivery, true},
		{TaskStatusClosed, false},
		{TaskStatusDeleted, false},
		{TaskStatusHistoric, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsOpen(); got != tt.expected {
				t.Errorf("TaskStatus.IsOpen() = %v, want %v", got, tt.expected)
			}
		})
	}
}
