package workflow

import (
	"errors"
	"testing"
)

func TestPolicyFor(t *testing.T) {
	for _, name := range []string{"Zacatecas", "Tlaxcala"} {
		j, err := PolicyFor(name)
		if err != nil {
			t.Fatalf("PolicyFor(%q) error = %v", name, err)
		}
		if j.Name != name {
			t.Errorf("PolicyFor(%q).Name = %q", name, j.Name)
		}
	}
}

func TestPolicyFor_UnknownFailsFast(t *testing.T) {
	_, err := PolicyFor("Aguascalientes")
	if !errors.Is(err, ErrUnsupportedJurisdiction) {
		t.Errorf("PolicyFor() error = %v, want ErrUnsupportedJurisdiction", err)
	}
	_, err = PolicyFor("")
	if !errors.Is(err, ErrUnsupportedJurisdiction) {
		t.Errorf("PolicyFor(\"\") error = %v, want ErrUnsupportedJurisdiction", err)
	}
}

func TestJurisdiction_NextStatusAfterReceive(t *testing.T) {
	j, _ := PolicyFor("Zacatecas")

	tests := []struct {
		name      string
		typeID    int64
		docTypeID int64
		expected  Status
	}{
		{"default routes to control desk", 699, 0, StatusControl},
		{"recordable type without document class defaults to control", 700, 0, StatusControl},
		{"officer case routes to revision", 700, 751, StatusRevision},
		{"juridic case routes to juridic", 704, 0, StatusJuridic},
		{"recordable document routes to recording", 700, 708, StatusRecording},
		{"certificate issue routes to elaboration", 702, 712, StatusElaboration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := j.NextStatusAfterReceive(tt.typeID, tt.docTypeID); got != tt.expected {
				t.Errorf("NextStatusAfterReceive(%d, %d) = %s, want %s",
					tt.typeID, tt.docTypeID, got, tt.expected)
			}
		})
	}
}

func TestJurisdiction_CasePredicates(t *testing.T) {
	j, _ := PolicyFor("Zacatecas")

	if !j.IsRecordingDocumentCase(700, 708) {
		t.Error("type 700 with doc type 708 should be a recording document case")
	}
	if j.IsRecordingDocumentCase(700, 0) {
		t.Error("an unset document class is not yet a recording document case")
	}
	if j.IsRecordingDocumentCase(699, 708) {
		t.Error("type 699 should not be a recording document case")
	}
	if !j.IsCertificateIssueCase(702, 0) {
		t.Error("type 702 should be a certificate issue case")
	}
	if !j.IsArchivable(700, 722) {
		t.Error("doc type 722 should be archivable")
	}
	if j.IsArchivable(700, 708) {
		t.Error("doc type 708 should not be archivable")
	}
}

func TestJurisdiction_IsDigitalizable(t *testing.T) {
	j, _ := PolicyFor("Zacatecas")

	tests := []struct {
		name      string
		typeID    int64
		docTypeID int64
		expected  bool
	}{
		{"recordable document", 700, 708, true},
		{"not a recording case", 699, 0, false},
		{"certificate case excluded", 702, 712, false},
		{"explicitly denied doc type", 700, 711, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := j.IsDigitalizable(tt.typeID, tt.docTypeID); got != tt.expected {
				t.Errorf("IsDigitalizable(%d, %d) = %v, want %v",
					tt.typeID, tt.docTypeID, got, tt.expected)
			}
		})
	}
}

func TestJurisdictions_DifferPerDeployment(t *testing.T) {
	zac, _ := PolicyFor("Zacatecas")
	tlx, _ := PolicyFor("Tlaxcala")

	// doc type 723 is archivable only in Tlaxcala
	if zac.IsArchivable(700, 723) {
		t.Error("doc type 723 should not be archivable in Zacatecas")
	}
	if !tlx.IsArchivable(700, 723) {
		t.Error("doc type 723 should be archivable in Tlaxcala")
	}

	// transaction type 704 is recordable only in Zacatecas
	if !zac.IsRecordingDocumentCase(704, 708) {
		t.Error("type 704 should be recordable in Zacatecas")
	}
	if tlx.IsRecordingDocumentCase(704, 708) {
		t.Error("type 704 should not be recordable in Tlaxcala")
	}
}
