package pdf

import (
	"bytes"
	"testing"

	apperrors "pdf-workbench/pkg/errors"
)

func TestRepairer_Repair_DamagedXref(t *testing.T) {
	codec := NewCodec()
	data, err := codec.Serialize(makeFixtureDoc(3))
	if err != nil {
		t.Fatalf("failed to build fixture: %v", err)
	}
	// destroy the whole trailer section
	idx := bytes.Index(data, []byte("xref"))
	if idx < 0 {
		t.Fatal("fixture has no xref section")
	}
	damaged := data[:idx]

	repairer := NewRepairer(nil)
	doc, err := repairer.Repair(damaged)
	if err != nil {
		t.Fatalf("expected repair to succeed, got %v", err)
	}
	if doc.PageCount() != 3 {
		t.Fatalf("expected 3 recovered pages, got %d", doc.PageCount())
	}

	// the repaired document serializes as a well-formed file
	fixed, err := codec.Serialize(doc)
	if err != nil {
		t.Fatalf("expected the repaired document to serialize, got %v", err)
	}
	reloaded, err := codec.Load(fixed)
	if err != nil {
		t.Fatalf("expected the rewritten file to load, got %v", err)
	}
	if reloaded.PageCount() != 3 {
		t.Fatalf("expected 3 pages after rewrite, got %d", reloaded.PageCount())
	}
}

func TestRepairer_Repair_GarbageInput(t *testing.T) {
	repairer := NewRepairer(nil)
	if _, err := repairer.Repair([]byte("nothing pdf-like here")); !apperrors.IsKind(err, apperrors.KindUnrecoverable) {
		t.Fatalf("expected unrecoverable, got %v", err)
	}
}

// rejectAllPolicy refuses every reconstruction.
type rejectAllPolicy struct{}

func (rejectAllPolicy) Recoverable(recoveredPages, totalObjects int) bool { return false }

func TestRepairer_Repair_PolicyRejection(t *testing.T) {
	codec := NewCodec()
	data, err := codec.Serialize(makeFixtureDoc(1))
	if err != nil {
		t.Fatalf("failed to build fixture: %v", err)
	}

	repairer := NewRepairer(rejectAllPolicy{})
	if _, err := repairer.Repair(data); !apperrors.IsKind(err, apperrors.KindUnrecoverable) {
		t.Fatalf("expected unrecoverable, got %v", err)
	}
}

func TestDefaultRepairPolicy(t *testing.T) {
	policy := DefaultRepairPolicy{}
	if !policy.Recoverable(1, 100) {
		t.Fatal("expected one recovered page to be enough")
	}
	if policy.Recoverable(0, 100) {
		t.Fatal("expected zero pages to be rejected")
	}
}
