package service

import (
	"testing"

	apperrors "pdf-workbench/pkg/errors"
)

func TestSecurity_ProtectThenUnlock_RoundTrip(t *testing.T) {
	svc := NewSecurityService(NewMockServiceLogger())
	doc := makeDoc(2)

	locked, err := svc.Protect(doc, "user-pw", "owner-pw", -4)
	if err != nil {
		t.Fatalf("expected protect to succeed, got %v", err)
	}
	if locked.Encryption == nil {
		t.Fatal("expected encryption state to be set")
	}
	if doc.Encryption != nil {
		t.Fatal("expected input document to be untouched")
	}

	unlocked, err := svc.Unlock(locked, "user-pw")
	if err != nil {
		t.Fatalf("expected unlock to succeed, got %v", err)
	}
	if unlocked.Encryption != nil {
		t.Fatal("expected encryption state to be cleared")
	}
	if unlocked.PageCount() != doc.PageCount() {
		t.Fatalf("expected %d pages, got %d", doc.PageCount(), unlocked.PageCount())
	}
}

func TestSecurity_Unlock_OwnerPassword(t *testing.T) {
	svc := NewSecurityService(NewMockServiceLogger())
	locked, err := svc.Protect(makeDoc(1), "user-pw", "owner-pw", -4)
	if err != nil {
		t.Fatalf("expected protect to succeed, got %v", err)
	}
	if _, err := svc.Unlock(locked, "owner-pw"); err != nil {
		t.Fatalf("expected owner password to unlock, got %v", err)
	}
}

func TestSecurity_Unlock_WrongPassword(t *testing.T) {
	svc := NewSecurityService(NewMockServiceLogger())
	locked, err := svc.Protect(makeDoc(1), "user-pw", "owner-pw", -4)
	if err != nil {
		t.Fatalf("expected protect to succeed, got %v", err)
	}
	if _, err := svc.Unlock(locked, "nope"); !apperrors.IsKind(err, apperrors.KindWrongPassword) {
		t.Fatalf("expected wrong_password, got %v", err)
	}
}

func TestSecurity_Unlock_NotEncrypted(t *testing.T) {
	svc := NewSecurityService(NewMockServiceLogger())
	if _, err := svc.Unlock(makeDoc(1), "irrelevant"); !apperrors.IsKind(err, apperrors.KindNotEncrypted) {
		t.Fatalf("expected not_encrypted, got %v", err)
	}
}

func TestSecurity_Protect_EmptyPassword(t *testing.T) {
	svc := NewSecurityService(NewMockServiceLogger())
	if _, err := svc.Protect(makeDoc(1), "", "owner", -4); !apperrors.IsKind(err, apperrors.KindInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestSecurity_Protect_EmptyOwnerFallsBackToUser(t *testing.T) {
	svc := NewSecurityService(NewMockServiceLogger())
	locked, err := svc.Protect(makeDoc(1), "user-pw", "", -4)
	if err != nil {
		t.Fatalf("expected protect to succeed, got %v", err)
	}
	// with no distinct owner password the user password holds owner rights
	if _, err := svc.Unlock(locked, "user-pw"); err != nil {
		t.Fatalf("expected user password to unlock, got %v", err)
	}
}

func TestSecurity_Protect_ReplacesExistingState(t *testing.T) {
	svc := NewSecurityService(NewMockServiceLogger())
	first, err := svc.Protect(makeDoc(1), "first-pw", "", -4)
	if err != nil {
		t.Fatalf("expected protect to succeed, got %v", err)
	}
	second, err := svc.Protect(first, "second-pw", "", -4)
	if err != nil {
		t.Fatalf("expected re-protect to succeed, got %v", err)
	}
	if _, err := svc.Unlock(second, "first-pw"); !apperrors.IsKind(err, apperrors.KindWrongPassword) {
		t.Fatalf("expected the old password to be rejected, got %v", err)
	}
	if _, err := svc.Unlock(second, "second-pw"); err != nil {
		t.Fatalf("expected the new password to unlock, got %v", err)
	}
}
