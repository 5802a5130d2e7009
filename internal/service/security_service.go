package service

import (
	"pdf-workbench/internal/domain"
	"pdf-workbench/internal/pdf"
	apperrors "pdf-workbench/pkg/errors"
)

// SecurityService manages the document encryption state machine.
// The only transitions are Unencrypted -> protect -> Encrypted and
// Encrypted -> unlock -> Unencrypted; re-protecting an encrypted document
// replaces its state (unlock-then-protect), encryption is never layered.
type SecurityService struct {
	logger domain.Logger
}

// NewSecurityService creates the security engine
func NewSecurityService(logger domain.Logger) *SecurityService {
	return &SecurityService{logger: logger}
}

// Protect sets the encryption dictionary for the given passwords and
// permission bits. The user password must not be empty; an empty owner
// password falls back to the user password.
func (s *SecurityService) Protect(doc *domain.Document, userPassword, ownerPassword string, perms domain.Permissions) (*domain.Document, error) {
	if userPassword == "" {
		return nil, apperrors.NewInvalidRequest("password is required")
	}

	out := doc.Clone()
	if out.Encryption != nil {
		// in-memory content is already decrypted, so dropping the old
		// state is the unlock half of unlock-then-protect
		out.Encryption = nil
	}

	id := pdf.DocumentID(out)
	out.Encryption = pdf.NewEncryptionState(userPassword, ownerPassword, int32(perms), id)
	s.logger.Debug("Document protected", "pages", out.PageCount())
	return out, nil
}

// Unlock verifies the password against the recorded hashes and removes
// the encryption state.
func (s *SecurityService) Unlock(doc *domain.Document, password string) (*domain.Document, error) {
	if doc.Encryption == nil {
		return nil, apperrors.NewNotEncrypted("document is not encrypted")
	}

	state := doc.Encryption
	if _, ok := pdf.VerifyUserPassword(state, password, state.ID); !ok {
		if _, ok := pdf.VerifyOwnerPassword(state, password, state.ID); !ok {
			return nil, apperrors.NewWrongPassword("password does not match")
		}
	}

	out := doc.Clone()
	out.Encryption = nil
	s.logger.Debug("Document unlocked", "pages", out.PageCount())
	return out, nil
}
