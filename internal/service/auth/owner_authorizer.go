package auth

import (
	"context"
	"fmt"

	"blockdocs/internal/domain"
	"blockdocs/internal/domain/models/docsystem"
	"blockdocs/internal/domain/services"
)

// OwnerBasedAuthorizer implements DocumentAuthorizer using ownership checks.
// A user can access a document if they created it.
type OwnerBasedAuthorizer struct{}

// NewOwnerBasedAuthorizer creates a new ownership-based authorizer
func NewOwnerBasedAuthorizer() services.DocumentAuthorizer {
	return &OwnerBasedAuthorizer{}
}

func owns(userID string, doc *docsystem.Document) bool {
	return userID != "" && doc.UserID == userID
}

// CanAccessDocument checks if user owns the document
func (a *OwnerBasedAuthorizer) CanAccessDocument(_ context.Context, userID string, doc *docsystem.Document) error {
	if !owns(userID, doc) {
		return fmt.Errorf("access denied to document %s: %w", doc.ID, domain.ErrForbidden)
	}
	return nil
}

// CanViewDocument checks ownership, reporting a foreign document as missing
func (a *OwnerBasedAuthorizer) CanViewDocument(_ context.Context, userID string, doc *docsystem.Document) error {
	if !owns(userID, doc) {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	return nil
}

// CanAttachTo checks if user owns the prospective parent
func (a *OwnerBasedAuthorizer) CanAttachTo(_ context.Context, userID string, parent *docsystem.Document) error {
	if !owns(userID, parent) {
		return fmt.Errorf("parent document %s: %w", parent.ID, domain.ErrNotFound)
	}
	return nil
}
