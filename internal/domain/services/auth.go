package services

import (
	"context"

	"blockdocs/internal/domain/models/docsystem"
)

// DocumentAuthorizer decides whether a user may act on a document.
// Current implementation: ownership-based (user owns the document).
//
// Services call the authorizer after loading a document and before operating on it.
type DocumentAuthorizer interface {
	// CanAccessDocument returns domain.ErrForbidden when userID may not modify doc
	CanAccessDocument(ctx context.Context, userID string, doc *docsystem.Document) error

	// CanViewDocument returns domain.ErrNotFound when userID may not see doc.
	// Reads and moves use it so a foreign document id is indistinguishable from a missing one.
	CanViewDocument(ctx context.Context, userID string, doc *docsystem.Document) error

	// CanAttachTo returns domain.ErrNotFound when userID may not place documents under parent.
	// Foreign parents read as missing so their existence is not revealed.
	CanAttachTo(ctx context.Context, userID string, parent *docsystem.Document) error
}
