package docsystem

import (
	"context"

	"blockdocs/internal/domain/models/docsystem"
)

// TrashStore owns the soft-delete lifecycle of documents
type TrashStore interface {
	// Trash flags the document itself; descendants are hidden through their ancestor
	Trash(ctx context.Context, doc *docsystem.Document) error

	// Restore clears the trash flag
	Restore(ctx context.Context, doc *docsystem.Document) error

	// Purge hard-deletes the document. Descendants and blocks go with it by cascade.
	// subtreeIDs is doc's TreeStore.GetSubtreeIDs result; the removed blocks of those
	// documents whose type is in fileTypes are returned so the caller can reclaim the
	// objects they reference.
	Purge(ctx context.Context, doc *docsystem.Document, subtreeIDs []string, fileTypes []docsystem.BlockType) ([]docsystem.Block, error)

	// ListTrashed returns trashed documents that have no trashed ancestor
	ListTrashed(ctx context.Context, userID string) ([]docsystem.Document, error)
}
