package docsystem

import (
	"context"

	"blockdocs/internal/domain/models/docsystem"
)

// TreeStore owns document rows and the denormalized hierarchy fields
// (tree_path, level, sort_order).
type TreeStore interface {
	// Insert creates a root or child document, computing tree_path, level and sort_order.
	// The parent must exist, belong to doc.UserID and not be trashed.
	Insert(ctx context.Context, doc *docsystem.Document) error

	// GetByID retrieves a document by ID regardless of owner or trash state.
	// Authorization is the caller's job.
	GetByID(ctx context.Context, id string) (*docsystem.Document, error)

	// LockByID is GetByID with a row lock held until the transaction ends
	LockByID(ctx context.Context, id string) (*docsystem.Document, error)

	// LockOwner serializes structural mutations of one user's tree for the
	// rest of the transaction
	LockOwner(ctx context.Context, userID string) error

	// Update writes title, content and updated_at
	Update(ctx context.Context, doc *docsystem.Document) error

	// Move re-parents doc under newParent (nil = root) and rewrites tree_path/level
	// of doc and every descendant. position nil appends after the last sibling.
	Move(ctx context.Context, doc *docsystem.Document, newParent *docsystem.Document, position *int) error

	// GetTree returns the visible documents of a user ordered by tree_path, sort_order.
	// Documents that are trashed or sit under a trashed ancestor are excluded.
	GetTree(ctx context.Context, userID string) ([]docsystem.Document, error)

	// GetSubtreeIDs returns doc's id and the ids of all its descendants, parents first.
	// Inside a transaction the rows stay locked until it ends.
	GetSubtreeIDs(ctx context.Context, doc *docsystem.Document) ([]string, error)

	// HasDeletedAncestor reports whether any ancestor of doc is trashed
	HasDeletedAncestor(ctx context.Context, doc *docsystem.Document) (bool, error)
}
