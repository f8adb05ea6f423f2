package docsystem

import (
	"context"
	"encoding/json"

	"blockdocs/internal/domain/models/docsystem"
)

// DocumentCoordinator is the transactional facade over the tree, block and trash stores.
// Every mutating call runs in one transaction; on failure nothing is persisted.
type DocumentCoordinator interface {
	// CreateDocument creates a root or child document
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*docsystem.Document, error)

	// UpdateDocumentWithBlocks saves title, legacy content and the full block list together
	UpdateDocumentWithBlocks(ctx context.Context, req *UpdateDocumentRequest) (*docsystem.DocumentWithBlocks, error)

	// MoveDocument re-parents a document (nil parent = root)
	MoveDocument(ctx context.Context, req *MoveDocumentRequest) (*docsystem.Document, error)

	// GetDocumentWithBlocks reads a document and its ordered blocks
	GetDocumentWithBlocks(ctx context.Context, userID, documentID string, includeDeleted bool) (*docsystem.DocumentWithBlocks, error)

	// GetDocumentTree returns the user's visible documents, nested
	GetDocumentTree(ctx context.Context, userID string) ([]*docsystem.TreeNode, error)

	// GetTrashedDocuments returns the flat trash list
	GetTrashedDocuments(ctx context.Context, userID string) ([]docsystem.Document, error)

	// TrashDocument soft-deletes a document
	TrashDocument(ctx context.Context, userID, documentID string) error

	// RestoreDocument takes a document out of the trash
	RestoreDocument(ctx context.Context, userID, documentID string) (*docsystem.Document, error)

	// PurgeDocument permanently deletes a trashed document and its subtree
	PurgeDocument(ctx context.Context, userID, documentID string) (*docsystem.PurgeResult, error)

	// EmptyTrash purges every top-level trashed document of a user
	EmptyTrash(ctx context.Context, userID string) (*docsystem.PurgeResult, error)
}

// CreateDocumentRequest represents a document creation request
type CreateDocumentRequest struct {
	UserID   string  `json:"-"`                   // Set by handler from auth context, not from request body
	ParentID *string `json:"parent_id,omitempty"` // nil or "" = root
	Title    string  `json:"title"`
	Content  string  `json:"content"` // TipTap JSON, may be empty
}

// UpdateDocumentRequest replaces a document's title, content and blocks
type UpdateDocumentRequest struct {
	DocumentID string         `json:"-"`
	UserID     string         `json:"-"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Blocks     []BlockRequest `json:"blocks"`
}

// BlockRequest is one block in declared order.
// ID is optional; blocks sent back with their id keep it and their created_at.
type BlockRequest struct {
	ID      string              `json:"id,omitempty"`
	Type    docsystem.BlockType `json:"type"`
	Content json.RawMessage     `json:"content"`
}

// MoveDocumentRequest moves a document under a new parent
type MoveDocumentRequest struct {
	DocumentID string  `json:"-"`
	UserID     string  `json:"-"`
	ParentID   *string `json:"parent_id"`          // nil or "" = root
	Position   *int    `json:"position,omitempty"` // nil = append
}
