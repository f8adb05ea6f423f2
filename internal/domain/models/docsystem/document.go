package docsystem

import (
	"time"
)

type Document struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	ParentID  *string    `json:"parent_id" db:"parent_id"` // NULL = root level
	Title     string     `json:"title" db:"title"`
	Content   string     `json:"content" db:"content"`     // Legacy rich-text snapshot (TipTap JSON)
	TreePath  string     `json:"tree_path" db:"tree_path"` // Dot-joined id chain from root to self
	Level     int        `json:"level" db:"level"`         // Root = 0
	SortOrder int        `json:"sort_order" db:"sort_order"`
	IsDeleted bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// IsRoot reports whether the document has no parent
func (d *Document) IsRoot() bool {
	return d.ParentID == nil
}

// DocumentWithBlocks is a document joined with its ordered blocks
type DocumentWithBlocks struct {
	Document
	Blocks []Block `json:"blocks"`
}

// PurgeResult describes what a purge removed.
// FileKeys are object-storage keys referenced by purged blocks; the caller reclaims them.
type PurgeResult struct {
	DocumentIDs []string `json:"document_ids"`
	FileKeys    []string `json:"file_keys"`
}
