package docsystem

import (
	"encoding/json"
	"time"
)

// BlockType discriminates block payloads
type BlockType string

const (
	BlockTypeText      BlockType = "text"
	BlockTypeHeading   BlockType = "heading"
	BlockTypeChecklist BlockType = "checklist"
	BlockTypeQuote     BlockType = "quote"
	BlockTypeCode      BlockType = "code"
	BlockTypeImage     BlockType = "image"
	BlockTypeFile      BlockType = "file"
)

// Block is one ordered unit of document content.
// Content is either a TipTap document (text-like types) or a type-specific
// payload such as image metadata.
type Block struct {
	ID         string          `json:"id" db:"id"`
	DocumentID string          `json:"document_id" db:"document_id"`
	Type       BlockType       `json:"type" db:"type"`
	Content    json.RawMessage `json:"content" db:"content"`
	Position   int             `json:"position" db:"position"` // Dense 0..n-1 within a document
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}
