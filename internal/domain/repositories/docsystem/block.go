package docsystem

import (
	"context"

	"blockdocs/internal/domain/models/docsystem"
)

// BlockStore owns the ordered blocks of a document
type BlockStore interface {
	// ReplaceBlocks swaps the whole block list of a document.
	// Positions are set to the slice index. Must run inside a transaction.
	ReplaceBlocks(ctx context.Context, documentID string, blocks []docsystem.Block) error

	// GetBlocks returns blocks ordered by position
	GetBlocks(ctx context.Context, documentID string) ([]docsystem.Block, error)
}
