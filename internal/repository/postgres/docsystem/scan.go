package docsystem

import (
	"fmt"
	"strings"

	"blockdocs/internal/domain"
	models "blockdocs/internal/domain/models/docsystem"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// documentColumns is the full column list, in scanDocument order
const documentColumns = `id, user_id, parent_id, title, content, tree_path, level, sort_order,
	is_deleted, deleted_at, created_at, updated_at`

// documentMetaColumns omits content, in scanDocumentMeta order
const documentMetaColumns = `id, user_id, parent_id, title, tree_path, level, sort_order,
	is_deleted, deleted_at, created_at, updated_at`

const blockColumns = `id, document_id, type, content, position, created_at, updated_at`

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.ParentID,
		&doc.Title,
		&doc.Content,
		&doc.TreePath,
		&doc.Level,
		&doc.SortOrder,
		&doc.IsDeleted,
		&doc.DeletedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func scanDocumentMeta(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.ParentID,
		&doc.Title,
		&doc.TreePath,
		&doc.Level,
		&doc.SortOrder,
		&doc.IsDeleted,
		&doc.DeletedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// collectDocumentMeta drains rows into a slice, never nil
func collectDocumentMeta(rows pgx.Rows) ([]models.Document, error) {
	defer rows.Close()

	documents := []models.Document{}
	for rows.Next() {
		doc, err := scanDocumentMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return documents, nil
}

func scanBlock(row pgx.Row) (*models.Block, error) {
	var block models.Block
	var blockType string
	err := row.Scan(
		&block.ID,
		&block.DocumentID,
		&blockType,
		&block.Content,
		&block.Position,
		&block.CreatedAt,
		&block.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	block.Type = models.BlockType(blockType)
	return &block, nil
}

func collectBlocks(rows pgx.Rows) ([]models.Block, error) {
	defer rows.Close()

	blocks := []models.Block{}
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, *block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}

// checkID rejects ids that are not UUIDs before they reach a uuid column.
// A malformed id can never match a row, so it reads as not found.
func checkID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}

func blockTypeStrings(types []models.BlockType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// prefixColumns qualifies a comma separated column list with a table alias
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
