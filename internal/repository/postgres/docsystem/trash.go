package docsystem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"blockdocs/internal/domain"
	models "blockdocs/internal/domain/models/docsystem"
	docsysRepo "blockdocs/internal/domain/repositories/docsystem"
	"blockdocs/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTrashStore implements the TrashStore interface
type PostgresTrashStore struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewTrashStore creates a new trash store
func NewTrashStore(config *postgres.RepositoryConfig) docsysRepo.TrashStore {
	return &PostgresTrashStore{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Trash flags the document as deleted. Descendant rows are left untouched and
// updated_at keeps tracking edits only.
func (r *PostgresTrashStore) Trash(ctx context.Context, doc *models.Document) error {
	now := time.Now()
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_deleted = TRUE, deleted_at = $1
		WHERE id = $2 AND NOT is_deleted
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, now, doc.ID)
	if err != nil {
		return postgres.WrapDBError("trash document", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}

	doc.IsDeleted = true
	doc.DeletedAt = &now
	return nil
}

// Restore clears the deleted flag
func (r *PostgresTrashStore) Restore(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_deleted = FALSE, deleted_at = NULL
		WHERE id = $1 AND is_deleted
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, doc.ID)
	if err != nil {
		return postgres.WrapDBError("restore document", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s is not in trash: %w", doc.ID, domain.ErrNotFound)
	}

	doc.IsDeleted = false
	doc.DeletedAt = nil
	return nil
}

// Purge hard-deletes doc. The parent_id and document_id foreign keys cascade
// the delete to descendants and to every block of the subtree.
func (r *PostgresTrashStore) Purge(ctx context.Context, doc *models.Document, subtreeIDs []string, fileTypes []models.BlockType) ([]models.Block, error) {
	executor := postgres.GetExecutor(ctx, r.pool)

	fileBlocks := []models.Block{}
	if len(fileTypes) > 0 && len(subtreeIDs) > 0 {
		blockQuery := fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE document_id = ANY($1::uuid[]) AND type = ANY($2::text[])
			ORDER BY document_id, position
		`, blockColumns, r.tables.Blocks)
		rows, err := executor.Query(ctx, blockQuery, subtreeIDs, blockTypeStrings(fileTypes))
		if err != nil {
			return nil, postgres.WrapDBError("list purged file blocks", err)
		}
		fileBlocks, err = collectBlocks(rows)
		if err != nil {
			return nil, err
		}
	}

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Documents)
	result, err := executor.Exec(ctx, deleteQuery, doc.ID)
	if err != nil {
		return nil, postgres.WrapDBError("purge document", err)
	}
	if result.RowsAffected() == 0 {
		return nil, fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}

	r.logger.Debug("subtree purged",
		"document_id", doc.ID,
		"documents", len(subtreeIDs),
		"file_blocks", len(fileBlocks),
	)

	return fileBlocks, nil
}

// ListTrashed returns top-level trashed documents, most recently trashed first.
// A trashed document below another trashed document is reachable through it and
// is not listed separately.
func (r *PostgresTrashStore) ListTrashed(ctx context.Context, userID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s d
		WHERE d.user_id = $1
		  AND d.is_deleted
		  AND NOT EXISTS (
			SELECT 1 FROM %s a
			WHERE a.user_id = d.user_id
			  AND a.is_deleted
			  AND d.tree_path LIKE a.tree_path || '.%%'
		  )
		ORDER BY d.deleted_at DESC, d.id
	`, prefixColumns("d", documentMetaColumns), r.tables.Documents, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, postgres.WrapDBError("list trashed documents", err)
	}

	return collectDocumentMeta(rows)
}
