package docsystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blockdocs/internal/domain"
	models "blockdocs/internal/domain/models/docsystem"
	"blockdocs/internal/domain/repositories"
	docsysRepo "blockdocs/internal/domain/repositories/docsystem"
	"blockdocs/internal/repository/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// errNoTransaction guards ReplaceBlocks against running outside a transaction
var errNoTransaction = errors.New("replace blocks requires a transaction")

// PostgresBlockStore implements the BlockStore interface
type PostgresBlockStore struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewBlockStore creates a new block store
func NewBlockStore(config *postgres.RepositoryConfig) docsysRepo.BlockStore {
	return &PostgresBlockStore{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// ReplaceBlocks makes blocks the complete, ordered block list of the document.
//
// Externally this is delete-all-then-insert. Internally rows are diffed by id:
// blocks missing from the list are deleted, known ids are updated only when type,
// content or position changed, and new ids are inserted. The (document_id, position)
// unique constraint is deferred, so positions may collide until commit.
//
// The slice elements are updated in place with their id, document id and position.
func (r *PostgresBlockStore) ReplaceBlocks(ctx context.Context, documentID string, blocks []models.Block) error {
	if !repositories.InTx(ctx) {
		return errNoTransaction
	}

	ids := make([]string, len(blocks))
	seen := make(map[string]bool, len(blocks))
	for i := range blocks {
		b := &blocks[i]
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		if seen[b.ID] {
			return fmt.Errorf("block %s appears twice: %w", b.ID, domain.ErrInvalidBlockContent)
		}
		seen[b.ID] = true
		b.DocumentID = documentID
		b.Position = i
		ids[i] = b.ID
	}

	existing, err := r.lockExistingIDs(ctx, documentID)
	if err != nil {
		return err
	}

	executor := postgres.GetExecutor(ctx, r.pool)

	deleteQuery := fmt.Sprintf(`
		DELETE FROM %s
		WHERE document_id = $1 AND NOT (id = ANY($2::uuid[]))
	`, r.tables.Blocks)
	deleted, err := executor.Exec(ctx, deleteQuery, documentID, ids)
	if err != nil {
		return postgres.WrapDBError("delete removed blocks", err)
	}

	now := time.Now()
	updateQuery := fmt.Sprintf(`
		UPDATE %s
		SET type = $1, content = $2, position = $3, updated_at = $4
		WHERE id = $5 AND document_id = $6
		  AND (type <> $1 OR content <> $2::jsonb OR position <> $3)
	`, r.tables.Blocks)
	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, type, content, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, r.tables.Blocks)

	batch := &pgx.Batch{}
	inserted := 0
	for i := range blocks {
		b := &blocks[i]
		content := []byte(b.Content)
		if existing[b.ID] {
			batch.Queue(updateQuery, string(b.Type), content, b.Position, now, b.ID, documentID)
			continue
		}
		batch.Queue(insertQuery, b.ID, documentID, string(b.Type), content, b.Position, now)
		inserted++
	}

	results := executor.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			if postgres.IsPgDuplicateError(err) {
				// A new block reused an id that belongs to another document
				return fmt.Errorf("block id already in use: %w", domain.ErrInvalidBlockContent)
			}
			return postgres.WrapDBError("write blocks", err)
		}
	}
	if err := results.Close(); err != nil {
		return postgres.WrapDBError("write blocks", err)
	}

	r.logger.Debug("blocks replaced",
		"document_id", documentID,
		"count", len(blocks),
		"inserted", inserted,
		"deleted", deleted.RowsAffected(),
	)

	return nil
}

// lockExistingIDs locks the document's current blocks and returns their ids
func (r *PostgresBlockStore) lockExistingIDs(ctx context.Context, documentID string) (map[string]bool, error) {
	query := fmt.Sprintf(`
		SELECT id
		FROM %s
		WHERE document_id = $1
		FOR UPDATE
	`, r.tables.Blocks)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, postgres.WrapDBError("lock blocks", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, postgres.WrapDBError("lock blocks", err)
	}

	existing := make(map[string]bool, len(ids))
	for _, id := range ids {
		existing[id] = true
	}
	return existing, nil
}

// GetBlocks returns the document's blocks ordered by position
func (r *PostgresBlockStore) GetBlocks(ctx context.Context, documentID string) ([]models.Block, error) {
	if err := checkID("document", documentID); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE document_id = $1
		ORDER BY position ASC
	`, blockColumns, r.tables.Blocks)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, postgres.WrapDBError("get blocks", err)
	}

	return collectBlocks(rows)
}
