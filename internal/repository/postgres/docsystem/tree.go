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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTreeStore implements the TreeStore interface
type PostgresTreeStore struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewTreeStore creates a new tree store
func NewTreeStore(config *postgres.RepositoryConfig) docsysRepo.TreeStore {
	return &PostgresTreeStore{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Insert creates a new document and derives its hierarchy fields from the parent
func (r *PostgresTreeStore) Insert(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	parentPath := ""
	if doc.ParentID != nil {
		parent, err := r.lockParent(ctx, *doc.ParentID, doc.UserID)
		if err != nil {
			return err
		}
		parentPath = parent.TreePath
	}

	doc.TreePath = models.ChildPath(parentPath, doc.ID)
	doc.Level = models.Depth(doc.TreePath)

	sortOrder, err := r.nextSortOrder(ctx, doc.UserID, doc.ParentID)
	if err != nil {
		return err
	}
	doc.SortOrder = sortOrder

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, parent_id, title, content, tree_path, level, sort_order,
		                is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, $10)
		RETURNING created_at, updated_at
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		doc.ID,
		doc.UserID,
		doc.ParentID,
		doc.Title,
		doc.Content,
		doc.TreePath,
		doc.Level,
		doc.SortOrder,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("document %s already exists", doc.ID),
				ResourceType: "document",
				ResourceID:   doc.ID,
			}
		}
		if postgres.IsPgForeignKeyError(err) {
			// Parent purged between the lock and the insert
			return fmt.Errorf("parent document: %w", domain.ErrNotFound)
		}
		return postgres.WrapDBError("insert document", err)
	}

	return nil
}

// lockParent loads and locks a prospective parent. A parent that is missing,
// owned by someone else, or trashed (directly or through an ancestor) is not found.
func (r *PostgresTreeStore) lockParent(ctx context.Context, parentID, userID string) (*models.Document, error) {
	if err := checkID("parent document", parentID); err != nil {
		return nil, err
	}

	parent, err := r.LockByID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("parent document: %w", err)
	}
	if parent.UserID != userID || parent.IsDeleted {
		return nil, fmt.Errorf("parent document %s: %w", parentID, domain.ErrNotFound)
	}

	trashed, err := r.HasDeletedAncestor(ctx, parent)
	if err != nil {
		return nil, err
	}
	if trashed {
		return nil, fmt.Errorf("parent document %s is in trash: %w", parentID, domain.ErrNotFound)
	}

	return parent, nil
}

// nextSortOrder returns one past the highest sort_order among the parent's children
func (r *PostgresTreeStore) nextSortOrder(ctx context.Context, userID string, parentID *string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(sort_order) + 1, 0)
		FROM %s
		WHERE user_id = $1 AND parent_id IS NOT DISTINCT FROM $2
	`, r.tables.Documents)

	var next int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, userID, parentID).Scan(&next); err != nil {
		return 0, postgres.WrapDBError("next sort order", err)
	}
	return next, nil
}

// GetByID retrieves a document by ID regardless of owner or trash state
func (r *PostgresTreeStore) GetByID(ctx context.Context, id string) (*models.Document, error) {
	return r.getByID(ctx, id, false)
}

// LockByID retrieves a document and holds a row lock on it until the transaction ends
func (r *PostgresTreeStore) LockByID(ctx context.Context, id string) (*models.Document, error) {
	return r.getByID(ctx, id, true)
}

func (r *PostgresTreeStore) getByID(ctx context.Context, id string, forUpdate bool) (*models.Document, error) {
	if err := checkID("document", id); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, documentColumns, r.tables.Documents)
	if forUpdate {
		query += ` FOR UPDATE`
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, postgres.WrapDBError("get document", err)
	}

	return doc, nil
}

// LockOwner takes a transaction-scoped advisory lock keyed by user id.
// Structural mutations (insert, move, restore, purge) of one user's tree run one at a time.
func (r *PostgresTreeStore) LockOwner(ctx context.Context, userID string) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID); err != nil {
		return postgres.WrapDBError("lock owner tree", err)
	}
	return nil
}

// Update writes title, content and updated_at
func (r *PostgresTreeStore) Update(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, content = $2, updated_at = $3
		WHERE id = $4
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, doc.Title, doc.Content, doc.UpdatedAt, doc.ID)
	if err != nil {
		return postgres.WrapDBError("update document", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}

	return nil
}

// Move re-parents doc and rewrites tree_path/level for its whole subtree.
// The subtree rows are locked before any path is recomputed so a concurrent move
// of an overlapping subtree waits for this transaction.
func (r *PostgresTreeStore) Move(ctx context.Context, doc *models.Document, newParent *models.Document, position *int) error {
	var newParentID *string
	parentPath := ""
	if newParent != nil {
		if models.IsSelfOrDescendant(newParent.TreePath, doc.TreePath) {
			return fmt.Errorf("move document %s under %s: %w", doc.ID, newParent.ID, domain.ErrCircularReference)
		}
		newParentID = &newParent.ID
		parentPath = newParent.TreePath
	}

	subtree, err := r.lockSubtree(ctx, doc)
	if err != nil {
		return err
	}

	oldPath := doc.TreePath
	newPath := models.ChildPath(parentPath, doc.ID)
	now := time.Now()

	siblings, err := r.listSiblingOrder(ctx, doc.UserID, newParentID, doc.ID)
	if err != nil {
		return err
	}
	order := placeInOrder(siblings, doc.ID, position)

	batch := &pgx.Batch{}
	for _, node := range subtree {
		path, ok := models.Rebase(node.path, oldPath, newPath)
		if !ok {
			// lockSubtree only returns rows under oldPath
			return fmt.Errorf("rebase %s: path %q outside subtree %q", node.id, node.path, oldPath)
		}
		if node.id == doc.ID {
			continue
		}
		batch.Queue(fmt.Sprintf(`UPDATE %s SET tree_path = $1, level = $2 WHERE id = $3`, r.tables.Documents),
			path, models.Depth(path), node.id)
	}

	batch.Queue(fmt.Sprintf(`
		UPDATE %s
		SET parent_id = $1, tree_path = $2, level = $3, sort_order = $4, updated_at = $5
		WHERE id = $6
	`, r.tables.Documents), newParentID, newPath, models.Depth(newPath), order[doc.ID], now, doc.ID)

	for _, sibling := range siblings {
		if want := order[sibling.id]; want != sibling.sortOrder {
			batch.Queue(fmt.Sprintf(`UPDATE %s SET sort_order = $1 WHERE id = $2`, r.tables.Documents),
				want, sibling.id)
		}
	}

	if err := r.sendBatch(ctx, batch); err != nil {
		return postgres.WrapDBError("move document", err)
	}

	r.logger.Debug("subtree rebased",
		"document_id", doc.ID,
		"old_path", oldPath,
		"new_path", newPath,
		"subtree_size", len(subtree),
	)

	doc.ParentID = newParentID
	doc.TreePath = newPath
	doc.Level = models.Depth(newPath)
	doc.SortOrder = order[doc.ID]
	doc.UpdatedAt = now

	return nil
}

type pathRow struct {
	id   string
	path string
}

// lockSubtree locks doc and every descendant, returning their current paths
func (r *PostgresTreeStore) lockSubtree(ctx context.Context, doc *models.Document) ([]pathRow, error) {
	query := fmt.Sprintf(`
		SELECT id, tree_path
		FROM %s
		WHERE user_id = $1 AND (id = $2 OR tree_path LIKE $3)
		ORDER BY tree_path
		FOR UPDATE
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, doc.UserID, doc.ID, models.DescendantPattern(doc.TreePath))
	if err != nil {
		return nil, postgres.WrapDBError("lock subtree", err)
	}
	defer rows.Close()

	var subtree []pathRow
	for rows.Next() {
		var row pathRow
		if err := rows.Scan(&row.id, &row.path); err != nil {
			return nil, fmt.Errorf("scan subtree row: %w", err)
		}
		subtree = append(subtree, row)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.WrapDBError("lock subtree", err)
	}
	if len(subtree) == 0 {
		return nil, fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}

	return subtree, nil
}

type siblingRow struct {
	id        string
	sortOrder int
}

// listSiblingOrder returns the children of parentID except excludeID, in display order
func (r *PostgresTreeStore) listSiblingOrder(ctx context.Context, userID string, parentID *string, excludeID string) ([]siblingRow, error) {
	query := fmt.Sprintf(`
		SELECT id, sort_order
		FROM %s
		WHERE user_id = $1 AND parent_id IS NOT DISTINCT FROM $2 AND id <> $3
		ORDER BY sort_order, id
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, parentID, excludeID)
	if err != nil {
		return nil, postgres.WrapDBError("list siblings", err)
	}
	defer rows.Close()

	var siblings []siblingRow
	for rows.Next() {
		var s siblingRow
		if err := rows.Scan(&s.id, &s.sortOrder); err != nil {
			return nil, fmt.Errorf("scan sibling: %w", err)
		}
		siblings = append(siblings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.WrapDBError("list siblings", err)
	}

	return siblings, nil
}

// placeInOrder computes sort_order values after inserting id among siblings.
// With no position the document goes after the current maximum and siblings keep
// their values. With a position (clamped to [0, len(siblings)]) the list is renumbered
// densely from 0.
func placeInOrder(siblings []siblingRow, id string, position *int) map[string]int {
	order := make(map[string]int, len(siblings)+1)

	if position == nil {
		next := 0
		for _, s := range siblings {
			order[s.id] = s.sortOrder
			if s.sortOrder >= next {
				next = s.sortOrder + 1
			}
		}
		order[id] = next
		return order
	}

	pos := *position
	if pos < 0 {
		pos = 0
	}
	if pos > len(siblings) {
		pos = len(siblings)
	}

	i := 0
	for idx, s := range siblings {
		if idx == pos {
			order[id] = i
			i++
		}
		order[s.id] = i
		i++
	}
	if pos == len(siblings) {
		order[id] = i
	}

	return order
}

func (r *PostgresTreeStore) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	results := executor.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}

// GetTree returns the user's visible documents ordered parents-first.
// A document is hidden when it or any ancestor is trashed; ids are UUIDs, so
// tree_path || '.%' needs no LIKE escaping.
func (r *PostgresTreeStore) GetTree(ctx context.Context, userID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s d
		WHERE d.user_id = $1
		  AND NOT d.is_deleted
		  AND NOT EXISTS (
			SELECT 1 FROM %s a
			WHERE a.user_id = d.user_id
			  AND a.is_deleted
			  AND d.tree_path LIKE a.tree_path || '.%%'
		  )
		ORDER BY d.tree_path, d.sort_order
	`, prefixColumns("d", documentMetaColumns), r.tables.Documents, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, postgres.WrapDBError("get tree", err)
	}

	return collectDocumentMeta(rows)
}

// GetSubtreeIDs returns doc's id and all descendant ids, parents first.
// The rows are locked FOR UPDATE for the rest of the caller's transaction.
func (r *PostgresTreeStore) GetSubtreeIDs(ctx context.Context, doc *models.Document) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT id
		FROM %s
		WHERE user_id = $1 AND (id = $2 OR tree_path LIKE $3)
		ORDER BY tree_path
		FOR UPDATE
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, doc.UserID, doc.ID, models.DescendantPattern(doc.TreePath))
	if err != nil {
		return nil, postgres.WrapDBError("get subtree ids", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, postgres.WrapDBError("get subtree ids", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	return ids, nil
}

// HasDeletedAncestor reports whether any ancestor of doc is flagged as trashed
func (r *PostgresTreeStore) HasDeletedAncestor(ctx context.Context, doc *models.Document) (bool, error) {
	ancestors := models.AncestorIDs(doc.TreePath)
	if len(ancestors) == 0 {
		return false, nil
	}

	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			WHERE id = ANY($1::uuid[]) AND is_deleted
		)
	`, r.tables.Documents)

	var trashed bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, ancestors).Scan(&trashed); err != nil {
		return false, postgres.WrapDBError("check ancestors", err)
	}
	return trashed, nil
}
