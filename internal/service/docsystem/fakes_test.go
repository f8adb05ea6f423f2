package docsystem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"blockdocs/internal/domain"
	models "blockdocs/internal/domain/models/docsystem"
	"blockdocs/internal/domain/repositories"

	"github.com/google/uuid"
)

// memDB is an in-memory TreeStore, BlockStore and TrashStore.
// It mirrors the postgres stores closely enough for coordinator tests.
type memDB struct {
	mu     sync.Mutex
	docs   map[string]models.Document
	blocks map[string][]models.Block // document id -> blocks by position

	lockOwnerCalls int
	subtreeCalls   int
	failNext       map[string]error // method name -> error returned once

	// afterGetByID runs once after the next GetByID, outside the lock
	afterGetByID func()
}

func newMemDB() *memDB {
	return &memDB{
		docs:     map[string]models.Document{},
		blocks:   map[string][]models.Block{},
		failNext: map[string]error{},
	}
}

type memSnapshot struct {
	docs   map[string]models.Document
	blocks map[string][]models.Block
}

func (m *memDB) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := memSnapshot{
		docs:   make(map[string]models.Document, len(m.docs)),
		blocks: make(map[string][]models.Block, len(m.blocks)),
	}
	for id, d := range m.docs {
		snap.docs[id] = d
	}
	for id, bs := range m.blocks {
		snap.blocks[id] = append([]models.Block(nil), bs...)
	}
	return snap
}

// clone returns an independent copy serving as a read snapshot
func (m *memDB) clone() *memDB {
	snap := m.snapshot()
	return &memDB{docs: snap.docs, blocks: snap.blocks, failNext: map[string]error{}}
}

type readViewKey struct{}

// readView returns the snapshot installed by fakeTxManager.ExecReadTx, if any
func readView(ctx context.Context) *memDB {
	v, _ := ctx.Value(readViewKey{}).(*memDB)
	return v
}

func (m *memDB) restore(snap memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = snap.docs
	m.blocks = snap.blocks
}

func (m *memDB) injected(method string) error {
	if err, ok := m.failNext[method]; ok {
		delete(m.failNext, method)
		return err
	}
	return nil
}

// doc returns a copy of a stored document (test helper)
func (m *memDB) doc(id string) (models.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	return d, ok
}

// --- TreeStore ---

func (m *memDB) Insert(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("Insert"); err != nil {
		return err
	}

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	parentPath := ""
	if doc.ParentID != nil {
		parent, ok := m.docs[*doc.ParentID]
		if !ok || parent.UserID != doc.UserID || parent.IsDeleted || m.hasDeletedAncestor(parent) {
			return fmt.Errorf("parent document %s: %w", *doc.ParentID, domain.ErrNotFound)
		}
		parentPath = parent.TreePath
	}

	doc.TreePath = models.ChildPath(parentPath, doc.ID)
	doc.Level = models.Depth(doc.TreePath)
	doc.SortOrder = 0
	for _, s := range m.children(doc.UserID, doc.ParentID, "") {
		if s.SortOrder >= doc.SortOrder {
			doc.SortOrder = s.SortOrder + 1
		}
	}

	m.docs[doc.ID] = *doc
	return nil
}

func (m *memDB) GetByID(ctx context.Context, id string) (*models.Document, error) {
	defer m.fireAfterGetByID()
	if v := readView(ctx); v != nil && v != m {
		return v.GetByID(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return &d, nil
}

func (m *memDB) fireAfterGetByID() {
	m.mu.Lock()
	hook := m.afterGetByID
	m.afterGetByID = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (m *memDB) LockByID(ctx context.Context, id string) (*models.Document, error) {
	return m.GetByID(ctx, id)
}

func (m *memDB) LockOwner(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockOwnerCalls++
	return m.injected("LockOwner")
}

func (m *memDB) Update(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.docs[doc.ID]
	if !ok {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	stored.Title = doc.Title
	stored.Content = doc.Content
	stored.UpdatedAt = doc.UpdatedAt
	m.docs[doc.ID] = stored
	return nil
}

func (m *memDB) Move(ctx context.Context, doc *models.Document, newParent *models.Document, position *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("Move"); err != nil {
		return err
	}

	var newParentID *string
	parentPath := ""
	if newParent != nil {
		if models.IsSelfOrDescendant(newParent.TreePath, doc.TreePath) {
			return fmt.Errorf("move: %w", domain.ErrCircularReference)
		}
		id := newParent.ID
		newParentID = &id
		parentPath = newParent.TreePath
	}

	oldPath := doc.TreePath
	newPath := models.ChildPath(parentPath, doc.ID)
	for id, d := range m.docs {
		if d.UserID != doc.UserID || id == doc.ID {
			continue
		}
		if rebased, ok := models.Rebase(d.TreePath, oldPath, newPath); ok {
			d.TreePath = rebased
			d.Level = models.Depth(rebased)
			m.docs[id] = d
		}
	}

	siblings := m.children(doc.UserID, newParentID, doc.ID)
	sortOrder := 0
	if position == nil {
		for _, s := range siblings {
			if s.SortOrder >= sortOrder {
				sortOrder = s.SortOrder + 1
			}
		}
	} else {
		pos := *position
		if pos > len(siblings) {
			pos = len(siblings)
		}
		next := 0
		for i, s := range siblings {
			if i == pos {
				next++
			}
			s.SortOrder = next
			m.docs[s.ID] = s
			next++
		}
		sortOrder = pos
	}

	stored := m.docs[doc.ID]
	stored.ParentID = newParentID
	stored.TreePath = newPath
	stored.Level = models.Depth(newPath)
	stored.SortOrder = sortOrder
	stored.UpdatedAt = time.Now()
	m.docs[doc.ID] = stored
	*doc = stored
	return nil
}

func (m *memDB) GetTree(ctx context.Context, userID string) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := []models.Document{}
	for _, d := range m.docs {
		if d.UserID == userID && !d.IsDeleted && !m.hasDeletedAncestor(d) {
			d.Content = ""
			docs = append(docs, d)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].TreePath != docs[j].TreePath {
			return docs[i].TreePath < docs[j].TreePath
		}
		return docs[i].SortOrder < docs[j].SortOrder
	})
	return docs, nil
}

func (m *memDB) GetSubtreeIDs(ctx context.Context, doc *models.Document) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subtreeCalls++

	ids := m.subtree(doc)
	if len(ids) == 0 {
		return nil, fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	return ids, nil
}

func (m *memDB) HasDeletedAncestor(ctx context.Context, doc *models.Document) (bool, error) {
	if v := readView(ctx); v != nil && v != m {
		return v.HasDeletedAncestor(ctx, doc)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasDeletedAncestor(*doc), nil
}

func (m *memDB) hasDeletedAncestor(doc models.Document) bool {
	for _, id := range models.AncestorIDs(doc.TreePath) {
		if a, ok := m.docs[id]; ok && a.IsDeleted {
			return true
		}
	}
	return false
}

func (m *memDB) subtree(doc *models.Document) []string {
	ids := []string{}
	for id, d := range m.docs {
		if d.UserID == doc.UserID && models.IsSelfOrDescendant(d.TreePath, doc.TreePath) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.docs[ids[i]].TreePath < m.docs[ids[j]].TreePath
	})
	return ids
}

// children returns the parent's children except excludeID, by sort_order
func (m *memDB) children(userID string, parentID *string, excludeID string) []models.Document {
	var out []models.Document
	for id, d := range m.docs {
		if d.UserID != userID || id == excludeID {
			continue
		}
		if (parentID == nil) != (d.ParentID == nil) {
			continue
		}
		if parentID != nil && *parentID != *d.ParentID {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// --- BlockStore ---

func (m *memDB) ReplaceBlocks(ctx context.Context, documentID string, blocks []models.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("ReplaceBlocks"); err != nil {
		return err
	}

	existing := map[string]models.Block{}
	for _, b := range m.blocks[documentID] {
		existing[b.ID] = b
	}
	owner := map[string]string{}
	for docID, bs := range m.blocks {
		for _, b := range bs {
			owner[b.ID] = docID
		}
	}

	now := time.Now()
	seen := map[string]bool{}
	stored := make([]models.Block, len(blocks))
	for i := range blocks {
		b := &blocks[i]
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		if seen[b.ID] {
			return fmt.Errorf("block %s appears twice: %w", b.ID, domain.ErrInvalidBlockContent)
		}
		seen[b.ID] = true
		if other, ok := owner[b.ID]; ok && other != documentID {
			return fmt.Errorf("block id already in use: %w", domain.ErrInvalidBlockContent)
		}

		b.DocumentID = documentID
		b.Position = i
		b.CreatedAt = now
		b.UpdatedAt = now
		if prev, ok := existing[b.ID]; ok {
			b.CreatedAt = prev.CreatedAt
			if prev.Type == b.Type && string(prev.Content) == string(b.Content) && prev.Position == i {
				b.UpdatedAt = prev.UpdatedAt
			}
		}
		stored[i] = *b
	}

	m.blocks[documentID] = stored
	return nil
}

func (m *memDB) GetBlocks(ctx context.Context, documentID string) ([]models.Block, error) {
	if v := readView(ctx); v != nil && v != m {
		return v.GetBlocks(ctx, documentID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Block{}, m.blocks[documentID]...), nil
}

// --- TrashStore ---

func (m *memDB) Trash(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.docs[doc.ID]
	if !ok || stored.IsDeleted {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	now := time.Now()
	stored.IsDeleted = true
	stored.DeletedAt = &now
	m.docs[doc.ID] = stored
	*doc = stored
	return nil
}

func (m *memDB) Restore(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.docs[doc.ID]
	if !ok || !stored.IsDeleted {
		return fmt.Errorf("document %s is not in trash: %w", doc.ID, domain.ErrNotFound)
	}
	stored.IsDeleted = false
	stored.DeletedAt = nil
	m.docs[doc.ID] = stored
	*doc = stored
	return nil
}

func (m *memDB) Purge(ctx context.Context, doc *models.Document, subtreeIDs []string, fileTypes []models.BlockType) ([]models.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[doc.ID]; !ok {
		return nil, fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}

	wanted := map[models.BlockType]bool{}
	for _, t := range fileTypes {
		wanted[t] = true
	}

	fileBlocks := []models.Block{}
	for _, id := range subtreeIDs {
		for _, b := range m.blocks[id] {
			if wanted[b.Type] {
				fileBlocks = append(fileBlocks, b)
			}
		}
	}

	// Cascade: everything under doc goes, whatever ids the caller collected
	for _, id := range m.subtree(doc) {
		delete(m.blocks, id)
		delete(m.docs, id)
	}
	return fileBlocks, nil
}

func (m *memDB) ListTrashed(ctx context.Context, userID string) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := []models.Document{}
	for _, d := range m.docs {
		if d.UserID == userID && d.IsDeleted && !m.hasDeletedAncestor(d) {
			d.Content = ""
			docs = append(docs, d)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].DeletedAt.After(*docs[j].DeletedAt)
	})
	return docs, nil
}

// fakeTxManager runs fn directly and restores the memDB snapshot when fn fails.
// The first `conflicts` calls fail with a retryable error before fn runs.
type fakeTxManager struct {
	db        *memDB
	conflicts int
	calls     int
	readCalls int
}

func (t *fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	t.calls++
	if t.conflicts > 0 {
		t.conflicts--
		return fmt.Errorf("lock owner tree: %w: deadlock detected", domain.ErrRetryable)
	}

	snap := t.db.snapshot()
	if err := fn(ctx); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

// ExecReadTx runs fn against a frozen copy of the memDB
func (t *fakeTxManager) ExecReadTx(ctx context.Context, fn repositories.TxFn) error {
	t.readCalls++
	return fn(context.WithValue(ctx, readViewKey{}, t.db.clone()))
}
