package docsystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blockdocs/internal/blocktypes"
	"blockdocs/internal/config"
	"blockdocs/internal/domain"
	models "blockdocs/internal/domain/models/docsystem"
	"blockdocs/internal/domain/repositories"
	docsysRepo "blockdocs/internal/domain/repositories/docsystem"
	"blockdocs/internal/domain/services"
	docsysSvc "blockdocs/internal/domain/services/docsystem"
	"blockdocs/internal/service/docsystem/sanitizer"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig bounds how a transaction that lost a lock race is retried
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the retry policy used by the server
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      config.DefaultTxMaxRetries,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

// documentCoordinator implements the DocumentCoordinator interface
type documentCoordinator struct {
	treeStore  docsysRepo.TreeStore
	blockStore docsysRepo.BlockStore
	trashStore docsysRepo.TrashStore
	txManager  repositories.TransactionManager
	authorizer services.DocumentAuthorizer
	richText   docsysSvc.RichTextValidator
	blockTypes *blocktypes.Registry
	titles     *sanitizer.TitleSanitizer
	retry      RetryConfig
	logger     *slog.Logger
}

// NewDocumentCoordinator creates a new document coordinator
func NewDocumentCoordinator(
	treeStore docsysRepo.TreeStore,
	blockStore docsysRepo.BlockStore,
	trashStore docsysRepo.TrashStore,
	txManager repositories.TransactionManager,
	authorizer services.DocumentAuthorizer,
	richText docsysSvc.RichTextValidator,
	blockTypes *blocktypes.Registry,
	retry RetryConfig,
	logger *slog.Logger,
) docsysSvc.DocumentCoordinator {
	return &documentCoordinator{
		treeStore:  treeStore,
		blockStore: blockStore,
		trashStore: trashStore,
		txManager:  txManager,
		authorizer: authorizer,
		richText:   richText,
		blockTypes: blockTypes,
		titles:     sanitizer.NewTitleSanitizer(),
		retry:      retry,
		logger:     logger,
	}
}

// CreateDocument creates a root document or a child of an active document
func (s *documentCoordinator) CreateDocument(ctx context.Context, req *docsysSvc.CreateDocumentRequest) (*models.Document, error) {
	// Normalize empty string parent_id to nil for root-level documents
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}
	req.Title = s.titles.Clean(req.Title)

	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.richText.Validate(req.Content); err != nil {
		return nil, fmt.Errorf("document content: %w", err)
	}

	var doc *models.Document
	err := s.withTx(ctx, "create document", func(txCtx context.Context) error {
		if err := s.treeStore.LockOwner(txCtx, req.UserID); err != nil {
			return err
		}

		now := time.Now()
		doc = &models.Document{
			UserID:    req.UserID,
			ParentID:  req.ParentID,
			Title:     req.Title,
			Content:   req.Content,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.treeStore.Insert(txCtx, doc)
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.logger.Info("document created",
		"id", doc.ID,
		"user_id", doc.UserID,
		"parent_id", doc.ParentID,
		"level", doc.Level,
		"sort_order", doc.SortOrder,
	)

	return doc, nil
}

// UpdateDocumentWithBlocks saves title, legacy content and the complete block list in one transaction
func (s *documentCoordinator) UpdateDocumentWithBlocks(ctx context.Context, req *docsysSvc.UpdateDocumentRequest) (*models.DocumentWithBlocks, error) {
	req.Title = s.titles.Clean(req.Title)

	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.richText.Validate(req.Content); err != nil {
		return nil, fmt.Errorf("document content: %w", err)
	}
	blocks, err := s.buildBlocks(req.Blocks)
	if err != nil {
		return nil, fmt.Errorf("update document %s: %w", req.DocumentID, err)
	}

	var result *models.DocumentWithBlocks
	err = s.withTx(ctx, "update document", func(txCtx context.Context) error {
		// Row lock serializes concurrent saves of the same document
		doc, err := s.loadOwned(txCtx, req.UserID, req.DocumentID)
		if err != nil {
			return err
		}
		if err := s.ensureActive(txCtx, doc); err != nil {
			return err
		}

		doc.Title = req.Title
		doc.Content = req.Content
		doc.UpdatedAt = time.Now()
		if err := s.treeStore.Update(txCtx, doc); err != nil {
			return err
		}

		// ReplaceBlocks fills ids in place; a retried attempt starts from the request again
		if err := s.blockStore.ReplaceBlocks(txCtx, doc.ID, cloneBlocks(blocks)); err != nil {
			return err
		}
		stored, err := s.blockStore.GetBlocks(txCtx, doc.ID)
		if err != nil {
			return err
		}

		result = &models.DocumentWithBlocks{Document: *doc, Blocks: stored}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update document %s: %w", req.DocumentID, err)
	}

	s.logger.Info("document updated",
		"id", result.ID,
		"user_id", req.UserID,
		"blocks", len(result.Blocks),
	)

	return result, nil
}

// MoveDocument re-parents a document (nil parent = root) at an optional sibling position
func (s *documentCoordinator) MoveDocument(ctx context.Context, req *docsysSvc.MoveDocumentRequest) (*models.Document, error) {
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}

	if err := s.validateMoveRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var doc *models.Document
	var oldParentID *string
	err := s.withTx(ctx, "move document", func(txCtx context.Context) error {
		if err := s.treeStore.LockOwner(txCtx, req.UserID); err != nil {
			return err
		}

		var err error
		doc, err = s.loadVisible(txCtx, req.UserID, req.DocumentID)
		if err != nil {
			return err
		}
		if err := s.ensureActive(txCtx, doc); err != nil {
			return err
		}
		oldParentID = doc.ParentID

		var parent *models.Document
		if req.ParentID != nil {
			parent, err = s.loadParent(txCtx, req.UserID, *req.ParentID)
			if err != nil {
				return err
			}
		}

		return s.treeStore.Move(txCtx, doc, parent, req.Position)
	})
	if err != nil {
		return nil, fmt.Errorf("move document %s: %w", req.DocumentID, err)
	}

	s.logger.Info("document moved",
		"id", doc.ID,
		"user_id", req.UserID,
		"from_parent_id", oldParentID,
		"to_parent_id", doc.ParentID,
		"sort_order", doc.SortOrder,
		"level", doc.Level,
	)

	return doc, nil
}

// GetDocumentWithBlocks loads a document and its blocks from one snapshot.
// Trashed documents, including ones under a trashed ancestor, are only
// returned when includeDeleted is set. A document of another user is not found.
func (s *documentCoordinator) GetDocumentWithBlocks(ctx context.Context, userID, documentID string, includeDeleted bool) (*models.DocumentWithBlocks, error) {
	var result *models.DocumentWithBlocks
	err := s.txManager.ExecReadTx(ctx, func(txCtx context.Context) error {
		doc, err := s.treeStore.GetByID(txCtx, documentID)
		if err != nil {
			return err
		}
		if err := s.authorizer.CanViewDocument(txCtx, userID, doc); err != nil {
			return err
		}
		if !includeDeleted {
			if err := s.ensureActive(txCtx, doc); err != nil {
				return err
			}
		}

		blocks, err := s.blockStore.GetBlocks(txCtx, documentID)
		if err != nil {
			return err
		}

		result = &models.DocumentWithBlocks{Document: *doc, Blocks: blocks}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}

	return result, nil
}

// GetDocumentTree returns the user's visible documents nested by parent
func (s *documentCoordinator) GetDocumentTree(ctx context.Context, userID string) ([]*models.TreeNode, error) {
	docs, err := s.treeStore.GetTree(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get document tree: %w", err)
	}

	tree := models.BuildTree(docs)

	s.logger.Debug("document tree loaded",
		"user_id", userID,
		"documents", len(docs),
		"roots", len(tree),
	)

	return tree, nil
}

// GetTrashedDocuments returns the flat trash list, most recently trashed first
func (s *documentCoordinator) GetTrashedDocuments(ctx context.Context, userID string) ([]models.Document, error) {
	docs, err := s.trashStore.ListTrashed(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	return docs, nil
}

// TrashDocument moves a document to the trash. Trashing a trashed document is a no-op.
func (s *documentCoordinator) TrashDocument(ctx context.Context, userID, documentID string) error {
	alreadyTrashed := false
	err := s.withTx(ctx, "trash document", func(txCtx context.Context) error {
		alreadyTrashed = false
		doc, err := s.loadOwned(txCtx, userID, documentID)
		if err != nil {
			return err
		}
		if doc.IsDeleted {
			alreadyTrashed = true
			return nil
		}
		return s.trashStore.Trash(txCtx, doc)
	})
	if err != nil {
		return fmt.Errorf("trash document %s: %w", documentID, err)
	}

	if alreadyTrashed {
		s.logger.Debug("document already in trash", "id", documentID, "user_id", userID)
		return nil
	}

	s.logger.Info("document trashed",
		"id", documentID,
		"user_id", userID,
	)
	return nil
}

// RestoreDocument takes a document out of the trash.
// When an ancestor is still trashed, the document is re-parented to the end of the root list.
func (s *documentCoordinator) RestoreDocument(ctx context.Context, userID, documentID string) (*models.Document, error) {
	var doc *models.Document
	movedToRoot := false
	err := s.withTx(ctx, "restore document", func(txCtx context.Context) error {
		movedToRoot = false
		if err := s.treeStore.LockOwner(txCtx, userID); err != nil {
			return err
		}

		var err error
		doc, err = s.loadOwned(txCtx, userID, documentID)
		if err != nil {
			return err
		}
		if !doc.IsDeleted {
			return fmt.Errorf("document %s is not in trash: %w", documentID, domain.ErrNotFound)
		}

		orphaned, err := s.treeStore.HasDeletedAncestor(txCtx, doc)
		if err != nil {
			return err
		}
		if orphaned {
			if err := s.treeStore.Move(txCtx, doc, nil, nil); err != nil {
				return err
			}
			movedToRoot = true
		}

		return s.trashStore.Restore(txCtx, doc)
	})
	if err != nil {
		return nil, fmt.Errorf("restore document %s: %w", documentID, err)
	}

	s.logger.Info("document restored",
		"id", doc.ID,
		"user_id", userID,
		"moved_to_root", movedToRoot,
	)

	return doc, nil
}

// PurgeDocument permanently deletes a trashed document with its subtree and blocks.
// The returned file keys are for the caller to reclaim from object storage.
func (s *documentCoordinator) PurgeDocument(ctx context.Context, userID, documentID string) (*models.PurgeResult, error) {
	var result *models.PurgeResult
	err := s.withTx(ctx, "purge document", func(txCtx context.Context) error {
		if err := s.treeStore.LockOwner(txCtx, userID); err != nil {
			return err
		}

		doc, err := s.loadOwned(txCtx, userID, documentID)
		if err != nil {
			return err
		}
		if !doc.IsDeleted {
			trashed, err := s.treeStore.HasDeletedAncestor(txCtx, doc)
			if err != nil {
				return err
			}
			if !trashed {
				return fmt.Errorf("%w: document %s must be in trash before it can be purged", domain.ErrValidation, documentID)
			}
		}

		result, err = s.purge(txCtx, doc)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("purge document %s: %w", documentID, err)
	}

	s.logger.Info("document purged",
		"id", documentID,
		"user_id", userID,
		"documents", len(result.DocumentIDs),
		"file_keys", len(result.FileKeys),
	)

	return result, nil
}

// EmptyTrash purges every top-level trashed document of the user in one transaction
func (s *documentCoordinator) EmptyTrash(ctx context.Context, userID string) (*models.PurgeResult, error) {
	var result *models.PurgeResult
	var roots int
	err := s.withTx(ctx, "empty trash", func(txCtx context.Context) error {
		if err := s.treeStore.LockOwner(txCtx, userID); err != nil {
			return err
		}

		trashed, err := s.trashStore.ListTrashed(txCtx, userID)
		if err != nil {
			return err
		}
		roots = len(trashed)

		result = &models.PurgeResult{DocumentIDs: []string{}, FileKeys: []string{}}
		for i := range trashed {
			purged, err := s.purge(txCtx, &trashed[i])
			if err != nil {
				return err
			}
			result.DocumentIDs = append(result.DocumentIDs, purged.DocumentIDs...)
			result.FileKeys = append(result.FileKeys, purged.FileKeys...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("empty trash: %w", err)
	}

	s.logger.Info("trash emptied",
		"user_id", userID,
		"trashed_roots", roots,
		"documents", len(result.DocumentIDs),
		"file_keys", len(result.FileKeys),
	)

	return result, nil
}

// purge locks doc's subtree, then deletes it with its blocks
func (s *documentCoordinator) purge(ctx context.Context, doc *models.Document) (*models.PurgeResult, error) {
	ids, err := s.treeStore.GetSubtreeIDs(ctx, doc)
	if err != nil {
		return nil, err
	}
	fileBlocks, err := s.trashStore.Purge(ctx, doc, ids, s.blockTypes.FileTypes())
	if err != nil {
		return nil, err
	}
	return &models.PurgeResult{
		DocumentIDs: ids,
		FileKeys:    s.blockTypes.FileKeys(fileBlocks),
	}, nil
}

// loadOwned locks a document and checks the caller owns it.
// Absent documents are not found; documents of another user are forbidden.
func (s *documentCoordinator) loadOwned(ctx context.Context, userID, documentID string) (*models.Document, error) {
	doc, err := s.treeStore.LockByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizer.CanAccessDocument(ctx, userID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// loadVisible is loadOwned for operations where a foreign document reads as missing
func (s *documentCoordinator) loadVisible(ctx context.Context, userID, documentID string) (*models.Document, error) {
	doc, err := s.treeStore.LockByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizer.CanViewDocument(ctx, userID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// loadParent locks a move target. A parent that is missing, foreign or trashed is not found.
func (s *documentCoordinator) loadParent(ctx context.Context, userID, parentID string) (*models.Document, error) {
	parent, err := s.treeStore.LockByID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("parent document: %w", err)
	}
	if err := s.authorizer.CanAttachTo(ctx, userID, parent); err != nil {
		return nil, err
	}
	if err := s.ensureActive(ctx, parent); err != nil {
		return nil, fmt.Errorf("parent document: %w", err)
	}
	return parent, nil
}

// ensureActive fails with ErrNotFound when doc is trashed or sits under a trashed ancestor
func (s *documentCoordinator) ensureActive(ctx context.Context, doc *models.Document) error {
	if doc.IsDeleted {
		return fmt.Errorf("document %s is in trash: %w", doc.ID, domain.ErrNotFound)
	}
	trashed, err := s.treeStore.HasDeletedAncestor(ctx, doc)
	if err != nil {
		return err
	}
	if trashed {
		return fmt.Errorf("document %s is under a trashed document: %w", doc.ID, domain.ErrNotFound)
	}
	return nil
}

// withTx runs fn in a transaction, retrying attempts that lost a lock race.
// fn must be safe to run more than once. When the retry budget runs out the
// caller gets a *domain.ConflictError.
func (s *documentCoordinator) withTx(ctx context.Context, op string, fn repositories.TxFn) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retry.InitialInterval
	policy.MaxInterval = s.retry.MaxInterval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := s.txManager.ExecTx(ctx, fn)
		if err != nil && !errors.Is(err, domain.ErrRetryable) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(s.retry.MaxRetries+1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.logger.Warn("transaction conflict, retrying",
				"op", op,
				"attempt", attempt,
				"wait", wait,
				"error", err,
			)
		}),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}

	if errors.Is(err, domain.ErrRetryable) {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("%s: concurrent modification, gave up after %d attempts", op, attempt),
			ResourceType: "document",
			Err:          err,
		}
	}
	return err
}

func cloneBlocks(blocks []models.Block) []models.Block {
	out := make([]models.Block, len(blocks))
	copy(out, blocks)
	return out
}
