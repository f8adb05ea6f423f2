package handler

import (
	"context"
	"log/slog"
	"net/http"

	"blockdocs/internal/domain/models/docsystem"
	docsysSvc "blockdocs/internal/domain/services/docsystem"
	"blockdocs/internal/httputil"
	"blockdocs/internal/storage"
)

// TrashHandler handles trash, restore and purge requests
type TrashHandler struct {
	coordinator docsysSvc.DocumentCoordinator
	files       docsysSvc.FileStore
	logger      *slog.Logger
}

// NewTrashHandler creates a new trash handler.
// files receives the object keys released by purges.
func NewTrashHandler(coordinator docsysSvc.DocumentCoordinator, files docsysSvc.FileStore, logger *slog.Logger) *TrashHandler {
	return &TrashHandler{
		coordinator: coordinator,
		files:       files,
		logger:      logger,
	}
}

// ListTrash returns the user's trash, most recently trashed first
// GET /api/trash
func (h *TrashHandler) ListTrash(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	docs, err := h.coordinator.GetTrashedDocuments(r.Context(), userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if docs == nil {
		docs = []docsystem.Document{}
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// TrashDocument moves a document to the trash
// DELETE /api/documents/{id}
func (h *TrashHandler) TrashDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.coordinator.TrashDocument(r.Context(), userID, id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondNoContent(w)
}

// RestoreDocument takes a document out of the trash
// POST /api/documents/{id}/restore
func (h *TrashHandler) RestoreDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	doc, err := h.coordinator.RestoreDocument(r.Context(), userID, id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// PurgeDocument permanently deletes a trashed document and its subtree
// DELETE /api/documents/{id}/purge
func (h *TrashHandler) PurgeDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result, err := h.coordinator.PurgeDocument(r.Context(), userID, id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	h.reclaim(r.Context(), result)
	httputil.RespondJSON(w, http.StatusOK, result)
}

// EmptyTrash purges everything in the user's trash
// DELETE /api/trash
func (h *TrashHandler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.coordinator.EmptyTrash(r.Context(), userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	h.reclaim(r.Context(), result)
	httputil.RespondJSON(w, http.StatusOK, result)
}

// reclaim deletes stored files of purged blocks after the purge committed.
// Request cancellation does not stop it.
func (h *TrashHandler) reclaim(ctx context.Context, result *docsystem.PurgeResult) {
	if result == nil || len(result.FileKeys) == 0 {
		return
	}
	if failed := storage.Reclaim(context.WithoutCancel(ctx), h.files, result.FileKeys, h.logger); failed > 0 {
		h.logger.Warn("some purged files were not reclaimed",
			"failed", failed,
			"total", len(result.FileKeys),
		)
	}
}
