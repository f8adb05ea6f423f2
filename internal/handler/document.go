package handler

import (
	"log/slog"
	"net/http"
	"time"

	docsysSvc "blockdocs/internal/domain/services/docsystem"
	"blockdocs/internal/httputil"
)

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	coordinator docsysSvc.DocumentCoordinator
	logger      *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(coordinator docsysSvc.DocumentCoordinator, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		coordinator: coordinator,
		logger:      logger,
	}
}

// CreateDocument creates a root or child document
// POST /api/documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req docsysSvc.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = userID

	doc, err := h.coordinator.CreateDocument(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// GetDocument returns a document with its blocks
// GET /api/documents/{id}?include_deleted=true
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	doc, err := h.coordinator.GetDocumentWithBlocks(r.Context(), userID, id, httputil.QueryBool(r, "include_deleted"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// UpdateDocument saves title, content and the full block list
// PUT /api/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req docsysSvc.UpdateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.DocumentID = id
	req.UserID = userID

	doc, err := h.coordinator.UpdateDocumentWithBlocks(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// MoveDocument re-parents a document
// POST /api/documents/{id}/move
func (h *DocumentHandler) MoveDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req docsysSvc.MoveDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.DocumentID = id
	req.UserID = userID

	doc, err := h.coordinator.MoveDocument(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// HealthCheck is a simple health check endpoint
func (h *DocumentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}
