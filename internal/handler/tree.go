package handler

import (
	"log/slog"
	"net/http"

	docsysSvc "blockdocs/internal/domain/services/docsystem"
	"blockdocs/internal/httputil"
)

// TreeHandler handles HTTP requests for the document tree
type TreeHandler struct {
	coordinator docsysSvc.DocumentCoordinator
	logger      *slog.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(coordinator docsysSvc.DocumentCoordinator, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{
		coordinator: coordinator,
		logger:      logger,
	}
}

// GetTree returns the nested tree of the user's visible documents
// GET /api/tree
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	tree, err := h.coordinator.GetDocumentTree(r.Context(), userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}
