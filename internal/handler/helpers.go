package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"blockdocs/internal/domain"
	"blockdocs/internal/httputil"
)

// handleError converts domain errors to RFC 7807 responses.
// Internal failures are logged and reported without detail.
func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := domain.StatusCodeOf(err)

	var conflictErr *domain.ConflictError
	switch {
	case errors.As(err, &conflictErr):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Message, map[string]interface{}{
			"resource_type": conflictErr.ResourceType,
			"resource_id":   conflictErr.ResourceID,
			"retryable":     true,
		})
	case status == http.StatusInternalServerError:
		logger.Error("request failed", "error", err)
		httputil.RespondError(w, status, "internal server error")
	default:
		httputil.RespondError(w, status, err.Error())
	}
}

// requireUser returns the authenticated user id or writes a 401
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}

// pathID returns the {id} path value or writes a 400
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document id is required")
		return "", false
	}
	return id, true
}
