package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/walklog/internal/auth"
	"example.com/walklog/internal/domain"
	"example.com/walklog/internal/persistence"
	"example.com/walklog/internal/realtime"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	maxWalkBody = 4 << 10
)

// listWalks pages through a user's walks. The log is shared, so any user id may be
// read; it defaults to the caller.
func (h *Handler) listWalks(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = auth.UserID(r.Context())
	}

	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxPageSize)
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	walks, next, err := h.deps.Walks.ListByUser(r.Context(), userID, cursor, limit)
	if err != nil {
		h.logger.Error("list walks", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "unable to list walks")
		return
	}

	items := make([]WalkView, 0, len(walks))
	for _, walk := range walks {
		items = append(items, toWalkView(walk))
	}
	writeJSON(w, http.StatusOK, ListWalksResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

// createWalk logs a manual walk for the caller.
func (h *Handler) createWalk(w http.ResponseWriter, r *http.Request) {
	var req CreateWalkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWalkBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	userID := auth.UserID(r.Context())
	walk, err := domain.NewManualWalk(userID, req.Miles, req.Notes, req.Date, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	id, err := h.deps.Editor.Insert(r.Context(), walk)
	if err != nil {
		h.logger.Error("create walk", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "unable to log walk")
		return
	}
	walk.ID = id
	writeJSON(w, http.StatusCreated, toWalkView(walk))
}

// deleteWalk removes one of the caller's walks. Walks of other users look missing.
func (h *Handler) deleteWalk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "not_found", "walk not found")
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.deps.Editor.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, domain.ErrWalkNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "walk not found")
			return
		}
		h.logger.Error("delete walk", zap.String("user_id", userID), zap.String("walk_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "unable to delete walk")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) realtimeStream(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if table != realtime.TableWalks {
		writeError(w, http.StatusNotFound, "not_found", "unknown table")
		return
	}
	if err := h.deps.Realtime.Stream(r.Context(), w, r, table, h.wsOrigins, h.logger); err != nil {
		h.logger.Debug("realtime stream closed", zap.Error(err))
	}
}

// WalkView is the JSON representation of a walk.
type WalkView struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Miles      float64   `json:"miles"`
	Notes      string    `json:"notes,omitempty"`
	Source     string    `json:"source"`
	ExternalID *string   `json:"external_id,omitempty"`
	WalkedAt   time.Time `json:"walked_at"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

// CreateWalkRequest is the body of POST /v1/walks. Date is an optional YYYY-MM-DD day.
type CreateWalkRequest struct {
	Miles float64 `json:"miles"`
	Notes string  `json:"notes"`
	Date  string  `json:"date"`
}

// ListWalksResponse packages list results.
type ListWalksResponse struct {
	Items      []WalkView `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func toWalkView(walk domain.Walk) WalkView {
	return WalkView{
		ID:         walk.ID,
		UserID:     walk.UserID,
		Miles:      walk.Miles,
		Notes:      walk.Notes,
		Source:     walk.Source,
		ExternalID: walk.ExternalID,
		WalkedAt:   walk.WalkedAt,
		CreatedAt:  walk.CreatedAt,
		UpdatedAt:  walk.UpdatedAt,
	}
}
