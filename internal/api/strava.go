package api

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"example.com/walklog/internal/auth"
	"example.com/walklog/internal/domain"
)

// stravaCallback completes the OAuth flow and sends the browser back to the app.
func (h *Handler) stravaCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if denied := q.Get("error"); denied != "" {
		h.logger.Info("strava authorization denied", zap.String("error", denied))
		h.redirectToApp(w, r, "error")
		return
	}

	cred, err := h.deps.Connections.CompleteAuthorization(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		h.logger.Warn("strava authorization failed", zap.Error(err))
		h.redirectToApp(w, r, "error")
		return
	}

	h.logger.Info("strava connected", zap.String("user_id", cred.UserID), zap.Int64("athlete_id", cred.AthleteID))
	h.redirectToApp(w, r, "connected")
}

func (h *Handler) redirectToApp(w http.ResponseWriter, r *http.Request, result string) {
	target := h.deps.AppBaseURL + "/?" + url.Values{"strava": {result}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.deps.Connections.AuthorizationURL(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("issue authorization url", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "unable to start authorization")
		return
	}
	writeJSON(w, http.StatusOK, AuthorizeResponse{URL: authURL})
}

func (h *Handler) connectionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.deps.Connections.Status(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("load connection status", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "unable to load connection")
		return
	}

	resp := ConnectionView{
		Connected:      status.Connected,
		ConnectedAt:    status.ConnectedAt,
		ReauthRequired: status.ReauthRequired,
	}
	if status.Connected {
		athleteID := status.AthleteID
		resp.AthleteID = &athleteID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) disconnect(w http.ResponseWriter, r *http.Request) {
	err := h.deps.Connections.Disconnect(r.Context(), auth.UserID(r.Context()))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, domain.ErrNotConnected):
		writeError(w, http.StatusNotFound, "not_found", "strava not connected")
	default:
		h.logger.Error("disconnect strava", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "unable to disconnect")
	}
}

// AuthorizeResponse carries the Strava consent URL.
type AuthorizeResponse struct {
	URL string `json:"url"`
}

// ConnectionView describes the caller's Strava link.
type ConnectionView struct {
	Connected      bool       `json:"connected"`
	AthleteID      *int64     `json:"athlete_id,omitempty"`
	ConnectedAt    *time.Time `json:"connected_at,omitempty"`
	ReauthRequired bool       `json:"reauth_required"`
}
