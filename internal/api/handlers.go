// Package api exposes the HTTP surface of the walk log: the Strava webhook,
// the OAuth connect flow and the authenticated walk endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"example.com/walklog/internal/auth"
	"example.com/walklog/internal/domain"
	"example.com/walklog/internal/errtrack"
	"example.com/walklog/internal/subscription"
)

// Reconciler applies a Strava notification to the walk log.
type Reconciler interface {
	Reconcile(ctx context.Context, n domain.Notification) (domain.Outcome, error)
}

// NotificationRecorder keeps an audit trail of received notifications.
type NotificationRecorder interface {
	Record(ctx context.Context, n domain.Notification, outcome domain.Outcome, procErr error) error
}

// Connections manages a user's Strava link.
type Connections interface {
	AuthorizationURL(ctx context.Context, userID string) (string, error)
	CompleteAuthorization(ctx context.Context, code, state string) (*domain.Credential, error)
	Status(ctx context.Context, userID string) (domain.ConnectionStatus, error)
	Disconnect(ctx context.Context, userID string) error
}

// Streamer forwards realtime changes for a table over a websocket.
type Streamer interface {
	Stream(ctx context.Context, w http.ResponseWriter, r *http.Request, table string, originPatterns []string, logger *zap.Logger) error
}

// Deps groups the collaborators used by Handler.
type Deps struct {
	Reconciler    Reconciler
	Notifications NotificationRecorder
	Verifier      subscription.Verifier
	Connections   Connections
	Walks         domain.WalkLister
	Editor        domain.WalkEditor
	Realtime      Streamer
	Auth          auth.Config
	AppBaseURL    string
	CORSOrigins   []string
}

// Option configures optional Handler behaviour.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithNotificationTimeout bounds the best-effort audit write after a webhook is processed.
func WithNotificationTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.recordTimeout = d
		}
	}
}

// Handler coordinates HTTP requests with the reconciliation engine and services.
type Handler struct {
	deps          Deps
	logger        *zap.Logger
	webhookSchema *webhookSchema
	recordTimeout time.Duration
	wsOrigins     []string
}

// NewHandler builds a Handler.
func NewHandler(deps Deps, opts ...Option) *Handler {
	h := &Handler{
		deps:          deps,
		logger:        zap.NewNop(),
		webhookSchema: mustWebhookSchema(),
		recordTimeout: 2 * time.Second,
		wsOrigins:     originHosts(deps.CORSOrigins),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the router serving every endpoint.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(errtrack.Recover(h.logger))
	r.Use(h.requestLogger)
	r.Use(h.cors)

	r.Get("/healthz", healthz)

	r.Post("/strava/webhook", h.receiveWebhook)
	r.Get("/strava/webhook", h.verifySubscription)
	r.Get("/strava/callback", h.stravaCallback)

	bearer := auth.NewMiddleware(h.deps.Auth, nil)
	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(g chi.Router) {
			g.Use(bearer.Wrap)

			g.With(auth.RequireScope(auth.ScopeStravaConnect)).Get("/strava/authorize", h.authorize)
			g.With(auth.RequireScope(auth.ScopeStravaConnect)).Get("/strava/connection", h.connectionStatus)
			g.With(auth.RequireScope(auth.ScopeStravaConnect)).Delete("/strava/connection", h.disconnect)
			g.With(auth.RequireScope(auth.ScopeWalksRead)).Get("/walks", h.listWalks)
			g.With(auth.RequireScope(auth.ScopeWalksWrite)).Post("/walks", h.createWalk)
			g.With(auth.RequireScope(auth.ScopeWalksWrite)).Delete("/walks/{id}", h.deleteWalk)
		})

		wsAuth := bearer
		wsAuth.AllowQueryToken = true
		v1.With(wsAuth.Wrap, auth.RequireScope(auth.ScopeWalksRead)).Get("/realtime/{table}", h.realtimeStream)
	})
	return r
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (h *Handler) cors(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(h.deps.CORSOrigins))
	for _, origin := range h.deps.CORSOrigins {
		allowed[origin] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if _, ok := allowed[origin]; ok && origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// originHosts converts CORS origins into the host patterns the websocket
// handshake matches against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, origin)
	}
	return hosts
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
