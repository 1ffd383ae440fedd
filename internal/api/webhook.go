package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"example.com/walklog/internal/domain"
	"example.com/walklog/internal/errtrack"
	"example.com/walklog/internal/observability"
	"example.com/walklog/internal/strava"
	"example.com/walklog/internal/subscription"
)

const maxWebhookBody = 64 << 10

// receiveWebhook handles POST /strava/webhook. Every well-formed request gets a
// 200 so Strava never retries into a failure storm; only malformed bodies get a 400.
func (h *Handler) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		observability.RecordWebhookRequest("event", "malformed")
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to read body")
		return
	}
	if err := h.webhookSchema.Validate(body); err != nil {
		observability.RecordWebhookRequest("event", "malformed")
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var event strava.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		observability.RecordWebhookRequest("event", "malformed")
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	n := event.Notification()
	outcome, procErr := h.deps.Reconciler.Reconcile(r.Context(), n)
	if procErr != nil {
		h.logger.Error("reconcile notification",
			zap.Int64("object_id", n.ObjectID),
			zap.Int64("owner_id", n.OwnerID),
			zap.String("aspect_type", n.AspectType),
			zap.Error(procErr),
		)
		errtrack.CaptureException(procErr, map[string]string{
			"component":   "strava_webhook",
			"aspect_type": n.AspectType,
			"object_id":   strconv.FormatInt(n.ObjectID, 10),
		})
	}
	h.recordNotification(r.Context(), n, outcome, procErr)

	observability.RecordWebhookRequest("event", outcome.String())
	writeJSON(w, http.StatusOK, map[string]string{"status": outcome.String()})
}

func (h *Handler) recordNotification(ctx context.Context, n domain.Notification, outcome domain.Outcome, procErr error) {
	if h.deps.Notifications == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.recordTimeout)
	defer cancel()
	if err := h.deps.Notifications.Record(ctx, n, outcome, procErr); err != nil {
		h.logger.Warn("record notification", zap.Int64("object_id", n.ObjectID), zap.Error(err))
	}
}

// verifySubscription handles the GET handshake Strava performs when a push
// subscription is created.
func (h *Handler) verifySubscription(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	challenge, err := h.deps.Verifier.Verify(
		queryParam(q, "hub.mode", "mode"),
		queryParam(q, "hub.verify_token", "verify_token"),
		queryParam(q, "hub.challenge", "challenge"),
	)
	if err != nil {
		if !errors.Is(err, subscription.ErrForbidden) {
			h.logger.Warn("subscription handshake", zap.Error(err))
		}
		observability.RecordWebhookRequest("handshake", "forbidden")
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	observability.RecordWebhookRequest("handshake", "ok")
	writeJSON(w, http.StatusOK, map[string]string{"hub.challenge": challenge})
}

func queryParam(values map[string][]string, names ...string) string {
	for _, name := range names {
		if v := values[name]; len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return ""
}
