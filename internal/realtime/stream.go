package realtime

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeTimeout = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

// Stream upgrades the request to a websocket and forwards changes for table
// until the client goes away or ctx ends.
func (h *Hub) Stream(ctx context.Context, w http.ResponseWriter, r *http.Request, table string, originPatterns []string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	sub, err := h.Subscribe(table)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return err
	}
	defer sub.Close()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originPatterns})
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Clients never send data; CloseRead handles control frames and cancels
	// ctx when the peer disconnects.
	ctx = conn.CloseRead(ctx)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return nil
		case change, ok := <-sub.C():
			if !ok {
				conn.Close(websocket.StatusTryAgainLater, "subscriber dropped")
				return nil
			}
			if err := writeChange(ctx, conn, change); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				logger.Debug("realtime write failed", zap.String("table", table), zap.Error(err))
				return err
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return nil
			}
		}
	}
}

func writeChange(ctx context.Context, conn *websocket.Conn, change Change) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, change)
}
