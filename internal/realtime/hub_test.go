package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"example.com/walklog/internal/consumer"
	"example.com/walklog/internal/events"
)

func TestHubDeliversOnlyToSubscribedTable(t *testing.T) {
	hub := NewHub(4)
	walks, err := hub.Subscribe(TableWalks)
	require.NoError(t, err)
	other, err := hub.Subscribe("badges")
	require.NoError(t, err)

	n := hub.Publish(Change{Table: TableWalks, Type: ChangeInsert, Record: json.RawMessage(`{"walk_id":"w1"}`)})
	require.Equal(t, 1, n)

	select {
	case change := <-walks.C():
		require.Equal(t, ChangeInsert, change.Type)
		require.JSONEq(t, `{"walk_id":"w1"}`, string(change.Record))
	default:
		t.Fatal("expected change on walks subscription")
	}

	select {
	case change := <-other.C():
		t.Fatalf("unexpected change on badges subscription: %+v", change)
	default:
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(1)
	sub, err := hub.Subscribe(TableWalks)
	require.NoError(t, err)

	hub.Publish(Change{Table: TableWalks, Type: ChangeInsert})
	hub.Publish(Change{Table: TableWalks, Type: ChangeUpdate})

	require.Zero(t, hub.Subscribers(TableWalks))

	first, ok := <-sub.C()
	require.True(t, ok)
	require.Equal(t, ChangeInsert, first.Type)
	_, ok = <-sub.C()
	require.False(t, ok)
}

func TestHubUnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(0)
	sub, err := hub.Subscribe(TableWalks)
	require.NoError(t, err)

	sub.Close()
	sub.Close()
	require.Zero(t, hub.Subscribers(TableWalks))
	require.Zero(t, hub.Publish(Change{Table: TableWalks}))
}

func TestHubCloseRejectsNewSubscribers(t *testing.T) {
	hub := NewHub(0)
	sub, err := hub.Subscribe(TableWalks)
	require.NoError(t, err)

	hub.Close()

	_, ok := <-sub.C()
	require.False(t, ok)
	_, err = hub.Subscribe(TableWalks)
	require.ErrorIs(t, err, ErrClosed)
}

func TestEventHandlerMapsWalkEvents(t *testing.T) {
	hub := NewHub(4)
	sub, err := hub.Subscribe(TableWalks)
	require.NoError(t, err)
	handler := NewEventHandler(hub)

	ctx := context.Background()
	require.NoError(t, handler.Handle(ctx, consumer.Message{EventType: events.WalkLoggedType, Payload: json.RawMessage(`{"walk_id":"a"}`)}))
	require.NoError(t, handler.Handle(ctx, consumer.Message{EventType: events.WalkUpdatedType, Payload: json.RawMessage(`{"walk_id":"a"}`)}))
	require.NoError(t, handler.Handle(ctx, consumer.Message{EventType: events.WalkDeletedType, Payload: json.RawMessage(`{"walk_id":"a"}`)}))
	require.NoError(t, handler.Handle(ctx, consumer.Message{EventType: "badge.awarded", Payload: json.RawMessage(`{}`)}))

	require.Equal(t, ChangeInsert, (<-sub.C()).Type)
	updated := <-sub.C()
	require.Equal(t, ChangeUpdate, updated.Type)
	require.Equal(t, TableWalks, updated.Table)
	require.False(t, updated.Timestamp.IsZero())
	deleted := <-sub.C()
	require.Equal(t, ChangeDelete, deleted.Type)
	require.JSONEq(t, `{"walk_id":"a"}`, string(deleted.Record))

	select {
	case change := <-sub.C():
		t.Fatalf("unexpected change: %+v", change)
	default:
	}
}

func TestStreamForwardsChangesOverWebsocket(t *testing.T) {
	hub := NewHub(4)
	logger := zaptest.NewLogger(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Stream(r.Context(), w, r, TableWalks, nil, logger)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return hub.Subscribers(TableWalks) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(Change{Table: TableWalks, Type: ChangeInsert, Record: json.RawMessage(`{"walk_id":"w9"}`), Timestamp: time.Now().UTC()})

	var got Change
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	require.Equal(t, TableWalks, got.Table)
	require.Equal(t, ChangeInsert, got.Type)
	require.JSONEq(t, `{"walk_id":"w9"}`, string(got.Record))

	conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return hub.Subscribers(TableWalks) == 0 }, 2*time.Second, 10*time.Millisecond)
}
