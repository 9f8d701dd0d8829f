package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aigroupchat/voicechat-be/types"
)

func newProgressServer(t *testing.T, hub *ProgressHub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleProgress(w, r, r.URL.Query().Get("owner_id"))
	}))
	t.Cleanup(server.Close)
	return server
}

func dialProgress(t *testing.T, server *httptest.Server, ownerID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?owner_id=" + ownerID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscriber(t *testing.T, hub *ProgressHub, ownerID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.subscribers[ownerID])
		hub.mu.RUnlock()
		if n > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("subscriber never registered")
}

func TestProgressHub_DeliversEvents(t *testing.T) {
	hub := NewProgressHub(zap.NewNop())
	server := newProgressServer(t, hub)
	conn := dialProgress(t, server, "owner")
	waitForSubscriber(t, hub, "owner")

	hub.Publish("owner", types.IngestProgress{
		DocumentID: "d1",
		Stage:      types.IngestStageParsing,
		Progress:   0.1,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event types.IngestProgress
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "d1", event.DocumentID)
	assert.Equal(t, types.IngestStageParsing, event.Stage)
	assert.InDelta(t, 0.1, event.Progress, 1e-9)
}

func TestProgressHub_ScopedToOwner(t *testing.T) {
	hub := NewProgressHub(zap.NewNop())
	server := newProgressServer(t, hub)
	conn := dialProgress(t, server, "alice")
	waitForSubscriber(t, hub, "alice")

	hub.Publish("bob", types.IngestProgress{DocumentID: "bobs-doc"})
	hub.Publish("alice", types.IngestProgress{DocumentID: "alices-doc"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event types.IngestProgress
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "alices-doc", event.DocumentID)
}

func TestProgressHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewProgressHub(zap.NewNop())
	// Must not block or panic.
	hub.Publish("nobody", types.IngestProgress{DocumentID: "d1"})
}

func TestProgressHub_UnsubscribeOnDisconnect(t *testing.T) {
	hub := NewProgressHub(zap.NewNop())
	server := newProgressServer(t, hub)
	conn := dialProgress(t, server, "owner")
	waitForSubscriber(t, hub, "owner")

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		_, present := hub.subscribers["owner"]
		hub.mu.RUnlock()
		if !present {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("subscriber map never cleaned up")
}

func TestProgressHub_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewProgressHub(zap.NewNop())
	sub := &progressSubscriber{events: make(chan types.IngestProgress, 1)}
	hub.subscribe("owner", sub)
	defer hub.unsubscribe("owner", sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.Publish("owner", types.IngestProgress{DocumentID: "d1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber channel")
	}
}
