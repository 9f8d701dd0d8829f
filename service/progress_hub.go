package service

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aigroupchat/voicechat-be/types"
)

const (
	progressWriteWait  = 10 * time.Second
	progressPongWait   = 60 * time.Second
	progressPingPeriod = 45 * time.Second
)

// ProgressHub fans ingest progress events out to every websocket
// subscribed to the owning user. Publishing never blocks the pipeline:
// events for a subscriber that cannot keep up are dropped.
type ProgressHub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu          sync.RWMutex
	subscribers map[string]map[*progressSubscriber]struct{}
}

type progressSubscriber struct {
	events chan types.IngestProgress
}

func NewProgressHub(logger *zap.Logger) *ProgressHub {
	return &ProgressHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:      logger,
		subscribers: make(map[string]map[*progressSubscriber]struct{}),
	}
}

// Publish delivers one event to every subscriber of the owner. Slow
// subscribers are skipped, not waited for.
func (h *ProgressHub) Publish(ownerID string, event types.IngestProgress) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers[ownerID] {
		select {
		case sub.events <- event:
		default:
		}
	}
}

// HandleProgress upgrades the request and streams the owner's ingest
// events until the client disconnects.
func (h *ProgressHub) HandleProgress(w http.ResponseWriter, r *http.Request, ownerID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024)
	conn.SetReadDeadline(time.Now().Add(progressPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(progressPongWait))
		return nil
	})

	sub := &progressSubscriber{events: make(chan types.IngestProgress, 16)}
	h.subscribe(ownerID, sub)
	defer h.unsubscribe(ownerID, sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("progress websocket read error", zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(progressPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event := <-sub.events:
			conn.SetWriteDeadline(time.Now().Add(progressWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("progress websocket write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(progressWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *ProgressHub) subscribe(ownerID string, sub *progressSubscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[ownerID] == nil {
		h.subscribers[ownerID] = make(map[*progressSubscriber]struct{})
	}
	h.subscribers[ownerID][sub] = struct{}{}
}

func (h *ProgressHub) unsubscribe(ownerID string, sub *progressSubscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers[ownerID], sub)
	if len(h.subscribers[ownerID]) == 0 {
		delete(h.subscribers, ownerID)
	}
}
