package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gatedesk/notifications"
	"gatedesk/store"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// StateMessage tells the client the store has a new version to fetch.
type StateMessage struct {
	Type    string `json:"type"`
	Version uint64 `json:"version"`
}

// NotificationsMessage carries the notification badge counts.
type NotificationsMessage struct {
	Type string `json:"type"`
	notifications.Change
}

// StreamHandler pushes change signals over a WebSocket so the presentation layer re-reads
// state only when something changed.
type StreamHandler struct {
	store         *store.Store
	notifications *notifications.Log
	upgrader      websocket.Upgrader
	logger        *zap.Logger
}

func NewStreamHandler(st *store.Store, log *notifications.Log, allowedOrigins []string, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		store:         st,
		notifications: log,
		logger:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts requests without an Origin header and those from an allowed origin.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

// Stream upgrades the connection and forwards store versions and notification changes until
// the client goes away or the store closes.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("stream upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	states, stopStates := h.store.Subscribe()
	defer stopStates()
	changes, stopChanges := h.notifications.Subscribe()
	defer stopChanges()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(v any) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			h.logger.Debug("stream write failed", zap.Error(err))
			return false
		}
		return true
	}

	if !send(StateMessage{Type: "state", Version: h.store.Snapshot().Version}) ||
		!send(NotificationsMessage{Type: "notifications", Change: h.notifications.Current()}) {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case v, ok := <-states:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if !send(StateMessage{Type: "state", Version: v}) {
				return
			}
		case c, ok := <-changes:
			if !ok {
				return
			}
			if !send(NotificationsMessage{Type: "notifications", Change: c}) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
