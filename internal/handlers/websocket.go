package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

const (
	// clientBuffer is the number of messages queued per client before new ones are dropped
	clientBuffer = 256
	writeWait    = 10 * time.Second
)

// WSMessage is the envelope of every message sent to live tail clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// wsClient is one connected live tail viewer
type wsClient struct {
	conn    *websocket.Conn
	send    chan []byte
	levels  map[models.EventLevel]bool
	sources map[models.ProcessSource]bool
	once    sync.Once
}

func (c *wsClient) wants(event models.ServerEvent) bool {
	if len(c.levels) > 0 && !c.levels[event.Level] {
		return false
	}
	if len(c.sources) > 0 && !c.sources[event.Source] {
		return false
	}
	return true
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// WebSocketHandler streams server events to connected clients as they are enqueued
type WebSocketHandler struct {
	logger           arbor.ILogger
	eventService     interfaces.EventService
	upgrader         websocket.Upgrader
	pingInterval     time.Duration
	serverInstanceID string // clients use it to detect a server restart

	mu             sync.RWMutex
	clients        map[*wsClient]struct{}
	subscriptionID interfaces.SubscriptionID
}

func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger, config common.WebSocketConfig, pingInterval time.Duration) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		eventService:     eventService,
		pingInterval:     pingInterval,
		serverInstanceID: uuid.New().String(),
		clients:          make(map[*wsClient]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(config.AllowedOrigins),
	}

	if eventService != nil {
		id, err := eventService.Subscribe(interfaces.EventServerLog, h.handleServerEvent)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to subscribe live tail to server events")
		} else {
			h.subscriptionID = id
		}
	}

	logger.Debug().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized")
	return h
}

// originChecker allows the listed origins. "*" allows any origin; an empty list
// falls back to the same-host check.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[strings.TrimRight(strings.ToLower(origin), "/")] = true
	}
	return func(r *http.Request) bool {
		if set["*"] {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return set[strings.ToLower(u.Scheme+"://"+u.Host)]
	}
}

// HandleWebSocket handles GET /ws/logs?levels=&sources=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if RequireUser(w, r) == nil {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &wsClient{
		conn:    conn,
		send:    make(chan []byte, clientBuffer),
		levels:  make(map[models.EventLevel]bool),
		sources: make(map[models.ProcessSource]bool),
	}
	for _, level := range splitList(r.URL.Query().Get("levels")) {
		client.levels[models.EventLevel(level)] = true
	}
	for _, source := range splitList(r.URL.Query().Get("sources")) {
		client.sources[models.ProcessSource(source)] = true
	}

	if hello, err := json.Marshal(WSMessage{Type: "hello", Payload: map[string]string{
		"server_instance_id": h.serverInstanceID,
	}}); err == nil {
		client.send <- hello
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Msgf("WebSocket client connected (total: %d)", count)

	common.SafeGo(h.logger, "ws-writer", func() { h.writeLoop(client) })
	h.readLoop(client)
}

// readLoop consumes client frames until the connection drops, then unregisters the client
func (h *WebSocketHandler) readLoop(client *wsClient) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		remaining := len(h.clients)
		h.mu.Unlock()

		client.close()
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", remaining)
	}()

	client.conn.SetReadLimit(4096)
	if h.pingInterval > 0 {
		client.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
		client.conn.SetPongHandler(func(string) error {
			return client.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
		})
	}

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}
	}
}

// writeLoop is the only writer on client.conn
func (h *WebSocketHandler) writeLoop(client *wsClient) {
	var ping <-chan time.Time
	if h.pingInterval > 0 {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}
	defer client.conn.Close()

	for {
		select {
		case data, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Warn().Err(err).Msg("Failed to send to WebSocket client")
				return
			}
		case <-ping:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleServerEvent fans a server event out to every interested client without blocking
func (h *WebSocketHandler) handleServerEvent(ctx context.Context, event interfaces.Event) error {
	record, ok := event.Payload.(models.ServerEvent)
	if !ok {
		h.logger.Warn().Msg("Invalid server event payload type")
		return nil
	}
	h.Broadcast(record)
	return nil
}

// Broadcast sends event to every client whose filter accepts it. Slow clients lose messages.
func (h *WebSocketHandler) Broadcast(event models.ServerEvent) {
	data, err := json.Marshal(WSMessage{Type: "server_event", Payload: event})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal server event message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.wants(event) {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.logger.Debug().Msg("WebSocket client buffer full - message dropped")
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unsubscribes from the event bus and disconnects every client
func (h *WebSocketHandler) Close() {
	if h.eventService != nil && h.subscriptionID != 0 {
		h.eventService.Unsubscribe(interfaces.EventServerLog, h.subscriptionID)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.close()
		delete(h.clients, client)
	}
}
