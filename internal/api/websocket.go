package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/afkloop/internal/auth"
	"github.com/nerrad567/afkloop/internal/infrastructure/config"
	"github.com/nerrad567/afkloop/internal/infrastructure/logging"
)

// Frame types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeSnapshot    = "snapshot"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// WSChannelAll subscribes to every channel. A channel ending in ".*"
// subscribes to every channel under that prefix, e.g. "stage.*".
const WSChannelAll = "*"

const (
	// wsSendBuffer is the per-client outbound queue. A full queue drops events.
	wsSendBuffer = 256

	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second
)

// WSMessage is one frame in either direction.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`

	// Seq numbers events hub-wide. A gap on a client means events were dropped.
	Seq       uint64 `json:"seq,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe frames.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// Hub fans telemetry events out to WebSocket clients.
// It implements telemetry.Broadcaster.
type Hub struct {
	logger *logging.Logger
	timing wsTiming
	limit  int64

	seq     atomic.Uint64
	dropped atomic.Uint64

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
}

// wsTiming is the keepalive schedule derived from config.
type wsTiming struct {
	ping time.Duration
	pong time.Duration
}

// readWindow is how long a silent client is kept.
func (t wsTiming) readWindow() time.Duration { return t.ping + t.pong }

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	role auth.Role

	mu     sync.RWMutex
	topics map[string]struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// The token, not the origin, authorises the stream.
		return true
	},
}

// NewHub creates a hub. Non-positive intervals fall back to 30 s ping and
// 10 s pong.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	t := wsTiming{
		ping: time.Duration(cfg.PingInterval) * time.Second,
		pong: time.Duration(cfg.PongTimeout) * time.Second,
	}
	if t.ping <= 0 {
		t.ping = defaultPingInterval
	}
	if t.pong <= 0 {
		t.pong = defaultPongTimeout
	}
	return &Hub{
		logger:  logger,
		timing:  t,
		limit:   int64(cfg.MaxMessageSize),
		clients: make(map[*wsClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// register adds a client. It reports false once the hub is closed.
func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n, "role", c.role)
	return true
}

// unregister removes a client. Only the caller that removes it from the map
// closes its send channel.
func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if present {
		close(c.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// Broadcast sends an event on channel to every matching subscriber.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Seq:       h.seq.Add(1),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("encoding event", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(channel) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(data) {
			h.dropped.Add(1)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many events were discarded for slow clients.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// closeAll disconnects all clients and closes their queues so the write
// goroutines exit.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
}

// handleWebSocket authenticates with the token query parameter (or a bearer
// header), upgrades, and sends the current run state as the first frame.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = bearerToken(r)
	}
	if token == "" {
		writeUnauthorized(w, "token is required")
		return
	}
	claims, err := s.auth.Verify(token)
	if err != nil {
		writeUnauthorized(w, "invalid or expired token")
		return
	}
	if !auth.HasPermission(claims.Role, auth.PermStatusRead) {
		writeForbidden(w, "missing permission "+string(auth.PermStatusRead))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, wsSendBuffer),
		role:   claims.Role,
		topics: make(map[string]struct{}),
	}
	c.reply(WSTypeSnapshot, "", s.state.Status())
	if !s.hub.register(c) {
		conn.Close()
		return
	}

	go c.writeLoop()
	go c.readLoop()
}

// readLoop handles inbound frames until the connection fails.
func (c *wsClient) readLoop() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	window := c.hub.timing.readWindow()
	if c.hub.limit > 0 {
		c.conn.SetReadLimit(c.hub.limit)
	}
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(window))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(window))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(window))
		c.dispatch(data)
	}
}

// writeLoop drains the queue and sends keepalive pings.
func (c *wsClient) writeLoop() {
	t := c.hub.timing
	ticker := time.NewTicker(t.ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		//nolint:errcheck // Best-effort deadline; the write reports failure
		c.conn.SetWriteDeadline(time.Now().Add(t.pong))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close frame
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch handles one inbound frame.
func (c *wsClient) dispatch(data []byte) {
	var msg struct {
		Type    string             `json:"type"`
		ID      string             `json:"id"`
		Payload WSSubscribePayload `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		c.fail("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		channels := msg.Payload.Channels
		if len(channels) == 0 {
			c.fail(msg.ID, msg.Type+" needs a non-empty channels list")
			return
		}
		c.mu.Lock()
		for _, ch := range channels {
			if msg.Type == WSTypeSubscribe {
				c.topics[ch] = struct{}{}
			} else {
				delete(c.topics, ch)
			}
		}
		c.mu.Unlock()
		c.reply(WSTypeResponse, msg.ID, map[string]any{msg.Type + "d": channels})
	case WSTypePing:
		c.reply(WSTypePong, msg.ID, nil)
	default:
		c.fail(msg.ID, "unknown message type: "+msg.Type)
	}
}

// wants reports whether any subscription matches channel.
func (c *wsClient) wants(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for topic := range c.topics {
		if topicMatches(topic, channel) {
			return true
		}
	}
	return false
}

// topicMatches matches "*", an exact name, or a "prefix.*" pattern.
func topicMatches(topic, channel string) bool {
	switch {
	case topic == WSChannelAll, topic == channel:
		return true
	case strings.HasSuffix(topic, ".*"):
		return strings.HasPrefix(channel, strings.TrimSuffix(topic, "*"))
	}
	return false
}

// enqueue queues data without blocking. It reports false when the client is
// too slow or already gone.
func (c *wsClient) enqueue(data []byte) (queued bool) {
	defer func() {
		if recover() != nil {
			queued = false
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *wsClient) reply(msgType, id string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *wsClient) fail(id, message string) {
	c.reply(WSTypeError, id, map[string]string{"message": message})
}
