package notify

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"slotwise/backend/internal/domain"
)

const (
	sendBuffer   = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 4096
)

type orgMessage struct {
	organizationID string
	data           []byte
}

// Hub tracks WebSocket subscribers and delivers each change only to
// subscribers of the organization it belongs to.
type Hub struct {
	log *slog.Logger

	clients    map[*Client]struct{}
	broadcast  chan orgMessage
	register   chan *Client
	unregister chan *Client

	// done is closed once Run has stopped.
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	upgrader websocket.Upgrader
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:        log.With(slog.String("component", "ws_hub")),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan orgMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Requests reach the hub through the authenticating gateway.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("websocket client connected", slog.String("organization_id", c.organizationID), slog.Int("total", total))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("websocket client disconnected", slog.String("organization_id", c.organizationID), slog.Int("total", total))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if c.organizationID != msg.organizationID {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					// slow consumer
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Notify queues the event for the organization's subscribers. It never blocks;
// a full queue drops the event.
func (h *Hub) Notify(_ context.Context, event domain.ChangeEvent) error {
	data, err := NewMessage(event).Bytes()
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- orgMessage{organizationID: event.OrganizationID, data: data}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and subscribes the connection to organizationID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, organizationID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}
	c := &Client{
		hub:            h,
		conn:           conn,
		organizationID: organizationID,
		send:           make(chan []byte, sendBuffer),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// Client is one subscribed WebSocket connection.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	organizationID string
	send           chan []byte
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only keeps the connection alive; subscribers send nothing meaningful.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket read failed", slog.Any("err", err))
			}
			return
		}
	}
}
