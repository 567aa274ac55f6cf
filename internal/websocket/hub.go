package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tickpulse/internal/infrastructure"
	"tickpulse/pkg/contracts/events"
)

// TypeConnection is sent to a client right after it registers
const TypeConnection = events.TypeConnection

// Message is the envelope of every frame sent to clients
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Options tunes client keep-alive
type Options struct {
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

// DefaultOptions pings every 54s and drops a peer silent for 60s
func DefaultOptions() Options {
	return Options{
		PingPeriod: 54 * time.Second,
		PongWait:   60 * time.Second,
		WriteWait:  10 * time.Second,
		SendBuffer: 256,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	return o
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	opts    Options
	metrics *infrastructure.Metrics
	logger  *slog.Logger

	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	messagesSent atomic.Int64
	dropped      atomic.Int64
}

// NewHub creates a hub. metrics and logger may be nil.
func NewHub(opts Options, metrics *infrastructure.Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		opts:       opts.withDefaults(),
		metrics:    metrics,
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine; calling it twice is a no-op
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			ctx := client.context()
			h.metrics.AddWebSocketClients(ctx, 1)
			h.logger.InfoContext(ctx, "Client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))

			if data, err := h.encode(TypeConnection, events.Connection{
				Status:   "connected",
				ClientID: client.id,
			}); err == nil {
				select {
				case client.send <- data:
				default:
				}
			}

		case client := <-h.unregister:
			h.remove(client, "closed")

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			for _, c := range clients {
				select {
				case c.send <- message:
					h.messagesSent.Add(1)
				default:
					h.remove(c, "send buffer full")
				}
			}
		}
	}
}

// remove drops client and closes its send channel; only the hub loop calls it
func (h *Hub) remove(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.AddWebSocketClients(ctx, -1)
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
		slog.Int("total_clients", count))
}

func (h *Hub) encode(messageType string, data interface{}) ([]byte, error) {
	payload, err := json.Marshal(Message{Type: messageType, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("message_type", messageType),
			slog.String("error", err.Error()))
	}
	return payload, err
}

// Broadcast queues an event for every connected client. It never blocks:
// when the queue is full the event is dropped and logged.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	payload, err := h.encode(messageType, data)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.dropped.Add(1)
		h.logger.Warn("Broadcast queue full, dropping message", slog.String("message_type", messageType))
	}
}

// Register adds a client; it blocks until the hub loop accepts it
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub counters for diagnostics
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"active_clients":   len(h.clients),
		"messages_sent":    h.messagesSent.Load(),
		"messages_dropped": h.dropped.Load(),
		"broadcast_queue":  len(h.broadcast),
	}
}

// Stop ends the hub loop and disconnects every client
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
		h.metrics.AddWebSocketClients(context.Background(), -1)
	}
	h.logger.Info("Hub stopped")
}
