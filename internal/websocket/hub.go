package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pokercrm/playtime/internal/domain"
	"github.com/pokercrm/playtime/internal/metrics"
)

// Message types
const (
	MessageTypeLeaderboardUpdate = "leaderboard_update"
	MessageTypeSubscribe         = "subscribe"
	MessageTypeUnsubscribe       = "unsubscribe"
	MessageTypeSubscribed        = "subscribed"
	MessageTypeUnsubscribed      = "unsubscribed"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
	MessageTypeError             = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string        `json:"type"`
	Period    domain.Period `json:"period,omitempty"`
	Data      interface{}   `json:"data,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// LeaderboardSource loads the current leaderboard of a period. It is used to
// greet new subscribers with the board they subscribed to.
type LeaderboardSource func(ctx context.Context, period domain.Period) (*domain.Leaderboard, error)

// Stats describes the hub's current connections
type Stats struct {
	TotalConnections int                   `json:"total_connections"`
	Subscribers      map[domain.Period]int `json:"subscribers"`
}

// Hub maintains the set of active clients and broadcasts leaderboard updates
// to the clients subscribed to each period
type Hub struct {
	// Registered clients by period
	clients map[domain.Period]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Outbound messages
	broadcast chan *Message

	// Subscription requests
	subscribe chan *subscriptionRequest

	// Unsubscription requests
	unsubscribe chan *subscriptionRequest

	source LeaderboardSource

	mu sync.RWMutex

	logger *slog.Logger

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client *Client
	period domain.Period
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[domain.Period]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetLeaderboardSource sets the loader used to greet new subscribers
func (h *Hub) SetLeaderboardSource(source LeaderboardSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.source = source
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			metrics.WSConnectionsActive.Inc()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				h.removeClient(client)
				metrics.WSConnectionsActive.Dec()
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.allClients[req.client]; ok {
				if _, ok := h.clients[req.period]; !ok {
					h.clients[req.period] = make(map[*Client]bool)
				}
				h.clients[req.period][req.client] = true
			}
			source := h.source
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "period", req.period)
			if source != nil {
				go h.greet(req.client, req.period, source)
			}

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.period]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.period)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "period", req.period)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub and disconnects every client
func (h *Hub) Stop() {
	h.cancel()
}

// removeClient drops a client from every subscription. Callers hold mu.
func (h *Hub) removeClient(client *Client) {
	delete(h.allClients, client)
	for period, clients := range h.clients {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.clients, period)
			}
		}
	}
	close(client.send)
}

// closeAll drops every connection. Send channels stay open because read
// pumps may still be writing acks; closing the connection ends both pumps.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.allClients {
		client.conn.Close()
		metrics.WSConnectionsActive.Dec()
	}
	h.allClients = make(map[*Client]bool)
	h.clients = make(map[domain.Period]map[*Client]bool)
}

// greet sends a new subscriber the current board of its period
func (h *Hub) greet(client *Client, period domain.Period, source LeaderboardSource) {
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()

	lb, err := source(ctx, period)
	if err != nil {
		h.logger.Warn("failed to load leaderboard for new subscriber", "period", period, "error", err)
		return
	}

	data, err := json.Marshal(leaderboardMessage(lb))
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.allClients[client]; ok {
		h.deliver(client, data)
	}
}

// broadcastMessage sends a message to all subscribed clients
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	// If message has a period, only send to subscribed clients
	if message.Period != "" {
		for client := range h.clients[message.Period] {
			h.deliver(client, data)
		}
		return
	}

	// Broadcast to all clients
	for client := range h.allClients {
		h.deliver(client, data)
	}
}

func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
		metrics.WSMessagesSent.Inc()
	default:
		// Client's buffer is full, skip
		h.logger.Warn("client buffer full, skipping", "client_id", client.id)
	}
}

func leaderboardMessage(lb *domain.Leaderboard) *Message {
	return &Message{
		Type:      MessageTypeLeaderboardUpdate,
		Period:    lb.Period,
		Data:      lb,
		Timestamp: time.Now(),
	}
}

// BroadcastLeaderboard sends a leaderboard to the clients subscribed to its period
func (h *Hub) BroadcastLeaderboard(lb *domain.Leaderboard) {
	select {
	case h.broadcast <- leaderboardMessage(lb):
	default:
		h.logger.Warn("broadcast channel full, dropping message", "period", lb.Period)
	}
}

// HasSubscribers reports whether any client is subscribed to period
func (h *Hub) HasSubscribers(period domain.Period) bool {
	return h.SubscriberCount(period) > 0
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Subscribe adds a client to a period's subscription
func (h *Hub) Subscribe(client *Client, period domain.Period) {
	select {
	case h.subscribe <- &subscriptionRequest{client: client, period: period}:
	case <-h.ctx.Done():
	}
}

// Unsubscribe removes a client from a period's subscription
func (h *Hub) Unsubscribe(client *Client, period domain.Period) {
	select {
	case h.unsubscribe <- &subscriptionRequest{client: client, period: period}:
	case <-h.ctx.Done():
	}
}

// SubscriberCount returns the number of subscribers for a period
func (h *Hub) SubscriberCount(period domain.Period) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[period])
}

// TotalConnections returns the total number of connected clients
func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}

// Stats returns connection counts for every period
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subscribers := make(map[domain.Period]int, len(domain.Periods))
	for _, period := range domain.Periods {
		subscribers[period] = len(h.clients[period])
	}
	return Stats{
		TotalConnections: len(h.allClients),
		Subscribers:      subscribers,
	}
}
