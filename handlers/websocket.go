package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"smack-integrations/middleware"
	"smack-integrations/models"
	"smack-integrations/store"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	userID     string
	channels   map[string]bool
	channelsMu sync.RWMutex
}

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	store      *store.Store
	mu         sync.RWMutex
}

func NewHub(s *store.Store) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		done:       make(chan struct{}),
		store:      s,
	}
}

func (h *Hub) Run(ctx context.Context) {
	log.Info("websocket hub started")
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			firstConnection := h.connectionsLocked(client.userID) == 0
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()

			log.WithFields(log.Fields{"user_id": client.userID, "clients": total}).Debug("client registered")

			if firstConnection {
				h.store.UpdateUserStatus(client.userID, "online")
				h.BroadcastAll(models.WSMessage{
					Type:    models.WSTypeUserOnline,
					Payload: map[string]string{"user_id": client.userID},
				})
			}

		case client := <-h.unregister:
			h.mu.Lock()
			_, present := h.clients[client]
			if present {
				delete(h.clients, client)
				close(client.send)
			}
			lastConnection := present && h.connectionsLocked(client.userID) == 0
			h.mu.Unlock()

			if lastConnection {
				log.WithField("user_id", client.userID).Debug("last client unregistered")
				h.store.UpdateUserStatus(client.userID, "offline")
				h.BroadcastAll(models.WSMessage{
					Type:    models.WSTypeUserOffline,
					Payload: map[string]string{"user_id": client.userID},
				})
			}
		}
	}
}

// leave queues c for removal. Once Run has returned nothing drains the
// queue, so it gives up instead of blocking.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) connectionsLocked(userID string) int {
	n := 0
	for c := range h.clients {
		if c.userID == userID {
			n++
		}
	}
	return n
}

// Connections reports how many sockets a user has open.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.connectionsLocked(userID)
}

// fanout queues data on every client accepted by match. Clients whose
// buffer is full are dropped.
func (h *Hub) fanout(data []byte, match func(*Client) bool) int {
	sent := 0
	var stale []*Client

	h.mu.RLock()
	for client := range h.clients {
		if !match(client) {
			continue
		}
		select {
		case client.send <- data:
			sent++
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	if len(stale) > 0 {
		h.mu.Lock()
		for _, client := range stale {
			if _, ok := h.clients[client]; ok {
				log.WithField("user_id", client.userID).Warn("client buffer full, dropping")
				close(client.send)
				delete(h.clients, client)
			}
		}
		h.mu.Unlock()
	}
	return sent
}

func (h *Hub) BroadcastToChannel(channelID string, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Error("marshal websocket message")
		return
	}

	sent := h.fanout(data, func(c *Client) bool { return c.isSubscribed(channelID) })
	log.WithFields(log.Fields{"channel_id": channelID, "type": msg.Type, "sent": sent}).Debug("broadcast to channel")
}

func (h *Hub) BroadcastAll(msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Error("marshal websocket message")
		return
	}
	h.fanout(data, func(*Client) bool { return true })
}

func (h *Hub) SendToUser(userID string, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Error("marshal websocket message")
		return
	}

	sent := h.fanout(data, func(c *Client) bool { return c.userID == userID })
	log.WithFields(log.Fields{"user_id": userID, "type": msg.Type, "sent": sent}).Debug("sent to user")
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	claims, err := middleware.ValidateToken(token)
	if err != nil {
		log.WithError(err).WithField("remote", r.RemoteAddr).Debug("websocket rejected")
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).WithField("user_id", claims.UserID).Warn("websocket upgrade failed")
		return
	}

	// Subscribe to the user's channels
	channels, err := h.store.GetChannelsForUser(claims.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", claims.UserID).Warn("failed to load channels")
	}
	channelMap := make(map[string]bool)
	for _, ch := range channels {
		channelMap[ch.ID] = true
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		userID:   claims.UserID,
		channels: channelMap,
	}

	welcome := []byte(`{"type":"welcome","payload":{"message":"connected"}}`)
	if err := conn.WriteMessage(websocket.TextMessage, welcome); err != nil {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("user_id", c.userID).Warn("unexpected websocket close")
			}
			return
		}

		var wsMsg models.WSMessage
		if err := json.Unmarshal(message, &wsMsg); err != nil {
			continue
		}

		switch wsMsg.Type {
		case "subscribe":
			if payload, ok := wsMsg.Payload.(map[string]interface{}); ok {
				if channelID, ok := payload["channel_id"].(string); ok {
					c.subscribe(channelID)
				}
			}
		default:
			log.WithFields(log.Fields{"user_id": c.userID, "type": wsMsg.Type}).Debug("unknown websocket message")
		}
	}
}

// subscribe adds channelID to the client's feed. Only members may follow a
// channel.
func (c *Client) subscribe(channelID string) bool {
	member, err := c.hub.store.IsChannelMember(context.Background(), channelID, c.userID)
	if err != nil {
		log.WithError(err).WithField("channel_id", channelID).Warn("subscribe membership check")
		return false
	}
	if !member {
		log.WithFields(log.Fields{"user_id": c.userID, "channel_id": channelID}).Debug("subscribe refused")
		return false
	}

	c.channelsMu.Lock()
	c.channels[channelID] = true
	c.channelsMu.Unlock()
	return true
}

func (c *Client) isSubscribed(channelID string) bool {
	c.channelsMu.RLock()
	defer c.channelsMu.RUnlock()
	return c.channels[channelID]
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
