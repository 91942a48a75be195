package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rental-platform/backend/internal/auth"
	"github.com/rental-platform/backend/internal/config"
	"github.com/rental-platform/backend/internal/events"
	"go.uber.org/zap"
)

// messageWriter is the write side of a websocket connection.
type messageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// wsClient wraps a connection with a write mutex. The hub subscribes to
// multiple streams, each delivering on its own goroutine, and the websocket
// package forbids concurrent writers on one connection.
type wsClient struct {
	mu   sync.Mutex
	conn messageWriter
}

func (c *wsClient) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub fans the escrow and registry event streams out to connected
// websocket clients.
type WSHub struct {
	cfg        *config.Config
	subscriber events.Subscriber
	log        *zap.Logger
	mu         sync.RWMutex
	clients    map[string][]*wsClient
}

func NewWSHub(cfg *config.Config, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		cfg:        cfg,
		subscriber: subscriber,
		log:        log,
		clients:    make(map[string][]*wsClient),
	}
}

func (h *WSHub) Start(ctx context.Context) {
	for _, stream := range []string{events.StreamEscrow, events.StreamRegistry} {
		_ = h.subscriber.Subscribe(ctx, stream, func(event events.Event) {
			h.broadcast(event)
		})
	}
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, clients := range h.clients {
		for _, client := range clients {
			_ = client.send(data)
		}
	}
}

func (h *WSHub) register(account string, client *wsClient) {
	h.mu.Lock()
	h.clients[account] = append(h.clients[account], client)
	h.mu.Unlock()
}

func (h *WSHub) unregister(account string, client *wsClient) {
	h.mu.Lock()
	clients := h.clients[account]
	for i, c := range clients {
		if c == client {
			h.clients[account] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.clients[account]) == 0 {
		delete(h.clients, account)
	}
	h.mu.Unlock()
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	client := &wsClient{conn: conn}

	tokenStr := conn.Query("token")
	if tokenStr == "" {
		_ = client.send([]byte(`{"error":"missing token"}`))
		conn.Close()
		return
	}

	claims, err := auth.ParseJWT(h.cfg.JWTSecret, tokenStr)
	if err != nil {
		_ = client.send([]byte(`{"error":"invalid token"}`))
		conn.Close()
		return
	}

	account := claims.Account
	h.register(account, client)
	defer func() {
		h.unregister(account, client)
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
