package websocket

import (
	"sync"

	"github.com/aicert/cert_platform/logger"
	"github.com/aicert/cert_platform/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

type conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type client struct {
	mu   sync.Mutex
	conn conn
}

// Hub keeps the latest connection of each user and forwards that user's
// ingestion progress to it.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]*client
	log     logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{clients: make(map[uint]*client), log: log.With("ws")}
}

// Register replaces any earlier connection of the same user.
func (h *Hub) Register(userID uint, c conn) {
	h.mu.Lock()
	old, ok := h.clients[userID]
	h.clients[userID] = &client{conn: c}
	h.mu.Unlock()
	if ok && old.conn != c {
		old.conn.Close()
	}
	h.log.Debug("Client registered: %d", userID)
}

func (h *Hub) Unregister(userID uint, c conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cl, ok := h.clients[userID]; ok && cl.conn == c {
		delete(h.clients, userID)
		h.log.Debug("Client unregistered: %d", userID)
	}
}

func (h *Hub) Connected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// Report implements services.ProgressReporter.
func (h *Hub) Report(userID uint, event services.ProgressEvent) {
	h.mu.RLock()
	cl, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	cl.mu.Lock()
	err := cl.conn.WriteJSON(event)
	cl.mu.Unlock()
	if err != nil {
		h.log.Warn("Error sending progress to client %d: %v", userID, err)
		cl.conn.Close()
		h.Unregister(userID, cl.conn)
	}
}

// UpgradeRequired rejects plain HTTP requests on websocket routes.
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler serves one progress stream. It expects the JWT middleware to have
// stored the token under "user".
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		userID := userIDFromToken(c.Locals("user"))
		if userID == 0 {
			c.Close()
			return
		}

		h.Register(userID, c)
		defer h.Unregister(userID, c)

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})
}

func userIDFromToken(v interface{}) uint {
	token, ok := v.(*jwt.Token)
	if !ok {
		return 0
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0
	}
	id, ok := claims["user_id"].(float64)
	if !ok || id <= 0 {
		return 0
	}
	return uint(id)
}
