package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Realtime event kinds pushed to connected clients.
const (
	eventBadgeUnlocked = "badge.unlocked"
	eventLoadAdvisory  = "load.advisory"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by CORS for the REST API; sockets authenticate with the
	// access token instead.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsClient struct {
	userID int
	conn   *websocket.Conn
	mu     sync.Mutex // gorilla conns allow one concurrent writer
}

func (c *wsClient) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// realtimeHub tracks open websocket connections per user.
type realtimeHub struct {
	mu      sync.RWMutex
	clients map[int]map[*wsClient]struct{}
}

func newRealtimeHub() *realtimeHub {
	return &realtimeHub{clients: make(map[int]map[*wsClient]struct{})}
}

func (h *realtimeHub) register(c *wsClient) {
	h.mu.Lock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*wsClient]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.mu.Unlock()
	realtimeConnections.Inc()
}

func (h *realtimeHub) unregister(c *wsClient) {
	h.mu.Lock()
	if set := h.clients[c.userID]; set != nil {
		if _, ok := set[c]; ok {
			delete(set, c)
			realtimeConnections.Dec()
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

func (h *realtimeHub) connections(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// publish sends {"kind": kind, "data": data} to every connection of userID.
// Delivery is best effort: write failures are logged and the client dropped.
func (h *realtimeHub) publish(userID int, kind string, data any) {
	if h == nil {
		return
	}
	msg, err := json.Marshal(gin.H{"kind": kind, "data": data})
	if err != nil {
		log.Printf("[hub.publish] marshal %s: %v", kind, err)
		return
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(msg); err != nil {
			log.Printf("[hub.publish] user %d: %v", userID, err)
			h.unregister(c)
		}
	}
}

// serveWS upgrades an authenticated request to a websocket.
// GET /ws?access_token=... Browsers cannot set headers on websocket requests,
// so the token travels in the query string.
func (h *Handler) serveWS(c *gin.Context) {
	userID, _, err := h.tokens.parse(c.Query("access_token"))
	if err != nil {
		apiError(c, http.StatusUnauthorized, "invalid token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[serveWS] upgrade: %v", err)
		return
	}
	client := &wsClient{userID: userID, conn: conn}
	h.hub.register(client)
	defer h.hub.unregister(client)

	// The socket is push-only; reading just detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
