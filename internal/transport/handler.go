package transport

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Handler upgrades inbound HTTP requests to websocket connections and
// wires each one to the Hub and Router. Grounded on the teacher's
// internal/handlers/ws.go WSHandler (origin-checked upgrader, register +
// spawn read/write pumps).
type Handler struct {
	hub            *Hub
	router         *Router
	allowedOrigins []string
	upgrader       websocket.Upgrader

	// perConnLimit/perConnBurst configure the abuse-guard rate limiter
	// attached to every new connection.
	perConnLimit rate.Limit
	perConnBurst int
}

// NewHandler builds a Handler. corsAllowedOrigins is the same
// comma-separated origin list the HTTP CORS middleware uses.
func NewHandler(hub *Hub, router *Router, corsAllowedOrigins []string) *Handler {
	h := &Handler{
		hub:            hub,
		router:         router,
		allowedOrigins: corsAllowedOrigins,
		perConnLimit:   10,
		perConnBurst:   20,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.allowedOrigins {
		if strings.EqualFold(allowed, originURL.String()) || strings.EqualFold(allowed, originURL.Hostname()) {
			return true
		}
	}
	log.Printf("transport: websocket connection from disallowed origin rejected: %s", origin)
	return false
}

// ServeHTTP upgrades the request and spawns the connection's pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport: websocket upgrade failed: %v", err)
		return
	}

	connID := uuid.NewString()
	limiter := rate.NewLimiter(h.perConnLimit, h.perConnBurst)
	client := NewClient(connID, h.hub, conn, h.router.Route, h.onDisconnect, limiter)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Printf("transport: connection %s established", connID)
}

// onDisconnect runs when a connection's read pump exits. A disconnect may
// belong to a visitor, an authenticated agent, or neither; for a connection
// id they don't recognize, VisitorLeave only re-broadcasts the unchanged
// visitor snapshot and Disconnect does nothing, so it is safe to run both
// unconditionally rather than tracking connection kind here.
func (h *Handler) onDisconnect(connID string) {
	h.router.presenceMgr.VisitorLeave(connID)
	h.router.presenceMgr.Disconnect(context.Background(), connID, connID)
}
