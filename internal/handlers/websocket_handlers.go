package handlers

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	ws "roomchat/internal/websocket"
	"roomchat/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	sessions *ws.Registry
	upgrader websocket.Upgrader
}

func NewWebSocketHandlers(sessions *ws.Registry, allowedOrigins []string) *WebSocketHandlers {
	return &WebSocketHandlers{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker allows same-host requests, requests without an Origin header
// and the configured origins. "*" allows any origin.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	// Upgrade connection to WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	if _, err := h.sessions.Start(conn, user); err != nil {
		logger.Error("Error starting session for %s: %v", user.ID, err)
		conn.Close()
	}
}
