package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"zoomx/internal/domain/user"
	"zoomx/internal/general/jwt"
	"zoomx/internal/general/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const authWindow = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSHandler upgrades relay connections and runs first-frame JWT auth.
type WSHandler struct {
	logger *logger.Logger
	jwtMgr *jwt.Manager
	hub    *Hub
	router *Router
}

// NewWSHandler wires the websocket entry point for the relay.
func NewWSHandler(log *logger.Logger, jwtMgr *jwt.Manager, hub *Hub, router *Router) *WSHandler {
	return &WSHandler{logger: log, jwtMgr: jwtMgr, hub: hub, router: router}
}

// RegisterRoutes mounts the relay endpoints on the provided mux.
func (h *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.Connect)
	mux.HandleFunc("GET /relay/health", h.handleHealth)
}

func (h *WSHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	type resp struct {
		Status string `json:"status"`
	}
	_ = json.NewEncoder(w).Encode(resp{Status: "ok"})
}

// Connect handles a relay websocket connection with first-frame JWT auth.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	// 1) Upgrade HTTP -> WS
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}

	// 2) Set auth deadline
	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(authWindow)); err != nil {
		h.logger.Error(r.Context(), "ws_set_deadline_failed", "Failed to set initial read deadline", err, nil)
		h.sendAuthError(conn, "internal server error")
		_ = conn.Close()
		return
	}

	// 3) Auth check on the first frame
	msgType, firstFrame, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			h.logger.Error(r.Context(), "ws_auth_timeout", "Client disconnected before authentication", err, nil)
		} else {
			h.logger.Error(r.Context(), "ws_auth_read_failed", "Failed to read auth message", err, nil)
		}
		h.sendAuthError(conn, "authentication timeout: please send auth message within 5 seconds")
		_ = conn.Close()
		return
	}

	if msgType != websocket.TextMessage {
		h.logger.Error(r.Context(), "ws_auth_invalid_format", "Auth message must be text format", nil, nil)
		h.sendAuthError(conn, "auth message must be in text format")
		_ = conn.Close()
		return
	}

	res, err := jwt.ValidateWSAuth(firstFrame, h.jwtMgr, user.RoleRequester, user.RoleOperator, user.RoleAdmin)
	if err != nil {
		h.logger.Error(r.Context(), "ws_auth_failed", "Invalid auth message or token", err, nil)
		h.sendAuthError(conn, "authentication failed: invalid token")
		_ = conn.Close()
		return
	}

	role := res.Claims.Role
	if !role.Valid() {
		h.logger.Error(r.Context(), "ws_auth_failed", "Token carries an unknown role", nil, nil)
		h.sendAuthError(conn, "authentication failed: unknown role")
		_ = conn.Close()
		return
	}

	// 4) Send authentication success message
	if err := h.sendAuthSuccess(conn, res.Claims.Subject); err != nil {
		h.logger.Error(r.Context(), "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		_ = conn.Close()
		return
	}

	// 5) Reset read deadline after auth; pumps maintain it from here
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))

	client := &Client{
		ID:     uuid.NewString(),
		UserID: res.Claims.Subject,
		Role:   role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h.hub,
		owned:  make(map[string]struct{}),
	}

	h.hub.register <- client

	// detach from the request context; the connection outlives the handshake
	connCtx := context.WithoutCancel(r.Context())
	go client.writePump()
	go client.readPump(connCtx, h.router)
}

// sendAuthError sends an authentication failure frame before the connection
// is torn down.
func (h *WSHandler) sendAuthError(conn *websocket.Conn, message string) {
	errorMsg := map[string]any{
		"type":    "auth_error",
		"error":   message,
		"success": false,
	}
	msgBytes, err := json.Marshal(errorMsg)
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, msgBytes)
}

// sendAuthSuccess confirms authentication to the client.
func (h *WSHandler) sendAuthSuccess(conn *websocket.Conn, userID string) error {
	successMsg := map[string]any{
		"type":      "auth_success",
		"message":   "Authentication successful",
		"success":   true,
		"user_id":   userID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	msgBytes, err := json.Marshal(successMsg)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, msgBytes)
}
