package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || h.origins[origin]
		},
	}
}

// ServeWebSocket upgrades the dashboard connection and keeps it registered
// until the client goes away. Clients only receive.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	if h.deps.WebSocket == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "WebSocket is not enabled"})
		return
	}
	up := h.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	if !h.deps.WebSocket.AddConnection(conn) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many clients"))
		conn.Close()
		return
	}

	go func() {
		defer func() {
			h.deps.WebSocket.RemoveConnection(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
