package notification

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/metrics"
)

const (
	maxClients   = 100
	writeTimeout = 5 * time.Second
)

// WebSocketManager fans notification messages out to connected dashboards.
type WebSocketManager struct {
	connections map[*websocket.Conn]bool
	mutex       sync.Mutex
	logger      *logging.Logger
}

func NewWebSocketManager(logger *logging.Logger) *WebSocketManager {
	return &WebSocketManager{
		connections: make(map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// AddConnection registers conn. It returns false when the client limit is
// reached, in which case the caller should close conn.
func (m *WebSocketManager) AddConnection(conn *websocket.Conn) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if len(m.connections) >= maxClients {
		m.logger.Warnf("Max websocket connections reached (%d)", maxClients)
		return false
	}
	m.connections[conn] = true
	metrics.WebSocketClients.Set(float64(len(m.connections)))
	m.logger.Infof("Added WebSocket connection (total: %d)", len(m.connections))
	return true
}

func (m *WebSocketManager) RemoveConnection(conn *websocket.Conn) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, exists := m.connections[conn]; exists {
		delete(m.connections, conn)
		metrics.WebSocketClients.Set(float64(len(m.connections)))
		m.logger.Infof("Removed WebSocket connection (remaining: %d)", len(m.connections))
	}
}

// Broadcast writes message to every connection, dropping the ones that fail.
func (m *WebSocketManager) Broadcast(message []byte) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for conn := range m.connections {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			m.logger.Errorf("Failed to send WebSocket message: %v", err)
			delete(m.connections, conn)
			conn.Close()
		}
	}
	metrics.WebSocketClients.Set(float64(len(m.connections)))
}

func (m *WebSocketManager) Count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.connections)
}

// CloseAll disconnects every client.
func (m *WebSocketManager) CloseAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for conn := range m.connections {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(m.connections, conn)
	}
	metrics.WebSocketClients.Set(0)
}
