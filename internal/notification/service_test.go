package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/models"
)

type fakeForwarder struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (f *fakeForwarder) Send(ctx context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeForwarder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *fakeRecorder) CreateNotification(ctx context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, n.ID)
	return nil
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func newTestService(t *testing.T, cfg Config, opts ...Option) *Service {
	t.Helper()
	s := New(logging.Discard(), cfg, opts...)
	s.Start()
	t.Cleanup(s.Close)
	return s
}

func TestService_NotifyAndList(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestService(t, Config{}, WithClock(func() time.Time { return at }))

	s.Notify(models.Notification{Message: "first", Severity: models.SeverityInfo})
	s.Notify(models.Notification{Message: "second", Severity: models.SeverityWarning})

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)
	assert.Equal(t, "first", list[1].Message)
	assert.NotEmpty(t, list[0].ID)
	assert.NotEqual(t, list[0].ID, list[1].ID)
	assert.Equal(t, at, list[0].CreatedAt)
}

func TestService_DismissAndClearAll(t *testing.T) {
	s := newTestService(t, Config{})

	s.Notify(models.Notification{ID: "a", Message: "sticky", Severity: models.SeverityDanger})
	s.Notify(models.Notification{ID: "b", Message: "expiring", Severity: models.SeverityInfo, AutoExpire: true, ExpiresAfter: time.Hour})
	s.Notify(models.Notification{ID: "c", Message: "other", Severity: models.SeverityInfo})

	require.NoError(t, s.Dismiss("b"))
	assert.ErrorIs(t, s.Dismiss("b"), ErrNotFound)
	assert.Len(t, s.List(), 2)

	assert.Equal(t, 2, s.ClearAll())
	assert.Empty(t, s.List())
}

func TestService_AutoExpiry(t *testing.T) {
	s := newTestService(t, Config{})

	s.Notify(models.Notification{ID: "sticky", Severity: models.SeverityDanger})
	s.Notify(models.Notification{ID: "short", Severity: models.SeveritySuccess, AutoExpire: true, ExpiresAfter: 20 * time.Millisecond})

	assert.Len(t, s.List(), 2)
	assert.Eventually(t, func() bool { return len(s.List()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "sticky", s.List()[0].ID)
}

func TestService_EvictsOldestBeyondCap(t *testing.T) {
	s := newTestService(t, Config{MaxVisible: 3})
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		s.Notify(models.Notification{ID: id, Severity: models.SeverityInfo})
	}
	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "5", list[0].ID)
	assert.Equal(t, "3", list[2].ID)
}

func TestService_DeliveryForwardsOnlyDanger(t *testing.T) {
	fwd := &fakeForwarder{}
	rec := &fakeRecorder{}
	s := newTestService(t, Config{}, WithForwarder(fwd), WithRecorder(rec))

	s.Notify(models.Notification{Message: "Tomato is OUT OF STOCK! Reorder immediately.", Severity: models.SeverityDanger})
	s.Notify(models.Notification{Message: "Purchase order sent to supplier for Tomato (20 units).", Severity: models.SeverityInfo})

	assert.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, fwd.count())
}

func TestService_NotifyAfterCloseIsIgnored(t *testing.T) {
	s := New(logging.Discard(), Config{})
	s.Start()
	s.Close()
	s.Notify(models.Notification{Message: "late"})
	assert.Empty(t, s.List())
	s.Close()
}

func TestService_WebSocketBroadcast(t *testing.T) {
	ws := NewWebSocketManager(logging.Discard())
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.AddConnection(conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return ws.Count() == 1 }, time.Second, 5*time.Millisecond)

	s := newTestService(t, Config{}, WithWebSocket(ws))
	s.Notify(models.Notification{ID: "n1", Message: "ORD-42 is ready for delivery.", Severity: models.SeveritySuccess})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageCreated, msg.Type)
	require.NotNil(t, msg.Notification)
	assert.Equal(t, "n1", msg.Notification.ID)

	require.NoError(t, s.Dismiss("n1"))
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageRemoved, msg.Type)
	assert.Equal(t, "n1", msg.ID)

	ws.CloseAll()
	assert.Zero(t, ws.Count())
}

func TestService_EvictionBroadcastsRemoval(t *testing.T) {
	ws := NewWebSocketManager(logging.Discard())
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.AddConnection(conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return ws.Count() == 1 }, time.Second, 5*time.Millisecond)

	// No workers: only the synchronous removal messages reach the socket.
	s := New(logging.Discard(), Config{MaxVisible: 2}, WithWebSocket(ws))
	t.Cleanup(s.Close)
	for _, id := range []string{"1", "2", "3", "4"} {
		s.Notify(models.Notification{ID: id, Severity: models.SeverityInfo})
	}

	var removed []string
	for i := 0; i < 2; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, MessageRemoved, msg.Type)
		removed = append(removed, msg.ID)
	}
	assert.Equal(t, []string{"1", "2"}, removed)
	assert.Len(t, s.List(), 2)
}
