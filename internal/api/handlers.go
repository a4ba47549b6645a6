package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"backoffice-alerts/internal/events"
	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/metrics"
	"backoffice-alerts/internal/models"
	"backoffice-alerts/internal/notification"
	"backoffice-alerts/internal/purchasing"
)

type Notifications interface {
	List() []models.Notification
	Dismiss(id string) error
	ClearAll() int
}

type NotificationHistory interface {
	GetNotifications(ctx context.Context, limit, offset int) ([]models.Notification, error)
}

type Settings interface {
	InventoryThresholds() models.InventoryThresholds
	OrderThresholds() models.OrderThresholds
	SaveInventoryThresholds(ctx context.Context, t models.InventoryThresholds) error
	SaveOrderThresholds(ctx context.Context, t models.OrderThresholds) error
}

// Trigger starts an out-of-schedule poll; false means one is in flight.
type Trigger interface {
	TriggerNow() bool
}

type Publisher interface {
	Publish(evt events.Event) int
}

type Drafts interface {
	Create() purchasing.View
	Get(id string) (purchasing.View, error)
	List() []purchasing.View
	SelectSupplier(ctx context.Context, id string, supplierID models.EntityID) (purchasing.View, error)
	AddItem(ctx context.Context, id string, item models.PurchaseOrderItem) (purchasing.View, error)
	RemoveItem(ctx context.Context, id string, itemID models.EntityID) (purchasing.View, error)
	Finalize(ctx context.Context, id string) (purchasing.View, error)
	Cancel(ctx context.Context, id string) (purchasing.View, error)
}

// Deps are the services the router exposes. History and WebSocket are
// optional.
type Deps struct {
	Notifications   Notifications
	History         NotificationHistory
	Settings        Settings
	InventoryPoller Trigger
	OrderPoller     Trigger
	Events          Publisher
	Drafts          Drafts
	WebSocket       *notification.WebSocketManager
}

type Handler struct {
	deps    Deps
	logger  *logging.Logger
	origins map[string]bool
}

func NewHandler(deps Deps, logger *logging.Logger, allowedOrigins []string) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Handler{deps: deps, logger: logger, origins: origins}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Notifications.List())
}

func (h *Handler) NotificationHistory(c *gin.Context) {
	if h.deps.History == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Notification log is not configured"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return
	}

	list, err := h.deps.History.GetNotifications(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Errorf("Get notification history failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) DismissNotification(c *gin.Context) {
	id := c.Param("id")
	if err := h.deps.Notifications.Dismiss(id); err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		h.logger.Errorf("Dismiss notification %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to dismiss notification"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ClearNotifications(c *gin.Context) {
	n := h.deps.Notifications.ClearAll()
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}

func (h *Handler) GetInventoryThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Settings.InventoryThresholds())
}

func (h *Handler) PutInventoryThresholds(c *gin.Context) {
	var t models.InventoryThresholds
	if err := c.ShouldBindJSON(&t); err != nil {
		h.logger.Errorf("Invalid request body for inventory thresholds: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.deps.Settings.SaveInventoryThresholds(c.Request.Context(), t); err != nil {
		h.settingsError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.deps.Settings.InventoryThresholds())
}

func (h *Handler) GetOrderThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Settings.OrderThresholds())
}

func (h *Handler) PutOrderThresholds(c *gin.Context) {
	var t models.OrderThresholds
	if err := c.ShouldBindJSON(&t); err != nil {
		h.logger.Errorf("Invalid request body for order thresholds: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.deps.Settings.SaveOrderThresholds(c.Request.Context(), t); err != nil {
		h.settingsError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.deps.Settings.OrderThresholds())
}

func (h *Handler) settingsError(c *gin.Context, err error) {
	if errors.Is(err, models.ErrInvalidThresholds) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save thresholds"})
}

func (h *Handler) CheckInventory(c *gin.Context) {
	h.trigger(c, h.deps.InventoryPoller, "inventory")
}

func (h *Handler) CheckOrders(c *gin.Context) {
	h.trigger(c, h.deps.OrderPoller, "orders")
}

func (h *Handler) trigger(c *gin.Context, p Trigger, name string) {
	if !p.TriggerNow() {
		c.JSON(http.StatusConflict, gin.H{"error": "A " + name + " check is already running"})
		return
	}
	h.logger.Infof("Manual %s check triggered", name)
	c.JSON(http.StatusAccepted, gin.H{"status": "triggered"})
}

func (h *Handler) PublishEvent(c *gin.Context) {
	topic := c.Param("topic")
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	evt, err := events.Decode(topic, body)
	if err != nil {
		if errors.Is(err, events.ErrUnknownTopic) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown event topic"})
			return
		}
		h.logger.Errorf("Invalid %s event: %v", topic, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metrics.EventsReceivedTotal.WithLabelValues(topic, "http").Inc()
	delivered := h.deps.Events.Publish(evt)
	c.JSON(http.StatusAccepted, gin.H{"delivered": delivered})
}
