package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"backoffice-alerts/internal/config"
	"backoffice-alerts/internal/logging"
)

func NewRouter(deps Deps, logger *logging.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	h := NewHandler(deps, logger, cfg.API.CORSOrigins)
	api := r.Group(cfg.API.BasePath)
	{
		// Notifications
		api.GET("/notifications", h.ListNotifications)
		api.GET("/notifications/history", h.NotificationHistory)
		api.DELETE("/notifications/:id", h.DismissNotification)
		api.DELETE("/notifications", h.ClearNotifications)
		api.GET("/ws", h.ServeWebSocket)

		// Settings
		api.GET("/settings/inventory-thresholds", h.GetInventoryThresholds)
		api.PUT("/settings/inventory-thresholds", h.PutInventoryThresholds)
		api.GET("/settings/order-thresholds", h.GetOrderThresholds)
		api.PUT("/settings/order-thresholds", h.PutOrderThresholds)

		// Check now
		api.POST("/alerts/inventory/check", h.CheckInventory)
		api.POST("/alerts/orders/check", h.CheckOrders)

		// CRUD event ingress
		api.POST("/events/:topic", h.PublishEvent)

		// Purchase-order drafts
		api.GET("/purchase-orders/drafts", h.ListDrafts)
		api.POST("/purchase-orders/drafts", h.CreateDraft)
		api.GET("/purchase-orders/drafts/:id", h.GetDraft)
		api.PUT("/purchase-orders/drafts/:id/supplier", h.SelectSupplier)
		api.POST("/purchase-orders/drafts/:id/items", h.AddDraftItem)
		api.DELETE("/purchase-orders/drafts/:id/items/:itemId", h.RemoveDraftItem)
		api.POST("/purchase-orders/drafts/:id/finalize", h.FinalizeDraft)
		api.DELETE("/purchase-orders/drafts/:id", h.CancelDraft)
	}

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
