package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"backoffice-alerts/internal/backend"
	"backoffice-alerts/internal/models"
	"backoffice-alerts/internal/purchasing"
)

func (h *Handler) ListDrafts(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Drafts.List())
}

func (h *Handler) CreateDraft(c *gin.Context) {
	c.JSON(http.StatusCreated, h.deps.Drafts.Create())
}

func (h *Handler) GetDraft(c *gin.Context) {
	v, err := h.deps.Drafts.Get(c.Param("id"))
	if err != nil {
		h.draftError(c, err, v)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) SelectSupplier(c *gin.Context) {
	var req struct {
		SupplierID models.EntityID `json:"supplierId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.SupplierID.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "supplierId is required"})
		return
	}
	v, err := h.deps.Drafts.SelectSupplier(c.Request.Context(), c.Param("id"), req.SupplierID)
	if err != nil {
		h.draftError(c, err, v)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) AddDraftItem(c *gin.Context) {
	var item models.PurchaseOrderItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	v, err := h.deps.Drafts.AddItem(c.Request.Context(), c.Param("id"), item)
	if err != nil {
		h.draftError(c, err, v)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) RemoveDraftItem(c *gin.Context) {
	v, err := h.deps.Drafts.RemoveItem(c.Request.Context(), c.Param("id"), models.EntityID(c.Param("itemId")))
	if err != nil {
		h.draftError(c, err, v)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) FinalizeDraft(c *gin.Context) {
	v, err := h.deps.Drafts.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.draftError(c, err, v)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) CancelDraft(c *gin.Context) {
	v, err := h.deps.Drafts.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.draftError(c, err, v)
		return
	}
	c.JSON(http.StatusOK, v)
}

// draftError maps workflow errors to status codes. The draft is echoed back
// so the dashboard can re-render the unchanged state.
func (h *Handler) draftError(c *gin.Context, err error, v purchasing.View) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, purchasing.ErrDraftNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
	case errors.Is(err, purchasing.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "draft": v})
	case errors.Is(err, purchasing.ErrNoItems), errors.Is(err, purchasing.ErrInvalidItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "draft": v})
	case errors.As(err, &apiErr):
		msg := apiErr.Message
		if msg == "" {
			msg = "Back-office request failed"
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": msg, "draft": v})
	default:
		h.logger.Errorf("Draft operation failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Back-office request failed", "draft": v})
	}
}
