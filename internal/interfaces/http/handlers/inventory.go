// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/inventory"
)

// InventoryHandler handles admin stock endpoints
type InventoryHandler struct {
	ledger *inventory.Ledger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(ledger *inventory.Ledger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// AdjustRequest is a manual stock correction; negative deltas remove stock
type AdjustRequest struct {
	Delta int    `json:"delta" binding:"required"`
	Note  string `json:"note" binding:"max=500"`
}

// AdjustStock handles POST /admin/stocks/:id/adjust
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	variantID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	movement, err := h.ledger.Adjust(c.Request.Context(), variantID, req.Delta, req.Note, adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock adjusted successfully",
		"data":    movement,
	})
}

// GetMovements handles GET /admin/stocks/:id/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	variantID, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	movements, err := h.ledger.Movements(c.Request.Context(), variantID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock movements retrieved successfully",
		"data":    movements,
	})
}
