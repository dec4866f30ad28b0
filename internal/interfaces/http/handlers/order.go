// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/returns"
)

// OrderHandler handles order and return endpoints
type OrderHandler struct {
	orders  *order.Service
	returns *returns.Service
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *order.Service, returnsService *returns.Service) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		returns: returnsService,
	}
}

// GetOrders handles GET /orders
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	response, err := h.orders.ListForUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    response,
	})
}

// GetOrder handles GET /orders/:id. Guests can see the orders their session placed.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := currentBuyer(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	o, err := h.orders.GetForBuyer(c.Request.Context(), id, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// CancelOrder handles POST /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := currentBuyer(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req order.CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	o, err := h.orders.CancelForBuyer(c.Request.Context(), id, orderID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"data":    o,
	})
}

// CreateReturn handles POST /orders/:id/returns
func (h *OrderHandler) CreateReturn(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req returns.CreateRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	rr, err := h.returns.Create(c.Request.Context(), userID, orderID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Return request submitted",
		"data":    rr,
	})
}

// AdminUpdateOrderStatus handles PUT /admin/orders/:id/status
func (h *OrderHandler) AdminUpdateOrderStatus(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req order.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	o, err := h.orders.UpdateStatus(c.Request.Context(), orderID, req.Status, req.Comment, adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated successfully",
		"data":    o,
	})
}

// AdminReviewReturn handles PUT /admin/returns/:id
func (h *OrderHandler) AdminReviewReturn(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	returnID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req returns.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	rr, err := h.returns.Review(c.Request.Context(), returnID, req.Status, req.Response, adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Return request updated",
		"data":    rr,
	})
}
