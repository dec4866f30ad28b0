// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// CartHandler handles cart and coupon endpoints
type CartHandler struct {
	carts   *cart.Service
	coupons *coupon.Service
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *cart.Service, coupons *coupon.Service) *CartHandler {
	return &CartHandler{
		carts:   carts,
		coupons: coupons,
	}
}

// CartResponse is the cart page: priced lines plus the coupon the buyer applied
type CartResponse struct {
	*cart.View
	Coupon   *coupon.AppliedCoupon `json:"coupon,omitempty"`
	Discount string                `json:"discount"`
	Total    string                `json:"total"`
}

func (h *CartHandler) respond(c *gin.Context, status int, message string, view *cart.View) {
	resp := CartResponse{View: view}
	discount := coupon.Discount(nil, view.Subtotal)

	if id, ok := middleware.BuyerFromContext(c); ok {
		// A broken coupon store only hides the coupon line.
		if applied, err := h.coupons.Applied(c.Request.Context(), id); err == nil && applied != nil {
			resp.Coupon = applied
			discount = coupon.Discount(applied, view.Subtotal)
		}
	}
	resp.Discount = discount.StringFixed(2)
	resp.Total = view.Subtotal.Sub(discount).StringFixed(2)

	c.JSON(status, gin.H{
		"message": message,
		"data":    resp,
	})
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	id, ok := currentBuyer(c)
	if !ok {
		return
	}

	view, err := h.carts.View(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Cart retrieved successfully", view)
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	id, ok := currentBuyer(c)
	if !ok {
		return
	}

	var req cart.AddItemRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	view, err := h.carts.AddItem(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Item added to cart successfully", view)
}

// UpdateCartItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	id, ok := currentBuyer(c)
	if !ok {
		return
	}
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req cart.UpdateItemRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	view, err := h.carts.UpdateQuantity(c.Request.Context(), id, itemID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Cart item updated successfully", view)
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	id, ok := currentBuyer(c)
	if !ok {
		return
	}
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}

	view, err := h.carts.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Item removed from cart successfully", view)
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	id, ok := currentBuyer(c)
	if !ok {
		return
	}

	if err := h.carts.Clear(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
	})
}

// MergeGuestCart handles POST /cart/merge
func (h *CartHandler) MergeGuestCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	token, ok := middleware.SessionTokenFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No guest session to merge",
		})
		return
	}

	view, err := h.carts.MergeGuestCart(c.Request.Context(), token, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Guest cart merged successfully", view)
}

// ApplyCoupon handles POST /coupons/apply
func (h *CartHandler) ApplyCoupon(c *gin.Context) {
	id, ok := currentBuyer(c)
	if !ok {
		return
	}

	var req coupon.ApplyRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	applied, err := h.coupons.Apply(c.Request.Context(), id, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon applied successfully",
		"data":    applied,
	})
}

// RemoveCoupon handles DELETE /coupons/applied
func (h *CartHandler) RemoveCoupon(c *gin.Context) {
	id, ok := currentBuyer(c)
	if !ok {
		return
	}

	if err := h.coupons.Remove(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon removed successfully",
	})
}
