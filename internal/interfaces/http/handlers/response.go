// internal/interfaces/http/handlers/response.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/buyer"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/returns"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// statusFor maps a domain error to the HTTP status it is reported with
func statusFor(err error) int {
	var (
		validation *checkout.ValidationError
		exceeds    *cart.ExceedsStockError
		external   *checkout.ExternalPaymentError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &external):
		return http.StatusBadGateway
	case errors.As(err, &exceeds),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, returns.ErrDuplicateReturnRequest),
		errors.Is(err, order.ErrInvalidStatusTransition),
		errors.Is(err, order.ErrAlreadyPaid),
		errors.Is(err, order.ErrPaidAfterCancel),
		errors.Is(err, returns.ErrInvalidTransition),
		errors.Is(err, returns.ErrOrderNotReturnable):
		return http.StatusConflict
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, returns.ErrReturnNotFound),
		errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, product.ErrVariantNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrExpiredCoupon),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrProductUnavailable),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, returns.ErrReasonRequired),
		errors.Is(err, buyer.ErrInvalidIdentity):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}. Internal failures are not echoed.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var validation *checkout.ValidationError
	if errors.As(err, &validation) {
		body["error"] = "Invalid checkout details"
		body["fields"] = validation.Fields
	}
	if stage, ok := checkout.FailedStage(err); ok {
		body["stage"] = stage
	}
	c.JSON(status, body)
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}

// paramID parses a positive numeric path parameter, answering 400 when it is not one
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return 0, false
	}
	return uint(id), true
}

func queryID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return 0, false
	}
	return uint(id), true
}

// currentBuyer returns the identity resolved by the session middleware
func currentBuyer(c *gin.Context) (buyer.Identity, bool) {
	id, ok := middleware.BuyerFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Buyer session missing",
		})
	}
	return id, ok
}

func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
	}
	return userID, ok
}
