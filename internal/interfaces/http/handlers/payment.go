// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
)

const maxWebhookBody = 64 << 10

// WebhookVerifier authenticates provider callbacks
type WebhookVerifier interface {
	ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error)
}

// PaymentHandler handles the hosted payment page callbacks
type PaymentHandler struct {
	checkout *checkout.Service
	webhooks WebhookVerifier
	baseURL  string
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(svc *checkout.Service, webhooks WebhookVerifier, baseURL string, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		checkout: svc,
		webhooks: webhooks,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// Success handles GET /payment/success?order_id=. The provider may send the buyer
// back more than once; every visit lands on the confirmation page.
func (h *PaymentHandler) Success(c *gin.Context) {
	orderID, ok := queryID(c, "order_id")
	if !ok {
		return
	}

	o, _, err := h.checkout.ConfirmPayment(c.Request.Context(), orderID)
	if err != nil {
		h.logger.WithError(err).WithField("order_id", orderID).Warn("Payment success callback failed")
		if wantsJSON(c) {
			respondError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, h.baseURL+"/cart?payment=failed")
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Payment confirmed",
			"data":    o,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("%s/orders/%d/confirmation", h.baseURL, o.ID))
}

// Cancel handles GET /payment/cancel?order_id=
func (h *PaymentHandler) Cancel(c *gin.Context) {
	orderID, ok := queryID(c, "order_id")
	if !ok {
		return
	}

	o, err := h.checkout.CancelPayment(c.Request.Context(), orderID)
	if errors.Is(err, order.ErrAlreadyPaid) {
		// The webhook won the race; the order stands.
		if wantsJSON(c) {
			respondError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("%s/orders/%d/confirmation", h.baseURL, orderID))
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("order_id", orderID).Warn("Payment cancel callback failed")
		if wantsJSON(c) {
			respondError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, h.baseURL+"/cart?payment=failed")
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Payment cancelled",
			"data":    o,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, h.baseURL+"/cart?payment=cancelled")
}

// StripeWebhook handles POST /webhooks/stripe
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	event, err := h.webhooks.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.WithError(err).Warn("Rejected payment webhook")
		status := http.StatusBadRequest
		if errors.Is(err, payment.ErrNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error": "Invalid webhook",
		})
		return
	}

	if !event.Completed() {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	_, changed, err := h.checkout.ConfirmPayment(c.Request.Context(), event.OrderID)
	if errors.Is(err, order.ErrPaidAfterCancel) {
		c.JSON(http.StatusOK, gin.H{"received": true, "refund_required": true})
		return
	}
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"order_id":   event.OrderID,
			"session_id": event.SessionID,
		}).Error("Failed to confirm payment from webhook")
		// 4xx stops provider retries for orders that can never be confirmed.
		status := statusFor(err)
		if status < http.StatusInternalServerError {
			c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
			return
		}
		c.JSON(status, gin.H{"error": "Failed to confirm payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "confirmed": changed})
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), gin.MIMEJSON)
}
