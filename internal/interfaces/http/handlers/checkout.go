// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/checkout"
)

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	checkout *checkout.Service
	baseURL  string
	logger   *logrus.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(svc *checkout.Service, baseURL string, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: svc,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// PlaceOrder handles POST /checkout. HTML form posts are answered with a 303 to the
// next page; JSON callers get the order and the redirect target in the body.
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	asForm := c.ContentType() != gin.MIMEJSON

	id, ok := currentBuyer(c)
	if !ok {
		return
	}

	var req checkout.Request
	if err := c.ShouldBind(&req); err != nil {
		if asForm {
			h.redirectWithError(c, "Invalid checkout details")
			return
		}
		bindError(c, err)
		return
	}

	result, err := h.checkout.PlaceOrder(c.Request.Context(), id, &req)
	if err != nil {
		h.logFailure(c, err)
		if asForm {
			h.redirectWithError(c, formMessage(err))
			return
		}
		respondError(c, err)
		return
	}

	if asForm {
		c.Redirect(http.StatusSeeOther, result.RedirectURL)
		return
	}

	status := http.StatusCreated
	message := "Order placed successfully"
	if result.Outcome == checkout.OutcomeAwaitingExternalPayment {
		status = http.StatusAccepted
		message = "Order created, awaiting payment"
	}
	c.JSON(status, gin.H{
		"message": message,
		"data": gin.H{
			"order":        result.Order,
			"outcome":      result.Outcome,
			"redirect_url": result.RedirectURL,
		},
	})
}

func (h *CheckoutHandler) redirectWithError(c *gin.Context, message string) {
	target := h.baseURL + "/checkout?error=" + url.QueryEscape(message)
	c.Redirect(http.StatusSeeOther, target)
}

func (h *CheckoutHandler) logFailure(c *gin.Context, err error) {
	entry := h.logger.WithError(err).WithField("request_id", c.GetString("request_id"))
	if stage, ok := checkout.FailedStage(err); ok {
		entry = entry.WithField("stage", stage)
	}
	if statusFor(err) >= http.StatusInternalServerError {
		entry.Error("Checkout failed")
		return
	}
	entry.Info("Checkout rejected")
}

// formMessage is the text shown back on the checkout page
func formMessage(err error) string {
	var validation *checkout.ValidationError
	if errors.As(err, &validation) {
		return "Please correct the highlighted fields"
	}
	if statusFor(err) >= http.StatusInternalServerError {
		return "Something went wrong placing your order, please try again"
	}
	var stageErr *checkout.StageError
	if errors.As(err, &stageErr) {
		return stageErr.Err.Error()
	}
	return err.Error()
}
