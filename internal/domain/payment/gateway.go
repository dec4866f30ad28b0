// internal/domain/payment/gateway.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
)

// ProviderStripe names the Stripe gateway in payment records
const ProviderStripe = "stripe"

var (
	// ErrNotConfigured is returned when the gateway has no credentials
	ErrNotConfigured = errors.New("payment gateway is not configured")
	// ErrInvalidWebhook is returned for payloads that fail signature verification
	ErrInvalidWebhook = errors.New("invalid webhook payload")
)

// LineItem is one priced line on the hosted payment page
type LineItem struct {
	Name       string
	UnitAmount decimal.Decimal
	Quantity   int
}

// SessionRequest describes the hosted payment session to open for an order
type SessionRequest struct {
	OrderID     uint
	OrderNumber string
	Email       string
	Currency    string
	Lines       []LineItem
	// Total is charged as a single line when it differs from the sum of Lines (coupon orders)
	Total      decimal.Decimal
	SuccessURL string
	CancelURL  string
}

// Session is an opened hosted payment session
type Session struct {
	ID       string
	URL      string
	Provider string
}

// Gateway opens hosted payment sessions and closes abandoned ones
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	ExpireSession(ctx context.Context, sessionID string) error
}

// StripeGateway opens Stripe Checkout Sessions
type StripeGateway struct {
	client        session.Client
	secretKey     string
	webhookSecret string
}

// NewStripeGateway creates a Stripe gateway with its own API client
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		client:        session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
	}
}

// CreateSession opens a Checkout Session in payment mode
func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if g.secretKey == "" {
		return nil, ErrNotConfigured
	}

	params := buildSessionParams(req)
	params.Context = ctx

	sess, err := g.client.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &Session{ID: sess.ID, URL: sess.URL, Provider: ProviderStripe}, nil
}

// ExpireSession closes an open Checkout Session so it can no longer be paid
func (g *StripeGateway) ExpireSession(ctx context.Context, sessionID string) error {
	if g.secretKey == "" {
		return ErrNotConfigured
	}

	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := g.client.Expire(sessionID, params); err != nil {
		return fmt.Errorf("failed to expire checkout session %s: %w", sessionID, err)
	}
	return nil
}

func buildSessionParams(req SessionRequest) *stripe.CheckoutSessionParams {
	orderRef := strconv.FormatUint(uint64(req.OrderID), 10)

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(orderRef),
		LineItems:         lineItems(req),
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.AddMetadata("order_id", orderRef)
	params.AddMetadata("order_number", req.OrderNumber)
	return params
}

func lineItems(req SessionRequest) []*stripe.CheckoutSessionLineItemParams {
	sum := decimal.Zero
	for _, line := range req.Lines {
		sum = sum.Add(line.UnitAmount.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if !req.Total.IsZero() && !req.Total.Equal(sum) {
		return []*stripe.CheckoutSessionLineItemParams{
			lineItem(req.Currency, "Order "+req.OrderNumber, req.Total, 1),
		}
	}

	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, line := range req.Lines {
		items = append(items, lineItem(req.Currency, line.Name, line.UnitAmount, line.Quantity))
	}
	return items
}

func lineItem(currency, name string, amount decimal.Decimal, quantity int) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(currency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
			UnitAmount: stripe.Int64(MinorUnits(amount)),
		},
		Quantity: stripe.Int64(int64(quantity)),
	}
}

// MinorUnits converts a 2-decimal amount to cents
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// WebhookEvent is the part of a provider event the storefront acts on
type WebhookEvent struct {
	Type      string
	SessionID string
	OrderID   uint
}

// Completed reports whether the event confirms a paid checkout
func (e *WebhookEvent) Completed() bool {
	return e.Type == "checkout.session.completed"
}

// ParseWebhook verifies the Stripe-Signature header and extracts the order reference
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if g.webhookSecret == "" {
		return nil, ErrNotConfigured
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	parsed := &WebhookEvent{Type: string(event.Type)}
	if !parsed.Completed() {
		return parsed, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	parsed.SessionID = sess.ID

	id, err := strconv.ParseUint(sess.Metadata["order_id"], 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("%w: missing order_id metadata", ErrInvalidWebhook)
	}
	parsed.OrderID = uint(id)
	return parsed, nil
}
