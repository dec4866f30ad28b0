// internal/domain/checkout/service.go
package checkout

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/buyer"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/pkg/email"
	"github.com/your-org/storefront/internal/pkg/events"
	"gorm.io/gorm"
)

// Outcome is where a successful checkout attempt ended
type Outcome string

const (
	OutcomeCompleted               Outcome = "completed"
	OutcomeAwaitingExternalPayment Outcome = "awaiting_external_payment"
)

// Notifier sends the order confirmation message
type Notifier interface {
	SendOrderConfirmationEmail(ctx context.Context, data email.OrderConfirmationData) error
}

// Deps are the collaborators of the checkout service
type Deps struct {
	DB       *gorm.DB
	Carts    *cart.Service
	Pricer   *pricing.Resolver
	Ledger   *inventory.Ledger
	Orders   *order.Service
	Coupons  *coupon.Service
	Gateway  payment.Gateway
	Notifier Notifier
	Logger   *logrus.Logger
	BaseURL  string
	Currency string
}

// Service places orders from carts and reconciles payment callbacks
type Service struct {
	Deps
}

// NewService creates a new checkout service
func NewService(deps Deps) *Service {
	if deps.Currency == "" {
		deps.Currency = "usd"
	}
	return &Service{Deps: deps}
}

// Result is a placed order and where to send the buyer next
type Result struct {
	Order       *order.Order `json:"order"`
	Outcome     Outcome      `json:"outcome"`
	RedirectURL string       `json:"redirect_url,omitempty"`
}

// pricedLine is a cart line after re-pricing
type pricedLine struct {
	item  *cart.CartItem
	quote pricing.Quote
	total decimal.Decimal
}

// PlaceOrder runs one checkout attempt. Everything from loading the cart to opening the
// payment session happens in a single transaction; any failure rolls all of it back.
func (s *Service) PlaceOrder(ctx context.Context, id buyer.Identity, req *Request) (*Result, error) {
	if err := id.Validate(); err != nil {
		return nil, &StageError{Stage: StageValidating, Err: err}
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, &StageError{Stage: StageValidating, Err: err}
	}

	applied, err := s.Coupons.Applied(ctx, id)
	if err != nil {
		s.Logger.WithError(err).WithField("buyer", id.Key()).Warn("Failed to read applied coupon, continuing without it")
		applied = nil
	}

	var result *Result
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.place(ctx, tx, id, req, applied)
		return err
	})
	if err != nil {
		stage, _ := FailedStage(err)
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"buyer": id.Key(),
			"stage": stage,
		}).Warn("Checkout attempt failed")
		return nil, err
	}

	o := result.Order
	s.Logger.WithFields(logrus.Fields{
		"order_id":       o.ID,
		"order_number":   o.OrderNumber,
		"payment_method": o.PaymentMethod,
		"total":          o.TotalPrice.StringFixed(2),
		"outcome":        result.Outcome,
	}).Info("Order placed")

	s.Orders.Publish(ctx, events.OrderPlaced, o)
	if result.Outcome == OutcomeCompleted {
		s.notify(ctx, o)
		s.forgetCoupon(ctx, id)
	}

	return result, nil
}

func (s *Service) place(ctx context.Context, tx *gorm.DB, id buyer.Identity, req *Request, applied *coupon.AppliedCoupon) (*Result, error) {
	// Validating
	c, err := s.Carts.LoadTx(tx, id)
	if err != nil {
		return nil, &StageError{Stage: StageValidating, Err: err}
	}
	if len(c.Items) == 0 {
		return nil, &StageError{Stage: StageValidating, Err: ErrEmptyCart}
	}

	// Pricing
	lines, subtotal, err := s.price(tx, c)
	if err != nil {
		return nil, &StageError{Stage: StagePricing, Err: err}
	}
	discount, couponCode := s.discount(tx, applied, subtotal)

	// ReservingStock. Rows are locked in variant id order so concurrent checkouts
	// over the same variants queue instead of deadlocking.
	movementIDs := make([]uint, 0, len(lines))
	for _, line := range byVariant(lines) {
		movement, err := s.Ledger.ReserveAndDecrement(tx, line.item.ProductStockID, line.item.Quantity,
			inventory.Reference{Type: inventory.RefCheckout})
		if err != nil {
			return nil, &StageError{Stage: StageReservingStock, Err: err}
		}
		movementIDs = append(movementIDs, movement.ID)
	}

	// Persisting
	o, err := s.persist(tx, id, req, lines, subtotal, discount, couponCode, movementIDs)
	if err != nil {
		return nil, &StageError{Stage: StagePersisting, Err: err}
	}

	// BranchingPayment
	result, err := s.branch(ctx, tx, id, o)
	if err != nil {
		return nil, &StageError{Stage: StageBranchingPayment, Err: err}
	}
	return result, nil
}

func (s *Service) price(tx *gorm.DB, c *cart.Cart) ([]pricedLine, decimal.Decimal, error) {
	snapshot, err := s.Pricer.SnapshotTx(tx)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to load pricing: %w", err)
	}

	subtotal := decimal.Zero
	lines := make([]pricedLine, 0, len(c.Items))
	for i := range c.Items {
		item := &c.Items[i]
		if !item.ProductStock.Product.IsActive || item.ProductStock.Product.DeletedAt.Valid {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", cart.ErrProductUnavailable, item.ProductStock.Product.Name)
		}

		quote := snapshot.Quote(&item.ProductStock)
		total := quote.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(total)
		lines = append(lines, pricedLine{item: item, quote: quote, total: total})
	}
	return lines, subtotal, nil
}

// byVariant returns lines sorted by product stock id, leaving lines untouched
func byVariant(lines []pricedLine) []pricedLine {
	sorted := slices.Clone(lines)
	slices.SortFunc(sorted, func(a, b pricedLine) int {
		return cmp.Compare(a.item.ProductStockID, b.item.ProductStockID)
	})
	return sorted
}

// discount re-validates the applied coupon. A coupon that stopped being valid is dropped.
func (s *Service) discount(tx *gorm.DB, applied *coupon.AppliedCoupon, subtotal decimal.Decimal) (decimal.Decimal, string) {
	if applied == nil {
		return decimal.Zero, ""
	}

	c, err := s.Coupons.ValidateTx(tx, applied.Code)
	if err != nil {
		s.Logger.WithError(err).WithField("coupon", applied.Code).Info("Dropping applied coupon at checkout")
		return decimal.Zero, ""
	}

	amount := coupon.Discount(&coupon.AppliedCoupon{Code: c.Code, Type: c.Type, Value: c.Value}, subtotal)
	if amount.IsZero() {
		return decimal.Zero, ""
	}
	return amount, c.Code
}

func (s *Service) persist(tx *gorm.DB, id buyer.Identity, req *Request, lines []pricedLine,
	subtotal, discount decimal.Decimal, couponCode string, movementIDs []uint) (*order.Order, error) {
	userID, sessionToken := id.Columns()

	o := &order.Order{
		OrderNumber:    "PENDING-" + uuid.NewString(),
		UserID:         userID,
		SessionToken:   sessionToken,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		City:           req.City,
		PostalCode:     req.PostalCode,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		CouponCode:     couponCode,
		TotalPrice:     subtotal.Sub(discount),
		Currency:       s.Currency,
		Status:         order.OrderStatusPending,
		PaymentMethod:  req.PaymentMethod,
		IsPaid:         false,
	}
	if err := tx.Create(o).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	o.OrderNumber = order.FormatOrderNumber(o.CreatedAt, o.ID)
	if err := tx.Model(o).Update("order_number", o.OrderNumber).Error; err != nil {
		return nil, fmt.Errorf("failed to update order number: %w", err)
	}

	items := make([]order.OrderItem, 0, len(lines))
	for _, line := range lines {
		stock := &line.item.ProductStock
		items = append(items, order.OrderItem{
			OrderID:        o.ID,
			ProductID:      stock.ProductID,
			ProductStockID: stock.ID,
			ProductName:    stock.Product.Name,
			ColorName:      stock.Color.Name,
			SizeName:       stock.Size.Name,
			Quantity:       line.item.Quantity,
			UnitPrice:      line.quote.UnitPrice,
			LineTotal:      line.total,
		})
	}
	if err := tx.Create(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}
	o.Items = items

	if err := s.Ledger.LinkMovements(tx, movementIDs, inventory.Reference{Type: inventory.RefOrder, ID: o.ID}); err != nil {
		return nil, err
	}

	var actorID uint
	if userID != nil {
		actorID = *userID
	}
	if err := s.Orders.RecordStatusTx(tx, o.ID, order.OrderStatusPending, "Order placed", actorID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) branch(ctx context.Context, tx *gorm.DB, id buyer.Identity, o *order.Order) (*Result, error) {
	switch o.PaymentMethod {
	case order.PaymentMethodCOD:
		if err := s.Carts.ClearTx(tx, id); err != nil {
			return nil, err
		}
		return &Result{
			Order:       o,
			Outcome:     OutcomeCompleted,
			RedirectURL: s.confirmationURL(o),
		}, nil

	case order.PaymentMethodCard:
		session, err := s.Gateway.CreateSession(ctx, s.sessionRequest(o))
		if err != nil {
			return nil, &ExternalPaymentError{Err: err}
		}

		record := order.Payment{
			OrderID:           o.ID,
			Provider:          session.Provider,
			ProviderSessionID: session.ID,
			Amount:            o.TotalPrice,
			Currency:          o.Currency,
			Status:            order.PaymentStatusPending,
		}
		if err := tx.Create(&record).Error; err != nil {
			return nil, fmt.Errorf("failed to record payment session: %w", err)
		}
		o.Payments = []order.Payment{record}

		return &Result{
			Order:       o,
			Outcome:     OutcomeAwaitingExternalPayment,
			RedirectURL: session.URL,
		}, nil

	default:
		return nil, &ValidationError{Fields: map[string]string{"payment_method": "must be cod or card"}}
	}
}

func (s *Service) sessionRequest(o *order.Order) payment.SessionRequest {
	lines := make([]payment.LineItem, 0, len(o.Items))
	for i := range o.Items {
		item := &o.Items[i]
		lines = append(lines, payment.LineItem{
			Name:       item.DisplayName(),
			UnitAmount: item.UnitPrice,
			Quantity:   item.Quantity,
		})
	}

	return payment.SessionRequest{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Email:       o.Email,
		Currency:    o.Currency,
		Lines:       lines,
		Total:       o.TotalPrice,
		SuccessURL:  fmt.Sprintf("%s/api/v1/payment/success?order_id=%d", s.BaseURL, o.ID),
		CancelURL:   fmt.Sprintf("%s/api/v1/payment/cancel?order_id=%d", s.BaseURL, o.ID),
	}
}

// ConfirmPayment marks a card order paid and clears the buyer's cart. Repeated calls for
// the same order are no-ops; changed reports whether this call did the work.
func (s *Service) ConfirmPayment(ctx context.Context, orderID uint) (*order.Order, bool, error) {
	var (
		o       *order.Order
		changed bool
		late    bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		o, err = s.Orders.LockTx(tx, orderID)
		if err != nil {
			return err
		}
		if o.IsPaid {
			return nil
		}
		if o.PaymentMethod != order.PaymentMethodCard {
			return fmt.Errorf("%w: %s orders are not paid online", order.ErrInvalidStatusTransition, o.PaymentMethod)
		}
		now := time.Now().UTC()
		if o.Status == order.OrderStatusCancelled {
			res := tx.Model(&order.Payment{}).
				Where("order_id = ? AND status IN ?", o.ID, []order.PaymentStatus{order.PaymentStatusPending, order.PaymentStatusCancelled}).
				Updates(map[string]interface{}{
					"status":       order.PaymentStatusRefundRequired,
					"processed_at": now,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to flag payment for refund: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return nil
			}
			late = true
			return s.Orders.RecordStatusTx(tx, o.ID, o.Status, "Payment received after cancellation, refund required", 0)
		}

		if err := tx.Model(o).Updates(map[string]interface{}{
			"is_paid": true,
			"paid_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to mark order paid: %w", err)
		}
		o.IsPaid = true
		o.PaidAt = &now

		if err := tx.Model(&order.Payment{}).
			Where("order_id = ? AND status = ?", o.ID, order.PaymentStatusPending).
			Updates(map[string]interface{}{
				"status":       order.PaymentStatusPaid,
				"processed_at": now,
			}).Error; err != nil {
			return fmt.Errorf("failed to update payment record: %w", err)
		}

		if owner, ok := ownerOf(o); ok {
			if err := s.Carts.ClearTx(tx, owner); err != nil {
				return err
			}
		}

		changed = true
		return s.Orders.RecordStatusTx(tx, o.ID, o.Status, "Payment confirmed", 0)
	})
	if err != nil {
		return nil, false, err
	}

	if o.Status == order.OrderStatusCancelled {
		if late {
			s.Logger.WithFields(logrus.Fields{
				"order_id":     o.ID,
				"order_number": o.OrderNumber,
			}).Error("Payment captured for cancelled order, refund required")
			s.Orders.Publish(ctx, events.RefundRequired, o)
		}
		return o, false, order.ErrPaidAfterCancel
	}

	if !changed {
		s.Logger.WithField("order_id", orderID).Info("Payment already confirmed, ignoring repeat callback")
		return o, false, nil
	}

	s.Logger.WithFields(logrus.Fields{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
	}).Info("Payment confirmed")

	s.Orders.Publish(ctx, events.OrderPaid, o)
	s.notify(ctx, o)
	if owner, ok := ownerOf(o); ok {
		s.forgetCoupon(ctx, owner)
	}
	return o, true, nil
}

// CancelPayment cancels an unpaid card order after the buyer abandons the hosted page.
// Stock is restored; a paid order is left alone.
func (s *Service) CancelPayment(ctx context.Context, orderID uint) (*order.Order, error) {
	var (
		o        *order.Order
		changed  bool
		sessions []order.Payment
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		o, err = s.Orders.LockTx(tx, orderID)
		if err != nil {
			return err
		}
		if o.IsPaid {
			return order.ErrAlreadyPaid
		}
		if o.PaymentMethod != order.PaymentMethodCard {
			return fmt.Errorf("%w: %s orders have no payment session", order.ErrInvalidStatusTransition, o.PaymentMethod)
		}

		changed, err = s.Orders.CancelTx(tx, o, "payment cancelled", 0)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		if err := tx.Where("order_id = ? AND status = ?", o.ID, order.PaymentStatusPending).
			Find(&sessions).Error; err != nil {
			return fmt.Errorf("failed to load payment records: %w", err)
		}
		return tx.Model(&order.Payment{}).
			Where("order_id = ? AND status = ?", o.ID, order.PaymentStatusPending).
			Update("status", order.PaymentStatusCancelled).Error
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.Logger.WithField("order_id", orderID).Info("Payment cancelled, order cancelled and stock restored")
		s.Orders.Publish(ctx, events.OrderCancelled, o)
		s.expireSessions(ctx, sessions)
	}
	return o, nil
}

// expireSessions closes the hosted pages of a cancelled order. A payment that still
// slips through is flagged by ConfirmPayment.
func (s *Service) expireSessions(ctx context.Context, payments []order.Payment) {
	for _, p := range payments {
		if p.ProviderSessionID == "" {
			continue
		}
		if err := s.Gateway.ExpireSession(ctx, p.ProviderSessionID); err != nil {
			s.Logger.WithError(err).WithFields(logrus.Fields{
				"order_id":   p.OrderID,
				"session_id": p.ProviderSessionID,
			}).Warn("Failed to expire payment session")
		}
	}
}

// confirmationURL is where a buyer lands after a completed checkout
func (s *Service) confirmationURL(o *order.Order) string {
	return fmt.Sprintf("%s/orders/%d/confirmation", s.BaseURL, o.ID)
}

func (s *Service) notify(ctx context.Context, o *order.Order) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendOrderConfirmationEmail(ctx, confirmationData(o, s.BaseURL)); err != nil {
		s.Logger.WithError(err).WithField("order_id", o.ID).Warn("Failed to send order confirmation")
	}
}

func (s *Service) forgetCoupon(ctx context.Context, id buyer.Identity) {
	if err := s.Coupons.Remove(ctx, id); err != nil && !errors.Is(err, buyer.ErrInvalidIdentity) {
		s.Logger.WithError(err).WithField("buyer", id.Key()).Warn("Failed to clear applied coupon")
	}
}

// ownerOf rebuilds the identity that placed o
func ownerOf(o *order.Order) (buyer.Identity, bool) {
	switch {
	case o.UserID != nil:
		return buyer.ForUser(*o.UserID), true
	case o.SessionToken != nil && *o.SessionToken != "":
		return buyer.ForSession(*o.SessionToken), true
	default:
		return buyer.Identity{}, false
	}
}

func confirmationData(o *order.Order, baseURL string) email.OrderConfirmationData {
	items := make([]email.OrderItem, 0, len(o.Items))
	for i := range o.Items {
		item := &o.Items[i]
		items = append(items, email.OrderItem{
			Name:     item.ProductName,
			Variant:  item.VariantTitle(),
			Quantity: item.Quantity,
			Price:    item.UnitPrice,
			Total:    item.LineTotal,
		})
	}

	return email.OrderConfirmationData{
		EmailTemplateData: email.EmailTemplateData{
			UserName:  o.FullName(),
			UserEmail: o.Email,
		},
		OrderNumber:    o.OrderNumber,
		OrderDate:      o.CreatedAt.Format("January 2, 2006"),
		OrderURL:       fmt.Sprintf("%s/orders/%d", baseURL, o.ID),
		PaymentMethod:  string(o.PaymentMethod),
		Paid:           o.IsPaid,
		Items:          items,
		Subtotal:       o.Subtotal,
		DiscountAmount: o.DiscountAmount,
		CouponCode:     o.CouponCode,
		OrderTotal:     o.TotalPrice,
		ShippingTo:     fmt.Sprintf("%s, %s %s", o.Address, o.City, o.PostalCode),
	}
}
