// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/buyer"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/pkg/events"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrOrderNotFound is returned when the order does not exist or is not the caller's
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidStatusTransition is returned for status changes the lifecycle forbids
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	// ErrAlreadyPaid is returned when a paid order would be cancelled by the payment provider
	ErrAlreadyPaid = errors.New("order is already paid")
	// ErrPaidAfterCancel is returned when the provider captures payment for a cancelled order
	ErrPaidAfterCancel = errors.New("payment received for a cancelled order")
)

// Service handles order business logic
type Service struct {
	db        *gorm.DB
	ledger    *inventory.Ledger
	publisher events.Publisher
	logger    *logrus.Logger
}

// NewService creates a new order service
func NewService(db *gorm.DB, ledger *inventory.Ledger, publisher events.Publisher, logger *logrus.Logger) *Service {
	return &Service{
		db:        db,
		ledger:    ledger,
		publisher: publisher,
		logger:    logger,
	}
}

// ListResponse represents a page of orders
type ListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status  OrderStatus `json:"status" binding:"required"`
	Comment string      `json:"comment"`
}

// CancelRequest represents a cancellation
type CancelRequest struct {
	Reason string `json:"reason" form:"reason"`
}

// Get retrieves a single order with items, payments and history
func (s *Service) Get(ctx context.Context, orderID uint) (*Order, error) {
	return s.get(s.db.WithContext(ctx), orderID)
}

// GetForBuyer retrieves an order only if it belongs to id
func (s *Service) GetForBuyer(ctx context.Context, id buyer.Identity, orderID uint) (*Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return s.get(id.Scope(s.db.WithContext(ctx)), orderID)
}

func (s *Service) get(db *gorm.DB, orderID uint) (*Order, error) {
	var o Order
	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Payments").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("id DESC")
		}).
		First(&o, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// ListForUser retrieves a user's orders, newest first
func (s *Service) ListForUser(ctx context.Context, userID uint, page, limit int) (*ListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	if err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

// UpdateStatus moves an order along its lifecycle. Moving to cancelled goes through
// the cancellation path so stock is restored.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, status OrderStatus, comment string, actorID uint) (*Order, error) {
	if status == OrderStatusCancelled {
		return s.Cancel(ctx, orderID, comment, actorID)
	}

	var updated *Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.LockTx(tx, orderID)
		if err != nil {
			return err
		}

		if !CanTransition(o.Status, status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, o.Status, status)
		}

		if err := tx.Model(o).Update("status", status).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		o.Status = status

		updated = o
		return s.RecordStatusTx(tx, o.ID, status, comment, actorID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"status":   status,
		"actor_id": actorID,
	}).Info("Order status updated")
	s.Publish(ctx, events.OrderStatus, updated)

	return updated, nil
}

// Cancel cancels an order and restores its stock. Cancelling a cancelled order is a no-op.
func (s *Service) Cancel(ctx context.Context, orderID uint, reason string, actorID uint) (*Order, error) {
	return s.cancel(ctx, s.db.WithContext(ctx), orderID, reason, actorID)
}

// CancelForBuyer is Cancel restricted to the buyer's own orders
func (s *Service) CancelForBuyer(ctx context.Context, id buyer.Identity, orderID uint, reason string) (*Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var count int64
	if err := id.Scope(s.db.WithContext(ctx).Model(&Order{})).Where("id = ?", orderID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	if count == 0 {
		return nil, ErrOrderNotFound
	}

	var actorID uint
	if id.IsUser() {
		actorID = *id.UserID
	}
	return s.Cancel(ctx, orderID, reason, actorID)
}

func (s *Service) cancel(ctx context.Context, db *gorm.DB, orderID uint, reason string, actorID uint) (*Order, error) {
	var (
		cancelled *Order
		changed   bool
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		o, err := s.LockTx(tx, orderID)
		if err != nil {
			return err
		}
		changed, err = s.CancelTx(tx, o, reason, actorID)
		cancelled = o
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.WithFields(logrus.Fields{
			"order_id": orderID,
			"actor_id": actorID,
		}).Info("Order cancelled")
		s.Publish(ctx, events.OrderCancelled, cancelled)
	}
	return cancelled, nil
}

// CancelTx cancels a locked order inside tx, returning false when it was already cancelled.
// Every line is put back through the stock ledger.
func (s *Service) CancelTx(tx *gorm.DB, o *Order, reason string, actorID uint) (bool, error) {
	if o.Status == OrderStatusCancelled {
		return false, nil
	}
	if !o.CanBeCancelled() {
		return false, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, o.Status, OrderStatusCancelled)
	}

	// A processed return owns the stock restore for this order.
	var returned int64
	if err := tx.Table("return_requests").
		Where("order_id = ? AND status IN ?", o.ID, []string{"approved", "refunded"}).
		Count(&returned).Error; err != nil {
		return false, fmt.Errorf("failed to check return requests: %w", err)
	}
	if returned > 0 {
		return false, fmt.Errorf("%w: order has a processed return", ErrInvalidStatusTransition)
	}

	ref := inventory.Reference{Type: inventory.RefOrder, ID: o.ID}
	for _, item := range o.Items {
		if _, err := s.ledger.Restore(tx, item.ProductStockID, item.Quantity, inventory.ReasonCancellation, ref); err != nil {
			return false, fmt.Errorf("failed to restore stock for %q: %w", item.ProductName, err)
		}
	}

	now := time.Now().UTC()
	if err := tx.Model(o).Updates(map[string]interface{}{
		"status":       OrderStatusCancelled,
		"cancelled_at": now,
	}).Error; err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now

	comment := "Order cancelled"
	if reason != "" {
		comment = fmt.Sprintf("Order cancelled: %s", reason)
	}
	if err := s.RecordStatusTx(tx, o.ID, OrderStatusCancelled, comment, actorID); err != nil {
		return false, err
	}
	return true, nil
}

// LockTx loads an order and its items under an exclusive row lock
func (s *Service) LockTx(tx *gorm.DB, orderID uint) (*Order, error) {
	var o Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}
	if err := tx.Where("order_id = ?", o.ID).Order("id ASC").Find(&o.Items).Error; err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	return &o, nil
}

// RecordStatusTx appends a status history row
func (s *Service) RecordStatusTx(tx *gorm.DB, orderID uint, status OrderStatus, comment string, actorID uint) error {
	history := OrderStatusHistory{
		OrderID:   orderID,
		Status:    status,
		Comment:   comment,
		CreatedBy: actorID,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to create status history: %w", err)
	}
	return nil
}

// Publish emits an order event. Failures are logged and swallowed.
func (s *Service) Publish(ctx context.Context, eventType events.EventType, o *Order) {
	if o == nil {
		return
	}
	event := events.OrderEvent{
		Type:          eventType,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		Total:         o.TotalPrice,
		PaymentMethod: string(o.PaymentMethod),
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_id": o.ID,
			"type":     eventType,
		}).Warn("Failed to publish order event")
	}
}
