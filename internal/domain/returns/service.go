// internal/domain/returns/service.go
package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/pkg/events"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrDuplicateReturnRequest is returned when the order already has a return request
	ErrDuplicateReturnRequest = errors.New("a return request already exists for this order")
	// ErrReturnNotFound is returned for unknown return requests
	ErrReturnNotFound = errors.New("return request not found")
	// ErrInvalidTransition is returned for review decisions the lifecycle forbids
	ErrInvalidTransition = errors.New("invalid return status transition")
	// ErrReasonRequired is returned for an empty reason
	ErrReasonRequired = errors.New("a reason is required")
	// ErrOrderNotReturnable is returned for orders that have not shipped
	ErrOrderNotReturnable = errors.New("order cannot be returned")
)

// Service handles return requests
type Service struct {
	db     *gorm.DB
	ledger *inventory.Ledger
	orders *order.Service
	logger *logrus.Logger
}

// NewService creates a new returns service
func NewService(db *gorm.DB, ledger *inventory.Ledger, orders *order.Service, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		ledger: ledger,
		orders: orders,
		logger: logger,
	}
}

// Create opens a return request for one of the user's orders
func (s *Service) Create(ctx context.Context, userID, orderID uint, reason string) (*ReturnRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	var (
		created ReturnRequest
		placed  order.Order
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", orderID, userID).First(&placed).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return order.ErrOrderNotFound
			}
			return fmt.Errorf("failed to retrieve order: %w", err)
		}
		if !placed.IsReturnable() {
			return ErrOrderNotReturnable
		}

		var existing int64
		if err := tx.Model(&ReturnRequest{}).Where("order_id = ?", orderID).Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check return requests: %w", err)
		}
		if existing > 0 {
			return ErrDuplicateReturnRequest
		}

		created = ReturnRequest{
			OrderID: orderID,
			UserID:  userID,
			Reason:  reason,
			Status:  StatusPending,
		}
		if err := tx.Create(&created).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateReturnRequest
			}
			return fmt.Errorf("failed to create return request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"return_id": created.ID,
		"order_id":  orderID,
		"user_id":   userID,
	}).Info("Return request created")
	s.orders.Publish(ctx, events.ReturnRequested, &placed)

	return &created, nil
}

// Review applies an admin decision. Refunding puts every order line back in stock.
func (s *Service) Review(ctx context.Context, returnID uint, decision Status, response string, adminID uint) (*ReturnRequest, error) {
	var (
		rr     ReturnRequest
		placed *order.Order
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rr, returnID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReturnNotFound
			}
			return fmt.Errorf("failed to retrieve return request: %w", err)
		}

		if !canTransition(rr.Status, decision) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, rr.Status, decision)
		}

		o, err := s.orders.LockTx(tx, rr.OrderID)
		if err != nil {
			return err
		}
		placed = o

		if decision == StatusRefunded {
			if !o.IsReturnable() {
				return fmt.Errorf("%w: order is %s", ErrOrderNotReturnable, o.Status)
			}
			ref := inventory.Reference{Type: inventory.RefReturn, ID: rr.ID}
			for _, item := range o.Items {
				if _, err := s.ledger.Restore(tx, item.ProductStockID, item.Quantity, inventory.ReasonReturn, ref); err != nil {
					return fmt.Errorf("failed to restock %q: %w", item.ProductName, err)
				}
			}
		}

		updates := map[string]interface{}{
			"status":      decision,
			"reviewed_by": adminID,
			"updated_at":  time.Now().UTC(),
		}
		if response != "" {
			updates["admin_response"] = response
		}
		if err := tx.Model(&rr).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update return request: %w", err)
		}
		rr.Status = decision
		rr.ReviewedBy = &adminID
		if response != "" {
			rr.AdminResponse = response
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"return_id": returnID,
		"status":    decision,
		"admin_id":  adminID,
	}).Info("Return request reviewed")
	s.orders.Publish(ctx, events.ReturnReviewed, placed)

	return &rr, nil
}

// Get retrieves a return request
func (s *Service) Get(ctx context.Context, returnID uint) (*ReturnRequest, error) {
	var rr ReturnRequest
	if err := s.db.WithContext(ctx).First(&rr, returnID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReturnNotFound
		}
		return nil, fmt.Errorf("failed to retrieve return request: %w", err)
	}
	return &rr, nil
}
