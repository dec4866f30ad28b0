// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/product"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientStock matches any InsufficientStockError via errors.Is
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrInvalidQuantity is returned for non-positive reservation or restore amounts
var ErrInvalidQuantity = errors.New("quantity must be positive")

// InsufficientStockError names the variant that could not cover a request
type InsufficientStockError struct {
	VariantID   uint
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// Is lets errors.Is(err, ErrInsufficientStock) match
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Ledger owns every change to ProductStock.quantity. Each change happens under an
// exclusive row lock inside the caller's transaction and leaves a StockMovement behind.
type Ledger struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewLedger creates a new stock ledger
func NewLedger(db *gorm.DB, logger *logrus.Logger) *Ledger {
	return &Ledger{
		db:     db,
		logger: logger,
	}
}

// ReserveAndDecrement locks the variant row, re-reads its quantity and decrements it by qty.
// It returns the movement carrying the new quantity, or an InsufficientStockError.
func (l *Ledger) ReserveAndDecrement(tx *gorm.DB, variantID uint, qty int, ref Reference) (*StockMovement, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	stock, err := l.lock(tx, variantID)
	if err != nil {
		return nil, err
	}

	if qty > stock.Quantity {
		return nil, &InsufficientStockError{
			VariantID:   variantID,
			ProductName: l.productName(tx, stock.ProductID),
			Requested:   qty,
			Available:   stock.Quantity,
		}
	}

	result := tx.Model(&product.ProductStock{}).
		Where("id = ? AND quantity >= ?", variantID, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to decrement stock for variant %d: %w", variantID, result.Error)
	}
	if result.RowsAffected == 0 {
		// Only reachable when the lock was not honoured by the database
		return nil, &InsufficientStockError{
			VariantID:   variantID,
			ProductName: l.productName(tx, stock.ProductID),
			Requested:   qty,
			Available:   stock.Quantity,
		}
	}

	return l.record(tx, stock, MovementTypeOutbound, ReasonSale, qty, stock.Quantity-qty, ref, "")
}

// Restore returns qty units to the variant, used for cancellations and returns
func (l *Ledger) Restore(tx *gorm.DB, variantID uint, qty int, reason MovementReason, ref Reference) (*StockMovement, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	stock, err := l.lock(tx, variantID)
	if err != nil {
		return nil, err
	}

	if err := tx.Model(&product.ProductStock{}).
		Where("id = ?", variantID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", qty)).Error; err != nil {
		return nil, fmt.Errorf("failed to restore stock for variant %d: %w", variantID, err)
	}

	return l.record(tx, stock, MovementTypeInbound, reason, qty, stock.Quantity+qty, ref, "")
}

// Adjust applies an admin correction of delta units in its own transaction.
// The quantity never drops below zero.
func (l *Ledger) Adjust(ctx context.Context, variantID uint, delta int, note string, adminID uint) (*StockMovement, error) {
	if delta == 0 {
		return nil, ErrInvalidQuantity
	}

	var movement *StockMovement
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stock, err := l.lock(tx, variantID)
		if err != nil {
			return err
		}

		newQuantity := stock.Quantity + delta
		if newQuantity < 0 {
			return &InsufficientStockError{
				VariantID:   variantID,
				ProductName: l.productName(tx, stock.ProductID),
				Requested:   -delta,
				Available:   stock.Quantity,
			}
		}

		if err := tx.Model(&product.ProductStock{}).
			Where("id = ?", variantID).
			UpdateColumn("quantity", newQuantity).Error; err != nil {
			return fmt.Errorf("failed to adjust stock for variant %d: %w", variantID, err)
		}

		movementType := MovementTypeInbound
		amount := delta
		if delta < 0 {
			movementType = MovementTypeOutbound
			amount = -delta
		}

		movement, err = l.record(tx, stock, movementType, ReasonAdjustment, amount, newQuantity,
			Reference{Type: RefAdmin, ID: adminID}, note)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"variant_id":   variantID,
		"delta":        delta,
		"new_quantity": movement.NewQuantity,
		"admin_id":     adminID,
	}).Info("Stock adjusted")

	return movement, nil
}

// LinkMovements points movements recorded before their owner existed at ref
func (l *Ledger) LinkMovements(tx *gorm.DB, movementIDs []uint, ref Reference) error {
	if len(movementIDs) == 0 {
		return nil
	}
	if err := tx.Model(&StockMovement{}).
		Where("id IN ?", movementIDs).
		Updates(map[string]interface{}{
			"reference_type": ref.Type,
			"reference_id":   ref.ID,
		}).Error; err != nil {
		return fmt.Errorf("failed to link stock movements: %w", err)
	}
	return nil
}

// Movements lists the audit trail for a variant, newest first
func (l *Ledger) Movements(ctx context.Context, variantID uint, limit int) ([]StockMovement, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var movements []StockMovement
	if err := l.db.WithContext(ctx).
		Where("product_stock_id = ?", variantID).
		Order("id DESC").
		Limit(limit).
		Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	return movements, nil
}

// Quantity reads the committed quantity of a variant without locking
func (l *Ledger) Quantity(ctx context.Context, variantID uint) (int, error) {
	var stock product.ProductStock
	if err := l.db.WithContext(ctx).Select("id", "quantity").First(&stock, variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, product.ErrVariantNotFound
		}
		return 0, fmt.Errorf("failed to read stock for variant %d: %w", variantID, err)
	}
	return stock.Quantity, nil
}

// lock takes SELECT ... FOR UPDATE on the variant row
func (l *Ledger) lock(tx *gorm.DB, variantID uint) (*product.ProductStock, error) {
	var stock product.ProductStock
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "product_id", "quantity").
		First(&stock, variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, product.ErrVariantNotFound
		}
		return nil, fmt.Errorf("failed to lock variant %d: %w", variantID, err)
	}
	return &stock, nil
}

func (l *Ledger) productName(tx *gorm.DB, productID uint) string {
	var p product.Product
	if err := tx.Unscoped().Select("id", "name").First(&p, productID).Error; err != nil {
		return fmt.Sprintf("product #%d", productID)
	}
	return p.Name
}

func (l *Ledger) record(tx *gorm.DB, stock *product.ProductStock, movementType MovementType, reason MovementReason,
	qty, newQuantity int, ref Reference, note string) (*StockMovement, error) {
	movement := StockMovement{
		ProductStockID:   stock.ID,
		MovementType:     movementType,
		Reason:           reason,
		Quantity:         qty,
		PreviousQuantity: stock.Quantity,
		NewQuantity:      newQuantity,
		ReferenceType:    ref.Type,
		ReferenceID:      ref.ID,
		Notes:            note,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}
	return &movement, nil
}
