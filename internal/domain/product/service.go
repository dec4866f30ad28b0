// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrVariantNotFound is returned when a product stock row does not exist
var ErrVariantNotFound = errors.New("product variant not found")

// ErrProductNotFound is returned when a product does not exist or is inactive
var ErrProductNotFound = errors.New("product not found")

// Service provides read access to the catalog used by pricing, cart and checkout
type Service struct {
	db *gorm.DB
}

// NewService creates a new product service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetVariant loads a variant with its product, color and size
func (s *Service) GetVariant(ctx context.Context, variantID uint) (*ProductStock, error) {
	return s.getVariant(s.db.WithContext(ctx), variantID)
}

// GetVariantTx is GetVariant bound to an open transaction
func (s *Service) GetVariantTx(tx *gorm.DB, variantID uint) (*ProductStock, error) {
	return s.getVariant(tx, variantID)
}

func (s *Service) getVariant(db *gorm.DB, variantID uint) (*ProductStock, error) {
	var stock ProductStock
	err := db.
		Preload("Product").
		Preload("Color").
		Preload("Size").
		First(&stock, variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("failed to load variant %d: %w", variantID, err)
	}
	return &stock, nil
}

// GetProduct loads an active product with all of its variants
func (s *Service) GetProduct(ctx context.Context, productID uint) (*Product, error) {
	var p Product
	err := s.db.WithContext(ctx).
		Preload("Stocks", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Stocks.Color").
		Preload("Stocks.Size").
		Where("is_active = ?", true).
		First(&p, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product %d: %w", productID, err)
	}
	return &p, nil
}

// ActiveFlashSales returns every sale flagged active, oldest first, with its product set.
// Window filtering is left to the pricing resolver so it stays a function of "now".
func (s *Service) ActiveFlashSales(ctx context.Context) ([]FlashSale, error) {
	return s.activeFlashSales(s.db.WithContext(ctx))
}

// ActiveFlashSalesTx is ActiveFlashSales bound to an open transaction
func (s *Service) ActiveFlashSalesTx(tx *gorm.DB) ([]FlashSale, error) {
	return s.activeFlashSales(tx)
}

func (s *Service) activeFlashSales(db *gorm.DB) ([]FlashSale, error) {
	var sales []FlashSale
	// Deleted targets still count; a sale only turns site-wide with no target rows.
	err := db.
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		}).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load flash sales: %w", err)
	}
	return sales, nil
}
