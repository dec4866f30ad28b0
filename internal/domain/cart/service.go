// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/buyer"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/product"
	"gorm.io/gorm"
)

var (
	// ErrItemNotFound is returned when a cart line does not belong to the caller's cart
	ErrItemNotFound = errors.New("cart item not found")
	// ErrInvalidQuantity is returned for quantities below one
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrProductUnavailable is returned when the variant's product is inactive
	ErrProductUnavailable = errors.New("product is not available")
)

// ExceedsStockError is returned when a cart line asks for more than is on hand
type ExceedsStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *ExceedsStockError) Error() string {
	return fmt.Sprintf("only %d of %q left in stock, requested %d", e.Available, e.ProductName, e.Requested)
}

// Service handles cart business logic
type Service struct {
	db      *gorm.DB
	catalog *product.Service
	pricer  *pricing.Resolver
	logger  *logrus.Logger
}

// NewService creates a new cart service
func NewService(db *gorm.DB, catalog *product.Service, pricer *pricing.Resolver, logger *logrus.Logger) *Service {
	return &Service{
		db:      db,
		catalog: catalog,
		pricer:  pricer,
		logger:  logger,
	}
}

// AddItemRequest represents add to cart request
type AddItemRequest struct {
	ProductStockID uint `json:"product_stock_id" form:"product_stock_id" binding:"required"`
	Quantity       int  `json:"quantity" form:"quantity" binding:"required,min=1"`
}

// UpdateItemRequest represents update cart item request
type UpdateItemRequest struct {
	Quantity int `json:"quantity" form:"quantity" binding:"required,min=1"`
}

// View returns the caller's cart with every line re-priced against live flash sales.
// Changed prices are written back so the stored snapshot follows the display.
func (s *Service) View(ctx context.Context, id buyer.Identity) (*View, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	cart, err := s.find(s.db.WithContext(ctx), id, true)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &View{Items: []ItemView{}, Subtotal: decimal.Zero}, nil
	}

	snapshot, err := s.pricer.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing: %w", err)
	}

	view := s.price(cart, snapshot)

	for i := range cart.Items {
		item := &cart.Items[i]
		fresh := view.Items[i].UnitPrice
		if item.Price.Equal(fresh) {
			continue
		}
		if err := s.db.WithContext(ctx).Model(item).UpdateColumn("price", fresh).Error; err != nil {
			s.logger.WithError(err).WithField("cart_item_id", item.ID).Warn("Failed to refresh cart item price")
		}
	}

	return view, nil
}

// AddItem adds qty of a variant to the cart, creating the cart on first use.
// Re-adding a variant already in the cart merges the quantities.
func (s *Service) AddItem(ctx context.Context, id buyer.Identity, req *AddItemRequest) (*View, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		variant, err := s.catalog.GetVariantTx(tx, req.ProductStockID)
		if err != nil {
			return err
		}
		if !variant.Product.IsActive {
			return ErrProductUnavailable
		}

		cart, err := s.findOrCreate(tx, id)
		if err != nil {
			return err
		}

		var existing CartItem
		err = tx.Where("cart_id = ? AND product_stock_id = ?", cart.ID, variant.ID).First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load cart item: %w", err)
		}
		found := err == nil

		wanted := req.Quantity
		if found {
			wanted += existing.Quantity
		}
		if wanted > variant.Quantity {
			return &ExceedsStockError{ProductName: variant.Product.Name, Requested: wanted, Available: variant.Quantity}
		}

		snapshot, err := s.pricer.SnapshotTx(tx)
		if err != nil {
			return fmt.Errorf("failed to load pricing: %w", err)
		}
		price := snapshot.Quote(variant).UnitPrice

		if found {
			return tx.Model(&existing).Updates(map[string]interface{}{
				"quantity": wanted,
				"price":    price,
			}).Error
		}

		item := CartItem{
			CartID:         cart.ID,
			ProductID:      variant.ProductID,
			ProductStockID: variant.ID,
			Quantity:       wanted,
			Price:          price,
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("failed to add cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.View(ctx, id)
}

// UpdateQuantity sets the quantity of one line
func (s *Service) UpdateQuantity(ctx context.Context, id buyer.Identity, itemID uint, quantity int) (*View, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.ownedItem(tx, id, itemID)
		if err != nil {
			return err
		}

		variant, err := s.catalog.GetVariantTx(tx, item.ProductStockID)
		if err != nil {
			return err
		}
		if quantity > variant.Quantity {
			return &ExceedsStockError{ProductName: variant.Product.Name, Requested: quantity, Available: variant.Quantity}
		}

		return tx.Model(item).UpdateColumn("quantity", quantity).Error
	})
	if err != nil {
		return nil, err
	}

	return s.View(ctx, id)
}

// RemoveItem deletes one line from the cart
func (s *Service) RemoveItem(ctx context.Context, id buyer.Identity, itemID uint) (*View, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.ownedItem(tx, id, itemID)
		if err != nil {
			return err
		}
		return tx.Delete(item).Error
	})
	if err != nil {
		return nil, err
	}

	return s.View(ctx, id)
}

// Clear empties the caller's cart
func (s *Service) Clear(ctx context.Context, id buyer.Identity) error {
	return s.ClearTx(s.db.WithContext(ctx), id)
}

// ClearTx empties the cart inside an open transaction
func (s *Service) ClearTx(tx *gorm.DB, id buyer.Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}

	cart, err := s.find(tx, id, false)
	if err != nil {
		return err
	}
	if cart == nil {
		return nil
	}

	if err := tx.Where("cart_id = ?", cart.ID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// LoadTx returns the cart with variants, products, colors and sizes preloaded.
// A missing cart is returned as an empty cart, not an error.
func (s *Service) LoadTx(tx *gorm.DB, id buyer.Identity) (*Cart, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	cart, err := s.find(tx, id, true)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &Cart{}, nil
	}
	return cart, nil
}

// MergeGuestCart moves a session cart into the user's cart, summing quantities for
// variants present in both. Every line is capped at current stock and sold out lines
// are dropped. The guest cart is deleted afterwards.
func (s *Service) MergeGuestCart(ctx context.Context, sessionToken string, userID uint) (*View, error) {
	guestID := buyer.ForSession(sessionToken)
	userIdentity := buyer.ForUser(userID)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guest, err := s.find(tx, guestID, true)
		if err != nil {
			return err
		}
		if guest == nil {
			return nil
		}

		target, err := s.findOrCreate(tx, userIdentity)
		if err != nil {
			return err
		}

		for _, item := range guest.Items {
			available := item.ProductStock.Quantity

			var existing CartItem
			err := tx.Where("cart_id = ? AND product_stock_id = ?", target.ID, item.ProductStockID).First(&existing).Error
			switch {
			case err == nil:
				merged := min(existing.Quantity+item.Quantity, available)
				if merged < 1 {
					if err := tx.Delete(&existing).Error; err != nil {
						return fmt.Errorf("failed to drop sold out cart item: %w", err)
					}
					continue
				}
				if err := tx.Model(&existing).UpdateColumn("quantity", merged).Error; err != nil {
					return fmt.Errorf("failed to merge cart item: %w", err)
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				quantity := min(item.Quantity, available)
				if quantity < 1 {
					continue
				}
				moved := CartItem{
					CartID:         target.ID,
					ProductID:      item.ProductID,
					ProductStockID: item.ProductStockID,
					Quantity:       quantity,
					Price:          item.Price,
				}
				if err := tx.Create(&moved).Error; err != nil {
					return fmt.Errorf("failed to move cart item: %w", err)
				}
			default:
				return fmt.Errorf("failed to load cart item: %w", err)
			}
		}

		if err := tx.Where("cart_id = ?", guest.ID).Delete(&CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear guest cart: %w", err)
		}
		return tx.Delete(guest).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": userID}).Info("Guest cart merged")
	return s.View(ctx, userIdentity)
}

// price builds the view for a loaded cart against a pricing snapshot
func (s *Service) price(cart *Cart, snapshot *pricing.Snapshot) *View {
	view := &View{
		ID:       cart.ID,
		Items:    make([]ItemView, 0, len(cart.Items)),
		Subtotal: decimal.Zero,
	}

	for i := range cart.Items {
		item := &cart.Items[i]
		quote := snapshot.Quote(&item.ProductStock)
		line := quote.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))

		view.Items = append(view.Items, ItemView{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			ProductStockID:     item.ProductStockID,
			ProductName:        item.ProductStock.Product.Name,
			ColorName:          item.ProductStock.Color.Name,
			SizeName:           item.ProductStock.Size.Name,
			Quantity:           item.Quantity,
			BasePrice:          quote.BasePrice,
			UnitPrice:          quote.UnitPrice,
			DiscountPercentage: quote.DiscountPercentage,
			LineTotal:          line,
			Available:          item.ProductStock.Quantity,
		})
		view.ItemCount++
		view.TotalQuantity += item.Quantity
		view.Subtotal = view.Subtotal.Add(line)
	}

	return view
}

func (s *Service) find(db *gorm.DB, id buyer.Identity, withItems bool) (*Cart, error) {
	query := id.Scope(db)
	if withItems {
		query = query.
			Preload("Items", func(db *gorm.DB) *gorm.DB {
				return db.Order("id ASC")
			}).
			Preload("Items.ProductStock").
			Preload("Items.ProductStock.Product").
			Preload("Items.ProductStock.Color").
			Preload("Items.ProductStock.Size")
	}

	var cart Cart
	if err := query.First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &cart, nil
}

func (s *Service) findOrCreate(tx *gorm.DB, id buyer.Identity) (*Cart, error) {
	cart, err := s.find(tx, id, false)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}

	userID, token := id.Columns()
	cart = &Cart{UserID: userID, SessionToken: token}
	if err := tx.Create(cart).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

func (s *Service) ownedItem(tx *gorm.DB, id buyer.Identity, itemID uint) (*CartItem, error) {
	cart, err := s.find(tx, id, false)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrItemNotFound
	}

	var item CartItem
	if err := tx.Where("id = ? AND cart_id = ?", itemID, cart.ID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to load cart item: %w", err)
	}
	return &item, nil
}
