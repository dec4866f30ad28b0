// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/product"
)

// Cart belongs to exactly one of a user or an anonymous session
type Cart struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       *uint     `gorm:"uniqueIndex" json:"user_id,omitempty"`
	SessionToken *string   `gorm:"uniqueIndex;size:64" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// CartItem is one variant line in a cart. Price is the last resolved unit price.
type CartItem struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	CartID         uint            `gorm:"not null;uniqueIndex:idx_cart_item_variant" json:"cart_id"`
	ProductID      uint            `gorm:"not null;index" json:"product_id"`
	ProductStockID uint            `gorm:"not null;uniqueIndex:idx_cart_item_variant" json:"product_stock_id"`
	Quantity       int             `gorm:"not null;default:1;check:quantity >= 1" json:"quantity"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	ProductStock product.ProductStock `gorm:"foreignKey:ProductStockID" json:"-"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// View is the priced, read-only cart returned to callers
type View struct {
	ID            uint            `json:"id"`
	Items         []ItemView      `json:"items"`
	ItemCount     int             `json:"item_count"`
	TotalQuantity int             `json:"total_quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// ItemView is one priced cart line
type ItemView struct {
	ID                 uint            `json:"id"`
	ProductID          uint            `json:"product_id"`
	ProductStockID     uint            `json:"product_stock_id"`
	ProductName        string          `json:"product_name"`
	ColorName          string          `json:"color_name"`
	SizeName           string          `json:"size_name"`
	Quantity           int             `json:"quantity"`
	BasePrice          decimal.Decimal `json:"base_price"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	LineTotal          decimal.Decimal `json:"line_total"`
	Available          int             `json:"available"`
}

// IsEmpty reports whether the cart has no lines
func (v *View) IsEmpty() bool {
	return len(v.Items) == 0
}
