// internal/domain/product/entity.go
package product

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents the product entity
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"not null;size:255" json:"name"`
	Slug        string          `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string          `gorm:"type:text" json:"description"`
	BasePrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"base_price"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Stocks []ProductStock `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"stocks,omitempty"`
}

// Color represents a product color option
type Color struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:50" json:"name"`
	HexCode   string    `gorm:"size:7" json:"hex_code"`
	CreatedAt time.Time `json:"created_at"`
}

// Size represents a product size option
type Size struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:20" json:"name"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductStock is a purchasable variant: one color and one size of a product.
// Quantity is only changed through the inventory ledger.
type ProductStock struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	ProductID uint             `gorm:"not null;index;uniqueIndex:idx_stock_variant" json:"product_id"`
	ColorID   uint             `gorm:"not null;uniqueIndex:idx_stock_variant" json:"color_id"`
	SizeID    uint             `gorm:"not null;uniqueIndex:idx_stock_variant" json:"size_id"`
	Quantity  int              `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	Price     *decimal.Decimal `gorm:"type:decimal(12,2)" json:"price,omitempty"` // nil means product base price
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	// Relationships
	Product Product `gorm:"foreignKey:ProductID" json:"product"`
	Color   Color   `gorm:"foreignKey:ColorID" json:"color"`
	Size    Size    `gorm:"foreignKey:SizeID" json:"size"`
}

// FlashSale is a time-boxed percentage discount. A sale with no products is site-wide.
type FlashSale struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Name               string          `gorm:"not null;size:255" json:"name"`
	StartTime          time.Time       `gorm:"not null;index" json:"start_time"`
	EndTime            time.Time       `gorm:"not null;index" json:"end_time"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percentage"`
	IsActive           bool            `gorm:"default:true;index" json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	Products []Product `gorm:"many2many:flash_sale_products;" json:"products,omitempty"`
}

// TableName overrides
func (Product) TableName() string      { return "products" }
func (Color) TableName() string        { return "colors" }
func (Size) TableName() string         { return "sizes" }
func (ProductStock) TableName() string { return "product_stocks" }
func (FlashSale) TableName() string    { return "flash_sales" }

// VariantTitle returns the human readable "color / size" label
func (s *ProductStock) VariantTitle() string {
	return fmt.Sprintf("%s / %s", s.Color.Name, s.Size.Name)
}

// IsSiteWide reports whether the sale targets every product
func (f *FlashSale) IsSiteWide() bool {
	return len(f.Products) == 0
}

// Covers reports whether the sale window contains t. Both bounds are inclusive.
func (f *FlashSale) Covers(t time.Time) bool {
	return !t.Before(f.StartTime) && !t.After(f.EndTime)
}

// Targets reports whether the sale lists productID explicitly
func (f *FlashSale) Targets(productID uint) bool {
	for _, p := range f.Products {
		if p.ID == productID {
			return true
		}
	}
	return false
}
