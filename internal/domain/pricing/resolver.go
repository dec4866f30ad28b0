// internal/domain/pricing/resolver.go
package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/product"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// Quote is the resolved price of one unit of a variant at a point in time
type Quote struct {
	BasePrice          decimal.Decimal `json:"base_price"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	FlashSaleID        *uint           `json:"flash_sale_id,omitempty"`
}

// Discounted reports whether a flash sale lowered the price
func (q Quote) Discounted() bool {
	return q.FlashSaleID != nil
}

// BasePrice returns the variant override when set, otherwise the product base price.
// A zero override is a real price, not "unset".
func BasePrice(p *product.Product, v *product.ProductStock) decimal.Decimal {
	if v != nil && v.Price != nil {
		return *v.Price
	}
	return p.BasePrice
}

// CurrentSale picks the sale that applies to productID at now. Sales targeting the
// product win over site-wide sales; within a group the first in slice order wins.
func CurrentSale(productID uint, sales []product.FlashSale, now time.Time) *product.FlashSale {
	var siteWide *product.FlashSale
	for i := range sales {
		sale := &sales[i]
		if !sale.IsActive || !sale.Covers(now) {
			continue
		}
		if sale.Targets(productID) {
			return sale
		}
		if siteWide == nil && sale.IsSiteWide() {
			siteWide = sale
		}
	}
	return siteWide
}

// ApplyDiscount returns round(base - base*pct/100, 2), rounding half-up
func ApplyDiscount(base, pct decimal.Decimal) decimal.Decimal {
	return base.Sub(base.Mul(pct).Div(hundred)).Round(2)
}

// Resolve prices one unit of v. It depends only on its arguments.
func Resolve(p *product.Product, v *product.ProductStock, sales []product.FlashSale, now time.Time) Quote {
	base := BasePrice(p, v)
	quote := Quote{
		BasePrice:          base,
		UnitPrice:          base,
		DiscountPercentage: decimal.Zero,
	}

	sale := CurrentSale(p.ID, sales, now)
	if sale == nil {
		return quote
	}

	saleID := sale.ID
	quote.UnitPrice = ApplyDiscount(base, sale.DiscountPercentage)
	quote.DiscountPercentage = sale.DiscountPercentage
	quote.FlashSaleID = &saleID
	return quote
}

// SaleSource lists the flash sales currently flagged active
type SaleSource interface {
	ActiveFlashSales(ctx context.Context) ([]product.FlashSale, error)
	ActiveFlashSalesTx(tx *gorm.DB) ([]product.FlashSale, error)
}

// Resolver binds the pure pricing rules to live sale data and a clock
type Resolver struct {
	sales SaleSource
	now   func() time.Time
}

// NewResolver creates a resolver. A nil clock means time.Now.
func NewResolver(sales SaleSource, clock func() time.Time) *Resolver {
	if clock == nil {
		clock = time.Now
	}
	return &Resolver{sales: sales, now: clock}
}

// Snapshot freezes the sale set and "now" so a batch of lines is priced consistently
type Snapshot struct {
	Sales []product.FlashSale
	Now   time.Time
}

// Quote prices a variant against the snapshot
func (s *Snapshot) Quote(v *product.ProductStock) Quote {
	return Resolve(&v.Product, v, s.Sales, s.Now)
}

// Snapshot loads active sales and pins the current time
func (r *Resolver) Snapshot(ctx context.Context) (*Snapshot, error) {
	sales, err := r.sales.ActiveFlashSales(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Sales: sales, Now: r.now()}, nil
}

// SnapshotTx is Snapshot read through an open transaction
func (r *Resolver) SnapshotTx(tx *gorm.DB) (*Snapshot, error) {
	sales, err := r.sales.ActiveFlashSalesTx(tx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Sales: sales, Now: r.now()}, nil
}

// Now exposes the resolver clock
func (r *Resolver) Now() time.Time {
	return r.now()
}
