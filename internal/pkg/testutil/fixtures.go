package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Fixtures inserts catalog, coupon and user rows
type Fixtures struct {
	t  *testing.T
	db *gorm.DB
	n  int
}

// NewFixtures creates a fixture builder for db
func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

// Product creates an active product with the given base price
func (f *Fixtures) Product(name, basePrice string) *product.Product {
	f.t.Helper()
	f.n++

	p := product.Product{
		Name:      name,
		Slug:      fmt.Sprintf("%s-%d", strings.ToLower(strings.ReplaceAll(name, " ", "-")), f.n),
		BasePrice: decimal.RequireFromString(basePrice),
		IsActive:  true,
	}
	require.NoError(f.t, f.db.Create(&p).Error)
	return &p
}

// Variant creates a color/size variant of p that uses the product base price
func (f *Fixtures) Variant(p *product.Product, color, size string, qty int) *product.ProductStock {
	f.t.Helper()
	return f.variant(p, color, size, qty, nil)
}

// VariantWithPrice creates a variant with its own price
func (f *Fixtures) VariantWithPrice(p *product.Product, color, size string, qty int, price string) *product.ProductStock {
	f.t.Helper()
	d := decimal.RequireFromString(price)
	return f.variant(p, color, size, qty, &d)
}

func (f *Fixtures) variant(p *product.Product, color, size string, qty int, price *decimal.Decimal) *product.ProductStock {
	c := product.Color{Name: color}
	require.NoError(f.t, f.db.Where(product.Color{Name: color}).FirstOrCreate(&c).Error)
	s := product.Size{Name: size}
	require.NoError(f.t, f.db.Where(product.Size{Name: size}).FirstOrCreate(&s).Error)

	stock := product.ProductStock{
		ProductID: p.ID,
		ColorID:   c.ID,
		SizeID:    s.ID,
		Quantity:  qty,
		Price:     price,
	}
	require.NoError(f.t, f.db.Create(&stock).Error)

	stock.Product = *p
	stock.Color = c
	stock.Size = s
	return &stock
}

// FlashSale creates an active sale. With no products it is site-wide.
func (f *Fixtures) FlashSale(pct string, start, end time.Time, products ...*product.Product) *product.FlashSale {
	f.t.Helper()
	f.n++

	sale := product.FlashSale{
		Name:               fmt.Sprintf("Sale %d", f.n),
		StartTime:          start,
		EndTime:            end,
		DiscountPercentage: decimal.RequireFromString(pct),
		IsActive:           true,
	}
	require.NoError(f.t, f.db.Omit("Products").Create(&sale).Error)

	if len(products) > 0 {
		targets := make([]product.Product, 0, len(products))
		for _, p := range products {
			targets = append(targets, *p)
		}
		require.NoError(f.t, f.db.Model(&sale).Association("Products").Append(targets))
	}
	return &sale
}

// Coupon creates an active coupon
func (f *Fixtures) Coupon(code string, typ coupon.Type, value string, expiresAt *time.Time) *coupon.Coupon {
	f.t.Helper()

	c := coupon.Coupon{
		Code:      code,
		Type:      typ,
		Value:     decimal.RequireFromString(value),
		ExpiresAt: expiresAt,
		IsActive:  true,
	}
	require.NoError(f.t, f.db.Create(&c).Error)
	return &c
}

// User creates an active user whose password is "secret123"
func (f *Fixtures) User(email string, admin bool) *user.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(f.t, err)

	u := user.User{
		Email:     email,
		Password:  string(hash),
		FirstName: "Test",
		LastName:  "Buyer",
		IsActive:  true,
		IsAdmin:   admin,
	}
	require.NoError(f.t, f.db.Create(&u).Error)
	return &u
}

// Quantity reads the committed stock of a variant
func (f *Fixtures) Quantity(variantID uint) int {
	f.t.Helper()

	var stock product.ProductStock
	require.NoError(f.t, f.db.Select("id", "quantity").First(&stock, variantID).Error)
	return stock.Quantity
}

// Deactivate marks a product inactive
func (f *Fixtures) Deactivate(p *product.Product) {
	f.t.Helper()
	require.NoError(f.t, f.db.Model(p).UpdateColumn("is_active", false).Error)
}
