package pricing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/pkg/testutil"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func sale(id uint, pct string, start, end time.Time, products ...uint) product.FlashSale {
	s := product.FlashSale{
		ID:                 id,
		StartTime:          start,
		EndTime:            end,
		DiscountPercentage: dec(pct),
		IsActive:           true,
	}
	for _, pid := range products {
		s.Products = append(s.Products, product.Product{ID: pid})
	}
	return s
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestResolveWithoutSale(t *testing.T) {
	p := &product.Product{ID: 1, BasePrice: dec("1000")}
	v := &product.ProductStock{ID: 10, ProductID: 1}

	q := pricing.Resolve(p, v, nil, now)

	assertDecimal(t, "1000", q.UnitPrice)
	assertDecimal(t, "1000", q.BasePrice)
	assert.False(t, q.Discounted())
}

func TestResolveSiteWideSale(t *testing.T) {
	p := &product.Product{ID: 1, BasePrice: dec("1000")}
	v := &product.ProductStock{ID: 10, ProductID: 1}
	sales := []product.FlashSale{sale(7, "10", now.Add(-time.Hour), now.Add(time.Hour))}

	q := pricing.Resolve(p, v, sales, now)

	assertDecimal(t, "900.00", q.UnitPrice)
	assertDecimal(t, "10", q.DiscountPercentage)
	require.NotNil(t, q.FlashSaleID)
	assert.Equal(t, uint(7), *q.FlashSaleID)
}

func TestResolveProductSaleBeatsSiteWide(t *testing.T) {
	p := &product.Product{ID: 1, BasePrice: dec("200")}
	v := &product.ProductStock{ID: 10, ProductID: 1}
	sales := []product.FlashSale{
		sale(1, "10", now.Add(-time.Hour), now.Add(time.Hour)),
		sale(2, "25", now.Add(-time.Hour), now.Add(time.Hour), 1),
	}

	q := pricing.Resolve(p, v, sales, now)

	assertDecimal(t, "150.00", q.UnitPrice)
	assert.Equal(t, uint(2), *q.FlashSaleID)
}

func TestResolveIgnoresSaleForOtherProduct(t *testing.T) {
	p := &product.Product{ID: 1, BasePrice: dec("200")}
	v := &product.ProductStock{ID: 10, ProductID: 1}
	sales := []product.FlashSale{sale(2, "25", now.Add(-time.Hour), now.Add(time.Hour), 99)}

	q := pricing.Resolve(p, v, sales, now)

	assertDecimal(t, "200", q.UnitPrice)
	assert.Nil(t, q.FlashSaleID)
}

func TestResolveSkipsInactiveAndOutOfWindowSales(t *testing.T) {
	p := &product.Product{ID: 1, BasePrice: dec("100")}
	v := &product.ProductStock{ID: 10, ProductID: 1}

	inactive := sale(1, "50", now.Add(-time.Hour), now.Add(time.Hour), 1)
	inactive.IsActive = false
	expired := sale(2, "50", now.Add(-2*time.Hour), now.Add(-time.Hour), 1)
	upcoming := sale(3, "50", now.Add(time.Hour), now.Add(2*time.Hour))

	q := pricing.Resolve(p, v, []product.FlashSale{inactive, expired, upcoming}, now)

	assertDecimal(t, "100", q.UnitPrice)
}

func TestResolveWindowBoundsAreInclusive(t *testing.T) {
	p := &product.Product{ID: 1, BasePrice: dec("100")}
	v := &product.ProductStock{ID: 10, ProductID: 1}
	sales := []product.FlashSale{sale(1, "20", now, now.Add(time.Hour))}

	assertDecimal(t, "80.00", pricing.Resolve(p, v, sales, now).UnitPrice)
	assertDecimal(t, "80.00", pricing.Resolve(p, v, sales, now.Add(time.Hour)).UnitPrice)
	assertDecimal(t, "100", pricing.Resolve(p, v, sales, now.Add(time.Hour+time.Nanosecond)).UnitPrice)
}

func TestResolveIsDeterministicForFrozenNow(t *testing.T) {
	p := &product.Product{ID: 1, BasePrice: dec("33.33")}
	v := &product.ProductStock{ID: 10, ProductID: 1}
	sales := []product.FlashSale{sale(1, "15", now.Add(-time.Hour), now.Add(time.Hour))}

	first := pricing.Resolve(p, v, sales, now)
	for i := 0; i < 10; i++ {
		again := pricing.Resolve(p, v, sales, now)
		assert.True(t, first.UnitPrice.Equal(again.UnitPrice))
		assert.Equal(t, *first.FlashSaleID, *again.FlashSaleID)
	}

	outside := pricing.Resolve(p, v, sales, now.Add(2*time.Hour))
	assert.True(t, outside.BasePrice.Equal(first.BasePrice))
	assert.False(t, outside.UnitPrice.Equal(first.UnitPrice))
}

func TestVariantPriceOverride(t *testing.T) {
	p := &product.Product{ID: 1, BasePrice: dec("1000")}

	t.Run("nil override falls back to base price", func(t *testing.T) {
		v := &product.ProductStock{ID: 10, ProductID: 1, Price: nil}
		assertDecimal(t, "1000", pricing.BasePrice(p, v))
	})

	t.Run("non-zero override replaces base price", func(t *testing.T) {
		v := &product.ProductStock{ID: 10, ProductID: 1, Price: decPtr("1200")}
		assertDecimal(t, "1200", pricing.BasePrice(p, v))
	})

	t.Run("zero override is a valid price", func(t *testing.T) {
		v := &product.ProductStock{ID: 10, ProductID: 1, Price: decPtr("0")}
		assertDecimal(t, "0", pricing.BasePrice(p, v))

		sales := []product.FlashSale{sale(1, "10", now.Add(-time.Hour), now.Add(time.Hour))}
		assertDecimal(t, "0", pricing.Resolve(p, v, sales, now).UnitPrice)
	})
}

func TestApplyDiscountRoundsHalfUp(t *testing.T) {
	tests := []struct {
		base, pct, want string
	}{
		{"1000", "10", "900.00"},
		{"19.99", "15", "16.99"}, // 16.9915
		{"10.05", "50", "5.03"},  // 5.025
		{"0.01", "50", "0.01"},   // 0.005
		{"99.99", "0", "99.99"},
		{"250", "100", "0.00"},
	}

	for _, tt := range tests {
		got := pricing.ApplyDiscount(dec(tt.base), dec(tt.pct))
		assertDecimal(t, tt.want, got)
	}
}

func TestCurrentSaleFirstMatchWins(t *testing.T) {
	sales := []product.FlashSale{
		sale(3, "5", now.Add(-time.Hour), now.Add(time.Hour)),
		sale(4, "30", now.Add(-time.Hour), now.Add(time.Hour)),
	}

	got := pricing.CurrentSale(1, sales, now)

	require.NotNil(t, got)
	assert.Equal(t, uint(3), got.ID)
}

func TestSnapshotSaleForDeletedProductStaysTargeted(t *testing.T) {
	st := testutil.NewStack(t)
	retired := st.Fixtures.Product("Retired Tee", "100.00")
	classic := st.Fixtures.Product("Classic Tee", "100.00")
	v := st.Fixtures.Variant(classic, "Black", "M", 5)
	st.Fixtures.FlashSale("50", st.Now.Add(-time.Hour), st.Now.Add(time.Hour), retired)
	require.NoError(t, st.DB.Delete(retired).Error)

	snap, err := st.Pricer.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Sales, 1)
	assert.False(t, snap.Sales[0].IsSiteWide())

	v.Product = *classic
	q := snap.Quote(v)
	assert.True(t, q.UnitPrice.Equal(dec("100")), q.UnitPrice.String())
	assert.False(t, q.Discounted())
}
