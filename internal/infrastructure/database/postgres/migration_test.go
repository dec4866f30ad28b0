package postgres_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/testutil"
)

func TestSeedInitialDataIsRepeatable(t *testing.T) {
	db := testutil.NewDB(t)
	m := postgres.NewMigration(db, logger.Discard())

	require.NoError(t, m.SeedInitialData())
	require.NoError(t, m.SeedInitialData())

	counts := map[string]int64{}
	for name, model := range map[string]interface{}{
		"users":      &user.User{},
		"products":   &product.Product{},
		"variants":   &product.ProductStock{},
		"flashSales": &product.FlashSale{},
		"coupons":    &coupon.Coupon{},
	} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		counts[name] = n
	}

	assert.Equal(t, int64(2), counts["users"])
	assert.Equal(t, int64(2), counts["products"])
	assert.Equal(t, int64(18), counts["variants"])
	assert.Equal(t, int64(1), counts["flashSales"])
	assert.Equal(t, int64(2), counts["coupons"])
}

func TestSeededLargeTeeCarriesPriceOverride(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, postgres.NewMigration(db, logger.Discard()).SeedInitialData())

	var stocks []product.ProductStock
	require.NoError(t, db.Joins("JOIN products ON products.id = product_stocks.product_id").
		Where("products.slug = ?", "classic-tee").
		Preload("Size").
		Find(&stocks).Error)
	require.Len(t, stocks, 9)

	for _, s := range stocks {
		if s.Size.Name == "L" {
			require.NotNil(t, s.Price)
			assert.True(t, s.Price.Equal(decimal.NewFromInt(1100)), s.Price.String())
			continue
		}
		assert.Nil(t, s.Price)
	}
}
