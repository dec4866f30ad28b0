package pdf

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/order"
)

func TestRenderHTML(t *testing.T) {
	svc := NewService(&config.Config{App: config.AppConfig{CompanyName: "Storefront Ltd", CompanyEmail: "billing@storefront.test"}})

	o := &order.Order{
		OrderNumber:    "ORD-20260101-00007",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		Address:        "1 Analytical Way",
		City:           "London",
		PostalCode:     "N1",
		Subtotal:       decimal.RequireFromString("1800.00"),
		DiscountAmount: decimal.RequireFromString("180.00"),
		CouponCode:     "SAVE10",
		TotalPrice:     decimal.RequireFromString("1620.00"),
		Currency:       "usd",
		Status:         order.OrderStatusPending,
		PaymentMethod:  order.PaymentMethodCOD,
		CreatedAt:      time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		Items: []order.OrderItem{{
			ProductName: "Tee",
			ColorName:   "Black",
			SizeName:    "M",
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("900.00"),
			LineTotal:   decimal.RequireFromString("1800.00"),
		}},
	}

	html, err := svc.RenderHTML(o)
	require.NoError(t, err)

	page := string(html)
	assert.Contains(t, page, "INV-ORD-20260101-00007")
	assert.Contains(t, page, "Storefront Ltd")
	assert.Contains(t, page, "Black / M")
	assert.Contains(t, page, "900.00")
	assert.Contains(t, page, "Discount (SAVE10)")
	assert.Contains(t, page, "1620.00")
	assert.Contains(t, page, "unpaid")
}

func TestRenderHTMLOmitsDiscountRowWithoutCoupon(t *testing.T) {
	svc := NewService(&config.Config{})

	html, err := svc.RenderHTML(&order.Order{
		OrderNumber: "ORD-20260101-00008",
		Subtotal:    decimal.NewFromInt(10),
		TotalPrice:  decimal.NewFromInt(10),
		IsPaid:      true,
	})
	require.NoError(t, err)

	assert.NotContains(t, string(html), "Discount")
	assert.Contains(t, string(html), "status-paid")
}
