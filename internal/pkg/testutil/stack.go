package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/buyer"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/returns"
	"github.com/your-org/storefront/internal/pkg/events"
	"github.com/your-org/storefront/internal/pkg/logger"
	"gorm.io/gorm"
)

// BaseURL is the storefront origin used by Stack
const BaseURL = "https://shop.test"

// Stack is every domain service wired to one in-memory database
type Stack struct {
	DB       *gorm.DB
	Fixtures *Fixtures
	Logger   *logrus.Logger

	// Now is the clock seen by pricing and coupons
	Now time.Time

	Catalog     *product.Service
	Pricer      *pricing.Resolver
	Ledger      *inventory.Ledger
	Carts       *cart.Service
	CouponStore *MemoryCouponStore
	Coupons     *coupon.Service
	Events      *events.Recorder
	Orders      *order.Service
	Returns     *returns.Service
	Gateway     *FakeGateway
	Notifier    *RecordingNotifier
	Checkout    *checkout.Service
}

// NewStack builds a Stack on a fresh database
func NewStack(t *testing.T) *Stack {
	t.Helper()

	db := NewDB(t)
	log := logger.Discard()

	st := &Stack{
		DB:       db,
		Fixtures: NewFixtures(t, db),
		Logger:   log,
		Now:      time.Now().UTC(),
		Events:   &events.Recorder{},
		Gateway:  &FakeGateway{},
		Notifier: &RecordingNotifier{},
	}
	clock := func() time.Time { return st.Now }

	st.Catalog = product.NewService(db)
	st.Pricer = pricing.NewResolver(st.Catalog, clock)
	st.Ledger = inventory.NewLedger(db, log)
	st.Carts = cart.NewService(db, st.Catalog, st.Pricer, log)
	st.CouponStore = NewMemoryCouponStore()
	st.Coupons = coupon.NewService(db, st.CouponStore, clock, log)
	st.Orders = order.NewService(db, st.Ledger, st.Events, log)
	st.Returns = returns.NewService(db, st.Ledger, st.Orders, log)
	st.Checkout = checkout.NewService(checkout.Deps{
		DB:       db,
		Carts:    st.Carts,
		Pricer:   st.Pricer,
		Ledger:   st.Ledger,
		Orders:   st.Orders,
		Coupons:  st.Coupons,
		Gateway:  st.Gateway,
		Notifier: st.Notifier,
		Logger:   log,
		BaseURL:  BaseURL,
		Currency: "usd",
	})
	return st
}

// ValidRequest returns a checkout form that passes validation
func ValidRequest(method order.PaymentMethod) *checkout.Request {
	return &checkout.Request{
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Email:         "ada@example.com",
		Phone:         "+44 20 7946 0000",
		Address:       "1 Analytical Way",
		City:          "London",
		PostalCode:    "N1 9GU",
		PaymentMethod: method,
	}
}

// PlaceOrder puts qty of v in the buyer's cart and checks out with method
func (st *Stack) PlaceOrder(t *testing.T, id buyer.Identity, v *product.ProductStock, qty int, method order.PaymentMethod) *order.Order {
	t.Helper()

	ctx := context.Background()
	_, err := st.Carts.AddItem(ctx, id, &cart.AddItemRequest{ProductStockID: v.ID, Quantity: qty})
	require.NoError(t, err)

	res, err := st.Checkout.PlaceOrder(ctx, id, ValidRequest(method))
	require.NoError(t, err)
	return res.Order
}
