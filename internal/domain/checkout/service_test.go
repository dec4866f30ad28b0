package checkout_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/buyer"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/pkg/events"
	"github.com/your-org/storefront/internal/pkg/testutil"
)

func addToCart(t *testing.T, st *testutil.Stack, id buyer.Identity, v *product.ProductStock, qty int) {
	t.Helper()
	_, err := st.Carts.AddItem(context.Background(), id, &cart.AddItemRequest{ProductStockID: v.ID, Quantity: qty})
	require.NoError(t, err)
}

func cartSize(t *testing.T, st *testutil.Stack, id buyer.Identity) int {
	t.Helper()
	view, err := st.Carts.View(context.Background(), id)
	require.NoError(t, err)
	return len(view.Items)
}

func orderCount(t *testing.T, st *testutil.Stack) int64 {
	t.Helper()
	var n int64
	require.NoError(t, st.DB.Model(&order.Order{}).Count(&n).Error)
	return n
}

func TestPlaceOrderCashOnDeliveryWithSiteWideSale(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()
	f := st.Fixtures

	tee := f.Product("Classic Tee", "1000.00")
	v := f.Variant(tee, "Black", "M", 10)
	f.FlashSale("10", st.Now.Add(-time.Hour), st.Now.Add(time.Hour))

	u := f.User("ada@example.com", false)
	id := buyer.ForUser(u.ID)
	addToCart(t, st, id, v, 2)

	res, err := st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCOD))
	require.NoError(t, err)

	assert.Equal(t, checkout.OutcomeCompleted, res.Outcome)
	assert.Equal(t, testutil.BaseURL+"/orders/"+itoa(res.Order.ID)+"/confirmation", res.RedirectURL)

	o, err := st.Orders.Get(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^ORD-\d{8}-\d{5}$`, o.OrderNumber)
	assert.Equal(t, "1800.00", o.Subtotal.StringFixed(2))
	assert.Equal(t, "1800.00", o.TotalPrice.StringFixed(2))
	assert.True(t, o.DiscountAmount.IsZero())
	assert.Equal(t, order.OrderStatusPending, o.Status)
	assert.False(t, o.IsPaid)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "900.00", o.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "1800.00", o.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "Black", o.Items[0].ColorName)
	assert.Equal(t, "M", o.Items[0].SizeName)
	assert.Len(t, o.StatusHistory, 1)

	assert.Equal(t, 8, f.Quantity(v.ID))
	assert.Equal(t, 0, cartSize(t, st, id))
	assert.Equal(t, 1, st.Notifier.Count())
	assert.Equal(t, []events.EventType{events.OrderPlaced}, st.Events.Types())

	movements, err := st.Ledger.Movements(ctx, v.ID, 10)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, inventory.ReasonSale, movements[0].Reason)
	assert.Equal(t, inventory.RefOrder, movements[0].ReferenceType)
	assert.Equal(t, o.ID, movements[0].ReferenceID)
	assert.Equal(t, 10, movements[0].PreviousQuantity)
	assert.Equal(t, 8, movements[0].NewQuantity)
}

func TestPlaceOrderGuestSession(t *testing.T) {
	st := testutil.NewStack(t)
	v := st.Fixtures.Variant(st.Fixtures.Product("Classic Tee", "25.50"), "White", "S", 3)

	id := buyer.ForSession("guest-session-token")
	addToCart(t, st, id, v, 1)

	res, err := st.Checkout.PlaceOrder(context.Background(), id, testutil.ValidRequest(order.PaymentMethodCOD))
	require.NoError(t, err)

	require.NotNil(t, res.Order.SessionToken)
	assert.Equal(t, "guest-session-token", *res.Order.SessionToken)
	assert.Nil(t, res.Order.UserID)
	assert.Equal(t, "25.50", res.Order.TotalPrice.StringFixed(2))
	assert.Equal(t, 2, st.Fixtures.Quantity(v.ID))
}

func TestPlaceOrderInsufficientStockLeavesNothingBehind(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()
	f := st.Fixtures

	v := f.Variant(f.Product("Classic Tee", "1000.00"), "Black", "M", 2)
	id := buyer.ForSession("buyer-b")
	addToCart(t, st, id, v, 2)

	_, err := st.Ledger.Adjust(ctx, v.ID, -1, "damaged", 1)
	require.NoError(t, err)

	_, err = st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCOD))
	require.Error(t, err)
	assert.True(t, errors.Is(err, inventory.ErrInsufficientStock))

	var stockErr *inventory.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Classic Tee", stockErr.ProductName)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)

	stage, ok := checkout.FailedStage(err)
	assert.True(t, ok)
	assert.Equal(t, checkout.StageReservingStock, stage)

	assert.Equal(t, int64(0), orderCount(t, st))
	assert.Equal(t, 1, f.Quantity(v.ID))
	assert.Equal(t, 1, cartSize(t, st, id))
	assert.Equal(t, 0, st.Notifier.Count())
	assert.Empty(t, st.Events.Types())
}

func TestPlaceOrderRollsBackEarlierLinesWhenALaterLineFails(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()
	f := st.Fixtures

	p := f.Product("Classic Tee", "20.00")
	variants := []*product.ProductStock{
		f.Variant(p, "Black", "S", 5),
		f.Variant(p, "Black", "M", 5),
		f.Variant(p, "Black", "L", 5),
		f.Variant(p, "White", "M", 5),
	}

	id := buyer.ForSession("buyer-atomic")
	for _, v := range variants {
		addToCart(t, st, id, v, 3)
	}
	_, err := st.Ledger.Adjust(ctx, variants[2].ID, -4, "recount", 1)
	require.NoError(t, err)

	_, err = st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCOD))
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	assert.Equal(t, 5, f.Quantity(variants[0].ID))
	assert.Equal(t, 5, f.Quantity(variants[1].ID))
	assert.Equal(t, 1, f.Quantity(variants[2].ID))
	assert.Equal(t, 5, f.Quantity(variants[3].ID))

	var sales int64
	require.NoError(t, st.DB.Model(&inventory.StockMovement{}).Where("reason = ?", inventory.ReasonSale).Count(&sales).Error)
	assert.Equal(t, int64(0), sales)
	assert.Equal(t, int64(0), orderCount(t, st))
	assert.Equal(t, 4, cartSize(t, st, id))
}

func TestPlaceOrderCardAwaitsPaymentAndKeepsCart(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()
	f := st.Fixtures

	v := f.Variant(f.Product("Zip Hoodie", "2500.00"), "Navy", "L", 4)
	u := f.User("card@example.com", false)
	id := buyer.ForUser(u.ID)
	addToCart(t, st, id, v, 1)

	res, err := st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCard))
	require.NoError(t, err)

	assert.Equal(t, checkout.OutcomeAwaitingExternalPayment, res.Outcome)
	assert.Equal(t, "https://checkout.stripe.test/pay/cs_test_1", res.RedirectURL)
	assert.False(t, res.Order.IsPaid)
	assert.Equal(t, 3, f.Quantity(v.ID))
	assert.Equal(t, 1, cartSize(t, st, id))
	assert.Equal(t, 0, st.Notifier.Count())

	require.Equal(t, 1, st.Gateway.Calls())
	req := st.Gateway.Requests[0]
	assert.Equal(t, res.Order.ID, req.OrderID)
	assert.Equal(t, res.Order.OrderNumber, req.OrderNumber)
	assert.Equal(t, "2500.00", req.Total.StringFixed(2))
	assert.Equal(t, "usd", req.Currency)
	assert.True(t, strings.HasSuffix(req.SuccessURL, "/api/v1/payment/success?order_id="+itoa(res.Order.ID)))
	assert.True(t, strings.HasSuffix(req.CancelURL, "/api/v1/payment/cancel?order_id="+itoa(res.Order.ID)))
	require.Len(t, req.Lines, 1)
	assert.Equal(t, "Zip Hoodie - Navy / L", req.Lines[0].Name)

	o, err := st.Orders.Get(ctx, res.Order.ID)
	require.NoError(t, err)
	require.Len(t, o.Payments, 1)
	assert.Equal(t, "cs_test_1", o.Payments[0].ProviderSessionID)
	assert.Equal(t, order.PaymentStatusPending, o.Payments[0].Status)
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()
	f := st.Fixtures

	v := f.Variant(f.Product("Zip Hoodie", "2500.00"), "Navy", "L", 4)
	id := buyer.ForSession("card-buyer")
	addToCart(t, st, id, v, 1)

	res, err := st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCard))
	require.NoError(t, err)

	o, changed, err := st.Checkout.ConfirmPayment(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, o.IsPaid)
	require.NotNil(t, o.PaidAt)
	assert.Equal(t, 0, cartSize(t, st, id))

	// Items added after payment must survive a repeated callback
	addToCart(t, st, id, v, 1)

	again, changed, err := st.Checkout.ConfirmPayment(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, again.IsPaid)
	assert.Equal(t, 1, cartSize(t, st, id))

	assert.Equal(t, 1, st.Notifier.Count())
	assert.Equal(t, 3, f.Quantity(v.ID))
	assert.Equal(t, []events.EventType{events.OrderPlaced, events.OrderPaid}, st.Events.Types())

	stored, err := st.Orders.Get(ctx, res.Order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Payments, 1)
	assert.Equal(t, order.PaymentStatusPaid, stored.Payments[0].Status)
	assert.NotNil(t, stored.Payments[0].ProcessedAt)
}

func TestConfirmPaymentConcurrentCallbacksApplyOnce(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()

	v := st.Fixtures.Variant(st.Fixtures.Product("Zip Hoodie", "2500.00"), "Navy", "L", 4)
	id := buyer.ForSession("racing-callbacks")
	addToCart(t, st, id, v, 1)

	res, err := st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCard))
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, changed, err := st.Checkout.ConfirmPayment(ctx, res.Order.ID)
			assert.NoError(t, err)
			if changed {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, st.Notifier.Count())
}

func TestConfirmPaymentRejectsNonCardAndCancelledOrders(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()
	f := st.Fixtures

	v := f.Variant(f.Product("Classic Tee", "10.00"), "Black", "M", 10)

	cod := buyer.ForSession("cod-buyer")
	addToCart(t, st, cod, v, 1)
	codOrder, err := st.Checkout.PlaceOrder(ctx, cod, testutil.ValidRequest(order.PaymentMethodCOD))
	require.NoError(t, err)

	_, _, err = st.Checkout.ConfirmPayment(ctx, codOrder.Order.ID)
	assert.ErrorIs(t, err, order.ErrInvalidStatusTransition)

	card := buyer.ForSession("abandoning-buyer")
	addToCart(t, st, card, v, 1)
	cardOrder, err := st.Checkout.PlaceOrder(ctx, card, testutil.ValidRequest(order.PaymentMethodCard))
	require.NoError(t, err)
	_, err = st.Checkout.CancelPayment(ctx, cardOrder.Order.ID)
	require.NoError(t, err)

	_, _, err = st.Checkout.ConfirmPayment(ctx, cardOrder.Order.ID)
	assert.ErrorIs(t, err, order.ErrPaidAfterCancel)

	_, _, err = st.Checkout.ConfirmPayment(ctx, 9999)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestCancelPaymentRestoresStock(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()
	f := st.Fixtures

	v := f.Variant(f.Product("Zip Hoodie", "2500.00"), "Navy", "L", 4)
	id := buyer.ForSession("cancel-buyer")
	addToCart(t, st, id, v, 2)

	res, err := st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCard))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Quantity(v.ID))

	o, err := st.Checkout.CancelPayment(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusCancelled, o.Status)
	assert.Equal(t, 4, f.Quantity(v.ID))
	assert.Equal(t, 1, cartSize(t, st, id))

	// A second cancel callback changes nothing
	_, err = st.Checkout.CancelPayment(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Quantity(v.ID))

	stored, err := st.Orders.Get(ctx, res.Order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Payments, 1)
	assert.Equal(t, order.PaymentStatusCancelled, stored.Payments[0].Status)
	assert.Equal(t, []events.EventType{events.OrderPlaced, events.OrderCancelled}, st.Events.Types())
	assert.Equal(t, []string{stored.Payments[0].ProviderSessionID}, st.Gateway.ExpiredSessions())
}

func TestCancelPaymentSurvivesSessionExpiryFailure(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()

	v := st.Fixtures.Variant(st.Fixtures.Product("Zip Hoodie", "2500.00"), "Navy", "L", 4)
	id := buyer.ForSession("cancel-buyer")
	addToCart(t, st, id, v, 1)

	res, err := st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCard))
	require.NoError(t, err)

	st.Gateway.ExpireErr = errors.New("provider unavailable")
	o, err := st.Checkout.CancelPayment(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusCancelled, o.Status)
	assert.Equal(t, 4, st.Fixtures.Quantity(v.ID))
	assert.Empty(t, st.Gateway.ExpiredSessions())
}

func TestPaymentAfterCancelIsFlaggedForRefund(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()

	v := st.Fixtures.Variant(st.Fixtures.Product("Zip Hoodie", "2500.00"), "Navy", "L", 4)
	id := buyer.ForSession("late-buyer")
	addToCart(t, st, id, v, 2)

	res, err := st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCard))
	require.NoError(t, err)
	_, err = st.Checkout.CancelPayment(ctx, res.Order.ID)
	require.NoError(t, err)

	o, changed, err := st.Checkout.ConfirmPayment(ctx, res.Order.ID)
	require.ErrorIs(t, err, order.ErrPaidAfterCancel)
	assert.False(t, changed)
	assert.Equal(t, order.OrderStatusCancelled, o.Status)
	assert.False(t, o.IsPaid)
	assert.Equal(t, 4, st.Fixtures.Quantity(v.ID))

	stored, err := st.Orders.Get(ctx, res.Order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Payments, 1)
	assert.Equal(t, order.PaymentStatusRefundRequired, stored.Payments[0].Status)
	assert.NotNil(t, stored.Payments[0].ProcessedAt)

	// A provider retry reports the same outcome without flagging twice
	_, _, err = st.Checkout.ConfirmPayment(ctx, res.Order.ID)
	assert.ErrorIs(t, err, order.ErrPaidAfterCancel)
	assert.Equal(t,
		[]events.EventType{events.OrderPlaced, events.OrderCancelled, events.RefundRequired},
		st.Events.Types())
}

func TestCancelPaymentLeavesPaidOrderAlone(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()

	v := st.Fixtures.Variant(st.Fixtures.Product("Zip Hoodie", "2500.00"), "Navy", "L", 4)
	id := buyer.ForSession("paid-buyer")
	addToCart(t, st, id, v, 1)

	res, err := st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCard))
	require.NoError(t, err)
	_, _, err = st.Checkout.ConfirmPayment(ctx, res.Order.ID)
	require.NoError(t, err)

	_, err = st.Checkout.CancelPayment(ctx, res.Order.ID)
	assert.ErrorIs(t, err, order.ErrAlreadyPaid)
	assert.Equal(t, 3, st.Fixtures.Quantity(v.ID))
}

func TestPlaceOrderGatewayFailureRollsBack(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()
	f := st.Fixtures

	v := f.Variant(f.Product("Zip Hoodie", "2500.00"), "Navy", "L", 4)
	id := buyer.ForSession("gateway-down")
	addToCart(t, st, id, v, 2)

	st.Gateway.Err = errors.New("connection refused")

	_, err := st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCard))
	require.Error(t, err)

	var payErr *checkout.ExternalPaymentError
	assert.True(t, errors.As(err, &payErr))
	stage, _ := checkout.FailedStage(err)
	assert.Equal(t, checkout.StageBranchingPayment, stage)

	assert.Equal(t, int64(0), orderCount(t, st))
	assert.Equal(t, 4, f.Quantity(v.ID))
	assert.Equal(t, 1, cartSize(t, st, id))
	assert.Empty(t, st.Events.Types())
}

func TestPlaceOrderAppliesCoupon(t *testing.T) {
	tests := []struct {
		name     string
		typ      coupon.Type
		value    string
		discount string
		total    string
	}{
		{name: "percent", typ: coupon.TypePercent, value: "10", discount: "180.00", total: "1620.00"},
		{name: "fixed", typ: coupon.TypeFixed, value: "250", discount: "250.00", total: "1550.00"},
		{name: "fixed larger than subtotal", typ: coupon.TypeFixed, value: "5000", discount: "1800.00", total: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := testutil.NewStack(t)
			ctx := context.Background()
			f := st.Fixtures

			v := f.Variant(f.Product("Classic Tee", "900.00"), "Black", "M", 5)
			f.Coupon("SAVE", tt.typ, tt.value, nil)

			id := buyer.ForSession("coupon-buyer")
			addToCart(t, st, id, v, 2)
			_, err := st.Coupons.Apply(ctx, id, "save")
			require.NoError(t, err)

			res, err := st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCOD))
			require.NoError(t, err)

			assert.Equal(t, "1800.00", res.Order.Subtotal.StringFixed(2))
			assert.Equal(t, tt.discount, res.Order.DiscountAmount.StringFixed(2))
			assert.Equal(t, tt.total, res.Order.TotalPrice.StringFixed(2))
			assert.Equal(t, "SAVE", res.Order.CouponCode)
			assert.False(t, st.CouponStore.Has(id))
		})
	}
}

func TestPlaceOrderDropsCouponThatExpiredAfterApply(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()
	f := st.Fixtures

	v := f.Variant(f.Product("Classic Tee", "900.00"), "Black", "M", 5)
	expires := st.Now.Add(time.Hour)
	f.Coupon("SOON", coupon.TypePercent, "10", &expires)

	id := buyer.ForSession("late-buyer")
	addToCart(t, st, id, v, 1)
	_, err := st.Coupons.Apply(ctx, id, "SOON")
	require.NoError(t, err)

	st.Now = st.Now.Add(2 * time.Hour)

	res, err := st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCOD))
	require.NoError(t, err)
	assert.Equal(t, "900.00", res.Order.TotalPrice.StringFixed(2))
	assert.True(t, res.Order.DiscountAmount.IsZero())
	assert.Empty(t, res.Order.CouponCode)
}

func TestPlaceOrderCardWithCouponChargesDiscountedTotal(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()
	f := st.Fixtures

	v := f.Variant(f.Product("Classic Tee", "900.00"), "Black", "M", 5)
	f.Coupon("SAVE10", coupon.TypePercent, "10", nil)

	id := buyer.ForSession("card-coupon")
	addToCart(t, st, id, v, 2)
	_, err := st.Coupons.Apply(ctx, id, "SAVE10")
	require.NoError(t, err)

	res, err := st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCard))
	require.NoError(t, err)
	require.Equal(t, 1, st.Gateway.Calls())
	assert.Equal(t, "1620.00", st.Gateway.Requests[0].Total.StringFixed(2))

	// The coupon stays until the payment is confirmed
	assert.True(t, st.CouponStore.Has(id))
	_, _, err = st.Checkout.ConfirmPayment(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.False(t, st.CouponStore.Has(id))
}

func TestPlaceOrderContinuesWhenCouponStoreFails(t *testing.T) {
	st := testutil.NewStack(t)
	v := st.Fixtures.Variant(st.Fixtures.Product("Classic Tee", "900.00"), "Black", "M", 5)
	id := buyer.ForSession("redis-down")
	addToCart(t, st, id, v, 1)

	st.CouponStore.LoadErr = errors.New("redis: connection refused")

	res, err := st.Checkout.PlaceOrder(context.Background(), id, testutil.ValidRequest(order.PaymentMethodCOD))
	require.NoError(t, err)
	assert.Equal(t, "900.00", res.Order.TotalPrice.StringFixed(2))
}

func TestPlaceOrderValidation(t *testing.T) {
	st := testutil.NewStack(t)
	v := st.Fixtures.Variant(st.Fixtures.Product("Classic Tee", "900.00"), "Black", "M", 5)
	id := buyer.ForSession("sloppy-buyer")
	addToCart(t, st, id, v, 1)

	req := testutil.ValidRequest("bitcoin")
	req.Email = "not-an-email"
	req.Phone = "call me"
	req.City = "   "

	_, err := st.Checkout.PlaceOrder(context.Background(), id, req)
	require.Error(t, err)

	var verr *checkout.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must be a valid email address", verr.Fields["email"])
	assert.Equal(t, "must be a valid phone number", verr.Fields["phone"])
	assert.Equal(t, "is required", verr.Fields["city"])
	assert.Equal(t, "must be cod or card", verr.Fields["payment_method"])
	assert.NotContains(t, verr.Fields, "first_name")

	stage, _ := checkout.FailedStage(err)
	assert.Equal(t, checkout.StageValidating, stage)
	assert.Equal(t, int64(0), orderCount(t, st))
}

func TestPlaceOrderNormalizesInput(t *testing.T) {
	st := testutil.NewStack(t)
	v := st.Fixtures.Variant(st.Fixtures.Product("Classic Tee", "900.00"), "Black", "M", 5)
	id := buyer.ForSession("shouty-buyer")
	addToCart(t, st, id, v, 1)

	req := testutil.ValidRequest(" COD ")
	req.Email = "  Ada@Example.COM "

	res, err := st.Checkout.PlaceOrder(context.Background(), id, req)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", res.Order.Email)
	assert.Equal(t, order.PaymentMethodCOD, res.Order.PaymentMethod)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	st := testutil.NewStack(t)

	_, err := st.Checkout.PlaceOrder(context.Background(), buyer.ForSession("nobody"), testutil.ValidRequest(order.PaymentMethodCOD))
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	assert.Equal(t, int64(0), orderCount(t, st))
}

func TestPlaceOrderRejectsInvalidIdentity(t *testing.T) {
	st := testutil.NewStack(t)

	_, err := st.Checkout.PlaceOrder(context.Background(), buyer.Identity{}, testutil.ValidRequest(order.PaymentMethodCOD))
	assert.ErrorIs(t, err, buyer.ErrInvalidIdentity)
}

func TestPlaceOrderRejectsInactiveProduct(t *testing.T) {
	st := testutil.NewStack(t)
	f := st.Fixtures

	p := f.Product("Retired Tee", "10.00")
	v := f.Variant(p, "Black", "M", 5)
	id := buyer.ForSession("retired")
	addToCart(t, st, id, v, 1)
	f.Deactivate(p)

	_, err := st.Checkout.PlaceOrder(context.Background(), id, testutil.ValidRequest(order.PaymentMethodCOD))
	assert.ErrorIs(t, err, cart.ErrProductUnavailable)
	stage, _ := checkout.FailedStage(err)
	assert.Equal(t, checkout.StagePricing, stage)
	assert.Equal(t, 5, f.Quantity(v.ID))
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()

	v := st.Fixtures.Variant(st.Fixtures.Product("Last Tee", "10.00"), "Black", "M", 3)

	buyers := []buyer.Identity{buyer.ForSession("racer-1"), buyer.ForSession("racer-2")}
	for _, id := range buyers {
		addToCart(t, st, id, v, 2)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		oversold  int
	)
	for _, id := range buyers {
		wg.Add(1)
		go func(id buyer.Identity) {
			defer wg.Done()
			_, err := st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCOD))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, inventory.ErrInsufficientStock):
				oversold++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, oversold)
	assert.Equal(t, 1, st.Fixtures.Quantity(v.ID))
	assert.Equal(t, int64(1), orderCount(t, st))
}

func TestCheckoutsReserveVariantsInIDOrder(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()
	f := st.Fixtures

	tee := f.Product("Classic Tee", "10.00")
	first := f.Variant(tee, "Black", "M", 5)
	second := f.Variant(tee, "White", "M", 5)

	forward := buyer.ForSession("forward")
	addToCart(t, st, forward, first, 1)
	addToCart(t, st, forward, second, 1)

	backward := buyer.ForSession("backward")
	addToCart(t, st, backward, second, 1)
	addToCart(t, st, backward, first, 1)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		orders []uint
	)
	for _, id := range []buyer.Identity{forward, backward} {
		wg.Add(1)
		go func(id buyer.Identity) {
			defer wg.Done()
			res, err := st.Checkout.PlaceOrder(ctx, id, testutil.ValidRequest(order.PaymentMethodCOD))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			orders = append(orders, res.Order.ID)
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	require.Len(t, orders, 2)

	for _, orderID := range orders {
		var movements []inventory.StockMovement
		require.NoError(t, st.DB.
			Where("reference_type = ? AND reference_id = ?", inventory.RefOrder, orderID).
			Order("id ASC").
			Find(&movements).Error)
		require.Len(t, movements, 2)
		assert.Equal(t, first.ID, movements[0].ProductStockID)
		assert.Equal(t, second.ID, movements[1].ProductStockID)
	}
	assert.Equal(t, 3, f.Quantity(first.ID))
	assert.Equal(t, 3, f.Quantity(second.ID))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
