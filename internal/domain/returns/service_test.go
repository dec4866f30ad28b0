package returns_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/buyer"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/returns"
	"github.com/your-org/storefront/internal/pkg/events"
	"github.com/your-org/storefront/internal/pkg/testutil"
)

type returnsFixture struct {
	st      *testutil.Stack
	variant *product.ProductStock
	userID  uint
	order   *order.Order
}

func setup(t *testing.T) *returnsFixture {
	st := testutil.NewStack(t)
	v := st.Fixtures.Variant(st.Fixtures.Product("Classic Tee", "40.00"), "Black", "M", 10)
	u := st.Fixtures.User("returner@example.com", false)
	o := st.PlaceOrder(t, buyer.ForUser(u.ID), v, 3, order.PaymentMethodCOD)
	ship(t, st, o.ID)
	return &returnsFixture{st: st, variant: v, userID: u.ID, order: o}
}

func ship(t *testing.T, st *testutil.Stack, orderID uint) {
	t.Helper()
	for _, status := range []order.OrderStatus{order.OrderStatusProcessing, order.OrderStatusShipped} {
		_, err := st.Orders.UpdateStatus(context.Background(), orderID, status, "", 1)
		require.NoError(t, err)
	}
}

func TestCreateReturnRequest(t *testing.T) {
	fx := setup(t)

	rr, err := fx.st.Returns.Create(context.Background(), fx.userID, fx.order.ID, "  Wrong size  ")
	require.NoError(t, err)
	assert.Equal(t, returns.StatusPending, rr.Status)
	assert.Equal(t, "Wrong size", rr.Reason)
	assert.Equal(t, fx.order.ID, rr.OrderID)
	assert.Contains(t, fx.st.Events.Types(), events.ReturnRequested)
}

func TestCreateReturnRequestRejectsDuplicate(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	_, err := fx.st.Returns.Create(ctx, fx.userID, fx.order.ID, "Wrong size")
	require.NoError(t, err)

	_, err = fx.st.Returns.Create(ctx, fx.userID, fx.order.ID, "Changed my mind")
	assert.ErrorIs(t, err, returns.ErrDuplicateReturnRequest)

	var count int64
	require.NoError(t, fx.st.DB.Model(&returns.ReturnRequest{}).Where("order_id = ?", fx.order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateReturnRequestValidation(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	_, err := fx.st.Returns.Create(ctx, fx.userID, fx.order.ID, "   ")
	assert.ErrorIs(t, err, returns.ErrReasonRequired)

	other := fx.st.Fixtures.User("stranger@example.com", false)
	_, err = fx.st.Returns.Create(ctx, other.ID, fx.order.ID, "Not mine")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

}

func TestCreateReturnRequestRequiresShippedOrder(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	pending := fx.st.PlaceOrder(t, buyer.ForUser(fx.userID), fx.variant, 1, order.PaymentMethodCOD)
	_, err := fx.st.Returns.Create(ctx, fx.userID, pending.ID, "Not here yet")
	assert.ErrorIs(t, err, returns.ErrOrderNotReturnable)

	_, err = fx.st.Orders.UpdateStatus(ctx, pending.ID, order.OrderStatusProcessing, "", 1)
	require.NoError(t, err)
	_, err = fx.st.Returns.Create(ctx, fx.userID, pending.ID, "Still packing")
	assert.ErrorIs(t, err, returns.ErrOrderNotReturnable)

	_, err = fx.st.Orders.Cancel(ctx, pending.ID, "", 0)
	require.NoError(t, err)
	_, err = fx.st.Returns.Create(ctx, fx.userID, pending.ID, "Cancelled anyway")
	assert.ErrorIs(t, err, returns.ErrOrderNotReturnable)

	completed, err := fx.st.Orders.UpdateStatus(ctx, fx.order.ID, order.OrderStatusCompleted, "", 1)
	require.NoError(t, err)
	_, err = fx.st.Returns.Create(ctx, fx.userID, completed.ID, "Arrived torn")
	assert.NoError(t, err)
}

func TestRefundedOrderCannotBeCancelledForSecondRestock(t *testing.T) {
	st := testutil.NewStack(t)
	ctx := context.Background()
	v := st.Fixtures.Variant(st.Fixtures.Product("Classic Tee", "40.00"), "Black", "M", 10)
	u := st.Fixtures.User("returner@example.com", false)
	o := st.PlaceOrder(t, buyer.ForUser(u.ID), v, 3, order.PaymentMethodCOD)
	_, err := st.Orders.UpdateStatus(ctx, o.ID, order.OrderStatusProcessing, "", 1)
	require.NoError(t, err)

	// rows written before returns required a shipped order
	legacy := returns.ReturnRequest{OrderID: o.ID, UserID: u.ID, Reason: "Too small", Status: returns.StatusRefunded}
	require.NoError(t, st.DB.Create(&legacy).Error)
	require.NoError(t, st.DB.Exec("UPDATE product_stocks SET quantity = quantity + 3 WHERE id = ?", v.ID).Error)
	require.Equal(t, 10, st.Fixtures.Quantity(v.ID))

	_, err = st.Orders.Cancel(ctx, o.ID, "changed mind", 1)
	assert.ErrorIs(t, err, order.ErrInvalidStatusTransition)
	assert.Equal(t, 10, st.Fixtures.Quantity(v.ID))

	stored, err := st.Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusProcessing, stored.Status)
}

func TestRefundRequiresShippedOrder(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	pending := fx.st.PlaceOrder(t, buyer.ForUser(fx.userID), fx.variant, 2, order.PaymentMethodCOD)
	legacy := returns.ReturnRequest{OrderID: pending.ID, UserID: fx.userID, Reason: "Too small", Status: returns.StatusApproved}
	require.NoError(t, fx.st.DB.Create(&legacy).Error)
	require.Equal(t, 5, fx.st.Fixtures.Quantity(fx.variant.ID))

	_, err := fx.st.Returns.Review(ctx, legacy.ID, returns.StatusRefunded, "", 1)
	assert.ErrorIs(t, err, returns.ErrOrderNotReturnable)
	assert.Equal(t, 5, fx.st.Fixtures.Quantity(fx.variant.ID))
}

func TestReviewRefundRestoresStock(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	require.Equal(t, 7, fx.st.Fixtures.Quantity(fx.variant.ID))

	rr, err := fx.st.Returns.Create(ctx, fx.userID, fx.order.ID, "Too small")
	require.NoError(t, err)

	approved, err := fx.st.Returns.Review(ctx, rr.ID, returns.StatusApproved, "Send it back", 1)
	require.NoError(t, err)
	assert.Equal(t, returns.StatusApproved, approved.Status)
	assert.Equal(t, "Send it back", approved.AdminResponse)
	assert.Equal(t, 7, fx.st.Fixtures.Quantity(fx.variant.ID))

	refunded, err := fx.st.Returns.Review(ctx, rr.ID, returns.StatusRefunded, "", 1)
	require.NoError(t, err)
	assert.Equal(t, returns.StatusRefunded, refunded.Status)
	require.NotNil(t, refunded.ReviewedBy)
	assert.Equal(t, uint(1), *refunded.ReviewedBy)
	assert.Equal(t, 10, fx.st.Fixtures.Quantity(fx.variant.ID))

	movements, err := fx.st.Ledger.Movements(ctx, fx.variant.ID, 1)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, inventory.ReasonReturn, movements[0].Reason)
	assert.Equal(t, inventory.RefReturn, movements[0].ReferenceType)
	assert.Equal(t, rr.ID, movements[0].ReferenceID)

	stored, err := fx.st.Returns.Get(ctx, rr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Send it back", stored.AdminResponse)
}

func TestReviewRejectsInvalidTransitions(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	rr, err := fx.st.Returns.Create(ctx, fx.userID, fx.order.ID, "Faded")
	require.NoError(t, err)

	_, err = fx.st.Returns.Review(ctx, rr.ID, returns.StatusRefunded, "", 1)
	assert.ErrorIs(t, err, returns.ErrInvalidTransition)
	assert.Equal(t, 7, fx.st.Fixtures.Quantity(fx.variant.ID))

	_, err = fx.st.Returns.Review(ctx, rr.ID, returns.StatusRejected, "Worn", 1)
	require.NoError(t, err)

	_, err = fx.st.Returns.Review(ctx, rr.ID, returns.StatusApproved, "", 1)
	assert.ErrorIs(t, err, returns.ErrInvalidTransition)

	_, err = fx.st.Returns.Review(ctx, 9999, returns.StatusApproved, "", 1)
	assert.ErrorIs(t, err, returns.ErrReturnNotFound)
}
