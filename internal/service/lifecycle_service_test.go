package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"supply-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lifecycleFixture struct {
	store     *fakeStore
	locker    *fakeLocker
	events    *fakeEvents
	lifecycle *LifecycleService
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	store := newFakeStore()
	store.suppliers["sup-1"] = &models.Supplier{ID: "sup-1", Name: "Acme Materials"}
	store.suppliers["sup-2"] = &models.Supplier{ID: "sup-2", Name: "Other Materials"}
	store.vendors["ven-1"] = &models.Vendor{
		ID: "ven-1", Name: "Corner Stall",
		Lat: sql.NullFloat64{Float64: 0, Valid: true},
		Lng: sql.NullFloat64{Float64: 0.05, Valid: true},
	}
	store.materials["sup-1"] = []models.Material{
		{ID: 1, SupplierID: "sup-1", Name: "Sand", Price: 30, IsAvailable: true, MinimumOrderQuantity: 5},
		{ID: 2, SupplierID: "sup-1", Name: "Gravel", Price: 50, IsAvailable: true, MinimumOrderQuantity: 2},
		{ID: 3, SupplierID: "sup-1", Name: "Cement", Price: 200, IsAvailable: false, MinimumOrderQuantity: 1},
	}

	locker := newFakeLocker()
	events := &fakeEvents{}
	return &lifecycleFixture{
		store:     store,
		locker:    locker,
		events:    events,
		lifecycle: NewLifecycleService(store, locker, events),
	}
}

func (f *lifecycleFixture) createOrder(t *testing.T) *models.Order {
	t.Helper()
	order, _, err := f.lifecycle.Create(context.Background(), &CreateOrderRequest{
		VendorID:   "ven-1",
		SupplierID: "sup-1",
		Items: []OrderItemRequest{
			{MaterialID: 1, Quantity: 10}, // 10 x 30 = 300
			{MaterialID: 2, Quantity: 4},  // 4 x 50 = 200
		},
		DeliveryAddress: "12 Market Road",
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrderComputesTotals(t *testing.T) {
	f := newLifecycleFixture(t)

	order, items, err := f.lifecycle.Create(context.Background(), &CreateOrderRequest{
		VendorID:   "ven-1",
		SupplierID: "sup-1",
		Items: []OrderItemRequest{
			{MaterialID: 1, Quantity: 10},
			{MaterialID: 2, Quantity: 4},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(500), order.TotalAmount)
	assert.Equal(t, models.StatusRequested, order.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, order.PaymentStatus)

	require.Len(t, items, 2)
	assert.Equal(t, int64(300), items[0].LineTotal)
	assert.Equal(t, int64(200), items[1].LineTotal)

	var sum int64
	for _, it := range items {
		sum += it.LineTotal
	}
	assert.Equal(t, order.TotalAmount, sum)

	history, err := f.store.GetOrderHistory(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	sent := f.events.byType(models.EventOrderRequestSent)
	require.Len(t, sent, 1)
	assert.Equal(t, "sup-1", sent[0].(*models.OrderRequestSentEvent).RecipientID)
}

func TestCreateOrderUnavailableMaterial(t *testing.T) {
	f := newLifecycleFixture(t)

	// Unknown material id.
	_, _, err := f.lifecycle.Create(context.Background(), &CreateOrderRequest{
		VendorID: "ven-1", SupplierID: "sup-1",
		Items: []OrderItemRequest{{MaterialID: 99, Quantity: 10}},
	})
	assert.ErrorIs(t, err, models.ErrMaterialUnavailable)

	// Known but flagged unavailable.
	_, _, err = f.lifecycle.Create(context.Background(), &CreateOrderRequest{
		VendorID: "ven-1", SupplierID: "sup-1",
		Items: []OrderItemRequest{{MaterialID: 3, Quantity: 1}},
	})
	assert.ErrorIs(t, err, models.ErrMaterialUnavailable)
}

func TestCreateOrderMinimumQuantity(t *testing.T) {
	f := newLifecycleFixture(t)

	_, _, err := f.lifecycle.Create(context.Background(), &CreateOrderRequest{
		VendorID: "ven-1", SupplierID: "sup-1",
		Items: []OrderItemRequest{{MaterialID: 1, Quantity: 4}},
	})
	assert.ErrorIs(t, err, models.ErrMinimumQuantity)

	// Nothing was persisted.
	orders, err := f.store.GetOrdersByVendor(context.Background(), "ven-1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrderUnknownSupplier(t *testing.T) {
	f := newLifecycleFixture(t)

	_, _, err := f.lifecycle.Create(context.Background(), &CreateOrderRequest{
		VendorID: "ven-1", SupplierID: "sup-99",
		Items: []OrderItemRequest{{MaterialID: 1, Quantity: 10}},
	})
	assert.ErrorIs(t, err, models.ErrSupplierNotFound)
}

func TestFullLifecycleScenario(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	order := f.createOrder(t)

	// Supplier approves.
	got, err := f.lifecycle.Transition(ctx, order.ID, "sup-1", models.RoleSupplier, models.StatusApproved, "stock confirmed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)

	// Payment asserted by the external collaborator.
	got, err = f.lifecycle.RecordPayment(ctx, order.ID, "ven-1", 500, "pg-tx-811")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.Status)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)

	// Supplier dispatches.
	got, err = f.lifecycle.Transition(ctx, order.ID, "sup-1", models.RoleSupplier, models.StatusDispatched, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDispatched, got.Status)

	// History: creation plus three transitions.
	history, err := f.store.GetOrderHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, models.StatusRequested, history[0].Status)
	assert.Equal(t, models.StatusApproved, history[1].Status)
	assert.Equal(t, models.StatusPaid, history[2].Status)
	assert.Equal(t, models.StatusDispatched, history[3].Status)

	// Payment notified both parties.
	confirmed := f.events.byType(models.EventPaymentConfirmed)
	done := f.events.byType(models.EventPaymentDone)
	require.Len(t, confirmed, 1)
	require.Len(t, done, 1)
	assert.Equal(t, "sup-1", confirmed[0].(*models.PaymentEvent).RecipientID)
	assert.Equal(t, "ven-1", done[0].(*models.PaymentEvent).RecipientID)

	// Dispatch notified the vendor.
	dispatched := f.events.byType(models.EventOrderDispatched)
	require.Len(t, dispatched, 1)
	assert.Equal(t, "ven-1", dispatched[0].(*models.OrderShippingEvent).RecipientID)
}

func TestVendorCannotApproveOwnOrder(t *testing.T) {
	f := newLifecycleFixture(t)
	order := f.createOrder(t)

	_, err := f.lifecycle.Transition(context.Background(), order.ID, "ven-1", models.RoleVendor, models.StatusApproved, "")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestSkippingStatesRejected(t *testing.T) {
	f := newLifecycleFixture(t)
	order := f.createOrder(t)

	_, err := f.lifecycle.Transition(context.Background(), order.ID, "sup-1", models.RoleSupplier, models.StatusDispatched, "")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	history, _ := f.store.GetOrderHistory(context.Background(), order.ID)
	assert.Len(t, history, 1)
}

func TestForeignOrderLooksNotFound(t *testing.T) {
	f := newLifecycleFixture(t)
	order := f.createOrder(t)

	_, err := f.lifecycle.Transition(context.Background(), order.ID, "sup-2", models.RoleSupplier, models.StatusApproved, "")
	assert.ErrorIs(t, err, models.ErrOrderNotFound)

	_, err = f.lifecycle.Transition(context.Background(), 404, "sup-1", models.RoleSupplier, models.StatusApproved, "")
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestRetriedTransitionIsNoOp(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	order := f.createOrder(t)

	_, err := f.lifecycle.Transition(ctx, order.ID, "sup-1", models.RoleSupplier, models.StatusApproved, "")
	require.NoError(t, err)

	// Client retry after a dropped ack: same target, success, no new history.
	got, err := f.lifecycle.Transition(ctx, order.ID, "sup-1", models.RoleSupplier, models.StatusApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)

	history, _ := f.store.GetOrderHistory(ctx, order.ID)
	assert.Len(t, history, 2)
	assert.Len(t, f.events.byType(models.EventOrderApproved), 1)
}

func TestVendorCancellation(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	order := f.createOrder(t)
	got, err := f.lifecycle.Transition(ctx, order.ID, "ven-1", models.RoleVendor, models.StatusCancelled, "changed plans")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	cancelled := f.events.byType(models.EventOrderCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "sup-1", cancelled[0].(*models.OrderCancelledEvent).RecipientID)

	// Cancellation is terminal.
	_, err = f.lifecycle.Transition(ctx, order.ID, "sup-1", models.RoleSupplier, models.StatusApproved, "")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestCancellationBlockedAfterPayment(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	order := f.createOrder(t)

	_, err := f.lifecycle.Transition(ctx, order.ID, "sup-1", models.RoleSupplier, models.StatusApproved, "")
	require.NoError(t, err)
	_, err = f.lifecycle.RecordPayment(ctx, order.ID, "ven-1", 500, "pg-tx-1")
	require.NoError(t, err)

	_, err = f.lifecycle.Transition(ctx, order.ID, "ven-1", models.RoleVendor, models.StatusCancelled, "")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestRecordPaymentAmountMismatch(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	order := f.createOrder(t)

	_, err := f.lifecycle.Transition(ctx, order.ID, "sup-1", models.RoleSupplier, models.StatusApproved, "")
	require.NoError(t, err)

	_, err = f.lifecycle.RecordPayment(ctx, order.ID, "ven-1", 499, "pg-tx-1")
	assert.ErrorIs(t, err, models.ErrPaymentAmountMismatch)

	got, err := f.store.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
}

func TestAutomaticDeliveryConfirmation(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	order := f.createOrder(t)

	_, err := f.lifecycle.Transition(ctx, order.ID, "sup-1", models.RoleSupplier, models.StatusApproved, "")
	require.NoError(t, err)
	_, err = f.lifecycle.RecordPayment(ctx, order.ID, "ven-1", 500, "pg-tx-1")
	require.NoError(t, err)
	_, err = f.lifecycle.Transition(ctx, order.ID, "sup-1", models.RoleSupplier, models.StatusDispatched, "")
	require.NoError(t, err)

	got, err := f.lifecycle.Transition(ctx, order.ID, "", models.RoleSystem, models.StatusDelivered, "auto-confirmed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, got.Status)
}

func TestConcurrentApproveAndRejectSerialize(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	order := f.createOrder(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	targets := []models.OrderStatus{models.StatusApproved, models.StatusRejected}

	for i, target := range targets {
		wg.Add(1)
		go func(i int, target models.OrderStatus) {
			defer wg.Done()
			_, errs[i] = f.lifecycle.Transition(ctx, order.ID, "sup-1", models.RoleSupplier, target, "")
		}(i, target)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			// The loser sees either the conflict signal or a state error,
			// never a corrupted order.
			assert.True(t,
				errors.Is(err, models.ErrTransitionConflict) ||
					errors.Is(err, models.ErrInvalidTransition),
				"unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)

	got, err := f.store.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Contains(t, targets, got.Status)

	history, _ := f.store.GetOrderHistory(ctx, order.ID)
	assert.Len(t, history, 2)
}
