package orders

import (
	"context"
	"testing"

	"github.com/01moynul/catering-golang/internal/models"
	"github.com/stretchr/testify/require"
)

var (
	admin      = Actor{UserID: 1, Name: "Admin", Role: models.RoleAdmin}
	operations = Actor{UserID: 2, Name: "Ops", Role: models.RoleOperations}
	kitchen    = Actor{UserID: 3, Name: "Dapur", Role: models.RoleKitchen}
	courier    = Actor{UserID: 4, Name: "Kurir", Role: models.RoleCourier}
	marketing  = Actor{UserID: 5, Name: "Marketing", Role: models.RoleMarketing}
)

func placeOrder(t *testing.T, f fixture, by *Actor) models.Order {
	t.Helper()
	res, err := f.svc.PlaceOrder(context.Background(), checkoutReq(by, cartAB()))
	require.NoError(t, err)
	return res.Order
}

func requireHeadMatchesLastLog(t *testing.T, f fixture, orderID int64) {
	t.Helper()
	order, err := f.store.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	logs := f.store.state.logsFor(orderID)
	require.NotEmpty(t, logs)
	require.Equal(t, order.Status, logs[len(logs)-1].Status)
}

func TestTransitionFullPipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := placeOrder(t, f, buyer(buyerID))

	steps := []struct {
		actor Actor
		to    models.OrderStatus
	}{
		{kitchen, models.StatusProcessing},
		{kitchen, models.StatusReadyToShip},
		{courier, models.StatusShipping},
		{courier, models.StatusCompleted},
	}
	for i, step := range steps {
		entry, err := f.svc.TransitionStatus(ctx, TransitionRequest{
			OrderID:    order.ID,
			Actor:      step.actor,
			Status:     step.to,
			Notes:      "ok",
			ProofImage: "",
		})
		require.NoError(t, err)
		require.Equal(t, step.to, entry.Status)
		require.Equal(t, step.actor.Name, entry.HandlerName)
		require.Len(t, f.store.state.logsFor(order.ID), i+2)
		requireHeadMatchesLastLog(t, f, order.ID)
	}

	_, err := f.svc.TransitionStatus(ctx, TransitionRequest{OrderID: order.ID, Actor: admin, Status: models.StatusCancelled})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Len(t, f.store.state.logsFor(order.ID), 5)
}

func TestTransitionRejectionsLeaveNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := placeOrder(t, f, buyer(buyerID))

	cases := []struct {
		req  TransitionRequest
		want error
	}{
		{TransitionRequest{OrderID: order.ID, Actor: courier, Status: models.StatusProcessing}, ErrTransitionForbidden},
		{TransitionRequest{OrderID: order.ID, Actor: admin, Status: models.StatusCompleted}, ErrInvalidTransition},
		{TransitionRequest{OrderID: order.ID, Actor: admin, Status: "hilang"}, ErrInvalidStatus},
		{TransitionRequest{OrderID: order.ID, Actor: *buyer(otherBuyerID), Status: models.StatusCancelled}, ErrOrderNotFound},
		{TransitionRequest{OrderID: 424242, Actor: admin, Status: models.StatusProcessing}, ErrOrderNotFound},
	}
	for _, tc := range cases {
		_, err := f.svc.TransitionStatus(ctx, tc.req)
		require.ErrorIs(t, err, tc.want)
	}
	require.Len(t, f.store.state.logsFor(order.ID), 1)
	requireHeadMatchesLastLog(t, f, order.ID)
}

func TestBuyerCancelsOwnOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := placeOrder(t, f, buyer(buyerID))

	owner := Actor{UserID: buyerID, Name: "Rina", Role: models.RoleBuyer}
	entry, err := f.svc.TransitionStatus(ctx, TransitionRequest{OrderID: order.ID, Actor: owner, Status: models.StatusCancelled, Notes: "salah tanggal"})
	require.NoError(t, err)
	require.Equal(t, "salah tanggal", entry.Notes)
	require.Equal(t, buyerID, *entry.HandlerID)

	stored, err := f.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, stored.Status)
	require.Equal(t, 8, f.store.state.products[productA].Stock, "cancellation does not restock")
}

func TestGetOrderVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := placeOrder(t, f, buyer(buyerID))

	detail, err := f.svc.GetOrder(ctx, *buyer(buyerID), order.ID)
	require.NoError(t, err)
	require.Len(t, detail.Items, 2)
	require.Len(t, detail.History, 1)
	require.Equal(t, "Rina", detail.BuyerName)
	require.Equal(t, []models.OrderStatus{models.StatusCancelled}, detail.AllowedTransitions)

	_, err = f.svc.GetOrder(ctx, *buyer(otherBuyerID), order.ID)
	require.ErrorIs(t, err, ErrOrderNotFound)

	detail, err = f.svc.GetOrder(ctx, kitchen, order.ID)
	require.NoError(t, err)
	require.Equal(t, []models.OrderStatus{models.StatusProcessing}, detail.AllowedTransitions)

	_, err = f.svc.GetOrder(ctx, courier, order.ID)
	require.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.svc.GetOrder(ctx, Actor{UserID: 9, Role: models.RoleGuest}, order.ID)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrdersScopedByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := placeOrder(t, f, buyer(buyerID))
	theirs := placeOrder(t, f, buyer(otherBuyerID))
	placeOrder(t, f, nil)

	_, err := f.svc.TransitionStatus(ctx, TransitionRequest{OrderID: theirs.ID, Actor: kitchen, Status: models.StatusProcessing})
	require.NoError(t, err)
	_, err = f.svc.TransitionStatus(ctx, TransitionRequest{OrderID: theirs.ID, Actor: kitchen, Status: models.StatusReadyToShip})
	require.NoError(t, err)

	list, err := f.svc.ListOrders(ctx, *buyer(buyerID), ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, mine.ID, list[0].ID)

	list, err = f.svc.ListOrders(ctx, kitchen, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)

	list, err = f.svc.ListOrders(ctx, courier, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, theirs.ID, list[0].ID)

	list, err = f.svc.ListOrders(ctx, kitchen, ListFilter{Statuses: []models.OrderStatus{models.StatusCompleted}})
	require.NoError(t, err)
	require.Empty(t, list)

	list, err = f.svc.ListOrders(ctx, marketing, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)

	list, err = f.svc.ListOrders(ctx, admin, ListFilter{EventDate: "2025-06-07", Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, err = f.svc.ListOrders(ctx, admin, ListFilter{Statuses: []models.OrderStatus{"nope"}})
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.ListOrders(ctx, Actor{Role: models.RoleGuest}, ListFilter{})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := placeOrder(t, f, buyer(buyerID))
	placeOrder(t, f, buyer(buyerID))
	placeOrder(t, f, buyer(otherBuyerID))

	_, err := f.svc.TransitionStatus(ctx, TransitionRequest{OrderID: first.ID, Actor: kitchen, Status: models.StatusProcessing})
	require.NoError(t, err)

	summary, err := f.svc.Summary(ctx, admin)
	require.NoError(t, err)
	require.Len(t, summary, len(models.AllStatuses))
	require.Equal(t, 2, summary[models.StatusCreated])
	require.Equal(t, 1, summary[models.StatusProcessing])
	require.Zero(t, summary[models.StatusCompleted])

	summary, err = f.svc.Summary(ctx, courier)
	require.NoError(t, err)
	require.Equal(t, map[models.OrderStatus]int{models.StatusReadyToShip: 0, models.StatusShipping: 0}, summary)

	summary, err = f.svc.Summary(ctx, *buyer(otherBuyerID))
	require.NoError(t, err)
	require.Equal(t, 1, summary[models.StatusCreated])
}

func TestPinningAndPaymentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	older := placeOrder(t, f, buyer(buyerID))
	placeOrder(t, f, buyer(buyerID))

	require.ErrorIs(t, f.svc.SetPinned(ctx, kitchen, older.ID, true), ErrForbidden)
	require.NoError(t, f.svc.SetPinned(ctx, operations, older.ID, true))
	require.ErrorIs(t, f.svc.SetPinned(ctx, admin, 424242, true), ErrOrderNotFound)

	list, err := f.svc.ListOrders(ctx, admin, ListFilter{})
	require.NoError(t, err)
	require.Equal(t, older.ID, list[0].ID)

	pinned := true
	list, err = f.svc.ListOrders(ctx, admin, ListFilter{Pinned: &pinned})
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.ErrorIs(t, f.svc.UpdatePaymentStatus(ctx, operations, older.ID, models.PaymentPaid), ErrForbidden)
	require.ErrorIs(t, f.svc.UpdatePaymentStatus(ctx, admin, older.ID, "lunas"), ErrInvalidRequest)
	require.NoError(t, f.svc.UpdatePaymentStatus(ctx, admin, older.ID, models.PaymentPaid))

	stored, err := f.store.GetOrder(ctx, older.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	require.Len(t, f.store.state.logsFor(older.ID), 1, "payment status does not touch the status log")
}

func TestUpdateAdminNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := placeOrder(t, f, buyer(buyerID))

	require.ErrorIs(t, f.svc.UpdateAdminNotes(ctx, operations, order.ID, "x"), ErrForbidden)
	require.NoError(t, f.svc.UpdateAdminNotes(ctx, admin, order.ID, "  VIP, kirim lebih awal "))

	stored, err := f.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, "VIP, kirim lebih awal", stored.DeliveryNotes.AdminNotes)
	require.Equal(t, models.NotesStructured, stored.DeliveryNotes.Kind)
	require.Equal(t, "Syukuran", stored.DeliveryNotes.EventName)
}

func TestCashbackStatement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	placeOrder(t, f, buyer(buyerID))

	statement, err := f.svc.Cashback(ctx, *buyer(buyerID))
	require.NoError(t, err)
	requireAmount(t, 1350, statement.Balance, "balance")
	require.Len(t, statement.History, 1)

	statement, err = f.svc.Cashback(ctx, *buyer(otherBuyerID))
	require.NoError(t, err)
	require.True(t, statement.Balance.IsZero())
	require.NotNil(t, statement.History)

	_, err = f.svc.Cashback(ctx, Actor{Role: models.RoleGuest})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := NewService(ServiceDeps{})
	require.Error(t, err)
}
