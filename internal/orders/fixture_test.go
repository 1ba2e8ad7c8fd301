package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/01moynul/catering-golang/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow    = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	errInjected = errors.New("injected failure")
)

const (
	productA     int64 = 1
	productB     int64 = 2
	productC     int64 = 3
	variantSpicy int64 = 21
	buyerID      int64 = 100
	otherBuyerID int64 = 101
)

type fixture struct {
	svc   *Service
	store *memStore
}

func newFixture(t *testing.T, opts ...func(*ServiceDeps)) fixture {
	t.Helper()
	store := newMemStore()
	s := store.state

	s.products[productA] = models.Product{ID: productA, Name: "Nasi Box Ayam", Price: dec(50000), Stock: 10}
	s.products[productB] = models.Product{ID: productB, Name: "Tumpeng Mini", Price: dec(30000), Stock: 5}
	s.products[productC] = models.Product{ID: productC, Name: "Snack Box", Price: dec(20000), Stock: 3}
	s.variants[variantSpicy] = models.ProductVariant{ID: variantSpicy, ProductID: productB, Name: "Pedas", PriceAdjustment: dec(5000)}

	s.users[buyerID] = models.User{ID: buyerID, Role: models.RoleBuyer, Name: "Rina", Email: "rina@example.com"}
	s.users[otherBuyerID] = models.User{ID: otherBuyerID, Role: models.RoleBuyer, Name: "Dedi", Email: "dedi@example.com"}

	window := func(v models.Voucher) models.Voucher {
		v.IsActive = true
		v.ValidFrom = fixedNow.Add(-24 * time.Hour)
		v.ValidUntil = fixedNow.Add(24 * time.Hour)
		return v
	}
	s.vouchers[50] = window(models.Voucher{ID: 50, Code: "HEMAT10", MinPurchase: dec(100000), DiscountType: models.DiscountPercentage, DiscountValue: dec(10), MaxDiscount: dec(10000), Quota: 5})
	s.vouchers[51] = window(models.Voucher{ID: 51, Code: "BIG", MinPurchase: dec(200000), DiscountType: models.DiscountFixed, DiscountValue: dec(25000), Quota: 5})
	s.vouchers[52] = window(models.Voucher{ID: 52, Code: "HABIS", DiscountType: models.DiscountFixed, DiscountValue: dec(5000), Quota: 1, UsedCount: 1})

	deps := ServiceDeps{
		Store:         store,
		Clock:         func() time.Time { return fixedNow },
		AllowOversell: true,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	svc, err := NewService(deps)
	require.NoError(t, err)
	return fixture{svc: svc, store: store}
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func requireAmount(t *testing.T, want int64, got decimal.Decimal, field string) {
	t.Helper()
	require.Truef(t, got.Equal(dec(want)), "%s: want %d, got %s", field, want, got)
}

func buyer(id int64) *Actor {
	return &Actor{UserID: id, Role: models.RoleBuyer}
}

// cartAB is 2 x 50000 plus 1 x (30000 + 5000 variant) = 135000.
func cartAB() []CartLine {
	variant := variantSpicy
	return []CartLine{
		{ProductID: productA, Quantity: 2},
		{ProductID: productB, VariantID: &variant, Quantity: 1},
	}
}

func structuredNotes() models.DeliveryNotes {
	return models.DeliveryNotes{
		Kind:         models.NotesStructured,
		EventName:    "Syukuran",
		EventDate:    "2025-06-07",
		EventTime:    "11:00",
		ContactPhone: "08123456789",
		DeliveryType: "delivery",
	}
}

func checkoutReq(actor *Actor, items []CartLine) CheckoutRequest {
	return CheckoutRequest{
		Buyer:           actor,
		Items:           items,
		PaymentMethod:   "transfer",
		DeliveryAddress: "Jl. Melati 5, Bandung",
		DeliveryNotes:   structuredNotes(),
	}
}
