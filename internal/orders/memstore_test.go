package orders

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/01moynul/catering-golang/internal/models"
	"github.com/shopspring/decimal"
)

// memState is an in-memory copy of the tables the order core touches.
type memState struct {
	products map[int64]models.Product
	variants map[int64]models.ProductVariant
	vouchers map[int64]models.Voucher
	users    map[int64]models.User
	orders   map[int64]models.Order
	items    []models.OrderItem
	logs     []models.OrderStatusLog
	cashback []models.CashbackHistory
	nextID   int64
}

func (s *memState) clone() *memState {
	return &memState{
		products: maps.Clone(s.products),
		variants: maps.Clone(s.variants),
		vouchers: maps.Clone(s.vouchers),
		users:    maps.Clone(s.users),
		orders:   maps.Clone(s.orders),
		items:    slices.Clone(s.items),
		logs:     slices.Clone(s.logs),
		cashback: slices.Clone(s.cashback),
		nextID:   s.nextID,
	}
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// memStore serializes transactions behind one mutex and restores a snapshot
// when fn fails, which gives the same all-or-nothing outcome as a database rollback.
type memStore struct {
	mu    sync.Mutex
	state *memState

	// failItemInsert, when set, fails the nth InsertOrderItem call (1-based) of every transaction.
	failItemInsert int
	guestInserts   int
	// productLocks records every ProductForUpdate call in order.
	productLocks []int64
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{state: &memState{
		products: map[int64]models.Product{},
		variants: map[int64]models.ProductVariant{},
		vouchers: map[int64]models.Voucher{},
		users:    map[int64]models.User{},
		orders:   map[int64]models.Order{},
		nextID:   1000,
	}}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&memTx{store: m, s: m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memStore) GetOrder(_ context.Context, id int64) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.order(id)
}

func (s *memState) order(id int64) (models.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}
	o.BuyerName = s.users[o.UserID].Name
	return o, nil
}

func matches(o models.Order, f ListFilter) bool {
	if f.UserID != nil && o.UserID != *f.UserID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status) {
		return false
	}
	if f.Pinned != nil && o.IsPinned != *f.Pinned {
		return false
	}
	if f.EventDate != "" && o.DeliveryNotes.EventDate != f.EventDate {
		return false
	}
	return true
}

func (m *memStore) ListOrders(_ context.Context, f ListFilter) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Order
	for id := range m.state.orders {
		o, _ := m.state.order(id)
		if matches(o, f) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPinned != out[j].IsPinned {
			return out[i].IsPinned
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) CountByStatus(_ context.Context, f ListFilter) (map[models.OrderStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := map[models.OrderStatus]int{}
	for _, o := range m.state.orders {
		if matches(o, f) {
			counts[o.Status]++
		}
	}
	return counts, nil
}

func (m *memStore) ListOrderItems(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.OrderItem
	for _, it := range m.state.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memStore) ListStatusLogs(_ context.Context, orderID int64) ([]models.OrderStatusLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.logsFor(orderID), nil
}

func (s *memState) logsFor(orderID int64) []models.OrderStatusLog {
	var out []models.OrderStatusLog
	for _, l := range s.logs {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out
}

func (m *memStore) UpdatePaymentStatus(_ context.Context, orderID int64, status models.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.state.orders[orderID]
	o.PaymentStatus = status
	m.state.orders[orderID] = o
	return nil
}

func (m *memStore) SetPinned(_ context.Context, orderID int64, pinned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.state.orders[orderID]
	o.IsPinned = pinned
	m.state.orders[orderID] = o
	return nil
}

func (m *memStore) CashbackBalance(_ context.Context, userID int64) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.state.users[userID]
	if !ok {
		return decimal.Zero, ErrUserNotFound
	}
	return u.CashbackBalance, nil
}

func (m *memStore) ListCashbackHistory(_ context.Context, userID int64) ([]models.CashbackHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CashbackHistory
	for _, h := range m.state.cashback {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

// memTx operates on the live state; memStore.WithinTx holds the lock.
type memTx struct {
	store       *memStore
	s           *memState
	itemInserts int
}

func (t *memTx) ProductForUpdate(_ context.Context, productID int64) (models.Product, error) {
	t.store.productLocks = append(t.store.productLocks, productID)
	p, ok := t.s.products[productID]
	if !ok {
		return models.Product{}, ErrProductNotFound
	}
	return p, nil
}

func (t *memTx) Variant(_ context.Context, productID, variantID int64) (models.ProductVariant, error) {
	v, ok := t.s.variants[variantID]
	if !ok || v.ProductID != productID {
		return models.ProductVariant{}, ErrVariantNotFound
	}
	return v, nil
}

func (t *memTx) ActiveVoucherForUpdate(_ context.Context, code string, now time.Time) (models.Voucher, error) {
	for _, v := range t.s.vouchers {
		if strings.EqualFold(v.Code, code) && v.IsActive && !now.Before(v.ValidFrom) && !now.After(v.ValidUntil) {
			return v, nil
		}
	}
	return models.Voucher{}, ErrVoucherNotFound
}

func (t *memTx) ClaimVoucher(_ context.Context, voucherID int64) (bool, error) {
	v := t.s.vouchers[voucherID]
	if v.UsedCount >= v.Quota {
		return false, nil
	}
	v.UsedCount++
	t.s.vouchers[voucherID] = v
	return true, nil
}

func (t *memTx) GuestUser(_ context.Context) (models.User, error) {
	for _, u := range t.s.users {
		if u.Email == models.GuestEmail {
			return u, nil
		}
	}
	u := models.User{ID: t.s.id(), Role: models.RoleGuest, Name: models.HandlerGuest, Email: models.GuestEmail}
	t.s.users[u.ID] = u
	t.store.guestInserts++
	return u, nil
}

func (t *memTx) UserForUpdate(_ context.Context, userID int64) (models.User, error) {
	u, ok := t.s.users[userID]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return u, nil
}

func (t *memTx) InsertOrder(_ context.Context, order *models.Order) error {
	order.ID = t.s.id()
	t.s.orders[order.ID] = *order
	return nil
}

func (t *memTx) InsertOrderItem(_ context.Context, item *models.OrderItem) error {
	t.itemInserts++
	if t.store.failItemInsert > 0 && t.itemInserts == t.store.failItemInsert {
		return errInjected
	}
	item.ID = t.s.id()
	t.s.items = append(t.s.items, *item)
	return nil
}

func (t *memTx) AdjustInventory(_ context.Context, productID int64, qty int, allowOversell bool) error {
	p, ok := t.s.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	if !allowOversell && p.Stock < qty {
		return ErrInsufficientStock
	}
	p.Stock -= qty
	p.SoldCount += qty
	t.s.products[productID] = p
	return nil
}

func (t *memTx) AppendCashback(_ context.Context, entry *models.CashbackHistory) error {
	entry.ID = t.s.id()
	t.s.cashback = append(t.s.cashback, *entry)
	u := t.s.users[entry.UserID]
	u.CashbackBalance = u.CashbackBalance.Add(entry.Signed())
	t.s.users[entry.UserID] = u
	return nil
}

func (t *memTx) AppendStatusLog(_ context.Context, entry *models.OrderStatusLog) error {
	entry.ID = t.s.id()
	t.s.logs = append(t.s.logs, *entry)
	return nil
}

func (t *memTx) OrderForUpdate(_ context.Context, orderID int64) (models.Order, error) {
	return t.s.order(orderID)
}

func (t *memTx) UpdateOrderStatus(_ context.Context, orderID int64, status models.OrderStatus) error {
	o := t.s.orders[orderID]
	o.Status = status
	t.s.orders[orderID] = o
	return nil
}

func (t *memTx) UpdateDeliveryNotes(_ context.Context, orderID int64, notes models.DeliveryNotes) error {
	o := t.s.orders[orderID]
	o.DeliveryNotes = notes
	t.s.orders[orderID] = o
	return nil
}
