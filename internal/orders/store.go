package orders

import (
	"context"
	"time"

	"github.com/01moynul/catering-golang/internal/models"
	"github.com/shopspring/decimal"
)

// Store is the persistence boundary of the order core.
// Reads outside a transaction go through Store directly, multi-row writes through WithinTx.
type Store interface {
	// WithinTx runs fn in one database transaction. fn returning an error rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetOrder(ctx context.Context, id int64) (models.Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]models.Order, error)
	CountByStatus(ctx context.Context, filter ListFilter) (map[models.OrderStatus]int, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	ListStatusLogs(ctx context.Context, orderID int64) ([]models.OrderStatusLog, error)
	UpdatePaymentStatus(ctx context.Context, orderID int64, status models.PaymentStatus) error
	SetPinned(ctx context.Context, orderID int64, pinned bool) error

	CashbackBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	ListCashbackHistory(ctx context.Context, userID int64) ([]models.CashbackHistory, error)
}

// Tx is the set of statements the order core issues inside one transaction.
type Tx interface {
	// ProductForUpdate locks and returns the product row. ErrProductNotFound when absent.
	ProductForUpdate(ctx context.Context, productID int64) (models.Product, error)
	// Variant returns a variant of productID. ErrVariantNotFound when absent.
	Variant(ctx context.Context, productID, variantID int64) (models.ProductVariant, error)
	// ActiveVoucherForUpdate locks the voucher with this code that is active at now.
	// ErrVoucherNotFound when no such voucher exists.
	ActiveVoucherForUpdate(ctx context.Context, code string, now time.Time) (models.Voucher, error)
	// ClaimVoucher increments used_count only while used_count < quota.
	// It reports false when the quota was already exhausted.
	ClaimVoucher(ctx context.Context, voucherID int64) (bool, error)

	// GuestUser returns the reserved guest user, creating it on first use.
	GuestUser(ctx context.Context) (models.User, error)
	// UserForUpdate locks the user row so the cached cashback balance can be adjusted.
	UserForUpdate(ctx context.Context, userID int64) (models.User, error)

	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderItem(ctx context.Context, item *models.OrderItem) error
	// AdjustInventory adds qty to sold_count and subtracts it from stock.
	// With allowOversell false it returns ErrInsufficientStock instead of going negative.
	AdjustInventory(ctx context.Context, productID int64, qty int, allowOversell bool) error
	// AppendCashback inserts the ledger row and applies its signed amount to the cached balance.
	AppendCashback(ctx context.Context, entry *models.CashbackHistory) error
	AppendStatusLog(ctx context.Context, entry *models.OrderStatusLog) error

	OrderForUpdate(ctx context.Context, orderID int64) (models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error
	UpdateDeliveryNotes(ctx context.Context, orderID int64, notes models.DeliveryNotes) error
}

// ListFilter narrows order listings. Zero values mean "no constraint".
type ListFilter struct {
	UserID    *int64
	Statuses  []models.OrderStatus
	Pinned    *bool
	EventDate string
	Limit     int
	Offset    int
}
