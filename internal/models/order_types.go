package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment state stored on 'orders.status' and 'order_status_logs.status'.
type OrderStatus string

const (
	StatusCreated     OrderStatus = "dibuat"
	StatusProcessing  OrderStatus = "diproses"
	StatusReadyToShip OrderStatus = "siap-kirim"
	StatusShipping    OrderStatus = "dikirim"
	StatusCompleted   OrderStatus = "selesai"
	StatusCancelled   OrderStatus = "dibatalkan"
)

// AllStatuses lists every fulfillment state in pipeline order.
var AllStatuses = []OrderStatus{
	StatusCreated,
	StatusProcessing,
	StatusReadyToShip,
	StatusShipping,
	StatusCompleted,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// PaymentStatus is the admin-maintained 'orders.payment_status' label.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPartial, PaymentPaid:
		return true
	}
	return false
}

// Order is the model for the 'orders' table
type Order struct {
	ID              int64           `json:"id" db:"id"`
	UserID          int64           `json:"userId" db:"user_id"` // Buyer, or the reserved guest user
	VoucherID       *int64          `json:"voucherId,omitempty" db:"voucher_id"`
	TotalAmount     decimal.Decimal `json:"totalAmount" db:"total_amount"` // Sum of item subtotals
	DiscountAmount  decimal.Decimal `json:"discountAmount" db:"discount_amount"`
	CashbackUsed    decimal.Decimal `json:"cashbackUsed" db:"cashback_used"`
	FinalAmount     decimal.Decimal `json:"finalAmount" db:"final_amount"`
	PaymentMethod   string          `json:"paymentMethod" db:"payment_method"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	DeliveryAddress string          `json:"deliveryAddress" db:"delivery_address"`
	DeliveryNotes   DeliveryNotes   `json:"deliveryNotes" db:"delivery_notes"`
	Status          OrderStatus     `json:"status" db:"status"`
	IsPinned        bool            `json:"isPinned" db:"is_pinned"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`

	// Joins (Not in DB table, populated manually)
	BuyerName string           `json:"buyerName,omitempty" db:"-"`
	Items     []OrderItem      `json:"items,omitempty" db:"-"`
	History   []OrderStatusLog `json:"history,omitempty" db:"-"`
}

// OrderItem is the model for the 'order_items' table.
// Names are snapshots taken at purchase time.
type OrderItem struct {
	ID          int64           `json:"id" db:"id"`
	OrderID     int64           `json:"orderId" db:"order_id"`
	ProductID   int64           `json:"productId" db:"product_id"`
	VariantID   *int64          `json:"variantId,omitempty" db:"variant_id"`
	ProductName string          `json:"productName" db:"product_name"`
	VariantName *string         `json:"variantName,omitempty" db:"variant_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Price       decimal.Decimal `json:"price" db:"price"` // Unit price at the time of purchase
	Subtotal    decimal.Decimal `json:"subtotal" db:"subtotal"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// OrderStatusLog is the model for the append-only 'order_status_logs' table
type OrderStatusLog struct {
	ID          int64       `json:"id" db:"id"`
	OrderID     int64       `json:"orderId" db:"order_id"`
	Status      OrderStatus `json:"status" db:"status"`
	HandlerID   *int64      `json:"handlerId,omitempty" db:"handler_id"`
	HandlerName string      `json:"handlerName" db:"handler_name"` // "Guest" / "System" when no user acted
	Notes       string      `json:"notes" db:"notes"`
	ProofImage  *string     `json:"proofImage,omitempty" db:"proof_image"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
}

const (
	HandlerGuest  = "Guest"
	HandlerSystem = "System"
)
