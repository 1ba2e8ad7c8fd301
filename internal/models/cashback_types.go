package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashbackType is the direction of a 'cashback_histories' row
type CashbackType string

const (
	CashbackEarned CashbackType = "earned"
	CashbackUsed   CashbackType = "used"
)

// CashbackHistory is the model for the append-only 'cashback_histories' table.
// Amount is always positive; Type decides the sign applied to the balance.
type CashbackHistory struct {
	ID          int64           `json:"id" db:"id"`
	UserID      int64           `json:"userId" db:"user_id"`
	OrderID     *int64          `json:"orderId,omitempty" db:"order_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Type        CashbackType    `json:"type" db:"type"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// Signed returns the balance delta this row represents.
func (h CashbackHistory) Signed() decimal.Decimal {
	if h.Type == CashbackUsed {
		return h.Amount.Neg()
	}
	return h.Amount
}
