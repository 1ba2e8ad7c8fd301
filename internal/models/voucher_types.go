package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType values for 'vouchers.discount_type'
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Voucher is the model for the 'vouchers' table
type Voucher struct {
	ID            int64           `json:"id" db:"id"`
	Code          string          `json:"code" db:"code"`
	IsActive      bool            `json:"isActive" db:"is_active"`
	ValidFrom     time.Time       `json:"validFrom" db:"valid_from"`
	ValidUntil    time.Time       `json:"validUntil" db:"valid_until"`
	MinPurchase   decimal.Decimal `json:"minPurchase" db:"min_purchase"`
	DiscountType  string          `json:"discountType" db:"discount_type"` // percentage | fixed
	DiscountValue decimal.Decimal `json:"discountValue" db:"discount_value"`
	MaxDiscount   decimal.Decimal `json:"maxDiscount" db:"max_discount"` // Cap for percentage vouchers, 0 = uncapped
	Quota         int             `json:"quota" db:"quota"`
	UsedCount     int             `json:"usedCount" db:"used_count"`
}
