package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/catering-golang/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// Redemption is the outcome of applying a voucher code to a cart total.
type Redemption struct {
	Discount  decimal.Decimal
	VoucherID *int64
}

// voucherDiscount reports the discount v grants on total at now.
// ok is false whenever the voucher must be silently ignored.
func voucherDiscount(v models.Voucher, total decimal.Decimal, now time.Time) (discount decimal.Decimal, ok bool) {
	if !v.IsActive || now.Before(v.ValidFrom) || now.After(v.ValidUntil) {
		return decimal.Zero, false
	}
	if total.LessThan(v.MinPurchase) {
		return decimal.Zero, false
	}
	if v.UsedCount >= v.Quota {
		return decimal.Zero, false
	}

	switch v.DiscountType {
	case models.DiscountPercentage:
		discount = total.Mul(v.DiscountValue).Div(hundred)
		if v.MaxDiscount.IsPositive() && discount.GreaterThan(v.MaxDiscount) {
			discount = v.MaxDiscount
		}
	case models.DiscountFixed:
		discount = v.DiscountValue
	default:
		return decimal.Zero, false
	}

	if discount.IsNegative() {
		return decimal.Zero, false
	}
	if discount.GreaterThan(total) {
		discount = total
	}
	return discount.Round(2), true
}

// redeemVoucher applies code against total. Any reason the voucher does not apply
// yields a zero Redemption and no error; only store failures are returned.
func (s *Service) redeemVoucher(ctx context.Context, tx Tx, code string, total decimal.Decimal) (Redemption, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Redemption{Discount: decimal.Zero}, nil
	}

	now := s.now()
	voucher, err := tx.ActiveVoucherForUpdate(ctx, code, now)
	if err != nil {
		if errors.Is(err, ErrVoucherNotFound) {
			s.log.Debug("voucher not applied", zap.String("code", code), zap.String("reason", "not found or inactive"))
			return Redemption{Discount: decimal.Zero}, nil
		}
		return Redemption{}, fmt.Errorf("load voucher: %w", err)
	}

	discount, ok := voucherDiscount(voucher, total, now)
	if !ok {
		s.log.Debug("voucher not applied", zap.String("code", code), zap.String("reason", "minimum, quota or window"))
		return Redemption{Discount: decimal.Zero}, nil
	}

	claimed, err := tx.ClaimVoucher(ctx, voucher.ID)
	if err != nil {
		return Redemption{}, fmt.Errorf("claim voucher: %w", err)
	}
	if !claimed {
		s.log.Debug("voucher not applied", zap.String("code", code), zap.String("reason", "quota exhausted"))
		return Redemption{Discount: decimal.Zero}, nil
	}

	id := voucher.ID
	return Redemption{Discount: discount, VoucherID: &id}, nil
}
