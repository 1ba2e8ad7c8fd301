package orders

import (
	"context"
	"fmt"

	"github.com/01moynul/catering-golang/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// clampCashback bounds a requested spend by the balance and by what is left to pay.
func clampCashback(requested, balance, payable decimal.Decimal) decimal.Decimal {
	if !requested.IsPositive() {
		return decimal.Zero
	}
	spend := requested
	if balance.LessThan(spend) {
		spend = balance
	}
	if payable.LessThan(spend) {
		spend = payable
	}
	if spend.IsNegative() {
		return decimal.Zero
	}
	return spend
}

// earnedCashback is rate of the payable amount, rounded half-up to whole currency units.
func earnedCashback(final, rate decimal.Decimal) decimal.Decimal {
	if !final.IsPositive() {
		return decimal.Zero
	}
	return final.Mul(rate).Round(0)
}

// spendCashback debits amount from the buyer and records a 'used' row.
func (s *Service) spendCashback(ctx context.Context, tx Tx, userID, orderID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	entry := &models.CashbackHistory{
		UserID:      userID,
		OrderID:     &orderID,
		Amount:      amount,
		Type:        models.CashbackUsed,
		Description: fmt.Sprintf("Cashback used for order #%d", orderID),
		CreatedAt:   s.now(),
	}
	if err := tx.AppendCashback(ctx, entry); err != nil {
		return fmt.Errorf("debit cashback: %w", err)
	}
	return nil
}

// earnCashback credits the buyer for a placed order and returns the credited amount.
func (s *Service) earnCashback(ctx context.Context, tx Tx, userID, orderID int64, final decimal.Decimal) (decimal.Decimal, error) {
	earned := earnedCashback(final, s.cashbackRate)
	if !earned.IsPositive() {
		return decimal.Zero, nil
	}
	entry := &models.CashbackHistory{
		UserID:      userID,
		OrderID:     &orderID,
		Amount:      earned,
		Type:        models.CashbackEarned,
		Description: fmt.Sprintf("Cashback from order #%d", orderID),
		CreatedAt:   s.now(),
	}
	if err := tx.AppendCashback(ctx, entry); err != nil {
		return decimal.Zero, fmt.Errorf("credit cashback: %w", err)
	}
	s.log.Debug("cashback earned", zap.Int64("user_id", userID), zap.Int64("order_id", orderID), zap.String("amount", earned.String()))
	return earned, nil
}

// CashbackStatement is the buyer-facing view of the ledger.
type CashbackStatement struct {
	Balance decimal.Decimal          `json:"balance"`
	History []models.CashbackHistory `json:"history"`
}

// Cashback returns the caller's balance and ledger rows.
func (s *Service) Cashback(ctx context.Context, actor Actor) (CashbackStatement, error) {
	if actor.UserID == 0 {
		return CashbackStatement{}, ErrForbidden
	}
	balance, err := s.store.CashbackBalance(ctx, actor.UserID)
	if err != nil {
		return CashbackStatement{}, err
	}
	history, err := s.store.ListCashbackHistory(ctx, actor.UserID)
	if err != nil {
		return CashbackStatement{}, err
	}
	if history == nil {
		history = []models.CashbackHistory{}
	}
	return CashbackStatement{Balance: balance, History: history}, nil
}
