package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/01moynul/catering-golang/internal/models"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// CheckoutRequest is a cart submission. Buyer is nil for guest checkout.
type CheckoutRequest struct {
	Buyer           *Actor
	Items           []CartLine
	VoucherCode     string
	CashbackUsed    decimal.Decimal
	PaymentMethod   string
	DeliveryAddress string
	DeliveryNotes   models.DeliveryNotes
	PaymentProof    string // Relative URL returned by the upload collaborator, optional
}

// CheckoutResult is the persisted order plus side-effect amounts.
type CheckoutResult struct {
	Order          models.Order    `json:"order"`
	CashbackEarned decimal.Decimal `json:"cashbackEarned"`
	VoucherApplied bool            `json:"voucherApplied"`
}

func (r CheckoutRequest) validate() error {
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrInvalidRequest)
	}
	for i, line := range r.Items {
		if line.ProductID <= 0 {
			return fmt.Errorf("%w: item %d has no product_id", ErrInvalidRequest, i)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("%w: item %d quantity must be at least 1", ErrInvalidRequest, i)
		}
	}
	if strings.TrimSpace(r.PaymentMethod) == "" {
		return fmt.Errorf("%w: payment_method is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.DeliveryAddress) == "" {
		return fmt.Errorf("%w: delivery_address is required", ErrInvalidRequest)
	}
	if r.Buyer == nil && r.DeliveryNotes.Kind != models.NotesStructured {
		return fmt.Errorf("%w: guest checkout requires structured delivery_notes", ErrInvalidRequest)
	}
	if r.CashbackUsed.IsNegative() {
		return fmt.Errorf("%w: cashback_used cannot be negative", ErrInvalidRequest)
	}
	return nil
}

// PlaceOrder prices the cart, redeems the voucher, writes the order with its items,
// adjusts inventory, settles cashback and opens the status log, all in one transaction.
func (s *Service) PlaceOrder(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	ctx, span := tracer.Start(ctx, "orders.PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.Int("order.lines", len(req.Items)),
		attribute.Bool("order.guest", req.Buyer == nil),
	)

	if err := req.validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return CheckoutResult{}, err
	}

	var result CheckoutResult
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		res, err := s.placeOrderTx(ctx, tx, req)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CheckoutResult{}, err
	}

	span.SetAttributes(attribute.Int64("order.id", result.Order.ID))
	s.log.Info("order placed",
		zap.Int64("order_id", result.Order.ID),
		zap.Int64("user_id", result.Order.UserID),
		zap.String("final_amount", result.Order.FinalAmount.String()),
		zap.Bool("voucher_applied", result.VoucherApplied),
	)
	return result, nil
}

func (s *Service) placeOrderTx(ctx context.Context, tx Tx, req CheckoutRequest) (CheckoutResult, error) {
	// 1. --- Resolve buyer ---
	var (
		userID      int64
		handlerID   *int64
		handlerName string
		balance     = decimal.Zero
	)
	if req.Buyer == nil {
		guest, err := tx.GuestUser(ctx)
		if err != nil {
			return CheckoutResult{}, fmt.Errorf("resolve guest user: %w", err)
		}
		userID = guest.ID
		handlerName = models.HandlerGuest
	} else {
		buyer, err := tx.UserForUpdate(ctx, req.Buyer.UserID)
		if err != nil {
			return CheckoutResult{}, fmt.Errorf("load buyer: %w", err)
		}
		userID = buyer.ID
		balance = buyer.CashbackBalance
		handlerID = req.Buyer.handlerID()
		handlerName = req.Buyer.Name
		if handlerName == "" {
			handlerName = buyer.Name
		}
	}

	// 2. --- Lock products, price every line & sum the total ---
	products, err := lockProducts(ctx, tx, req.Items)
	if err != nil {
		return CheckoutResult{}, err
	}
	lines := make([]PricedLine, 0, len(req.Items))
	total := decimal.Zero
	for _, item := range req.Items {
		priced, err := s.resolveLine(ctx, tx, products[item.ProductID], item)
		if err != nil {
			return CheckoutResult{}, err
		}
		lines = append(lines, priced)
		total = total.Add(priced.Subtotal)
	}

	// 3. --- Voucher ---
	redemption, err := s.redeemVoucher(ctx, tx, req.VoucherCode, total)
	if err != nil {
		return CheckoutResult{}, err
	}

	// 4. --- Cashback spend & final amount ---
	cashbackUsed := decimal.Zero
	if req.Buyer != nil {
		cashbackUsed = clampCashback(req.CashbackUsed, balance, total.Sub(redemption.Discount))
		if !cashbackUsed.Equal(req.CashbackUsed) {
			s.log.Debug("cashback spend clamped",
				zap.Int64("user_id", userID),
				zap.String("requested", req.CashbackUsed.String()),
				zap.String("applied", cashbackUsed.String()),
			)
		}
	}
	final := total.Sub(redemption.Discount).Sub(cashbackUsed)

	// 5. --- Insert the order ---
	now := s.now()
	order := models.Order{
		UserID:          userID,
		VoucherID:       redemption.VoucherID,
		TotalAmount:     total,
		DiscountAmount:  redemption.Discount,
		CashbackUsed:    cashbackUsed,
		FinalAmount:     final,
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		PaymentStatus:   models.PaymentPending,
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		DeliveryNotes:   req.DeliveryNotes,
		Status:          models.StatusCreated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.InsertOrder(ctx, &order); err != nil {
		return CheckoutResult{}, fmt.Errorf("insert order: %w", err)
	}

	// 6. --- Snapshot the items ---
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := models.OrderItem{
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			ProductName: line.ProductName,
			VariantName: line.VariantName,
			Quantity:    line.Quantity,
			Price:       line.UnitPrice,
			Subtotal:    line.Subtotal,
			CreatedAt:   now,
		}
		if err := tx.InsertOrderItem(ctx, &item); err != nil {
			return CheckoutResult{}, fmt.Errorf("insert order item: %w", err)
		}
		items = append(items, item)
	}

	// 7. --- Inventory ---
	if err := s.adjustInventory(ctx, tx, items); err != nil {
		return CheckoutResult{}, err
	}

	// 8. --- Cashback ledger (registered buyers only) ---
	earned := decimal.Zero
	if req.Buyer != nil {
		if err := s.spendCashback(ctx, tx, userID, order.ID, cashbackUsed); err != nil {
			return CheckoutResult{}, err
		}
		earned, err = s.earnCashback(ctx, tx, userID, order.ID, final)
		if err != nil {
			return CheckoutResult{}, err
		}
	}

	// 9. --- Initial status log ---
	entry := models.OrderStatusLog{
		OrderID:     order.ID,
		Status:      models.StatusCreated,
		HandlerID:   handlerID,
		HandlerName: handlerName,
		Notes:       "Order created",
		ProofImage:  nullableString(req.PaymentProof),
		CreatedAt:   now,
	}
	if err := tx.AppendStatusLog(ctx, &entry); err != nil {
		return CheckoutResult{}, fmt.Errorf("append status log: %w", err)
	}

	order.Items = items
	order.History = []models.OrderStatusLog{entry}
	return CheckoutResult{
		Order:          order,
		CashbackEarned: earned,
		VoucherApplied: redemption.VoucherID != nil,
	}, nil
}

func nullableString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
