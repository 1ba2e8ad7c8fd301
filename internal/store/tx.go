package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/catering-golang/internal/models"
	"github.com/01moynul/catering-golang/internal/orders"
	"github.com/google/uuid"
)

// mysqlTx implements orders.Tx on one *sql.Tx.
type mysqlTx struct {
	tx *sql.Tx
}

var _ orders.Tx = (*mysqlTx)(nil)

func (t *mysqlTx) ProductForUpdate(ctx context.Context, productID int64) (models.Product, error) {
	var p models.Product
	query := `
		SELECT id, name, price, discounted_price, stock, sold_count
		FROM products
		WHERE id = ?
		FOR UPDATE`
	err := t.tx.QueryRowContext(ctx, query, productID).Scan(
		&p.ID, &p.Name, &p.Price, &p.DiscountedPrice, &p.Stock, &p.SoldCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Product{}, orders.ErrProductNotFound
		}
		return models.Product{}, err
	}
	return p, nil
}

func (t *mysqlTx) Variant(ctx context.Context, productID, variantID int64) (models.ProductVariant, error) {
	var v models.ProductVariant
	query := `
		SELECT id, product_id, name, price_adjustment
		FROM product_variants
		WHERE id = ? AND product_id = ?`
	err := t.tx.QueryRowContext(ctx, query, variantID, productID).Scan(
		&v.ID, &v.ProductID, &v.Name, &v.PriceAdjustment,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ProductVariant{}, orders.ErrVariantNotFound
		}
		return models.ProductVariant{}, err
	}
	return v, nil
}

func (t *mysqlTx) ActiveVoucherForUpdate(ctx context.Context, code string, now time.Time) (models.Voucher, error) {
	var v models.Voucher
	query := `
		SELECT id, code, is_active, valid_from, valid_until, min_purchase,
			discount_type, discount_value, max_discount, quota, used_count
		FROM vouchers
		WHERE code = ? AND is_active = 1 AND valid_from <= ? AND valid_until >= ?
		FOR UPDATE`
	err := t.tx.QueryRowContext(ctx, query, code, now, now).Scan(
		&v.ID, &v.Code, &v.IsActive, &v.ValidFrom, &v.ValidUntil, &v.MinPurchase,
		&v.DiscountType, &v.DiscountValue, &v.MaxDiscount, &v.Quota, &v.UsedCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Voucher{}, orders.ErrVoucherNotFound
		}
		return models.Voucher{}, err
	}
	return v, nil
}

// ClaimVoucher is a guarded increment: concurrent checkouts cannot push used_count past quota.
func (t *mysqlTx) ClaimVoucher(ctx context.Context, voucherID int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE vouchers SET used_count = used_count + 1 WHERE id = ? AND used_count < quota",
		voucherID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GuestUser resolves the reserved guest row, inserting it the first time.
// A concurrent first insert loses on the unique email and re-reads the winner's row.
func (t *mysqlTx) GuestUser(ctx context.Context) (models.User, error) {
	u, err := t.userByEmail(ctx, models.GuestEmail)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, orders.ErrUserNotFound) {
		return models.User{}, err
	}

	// Nobody logs in as the guest; the hash is of a random secret that is never kept.
	var password models.Password
	if err := password.Set(uuid.NewString()); err != nil {
		return models.User{}, fmt.Errorf("hash guest password: %w", err)
	}

	now := time.Now()
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO users (role, name, email, password_hash, phone_number, cashback_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', 0, ?, ?)`,
		models.RoleGuest, models.HandlerGuest, models.GuestEmail, password.Hash, now, now)
	if err != nil {
		if isDuplicateEntry(err) {
			return t.userByEmail(ctx, models.GuestEmail)
		}
		return models.User{}, fmt.Errorf("create guest user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}
	return models.User{
		ID:        id,
		Role:      models.RoleGuest,
		Name:      models.HandlerGuest,
		Email:     models.GuestEmail,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (t *mysqlTx) userByEmail(ctx context.Context, email string) (models.User, error) {
	return scanUser(t.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (t *mysqlTx) UserForUpdate(ctx context.Context, userID int64) (models.User, error) {
	return scanUser(t.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? FOR UPDATE`, userID))
}

func (t *mysqlTx) InsertOrder(ctx context.Context, o *models.Order) error {
	cols := o.DeliveryNotes.Columns()
	query := `
		INSERT INTO orders (
			user_id, voucher_id, total_amount, discount_amount, cashback_used, final_amount,
			payment_method, payment_status, delivery_address, delivery_notes,
			event_name, event_date, event_time, contact_phone, alternate_phone,
			reference_source, share_location, landmark, delivery_type,
			status, is_pinned, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := t.tx.ExecContext(ctx, query,
		o.UserID, o.VoucherID, o.TotalAmount, o.DiscountAmount, o.CashbackUsed, o.FinalAmount,
		o.PaymentMethod, string(o.PaymentStatus), o.DeliveryAddress, o.DeliveryNotes,
		cols.EventName, cols.EventDate, cols.EventTime, cols.ContactPhone, cols.AlternatePhone,
		cols.ReferenceSource, cols.ShareLocation, cols.Landmark, cols.DeliveryType,
		string(o.Status), o.IsPinned, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return err
	}
	o.ID, err = res.LastInsertId()
	return err
}

func (t *mysqlTx) InsertOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items
			(order_id, product_id, variant_id, product_name, variant_name, quantity, price, subtotal, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, query,
		item.OrderID, item.ProductID, item.VariantID, item.ProductName, item.VariantName,
		item.Quantity, item.Price, item.Subtotal, item.CreatedAt,
	)
	if err != nil {
		return err
	}
	item.ID, err = res.LastInsertId()
	return err
}

func (t *mysqlTx) AdjustInventory(ctx context.Context, productID int64, qty int, allowOversell bool) error {
	query := "UPDATE products SET stock = stock - ?, sold_count = sold_count + ? WHERE id = ?"
	args := []any{qty, qty, productID}
	if !allowOversell {
		query += " AND stock >= ?"
		args = append(args, qty)
	}

	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if allowOversell {
			return orders.ErrProductNotFound
		}
		return orders.ErrInsufficientStock
	}
	return nil
}

// AppendCashback writes the ledger row and moves the cached balance in the same transaction.
func (t *mysqlTx) AppendCashback(ctx context.Context, entry *models.CashbackHistory) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO cashback_histories (user_id, order_id, amount, type, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.OrderID, entry.Amount, string(entry.Type), entry.Description, entry.CreatedAt)
	if err != nil {
		return err
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx,
		"UPDATE users SET cashback_balance = cashback_balance + ?, updated_at = ? WHERE id = ?",
		entry.Signed(), entry.CreatedAt, entry.UserID)
	return err
}

func (t *mysqlTx) AppendStatusLog(ctx context.Context, entry *models.OrderStatusLog) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO order_status_logs (order_id, status, handler_id, handler_name, notes, proof_image, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.OrderID, string(entry.Status), entry.HandlerID, entry.HandlerName, entry.Notes, entry.ProofImage, entry.CreatedAt)
	if err != nil {
		return err
	}
	entry.ID, err = res.LastInsertId()
	return err
}

func (t *mysqlTx) OrderForUpdate(ctx context.Context, orderID int64) (models.Order, error) {
	return getOrder(ctx, t.tx, orderID, true)
}

func (t *mysqlTx) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ?",
		string(status), orderID)
	return err
}

func (t *mysqlTx) UpdateDeliveryNotes(ctx context.Context, orderID int64, notes models.DeliveryNotes) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE orders SET delivery_notes = ?, updated_at = NOW() WHERE id = ?",
		notes, orderID)
	return err
}
