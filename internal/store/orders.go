package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/01moynul/catering-golang/internal/models"
	"github.com/01moynul/catering-golang/internal/orders"
	"github.com/shopspring/decimal"
)

const orderColumns = `
	o.id, o.user_id, o.voucher_id, o.total_amount, o.discount_amount, o.cashback_used,
	o.final_amount, o.payment_method, o.payment_status, o.delivery_address, o.delivery_notes,
	o.status, o.is_pinned, o.created_at, o.updated_at, COALESCE(u.name, '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (models.Order, error) {
	var (
		o         models.Order
		voucherID sql.NullInt64
	)
	err := row.Scan(
		&o.ID, &o.UserID, &voucherID, &o.TotalAmount, &o.DiscountAmount, &o.CashbackUsed,
		&o.FinalAmount, &o.PaymentMethod, &o.PaymentStatus, &o.DeliveryAddress, &o.DeliveryNotes,
		&o.Status, &o.IsPinned, &o.CreatedAt, &o.UpdatedAt, &o.BuyerName,
	)
	if err != nil {
		return models.Order{}, err
	}
	o.VoucherID = nullInt64Ptr(voucherID)
	return o, nil
}

func getOrder(ctx context.Context, q Querier, id int64, lock bool) (models.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		WHERE o.id = ?`
	if lock {
		query += ` FOR UPDATE OF o`
	}

	o, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Order{}, orders.ErrOrderNotFound
		}
		return models.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

// GetOrder is the handler-facing single order read.
func (s *MySQLStore) GetOrder(ctx context.Context, id int64) (models.Order, error) {
	return getOrder(ctx, s.db, id, false)
}

// whereClause builds the shared WHERE for list and count queries.
func whereClause(filter orders.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != nil {
		conds = append(conds, "o.user_id = ?")
		args = append(args, *filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		conds = append(conds, "o.status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Pinned != nil {
		conds = append(conds, "o.is_pinned = ?")
		args = append(args, *filter.Pinned)
	}
	if filter.EventDate != "" {
		conds = append(conds, "o.event_date = ?")
		args = append(args, filter.EventDate)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *MySQLStore) ListOrders(ctx context.Context, filter orders.ListFilter) ([]models.Order, error) {
	where, args := whereClause(filter)
	query := `SELECT ` + orderColumns + `
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id` + where + `
		ORDER BY o.is_pinned DESC, o.created_at DESC, o.id DESC
		LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

func (s *MySQLStore) CountByStatus(ctx context.Context, filter orders.ListFilter) (map[models.OrderStatus]int, error) {
	where, args := whereClause(filter)
	query := `SELECT o.status, COUNT(*) FROM orders o` + where + ` GROUP BY o.status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.OrderStatus]int)
	for rows.Next() {
		var (
			status models.OrderStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *MySQLStore) ListOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, variant_id, product_name, variant_name,
			quantity, price, subtotal, created_at
		FROM order_items
		WHERE order_id = ?
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var (
			item        models.OrderItem
			variantID   sql.NullInt64
			variantName sql.NullString
		)
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &variantID, &item.ProductName, &variantName,
			&item.Quantity, &item.Price, &item.Subtotal, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.VariantID = nullInt64Ptr(variantID)
		item.VariantName = nullStringPtr(variantName)
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListStatusLogs returns the history oldest first; the last element is the head status.
func (s *MySQLStore) ListStatusLogs(ctx context.Context, orderID int64) ([]models.OrderStatusLog, error) {
	query := `
		SELECT id, order_id, status, handler_id, handler_name, notes, proof_image, created_at
		FROM order_status_logs
		WHERE order_id = ?
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.OrderStatusLog{}
	for rows.Next() {
		var (
			entry     models.OrderStatusLog
			handlerID sql.NullInt64
			proof     sql.NullString
		)
		if err := rows.Scan(
			&entry.ID, &entry.OrderID, &entry.Status, &handlerID, &entry.HandlerName,
			&entry.Notes, &proof, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.HandlerID = nullInt64Ptr(handlerID)
		entry.ProofImage = nullStringPtr(proof)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func (s *MySQLStore) UpdatePaymentStatus(ctx context.Context, orderID int64, status models.PaymentStatus) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_status = ?, updated_at = NOW() WHERE id = ?",
		string(status), orderID)
	return err
}

func (s *MySQLStore) SetPinned(ctx context.Context, orderID int64, pinned bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET is_pinned = ?, updated_at = NOW() WHERE id = ?",
		pinned, orderID)
	return err
}

// CashbackBalance reads the cached balance on the user row.
func (s *MySQLStore) CashbackBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.db.QueryRowContext(ctx, "SELECT cashback_balance FROM users WHERE id = ?", userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, orders.ErrUserNotFound
		}
		return decimal.Zero, err
	}
	return balance, nil
}

func (s *MySQLStore) ListCashbackHistory(ctx context.Context, userID int64) ([]models.CashbackHistory, error) {
	query := `
		SELECT id, user_id, order_id, amount, type, description, created_at
		FROM cashback_histories
		WHERE user_id = ?
		ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []models.CashbackHistory
	for rows.Next() {
		var (
			h       models.CashbackHistory
			orderID sql.NullInt64
		)
		if err := rows.Scan(&h.ID, &h.UserID, &orderID, &h.Amount, &h.Type, &h.Description, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.OrderID = nullInt64Ptr(orderID)
		history = append(history, h)
	}
	return history, rows.Err()
}
