package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/01moynul/catering-golang/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// TransitionRequest asks to move an order to a new fulfillment status.
type TransitionRequest struct {
	OrderID    int64
	Actor      Actor
	Status     models.OrderStatus
	Notes      string
	ProofImage string
}

// OrderDetail is an order with its lines, its history, and what the caller may do next.
type OrderDetail struct {
	models.Order
	AllowedTransitions []models.OrderStatus `json:"allowedTransitions"`
}

func (a Actor) owns(order models.Order) bool {
	return a.Role == models.RoleBuyer && a.UserID != 0 && a.UserID == order.UserID
}

func (a Actor) canView(order models.Order) bool {
	if a.Role == models.RoleBuyer {
		return a.owns(order)
	}
	if !a.IsStaff() {
		return false
	}
	statuses := visibleStatuses(a.Role)
	if statuses == nil {
		return true
	}
	for _, s := range statuses {
		if s == order.Status {
			return true
		}
	}
	return false
}

// TransitionStatus appends a status log row and moves the head status in one transaction.
// The order row stays locked between reading the current status and writing the new one.
func (s *Service) TransitionStatus(ctx context.Context, req TransitionRequest) (models.OrderStatusLog, error) {
	ctx, span := tracer.Start(ctx, "orders.TransitionStatus")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", req.OrderID),
		attribute.String("order.status", string(req.Status)),
		attribute.String("actor.role", req.Actor.Role),
	)

	if !req.Status.Valid() {
		err := fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
		span.SetStatus(codes.Error, err.Error())
		return models.OrderStatusLog{}, err
	}

	var entry models.OrderStatusLog
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		order, err := tx.OrderForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if req.Actor.Role == models.RoleBuyer && !req.Actor.owns(order) {
			return ErrOrderNotFound
		}
		if err := CheckTransition(order.Status, req.Status, req.Actor.Role, req.Actor.owns(order)); err != nil {
			return err
		}

		entry = models.OrderStatusLog{
			OrderID:     order.ID,
			Status:      req.Status,
			HandlerID:   req.Actor.handlerID(),
			HandlerName: req.Actor.handlerName(),
			Notes:       strings.TrimSpace(req.Notes),
			ProofImage:  nullableString(req.ProofImage),
			CreatedAt:   s.now(),
		}
		if err := tx.AppendStatusLog(ctx, &entry); err != nil {
			return fmt.Errorf("append status log: %w", err)
		}
		if err := tx.UpdateOrderStatus(ctx, order.ID, req.Status); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.OrderStatusLog{}, err
	}

	s.log.Info("order status changed",
		zap.Int64("order_id", req.OrderID),
		zap.String("status", string(req.Status)),
		zap.Int64("actor_id", req.Actor.UserID),
		zap.String("actor_role", req.Actor.Role),
	)
	return entry, nil
}

// UpdatePaymentStatus sets the payment label. Admin only, no status log row.
func (s *Service) UpdatePaymentStatus(ctx context.Context, actor Actor, orderID int64, status models.PaymentStatus) error {
	if actor.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if !status.Valid() {
		return fmt.Errorf("%w: payment_status %q", ErrInvalidRequest, status)
	}
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return err
	}
	return s.store.UpdatePaymentStatus(ctx, orderID, status)
}

// UpdateAdminNotes rewrites the admin notes embedded in the delivery notes. Admin only.
func (s *Service) UpdateAdminNotes(ctx context.Context, actor Actor, orderID int64, notes string) error {
	if actor.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return s.store.WithinTx(ctx, func(tx Tx) error {
		order, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		payload := order.DeliveryNotes
		if payload.Kind == "" {
			payload.Kind = models.NotesFreeform
		}
		payload.AdminNotes = strings.TrimSpace(notes)
		return tx.UpdateDeliveryNotes(ctx, orderID, payload)
	})
}

// SetPinned flags an order for operator triage.
func (s *Service) SetPinned(ctx context.Context, actor Actor, orderID int64, pinned bool) error {
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleOperations {
		return ErrForbidden
	}
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return err
	}
	return s.store.SetPinned(ctx, orderID, pinned)
}

// GetOrder returns an order with items and history if the caller may see it.
// Orders outside the caller's view are reported as not found.
func (s *Service) GetOrder(ctx context.Context, actor Actor, orderID int64) (OrderDetail, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return OrderDetail{}, err
	}
	if !actor.canView(order) {
		return OrderDetail{}, ErrOrderNotFound
	}

	items, err := s.store.ListOrderItems(ctx, orderID)
	if err != nil {
		return OrderDetail{}, fmt.Errorf("list order items: %w", err)
	}
	history, err := s.store.ListStatusLogs(ctx, orderID)
	if err != nil {
		return OrderDetail{}, fmt.Errorf("list status logs: %w", err)
	}
	order.Items = items
	order.History = history

	return OrderDetail{
		Order:              order,
		AllowedTransitions: AllowedTransitions(order.Status, actor.Role, actor.owns(order)),
	}, nil
}

// scopeFilter restricts filter to what actor's dashboard may list.
func scopeFilter(actor Actor, filter ListFilter) (ListFilter, error) {
	switch {
	case actor.Role == models.RoleBuyer:
		id := actor.UserID
		filter.UserID = &id
	case actor.IsStaff():
		visible := visibleStatuses(actor.Role)
		if visible == nil {
			break
		}
		if len(filter.Statuses) == 0 {
			filter.Statuses = visible
			break
		}
		narrowed := make([]models.OrderStatus, 0, len(filter.Statuses))
		for _, want := range filter.Statuses {
			for _, v := range visible {
				if want == v {
					narrowed = append(narrowed, want)
				}
			}
		}
		if len(narrowed) == 0 {
			return filter, errEmptyScope
		}
		filter.Statuses = narrowed
	default:
		return filter, ErrForbidden
	}
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return filter, fmt.Errorf("%w: %q", ErrInvalidStatus, st)
		}
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter, nil
}

var errEmptyScope = errors.New("filter excludes every visible status")

// ListOrders lists the orders visible to actor, newest and pinned first.
func (s *Service) ListOrders(ctx context.Context, actor Actor, filter ListFilter) ([]models.Order, error) {
	scoped, err := scopeFilter(actor, filter)
	if errors.Is(err, errEmptyScope) {
		return []models.Order{}, nil
	}
	if err != nil {
		return nil, err
	}
	orders, err := s.store.ListOrders(ctx, scoped)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// Summary counts visible orders per status for dashboard polling.
func (s *Service) Summary(ctx context.Context, actor Actor) (map[models.OrderStatus]int, error) {
	scoped, err := scopeFilter(actor, ListFilter{})
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountByStatus(ctx, scoped)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	summary := make(map[models.OrderStatus]int, len(models.AllStatuses))
	statuses := scoped.Statuses
	if len(statuses) == 0 {
		statuses = models.AllStatuses
	}
	for _, st := range statuses {
		summary[st] = counts[st]
	}
	return summary, nil
}
