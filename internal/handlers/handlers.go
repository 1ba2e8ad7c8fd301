package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/01moynul/catering-golang/internal/auth"
	"github.com/01moynul/catering-golang/internal/middleware"
	"github.com/01moynul/catering-golang/internal/models"
	"github.com/01moynul/catering-golang/internal/orders"
	"github.com/01moynul/catering-golang/internal/uploads"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderService is the order core as seen by the HTTP layer.
type OrderService interface {
	PlaceOrder(ctx context.Context, req orders.CheckoutRequest) (orders.CheckoutResult, error)
	GetOrder(ctx context.Context, actor orders.Actor, orderID int64) (orders.OrderDetail, error)
	ListOrders(ctx context.Context, actor orders.Actor, filter orders.ListFilter) ([]models.Order, error)
	Summary(ctx context.Context, actor orders.Actor) (map[models.OrderStatus]int, error)
	TransitionStatus(ctx context.Context, req orders.TransitionRequest) (models.OrderStatusLog, error)
	UpdatePaymentStatus(ctx context.Context, actor orders.Actor, orderID int64, status models.PaymentStatus) error
	UpdateAdminNotes(ctx context.Context, actor orders.Actor, orderID int64, notes string) error
	SetPinned(ctx context.Context, actor orders.Actor, orderID int64, pinned bool) error
	Cashback(ctx context.Context, actor orders.Actor) (orders.CashbackStatement, error)
}

// UserFinder backs login.
type UserFinder interface {
	UserByEmail(ctx context.Context, email string) (models.User, error)
}

// ProofStorage stores uploaded payment and delivery proofs under BaseURL.
type ProofStorage interface {
	Save(file *multipart.FileHeader) (string, error)
	BaseURL() string
}

// Handlers holds all dependencies for our handlers.
type Handlers struct {
	Orders  OrderService
	Users   UserFinder
	Tokens  *auth.TokenManager
	Uploads ProofStorage
	Logger  *zap.Logger
}

// actorFrom builds the acting identity from the claims AuthMiddleware stored.
func actorFrom(c *gin.Context) orders.Actor {
	return orders.Actor{
		UserID: c.GetInt64(middleware.ContextUserID),
		Name:   c.GetString(middleware.ContextUserName),
		Role:   c.GetString(middleware.ContextUserRole),
	}
}

func orderIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return 0, false
	}
	return id, true
}

// respondError maps domain errors to status codes. Unknown errors are logged and hidden.
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrInvalidRequest),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, models.ErrUnknownNotesKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, uploads.ErrUnsupportedType), errors.Is(err, uploads.ErrTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrProductNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, orders.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrForbidden), errors.Is(err, orders.ErrTransitionForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, orders.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		middleware.Logger(c, h.Logger).Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
