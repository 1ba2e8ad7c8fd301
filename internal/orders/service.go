package orders

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/01moynul/catering-golang/internal/orders")

// DefaultCashbackRate is the share of the payable amount credited back to the buyer.
var DefaultCashbackRate = decimal.NewFromFloat(0.01)

// ServiceDeps wires the order service.
type ServiceDeps struct {
	Store  Store
	Logger *zap.Logger
	Clock  func() time.Time

	// AllowOversell lets stock go negative, matching the legacy checkout.
	AllowOversell bool
	// CashbackRate defaults to DefaultCashbackRate when nil. Zero disables earning.
	CashbackRate *decimal.Decimal
}

// Service implements checkout and fulfillment on top of a Store.
type Service struct {
	store         Store
	log           *zap.Logger
	now           func() time.Time
	allowOversell bool
	cashbackRate  decimal.Decimal
}

func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("orders: store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	rate := DefaultCashbackRate
	if deps.CashbackRate != nil {
		rate = *deps.CashbackRate
	}
	return &Service{
		store:         deps.Store,
		log:           logger,
		now:           clock,
		allowOversell: deps.AllowOversell,
		cashbackRate:  rate,
	}, nil
}
