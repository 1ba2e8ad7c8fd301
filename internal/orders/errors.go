package orders

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid order request")
	ErrProductNotFound     = errors.New("product not found")
	ErrVariantNotFound     = errors.New("variant not found")
	ErrVoucherNotFound     = errors.New("voucher not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidStatus       = errors.New("unknown order status")
	ErrInvalidTransition   = errors.New("status transition not allowed from current state")
	ErrTransitionForbidden = errors.New("role may not perform this status transition")
	ErrForbidden           = errors.New("role may not perform this action")
)
