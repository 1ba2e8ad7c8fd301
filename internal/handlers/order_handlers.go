package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/01moynul/catering-golang/internal/models"
	"github.com/01moynul/catering-golang/internal/orders"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

//
// --- Checkout ---
//

// CheckoutInput is the cart submission body. Multipart requests carry the same
// fields as form values, with items and delivery_notes JSON-encoded.
type CheckoutInput struct {
	Items           []orders.CartLine    `json:"items"`
	VoucherCode     string               `json:"voucher_code"`
	CashbackUsed    decimal.Decimal      `json:"cashback_used"`
	PaymentMethod   string               `json:"payment_method"`
	DeliveryAddress string               `json:"delivery_address"`
	DeliveryNotes   models.DeliveryNotes `json:"delivery_notes"`
	PaymentProof    string               `json:"payment_proof"`
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// bindCheckout reads a JSON or multipart checkout. An uploaded payment_proof file
// is stored and its URL replaces any payment_proof value.
func (h *Handlers) bindCheckout(c *gin.Context) (CheckoutInput, error) {
	var input CheckoutInput
	if !isMultipart(c) {
		if err := c.ShouldBindJSON(&input); err != nil {
			return input, fmt.Errorf("%w: %v", orders.ErrInvalidRequest, err)
		}
		return input, nil
	}

	if raw := c.PostForm("items"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.Items); err != nil {
			return input, fmt.Errorf("%w: items must be a JSON array", orders.ErrInvalidRequest)
		}
	}
	if raw := strings.TrimSpace(c.PostForm("cashback_used")); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return input, fmt.Errorf("%w: cashback_used must be a number", orders.ErrInvalidRequest)
		}
		input.CashbackUsed = amount
	}
	if raw := strings.TrimSpace(c.PostForm("delivery_notes")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.DeliveryNotes); err != nil {
			if errors.Is(err, models.ErrUnknownNotesKind) {
				return input, err
			}
			input.DeliveryNotes = models.DeliveryNotes{Kind: models.NotesFreeform, Text: raw}
		}
	}
	input.VoucherCode = c.PostForm("voucher_code")
	input.PaymentMethod = c.PostForm("payment_method")
	input.DeliveryAddress = c.PostForm("delivery_address")
	input.PaymentProof = c.PostForm("payment_proof")

	proof, err := h.saveProof(c, "payment_proof")
	if err != nil {
		return input, err
	}
	if proof != "" {
		input.PaymentProof = proof
	}
	return input, nil
}

// saveProof stores the named multipart file if one was sent.
func (h *Handlers) saveProof(c *gin.Context, field string) (string, error) {
	if !isMultipart(c) {
		return "", nil
	}
	file, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", orders.ErrInvalidRequest, err)
	}
	return h.Uploads.Save(file)
}

// checkProofRef accepts only references minted by the upload storage: a single file
// directly under its base URL.
func (h *Handlers) checkProofRef(ref string) error {
	if ref == "" {
		return nil
	}
	base := strings.TrimSuffix(h.Uploads.BaseURL(), "/") + "/"
	name, ok := strings.CutPrefix(ref, base)
	if !ok || name == "" || strings.ContainsAny(name, "/\\") || path.Clean(ref) != ref {
		return fmt.Errorf("%w: proof must be a URL returned by the upload endpoint", orders.ErrInvalidRequest)
	}
	return nil
}

// Checkout handles POST /v1/orders for logged-in buyers.
func (h *Handlers) Checkout(c *gin.Context) {
	actor := actorFrom(c)
	h.checkout(c, &actor)
}

// GuestCheckout handles POST /v1/orders/guest. Guests must send structured delivery notes.
func (h *Handlers) GuestCheckout(c *gin.Context) {
	h.checkout(c, nil)
}

func (h *Handlers) checkout(c *gin.Context, buyer *orders.Actor) {
	input, err := h.bindCheckout(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	input.PaymentProof = strings.TrimSpace(input.PaymentProof)
	if err := h.checkProofRef(input.PaymentProof); err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.Orders.PlaceOrder(c.Request.Context(), orders.CheckoutRequest{
		Buyer:           buyer,
		Items:           input.Items,
		VoucherCode:     input.VoucherCode,
		CashbackUsed:    input.CashbackUsed,
		PaymentMethod:   input.PaymentMethod,
		DeliveryAddress: input.DeliveryAddress,
		DeliveryNotes:   input.DeliveryNotes,
		PaymentProof:    input.PaymentProof,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":        "Order placed successfully",
		"orderId":        result.Order.ID,
		"order":          result.Order,
		"cashbackEarned": result.CashbackEarned,
		"voucherApplied": result.VoucherApplied,
	})
}

//
// --- Reads ---
//

// GetOrders handles GET /v1/orders with optional status, pinned, event_date, limit and offset.
func (h *Handlers) GetOrders(c *gin.Context) {
	filter, err := listFilterFrom(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	list, err := h.Orders.ListOrders(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "count": len(list)})
}

func listFilterFrom(c *gin.Context) (orders.ListFilter, error) {
	var filter orders.ListFilter
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Statuses = append(filter.Statuses, models.OrderStatus(part))
			}
		}
	}
	if raw := c.Query("pinned"); raw != "" {
		pinned, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, fmt.Errorf("%w: pinned must be true or false", orders.ErrInvalidRequest)
		}
		filter.Pinned = &pinned
	}
	filter.EventDate = strings.TrimSpace(c.Query("event_date"))

	var err error
	if filter.Limit, err = intQuery(c, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = intQuery(c, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", orders.ErrInvalidRequest, name)
	}
	return n, nil
}

// GetOrderDetails handles GET /v1/orders/:id.
func (h *Handlers) GetOrderDetails(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	detail, err := h.Orders.GetOrder(c.Request.Context(), actorFrom(c), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetOrderSummary handles GET /v1/orders/summary.
func (h *Handlers) GetOrderSummary(c *gin.Context) {
	summary, err := h.Orders.Summary(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

//
// --- Fulfillment ---
//

type statusInput struct {
	Status     models.OrderStatus `json:"status" form:"status"`
	Notes      string             `json:"notes" form:"notes"`
	ProofImage string             `json:"proof_image" form:"proof_image"`
}

// UpdateOrderStatus handles PUT /v1/orders/:id/status. A multipart request may attach
// a proof file (e.g. a delivery photo) under "proof".
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var input statusInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	proof, err := h.saveProof(c, "proof")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if proof != "" {
		input.ProofImage = proof
	}
	input.ProofImage = strings.TrimSpace(input.ProofImage)
	if err := h.checkProofRef(input.ProofImage); err != nil {
		h.respondError(c, err)
		return
	}

	entry, err := h.Orders.TransitionStatus(c.Request.Context(), orders.TransitionRequest{
		OrderID:    orderID,
		Actor:      actorFrom(c),
		Status:     input.Status,
		Notes:      input.Notes,
		ProofImage: input.ProofImage,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "log": entry})
}

// UpdatePaymentStatus handles PUT /v1/orders/:id/payment-status (admin).
func (h *Handlers) UpdatePaymentStatus(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	var input struct {
		PaymentStatus models.PaymentStatus `json:"payment_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Orders.UpdatePaymentStatus(c.Request.Context(), actorFrom(c), orderID, input.PaymentStatus); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment status updated"})
}

// UpdateAdminNotes handles PUT /v1/orders/:id/admin-notes (admin).
func (h *Handlers) UpdateAdminNotes(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	var input struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Orders.UpdateAdminNotes(c.Request.Context(), actorFrom(c), orderID, input.Notes); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Admin notes updated"})
}

// PinOrder handles PUT /v1/orders/:id/pin (operations, admin).
func (h *Handlers) PinOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	var input struct {
		Pinned *bool `json:"pinned" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Orders.SetPinned(c.Request.Context(), actorFrom(c), orderID, *input.Pinned); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order pin updated", "pinned": *input.Pinned})
}

// GetCashback handles GET /v1/cashback.
func (h *Handlers) GetCashback(c *gin.Context) {
	statement, err := h.Orders.Cashback(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statement)
}
