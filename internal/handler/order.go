package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/partsdepot/pricing-engine/internal/domain/order"
)

type orderRequest struct {
	Items         []itemRequest `json:"items"`
	CouponCode    string        `json:"couponCode,omitempty"`
	CustomerID    string        `json:"customerId,omitempty"`
	FirstPurchase *bool         `json:"firstPurchase,omitempty"`
}

type orderResponse struct {
	ID         string        `json:"id"`
	Subtotal   float64       `json:"subtotal"`
	Total      float64       `json:"total"`
	Discount   float64       `json:"discount"`
	Winner     string        `json:"winner,omitempty"`
	CouponCode string        `json:"couponCode,omitempty"`
	Items      []itemRequest `json:"items"`
}

// PlaceOrder places an order: the checkout path. Unlike the resolve
// endpoint, a rejected coupon code fails the request: checkout never
// silently proceeds as if no code was entered.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	items := make([]order.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	result, err := h.orderService.PlaceOrder(ctx, order.PlaceOrderRequest{
		Items:         items,
		CouponCode:    req.CouponCode,
		CustomerID:    req.CustomerID,
		FirstPurchase: req.FirstPurchase,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	respItems := make([]itemRequest, len(result.Order.Items))
	for i, item := range result.Order.Items {
		respItems[i] = itemRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	writeJSON(w, http.StatusCreated, orderResponse{
		ID:         result.Order.ID,
		Subtotal:   result.Order.Subtotal.InexactFloat64(),
		Total:      result.Order.Total.InexactFloat64(),
		Discount:   result.Order.Discount.InexactFloat64(),
		Winner:     string(result.Order.Winner),
		CouponCode: result.Order.CouponCode,
		Items:      respItems,
	})
}

// writeOrderError maps checkout errors to HTTP responses. Discount
// eligibility failures surface with their typed reason at 422.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, order.ErrEmptyItems) {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		writeError(w, http.StatusUnprocessableEntity, iqErr.Error(), "")
		return
	}

	var pnfErr *order.ProductNotFoundError
	if errors.As(err, &pnfErr) {
		writeError(w, http.StatusUnprocessableEntity, pnfErr.Error(), "")
		return
	}

	if reason := failureReason(err); reason != "" {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), reason)
		return
	}

	zctx.From(r.Context()).Error("place order", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "failed to place order", "")
}
