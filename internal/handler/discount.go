package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/partsdepot/pricing-engine/internal/domain/discount"
)

// resolveRequest is the dry-run resolution input: a coupon code plus the
// cart context. Items reference catalog products; their prices and
// categories are looked up server-side.
type resolveRequest struct {
	CouponCode    string        `json:"couponCode"`
	CustomerID    string        `json:"customerId,omitempty"`
	FirstPurchase *bool         `json:"firstPurchase,omitempty"`
	OrderAmount   float64       `json:"orderAmount,omitempty"`
	Items         []itemRequest `json:"items"`
}

type itemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// contributionResponse is one automatic rule's share of a decision.
type contributionResponse struct {
	RuleID      string  `json:"ruleId"`
	Code        string  `json:"code,omitempty"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`
}

// resolveResponse reports both sides of a decision so the UI can show the
// customer the losing option too. When the code is rejected, valid is false,
// reason carries the typed failure, and the automatic side is still present.
type resolveResponse struct {
	Valid           bool                   `json:"valid"`
	Reason          string                 `json:"reason,omitempty"`
	ManualAmount    float64                `json:"manualAmount"`
	AutomaticAmount float64                `json:"automaticAmount"`
	AutomaticRules  []contributionResponse `json:"automaticRules"`
	Winner          string                 `json:"winner"`
	TotalAmount     float64                `json:"totalAmount"`
}

// ResolveDiscount computes the discount decision for a cart without
// committing anything. Rejected codes degrade to an automatic-only decision
// with the rejection reason attached; only collaborator failures are errors.
func (h *Handler) ResolveDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	cart, err := h.buildCart(r, req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "")
		return
	}

	var decision *discount.Decision
	if req.CouponCode != "" {
		decision, err = h.resolver.Resolve(ctx, req.CouponCode, cart)
		if reason := failureReason(err); reason != "" {
			// Recoverable: fall back to the automatic-only outcome and
			// report why the code was rejected.
			auto, autoErr := h.resolver.ResolveAutomatic(ctx, cart)
			if autoErr != nil {
				zctx.From(ctx).Error("resolve automatic", zap.Error(autoErr))
				writeError(w, http.StatusInternalServerError, "failed to resolve discounts", "")
				return
			}
			resp := toResolveResponse(auto)
			resp.Valid = false
			resp.Reason = reason
			writeJSON(w, http.StatusOK, resp)
			return
		}
	} else {
		decision, err = h.resolver.ResolveAutomatic(ctx, cart)
	}
	if err != nil {
		zctx.From(ctx).Error("resolve discounts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to resolve discounts", "")
		return
	}

	resp := toResolveResponse(decision)
	resp.Valid = true
	writeJSON(w, http.StatusOK, resp)
}

// buildCart prices the requested items from the catalog. Callers without
// line items may supply only the aggregate order amount.
func (h *Handler) buildCart(r *http.Request, req resolveRequest) (discount.Cart, error) {
	cart := discount.Cart{
		OrderAmount:   decimal.NewFromFloat(req.OrderAmount),
		CustomerID:    req.CustomerID,
		FirstPurchase: req.FirstPurchase,
	}
	if len(req.Items) == 0 {
		return cart, nil
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.ProductID
	}
	products, err := h.products.GetByIDs(r.Context(), ids)
	if err != nil {
		return cart, errors.Wrap(err, "get products")
	}
	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}

	cart.Items = make([]discount.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		i, ok := byID[item.ProductID]
		if !ok {
			return cart, errors.Errorf("product %s not found", item.ProductID)
		}
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		cart.Items = append(cart.Items, discount.LineItem{
			ProductID: products[i].ID,
			Category:  products[i].Category,
			UnitPrice: products[i].Price,
			Quantity:  qty,
		})
	}
	return cart, nil
}

func toResolveResponse(d *discount.Decision) resolveResponse {
	auto := make([]contributionResponse, len(d.Automatic))
	for i, c := range d.Automatic {
		auto[i] = contributionResponse{
			RuleID:      c.Rule.ID,
			Code:        c.Rule.Code,
			Description: c.Rule.Description,
			Amount:      c.Amount.Round(2).InexactFloat64(),
		}
	}
	return resolveResponse{
		ManualAmount:    d.ManualAmount.Round(2).InexactFloat64(),
		AutomaticAmount: d.AutomaticAmount.Round(2).InexactFloat64(),
		AutomaticRules:  auto,
		Winner:          string(d.Winner),
		TotalAmount:     d.TotalAmount.Round(2).InexactFloat64(),
	}
}

// failureReason maps recoverable eligibility errors to their wire reason.
// It returns "" for nil and for non-eligibility errors.
func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, discount.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, discount.ErrInactive):
		return "inactive"
	case errors.Is(err, discount.ErrExpired):
		return "expired"
	case errors.Is(err, discount.ErrNotApplicable):
		return "not_applicable"
	case errors.Is(err, discount.ErrBelowMinimum):
		return "below_minimum"
	default:
		return ""
	}
}
