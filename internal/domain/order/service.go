package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partsdepot/pricing-engine/internal/domain/catalog"
	"github.com/partsdepot/pricing-engine/internal/domain/discount"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems      = fmt.Errorf("items required")
	ErrInvalidQuantity = fmt.Errorf("quantity must be greater than 0")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items      []OrderItem
	CouponCode string
	CustomerID string

	// FirstPurchase is tri-state: nil when the caller does not know.
	FirstPurchase *bool
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *Order
	Products []catalog.Product
	Decision *discount.Decision
}

// Service encapsulates checkout: it prices the cart, resolves discounts,
// persists the order, and commits usage for the winning rules only.
type Service struct {
	products catalog.Repository
	resolver *discount.Resolver
	tracker  *discount.Tracker
	orders   Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products catalog.Repository,
	resolver *discount.Resolver,
	tracker *discount.Tracker,
	orders Repository,
) *Service {
	return &Service{
		products: products,
		resolver: resolver,
		tracker:  tracker,
		orders:   orders,
	}
}

// PlaceOrder validates items, fetches products in a single batch, resolves
// discounts, persists the order, and records usage. A rejected coupon code
// fails the order: checkout never silently prices as if no code was entered.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Validate quantities and collect product IDs.
	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	productMap := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Verify every requested product was found, build the pricing context.
	products := make([]catalog.Product, 0, len(req.Items))
	lineItems := make([]discount.LineItem, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		products = append(products, p)

		lineItems[i] = discount.LineItem{
			ProductID: p.ID,
			Category:  p.Category,
			UnitPrice: p.Price,
			Quantity:  item.Quantity,
		}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	cart := discount.Cart{
		Items:         lineItems,
		OrderAmount:   subtotal,
		CustomerID:    req.CustomerID,
		FirstPurchase: req.FirstPurchase,
	}

	var decision *discount.Decision
	if req.CouponCode != "" {
		decision, err = s.resolver.Resolve(ctx, req.CouponCode, cart)
	} else {
		decision, err = s.resolver.ResolveAutomatic(ctx, cart)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve discount: %w", err)
	}

	// Total = subtotal - discount, floored at zero. Rounding happens here,
	// where the price is finally mutated, not inside the per-rule sums.
	total := subtotal.Sub(decision.TotalAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	total = total.Round(2)
	discountAmount := decision.TotalAmount.Round(2)

	o := &Order{
		ID:         uuid.New().String(),
		CustomerID: req.CustomerID,
		Items:      req.Items,
		Subtotal:   subtotal.Round(2),
		Total:      total,
		Discount:   discountAmount,
		CouponCode: req.CouponCode,
		Winner:     decision.Winner,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.commitUsage(ctx, decision); err != nil {
		return nil, fmt.Errorf("commit usage: %w", err)
	}

	return &PlaceOrderResult{
		Order:    o,
		Products: products,
		Decision: decision,
	}, nil
}

// commitUsage records usage for exactly the winning path of the decision.
func (s *Service) commitUsage(ctx context.Context, d *discount.Decision) error {
	switch d.Winner {
	case discount.WinnerManual:
		if d.ManualRule == nil || !d.ManualAmount.IsPositive() {
			return nil
		}
		_, err := s.tracker.Record(ctx, d.ManualRule.ID, d.ManualAmount.Round(2))
		return err
	case discount.WinnerAutomatic:
		for _, c := range d.Automatic {
			if _, err := s.tracker.Record(ctx, c.Rule.ID, c.Amount.Round(2)); err != nil {
				return err
			}
		}
	}
	return nil
}
