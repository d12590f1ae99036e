package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/partsdepot/pricing-engine/internal/domain/discount"
)

// Order represents a completed customer order with pricing and discount details.
type Order struct {
	ID         string
	CustomerID string
	Items      []OrderItem
	Subtotal   decimal.Decimal
	Total      decimal.Decimal
	Discount   decimal.Decimal
	CouponCode string
	Winner     discount.Winner
	CreatedAt  time.Time
}

// OrderItem represents a single line item in an order.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
}
