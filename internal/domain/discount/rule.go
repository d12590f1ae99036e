package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported discount value semantics.
type Kind string

const (
	// KindPercentage interprets Rule.Amount as a percentage in [0, 100].
	KindPercentage Kind = "percentage"
	// KindFixed interprets Rule.Amount as a currency amount capped at the base.
	KindFixed Kind = "fixed"
)

// TargetType selects which targeting field of a Rule is authoritative.
// The fields for the other target types are ignored even when populated,
// to tolerate stale data from prior edits.
type TargetType string

const (
	TargetAll        TargetType = "all"
	TargetProducts   TargetType = "products"
	TargetCategories TargetType = "categories"
	TargetCustomers  TargetType = "customers"
)

// Status is a rule's administrative or derived lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	// StatusExpired is derived from the window at read time and persisted
	// only by the code-lookup path.
	StatusExpired Status = "expired"
)

var (
	// ErrInvalidCode is returned when no rule exists for the supplied code.
	ErrInvalidCode = errors.New("invalid discount code")
	// ErrInactive is returned when the rule exists but is administratively disabled.
	ErrInactive = errors.New("discount inactive")
	// ErrExpired is returned when the rule is outside its validity window.
	ErrExpired = errors.New("discount expired")
	// ErrNotApplicable is returned when the targeting predicate rejects the cart.
	ErrNotApplicable = errors.New("discount not applicable to cart")
	// ErrBelowMinimum is returned when the order total is under the rule's floor.
	ErrBelowMinimum = errors.New("order amount below discount minimum")
)

// Rule defines a promotional discount: its monetary effect, validity window,
// targeting constraints, and aggregate usage counters.
type Rule struct {
	ID     string
	Code   string
	Kind   Kind
	Amount decimal.Decimal

	StartsAt time.Time
	EndsAt   time.Time

	// StoredStatus is the admin-controlled state. It does not encode expiry;
	// derive the read-time state with EffectiveStatus.
	StoredStatus Status

	Target      TargetType
	ProductIDs  []string
	Categories  []string
	CustomerIDs []string

	MinOrderAmount    decimal.Decimal
	FirstPurchaseOnly bool

	// Automatic rules are candidates without a code; non-automatic rules
	// require the customer to supply Code.
	Automatic bool

	Description string

	UsageCount   int64
	TotalSavings decimal.Decimal
}

// LineItem is a single cart line used for targeting and base computation.
type LineItem struct {
	ProductID string
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Cart is the caller-supplied pricing context. OrderAmount may be set
// independently of Items for call sites that only know the aggregate total.
type Cart struct {
	Items       []LineItem
	OrderAmount decimal.Decimal
	CustomerID  string

	// FirstPurchase is tri-state: nil means unknown. Only an explicit false
	// excludes first-purchase-only rules.
	FirstPurchase *bool
}

// Total returns the order amount when supplied, falling back to the sum of
// line totals.
func (c Cart) Total() decimal.Decimal {
	if c.OrderAmount.IsPositive() {
		return c.OrderAmount
	}
	return c.Subtotal()
}

// Subtotal returns the sum of unit price times quantity across all items.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return sum
}

// Repository provides lookup and mutation of discount rules at the record store.
type Repository interface {
	// FindByCode looks up a rule by its code (case-insensitive).
	// Returns ErrInvalidCode when no rule exists.
	FindByCode(ctx context.Context, code string) (*Rule, error)

	// FindAutomaticActive returns every automatic rule whose stored status is
	// active and whose window covers now.
	FindAutomaticActive(ctx context.Context, now time.Time) ([]Rule, error)

	// MarkExpired persists the derived expired status for a rule. Called only
	// by the code-lookup path; bulk reads never write.
	MarkExpired(ctx context.Context, id string) error

	// RecordUsage atomically increments the rule's usage count by one and its
	// total savings by the given amount, returning the updated rule.
	RecordUsage(ctx context.Context, id string, savings decimal.Decimal) (*Rule, error)
}
