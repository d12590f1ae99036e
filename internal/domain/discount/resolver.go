package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Winner tags which side of a resolution achieved the total amount.
type Winner string

const (
	WinnerManual    Winner = "manual"
	WinnerAutomatic Winner = "automatic"
)

// Contribution is a single automatic rule's share of a decision.
type Contribution struct {
	Rule   Rule
	Amount decimal.Decimal
}

// Decision is the outcome of resolving a cart's discounts. Both the manual
// and automatic outcomes are computed so callers can show the customer the
// losing option too; the caller applies exactly the winning path and commits
// usage only for it once checkout confirms.
type Decision struct {
	Code         string
	ManualRule   *Rule
	ManualAmount decimal.Decimal

	Automatic       []Contribution
	AutomaticAmount decimal.Decimal

	Winner      Winner
	TotalAmount decimal.Decimal
}

// Resolver decides which discounts apply to a cart and what they are worth.
// It is stateless and safe for concurrent use; the only mutation it performs
// is the lazy expired-status write-back on the code-lookup path.
type Resolver struct {
	repo Repository
	now  func() time.Time
}

// NewResolver creates a Resolver backed by the given rule repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo, now: time.Now}
}

// Resolve validates the manual code against the cart, computes its amount,
// independently computes the automatic outcome, and picks the better side.
// Ties favor the manual code.
//
// Eligibility failures (ErrInvalidCode, ErrInactive, ErrExpired,
// ErrNotApplicable, ErrBelowMinimum) are recoverable: callers that want a
// best-effort price fall back to ResolveAutomatic. Checkout callers must not
// fail open: an invalid code blocks the discount rather than pricing at $0.
func (r *Resolver) Resolve(ctx context.Context, code string, cart Cart) (*Decision, error) {
	now := r.now()

	rule, err := r.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return nil, ErrInvalidCode
		}
		return nil, errors.Wrap(err, "lookup rule")
	}

	switch EffectiveStatus(rule, now) {
	case StatusExpired:
		// Lazy write-back: this is the one path that persists the derived
		// status. The resolution outcome does not depend on the write, so a
		// failure here is dropped.
		_ = r.repo.MarkExpired(ctx, rule.ID)
		return nil, ErrExpired
	case StatusInactive:
		return nil, ErrInactive
	}

	if !rule.InWindow(now) {
		return nil, ErrExpired
	}

	// Manual-path targeting only rejects product-targeted rules with no
	// product overlap; other target types are priced as-is.
	if rule.Target == TargetProducts && !Applies(rule, cart) {
		return nil, ErrNotApplicable
	}

	// Manual-path minimum-order gate: all-targeted rules only. The automatic
	// side gates uniformly inside AutomaticAmountFor.
	if rule.Target == TargetAll && rule.MinOrderAmount.IsPositive() &&
		cart.Total().LessThan(rule.MinOrderAmount) {
		return nil, ErrBelowMinimum
	}

	manualAmount := AmountFor(rule, cart)

	auto, autoAmount, err := r.automatic(ctx, cart, now)
	if err != nil {
		return nil, err
	}

	d := &Decision{
		Code:            code,
		ManualRule:      rule,
		ManualAmount:    manualAmount,
		Automatic:       auto,
		AutomaticAmount: autoAmount,
	}
	if manualAmount.GreaterThanOrEqual(autoAmount) {
		d.Winner = WinnerManual
		d.TotalAmount = manualAmount
	} else {
		d.Winner = WinnerAutomatic
		d.TotalAmount = autoAmount
	}
	return d, nil
}

// ResolveAutomatic computes the automatic-only outcome for carts without a
// manual code, and for callers falling back after a rejected code.
func (r *Resolver) ResolveAutomatic(ctx context.Context, cart Cart) (*Decision, error) {
	auto, autoAmount, err := r.automatic(ctx, cart, r.now())
	if err != nil {
		return nil, err
	}
	return &Decision{
		Automatic:       auto,
		AutomaticAmount: autoAmount,
		Winner:          WinnerAutomatic,
		TotalAmount:     autoAmount,
	}, nil
}

// automatic fetches the candidate set and sums every applicable rule's
// amount, each computed against its own base. There is no global cap: stacked
// rules targeting overlapping products may together exceed the order total.
// That matches the recorded behaviour and is preserved deliberately; callers
// wanting a cap have the per-rule contributions to clamp against.
func (r *Resolver) automatic(ctx context.Context, cart Cart, now time.Time) ([]Contribution, decimal.Decimal, error) {
	rules, err := r.repo.FindAutomaticActive(ctx, now)
	if err != nil {
		return nil, decimal.Zero, errors.Wrap(err, "fetch automatic rules")
	}

	var contributions []Contribution
	total := decimal.Zero
	for i := range rules {
		rule := &rules[i]
		// Transient lifecycle filter; bulk reads never persist expiry.
		if EffectiveStatus(rule, now) != StatusActive || !rule.InWindow(now) {
			continue
		}
		if !Applies(rule, cart) {
			continue
		}
		amount := AutomaticAmountFor(rule, cart)
		if !amount.IsPositive() {
			continue
		}
		contributions = append(contributions, Contribution{Rule: *rule, Amount: amount})
		total = total.Add(amount)
	}
	return contributions, total, nil
}
