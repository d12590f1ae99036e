package discount

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// AmountFor computes the monetary discount the rule yields for the cart.
//
// The base depends on the target type: all- and customer-targeted rules
// discount the whole order total; product- and category-targeted rules
// discount the matching portion of the cart. When the matching line items
// carry unit prices the base is price-weighted; otherwise it falls back to a
// linear proportional approximation of the order total by line count. The
// fallback is only selected when price data is missing, never by default.
//
// Percentage rules yield base * amount / 100; fixed rules are capped at the
// base so a discount never refunds more than what it discounts. The result is
// not rounded: rounding happens once, at the point where a price is finally
// mutated, so stacked rules do not compound rounding error.
//
// Minimum-order gating is NOT applied here; see AutomaticAmountFor.
func AmountFor(r *Rule, cart Cart) decimal.Decimal {
	base := baseFor(r, cart)
	return convert(r, base)
}

// AutomaticAmountFor is AmountFor with the uniform minimum-order gate the
// automatic-discovery path applies across all target types. The manual code
// path instead checks the minimum in the resolver, and only for all-targeted
// rules; the divergence mirrors the stored behaviour and is intentional.
func AutomaticAmountFor(r *Rule, cart Cart) decimal.Decimal {
	if r.MinOrderAmount.IsPositive() && cart.Total().LessThan(r.MinOrderAmount) {
		return decimal.Zero
	}
	return AmountFor(r, cart)
}

// baseFor returns the portion of the cart value the rule discounts.
func baseFor(r *Rule, cart Cart) decimal.Decimal {
	switch r.Target {
	case TargetProducts:
		return matchedBase(cart, func(item LineItem) bool {
			for _, id := range r.ProductIDs {
				if id == item.ProductID {
					return true
				}
			}
			return false
		})
	case TargetCategories:
		return matchedBase(cart, func(item LineItem) bool {
			for _, name := range r.Categories {
				if name == item.Category {
					return true
				}
			}
			return false
		})
	default:
		return cart.Total()
	}
}

// matchedBase computes the base for a subset of line items. Price-weighted
// when any matching item has a unit price; proportional by line count when
// prices are absent.
func matchedBase(cart Cart, match func(LineItem) bool) decimal.Decimal {
	if len(cart.Items) == 0 {
		return decimal.Zero
	}

	matched := 0
	priced := decimal.Zero
	hasPrices := false
	for _, item := range cart.Items {
		if !match(item) {
			continue
		}
		matched++
		if item.UnitPrice.IsPositive() {
			hasPrices = true
			line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			priced = priced.Add(line)
		}
	}
	if matched == 0 {
		return decimal.Zero
	}
	if hasPrices {
		return priced
	}

	// Proportional approximation: scale the order total by the share of
	// matching lines. Linear by line count, not price-weighted.
	ratio := decimal.NewFromInt(int64(matched)).Div(decimal.NewFromInt(int64(len(cart.Items))))
	return cart.Total().Mul(ratio)
}

// convert turns the base into a discount amount per the rule's kind.
func convert(r *Rule, base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	switch r.Kind {
	case KindPercentage:
		return base.Mul(r.Amount).Div(hundred)
	case KindFixed:
		return decimal.Min(r.Amount, base)
	default:
		return decimal.Zero
	}
}
