package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/partsdepot/pricing-engine/internal/domain/discount"
)

// EnrichedProduct is a product annotated with its best automatic discount
// for display.
type EnrichedProduct struct {
	Product

	// DisplayPrice is the price after the best single automatic rule,
	// rounded to cents and floored at zero. Equals Price when no rule applies.
	DisplayPrice decimal.Decimal

	// DiscountPercentage is the rule's raw percentage for percentage rules,
	// or the fixed amount's rounded share of the price for fixed rules.
	// Zero when no rule applies.
	DiscountPercentage decimal.Decimal

	// AppliedRuleID identifies the winning rule, empty when none applies.
	AppliedRuleID string
}

// Enrich annotates each product with the single best automatic rule that
// applies to it individually, by product id, category membership, or
// all-targeting. Unlike cart resolution, which sums every applicable rule,
// this picks one rule per product; the two paths differ in stacking policy
// on purpose and must not be unified.
func Enrich(products []Product, rules []discount.Rule, now time.Time) []EnrichedProduct {
	out := make([]EnrichedProduct, len(products))
	for i, p := range products {
		out[i] = enrichOne(p, rules, now)
	}
	return out
}

func enrichOne(p Product, rules []discount.Rule, now time.Time) EnrichedProduct {
	e := EnrichedProduct{Product: p, DisplayPrice: p.Price, DiscountPercentage: decimal.Zero}
	if !p.Price.IsPositive() {
		return e
	}

	// A single-line cart standing for the product alone; the product's price
	// is the base every candidate rule discounts.
	cart := discount.Cart{
		Items: []discount.LineItem{{
			ProductID: p.ID,
			Category:  p.Category,
			UnitPrice: p.Price,
			Quantity:  1,
		}},
		OrderAmount: p.Price,
	}

	var best *discount.Rule
	bestAmount := decimal.Zero
	for i := range rules {
		r := &rules[i]
		if !r.Automatic {
			continue
		}
		if discount.EffectiveStatus(r, now) != discount.StatusActive || !r.InWindow(now) {
			continue
		}
		if !discount.Applies(r, cart) {
			continue
		}
		amount := discount.AutomaticAmountFor(r, cart)
		if amount.GreaterThan(bestAmount) {
			best = r
			bestAmount = amount
		}
	}
	if best == nil {
		return e
	}

	display := p.Price.Sub(bestAmount)
	if display.IsNegative() {
		display = decimal.Zero
	}
	e.DisplayPrice = display.Round(2)
	e.AppliedRuleID = best.ID

	if best.Kind == discount.KindPercentage {
		e.DiscountPercentage = best.Amount
	} else {
		e.DiscountPercentage = bestAmount.Div(p.Price).Mul(decimal.NewFromInt(100)).Round(0)
	}
	return e
}
