package discount

// Applies reports whether the rule's targeting predicate accepts the cart.
// Window and status filtering are the caller's responsibility; this only
// evaluates target membership and the first-purchase gate.
//
// The first-purchase gate is permissive: an unknown tri-state does not
// exclude the rule, only an explicit false does.
//
// Minimum-order gating is deliberately not evaluated here. The manual code
// path checks it in the resolver (all-targeted rules only); the automatic
// path checks it uniformly inside AmountFor. The two paths diverge in the
// stored behaviour and are kept separate on purpose.
func Applies(r *Rule, cart Cart) bool {
	if r.FirstPurchaseOnly && cart.FirstPurchase != nil && !*cart.FirstPurchase {
		return false
	}

	switch r.Target {
	case TargetAll:
		return true
	case TargetProducts:
		// Product-targeted rules need product-level context: a cart that only
		// carries an aggregate total can never match.
		ids := make(map[string]struct{}, len(r.ProductIDs))
		for _, id := range r.ProductIDs {
			ids[id] = struct{}{}
		}
		for _, item := range cart.Items {
			if _, ok := ids[item.ProductID]; ok {
				return true
			}
		}
		return false
	case TargetCategories:
		names := make(map[string]struct{}, len(r.Categories))
		for _, name := range r.Categories {
			names[name] = struct{}{}
		}
		for _, item := range cart.Items {
			if _, ok := names[item.Category]; ok {
				return true
			}
		}
		return false
	case TargetCustomers:
		if cart.CustomerID == "" {
			return false
		}
		for _, id := range r.CustomerIDs {
			if id == cart.CustomerID {
				return true
			}
		}
		return false
	default:
		return false
	}
}
