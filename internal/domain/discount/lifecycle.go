package discount

import "time"

// EffectiveStatus derives a rule's read-time status from its stored status
// and validity window. It is a pure function: listing and automatic-rule
// fetch paths use it transiently and never persist the result. Only the
// code-lookup path (Resolver.Resolve) writes the derived expired status back,
// the first time it is observed, to avoid write amplification on bulk reads.
func EffectiveStatus(r *Rule, now time.Time) Status {
	if r.StoredStatus != StatusInactive && !r.EndsAt.IsZero() && now.After(r.EndsAt) {
		return StatusExpired
	}
	return r.StoredStatus
}

// InWindow reports whether now falls within the rule's [StartsAt, EndsAt]
// window, inclusive on both ends. A zero bound is treated as open.
func (r *Rule) InWindow(now time.Time) bool {
	if !r.StartsAt.IsZero() && now.Before(r.StartsAt) {
		return false
	}
	if !r.EndsAt.IsZero() && now.After(r.EndsAt) {
		return false
	}
	return true
}
