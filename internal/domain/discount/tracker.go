package discount

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Tracker records committed discount applications against rules.
type Tracker struct {
	repo Repository
}

// NewTracker creates a Tracker backed by the given rule repository.
func NewTracker(repo Repository) *Tracker {
	return &Tracker{repo: repo}
}

// Record increments the rule's usage count and total savings by the given
// amount and returns the updated rule. The increment must happen against the
// currently persisted values, not a stale in-memory copy: the repository
// performs it as a single atomic read-modify-write so two concurrent
// checkouts applying the same rule cannot lose an update.
func (t *Tracker) Record(ctx context.Context, ruleID string, savings decimal.Decimal) (*Rule, error) {
	if savings.IsNegative() {
		return nil, errors.New("savings must not be negative")
	}
	rule, err := t.repo.RecordUsage(ctx, ruleID, savings)
	if err != nil {
		return nil, errors.Wrap(err, "record usage")
	}
	return rule, nil
}
