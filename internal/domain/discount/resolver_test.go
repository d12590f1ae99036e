package discount

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRuleRepo struct {
	rule    *Rule
	findErr error

	automatic    []Rule
	automaticErr error

	markExpiredID  string
	markExpiredErr error

	recordedID      string
	recordedSavings decimal.Decimal
	recordErr       error
}

func (m *mockRuleRepo) FindByCode(_ context.Context, _ string) (*Rule, error) {
	return m.rule, m.findErr
}

func (m *mockRuleRepo) FindAutomaticActive(_ context.Context, _ time.Time) ([]Rule, error) {
	return m.automatic, m.automaticErr
}

func (m *mockRuleRepo) MarkExpired(_ context.Context, id string) error {
	m.markExpiredID = id
	return m.markExpiredErr
}

func (m *mockRuleRepo) RecordUsage(_ context.Context, id string, savings decimal.Decimal) (*Rule, error) {
	m.recordedID = id
	m.recordedSavings = savings
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	return &Rule{ID: id, UsageCount: 1, TotalSavings: savings}, nil
}

var fixedNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestResolver(repo Repository) *Resolver {
	r := NewResolver(repo)
	r.now = func() time.Time { return fixedNow }
	return r
}

func activeRule(code string) *Rule {
	return &Rule{
		ID:           "rule-" + code,
		Code:         code,
		Kind:         KindPercentage,
		Amount:       decimal.NewFromInt(10),
		StartsAt:     fixedNow.Add(-24 * time.Hour),
		EndsAt:       fixedNow.Add(24 * time.Hour),
		StoredStatus: StatusActive,
		Target:       TargetAll,
	}
}

func TestResolve_InvalidCode(t *testing.T) {
	r := newTestResolver(&mockRuleRepo{findErr: ErrInvalidCode})

	_, err := r.Resolve(context.Background(), "BOGUS", Cart{OrderAmount: decimal.NewFromInt(100)})
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestResolve_RepoError(t *testing.T) {
	r := newTestResolver(&mockRuleRepo{findErr: errors.New("connection refused")})

	_, err := r.Resolve(context.Background(), "SAVE10", Cart{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup rule")
}

func TestResolve_InactiveRule(t *testing.T) {
	rule := activeRule("PAUSED")
	rule.StoredStatus = StatusInactive
	r := newTestResolver(&mockRuleRepo{rule: rule})

	_, err := r.Resolve(context.Background(), "PAUSED", Cart{OrderAmount: decimal.NewFromInt(100)})
	require.ErrorIs(t, err, ErrInactive)
}

func TestResolve_ExpiredRuleWritesBack(t *testing.T) {
	rule := activeRule("OLD")
	rule.EndsAt = fixedNow.Add(-time.Hour)
	repo := &mockRuleRepo{rule: rule}
	r := newTestResolver(repo)

	_, err := r.Resolve(context.Background(), "OLD", Cart{OrderAmount: decimal.NewFromInt(100)})
	require.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, rule.ID, repo.markExpiredID, "expired status must be persisted on code lookup")
}

func TestResolve_ExpiredWriteBackFailureStillRejects(t *testing.T) {
	rule := activeRule("OLD")
	rule.EndsAt = fixedNow.Add(-time.Hour)
	repo := &mockRuleRepo{rule: rule, markExpiredErr: errors.New("db write failed")}
	r := newTestResolver(repo)

	_, err := r.Resolve(context.Background(), "OLD", Cart{OrderAmount: decimal.NewFromInt(100)})
	require.ErrorIs(t, err, ErrExpired)
}

func TestResolve_NotYetStarted(t *testing.T) {
	rule := activeRule("FUTURE")
	rule.StartsAt = fixedNow.Add(time.Hour)
	r := newTestResolver(&mockRuleRepo{rule: rule})

	_, err := r.Resolve(context.Background(), "FUTURE", Cart{OrderAmount: decimal.NewFromInt(100)})
	require.ErrorIs(t, err, ErrExpired)
}

func TestResolve_ProductTargetNotApplicable(t *testing.T) {
	rule := activeRule("GPUONLY")
	rule.Target = TargetProducts
	rule.ProductIDs = []string{"p1", "p2"}
	r := newTestResolver(&mockRuleRepo{rule: rule})

	_, err := r.Resolve(context.Background(), "GPUONLY", Cart{
		Items: []LineItem{{ProductID: "p3", UnitPrice: decimal.NewFromInt(100), Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrNotApplicable)
}

func TestResolve_CategoryTargetIsNotRejected(t *testing.T) {
	// Only product-targeted rules are rejected for missing overlap on the
	// manual path. A category rule with no matching lines prices to zero
	// instead of failing.
	rule := activeRule("STORAGE")
	rule.Target = TargetCategories
	rule.Categories = []string{"storage"}
	r := newTestResolver(&mockRuleRepo{rule: rule})

	d, err := r.Resolve(context.Background(), "STORAGE", Cart{
		Items: []LineItem{{ProductID: "p1", Category: "gpu", UnitPrice: decimal.NewFromInt(100), Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(d.ManualAmount))
}

func TestResolve_BelowMinimumForAllTarget(t *testing.T) {
	rule := activeRule("BIG50")
	rule.MinOrderAmount = decimal.NewFromInt(500)
	r := newTestResolver(&mockRuleRepo{rule: rule})

	_, err := r.Resolve(context.Background(), "BIG50", Cart{OrderAmount: decimal.NewFromInt(100)})
	require.ErrorIs(t, err, ErrBelowMinimum)
}

func TestResolve_MinimumNotCheckedForProductTarget(t *testing.T) {
	rule := activeRule("GPU10")
	rule.Target = TargetProducts
	rule.ProductIDs = []string{"p1"}
	rule.MinOrderAmount = decimal.NewFromInt(500)
	r := newTestResolver(&mockRuleRepo{rule: rule})

	d, err := r.Resolve(context.Background(), "GPU10", Cart{
		Items: []LineItem{{ProductID: "p1", UnitPrice: decimal.NewFromInt(100), Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(d.ManualAmount))
}

func TestResolve_ManualWins(t *testing.T) {
	rule := activeRule("SAVE10")
	auto := *activeRule("AUTO5")
	auto.Amount = decimal.NewFromInt(5)
	auto.Automatic = true
	r := newTestResolver(&mockRuleRepo{rule: rule, automatic: []Rule{auto}})

	d, err := r.Resolve(context.Background(), "SAVE10", Cart{OrderAmount: decimal.NewFromInt(200)})
	require.NoError(t, err)
	assert.Equal(t, WinnerManual, d.Winner)
	assert.True(t, decimal.NewFromInt(20).Equal(d.TotalAmount))
	assert.True(t, decimal.NewFromInt(10).Equal(d.AutomaticAmount))
	require.Len(t, d.Automatic, 1)
}

func TestResolve_AutomaticWins(t *testing.T) {
	rule := activeRule("SAVE10")
	auto := *activeRule("AUTO25")
	auto.Amount = decimal.NewFromInt(25)
	auto.Automatic = true
	r := newTestResolver(&mockRuleRepo{rule: rule, automatic: []Rule{auto}})

	d, err := r.Resolve(context.Background(), "SAVE10", Cart{OrderAmount: decimal.NewFromInt(200)})
	require.NoError(t, err)
	assert.Equal(t, WinnerAutomatic, d.Winner)
	assert.True(t, decimal.NewFromInt(50).Equal(d.TotalAmount))
	assert.True(t, decimal.NewFromInt(20).Equal(d.ManualAmount))
}

func TestResolve_TieFavorsManual(t *testing.T) {
	rule := activeRule("SAVE10")
	auto := *activeRule("AUTO10")
	auto.Automatic = true
	r := newTestResolver(&mockRuleRepo{rule: rule, automatic: []Rule{auto}})

	d, err := r.Resolve(context.Background(), "SAVE10", Cart{OrderAmount: decimal.NewFromInt(200)})
	require.NoError(t, err)
	assert.Equal(t, WinnerManual, d.Winner)
	assert.True(t, decimal.NewFromInt(20).Equal(d.TotalAmount))
}

func TestResolve_AutomaticStackingIsUnbounded(t *testing.T) {
	// Two 10% rules on the same product sum to 20%; there is no cap.
	a := *activeRule("A")
	a.Automatic = true
	a.Target = TargetProducts
	a.ProductIDs = []string{"p1"}
	b := *activeRule("B")
	b.Automatic = true
	b.Target = TargetProducts
	b.ProductIDs = []string{"p1"}

	r := newTestResolver(&mockRuleRepo{automatic: []Rule{a, b}})

	d, err := r.ResolveAutomatic(context.Background(), Cart{
		Items: []LineItem{{ProductID: "p1", UnitPrice: decimal.NewFromInt(1000), Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(200).Equal(d.AutomaticAmount),
		"expected 200, got %s", d.AutomaticAmount)
	assert.Len(t, d.Automatic, 2)
}

func TestResolve_AutomaticFiltersLifecycleTransiently(t *testing.T) {
	expired := *activeRule("EXPIRED")
	expired.Automatic = true
	expired.EndsAt = fixedNow.Add(-time.Hour)
	inactive := *activeRule("INACTIVE")
	inactive.Automatic = true
	inactive.StoredStatus = StatusInactive
	good := *activeRule("GOOD")
	good.Automatic = true

	repo := &mockRuleRepo{automatic: []Rule{expired, inactive, good}}
	r := newTestResolver(repo)

	d, err := r.ResolveAutomatic(context.Background(), Cart{OrderAmount: decimal.NewFromInt(100)})
	require.NoError(t, err)
	require.Len(t, d.Automatic, 1)
	assert.Equal(t, "GOOD", d.Automatic[0].Rule.Code)
	assert.Empty(t, repo.markExpiredID, "bulk reads must not persist expiry")
}

func TestResolve_AutomaticSkipsBelowMinimum(t *testing.T) {
	gated := *activeRule("GATED")
	gated.Automatic = true
	gated.Target = TargetCategories
	gated.Categories = []string{"gpu"}
	gated.MinOrderAmount = decimal.NewFromInt(1000)

	r := newTestResolver(&mockRuleRepo{automatic: []Rule{gated}})

	d, err := r.ResolveAutomatic(context.Background(), Cart{
		Items: []LineItem{{ProductID: "p1", Category: "gpu", UnitPrice: decimal.NewFromInt(500), Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Empty(t, d.Automatic)
	assert.True(t, decimal.Zero.Equal(d.AutomaticAmount))
}

func TestResolveAutomatic_NoCandidates(t *testing.T) {
	r := newTestResolver(&mockRuleRepo{})

	d, err := r.ResolveAutomatic(context.Background(), Cart{OrderAmount: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.Equal(t, WinnerAutomatic, d.Winner)
	assert.True(t, decimal.Zero.Equal(d.TotalAmount))
	assert.Nil(t, d.ManualRule)
}

func TestResolveAutomatic_RepoError(t *testing.T) {
	r := newTestResolver(&mockRuleRepo{automaticErr: errors.New("connection refused")})

	_, err := r.ResolveAutomatic(context.Background(), Cart{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch automatic rules")
}
