package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/partsdepot/pricing-engine/internal/domain/discount"
)

const ruleColumns = `id, code, kind, amount, starts_at, ends_at, status, target_type,
	product_ids, categories, customer_ids, min_order_amount, first_purchase_only,
	automatic, description, usage_count, total_savings`

const (
	findRuleByCodeSQL = `SELECT ` + ruleColumns + `
		FROM discount_rules WHERE UPPER(code) = UPPER($1)`

	findAutomaticActiveSQL = `SELECT ` + ruleColumns + `
		FROM discount_rules
		WHERE automatic = TRUE AND status = 'active'
		  AND starts_at <= $1 AND ends_at >= $1`

	markRuleExpiredSQL = `UPDATE discount_rules SET status = 'expired'
		WHERE id = $1 AND status <> 'inactive'`

	// Single-statement read-modify-write: concurrent checkouts applying the
	// same rule cannot lose an increment.
	recordRuleUsageSQL = `UPDATE discount_rules
		SET usage_count = usage_count + 1, total_savings = total_savings + $2
		WHERE id = $1
		RETURNING ` + ruleColumns

	insertRuleSQL = `INSERT INTO discount_rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (code) DO NOTHING`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindByCode looks up a rule by its code (case-insensitive).
// Returns discount.ErrInvalidCode when no matching rule exists.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Rule, error) {
	rows, err := r.pool.Query(ctx, findRuleByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding rule by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrInvalidCode
		}
		return nil, fmt.Errorf("finding rule by code %q: %w", code, err)
	}
	return &rule, nil
}

// FindAutomaticActive returns every automatic rule whose stored status is
// active and whose window covers now.
func (r *DiscountRepository) FindAutomaticActive(ctx context.Context, now time.Time) ([]discount.Rule, error) {
	rows, err := r.pool.Query(ctx, findAutomaticActiveSQL, now)
	if err != nil {
		return nil, fmt.Errorf("finding automatic rules: %w", err)
	}

	rules, err := pgx.CollectRows(rows, scanRule)
	if err != nil {
		return nil, fmt.Errorf("finding automatic rules: %w", err)
	}
	return rules, nil
}

// MarkExpired persists the derived expired status for a rule. Inactive rules
// are left untouched: expiry never overrides an administrative disable.
func (r *DiscountRepository) MarkExpired(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, markRuleExpiredSQL, id)
	if err != nil {
		return fmt.Errorf("marking rule %q expired: %w", id, err)
	}
	return nil
}

// RecordUsage atomically increments the rule's usage counters against the
// currently persisted values and returns the updated rule.
func (r *DiscountRepository) RecordUsage(ctx context.Context, id string, savings decimal.Decimal) (*discount.Rule, error) {
	rows, err := r.pool.Query(ctx, recordRuleUsageSQL, id, savings)
	if err != nil {
		return nil, fmt.Errorf("recording usage for rule %q: %w", id, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanRule)
	if err != nil {
		return nil, fmt.Errorf("recording usage for rule %q: %w", id, err)
	}
	return &rule, nil
}

// Create inserts a rule, ignoring duplicates by code. Used by seed and
// ingest tooling.
func (r *DiscountRepository) Create(ctx context.Context, rule *discount.Rule) error {
	_, err := r.pool.Exec(ctx, insertRuleSQL,
		rule.ID, rule.Code, string(rule.Kind), rule.Amount,
		rule.StartsAt, rule.EndsAt, string(rule.StoredStatus), string(rule.Target),
		rule.ProductIDs, rule.Categories, rule.CustomerIDs,
		rule.MinOrderAmount, rule.FirstPurchaseOnly, rule.Automatic,
		rule.Description, rule.UsageCount, rule.TotalSavings,
	)
	if err != nil {
		return fmt.Errorf("creating rule %q: %w", rule.Code, err)
	}
	return nil
}

func scanRule(row pgx.CollectableRow) (discount.Rule, error) {
	var (
		rule       discount.Rule
		kind       string
		status     string
		targetType string
	)
	err := row.Scan(
		&rule.ID, &rule.Code, &kind, &rule.Amount,
		&rule.StartsAt, &rule.EndsAt, &status, &targetType,
		&rule.ProductIDs, &rule.Categories, &rule.CustomerIDs,
		&rule.MinOrderAmount, &rule.FirstPurchaseOnly,
		&rule.Automatic, &rule.Description,
		&rule.UsageCount, &rule.TotalSavings,
	)
	rule.Kind = discount.Kind(kind)
	rule.StoredStatus = discount.Status(status)
	rule.Target = discount.TargetType(targetType)
	return rule, err
}
