package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/craftpc/storefront/internal/domain/coupon"
)

const (
	listCouponRulesSQL = `SELECT code, scope_kind, scope_family, percent, valid_from, description
		FROM coupon_rules ORDER BY created_at`

	getCouponByCodeSQL = `SELECT code, scope_kind, scope_family, percent, valid_from, description
		FROM coupon_rules WHERE code = UPPER($1)`

	listCouponCodesSQL = `SELECT code FROM coupon_rules`

	upsertCouponRuleSQL = `INSERT INTO coupon_rules (code, scope_kind, scope_family, percent, valid_from, description)
		VALUES (UPPER($1), $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			scope_kind = EXCLUDED.scope_kind,
			scope_family = EXCLUDED.scope_family,
			percent = EXCLUDED.percent,
			valid_from = EXCLUDED.valid_from,
			description = EXCLUDED.description`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// ListRules returns every coupon rule in registration order. The discount
// engine is built from this set at startup.
func (r *CouponRepository) ListRules(ctx context.Context) ([]coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, listCouponRulesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupon rules: %w", err)
	}
	return pgx.CollectRows(rows, scanCouponRule)
}

// FindByCode looks up a coupon rule by its code. Codes are stored
// upper-cased. Returns coupon.ErrInvalidCoupon when no rule exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &rule, nil
}

// ListCodes returns every known coupon code, used to warm the bloom guard.
func (r *CouponRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupon codes: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var code string
		err := row.Scan(&code)
		return code, err
	})
}

// UpsertRule inserts or replaces a discount rule, used by the seed tooling.
func (r *CouponRepository) UpsertRule(ctx context.Context, rule coupon.Rule) error {
	var validFrom *time.Time
	if !rule.ValidFrom.IsZero() {
		validFrom = &rule.ValidFrom
	}
	_, err := r.pool.Exec(ctx, upsertCouponRuleSQL,
		rule.Code, rule.Scope.Kind, rule.Scope.Family, rule.Percent, validFrom, rule.Description,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon rule %q: %w", rule.Code, err)
	}
	return nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule      coupon.Rule
		kind      string
		percent   decimal.Decimal
		validFrom *time.Time
	)
	err := row.Scan(&rule.Code, &kind, &rule.Scope.Family, &percent, &validFrom, &rule.Description)
	if err != nil {
		return rule, err
	}
	rule.Scope.Kind = coupon.ScopeKind(kind)
	rule.Percent = percent
	if validFrom != nil {
		rule.ValidFrom = *validFrom
	}
	return rule, nil
}
