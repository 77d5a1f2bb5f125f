package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidCoupon is returned when a coupon code is not found or is not
// currently applicable.
var ErrInvalidCoupon = errors.New("invalid coupon code")

// ScopeKind selects which product lines a rule applies to.
type ScopeKind string

const (
	// ScopeAllCustom matches every custom-build line regardless of family.
	ScopeAllCustom ScopeKind = "all_custom"
	// ScopeCustomFamily matches custom-build lines of one build family.
	ScopeCustomFamily ScopeKind = "custom_family"
	// ScopePrebuildFamily matches pre-build lines of one family (Intel, AMD).
	ScopePrebuildFamily ScopeKind = "prebuild_family"
)

// Scope is a rule's selector: a kind plus, for family-scoped kinds, the
// build family it targets.
type Scope struct {
	Kind   ScopeKind
	Family string
}

// Rule is a percentage discount applied to the selling price of matching
// lines. A rule only applies on or after ValidFrom; a zero ValidFrom or an
// empty code/percent makes the rule inert.
type Rule struct {
	Code        string
	Scope       Scope
	Percent     decimal.Decimal
	ValidFrom   time.Time
	Description string
}

// Line describes a cart line for scope matching.
type Line struct {
	Custom bool
	Family string
}

// Repository provides persisted coupon rules.
type Repository interface {
	ListRules(ctx context.Context) ([]Rule, error)
	FindByCode(ctx context.Context, code string) (*Rule, error)
	ListCodes(ctx context.Context) ([]string, error)
}

// PercentRangeError indicates a discount percentage outside [0, 100].
type PercentRangeError struct {
	Percent decimal.Decimal
}

func (e *PercentRangeError) Error() string {
	return fmt.Sprintf("discount percent %s out of range [0, 100]", e.Percent)
}
