package coupon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Engine resolves the discount rule applicable to a cart line on a given
// date. Rules are fixed at construction; the engine itself is read-only
// and safe for concurrent use.
type Engine struct {
	rules []Rule
}

// NewEngine creates an Engine over the given rules.
func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// Resolve returns the rule applicable to line as of asOf, or nil when no
// rule applies. A family-scoped rule always wins over a category-wide
// one, regardless of registration order; rules of equal specificity
// resolve to the first registered.
func (e *Engine) Resolve(line Line, asOf time.Time) *Rule {
	var broad, narrow *Rule
	for i := range e.rules {
		r := &e.rules[i]
		if !r.applicable(asOf) || !r.matches(line) {
			continue
		}
		if r.Scope.Kind == ScopeAllCustom {
			if broad == nil {
				broad = r
			}
			continue
		}
		if narrow == nil {
			narrow = r
		}
	}
	if narrow != nil {
		return narrow
	}
	return broad
}

// applicable reports whether the rule is live as of the given date. A rule
// with an empty code, unset percent, or zero date never applies.
func (r *Rule) applicable(asOf time.Time) bool {
	if r.Code == "" || r.Percent.IsZero() || r.ValidFrom.IsZero() {
		return false
	}
	return !asOf.Before(r.ValidFrom)
}

// matches reports whether the rule's scope selects the given line.
func (r *Rule) matches(line Line) bool {
	switch r.Scope.Kind {
	case ScopeAllCustom:
		return line.Custom
	case ScopeCustomFamily:
		return line.Custom && strings.EqualFold(r.Scope.Family, line.Family)
	case ScopePrebuildFamily:
		return !line.Custom && strings.EqualFold(r.Scope.Family, line.Family)
	default:
		return false
	}
}

// Discounted applies a percentage discount to the selling price and
// rounds half-up to two decimal places. The percentage must be within
// [0, 100]; anything else fails with PercentRangeError.
func Discounted(sellingPrice, percent decimal.Decimal) (decimal.Decimal, error) {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return decimal.Zero, &PercentRangeError{Percent: percent}
	}
	price := sellingPrice.Mul(hundred.Sub(percent)).Div(hundred)
	return price.Round(2), nil
}
