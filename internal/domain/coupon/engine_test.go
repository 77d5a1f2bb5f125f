package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var checkoutDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func activeRule(code string, scope Scope, percent int64) Rule {
	return Rule{
		Code:      code,
		Scope:     scope,
		Percent:   decimal.NewFromInt(percent),
		ValidFrom: checkoutDate.Add(-24 * time.Hour),
	}
}

func TestEngine_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		rules    []Rule
		line     Line
		wantCode string
	}{
		{
			name: "category-wide rule matches any custom line",
			rules: []Rule{
				activeRule("CUSTOM10", Scope{Kind: ScopeAllCustom}, 10),
			},
			line:     Line{Custom: true, Family: "amd"},
			wantCode: "CUSTOM10",
		},
		{
			name: "family rule wins over category-wide rule",
			rules: []Rule{
				activeRule("CUSTOM10", Scope{Kind: ScopeAllCustom}, 10),
				activeRule("INTEL15", Scope{Kind: ScopeCustomFamily, Family: "intel"}, 15),
			},
			line:     Line{Custom: true, Family: "intel"},
			wantCode: "INTEL15",
		},
		{
			name: "broader rule registered later does not override family rule",
			rules: []Rule{
				activeRule("INTEL15", Scope{Kind: ScopeCustomFamily, Family: "intel"}, 15),
				activeRule("CUSTOM10", Scope{Kind: ScopeAllCustom}, 10),
			},
			line:     Line{Custom: true, Family: "intel"},
			wantCode: "INTEL15",
		},
		{
			name: "prebuild family rule does not match custom line",
			rules: []Rule{
				activeRule("AMDPRE20", Scope{Kind: ScopePrebuildFamily, Family: "amd"}, 20),
			},
			line:     Line{Custom: true, Family: "amd"},
			wantCode: "",
		},
		{
			name: "prebuild family rule matches its family",
			rules: []Rule{
				activeRule("AMDPRE20", Scope{Kind: ScopePrebuildFamily, Family: "amd"}, 20),
			},
			line:     Line{Custom: false, Family: "AMD"},
			wantCode: "AMDPRE20",
		},
		{
			name: "rule not yet valid is absent",
			rules: []Rule{
				{
					Code:      "FUTURE",
					Scope:     Scope{Kind: ScopeAllCustom},
					Percent:   decimal.NewFromInt(25),
					ValidFrom: checkoutDate.Add(48 * time.Hour),
				},
			},
			line:     Line{Custom: true},
			wantCode: "",
		},
		{
			name: "rule with zero date is inert",
			rules: []Rule{
				{
					Code:    "NODATE",
					Scope:   Scope{Kind: ScopeAllCustom},
					Percent: decimal.NewFromInt(25),
				},
			},
			line:     Line{Custom: true},
			wantCode: "",
		},
		{
			name: "rule with empty code is inert",
			rules: []Rule{
				{
					Scope:     Scope{Kind: ScopeAllCustom},
					Percent:   decimal.NewFromInt(25),
					ValidFrom: checkoutDate.Add(-time.Hour),
				},
			},
			line:     Line{Custom: true},
			wantCode: "",
		},
		{
			name: "rule with zero percent is inert",
			rules: []Rule{
				activeRule("ZERO", Scope{Kind: ScopeAllCustom}, 0),
			},
			line:     Line{Custom: true},
			wantCode: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(tt.rules...)
			rule := engine.Resolve(tt.line, checkoutDate)
			if tt.wantCode == "" {
				assert.Nil(t, rule)
				return
			}
			require.NotNil(t, rule)
			assert.Equal(t, tt.wantCode, rule.Code)
		})
	}
}

func TestDiscounted(t *testing.T) {
	tests := []struct {
		name    string
		price   string
		percent string
		want    string
		wantErr bool
	}{
		{name: "fifteen percent off", price: "999.00", percent: "15", want: "849.15"},
		{name: "rounds half up", price: "99.90", percent: "15", want: "84.92"},
		{name: "zero percent keeps price", price: "50.00", percent: "0", want: "50.00"},
		{name: "full discount", price: "50.00", percent: "100", want: "0.00"},
		{name: "negative percent rejected", price: "50.00", percent: "-5", wantErr: true},
		{name: "over hundred rejected", price: "50.00", percent: "100.01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Discounted(
				decimal.RequireFromString(tt.price),
				decimal.RequireFromString(tt.percent),
			)
			if tt.wantErr {
				var rangeErr *PercentRangeError
				require.ErrorAs(t, err, &rangeErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
			assert.True(t, got.LessThanOrEqual(decimal.RequireFromString(tt.price)))
		})
	}
}

type mockCodeFinder struct {
	calls int
	rule  *Rule
	err   error
}

func (m *mockCodeFinder) FindByCode(_ context.Context, _ string) (*Rule, error) {
	m.calls++
	return m.rule, m.err
}

func TestCodeGuard(t *testing.T) {
	ctx := context.Background()
	known := activeRule("INTEL15", Scope{Kind: ScopeCustomFamily, Family: "intel"}, 15)

	t.Run("unknown code never reaches repository", func(t *testing.T) {
		repo := &mockCodeFinder{rule: &known}
		guard := NewCodeGuard([]string{"INTEL15"}, repo)

		_, err := guard.FindByCode(ctx, "DEFINITELY-NOT-A-CODE")
		require.ErrorIs(t, err, ErrInvalidCoupon)
		assert.Zero(t, repo.calls)
	})

	t.Run("known code delegates to repository", func(t *testing.T) {
		repo := &mockCodeFinder{rule: &known}
		guard := NewCodeGuard([]string{"INTEL15"}, repo)

		rule, err := guard.FindByCode(ctx, "INTEL15")
		require.NoError(t, err)
		assert.Equal(t, "INTEL15", rule.Code)
		assert.Equal(t, 1, repo.calls)
	})
}
