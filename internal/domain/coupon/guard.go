package coupon

import (
	"context"

	"github.com/bits-and-blooms/bloom/v3"
)

const guardFPR = 0.001

// codeFinder is the slice of Repository the guard fronts.
type codeFinder interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}

// CodeGuard fronts coupon-code lookups with a bloom filter built from the
// known code set. Codes definitely not in the set are rejected without a
// storage round trip; false positives fall through to the repository,
// which gives the authoritative answer.
type CodeGuard struct {
	filter *bloom.BloomFilter
	repo   codeFinder
}

// NewCodeGuard builds a CodeGuard over the given known codes.
func NewCodeGuard(codes []string, repo codeFinder) *CodeGuard {
	n := uint(len(codes))
	if n == 0 {
		n = 1
	}
	filter := bloom.NewWithEstimates(n, guardFPR)
	for _, code := range codes {
		filter.AddString(code)
	}
	return &CodeGuard{filter: filter, repo: repo}
}

// FindByCode resolves a coupon code, short-circuiting to ErrInvalidCoupon
// when the bloom filter rules the code out.
func (g *CodeGuard) FindByCode(ctx context.Context, code string) (*Rule, error) {
	if !g.filter.TestString(code) {
		return nil, ErrInvalidCoupon
	}
	return g.repo.FindByCode(ctx, code)
}
