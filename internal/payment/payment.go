package payment

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GatewayOrder is the processor's record for a created order. The core
// never mutates it after creation; capture and failure belong to the
// processor's own lifecycle.
type GatewayOrder struct {
	ID          string
	Receipt     string
	AmountMinor int64
	Currency    string
	Status      string
}

// RefundRecord is the processor's record for an issued refund.
type RefundRecord struct {
	ID          string
	PaymentID   string
	AmountMinor int64
	Status      string
	Notes       string
}

// RefundRequest carries the identifiers and amount for a refund. The
// original order id travels to the processor as notes metadata for
// reconciliation.
type RefundRequest struct {
	OrderID     string
	PaymentID   string
	AmountMinor int64
}

// ValidationError reports a caller-supplied field that failed a
// precondition before any network call was made.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid field: %s", e.Field)
}

// GatewayError reports a processor-side rejection or transport failure.
// Detail carries the raw processor payload for logging; callers surface
// only a generic message.
type GatewayError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("payment gateway: %s failed with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("payment gateway: %s failed", e.Op)
}

// zeroDecimalCurrencies have no minor unit; everything else uses a factor
// of 100 (cents, paise).
var zeroDecimalCurrencies = map[string]struct{}{
	"JPY": {},
	"KRW": {},
	"VND": {},
}

// MinorUnits converts a major-unit amount to the processor's minor-unit
// integer representation.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	if _, ok := zeroDecimalCurrencies[currency]; ok {
		return amount.Round(0).IntPart()
	}
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
