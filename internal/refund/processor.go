// Package refund implements the admin-facing refund pipeline: a single
// attempt walks Received → Validated → Submitted → Completed | Failed,
// failing closed before any network call when the request is incomplete.
package refund

import (
	"context"

	"go.uber.org/zap"

	"github.com/craftpc/storefront/internal/payment"
)

// State is the position of a refund attempt in its lifecycle.
type State string

const (
	StateReceived  State = "received"
	StateValidated State = "validated"
	StateSubmitted State = "submitted"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Request is an admin's refund order: the gateway order, the captured
// payment, and the amount to reverse in minor units.
type Request struct {
	OrderID     string
	PaymentID   string
	AmountMinor int64
}

// Result reports the terminal state of an attempt and, on completion, the
// processor's refund record.
type Result struct {
	State  State
	Record *payment.RefundRecord
}

// Gateway is the slice of the payment adapter the processor needs.
type Gateway interface {
	IssueRefund(ctx context.Context, req payment.RefundRequest) (*payment.RefundRecord, error)
}

// CapturedAmounts looks up the original amount for a recorded gateway
// order. The second return is false when the order is not on record, in
// which case amount validation is delegated to the processor.
type CapturedAmounts interface {
	CapturedAmount(ctx context.Context, orderID string) (int64, bool, error)
}

// Recorder persists completed and failed refund attempts.
type Recorder interface {
	SaveRefund(ctx context.Context, record *payment.RefundRecord) error
}

// Processor executes refund attempts against the payment gateway.
type Processor struct {
	gateway Gateway
	orders  CapturedAmounts
	records Recorder
	lg      *zap.Logger
}

// NewProcessor creates a refund Processor.
func NewProcessor(gateway Gateway, orders CapturedAmounts, records Recorder, lg *zap.Logger) *Processor {
	return &Processor{
		gateway: gateway,
		orders:  orders,
		records: records,
		lg:      lg,
	}
}

// Refund runs one refund attempt to a terminal state. Validation failures
// are terminal before any network call; gateway failures surface to the
// caller with no automatic retry and no partial-refund inference.
func (p *Processor) Refund(ctx context.Context, req Request) (*Result, error) {
	// Received → Validated: every field present, amount within the
	// captured amount when the original order is on record.
	if err := p.validate(ctx, req); err != nil {
		return &Result{State: StateFailed}, err
	}

	// Validated → Submitted.
	record, err := p.gateway.IssueRefund(ctx, payment.RefundRequest{
		OrderID:     req.OrderID,
		PaymentID:   req.PaymentID,
		AmountMinor: req.AmountMinor,
	})
	if err != nil {
		// Submitted → Failed: error detail goes to the admin caller.
		p.lg.Error("refund submission failed",
			zap.String("order_id", req.OrderID),
			zap.String("payment_id", req.PaymentID),
			zap.Error(err),
		)
		return &Result{State: StateFailed}, err
	}

	// Submitted → Completed.
	record.Status = string(StateCompleted)
	if err := p.records.SaveRefund(ctx, record); err != nil {
		p.lg.Warn("record refund",
			zap.String("refund_id", record.ID),
			zap.Error(err),
		)
	}
	return &Result{State: StateCompleted, Record: record}, nil
}

func (p *Processor) validate(ctx context.Context, req Request) error {
	if req.OrderID == "" {
		return &payment.ValidationError{Field: "order_id"}
	}
	if req.PaymentID == "" {
		return &payment.ValidationError{Field: "payment_id"}
	}
	if req.AmountMinor <= 0 {
		return &payment.ValidationError{Field: "amount"}
	}

	captured, known, err := p.orders.CapturedAmount(ctx, req.OrderID)
	if err != nil {
		// Lookup trouble is not grounds to block the refund; the
		// processor enforces the captured amount authoritatively.
		p.lg.Warn("captured amount lookup failed",
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
		return nil
	}
	if known && req.AmountMinor > captured {
		return &payment.ValidationError{Field: "amount"}
	}
	return nil
}
