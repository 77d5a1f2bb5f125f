package refund

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/craftpc/storefront/internal/payment"
)

type mockGateway struct {
	calls int
	last  payment.RefundRequest
	rec   *payment.RefundRecord
	err   error
}

func (m *mockGateway) IssueRefund(_ context.Context, req payment.RefundRequest) (*payment.RefundRecord, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.rec, nil
}

type mockOrders struct {
	captured map[string]int64
	err      error
}

func (m *mockOrders) CapturedAmount(_ context.Context, orderID string) (int64, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	amount, ok := m.captured[orderID]
	return amount, ok, nil
}

type mockRecorder struct {
	saved []*payment.RefundRecord
}

func (m *mockRecorder) SaveRefund(_ context.Context, record *payment.RefundRecord) error {
	m.saved = append(m.saved, record)
	return nil
}

func newProcessor(gw *mockGateway, orders *mockOrders, rec *mockRecorder) *Processor {
	if orders == nil {
		orders = &mockOrders{}
	}
	if rec == nil {
		rec = &mockRecorder{}
	}
	return NewProcessor(gw, orders, rec, zap.NewNop())
}

func TestRefund_MissingFieldFailsClosed(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		wantField string
	}{
		{
			name:      "missing order id",
			req:       Request{PaymentID: "pay_1", AmountMinor: 500},
			wantField: "order_id",
		},
		{
			name:      "missing payment id",
			req:       Request{OrderID: "order_1", AmountMinor: 500},
			wantField: "payment_id",
		},
		{
			name:      "missing amount",
			req:       Request{OrderID: "order_1", PaymentID: "pay_1"},
			wantField: "amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockGateway{}
			proc := newProcessor(gw, nil, nil)

			result, err := proc.Refund(context.Background(), tt.req)
			var vErr *payment.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
			assert.Equal(t, StateFailed, result.State)
			assert.Zero(t, gw.calls, "validation failure must not reach the gateway")
		})
	}
}

func TestRefund_Completes(t *testing.T) {
	gw := &mockGateway{rec: &payment.RefundRecord{
		ID:          "rfnd_1",
		PaymentID:   "pay_1",
		AmountMinor: 500,
	}}
	rec := &mockRecorder{}
	proc := newProcessor(gw, nil, rec)

	result, err := proc.Refund(context.Background(), Request{
		OrderID:     "order_1",
		PaymentID:   "pay_1",
		AmountMinor: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, string(StateCompleted), result.Record.Status)
	assert.Equal(t, int64(500), result.Record.AmountMinor)
	assert.Equal(t, "order_1", gw.last.OrderID)
	require.Len(t, rec.saved, 1)
}

func TestRefund_AmountAboveCapturedFailsLocally(t *testing.T) {
	gw := &mockGateway{}
	orders := &mockOrders{captured: map[string]int64{"order_1": 400}}
	proc := newProcessor(gw, orders, nil)

	result, err := proc.Refund(context.Background(), Request{
		OrderID:     "order_1",
		PaymentID:   "pay_1",
		AmountMinor: 500,
	})
	var vErr *payment.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "amount", vErr.Field)
	assert.Equal(t, StateFailed, result.State)
	assert.Zero(t, gw.calls)
}

func TestRefund_UnknownOrderDelegatesAmountCheck(t *testing.T) {
	gw := &mockGateway{rec: &payment.RefundRecord{ID: "rfnd_1", PaymentID: "pay_1", AmountMinor: 500}}
	proc := newProcessor(gw, &mockOrders{}, nil)

	result, err := proc.Refund(context.Background(), Request{
		OrderID:     "order_unrecorded",
		PaymentID:   "pay_1",
		AmountMinor: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, 1, gw.calls)
}

func TestRefund_GatewayFailureIsTerminal(t *testing.T) {
	gwErr := &payment.GatewayError{Op: "refund", StatusCode: 500, Detail: "already refunded"}
	gw := &mockGateway{err: gwErr}
	rec := &mockRecorder{}
	proc := newProcessor(gw, nil, rec)

	result, err := proc.Refund(context.Background(), Request{
		OrderID:     "order_1",
		PaymentID:   "pay_1",
		AmountMinor: 500,
	})
	var got *payment.GatewayError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, 1, gw.calls, "no automatic retry")
	assert.Empty(t, rec.saved)
}
