package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:   baseURL,
		KeyID:     "key_test",
		KeySecret: "secret_test",
	}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://gateway", KeySecret: "s"}, zap.NewNop())
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://gateway", KeyID: "k"}, zap.NewNop())
	require.Error(t, err)
}

func TestCreateOrder(t *testing.T) {
	var orderSeq atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key_test", user)
		assert.Equal(t, "secret_test", pass)

		n := orderSeq.Add(1)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"id":"order_%d","amount":84915,"currency":"INR","status":"created"}`, n)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	order, err := client.CreateOrder(context.Background(), 84915, "INR", "rcpt_1")
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, int64(84915), order.AmountMinor)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "rcpt_1", order.Receipt)

	// The adapter performs no deduplication: a second submission with a
	// different receipt yields a second distinct order.
	second, err := client.CreateOrder(context.Background(), 84915, "INR", "rcpt_2")
	require.NoError(t, err)
	assert.NotEqual(t, order.ID, second.ID)
}

func TestCreateOrder_GatewayRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":"BAD_REQUEST_ERROR","description":"currency is not supported"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.CreateOrder(context.Background(), 100, "XXX", "rcpt_1")
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	// Raw processor payload stays in Detail for logs, not in the message.
	assert.NotContains(t, gwErr.Error(), "BAD_REQUEST_ERROR")
}

func TestIssueRefund_ValidationBeforeNetwork(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	tests := []struct {
		name      string
		req       RefundRequest
		wantField string
	}{
		{
			name:      "missing order id",
			req:       RefundRequest{PaymentID: "pay_1", AmountMinor: 500},
			wantField: "order_id",
		},
		{
			name:      "missing payment id",
			req:       RefundRequest{OrderID: "order_1", AmountMinor: 500},
			wantField: "payment_id",
		},
		{
			name:      "non-positive amount",
			req:       RefundRequest{OrderID: "order_1", PaymentID: "pay_1"},
			wantField: "amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.IssueRefund(context.Background(), tt.req)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
	assert.Zero(t, calls.Load(), "validation failures must not reach the gateway")
}

func TestIssueRefund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/pay_1/refund", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"id":"rfnd_1","payment_id":"pay_1","amount":500,"status":"processed"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	record, err := client.IssueRefund(context.Background(), RefundRequest{
		OrderID:     "order_1",
		PaymentID:   "pay_1",
		AmountMinor: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", record.ID)
	assert.Equal(t, "pay_1", record.PaymentID)
	assert.Equal(t, int64(500), record.AmountMinor)
	assert.Contains(t, record.Notes, "order_1")
}

func TestIssueRefund_GatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"description":"payment already fully refunded"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.IssueRefund(context.Background(), RefundRequest{
		OrderID:     "order_1",
		PaymentID:   "pay_1",
		AmountMinor: 500,
	})
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusInternalServerError, gwErr.StatusCode)
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     int64
	}{
		{amount: "849.15", currency: "INR", want: 84915},
		{amount: "10.00", currency: "USD", want: 1000},
		{amount: "10.005", currency: "USD", want: 1001},
		{amount: "1500", currency: "JPY", want: 1500},
	}
	for _, tt := range tests {
		got := MinorUnits(decimal.RequireFromString(tt.amount), tt.currency)
		assert.Equal(t, tt.want, got, "%s %s", tt.amount, tt.currency)
	}
}
