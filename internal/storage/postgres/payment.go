package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftpc/storefront/internal/domain/checkout"
	"github.com/craftpc/storefront/internal/payment"
	"github.com/craftpc/storefront/internal/refund"
)

const (
	saveGatewayOrderSQL = `INSERT INTO gateway_orders (id, receipt, amount_minor, currency, status)
		VALUES ($1, $2, $3, $4, $5)`

	capturedAmountSQL = `SELECT amount_minor FROM gateway_orders WHERE id = $1`

	saveRefundSQL = `INSERT INTO refunds (id, order_id, payment_id, amount_minor, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

var (
	_ checkout.OrderRecorder = (*PaymentRepository)(nil)
	_ refund.CapturedAmounts = (*PaymentRepository)(nil)
	_ refund.Recorder        = (*PaymentRepository)(nil)
)

// PaymentRepository records gateway orders and refunds. The gateway owns
// the order lifecycle; rows here are never updated after insert.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// SaveOrder records a created gateway order.
func (r *PaymentRepository) SaveOrder(ctx context.Context, order *payment.GatewayOrder) error {
	_, err := r.pool.Exec(ctx, saveGatewayOrderSQL,
		order.ID, order.Receipt, order.AmountMinor, order.Currency, order.Status)
	if err != nil {
		return fmt.Errorf("saving gateway order %q: %w", order.ID, err)
	}
	return nil
}

// CapturedAmount returns the original minor-unit amount for a recorded
// gateway order; the second return is false when the order is unknown.
func (r *PaymentRepository) CapturedAmount(ctx context.Context, orderID string) (int64, bool, error) {
	var amount int64
	err := r.pool.QueryRow(ctx, capturedAmountSQL, orderID).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("looking up gateway order %q: %w", orderID, err)
	}
	return amount, true, nil
}

// SaveRefund records a completed refund. The original order id is kept in
// notes for reconciliation, mirroring what was sent to the processor.
func (r *PaymentRepository) SaveRefund(ctx context.Context, record *payment.RefundRecord) error {
	orderID := ""
	if n := record.Notes; len(n) > len("order:") && n[:len("order:")] == "order:" {
		orderID = n[len("order:"):]
	}
	_, err := r.pool.Exec(ctx, saveRefundSQL,
		record.ID, orderID, record.PaymentID, record.AmountMinor, record.Status, record.Notes)
	if err != nil {
		return fmt.Errorf("saving refund %q: %w", record.ID, err)
	}
	return nil
}
