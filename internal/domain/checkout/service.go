package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/craftpc/storefront/internal/domain/coupon"
	"github.com/craftpc/storefront/internal/domain/product"
	"github.com/craftpc/storefront/internal/payment"
)

// Service converts a cart (or single buy-now line) into a priced order
// summary and submits it to the payment gateway.
type Service struct {
	products product.Repository
	engine   *coupon.Engine
	gateway  Gateway
	orders   OrderRecorder
	carts    Carts
	currency string
	lg       *zap.Logger
}

// NewService creates a checkout Service. Currency is the store's single
// settlement currency for gateway orders.
func NewService(
	products product.Repository,
	engine *coupon.Engine,
	gateway Gateway,
	orders OrderRecorder,
	carts Carts,
	currency string,
	lg *zap.Logger,
) *Service {
	return &Service{
		products: products,
		engine:   engine,
		gateway:  gateway,
		orders:   orders,
		carts:    carts,
		currency: currency,
		lg:       lg,
	}
}

// BuildCartSummary prices the session's current cart as of the given date.
func (s *Service) BuildCartSummary(ctx context.Context, sessionID string, asOf time.Time) (*OrderSummary, error) {
	snap := s.carts.Snapshot(ctx, sessionID)
	lines := make([]Line, len(snap.Items))
	for i, item := range snap.Items {
		lines[i] = Line{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return s.BuildOrderSummary(ctx, lines, asOf)
}

// BuildOrderSummary resolves each line's discount, validates quantity and
// stock, and computes the subtotal. An empty input fails with ErrEmptyCart.
func (s *Service) BuildOrderSummary(ctx context.Context, lines []Line, asOf time.Time) (*OrderSummary, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]string, len(lines))
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID}
		}
		ids[i] = line.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	summary := &OrderSummary{
		Lines:    make([]SummaryLine, 0, len(lines)),
		Subtotal: decimal.Zero,
		Currency: s.currency,
	}
	for _, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		if !p.Visible {
			return nil, &ProductUnavailableError{ProductID: line.ProductID}
		}
		if line.Quantity > p.Stock {
			return nil, &InsufficientStockError{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: p.Stock,
			}
		}

		unitPrice := p.SellingPrice
		code := ""
		rule := s.engine.Resolve(coupon.Line{
			Custom: p.BuildType == product.BuildCustom,
			Family: p.BuildFamily,
		}, asOf)
		if rule != nil {
			unitPrice, err = coupon.Discounted(p.SellingPrice, rule.Percent)
			if err != nil {
				return nil, err
			}
			code = rule.Code
		}

		summary.Lines = append(summary.Lines, SummaryLine{
			Product:    p,
			Quantity:   line.Quantity,
			UnitPrice:  unitPrice,
			CouponCode: code,
		})
		qty := decimal.NewFromInt(int64(line.Quantity))
		summary.Subtotal = summary.Subtotal.Add(unitPrice.Mul(qty))
	}

	summary.Subtotal = summary.Subtotal.Round(2)
	return summary, nil
}

// SubmitForPayment converts the subtotal to minor units and requests a
// gateway order under a fresh receipt. The cart is untouched here; clearing
// happens in ConfirmPayment once the caller has a confirmed payment.
func (s *Service) SubmitForPayment(ctx context.Context, summary *OrderSummary) (*payment.GatewayOrder, error) {
	if summary == nil || len(summary.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	amountMinor := payment.MinorUnits(summary.Subtotal, summary.Currency)
	receipt := NewReceipt()

	order, err := s.gateway.CreateOrder(ctx, amountMinor, summary.Currency, receipt)
	if err != nil {
		return nil, err
	}

	// Recording the order enables the local refund-amount check. The
	// gateway order already exists, so a storage failure is logged rather
	// than failing the checkout.
	if err := s.orders.SaveOrder(ctx, order); err != nil {
		s.lg.Warn("record gateway order",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
	return order, nil
}

// SubmitAmount requests a gateway order for a bare major-unit amount, for
// payment flows that arrive with a precomputed total. Conversion to minor
// units and receipt generation match SubmitForPayment.
func (s *Service) SubmitAmount(ctx context.Context, amount decimal.Decimal, currency string) (*payment.GatewayOrder, error) {
	if currency == "" {
		currency = s.currency
	}
	amountMinor := payment.MinorUnits(amount, currency)
	receipt := NewReceipt()

	order, err := s.gateway.CreateOrder(ctx, amountMinor, currency, receipt)
	if err != nil {
		return nil, err
	}
	if err := s.orders.SaveOrder(ctx, order); err != nil {
		s.lg.Warn("record gateway order",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
	return order, nil
}

// ConfirmPayment clears the session cart after a confirmed payment.
func (s *Service) ConfirmPayment(ctx context.Context, sessionID string) {
	s.carts.Clear(ctx, sessionID)
}

// NewReceipt returns a receipt identifier that is unique per attempt:
// time-ordered nanoseconds plus a random suffix, so concurrent attempts
// cannot collide the way a single low-entropy draw can.
func NewReceipt() string {
	return fmt.Sprintf("rcpt_%d_%s", time.Now().UnixNano(), uuid.NewString()[:8])
}
