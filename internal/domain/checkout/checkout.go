package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/craftpc/storefront/internal/domain/cart"
	"github.com/craftpc/storefront/internal/domain/product"
	"github.com/craftpc/storefront/internal/payment"
)

// ErrEmptyCart is returned when a summary is requested for a cart with no
// lines.
var ErrEmptyCart = errors.New("cart is empty")

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// ProductUnavailableError indicates a product hidden from sale was
// requested at checkout.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available for purchase", e.ProductID)
}

// InvalidQuantityError indicates a line with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError indicates a line quantity above available stock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s: requested %d, only %d in stock",
		e.ProductID, e.Requested, e.Available)
}

// Line is one requested product and quantity, from either the session
// cart or a single-item buy-now flow.
type Line struct {
	ProductID string
	Quantity  int
}

// SummaryLine is a priced line: the product, the quantity, the unit price
// after any discount, and the code of the rule that produced it.
type SummaryLine struct {
	Product    product.Product
	Quantity   int
	UnitPrice  decimal.Decimal
	CouponCode string
}

// OrderSummary is the priced result of a checkout: discounted lines, the
// computed subtotal, and the currency the gateway order will carry.
type OrderSummary struct {
	Lines    []SummaryLine
	Subtotal decimal.Decimal
	Currency string
}

// Gateway is the slice of the payment adapter checkout needs.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*payment.GatewayOrder, error)
}

// OrderRecorder persists created gateway orders so refunds can validate
// against the captured amount later.
type OrderRecorder interface {
	SaveOrder(ctx context.Context, order *payment.GatewayOrder) error
}

// Carts is the slice of the cart store checkout needs.
type Carts interface {
	Snapshot(ctx context.Context, sessionID string) cart.Snapshot
	Clear(ctx context.Context, sessionID string)
}
