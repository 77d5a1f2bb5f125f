// Package handler exposes the storefront HTTP API: catalog reads, cart
// mutations, checkout, payment, and the admin refund endpoint.
package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/craftpc/storefront/internal/domain/cart"
	"github.com/craftpc/storefront/internal/domain/checkout"
	"github.com/craftpc/storefront/internal/domain/coupon"
	"github.com/craftpc/storefront/internal/domain/product"
	"github.com/craftpc/storefront/internal/refund"
)

const maxBodyBytes = 1 << 20

// CouponFinder resolves customer-entered coupon codes; in production it is
// the bloom-guarded repository.
type CouponFinder interface {
	FindByCode(ctx context.Context, code string) (*coupon.Rule, error)
}

// Handler holds the domain dependencies behind the HTTP surface.
type Handler struct {
	products product.Repository
	carts    *cart.Store
	checkout *checkout.Service
	refunds  *refund.Processor
	coupons  CouponFinder
	now      func() time.Time
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	carts *cart.Store,
	checkoutSvc *checkout.Service,
	refunds *refund.Processor,
	coupons CouponFinder,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		checkout: checkoutSvc,
		refunds:  refunds,
		coupons:  coupons,
		now:      time.Now,
	}
}

// Routes returns the API mux. Admin routes are wrapped in AdminOnly once,
// here, rather than gated inside each handler.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/search", h.searchProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PUT /api/cart/items/{id}", h.setCartItemQuantity)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.removeCartItem)
	mux.HandleFunc("POST /api/cart/coupon", h.applyCoupon)

	mux.HandleFunc("POST /api/checkout", h.checkoutCart)
	mux.HandleFunc("POST /api/checkout/confirm", h.confirmCheckout)
	mux.HandleFunc("POST /api/payment", h.createPayment)

	mux.Handle("POST /api/refund", AdminOnly(http.HandlerFunc(h.processRefund)))

	return mux
}

// readBody reads at most maxBodyBytes from the request.
func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

// writeJSON writes a JSON response built by the given encoder function.
func writeJSON(w http.ResponseWriter, status int, build func(e *jx.Encoder)) {
	var e jx.Encoder
	build(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes {"error": msg} with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}
