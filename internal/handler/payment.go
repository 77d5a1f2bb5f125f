package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/craftpc/storefront/internal/domain/checkout"
	"github.com/craftpc/storefront/internal/payment"
)

// checkoutCart prices and submits an order. With an empty body the session
// cart is checked out; a {"product_id","quantity"} body is the buy-now
// flow and bypasses the cart entirely.
func (h *Handler) checkoutCart(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	sessionID := IdentityFromContext(ctx).SessionID

	var summary *checkout.OrderSummary
	if len(body) > 0 {
		productID := ""
		quantity := 0
		d := jx.DecodeBytes(body)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "product_id":
				productID, err = d.Str()
				return err
			case "quantity":
				quantity, err = d.Int()
				return err
			default:
				return d.Skip()
			}
		}); err != nil || productID == "" {
			writeError(w, http.StatusBadRequest, "product_id is required")
			return
		}
		summary, err = h.checkout.BuildOrderSummary(ctx, []checkout.Line{
			{ProductID: productID, Quantity: quantity},
		}, h.now())
	} else {
		summary, err = h.checkout.BuildCartSummary(ctx, sessionID, h.now())
	}
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}

	order, err := h.checkout.SubmitForPayment(ctx, summary)
	if err != nil {
		zctx.From(ctx).Error("submit for payment", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create payment order")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("lines", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, line := range summary.Lines {
						e.Obj(func(e *jx.Encoder) {
							e.Field("product_id", func(e *jx.Encoder) { e.Str(line.Product.ID) })
							e.Field("name", func(e *jx.Encoder) { e.Str(line.Product.Name) })
							e.Field("quantity", func(e *jx.Encoder) { e.Int(line.Quantity) })
							e.Field("unit_price", func(e *jx.Encoder) { e.Num(jx.Num(line.UnitPrice.String())) })
							if line.CouponCode != "" {
								e.Field("coupon_code", func(e *jx.Encoder) { e.Str(line.CouponCode) })
							}
						})
					}
				})
			})
			e.Field("subtotal", func(e *jx.Encoder) { e.Num(jx.Num(summary.Subtotal.String())) })
			e.Field("currency", func(e *jx.Encoder) { e.Str(summary.Currency) })
			e.Field("order", func(e *jx.Encoder) { encodeGatewayOrder(e, order) })
		})
	})
}

// confirmCheckout acknowledges a completed payment and clears the session
// cart.
func (h *Handler) confirmCheckout(w http.ResponseWriter, r *http.Request) {
	h.checkout.ConfirmPayment(r.Context(), IdentityFromContext(r.Context()).SessionID)
	w.WriteHeader(http.StatusNoContent)
}

// createPayment opens a gateway order for a caller-supplied amount in major
// units.
func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount := decimal.Zero
	currency := ""
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "amount":
			num, err := d.Num()
			if err != nil {
				return err
			}
			amount, err = decimal.NewFromString(num.String())
			return err
		case "currency":
			currency, err = d.Str()
			return err
		default:
			return d.Skip()
		}
	}); err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be greater than 0")
		return
	}

	order, err := h.checkout.SubmitAmount(r.Context(), amount, currency)
	if err != nil {
		zctx.From(r.Context()).Error("create payment order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create payment order")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeGatewayOrder(e, order)
	})
}

func encodeGatewayOrder(e *jx.Encoder, order *payment.GatewayOrder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(order.ID) })
		e.Field("receipt", func(e *jx.Encoder) { e.Str(order.Receipt) })
		e.Field("amount_minor", func(e *jx.Encoder) { e.Int64(order.AmountMinor) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(order.Currency) })
		e.Field("status", func(e *jx.Encoder) { e.Str(order.Status) })
	})
}

// writeCheckoutError maps pricing failures to client statuses. Only the
// empty cart is a plain bad request; the rest are semantic rejections of a
// well-formed order.
func writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound    *checkout.ProductNotFoundError
		unavailable *checkout.ProductUnavailableError
		badQuantity *checkout.InvalidQuantityError
		noStock     *checkout.InsufficientStockError
	)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "cart is empty")
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.As(err, &unavailable), errors.As(err, &badQuantity), errors.As(err, &noStock):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		zctx.From(r.Context()).Error("build order summary", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to check out")
	}
}
