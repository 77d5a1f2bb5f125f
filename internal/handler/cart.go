package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/craftpc/storefront/internal/domain/coupon"
	"github.com/craftpc/storefront/internal/domain/product"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	snap := h.carts.Snapshot(r.Context(), IdentityFromContext(r.Context()).SessionID)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, item := range snap.Items {
						e.Obj(func(e *jx.Encoder) {
							e.Field("product_id", func(e *jx.Encoder) { e.Str(item.ProductID) })
							e.Field("quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
						})
					}
				})
			})
		})
	})
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID := ""
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "product_id" {
			productID, err = d.Str()
			return err
		}
		return d.Skip()
	}); err != nil || productID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	p, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("get product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}
	if !p.Visible {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	outcome := h.carts.Add(r.Context(), IdentityFromContext(r.Context()).SessionID, productID)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("outcome", func(e *jx.Encoder) { e.Str(string(outcome)) })
		})
	})
}

func (h *Handler) setCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quantity := 0
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "quantity" {
			quantity, err = d.Int()
			return err
		}
		return d.Skip()
	}); err != nil || quantity < 1 {
		writeError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}

	h.carts.SetQuantity(r.Context(), IdentityFromContext(r.Context()).SessionID, r.PathValue("id"), quantity)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	h.carts.Remove(r.Context(), IdentityFromContext(r.Context()).SessionID, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code := ""
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "code" {
			code, err = d.Str()
			return err
		}
		return d.Skip()
	}); err != nil || code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	rule, err := h.coupons.FindByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, coupon.ErrInvalidCoupon) {
			writeError(w, http.StatusUnprocessableEntity, "invalid coupon code")
			return
		}
		zctx.From(r.Context()).Error("find coupon", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to apply coupon")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Str(rule.Code) })
			e.Field("percent", func(e *jx.Encoder) { e.Num(jx.Num(rule.Percent.String())) })
			e.Field("description", func(e *jx.Encoder) { e.Str(rule.Description) })
		})
	})
}
