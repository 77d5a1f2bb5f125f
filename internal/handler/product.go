package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/craftpc/storefront/internal/domain/product"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}

	products, err := h.products.ListByCategory(r.Context(), category)
	if err != nil {
		zctx.From(r.Context()).Error("list products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProducts(e, products)
	})
}

func (h *Handler) searchProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	products, err := h.products.Search(r.Context(), query)
	if err != nil {
		zctx.From(r.Context()).Error("search products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to search products")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProducts(e, products)
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("get product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	// Hidden products are indistinguishable from missing ones outside
	// the admin surface.
	if !p.Visible {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProduct(e, *p)
	})
}

func encodeProducts(e *jx.Encoder, products []product.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			encodeProduct(e, p)
		}
	})
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("build_type", func(e *jx.Encoder) { e.Str(string(p.BuildType)) })
		e.Field("build_family", func(e *jx.Encoder) { e.Str(p.BuildFamily) })
		e.Field("list_price", func(e *jx.Encoder) { e.Num(jx.Num(p.ListPrice.String())) })
		e.Field("selling_price", func(e *jx.Encoder) { e.Num(jx.Num(p.SellingPrice.String())) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
		e.Field("image", func(e *jx.Encoder) { e.Str(p.Image) })
	})
}
