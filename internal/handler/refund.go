package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/craftpc/storefront/internal/payment"
	"github.com/craftpc/storefront/internal/refund"
)

// processRefund handles the admin refund endpoint. Validation failures are
// a 400 with a fixed message; anything past validation that fails maps to
// a fixed 500 so gateway detail never leaks to the response.
func (h *Handler) processRefund(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}

	req := refund.Request{}
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "order_id":
			req.OrderID, err = d.Str()
			return err
		case "payment_id":
			req.PaymentID, err = d.Str()
			return err
		case "amount":
			req.AmountMinor, err = d.Int64()
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}

	result, err := h.refunds.Refund(r.Context(), req)
	if err != nil {
		var invalid *payment.ValidationError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusBadRequest, "Missing required parameters")
			return
		}
		zctx.From(r.Context()).Error("process refund",
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Failed to process refund")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("state", func(e *jx.Encoder) { e.Str(string(result.State)) })
			e.Field("refund", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", func(e *jx.Encoder) { e.Str(result.Record.ID) })
					e.Field("payment_id", func(e *jx.Encoder) { e.Str(result.Record.PaymentID) })
					e.Field("amount_minor", func(e *jx.Encoder) { e.Int64(result.Record.AmountMinor) })
					e.Field("status", func(e *jx.Encoder) { e.Str(result.Record.Status) })
				})
			})
		})
	})
}
