package payment

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Config holds the processor credentials and endpoint. Credentials are
// process-wide and loaded once at startup; a missing credential fails
// service start, never an individual request.
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// Client wraps order creation and refund calls to the external payment
// processor. It owns amount-unit passthrough and nothing else: no retries
// and no deduplication. Idempotency by receipt is the processor's
// guarantee, and retrying is the caller's decision.
type Client struct {
	cfg  Config
	http *http.Client
	lg   *zap.Logger
}

// NewClient validates the credentials and returns a Client with a bounded
// per-call timeout.
func NewClient(cfg Config, lg *zap.Logger) (*Client, error) {
	if cfg.KeyID == "" {
		return nil, errors.New("payment gateway key id is required")
	}
	if cfg.KeySecret == "" {
		return nil, errors.New("payment gateway key secret is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("payment gateway base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		lg:   lg,
	}, nil
}

// CreateOrder creates a processor order for the given minor-unit amount.
// Any transport or processor-side rejection fails with *GatewayError.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*GatewayOrder, error) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("amount", func(e *jx.Encoder) { e.Int64(amountMinor) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(currency) })
		e.Field("receipt", func(e *jx.Encoder) { e.Str(receipt) })
	})

	body, err := c.post(ctx, "create order", c.cfg.BaseURL+"/orders", e.Bytes())
	if err != nil {
		return nil, err
	}

	order := &GatewayOrder{Receipt: receipt}
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			order.ID, err = d.Str()
		case "amount":
			order.AmountMinor, err = d.Int64()
		case "currency":
			order.Currency, err = d.Str()
		case "status":
			order.Status, err = d.Str()
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		return nil, &GatewayError{Op: "create order", Detail: "malformed response: " + err.Error()}
	}
	return order, nil
}

// IssueRefund reverses a captured payment. Missing identifiers or a
// non-positive amount fail with *ValidationError before any network call;
// processor rejection fails with *GatewayError.
func (c *Client) IssueRefund(ctx context.Context, req RefundRequest) (*RefundRecord, error) {
	if req.OrderID == "" {
		return nil, &ValidationError{Field: "order_id"}
	}
	if req.PaymentID == "" {
		return nil, &ValidationError{Field: "payment_id"}
	}
	if req.AmountMinor <= 0 {
		return nil, &ValidationError{Field: "amount"}
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("amount", func(e *jx.Encoder) { e.Int64(req.AmountMinor) })
		e.Field("notes", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("original_order_id", func(e *jx.Encoder) { e.Str(req.OrderID) })
			})
		})
	})

	url := c.cfg.BaseURL + "/payments/" + req.PaymentID + "/refund"
	body, err := c.post(ctx, "refund", url, e.Bytes())
	if err != nil {
		return nil, err
	}

	record := &RefundRecord{Notes: "order:" + req.OrderID}
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			record.ID, err = d.Str()
		case "payment_id":
			record.PaymentID, err = d.Str()
		case "amount":
			record.AmountMinor, err = d.Int64()
		case "status":
			record.Status, err = d.Str()
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		return nil, &GatewayError{Op: "refund", Detail: "malformed response: " + err.Error()}
	}
	return record, nil
}

// post issues one authenticated request and returns the response body on
// 2xx. Processor rejections are logged with the raw payload and wrapped
// in *GatewayError; the payload never reaches callers.
func (c *Client) post(ctx context.Context, op, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		c.lg.Error("gateway transport failure",
			zap.String("op", op),
			zap.Error(err),
		)
		return nil, &GatewayError{Op: op, Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &GatewayError{Op: op, Detail: "read response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.lg.Error("gateway rejected request",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("payload", body),
		)
		return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode, Detail: string(body)}
	}
	return body, nil
}
