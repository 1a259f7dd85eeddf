package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cinema-booking/internal/apperr"
	"cinema-booking/internal/data/entity"
	"cinema-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type createOrderRequest struct {
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	ReturnURL string            `json:"return_url,omitempty"`
	Metadata  map[string]string `json:"metadata"`
}

type createOrderResponse struct {
	OrderRef    string `json:"order_ref"`
	CheckoutURL string `json:"checkout_url"`
}

// Client creates orders on the payment provider's REST API.
type Client struct {
	baseURL   string
	apiKey    string
	returnURL string
	http      *http.Client
	log       *zap.Logger
}

func NewClient(cfg utils.PaymentConfig, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		returnURL: cfg.ReturnURL,
		http:      &http.Client{Timeout: timeout},
		log:       log.With(zap.String("component", "payment_client")),
	}
}

func (c *Client) CreateOrder(ctx context.Context, amount int64, currency string, metadata map[string]string) (*entity.PaymentOrder, error) {
	payload, err := json.Marshal(createOrderRequest{
		Amount:    amount,
		Currency:  currency,
		ReturnURL: c.returnURL,
		Metadata:  metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if ref := metadata["merchant_ref"]; ref != "" {
		req.Header.Set("Idempotency-Key", ref)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Gateway, err, "payment provider unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperr.Wrap(apperr.Gateway, err, "read payment provider response")
	}
	c.log.Debug("Payment order request finished",
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.New(apperr.Gateway, "payment provider rejected order with status %d", resp.StatusCode).
			WithDetails(map[string]string{"provider_response": truncate(string(body), 256)})
	}

	var out createOrderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperr.Wrap(apperr.Gateway, err, "decode payment provider response")
	}
	if out.OrderRef == "" || out.CheckoutURL == "" {
		return nil, apperr.New(apperr.Gateway, "payment provider response missing order reference")
	}
	return &entity.PaymentOrder{OrderRef: out.OrderRef, CheckoutURL: out.CheckoutURL}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Sandbox accepts every order locally. Used when no provider URL is configured.
type Sandbox struct {
	checkoutBase string
	log          *zap.Logger
}

func NewSandbox(checkoutBase string, log *zap.Logger) *Sandbox {
	if checkoutBase == "" {
		checkoutBase = "http://localhost/pay"
	}
	return &Sandbox{checkoutBase: strings.TrimRight(checkoutBase, "/"), log: log.With(zap.String("component", "payment_sandbox"))}
}

func (s *Sandbox) CreateOrder(_ context.Context, amount int64, currency string, metadata map[string]string) (*entity.PaymentOrder, error) {
	ref := "sbx_" + uuid.New().String()
	s.log.Info("Sandbox payment order created",
		zap.String("order_ref", ref),
		zap.Int64("amount", amount),
		zap.String("currency", currency),
		zap.String("session_id", metadata["session_id"]),
	)
	return &entity.PaymentOrder{OrderRef: ref, CheckoutURL: s.checkoutBase + "/" + ref}, nil
}
