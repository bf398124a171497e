package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bingwamta/databot/core/logger"
	"github.com/bingwamta/databot/core/netutil"
)

const (
	component = "payment"

	paymentsPath = "/api/v2/payments"

	// DefaultBaseURL is the production PayHero endpoint.
	DefaultBaseURL = "https://backend.payhero.co.ke"
	// DefaultChannelID is the merchant payment channel.
	DefaultChannelID = 2486
	// DefaultProvider selects M-PESA.
	DefaultProvider = "m-pesa"
	// DefaultTimeout bounds one charge request.
	DefaultTimeout = 30 * time.Second

	maxBodyBytes = 64 << 10
)

// Config configures a Gateway.
type Config struct {
	BaseURL     string
	Username    string
	Password    string
	ChannelID   int
	Provider    string
	CallbackURL string
	Timeout     time.Duration
}

// Gateway calls the PayHero payments endpoint. A Gateway is safe for
// concurrent use.
type Gateway struct {
	endpoint    string
	auth        string
	channelID   int
	provider    string
	callbackURL string
	client      *http.Client
	now         func() time.Time
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		if c != nil {
			g.client = c
		}
	}
}

// NewGateway validates cfg and precomputes the Basic authorization header.
func NewGateway(cfg Config, opts ...Option) (*Gateway, error) {
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, errors.New("payment: api username and password are required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if cfg.ChannelID <= 0 {
		cfg.ChannelID = DefaultChannelID
	}
	if strings.TrimSpace(cfg.Provider) == "" {
		cfg.Provider = DefaultProvider
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	g := &Gateway{
		endpoint:    base + paymentsPath,
		auth:        "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.Username+":"+cfg.Password)),
		channelID:   cfg.ChannelID,
		provider:    cfg.Provider,
		callbackURL: cfg.CallbackURL,
		client:      netutil.NewClient(netutil.ClientOptions{Timeout: cfg.Timeout, ResponseTimeout: cfg.Timeout}),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type chargeBody struct {
	Amount            int    `json:"amount"`
	PhoneNumber       string `json:"phone_number"`
	ChannelID         int    `json:"channel_id"`
	Provider          string `json:"provider"`
	ExternalReference string `json:"external_reference"`
	CallbackURL       string `json:"callback_url"`
}

type chargeReply struct {
	Success *bool  `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error_message"`
}

// Charge sends one STK push. It never retries; every failure is folded into
// the returned Result.
func (g *Gateway) Charge(ctx context.Context, req ChargeRequest) Result {
	start := g.now()
	attrs := []slog.Attr{
		slog.String("reference", req.Reference),
		slog.Int("amount", req.Amount),
		slog.String("phone", logger.Mask(req.Phone, 4)),
	}
	logger.Info(ctx, component, "charge.start", attrs...)

	res := g.do(ctx, req)

	attrs = append(attrs,
		slog.String("outcome", res.Outcome.String()),
		slog.Int("http_status", res.HTTPStatus),
		slog.String("gateway_status", res.Status),
		slog.Duration("duration", logger.Took(start)),
	)
	switch res.Outcome {
	case Error:
		attrs = append(attrs, slog.String("detail", logger.SanitizeLimit(res.Detail, 256)))
		logger.Error(ctx, component, "charge.done", attrs...)
	case Failed:
		attrs = append(attrs, slog.String("detail", logger.SanitizeLimit(res.Detail, 256)))
		logger.Warn(ctx, component, "charge.done", attrs...)
	default:
		logger.Info(ctx, component, "charge.done", attrs...)
	}
	return res
}

func (g *Gateway) do(ctx context.Context, req ChargeRequest) Result {
	payload, err := json.Marshal(chargeBody{
		Amount:            req.Amount,
		PhoneNumber:       req.Phone,
		ChannelID:         g.channelID,
		Provider:          g.provider,
		ExternalReference: req.Reference,
		CallbackURL:       g.callbackURL,
	})
	if err != nil {
		return Result{Outcome: Error, Detail: fmt.Sprintf("encode request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{Outcome: Error, Detail: fmt.Sprintf("build request: %v", err)}
	}
	httpReq.Header.Set("Authorization", g.auth)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Result{Outcome: Error, Detail: fmt.Sprintf("send request: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{Outcome: Error, HTTPStatus: resp.StatusCode, Detail: fmt.Sprintf("read response: %v", err)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Result{Outcome: Error, HTTPStatus: resp.StatusCode, Detail: fmt.Sprintf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))}
	}

	var reply chargeReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return Result{Outcome: Error, HTTPStatus: resp.StatusCode, Detail: fmt.Sprintf("decode response: %v", err)}
	}
	res := Result{
		Outcome:    classify(resp.StatusCode, reply.Success, reply.Status),
		Status:     reply.Status,
		HTTPStatus: resp.StatusCode,
	}
	if res.Outcome == Failed {
		res.Detail = firstNonEmpty(reply.Error, reply.Message, "gateway reported failure")
	}
	return res
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
