package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/application/offline"
	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/sony/gobreaker/v2"
)

const (
	salesPath  = "/api/v1/sales"
	healthPath = "/health/live"

	breakerName = "remote_sales"

	// returned by the sale API while the same idempotency key is being processed
	codeInProgress = "request_in_progress"
)

// StateListener matches gobreaker's OnStateChange callback.
type StateListener func(name string, from, to gobreaker.State)

// Client talks to the back-office sale service. Transport failures and 5xx
// responses count against the circuit breaker; rejections do not.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*offline.CreatedSale]
}

var (
	_ offline.SaleCreator         = (*Client)(nil)
	_ offline.ConnectivityChecker = (*Client)(nil)
)

type options struct {
	httpClient     *http.Client
	failThreshold  uint32
	breakerTimeout time.Duration
	onStateChange  StateListener
}

type Option func(*options)

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithBreaker sets how many consecutive failures open the breaker and how long it stays open.
func WithBreaker(threshold uint32, openFor time.Duration) Option {
	return func(o *options) {
		if threshold > 0 {
			o.failThreshold = threshold
		}
		if openFor > 0 {
			o.breakerTimeout = openFor
		}
	}
}

func WithStateListener(fn StateListener) Option {
	return func(o *options) { o.onStateChange = fn }
}

func NewClient(baseURL, token string, opts ...Option) *Client {
	o := options{
		httpClient:     &http.Client{},
		failThreshold:  5,
		breakerTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     o.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.failThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || domainErrors.IsRemoteRejection(err)
		},
	}
	if o.onStateChange != nil {
		settings.OnStateChange = o.onStateChange
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    o.httpClient,
		breaker: gobreaker.NewCircuitBreaker[*offline.CreatedSale](settings),
	}
}

// BreakerState exposes the breaker state for status reporting.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) CreateSale(ctx context.Context, sale offline.RemoteSale) (*offline.CreatedSale, error) {
	created, err := c.breaker.Execute(func() (*offline.CreatedSale, error) {
		return c.postSale(ctx, sale)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: circuit %s", domainErrors.ErrRemoteUnavailable, err)
	}
	return created, err
}

func (c *Client) postSale(ctx context.Context, sale offline.RemoteSale) (*offline.CreatedSale, error) {
	body, err := json.Marshal(sale)
	if err != nil {
		return nil, fmt.Errorf("marshal sale: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+salesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sale.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", sale.IdempotencyKey)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, err
	}

	var created offline.CreatedSale
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domainErrors.ErrRemoteUnavailable, err)
	}
	return &created, nil
}

// Check probes the liveness endpoint. It bypasses the breaker so a probe can
// see the service come back while the breaker is still open.
func (c *Client) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %d", domainErrors.ErrRemoteUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &eb) != nil || eb.Error == "" {
		eb.Error = strings.TrimSpace(string(raw))
	}

	switch {
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusConflict && eb.Code == codeInProgress:
		return fmt.Errorf("%w: status %d: %s", domainErrors.ErrRemoteUnavailable, resp.StatusCode, eb.Error)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: status %d %s: %s", domainErrors.ErrRemoteRejected, resp.StatusCode, eb.Code, eb.Error)
	default:
		return fmt.Errorf("%w: status %d: %s", domainErrors.ErrRemoteUnavailable, resp.StatusCode, eb.Error)
	}
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domainErrors.ErrRemoteTimeout, err)
	}
	return fmt.Errorf("%w: %v", domainErrors.ErrRemoteUnavailable, err)
}
