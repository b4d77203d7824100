package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"channelhub/internal/buildinfo"
	"channelhub/internal/metrics"
	"channelhub/internal/model"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
	maxErrorBody   = 512
)

// Request is one partner call. Op labels metrics and errors ("availability.batch", "booking.cancel").
type Request struct {
	Op     string
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Client talks JSON to one partner on behalf of one property.
type Client struct {
	channel string
	baseURL string
	timeout time.Duration
	http    *http.Client
	auth    Authenticator
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func (c *Client) Channel() string { return c.channel }

// Do sends req and decodes a JSON response into out (when out is non-nil and the body is non-empty).
// Failures are *TransportError, except authenticator failures, which are returned as-is before any I/O.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	var body []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("%s %s: encode request: %w", c.channel, req.Op, err)
		}
		body = b
	}

	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	hreq, err := http.NewRequestWithContext(ctx, req.Method, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", c.channel, req.Op, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set("User-Agent", "channelhub/"+buildinfo.Version)
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Channel: c.channel, Op: req.Op, Err: err}
		}
	}

	// Signatures carry a timestamp, so they are applied once the limiter lets the request go.
	if c.auth != nil {
		if err := c.auth.Apply(hreq, body); err != nil {
			metrics.PartnerRequests.WithLabelValues(c.channel, req.Op, "auth_error").Inc()
			return fmt.Errorf("%s %s: %w", c.channel, req.Op, err)
		}
	}

	start := time.Now()
	res, err := c.breaker.Execute(func() (any, error) {
		return c.send(hreq, req.Op)
	})
	metrics.PartnerLatency.WithLabelValues(c.channel, req.Op).Observe(time.Since(start).Seconds())
	if err != nil {
		var te *TransportError
		if !errors.As(err, &te) {
			te = &TransportError{Channel: c.channel, Op: req.Op, Err: err}
		}
		metrics.PartnerRequests.WithLabelValues(c.channel, req.Op, outcomeLabel(te)).Inc()
		c.logger.Debug("partner call failed",
			zap.String("op", req.Op), zap.String("method", req.Method), zap.String("path", req.Path),
			zap.Int("status", te.Status), zap.Error(te))
		return te
	}
	metrics.PartnerRequests.WithLabelValues(c.channel, req.Op, "ok").Inc()

	respBody, _ := res.([]byte)
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &TransportError{Channel: c.channel, Op: req.Op, Status: http.StatusOK, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) send(hreq *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, &TransportError{Channel: c.channel, Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Channel: c.channel, Op: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Channel: c.channel, Op: op, Status: resp.StatusCode, Body: snippet(b)}
	}
	return b, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}

func outcomeLabel(te *TransportError) string {
	switch {
	case errors.Is(te.Err, gobreaker.ErrOpenState), errors.Is(te.Err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case te.Status == 0:
		return "network"
	case te.Status >= 500:
		return "http_5xx"
	case te.Status >= 400:
		return "http_4xx"
	}
	return "rejected"
}

// BreakerSettings tunes the circuit breaker kept for each channel endpoint.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerSettings trips at 80% failures over at least 10 calls and probes again after 30s.
var DefaultBreakerSettings = BreakerSettings{MaxRequests: 3, Interval: time.Minute, Timeout: 30 * time.Second, FailureThreshold: 0.8, MinRequests: 10}

// ClientFactory builds partner clients. Rate limiters are shared per channel, since partners throttle per
// integration account. Circuit breakers are shared per channel endpoint: a property that overrides the
// base URL gets its own breaker and cannot open the circuit for the rest of the channel.
type ClientFactory struct {
	mu       sync.Mutex
	http     *http.Client
	logger   *zap.Logger
	settings BreakerSettings
	breakers map[string]*gobreaker.CircuitBreaker
	limiters map[string]*rate.Limiter
}

func NewClientFactory(httpClient *http.Client, settings BreakerSettings, logger *zap.Logger) *ClientFactory {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings == (BreakerSettings{}) {
		settings = DefaultBreakerSettings
	}
	return &ClientFactory{
		http:     httpClient,
		logger:   logger,
		settings: settings,
		breakers: map[string]*gobreaker.CircuitBreaker{},
		limiters: map[string]*rate.Limiter{},
	}
}

// New returns a client for cfg's channel and base URL.
func (f *ClientFactory) New(cfg model.ChannelConfig, auth Authenticator) *Client {
	timeout := cfg.Sync.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		channel: cfg.Channel,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		http:    f.http,
		auth:    auth,
		limiter: f.limiter(cfg.Channel, cfg.Sync.RateLimitPerSecond),
		breaker: f.breaker(cfg.Channel, cfg.BaseURL),
		logger:  f.logger.With(zap.String("channel", cfg.Channel), zap.String("property_id", cfg.PropertyID)),
	}
}

// limiter returns nil (unlimited) when perSecond is not set. The burst allows one second's worth of calls.
func (f *ClientFactory) limiter(channel string, perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[channel]
	if !ok {
		l = rate.NewLimiter(rate.Limit(perSecond), max(int(perSecond), 1))
		f.limiters[channel] = l
	} else if l.Limit() != rate.Limit(perSecond) {
		l.SetLimit(rate.Limit(perSecond))
	}
	return l
}

func (f *ClientFactory) breaker(channel, baseURL string) *gobreaker.CircuitBreaker {
	endpoint := strings.TrimRight(baseURL, "/")
	key := channel + "|" + endpoint
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := f.breakers[key]; ok {
		return cb
	}
	host := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		host = u.Host
	}
	s := f.settings
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        key,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureThreshold
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(channel, host).Set(float64(to))
			f.logger.Warn("circuit breaker state changed",
				zap.String("channel", channel), zap.String("endpoint", host),
				zap.Stringer("from", from), zap.Stringer("to", to))
		},
		// 4xx answers mean the partner is up and rejecting this request.
		IsSuccessful: func(err error) bool {
			var te *TransportError
			if errors.As(err, &te) && te.Status >= 400 && te.Status < 500 && te.Status != http.StatusTooManyRequests {
				return true
			}
			return err == nil
		},
	})
	f.breakers[key] = cb
	return cb
}
