package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/donaldgifford/item-notifier/internal/metrics"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultUserAgent      = "item-notifier"
	csrfHeader            = "X-CSRF-Token"
	maxBodyBytes          = 4 << 20
)

var tracer = otel.Tracer("github.com/donaldgifford/item-notifier/internal/catalog")

// response is the buffered result of a catalog request.
type response struct {
	status int
	header http.Header
	body   []byte
}

// requester holds the transport settings shared by the JSON adapters.
type requester struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	tokens      TokenProvider
	rateLimiter *RateLimiter
	log         *slog.Logger
}

// Option configures the HTTP transport of the catalog adapters.
type Option func(*requester)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *requester) {
		r.client = hc
	}
}

// WithRequestTimeout bounds every outbound call.
func WithRequestTimeout(d time.Duration) Option {
	return func(r *requester) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(r *requester) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithTokenProvider attaches a CSRF token to every request.
func WithTokenProvider(p TokenProvider) Option {
	return func(r *requester) {
		r.tokens = p
	}
}

// WithRateLimiter paces requests through l.
func WithRateLimiter(l *RateLimiter) Option {
	return func(r *requester) {
		r.rateLimiter = l
	}
}

// WithLogger sets the logger for recoverable response problems.
func WithLogger(l *slog.Logger) Option {
	return func(r *requester) {
		if l != nil {
			r.log = l
		}
	}
}

func newRequester(opts ...Option) requester {
	r := requester{
		log:       slog.Default(),
		client:    &http.Client{},
		timeout:   defaultRequestTimeout,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// do performs one bounded request. Transport failures and non-2xx statuses
// are wrapped in ErrNetwork. A 403 carrying a fresh token header refreshes
// the token provider and the request is retried once.
func (r *requester) do(
	ctx context.Context,
	endpoint string,
	method string,
	url string,
) (*response, error) {
	ctx, span := tracer.Start(ctx, "catalog."+endpoint)
	defer span.End()
	span.SetAttributes(attribute.String("http.url", url), attribute.String("http.method", method))

	resp, err := r.attempt(ctx, endpoint, method, url)
	if err == nil && resp.status == http.StatusForbidden {
		if fresh := resp.header.Get(csrfHeader); fresh != "" {
			if refresher, ok := r.tokens.(TokenRefresher); ok {
				refresher.Refresh(fresh)
				resp, err = r.attempt(ctx, endpoint, method, url)
			}
		}
	}
	if err == nil && (resp.status < 200 || resp.status >= 300) {
		err = fmt.Errorf("%w: %s returned status %d", ErrNetwork, endpoint, resp.status)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.CatalogRequestsTotal.WithLabelValues(endpoint, ErrorKind(err)).Inc()
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.status))
	metrics.CatalogRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return resp, nil
}

func (r *requester) attempt(
	ctx context.Context,
	endpoint string,
	method string,
	url string,
) (*response, error) {
	if r.rateLimiter != nil {
		if err := r.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s request: %w", ErrNetwork, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", r.userAgent)

	if r.tokens != nil {
		// A missing token is not fatal; the site may accept the read anyway.
		if token, tokErr := r.tokens.Token(ctx); tokErr == nil && token != "" {
			req.Header.Set(csrfHeader, token)
		}
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	metrics.CatalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: executing %s request: %w", ErrNetwork, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %w", ErrNetwork, endpoint, err)
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}
