package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const csrfMetaSelector = `meta[name="csrf-token"]`

// tokenCache holds the last fetched token. A zero value is ready to use.
type tokenCache struct {
	mu    sync.Mutex
	token string
}

// Refresh implements TokenRefresher.
func (c *tokenCache) Refresh(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *tokenCache) get(ctx context.Context, fetch func(context.Context) (string, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}
	token, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

// MetaTokenProvider reads the token from the csrf-token meta tag of a page
// on the catalog site.
type MetaTokenProvider struct {
	tokenCache
	pageURL string
	http    *resty.Client
}

// NewMetaTokenProvider creates a provider scraping pageURL. A nil client
// uses a default one bounded by the request timeout.
func NewMetaTokenProvider(pageURL string, client *http.Client) *MetaTokenProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	rc := resty.NewWithClient(client).
		SetHeader("Accept", "text/html")
	return &MetaTokenProvider{pageURL: pageURL, http: rc}
}

// Token implements TokenProvider.
func (p *MetaTokenProvider) Token(ctx context.Context) (string, error) {
	return p.get(ctx, p.fetch)
}

func (p *MetaTokenProvider) fetch(ctx context.Context) (string, error) {
	res, err := p.http.R().
		SetContext(ctx).
		Get(p.pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: fetching token page: %w", ErrNetwork, err)
	}
	if res.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%w: token page returned status %d", ErrNetwork, res.StatusCode())
	}

	body := res.Body()
	if len(body) > maxBodyBytes {
		body = body[:maxBodyBytes]
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: parsing token page: %w", ErrParse, err)
	}

	token, ok := doc.Find(csrfMetaSelector).First().Attr("content")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", fmt.Errorf("%w: no csrf-token meta tag on %s", ErrMissingField, p.pageURL)
	}
	return token, nil
}

// HeaderTokenProvider obtains the token through a side-channel POST: the
// endpoint rejects the request and hands back the token in the
// X-CSRF-Token response header.
type HeaderTokenProvider struct {
	tokenCache
	tokenURL string
	client   *http.Client
}

// NewHeaderTokenProvider creates a provider posting to tokenURL.
func NewHeaderTokenProvider(tokenURL string, client *http.Client) *HeaderTokenProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &HeaderTokenProvider{tokenURL: tokenURL, client: client}
}

// Token implements TokenProvider.
func (p *HeaderTokenProvider) Token(ctx context.Context) (string, error) {
	return p.get(ctx, p.fetch)
}

func (p *HeaderTokenProvider) fetch(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.tokenURL,
		strings.NewReader("{}"),
	)
	if err != nil {
		return "", fmt.Errorf("%w: creating token request: %w", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: requesting token after %s: %w", ErrNetwork, time.Since(start).Round(time.Millisecond), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes)) //nolint:errcheck // drain for connection reuse

	token := strings.TrimSpace(resp.Header.Get(csrfHeader))
	if token == "" {
		return "", fmt.Errorf("%w: %s returned no %s header (status %d)",
			ErrMissingField, p.tokenURL, csrfHeader, resp.StatusCode)
	}
	return token, nil
}
