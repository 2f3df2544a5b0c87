// Package notify defines the notification interface and its sinks: ntfy push,
// Discord and generic webhooks, a logging no-op, and a fan-out that delivers
// to every configured sink.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "item-notifier"
)

// Notification is one user-facing alert. ClickURL is where the user lands
// when acting on it.
type Notification struct {
	ItemID   domain.ItemID
	Title    string
	Body     string
	IconURL  string
	ClickURL string
	Detail   domain.ItemDetail
}

// Notifier delivers notifications. Delivery is fire-and-forget from the
// poller's point of view; errors are only logged and counted.
type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
	// Name labels the sink in logs and metrics.
	Name() string
}

// httpSender is the transport shared by the HTTP sinks.
type httpSender struct {
	client    *http.Client
	userAgent string
}

// Option configures an HTTP sink.
type Option func(*httpSender)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *httpSender) {
		s.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *httpSender) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

func newHTTPSender(opts ...Option) httpSender {
	s := httpSender{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// send executes req and maps non-2xx responses to errors tagged with sink.
func (s *httpSender) send(req *http.Request, sink string) error {
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending %s notification: %w", sink, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s rate limited (429)", sink)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if readErr != nil {
			return fmt.Errorf("%s returned %d (body unreadable)", sink, resp.StatusCode)
		}
		return fmt.Errorf("%s returned %d: %s", sink, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
	return nil
}
