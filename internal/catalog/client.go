// Package catalog provides the read-only catalog collaborators of the poller:
// the featured-items Source, the DetailFetcher enrichment adapters, and the
// CSRF TokenProviders they share. All of them are abstracted behind
// interfaces for testability.
package catalog

import (
	"context"
	"errors"

	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

// Error taxonomy. Adapters wrap one of these so callers can classify a
// failure with errors.Is.
var (
	// ErrNetwork covers rejected requests and non-success statuses.
	ErrNetwork = errors.New("catalog network failure")
	// ErrParse covers malformed JSON or HTML.
	ErrParse = errors.New("catalog parse failure")
	// ErrMissingField covers an expected key that is absent.
	ErrMissingField = errors.New("catalog missing field")
)

// Source lists the featured items, most recent first.
type Source interface {
	FetchFeatured(ctx context.Context) ([]domain.ItemSummary, error)
}

// DetailFetcher enriches an item with display metadata. Implementations may
// fail; callers substitute domain.FallbackDetail.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, item domain.ItemSummary) (domain.ItemDetail, error)
}

// TokenProvider supplies the anti-forgery token sent with catalog requests.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenRefresher is implemented by providers that cache their token. Refresh
// replaces the cached value; an empty token forces a refetch.
type TokenRefresher interface {
	Refresh(token string)
}

// ErrorKind returns a short label for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "other"
	}
}
