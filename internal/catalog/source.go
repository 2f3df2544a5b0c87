package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/donaldgifford/item-notifier/internal/metrics"
	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

const defaultItemsField = "data"

// HTTPSource implements Source against a JSON listing endpoint. The items
// array sits under a configurable top-level key ("data" or "items" depending
// on the API version).
type HTTPSource struct {
	requester
	listURL    string
	itemsField string
}

// NewHTTPSource creates a Source reading listURL. itemsField names the
// top-level key of the items array; empty means "data".
func NewHTTPSource(listURL, itemsField string, opts ...Option) *HTTPSource {
	if itemsField == "" {
		itemsField = defaultItemsField
	}
	s := &HTTPSource{
		requester:  newRequester(opts...),
		listURL:    listURL,
		itemsField: itemsField,
	}
	return s
}

// FetchFeatured implements Source. The returned order is the API's own
// recency order; index 0 is the most recent item.
func (s *HTTPSource) FetchFeatured(ctx context.Context) ([]domain.ItemSummary, error) {
	resp, err := s.do(ctx, "list", http.MethodGet, s.listURL)
	if err != nil {
		return nil, err
	}
	items, skipped, err := decodeItems(resp.body, s.itemsField)
	if err != nil {
		return nil, err
	}
	for _, rec := range skipped {
		metrics.ListRecordsSkippedTotal.Inc()
		s.log.Warn("skipping malformed listing record", "index", rec.index, "error", rec.err)
	}
	return items, nil
}

// skippedRecord is a listing record dropped by decodeItems.
type skippedRecord struct {
	index int
	err   error
}

// decodeItems parses the listing. A malformed record at index 0 fails the
// whole listing, since it decides what is new; later malformed records are
// dropped and reported in skipped.
func decodeItems(body []byte, field string) ([]domain.ItemSummary, []skippedRecord, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: decoding list response: %w", ErrParse, err)
	}

	raw, ok := doc[field]
	if !ok {
		return nil, nil, fmt.Errorf("%w: list response has no %q key", ErrMissingField, field)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, nil, fmt.Errorf("%w: decoding %q array: %w", ErrParse, field, err)
	}

	items := make([]domain.ItemSummary, 0, len(records))
	var skipped []skippedRecord
	for i, rec := range records {
		item, err := decodeItem(rec, i)
		if err != nil {
			if i == 0 {
				return nil, nil, err
			}
			skipped = append(skipped, skippedRecord{index: i, err: err})
			continue
		}
		items = append(items, item)
	}

	return items, skipped, nil
}

func decodeItem(rec json.RawMessage, i int) (domain.ItemSummary, error) {
	var item domain.ItemSummary
	if err := json.Unmarshal(rec, &item); err != nil {
		return item, fmt.Errorf("%w: decoding item %d: %w", ErrParse, i, err)
	}
	if item.ID.IsZero() {
		return item, fmt.Errorf("%w: item %d has no id", ErrMissingField, i)
	}
	if err := json.Unmarshal(rec, &item.Raw); err != nil {
		return item, fmt.Errorf("%w: decoding item %d fields: %w", ErrParse, i, err)
	}
	return item, nil
}
