package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

const limitedUniqueRestriction = "LimitedUnique"

// APIDetailFetcher enriches items from the JSON detail and thumbnail
// endpoints. Both are templates containing an {id} placeholder and either
// may be empty.
type APIDetailFetcher struct {
	requester
	detailURL    string
	thumbnailURL string
}

// NewAPIDetailFetcher creates an APIDetailFetcher.
func NewAPIDetailFetcher(detailURL, thumbnailURL string, opts ...Option) *APIDetailFetcher {
	return &APIDetailFetcher{
		requester:    newRequester(opts...),
		detailURL:    detailURL,
		thumbnailURL: thumbnailURL,
	}
}

// FetchDetail implements DetailFetcher. A failing detail endpoint fails the
// lookup; a failing thumbnail endpoint only leaves ImageURL empty. Without a
// detail endpoint the name comes from the listing record.
func (f *APIDetailFetcher) FetchDetail(
	ctx context.Context,
	item domain.ItemSummary,
) (domain.ItemDetail, error) {
	detail := domain.ItemDetail{Name: item.Name}

	if f.detailURL != "" {
		resp, err := f.do(ctx, "detail", http.MethodGet, expandID(f.detailURL, item.ID))
		if err != nil {
			return domain.ItemDetail{}, err
		}
		detail, err = decodeDetail(resp.body)
		if err != nil {
			return domain.ItemDetail{}, err
		}
	}

	if f.thumbnailURL != "" {
		if resp, err := f.do(ctx, "thumbnail", http.MethodGet, expandID(f.thumbnailURL, item.ID)); err == nil {
			detail.ImageURL, _ = decodeThumbnail(resp.body) //nolint:errcheck // image is optional
		}
	}

	if detail.Name == "" {
		detail.Name = domain.UnknownItemName
	}
	return detail, nil
}

// detailRecord accepts both the search-style and the details-style payloads.
type detailRecord struct {
	Name             string          `json:"name"`
	Price            json.RawMessage `json:"price"`
	IsLimitedUnique  *bool           `json:"isLimitedUnique"`
	ItemRestrictions []string        `json:"itemRestrictions"`
}

type thumbnailRecord struct {
	ImageURL string `json:"imageUrl"`
}

// firstRecord unwraps {"data":[rec,...]} to rec, and returns any other object
// unchanged.
func firstRecord(body []byte) (json.RawMessage, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrParse, err)
	}
	if len(envelope.Data) == 0 {
		return body, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(envelope.Data, &records); err != nil {
		// "data" holding a single object.
		return envelope.Data, nil //nolint:nilerr // object form is valid
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: response data array is empty", ErrMissingField)
	}
	return records[0], nil
}

func decodeDetail(body []byte) (domain.ItemDetail, error) {
	raw, err := firstRecord(body)
	if err != nil {
		return domain.ItemDetail{}, err
	}

	var rec detailRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.ItemDetail{}, fmt.Errorf("%w: decoding detail: %w", ErrParse, err)
	}
	if rec.Name == "" {
		return domain.ItemDetail{}, fmt.Errorf("%w: detail has no name", ErrMissingField)
	}

	detail := domain.ItemDetail{
		Name:            rec.Name,
		Price:           formatPrice(rec.Price),
		IsLimitedUnique: rec.IsLimitedUnique,
	}
	if detail.IsLimitedUnique == nil && rec.ItemRestrictions != nil {
		lu := slices.Contains(rec.ItemRestrictions, limitedUniqueRestriction)
		detail.IsLimitedUnique = &lu
	}
	return detail, nil
}

func decodeThumbnail(body []byte) (string, error) {
	raw, err := firstRecord(body)
	if err != nil {
		return "", err
	}
	var rec thumbnailRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", fmt.Errorf("%w: decoding thumbnail: %w", ErrParse, err)
	}
	if rec.ImageURL == "" {
		return "", fmt.Errorf("%w: thumbnail has no imageUrl", ErrMissingField)
	}
	return rec.ImageURL, nil
}

// formatPrice renders a JSON number or string price; null and absent give "".
func formatPrice(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return strings.TrimSpace(string(raw))
}

// FallbackFetcher never contacts the site and always returns the
// placeholder detail.
type FallbackFetcher struct{}

// FetchDetail implements DetailFetcher.
func (FallbackFetcher) FetchDetail(context.Context, domain.ItemSummary) (domain.ItemDetail, error) {
	return domain.FallbackDetail(), nil
}
