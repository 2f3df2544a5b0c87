package catalog

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/donaldgifford/item-notifier/internal/metrics"
	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

// Default selectors for the rendered item page.
const (
	DefaultNameSelector  = `div.col-10 h1[class^="title-"]`
	DefaultImageSelector = `img[src*="/images/thumbnails/"]`
)

// HTMLSelectors locate the display fields on a rendered item page. An empty
// PriceSelector skips the price.
type HTMLSelectors struct {
	Name  string
	Image string
	Price string
}

// HTMLDetailFetcher scrapes the rendered item page. It is the degraded mode
// used when the site exposes no JSON detail endpoint, and is the adapter
// most sensitive to markup changes.
type HTMLDetailFetcher struct {
	http         *resty.Client
	limiter      *RateLimiter
	baseURL      string
	pageTemplate string
	selectors    HTMLSelectors
}

// NewHTMLDetailFetcher creates an HTMLDetailFetcher. Pages are addressed by
// expanding pageTemplate (see ItemPageURL) against baseURL.
func NewHTMLDetailFetcher(
	baseURL string,
	pageTemplate string,
	selectors HTMLSelectors,
	opts ...Option,
) *HTMLDetailFetcher {
	r := newRequester(opts...)
	if selectors.Name == "" {
		selectors.Name = DefaultNameSelector
	}
	if selectors.Image == "" {
		selectors.Image = DefaultImageSelector
	}

	client := resty.NewWithClient(r.client).
		SetTimeout(r.timeout).
		SetHeader("User-Agent", r.userAgent).
		SetHeader("Accept", "text/html")

	return &HTMLDetailFetcher{
		http:         client,
		limiter:      r.rateLimiter,
		baseURL:      baseURL,
		pageTemplate: pageTemplate,
		selectors:    selectors,
	}
}

// FetchDetail implements DetailFetcher. A missing name degrades to
// "Unknown Item" while keeping the image; only a page with neither field is
// an error.
func (f *HTMLDetailFetcher) FetchDetail(
	ctx context.Context,
	item domain.ItemSummary,
) (domain.ItemDetail, error) {
	pageURL := ItemPageURL(f.pageTemplate, f.baseURL, item.ID, item.Name)

	ctx, span := tracer.Start(ctx, "catalog.page")
	defer span.End()
	span.SetAttributes(attribute.String("http.url", pageURL))

	detail, err := f.scrape(ctx, pageURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.CatalogRequestsTotal.WithLabelValues("page", ErrorKind(err)).Inc()
		return domain.ItemDetail{}, err
	}
	metrics.CatalogRequestsTotal.WithLabelValues("page", "ok").Inc()
	return detail, nil
}

func (f *HTMLDetailFetcher) scrape(ctx context.Context, pageURL string) (domain.ItemDetail, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return domain.ItemDetail{}, fmt.Errorf("%w: %w", ErrNetwork, err)
		}
	}

	start := time.Now()
	res, err := f.http.R().
		SetContext(ctx).
		Get(pageURL)
	metrics.CatalogRequestDuration.WithLabelValues("page").Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.ItemDetail{}, fmt.Errorf("%w: fetching item page: %w", ErrNetwork, err)
	}
	if !res.IsSuccess() {
		return domain.ItemDetail{}, fmt.Errorf("%w: item page returned status %d", ErrNetwork, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return domain.ItemDetail{}, fmt.Errorf("%w: parsing item page: %w", ErrParse, err)
	}

	name := strings.TrimSpace(doc.Find(f.selectors.Name).First().Text())
	image := ""
	if src, ok := doc.Find(f.selectors.Image).First().Attr("src"); ok {
		image = resolveURL(pageURL, strings.TrimSpace(src))
	}
	if name == "" && image == "" {
		return domain.ItemDetail{}, fmt.Errorf("%w: item page has neither name nor image", ErrMissingField)
	}
	if name == "" {
		name = domain.UnknownItemName
	}

	detail := domain.ItemDetail{Name: name, ImageURL: image}
	if f.selectors.Price != "" {
		detail.Price = strings.TrimSpace(doc.Find(f.selectors.Price).First().Text())
	}
	return detail, nil
}

// resolveURL makes ref absolute against base. Unparseable input is returned
// as is.
func resolveURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
