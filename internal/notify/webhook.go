package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WebhookNotifier POSTs every notification as JSON to a fixed URL.
type WebhookNotifier struct {
	httpSender
	url     string
	headers map[string]string
}

// NewWebhookNotifier creates a WebhookNotifier. headers are added to every
// request, e.g. an Authorization value.
func NewWebhookNotifier(url string, headers map[string]string, opts ...Option) *WebhookNotifier {
	return &WebhookNotifier{
		httpSender: newHTTPSender(opts...),
		url:        url,
		headers:    headers,
	}
}

// webhookPayload is the documented body of a webhook delivery.
type webhookPayload struct {
	ItemID          string `json:"item_id"`
	Title           string `json:"title"`
	Body            string `json:"body"`
	Name            string `json:"name"`
	IconURL         string `json:"icon_url,omitempty"`
	ClickURL        string `json:"click_url"`
	Price           string `json:"price,omitempty"`
	IsLimitedUnique *bool  `json:"is_limited_unique,omitempty"`
}

// Name implements Notifier.
func (*WebhookNotifier) Name() string { return "webhook" }

// Notify implements Notifier.
func (w *WebhookNotifier) Notify(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(webhookPayload{
		ItemID:          n.ItemID.String(),
		Title:           n.Title,
		Body:            n.Body,
		Name:            n.Detail.Name,
		IconURL:         n.IconURL,
		ClickURL:        n.ClickURL,
		Price:           n.Detail.Price,
		IsLimitedUnique: n.Detail.IsLimitedUnique,
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	return w.send(req, w.Name())
}
