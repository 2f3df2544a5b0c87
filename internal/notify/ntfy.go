package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// NtfyNotifier publishes to an ntfy topic. ntfy renders the Title, Icon and
// Click headers as a desktop or phone notification that opens ClickURL when
// pressed.
type NtfyNotifier struct {
	httpSender
	topicURL string
	token    string
	priority string
}

// NewNtfyNotifier creates a notifier for the topic at topicURL, e.g.
// https://ntfy.sh/my-topic. token may be empty for public topics.
func NewNtfyNotifier(topicURL, token, priority string, opts ...Option) *NtfyNotifier {
	return &NtfyNotifier{
		httpSender: newHTTPSender(opts...),
		topicURL:   topicURL,
		token:      token,
		priority:   priority,
	}
}

// Name implements Notifier.
func (*NtfyNotifier) Name() string { return "ntfy" }

// Notify implements Notifier.
func (n *NtfyNotifier) Notify(ctx context.Context, notif *Notification) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		n.topicURL,
		strings.NewReader(notif.Body),
	)
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Tags", "new,shopping_cart")
	if notif.Title != "" {
		req.Header.Set("Title", notif.Title)
	}
	if notif.ClickURL != "" {
		req.Header.Set("Click", notif.ClickURL)
	}
	if notif.IconURL != "" {
		req.Header.Set("Icon", notif.IconURL)
	}
	if n.priority != "" && n.priority != "default" {
		req.Header.Set("Priority", n.priority)
	}
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	return n.send(req, n.Name())
}
