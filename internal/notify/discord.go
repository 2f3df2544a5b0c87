package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	colorBlue = 0x3498DB
	colorGold = 0xF1C40F // limited unique items
)

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	httpSender
	webhookURL string
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...Option) *DiscordNotifier {
	return &DiscordNotifier{
		httpSender: newHTTPSender(opts...),
		webhookURL: webhookURL,
	}
}

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Thumbnail   *discordThumbnail   `json:"thumbnail,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordThumbnail struct {
	URL string `json:"url"`
}

// Name implements Notifier.
func (*DiscordNotifier) Name() string { return "discord" }

// Notify sends the notification as a single embed whose title links to the
// item page.
func (d *DiscordNotifier) Notify(ctx context.Context, n *Notification) error {
	payload := discordWebhookPayload{
		Content: n.Title,
		Embeds:  []discordEmbed{buildEmbed(n)},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return d.send(req, d.Name())
}

func buildEmbed(n *Notification) discordEmbed {
	embed := discordEmbed{
		Title:       n.Detail.Name,
		URL:         n.ClickURL,
		Color:       colorBlue,
		Description: n.Body,
		Fields: []discordEmbedField{
			{Name: "Item ID", Value: n.ItemID.String(), Inline: true},
		},
	}
	if embed.Title == "" {
		embed.Title = n.Title
	}
	if n.Detail.Price != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Price", Value: n.Detail.Price, Inline: true})
	}
	if lu := n.Detail.IsLimitedUnique; lu != nil && *lu {
		embed.Color = colorGold
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Limited", Value: "Unique", Inline: true})
	}
	if n.IconURL != "" {
		embed.Thumbnail = &discordThumbnail{URL: n.IconURL}
	}
	return embed
}
