package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

func boolPtr(b bool) *bool { return &b }

func testNotification() *Notification {
	return &Notification{
		ItemID:   "1234",
		Title:    "New Item Available!",
		Body:     "Press this notification to be redirected to Golden Crown.",
		IconURL:  "https://cdn.example/1234.png",
		ClickURL: "https://www.strrev.com/catalog/1234/Golden-Crown",
		Detail: domain.ItemDetail{
			Name:     "Golden Crown",
			ImageURL: "https://cdn.example/1234.png",
			Price:    "500",
		},
	}
}

func TestDiscordNotifier_Notify(t *testing.T) {
	t.Parallel()

	limited := testNotification()
	limited.Detail.IsLimitedUnique = boolPtr(true)

	tests := []struct {
		name       string
		notif      *Notification
		statusCode int
		wantErr    bool
		errMsg     string
		wantColor  int
	}{
		{
			name:       "regular item",
			notif:      testNotification(),
			statusCode: http.StatusNoContent,
			wantColor:  colorBlue,
		},
		{
			name:       "limited unique item uses gold",
			notif:      limited,
			statusCode: http.StatusNoContent,
			wantColor:  colorGold,
		},
		{
			name:       "discord returns 429 rate limited",
			notif:      testNotification(),
			statusCode: http.StatusTooManyRequests,
			wantErr:    true,
			errMsg:     "rate limited",
		},
		{
			name:       "discord returns 400",
			notif:      testNotification(),
			statusCode: http.StatusBadRequest,
			wantErr:    true,
			errMsg:     "discord returned 400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var received discordWebhookPayload

			srv := httptest.NewServer(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
					assert.Equal(t, http.MethodPost, r.Method)

					err := json.NewDecoder(r.Body).Decode(&received)
					assert.NoError(t, err)

					w.WriteHeader(tt.statusCode)
				}),
			)
			defer srv.Close()

			d := NewDiscordNotifier(srv.URL)
			err := d.Notify(context.Background(), tt.notif)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.notif.Title, received.Content)
			require.Len(t, received.Embeds, 1)

			embed := received.Embeds[0]
			assert.Equal(t, tt.wantColor, embed.Color)
			assert.Equal(t, "Golden Crown", embed.Title)
			assert.Equal(t, tt.notif.ClickURL, embed.URL)
			assert.Equal(t, tt.notif.Body, embed.Description)
			require.NotNil(t, embed.Thumbnail)
			assert.Equal(t, tt.notif.IconURL, embed.Thumbnail.URL)

			fieldMap := make(map[string]string)
			for _, f := range embed.Fields {
				fieldMap[f.Name] = f.Value
			}
			assert.Equal(t, "1234", fieldMap["Item ID"])
			assert.Equal(t, "500", fieldMap["Price"])
		})
	}
}

func TestDiscordNotifier_PlaceholderDetail(t *testing.T) {
	t.Parallel()

	var received discordWebhookPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := json.NewDecoder(r.Body).Decode(&received)
		assert.NoError(t, err)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := testNotification()
	n.IconURL = ""
	n.Detail = domain.FallbackDetail()

	d := NewDiscordNotifier(srv.URL)
	require.NoError(t, d.Notify(context.Background(), n))

	require.Len(t, received.Embeds, 1)
	assert.Equal(t, domain.UnknownItemName, received.Embeds[0].Title)
	assert.Nil(t, received.Embeds[0].Thumbnail)
	assert.Len(t, received.Embeds[0].Fields, 1)
}

func TestDiscordNotifier_NetworkError(t *testing.T) {
	t.Parallel()

	d := NewDiscordNotifier("http://127.0.0.1:1") // nothing listening
	err := d.Notify(context.Background(), testNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending discord notification")
}

func TestDiscordNotifier_InvalidWebhookURL(t *testing.T) {
	t.Parallel()

	d := NewDiscordNotifier("://not-a-valid-url")
	err := d.Notify(context.Background(), testNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating discord request")
}

// compile-time interface check.
var _ Notifier = (*DiscordNotifier)(nil)
