package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNtfyNotifier_Notify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		token      string
		priority   string
		iconURL    string
		statusCode int
		wantErr    string
		wantHeader map[string]string
		noHeader   []string
	}{
		{
			name:       "sets click and icon",
			priority:   "default",
			iconURL:    "https://cdn.example/1234.png",
			statusCode: http.StatusOK,
			wantHeader: map[string]string{
				"Title": "New Item Available!",
				"Click": "https://www.strrev.com/catalog/1234/Golden-Crown",
				"Icon":  "https://cdn.example/1234.png",
			},
			noHeader: []string{"Priority", "Authorization"},
		},
		{
			name:       "token and priority",
			token:      "tk_secret",
			priority:   "high",
			statusCode: http.StatusOK,
			wantHeader: map[string]string{
				"Authorization": "Bearer tk_secret",
				"Priority":      "high",
			},
			noHeader: []string{"Icon"},
		},
		{
			name:       "forbidden topic",
			statusCode: http.StatusForbidden,
			wantErr:    "ntfy returned 403: forbidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var (
				gotHeader http.Header
				gotBody   string
			)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotHeader = r.Header.Clone()
				b, _ := io.ReadAll(r.Body)
				gotBody = string(b)
				w.WriteHeader(tt.statusCode)
				if tt.statusCode >= 300 {
					_, _ = w.Write([]byte("forbidden\n"))
				}
			}))
			defer srv.Close()

			n := testNotification()
			n.IconURL = tt.iconURL

			err := NewNtfyNotifier(srv.URL+"/items", tt.token, tt.priority).Notify(context.Background(), n)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, n.Body, gotBody)
			assert.Equal(t, "item-notifier", gotHeader.Get("User-Agent"))
			for k, v := range tt.wantHeader {
				assert.Equal(t, v, gotHeader.Get(k), k)
			}
			for _, k := range tt.noHeader {
				assert.Empty(t, gotHeader.Get(k), k)
			}
		})
	}
}

// compile-time interface check.
var _ Notifier = (*NtfyNotifier)(nil)
