package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/item-notifier/internal/catalog"
)

// staticToken is a TokenProvider and TokenRefresher holding one value.
type staticToken struct {
	mu    sync.Mutex
	token string
}

func (s *staticToken) Token(context.Context) (string, error) {
	return s.current(), nil
}

func (s *staticToken) Refresh(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *staticToken) current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func TestMetaTokenProvider_Token(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		page    string
		want    string
		wantErr error
	}{
		{
			name:   "reads meta tag",
			status: http.StatusOK,
			page:   `<html><head><meta name="csrf-token" content=" abc123 "></head><body></body></html>`,
			want:   "abc123",
		},
		{
			name:    "missing meta tag",
			status:  http.StatusOK,
			page:    `<html><head><title>x</title></head></html>`,
			wantErr: catalog.ErrMissingField,
		},
		{
			name:    "empty content",
			status:  http.StatusOK,
			page:    `<meta name="csrf-token" content="">`,
			wantErr: catalog.ErrMissingField,
		},
		{
			name:    "page not found",
			status:  http.StatusNotFound,
			wantErr: catalog.ErrNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.page))
			}))
			defer srv.Close()

			p := catalog.NewMetaTokenProvider(srv.URL, nil)
			got, err := p.Token(context.Background())

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetaTokenProvider_Request(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cancel  bool
		wantErr error
	}{
		{name: "asks for html"},
		{name: "cancelled context", cancel: true, wantErr: catalog.ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "text/html", r.Header.Get("Accept"))
				_, _ = w.Write([]byte(`<meta name="csrf-token" content="tok">`))
			}))
			defer srv.Close()

			ctx, cancel := context.WithCancel(context.Background())
			if tt.cancel {
				cancel()
			} else {
				defer cancel()
			}

			got, err := catalog.NewMetaTokenProvider(srv.URL, srv.Client()).Token(ctx)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "tok", got)
		})
	}
}

func TestMetaTokenProvider_CachesUntilRefresh(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`<meta name="csrf-token" content="page-token">`))
	}))
	defer srv.Close()

	p := catalog.NewMetaTokenProvider(srv.URL, srv.Client())

	for range 3 {
		tok, err := p.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "page-token", tok)
	}
	assert.Equal(t, int32(1), hits.Load())

	p.Refresh("pushed")
	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pushed", tok)

	p.Refresh("")
	_, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestHeaderTokenProvider_Token(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		header  string
		status  int
		want    string
		wantErr error
	}{
		{name: "token on rejection", header: "side-channel", status: http.StatusForbidden, want: "side-channel"},
		{name: "token on success", header: "ok-token", status: http.StatusOK, want: "ok-token"},
		{name: "no header", status: http.StatusForbidden, wantErr: catalog.ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				if tt.header != "" {
					w.Header().Set("x-csrf-token", tt.header)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := catalog.NewHeaderTokenProvider(srv.URL, nil)
			got, err := p.Token(context.Background())

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeaderTokenProvider_UsedBySource(t *testing.T) {
	t.Parallel()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-CSRF-Token", "from-post")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer tokenSrv.Close()

	listSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-CSRF-Token") != "from-post" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":1,"name":"a"}]}`))
	}))
	defer listSrv.Close()

	src := catalog.NewHTTPSource(listSrv.URL, "",
		catalog.WithTokenProvider(catalog.NewHeaderTokenProvider(tokenSrv.URL, nil)),
	)
	items, err := src.FetchFeatured(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
