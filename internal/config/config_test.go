package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

const minimalYAML = `
catalog:
  base_url: https://www.example.com
  list_endpoint: https://www.example.com/apisite/catalog/v1/search/items?category=Featured
`

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid minimal config",
			yaml: minimalYAML,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "https://www.example.com", cfg.Catalog.BaseURL)
				assert.Contains(t, cfg.Catalog.ListEndpoint, "category=Featured")
			},
		},
		{
			name: "defaults applied for optional fields",
			yaml: minimalYAML,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.True(t, cfg.Server.IsEnabled())
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "data", cfg.Catalog.ItemsField)
				assert.Equal(t, "html", cfg.Catalog.DetailMode)
				assert.Equal(t, "{base}/catalog/{id}/{slug}", cfg.Catalog.ItemPageTemplate)
				assert.Equal(t, "none", cfg.Catalog.CSRF.Mode)
				assert.Equal(t, 10*time.Second, cfg.Catalog.RequestTimeout)
				assert.InDelta(t, 2.0, cfg.Catalog.RateLimit.PerSecond, 0.001)
				assert.Equal(t, 2, cfg.Catalog.RateLimit.Burst)
				assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
				assert.Equal(t, domain.PolicyMostRecentOnly, cfg.Poll.Policy)
				assert.Equal(t, "file", cfg.State.Backend)
				assert.Equal(t, "item-notifier-state.json", cfg.State.Path)
				assert.Equal(t, "lastSeenItemId", cfg.State.Key)
				assert.Equal(t, "item-notifier", cfg.Telemetry.ServiceName)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "detail endpoint implies api mode",
			yaml: minimalYAML + `
  detail_endpoint: https://www.example.com/apisite/catalog/v1/catalog/items/{id}/details
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "api", cfg.Catalog.DetailMode)
			},
		},
		{
			name: "env var substitution",
			yaml: minimalYAML + `
notifications:
  ntfy:
    enabled: true
    url: ${NTFY_TOPIC_URL}
`,
			envVars: map[string]string{"NTFY_TOPIC_URL": "https://ntfy.sh/featured"},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "https://ntfy.sh/featured", cfg.Notifications.Ntfy.URL)
			},
		},
		{
			name: "all unseen policy",
			yaml: minimalYAML + `
poll:
  interval: 1500ms
  policy: all-unseen
state:
  backend: sqlite
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, 1500*time.Millisecond, cfg.Poll.Interval)
				assert.Equal(t, domain.PolicyAllUnseen, cfg.Poll.Policy)
				assert.Equal(t, "item-notifier-state.db", cfg.State.Path)
			},
		},
		{
			name: "daily catalog budget",
			yaml: minimalYAML + "  rate_limit:\n    daily: 5000\n",
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, int64(5000), cfg.Catalog.RateLimit.Daily)
				assert.Equal(t, 2, cfg.Catalog.RateLimit.Burst)
			},
		},
		{
			name: "server can be disabled",
			yaml: minimalYAML + `
server:
  enabled: false
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.False(t, cfg.Server.IsEnabled())
			},
		},
		{
			name:    "missing list endpoint",
			yaml:    "catalog:\n  base_url: https://www.example.com\n",
			wantErr: "catalog.list_endpoint is required",
		},
		{
			name:    "interval too short",
			yaml:    minimalYAML + "poll:\n  interval: 100ms\n",
			wantErr: "poll.interval must be between",
		},
		{
			name:    "negative daily budget",
			yaml:    minimalYAML + "  rate_limit:\n    daily: -1\n",
			wantErr: "catalog.rate_limit values must not be negative",
		},
		{
			name:    "unknown policy",
			yaml:    minimalYAML + "poll:\n  policy: sometimes\n",
			wantErr: "poll.policy must be one of",
		},
		{
			name: "api mode without endpoints",
			yaml: `
catalog:
  list_endpoint: https://www.example.com/list
  detail_mode: api
`,
			wantErr: "detail_endpoint or catalog.thumbnail_endpoint is required",
		},
		{
			name: "html mode without base url",
			yaml: `
catalog:
  list_endpoint: https://www.example.com/list
`,
			wantErr: "catalog.base_url is required when detail_mode is html",
		},
		{
			name:    "header csrf without token url",
			yaml:    minimalYAML + "  csrf:\n    mode: header\n",
			wantErr: "catalog.csrf.token_url is required",
		},
		{
			name:    "postgres without dsn",
			yaml:    minimalYAML + "state:\n  backend: postgres\n",
			wantErr: "state.dsn is required",
		},
		{
			name:    "unknown state backend",
			yaml:    minimalYAML + "state:\n  backend: redis\n",
			wantErr: "state.backend must be one of",
		},
		{
			name:    "discord enabled without url",
			yaml:    minimalYAML + "notifications:\n  discord:\n    enabled: true\n",
			wantErr: "notifications.discord.webhook_url is required",
		},
		{
			name:    "invalid yaml",
			yaml:    "catalog: [",
			wantErr: "parsing config YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Only parallelize tests that don't modify env vars.
			if len(tt.envVars) == 0 {
				t.Parallel()
			}

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cfg, err := Load(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join("..", "..", "configs", "config.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DetailModeAPI, cfg.Catalog.DetailMode)
	assert.Equal(t, CSRFModeNone, cfg.Catalog.CSRF.Mode)
	assert.Equal(t, StateBackendFile, cfg.State.Backend)
	assert.Equal(t, domain.PolicyMostRecentOnly, cfg.Poll.Policy)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.False(t, cfg.Notifications.Ntfy.Enabled)
}

func TestValidate_JoinsErrors(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("poll:\n  policy: nope\nstate:\n  backend: redis\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.list_endpoint is required")
	assert.Contains(t, err.Error(), "poll.policy must be one of")
	assert.Contains(t, err.Error(), "state.backend must be one of")
}

func TestRestartRequired(t *testing.T) {
	t.Parallel()

	base, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	t.Run("poll change is live", func(t *testing.T) {
		t.Parallel()
		next, err := Parse([]byte(minimalYAML + "poll:\n  interval: 10s\n"))
		require.NoError(t, err)
		assert.Empty(t, RestartRequired(base, next))
	})

	t.Run("catalog and server changes need restart", func(t *testing.T) {
		t.Parallel()
		next, err := Parse([]byte(minimalYAML + "  items_field: items\nserver:\n  port: 9090\n"))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"catalog", "server"}, RestartRequired(base, next))
	})

	t.Run("webhook headers compared by value", func(t *testing.T) {
		t.Parallel()
		y := minimalYAML + "notifications:\n  webhook:\n    enabled: true\n    url: http://x\n    headers:\n      A: b\n"
		a, err := Parse([]byte(y))
		require.NoError(t, err)
		b, err := Parse([]byte(y))
		require.NoError(t, err)
		assert.Empty(t, RestartRequired(a, b))
	})
}
