// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

// Poll interval bounds. Shorter intervals trade API load for latency.
const (
	MinPollInterval = time.Second
	MaxPollInterval = time.Hour
)

// State backends.
const (
	StateBackendMemory   = "memory"
	StateBackendFile     = "file"
	StateBackendSQLite   = "sqlite"
	StateBackendPostgres = "postgres"
)

// Detail modes select the catalog.DetailFetcher.
const (
	DetailModeAPI  = "api"
	DetailModeHTML = "html"
	DetailModeNone = "none"
)

// CSRF token modes.
const (
	CSRFModeNone   = "none"
	CSRFModeMeta   = "meta"
	CSRFModeHeader = "header"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Poll          PollConfig          `yaml:"poll"`
	State         StateConfig         `yaml:"state"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Enabled      *bool         `yaml:"enabled"` // default: true
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// IsEnabled reports whether the HTTP control surface should be served.
func (s *ServerConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// CatalogConfig defines the remote catalog API.
type CatalogConfig struct {
	BaseURL           string          `yaml:"base_url"`
	ListEndpoint      string          `yaml:"list_endpoint"`
	ItemsField        string          `yaml:"items_field"` // data, items
	DetailEndpoint    string          `yaml:"detail_endpoint"`
	ThumbnailEndpoint string          `yaml:"thumbnail_endpoint"`
	DetailMode        string          `yaml:"detail_mode"` // api, html, none
	ItemPageTemplate  string          `yaml:"item_page_template"`
	HTML              HTMLConfig      `yaml:"html"`
	CSRF              CSRFConfig      `yaml:"csrf"`
	RequestTimeout    time.Duration   `yaml:"request_timeout"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
	UserAgent         string          `yaml:"user_agent"`
}

// HTMLConfig defines the CSS selectors used by the HTML detail scraper.
type HTMLConfig struct {
	NameSelector  string `yaml:"name_selector"`
	ImageSelector string `yaml:"image_selector"`
	PriceSelector string `yaml:"price_selector"`
}

// CSRFConfig defines how the anti-forgery token is obtained.
type CSRFConfig struct {
	Mode     string `yaml:"mode"` // none, meta, header
	PageURL  string `yaml:"page_url"`
	TokenURL string `yaml:"token_url"`
}

// RateLimitConfig defines catalog API rate limiting settings.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
	// Daily caps requests per rolling 24-hour window. 0 means unlimited.
	Daily     int64   `yaml:"daily"`
}

// PollConfig defines the poll cycle.
type PollConfig struct {
	Interval time.Duration       `yaml:"interval"`
	Policy   domain.NotifyPolicy `yaml:"policy"`
}

// StateConfig defines where the last-seen checkpoint is persisted.
type StateConfig struct {
	Backend string `yaml:"backend"` // memory, file, sqlite, postgres
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
	Key     string `yaml:"key"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Ntfy    NtfyConfig    `yaml:"ntfy"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// NtfyConfig defines ntfy push settings.
type NtfyConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"` // topic URL, e.g. https://ntfy.sh/my-topic
	Token    string `yaml:"token"`
	Priority string `yaml:"priority"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// TelemetryConfig defines OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, auto
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes raw YAML, applying defaults and validation.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyCatalogDefaults(&cfg.Catalog)
	applyPollDefaults(&cfg.Poll)
	applyStateDefaults(&cfg.State)
	applyNotificationDefaults(&cfg.Notifications)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyCatalogDefaults(c *CatalogConfig) {
	if c.ItemsField == "" {
		c.ItemsField = "data"
	}
	if c.DetailMode == "" {
		if c.DetailEndpoint != "" || c.ThumbnailEndpoint != "" {
			c.DetailMode = DetailModeAPI
		} else {
			c.DetailMode = DetailModeHTML
		}
	}
	if c.ItemPageTemplate == "" {
		c.ItemPageTemplate = "{base}/catalog/{id}/{slug}"
	}
	if c.HTML.NameSelector == "" {
		c.HTML.NameSelector = `div.col-10 h1[class^="title-"]`
	}
	if c.HTML.ImageSelector == "" {
		c.HTML.ImageSelector = `img[src*="/images/thumbnails/"]`
	}
	if c.CSRF.Mode == "" {
		c.CSRF.Mode = CSRFModeNone
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.RateLimit.PerSecond == 0 {
		c.RateLimit.PerSecond = 2.0
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 2
	}
	if c.UserAgent == "" {
		c.UserAgent = "item-notifier"
	}
}

func applyPollDefaults(p *PollConfig) {
	if p.Interval == 0 {
		p.Interval = 5 * time.Second
	}
	if p.Policy == "" {
		p.Policy = domain.PolicyMostRecentOnly
	}
}

func applyStateDefaults(s *StateConfig) {
	if s.Backend == "" {
		s.Backend = StateBackendFile
	}
	if s.Path == "" {
		switch s.Backend {
		case StateBackendFile:
			s.Path = "item-notifier-state.json"
		case StateBackendSQLite:
			s.Path = "item-notifier-state.db"
		}
	}
	if s.Key == "" {
		s.Key = "lastSeenItemId"
	}
}

func applyNotificationDefaults(n *NotificationsConfig) {
	if n.Ntfy.Priority == "" {
		n.Ntfy.Priority = "default"
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Endpoint == "" {
		t.Endpoint = "localhost:4317"
	}
	if t.ServiceName == "" {
		t.ServiceName = "item-notifier"
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Catalog.ListEndpoint == "" {
		errs = append(errs, fmt.Errorf("catalog.list_endpoint is required"))
	}

	if cfg.Poll.Interval < MinPollInterval || cfg.Poll.Interval > MaxPollInterval {
		errs = append(errs, fmt.Errorf(
			"poll.interval must be between %s and %s (got %s)",
			MinPollInterval, MaxPollInterval, cfg.Poll.Interval,
		))
	}

	if !cfg.Poll.Policy.Valid() {
		errs = append(errs, fmt.Errorf(
			"poll.policy must be one of: %s, %s (got %q)",
			domain.PolicyMostRecentOnly, domain.PolicyAllUnseen, cfg.Poll.Policy,
		))
	}

	errs = append(errs, validateCatalog(&cfg.Catalog)...)
	errs = append(errs, validateState(&cfg.State)...)
	errs = append(errs, validateNotifications(&cfg.Notifications)...)

	return errors.Join(errs...)
}

func validateCatalog(c *CatalogConfig) []error {
	var errs []error

	switch c.DetailMode {
	case DetailModeAPI:
		if c.DetailEndpoint == "" && c.ThumbnailEndpoint == "" {
			errs = append(errs, fmt.Errorf(
				"catalog.detail_endpoint or catalog.thumbnail_endpoint is required when detail_mode is api",
			))
		}
	case DetailModeHTML:
		if c.BaseURL == "" {
			errs = append(errs, fmt.Errorf("catalog.base_url is required when detail_mode is html"))
		}
	case DetailModeNone:
	default:
		errs = append(errs, fmt.Errorf(
			"catalog.detail_mode must be one of: api, html, none (got %q)", c.DetailMode,
		))
	}

	switch c.CSRF.Mode {
	case CSRFModeNone:
	case CSRFModeMeta:
		if c.CSRF.PageURL == "" && c.BaseURL == "" {
			errs = append(errs, fmt.Errorf("catalog.csrf.page_url or catalog.base_url is required when csrf mode is meta"))
		}
	case CSRFModeHeader:
		if c.CSRF.TokenURL == "" {
			errs = append(errs, fmt.Errorf("catalog.csrf.token_url is required when csrf mode is header"))
		}
	default:
		errs = append(errs, fmt.Errorf(
			"catalog.csrf.mode must be one of: none, meta, header (got %q)", c.CSRF.Mode,
		))
	}

	if c.RateLimit.PerSecond < 0 || c.RateLimit.Burst < 0 || c.RateLimit.Daily < 0 {
		errs = append(errs, fmt.Errorf("catalog.rate_limit values must not be negative"))
	}

	return errs
}

func validateState(s *StateConfig) []error {
	switch s.Backend {
	case StateBackendMemory:
	case StateBackendFile, StateBackendSQLite:
		if s.Path == "" {
			return []error{fmt.Errorf("state.path is required when backend is %s", s.Backend)}
		}
	case StateBackendPostgres:
		if s.DSN == "" {
			return []error{fmt.Errorf("state.dsn is required when backend is postgres")}
		}
	default:
		return []error{fmt.Errorf(
			"state.backend must be one of: memory, file, sqlite, postgres (got %q)", s.Backend,
		)}
	}
	return nil
}

func validateNotifications(n *NotificationsConfig) []error {
	var errs []error
	if n.Ntfy.Enabled && n.Ntfy.URL == "" {
		errs = append(errs, fmt.Errorf("notifications.ntfy.url is required when ntfy is enabled"))
	}
	if n.Discord.Enabled && n.Discord.WebhookURL == "" {
		errs = append(errs, fmt.Errorf("notifications.discord.webhook_url is required when discord is enabled"))
	}
	if n.Webhook.Enabled && n.Webhook.URL == "" {
		errs = append(errs, fmt.Errorf("notifications.webhook.url is required when webhook is enabled"))
	}
	return errs
}
