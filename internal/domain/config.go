package domain

import (
	"os"
	"strconv"
	"time"
)

// Config holds the complete IDTrace configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Provider credentials and switches
	Providers ProviderConfig `json:"providers"`

	// Scan pipeline settings
	Scan ScanConfig `json:"scan"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Advisor (LLM narrative analysis) settings
	Advisor AdvisorConfig `json:"advisor"`

	// Alert policy expression for monitor scans
	AlertPolicy string `json:"alertPolicy"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// ScanConfig bounds the aggregation pipeline.
type ScanConfig struct {
	// ProviderTimeout caps each provider call; a timed-out provider is
	// recorded as failed, exactly like an error.
	ProviderTimeout time.Duration `json:"providerTimeout"`

	// RateLimitPerMinute caps scans per client IP. Zero disables.
	RateLimitPerMinute int `json:"rateLimitPerMinute"`
}

// AdvisorConfig holds settings for the text-generation collaborator.
// An empty APIKey disables the advisor; callers then receive the static
// fallback text.
type AdvisorConfig struct {
	APIKey  string        `json:"-"`
	Model   string        `json:"model"`
	BaseURL string        `json:"baseUrl,omitempty"`
	Timeout time.Duration `json:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// DefaultConfig returns a single-node configuration: SQLite, in-memory
// LRU cache, channel bus, all free providers enabled.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 60,
		},
		Providers: ProviderConfig{
			LeakCheckEnabled: true,
			MaigretBinary:    "maigret",
			MaigretTopSites:  20,
		},
		Scan: ScanConfig{
			ProviderTimeout:    10 * time.Second,
			RateLimitPerMinute: 30,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./idtrace.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
			ProfileTTL:   15 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Advisor: AdvisorConfig{
			Model:   "gpt-4o-mini",
			Timeout: 15 * time.Second,
		},
		AlertPolicy: "breaches > 0 || score < 65",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "idtrace",
		},
	}
}

// LoadFromEnv overlays IDTRACE_* environment variables onto the config.
// Only set variables override; everything else keeps its default.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("IDTRACE_HOST"); v != "" {
		c.Server.Host = v
	}
	if v, ok := envInt("IDTRACE_PORT"); ok {
		c.Server.Port = v
	}

	if v := os.Getenv("DEHASHED_USER"); v != "" {
		c.Providers.DeHashedUser = v
	}
	if v := os.Getenv("DEHASHED_API_KEY"); v != "" {
		c.Providers.DeHashedAPIKey = v
	}
	if v := os.Getenv("INTELX_API_KEY"); v != "" {
		c.Providers.IntelXAPIKey = v
	}
	if v := os.Getenv("IDTRACE_MAIGRET_BIN"); v != "" {
		c.Providers.MaigretBinary = v
	}

	if v, ok := envInt("IDTRACE_PROVIDER_TIMEOUT_SECS"); ok {
		c.Scan.ProviderTimeout = time.Duration(v) * time.Second
	}
	if v, ok := envInt("IDTRACE_RATE_LIMIT_PER_MIN"); ok {
		c.Scan.RateLimitPerMinute = v
	}

	if v := os.Getenv("IDTRACE_DB_DRIVER"); v != "" {
		c.Repository.Driver = v
	}
	if v := os.Getenv("IDTRACE_SQLITE_PATH"); v != "" {
		c.Repository.SQLitePath = v
	}
	if v := os.Getenv("IDTRACE_POSTGRES_HOST"); v != "" {
		c.Repository.PostgresHost = v
	}
	if v, ok := envInt("IDTRACE_POSTGRES_PORT"); ok {
		c.Repository.PostgresPort = v
	}
	if v := os.Getenv("IDTRACE_POSTGRES_USER"); v != "" {
		c.Repository.PostgresUser = v
	}
	if v := os.Getenv("IDTRACE_POSTGRES_PASSWORD"); v != "" {
		c.Repository.PostgresPassword = v
	}
	if v := os.Getenv("IDTRACE_POSTGRES_DB"); v != "" {
		c.Repository.PostgresDB = v
	}

	if v := os.Getenv("IDTRACE_CACHE"); v != "" {
		c.Cache.Type = v
	}
	if v := os.Getenv("IDTRACE_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("IDTRACE_REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}

	if v := os.Getenv("IDTRACE_BUS"); v != "" {
		c.EventBus.Type = v
	}
	if v := os.Getenv("IDTRACE_NATS_URL"); v != "" {
		c.EventBus.NATSUrl = v
	}
	if v := os.Getenv("IDTRACE_NATS_TOKEN"); v != "" {
		c.EventBus.NATSToken = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Advisor.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.Advisor.Model = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.Advisor.BaseURL = v
	}

	if v := os.Getenv("IDTRACE_ALERT_POLICY"); v != "" {
		c.AlertPolicy = v
	}

	if v := os.Getenv("IDTRACE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if os.Getenv("IDTRACE_TRACING") == "true" {
		c.Tracing.Enabled = true
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
