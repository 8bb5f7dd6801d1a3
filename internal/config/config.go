package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	Providers     ProvidersConfig
	Agent         AgentConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig selects the serving database. Driver is "sqlite" or
// "postgres"; Path is used by sqlite, DSN by postgres.
type DatabaseConfig struct {
	Driver          string
	Path            string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type ProvidersConfig struct {
	Anthropic AnthropicConfig
	Groq      GroqConfig
	Ollama    OllamaConfig
}

type AnthropicConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type GroqConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type OllamaConfig struct {
	BaseURL      string
	Model        string
	Timeout      time.Duration
	ProbeTimeout time.Duration
}

type AgentConfig struct {
	ProviderTimeout time.Duration
	QueryTimeout    time.Duration
	MaxRows         int
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("ASKDB_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid ASKDB_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "ASKDB_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_DB_DRIVER", &cfg.Database.Driver); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_DB_PATH", &cfg.Database.Path); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_DB_DSN", &cfg.Database.DSN); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_DB_CONN_MAX_IDLE_TIME", &cfg.Database.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_ANTHROPIC_BASE_URL", &cfg.Providers.Anthropic.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANTHROPIC_API_KEY", &cfg.Providers.Anthropic.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_ANTHROPIC_MODEL", &cfg.Providers.Anthropic.Model); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_ANTHROPIC_MAX_TOKENS", &cfg.Providers.Anthropic.MaxTokens); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_ANTHROPIC_TIMEOUT", &cfg.Providers.Anthropic.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_GROQ_BASE_URL", &cfg.Providers.Groq.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "GROQ_API_KEY", &cfg.Providers.Groq.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_GROQ_MODEL", &cfg.Providers.Groq.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "ASKDB_GROQ_TEMPERATURE", &cfg.Providers.Groq.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_GROQ_TIMEOUT", &cfg.Providers.Groq.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_OLLAMA_BASE_URL", &cfg.Providers.Ollama.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_OLLAMA_MODEL", &cfg.Providers.Ollama.Model); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_OLLAMA_TIMEOUT", &cfg.Providers.Ollama.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_OLLAMA_PROBE_TIMEOUT", &cfg.Providers.Ollama.ProbeTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_AGENT_PROVIDER_TIMEOUT", &cfg.Agent.ProviderTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_AGENT_QUERY_TIMEOUT", &cfg.Agent.QueryTimeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_AGENT_MAX_ROWS", &cfg.Agent.MaxRows); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ASKDB_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "ASKDB_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ASKDB_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.Path == "" {
			return Config{}, fmt.Errorf("ASKDB_DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if cfg.Database.DSN == "" {
			return Config{}, fmt.Errorf("ASKDB_DB_DSN is required for the postgres driver")
		}
	default:
		return Config{}, fmt.Errorf("invalid ASKDB_DB_DRIVER: %q", cfg.Database.Driver)
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "askdb-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			Path:            "./data/sales.db",
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Providers: ProvidersConfig{
			Anthropic: AnthropicConfig{
				BaseURL:   "https://api.anthropic.com",
				Model:     "claude-sonnet-4-20250514",
				MaxTokens: 1024,
				Timeout:   30 * time.Second,
			},
			Groq: GroqConfig{
				BaseURL:     "https://api.groq.com/openai",
				Model:       "llama-3.3-70b-versatile",
				Temperature: 0,
				Timeout:     30 * time.Second,
			},
			Ollama: OllamaConfig{
				BaseURL:      "http://localhost:11434",
				Model:        "llama3",
				Timeout:      60 * time.Second,
				ProbeTimeout: 2 * time.Second,
			},
		},
		Agent: AgentConfig{
			ProviderTimeout: 30 * time.Second,
			QueryTimeout:    10 * time.Second,
			MaxRows:         1000,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
