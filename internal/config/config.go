package config

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/skinmatch/chatbot/backend/internal/service/ai/openaichat"
)

// Model providers.
const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
)

// Config aggregates every setting of the service. It is read once at startup.
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Log     LogConfig
	Session SessionConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Log: logCfg, Session: session}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	host := getEnvOrDefault("HOST", "0.0.0.0")
	port := getEnvOrDefault("PORT", "8010")

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid PORT value %q: %w", port, err)
	}

	return ServerConfig{
		Addr:           net.JoinHostPort(host, port),
		AllowedOrigins: splitList(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
	}, nil
}

// AIConfig describes the chat model used for consultations.
type AIConfig struct {
	Provider    string
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	MaxTokens   *int
	Timeout     time.Duration
}

// Enabled reports whether the credentials required by the provider are present.
func (c AIConfig) Enabled() bool {
	if c.Model == "" {
		return false
	}
	switch c.Provider {
	case ProviderArk:
		return c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != "")
	default:
		return c.APIKey != ""
	}
}

// NewChatModel creates the configured chat model.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("model credentials missing for provider %q: set MODEL and the provider API key", c.Provider)
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	switch c.Provider {
	case ProviderArk:
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.BaseURL,
			Region:      c.Region,
			APIKey:      c.APIKey,
			AccessKey:   c.AccessKey,
			SecretKey:   c.SecretKey,
			Model:       c.Model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
	case ProviderOpenAI:
		return openaichat.NewChatModel(openaichat.Config{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown MODEL_PROVIDER %q", c.Provider)
	}
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("MODEL_PROVIDER", ProviderOpenAI))
	if provider != ProviderOpenAI && provider != ProviderArk {
		return AIConfig{}, fmt.Errorf("invalid MODEL_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("MODEL_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		defaultTemperature := 0.3
		temperature = &defaultTemperature
	}

	maxTokens, err := parseOptionalIntEnv("MODEL_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("MODEL_TIMEOUT", 60*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		Provider:    provider,
		Model:       getEnvOrDefault("MODEL", "gpt-4o-mini"),
		BaseURL:     getEnvOrDefault("MODEL_BASE_URL", ""),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Timeout:     timeout,
	}

	if provider == ProviderArk {
		cfg.APIKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		cfg.AccessKey = strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY"))
		cfg.SecretKey = strings.TrimSpace(os.Getenv("ARK_SECRET_KEY"))
		cfg.Region = getEnvOrDefault("ARK_REGION", "cn-beijing")
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://ark.cn-beijing.volces.com/api/v3"
		}
	} else {
		cfg.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}

	return cfg, nil
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string
	Pretty bool
}

func loadLogConfig() (LogConfig, error) {
	pretty, err := parseBoolEnv("LOG_PRETTY", false)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Pretty: pretty,
	}, nil
}

// SessionConfig controls idle-session eviction. A zero TTL keeps sessions
// until they are deleted explicitly.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	ttl, err := parseDurationEnv("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return SessionConfig{}, err
	}
	interval, err := parseDurationEnv("SESSION_SWEEP_INTERVAL", 5*time.Minute)
	if err != nil {
		return SessionConfig{}, err
	}
	if ttl < 0 || interval < 0 {
		return SessionConfig{}, fmt.Errorf("SESSION_TTL and SESSION_SWEEP_INTERVAL must not be negative")
	}
	return SessionConfig{TTL: ttl, SweepInterval: interval}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
