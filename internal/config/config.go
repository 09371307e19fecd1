package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	CORSOrigins        string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	JWTSecret          string
	JoinWindowLead     time.Duration
	ProviderOrder      []string
	ProviderTimeout    time.Duration
	DailyAPIKey        string
	DailyBaseURL       string
	JitsiBaseURL       string
	DescriptorCacheTTL time.Duration
	AuditSubject       string
	AuditBufferSize    int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CLASSROOM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Classroom Live API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("join.window_lead", "15m")
	v.SetDefault("provider.order", "daily,jitsi")
	v.SetDefault("provider.timeout", "30s")
	v.SetDefault("daily.base_url", "https://api.daily.co/v1")
	v.SetDefault("jitsi.base_url", "https://meet.jit.si")
	v.SetDefault("descriptor.cache_ttl", "5m")
	v.SetDefault("audit.subject", "classroom.audit")
	v.SetDefault("audit.buffer_size", 256)

	lead, err := time.ParseDuration(v.GetString("join.window_lead"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid join window lead: %w", err)
	}

	providerTimeout, err := time.ParseDuration(v.GetString("provider.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid provider timeout: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("descriptor.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid descriptor cache ttl: %w", err)
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		CORSOrigins:        v.GetString("cors.origins"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		JWTSecret:          v.GetString("jwt.secret"),
		JoinWindowLead:     lead,
		ProviderOrder:      splitProviderOrder(v.GetString("provider.order")),
		ProviderTimeout:    providerTimeout,
		DailyAPIKey:        v.GetString("daily.api_key"),
		DailyBaseURL:       v.GetString("daily.base_url"),
		JitsiBaseURL:       v.GetString("jitsi.base_url"),
		DescriptorCacheTTL: cacheTTL,
		AuditSubject:       v.GetString("audit.subject"),
		AuditBufferSize:    v.GetInt("audit.buffer_size"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if len(cfg.ProviderOrder) == 0 {
		return Config{}, fmt.Errorf("at least one meeting provider must be configured")
	}

	if cfg.AuditBufferSize <= 0 {
		cfg.AuditBufferSize = 256
	}

	return cfg, nil
}

func splitProviderOrder(order string) []string {
	parts := strings.Split(order, ",")
	providers := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		if name != "" {
			providers = append(providers, name)
		}
	}
	return providers
}
