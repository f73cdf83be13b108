package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/moimlab/moim/internal/auth/provider"
)

// Config is the full runtime configuration, read from the environment.
type Config struct {
	Env       string
	Port      string
	LogLevel  string
	LogFormat string

	DatabaseFile string

	SigningKey      string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	MaxRefreshTokens int
	SweepInterval    time.Duration

	ShutdownGracePeriod time.Duration

	Google provider.Credentials
	Naver  provider.Credentials
	Kakao  provider.Credentials
}

// LoadConfig reads configuration from the environment. Missing required
// values fail fast at startup rather than at first use.
func LoadConfig() (Config, error) {
	cfg := Config{
		Env:       getEnvOrDefault("ENV", "development"),
		Port:      getEnvOrDefault("PORT", "8080"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		DatabaseFile: getEnvOrDefault("MOIM_DATABASE_FILE", "moim.db"),

		SigningKey: os.Getenv("MOIM_SIGNING_KEY"),
		Issuer:     getEnvOrDefault("MOIM_ISSUER", "moim"),

		RefreshTokenTTL:  getEnvDurationOrDefault("MOIM_REFRESH_TOKEN_TTL", 168*time.Hour),
		MaxRefreshTokens: getEnvIntOrDefault("MOIM_MAX_REFRESH_TOKENS", 5),
		SweepInterval:    getEnvDurationOrDefault("MOIM_SWEEP_INTERVAL", time.Hour),

		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		Google: providerCredentials("GOOGLE"),
		Naver:  providerCredentials("NAVER"),
		Kakao:  providerCredentials("KAKAO"),
	}

	if cfg.SigningKey == "" {
		return Config{}, fmt.Errorf("MOIM_SIGNING_KEY is required")
	}

	// No safe default exists for the access-token lifetime; make the
	// deployment choose one.
	raw := os.Getenv("MOIM_ACCESS_TOKEN_TTL")
	if raw == "" {
		return Config{}, fmt.Errorf("MOIM_ACCESS_TOKEN_TTL is required (e.g. 15m)")
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil || ttl <= 0 {
		return Config{}, fmt.Errorf("MOIM_ACCESS_TOKEN_TTL: invalid duration %q", raw)
	}
	cfg.AccessTokenTTL = ttl

	return cfg, nil
}

func providerCredentials(name string) provider.Credentials {
	return provider.Credentials{
		ClientID:     os.Getenv("MOIM_" + name + "_CLIENT_ID"),
		ClientSecret: os.Getenv("MOIM_" + name + "_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("MOIM_" + name + "_REDIRECT_URL"),
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
