package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all service settings.
type Config struct {
	Server  ServerConfig
	Auth    AuthConfig
	Storage StorageConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr      string
	StaticDir string
}

// AuthConfig describes token signing and the seeded moderation account.
type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string
}

// StorageConfig describes the account database location.
type StorageConfig struct {
	DBPath string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Auth:   auth,
		Storage: StorageConfig{
			DBPath: getEnvOrDefault("SQLITE_PATH", "./data/echofeed.db"),
		},
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3000"
	}

	cfg := ServerConfig{
		StaticDir: strings.TrimSpace(os.Getenv("STATIC_DIR")),
	}

	if strings.Contains(port, ":") {
		// Allow ":3000" or "127.0.0.1:3000" directly.
		cfg.Addr = port
		return cfg, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

func loadAuthConfig() (AuthConfig, error) {
	ttlHours, err := parseOptionalIntEnv("TOKEN_TTL_HOURS")
	if err != nil {
		return AuthConfig{}, err
	}
	ttl := 72 * time.Hour
	if ttlHours != nil {
		if *ttlHours < 1 {
			return AuthConfig{}, fmt.Errorf("TOKEN_TTL_HOURS must be positive, got %d", *ttlHours)
		}
		ttl = time.Duration(*ttlHours) * time.Hour
	}

	return AuthConfig{
		JWTSecret:     getEnvOrDefault("JWT_SECRET", "echofeed-dev-secret"),
		TokenTTL:      ttl,
		AdminUsername: getEnvOrDefault("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnvOrDefault("ADMIN_PASSWORD", "admin123"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
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
