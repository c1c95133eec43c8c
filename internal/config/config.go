package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds relay server settings.
type Config struct {
	// Port serves plain WebSocket and HTTP traffic.
	Port int
	// HTTPSPort serves the same traffic over TLS when certificates are
	// discoverable; ignored otherwise.
	HTTPSPort int
	Host      string
	// CertDir is where certificate discovery starts.
	CertDir string
	// StoragePath is the on-device sqlite store used by client tooling
	// (clear-locks) running on the same machine.
	StoragePath string

	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, honoring a local .env
// file when present. Missing variables fall back to defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:            getEnvAsIntOrDefault("SOCKET_PORT", 3001),
		HTTPSPort:       getEnvAsIntOrDefault("SOCKET_HTTPS_PORT", 3002),
		Host:            getEnvOrDefault("CHALKBOARD_HOST", "0.0.0.0"),
		CertDir:         getEnvOrDefault("CHALKBOARD_CERT_DIR", "."),
		StoragePath:     getEnvOrDefault("CHALKBOARD_STORAGE_PATH", "./chalkboard.db"),
		ShutdownTimeout: getEnvAsDurationOrDefault("CHALKBOARD_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.HTTPSPort <= 0 || c.HTTPSPort > 65535 {
		return fmt.Errorf("https port must be between 1 and 65535")
	}
	if c.Port == c.HTTPSPort {
		return fmt.Errorf("http and https ports must differ")
	}
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// Addr returns the plain listener address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TLSAddr returns the TLS listener address.
func (c *Config) TLSAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPSPort)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvAsDurationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
