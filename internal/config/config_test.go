package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"SOCKET_PORT", "SOCKET_HTTPS_PORT", "CHALKBOARD_HOST",
		"CHALKBOARD_CERT_DIR", "CHALKBOARD_STORAGE_PATH", "CHALKBOARD_SHUTDOWN_TIMEOUT",
	} {
		os.Unsetenv(key)
	}

	cfg := Load()
	if cfg.Port != 3001 {
		t.Errorf("port = %d, want 3001", cfg.Port)
	}
	if cfg.HTTPSPort != 3002 {
		t.Errorf("https port = %d, want 3002", cfg.HTTPSPort)
	}
	if cfg.Host != "0.0.0.0" {
		t.Errorf("host = %q, want 0.0.0.0", cfg.Host)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("shutdown timeout = %v, want 30s", cfg.ShutdownTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SOCKET_PORT", "8080")
	t.Setenv("SOCKET_HTTPS_PORT", "8443")
	t.Setenv("CHALKBOARD_HOST", "127.0.0.1")
	t.Setenv("CHALKBOARD_SHUTDOWN_TIMEOUT", "5s")

	cfg := Load()
	if cfg.Port != 8080 || cfg.HTTPSPort != 8443 {
		t.Errorf("ports = %d/%d, want 8080/8443", cfg.Port, cfg.HTTPSPort)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("host = %q", cfg.Host)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("shutdown timeout = %v, want 5s", cfg.ShutdownTimeout)
	}
	if cfg.Addr() != "127.0.0.1:8080" || cfg.TLSAddr() != "127.0.0.1:8443" {
		t.Errorf("addrs = %s / %s", cfg.Addr(), cfg.TLSAddr())
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SOCKET_PORT", "not-a-number")
	t.Setenv("CHALKBOARD_SHUTDOWN_TIMEOUT", "soon")

	cfg := Load()
	if cfg.Port != 3001 {
		t.Errorf("malformed port should fall back, got %d", cfg.Port)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("malformed timeout should fall back, got %v", cfg.ShutdownTimeout)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port:            3001,
			HTTPSPort:       3002,
			Host:            "0.0.0.0",
			ShutdownTimeout: time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Port = 70000 }, true},
		{"https port zero", func(c *Config) { c.HTTPSPort = 0 }, true},
		{"ports collide", func(c *Config) { c.HTTPSPort = c.Port }, true},
		{"empty host", func(c *Config) { c.Host = "" }, true},
		{"no shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDiscoverCertsFindsPair(t *testing.T) {
	dir := t.TempDir()
	write := func(name string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("pem"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("localhost+2.pem")
	write("localhost+2-key.pem")
	write("unrelated.pem")

	pair := DiscoverCerts(dir)
	if pair == nil {
		t.Fatal("pair not discovered")
	}
	if filepath.Base(pair.CertFile) != "localhost+2.pem" {
		t.Errorf("cert = %s", pair.CertFile)
	}
	if filepath.Base(pair.KeyFile) != "localhost+2-key.pem" {
		t.Errorf("key = %s", pair.KeyFile)
	}
}

func TestDiscoverCertsSearchesParent(t *testing.T) {
	parent := t.TempDir()
	child := filepath.Join(parent, "server")
	if err := os.Mkdir(child, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"localhost.pem", "localhost-key.pem"} {
		if err := os.WriteFile(filepath.Join(parent, name), []byte("pem"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if pair := DiscoverCerts(child); pair == nil {
		t.Error("pair in parent directory not discovered")
	}
}

func TestDiscoverCertsRequiresBothHalves(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "localhost.pem"), []byte("pem"), 0o600); err != nil {
		t.Fatal(err)
	}
	if pair := DiscoverCerts(dir); pair != nil {
		t.Errorf("half a pair discovered: %+v", pair)
	}
	if pair := DiscoverCerts(filepath.Join(dir, "missing")); pair != nil {
		t.Errorf("pair discovered in missing dir: %+v", pair)
	}
}
