package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Env:               "development",
		RegistryBaseURL:   "http://localhost:8081/ws/rest/v1",
		PHNIdentifierType: "a5d38e09-efcb-4d91-a526-50ce1ba5011a",
		MaxPhotoBytes:     2 << 20,
		PrintSink:         PrintSinkNone,
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REGISTRY_BASE_URL", "http://registry.local/ws/rest/v1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.RegistryBaseURL != "http://registry.local/ws/rest/v1" {
		t.Errorf("expected REGISTRY_BASE_URL to be set, got %s", cfg.RegistryBaseURL)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.RegistryTimeout != 30*time.Second {
		t.Errorf("expected default registry timeout 30s, got %s", cfg.RegistryTimeout)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("expected default session ttl 30m, got %s", cfg.SessionTTL)
	}
	if cfg.MaxPhotoBytes != 2<<20 {
		t.Errorf("expected default photo limit 2 MiB, got %d", cfg.MaxPhotoBytes)
	}
	if cfg.PrintSink != PrintSinkNone {
		t.Errorf("expected default print sink none, got %s", cfg.PrintSink)
	}
}

func TestLoad_ParsesOverrides(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("SCHEMA_CACHE_TTL", "90s")
	t.Setenv("CORS_ORIGINS", "http://a.local,http://b.local")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("expected UTC location, got %v", cfg.Location())
	}
	if cfg.SchemaCacheTTL != 90*time.Second {
		t.Errorf("expected 90s, got %s", cfg.SchemaCacheTTL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.local" {
		t.Errorf("expected two origins, got %v", cfg.CORSOrigins)
	}
	if !cfg.MinioUseSSL {
		t.Error("expected MINIO_USE_SSL to be true")
	}
}

func TestLoad_RejectsUnknownTimeZone(t *testing.T) {
	t.Setenv("TIMEZONE", "Not/AZone")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown time zone")
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}

func TestConfig_ResolvedAuthMode(t *testing.T) {
	c := &Config{Env: "development"}
	if got := c.ResolvedAuthMode(); got != "development" {
		t.Errorf("expected development, got %s", got)
	}
	c.Env = "production"
	if got := c.ResolvedAuthMode(); got != "jwt" {
		t.Errorf("expected jwt, got %s", got)
	}
	c.AuthMode = "development"
	if got := c.ResolvedAuthMode(); got != "development" {
		t.Errorf("expected explicit mode to win, got %s", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing registry", mutate: func(c *Config) { c.RegistryBaseURL = "" }, wantErr: "REGISTRY_BASE_URL"},
		{name: "missing identifier type", mutate: func(c *Config) { c.PHNIdentifierType = "" }, wantErr: "PHN_IDENTIFIER_TYPE is required"},
		{name: "identifier type not uuid", mutate: func(c *Config) { c.PHNIdentifierType = "phn" }, wantErr: "must be a uuid"},
		{name: "jwt without keys", mutate: func(c *Config) { c.Env = "production" }, wantErr: "AUTH_SIGNING_KEY or AUTH_JWKS_URL"},
		{name: "jwt with signing key", mutate: func(c *Config) { c.Env = "production"; c.AuthSigningKey = "k" }},
		{name: "dev auth in production", mutate: func(c *Config) { c.Env = "production"; c.AuthMode = "development" }, wantErr: "not allowed in production"},
		{name: "unknown auth mode", mutate: func(c *Config) { c.AuthMode = "saml" }, wantErr: "AUTH_MODE must be"},
		{name: "file sink without dir", mutate: func(c *Config) { c.PrintSink = PrintSinkFile }, wantErr: "PRINT_DIR"},
		{name: "minio sink without endpoint", mutate: func(c *Config) { c.PrintSink = PrintSinkMinio; c.MinioBucket = "b" }, wantErr: "MINIO_ENDPOINT"},
		{name: "amqp sink without url", mutate: func(c *Config) { c.PrintSink = PrintSinkAMQP }, wantErr: "AMQP_URL"},
		{name: "unknown sink", mutate: func(c *Config) { c.PrintSink = "fax" }, wantErr: "PRINT_SINK must be"},
		{name: "tls without cert", mutate: func(c *Config) { c.TLSEnabled = true; c.TLSKeyFile = "k" }, wantErr: "TLS_CERT_FILE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
