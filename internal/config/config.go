package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const (
	PrintSinkNone  = "none"
	PrintSinkFile  = "file"
	PrintSinkMinio = "minio"
	PrintSinkAMQP  = "amqp"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	AuthMode string `mapstructure:"AUTH_MODE"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`
	TimeZone string `mapstructure:"TIMEZONE"`

	RegistryBaseURL   string        `mapstructure:"REGISTRY_BASE_URL"`
	RegistryUsername  string        `mapstructure:"REGISTRY_USERNAME"`
	RegistryPassword  string        `mapstructure:"REGISTRY_PASSWORD"`
	RegistryTimeout   time.Duration `mapstructure:"REGISTRY_TIMEOUT"`
	PHNIdentifierType string        `mapstructure:"PHN_IDENTIFIER_TYPE"`

	DefaultLocationUUID string `mapstructure:"DEFAULT_LOCATION_UUID"`
	DefaultLocationName string `mapstructure:"DEFAULT_LOCATION_NAME"`

	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL    string `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	RedisURL       string        `mapstructure:"REDIS_URL"`
	SchemaCacheTTL time.Duration `mapstructure:"SCHEMA_CACHE_TTL"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	MaxPhotoBytes  int           `mapstructure:"MAX_PHOTO_BYTES"`

	PrintSink      string `mapstructure:"PRINT_SINK"`
	PrintDir       string `mapstructure:"PRINT_DIR"`
	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`
	AMQPURL        string `mapstructure:"AMQP_URL"`
	AMQPPrintQueue string `mapstructure:"AMQP_PRINT_QUEUE"`

	StubDatabaseURL string `mapstructure:"STUB_DATABASE_URL"`
	StubPort        string `mapstructure:"STUB_PORT"`
	DBMaxConns      int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32  `mapstructure:"DB_MIN_CONNS"`

	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`
	UploadLimit    string        `mapstructure:"UPLOAD_LIMIT"`

	TLSEnabled  bool   `mapstructure:"TLS_ENABLED"`
	TLSCertFile string `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile  string `mapstructure:"TLS_KEY_FILE"`

	location *time.Location
}

var keys = []string{
	"PORT", "ENV", "AUTH_MODE", "LOG_LEVEL", "LOG_FILE", "TIMEZONE",
	"REGISTRY_BASE_URL", "REGISTRY_USERNAME", "REGISTRY_PASSWORD", "REGISTRY_TIMEOUT", "PHN_IDENTIFIER_TYPE",
	"DEFAULT_LOCATION_UUID", "DEFAULT_LOCATION_NAME",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL", "AUTH_SIGNING_KEY",
	"REDIS_URL", "SCHEMA_CACHE_TTL", "SESSION_TTL", "MAX_PHOTO_BYTES",
	"PRINT_SINK", "PRINT_DIR", "MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY",
	"MINIO_BUCKET", "MINIO_USE_SSL", "AMQP_URL", "AMQP_PRINT_QUEUE",
	"STUB_DATABASE_URL", "STUB_PORT", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"CORS_ORIGINS", "REQUEST_TIMEOUT", "BODY_LIMIT", "UPLOAD_LIMIT",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

// Load reads .env (when present) and the environment. Required settings are
// checked by Validate, since not every command needs all of them.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // "" -> inferred from ENV
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TIMEZONE", "Asia/Colombo")
	v.SetDefault("REGISTRY_TIMEOUT", "30s")
	v.SetDefault("DEFAULT_LOCATION_NAME", "Registration Desk")
	v.SetDefault("SCHEMA_CACHE_TTL", "10m")
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("MAX_PHOTO_BYTES", 2<<20)
	v.SetDefault("PRINT_SINK", PrintSinkNone)
	v.SetDefault("PRINT_DIR", "cards")
	v.SetDefault("MINIO_BUCKET", "patient-cards")
	v.SetDefault("AMQP_PRINT_QUEUE", "card.print")
	v.SetDefault("STUB_PORT", "8081")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("UPLOAD_LIMIT", "4M")

	// Unmarshal only sees env vars that are bound.
	for _, k := range keys {
		v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", cfg.TimeZone, err)
	}
	cfg.location = loc

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location is the time zone birthdates and ages are evaluated in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// ResolvedAuthMode returns the effective auth mode. If AUTH_MODE is explicitly
// set, it is returned. Otherwise ENV=development selects "development" (no
// token checks, every request acts as a registrar at the default location)
// and anything else selects "jwt".
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return "development"
	}
	return "jwt"
}

// Validate checks that the configuration is complete enough to serve intake
// requests.
func (c *Config) Validate() error {
	if c.RegistryBaseURL == "" {
		return fmt.Errorf("REGISTRY_BASE_URL is required")
	}
	if c.PHNIdentifierType == "" {
		return fmt.Errorf("PHN_IDENTIFIER_TYPE is required")
	}
	if _, err := uuid.Parse(c.PHNIdentifierType); err != nil {
		return fmt.Errorf("PHN_IDENTIFIER_TYPE must be a uuid: %w", err)
	}

	switch mode := c.ResolvedAuthMode(); mode {
	case "development":
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE \"development\" is not allowed in production")
		}
	case "jwt":
		if c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
			return fmt.Errorf("AUTH_SIGNING_KEY or AUTH_JWKS_URL must be set when AUTH_MODE is \"jwt\" (current ENV=%q)", c.Env)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be \"development\" or \"jwt\", got %q", mode)
	}

	if c.MaxPhotoBytes <= 0 {
		return fmt.Errorf("MAX_PHOTO_BYTES must be positive, got %d", c.MaxPhotoBytes)
	}

	switch c.PrintSink {
	case PrintSinkNone:
	case PrintSinkFile:
		if c.PrintDir == "" {
			return fmt.Errorf("PRINT_DIR is required when PRINT_SINK is %q", c.PrintSink)
		}
	case PrintSinkMinio:
		if c.MinioEndpoint == "" || c.MinioBucket == "" {
			return fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required when PRINT_SINK is %q", c.PrintSink)
		}
	case PrintSinkAMQP:
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP_URL is required when PRINT_SINK is %q", c.PrintSink)
		}
	default:
		return fmt.Errorf("PRINT_SINK must be one of none, file, minio, amqp, got %q", c.PrintSink)
	}

	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
