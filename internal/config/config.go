package config

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings of the classroom service
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	Database DatabaseConfig
	RedisURL string

	Session SessionConfig
	Auth    AuthConfig
	Casdoor CasdoorConfig
	OIDC    OIDCConfig

	Storage StorageConfig
	LLM     LLMConfig
	Events  EventsConfig

	GradeBatchSize     int
	MetricsEnabled     bool
	CORSAllowedOrigins []string
}

type DatabaseConfig struct {
	URL             string
	AdminURL        string // elevated connection used for membership lookups
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogQueries      bool
	AutoMigrate     bool
}

type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	CookieName   string
	CookieDomain string
	CookiePath   string
	CookieSecure bool
	SameSite     http.SameSite
}

type AuthConfig struct {
	Provider string // "oidc" or "casdoor"
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

type OIDCConfig struct {
	IssuerURL string
	ClientID  string
}

type StorageConfig struct {
	Region               string
	Endpoint             string
	AccessKey            string
	SecretKey            string
	UsePathStyle         bool
	PublicBaseURL        string
	ClassResourcesBucket string
	SubmissionsBucket    string
	MaxUploadSizeBytes   int64
}

type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type EventsConfig struct {
	KafkaBrokers []string
	Topic        string
}

// LoadConfig reads configuration from the environment, loading a .env file first when present
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			AdminURL:        getEnv("DATABASE_ADMIN_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			LogQueries:      getEnvAsBool("DB_LOG_QUERIES", false),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		RedisURL: getEnv("REDIS_URL", ""),
		Session: SessionConfig{
			Secret:       getEnv("SESSION_SECRET", ""),
			TTL:          getEnvAsDuration("SESSION_TTL", 12*time.Hour),
			CookieName:   getEnv("SESSION_COOKIE_NAME", "classroom_session"),
			CookieDomain: getEnv("SESSION_COOKIE_DOMAIN", ""),
			CookiePath:   getEnv("SESSION_COOKIE_PATH", "/"),
			CookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", true),
			SameSite:     parseSameSite(getEnv("SESSION_COOKIE_SAMESITE", "lax")),
		},
		Auth: AuthConfig{
			Provider: strings.ToLower(getEnv("AUTH_PROVIDER", "oidc")),
		},
		Casdoor: CasdoorConfig{
			Endpoint:     getEnv("CASDOOR_ENDPOINT", ""),
			ClientID:     getEnv("CASDOOR_CLIENT_ID", ""),
			ClientSecret: getEnv("CASDOOR_CLIENT_SECRET", ""),
			Cert:         getEnv("CASDOOR_CERT", ""),
			Organization: getEnv("CASDOOR_ORGANIZATION", ""),
			Application:  getEnv("CASDOOR_APPLICATION", ""),
		},
		OIDC: OIDCConfig{
			IssuerURL: getEnv("OIDC_ISSUER_URL", ""),
			ClientID:  getEnv("OIDC_CLIENT_ID", ""),
		},
		Storage: StorageConfig{
			Region:               getEnv("S3_REGION", "us-east-1"),
			Endpoint:             getEnv("S3_ENDPOINT", ""),
			AccessKey:            getEnv("S3_ACCESS_KEY", ""),
			SecretKey:            getEnv("S3_SECRET_KEY", ""),
			UsePathStyle:         getEnvAsBool("S3_USE_PATH_STYLE", false),
			PublicBaseURL:        getEnv("S3_PUBLIC_BASE_URL", ""),
			ClassResourcesBucket: getEnv("S3_BUCKET_CLASS_RESOURCES", "class-resources"),
			SubmissionsBucket:    getEnv("S3_BUCKET_SUBMISSIONS", "assignment-submissions"),
			MaxUploadSizeBytes:   int64(getEnvAsInt("S3_MAX_UPLOAD_MB", 25)) << 20,
		},
		LLM: LLMConfig{
			BaseURL: getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  getEnv("LLM_API_KEY", ""),
			Model:   getEnv("LLM_MODEL", "gpt-4o-mini"),
			Timeout: getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Events: EventsConfig{
			KafkaBrokers: getEnvAsSlice("KAFKA_BROKERS"),
			Topic:        getEnv("EVENTS_TOPIC", "classroom.events"),
		},
		GradeBatchSize:     getEnvAsInt("GRADE_BATCH_SIZE", 10),
		MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", true),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),
	}

	if cfg.Database.AdminURL == "" {
		cfg.Database.AdminURL = cfg.Database.URL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required settings are present and consistent
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if len(c.Session.Secret) < 32 && c.IsProduction() {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters in production")
	}
	if c.GradeBatchSize < 1 {
		return fmt.Errorf("GRADE_BATCH_SIZE must be positive, got %d", c.GradeBatchSize)
	}

	switch c.Auth.Provider {
	case "oidc":
		if c.IsProduction() && (c.OIDC.IssuerURL == "" || c.OIDC.ClientID == "") {
			return fmt.Errorf("OIDC_ISSUER_URL and OIDC_CLIENT_ID are required when AUTH_PROVIDER=oidc")
		}
	case "casdoor":
		if c.Casdoor.Endpoint == "" || c.Casdoor.ClientID == "" {
			return fmt.Errorf("CASDOOR_ENDPOINT and CASDOOR_CLIENT_ID are required when AUTH_PROVIDER=casdoor")
		}
	default:
		return fmt.Errorf("unsupported AUTH_PROVIDER %q", c.Auth.Provider)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvAsSlice(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseSameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
