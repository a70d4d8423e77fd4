package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Trip store backends selectable with TRIP_STORE.
const (
	TripStorePostgres = "postgres"
	TripStoreMongo    = "mongo"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Mongo       MongoConfig
	JWT         JWTConfig
	Email       EmailConfig
	GoogleOAuth GoogleOAuthConfig
	CORS        CORSConfig
	Broker      BrokerConfig
	Payment     PaymentConfig
	Telemetry   TelemetryConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"5s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"5s"`
	TripStore       string        `envconfig:"TRIP_STORE" default:"postgres"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host         string        `envconfig:"DB_HOST" default:"localhost"`
	Port         string        `envconfig:"DB_PORT" default:"5432"`
	User         string        `envconfig:"DB_USER" default:"postgres"`
	Password     string        `envconfig:"DB_PASSWORD"`
	Name         string        `envconfig:"DB_NAME" default:"postgres"`
	SSLMode      string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns     int32         `envconfig:"DB_MAX_CONNS" default:"5"`
	MinConns     int32         `envconfig:"DB_MIN_CONNS" default:"0"`
	MaxLifetime  time.Duration `envconfig:"DB_MAX_LIFETIME" default:"1h"`
	ConnTimeout  time.Duration `envconfig:"DB_CONN_TIMEOUT" default:"10s"`
	QueryTimeout time.Duration `envconfig:"DB_QUERY_TIMEOUT" default:"30s"`
}

// MongoConfig is only read when TRIP_STORE=mongo.
type MongoConfig struct {
	URI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	Database string `envconfig:"MONGO_DATABASE" default:"rideshare"`
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret         string        `envconfig:"JWT_SECRET" default:"your-secret-key-change-in-production"`
	AccessTokenTTL time.Duration `envconfig:"JWT_ACCESS_TTL" default:"168h"`
}

// EmailConfig holds email service configuration
type EmailConfig struct {
	SMTPHost     string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort     string `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	FromEmail    string `envconfig:"EMAIL_FROM"`
	FromName     string `envconfig:"EMAIL_FROM_NAME" default:"Rideshare Team"`
}

// GoogleOAuthConfig holds Google OAuth configuration
type GoogleOAuthConfig struct {
	ClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	ClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `envconfig:"GOOGLE_REDIRECT_URL" default:"http://localhost:8080/api/auth/google/callback"`
	FrontendURL  string `envconfig:"GOOGLE_FRONTEND_CALLBACK_URL" default:"http://localhost:3000/callback"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	AllowedMethods   []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders   []string `envconfig:"CORS_ALLOWED_HEADERS" default:"*"`
	AllowCredentials bool     `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
}

// BrokerConfig points the trip event publisher at RabbitMQ. An empty URL
// disables publishing.
type BrokerConfig struct {
	URL      string `envconfig:"RABBITMQ_URL"`
	Exchange string `envconfig:"RABBITMQ_EXCHANGE" default:"trip.events"`
}

// PaymentConfig holds Omise keys.
type PaymentConfig struct {
	OmisePublicKey string `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey string `envconfig:"OMISE_SECRET_KEY"`
	Currency       string `envconfig:"PAYMENT_CURRENCY" default:"thb"`
}

// TelemetryConfig enables OTLP tracing when Endpoint is set.
type TelemetryConfig struct {
	Endpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"rideshare-backend"`
}

// Load reads .env (parent directory first, then the working directory) and
// fills Config from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			slog.Warn(".env file not found", "error", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}

	switch c.Server.TripStore {
	case TripStorePostgres, TripStoreMongo:
	default:
		return fmt.Errorf("TRIP_STORE must be %q or %q, got %q", TripStorePostgres, TripStoreMongo, c.Server.TripStore)
	}

	if c.JWT.AccessTokenTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be positive")
	}

	if !c.IsEmailConfigured() {
		slog.Warn("SMTP credentials not configured, email functionality will not work")
	}
	if !c.IsGoogleOAuthConfigured() {
		slog.Warn("Google OAuth credentials not configured, Google login will not work")
	}
	if !c.IsPaymentConfigured() {
		slog.Warn("Omise keys not configured, payment endpoints will return 503")
	}

	return nil
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&connect_timeout=%d",
		url.QueryEscape(c.Database.User),
		url.QueryEscape(c.Database.Password),
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
		int(c.Database.ConnTimeout.Seconds()),
	)
}

// IsEmailConfigured checks if email service is properly configured
func (c *Config) IsEmailConfigured() bool {
	return c.Email.SMTPUsername != "" && c.Email.SMTPPassword != "" && c.Email.FromEmail != ""
}

// IsGoogleOAuthConfigured checks if Google OAuth is properly configured
func (c *Config) IsGoogleOAuthConfigured() bool {
	return c.GoogleOAuth.ClientID != "" && c.GoogleOAuth.ClientSecret != ""
}

func (c *Config) IsPaymentConfigured() bool {
	return c.Payment.OmisePublicKey != "" && c.Payment.OmiseSecretKey != ""
}

func (c *Config) IsBrokerConfigured() bool {
	return c.Broker.URL != ""
}
