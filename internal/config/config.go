package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Log     LogConfig
	Redis   RedisConfig
	Gateway GatewayConfig
	Bkash   BkashConfig
	Nagad   NagadConfig
	Upay    UpayConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
	// AdminAPIKey guards the coupon administration routes. Empty disables them.
	AdminAPIKey string `envconfig:"ADMIN_API_KEY"`
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
// In production, set DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name     string `envconfig:"DB_NAME" default:"checkout_db"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int    `envconfig:"DB_MIN_CONNS" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// RedisConfig holds the purchase event stream configuration.
// An empty URL disables publishing; events are only logged.
type RedisConfig struct {
	URL    string `envconfig:"REDIS_URL"`
	Stream string `envconfig:"REDIS_STREAM" default:"purchase_events"`
}

// GatewayConfig holds settings shared by every payment gateway.
type GatewayConfig struct {
	Timeout time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"10s"`
}

// BkashConfig holds bKash tokenized checkout credentials.
type BkashConfig struct {
	AppKey      string `envconfig:"BKASH_APP_KEY"`
	AppSecret   string `envconfig:"BKASH_APP_SECRET"`
	Username    string `envconfig:"BKASH_USERNAME"`
	Password    string `envconfig:"BKASH_PASSWORD"`
	BaseURL     string `envconfig:"BKASH_BASE_URL" default:"https://tokenized.sandbox.bka.sh/v1.2.0-beta"`
	CallbackURL string `envconfig:"BKASH_CALLBACK_URL" default:"http://localhost:3000/api/payment/callback"`
}

// NagadConfig holds Nagad merchant credentials.
// PrivateKey is base64 encoded.
type NagadConfig struct {
	MerchantID  string `envconfig:"NAGAD_MERCHANT_ID"`
	PrivateKey  string `envconfig:"NAGAD_PRIVATE_KEY"`
	BaseURL     string `envconfig:"NAGAD_BASE_URL" default:"https://api.mynagad.com"`
	CallbackURL string `envconfig:"NAGAD_CALLBACK_URL" default:"http://localhost:3000/api/payment/callback"`
}

// UpayConfig holds Upay merchant credentials.
type UpayConfig struct {
	MerchantID  string `envconfig:"UPAY_MERCHANT_ID"`
	MerchantKey string `envconfig:"UPAY_MERCHANT_KEY"`
	BaseURL     string `envconfig:"UPAY_BASE_URL" default:"https://api.upay.com"`
	CallbackURL string `envconfig:"UPAY_CALLBACK_URL" default:"http://localhost:3000/api/payment/callback"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
