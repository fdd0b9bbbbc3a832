package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/mq"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/notify"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/service"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store/drivers/postgres"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/cryptox"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/jwtx"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	NotifierLog      = "log"
	NotifierSMTP     = "smtp"
	NotifierRabbitMQ = "rabbitmq"
	NotifierPubSub   = "pubsub"
)

type Config struct {
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)

	Issuer          string        // Issuer claim for session tokens (default: login_app)
	Algorithm       string        // JWT signing algorithm (RS256, ES256, EdDSA, HS256) (default: RS256)
	RSABits         int           // RSA key size for generated RS256 keys (default: 2048)
	NumKeys         int           // Number of generated signing keys (default: 1, max: 10)
	SigningKeyFile  string        // Optional: PEM private key to sign with instead of generated keys
	KeyID           string        // Optional: kid for a loaded key
	HMACSecret      string        // Required for HS256, at least 32 bytes
	SessionTokenTTL time.Duration // Session token lifetime (default: 300s)
	ResetTokenTTL   time.Duration // Reset and verification token lifetime (default: 300s)

	PasswordHashAlgorithm string // bcrypt or argon2id (default: bcrypt)
	PasswordHashCost      int    // bcrypt cost or argon2 iterations (default: 10)

	DatabaseDriver string           // sqlite or postgres (default: sqlite)
	DatabaseFile   string           // SQLite database path (default: identity.db)
	Postgres       postgres.Options // DB_* variables

	Notifier          string // log, smtp, rabbitmq or pubsub (default: log)
	NotifierBaseURL   string // Base of the links in emails
	NotifierFrom      string // Sender address
	NotifierWorkers   int    // Dispatcher goroutines (default: 2)
	NotifierQueueSize int    // Dispatcher queue capacity (default: 100)
	NotifierChannel   string // Queue or topic for rabbitmq and pubsub

	SMTP     notify.SMTPConfig
	RabbitMQ mq.RabbitMQConfig
	PubSub   mq.PubSubConfig
}

// LoadConfig reads the configuration from the environment. In dev a .env
// file in the working directory is loaded first.
func LoadConfig() Config {
	if getEnvOrDefault("ENV", "dev") == "dev" {
		_ = godotenv.Load()
	}

	cfg := Config{
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", service.DefaultHousekeepingInterval),

		Issuer:          getEnvOrDefault("AUTH_ISSUER", service.DefaultIssuer),
		Algorithm:       getEnvOrDefault("AUTH_ALGORITHM", jwtx.AlgorithmRS256),
		RSABits:         getEnvIntOrDefault("AUTH_RSA_BITS", 0),
		NumKeys:         getEnvIntOrDefault("AUTH_NUM_KEYS", 0),
		SigningKeyFile:  os.Getenv("AUTH_SIGNING_KEY_FILE"),
		KeyID:           os.Getenv("AUTH_KEY_ID"),
		HMACSecret:      os.Getenv("AUTH_HMAC_SECRET"),
		SessionTokenTTL: getEnvDurationOrDefault("SESSION_TOKEN_TTL", service.DefaultSessionTokenTTL),
		ResetTokenTTL:   getEnvDurationOrDefault("RESET_TOKEN_TTL", service.DefaultResetTokenTTL),

		PasswordHashAlgorithm: getEnvOrDefault("PASSWORD_HASH_ALGORITHM", cryptox.PasswordAlgorithmBcrypt),
		PasswordHashCost:      getEnvIntOrDefault("PASSWORD_HASH_COST", 10),

		DatabaseDriver: strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", DriverSQLite)),
		DatabaseFile:   getEnvOrDefault("DATABASE_FILE", "identity.db"),
		Postgres: postgres.Options{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   getEnvOrDefault("DB_NAME", "identity"),
			SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		},

		Notifier:          strings.ToLower(getEnvOrDefault("NOTIFIER", NotifierLog)),
		NotifierBaseURL:   getEnvOrDefault("NOTIFIER_BASE_URL", service.DefaultNotifierBaseURL),
		NotifierFrom:      getEnvOrDefault("NOTIFIER_FROM", service.DefaultNotifierFrom),
		NotifierWorkers:   getEnvIntOrDefault("NOTIFIER_WORKERS", 2),
		NotifierQueueSize: getEnvIntOrDefault("NOTIFIER_QUEUE_SIZE", 100),
		NotifierChannel:   getEnvOrDefault("NOTIFIER_CHANNEL", notify.DefaultChannel),

		SMTP: notify.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvIntOrDefault("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
		},
		RabbitMQ: mq.RabbitMQConfig{
			URL:           os.Getenv("RABBITMQ_URL"),
			PrefetchCount: getEnvIntOrDefault("RABBITMQ_PREFETCH", 10),
			QueueDurable:  getEnvBoolOrDefault("RABBITMQ_DURABLE", true),
		},
		PubSub: mq.PubSubConfig{
			ProjectID:          os.Getenv("PUBSUB_PROJECT_ID"),
			CredentialsFile:    os.Getenv("PUBSUB_CREDENTIALS_FILE"),
			SubscriptionSuffix: os.Getenv("PUBSUB_SUBSCRIPTION_SUFFIX"),
		},
	}
	cfg.SMTP.From = cfg.NotifierFrom

	return cfg
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.SessionTokenTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TOKEN_TTL must be positive"))
	}
	if c.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("RESET_TOKEN_TTL must be positive"))
	}

	switch c.Algorithm {
	case jwtx.AlgorithmRS256, jwtx.AlgorithmES256, jwtx.AlgorithmEdDSA:
		if c.Algorithm == jwtx.AlgorithmRS256 && c.RSABits != 0 && c.RSABits < 2048 {
			errs = append(errs, errors.New("AUTH_RSA_BITS must be at least 2048"))
		}
	case jwtx.AlgorithmHS256:
		if len(c.HMACSecret) < jwtx.MinHMACSecretLen {
			errs = append(errs, fmt.Errorf("AUTH_HMAC_SECRET must be at least %d bytes for HS256", jwtx.MinHMACSecretLen))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_ALGORITHM %q is not supported", c.Algorithm))
	}

	switch strings.ToLower(c.PasswordHashAlgorithm) {
	case "", cryptox.PasswordAlgorithmBcrypt, cryptox.PasswordAlgorithmArgon2id:
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_HASH_ALGORITHM %q is not supported", c.PasswordHashAlgorithm))
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("DATABASE_FILE is required for sqlite"))
		}
	case DriverPostgres:
		if c.Postgres.Host == "" || c.Postgres.DBName == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported", c.DatabaseDriver))
	}

	switch c.Notifier {
	case NotifierLog:
	case NotifierSMTP:
		if c.SMTP.Host == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for the smtp notifier"))
		}
	case NotifierRabbitMQ:
		if c.RabbitMQ.URL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required for the rabbitmq notifier"))
		}
	case NotifierPubSub:
		if c.PubSub.ProjectID == "" {
			errs = append(errs, errors.New("PUBSUB_PROJECT_ID is required for the pubsub notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFIER %q is not supported", c.Notifier))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
