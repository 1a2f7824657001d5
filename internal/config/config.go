package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends understood by bootstrap.BuildBackend.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
	StoreS3       = "s3"
)

// Event transports understood by bootstrap.BuildPublisher.
const (
	EventsNone   = "none"
	EventsLog    = "log"
	EventsSQS    = "sqs"
	EventsAMQP   = "amqp"
	EventsOutbox = "outbox"
)

// Email providers understood by bootstrap.BuildEmailSender.
const (
	EmailNone     = "none"
	EmailLog      = "log"
	EmailSES      = "ses"
	EmailSendGrid = "sendgrid"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Durable state
	StoreBackend     string
	StoreKeyPrefix   string
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool
	DatabaseURL      string
	StoreDynamoTable string
	StoreS3Bucket    string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSSessionToken     string
	AWSEndpointOverride string
	// AWSMaxAttempts caps SDK retries; 0 keeps the SDK default.
	AWSMaxAttempts int

	// Domain events
	EventsBackend  string
	EventsQueueURL string
	AMQPURL        string
	AMQPExchange   string
	// EventsRelay is the transport the outbox deliverer forwards to when
	// EventsBackend is "outbox".
	EventsRelay         string
	OutboxRelayInterval time.Duration

	// Practitioner notifications
	EmailProvider  string
	EmailFrom      string
	EmailFromName  string
	EmailReplyTo   string
	SendGridAPIKey string

	// Admin surface
	AdminJWTSecret string

	// Scheduling
	SeedCatalog            bool
	BookingVelocityEnabled bool
	BookingVelocityMax     int
	BookingVelocityWindow  time.Duration
	CORSAllowedOrigins     []string
	TransactionTimeout     time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend:     strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", StoreMemory))),
		StoreKeyPrefix:   getEnv("STORE_KEY_PREFIX", "clinic:"),
		RedisAddr:        getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		StoreDynamoTable: getEnv("STORE_DYNAMO_TABLE", "clinic_collections"),
		StoreS3Bucket:    getEnv("STORE_S3_BUCKET", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSSessionToken:     getEnv("AWS_SESSION_TOKEN", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		AWSMaxAttempts:      getEnvAsInt("AWS_MAX_ATTEMPTS", 3),

		EventsBackend:  strings.ToLower(strings.TrimSpace(getEnv("EVENTS_BACKEND", "log"))),
		EventsQueueURL: getEnv("EVENTS_QUEUE_URL", ""),
		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "clinic.events"),

		EventsRelay:         strings.ToLower(strings.TrimSpace(getEnv("EVENTS_RELAY", "log"))),
		OutboxRelayInterval: getEnvAsDuration("OUTBOX_RELAY_INTERVAL", 5*time.Second),

		EmailProvider:  strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "none"))),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "Clinic Scheduling"),
		EmailReplyTo:   getEnv("EMAIL_REPLY_TO", ""),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		SeedCatalog:            getEnvAsBool("SEED_CATALOG", true),
		BookingVelocityEnabled: getEnvAsBool("BOOKING_VELOCITY_ENABLED", false),
		BookingVelocityMax:     getEnvAsInt("BOOKING_VELOCITY_MAX", 5),
		BookingVelocityWindow:  getEnvAsDuration("BOOKING_VELOCITY_WINDOW", time.Hour),
		CORSAllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS"),
		TransactionTimeout:     getEnvAsDuration("TRANSACTION_TIMEOUT", 5*time.Second),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
