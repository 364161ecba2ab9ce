package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	JWTSecret     string

	// Event bus selection: "rabbitmq" for the production adapter,
	// "memory" for single-process deployments and tests.
	EventBus    string
	RabbitMQURL string

	// Outbox relay knobs.
	RelayDispatchInterval    time.Duration
	RelayBatchSize           int
	RelayLease               time.Duration
	RelayPublishMaxAttempts  int
	RelayPublishBackoff      time.Duration
	RelayMaxDispatchAttempts int

	// Saga coordinator knobs.
	SagaSweepInterval  time.Duration
	SagaSweepBatchSize int
	SagaDefaultTimeout time.Duration

	// Retention for published outbox records, terminal workflow instances,
	// and consumer dedup rows. The default matches the seven-year audit
	// retention requirement; shrinking it is an explicit operator decision.
	OutboxRetention time.Duration

	RateLimit          string
	CORSAllowedOrigins []string
}

// sevenYears is the default retention window for audit-relevant rows.
const sevenYears = 7 * 365 * 24 * time.Hour

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("EVENT_BUS", "memory")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("RELAY_DISPATCH_INTERVAL", "2s")
	viper.SetDefault("RELAY_BATCH_SIZE", 50)
	viper.SetDefault("RELAY_LEASE", "5m")
	viper.SetDefault("RELAY_PUBLISH_MAX_ATTEMPTS", 3)
	viper.SetDefault("RELAY_PUBLISH_BACKOFF", "200ms")
	viper.SetDefault("RELAY_MAX_DISPATCH_ATTEMPTS", 10)
	viper.SetDefault("SAGA_SWEEP_INTERVAL", "30s")
	viper.SetDefault("SAGA_SWEEP_BATCH_SIZE", 50)
	viper.SetDefault("SAGA_DEFAULT_TIMEOUT", "24h")
	viper.SetDefault("OUTBOX_RETENTION", sevenYears.String())
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	cfg.EventBus = strings.ToLower(viper.GetString("EVENT_BUS"))
	cfg.RabbitMQURL = viper.GetString("RABBITMQ_URL")
	if cfg.EventBus == "rabbitmq" && cfg.RabbitMQURL == "" {
		log.Println("Warning: EVENT_BUS is rabbitmq but RABBITMQ_URL is not set.")
	}

	cfg.RelayDispatchInterval = parseDurationOrDefault("RELAY_DISPATCH_INTERVAL", 2*time.Second)
	cfg.RelayBatchSize = viper.GetInt("RELAY_BATCH_SIZE")
	cfg.RelayLease = parseDurationOrDefault("RELAY_LEASE", 5*time.Minute)
	cfg.RelayPublishMaxAttempts = viper.GetInt("RELAY_PUBLISH_MAX_ATTEMPTS")
	cfg.RelayPublishBackoff = parseDurationOrDefault("RELAY_PUBLISH_BACKOFF", 200*time.Millisecond)
	cfg.RelayMaxDispatchAttempts = viper.GetInt("RELAY_MAX_DISPATCH_ATTEMPTS")

	cfg.SagaSweepInterval = parseDurationOrDefault("SAGA_SWEEP_INTERVAL", 30*time.Second)
	cfg.SagaSweepBatchSize = viper.GetInt("SAGA_SWEEP_BATCH_SIZE")
	cfg.SagaDefaultTimeout = parseDurationOrDefault("SAGA_DEFAULT_TIMEOUT", 24*time.Hour)

	cfg.OutboxRetention = parseDurationOrDefault("OUTBOX_RETENTION", sevenYears)

	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	origins := viper.GetString("CORS_ALLOWED_ORIGINS")
	for _, origin := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, trimmed)
		}
	}

	return cfg, nil
}

// parseDurationOrDefault reads a duration key, falling back with a warning on
// values time.ParseDuration rejects.
func parseDurationOrDefault(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		return fallback
	}
	return d
}
