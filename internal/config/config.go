package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName         = "StudentPortal"
	defaultAppEnv          = "development"
	defaultPort            = "3000"
	defaultLogLevel        = "info"
	defaultDataFile        = "data/students.json"
	defaultBotPort         = "3003"
	defaultCORSOrigins     = "*"
	defaultLoginAttempts   = 10
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	botTimeoutEnvVar       = "BOT_TIMEOUT"
	loginAttemptsEnvVar    = "LOGIN_ATTEMPTS_PER_MINUTE"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Password storage modes.
const (
	PasswordPlain  = "plain"
	PasswordBcrypt = "bcrypt"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DataFile       string
	StorageBackend string
	DatabaseURL    string
	RedisURL       string
	BotServiceURL  string
	BotTimeout     time.Duration
	PasswordMode   string
	StaticDir      string
	CORSOrigins    string
	KafkaBroker    string
	KafkaTopic     string
	LoginAttempts  int
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
// Outside production a .env file in the working directory is loaded first when present.
func Load() (Config, error) {
	if !strings.EqualFold(os.Getenv("APP_ENV"), "production") {
		_ = godotenv.Load()
	}

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DataFile:       getEnv("DATA_FILE", defaultDataFile),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendFile)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		BotServiceURL:  getEnv("BOT_SERVICE_URL", "http://127.0.0.1:"+getEnv("PORT2", defaultBotPort)),
		PasswordMode:   strings.ToLower(getEnv("PASSWORD_MODE", PasswordPlain)),
		StaticDir:      os.Getenv("STATIC_DIR"),
		CORSOrigins:    getEnv("CORS_ORIGINS", defaultCORSOrigins),
		KafkaBroker:    os.Getenv("KAFKA_BROKER"),
		KafkaTopic:     os.Getenv("KAFKA_TOPIC"),
		LoginAttempts:  defaultLoginAttempts,
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
	}
	cfg.BotServiceURL = strings.TrimRight(cfg.BotServiceURL, "/")

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}

	if v := os.Getenv(botTimeoutEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", botTimeoutEnvVar, err)
		}
		cfg.BotTimeout = d
	}

	if v := os.Getenv(loginAttemptsEnvVar); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", loginAttemptsEnvVar, err)
		}
		cfg.LoginAttempts = n
	}

	switch cfg.StorageBackend {
	case BackendFile:
		if cfg.DataFile == "" {
			return Config{}, fmt.Errorf("DATA_FILE must not be empty")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when STORAGE_BACKEND=%s", BackendPostgres)
		}
	case BackendMemory:
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	switch cfg.PasswordMode {
	case PasswordPlain, PasswordBcrypt:
	default:
		return Config{}, fmt.Errorf("invalid PASSWORD_MODE %q", cfg.PasswordMode)
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// KafkaEnabled reports whether lifecycle events should be published to Kafka.
func (c Config) KafkaEnabled() bool {
	return c.KafkaBroker != "" && c.KafkaTopic != ""
}

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
