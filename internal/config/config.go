// Package config handles the loading and parsing of application configuration
// from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration settings for the application.
type Config struct {
	// --- Core settings ---
	DatabaseURL        string
	ServerAddr         string
	CORSAllowedOrigins string
	MigrationsPath     string

	// --- Authentication ---
	JWTSecret string

	// --- RBAC bypass (dev mode) ---
	AdminSharedSecret string

	// --- AI provider ---
	GeminiAPIKey   string
	GeminiModel    string
	GeminiFallback []string

	// --- Privacy ---
	RedactPII bool

	// --- Collection ids ---
	SessionsCollection      string
	MessagesCollection      string
	NotificationsCollection string
	UsersCollection         string
	AccuracyCollection      string
	SettingsCollection      string

	// --- Timing ---
	DisconnectGracePeriod time.Duration
	AgentAuthFailDelay    time.Duration
	ShutdownTimeout       time.Duration
	AIHistoryWindow       int

	// --- Blob storage (byte-fetch interface backing) ---
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	PrivateStoragePrefix string

	// --- Ops alerting (optional) ---
	TelegramBotToken string
	TelegramChatID   int64

	// LogLevel is read and carried for operational parity with the rest of
	// the config surface; the process logs via the plain `log` package
	// regardless of this value, matching the teacher's logging approach.
	LogLevel string
}

// Load reads environment variables and populates the Config struct, applying
// sensible defaults for non-critical values.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		ServerAddr:         getEnv("SERVER_ADDR", ":8080"),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		MigrationsPath:     getEnv("MIGRATIONS_PATH", "migrations"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AdminSharedSecret: getEnv("ADMIN_SHARED_SECRET", ""),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiFallback: splitNonEmpty(getEnv("GEMINI_MODEL_FALLBACKS", "gemini-1.5-flash-8b")),

		RedactPII: getEnvAsBool("REDACT_PII", false),

		SessionsCollection:      getEnv("SESSIONS_COLLECTION", "sessions"),
		MessagesCollection:      getEnv("MESSAGES_COLLECTION", "messages"),
		NotificationsCollection: getEnv("NOTIFICATIONS_COLLECTION", "notifications"),
		UsersCollection:         getEnv("USERS_COLLECTION", "app_users"),
		AccuracyCollection:      getEnv("ACCURACY_COLLECTION", "accuracy_records"),
		SettingsCollection:      getEnv("SETTINGS_COLLECTION", "app_settings"),

		DisconnectGracePeriod: getEnvAsDuration("DISCONNECT_GRACE_PERIOD", 5*time.Second),
		AgentAuthFailDelay:    getEnvAsDuration("AGENT_AUTH_FAIL_DELAY", 1*time.Second),
		ShutdownTimeout:       getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		AIHistoryWindow:       getEnvAsInt("AI_HISTORY_WINDOW", 20),

		S3Endpoint:           getEnv("S3_ENDPOINT", ""),
		S3Region:             getEnv("S3_REGION", ""),
		S3AccessKeyID:        getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey:    getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Bucket:             getEnv("S3_BUCKET_NAME", ""),
		PrivateStoragePrefix: getEnv("PRIVATE_STORAGE_PREFIX", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   int64(getEnvAsInt("TELEGRAM_CHAT_ID", 0)),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := validateCritical(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateCritical(cfg *Config) error {
	critical := map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"JWT_SECRET":   cfg.JWTSecret,
	}
	var missing []string
	for name, value := range critical {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing critical environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// --- Helper functions for robust environment variable loading ---

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if b, err := strconv.ParseBool(valueStr); err == nil {
		return b
	}
	return defaultValue
}

func splitNonEmpty(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
