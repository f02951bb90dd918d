package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// JWTConfig defines issuer/secret pair for auth verification.
type JWTConfig struct {
	Issuer string
	Secret []byte
}

// Config holds runtime configuration shared across the application.
type Config struct {
	Addr                         string
	StoreDriver                  string
	MongoURI                     string
	MongoDatabase                string
	FormCollection               string
	ResponseCollection           string
	FailedNotificationCollection string
	SQLDSN                       string
	ConnectTimeout               time.Duration
	RequestTimeout               time.Duration
	Timezone                     string
	ServerLog                    *log.Logger
	JWTConfigs                   []JWTConfig
	JWTAudience                  string
	MessengerEndpoint            string
	MessengerDestination         string
	MessengerRecipient           string
	MessengerTimeout             time.Duration
	AdminBaseURL                 string
	AllowedOrigins               []string
	MaxRequestBody               int64
}

// Load reads .env (when present) and environment variables and returns a
// fully populated Config. Variables already set in the environment win over
// the .env file.
func Load() Config {
	logger := log.New(os.Stdout, "[forms-api] ", log.LstdFlags|log.Lshortfile)

	envFile := envOrDefault("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Printf("%s の読み込みに失敗: %v", envFile, err)
	}

	var jwtConfigs []JWTConfig
	if secret := strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET")); secret != "" {
		jwtConfigs = append(jwtConfigs, JWTConfig{
			Issuer: envOrDefault("AUTH_JWT_ISSUER", "forms-auth"),
			Secret: []byte(secret),
		})
	}

	cfg := Config{
		Addr:                         envOrDefault("HTTP_ADDR", ":8080"),
		StoreDriver:                  strings.ToLower(envOrDefault("STORE_DRIVER", "mongo")),
		MongoURI:                     envOrDefault("MONGO_URI", "mongodb://mongo:27017"),
		MongoDatabase:                envOrDefault("MONGO_DB", "forms"),
		FormCollection:               envOrDefault("FORM_COLLECTION", "forms"),
		ResponseCollection:           envOrDefault("RESPONSE_COLLECTION", "responses"),
		FailedNotificationCollection: envOrDefault("FAILED_NOTIFICATION_COLLECTION", "failed_notifications"),
		SQLDSN:                       envOrDefault("SQL_DSN", "file:forms.db?_pragma=foreign_keys(1)"),
		ConnectTimeout:               parseDuration("STORE_CONNECT_TIMEOUT", 10*time.Second),
		RequestTimeout:               parseDuration("REQUEST_TIMEOUT", 5*time.Second),
		Timezone:                     envOrDefault("TIMEZONE", "Asia/Tokyo"),
		ServerLog:                    logger,
		JWTConfigs:                   jwtConfigs,
		JWTAudience:                  strings.TrimSpace(os.Getenv("AUTH_JWT_AUDIENCE")),
		MessengerEndpoint:            strings.TrimRight(strings.TrimSpace(os.Getenv("MESSENGER_GATEWAY_URL")), "/"),
		MessengerDestination:         envOrDefault("MESSENGER_GATEWAY_DESTINATION", "slack"),
		MessengerRecipient:           envOrDefault("MESSENGER_GATEWAY_RECIPIENT", "admin"),
		MessengerTimeout:             parseDuration("MESSENGER_GATEWAY_TIMEOUT", 3*time.Second),
		AdminBaseURL:                 strings.TrimSpace(os.Getenv("ADMIN_BASE_URL")),
		AllowedOrigins:               parseList("API_ALLOWED_ORIGINS", []string{"*"}),
		MaxRequestBody:               parseInt64("MAX_REQUEST_BODY", 1<<20),
	}

	if len(jwtConfigs) == 0 {
		logger.Printf("AUTH_JWT_SECRET が未設定のため管理 API は認証なしで公開されます")
	}
	logger.Printf("loaded config: driver=%s messengerEndpoint=%q destination=%q", cfg.StoreDriver, cfg.MessengerEndpoint, cfg.MessengerDestination)

	return cfg
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}
