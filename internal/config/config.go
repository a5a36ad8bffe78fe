package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrNotConfigured marks an integration whose credentials are absent. It is
// never fatal: callers fall back to a mock or disabled implementation.
var ErrNotConfigured = errors.New("config: integration not configured")

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	SessionBackend string
	SessionTTL     time.Duration

	GeminiAPIKey   string
	GeminiModel    string
	BedrockModelID string
	MaxToolRounds  int

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	ClinicUTCOffset     string
	ClinicTimeZone      string
	AppointmentDuration time.Duration

	GoogleCalendarCredentialsFile string
	GoogleCalendarID              string

	EmailProvider  string
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string

	SlackWebhookURL    string
	SlackBotToken      string
	SlackSigningSecret string
	SlackQueueURL      string
	UseMemoryQueue     bool
	WorkerCount        int

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from the environment, after applying any .env file
// found in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8000"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", "")),
		SessionTTL:     getEnvAsDuration("SESSION_TTL", 30*24*time.Hour),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		MaxToolRounds:  getEnvAsInt("MAX_TOOL_ROUNDS", 8),

		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		ClinicUTCOffset:     getEnv("CLINIC_UTC_OFFSET", "+05:30"),
		ClinicTimeZone:      getEnv("CLINIC_TIME_ZONE", "Asia/Kolkata"),
		AppointmentDuration: getEnvAsDuration("APPOINTMENT_DURATION", 30*time.Minute),

		GoogleCalendarCredentialsFile: getEnv("GOOGLE_CALENDAR_CREDENTIALS_FILE", ""),
		GoogleCalendarID:              getEnv("GOOGLE_CALENDAR_ID", "primary"),

		EmailProvider:  strings.ToLower(getEnv("EMAIL_PROVIDER", "")),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "CureLink Clinic"),

		SlackWebhookURL:    getEnv("SLACK_WEBHOOK_URL", ""),
		SlackBotToken:      getEnv("SLACK_BOT_TOKEN", ""),
		SlackSigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
		SlackQueueURL:      getEnv("SLACK_QUEUE_URL", ""),
		UseMemoryQueue:     getEnvAsBool("USE_MEMORY_QUEUE", true),
		WorkerCount:        getEnvAsInt("WORKER_COUNT", 2),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}

	if cfg.SessionBackend == "" {
		cfg.SessionBackend = "memory"
		if cfg.DatabaseURL != "" {
			cfg.SessionBackend = "postgres"
		}
	}
	if cfg.EmailProvider == "" {
		switch {
		case cfg.SendGridAPIKey != "":
			cfg.EmailProvider = "sendgrid"
		case cfg.EmailFrom != "":
			cfg.EmailProvider = "ses"
		default:
			cfg.EmailProvider = "stub"
		}
	}
	if cfg.SlackQueueURL == "" {
		cfg.UseMemoryQueue = true
	}

	return cfg
}

// ClinicLocation returns the fixed-offset zone used for clinic-local times.
func (c *Config) ClinicLocation() (*time.Location, error) {
	return ParseUTCOffset(c.ClinicUTCOffset)
}

// ParseUTCOffset converts "+05:30" / "-04:00" / "Z" into a fixed zone.
func ParseUTCOffset(raw string) (*time.Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "Z" || raw == "+00:00" {
		return time.FixedZone("UTC", 0), nil
	}
	ref, err := time.Parse("-07:00", raw)
	if err != nil {
		return nil, fmt.Errorf("config: invalid utc offset %q: %w", raw, err)
	}
	_, offset := ref.Zone()
	return time.FixedZone("UTC"+raw, offset), nil
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
