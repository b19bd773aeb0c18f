package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Port     int
	LogLevel string

	// Persistence
	DBPath        string
	UploadDir     string
	MaxUploadSize int64

	// Detector collaborator
	DetectorURL         string
	DetectorTimeout     time.Duration
	ConfidenceThreshold float64

	// Alerting
	DangerLabels  []string
	AlertCooldown time.Duration
	FontPath      string

	// SMS channel (Twilio). Channel is disabled unless all four are set.
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	AlertSMSTo       string

	// Email channel (SMTP). Channel is disabled unless host and from are set.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Auth
	AuthRequired bool
	TokenTTL     time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		Port:     getEnvInt("PORT", 8000),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBPath:        getEnv("DB_PATH", "./wildguard.db"),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadSize: getEnvInt64("MAX_UPLOAD_SIZE", 104857600),

		DetectorURL:         getEnv("DETECTOR_URL", "http://localhost:9090"),
		DetectorTimeout:     getEnvDuration("DETECTOR_TIMEOUT", 30*time.Second),
		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", 0.35),

		DangerLabels:  getEnvList("DANGER_LABELS", []string{"lion", "tiger", "elephant", "human"}),
		AlertCooldown: getEnvDuration("ALERT_COOLDOWN", 15*time.Second),
		FontPath:      getEnv("FONT_PATH", ""),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFrom:       getEnv("TWILIO_FROM", ""),
		AlertSMSTo:       getEnv("ALERT_SMS_TO", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		AuthRequired: getEnvBool("AUTH_REQUIRED", true),
		TokenTTL:     getEnvDuration("TOKEN_TTL", 24*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
