package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values. Secret values are held
// here only; they must never be logged or echoed in responses.
type Config struct {
	Environment string
	HTTPPort    string
	ServiceName string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AccessTokenSecret string
	ResetTokenSecret  string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	ResetTokenTTL     time.Duration
	RefreshTokenBytes int
	TokenIssuer       string

	OTPLength       int
	OTPTTL          time.Duration
	OTPSendInterval time.Duration

	SMSEndpoint string
	SMSAPIKey   string
	SMSSender   string

	ChapaBaseURL       string
	ChapaSecretKey     string
	ChapaWebhookSecret string
	PaymentCallbackURL string

	AdminEmail    string
	AdminPhone    string
	AdminPassword string

	RateLimitRPM      int
	TelemetryEndpoint string
	TelemetryInsecure bool

	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// minTokenSecretLen is the RFC 7518 minimum HMAC key size for HS256.
const minTokenSecretLen = 32

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment: getEnv("APP_ENV", "development"),
		HTTPPort:    getEnv("HTTP_PORT", "8000"),
		ServiceName: getEnv("SERVICE_NAME", "enemamar-backend"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		AccessTokenSecret: os.Getenv("ACCESS_TOKEN_SECRET"),
		ResetTokenSecret:  os.Getenv("RESET_TOKEN_SECRET"),
		AccessTokenTTL:    getDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		RefreshTokenTTL:   getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		ResetTokenTTL:     getDuration("RESET_TOKEN_TTL", 10*time.Minute),
		RefreshTokenBytes: getInt("REFRESH_TOKEN_BYTES", 32),
		TokenIssuer:       getEnv("TOKEN_ISSUER", "enemamar"),

		OTPLength:       getInt("OTP_LENGTH", 6),
		OTPTTL:          getDuration("OTP_TTL", 5*time.Minute),
		OTPSendInterval: getDuration("OTP_SEND_INTERVAL", time.Minute),

		SMSEndpoint: getEnv("SMS_ENDPOINT", "https://api.afromessage.com/api/challenge"),
		SMSAPIKey:   os.Getenv("SMS_API_KEY"),
		SMSSender:   getEnv("SMS_SENDER", "Enemamar"),

		ChapaBaseURL:       getEnv("CHAPA_BASE_URL", "https://api.chapa.co/v1"),
		ChapaSecretKey:     os.Getenv("CHAPA_SECRET_KEY"),
		ChapaWebhookSecret: os.Getenv("CHAPA_WEBHOOK_SECRET"),
		PaymentCallbackURL: getEnv("PAYMENT_CALLBACK_URL", "http://localhost:8000/payments/callback"),

		AdminEmail:    strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		AdminPhone:    strings.TrimSpace(os.Getenv("ADMIN_PHONE")),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		RateLimitRPM:      getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure: getBool("OTEL_EXPORTER_OTLP_INSECURE", true),

		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type", "Refresh-Token"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", false),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AccessTokenSecret == "" {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_SECRET is required")
	}
	if cfg.ResetTokenSecret == "" {
		return Config{}, fmt.Errorf("RESET_TOKEN_SECRET is required")
	}
	// HS256 signing refuses keys shorter than 32 bytes, so catch that at
	// startup instead of on the first login.
	if len(cfg.AccessTokenSecret) < minTokenSecretLen {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_SECRET must be at least %d bytes", minTokenSecretLen)
	}
	if len(cfg.ResetTokenSecret) < minTokenSecretLen {
		return Config{}, fmt.Errorf("RESET_TOKEN_SECRET must be at least %d bytes", minTokenSecretLen)
	}
	if cfg.ChapaWebhookSecret == "" {
		return Config{}, fmt.Errorf("CHAPA_WEBHOOK_SECRET is required")
	}

	if cfg.RefreshTokenBytes < 32 {
		cfg.RefreshTokenBytes = 32
	}
	if cfg.OTPLength < 4 || cfg.OTPLength > 10 {
		cfg.OTPLength = 6
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
