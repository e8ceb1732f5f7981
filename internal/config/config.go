package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AllowedOrigins []string // CORS allowed origins

	JWTAlgorithm      string
	JWTSecret         string
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	UnverifiedTTL     time.Duration
	VerifiedTTL       time.Duration

	CodeDigits        int
	CodeTTL           time.Duration
	CodeSweepInterval time.Duration

	DefaultLanguage string
	DispatchTimeout time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SMSEnabled bool
	SNSRegion  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	AuditEnabled         bool
	AuditTable           string
	AuditRetention       time.Duration
	TranslationsS3Bucket string
	TranslationsS3Key    string

	RedisAddr      string
	RedisKeyPrefix string
	RequestLimit   int
	RequestWindow  time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies lists proxy CIDRs/IPs whose X-Forwarded-For is believed.
	TrustedProxies []string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		JWTAlgorithm:      getEnv("JWT_ALGORITHM", "HS256"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", ""),
		UnverifiedTTL:     getEnvDuration("UNVERIFIED_TOKEN_TTL", 5*time.Minute),
		VerifiedTTL:       getEnvDuration("VERIFIED_TOKEN_TTL", 365*24*time.Hour),

		CodeDigits:        getEnvInt("CODE_DIGITS", 4),
		CodeTTL:           getEnvDuration("CODE_TTL", 5*time.Minute),
		CodeSweepInterval: getEnvDuration("CODE_SWEEP_INTERVAL", time.Minute),

		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		DispatchTimeout: getEnvDuration("DISPATCH_TIMEOUT", 30*time.Second),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SMSEnabled: getEnvBool("SMS_ENABLED", false),
		SNSRegion:  getEnv("SNS_REGION", "us-east-1"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		AuditEnabled:         getEnvBool("AUDIT_ENABLED", false),
		AuditTable:           getEnv("DYNAMO_TABLE_AUTH_EVENTS", "auth_events"),
		AuditRetention:       getEnvDuration("AUDIT_RETENTION", 90*24*time.Hour),
		TranslationsS3Bucket: getEnv("TRANSLATIONS_S3_BUCKET", ""),
		TranslationsS3Key:    getEnv("TRANSLATIONS_S3_KEY", ""),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "pwl-rate:"),
		RequestLimit:   getEnvInt("REQUEST_LIMIT", 5),
		RequestWindow:  getEnvDuration("REQUEST_WINDOW", 15*time.Minute),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("15m", "8760h").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
