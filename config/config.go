package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string
	AppMode       string
	LogMode       string
	StoreDriver   string
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	JWTSecret     string
	JWTIssuer     string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	S3         S3Config
	RateLimit  RateLimitConfig
	Moderation ModerationConfig
}

type S3Config struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PresignTTL time.Duration
}

type RateLimitConfig struct {
	MessagesPerMinute int
	ReportsPerHour    int
}

// ModerationConfig holds the thresholds and windows of the trust & safety
// pipeline. Defaults match the platform's historical constants.
type ModerationConfig struct {
	ReportEscalationThreshold int
	StrikeBanThreshold        int
	TempBanDuration           time.Duration
	ReportCooldown            time.Duration
	AppealWindow              time.Duration
	MaxMessageLength          int
	ReviewContextMessages     int
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:       getEnv("APP_PORT", "8080"),
		AppMode:       getEnv("APP_MODE", "debug"),
		LogMode:       getEnv("LOG_MODE", "development"),
		StoreDriver:   getEnv("STORE_DRIVER", StoreDriverPostgres),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "sentinal_safety"),
		DBPort:        getEnv("DB_PORT", "5432"),
		JWTSecret:     getEnv("JWT_SECRET", "change-me"),
		JWTIssuer:     getEnv("JWT_ISSUER", ""),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		S3: S3Config{
			Region:     getEnv("S3_REGION", ""),
			Bucket:     getEnv("S3_BUCKET", ""),
			AccessKey:  getEnv("S3_ACCESS_KEY", ""),
			SecretKey:  getEnv("S3_SECRET_KEY", ""),
			Endpoint:   getEnv("S3_ENDPOINT", ""),
			PresignTTL: time.Duration(getEnvAsInt("S3_PRESIGN_TTL_MIN", 15)) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			MessagesPerMinute: getEnvAsInt("RATE_LIMIT_MESSAGES_PER_MIN", 60),
			ReportsPerHour:    getEnvAsInt("RATE_LIMIT_REPORTS_PER_HOUR", 20),
		},
		Moderation: ModerationConfig{
			ReportEscalationThreshold: getEnvAsInt("REPORT_ESCALATION_THRESHOLD", 3),
			StrikeBanThreshold:        getEnvAsInt("STRIKE_BAN_THRESHOLD", 3),
			TempBanDuration:           time.Duration(getEnvAsInt("TEMP_BAN_MINUTES", 24*60)) * time.Minute,
			ReportCooldown:            time.Duration(getEnvAsInt("REPORT_COOLDOWN_HOURS", 24)) * time.Hour,
			AppealWindow:              time.Duration(getEnvAsInt("APPEAL_WINDOW_DAYS", 7)) * 24 * time.Hour,
			MaxMessageLength:          getEnvAsInt("MAX_MESSAGE_LENGTH", 5000),
			ReviewContextMessages:     getEnvAsInt("REVIEW_CONTEXT_MESSAGES", 20),
		},
	}
}

// DefaultModeration returns the moderation settings used when nothing is
// configured.
func DefaultModeration() ModerationConfig {
	return ModerationConfig{
		ReportEscalationThreshold: 3,
		StrikeBanThreshold:        3,
		TempBanDuration:           24 * time.Hour,
		ReportCooldown:            24 * time.Hour,
		AppealWindow:              7 * 24 * time.Hour,
		MaxMessageLength:          5000,
		ReviewContextMessages:     20,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
