package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Config holds all configuration values
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Jobs      JobsConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port        string
	Env         string
	FrontendURL string
}

// IsDevelopment reports whether the server runs in development mode
func (c ServerConfig) IsDevelopment() bool { return c.Env == EnvDevelopment }

// IsTest reports whether the server runs in test mode
func (c ServerConfig) IsTest() bool { return c.Env == EnvTest }

// IsProduction reports whether the server runs in production mode
func (c ServerConfig) IsProduction() bool { return c.Env == EnvProduction }

// DebugEndpointsEnabled reports whether test helpers may be exposed
func (c ServerConfig) DebugEndpointsEnabled() bool {
	return c.IsDevelopment() || c.IsTest()
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	Issuer        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// AuthConfig holds password hashing configuration
type AuthConfig struct {
	BcryptCost int
}

// JobsConfig holds the job queue and worker configuration
type JobsConfig struct {
	// Enabled turns on the cron scheduler for purge and maintenance
	Enabled             bool
	// RunInServer runs worker, listener and scheduler inside cmd/server
	RunInServer         bool
	RetryLimit          int
	RetryDelay          time.Duration
	PollInterval        time.Duration
	BatchSize           int
	StaleAfter          time.Duration
	DeleteAfter         time.Duration
	PurgeSchedule       string
	MaintenanceSchedule string
}

// EmailConfig holds outbound email configuration
type EmailConfig struct {
	Provider      string
	FromEmail     string
	FromName      string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	MailgunDomain string
	MailgunAPIKey string
}

// RateLimitConfig holds the per-client request limit
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	env := getEnv("SERVER_ENV", EnvDevelopment)
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "3051"),
			Env:         env,
			FrontendURL: getEnv("FRONTEND_URL", "http://127.0.0.1:3050"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5440),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "hacker_tracker"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Issuer:        getEnv("JWT_ISSUER", "hacker-tracker"),
			AccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 7*24*time.Hour),
			RefreshExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 30*24*time.Hour),
		},
		Auth: AuthConfig{
			BcryptCost: getEnvAsInt("BCRYPT_COST", 12),
		},
		Jobs: JobsConfig{
			Enabled:             getEnvAsBool("JOBS_ENABLED", false),
			RunInServer:         getEnvAsBool("JOBS_RUN_IN_SERVER", false),
			RetryLimit:          getEnvAsInt("JOBS_RETRY_LIMIT", 3),
			RetryDelay:          getEnvAsDuration("JOBS_RETRY_DELAY", 60*time.Second),
			PollInterval:        getEnvAsDuration("JOBS_POLL_INTERVAL", 2*time.Second),
			BatchSize:           getEnvAsInt("JOBS_BATCH_SIZE", 10),
			StaleAfter:          getEnvAsDuration("JOBS_STALE_AFTER", 15*time.Minute),
			DeleteAfter:         getEnvAsDuration("JOBS_DELETE_AFTER", 7*24*time.Hour),
			PurgeSchedule:       getEnv("JOBS_PURGE_SCHEDULE", "@every 10m"),
			MaintenanceSchedule: getEnv("JOBS_MAINTENANCE_SCHEDULE", "@every 2m"),
		},
		Email: EmailConfig{
			Provider:      strings.ToLower(getEnv("EMAIL_PROVIDER", "log")),
			FromEmail:     getEnv("EMAIL_FROM_ADDRESS", "no-reply@hackertracker.com"),
			FromName:      getEnv("EMAIL_FROM_NAME", "Hacker Tracker"),
			SMTPHost:      getEnv("SMTP_HOST", "localhost"),
			SMTPPort:      getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:      getEnv("SMTP_USER", ""),
			SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
			MailgunDomain: getEnv("MAILGUN_DOMAIN", ""),
			MailgunAPIKey: getEnv("MAILGUN_API_KEY", ""),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
