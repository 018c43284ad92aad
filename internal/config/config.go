package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"
)

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the Postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RabbitMQConfig holds broker settings
type RabbitMQConfig struct {
	Host        string
	Port        string
	User        string
	Pass        string
	JobsQueue   string
	EventsQueue string
}

// URL builds the AMQP connection URL
func (r RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", r.User, r.Pass, r.Host, r.Port)
}

// AnalyticsConfig tunes aggregation, generation and alerting
type AnalyticsConfig struct {
	TimeZone           *time.Location
	MaxLookbackDays    int
	DefaultDays        int
	DefaultMinItems    int
	AlertWindowDays    int
	ViralWindowDays    int
	AlertCheckInterval time.Duration
	AlertCheckWorkers  int
}

// Config is the process configuration read from the environment
type Config struct {
	Port           string
	BasePath       string
	LogLevel       string
	JWTSecret      string
	QueryTimeout   time.Duration
	ExportsDir     string
	SchedulerOn    bool
	Database       DatabaseConfig
	RabbitMQ       RabbitMQConfig
	Analytics      AnalyticsConfig
	AllowedOrigins string
}

// Load returns configuration from environment variables
func Load() (*Config, error) {
	loc, err := time.LoadLocation(getEnv("ANALYTICS_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYTICS_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		BasePath:       getEnv("BASE_PATH", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		QueryTimeout:   getEnvAsDuration("DB_QUERY_TIMEOUT", 10*time.Second),
		ExportsDir:     getEnv("EXPORTS_DIR", "exports"),
		SchedulerOn:    getEnvAsBool("ALERT_SCHEDULER_ENABLED", true),
		AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", ""),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", ""),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RabbitMQ: RabbitMQConfig{
			Host:        getEnv("RABBITMQ_HOST", "localhost"),
			Port:        getEnv("RABBITMQ_PORT", "5672"),
			User:        getEnv("RABBITMQ_USER", "guest"),
			Pass:        getEnv("RABBITMQ_PASS", "guest"),
			JobsQueue:   getEnv("RABBITMQ_JOBS_QUEUE", "analytics_jobs"),
			EventsQueue: getEnv("RABBITMQ_EVENTS_QUEUE", "analytics_events"),
		},
		Analytics: AnalyticsConfig{
			TimeZone:           loc,
			MaxLookbackDays:    getEnvAsInt("ANALYTICS_MAX_LOOKBACK_DAYS", 365),
			DefaultDays:        30,
			DefaultMinItems:    3,
			AlertWindowDays:    getEnvAsInt("ALERT_WINDOW_DAYS", 7),
			ViralWindowDays:    getEnvAsInt("VIRAL_WINDOW_DAYS", 1),
			AlertCheckInterval: getEnvAsDuration("ALERT_CHECK_INTERVAL", time.Hour),
			AlertCheckWorkers:  getEnvAsInt("ALERT_CHECK_WORKERS", 4),
		},
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Analytics.MaxLookbackDays < 1 {
		return nil, fmt.Errorf("ANALYTICS_MAX_LOOKBACK_DAYS must be positive")
	}
	if cfg.Analytics.AlertWindowDays < 1 || cfg.Analytics.ViralWindowDays < 1 {
		return nil, fmt.Errorf("alert windows must be at least one day")
	}
	if cfg.Analytics.AlertCheckWorkers < 1 {
		cfg.Analytics.AlertCheckWorkers = 1
	}
	return cfg, nil
}

// DefaultAnalytics returns analytics settings with built-in defaults
func DefaultAnalytics() AnalyticsConfig {
	return AnalyticsConfig{
		TimeZone:           time.UTC,
		MaxLookbackDays:    365,
		DefaultDays:        30,
		DefaultMinItems:    3,
		AlertWindowDays:    7,
		ViralWindowDays:    1,
		AlertCheckInterval: time.Hour,
		AlertCheckWorkers:  4,
	}
}

// getEnv gets environment variable with fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}
