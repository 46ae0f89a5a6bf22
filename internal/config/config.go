package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Values come from an optional YAML
// file (CONFIG_FILE) overlaid by environment variables; environment wins.
type Config struct {
	DatabaseURL      string `yaml:"database_url"`
	RedisURL         string `yaml:"redis_url"`
	RabbitMQURL      string `yaml:"rabbitmq_url"`
	RabbitMQPrefetch int    `yaml:"rabbitmq_prefetch"`

	ServerPort     string   `yaml:"server_port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimit      string   `yaml:"rate_limit"`

	ChatWebhookURL string `yaml:"chat_webhook_url"`

	Timezone                string `yaml:"timezone"`
	GraceMinutes            int    `yaml:"grace_minutes"`
	TaskReminderLeadMinutes int    `yaml:"task_reminder_lead_minutes"`
	HabitHorizonDays        int    `yaml:"habit_horizon_days"`
	HabitSweepMinutes       int    `yaml:"habit_sweep_minutes"`

	AuthIssuer  string `yaml:"auth_issuer"`
	AuthJWKSURL string `yaml:"auth_jwks_url"`

	OpenAIKey string `yaml:"openai_api_key"`
	AIModel   string `yaml:"ai_model"`
	AIBaseURL string `yaml:"ai_base_url"`

	WorkerDebugMode bool `yaml:"worker_debug_mode"`
	ServerDebugMode bool `yaml:"server_debug_mode"`

	OTELEnabled  bool   `yaml:"otel_enabled"`
	OTELEndpoint string `yaml:"otel_endpoint"`
}

// Load loads configuration from the optional CONFIG_FILE YAML file and the
// environment.
func Load() (*Config, error) {
	cfg := &Config{
		RedisURL:                "redis://localhost:6379/0",
		RabbitMQPrefetch:        1,
		ServerPort:              "8080",
		RateLimit:               "5-S",
		Timezone:                "Asia/Kuala_Lumpur",
		GraceMinutes:            60,
		TaskReminderLeadMinutes: 30,
		HabitHorizonDays:        2,
		HabitSweepMinutes:       60,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.RabbitMQPrefetch = getEnvInt("RABBITMQ_PREFETCH", cfg.RabbitMQPrefetch)
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.RateLimit = getEnv("RATE_LIMIT", cfg.RateLimit)
	cfg.ChatWebhookURL = getEnv("CHAT_WEBHOOK_URL", cfg.ChatWebhookURL)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)
	cfg.GraceMinutes = getEnvInt("GRACE_MINUTES", cfg.GraceMinutes)
	cfg.TaskReminderLeadMinutes = getEnvInt("TASK_REMINDER_LEAD_MINUTES", cfg.TaskReminderLeadMinutes)
	cfg.HabitHorizonDays = getEnvInt("HABIT_HORIZON_DAYS", cfg.HabitHorizonDays)
	cfg.HabitSweepMinutes = getEnvInt("HABIT_SWEEP_MINUTES", cfg.HabitSweepMinutes)
	cfg.AuthIssuer = getEnv("AUTH_ISSUER", cfg.AuthIssuer)
	cfg.AuthJWKSURL = getEnv("AUTH_JWKS_URL", cfg.AuthJWKSURL)
	cfg.OpenAIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.AIModel = getEnv("AI_MODEL", cfg.AIModel)
	cfg.AIBaseURL = getEnv("AI_BASE_URL", cfg.AIBaseURL)
	cfg.WorkerDebugMode = getEnvBool("WORKER_DEBUG_MODE", cfg.WorkerDebugMode)
	cfg.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitAndTrim(origins)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for reminder scheduling")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	if cfg.GraceMinutes <= 0 {
		return nil, fmt.Errorf("GRACE_MINUTES must be positive")
	}

	return cfg, nil
}

// Location returns the user timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Grace returns the auto-expiry grace window.
func (c *Config) Grace() time.Duration {
	return time.Duration(c.GraceMinutes) * time.Minute
}

// TaskReminderLead returns how long before a task's due time its reminder fires.
func (c *Config) TaskReminderLead() time.Duration {
	return time.Duration(c.TaskReminderLeadMinutes) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
