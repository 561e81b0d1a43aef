package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	ServerPort string `envconfig:"PORT" default:"8080"`

	// Database
	DatabaseType string `envconfig:"DATABASE_TYPE" default:"sqlite"`
	DatabasePath string `envconfig:"DB_PATH" default:"./familypoints.db"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`

	// Auth
	JWTSecret       string        `envconfig:"JWT_SECRET"`
	TokenDuration   time.Duration `envconfig:"TOKEN_DURATION" default:"24h"`
	LoginRateLimit  int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	LoginRateWindow time.Duration `envconfig:"LOGIN_RATE_WINDOW" default:"1m"`
	AdminUsername   string        `envconfig:"ADMIN_USERNAME"`
	AdminPassword   string        `envconfig:"ADMIN_PASSWORD"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogOutput string `envconfig:"LOG_OUTPUT" default:"stdout"`

	// Calendar day boundaries for weekly summaries and the analysis cache
	Timezone string `envconfig:"APP_TIMEZONE" default:"Local"`

	// Homework analysis
	LLMBaseURL               string        `envconfig:"LLM_BASE_URL" default:"https://api.openai.com/v1"`
	LLMAPIKey                string        `envconfig:"LLM_API_KEY"`
	LLMModel                 string        `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	LLMTimeout               time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	AnalysisCacheTTL         time.Duration `envconfig:"ANALYSIS_CACHE_TTL" default:"24h"`
	AnalysisCacheMaxPerChild int           `envconfig:"ANALYSIS_CACHE_MAX_PER_CHILD" default:"30"`
	AnalysisSweepCron        string        `envconfig:"ANALYSIS_SWEEP_CRON" default:"15 3 * * *"`

	// Email (Amazon SES); disabled when SESFromEmail is empty
	AWSRegion    string `envconfig:"AWS_REGION" default:"us-east-1"`
	SESFromEmail string `envconfig:"SES_FROM_EMAIL"`
	SESFromName  string `envconfig:"SES_FROM_NAME" default:"Family Points"`
	AppBaseURL   string `envconfig:"APP_BASE_URL" default:"http://localhost:8080"`
	EmailDebug   bool   `envconfig:"EMAIL_DEBUG" default:"false"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDatabase reads configuration for tools that only need the database
func LoadDatabase() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.validateDatabase(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validateDatabase() error {
	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3", "":
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for database type %s", c.DatabaseType)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
	return nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.TokenDuration <= 0 {
		return fmt.Errorf("TOKEN_DURATION must be positive")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if c.AnalysisCacheTTL <= 0 {
		return fmt.Errorf("ANALYSIS_CACHE_TTL must be positive")
	}
	if c.AnalysisCacheMaxPerChild <= 0 {
		return fmt.Errorf("ANALYSIS_CACHE_MAX_PER_CHILD must be > 0")
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured time zone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
