// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// Store – either set DatabaseURL directly (postgres://, mysql://, sqlite://),
	// or the individual PostgreSQL fields.
	DatabaseURL string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      string
	DBName      string
	DBSSLMode   string
	DBTimeout   time.Duration

	// Sessions are kept on disk so they survive restarts and are shared by workers.
	SessionSecret string
	SessionDir    string
	SessionMaxAge int

	// JWT signing secret for the /api group.
	JWTSecret string
	// CSRFKey protects form posts (32 bytes). Optional in debug mode only.
	CSRFKey string

	// Schedule
	ScheduleBatch bool
	Timezone      string

	// Server
	Debug      bool
	Port       string
	TLSDomains []string
}

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win.
func Load() *Config {
	v := newViper()

	// Defaults
	v.SetDefault("DB_USER", "trainers")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "trainers")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_TIMEOUT", "10s")
	v.SetDefault("SESSION_DIR", os.TempDir())
	v.SetDefault("SESSION_MAX_AGE", 8*60*60)
	v.SetDefault("SCHEDULE_BATCH", false)
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("PORT", ":5000")
	v.SetDefault("TLS_DOMAINS", "")
	v.SetDefault("DEBUG", false)

	cfg := &Config{
		DatabaseURL:   v.GetString("DATABASE_URL"),
		DBUser:        v.GetString("DB_USER"),
		DBPass:        v.GetString("DB_PASS"),
		DBHost:        v.GetString("DB_HOST"),
		DBPort:        v.GetString("DB_PORT"),
		DBName:        v.GetString("DB_NAME"),
		DBSSLMode:     v.GetString("DB_SSLMODE"),
		DBTimeout:     v.GetDuration("DB_TIMEOUT"),
		SessionSecret: v.GetString("SESSION_SECRET"),
		SessionDir:    v.GetString("SESSION_DIR"),
		SessionMaxAge: v.GetInt("SESSION_MAX_AGE"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		CSRFKey:       v.GetString("CSRF_KEY"),
		ScheduleBatch: v.GetBool("SCHEDULE_BATCH"),
		Timezone:      v.GetString("TIMEZONE"),
		Debug:         v.GetBool("DEBUG"),
		Port:          v.GetString("PORT"),
		TLSDomains:    splitTrimmed(v.GetString("TLS_DOMAINS")),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	return cfg
}

// DSN returns the store connection string.
// DATABASE_URL takes precedence over individual fields.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser,
		c.DBPass,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// JWTKey returns the JWT signing key as a byte slice.
func (c *Config) JWTKey() []byte {
	return []byte(c.JWTSecret)
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate reports the first missing or malformed setting.
// Session, JWT and CSRF secrets may only be omitted in debug mode.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.DBPass == "" {
		return fmt.Errorf("config: DATABASE_URL or DB_PASS must be set")
	}
	if !c.Debug && c.SessionSecret == "" {
		return fmt.Errorf("config: SESSION_SECRET must be set")
	}
	if !c.Debug && c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET must be set")
	}
	if !c.Debug && c.CSRFKey == "" {
		return fmt.Errorf("config: CSRF_KEY must be set")
	}
	if c.CSRFKey != "" && len(c.CSRFKey) != 32 {
		return fmt.Errorf("config: CSRF_KEY must be 32 bytes, got %d", len(c.CSRFKey))
	}
	if c.DBTimeout < 0 {
		return fmt.Errorf("config: DB_TIMEOUT must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: TIMEZONE: %w", err)
	}
	return nil
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
