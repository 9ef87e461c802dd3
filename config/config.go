package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/romana/rlog"
	"gopkg.in/yaml.v3"
)

type Database struct {
	URL      string   `yaml:"url"`
	Host     string   `yaml:"host"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	Name     string   `yaml:"name"`
	Port     int      `yaml:"port"`
	Replicas []string `yaml:"replicas"`
}

// DSN returns the primary connection string. An explicit URL wins over the
// individual fields.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port)
}

type HTTP struct {
	Port            string `yaml:"port"`
	AllowedOrigins  string `yaml:"allowed_origins"`
	RateLimitMax    int    `yaml:"rate_limit_max"`
	RateLimitWindow int    `yaml:"rate_limit_window_seconds"`
	BodyLimitMB     int    `yaml:"body_limit_mb"`
	JWTSecret       string `yaml:"jwt_secret_key"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

type Monitor struct {
	Interval       time.Duration `yaml:"interval"`
	OutboxInterval time.Duration `yaml:"outbox_interval"`
	OutboxBatch    int           `yaml:"outbox_batch"`
}

type WhatsApp struct {
	PhoneNumberID string `yaml:"phone_number_id"`
	Token         string `yaml:"token"`
	APIBase       string `yaml:"api_base"`
}

type Gemini struct {
	APIKey  string `yaml:"api_key"`
	APIBase string `yaml:"api_base"`
	Model   string `yaml:"model"`
}

type GoldRate struct {
	URL string `yaml:"url"`
}

type Config struct {
	Database Database `yaml:"database"`
	HTTP     HTTP     `yaml:"http"`
	Monitor  Monitor  `yaml:"monitor"`
	WhatsApp WhatsApp `yaml:"whatsapp"`
	Gemini   Gemini   `yaml:"gemini"`
	GoldRate GoldRate `yaml:"gold_rate"`
}

func Default() Config {
	return Config{
		Database: Database{Host: "db", Port: 5432},
		HTTP: HTTP{
			Port:            "8080",
			AllowedOrigins:  "*",
			RateLimitMax:    60,
			RateLimitWindow: 60,
			BodyLimitMB:     4,
			PublicBaseURL:   "http://localhost:8080",
		},
		Monitor: Monitor{
			Interval:       60 * time.Second,
			OutboxInterval: 5 * time.Second,
			OutboxBatch:    20,
		},
		WhatsApp: WhatsApp{APIBase: "https://graph.facebook.com/v21.0"},
		Gemini: Gemini{
			APIBase: "https://generativelanguage.googleapis.com/v1beta",
			Model:   "gemini-2.0-flash",
		},
		GoldRate: GoldRate{URL: "https://uat.batuk.in/augmont/gold"},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE and finally the environment (a .env file is loaded if present).
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		rlog.Warnf("could not load .env: %v", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.readFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()

	if cfg.HTTP.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET_KEY is not set")
	}
	return cfg, nil
}

func (cfg *Config) readFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (cfg *Config) applyEnv() {
	db := &cfg.Database
	db.URL = envString("DATABASE_URL", db.URL)
	db.Host = envString("DB_HOST", db.Host)
	db.User = envString("DB_USER", db.User)
	db.Password = envString("DB_PASSWORD", db.Password)
	db.Name = envString("DB_NAME", db.Name)
	db.Port = envInt("DB_PORT", db.Port)
	if v := os.Getenv("DB_REPLICA_DSNS"); v != "" {
		db.Replicas = splitList(v, ";")
	}

	h := &cfg.HTTP
	h.Port = envString("PORT", h.Port)
	h.AllowedOrigins = envString("ALLOWED_ORIGINS", h.AllowedOrigins)
	h.RateLimitMax = envInt("RATE_LIMIT_MAX", h.RateLimitMax)
	h.RateLimitWindow = envInt("RATE_LIMIT_WINDOW_SECONDS", h.RateLimitWindow)
	h.BodyLimitMB = envInt("BODY_LIMIT_MB", h.BodyLimitMB)
	h.JWTSecret = envString("JWT_SECRET_KEY", h.JWTSecret)
	h.PublicBaseURL = envString("PUBLIC_BASE_URL", h.PublicBaseURL)

	m := &cfg.Monitor
	m.Interval = envDuration("MONITOR_INTERVAL", m.Interval)
	m.OutboxInterval = envDuration("OUTBOX_INTERVAL", m.OutboxInterval)
	m.OutboxBatch = envInt("OUTBOX_BATCH", m.OutboxBatch)

	cfg.WhatsApp.PhoneNumberID = envString("WHATSAPP_PHONE_NUMBER_ID", cfg.WhatsApp.PhoneNumberID)
	cfg.WhatsApp.Token = envString("WHATSAPP_TOKEN", cfg.WhatsApp.Token)
	cfg.WhatsApp.APIBase = envString("WHATSAPP_API_BASE", cfg.WhatsApp.APIBase)

	cfg.Gemini.APIKey = envString("GEMINI_API_KEY", cfg.Gemini.APIKey)
	cfg.Gemini.APIBase = envString("GEMINI_API_BASE", cfg.Gemini.APIBase)
	cfg.Gemini.Model = envString("GEMINI_MODEL", cfg.Gemini.Model)

	cfg.GoldRate.URL = envString("GOLD_RATE_URL", cfg.GoldRate.URL)
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// envDuration accepts Go durations ("90s") or plain seconds ("90").
func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func splitList(v, sep string) []string {
	var out []string
	for _, part := range strings.Split(v, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
