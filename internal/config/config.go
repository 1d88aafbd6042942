package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var ErrNotConfigured = errors.New("supabase is not configured")

type Config struct {
	Port string

	DatabaseURL string
	RLSEnabled  bool

	SupabaseURL          string
	SupabaseAnonKey      string
	SupabaseRefreshToken string
	AuthRedirectURL      string

	AMQPURL string

	MailHost string
	MailPort int
	MailUser string
	MailPass string
	MailFrom string

	CORSOrigins []string
}

// Load reads .env when present, then the environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) *Config {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	mailPort, err := strconv.Atoi(get("MAIL_PORT", "587"))
	if err != nil {
		mailPort = 587
	}
	rls, err := strconv.ParseBool(get("DB_RLS_ENABLED", "true"))
	if err != nil {
		rls = true
	}

	var origins []string
	for _, o := range strings.Split(get("CORS_ORIGINS", "http://localhost:5173"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Config{
		Port:                 get("PORT", "8080"),
		DatabaseURL:          get("DATABASE_URL", ""),
		RLSEnabled:           rls,
		SupabaseURL:          get("SUPABASE_URL", ""),
		SupabaseAnonKey:      get("SUPABASE_ANON_KEY", ""),
		SupabaseRefreshToken: get("SUPABASE_REFRESH_TOKEN", ""),
		AuthRedirectURL:      get("AUTH_REDIRECT_URL", ""),
		AMQPURL:              get("AMQP_URL", ""),
		MailHost:             get("MAIL_HOST", ""),
		MailPort:             mailPort,
		MailUser:             get("MAIL_USER", ""),
		MailPass:             get("MAIL_PASS", ""),
		MailFrom:             get("MAIL_FROM", "no-reply@glassflow.app"),
		CORSOrigins:          origins,
	}
}

// Missing lists the required variables that are unset.
func (c *Config) Missing() []string {
	var missing []string
	if c.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if c.SupabaseAnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	return missing
}

func (c *Config) Validate() error {
	if missing := c.Missing(); len(missing) > 0 {
		return errors.Join(ErrNotConfigured, errors.New("missing "+strings.Join(missing, ", ")))
	}
	return nil
}

func (c *Config) MessagingEnabled() bool { return c.AMQPURL != "" }

func (c *Config) MailEnabled() bool { return c.MailHost != "" }
