package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr          = ":8080"
	defaultJWTTTL            = "24h"
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultActionTokenPepper = "change-me-action-token-pepper"
	defaultPublicBaseURL     = "http://localhost:5173"
	defaultMailMode          = "console"
	defaultMailFrom          = "Planner <no-reply@localhost>"
	defaultSMTPPort          = "587"
	defaultGoogleAPIBaseURL  = "https://www.googleapis.com/calendar/v3"
	defaultGoogleTokenURL    = "https://oauth2.googleapis.com/token"
	defaultReconcileCron     = "*/10 * * * *"
	defaultSideEffectTimeout = "10s"
)

const (
	MailModeConsole = "console"
	MailModeSMTP    = "smtp"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	APIBaseURL   string
	TokenURL     string
}

// Enabled reports whether enough credentials are present to register the
// Google Calendar provider.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RefreshToken != ""
}

type Config struct {
	AppEnv             string
	HTTPAddr           string
	DatabaseURL        string
	JWTSecret          string
	JWTTTL             time.Duration
	ActionTokenPepper  string
	PublicBaseURL      string
	MailMode           string
	MailFrom           string
	SMTP               SMTPConfig
	CalendarSourceFile string
	Google             GoogleConfig
	ReconcileCron      string
	SideEffectTimeout  time.Duration
	CORSAllowedOrigins []string
	// InternalToken guards /internal ops endpoints; empty disables them.
	InternalToken      string
	InternalAllowedIPs []string
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.ActionTokenPepper = strings.TrimSpace(getEnv("ACTION_TOKEN_PEPPER", defaultActionTokenPepper))
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(getEnv("PUBLIC_BASE_URL", defaultPublicBaseURL)), "/")
	cfg.MailMode = strings.ToLower(strings.TrimSpace(getEnv("MAIL_MODE", defaultMailMode)))
	cfg.MailFrom = strings.TrimSpace(getEnv("MAIL_FROM", defaultMailFrom))
	cfg.CalendarSourceFile = strings.TrimSpace(os.Getenv("CALENDAR_SOURCES_FILE"))
	cfg.ReconcileCron = strings.TrimSpace(getEnv("RECONCILE_CRON", defaultReconcileCron))

	cfg.SMTP = SMTPConfig{
		Host:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		Username: strings.TrimSpace(os.Getenv("SMTP_USERNAME")),
		Password: os.Getenv("SMTP_PASSWORD"),
	}
	port, err := strconv.Atoi(strings.TrimSpace(getEnv("SMTP_PORT", defaultSMTPPort)))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	cfg.SMTP.Port = port

	cfg.Google = GoogleConfig{
		ClientID:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		ClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
		RefreshToken: strings.TrimSpace(os.Getenv("GOOGLE_REFRESH_TOKEN")),
		APIBaseURL:   strings.TrimRight(strings.TrimSpace(getEnv("GOOGLE_API_BASE_URL", defaultGoogleAPIBaseURL)), "/"),
		TokenURL:     strings.TrimSpace(getEnv("GOOGLE_TOKEN_URL", defaultGoogleTokenURL)),
	}

	cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}
	cfg.SideEffectTimeout, err = parseDurationEnv("SIDE_EFFECT_TIMEOUT", defaultSideEffectTimeout)
	if err != nil {
		return nil, err
	}

	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	cfg.InternalToken = strings.TrimSpace(os.Getenv("INTERNAL_TOKEN"))
	cfg.InternalAllowedIPs = splitList(os.Getenv("INTERNAL_ALLOWED_IPS"))

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("config loaded: env=%s addr=%s mail=%s google=%t sources_file=%q", cfg.AppEnv, cfg.HTTPAddr, cfg.MailMode, cfg.Google.Enabled(), cfg.CalendarSourceFile)

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.SideEffectTimeout <= 0 {
		return fmt.Errorf("SIDE_EFFECT_TIMEOUT must be > 0")
	}
	if cfg.ReconcileCron == "" {
		return fmt.Errorf("RECONCILE_CRON must not be empty")
	}
	switch cfg.MailMode {
	case MailModeConsole:
	case MailModeSMTP:
		if cfg.SMTP.Host == "" {
			return fmt.Errorf("SMTP_HOST is required when MAIL_MODE=smtp")
		}
		if cfg.SMTP.Port <= 0 {
			return fmt.Errorf("SMTP_PORT must be > 0")
		}
	default:
		return fmt.Errorf("MAIL_MODE must be one of: console, smtp")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.ActionTokenPepper, defaultActionTokenPepper) {
			return fmt.Errorf("in prod/release ACTION_TOKEN_PEPPER must be set and not default")
		}
		if !strings.HasPrefix(cfg.PublicBaseURL, "https://") {
			return fmt.Errorf("in prod/release PUBLIC_BASE_URL must be https")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
