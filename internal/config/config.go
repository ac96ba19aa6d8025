package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// AuthModeNormal requires a verified patient session for every patient-facing
// route. AuthModeDevBypass authenticates unauthenticated requests as the demo
// patient; it exists for local development only and is refused in production.
const (
	AuthModeNormal    = "normal"
	AuthModeDevBypass = "dev-bypass"
)

type Config struct {
	Port                   string   `mapstructure:"PORT"`
	Env                    string   `mapstructure:"ENV"`
	AuthMode               string   `mapstructure:"AUTH_MODE"`
	DatabaseURL            string   `mapstructure:"DATABASE_URL"`
	DBMaxConns             int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns             int32    `mapstructure:"DB_MIN_CONNS"`
	SessionSecret          string   `mapstructure:"SESSION_SECRET"`
	SessionTTLHours        int      `mapstructure:"SESSION_TTL_HOURS"`
	CORSOrigins            []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS           float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst         int      `mapstructure:"RATE_LIMIT_BURST"`
	OTPTTLMinutes          int      `mapstructure:"OTP_TTL_MINUTES"`
	SummaryCooldownSeconds int      `mapstructure:"SUMMARY_COOLDOWN_SECONDS"`
	TokenDefaultTTLHours   int      `mapstructure:"TOKEN_DEFAULT_TTL_HOURS"`
	TokenMaxTTLHours       int      `mapstructure:"TOKEN_MAX_TTL_HOURS"`
	DemoPatientEmail       string   `mapstructure:"DEMO_PATIENT_EMAIL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // auto-detect: "" -> inferred from ENV
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("SESSION_TTL_HOURS", 24)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("OTP_TTL_MINUTES", 10)
	v.SetDefault("SUMMARY_COOLDOWN_SECONDS", 30)
	v.SetDefault("TOKEN_DEFAULT_TTL_HOURS", 24)
	v.SetDefault("TOKEN_MAX_TTL_HOURS", 720)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("AUTH_MODE")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("SESSION_SECRET")
	v.BindEnv("SESSION_TTL_HOURS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("OTP_TTL_MINUTES")
	v.BindEnv("SUMMARY_COOLDOWN_SECONDS")
	v.BindEnv("TOKEN_DEFAULT_TTL_HOURS")
	v.BindEnv("TOKEN_MAX_TTL_HOURS")
	v.BindEnv("DEMO_PATIENT_EMAIL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.ResolvedAuthMode() == AuthModeDevBypass {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running with AUTH_MODE=dev-bypass.")
		log.Println("WARNING: Unauthenticated requests act as the demo patient.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns the effective auth mode. If AUTH_MODE is explicitly
// set, it is returned. Otherwise ENV=development implies dev-bypass and
// everything else implies normal.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return AuthModeDevBypass
	}
	return AuthModeNormal
}

// Validate checks that the configuration is safe to run. The dev bypass is
// refused in production, and a session secret is required whenever real
// patient sessions are issued.
func (c *Config) Validate() error {
	mode := c.ResolvedAuthMode()
	if mode != AuthModeNormal && mode != AuthModeDevBypass {
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeNormal, AuthModeDevBypass, mode)
	}
	if mode == AuthModeDevBypass && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=dev-bypass is not allowed when ENV=production")
	}
	if c.SessionSecret == "" && mode == AuthModeNormal {
		return fmt.Errorf("SESSION_SECRET is required when AUTH_MODE is %q", AuthModeNormal)
	}
	if c.TokenDefaultTTLHours <= 0 || c.TokenMaxTTLHours <= 0 {
		return fmt.Errorf("token TTL settings must be positive")
	}
	if c.TokenDefaultTTLHours > c.TokenMaxTTLHours {
		return fmt.Errorf("TOKEN_DEFAULT_TTL_HOURS (%d) exceeds TOKEN_MAX_TTL_HOURS (%d)",
			c.TokenDefaultTTLHours, c.TokenMaxTTLHours)
	}
	return nil
}
