package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/Zachkp/solar-portfolio/internal/observability"
	"github.com/Zachkp/solar-portfolio/internal/solar"
	"github.com/Zachkp/solar-portfolio/internal/store"
)

// Config is read from the environment; a .env file is loaded first by
// godotenv/autoload.
type Config struct {
	Port    string
	GinMode string

	DBDriver string
	DBDSN    string

	SolarAPIURL   string
	SolarTimeout  time.Duration
	PhaseDuration time.Duration
	SessionTTL    time.Duration

	AdminUsername string
	AdminPassword string
	JWTSecret     string

	SMTP SMTPConfig

	CORSOrigins []string

	LogLevel  string
	LogFormat string

	Tracing observability.TracingConfig
}

// SMTPConfig holds the contact form mail settings.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	To   string
}

// loadConfig builds a Config from getenv. The returned warnings describe
// values that were replaced by defaults.
func loadConfig(getenv func(string) string) (Config, []string) {
	var warnings []string
	get := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}
	dur := func(k string, def time.Duration) time.Duration {
		raw := get(k, "")
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			warnings = append(warnings, k+" is not a valid duration, using "+def.String())
			return def
		}
		return d
	}

	cfg := Config{
		Port:          get("PORT", "8080"),
		GinMode:       get("GIN_MODE", ""),
		DBDriver:      strings.ToLower(get("DB_DRIVER", store.DriverSQLite)),
		DBDSN:         get("DB_DSN", "portfolio.db"),
		SolarAPIURL:   get("SOLAR_API_URL", solar.DefaultEndpoint),
		SolarTimeout:  dur("SOLAR_API_TIMEOUT", 60*time.Second),
		PhaseDuration: dur("SOLAR_PHASE_DURATION", solar.DefaultPhaseDuration),
		SessionTTL:    dur("SOLAR_SESSION_TTL", solar.DefaultSessionTTL),
		AdminUsername: get("ADMIN_USERNAME", ""),
		AdminPassword: get("ADMIN_PASSWORD", ""),
		JWTSecret:     get("ADMIN_JWT_SECRET", ""),
		SMTP: SMTPConfig{
			Host: get("SMTP_HOST", "smtp.gmail.com"),
			Port: get("SMTP_PORT", "587"),
			User: get("SMTP_USER", ""),
			Pass: get("SMTP_PASS", ""),
			To:   get("TO_EMAIL", ""),
		},
		CORSOrigins: splitList(get("CORS_ORIGINS", "")),
		LogLevel:    get("LOG_LEVEL", "info"),
		LogFormat:   get("LOG_FORMAT", "text"),
		Tracing: observability.TracingConfig{
			Enabled:     strings.EqualFold(get("TRACING_ENABLED", ""), "true"),
			ServiceName: get("TRACING_SERVICE_NAME", "portfolio"),
			Exporter:    strings.ToLower(get("TRACING_EXPORTER", "stdout")),
			Endpoint:    get("OTLP_ENDPOINT", ""),
			SampleRatio: 1,
		},
	}

	if raw := get("TRACING_SAMPLE_RATIO", ""); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r < 0 || r > 1 {
			warnings = append(warnings, "TRACING_SAMPLE_RATIO must be within [0,1], using 1")
		} else {
			cfg.Tracing.SampleRatio = r
		}
	}

	if cfg.DBDriver != store.DriverSQLite && cfg.DBDriver != store.DriverPostgres {
		warnings = append(warnings, "DB_DRIVER "+cfg.DBDriver+" is not supported, using sqlite")
		cfg.DBDriver = store.DriverSQLite
	}

	// Default credentials for development (set them in production)
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = "admin"
		warnings = append(warnings, "using default admin username, set ADMIN_USERNAME")
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "admin123"
		warnings = append(warnings, "using default admin password, set ADMIN_PASSWORD")
	}
	return cfg, warnings
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
