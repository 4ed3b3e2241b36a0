package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/feeriepay/checkout/utils"
)

type Config struct {
	Port    string
	GinMode string

	APIBaseURL string
	APITimeout time.Duration

	PollInterval     time.Duration
	CountdownSeconds int
	SessionTTL       time.Duration
	TokenSecret      string

	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int

	DBDriver string
	DBDSN    string

	LogJSON  bool
	LogLevel string
}

func Default() Config {
	return Config{
		Port:             "8080",
		GinMode:          "debug",
		APIBaseURL:       "http://localhost:8000/api/v1",
		APITimeout:       15 * time.Second,
		PollInterval:     5 * time.Second,
		CountdownSeconds: 90,
		SessionTTL:       30 * time.Minute,
		RateLimitRPS:     10,
		RateLimitBurst:   20,
		DBDriver:         "sqlite",
		DBDSN:            "checkout.db",
		LogLevel:         "info",
	}
}

// Load reads .env when present and overlays the environment on Default.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.Info().Warnf("Warning: .env file not found or error loading: %v", err)
	}
	c := fromEnv(Default())
	if c.TokenSecret == "" {
		c.TokenSecret = os.Getenv("JWT_SECRET")
	}
	return c, c.Validate()
}

func fromEnv(c Config) Config {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.GinMode = v
	}
	if v := os.Getenv("FEERIE_API_BASE_URL"); v != "" {
		c.APIBaseURL = v
	}
	c.APITimeout = durationEnv("FEERIE_API_TIMEOUT", c.APITimeout)
	c.PollInterval = durationEnv("CHECKOUT_POLL_INTERVAL", c.PollInterval)
	if v := os.Getenv("CHECKOUT_COUNTDOWN_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CountdownSeconds = n
		}
	}
	c.SessionTTL = durationEnv("CHECKOUT_SESSION_TTL", c.SessionTTL)
	if v := os.Getenv("CHECKOUT_TOKEN_SECRET"); v != "" {
		c.TokenSecret = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimitBurst = n
		}
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.DBDriver = strings.ToLower(v)
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		c.DBDSN = v
	}
	if v := os.Getenv("LOG_JSON"); v != "" {
		switch v {
		case "1", "true", "TRUE":
			c.LogJSON = true
		case "0", "false", "FALSE":
			c.LogJSON = false
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return c
}

// durationEnv accepts Go durations ("5s") or a bare number of seconds.
func durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.APIBaseURL) == "" {
		errs = append(errs, errors.New("FEERIE_API_BASE_URL is required"))
	}
	if c.TokenSecret == "" {
		errs = append(errs, errors.New("CHECKOUT_TOKEN_SECRET is required"))
	}
	if c.APITimeout <= 0 || c.PollInterval <= 0 || c.SessionTTL <= 0 {
		errs = append(errs, errors.New("timeouts and intervals must be positive"))
	}
	if c.CountdownSeconds <= 0 {
		errs = append(errs, fmt.Errorf("invalid countdown %d", c.CountdownSeconds))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.DBDriver != "sqlite" && c.DBDriver != "mysql" {
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	return errors.Join(errs...)
}
