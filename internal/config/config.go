package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// Config aggregates application-wide configuration values. It is built once
// at process start and handed to each component; nothing reads the
// environment after Load returns.
type Config struct {
	DatabaseURL string

	GoogleAPIKey  string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string

	SenderName    string
	SenderCompany string

	SearchQuery    string
	SearchLocation string
	SearchRadius   int

	MaxEmailsPerDay int
	SendDelay       time.Duration

	JWTSecret       string
	TokenTTL        time.Duration
	Port            string
	RateLimitSearch RateLimitConfig
}

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		GoogleAPIKey:    os.Getenv("GOOGLE_MAPS_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		SMTPHost:        getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPUser:        os.Getenv("SMTP_USER"),
		SMTPPassword:    os.Getenv("SMTP_PASSWORD"),
		SenderName:      getEnv("SENDER_NAME", "Martin"),
		SenderCompany:   getEnv("SENDER_COMPANY", "celox.io"),
		SearchQuery:     getEnv("SEARCH_QUERY", "Unternehmen Neukölln Berlin"),
		SearchLocation:  getEnv("SEARCH_LOCATION", "52.4797,13.4363"),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret"),
		Port:            getEnv("PORT", "8080"),
		TokenTTL:        parseDuration(getEnv("JWT_TTL", "24h"), 24*time.Hour),
		SendDelay:       parseDuration(getEnv("DELAY_BETWEEN_EMAILS", "120s"), 120*time.Second),
		SearchRadius:    parseInt(getEnv("SEARCH_RADIUS", "5000"), 5000),
		SMTPPort:        parseInt(getEnv("SMTP_PORT", "587"), 587),
		MaxEmailsPerDay: parseInt(getEnv("MAX_EMAILS_PER_DAY", "20"), 20),
	}

	rl, err := parseRateLimit(getEnv("RATE_LIMIT_SEARCH", "30/min"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SEARCH value: %w", err)
	}
	cfg.RateLimitSearch = rl

	return cfg, nil
}

// ValidateCampaign checks everything a campaign run needs before it starts.
func (c *Config) ValidateCampaign() error {
	return requireAll(map[string]string{
		"DATABASE_URL":        c.DatabaseURL,
		"GOOGLE_MAPS_API_KEY": c.GoogleAPIKey,
		"OPENAI_API_KEY":      c.OpenAIAPIKey,
		"SMTP_USER":           c.SMTPUser,
		"SMTP_PASSWORD":       c.SMTPPassword,
	})
}

// ValidateFollowup checks the credentials the follow-up run needs. Discovery
// credentials are not required since follow-ups only touch stored leads.
func (c *Config) ValidateFollowup() error {
	return requireAll(map[string]string{
		"DATABASE_URL":   c.DatabaseURL,
		"OPENAI_API_KEY": c.OpenAIAPIKey,
		"SMTP_USER":      c.SMTPUser,
		"SMTP_PASSWORD":  c.SMTPPassword,
	})
}

// ValidateStore checks store connectivity configuration only.
func (c *Config) ValidateStore() error {
	return requireAll(map[string]string{"DATABASE_URL": c.DatabaseURL})
}

func requireAll(values map[string]string) error {
	missing := make([]string, 0)
	for key, value := range values {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseDuration(input string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(input)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(input string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return fallback
	}
	return v
}
