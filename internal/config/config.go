package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bilgisen/draftdesk/internal/drafts"
	"github.com/bilgisen/draftdesk/internal/storage"
	"github.com/bilgisen/draftdesk/internal/upstream"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port" validate:"required,numeric"`
	Env             string        `json:"env" validate:"required"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" validate:"required"`
	HTTPTimeout     time.Duration `json:"http_timeout" validate:"required"`

	// Pipeline endpoints
	UpstreamBaseURL  string        `json:"upstream_base_url" validate:"omitempty,url"`
	UpstreamTimeout  time.Duration `json:"upstream_timeout" validate:"required"`
	DraftsPath       string        `json:"drafts_path" validate:"required"`
	ApprovePath      string        `json:"approve_path" validate:"required"`
	GeneratePath     string        `json:"generate_path" validate:"required"`
	HealthPath       string        `json:"health_path"`
	SchedulerPath    string        `json:"scheduler_path"`
	DraftsAction     string        `json:"drafts_action"`
	ApproveIDInQuery bool          `json:"approve_id_in_query"`
	GenerateTopic    string        `json:"generate_topic" validate:"required"`
	ReloadDelay      time.Duration `json:"reload_delay" validate:"gte=0"`

	// Pipeline auth. An empty key means no header is sent.
	UpstreamKeyHeader string `json:"upstream_key_header" validate:"required"`
	UpstreamAPIKey    string `json:"-"`
	DraftsKey         string `json:"-"`
	ApproveKey        string `json:"-"`
	GenerateKey       string `json:"-"`

	// Display defaults for missing draft fields
	DefaultAuthor   string `json:"default_author"`
	DefaultCategory string `json:"default_category"`
	DefaultReadTime string `json:"default_read_time"`

	// Approval journal. Empty RedisURL keeps it in memory.
	RedisURL    string        `json:"redis_url"`
	RedisPrefix string        `json:"redis_prefix"`
	JournalTTL  time.Duration `json:"journal_ttl" validate:"gte=0"`

	// Approved draft archive
	ArchivePath string `json:"archive_path"`

	// CloudFlare R2 Configuration
	R2Endpoint  string `json:"r2_endpoint" validate:"omitempty,url"`
	R2AccessKey string `json:"-"`
	R2SecretKey string `json:"-"`
	R2Bucket    string `json:"r2_bucket"`
	R2AccountID string `json:"r2_account_id"`

	// Logging
	LogLevel  string `json:"log_level" validate:"oneof=debug info warn error disabled"`
	LogFile   string `json:"log_file"`
	LogPretty bool   `json:"log_pretty"`

	// Security
	AdminAPIKey       string `json:"-"`
	DashboardUser     string `json:"dashboard_user"`
	DashboardPassword string `json:"-"`
}

// Load loads configuration from the environment (and .env when
// present) and validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		// Pipeline endpoints
		UpstreamBaseURL:  getEnv("UPSTREAM_BASE_URL", "http://localhost:7071/api"),
		UpstreamTimeout:  getEnvAsDuration("UPSTREAM_TIMEOUT", upstream.DefaultTimeout),
		DraftsPath:       getEnv("DRAFTS_PATH", "/drafts"),
		ApprovePath:      getEnv("APPROVE_PATH", "/approve"),
		GeneratePath:     getEnv("GENERATE_PATH", "/generate"),
		HealthPath:       getEnv("HEALTH_PATH", ""),
		SchedulerPath:    getEnv("SCHEDULER_PATH", ""),
		DraftsAction:     getEnv("DRAFTS_ACTION", "listDrafts"),
		ApproveIDInQuery: getEnvAsBool("APPROVE_ID_IN_QUERY", false),
		GenerateTopic:    getEnv("GENERATE_TOPIC", "Cloud computing trends"),
		ReloadDelay:      getEnvAsDuration("RELOAD_DELAY", 2*time.Second),

		UpstreamKeyHeader: getEnv("UPSTREAM_KEY_HEADER", upstream.DefaultKeyHeader),
		UpstreamAPIKey:    getEnv("UPSTREAM_API_KEY", ""),
		DraftsKey:         getEnv("DRAFTS_KEY", ""),
		ApproveKey:        getEnv("APPROVE_KEY", ""),
		GenerateKey:       getEnv("GENERATE_KEY", ""),

		DefaultAuthor:   getEnv("DEFAULT_AUTHOR", ""),
		DefaultCategory: getEnv("DEFAULT_CATEGORY", ""),
		DefaultReadTime: getEnv("DEFAULT_READ_TIME", ""),

		RedisURL:    getEnv("REDIS_URL", ""),
		RedisPrefix: getEnv("REDIS_PREFIX", "draftdesk:approved:"),
		JournalTTL:  getEnvAsDuration("JOURNAL_TTL", 7*24*time.Hour),

		ArchivePath: getEnv("ARCHIVE_PATH", "./data/approved"),

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "drafts"),
		R2AccountID: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:   getEnv("LOG_FILE", ""),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),

		AdminAPIKey:       getEnv("ADMIN_API_KEY", ""),
		DashboardUser:     getEnv("DASHBOARD_USER", "admin"),
		DashboardPassword: getEnv("DASHBOARD_PASSWORD", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

var validate = validator.New()

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
		}
		return err
	}

	if c.UpstreamBaseURL == "" && (!isAbsolute(c.DraftsPath) || !isAbsolute(c.ApprovePath) || !isAbsolute(c.GeneratePath)) {
		return errors.New("UPSTREAM_BASE_URL is required unless every endpoint path is an absolute URL")
	}
	return nil
}

// Upstream returns the pipeline client settings
func (c *Config) Upstream() upstream.Config {
	return upstream.Config{
		BaseURL:          c.UpstreamBaseURL,
		Timeout:          c.UpstreamTimeout,
		DraftsPath:       c.DraftsPath,
		ApprovePath:      c.ApprovePath,
		GeneratePath:     c.GeneratePath,
		HealthPath:       c.HealthPath,
		SchedulerPath:    c.SchedulerPath,
		DraftsAction:     c.DraftsAction,
		KeyHeader:        c.UpstreamKeyHeader,
		APIKey:           c.UpstreamAPIKey,
		DraftsKey:        c.DraftsKey,
		ApproveKey:       c.ApproveKey,
		GenerateKey:      c.GenerateKey,
		ApproveIDInQuery: c.ApproveIDInQuery,
		GenerateTopic:    c.GenerateTopic,
	}
}

// DraftDefaults returns the display defaults for the normalizer
func (c *Config) DraftDefaults() drafts.Defaults {
	return drafts.Defaults{
		Author:   c.DefaultAuthor,
		Category: c.DefaultCategory,
		ReadTime: c.DefaultReadTime,
	}
}

// R2 returns the archive bucket settings
func (c *Config) R2() storage.R2Config {
	return storage.R2Config{
		Endpoint:  c.R2Endpoint,
		AccountID: c.R2AccountID,
		AccessKey: c.R2AccessKey,
		SecretKey: c.R2SecretKey,
		Bucket:    c.R2Bucket,
	}
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %t", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
