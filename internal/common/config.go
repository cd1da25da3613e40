package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Queue       QueueConfig      `toml:"queue"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
	Automation  AutomationConfig `toml:"automation"`
	Logging     LoggingConfig    `toml:"logging"`
	Claude      ClaudeConfig     `toml:"claude"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type QueueConfig struct {
	PollInterval      string `toml:"poll_interval" validate:"required"`      // e.g., "1s" - how often workers poll for messages
	Concurrency       int    `toml:"concurrency" validate:"min=1"`           // Number of concurrent workers
	VisibilityTimeout string `toml:"visibility_timeout" validate:"required"` // e.g., "5m" - message visibility timeout for redelivery
	MaxReceive        int    `toml:"max_receive" validate:"min=1"`           // Max times a message can be received before it is dropped
	QueueName         string `toml:"queue_name" validate:"required"`         // Queue name prefix in Badger
}

type SchedulerConfig struct {
	Enabled          bool   `toml:"enabled"`
	CycleSchedule    string `toml:"cycle_schedule" validate:"required"`    // Cron schedule for the automation cycle
	SnapshotSchedule string `toml:"snapshot_schedule" validate:"required"` // Cron schedule for the daily visibility snapshot
}

type AutomationConfig struct {
	LeaseTTL          string         `toml:"lease_ttl" validate:"required"`     // Lease expiry, sweeper reclaims leases older than this
	SweepInterval     string         `toml:"sweep_interval" validate:"required"`
	StepTimeout       string         `toml:"step_timeout" validate:"required"`  // Per-step execution timeout, must be below lease_ttl
	MaxRetries        int            `toml:"max_retries" validate:"min=0"`      // Retries per step before the failure is surfaced
	RetryBackoff      string         `toml:"retry_backoff" validate:"required"` // Base backoff between step retries
	VerifyDelay       string         `toml:"verify_delay" validate:"required"`  // Delay before post-publish citation verification
	SnapshotWindow    string         `toml:"snapshot_window" validate:"required"`
	TopCompetitors    int            `toml:"top_competitors" validate:"min=1"`
	RefreshInterval   string         `toml:"refresh_interval" validate:"required"` // Competitor and query refresh interval
	TypeConcurrency   map[string]int `toml:"type_concurrency"`                     // Per-task-type concurrency caps
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model for content and analysis operations
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between requests (default: "1s")
	Temperature float64 `toml:"temperature"` // Completion temperature (default: 0.7)
	PromptsDir  string  `toml:"prompts_dir"` // Directory of prompt template overrides, embedded defaults when empty
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in contextmemo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Queue: QueueConfig{
			PollInterval:      "1s",
			Concurrency:       10,
			VisibilityTimeout: "5m",
			MaxReceive:        3,
			QueueName:         "contextmemo_events",
		},
		Scheduler: SchedulerConfig{
			Enabled:          true,
			CycleSchedule:    "0 */15 * * * *", // Every 15 minutes (cron format with seconds)
			SnapshotSchedule: "0 5 0 * * *",    // Daily at 00:05
		},
		Automation: AutomationConfig{
			LeaseTTL:        "30m",
			SweepInterval:   "5m",
			StepTimeout:     "10m", // Must stay below lease_ttl so the sweeper never reclaims a live job
			MaxRetries:      2,
			RetryBackoff:    "5s",
			VerifyDelay:     "48h",
			SnapshotWindow:  "24h",
			TopCompetitors:  5,
			RefreshInterval: "168h", // Weekly competitor and query refresh
			TypeConcurrency: map[string]int{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   4096,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files.
// Later files override earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CONTEXTMEMO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("CONTEXTMEMO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("CONTEXTMEMO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("CONTEXTMEMO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Queue configuration
	if pollInterval := os.Getenv("CONTEXTMEMO_QUEUE_POLL_INTERVAL"); pollInterval != "" {
		config.Queue.PollInterval = pollInterval
	}
	if concurrency := os.Getenv("CONTEXTMEMO_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}
	if visibilityTimeout := os.Getenv("CONTEXTMEMO_QUEUE_VISIBILITY_TIMEOUT"); visibilityTimeout != "" {
		config.Queue.VisibilityTimeout = visibilityTimeout
	}
	if maxReceive := os.Getenv("CONTEXTMEMO_QUEUE_MAX_RECEIVE"); maxReceive != "" {
		if mr, err := strconv.Atoi(maxReceive); err == nil {
			config.Queue.MaxReceive = mr
		}
	}
	if queueName := os.Getenv("CONTEXTMEMO_QUEUE_NAME"); queueName != "" {
		config.Queue.QueueName = queueName
	}

	// Scheduler configuration
	if enabled := os.Getenv("CONTEXTMEMO_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if cycleSchedule := os.Getenv("CONTEXTMEMO_SCHEDULER_CYCLE_SCHEDULE"); cycleSchedule != "" {
		config.Scheduler.CycleSchedule = cycleSchedule
	}
	if snapshotSchedule := os.Getenv("CONTEXTMEMO_SCHEDULER_SNAPSHOT_SCHEDULE"); snapshotSchedule != "" {
		config.Scheduler.SnapshotSchedule = snapshotSchedule
	}

	// Automation configuration
	if leaseTTL := os.Getenv("CONTEXTMEMO_AUTOMATION_LEASE_TTL"); leaseTTL != "" {
		config.Automation.LeaseTTL = leaseTTL
	}
	if sweepInterval := os.Getenv("CONTEXTMEMO_AUTOMATION_SWEEP_INTERVAL"); sweepInterval != "" {
		config.Automation.SweepInterval = sweepInterval
	}
	if stepTimeout := os.Getenv("CONTEXTMEMO_AUTOMATION_STEP_TIMEOUT"); stepTimeout != "" {
		config.Automation.StepTimeout = stepTimeout
	}
	if maxRetries := os.Getenv("CONTEXTMEMO_AUTOMATION_MAX_RETRIES"); maxRetries != "" {
		if mr, err := strconv.Atoi(maxRetries); err == nil {
			config.Automation.MaxRetries = mr
		}
	}
	if retryBackoff := os.Getenv("CONTEXTMEMO_AUTOMATION_RETRY_BACKOFF"); retryBackoff != "" {
		config.Automation.RetryBackoff = retryBackoff
	}
	if verifyDelay := os.Getenv("CONTEXTMEMO_AUTOMATION_VERIFY_DELAY"); verifyDelay != "" {
		config.Automation.VerifyDelay = verifyDelay
	}
	if snapshotWindow := os.Getenv("CONTEXTMEMO_AUTOMATION_SNAPSHOT_WINDOW"); snapshotWindow != "" {
		config.Automation.SnapshotWindow = snapshotWindow
	}
	if topCompetitors := os.Getenv("CONTEXTMEMO_AUTOMATION_TOP_COMPETITORS"); topCompetitors != "" {
		if tc, err := strconv.Atoi(topCompetitors); err == nil {
			config.Automation.TopCompetitors = tc
		}
	}
	if refreshInterval := os.Getenv("CONTEXTMEMO_AUTOMATION_REFRESH_INTERVAL"); refreshInterval != "" {
		config.Automation.RefreshInterval = refreshInterval
	}

	// Logging configuration
	if level := os.Getenv("CONTEXTMEMO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("CONTEXTMEMO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("CONTEXTMEMO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("CONTEXTMEMO_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // CONTEXTMEMO_ prefix takes priority
	}
	if model := os.Getenv("CONTEXTMEMO_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("CONTEXTMEMO_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("CONTEXTMEMO_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("CONTEXTMEMO_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Claude.RateLimit = rateLimit
	}
	if promptsDir := os.Getenv("CONTEXTMEMO_CLAUDE_PROMPTS_DIR"); promptsDir != "" {
		config.Claude.PromptsDir = promptsDir
	}
	if temperature := os.Getenv("CONTEXTMEMO_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 64); err == nil {
			config.Claude.Temperature = t
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks struct tags plus the cross-field duration constraints
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	leaseTTL, err := c.LeaseTTL()
	if err != nil {
		return fmt.Errorf("invalid lease_ttl: %w", err)
	}
	stepTimeout, err := c.StepTimeout()
	if err != nil {
		return fmt.Errorf("invalid step_timeout: %w", err)
	}
	if stepTimeout >= leaseTTL {
		return fmt.Errorf("step_timeout (%s) must be shorter than lease_ttl (%s)", stepTimeout, leaseTTL)
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"sweep_interval", c.Automation.SweepInterval},
		{"retry_backoff", c.Automation.RetryBackoff},
		{"verify_delay", c.Automation.VerifyDelay},
		{"snapshot_window", c.Automation.SnapshotWindow},
		{"refresh_interval", c.Automation.RefreshInterval},
		{"poll_interval", c.Queue.PollInterval},
		{"visibility_timeout", c.Queue.VisibilityTimeout},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid %s: %w", field.name, err)
		}
	}

	return nil
}

// LeaseTTL returns the parsed lease expiry duration
func (c *Config) LeaseTTL() (time.Duration, error) {
	return time.ParseDuration(c.Automation.LeaseTTL)
}

// StepTimeout returns the parsed per-step execution timeout
func (c *Config) StepTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Automation.StepTimeout)
}

// SweepInterval returns the parsed sweeper interval
func (c *Config) SweepInterval() (time.Duration, error) {
	return time.ParseDuration(c.Automation.SweepInterval)
}

// VerifyDelay returns the parsed post-publish verification delay
func (c *Config) VerifyDelay() (time.Duration, error) {
	return time.ParseDuration(c.Automation.VerifyDelay)
}

// RetryBackoff returns the parsed base backoff between step retries
func (c *Config) RetryBackoff() (time.Duration, error) {
	return time.ParseDuration(c.Automation.RetryBackoff)
}

// SnapshotWindow returns the parsed trailing window for visibility snapshots
func (c *Config) SnapshotWindow() (time.Duration, error) {
	return time.ParseDuration(c.Automation.SnapshotWindow)
}

// RefreshInterval returns the parsed competitor/query refresh interval
func (c *Config) RefreshInterval() (time.Duration, error) {
	return time.ParseDuration(c.Automation.RefreshInterval)
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
