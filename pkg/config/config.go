package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the harvester
type Config struct {
	// Account credentials and session storage
	Accounts AccountsConfig `yaml:"accounts" json:"accounts"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Browser automation settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Extraction tuning knobs
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// HTTP trigger settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// AccountsConfig holds the credential list and session storage location.
// Credentials is a semicolon- or comma-delimited list of
// username:password[:totp_secret] entries.
type AccountsConfig struct {
	Credentials string `yaml:"credentials" json:"credentials"`
	SessionDir  string `yaml:"session_dir" json:"session_dir"`
}

// RateLimitConfig holds the minimum inter-operation delays
type RateLimitConfig struct {
	RequestDelay time.Duration `yaml:"request_delay" json:"request_delay"`
	LoginDelay   time.Duration `yaml:"login_delay" json:"login_delay"`
}

// BrowserConfig holds browser automation settings
type BrowserConfig struct {
	Headless          bool          `yaml:"headless" json:"headless"`
	ExecPath          string        `yaml:"exec_path" json:"exec_path"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	WindowWidth       int           `yaml:"window_width" json:"window_width"`
	WindowHeight      int           `yaml:"window_height" json:"window_height"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
}

// ExtractionConfig holds the tuning knobs for discovery and field
// extraction. These are heuristics calibrated against historical markup,
// kept overridable because they need periodic retuning.
type ExtractionConfig struct {
	MaxScrollIterations int           `yaml:"max_scroll_iterations" json:"max_scroll_iterations"`
	ScrollSettleDelay   time.Duration `yaml:"scroll_settle_delay" json:"scroll_settle_delay"`
	ElementWait         time.Duration `yaml:"element_wait" json:"element_wait"`
	ProfileLoadWait     time.Duration `yaml:"profile_load_wait" json:"profile_load_wait"`
	LoginOutcomeWait    time.Duration `yaml:"login_outcome_wait" json:"login_outcome_wait"`
	MinCaptionLength    int           `yaml:"min_caption_length" json:"min_caption_length"`
	MaxLoginRetries     int           `yaml:"max_login_retries" json:"max_login_retries"`
	PostLinkSelectors   []string      `yaml:"post_link_selectors" json:"post_link_selectors"`
}

// OutputConfig holds result file settings
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// ServerConfig holds the HTTP trigger settings
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Accounts: AccountsConfig{
			SessionDir: "sessions",
		},
		RateLimit: RateLimitConfig{
			RequestDelay: 2 * time.Second,
			LoginDelay:   5 * time.Second,
		},
		Browser: BrowserConfig{
			Headless: true,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
				"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			WindowWidth:       1920,
			WindowHeight:      1080,
			NavigationTimeout: 30 * time.Second,
		},
		Extraction: ExtractionConfig{
			MaxScrollIterations: 10,
			ScrollSettleDelay:   3 * time.Second,
			ElementWait:         10 * time.Second,
			ProfileLoadWait:     15 * time.Second,
			LoginOutcomeWait:    12 * time.Second,
			MinCaptionLength:    10,
			MaxLoginRetries:     2,
			PostLinkSelectors: []string{
				"article a[href*='/p/'], article a[href*='/reel/']",
				"main a[href*='/p/'], main a[href*='/reel/']",
				"a[href*='/p/'], a[href*='/reel/']",
			},
		},
		Output: OutputConfig{
			BaseDirectory: "./output",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables. The names
// match the original deployment interface, so existing .env files keep
// working.
func (c *Config) LoadFromEnv() error {
	if accounts := os.Getenv("INSTAGRAM_ACCOUNTS"); accounts != "" {
		c.Accounts.Credentials = accounts
	}
	if dir := os.Getenv("SESSION_DIR"); dir != "" {
		c.Accounts.SessionDir = dir
	}
	if delay := os.Getenv("REQUEST_DELAY"); delay != "" {
		if d, err := parseDelay(delay); err == nil {
			c.RateLimit.RequestDelay = d
		}
	}
	if delay := os.Getenv("LOGIN_DELAY"); delay != "" {
		if d, err := parseDelay(delay); err == nil {
			c.RateLimit.LoginDelay = d
		}
	}
	if headless := os.Getenv("IGHARVEST_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) != "false"
	}
	if execPath := os.Getenv("CHROME_PATH"); execPath != "" {
		c.Browser.ExecPath = execPath
	}
	if ua := os.Getenv("IGHARVEST_USER_AGENT"); ua != "" {
		c.Browser.UserAgent = ua
	}
	if outputDir := os.Getenv("IGHARVEST_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if addr := os.Getenv("IGHARVEST_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = strings.ToLower(logLevel)
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}
	return nil
}

// parseDelay accepts either a bare number of seconds ("2", "2.5") or a Go
// duration string ("2s", "1500ms").
func parseDelay(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".igharvest.yaml",
		".igharvest.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igharvest", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igharvest", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Credentials may also come from the secure store, so an empty
	// credential list is not a validation error here.
	if c.RateLimit.RequestDelay < 0 {
		errs = append(errs, errors.New("request delay cannot be negative"))
	}
	if c.RateLimit.LoginDelay < 0 {
		errs = append(errs, errors.New("login delay cannot be negative"))
	}
	if c.Extraction.MaxScrollIterations <= 0 {
		errs = append(errs, errors.New("max scroll iterations must be positive"))
	}
	if len(c.Extraction.PostLinkSelectors) == 0 {
		errs = append(errs, errors.New("at least one post link selector is required"))
	}
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if creds, ok := flags["accounts"].(string); ok && creds != "" {
		c.Accounts.Credentials = creds
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if addr, ok := flags["addr"].(string); ok && addr != "" {
		c.Server.Addr = addr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("configuration", ".env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
