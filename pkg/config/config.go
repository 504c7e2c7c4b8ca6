package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the feed archiver
type Config struct {
	// Target site and session
	Site SiteConfig `yaml:"site" json:"site"`

	// Session cookies carrying the authentication state
	Cookies map[string]string `yaml:"cookies" json:"cookies"`

	// Pagination behaviour
	Pagination PaginationConfig `yaml:"pagination" json:"pagination"`

	// Fixed delays between requests
	Delays DelayConfig `yaml:"delays" json:"delays"`

	// Per-operation timeouts
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Image download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Browser unlock settings
	Unlock UnlockConfig `yaml:"unlock" json:"unlock"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig holds the target site description
type SiteConfig struct {
	BaseURL   string         `yaml:"base_url" json:"base_url"`
	TargetUID string         `yaml:"target_uid" json:"target_uid"`
	UserAgent string         `yaml:"user_agent" json:"user_agent"`
	Proxy     string         `yaml:"proxy" json:"proxy"`
	APIPaths  APIPathsConfig `yaml:"api_paths" json:"api_paths"`
}

// APIPathsConfig holds the URL path templates for the target site.
// Templates use {uid}, {page}, {article_id} and {qa_id} placeholders.
type APIPathsConfig struct {
	Profile     string `yaml:"profile" json:"profile"`
	Articles    string `yaml:"articles" json:"articles"`
	ArticlePage string `yaml:"article_page" json:"article_page"`
	QAPage      string `yaml:"qa_page" json:"qa_page"`
}

// PaginationConfig bounds the list walk
type PaginationConfig struct {
	// MaxPages is a hard cap guaranteeing termination against a server
	// that never signals exhaustion.
	MaxPages int `yaml:"max_pages" json:"max_pages"`
	// PageSize is the platform's full-page item count; a shorter page
	// is the last-page heuristic.
	PageSize int `yaml:"page_size" json:"page_size"`
}

// DelayConfig holds the fixed inter-request delays
type DelayConfig struct {
	BetweenPages   time.Duration `yaml:"between_pages" json:"between_pages"`
	BetweenItems   time.Duration `yaml:"between_items" json:"between_items"`
	BetweenBatches time.Duration `yaml:"between_batches" json:"between_batches"`
}

// TimeoutConfig holds per-operation timeouts, weighted by operation cost
type TimeoutConfig struct {
	Profile    time.Duration `yaml:"profile" json:"profile"`
	List       time.Duration `yaml:"list" json:"list"`
	Detail     time.Duration `yaml:"detail" json:"detail"`
	Image      time.Duration `yaml:"image" json:"image"`
	Navigation time.Duration `yaml:"navigation" json:"navigation"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	ArticleDir string `yaml:"article_dir" json:"article_dir"`
	QADir      string `yaml:"qa_dir" json:"qa_dir"`
}

// DownloadConfig holds image download configuration
type DownloadConfig struct {
	ConcurrentImages int  `yaml:"concurrent_images" json:"concurrent_images"`
	SkipImages       bool `yaml:"skip_images" json:"skip_images"`
	MaxRetries       int  `yaml:"max_retries" json:"max_retries"`
}

// UnlockConfig holds browser unlock configuration
type UnlockConfig struct {
	BatchSize int  `yaml:"batch_size" json:"batch_size"`
	Headless  bool `yaml:"headless" json:"headless"`
	// AnswerThreshold separates "server already rendered enough" from
	// "still paywalled": answers at or under this length need unlock.
	AnswerThreshold int `yaml:"answer_threshold" json:"answer_threshold"`
	// MinSelectorText is the minimum in-page text length accepted from a
	// selector candidate.
	MinSelectorText int           `yaml:"min_selector_text" json:"min_selector_text"`
	SettleDelay     time.Duration `yaml:"settle_delay" json:"settle_delay"`
	UnlockDelay     time.Duration `yaml:"unlock_delay" json:"unlock_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
				"(KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
			APIPaths: APIPathsConfig{
				QAPage: "/p/{qa_id}",
			},
		},
		Cookies: make(map[string]string),
		Pagination: PaginationConfig{
			MaxPages: 200,
			PageSize: 20,
		},
		Delays: DelayConfig{
			BetweenPages:   1 * time.Second,
			BetweenItems:   2 * time.Second,
			BetweenBatches: 2 * time.Second,
		},
		Timeouts: TimeoutConfig{
			Profile:    10 * time.Second,
			List:       15 * time.Second,
			Detail:     20 * time.Second,
			Image:      15 * time.Second,
			Navigation: 20 * time.Second,
		},
		Output: OutputConfig{
			ArticleDir: "./output",
			QADir:      "./qa/output",
		},
		Download: DownloadConfig{
			ConcurrentImages: 3,
			SkipImages:       false,
			MaxRetries:       3,
		},
		Unlock: UnlockConfig{
			BatchSize:       5,
			Headless:        true,
			AnswerThreshold: 150,
			MinSelectorText: 100,
			SettleDelay:     3 * time.Second,
			UnlockDelay:     4 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file,
// then environment overrides, validated once at the end.
func Load(path string) (*Config, error) {
	// A .env file is optional; ignore absence.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("FEEDARCHIVER_BASE_URL"); baseURL != "" {
		c.Site.BaseURL = baseURL
	}
	if uid := os.Getenv("FEEDARCHIVER_TARGET_UID"); uid != "" {
		c.Site.TargetUID = uid
	}
	if userAgent := os.Getenv("FEEDARCHIVER_USER_AGENT"); userAgent != "" {
		c.Site.UserAgent = userAgent
	}
	if proxy := os.Getenv("FEEDARCHIVER_PROXY"); proxy != "" {
		c.Site.Proxy = proxy
	}

	// Cookies from the environment use a FEEDARCHIVER_COOKIE_ prefix,
	// e.g. FEEDARCHIVER_COOKIE_SUB -> cookie "SUB".
	for _, entry := range os.Environ() {
		const prefix = "FEEDARCHIVER_COOKIE_"
		if !strings.HasPrefix(entry, prefix) {
			continue
		}
		kv := strings.SplitN(strings.TrimPrefix(entry, prefix), "=", 2)
		if len(kv) == 2 && kv[1] != "" {
			if c.Cookies == nil {
				c.Cookies = make(map[string]string)
			}
			c.Cookies[kv[0]] = kv[1]
		}
	}

	if outputDir := os.Getenv("FEEDARCHIVER_OUTPUT_DIR"); outputDir != "" {
		c.Output.ArticleDir = outputDir
	}
	if qaDir := os.Getenv("FEEDARCHIVER_QA_OUTPUT_DIR"); qaDir != "" {
		c.Output.QADir = qaDir
	}

	if maxPages := os.Getenv("FEEDARCHIVER_MAX_PAGES"); maxPages != "" {
		var val int
		fmt.Sscanf(maxPages, "%d", &val)
		if val > 0 {
			c.Pagination.MaxPages = val
		}
	}
	if batchSize := os.Getenv("FEEDARCHIVER_UNLOCK_BATCH_SIZE"); batchSize != "" {
		var val int
		fmt.Sscanf(batchSize, "%d", &val)
		if val > 0 {
			c.Unlock.BatchSize = val
		}
	}

	if logLevel := os.Getenv("FEEDARCHIVER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
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
		".feedarchiver.yaml",
		".feedarchiver.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "feedarchiver", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "feedarchiver", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".feedarchiver.yaml"),
		filepath.Join(os.Getenv("HOME"), ".feedarchiver.yml"),
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

	if c.Site.BaseURL == "" || strings.Contains(c.Site.BaseURL, "example.com") {
		errs = append(errs, errors.New("site base URL must be set to the real target site"))
	}
	if c.Site.TargetUID == "" {
		errs = append(errs, errors.New("target UID is required"))
	}
	if c.Site.APIPaths.Profile == "" {
		errs = append(errs, errors.New("profile API path is required"))
	}
	if c.Site.APIPaths.Articles == "" {
		errs = append(errs, errors.New("articles API path is required"))
	}
	if c.Site.APIPaths.ArticlePage == "" {
		errs = append(errs, errors.New("article page path is required"))
	}

	if c.Pagination.MaxPages <= 0 {
		errs = append(errs, errors.New("max pages must be positive"))
	}
	if c.Pagination.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}

	if c.Download.ConcurrentImages <= 0 {
		errs = append(errs, errors.New("concurrent image downloads must be positive"))
	}
	if c.Download.ConcurrentImages > 10 {
		errs = append(errs, errors.New("concurrent image downloads should not exceed 10"))
	}

	if c.Unlock.BatchSize <= 0 {
		errs = append(errs, errors.New("unlock batch size must be positive"))
	}
	if c.Unlock.AnswerThreshold < 0 {
		errs = append(errs, errors.New("answer threshold cannot be negative"))
	}

	if c.Output.ArticleDir == "" {
		errs = append(errs, errors.New("article output directory is required"))
	}
	if c.Output.QADir == "" {
		errs = append(errs, errors.New("qa output directory is required"))
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

// SessionCookies returns the non-empty cookies from configuration.
func (c *Config) SessionCookies() map[string]string {
	cookies := make(map[string]string, len(c.Cookies))
	for name, value := range c.Cookies {
		if value != "" {
			cookies[name] = value
		}
	}
	return cookies
}

// XSRFToken returns the CSRF-style cookie promoted into a request header.
func (c *Config) XSRFToken() string {
	return c.Cookies["XSRF-TOKEN"]
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
