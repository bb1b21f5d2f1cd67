package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no explicit config file is given; it is optional.
const DefaultFile = ".github/upscale.yml"

// Config holds everything one upscale run needs. It is loaded and validated
// once in main and then passed to each step.
type Config struct {
	// GitHub credentials
	Token            string
	GitHubAppID      string
	GitHubPrivateKey string

	// Trigger context
	CommentBody string
	IssueNumber int
	Repository  string // "owner/name"
	Owner       string
	Repo        string

	// Endpoints
	APIURL    string
	ServerURL string
	RawURL    string

	// Processing settings (overridable from the YAML file)
	Trigger      string
	DefaultScale float64
	Branch       string
	ResultsDir   string
	ScratchDir   string
	Workdir      string
	JPEGQuality  int
	WebPQuality  int
	SharpenSigma float64

	// Commit identity
	GitUserName  string
	GitUserEmail string
}

// ConfigError reports a required setting that is missing or malformed.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// fileConfig mirrors the optional YAML file. Zero values mean "not set".
type fileConfig struct {
	Trigger      string  `yaml:"trigger"`
	DefaultScale float64 `yaml:"default_scale"`
	Branch       string  `yaml:"branch"`
	ResultsDir   string  `yaml:"results_dir"`
	ScratchDir   string  `yaml:"scratch_dir"`
	JPEGQuality  int     `yaml:"jpeg_quality"`
	WebPQuality  int     `yaml:"webp_quality"`
	SharpenSigma float64 `yaml:"sharpen_sigma"`
	Git          struct {
		UserName  string `yaml:"user_name"`
		UserEmail string `yaml:"user_email"`
	} `yaml:"git"`
}

func defaults() *Config {
	return &Config{
		APIURL:       "https://api.github.com",
		ServerURL:    "https://github.com",
		RawURL:       "https://raw.githubusercontent.com",
		Trigger:      "/upscale",
		DefaultScale: 2.0,
		Branch:       "upscaled-results",
		ResultsDir:   "results",
		ScratchDir:   "tmp_upscale",
		JPEGQuality:  90,
		WebPQuality:  90,
		SharpenSigma: 0.5,
		GitUserName:  "github-actions[bot]",
		GitUserEmail: "github-actions[bot]@users.noreply.github.com",
	}
}

// Load builds the configuration from defaults, the YAML file at path and the
// environment, in increasing order of precedence. An empty path falls back
// to UPSCALE_CONFIG and then to DefaultFile, which may be absent.
//
// On a validation failure the partially populated Config is returned together
// with the error so the caller can still report on the issue if possible.
func Load(path string) (*Config, error) {
	cfg := defaults()

	explicit := true
	if path == "" {
		path = os.Getenv("UPSCALE_CONFIG")
	}
	if path == "" {
		path = DefaultFile
		explicit = false
	}
	if err := cfg.applyFile(path, explicit); err != nil {
		return cfg, err
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &ConfigError{Field: "config file " + path, Reason: fmt.Sprintf("could not be read: %v", err)}
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return &ConfigError{Field: "config file " + path, Reason: fmt.Sprintf("is not valid YAML: %v", err)}
	}

	setString(&c.Trigger, fc.Trigger)
	setString(&c.Branch, fc.Branch)
	setString(&c.ResultsDir, fc.ResultsDir)
	setString(&c.ScratchDir, fc.ScratchDir)
	setString(&c.GitUserName, fc.Git.UserName)
	setString(&c.GitUserEmail, fc.Git.UserEmail)
	if fc.DefaultScale != 0 {
		c.DefaultScale = fc.DefaultScale
	}
	if fc.JPEGQuality != 0 {
		c.JPEGQuality = fc.JPEGQuality
	}
	if fc.WebPQuality != 0 {
		c.WebPQuality = fc.WebPQuality
	}
	if fc.SharpenSigma != 0 {
		c.SharpenSigma = fc.SharpenSigma
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Token = strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	c.GitHubAppID = strings.TrimSpace(os.Getenv("GITHUB_APP_ID"))
	c.GitHubPrivateKey = normalizePrivateKey(os.Getenv("GITHUB_PRIVATE_KEY"))
	c.CommentBody = os.Getenv("COMMENT_BODY")

	c.Repository = strings.TrimSpace(getEnv("REPOSITORY", os.Getenv("GITHUB_REPOSITORY")))
	if owner, repo, ok := strings.Cut(c.Repository, "/"); ok {
		c.Owner, c.Repo = owner, repo
	}
	c.IssueNumber = getEnvInt("ISSUE_NUMBER", 0)

	c.APIURL = strings.TrimRight(getEnv("GITHUB_API_URL", c.APIURL), "/")
	c.ServerURL = strings.TrimRight(getEnv("GITHUB_SERVER_URL", c.ServerURL), "/")
	c.RawURL = strings.TrimRight(getEnv("UPSCALE_RAW_BASE_URL", c.RawURL), "/")
	c.Workdir = getEnv("UPSCALE_WORKDIR", c.Workdir)
}

// CanNotify reports whether enough is known to post a comment on the
// triggering issue.
func (c *Config) CanNotify() bool {
	return c != nil && c.Token != "" && c.Owner != "" && c.Repo != "" && c.IssueNumber > 0
}

// NeedsAppToken reports whether the token must be minted from GitHub App
// credentials before the run can start.
func (c *Config) NeedsAppToken() bool {
	return c.Token == "" && c.GitHubAppID != "" && c.GitHubPrivateKey != ""
}

func normalizePrivateKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	trimmed = strings.Trim(trimmed, `"'`)
	trimmed = strings.ReplaceAll(trimmed, "\r\n", "\n")
	if strings.Contains(trimmed, "\\n") {
		trimmed = strings.ReplaceAll(trimmed, "\\n", "\n")
	}
	return trimmed
}

// validate checks that all required configuration is present
func (c *Config) validate() error {
	if c.Token == "" && !c.NeedsAppToken() {
		return &ConfigError{Field: "GITHUB_TOKEN", Reason: "is required"}
	}

	raw := os.Getenv("ISSUE_NUMBER")
	if strings.TrimSpace(raw) == "" {
		return &ConfigError{Field: "ISSUE_NUMBER", Reason: "is required"}
	}
	if c.IssueNumber <= 0 {
		return &ConfigError{Field: "ISSUE_NUMBER", Reason: fmt.Sprintf("must be a positive integer, got %q", raw)}
	}

	if c.Repository == "" {
		return &ConfigError{Field: "REPOSITORY", Reason: "is required"}
	}
	if c.Owner == "" || c.Repo == "" || strings.Contains(c.Repo, "/") {
		return &ConfigError{Field: "REPOSITORY", Reason: fmt.Sprintf("must be in owner/name form, got %q", c.Repository)}
	}

	return c.validateSettings()
}

func (c *Config) validateSettings() error {
	if c.DefaultScale <= 0 || math.IsInf(c.DefaultScale, 0) || math.IsNaN(c.DefaultScale) {
		return &ConfigError{Field: "default_scale", Reason: "must be greater than 0"}
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return &ConfigError{Field: "jpeg_quality", Reason: "must be between 1 and 100"}
	}
	if c.WebPQuality < 1 || c.WebPQuality > 100 {
		return &ConfigError{Field: "webp_quality", Reason: "must be between 1 and 100"}
	}
	if c.SharpenSigma < 0 {
		return &ConfigError{Field: "sharpen_sigma", Reason: "must not be negative"}
	}
	if strings.TrimSpace(c.Trigger) == "" {
		return &ConfigError{Field: "trigger", Reason: "must not be empty"}
	}
	if c.Branch == "" || c.ResultsDir == "" || c.ScratchDir == "" {
		return &ConfigError{Field: "branch/results_dir/scratch_dir", Reason: "must not be empty"}
	}
	return nil
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
