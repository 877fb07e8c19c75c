// Package config loads ghflow configuration from CLI flags, the process
// environment and an optional .env file, validates required fields, and
// provides defaults that mirror a headful run against github.com.
//
// CLI flags override the environment (--headless, --driver, --no-upload,
// --install). Credentials always come from EMAIL, PASSWORD and GITUSERNAME.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kuitang/ghflow/internal/logutil"
)

const (
	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"

	defaultBaseURL        = "https://github.com"
	defaultNewRepoName    = "Teste"
	defaultScreenshotPath = "img/repositorio_teste.png"
	defaultActionTimeout  = 30 * time.Second
	defaultS3Region       = "auto"
)

// Config holds all run configuration.
type Config struct {
	// Credentials
	Email    string // EMAIL
	Password string // PASSWORD
	Username string // GITUSERNAME

	// Target site
	BaseURL string // GITHUB_BASE_URL

	// Browser
	Driver          string        // BROWSER_DRIVER: playwright or chromedp
	Headless        bool          // HEADLESS
	ActionTimeout   time.Duration // ACTION_TIMEOUT
	InstallBrowsers bool          // PLAYWRIGHT_INSTALL or --install

	// Scenario
	NewRepoName    string // NEW_REPO_NAME
	ScreenshotPath string // SCREENSHOT_PATH

	// Logging
	LogLevel string // LOG_LEVEL

	// Artifact upload (optional, enabled when ARTIFACTS_BUCKET is set)
	NoUpload           bool
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY
	AWSBucketName      string // ARTIFACTS_BUCKET
	AWSPublicURL       string // S3_PUBLIC_URL
}

// Flags are the CLI overrides. Nil pointers mean "not given".
type Flags struct {
	Headless *bool
	Driver   string
	NoUpload bool
	Install  bool
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ParseFlags parses CLI flags from args.
func ParseFlags(args []string) (Flags, error) {
	var f Flags
	var headless bool
	fs := flag.NewFlagSet("ghflow", flag.ContinueOnError)
	fs.BoolVar(&headless, "headless", false, "Run the browser without a window (overrides HEADLESS)")
	fs.StringVar(&f.Driver, "driver", "", "Browser driver: playwright or chromedp (overrides BROWSER_DRIVER)")
	fs.BoolVar(&f.NoUpload, "no-upload", false, "Skip uploading the screenshot to S3 even if ARTIFACTS_BUCKET is set")
	fs.BoolVar(&f.Install, "install", false, "Install Playwright browsers before running")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "headless" {
			f.Headless = &headless
		}
	})
	return f, nil
}

// LoadConfig loads .env (if present), then the environment, then applies flags.
// Variables already present in the environment win over .env entries.
func LoadConfig(flags Flags) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv(flags)
}

// FromEnv builds a Config from the current environment and flags without
// touching .env.
func FromEnv(flags Flags) (*Config, error) {
	cfg := &Config{}

	cfg.Email = os.Getenv("EMAIL")
	cfg.Password = os.Getenv("PASSWORD")
	cfg.Username = os.Getenv("GITUSERNAME")

	cfg.BaseURL = strings.TrimRight(getEnvOrDefault("GITHUB_BASE_URL", defaultBaseURL), "/")

	cfg.Driver = strings.ToLower(getEnvOrDefault("BROWSER_DRIVER", DriverPlaywright))
	if flags.Driver != "" {
		cfg.Driver = strings.ToLower(strings.TrimSpace(flags.Driver))
	}
	cfg.Headless = parseBoolOrDefault("HEADLESS", false)
	if flags.Headless != nil {
		cfg.Headless = *flags.Headless
	}
	cfg.ActionTimeout = parseDurationOrDefault("ACTION_TIMEOUT", defaultActionTimeout)
	cfg.InstallBrowsers = parseBoolOrDefault("PLAYWRIGHT_INSTALL", false) || flags.Install

	cfg.NewRepoName = getEnvOrDefault("NEW_REPO_NAME", defaultNewRepoName)
	cfg.ScreenshotPath = getEnvOrDefault("SCREENSHOT_PATH", defaultScreenshotPath)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.NoUpload = flags.NoUpload
	cfg.AWSEndpointS3 = strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultS3Region)
	cfg.AWSAccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.AWSSecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	cfg.AWSBucketName = strings.TrimSpace(os.Getenv("ARTIFACTS_BUCKET"))
	cfg.AWSPublicURL = strings.TrimSpace(os.Getenv("S3_PUBLIC_URL"))
	if cfg.AWSPublicURL == "" && cfg.AWSEndpointS3 != "" && cfg.AWSBucketName != "" {
		cfg.AWSPublicURL = strings.TrimRight(cfg.AWSEndpointS3, "/") + "/" + cfg.AWSBucketName
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
// Credential values are passed to the login form verbatim, so only presence
// is checked.
func (c *Config) Validate() error {
	var errs []string

	if c.Email == "" {
		errs = append(errs, "EMAIL is required")
	}
	if c.Password == "" {
		errs = append(errs, "PASSWORD is required")
	}
	if c.Username == "" {
		errs = append(errs, "GITUSERNAME is required")
	}

	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		errs = append(errs, "GITHUB_BASE_URL must start with http:// or https://")
	}

	switch c.Driver {
	case DriverPlaywright, DriverChromedp:
	default:
		errs = append(errs, fmt.Sprintf("BROWSER_DRIVER must be %q or %q, got %q", DriverPlaywright, DriverChromedp, c.Driver))
	}

	if c.ActionTimeout <= 0 {
		errs = append(errs, "ACTION_TIMEOUT must be positive")
	}
	if strings.TrimSpace(c.NewRepoName) == "" {
		errs = append(errs, "NEW_REPO_NAME must not be blank")
	}
	if strings.TrimSpace(c.ScreenshotPath) == "" {
		errs = append(errs, "SCREENSHOT_PATH must not be blank")
	}

	if c.UploadEnabled() {
		if c.AWSAccessKeyID == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required when ARTIFACTS_BUCKET is set (or use --no-upload)")
		}
		if c.AWSSecretAccessKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required when ARTIFACTS_BUCKET is set (or use --no-upload)")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// UploadEnabled reports whether screenshots are also pushed to S3.
func (c *Config) UploadEnabled() bool {
	return !c.NoUpload && c.AWSBucketName != ""
}

// PrintStartupSummary prints a human-readable summary of the configuration.
// The password is never printed.
func (c *Config) PrintStartupSummary(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "ghflow starting...")
	fmt.Fprintf(w, "  Site:       %s\n", c.BaseURL)
	fmt.Fprintf(w, "  Account:    %s (%s)\n", c.Username, c.Email)
	fmt.Fprintf(w, "  Password:   %s\n", logutil.MaskSecret(c.Password))

	mode := "headful"
	if c.Headless {
		mode = "headless"
	}
	fmt.Fprintf(w, "  Browser:    %s, %s, timeout %s\n", c.Driver, mode, c.ActionTimeout)
	fmt.Fprintf(w, "  Repository: %s\n", c.NewRepoName)
	fmt.Fprintf(w, "  Screenshot: %s\n", c.ScreenshotPath)

	if c.UploadEnabled() {
		fmt.Fprintf(w, "  Upload:     s3://%s (endpoint: %s)\n", c.AWSBucketName, c.AWSEndpointS3)
	} else {
		fmt.Fprintln(w, "  Upload:     disabled")
	}
	fmt.Fprintln(w, "")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
