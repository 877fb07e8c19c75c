package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"
)

var configEnvKeys = []string{
	"EMAIL", "PASSWORD", "GITUSERNAME", "GITHUB_BASE_URL", "BROWSER_DRIVER",
	"HEADLESS", "ACTION_TIMEOUT", "PLAYWRIGHT_INSTALL", "NEW_REPO_NAME",
	"SCREENSHOT_PATH", "LOG_LEVEL", "AWS_ENDPOINT_URL_S3", "AWS_REGION",
	"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "ARTIFACTS_BUCKET", "S3_PUBLIC_URL",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("EMAIL", "octo@example.com")
	t.Setenv("PASSWORD", "s3cret-pass")
	t.Setenv("GITUSERNAME", "octocat")
}

func validTestConfig() Config {
	return Config{
		Email:          "octo@example.com",
		Password:       "s3cret-pass",
		Username:       "octocat",
		BaseURL:        "https://github.com",
		Driver:         DriverPlaywright,
		ActionTimeout:  30 * time.Second,
		NewRepoName:    "Teste",
		ScreenshotPath: "img/repositorio_teste.png",
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearConfigEnv(t)
	setCredentials(t)

	cfg, err := FromEnv(Flags{})
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.BaseURL != "https://github.com" {
		t.Fatalf("BaseURL default mismatch: %s", cfg.BaseURL)
	}
	if cfg.Driver != DriverPlaywright {
		t.Fatalf("Driver default mismatch: %s", cfg.Driver)
	}
	if cfg.Headless {
		t.Fatal("default run must be headful")
	}
	if cfg.ActionTimeout != 30*time.Second {
		t.Fatalf("ActionTimeout default mismatch: %s", cfg.ActionTimeout)
	}
	if cfg.NewRepoName != "Teste" || cfg.ScreenshotPath != "img/repositorio_teste.png" {
		t.Fatalf("scenario defaults mismatch: %q %q", cfg.NewRepoName, cfg.ScreenshotPath)
	}
	if cfg.UploadEnabled() {
		t.Fatal("upload must be disabled without ARTIFACTS_BUCKET")
	}
}

func TestFromEnv_CredentialsPassThroughVerbatim(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("EMAIL", " spaced@example.com ")
	t.Setenv("PASSWORD", "  pass with spaces  ")
	t.Setenv("GITUSERNAME", "octocat")

	cfg, err := FromEnv(Flags{})
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Email != " spaced@example.com " || cfg.Password != "  pass with spaces  " {
		t.Fatalf("credentials were transformed: %q %q", cfg.Email, cfg.Password)
	}
}

func TestFromEnv_MissingCredentials(t *testing.T) {
	clearConfigEnv(t)

	_, err := FromEnv(Flags{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, key := range []string{"EMAIL", "PASSWORD", "GITUSERNAME"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected error to mention %s, got: %v", key, err)
		}
	}
}

func TestFromEnv_FlagsOverrideEnv(t *testing.T) {
	clearConfigEnv(t)
	setCredentials(t)
	t.Setenv("HEADLESS", "false")
	t.Setenv("BROWSER_DRIVER", "playwright")
	t.Setenv("ARTIFACTS_BUCKET", "runs")
	t.Setenv("AWS_ACCESS_KEY_ID", "key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

	flags, err := ParseFlags([]string{"--headless", "--driver", "ChromeDP", "--no-upload"})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	cfg, err := FromEnv(flags)
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if !cfg.Headless {
		t.Fatal("--headless did not override HEADLESS=false")
	}
	if cfg.Driver != DriverChromedp {
		t.Fatalf("--driver did not override: %s", cfg.Driver)
	}
	if cfg.UploadEnabled() {
		t.Fatal("--no-upload did not disable upload")
	}
}

func TestParseFlags_HeadlessUnsetLeavesEnv(t *testing.T) {
	flags, err := ParseFlags(nil)
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if flags.Headless != nil {
		t.Fatal("Headless must be nil when the flag is absent")
	}
}

func TestValidate_UploadRequiresKeys(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.AWSBucketName = "artifacts"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error without AWS keys")
	}
	for _, token := range []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"} {
		if !strings.Contains(err.Error(), token) {
			t.Fatalf("expected error mentioning %s, got: %v", token, err)
		}
	}

	cfg.NoUpload = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("--no-upload should skip S3 checks: %v", err)
	}
}

func testValidate_RejectsUnknownDrivers(t *rapid.T) {
	cfg := validTestConfig()
	cfg.Driver = rapid.StringMatching(`[a-z]{1,12}`).
		Filter(func(s string) bool { return s != DriverPlaywright && s != DriverChromedp }).
		Draw(t, "driver")

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "BROWSER_DRIVER") {
		t.Fatalf("expected BROWSER_DRIVER error for %q, got %v", cfg.Driver, err)
	}
}

func TestValidate_RejectsUnknownDrivers(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidate_RejectsUnknownDrivers)
}

func TestValidate_RejectsNonHTTPBase(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.BaseURL = "github.com"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "GITHUB_BASE_URL") {
		t.Fatalf("expected GITHUB_BASE_URL error, got %v", err)
	}
}

func TestHelperParsers_DefaultOnBadInput(t *testing.T) {
	t.Setenv("CFG_TEST_BOOL", "maybe")
	t.Setenv("CFG_TEST_DUR", "not-a-duration")
	if got := parseBoolOrDefault("CFG_TEST_BOOL", true); got != true {
		t.Fatalf("parseBoolOrDefault fallback mismatch: got=%v", got)
	}
	if got := parseDurationOrDefault("CFG_TEST_DUR", 2*time.Minute); got != 2*time.Minute {
		t.Fatalf("parseDurationOrDefault fallback mismatch: got=%v", got)
	}
}

func TestLoadConfig_ReadsDotEnvWithoutOverriding(t *testing.T) {
	clearConfigEnv(t)
	// t.Setenv("", ...) leaves keys present but empty; godotenv only skips
	// keys that are present, so unset the ones the file provides.
	os.Unsetenv("EMAIL")
	os.Unsetenv("GITUSERNAME")
	t.Setenv("PASSWORD", "from-env")

	dir := t.TempDir()
	content := "EMAIL=dotenv@example.com\nPASSWORD=from-file\nGITUSERNAME=dotenv-user\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	t.Cleanup(func() {
		os.Unsetenv("EMAIL")
		os.Unsetenv("GITUSERNAME")
	})

	cfg, err := LoadConfig(Flags{})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Email != "dotenv@example.com" || cfg.Username != "dotenv-user" {
		t.Fatalf(".env values not loaded: %+v", cfg)
	}
	if cfg.Password != "from-env" {
		t.Fatalf("environment must win over .env, got %q", cfg.Password)
	}
}

func TestPrintStartupSummary_NeverPrintsPassword(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	var buf bytes.Buffer
	cfg.PrintStartupSummary(&buf)
	if strings.Contains(buf.String(), cfg.Password) {
		t.Fatalf("summary leaked password:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "octocat") {
		t.Fatalf("summary missing username:\n%s", buf.String())
	}
}
