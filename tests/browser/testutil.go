// Package browser runs the walk-through in a real browser, through every
// driver backend, against the in-memory fake site and optionally against
// github.com.
package browser

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kuitang/ghflow/internal/artifacts"
	"github.com/kuitang/ghflow/internal/browser"
	"github.com/kuitang/ghflow/internal/driver"
	"github.com/kuitang/ghflow/internal/errs"
	"github.com/kuitang/ghflow/internal/fakegh"
	"github.com/kuitang/ghflow/internal/obs"
	"github.com/kuitang/ghflow/internal/s3client"
	"github.com/kuitang/ghflow/internal/scenario"
)

const (
	browserTestBucketName = "browser-test-bucket"

	// Never introduce a larger timeout value anywhere in tests/browser.
	browserMaxTimeout = 5 * time.Second

	testUsername = "octocat"
	testEmail    = "octocat@example.com"
	testPassword = "correct-horse-battery"
)

var testRepositories = []string{"hello-world", "spoon-knife", "linguist"}

// BrowserTestEnv is a fake site plus an S3 fake for one test.
type BrowserTestEnv struct {
	Site     *fakegh.Site
	Server   *httptest.Server
	BaseURL  string
	S3Client *s3client.Client
	TempDir  string
}

// SetupBrowserTestEnv starts a fake site with one user owning
// testRepositories. Browser tests are skipped in -short mode.
func SetupBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests skipped in -short mode")
	}
	t.Cleanup(obs.SetOutputForTests(io.Discard))

	site, err := fakegh.New()
	if err != nil {
		t.Fatalf("Failed to create fake site: %v", err)
	}
	t.Cleanup(site.Close)
	if err := site.AddUser(testUsername, testEmail, testPassword, testRepositories...); err != nil {
		t.Fatalf("Failed to add user: %v", err)
	}

	server := httptest.NewServer(site)
	t.Cleanup(server.Close)

	return &BrowserTestEnv{
		Site:     site,
		Server:   server,
		BaseURL:  server.URL,
		S3Client: s3client.TestClient(t, browserTestBucketName),
		TempDir:  t.TempDir(),
	}
}

// Params returns walk-through inputs for the fake site's user.
func (env *BrowserTestEnv) Params() scenario.Params {
	return scenario.Params{
		BaseURL:        env.BaseURL,
		Email:          testEmail,
		Password:       testPassword,
		Username:       testUsername,
		NewRepoName:    "Teste",
		ScreenshotPath: filepath.Join(env.TempDir, "img", "repositorio_teste.png"),
	}
}

// Store returns an artifact store uploading to the fake S3 bucket.
func (env *BrowserTestEnv) Store(runID string) *artifacts.Store {
	return artifacts.NewStore(runID, env.S3Client)
}

// OpenDriver launches the named backend headless. Skips the test if the
// browser is not available.
func OpenDriver(t *testing.T, name string) driver.Driver {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	drv, err := browser.Open(ctx, name, driver.Options{
		Headless: true,
		Timeout:  browserMaxTimeout,
		Install:  os.Getenv("PLAYWRIGHT_INSTALL") == "true",
	})
	if errs.CodeOf(err) == errs.Unavailable {
		t.Skipf("%s browser not available: %v", name, err)
	}
	if err != nil {
		t.Fatalf("Failed to open %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := drv.Close(); err != nil && !errors.Is(err, context.Canceled) {
			t.Logf("close %s: %v", name, err)
		}
	})
	return drv
}

// ForEachDriver runs fn as a subtest per backend.
func ForEachDriver(t *testing.T, fn func(t *testing.T, name string)) {
	t.Helper()
	for _, name := range browser.Drivers() {
		t.Run(name, func(t *testing.T) { fn(t, name) })
	}
}
