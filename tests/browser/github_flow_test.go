package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/ghflow/internal/artifacts"
	"github.com/kuitang/ghflow/internal/config"
	"github.com/kuitang/ghflow/internal/obs"
	"github.com/kuitang/ghflow/internal/scenario"
)

// TestFlow_GitHub runs against the real site with the account from the
// environment. The account must not already own a repository named
// NEW_REPO_NAME.
func TestFlow_GitHub(t *testing.T) {
	if testing.Short() {
		t.Skip("live test skipped in -short mode")
	}
	for _, key := range []string{"EMAIL", "PASSWORD", "GITUSERNAME"} {
		if os.Getenv(key) == "" {
			t.Skipf("%s not set", key)
		}
	}

	headless := true
	cfg, err := config.FromEnv(config.Flags{Headless: &headless, NoUpload: true})
	require.NoError(t, err)
	cfg.ScreenshotPath = filepath.Join(t.TempDir(), "repositorio_teste.png")

	drv := OpenDriver(t, cfg.Driver)
	ctx := obs.WithRunID(context.Background(), "live")
	flow := scenario.New(scenario.ParamsFromConfig(cfg), artifacts.NewStore("live", nil))

	report, err := scenario.Run(ctx, drv, flow.Steps())
	require.NoError(t, err)
	require.True(t, report.Passed())
	require.FileExists(t, cfg.ScreenshotPath)
}
