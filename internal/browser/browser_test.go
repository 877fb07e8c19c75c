package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/ghflow/internal/config"
	"github.com/kuitang/ghflow/internal/driver"
	"github.com/kuitang/ghflow/internal/errs"
)

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "selenium", driver.Options{})
	require.Error(t, err)
	require.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}

func TestDrivers_MatchConfigNames(t *testing.T) {
	require.ElementsMatch(t, []string{config.DriverPlaywright, config.DriverChromedp}, Drivers())
	for _, name := range Drivers() {
		_, ok := launchers[name]
		require.True(t, ok, "no launcher for %s", name)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{Headless: true, ActionTimeout: 5 * time.Second, InstallBrowsers: true}
	opts := OptionsFromConfig(cfg)
	require.True(t, opts.Headless)
	require.True(t, opts.Install)
	require.Equal(t, 5*time.Second, opts.Timeout)
	require.Equal(t, float64(5000), opts.TimeoutMS())

	opts = OptionsFromConfig(&config.Config{})
	require.Equal(t, driver.DefaultTimeout, opts.Timeout)
}
