// Package browser launches the configured driver backend.
package browser

import (
	"context"
	"fmt"

	"github.com/kuitang/ghflow/internal/config"
	"github.com/kuitang/ghflow/internal/driver"
	"github.com/kuitang/ghflow/internal/driver/cdpdriver"
	"github.com/kuitang/ghflow/internal/driver/pwdriver"
	"github.com/kuitang/ghflow/internal/errs"
)

// Launcher starts one backend.
type Launcher func(ctx context.Context, opts driver.Options) (driver.Driver, error)

var launchers = map[string]Launcher{
	pwdriver.Name: func(ctx context.Context, opts driver.Options) (driver.Driver, error) {
		return pwdriver.Launch(ctx, opts)
	},
	cdpdriver.Name: func(ctx context.Context, opts driver.Options) (driver.Driver, error) {
		return cdpdriver.Launch(ctx, opts)
	},
}

// Drivers lists the backend names Open accepts.
func Drivers() []string {
	return []string{pwdriver.Name, cdpdriver.Name}
}

// Open launches the named backend.
func Open(ctx context.Context, name string, opts driver.Options) (driver.Driver, error) {
	launch, ok := launchers[name]
	if !ok {
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown browser driver %q", name))
	}
	return launch(ctx, opts)
}

// OpenFromConfig launches the backend and options described by cfg.
func OpenFromConfig(ctx context.Context, cfg *config.Config) (driver.Driver, error) {
	return Open(ctx, cfg.Driver, OptionsFromConfig(cfg))
}

// OptionsFromConfig maps run configuration onto driver options.
func OptionsFromConfig(cfg *config.Config) driver.Options {
	return driver.Options{
		Headless: cfg.Headless,
		Timeout:  cfg.ActionTimeout,
		Install:  cfg.InstallBrowsers,
	}.Normalize()
}
