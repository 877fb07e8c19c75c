// Command ghflow drives a real browser through a GitHub account walk-through:
// sign in, check the account name, open a random repository and its pull
// requests, create a repository and screenshot it, sign out.
//
// Usage:
//
//	EMAIL=... PASSWORD=... GITUSERNAME=... go run ./cmd/ghflow [--headless] [--driver chromedp] [--no-upload]
//
// Variables may also come from a .env file in the working directory. The exit
// status is 0 on success, 1 when a check fails, 2 on bad configuration, 3 when
// the browser or artifact store is unavailable and 4 otherwise.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/ghflow/internal/artifacts"
	"github.com/kuitang/ghflow/internal/browser"
	"github.com/kuitang/ghflow/internal/config"
	"github.com/kuitang/ghflow/internal/driver"
	"github.com/kuitang/ghflow/internal/errs"
	"github.com/kuitang/ghflow/internal/obs"
	"github.com/kuitang/ghflow/internal/s3client"
	"github.com/kuitang/ghflow/internal/scenario"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// opener launches the browser for a run.
type opener func(ctx context.Context, cfg *config.Config) (driver.Driver, error)

func run(ctx context.Context, args []string, stderr io.Writer) int {
	flags, err := config.ParseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return errs.ExitOK
	}
	if err != nil {
		return errs.ExitConfiguration
	}

	cfg, err := config.LoadConfig(flags)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return errs.ExitConfiguration
	}

	obs.Init(cfg.LogLevel)
	cfg.PrintStartupSummary(stderr)

	ctx = obs.WithRunID(ctx, uuid.NewString())
	flow, report, err := execute(ctx, cfg, browser.OpenFromConfig)
	printReport(stderr, report, flow)
	if err != nil {
		obs.From(ctx).Error("run_failed", "code", errs.CodeOf(err), "error", err.Error())
		fmt.Fprintf(stderr, "ghflow: %s\n", errs.MessageOf(err))
		return errs.ExitCodeOf(err)
	}
	return errs.ExitOK
}

// execute opens the browser, runs every step and closes the browser. The
// report is nil only when the run never started.
func execute(ctx context.Context, cfg *config.Config, open opener) (*scenario.Flow, *scenario.Report, error) {
	log := obs.From(ctx)

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store := artifacts.NewStore(obs.RunIDFromContext(ctx), uploader)

	drv, err := open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err := drv.Close(); err != nil {
			log.Warn("browser_close_failed", "error", err.Error())
		}
	}()

	flow := scenario.New(scenario.ParamsFromConfig(cfg), store)
	report, err := scenario.Run(ctx, drv, flow.Steps())
	return flow, report, err
}

// newUploader returns nil when screenshots stay local.
func newUploader(ctx context.Context, cfg *config.Config) (artifacts.Uploader, error) {
	if !cfg.UploadEnabled() {
		return nil, nil
	}
	client, err := s3client.New(ctx, s3client.Config{
		Endpoint:        cfg.AWSEndpointS3,
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		BucketName:      cfg.AWSBucketName,
		PublicURL:       cfg.AWSPublicURL,
		UsePathStyle:    cfg.AWSEndpointS3 != "",
	})
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "create s3 client", err)
	}
	return client, nil
}

func printReport(w io.Writer, report *scenario.Report, flow *scenario.Flow) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "\nrun %s (%s)\n", report.RunID, report.Driver)
	for _, res := range report.Results {
		status := "PASS"
		if !res.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(w, "  %s  %-24s %s\n", status, res.Name, res.Duration.Round(time.Millisecond))
		if res.Err != nil {
			fmt.Fprintf(w, "        %v\n", res.Err)
		}
	}
	if flow != nil && flow.Screenshot.Path != "" {
		fmt.Fprintf(w, "  screenshot: %s\n", flow.Screenshot.Path)
		if flow.Screenshot.URL != "" {
			fmt.Fprintf(w, "  uploaded:   %s\n", flow.Screenshot.URL)
		}
	}
	fmt.Fprintf(w, "  total:      %s\n", report.Duration.Round(time.Millisecond))
}
