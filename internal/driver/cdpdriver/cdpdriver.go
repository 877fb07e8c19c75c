// Package cdpdriver implements driver.Driver over the Chrome DevTools Protocol
// using chromedp.
package cdpdriver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/kuitang/ghflow/internal/driver"
	"github.com/kuitang/ghflow/internal/errs"
	"github.com/kuitang/ghflow/internal/logutil"
	"github.com/kuitang/ghflow/internal/obs"
)

// Name is the backend name used in configuration.
const Name = "chromedp"

const pollInterval = 50 * time.Millisecond

// Driver drives a single Chrome tab through chromedp.
type Driver struct {
	opts          driver.Options
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	net           *netTracker
}

var _ driver.Driver = (*Driver)(nil)

// Launch starts a Chrome process and attaches to its first tab. The browser
// lives until Close, independent of ctx.
func Launch(ctx context.Context, opts driver.Options) (*Driver, error) {
	opts = opts.Normalize()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	tracker := newNetTracker()
	chromedp.ListenTarget(browserCtx, tracker.handle)

	// The first Run starts the browser; it must use browserCtx itself so a
	// timeout on ctx cannot tear the browser down later.
	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, errs.Wrap(errs.Unavailable, "launch chrome", err)
	}

	obs.From(ctx).With("pkg", "cdpdriver").Debug("browser launched", "headless", opts.Headless, "timeout", opts.Timeout)
	return &Driver{
		opts:          opts,
		browserCtx:    browserCtx,
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
		net:           tracker,
	}, nil
}

func (d *Driver) Name() string { return Name }

// run executes actions bounded by the per-action timeout and by ctx.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(d.browserCtx, d.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (d *Driver) Goto(ctx context.Context, url string, wait driver.WaitUntil) error {
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return classify(fmt.Sprintf("goto %s", url), err)
	}
	return d.settle(ctx, wait, fmt.Sprintf("goto %s", url))
}

func (d *Driver) Click(ctx context.Context, sel driver.Selector) error {
	if err := d.run(ctx, chromedp.Click(sel.Expr, by(sel), chromedp.NodeVisible)); err != nil {
		return classify(driver.ActionError("click", sel), err)
	}
	return nil
}

func (d *Driver) ClickAndWait(ctx context.Context, sel driver.Selector, wait driver.WaitUntil) error {
	before, err := d.URL(ctx)
	if err != nil {
		return err
	}
	if err := d.Click(ctx, sel); err != nil {
		return err
	}

	action := driver.ActionError("wait for navigation after click", sel)
	err = d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for {
			var current string
			if err := chromedp.Location(&current).Do(ctx); err != nil {
				return err
			}
			if current != before {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
		}
	}))
	if err != nil {
		return classify(action, err)
	}
	return d.settle(ctx, wait, action)
}

// settle waits for the document to be ready and, for network idle, for the
// tracker to report no requests in flight for a quiet period.
func (d *Driver) settle(ctx context.Context, wait driver.WaitUntil, action string) error {
	if err := d.run(ctx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return classify(action, err)
	}
	if wait != driver.WaitNetworkIdle {
		return nil
	}
	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return d.net.waitIdle(ctx)
	}))
	if err != nil {
		return classify(action+" (network idle)", err)
	}
	return nil
}

func (d *Driver) Type(ctx context.Context, sel driver.Selector, text string) error {
	obs.From(ctx).Debug("type", "pkg", Name, "selector", sel.String(), "text", logutil.RedactValue(sel.Expr, text))
	if err := d.run(ctx, chromedp.SendKeys(sel.Expr, text, by(sel))); err != nil {
		return classify(driver.ActionError("type into", sel), err)
	}
	return nil
}

func (d *Driver) WaitFor(ctx context.Context, sel driver.Selector) error {
	if err := d.run(ctx, chromedp.WaitReady(sel.Expr, by(sel))); err != nil {
		return classify(driver.ActionError("wait for", sel), err)
	}
	return nil
}

func (d *Driver) Text(ctx context.Context, sel driver.Selector) (string, error) {
	var text string
	if err := d.run(ctx, chromedp.Text(sel.Expr, &text, by(sel), chromedp.NodeVisible)); err != nil {
		return "", classify(driver.ActionError("read text of", sel), err)
	}
	return text, nil
}

func (d *Driver) Properties(ctx context.Context, sel driver.Selector, name string) ([]string, error) {
	js, err := propertiesScript(sel, name)
	if err != nil {
		return nil, err
	}
	var values []string
	if err := d.run(ctx, chromedp.Evaluate(js, &values)); err != nil {
		return nil, classify(driver.ActionError("read "+name+" of", sel), err)
	}
	return values, nil
}

func (d *Driver) URL(ctx context.Context) (string, error) {
	var location string
	if err := d.run(ctx, chromedp.Location(&location)); err != nil {
		return "", classify("read location", err)
	}
	return location, nil
}

func (d *Driver) Content(ctx context.Context) (string, error) {
	var html string
	if err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", classify("read page content", err)
	}
	return html, nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		data, err := page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			Do(ctx)
		if err != nil {
			return err
		}
		buf = data
		return nil
	}))
	if err != nil {
		return nil, classify("take screenshot", err)
	}
	return buf, nil
}

// Close shuts the tab and the Chrome process down.
func (d *Driver) Close() error {
	var err error
	if d.browserCtx != nil {
		err = chromedp.Cancel(d.browserCtx)
	}
	if d.cancelBrowser != nil {
		d.cancelBrowser()
	}
	if d.cancelAlloc != nil {
		d.cancelAlloc()
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func by(sel driver.Selector) chromedp.QueryOption {
	if sel.Kind == driver.KindXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// propertiesScript builds a JS expression mapping every match of sel to its
// named DOM property. Arguments are JSON-encoded so quotes in selectors stay
// literal.
func propertiesScript(sel driver.Selector, name string) (string, error) {
	expr, err := json.Marshal(sel.Expr)
	if err != nil {
		return "", errs.Wrap(errs.InvalidArgument, "encode selector", err)
	}
	prop, err := json.Marshal(name)
	if err != nil {
		return "", errs.Wrap(errs.InvalidArgument, "encode property name", err)
	}

	var collect string
	if sel.Kind == driver.KindXPath {
		collect = fmt.Sprintf(`(() => {
			const r = document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
			const out = [];
			for (let i = 0; i < r.snapshotLength; i++) out.push(r.snapshotItem(i));
			return out;
		})()`, expr)
	} else {
		collect = fmt.Sprintf(`Array.from(document.querySelectorAll(%s))`, expr)
	}

	var b strings.Builder
	b.WriteString(collect)
	fmt.Fprintf(&b, `.map(e => { const v = e[%s]; return (v === undefined || v === null) ? (e.getAttribute(%s) || "") : String(v); })`, prop, prop)
	return b.String(), nil
}

func classify(action string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.NotFound, action, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return errs.Wrap(errs.Internal, action, err)
}
