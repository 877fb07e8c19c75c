// Package pwdriver implements driver.Driver on top of playwright-go.
package pwdriver

import (
	"context"
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/ghflow/internal/driver"
	"github.com/kuitang/ghflow/internal/errs"
	"github.com/kuitang/ghflow/internal/logutil"
	"github.com/kuitang/ghflow/internal/obs"
)

// Name is the backend name used in configuration.
const Name = "playwright"

// Driver drives a single Chromium page through Playwright.
type Driver struct {
	opts    driver.Options
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

var _ driver.Driver = (*Driver)(nil)

// Launch starts Playwright, launches Chromium and opens one page. The page
// has no fixed viewport, so it follows the window size like a manual session.
func Launch(ctx context.Context, opts driver.Options) (*Driver, error) {
	opts = opts.Normalize()
	log := obs.From(ctx).With("pkg", "pwdriver")

	if opts.Install {
		log.Info("installing playwright browsers")
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, errs.Wrap(errs.Unavailable, "install playwright browsers", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "start playwright", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, errs.Wrap(errs.Unavailable, "launch chromium", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		NoViewport: playwright.Bool(true),
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, errs.Wrap(errs.Unavailable, "create browser context", err)
	}
	bctx.SetDefaultTimeout(opts.TimeoutMS())
	bctx.SetDefaultNavigationTimeout(opts.TimeoutMS())

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, errs.Wrap(errs.Unavailable, "open page", err)
	}

	log.Debug("browser launched", "headless", opts.Headless, "timeout", opts.Timeout)
	return &Driver{
		opts:    opts,
		pw:      pw,
		browser: browser,
		context: bctx,
		page:    page,
	}, nil
}

func (d *Driver) Name() string { return Name }

func (d *Driver) Goto(ctx context.Context, url string, wait driver.WaitUntil) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: waitUntilState(wait),
		Timeout:   playwright.Float(d.opts.TimeoutMS()),
	})
	if err != nil {
		return classify(fmt.Sprintf("goto %s", url), err)
	}
	return nil
}

func (d *Driver) Click(ctx context.Context, sel driver.Selector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := d.locate(sel).Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(d.opts.TimeoutMS()),
	})
	if err != nil {
		return classify(driver.ActionError("click", sel), err)
	}
	return nil
}

func (d *Driver) ClickAndWait(ctx context.Context, sel driver.Selector, wait driver.WaitUntil) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	before := d.page.URL()
	if err := d.Click(ctx, sel); err != nil {
		return err
	}
	err := d.page.WaitForURL(func(current string) bool {
		return current != before
	}, playwright.PageWaitForURLOptions{
		WaitUntil: waitUntilState(wait),
		Timeout:   playwright.Float(d.opts.TimeoutMS()),
	})
	if err != nil {
		return classify(driver.ActionError("wait for navigation after click", sel), err)
	}
	if wait == driver.WaitNetworkIdle {
		err = d.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateNetworkidle,
			Timeout: playwright.Float(d.opts.TimeoutMS()),
		})
		if err != nil {
			return classify(driver.ActionError("wait for network idle after click", sel), err)
		}
	}
	return nil
}

func (d *Driver) Type(ctx context.Context, sel driver.Selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	obs.From(ctx).Debug("type", "pkg", Name, "selector", sel.String(), "text", logutil.RedactValue(sel.Expr, text))
	err := d.locate(sel).PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
		Timeout: playwright.Float(d.opts.TimeoutMS()),
	})
	if err != nil {
		return classify(driver.ActionError("type into", sel), err)
	}
	return nil
}

func (d *Driver) WaitFor(ctx context.Context, sel driver.Selector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := d.locate(sel).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(d.opts.TimeoutMS()),
	})
	if err != nil {
		return classify(driver.ActionError("wait for", sel), err)
	}
	return nil
}

func (d *Driver) Text(ctx context.Context, sel driver.Selector) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := d.locate(sel).InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(d.opts.TimeoutMS()),
	})
	if err != nil {
		return "", classify(driver.ActionError("read text of", sel), err)
	}
	return text, nil
}

const propertiesJS = `(els, name) => els.map(e => {
	const v = e[name];
	if (v === undefined || v === null) {
		return e.getAttribute(name) || "";
	}
	return String(v);
})`

func (d *Driver) Properties(ctx context.Context, sel driver.Selector, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := d.page.Locator(sel.String()).EvaluateAll(propertiesJS, name)
	if err != nil {
		return nil, classify(driver.ActionError("read "+name+" of", sel), err)
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, errs.New(errs.Internal, fmt.Sprintf("unexpected %T from property evaluation", raw))
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		s, _ := item.(string)
		values = append(values, s)
	}
	return values, nil
}

func (d *Driver) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.page.URL(), nil
}

func (d *Driver) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := d.page.Content()
	if err != nil {
		return "", classify("read page content", err)
	}
	return content, nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypePng,
		Timeout: playwright.Float(d.opts.TimeoutMS()),
	})
	if err != nil {
		return nil, classify("take screenshot", err)
	}
	return data, nil
}

// Close tears down page, context, browser and the Playwright driver process,
// returning the first error.
func (d *Driver) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.page != nil {
		keep(d.page.Close())
	}
	if d.context != nil {
		keep(d.context.Close())
	}
	if d.browser != nil {
		keep(d.browser.Close())
	}
	if d.pw != nil {
		keep(d.pw.Stop())
	}
	return firstErr
}

func (d *Driver) locate(sel driver.Selector) playwright.Locator {
	return d.page.Locator(sel.String()).First()
}

func waitUntilState(wait driver.WaitUntil) *playwright.WaitUntilState {
	switch wait {
	case driver.WaitDOMContentLoaded:
		return playwright.WaitUntilStateDomcontentloaded
	case driver.WaitNetworkIdle:
		return playwright.WaitUntilStateNetworkidle
	default:
		return playwright.WaitUntilStateLoad
	}
}

func classify(action string, err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return errs.Wrap(errs.NotFound, action, err)
	}
	return errs.Wrap(errs.Internal, action, err)
}
