// Package driver defines the browser operations a scenario needs, independent
// of the automation backend that performs them.
//
// Every method blocks until the browser has finished the action or the
// backend's per-action timeout expires. Selector lookups that time out are
// reported as errs.NotFound so callers can tell "the page changed shape" apart
// from transport failures.
package driver

import (
	"context"
	"fmt"
	"time"
)

// Kind says how a Selector expression is interpreted.
type Kind int

const (
	KindCSS Kind = iota
	KindXPath
)

// Selector identifies one or more DOM elements.
type Selector struct {
	Expr string
	Kind Kind
}

// CSS returns a CSS selector.
func CSS(expr string) Selector {
	return Selector{Expr: expr, Kind: KindCSS}
}

// XPath returns an XPath selector.
func XPath(expr string) Selector {
	return Selector{Expr: expr, Kind: KindXPath}
}

func (s Selector) String() string {
	if s.Kind == KindXPath {
		return "xpath=" + s.Expr
	}
	return s.Expr
}

// WaitUntil is the page lifecycle event a navigation waits for.
type WaitUntil string

const (
	WaitLoad             WaitUntil = "load"
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitNetworkIdle      WaitUntil = "networkidle"
)

// Driver controls one page of one browser.
type Driver interface {
	// Name identifies the backend in logs.
	Name() string
	// Goto loads url and waits for the given lifecycle event.
	Goto(ctx context.Context, url string, wait WaitUntil) error
	// Click clicks the first element matching sel.
	Click(ctx context.Context, sel Selector) error
	// ClickAndWait clicks the first element matching sel and waits until the
	// page has navigated to a different URL and reached the lifecycle event.
	ClickAndWait(ctx context.Context, sel Selector, wait WaitUntil) error
	// Type sends text as key presses to the first element matching sel.
	Type(ctx context.Context, sel Selector, text string) error
	// WaitFor waits until an element matching sel is attached to the DOM.
	WaitFor(ctx context.Context, sel Selector) error
	// Text returns the rendered text of the first element matching sel.
	Text(ctx context.Context, sel Selector) (string, error)
	// Properties returns the named DOM property of every element matching
	// sel, in document order. For links, "href" yields absolute URLs.
	Properties(ctx context.Context, sel Selector, name string) ([]string, error)
	// URL returns the current page URL.
	URL(ctx context.Context) (string, error)
	// Content returns the current page HTML.
	Content(ctx context.Context) (string, error)
	// Screenshot captures the current viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// Close releases the page, the browser and the backend process.
	Close() error
}

// Options configure a backend at launch.
type Options struct {
	Headless bool
	// Timeout bounds every single action.
	Timeout time.Duration
	// Install downloads browser binaries before launching, where supported.
	Install bool
}

// DefaultTimeout matches the automation libraries' own default.
const DefaultTimeout = 30 * time.Second

// Normalize fills zero fields with defaults.
func (o Options) Normalize() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// TimeoutMS returns the timeout in milliseconds as float64, the unit
// Playwright options use.
func (o Options) TimeoutMS() float64 {
	return float64(o.Normalize().Timeout / time.Millisecond)
}

// ActionError describes which action on which selector failed.
func ActionError(action string, sel Selector) string {
	return fmt.Sprintf("%s %s", action, sel)
}
