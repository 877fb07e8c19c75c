// Package drivertest provides an in-memory driver.Driver for unit tests of
// code that drives a browser.
package drivertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/kuitang/ghflow/internal/driver"
	"github.com/kuitang/ghflow/internal/errs"
)

// Call records one driver invocation.
type Call struct {
	Op       string
	Selector string
	Arg      string
}

// Fake is a scripted driver. Elements "exist" when they have a click handler,
// a text, properties, or are listed in Present. Click handlers usually move
// CurrentURL to simulate navigation.
type Fake struct {
	mu sync.Mutex

	CurrentURL string
	Calls      []Call
	Typed      map[string]string
	Closed     bool

	Present    map[string]bool
	Texts      map[string]string
	Props      map[string][]string
	OnClick    map[string]func(f *Fake) error
	OnGoto     func(f *Fake, url string) error
	PNG        []byte
	HTML       string
	FailAction map[string]error
}

var _ driver.Driver = (*Fake)(nil)

// New returns an empty Fake positioned at about:blank.
func New() *Fake {
	return &Fake{
		CurrentURL: "about:blank",
		Typed:      map[string]string{},
		Present:    map[string]bool{},
		Texts:      map[string]string{},
		Props:      map[string][]string{},
		OnClick:    map[string]func(f *Fake) error{},
		FailAction: map[string]error{},
		PNG:        []byte("\x89PNG\r\n\x1a\nfake"),
	}
}

// Navigate moves the fake to url. Click handlers call it.
func (f *Fake) Navigate(url string) {
	f.CurrentURL = url
}

// Ops returns the recorded operation names in order.
func (f *Fake) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		ops[i] = c.Op + " " + c.Selector
	}
	return ops
}

func (f *Fake) record(op string, sel string, arg string) error {
	f.Calls = append(f.Calls, Call{Op: op, Selector: sel, Arg: arg})
	if err, ok := f.FailAction[op+" "+sel]; ok {
		return err
	}
	return nil
}

func (f *Fake) exists(sel string) bool {
	if f.Present[sel] {
		return true
	}
	if _, ok := f.OnClick[sel]; ok {
		return true
	}
	if _, ok := f.Texts[sel]; ok {
		return true
	}
	_, ok := f.Props[sel]
	return ok
}

func missing(action string, sel driver.Selector) error {
	return errs.New(errs.NotFound, fmt.Sprintf("%s: no element", driver.ActionError(action, sel)))
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Goto(ctx context.Context, url string, wait driver.WaitUntil) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.record("goto", url, string(wait)); err != nil {
		return err
	}
	if f.OnGoto != nil {
		return f.OnGoto(f, url)
	}
	f.CurrentURL = url
	return nil
}

func (f *Fake) Click(ctx context.Context, sel driver.Selector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.click(ctx, "click", sel)
}

func (f *Fake) click(ctx context.Context, op string, sel driver.Selector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.record(op, sel.String(), ""); err != nil {
		return err
	}
	if !f.exists(sel.String()) {
		return missing("click", sel)
	}
	if handler, ok := f.OnClick[sel.String()]; ok {
		return handler(f)
	}
	return nil
}

func (f *Fake) ClickAndWait(ctx context.Context, sel driver.Selector, wait driver.WaitUntil) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	before := f.CurrentURL
	if err := f.click(ctx, "click+wait", sel); err != nil {
		return err
	}
	if f.CurrentURL == before {
		return errs.New(errs.NotFound, driver.ActionError("wait for navigation after click", sel))
	}
	return nil
}

func (f *Fake) Type(ctx context.Context, sel driver.Selector, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.record("type", sel.String(), text); err != nil {
		return err
	}
	if !f.exists(sel.String()) {
		return missing("type into", sel)
	}
	f.Typed[sel.String()] += text
	return nil
}

func (f *Fake) WaitFor(ctx context.Context, sel driver.Selector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.record("wait", sel.String(), ""); err != nil {
		return err
	}
	if !f.exists(sel.String()) {
		return missing("wait for", sel)
	}
	return nil
}

func (f *Fake) Text(ctx context.Context, sel driver.Selector) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := f.record("text", sel.String(), ""); err != nil {
		return "", err
	}
	text, ok := f.Texts[sel.String()]
	if !ok {
		return "", missing("read text of", sel)
	}
	return text, nil
}

func (f *Fake) Properties(ctx context.Context, sel driver.Selector, name string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.record("props", sel.String(), name); err != nil {
		return nil, err
	}
	return append([]string(nil), f.Props[sel.String()]...), nil
}

func (f *Fake) URL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.CurrentURL, nil
}

func (f *Fake) Content(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.HTML, ctx.Err()
}

func (f *Fake) Screenshot(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.record("screenshot", "", ""); err != nil {
		return nil, err
	}
	return append([]byte(nil), f.PNG...), nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
