package cdpdriver

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

// idleQuiet is how long the network must stay empty to count as idle,
// the same window Playwright uses for networkidle.
const idleQuiet = 500 * time.Millisecond

// netTracker counts in-flight requests from CDP network events.
type netTracker struct {
	mu         sync.Mutex
	inflight   map[network.RequestID]struct{}
	lastChange time.Time
	now        func() time.Time
}

func newNetTracker() *netTracker {
	return &netTracker{
		inflight:   make(map[network.RequestID]struct{}),
		lastChange: time.Now(),
		now:        time.Now,
	}
}

func (n *netTracker) handle(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		n.started(e.RequestID)
	case *network.EventLoadingFinished:
		n.finished(e.RequestID)
	case *network.EventLoadingFailed:
		n.finished(e.RequestID)
	}
}

func (n *netTracker) started(id network.RequestID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inflight[id] = struct{}{}
	n.lastChange = n.now()
}

func (n *netTracker) finished(id network.RequestID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.inflight[id]; !ok {
		return
	}
	delete(n.inflight, id)
	n.lastChange = n.now()
}

// idle reports whether nothing is in flight and nothing changed for idleQuiet.
func (n *netTracker) idle() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.inflight) == 0 && n.now().Sub(n.lastChange) >= idleQuiet
}

func (n *netTracker) waitIdle(ctx context.Context) error {
	for {
		if n.idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
