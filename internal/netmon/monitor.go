// Package netmon observes network reachability and reports edge-triggered
// transitions (offline→online, online→offline).
//
// Reachability is sampled by a Prober on a fixed interval. A transition is
// reported only after the new state has been observed on a configurable
// number of consecutive probes, so marginal connectivity does not trigger
// sync storms. Absence of probing capability counts as offline - the
// fail-safe direction is "do not attempt network I/O".
package netmon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Prober answers a single reachability question. Implemented by HTTPProber
// in production and by test doubles.
type Prober interface {
	// Probe reports whether the network path is currently usable.
	Probe(ctx context.Context) bool
}

// HTTPProber checks reachability with one HEAD request against a fixed
// URL, typically the gateway host. Any error - DNS, dial, timeout, TLS -
// counts as offline; the response status is irrelevant, only that a
// response arrived.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

// NewHTTPProber creates a prober against url with the given per-probe
// timeout.
func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Monitor polls a Prober and broadcasts debounced reachability edges.
//
// Thread-safety model:
//   - Online(): safe from any goroutine
//   - Subscribe(): safe from any goroutine, before or after Start
//   - Start(): call once; the poll loop runs until ctx is cancelled
type Monitor struct {
	prober      Prober
	interval    time.Duration
	stableCount int

	mu      sync.Mutex
	online  bool // current debounced state; starts offline
	streak  int  // consecutive probes agreeing with candidate
	cand    bool // candidate state being debounced
	subs    []chan bool
	started bool
}

// New creates a monitor that polls prober every interval and requires
// stableCount consecutive agreeing probes before flipping state.
// stableCount values below 1 are treated as 1.
func New(prober Prober, interval time.Duration, stableCount int) *Monitor {
	if stableCount < 1 {
		stableCount = 1
	}
	return &Monitor{
		prober:      prober,
		interval:    interval,
		stableCount: stableCount,
		cand:        false,
	}
}

// Online returns the current debounced reachability.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe returns a channel receiving the new reachability on every
// debounced flip. The channel is buffered with size 1 and sends are
// non-blocking: a slow subscriber sees the latest edge, intermediate
// flips coalesce.
func (m *Monitor) Subscribe() <-chan bool {
	ch := make(chan bool, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Start launches the poll loop. It probes immediately, then on every
// interval tick, until ctx is cancelled. Calling Start twice is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go m.loop(ctx)
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.observe(m.probe(ctx))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.observe(m.probe(ctx))
		}
	}
}

func (m *Monitor) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()
	return m.prober.Probe(probeCtx)
}

// observe feeds one probe result into the debouncer and broadcasts when a
// stable flip is confirmed.
func (m *Monitor) observe(reachable bool) {
	m.mu.Lock()

	if reachable == m.online {
		// Back at the settled state: discard any half-confirmed flip.
		m.streak = 0
		m.mu.Unlock()
		return
	}

	if reachable != m.cand {
		m.cand = reachable
		m.streak = 0
	}
	m.streak++
	if m.streak < m.stableCount {
		m.mu.Unlock()
		return
	}

	// Stable flip confirmed.
	m.online = reachable
	m.streak = 0
	subs := make([]chan bool, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	if reachable {
		slog.Info("network reachable")
	} else {
		slog.Info("network unreachable")
	}

	for _, ch := range subs {
		// Coalescing non-blocking send: drain a stale value, then send.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- reachable:
		default:
		}
	}
}
