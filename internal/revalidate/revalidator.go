// Package revalidate is the liveness backstop for the realtime
// channel: when the host view regains foreground visibility, or a
// subscription reports a degraded state, the relevant fetches are
// re-run once to correct any drift from missed or reordered events.
package revalidate

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Fetch re-loads one view's data from the backend and returns the
// tea.Msg carrying the result into the event loop.
type Fetch func(ctx context.Context) tea.Msg

// ResultMsg wraps a fetch result delivered through the revalidator.
// The envelope lets the host model re-arm its WaitForNextResult
// subscription exactly once per delivery before unwrapping Inner.
type ResultMsg struct {
	Target string
	Inner  tea.Msg
}

// fetchTimeout is the maximum time allowed for a single revalidation
// fetch.
const fetchTimeout = 30 * time.Second

// target is a registered revalidation with its in-flight guard.
type target struct {
	name  string
	fetch Fetch
	busy  bool
}

// Revalidator re-runs registered fetches on demand, at most one
// outstanding run per target. A trigger that lands while the same
// target is already fetching is dropped rather than queued: each
// trigger causes at most one fetch and can never start a retry storm.
type Revalidator struct {
	targets   map[string]*target
	order     []string
	resultCh  chan tea.Msg
	triggerCh chan string
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
}

// New creates an empty revalidator.
func New() *Revalidator {
	return &Revalidator{
		targets:   make(map[string]*target),
		resultCh:  make(chan tea.Msg, 16),
		triggerCh: make(chan string, 16),
		stopCh:    make(chan struct{}),
	}
}

// Register adds a named revalidation target. Registering an existing
// name replaces its fetch.
func (r *Revalidator) Register(name string, fetch Fetch) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.targets[name]; !ok {
		r.order = append(r.order, name)
	}
	r.targets[name] = &target{name: name, fetch: fetch}
}

// Unregister removes a target. In-flight fetches for it still deliver
// their result; the caller's stale-response guard discards it.
func (r *Revalidator) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.targets, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Start launches the dispatch goroutine and returns the subscription
// command that feeds results into the Bubble Tea runtime.
func (r *Revalidator) Start() tea.Cmd {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return r.waitForResult()
	}
	r.running = true
	r.mu.Unlock()

	go r.dispatch()
	return r.waitForResult()
}

// Stop halts the dispatch goroutine.
func (r *Revalidator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	close(r.stopCh)
	r.running = false
}

// Trigger requests one revalidation of the named target. Non-blocking;
// when the trigger queue is full the request is dropped, which is
// safe since a full queue means revalidation is already underway.
func (r *Revalidator) Trigger(name string) {
	select {
	case r.triggerCh <- name:
	default:
	}
}

// TriggerAll requests one revalidation of every registered target.
// Used on foreground-visibility regain, where any view may be stale.
func (r *Revalidator) TriggerAll() {
	r.mu.Lock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	r.mu.Unlock()

	for _, name := range names {
		r.Trigger(name)
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next
// revalidation result. Call it again after processing each result to
// keep the subscription alive.
func (r *Revalidator) WaitForNextResult() tea.Cmd {
	return r.waitForResult()
}

// dispatch consumes triggers and runs fetches. The busy flag per
// target coalesces overlapping triggers into the run already in
// progress.
func (r *Revalidator) dispatch() {
	for {
		select {
		case <-r.stopCh:
			return
		case name := <-r.triggerCh:
			r.mu.Lock()
			entry, ok := r.targets[name]
			if !ok || entry.busy {
				r.mu.Unlock()
				continue
			}
			entry.busy = true
			fetch := entry.fetch
			r.mu.Unlock()

			go r.run(name, fetch)
		}
	}
}

// run executes one fetch under the timeout and delivers its result.
func (r *Revalidator) run(name string, fetch Fetch) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	msg := fetch(ctx)

	r.mu.Lock()
	if entry, ok := r.targets[name]; ok {
		entry.busy = false
	}
	r.mu.Unlock()

	if msg == nil {
		return
	}
	select {
	case r.resultCh <- ResultMsg{Target: name, Inner: msg}:
	default:
		// Drop if the result channel is full to avoid blocking
	}
}

// waitForResult returns a tea.Cmd that waits on the result channel.
func (r *Revalidator) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg, ok := <-r.resultCh:
			if !ok {
				return nil
			}
			return msg
		case <-r.stopCh:
			return nil
		}
	}
}
