// Package poller drives the visitor widget and the operator dashboard: a
// fixed-interval fetch loop plus the state each client keeps between polls.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 10 * time.Second
)

// ErrInFlight is returned by Poll when the previous fetch has not finished.
var ErrInFlight = errors.New("poll already in flight")

type Fetch[T any] func(ctx context.Context) ([]T, error)

type Options[T any] struct {
	Interval time.Duration
	Timeout  time.Duration

	// OnChange runs after a fetch whose result count differs from the last.
	OnChange func(items []T)
	// OnError decides whether the loop stops after a failed fetch.
	OnError func(err error) (stop bool)
}

// Poller fetches once on Start and then every Interval until stopped.
// A tick that fires while a fetch is running is skipped.
type Poller[T any] struct {
	fetch Fetch[T]
	opts  Options[T]

	// held for the duration of a fetch
	fetchMu sync.Mutex

	mu        sync.Mutex
	lastCount int
	cancel    context.CancelFunc
	done      chan struct{}
}

func New[T any](fetch Fetch[T], opts Options[T]) *Poller[T] {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Poller[T]{fetch: fetch, opts: opts, lastCount: -1}
}

// Start begins polling. It is a no-op while already running.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running() {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop cancels the loop and waits for it to exit. After Stop returns no
// callback fires. It must not be called from OnChange or OnError.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller[T]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running()
}

func (p *Poller[T]) running() bool {
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Reset forgets the last count so the next fetch always reports a change.
func (p *Poller[T]) Reset() {
	p.mu.Lock()
	p.lastCount = -1
	p.mu.Unlock()
}

// Poll runs a single fetch and reports whether the result count changed.
func (p *Poller[T]) Poll(ctx context.Context) (bool, error) {
	if !p.fetchMu.TryLock() {
		return false, ErrInFlight
	}
	defer p.fetchMu.Unlock()
	return p.run(ctx)
}

// Sync waits for a running fetch to finish and then fetches again, so the
// result includes every write made before the call. It must not be called
// from OnChange.
func (p *Poller[T]) Sync(ctx context.Context) (bool, error) {
	p.fetchMu.Lock()
	defer p.fetchMu.Unlock()
	return p.run(ctx)
}

// run fetches with fetchMu held.
func (p *Poller[T]) run(ctx context.Context) (bool, error) {
	fctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	items, err := p.fetch(fctx)
	if err != nil {
		return false, err
	}

	p.mu.Lock()
	changed := len(items) != p.lastCount
	p.lastCount = len(items)
	p.mu.Unlock()

	if changed && p.opts.OnChange != nil {
		p.opts.OnChange(items)
	}
	return changed, nil
}

func (p *Poller[T]) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if p.tick(ctx) {
		return
	}

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.tick(ctx) {
				return
			}
		}
	}
}

func (p *Poller[T]) tick(ctx context.Context) (stop bool) {
	_, err := p.Poll(ctx)
	switch {
	case err == nil, errors.Is(err, ErrInFlight):
		return false
	case ctx.Err() != nil:
		return true
	case p.opts.OnError != nil:
		return p.opts.OnError(err)
	default:
		return false
	}
}
