package bookingclient

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultDebounce is the quiet period before a debounced read is issued
	DefaultDebounce = 300 * time.Millisecond

	// DefaultPollInterval is the refresh interval for polled reads
	DefaultPollInterval = 30 * time.Second
)

// Scheduler issues reads with per-key cancellation. Only the most recently
// issued call for a key may deliver a result; older results are dropped.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*pending
	closed  bool
}

type pending struct {
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{entries: make(map[string]*pending)}
}

// issue supersedes the current call for key and returns the new generation
// together with the context the new call must run under.
func (s *Scheduler) issue(parent context.Context, key string) (uint64, context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, nil, false
	}

	var gen uint64 = 1
	if prev, ok := s.entries[key]; ok {
		prev.cancel()
		if prev.timer != nil {
			prev.timer.Stop()
		}
		gen = prev.gen + 1
	}

	ctx, cancel := context.WithCancel(parent)
	s.entries[key] = &pending{gen: gen, cancel: cancel}
	return gen, ctx, true
}

// current reports whether gen is still the latest call for key. When it is,
// the entry is retired so a later call starts from a clean slate.
func (s *Scheduler) current(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.gen != gen {
		return false
	}
	entry.cancel()
	entry.timer = nil
	return true
}

// Cancel drops the pending or in-flight call for key
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok {
		entry.cancel()
		if entry.timer != nil {
			entry.timer.Stop()
		}
		entry.gen++
	}
}

// Close cancels every pending call. Later calls are ignored.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for _, entry := range s.entries {
		entry.cancel()
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	s.entries = make(map[string]*pending)
}

// Debounce schedules fn to run after delay. A later call with the same key
// cancels this one, whether it is still waiting or already in flight, and
// onResult only ever sees the latest call's result.
func Debounce[T any](s *Scheduler, key string, delay time.Duration, fn func(ctx context.Context) (T, error), onResult func(T, error)) {
	gen, ctx, ok := s.issue(context.Background(), key)
	if !ok {
		return
	}

	timer := time.AfterFunc(delay, func() {
		result, err := fn(ctx)
		if ctx.Err() != nil {
			return
		}
		if s.current(key, gen) {
			onResult(result, err)
		}
	})

	s.mu.Lock()
	if entry, ok := s.entries[key]; ok && entry.gen == gen {
		entry.timer = timer
	}
	s.mu.Unlock()
}

// Poll runs fn immediately and then every interval until ctx is done. Each
// tick cancels the previous in-flight read, so a slow response never
// overwrites a newer one.
func Poll[T any](ctx context.Context, s *Scheduler, key string, interval time.Duration, fn func(ctx context.Context) (T, error), onResult func(T, error)) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	defer s.Cancel(key)

	run := func() {
		gen, callCtx, ok := s.issue(ctx, key)
		if !ok {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := fn(callCtx)
			if callCtx.Err() != nil {
				return
			}
			if s.current(key, gen) {
				onResult(result, err)
			}
		}()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
