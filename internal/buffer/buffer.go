// Package buffer coalesces bursts of WhatsApp message fragments per session.
//
// Users often split one thought over several quick messages ("oi", "tudo bem?",
// "queria saber dos lotes"). Buffer holds them until the session has been quiet
// for a fixed period and then hands the joined text to a single callback, so the
// LLM is called once per burst instead of once per fragment.
package buffer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// FlushFunc receives the combined text of one burst.
type FlushFunc func(ctx context.Context, sessionID, text string) error

type entry struct {
	fragments []string
	timer     *time.Timer
	// gen identifies the latest scheduled flush. A timer whose gen is stale was
	// superseded after it had already fired and must not flush.
	gen uint64
}

// Buffer is safe for concurrent use. Sessions never block each other.
type Buffer struct {
	quiet time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a buffer that flushes a session after quiet has elapsed since its
// last fragment.
func New(quiet time.Duration) *Buffer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Buffer{
		quiet:   quiet,
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Quiet returns the configured quiet period.
func (b *Buffer) Quiet() time.Duration {
	return b.quiet
}

// Add appends fragment to the session's pending burst and restarts its quiet
// period. cb runs once, on its own goroutine, when the period elapses without
// another Add for the same session.
func (b *Buffer) Add(sessionID, fragment string, cb FlushFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		slog.Warn("message_buffer_stopped", "session_id", sessionID)
		return
	}

	e, ok := b.entries[sessionID]
	if !ok {
		e = &entry{}
		b.entries[sessionID] = e
	}
	e.fragments = append(e.fragments, fragment)

	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.timer = time.AfterFunc(b.quiet, func() {
		b.flush(sessionID, gen, cb)
	})

	slog.Debug("message_buffered",
		"session_id", sessionID,
		"fragments", len(e.fragments),
		"quiet", b.quiet)
}

func (b *Buffer) flush(sessionID string, gen uint64, cb FlushFunc) {
	b.mu.Lock()
	e, ok := b.entries[sessionID]
	if !ok || e.gen != gen || b.stopped {
		b.mu.Unlock()
		return
	}
	delete(b.entries, sessionID)
	b.wg.Add(1)
	b.mu.Unlock()

	defer b.wg.Done()

	text := strings.TrimSpace(strings.Join(e.fragments, " "))
	if text == "" {
		return
	}

	if err := b.run(sessionID, text, cb); err != nil {
		slog.Error("buffer_flush_failed", "session_id", sessionID, "error", err)
	}
}

// run isolates the callback so a panic is reported as an error.
func (b *Buffer) run(sessionID, text string, cb FlushFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("flush callback panicked: %v", r)
		}
	}()
	return cb(b.ctx, sessionID, text)
}

// Pending returns the number of sessions with unflushed fragments.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Stop cancels every pending flush, dropping its fragments, and waits for
// callbacks already running. The context passed to callbacks is cancelled once
// they have returned or ctx expires, whichever comes first.
func (b *Buffer) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil
	}
	b.stopped = true
	dropped := len(b.entries)
	for id, e := range b.entries {
		e.timer.Stop()
		delete(b.entries, id)
	}
	b.mu.Unlock()

	if dropped > 0 {
		slog.Warn("message_buffer_dropped_pending", "sessions", dropped)
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	defer b.cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
