package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is one captured log record, kept for the in-process log viewer.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Buffer is a fixed-size ring of recent log entries. Once full, every new
// entry evicts the oldest one.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	wrapped bool
}

func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = 1000
	}
	return &Buffer{entries: make([]Entry, size)}
}

func (b *Buffer) Append(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = e
	b.next++
	if b.next == len(b.entries) {
		b.next = 0
		b.wrapped = true
	}
}

// All returns the retained entries, newest first.
func (b *Buffer) All() []Entry {
	return b.snapshot(func(Entry) bool { return true })
}

// ByLevel returns the retained entries of one level, newest first. The
// level match is case-insensitive.
func (b *Buffer) ByLevel(level string) []Entry {
	want := strings.ToUpper(strings.TrimSpace(level))
	return b.snapshot(func(e Entry) bool { return e.Level == want })
}

// Since returns the retained entries at or after t, newest first.
func (b *Buffer) Since(t time.Time) []Entry {
	return b.snapshot(func(e Entry) bool { return !e.Timestamp.Before(t) })
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wrapped {
		return len(b.entries)
	}
	return b.next
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next = 0
	b.wrapped = false
}

func (b *Buffer) snapshot(keep func(Entry) bool) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.next
	if b.wrapped {
		n = len(b.entries)
	}
	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		// Walk backwards from the most recent slot.
		idx := (b.next - 1 - i + len(b.entries)) % len(b.entries)
		if keep(b.entries[idx]) {
			out = append(out, b.entries[idx])
		}
	}
	return out
}

// bufferHandler captures every record into the ring buffer and forwards it
// to the wrapped handler unchanged.
type bufferHandler struct {
	inner slog.Handler
	buf   *Buffer
}

func (h *bufferHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *bufferHandler) Handle(ctx context.Context, r slog.Record) error {
	h.buf.Append(Entry{
		Timestamp: r.Time,
		Level:     r.Level.String(),
		Message:   r.Message,
	})
	return h.inner.Handle(ctx, r)
}

func (h *bufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &bufferHandler{inner: h.inner.WithAttrs(attrs), buf: h.buf}
}

func (h *bufferHandler) WithGroup(name string) slog.Handler {
	return &bufferHandler{inner: h.inner.WithGroup(name), buf: h.buf}
}

// NewBuffered builds the usual JSON logger with every record additionally
// retained in buf for the log-viewing endpoints.
func NewBuffered(level string, buf *Buffer) *slog.Logger {
	base := New(level)
	return slog.New(&bufferHandler{inner: base.Handler(), buf: buf})
}
