package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// mockTransport implements sentry.Transport and keeps events in memory
type mockTransport struct {
	mu     sync.RWMutex
	events []*sentry.Event
	closed bool
}

// Configure implements sentry.Transport
//
//nolint:gocritic // hugeParam: interface requirement, cannot change signature
func (t *mockTransport) Configure(_ sentry.ClientOptions) {}

// SendEvent implements sentry.Transport
func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.events = append(t.events, event)
	}
}

// Flush implements sentry.Transport
func (t *mockTransport) Flush(time.Duration) bool { return true }

// FlushWithContext implements sentry.Transport
func (t *mockTransport) FlushWithContext(ctx context.Context) bool {
	return ctx.Err() == nil
}

// Close implements sentry.Transport
func (t *mockTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

func (t *mockTransport) Events() []*sentry.Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	events := make([]*sentry.Event, len(t.events))
	copy(events, t.events)
	return events
}
