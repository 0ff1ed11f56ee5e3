package crashkit

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// EventID identifies an event accepted by a sink. The empty string means the
// sink produced no identifier.
type EventID string

// Sink is the reporting destination behind the Notifier facade.
//
// Notify delivers one error together with its merged context and returns the
// identifier assigned by the backing service, if any. Implementations must
// return delivery failures to the caller unchanged; the notifier adds no
// retry and no suppression on top. SetContext and SetUser install
// process-wide scope data on the destination; LastEventID reports the most
// recently accepted event.
type Sink interface {
	Notify(ctx context.Context, err error, extra map[string]any) (EventID, error)
	SetContext(m map[string]any)
	SetUser(u map[string]any)
	LastEventID() EventID
}

// Flusher is implemented by sinks that buffer delivery and can wait for
// in-flight events.
type Flusher interface {
	Flush(timeout time.Duration) bool
}

// NoopSink discards everything. It backs the "noop" sink name and is
// substituted for the configured sink when the current environment is not
// enabled for reporting.
type NoopSink struct{}

var _ Sink = NoopSink{}

// Notify discards the event and reports no identifier.
func (NoopSink) Notify(context.Context, error, map[string]any) (EventID, error) {
	return "", nil
}

// SetContext is a no-op.
func (NoopSink) SetContext(map[string]any) {}

// SetUser is a no-op.
func (NoopSink) SetUser(map[string]any) {}

// LastEventID reports no identifier.
func (NoopSink) LastEventID() EventID {
	return ""
}

// SinkFactory builds a sink from the resolved configuration. The logger is
// the one the notifier was constructed with.
type SinkFactory func(cfg Config, log *slog.Logger) (Sink, error)

var (
	sinksMu sync.RWMutex
	sinks   = make(map[string]SinkFactory)
)

// RegisterSink makes a sink constructor available under name. It follows the
// database/sql driver convention: call it from an init function and
// blank-import the adapter package where the sink is selected. Registering a
// nil factory or the same name twice panics.
func RegisterSink(name string, factory SinkFactory) {
	sinksMu.Lock()
	defer sinksMu.Unlock()
	if factory == nil {
		panic("crashkit: RegisterSink called with nil factory")
	}
	if _, dup := sinks[name]; dup {
		panic("crashkit: RegisterSink called twice for sink " + name)
	}
	sinks[name] = factory
}

// SinkNames returns the registered sink identifiers in sorted order.
func SinkNames() []string {
	sinksMu.RLock()
	defer sinksMu.RUnlock()
	names := make([]string, 0, len(sinks))
	for name := range sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookupSink resolves a sink name. Unknown names are a configuration error
// surfaced immediately, never deferred to the first notify.
func lookupSink(name string) (SinkFactory, error) {
	sinksMu.RLock()
	factory, ok := sinks[name]
	sinksMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("crashkit: unknown sink %q (registered: %s)",
			name, strings.Join(SinkNames(), ", "))
	}
	return factory, nil
}

func init() {
	RegisterSink("noop", func(Config, *slog.Logger) (Sink, error) {
		return NoopSink{}, nil
	})
}
