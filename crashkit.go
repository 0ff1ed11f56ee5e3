package crashkit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Notifier is the reporting facade: it merges error context with call-site
// context, optionally renders a diagnostic block, and forwards to the active
// sink. All fields are fixed at construction, so a Notifier is safe for
// concurrent use.
type Notifier struct {
	sink        Sink
	enabled     bool
	diagnostic  bool
	traceFilter string
	diagOut     io.Writer
	log         *slog.Logger
}

// Option adjusts a Notifier beyond what Config describes.
type Option func(*Notifier)

// WithLogger sets the slog logger handed to the sink factory and used for
// lifecycle messages. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(n *Notifier) {
		if log != nil {
			n.log = log
		}
	}
}

// WithDiagnosticWriter redirects diagnostic rendering. Defaults to
// os.Stderr.
func WithDiagnosticWriter(w io.Writer) Option {
	return func(n *Notifier) {
		if w != nil {
			n.diagOut = w
		}
	}
}

// WithSink installs the given sink directly instead of resolving
// Config.Sink in the registry. The environment gate still applies. Intended
// for tests and for custom sinks that are not registered by name.
func WithSink(s Sink) Option {
	return func(n *Notifier) {
		if s != nil {
			n.sink = s
		}
	}
}

// NewNotifier validates cfg and resolves it into a ready Notifier. An
// unregistered sink name is an immediate error even when the current
// environment is outside EnabledEnvironments; the sink factory itself only
// runs when the environment is enabled.
func NewNotifier(cfg Config, opts ...Option) (*Notifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("crashkit: invalid config: %w", err)
	}

	n := &Notifier{
		enabled:     cfg.EnvironmentEnabled(),
		diagnostic:  cfg.Diagnostic,
		traceFilter: cfg.TraceFilter,
		diagOut:     os.Stderr,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.sink != nil {
		if !n.enabled {
			n.sink = NoopSink{}
		}
		return n, nil
	}

	factory, err := lookupSink(cfg.SinkName())
	if err != nil {
		return nil, err
	}
	if !n.enabled {
		n.log.Debug("crashkit reporting disabled for environment",
			slog.String("environment", cfg.Environment),
			slog.String("sink", cfg.SinkName()))
		n.sink = NoopSink{}
		return n, nil
	}

	sink, err := factory(cfg, n.log)
	if err != nil {
		return nil, fmt.Errorf("crashkit: sink %q: %w", cfg.SinkName(), err)
	}
	n.sink = sink
	return n, nil
}

// Enabled reports whether events reach a real sink in this environment.
func (n *Notifier) Enabled() bool {
	return n.enabled
}

// Notify reports err with the given ad-hoc context. The error's own context
// is merged with adHoc (ad-hoc keys win), the diagnostic block is rendered
// when diagnostic mode is on, and the pair is forwarded to the sink. The
// sink's event identifier and error are returned unchanged; a nil err is a
// no-op that reports no identifier.
func (n *Notifier) Notify(ctx context.Context, err error, adHoc map[string]any) (EventID, error) {
	if err == nil {
		return "", nil
	}
	merged := MergeContext(err, adHoc)
	if n.diagnostic {
		renderDiagnostic(n.diagOut, err, stackOf(err), merged, n.traceFilter)
	}
	return n.sink.Notify(ctx, err, merged)
}

// SetContext installs process-wide context on the sink.
func (n *Notifier) SetContext(m map[string]any) {
	n.sink.SetContext(m)
}

// SetUser installs user information on the sink.
func (n *Notifier) SetUser(u map[string]any) {
	n.sink.SetUser(u)
}

// LastEventID reports the identifier of the most recently accepted event,
// or absent when the sink has none.
func (n *Notifier) LastEventID() EventID {
	return n.sink.LastEventID()
}

// Flush waits for buffered events on sinks that implement Flusher and
// reports whether everything was delivered in time. Sinks that do not
// buffer report true immediately.
func (n *Notifier) Flush(timeout time.Duration) bool {
	if f, ok := n.sink.(Flusher); ok {
		return f.Flush(timeout)
	}
	return true
}
