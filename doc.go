// Package crashkit is a small error-tracking shim for web applications: it
// wraps an external error-reporting service behind a uniform sink interface,
// provides a structured error type that carries free-form context, and merges
// that context with call-site context when an error is reported.
//
// # Structured Errors
//
// Declare an error variant once with Define, giving it a stable snake_case
// tag and the integer code shared by every instance:
//
//	var ErrCheckout = crashkit.Define("checkout_failed", 502)
//
//	err := ErrCheckout.New("payment declined", "order_id", 4711, "amount", 1999)
//
// Context is supplied as alternating key/value arguments (the log/slog
// convention); insertion order is preserved. Instances match their definition
// through errors.Is:
//
//	if errors.Is(err, ErrCheckout) {
//	    // handle checkout failures
//	}
//
// The plain New constructor produces the base variant (tag "error", code 500).
//
// # Serialization
//
// Payload flattens an error into a single JSON-able mapping:
//
//	err.Payload()
//	// map[error:checkout_failed error_code:502 message:payment declined
//	//     order_id:4711 amount:1999]
//
// Context keys are merged at the top level and may override the three base
// keys; this is accepted, not guarded against. A "backtrace" entry is added
// only when requested with WithBacktrace and a trace was captured.
//
// # Reporting
//
// A Notifier merges the context carried by an error with ad-hoc context
// supplied at the report site (ad-hoc keys win) and forwards the pair to the
// configured sink:
//
//	n, err := crashkit.NewNotifier(cfg)
//	if err != nil {
//	    // unknown sink names and bad config fail here, not at first use
//	}
//	id, err := n.Notify(ctx, checkoutErr, map[string]any{"request_id": rid})
//
// Any error type may be reported. Types that implement ContextCarrier
// contribute their own context; everything else contributes an empty mapping.
// Sink failures propagate to the caller unchanged: the notifier adds no
// retry, no suppression, no wrapping.
//
// # Sinks
//
// Sinks register by name the way database/sql drivers do; blank-import the
// adapter and select it in the configuration:
//
//	import _ "github.com/beaconops/crashkit/adapter/sentry"
//
//	cfg := crashkit.Config{Sink: "sentry", DSN: dsn}
//
// The built-in "noop" sink discards everything. When the configured
// environment is not in Config.EnabledEnvironments, the notifier swaps in the
// noop sink and only diagnostic rendering remains active.
//
// # Diagnostic Mode
//
// With Config.Diagnostic set, every Notify renders a human-readable block to
// the diagnostic writer before forwarding: a type/message header, the stack
// trace (filtered by Config.TraceFilter, at most 10 frames), and one line per
// merged context key.
package crashkit
