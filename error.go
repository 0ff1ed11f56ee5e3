package crashkit

// DefaultCode is the error code reported by variants that declare none.
const DefaultCode = 500

// Definition declares a reusable error variant: a stable snake_case tag plus
// the integer code shared by every instance. Definitions are declared once at
// package level and are immutable; the code is a property of the variant, not
// of individual instances.
type Definition struct {
	tag  string
	code int
}

// Define declares an error variant. An empty tag falls back to "error" and a
// non-positive code falls back to DefaultCode.
func Define(tag string, code int) Definition {
	return Definition{tag: tag, code: code}
}

// base is the variant minted by the plain New constructor.
var base = Definition{}

// Tag returns the variant's machine-readable tag.
func (d Definition) Tag() string {
	if d.tag == "" {
		return "error"
	}
	return d.tag
}

// Code returns the variant's error code.
func (d Definition) Code() int {
	if d.code <= 0 {
		return DefaultCode
	}
	return d.code
}

// Error makes a Definition usable as an errors.Is target; it reads as the
// variant's tag.
func (d Definition) Error() string {
	return d.Tag()
}

// New mints an instance of the variant. Context is supplied as alternating
// key/value arguments and is fixed at construction; the stack trace is
// captured here.
func (d Definition) New(message string, kv ...any) *Error {
	return newError(d, nil, message, kv)
}

// Wrap mints an instance of the variant that wraps cause. The cause stays
// reachable through errors.Is and errors.As.
func (d Definition) Wrap(cause error, message string, kv ...any) *Error {
	return newError(d, cause, message, kv)
}

// Error carries a human message, free-form context fixed at construction,
// the variant's code, and the stack captured at the construction site. It is
// immutable after construction; all accessors return copies.
type Error struct {
	def     Definition
	message string
	fields  fields
	stack   Stack
	cause   error
}

var (
	_ error          = (*Error)(nil)
	_ ContextCarrier = (*Error)(nil)
	_ StackCarrier   = (*Error)(nil)
)

// New constructs a base-variant error (tag "error", code DefaultCode) with
// the given message and context.
func New(message string, kv ...any) *Error {
	return newError(base, nil, message, kv)
}

// newError is the single construction path so that the captured stack starts
// at the caller of the exported constructor.
func newError(d Definition, cause error, message string, kv []any) *Error {
	return &Error{
		def:     d,
		message: message,
		fields:  fieldsFromKV(kv...),
		stack:   captureStack(2),
		cause:   cause,
	}
}

// Error implements the error interface. An empty message degrades to the
// variant's tag; a wrapped cause is appended the usual "message: cause" way.
func (e *Error) Error() string {
	msg := e.message
	if msg == "" {
		msg = e.def.Tag()
	}
	if e.cause != nil {
		return msg + ": " + e.cause.Error()
	}
	return msg
}

// Message returns the stored message, which may be empty.
func (e *Error) Message() string {
	return e.message
}

// Tag returns the variant's tag.
func (e *Error) Tag() string {
	return e.def.Tag()
}

// Code returns the variant's error code.
func (e *Error) Code() int {
	return e.def.Code()
}

// Context returns a fresh copy of the context mapping. It is never nil: an
// error constructed without context reports an empty mapping.
func (e *Error) Context() map[string]any {
	return e.fields.cloneMap()
}

// Fields returns the context pairs in insertion order.
func (e *Error) Fields() []Field {
	if len(e.fields) == 0 {
		return nil
	}
	out := make([]Field, len(e.fields))
	copy(out, e.fields)
	return out
}

// Stack returns a copy of the trace captured at construction.
func (e *Error) Stack() Stack {
	if len(e.stack) == 0 {
		return nil
	}
	out := make(Stack, len(e.stack))
	copy(out, e.stack)
	return out
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches instances to their Definition so errors.Is(err, def) works.
func (e *Error) Is(target error) bool {
	if d, ok := target.(Definition); ok {
		return e.def.Tag() == d.Tag()
	}
	return false
}

type payloadOptions struct {
	backtrace bool
}

// PayloadOption adjusts Payload output.
type PayloadOption func(*payloadOptions)

// WithBacktrace asks Payload to include the captured trace. The entry is
// still omitted when no trace exists.
func WithBacktrace() PayloadOption {
	return func(o *payloadOptions) {
		o.backtrace = true
	}
}

// Payload flattens the error into a single JSON-able mapping: the keys
// "error" (tag), "error_code" and "message" (nil when no message is stored),
// with every context key merged at the top level. Context keys may collide
// with and override the three base keys; this is accepted. A "backtrace"
// entry (frame text in order) is present if and only if it was requested and
// a non-empty trace exists. Payload never fails and calling it twice yields
// equal mappings.
func (e *Error) Payload(opts ...PayloadOption) map[string]any {
	var o payloadOptions
	for _, opt := range opts {
		opt(&o)
	}

	p := make(map[string]any, len(e.fields)+4)
	p["error"] = e.Tag()
	p["error_code"] = e.Code()
	if e.message != "" {
		p["message"] = e.message
	} else {
		p["message"] = nil
	}
	for _, f := range e.fields {
		p[f.Key] = f.Val
	}
	if o.backtrace && len(e.stack) > 0 {
		p["backtrace"] = e.stack.Strings()
	}
	return p
}
