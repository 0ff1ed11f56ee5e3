package crashkit

import "errors"

// Field is a single contextual key/value pair attached to an Error.
// Keys are free-form; snake_case keeps them consistent with the payload keys.
type Field struct {
	Key string
	Val any
}

// fields is the internal representation of an error's context. A slice keeps
// insertion order, which Go maps do not; it is treated as append-only once an
// Error is constructed.
type fields []Field

var emptyFields = make(fields, 0)

// fieldsFromKV parses alternating key/value arguments. Pairs are read left to
// right; a non-string key drops the whole pair so later pairs stay aligned; a
// trailing key with no value takes a nil value.
func fieldsFromKV(kv ...any) fields {
	if len(kv) == 0 {
		return emptyFields
	}
	out := make(fields, 0, len(kv)/2+1)
	for i := 0; i < len(kv); {
		k, ok := kv[i].(string)
		if !ok {
			if i+1 < len(kv) {
				i += 2
			} else {
				i++
			}
			continue
		}
		var v any
		if i+1 < len(kv) {
			v = kv[i+1]
			i += 2
		} else {
			i++
		}
		out = append(out, Field{Key: k, Val: v})
	}
	if len(out) == 0 {
		return emptyFields
	}
	return out
}

// cloneMap builds a fresh map from the ordered pairs. Duplicate keys resolve
// last-write-wins. The result is never nil: an error without context reports
// an empty mapping, not an absent one.
func (fs fields) cloneMap() map[string]any {
	m := make(map[string]any, len(fs))
	for _, f := range fs {
		m[f.Key] = f.Val
	}
	return m
}

// ContextCarrier is implemented by error values that expose contextual
// key/value data for reporting. It is the explicit capability check used
// during merging: errors that do not implement it contribute an empty
// mapping. The context must be read through this accessor only, never
// through a nested key of some other payload.
type ContextCarrier interface {
	Context() map[string]any
}

// MergeContext combines the ambient context carried by err with the ad-hoc
// context supplied at the report site. Ad-hoc keys overwrite ambient keys of
// the same name; keys present on only one side are kept as-is. The carrier is
// discovered anywhere in the error chain. The result is always a fresh,
// non-nil map and is produced anew on every call.
func MergeContext(err error, adHoc map[string]any) map[string]any {
	merged := make(map[string]any, len(adHoc)+4)
	var carrier ContextCarrier
	if errors.As(err, &carrier) {
		for k, v := range carrier.Context() {
			merged[k] = v
		}
	}
	for k, v := range adHoc {
		merged[k] = v
	}
	return merged
}
