package crashkit

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// maxDiagnosticFrames bounds the trace section of a diagnostic block.
const maxDiagnosticFrames = 10

// renderDiagnostic writes the human-readable block for one reported error:
// a type/message header, the filtered and truncated trace, and one line per
// merged context key. The context section is omitted entirely when the
// merged mapping is empty; values are rendered in Go debug form so
// structured values stay distinguishable from strings.
func renderDiagnostic(w io.Writer, err error, st Stack, merged map[string]any, filter string) {
	fmt.Fprintf(w, "%T: %s\n", err, err)

	frames := filterFrames(st, filter)
	shown := frames
	if len(shown) > maxDiagnosticFrames {
		shown = shown[:maxDiagnosticFrames]
	}
	for _, f := range shown {
		fmt.Fprintf(w, "  %s\n", f)
	}
	if rest := len(frames) - len(shown); rest > 0 {
		fmt.Fprintf(w, "  ... %d more\n", rest)
	}

	if len(merged) == 0 {
		return
	}
	fmt.Fprintln(w, "context:")
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %#v\n", k, merged[k])
	}
}

// filterFrames keeps the frames whose rendering contains substr. A filter
// that matches nothing falls back to the full trace, so a substring that is
// wrong for a given deployment never hides the whole stack.
func filterFrames(st Stack, substr string) Stack {
	if substr == "" || len(st) == 0 {
		return st
	}
	out := make(Stack, 0, len(st))
	for _, f := range st {
		if strings.Contains(f.String(), substr) {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return st
	}
	return out
}
