// Package codemod implements the mechanical part of migrating a codebase
// from a provider SDK to crashkit: import rewrites that are safe to apply
// blindly, plus a review pass that flags the call sites a human has to port.
package codemod

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Rule is a mechanical rewrite: every occurrence of Pattern is replaced with
// Replace. Patterns are literal strings, not expressions, so a rule never
// matches more than its author wrote down.
type Rule struct {
	Name    string
	Pattern string
	Replace string
}

// Review flags lines that still need a human decision after the mechanical
// pass. Pattern is matched as a literal substring per line.
type Review struct {
	Pattern string
	Hint    string
}

// Finding is one flagged line.
type Finding struct {
	Line int
	Text string
	Hint string
}

// FileResult reports what happened to a single file. Changed reports whether
// rewrites apply to the file; with DryRun set nothing is written back.
type FileResult struct {
	Path         string
	Replacements int
	Findings     []Finding
	Changed      bool
	Skipped      bool
	Err          error
}

// Summary aggregates one run. Results are sorted by path.
type Summary struct {
	Files        int
	Changed      int
	Replacements int
	Findings     int
	Skipped      int
	Failed       int
	Results      []FileResult
}

// Options configures a run.
type Options struct {
	// Root is walked for .go files when Files is empty.
	Root string

	// Files is an explicit list of files to process.
	Files []string

	Rules   []Rule
	Reviews []Review

	// DryRun computes results without writing anything back.
	DryRun bool

	// Workers caps concurrent file processing; non-positive means NumCPU.
	Workers int

	// Exclude holds glob patterns matched against base names of files and
	// directories.
	Exclude []string

	// OnFile is invoked once per processed file, possibly concurrently.
	OnFile func(FileResult)
}

// DefaultRules rewrites provider SDK imports to the crashkit module path.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "raven import", Pattern: `"github.com/getsentry/raven-go"`, Replace: `"github.com/beaconops/crashkit"`},
		{Name: "sentry import", Pattern: `"github.com/getsentry/sentry-go"`, Replace: `"github.com/beaconops/crashkit"`},
		{Name: "bugsnag v2 import", Pattern: `"github.com/bugsnag/bugsnag-go/v2"`, Replace: `"github.com/beaconops/crashkit"`},
		{Name: "bugsnag import", Pattern: `"github.com/bugsnag/bugsnag-go"`, Replace: `"github.com/beaconops/crashkit"`},
	}
}

// DefaultReviews flags the provider calls that have no mechanical
// translation.
func DefaultReviews() []Review {
	return []Review{
		{Pattern: "sentry.Init(", Hint: "build a crashkit.Config and call crashkit.NewNotifier at startup"},
		{Pattern: "bugsnag.Configure(", Hint: "build a crashkit.Config and call crashkit.NewNotifier at startup"},
		{Pattern: "raven.SetDSN(", Hint: "move the DSN into crashkit.Config or CRASHKIT_DSN"},
		{Pattern: "CaptureException(", Hint: "call Notify on your notifier"},
		{Pattern: "CaptureError(", Hint: "call Notify on your notifier"},
		{Pattern: "CaptureMessage(", Hint: "wrap the message in an error and call Notify"},
		{Pattern: "ConfigureScope(", Hint: "use SetContext/SetUser on the notifier"},
		{Pattern: "WithScope(", Hint: "pass per-call context to Notify instead"},
		{Pattern: "bugsnag.Notify(", Hint: "call Notify on your notifier"},
		{Pattern: "sentry.Flush(", Hint: "call Flush on your notifier before exit"},
	}
}

var skipDirs = map[string]bool{
	".git":         true,
	"vendor":       true,
	"testdata":     true,
	"node_modules": true,
}

// ListFiles walks root and returns every .go file a run would process, in
// walk order. Version-control, vendor and testdata trees are skipped, as is
// anything matching an exclude pattern.
func ListFiles(root string, exclude []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (skipDirs[name] || matchesAny(exclude, name)) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(name) != ".go" || matchesAny(exclude, name) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Run processes every file with a bounded worker pool and aggregates the
// results. Per-file failures are recorded in the summary, not returned;
// the returned error reports only listing failures and context
// cancellation.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	files := opts.Files
	if len(files) == 0 {
		var err error
		files, err = ListFiles(opts.Root, opts.Exclude)
		if err != nil {
			return nil, err
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		mu      sync.Mutex
		results = make([]FileResult, 0, len(files))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := RewriteFile(path, opts)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			if opts.OnFile != nil {
				opts.OnFile(res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

	s := &Summary{Files: len(results), Results: results}
	for _, r := range results {
		s.Replacements += r.Replacements
		s.Findings += len(r.Findings)
		if r.Changed {
			s.Changed++
		}
		if r.Skipped {
			s.Skipped++
		}
		if r.Err != nil {
			s.Failed++
		}
	}
	return s, nil
}

// RewriteFile applies the rules and review scan to a single file. Generated
// files are skipped untouched; read and write failures land in the result.
func RewriteFile(path string, opts Options) FileResult {
	res := FileResult{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = err
		return res
	}
	content := string(data)
	if isGenerated(content) {
		res.Skipped = true
		return res
	}

	updated := content
	for _, r := range opts.Rules {
		n := strings.Count(updated, r.Pattern)
		if n == 0 {
			continue
		}
		updated = strings.ReplaceAll(updated, r.Pattern, r.Replace)
		res.Replacements += n
	}

	// Findings are scanned after the rewrite so freshly fixed lines are not
	// flagged.
	for i, line := range strings.Split(updated, "\n") {
		for _, rev := range opts.Reviews {
			if strings.Contains(line, rev.Pattern) {
				res.Findings = append(res.Findings, Finding{
					Line: i + 1,
					Text: strings.TrimSpace(line),
					Hint: rev.Hint,
				})
			}
		}
	}

	if updated == content {
		return res
	}
	res.Changed = true
	if opts.DryRun {
		return res
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(path, []byte(updated), mode); err != nil {
		res.Err = err
	}
	return res
}

// isGenerated reports whether the first line carries the standard
// generated-code marker.
func isGenerated(content string) bool {
	first := content
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	return strings.HasPrefix(first, "// Code generated") && strings.Contains(first, "DO NOT EDIT")
}
