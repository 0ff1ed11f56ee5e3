package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/beaconops/crashkit/internal/codemod"
)

func newMigrateCmd() *cobra.Command {
	var (
		root    string
		dryRun  bool
		yes     bool
		workers int
		exclude []string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Rewrite provider SDK usage to the crashkit API",
		Long: `Rewrite sentry-go, raven-go and bugsnag-go imports to crashkit and flag
every call site that needs a manual port. Mechanical rewrites are applied in
place; run with --dry-run first to see what would change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			files, err := codemod.ListFiles(root, exclude)
			if err != nil {
				return fmt.Errorf("listing files: %w", err)
			}
			if len(files) == 0 {
				fmt.Println("no Go files found")
				return nil
			}

			if !dryRun && !yes {
				prompt := promptui.Prompt{
					Label:     fmt.Sprintf("Rewrite %d files under %s", len(files), root),
					IsConfirm: true,
				}
				if _, err := prompt.Run(); err != nil {
					fmt.Println("aborted")
					return nil
				}
			}

			bar := progressbar.Default(int64(len(files)), "migrating")
			sum, err := codemod.Run(ctx, codemod.Options{
				Files:   files,
				Rules:   codemod.DefaultRules(),
				Reviews: codemod.DefaultReviews(),
				DryRun:  dryRun,
				Workers: workers,
				OnFile:  func(codemod.FileResult) { _ = bar.Add(1) },
			})
			if err != nil {
				return err
			}
			_ = bar.Finish()
			fmt.Println()

			printSummary(sum, dryRun)

			if sum.Failed > 0 {
				return fmt.Errorf("%d files failed", sum.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "Directory to migrate")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report changes without writing them")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent workers (0 = all CPUs)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Glob patterns to skip (matched against file and directory names)")

	return cmd
}

func printSummary(sum *codemod.Summary, dryRun bool) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("File", "Rewrites", "Findings", "Status")

	for _, r := range sum.Results {
		if !r.Changed && len(r.Findings) == 0 && r.Err == nil {
			continue
		}
		table.Append(r.Path, strconv.Itoa(r.Replacements), strconv.Itoa(len(r.Findings)), statusOf(r, dryRun))
	}
	table.Render()

	fmt.Println()
	fmt.Printf("%d files scanned, %d changed, %d rewrites, %d findings, %d skipped\n",
		sum.Files, sum.Changed, sum.Replacements, sum.Findings, sum.Skipped)

	for _, r := range sum.Results {
		for _, f := range r.Findings {
			fmt.Printf("  %s:%d: %s\n    %s\n", r.Path, f.Line, f.Text, color.YellowString(f.Hint))
		}
	}
}

func statusOf(r codemod.FileResult, dryRun bool) string {
	switch {
	case r.Err != nil:
		return color.RedString("failed")
	case r.Changed && dryRun:
		return color.YellowString("would change")
	case r.Changed:
		return color.GreenString("rewritten")
	default:
		return "flagged"
	}
}
