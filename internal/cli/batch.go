package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimcheck/internal/worker"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Check multiple claims from a file in parallel",
	Long: `Batch checks every claim in a file concurrently:
- One claim per line; blank lines and lines starting with # are skipped
- Duplicate claims are checked once
- Optionally writes one JSON result per claim

Example:
  claimcheck batch claims.txt
  claimcheck batch claims.txt --concurrency 4 --output-dir ./results`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(flagOverrides(cmd))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
		defer cancel()

		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()
		a.sweep(ctx)

		return runBatch(ctx, cmd, a, args[0])
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "claims analyzed in parallel (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "write one JSON result per claim here")
	addAnalysisFlags(batchCmd)
}

func runBatch(ctx context.Context, cmd *cobra.Command, a *app, file string) error {
	workers := a.cfg.Concurrency.ClaimWorkers
	if workers <= 0 {
		workers = 1
	}

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "Checking claims from %s with %d workers\n", file, workers)

	processor := worker.NewBatchProcessor(a.pipeline, workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	out := cmd.OutOrStdout()
	failures := 0
	for _, result := range results {
		if result.Error != nil {
			failures++
			fmt.Fprintf(out, "FAIL  %s: %v\n", result.Claim, userError(result.Error))
			continue
		}

		r := result.Analysis
		cached := ""
		if r.Cached {
			cached = " (cached)"
		}
		fmt.Fprintf(out, "OK    %s: accuracy %.1f, %.1f/%.1f/%.1f%s\n",
			result.Claim, r.AccuracyScore, r.AgreementScore, r.DisagreementScore, r.NeutralScore, cached)

		if outputDir != "" {
			path := filepath.Join(outputDir, sanitizeFilename(result.Claim)+"-"+shortID(r.ID)+".json")
			if err := writeJSON(path, r); err != nil {
				fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
			}
		}
	}

	fmt.Fprintf(out, "\nTotal: %d  Success: %d  Failures: %d\n", len(results), len(results)-failures, failures)
	if len(results) > 0 && failures == len(results) {
		return fmt.Errorf("all %d claims failed", failures)
	}
	return nil
}

// sanitizeFilename turns claim text into a short, portable file name stem
func sanitizeFilename(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= 60 {
			break
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		return "claim"
	}
	return name
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
