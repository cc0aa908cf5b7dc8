package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimcheck/internal/model"
)

var (
	outJSON        string
	claimsFile     string
	concurrency    int
	outputDir      string
	timeout        time.Duration
	noCache        bool
	extended       bool
	showSources    bool
	summaryLang    string
	llmProvider    string
	llmModel       string
	searchProvider string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <claim>",
	Short: "Fact-check a claim against web sources",
	Long: `Check searches the web for a claim, labels each source as supporting,
contradicting or neutral, and prints the stance breakdown with a verdict.

Results are cached for 7 days keyed by the normalized claim text.

Example:
  claimcheck check "The Great Wall of China is visible from space"
  claimcheck check "Coffee reduces mortality risk" --json result.json
  claimcheck check --file claims.txt --concurrency 4 --output-dir ./results`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&outJSON, "json", "", "write the result as JSON to this path")
	checkCmd.Flags().StringVar(&claimsFile, "file", "", "check every claim in this file (one per line)")
	checkCmd.Flags().IntVar(&concurrency, "concurrency", 0, "claims analyzed in parallel with --file (default from config)")
	checkCmd.Flags().StringVar(&outputDir, "output-dir", "", "with --file, write one JSON result per claim here")
	addAnalysisFlags(checkCmd)
}

// addAnalysisFlags registers flags shared by check and batch
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall timeout")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the result cache")
	cmd.Flags().BoolVar(&extended, "extended", false, "add query variants (fact check, evidence, research, debunked)")
	cmd.Flags().BoolVar(&showSources, "sources", true, "list the displayed sources")
	cmd.Flags().StringVar(&summaryLang, "lang", "", "print the summary in this language when a translation exists")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, openrouter, anthropic, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
	cmd.Flags().StringVar(&searchProvider, "search-provider", "", "search provider (google, brave)")
}

// flagOverrides applies explicitly set analysis flags to cfg
func flagOverrides(cmd *cobra.Command) func(*model.Config) {
	return func(cfg *model.Config) {
		flags := cmd.Flags()
		if flags.Changed("no-cache") {
			cfg.Cache.Enabled = !noCache
		}
		if flags.Changed("extended") {
			cfg.Search.Extended = extended
		}
		if flags.Changed("lang") {
			cfg.Output.Language = summaryLang
		}
		if flags.Changed("llm-provider") {
			cfg.LLM.Provider = llmProvider
			// Another provider's key must not leak across
			cfg.LLM.APIKey = ""
		}
		if flags.Changed("llm-model") {
			cfg.LLM.Model = llmModel
		}
		if flags.Changed("search-provider") {
			cfg.Search.Provider = searchProvider
			cfg.Search.APIKey = ""
		}
		if flags.Changed("concurrency") && concurrency > 0 {
			cfg.Concurrency.ClaimWorkers = concurrency
		}
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	claim := strings.TrimSpace(strings.Join(args, " "))
	if claimsFile == "" && claim == "" {
		return fmt.Errorf("a claim or --file is required")
	}
	if claimsFile != "" && claim != "" {
		return fmt.Errorf("pass either a claim or --file, not both")
	}

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

	if claimsFile != "" {
		return runBatch(ctx, cmd, a, claimsFile)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Checking: %s\n", claim)
	}
	result, err := a.pipeline.AnalyzeClaim(ctx, claim)
	if err != nil {
		return userError(err)
	}

	renderResult(cmd.OutOrStdout(), result, cfg.Output.Language, showSources)

	if outJSON != "" {
		if err := writeJSON(outJSON, result); err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote JSON: %s\n", outJSON)
		}
	}
	return nil
}

// userError turns a classified error into the message shown on the
// terminal; details are already in the log
func userError(err error) error {
	kind := model.KindOf(err)
	if kind == model.KindInternal {
		return fmt.Errorf("check failed: %w", err)
	}
	return fmt.Errorf("%s (%s)", model.UserMessage(err), kind)
}
