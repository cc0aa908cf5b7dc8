package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimcheck/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes the fact-check pipeline over HTTP:

  POST /api/v1/analyze        {"claim": "..."}
  GET  /api/v1/analyses/{id}  stored result by id
  GET  /healthz
  GET  /readyz                language model provider reachable
  GET  /metrics               Prometheus metrics

Expired cache entries are swept once at startup and then every
cache.sweep_interval when it is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close cache", "error", err)
		}
	}()

	a.sweep(ctx)
	if a.cache != nil {
		a.cache.StartSweeper(ctx, cfg.Cache.SweepInterval)
	}

	a.checkLLM(ctx)

	srv := server.New(a.pipeline, server.ConfigFromModel(cfg), logger,
		server.WithReadiness(a.checkLLM, cfg.Server.ReadinessCache))
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
