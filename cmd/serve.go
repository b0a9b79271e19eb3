package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mcp-scheduler/internal/calllog"
	"mcp-scheduler/internal/config"
	"mcp-scheduler/internal/embedding"
	"mcp-scheduler/internal/heartbeat"
	"mcp-scheduler/internal/httpapi"
	"mcp-scheduler/internal/ingestion"
	"mcp-scheduler/internal/registration"
	"mcp-scheduler/internal/selection"
	"mcp-scheduler/internal/state"
	"mcp-scheduler/internal/vectorindex"
	"mcp-scheduler/pkg/logging"
)

// newServeCmd builds the serve command, which boots every scheduler
// component and blocks serving HTTP until interrupted.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduler's HTTP API and background health engine",
		Long: `Starts the HTTP API, connects to Qdrant and Postgres, and launches the
background heartbeat engine that pings every registered server and expires
stale batch registrations.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		logging.InitForCLI(logging.LevelInfo, os.Stderr)
		fatalStartup("configuration", err)
	}

	logging.InitForCLI(logging.ParseLevel(cfg.LogLevel), os.Stderr)
	logging.Info("Bootstrap", "starting with bind address %s", cfg.BindAddr)
	logging.Info("Bootstrap", "required environment variables present: QDRANT_URL=%t OPENROUTER_API_KEY=%t DATABASE_URL=%t",
		cfg.QdrantURL != "", cfg.OpenRouterAPIKey != "", cfg.DatabaseURL != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	index, err := vectorindex.Connect(cfg.QdrantURL)
	if err != nil {
		fatalStartup("vector index", err)
	}

	callLog, err := calllog.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		fatalStartup("call log store", err)
	}
	defer callLog.Close()

	if err := callLog.CheckSchema(ctx); err != nil {
		fatalStartup("call log schema", err)
	}

	embedder := embedding.New(cfg.EmbeddingsURL, cfg.OpenRouterAPIKey, cfg.EmbeddingModel)

	store := state.New()
	ingest := ingestion.New(embedder, index)
	reg := registration.New(store, ingest)
	sel := selection.New(store, index, callLog)

	hb := heartbeat.New(store)
	hb.Start(ctx)

	server := httpapi.New(cfg.BindAddr, store, reg, sel, callLog)
	server.Start()

	<-ctx.Done()
	logging.Info("Bootstrap", "shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil && err != http.ErrServerClosed {
		logging.Error("Bootstrap", err, "error during shutdown")
	}

	return nil
}

func fatalStartup(component string, err error) {
	logging.Error("Bootstrap", err, "fatal startup failure in %s", component)
	os.Exit(ExitCodeError)
}
