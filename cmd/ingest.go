package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lanternedu/lantern/db"
	"github.com/lanternedu/lantern/internal/config"
	"github.com/lanternedu/lantern/internal/embedding"
	"github.com/lanternedu/lantern/internal/ingest"
	"github.com/lanternedu/lantern/internal/knowledge"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed and store documents from the documents directory",
	Long: `Scans the documents directory for .txt and .md files, embeds each
new file, and stores it in the knowledge base. Already ingested files are
skipped, so re-running is always safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest()
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateIngest(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := knowledge.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	store := knowledge.NewStore(pool, cfg.EmbeddingDimension, logger)
	embedder := embedding.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.EmbeddingModel,
		embedding.WithLogger(logger))

	pipeline := ingest.New(cfg.DocumentsDir, store, embedder,
		cfg.IngestBatchSize, cfg.IngestBatchDelay, logger)

	summary, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("running ingestion: %w", err)
	}

	fmt.Printf("Ingestion complete: %d files, %d ingested, %d skipped, %d failed\n",
		summary.Total, summary.Succeeded, summary.Skipped, summary.Failed)
	for _, fileErr := range summary.Errors {
		fmt.Printf("  failed: %s\n", fileErr)
	}

	// Per-file failures are reported above but do not fail the command;
	// the run is re-runnable and siblings were persisted.
	return nil
}
