package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lanternedu/lantern/internal/config"
	"github.com/lanternedu/lantern/internal/knowledge"
	"github.com/lanternedu/lantern/internal/vecindex"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the external vector index from the document store",
	Long: `Recreates the external vector index collection and bulk-loads every
stored document embedding into it. The existing collection is DELETED first,
so search against the external index degrades until the rebuild finishes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReindex()
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateReindex(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()

	pool, err := knowledge.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	store := knowledge.NewStore(pool, cfg.EmbeddingDimension, logger)
	index := vecindex.NewQdrantClient(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection,
		vecindex.WithLogger(logger))

	job := vecindex.NewSyncJob(store, index, cfg.EmbeddingDimension, vecindex.DefaultSyncBatchSize, logger)

	transferred, err := job.Run(ctx)
	if err != nil {
		return fmt.Errorf("reindexing after %d vectors: %w", transferred, err)
	}

	fmt.Printf("Reindex complete: %d vectors transferred to %q\n", transferred, cfg.QdrantCollection)
	return nil
}
