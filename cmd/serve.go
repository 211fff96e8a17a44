package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lanternedu/lantern/db"
	"github.com/lanternedu/lantern/internal/api"
	"github.com/lanternedu/lantern/internal/config"
	"github.com/lanternedu/lantern/internal/embedding"
	"github.com/lanternedu/lantern/internal/genai"
	"github.com/lanternedu/lantern/internal/knowledge"
	"github.com/lanternedu/lantern/internal/rag"
	"github.com/lanternedu/lantern/internal/vecindex"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP chat API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()
	logger.Info("starting lantern", "version", Version, "backend", cfg.VectorBackend)

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
	generator := genai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.ChatModel,
		genai.WithLogger(logger))

	searcher, err := buildSearcher(cfg, store, logger)
	if err != nil {
		return err
	}

	retriever := rag.NewRetriever(embedder, searcher, logger)
	assistant := rag.NewAssistant(retriever, generator, logger,
		rag.WithTopK(cfg.RetrievalTopK),
		rag.WithContextBudget(cfg.ContextBudget),
	)

	server, err := api.NewServer(assistant, store, logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	return server.Run(ctx, cfg.ListenAddr)
}

// buildSearcher picks the similarity backend: the document store itself, or
// the external index with store hydration.
func buildSearcher(cfg *config.Config, store *knowledge.Store, logger *slog.Logger) (rag.Searcher, error) {
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		index := vecindex.NewQdrantClient(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection,
			vecindex.WithLogger(logger))
		return rag.NewIndexSearcher(index, store, logger), nil
	case config.BackendPostgres, "":
		return rag.NewStoreSearcher(store), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}
