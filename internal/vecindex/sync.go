package vecindex

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lanternedu/lantern/internal/knowledge"
)

// DefaultSyncBatchSize is the number of points per upsert request.
const DefaultSyncBatchSize = 100

// EmbeddingSource streams stored document vectors. *knowledge.Store
// satisfies this.
type EmbeddingSource interface {
	StreamEmbeddings(ctx context.Context, fn func(knowledge.DocumentVector) error) error
}

// Target is the write side of an external vector index. *QdrantClient
// satisfies this.
type Target interface {
	Recreate(ctx context.Context, dim int) error
	Upsert(ctx context.Context, points []Point) error
}

// SyncJob bulk-exports document vectors from the primary store into the
// external index. The export is one-way and DESTRUCTIVE: the target
// collection is recreated first, deleting whatever it held.
type SyncJob struct {
	source    EmbeddingSource
	target    Target
	dim       int
	batchSize int
	logger    *slog.Logger
}

// NewSyncJob creates a reindex job. batchSize <= 0 selects the default.
func NewSyncJob(source EmbeddingSource, target Target, dim, batchSize int, logger *slog.Logger) *SyncJob {
	if batchSize <= 0 {
		batchSize = DefaultSyncBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncJob{
		source:    source,
		target:    target,
		dim:       dim,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run recreates the target collection and streams every well-shaped vector
// into it in batches. Documents whose embedding length differs from the
// configured dimensionality are skipped, never upserted.
//
// Returns the number of vectors transferred. An upsert failure aborts the
// job; vectors already transferred stay in the index (it is a rebuildable
// cache, so partial state is acceptable and the job can simply be re-run).
func (j *SyncJob) Run(ctx context.Context) (int, error) {
	if err := j.target.Recreate(ctx, j.dim); err != nil {
		return 0, fmt.Errorf("preparing target collection: %w", err)
	}

	var (
		transferred int
		skipped     int
		batch       = make([]Point, 0, j.batchSize)
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := j.target.Upsert(ctx, batch); err != nil {
			return err
		}
		transferred += len(batch)
		batch = batch[:0]
		return nil
	}

	err := j.source.StreamEmbeddings(ctx, func(dv knowledge.DocumentVector) error {
		if len(dv.Embedding) != j.dim {
			skipped++
			j.logger.Warn("skipping document with malformed embedding",
				"id", dv.ID,
				"title", dv.Title,
				"got_dimension", len(dv.Embedding),
				"want_dimension", j.dim)
			return nil
		}

		batch = append(batch, Point{
			ID:     dv.ID,
			Vector: dv.Embedding,
			Payload: map[string]string{
				"title":  dv.Title,
				"source": dv.Source,
			},
		})

		if len(batch) >= j.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return transferred, fmt.Errorf("after %d vectors: %w", transferred, err)
	}

	// Final partial batch.
	if err := flush(); err != nil {
		return transferred, fmt.Errorf("after %d vectors: %w", transferred, err)
	}

	j.logger.Info("reindex complete", "transferred", transferred, "skipped", skipped)
	return transferred, nil
}
