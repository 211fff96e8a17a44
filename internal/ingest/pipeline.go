// Package ingest turns a directory of text files into stored, embedded
// documents.
//
// The pipeline is idempotent: a file's title (its name without extension) is
// the uniqueness key, and files whose title already exists are skipped without
// calling the embedding provider. Re-running ingestion over an unchanged
// directory is therefore safe and cheap.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lanternedu/lantern/internal/knowledge"
)

// Defaults for batching. Batches exist to respect the embedding provider's
// rate limits, not for throughput.
const (
	DefaultBatchSize  = 5
	DefaultBatchDelay = time.Second
)

// supportedExtensions are the file types the pipeline ingests.
var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Store is the persistence surface the pipeline needs.
// *knowledge.Store satisfies this.
type Store interface {
	FindByTitle(ctx context.Context, title string) (*knowledge.Document, error)
	Save(ctx context.Context, doc knowledge.Document) (knowledge.Document, error)
}

// Embedder turns text into a vector. *embedding.Client satisfies this.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// FileError records one file's failure.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

// Summary is the pipeline's primary observable output. There is no rollback;
// partially ingested runs are expected and re-runnable.
type Summary struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Errors    []FileError
}

// Pipeline ingests source files in rate-limited concurrent batches.
type Pipeline struct {
	dir       string
	store     Store
	embedder  Embedder
	batchSize int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New creates a Pipeline over dir. batchSize <= 0 and delay <= 0 select the
// defaults.
func New(dir string, store Store, embedder Embedder, batchSize int, delay time.Duration, logger *slog.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if delay <= 0 {
		delay = DefaultBatchDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		dir:       dir,
		store:     store,
		embedder:  embedder,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		logger:    logger,
	}
}

// Run executes one ingestion pass and returns the per-file summary.
//
// A missing documents directory is created and yields a zero-file summary,
// keeping first-run bootstrap non-fatal. Individual file failures are
// recorded and never abort the batch or the run.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	files, err := p.discover()
	if err != nil {
		return nil, err
	}

	summary := &Summary{Total: len(files)}
	if len(files) == 0 {
		p.logger.Info("no documents to ingest", "dir", p.dir)
		return summary, nil
	}

	var mu sync.Mutex
	record := func(file string, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			summary.Succeeded++
		case errors.Is(err, errSkipped):
			summary.Skipped++
		default:
			summary.Failed++
			summary.Errors = append(summary.Errors, FileError{File: file, Err: err})
		}
	}

	for start := 0; start < len(files); start += p.batchSize {
		// Pace batches; the first wait is satisfied by the initial token.
		if err := p.limiter.Wait(ctx); err != nil {
			return summary, fmt.Errorf("waiting between batches: %w", err)
		}

		end := min(start+p.batchSize, len(files))

		g, batchCtx := errgroup.WithContext(ctx)
		g.SetLimit(p.batchSize)
		for _, file := range files[start:end] {
			g.Go(func() error {
				err := p.processFile(batchCtx, file)
				record(file, err)
				// One file's failure never cancels its siblings.
				return nil
			})
		}
		_ = g.Wait()
	}

	p.logger.Info("ingestion complete",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	return summary, nil
}

// errSkipped marks a file already ingested. Internal to the pipeline; the
// summary exposes it only as a count.
var errSkipped = errors.New("already ingested")

// discover lists ingestible files in the documents directory, creating the
// directory on first run.
func (p *Pipeline) discover() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(p.dir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("creating documents directory: %w", mkErr)
			}
			p.logger.Info("created documents directory", "dir", p.dir)
			return nil, nil
		}
		return nil, fmt.Errorf("reading documents directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, entry.Name())
	}
	return files, nil
}

// processFile ingests a single file: idempotency check, embed, persist.
func (p *Pipeline) processFile(ctx context.Context, file string) error {
	title := strings.TrimSuffix(file, filepath.Ext(file))

	_, err := p.store.FindByTitle(ctx, title)
	switch {
	case err == nil:
		p.logger.Debug("skipping existing document", "title", title)
		return errSkipped
	case !errors.Is(err, knowledge.ErrNotFound):
		return fmt.Errorf("checking for existing document: %w", err)
	}

	content, err := os.ReadFile(filepath.Join(p.dir, file))
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	if len(content) == 0 {
		return fmt.Errorf("file is empty")
	}

	vec, err := p.embedder.Embed(ctx, string(content))
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}

	_, err = p.store.Save(ctx, knowledge.Document{
		Title:     title,
		Content:   string(content),
		Embedding: vec,
		Source:    file,
		Metadata: map[string]string{
			"ingested_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		// Another worker won the race for this title: already ingested.
		if errors.Is(err, knowledge.ErrDuplicateTitle) {
			return errSkipped
		}
		return fmt.Errorf("saving: %w", err)
	}

	p.logger.Debug("ingested document", "title", title, "bytes", len(content))
	return nil
}
