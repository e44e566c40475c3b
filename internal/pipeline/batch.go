package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/threadcount/internal/model"
	"golang.org/x/sync/errgroup"
)

// Factory builds the pipeline of a site. It is called once per site so
// that no pipeline state is shared between sites.
type Factory func(site string) (*Pipeline, error)

// BatchProcessor handles concurrent processing of multiple sites.
// It uses errgroup to manage goroutines and respect concurrency limits.
type BatchProcessor struct {
	// factory creates a new pipeline for each site.
	factory Factory

	// concurrency is the maximum number of sites processed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent sites.
// Default is 3 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: 3,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch runs the pipelines of all sites and returns their runs in
// the order of sites. A failing site does not stop the others; its error
// is recorded on its run. Sites not started before ctx was cancelled get
// an interrupted run without threads.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sites []string) ([]*model.Run, error) {
	runs := make([]*model.Run, len(sites))
	var mu sync.Mutex

	err := bp.ProcessBatchWithCallback(ctx, sites, func(run *model.Run, index int) {
		mu.Lock()
		runs[index] = run
		mu.Unlock()
	})
	return runs, err
}

// ProcessBatchWithCallback runs the pipelines of all sites and calls
// callback for each finished run with the index of its site.
//
// The callback is called from the goroutine that processed the site, so it
// must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sites []string,
	callback func(run *model.Run, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_sites", len(sites),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, site := range sites {
		g.Go(func() error {
			run := model.NewRun(site)

			if ctx.Err() != nil {
				run.Interrupted = true
				run.FinishedAt = run.StartedAt
				callback(run, i)
				return nil
			}

			bp.logger.Info("scraping site",
				"site", site,
				"index", i+1,
				"total", len(sites),
			)

			p, err := bp.factory(site)
			if err != nil {
				run.SetError(err)
				run.FinishedAt = time.Now()
				bp.logger.Error("failed to set up site", "site", site, "error", err)
				callback(run, i)
				return nil
			}

			if err := p.Execute(ctx, run); err != nil {
				bp.logger.Warn("site failed",
					"site", site,
					"error", err,
				)
			} else {
				bp.logger.Info("site completed", "site", site)
			}

			callback(run, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_sites", len(sites),
		"elapsed", time.Since(startTime),
	)
	return err
}
