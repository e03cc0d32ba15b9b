package scan

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/devscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency is the number of scans a Batch runs at once.
const DefaultBatchConcurrency = 4

// Runner runs one scan. *Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req model.ScanRequest) (*model.Report, error)
}

// BatchResult is the outcome of one scan in a batch. Exactly one of
// Report and Err is set.
type BatchResult struct {
	Request model.ScanRequest
	Report  *model.Report
	Err     error
}

// Batch runs several scans with bounded concurrency.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// A failed scan never cancels its siblings.
type Batch struct {
	runner      Runner
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithConcurrency sets the maximum number of concurrent scans.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchLogger sets the logger for batch-level progress.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *Batch) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBatch creates a Batch that runs scans through runner.
func NewBatch(runner Runner, opts ...BatchOption) *Batch {
	b := &Batch{
		runner:      runner,
		concurrency: DefaultBatchConcurrency,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run scans every request and returns results in request order. Scans not
// started before ctx is cancelled report ctx's error.
func (b *Batch) Run(ctx context.Context, reqs []model.ScanRequest) []BatchResult {
	return b.RunWithCallback(ctx, reqs, nil)
}

// RunWithCallback is Run with a callback invoked as each scan finishes.
// The callback runs on the scan's goroutine and must be safe for
// concurrent use.
func (b *Batch) RunWithCallback(ctx context.Context, reqs []model.ScanRequest, callback func(index int, result BatchResult)) []BatchResult {
	b.logger.Info("starting batch", "total", len(reqs), "concurrency", b.concurrency)
	start := time.Now()

	results := make([]BatchResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			result := BatchResult{Request: req}
			if err := ctx.Err(); err != nil {
				result.Err = err
			} else {
				result.Report, result.Err = b.runner.Run(ctx, req)
			}

			if result.Err != nil {
				b.logger.Warn("scan failed", "url", req.StartURL, "index", i+1, "error", result.Err)
			} else {
				b.logger.Info("scan completed", "url", req.StartURL, "index", i+1, "pages", result.Report.PagesScanned)
			}

			// Each goroutine writes its own index.
			results[i] = result
			if callback != nil {
				callback(i, result)
			}
			return nil
		})
	}
	_ = g.Wait()

	b.logger.Info("batch complete", "total", len(reqs), "elapsed", time.Since(start))
	return results
}
