package scan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/devscan/internal/crawler"
	"github.com/nao1215/devscan/internal/fetcher"
	"github.com/nao1215/devscan/internal/model"
	"github.com/nao1215/devscan/internal/probe"
	"github.com/nao1215/devscan/internal/report"
)

// Client fetches pages for the crawler and sends canary requests for the
// probes. *fetcher.Fetcher satisfies it.
type Client interface {
	crawler.Fetcher
	probe.Requester
}

// ClientFactory builds the HTTP client for one scan.
type ClientFactory func(opts model.ScanOptions, logger *slog.Logger) (Client, error)

// Observer receives scan telemetry. *metrics.Recorder satisfies it.
type Observer interface {
	PageFetched(elapsed time.Duration, err error)
	ProbeFailed(name string, err error)
	ScanFinished(report *model.Report, err error)
}

// Orchestrator runs scans. It is stateless between scans and safe for
// concurrent use; every Run builds its own fetcher, frontier, and aggregator.
//
// Design decision: Run is the single entry point shared by the CLI and the
// HTTP server because:
//  1. Input validation happens once, before any network I/O
//  2. Panics and aggregator misuse are converted to ScanError in one place
//  3. Telemetry sees every scan regardless of the caller
type Orchestrator struct {
	logger    *slog.Logger
	observer  Observer
	newClient ClientFactory
	newID     func() string
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Each scan logs with scan_id and start_url attached.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver sets the telemetry sink.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// WithClientFactory replaces how the HTTP client is built.
func WithClientFactory(f ClientFactory) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.newClient = f
		}
	}
}

// WithIDGenerator replaces the scan ID generator.
func WithIDGenerator(f func() string) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.newID = f
		}
	}
}

// WithClock replaces the clock used for the time budget.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an Orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		newClient: defaultClient,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func defaultClient(opts model.ScanOptions, logger *slog.Logger) (Client, error) {
	return fetcher.NewFromOptions(opts, logger)
}

// Run scans req.StartURL and returns the report.
//
// The only errors returned are *model.ScanError: an input error before any
// request is sent, or an internal error in which case no partial report is
// returned. Fetch and probe failures are part of the report instead.
func (o *Orchestrator) Run(ctx context.Context, req model.ScanRequest) (rep *model.Report, err error) {
	defer func() {
		if o.observer != nil {
			o.observer.ScanFinished(rep, err)
		}
	}()

	startURL, err := ValidateStartURL(req.StartURL)
	if err != nil {
		return nil, err
	}
	opts := req.Options.WithDefaults()
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	scanID := o.newID()
	logger := o.logger.With("scan_id", scanID, "start_url", startURL)

	client, err := o.newClient(opts, logger)
	if err != nil {
		return nil, model.NewInvalidURLError(fmt.Sprintf("invalid scan options: %v", err))
	}

	agg := report.NewAggregator(startURL, report.WithScanID(scanID), report.WithAggregatorClock(o.now))

	var deadline time.Time
	if opts.ScanBudget > 0 {
		deadline = o.now().Add(opts.ScanBudget)
	}

	engineOpts := []probe.EngineOption{probe.WithEngineLogger(logger)}
	spiderOpts := []crawler.SpiderOption{
		crawler.WithDeadline(deadline),
		crawler.WithLogger(logger),
		crawler.WithClock(o.now),
	}
	if o.observer != nil {
		engineOpts = append(engineOpts, probe.WithErrorHook(o.observer.ProbeFailed))
		spiderOpts = append(spiderOpts, crawler.WithPageObserver(o.pageObserver))
	}
	engine := probe.NewDefaultEngine(client, opts, engineOpts...)
	spiderOpts = append(spiderOpts, crawler.WithProber(engine))
	spider := crawler.NewSpiderFromOptions(client, agg, opts, spiderOpts...)

	logger.Info("scan started", "max_pages", opts.MaxPages, "max_depth", opts.MaxDepth, "budget", opts.ScanBudget)

	result, err := crawl(ctx, spider, startURL)
	if err != nil {
		logger.Error("scan failed", "error", err)
		return nil, model.NewInternalError(err)
	}

	rep, err = agg.Finalize()
	if err != nil {
		logger.Error("failed to finalize report", "error", err)
		return nil, model.NewInternalError(fmt.Errorf("finalize report: %w", err))
	}
	rep.Outcome = result.State
	rep.PagesScanned = result.PagesScanned

	logger.Info("scan finished",
		"outcome", result.State,
		"reason", result.Reason,
		"pages", rep.PagesScanned,
		"findings", rep.TotalFindings(),
		"errors", len(rep.Errors),
		"duration", rep.Duration,
	)
	return rep, nil
}

// crawl runs the spider and converts a panic into an error.
func crawl(ctx context.Context, spider *crawler.Spider, startURL string) (result *crawler.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during crawl: %v\n%s", r, debug.Stack())
		}
	}()
	return spider.Crawl(ctx, startURL)
}

func (o *Orchestrator) pageObserver(_ model.FrontierEntry, page *model.FetchResult, err error) {
	var elapsed time.Duration
	if page != nil {
		elapsed = page.Elapsed
	}
	o.observer.PageFetched(elapsed, err)
}

// ValidateStartURL checks that raw is an absolute http(s) URL with a host
// and returns its normalized form. Failures are input errors.
func ValidateStartURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", model.NewInvalidURLError("No URL provided")
	}

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", model.NewInvalidURLError("URL must start with http:// or https://")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", model.NewInvalidURLError(fmt.Sprintf("invalid URL: %v", err))
	}
	if u.Hostname() == "" {
		return "", model.NewInvalidURLError("URL must include a host")
	}

	normalized, err := crawler.NormalizeURL(raw)
	if err != nil {
		return "", model.NewInvalidURLError(fmt.Sprintf("invalid URL: %v", err))
	}
	return normalized, nil
}

// validateOptions rejects option values WithDefaults cannot repair.
func validateOptions(opts model.ScanOptions) error {
	if opts.ScanBudget < 0 {
		return model.NewInvalidURLError("scan budget must not be negative")
	}
	if opts.RateLimit < 0 {
		return model.NewInvalidURLError("rate limit must not be negative")
	}
	for _, p := range slices.Concat(opts.IgnorePatterns, opts.FollowPatterns) {
		if _, err := path.Match(p, ""); err != nil {
			return model.NewInvalidURLError(fmt.Sprintf("invalid path pattern %q", p))
		}
	}
	return nil
}

