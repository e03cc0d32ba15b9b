package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/devscan/internal/model"
	"github.com/nao1215/devscan/internal/probe"
)

// Fetcher retrieves one page. *fetcher.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*model.FetchResult, error)
}

// Prober runs the vulnerability checks for one fetched page.
// *probe.Engine satisfies it.
type Prober interface {
	RunAll(ctx context.Context, target probe.Target) []model.Finding
}

// Recorder receives the per-page outcome of the crawl.
// *report.Aggregator satisfies it. An error from Recorder aborts the crawl.
type Recorder interface {
	Record(pageURL string, findings []model.Finding) error
	RecordError(pageURL string, err error) error
}

// PageObserver is called after every fetch attempt, successful or not.
type PageObserver func(entry model.FrontierEntry, page *model.FetchResult, err error)

// Well-known discovery paths.
const (
	robotsPath  = "/robots.txt"
	sitemapPath = "/sitemap.xml"
)

// Result is the terminal outcome of a crawl.
type Result struct {
	// State is one of the terminal crawl states.
	State model.CrawlState

	// Reason explains why the crawl stopped.
	Reason string

	// PagesScanned counts every URL whose fetch was attempted.
	PagesScanned int
}

// Spider crawls a site breadth-first, probing every page it fetches.
// It is a state machine: Idle, then Running, then exactly one of
// Completed, BudgetExhausted or Aborted.
//
// Design decision: The crawl loop is sequential because:
//  1. The frontier and visited set need no locking when one loop owns them
//  2. Politeness toward the target is easier to reason about
//  3. Parallelism inside a page (canary requests) is bounded by the probes
type Spider struct {
	fetcher  Fetcher
	prober   Prober
	recorder Recorder
	observer PageObserver
	logger   *slog.Logger

	// maxDepth limits how deep to crawl from the starting URL.
	// 0 means only the starting page, 1 means one level of links, etc.
	maxDepth int

	// maxPages limits the number of fetch attempts.
	maxPages int

	// deadline ends the crawl cooperatively. Zero means no time budget.
	deadline time.Time

	sameOriginOnly    bool
	followSubdomains  bool
	discoverWellKnown bool
	ignorePatterns    []string
	followPatterns    []string

	// now is the clock used for deadline checks.
	now func() time.Time

	state model.CrawlState
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to fetch.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDeadline sets the global time budget deadline.
func WithDeadline(deadline time.Time) SpiderOption {
	return func(s *Spider) {
		s.deadline = deadline
	}
}

// WithScope sets the crawl scope flags.
func WithScope(sameOriginOnly, followSubdomains bool) SpiderOption {
	return func(s *Spider) {
		s.sameOriginOnly = sameOriginOnly
		s.followSubdomains = followSubdomains
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithDiscoverWellKnown seeds /robots.txt and /sitemap.xml at depth 1.
func WithDiscoverWellKnown(enabled bool) SpiderOption {
	return func(s *Spider) {
		s.discoverWellKnown = enabled
	}
}

// WithProber sets the probe runner. Without one, pages are recorded with
// no findings.
func WithProber(p Prober) SpiderOption {
	return func(s *Spider) {
		s.prober = p
	}
}

// WithPageObserver registers a callback for every fetch attempt.
func WithPageObserver(fn PageObserver) SpiderOption {
	return func(s *Spider) {
		s.observer = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithClock replaces the clock used for deadline checks.
func WithClock(now func() time.Time) SpiderOption {
	return func(s *Spider) {
		s.now = now
	}
}

// NewSpider creates a Spider that fetches through f and reports to rec.
//
// Design decision: We require an external fetcher because:
//  1. Timeouts, rate limiting and proxies are the fetcher's concern
//  2. Tests can drive the state machine with a fake
func NewSpider(f Fetcher, rec Recorder, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:        f,
		recorder:       rec,
		maxDepth:       model.DefaultMaxDepth,
		maxPages:       model.DefaultMaxPages,
		sameOriginOnly: true,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:            time.Now,
		state:          model.CrawlIdle,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewSpiderFromOptions creates a Spider configured from scan options.
func NewSpiderFromOptions(f Fetcher, rec Recorder, opts model.ScanOptions, extra ...SpiderOption) *Spider {
	base := []SpiderOption{
		WithMaxDepth(opts.MaxDepth),
		WithMaxPages(opts.MaxPages),
		WithScope(opts.SameOriginOnly, opts.FollowSubdomains),
		WithIgnorePatterns(opts.IgnorePatterns),
		WithFollowPatterns(opts.FollowPatterns),
		WithDiscoverWellKnown(opts.DiscoverWellKnown),
	}
	return NewSpider(f, rec, append(base, extra...)...)
}

// State returns the current crawl state.
func (s *Spider) State() model.CrawlState {
	return s.state
}

// Crawl runs the crawl from startURL until the frontier empties, a budget
// runs out, or ctx is cancelled. Fetch failures are recorded and do not
// stop the crawl. The returned error is non-nil only when the Recorder
// rejects a result or the start URL cannot be queued.
func (s *Spider) Crawl(ctx context.Context, startURL string) (*Result, error) {
	if s.state != model.CrawlIdle {
		return nil, fmt.Errorf("crawl already started (state %s)", s.state)
	}

	frontier, err := NewFrontier(startURL,
		WithFrontierMaxDepth(s.maxDepth),
		WithSameOriginOnly(s.sameOriginOnly),
		WithSubdomains(s.followSubdomains),
		WithFrontierPatterns(s.ignorePatterns, s.followPatterns),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}
	frontier.Seed(startURL)
	if s.discoverWellKnown {
		for _, path := range []string{robotsPath, sitemapPath} {
			if ref, err := url.Parse(path); err == nil {
				if start, err := url.Parse(startURL); err == nil {
					frontier.Enqueue(start.ResolveReference(ref).String(), 1)
				}
			}
		}
	}

	s.state = model.CrawlRunning
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			return s.finish(model.CrawlAborted, fmt.Sprintf("scan cancelled: %v", err), pages), nil
		}
		if s.maxPages > 0 && pages >= s.maxPages {
			return s.finish(model.CrawlBudgetExhausted, fmt.Sprintf("page limit of %d reached", s.maxPages), pages), nil
		}
		if !s.deadline.IsZero() && !s.now().Before(s.deadline) {
			return s.finish(model.CrawlBudgetExhausted, "time budget exhausted", pages), nil
		}

		entry, ok := frontier.Dequeue()
		if !ok {
			return s.finish(model.CrawlCompleted, "no more URLs to crawl", pages), nil
		}

		page, fetchErr := s.fetcher.Fetch(ctx, entry.URL)
		if fetchErr != nil && ctx.Err() != nil {
			// The fetch was interrupted by the caller, not by the target.
			return s.finish(model.CrawlAborted, fmt.Sprintf("scan cancelled: %v", ctx.Err()), pages), nil
		}
		pages++

		if s.observer != nil {
			s.observer(entry, page, fetchErr)
		}

		if fetchErr != nil {
			s.logger.Debug("fetch failed", "url", entry.URL, "error", fetchErr)
			if err := s.recorder.RecordError(entry.URL, fetchErr); err != nil {
				return nil, fmt.Errorf("record error for %s: %w", entry.URL, err)
			}
			continue
		}

		frontier.MarkVisited(page.URL)

		// A redirect may land outside the scope. That page is only
		// inspected as received: its links and forms are not followed.
		inScope := frontier.InScope(page.URL)
		var forms []model.Form
		if inScope {
			forms = s.expand(frontier, entry, page)
		} else {
			s.logger.Debug("redirected out of scope", "url", entry.URL, "final", page.URL)
		}

		findings := []model.Finding{}
		if s.prober != nil {
			findings = s.prober.RunAll(ctx, probe.Target{
				Page:       page,
				Forms:      forms,
				OriginForm: entry.OriginForm,
				Deadline:   s.deadline,
				Passive:    !inScope,
			})
		}

		s.logger.Debug("page scanned", "url", entry.URL, "status", page.Status, "findings", len(findings))
		if err := s.recorder.Record(entry.URL, findings); err != nil {
			return nil, fmt.Errorf("record findings for %s: %w", entry.URL, err)
		}
	}
}

// expand extracts links from the page into the frontier and returns the
// page's forms for probing.
func (s *Spider) expand(frontier *Frontier, entry model.FrontierEntry, page *model.FetchResult) []model.Form {
	var (
		links []string
		forms []model.Form
	)

	switch {
	case isWellKnown(page.URL, robotsPath):
		links = ExtractRobots(page.Body, page.URL)
	case isWellKnown(page.URL, sitemapPath) || (strings.HasSuffix(page.MediaType(), "xml") && !page.IsHTML()):
		links = ExtractSitemap(page.Body, page.URL)
	case page.IsHTML():
		result := Extract(page.Body, page.URL)
		links = result.Links
		forms = result.Forms
	}

	next := entry.Depth + 1
	for _, link := range links {
		frontier.Enqueue(link, next)
	}
	for i := range forms {
		if forms[i].Method != model.MethodGet {
			continue
		}
		form := forms[i]
		frontier.EnqueueEntry(model.FrontierEntry{
			URL:        form.SubmissionURL(),
			Depth:      next,
			OriginForm: &form,
		})
	}

	return forms
}

// finish moves the spider into a terminal state.
func (s *Spider) finish(state model.CrawlState, reason string, pages int) *Result {
	s.state = state
	s.logger.Debug("crawl finished", "state", state.String(), "reason", reason, "pages", pages)
	return &Result{State: state, Reason: reason, PagesScanned: pages}
}

// isWellKnown reports whether rawURL's path is exactly path.
func isWellKnown(rawURL, path string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Path == path
}
