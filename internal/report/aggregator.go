package report

import (
	"errors"
	"sync"
	"time"

	"github.com/nao1215/devscan/internal/model"
)

// ErrAlreadyFinalized is returned when an Aggregator is used after Finalize.
// It signals a programming error in the caller, not a scan failure.
var ErrAlreadyFinalized = errors.New("report already finalized")

// ErrEmptyURL is returned when a result is recorded without a URL.
var ErrEmptyURL = errors.New("cannot record result without URL")

// Aggregator collects per-page findings and fetch errors into a Report.
//
// Design decision: A single mutex guards all state because:
//  1. Probe workers may record concurrently with the crawl loop
//  2. Recording is cheap compared to the network I/O around it
//  3. Finalize must observe every earlier Record in order
type Aggregator struct {
	mu sync.Mutex

	startURL  string
	scanID    string
	startedAt time.Time
	now       func() time.Time

	pages           int
	vulnerabilities map[string][]model.Finding
	errors          []model.ErrorEntry
	finalized       bool
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithScanID sets the scan identifier copied into the report.
func WithScanID(id string) AggregatorOption {
	return func(a *Aggregator) {
		a.scanID = id
	}
}

// WithAggregatorClock replaces the clock used for StartedAt and Duration.
func WithAggregatorClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAggregator creates an empty Aggregator for a scan of startURL.
func NewAggregator(startURL string, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		startURL:        startURL,
		now:             time.Now,
		vulnerabilities: make(map[string][]model.Finding),
		errors:          make([]model.ErrorEntry, 0),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.startedAt = a.now()
	return a
}

// Record stores the findings of a successfully fetched page.
// A page without findings is stored with an empty slice, so it still
// appears in the report. Recording the same URL twice appends.
func (a *Aggregator) Record(url string, findings []model.Finding) error {
	if url == "" {
		return ErrEmptyURL
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return ErrAlreadyFinalized
	}

	existing, seen := a.vulnerabilities[url]
	if !seen {
		existing = make([]model.Finding, 0, len(findings))
		a.pages++
	}
	a.vulnerabilities[url] = append(existing, findings...)
	return nil
}

// RecordError stores a failed fetch. The error kind is taken from a
// *model.FetchError when err carries one.
func (a *Aggregator) RecordError(url string, err error) error {
	if url == "" {
		return ErrEmptyURL
	}

	entry := model.ErrorEntry{URL: url, Kind: "unknown"}
	if err != nil {
		entry.Message = err.Error()
		var fetchErr *model.FetchError
		if errors.As(err, &fetchErr) {
			entry.Kind = fetchErr.Kind.String()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return ErrAlreadyFinalized
	}

	a.errors = append(a.errors, entry)
	a.pages++
	return nil
}

// Finalize returns the assembled report. The Aggregator rejects every
// call after the first Finalize with ErrAlreadyFinalized.
func (a *Aggregator) Finalize() (*model.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return nil, ErrAlreadyFinalized
	}
	a.finalized = true

	return &model.Report{
		ScanID:          a.scanID,
		StartURL:        a.startURL,
		PagesScanned:    a.pages,
		Vulnerabilities: a.vulnerabilities,
		Errors:          a.errors,
		Outcome:         model.CrawlCompleted,
		StartedAt:       a.startedAt,
		Duration:        a.now().Sub(a.startedAt),
	}, nil
}
