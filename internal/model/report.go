package model

import (
	"slices"
	"time"
)

// CrawlState is the lifecycle state of a crawl.
type CrawlState int

const (
	// CrawlIdle is the state before the first fetch.
	CrawlIdle CrawlState = iota

	// CrawlRunning is the state while the frontier is being drained.
	CrawlRunning

	// CrawlCompleted means the frontier was exhausted.
	CrawlCompleted

	// CrawlBudgetExhausted means max pages or the time budget was reached.
	CrawlBudgetExhausted

	// CrawlAborted means the caller cancelled the scan.
	CrawlAborted
)

// String returns the state name.
func (s CrawlState) String() string {
	switch s {
	case CrawlIdle:
		return "idle"
	case CrawlRunning:
		return "running"
	case CrawlCompleted:
		return "completed"
	case CrawlBudgetExhausted:
		return "budget_exhausted"
	case CrawlAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its name.
func (s CrawlState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal reports whether the crawl has stopped.
func (s CrawlState) IsTerminal() bool {
	return s == CrawlCompleted || s == CrawlBudgetExhausted || s == CrawlAborted
}

// ErrorEntry records a URL whose fetch failed.
type ErrorEntry struct {
	// URL is the URL that could not be fetched.
	URL string `json:"url"`

	// Kind is the error class, e.g. "timeout" or "connection_refused".
	Kind string `json:"kind"`

	// Message is the human-readable error text.
	Message string `json:"error"`
}

// Report is the outcome of one scan. It is read-only once returned.
type Report struct {
	// ScanID uniquely identifies the scan in logs and metrics.
	ScanID string `json:"scan_id"`

	// StartURL is the normalized start URL.
	StartURL string `json:"start_url"`

	// PagesScanned counts URLs for which a fetch was attempted.
	PagesScanned int `json:"pages_scanned"`

	// Vulnerabilities maps every successfully fetched URL to its findings.
	// A page without findings maps to an empty, non-nil slice.
	Vulnerabilities map[string][]Finding `json:"vulnerabilities"`

	// Errors lists failed fetches in the order they happened.
	Errors []ErrorEntry `json:"errors"`

	// Outcome is the terminal crawl state.
	Outcome CrawlState `json:"outcome"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock time of the scan.
	Duration time.Duration `json:"duration"`
}

// URLs returns the keys of Vulnerabilities in lexical order.
func (r *Report) URLs() []string {
	urls := make([]string, 0, len(r.Vulnerabilities))
	for u := range r.Vulnerabilities {
		urls = append(urls, u)
	}
	slices.Sort(urls)
	return urls
}

// TotalFindings returns the number of findings across all pages.
func (r *Report) TotalFindings() int {
	total := 0
	for _, findings := range r.Vulnerabilities {
		total += len(findings)
	}
	return total
}

// HasFindings reports whether any page has at least one finding.
func (r *Report) HasFindings() bool {
	return r.TotalFindings() > 0
}

// CountBySeverity returns the number of findings with the given severity.
func (r *Report) CountBySeverity(s Severity) int {
	count := 0
	for _, findings := range r.Vulnerabilities {
		for _, f := range findings {
			if f.Severity == s {
				count++
			}
		}
	}
	return count
}

// CountByKind returns the number of findings of the given kind.
func (r *Report) CountByKind(k VulnerabilityKind) int {
	count := 0
	for _, findings := range r.Vulnerabilities {
		for _, f := range findings {
			if f.Kind == k {
				count++
			}
		}
	}
	return count
}

// AffectedPages returns the URLs that have at least one finding, in lexical order.
func (r *Report) AffectedPages() []string {
	pages := make([]string, 0)
	for _, u := range r.URLs() {
		if len(r.Vulnerabilities[u]) > 0 {
			pages = append(pages, u)
		}
	}
	return pages
}
