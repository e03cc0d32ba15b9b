package model

import "time"

// Default scan option values.
const (
	// DefaultMaxPages bounds the number of pages fetched in one scan.
	DefaultMaxPages = 100

	// DefaultMaxDepth bounds the link distance from the start URL.
	DefaultMaxDepth = 5

	// DefaultRequestTimeout is the per-request timeout.
	DefaultRequestTimeout = 20 * time.Second

	// DefaultScanBudget is the global wall-clock budget of one scan.
	DefaultScanBudget = 2 * time.Minute

	// DefaultUserAgent identifies DevScan in HTTP requests so that operators
	// can find scanner traffic in their logs.
	DefaultUserAgent = "DevScan/1.0 (+https://github.com/nao1215/devscan)"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultRateLimit is the number of requests per second per host.
	DefaultRateLimit = 10

	// DefaultProbeBudget is the number of canary requests allowed per page.
	DefaultProbeBudget = 8

	// DefaultProbeWorkers is the number of concurrent canary requests per page.
	DefaultProbeWorkers = 4

	// MaxRedirects is the redirect limit of a single fetch.
	MaxRedirects = 5
)

// ScanOptions controls the scope and cost of one scan.
type ScanOptions struct {
	// MaxPages is the maximum number of fetch attempts in the crawl.
	MaxPages int `json:"max_pages"`

	// MaxDepth is the maximum link distance from the start URL.
	// 0 means only the start URL is fetched.
	MaxDepth int `json:"max_depth"`

	// RequestTimeout bounds each individual HTTP request.
	RequestTimeout time.Duration `json:"request_timeout"`

	// ScanBudget is the global time budget. Zero disables it.
	ScanBudget time.Duration `json:"scan_budget"`

	// SameOriginOnly restricts the crawl to the start URL's scheme, host, and port.
	SameOriginOnly bool `json:"same_origin_only"`

	// FollowSubdomains widens the scope to every host sharing the start URL's
	// registrable domain. It only has effect when SameOriginOnly is true.
	FollowSubdomains bool `json:"follow_subdomains"`

	// UserAgent is sent with every request.
	UserAgent string `json:"user_agent"`

	// MaxBodySize is the maximum number of body bytes read per response.
	MaxBodySize int64 `json:"max_body_size"`

	// RateLimit is the maximum requests per second per host. 0 disables it.
	RateLimit int `json:"rate_limit"`

	// ProbeBudget is the number of canary requests allowed per page.
	ProbeBudget int `json:"probe_budget"`

	// ProbeWorkers is the number of concurrent canary requests per page.
	ProbeWorkers int `json:"probe_workers"`

	// IgnorePatterns are URL path globs that are never crawled.
	IgnorePatterns []string `json:"ignore_patterns,omitempty"`

	// FollowPatterns, when set, restrict crawling to matching URL paths.
	FollowPatterns []string `json:"follow_patterns,omitempty"`

	// Headers are extra request headers sent with every request.
	Headers map[string]string `json:"-"`

	// Cookie is a raw Cookie header sent with every request.
	Cookie string `json:"-"`

	// DiscoverWellKnown seeds /robots.txt and /sitemap.xml into the crawl.
	DiscoverWellKnown bool `json:"discover_well_known"`

	// ProxyAddress is an optional SOCKS5 upstream in host:port form.
	ProxyAddress string `json:"proxy_address,omitempty"`
}

// DefaultScanOptions returns options with every field set to its default.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		MaxPages:       DefaultMaxPages,
		MaxDepth:       DefaultMaxDepth,
		RequestTimeout: DefaultRequestTimeout,
		ScanBudget:     DefaultScanBudget,
		SameOriginOnly: true,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		RateLimit:      DefaultRateLimit,
		ProbeBudget:    DefaultProbeBudget,
		ProbeWorkers:   DefaultProbeWorkers,
	}
}

// WithDefaults returns a copy of the options with zero-valued limits
// replaced by their defaults. Boolean fields are left as they are.
func (o ScanOptions) WithDefaults() ScanOptions {
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.MaxDepth < 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.MaxBodySize <= 0 {
		o.MaxBodySize = DefaultMaxBodySize
	}
	if o.ProbeBudget < 0 {
		o.ProbeBudget = DefaultProbeBudget
	}
	if o.ProbeWorkers <= 0 {
		o.ProbeWorkers = DefaultProbeWorkers
	}
	return o
}

// ScanRequest is the immutable input of one scan.
type ScanRequest struct {
	// StartURL is the absolute http(s) URL where crawling begins.
	StartURL string `json:"url"`

	// Options controls scope and cost.
	Options ScanOptions `json:"options"`
}

// NewScanRequest creates a request for the given URL with default options.
func NewScanRequest(startURL string) ScanRequest {
	return ScanRequest{
		StartURL: startURL,
		Options:  DefaultScanOptions(),
	}
}
