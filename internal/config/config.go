package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/devscan/internal/model"
)

// Default configuration values.
// Scan-level defaults live in the model package so that the HTTP API and the
// CLI share them; the values here only concern the command-line tool.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "devscan"

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = model.DefaultRequestTimeout

	// DefaultScanBudget is the wall-clock budget of one scan.
	DefaultScanBudget = model.DefaultScanBudget

	// DefaultCrawlDepth is the maximum link distance from the start URL.
	DefaultCrawlDepth = model.DefaultMaxDepth

	// DefaultMaxPages is the maximum number of pages fetched per target.
	DefaultMaxPages = model.DefaultMaxPages

	// DefaultBatchSize of 3 concurrent scans keeps the combined request rate
	// against shared infrastructure modest.
	DefaultBatchSize = 3

	// DefaultListenAddress is where `devscan serve` listens.
	DefaultListenAddress = "127.0.0.1:5000"
)

// Config holds all configuration options for DevScan.
// This struct is populated from CLI flags and the optional config file and
// passed through the application rather than kept in global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The number of options is manageable, and nesting would add
// complexity without significant benefit.
type Config struct {
	// Timeout bounds each HTTP request including its redirects.
	Timeout time.Duration

	// ScanBudget is the global time budget of one scan. 0 disables it.
	ScanBudget time.Duration

	// CrawlDepth is the maximum link distance from the start URL.
	// Depth 0 means only fetch the start page.
	CrawlDepth int

	// MaxPages is the maximum number of pages fetched per target.
	MaxPages int

	// CrossOrigin allows the crawl to leave the start URL's origin.
	CrossOrigin bool

	// FollowSubdomains widens the scope to the registrable domain of the start URL.
	FollowSubdomains bool

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// RateLimit is the maximum requests per second per host. 0 disables it.
	RateLimit int

	// ProbeBudget is the number of canary requests allowed per page.
	// 0 disables active probing.
	ProbeBudget int

	// ProbeWorkers is the number of concurrent canary requests per page.
	ProbeWorkers int

	// DiscoverWellKnown seeds /robots.txt and /sitemap.xml into each crawl.
	DiscoverWellKnown bool

	// ProxyAddress is an optional SOCKS5 upstream in host:port form.
	ProxyAddress string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of concurrent scans when several targets are given.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches the current directory, the home directory,
	// and the XDG config directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable format.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// Targets is the list of start URLs to scan.
	Targets []string

	// ListenAddress is the host:port the HTTP API binds to.
	ListenAddress string

	// JSONLogs switches log output to JSON lines.
	JSONLogs bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (timeouts, limits).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		ScanBudget:    DefaultScanBudget,
		CrawlDepth:    DefaultCrawlDepth,
		MaxPages:      DefaultMaxPages,
		UserAgent:     model.DefaultUserAgent,
		MaxBodySize:   model.DefaultMaxBodySize,
		RateLimit:     model.DefaultRateLimit,
		ProbeBudget:   model.DefaultProbeBudget,
		ProbeWorkers:  model.DefaultProbeWorkers,
		BatchSize:     DefaultBatchSize,
		ListenAddress: DefaultListenAddress,
		SiteConfigs:   NewFile(),
	}
}

// XDGConfigDir returns the XDG config directory for DevScan.
// On Linux: ~/.config/devscan
// On macOS: ~/Library/Application Support/devscan
// On Windows: %APPDATA%\devscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGConfigFile returns the path of the config file in the XDG config directory.
func XDGConfigFile() string {
	return filepath.Join(XDGConfigDir(), "config.yaml")
}

// Validate checks the options shared by every command.
// It returns the first problem found as a sentinel error.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ScanBudget < 0 {
		return ErrInvalidScanBudget
	}
	if c.CrawlDepth < 0 {
		return ErrInvalidCrawlDepth
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.ProbeBudget < 0 || c.ProbeWorkers <= 0 {
		return ErrInvalidProbeLimits
	}
	return nil
}

// ValidateScan checks the options of the scan command.
func (c *Config) ValidateScan() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.Validate()
}

// ScanOptions builds the scan options for one target, applying the
// site-specific configuration for the target's host on top of the flags.
func (c *Config) ScanOptions(target string) model.ScanOptions {
	site := c.SiteFor(target)

	opts := model.ScanOptions{
		MaxPages:          c.MaxPages,
		MaxDepth:          c.CrawlDepth,
		RequestTimeout:    c.Timeout,
		ScanBudget:        c.ScanBudget,
		SameOriginOnly:    !c.CrossOrigin,
		FollowSubdomains:  c.FollowSubdomains,
		UserAgent:         c.UserAgent,
		MaxBodySize:       c.MaxBodySize,
		RateLimit:         c.RateLimit,
		ProbeBudget:       c.ProbeBudget,
		ProbeWorkers:      c.ProbeWorkers,
		DiscoverWellKnown: c.DiscoverWellKnown,
		ProxyAddress:      c.ProxyAddress,
		Cookie:            site.Cookie,
		Headers:           site.Headers,
		IgnorePatterns:    site.IgnorePatterns,
		FollowPatterns:    site.FollowPatterns,
	}

	if site.Depth > 0 {
		opts.MaxDepth = site.Depth
	}
	if site.MaxPages > 0 {
		opts.MaxPages = site.MaxPages
	}

	return opts
}

// SiteFor returns the merged site configuration for the host of target.
// Targets that cannot be parsed get the defaults.
func (c *Config) SiteFor(target string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(hostOf(target))
}

// hostOf extracts the lowercase host (with port) from a URL or bare host.
func hostOf(target string) string {
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
