package crawler

import (
	"errors"
	"net"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/devscan/internal/model"
)

// ErrUnsupportedScheme is returned by NormalizeURL for non-http(s) URLs.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// Frontier is the breadth-first queue of URLs waiting to be fetched,
// together with the set of URLs already seen. It is owned by a single
// crawl loop and is not safe for concurrent use.
//
// A URL is marked visited when it is enqueued, so the same page is never
// queued twice no matter how many pages link to it.
type Frontier struct {
	// origin is the normalized host[:port] of the start URL.
	origin string

	// site is the registrable domain of the start URL (eTLD+1).
	site string

	maxDepth         int
	sameOriginOnly   bool
	followSubdomains bool
	ignorePatterns   []string
	followPatterns   []string

	queue   []model.FrontierEntry
	visited map[string]bool
}

// FrontierOption configures a Frontier.
type FrontierOption func(*Frontier)

// WithFrontierMaxDepth sets the deepest link distance that may be queued.
func WithFrontierMaxDepth(depth int) FrontierOption {
	return func(f *Frontier) {
		f.maxDepth = depth
	}
}

// WithSameOriginOnly restricts the crawl to the start URL's host.
func WithSameOriginOnly(enabled bool) FrontierOption {
	return func(f *Frontier) {
		f.sameOriginOnly = enabled
	}
}

// WithSubdomains widens the scope to every host under the start URL's
// registrable domain (app.example.com also admits api.example.com).
func WithSubdomains(enabled bool) FrontierOption {
	return func(f *Frontier) {
		f.followSubdomains = enabled
	}
}

// WithFrontierPatterns sets the ignore and follow path globs.
func WithFrontierPatterns(ignore, follow []string) FrontierOption {
	return func(f *Frontier) {
		f.ignorePatterns = ignore
		f.followPatterns = follow
	}
}

// NewFrontier creates an empty frontier scoped to startURL.
func NewFrontier(startURL string, opts ...FrontierOption) (*Frontier, error) {
	normalized, err := NormalizeURL(startURL)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, err
	}

	f := &Frontier{
		origin:         u.Host,
		site:           registrableDomain(u.Hostname()),
		maxDepth:       model.DefaultMaxDepth,
		sameOriginOnly: true,
		queue:          make([]model.FrontierEntry, 0),
		visited:        make(map[string]bool),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// Seed queues the start URL at depth 0. Scope and pattern filters do not
// apply to it: the user asked for this page explicitly.
func (f *Frontier) Seed(rawURL string) bool {
	normalized, err := NormalizeURL(rawURL)
	if err != nil || f.visited[normalized] {
		return false
	}
	f.visited[normalized] = true
	f.queue = append(f.queue, model.FrontierEntry{URL: normalized, Depth: 0})
	return true
}

// Enqueue adds a URL at the given depth. It reports false, leaving the
// frontier unchanged, when the URL is already visited, deeper than the
// depth limit, out of scope, not http(s), or filtered by a pattern.
func (f *Frontier) Enqueue(rawURL string, depth int) bool {
	return f.EnqueueEntry(model.FrontierEntry{URL: rawURL, Depth: depth})
}

// EnqueueEntry is Enqueue for an entry that may carry its originating form.
func (f *Frontier) EnqueueEntry(entry model.FrontierEntry) bool {
	if entry.Depth > f.maxDepth {
		return false
	}

	normalized, err := NormalizeURL(entry.URL)
	if err != nil {
		return false
	}
	if f.visited[normalized] {
		return false
	}
	if !f.InScope(normalized) || !f.shouldCrawl(normalized) {
		return false
	}

	f.visited[normalized] = true
	entry.URL = normalized
	f.queue = append(f.queue, entry)
	return true
}

// Dequeue removes and returns the oldest entry.
func (f *Frontier) Dequeue() (model.FrontierEntry, bool) {
	if len(f.queue) == 0 {
		return model.FrontierEntry{}, false
	}
	entry := f.queue[0]
	f.queue[0] = model.FrontierEntry{}
	f.queue = f.queue[1:]
	return entry, true
}

// MarkVisited records a URL as seen without queueing it. The crawler uses
// it for the final URL of a redirect chain.
func (f *Frontier) MarkVisited(rawURL string) {
	if normalized, err := NormalizeURL(rawURL); err == nil {
		f.visited[normalized] = true
	}
}

// IsVisited reports whether the URL has been queued or marked.
func (f *Frontier) IsVisited(rawURL string) bool {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return false
	}
	return f.visited[normalized]
}

// Len returns the number of queued entries.
func (f *Frontier) Len() int {
	return len(f.queue)
}

// VisitedCount returns the number of distinct URLs seen so far.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}

// InScope reports whether a URL may be crawled from this start URL.
//
// Origin comparison uses the normalized host and port, so an http to https
// upgrade of the same host stays in scope.
func (f *Frontier) InScope(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}

	host := strings.ToLower(u.Host)
	if host == f.origin || (f.origin != "" && stripDefaultPort(u.Scheme, host) == f.origin) {
		return true
	}

	if f.followSubdomains && f.site != "" {
		return registrableDomain(strings.ToLower(u.Hostname())) == f.site
	}

	return !f.sameOriginOnly
}

// shouldCrawl checks a URL against the ignore/follow patterns.
//
// Logic:
//  1. If the path matches any ignorePattern, skip it
//  2. If followPatterns is set and the path matches none, skip it
//  3. Otherwise, crawl it
func (f *Frontier) shouldCrawl(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range f.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(f.followPatterns) == 0 {
		return true
	}
	for _, pattern := range f.followPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// NormalizeURL returns the canonical form used for deduplication:
// lowercase scheme and host, default port removed, fragment removed,
// empty path as "/", and query parameters sorted by name.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrUnsupportedScheme
	}

	u.Host = stripDefaultPort(u.Scheme, strings.ToLower(u.Host))
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	u.RawQuery = sortQuery(u.RawQuery)
	u.ForceQuery = false

	return u.String(), nil
}

// sortQuery orders query pairs by name, keeping the original encoding and
// the relative order of repeated names.
func sortQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	pairs := make([]string, 0, strings.Count(rawQuery, "&")+1)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair != "" {
			pairs = append(pairs, pair)
		}
	}
	slices.SortStableFunc(pairs, func(a, b string) int {
		keyA, _, _ := strings.Cut(a, "=")
		keyB, _, _ := strings.Cut(b, "=")
		return strings.Compare(keyA, keyB)
	})
	return strings.Join(pairs, "&")
}

// stripDefaultPort removes :80 from http hosts and :443 from https hosts.
func stripDefaultPort(scheme, host string) string {
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		if strings.Contains(h, ":") {
			return "[" + h + "]"
		}
		return h
	}
	return host
}

// registrableDomain returns the eTLD+1 for host, or host itself when it has
// none (IP addresses, localhost).
func registrableDomain(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing "/*" to match a whole subtree
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard" and "/admin/users/1"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
		return true
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	// Bare file globs like "logout*" match the last path segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
