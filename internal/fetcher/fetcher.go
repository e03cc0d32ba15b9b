package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/devscan/internal/model"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// ErrInvalidProxyAddress is returned when the SOCKS5 proxy address is not host:port.
var ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")

// Request describes one HTTP request issued by the crawler or a probe.
type Request struct {
	// Method is GET when empty.
	Method string

	// URL is the absolute http(s) URL.
	URL string

	// Form is sent as an application/x-www-form-urlencoded body for POST.
	Form url.Values

	// NoFollow returns the first response as-is instead of following redirects.
	NoFollow bool
}

// Fetcher performs rate-limited, timeout-bounded HTTP requests.
//
// Design decision: We follow redirects ourselves instead of letting
// http.Client do it because:
//  1. The redirect chain is part of the result (open redirect probe uses it)
//  2. The hop limit must produce a typed TooManyRedirects error
//  3. Probes need a no-follow mode on the same client
type Fetcher struct {
	// client is the underlying HTTP client. It never follows redirects.
	client *http.Client

	// timeout bounds one Do call including every redirect hop.
	timeout time.Duration

	// userAgent is the User-Agent header.
	userAgent string

	// headers are extra headers sent with every request.
	headers map[string]string

	// cookie is a raw Cookie header sent with every request.
	cookie string

	// maxBodySize limits how many body bytes are read.
	maxBodySize int64

	// rateLimit is the requests per second per host. 0 disables limiting.
	rateLimit int

	// proxyAddress is an optional SOCKS5 upstream.
	proxyAddress string

	// limiters holds one token bucket per host.
	limiters   map[string]*rate.Limiter
	limitersMu sync.RWMutex

	// logger is used for debug logging of requests.
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHeaders sets extra headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithCookie sets a raw Cookie header sent with every request.
// Format: "name=value" or "name1=value1; name2=value2"
func WithCookie(cookie string) Option {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per response.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithRateLimit sets the maximum requests per second per host.
// 0 disables rate limiting.
func WithRateLimit(perSecond int) Option {
	return func(f *Fetcher) {
		f.rateLimit = perSecond
	}
}

// WithProxy routes every connection through a SOCKS5 proxy at host:port.
func WithProxy(address string) Option {
	return func(f *Fetcher) {
		f.proxyAddress = address
	}
}

// WithHTTPClient replaces the underlying client. The fetcher overrides its
// CheckRedirect so that redirects are never followed implicitly.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:     model.DefaultRequestTimeout,
		userAgent:   model.DefaultUserAgent,
		maxBodySize: model.DefaultMaxBodySize,
		rateLimit:   model.DefaultRateLimit,
		limiters:    make(map[string]*rate.Limiter),
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}

	if f.client == nil {
		client, err := newHTTPClient(f.proxyAddress)
		if err != nil {
			return nil, err
		}
		f.client = client
	}

	// Copy so that a caller-supplied client is not mutated.
	client := *f.client
	client.CheckRedirect = func(_ *http.Request, _ []*http.Request) error {
		return http.ErrUseLastResponse
	}
	client.Timeout = 0
	f.client = &client

	return f, nil
}

// NewFromOptions creates a Fetcher configured from scan options.
func NewFromOptions(o model.ScanOptions, logger *slog.Logger) (*Fetcher, error) {
	return New(
		WithTimeout(o.RequestTimeout),
		WithUserAgent(o.UserAgent),
		WithHeaders(o.Headers),
		WithCookie(o.Cookie),
		WithMaxBodySize(o.MaxBodySize),
		WithRateLimit(o.RateLimit),
		WithProxy(o.ProxyAddress),
		WithLogger(logger),
	)
}

// newHTTPClient builds the default client, optionally dialing through SOCKS5.
func newHTTPClient(proxyAddress string) (*http.Client, error) {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if proxyAddress != "" {
		if !isValidProxyAddress(proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		socks, err := proxy.SOCKS5("tcp", proxyAddress, nil, dialer)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		if cd, ok := socks.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return socks.Dial(network, addr)
			}
		}
	}

	// Session cookies set during the crawl are replayed on later requests,
	// which lets the crawl reach pages behind a cookie-based session.
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &http.Client{
		Transport: transport,
		Jar:       jar,
	}, nil
}

// isValidProxyAddress checks for a non-empty host and a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// Fetch performs a GET request following up to model.MaxRedirects redirects.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.FetchResult, error) {
	return f.Do(ctx, Request{Method: http.MethodGet, URL: rawURL})
}

// Do performs the request. Every failure is returned as a *model.FetchError.
func (f *Fetcher) Do(ctx context.Context, req Request) (*model.FetchResult, error) {
	current, err := parseHTTPURL(req.URL)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	redirects := make([]string, 0)
	form := req.Form

	for hop := 0; ; hop++ {
		resp, err := f.roundTrip(ctx, method, current, form)
		if err != nil {
			return nil, classifyError(req.URL, err)
		}

		location := resp.Header.Get("Location")
		if req.NoFollow || !isRedirect(resp.StatusCode) || location == "" {
			result, err := f.buildResult(resp, req.URL, current, redirects, start)
			if err != nil {
				return nil, classifyError(req.URL, err)
			}
			return result, nil
		}

		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024)) //nolint:errcheck // best effort
		resp.Body.Close()

		if hop >= model.MaxRedirects {
			return nil, model.NewFetchError(model.FetchTooManyRedirects, req.URL,
				fmt.Errorf("stopped after %d redirects", model.MaxRedirects))
		}

		next, err := current.Parse(location)
		if err != nil {
			return nil, model.NewFetchError(model.FetchNetwork, req.URL,
				fmt.Errorf("invalid redirect location %q: %w", location, err))
		}
		if next.Scheme != "http" && next.Scheme != "https" {
			return nil, model.NewFetchError(model.FetchInvalidScheme, req.URL,
				fmt.Errorf("redirect to %s", next.Redacted()))
		}

		f.logger.Debug("following redirect",
			"from", current.String(),
			"to", next.String(),
			"status", resp.StatusCode,
		)

		redirects = append(redirects, current.String())
		current = next

		// Browsers switch to GET on 303, and on 301/302 for non-GET requests.
		if resp.StatusCode == http.StatusSeeOther ||
			((resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound) && method != http.MethodGet) {
			method = http.MethodGet
			form = nil
		}
	}
}

// roundTrip sends a single request after waiting on the host's rate limiter.
func (f *Fetcher) roundTrip(ctx context.Context, method string, target *url.URL, form url.Values) (*http.Response, error) {
	if limiter := f.getRateLimiter(target.Host); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter cancelled: %w", err)
		}
	}

	var body io.Reader
	if method == http.MethodPost && form != nil {
		body = strings.NewReader(form.Encode())
	} else if form != nil {
		q := target.Query()
		for k, vs := range form {
			q.Del(k)
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u := *target
		u.RawQuery = q.Encode()
		target = &u
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range f.headers {
		httpReq.Header.Set(k, v)
	}
	if f.cookie != "" {
		httpReq.Header.Set("Cookie", f.cookie)
	}

	f.logger.Debug("sending request", "method", method, "url", target.String())

	return f.client.Do(httpReq)
}

// buildResult reads the body and assembles the FetchResult.
func (f *Fetcher) buildResult(resp *http.Response, requested string, final *url.URL, redirects []string, start time.Time) (*model.FetchResult, error) {
	defer resp.Body.Close()

	body, err := f.readBody(resp)
	if err != nil {
		return nil, err
	}

	return &model.FetchResult{
		URL:          final.String(),
		RequestedURL: requested,
		Status:       resp.StatusCode,
		Headers:      resp.Header,
		Body:         body,
		Elapsed:      time.Since(start),
		Redirects:    redirects,
	}, nil
}

// readBody reads at most maxBodySize bytes and decodes textual bodies to UTF-8.
func (f *Fetcher) readBody(resp *http.Response) (string, error) {
	limited := io.LimitReader(resp.Body, f.maxBodySize)
	contentType := resp.Header.Get("Content-Type")

	if !isTextual(contentType) {
		data, err := io.ReadAll(limited)
		return string(data), err
	}

	reader, err := charset.NewReader(limited, contentType)
	if err != nil {
		// Unknown charset: keep the raw bytes.
		data, readErr := io.ReadAll(limited)
		return string(data), readErr
	}
	data, err := io.ReadAll(reader)
	return string(data), err
}

// getRateLimiter returns the host's limiter, creating it on first use.
func (f *Fetcher) getRateLimiter(host string) *rate.Limiter {
	if f.rateLimit <= 0 {
		return nil
	}

	f.limitersMu.RLock()
	limiter, exists := f.limiters[host]
	f.limitersMu.RUnlock()
	if exists {
		return limiter
	}

	f.limitersMu.Lock()
	defer f.limitersMu.Unlock()

	if limiter, exists := f.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(f.rateLimit), 1)
	f.limiters[host] = limiter
	return limiter
}

// parseHTTPURL parses rawURL and rejects anything that is not absolute http(s).
func parseHTTPURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, model.NewFetchError(model.FetchInvalidScheme, rawURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, model.NewFetchError(model.FetchInvalidScheme, rawURL,
			fmt.Errorf("scheme %q is not http or https", u.Scheme))
	}
	if u.Host == "" {
		return nil, model.NewFetchError(model.FetchInvalidScheme, rawURL, errors.New("missing host"))
	}
	return u, nil
}

// isRedirect reports whether the status code carries a Location to follow.
func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// isTextual reports whether a body with this Content-Type should be charset-decoded.
func isTextual(contentType string) bool {
	ct := strings.ToLower(contentType)
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "html") ||
		strings.Contains(ct, "xml") ||
		strings.Contains(ct, "json") ||
		strings.Contains(ct, "javascript")
}

// classifyError maps transport errors onto the FetchError taxonomy.
func classifyError(rawURL string, err error) error {
	var fe *model.FetchError
	if errors.As(err, &fe) {
		return fe
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return model.NewFetchError(model.FetchTimeout, rawURL, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return model.NewFetchError(model.FetchTimeout, rawURL, err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return model.NewFetchError(model.FetchConnectionRefused, rawURL, err)
	default:
		return model.NewFetchError(model.FetchNetwork, rawURL, err)
	}
}
