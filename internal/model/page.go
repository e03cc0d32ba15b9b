package model

import (
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxEvidenceSize limits how much of an observed value is copied into a finding.
const MaxEvidenceSize = 200

// FetchResult is the response to one page fetch.
//
// Design decision: We keep the decoded body as a string rather than raw bytes
// because every consumer (extractor, probes) works on text, and the fetcher
// already converts the body to UTF-8.
type FetchResult struct {
	// URL is the final URL after redirects.
	URL string `json:"url"`

	// RequestedURL is the URL that was asked for before redirects.
	RequestedURL string `json:"requested_url"`

	// Status is the HTTP status code of the final response.
	Status int `json:"status"`

	// Headers holds the final response headers with canonical names.
	Headers http.Header `json:"headers"`

	// Body is the UTF-8 decoded response body, truncated at the body size limit.
	Body string `json:"-"`

	// Elapsed is the wall-clock time of the fetch including redirects.
	Elapsed time.Duration `json:"elapsed"`

	// Redirects lists every URL visited before the final one, in order.
	Redirects []string `json:"redirects,omitempty"`
}

// Header returns the first value of the named header (case-insensitive).
func (r *FetchResult) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(name)
}

// HeaderValues returns all values of the named header (case-insensitive).
func (r *FetchResult) HeaderValues(name string) []string {
	if r.Headers == nil {
		return nil
	}
	return r.Headers.Values(name)
}

// HasHeader reports whether the named header is present with a non-blank value.
func (r *FetchResult) HasHeader(name string) bool {
	for _, v := range r.HeaderValues(name) {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// MediaType returns the lowercase media type of the Content-Type header.
func (r *FetchResult) MediaType() string {
	ct := r.Header("Content-Type")
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	}
	return mediaType
}

// IsHTML reports whether the response is an HTML document.
// A missing Content-Type is treated as HTML, matching browser sniffing for pages.
func (r *FetchResult) IsHTML() bool {
	switch r.MediaType() {
	case "", "text/html", "application/xhtml+xml":
		return true
	default:
		return false
	}
}

// IsHTTPS reports whether the final URL uses TLS.
func (r *FetchResult) IsHTTPS() bool {
	return strings.HasPrefix(strings.ToLower(r.URL), "https://")
}

// Form method values.
const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// Form is an HTML form discovered on a page.
type Form struct {
	// Action is the absolute URL the form submits to.
	Action string `json:"action"`

	// Method is MethodGet or MethodPost.
	Method string `json:"method"`

	// Fields are the named inputs in document order.
	Fields []FormField `json:"fields"`
}

// FormField is a named form input.
type FormField struct {
	// Name is the field name attribute.
	Name string `json:"name"`

	// Type is the input type (text, hidden, password, textarea, select, ...).
	Type string `json:"type"`

	// Value is the default value if present.
	Value string `json:"value,omitempty"`
}

// Values returns the default submission values of the form.
func (f Form) Values() url.Values {
	v := url.Values{}
	for _, field := range f.Fields {
		v.Add(field.Name, field.Value)
	}
	return v
}

// SubmissionURL returns the action URL with the default values encoded as
// the query string, which is what a browser requests for a GET form.
// It returns the action unchanged for POST forms.
func (f Form) SubmissionURL() string {
	if f.Method != MethodGet || len(f.Fields) == 0 {
		return f.Action
	}
	u, err := url.Parse(f.Action)
	if err != nil {
		return f.Action
	}
	u.RawQuery = f.Values().Encode()
	return u.String()
}

// FrontierEntry is a URL waiting to be fetched.
type FrontierEntry struct {
	// URL is the normalized absolute URL.
	URL string

	// Depth is the link distance from the start URL.
	Depth int

	// OriginForm is the form whose submission produced this URL, if any.
	OriginForm *Form
}

// Truncate shortens s to at most maxLen bytes with an ellipsis. The cut
// never splits a UTF-8 sequence.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:runeBoundary(s, maxLen)]
	}
	return s[:runeBoundary(s, maxLen-3)] + "..."
}

// runeBoundary moves n back to the start of the rune containing s[n].
func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
