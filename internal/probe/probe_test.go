package probe

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/devscan/internal/fetcher"
	"github.com/nao1215/devscan/internal/model"
)

// fakeProbe returns canned findings or an error.
type fakeProbe struct {
	name     string
	findings []model.Finding
	err      error
}

func (p *fakeProbe) Name() string                  { return p.name }
func (p *fakeProbe) Kind() model.VulnerabilityKind { return model.KindMissingSecurityHeader }
func (p *fakeProbe) Check(context.Context, Target) ([]model.Finding, error) {
	return p.findings, p.err
}

// fakeRequester records requests and answers with respond.
type fakeRequester struct {
	mu      sync.Mutex
	calls   []fetcher.Request
	respond func(fetcher.Request) (*model.FetchResult, error)
}

func (r *fakeRequester) Do(_ context.Context, req fetcher.Request) (*model.FetchResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, req)
	r.mu.Unlock()
	if r.respond == nil {
		return &model.FetchResult{URL: req.URL, Status: http.StatusOK}, nil
	}
	return r.respond(req)
}

func (r *fakeRequester) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newPage(rawURL string, headers map[string]string) *model.FetchResult {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &model.FetchResult{
		URL:          rawURL,
		RequestedURL: rawURL,
		Status:       http.StatusOK,
		Headers:      h,
	}
}

func descriptions(findings []model.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Description)
	}
	return out
}

func newTestFetcher(t *testing.T) *fetcher.Fetcher {
	t.Helper()
	f, err := fetcher.New(fetcher.WithRateLimit(0), fetcher.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}
	return f
}

func TestEngineRunAll(t *testing.T) {
	t.Parallel()

	t.Run("keeps registration order and skips failing probes", func(t *testing.T) {
		t.Parallel()

		var failed []string
		engine := NewEngine([]Probe{
			&fakeProbe{name: "first", findings: []model.Finding{{Description: "a"}, {Description: "b"}}},
			&fakeProbe{name: "broken", err: errors.New("boom")},
			&fakeProbe{name: "last", findings: []model.Finding{{Description: "c"}}},
		}, WithErrorHook(func(name string, _ error) { failed = append(failed, name) }))

		got := descriptions(engine.RunAll(t.Context(), Target{Page: newPage("http://example.test/", nil)}))
		want := []string{"a", "b", "c"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("findings = %v, want %v", got, want)
		}
		if len(failed) != 1 || failed[0] != "broken" {
			t.Errorf("error hook calls = %v, want [broken]", failed)
		}
	})

	t.Run("removes duplicate descriptions within a probe", func(t *testing.T) {
		t.Parallel()

		engine := NewEngine([]Probe{
			&fakeProbe{name: "dup", findings: []model.Finding{{Description: "Same"}, {Description: "same"}}},
		})
		got := engine.RunAll(t.Context(), Target{Page: newPage("http://example.test/", nil)})
		if len(got) != 1 {
			t.Errorf("expected 1 finding, got %d", len(got))
		}
	})

	t.Run("nil page yields empty non-nil slice", func(t *testing.T) {
		t.Parallel()

		got := NewEngine(nil).RunAll(t.Context(), Target{})
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty slice, got %#v", got)
		}
	})

	t.Run("cancelled context stops before probes run", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		engine := NewEngine([]Probe{&fakeProbe{name: "p", findings: []model.Finding{{Description: "x"}}}})
		if got := engine.RunAll(ctx, Target{Page: newPage("http://example.test/", nil)}); len(got) != 0 {
			t.Errorf("expected no findings, got %v", got)
		}
	})
}

func TestDefaultProbesOrder(t *testing.T) {
	t.Parallel()

	probes := DefaultProbes(&fakeRequester{}, model.DefaultScanOptions())
	want := []string{"headers", "cookies", "reflection", "redirect", "disclosure"}
	if len(probes) != len(want) {
		t.Fatalf("got %d probes, want %d", len(probes), len(want))
	}
	for i, p := range probes {
		if p.Name() != want[i] {
			t.Errorf("probe %d = %s, want %s", i, p.Name(), want[i])
		}
		if p.Kind() != model.Kinds()[i] {
			t.Errorf("probe %s kind = %s, want %s", p.Name(), p.Kind(), model.Kinds()[i])
		}
	}
}

func TestBudget(t *testing.T) {
	t.Parallel()

	b := NewBudget(2)
	if !b.Take() || !b.Take() {
		t.Fatal("expected two successful takes")
	}
	if b.Take() {
		t.Error("expected third take to fail")
	}
	if b.Remaining() != 0 {
		t.Errorf("remaining = %d, want 0", b.Remaining())
	}

	var unlimited *Budget
	for range 100 {
		if !unlimited.Take() {
			t.Fatal("nil budget must be unlimited")
		}
	}
	if NewBudget(-3).Take() {
		t.Error("negative budget must allow nothing")
	}
}

func TestHeaderProbe(t *testing.T) {
	t.Parallel()

	allHeaders := map[string]string{
		"Content-Security-Policy":   "default-src 'self'",
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"Strict-Transport-Security": "max-age=63072000",
	}

	tests := []struct {
		name    string
		url     string
		headers map[string]string
		want    []string
	}{
		{
			name:    "only X-Frame-Options missing",
			url:     "http://example.test/",
			headers: map[string]string{"Content-Security-Policy": "default-src 'self'", "X-Content-Type-Options": "nosniff"},
			want:    []string{"Missing X-Frame-Options header"},
		},
		{
			name: "nothing set on http page skips HSTS",
			url:  "http://example.test/",
			want: []string{
				"Missing Content-Security-Policy header",
				"Missing X-Frame-Options header",
				"Missing X-Content-Type-Options header",
			},
		},
		{
			name: "nothing set on https page",
			url:  "https://example.test/",
			want: []string{
				"Missing Content-Security-Policy header",
				"Missing X-Frame-Options header",
				"Missing X-Content-Type-Options header",
				"Missing Strict-Transport-Security header",
			},
		},
		{
			name:    "all present",
			url:     "https://example.test/",
			headers: allHeaders,
			want:    []string{},
		},
		{
			name: "blank value counts as missing",
			url:  "http://example.test/",
			headers: map[string]string{
				"Content-Security-Policy": "default-src 'self'",
				"X-Frame-Options":         "  ",
				"X-Content-Type-Options":  "nosniff",
			},
			want: []string{"Missing X-Frame-Options header"},
		},
		{
			name: "report-only CSP is accepted",
			url:  "http://example.test/",
			headers: map[string]string{
				"Content-Security-Policy-Report-Only": "default-src 'self'",
				"X-Frame-Options":                     "DENY",
				"X-Content-Type-Options":              "nosniff",
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewHeaderProbe().Check(t.Context(), Target{Page: newPage(tt.url, tt.headers)})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(descriptions(got), "|") != strings.Join(tt.want, "|") {
				t.Errorf("findings = %v, want %v", descriptions(got), tt.want)
			}
			for _, f := range got {
				if f.Kind != model.KindMissingSecurityHeader {
					t.Errorf("kind = %s, want missing_security_header", f.Kind)
				}
			}
		})
	}
}

func TestCookieProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		cookies []string
		want    []string
	}{
		{
			name:    "fully protected cookie",
			url:     "https://example.test/",
			cookies: []string{"sid=abc; Secure; HttpOnly; SameSite=Lax"},
			want:    []string{},
		},
		{
			name:    "bare cookie on https",
			url:     "https://example.test/",
			cookies: []string{"sid=abc"},
			want: []string{
				"Cookie sid missing Secure flag",
				"Cookie sid missing HttpOnly flag",
				"Cookie sid missing SameSite attribute",
			},
		},
		{
			name:    "Secure is not required on http",
			url:     "http://example.test/",
			cookies: []string{"theme=dark; HttpOnly; SameSite=Strict"},
			want:    []string{},
		},
		{
			name:    "deletion cookie is ignored",
			url:     "https://example.test/",
			cookies: []string{"sid=; Max-Age=0"},
			want:    []string{},
		},
		{
			name:    "multiple cookies",
			url:     "http://example.test/",
			cookies: []string{"a=1; HttpOnly", "b=2; SameSite=None"},
			want: []string{
				"Cookie a missing SameSite attribute",
				"Cookie b missing HttpOnly flag",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page := newPage(tt.url, nil)
			for _, c := range tt.cookies {
				page.Headers.Add("Set-Cookie", c)
			}

			got, err := NewCookieProbe().Check(t.Context(), Target{Page: page})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(descriptions(got), "|") != strings.Join(tt.want, "|") {
				t.Errorf("findings = %v, want %v", descriptions(got), tt.want)
			}
			for _, f := range got {
				if strings.Contains(f.Evidence, "abc") {
					t.Errorf("evidence leaks cookie value: %q", f.Evidence)
				}
			}
		})
	}
}

func TestCookieSeverity(t *testing.T) {
	t.Parallel()

	if got := cookieSeverity("PHPSESSID"); got != model.SeverityHigh {
		t.Errorf("session cookie severity = %s, want high", got)
	}
	if got := cookieSeverity("theme"); got != model.SeverityMedium {
		t.Errorf("plain cookie severity = %s, want medium", got)
	}
}

func newReflectionServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><body><p>Results for %s</p><p>%s</p></body></html>",
			r.URL.Query().Get("q"), html.EscapeString(r.URL.Query().Get("safe")))
	})
	mux.HandleFunc("/comment", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		_ = r.ParseForm() //nolint:errcheck // test server
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><form><input name="body" value="%s"></form></body></html>`, r.PostForm.Get("body"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestReflectionProbe(t *testing.T) {
	t.Parallel()

	srv := newReflectionServer(t)
	probe := NewReflectionProbe(newTestFetcher(t), WithWorkers(2))

	target := Target{
		Page: newPage(srv.URL+"/search?q=shoes&safe=x", nil),
		Forms: []model.Form{{
			Action: srv.URL + "/comment",
			Method: model.MethodPost,
			Fields: []model.FormField{
				{Name: "body", Type: "textarea"},
				{Name: "pw", Type: "password"},
				{Name: "send", Type: "submit", Value: "Send"},
			},
		}},
	}

	got, err := probe.Check(t.Context(), target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Reflected input in parameter q", "Reflected input in parameter body"}
	if strings.Join(descriptions(got), "|") != strings.Join(want, "|") {
		t.Fatalf("findings = %v, want %v", descriptions(got), want)
	}
	if !strings.Contains(got[0].Evidence, "text context") {
		t.Errorf("q evidence = %q, want text context", got[0].Evidence)
	}
	if !strings.Contains(got[1].Evidence, "attribute context") {
		t.Errorf("body evidence = %q, want attribute context", got[1].Evidence)
	}
	for _, f := range got {
		if f.Severity != model.SeverityHigh || f.Kind != model.KindReflectedInput {
			t.Errorf("unexpected finding metadata: %+v", f)
		}
	}
}

func TestReflectionProbeLimits(t *testing.T) {
	t.Parallel()

	page := newPage("http://example.test/list?a=1&b=2&c=3&d=4&e=5", nil)

	t.Run("budget caps requests", func(t *testing.T) {
		t.Parallel()

		req := &fakeRequester{}
		_, err := NewReflectionProbe(req).Check(t.Context(), Target{Page: page, Budget: NewBudget(2)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.count() != 2 {
			t.Errorf("requests = %d, want 2", req.count())
		}
	})

	t.Run("expired deadline sends nothing", func(t *testing.T) {
		t.Parallel()

		req := &fakeRequester{}
		target := Target{Page: page, Deadline: time.Now().Add(-time.Second)}
		if _, err := NewReflectionProbe(req).Check(t.Context(), target); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.count() != 0 {
			t.Errorf("requests = %d, want 0", req.count())
		}
	})

	t.Run("form submission pages skip their query", func(t *testing.T) {
		t.Parallel()

		req := &fakeRequester{}
		target := Target{Page: page, OriginForm: &model.Form{Method: model.MethodGet}}
		if _, err := NewReflectionProbe(req).Check(t.Context(), target); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.count() != 0 {
			t.Errorf("requests = %d, want 0", req.count())
		}
	})

	t.Run("passive target sends nothing", func(t *testing.T) {
		t.Parallel()

		req := &fakeRequester{}
		target := Target{
			Page:    page,
			Forms:   []model.Form{{Action: "http://example.test/login", Method: model.MethodPost, Fields: []model.FormField{{Name: "user", Type: "text"}}}},
			Passive: true,
		}
		got, err := NewReflectionProbe(req).Check(t.Context(), target)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.count() != 0 || len(got) != 0 {
			t.Errorf("requests = %d, findings = %v, want none", req.count(), got)
		}
	})

	t.Run("request failures are not findings", func(t *testing.T) {
		t.Parallel()

		req := &fakeRequester{respond: func(r fetcher.Request) (*model.FetchResult, error) {
			return nil, model.NewFetchError(model.FetchTimeout, r.URL, context.DeadlineExceeded)
		}}
		got, err := NewReflectionProbe(req).Check(t.Context(), Target{Page: page})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no findings, got %v", got)
		}
	})
}

func TestDetectContext(t *testing.T) {
	t.Parallel()

	const token = "dvs0123456789ab"
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "script", body: `<script>var q = "` + token + `<"'>";</script>`, want: ContextScript},
		{name: "attribute", body: `<a href="/x?q=` + token + `">x</a>`, want: ContextAttribute},
		{name: "text", body: `<p>` + token + `</p>`, want: ContextText},
		{name: "absent", body: `<p>nothing</p>`, want: ContextText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := DetectContext(tt.body, token); got != tt.want {
				t.Errorf("DetectContext() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRedirectProbe(t *testing.T) {
	t.Parallel()

	t.Run("active canary confirms open redirect", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if next := r.URL.Query().Get("next"); next != "" {
				http.Redirect(w, r, next, http.StatusFound)
				return
			}
			fmt.Fprint(w, "ok")
		}))
		t.Cleanup(srv.Close)

		got, err := NewRedirectProbe(newTestFetcher(t)).Check(t.Context(),
			Target{Page: newPage(srv.URL+"/login?next=/home", nil)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Description != "Open redirect via parameter next" {
			t.Fatalf("findings = %v", descriptions(got))
		}
		if got[0].Severity != model.SeverityHigh {
			t.Errorf("severity = %s, want high", got[0].Severity)
		}
		if !strings.Contains(got[0].Evidence, CanaryRedirectHost) {
			t.Errorf("evidence = %q, want canary host", got[0].Evidence)
		}
	})

	t.Run("safe redirect handler is not reported", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/home", http.StatusFound)
		}))
		t.Cleanup(srv.Close)

		got, err := NewRedirectProbe(newTestFetcher(t)).Check(t.Context(),
			Target{Page: newPage(srv.URL+"/login?next=/dashboard", nil)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no findings, got %v", descriptions(got))
		}
	})

	t.Run("passive check without budget", func(t *testing.T) {
		t.Parallel()

		req := &fakeRequester{}
		target := Target{
			Page:   newPage("http://app.test/out?url=https://evil.test/landing&id=3", nil),
			Budget: NewBudget(0),
		}
		got, err := NewRedirectProbe(req).Check(t.Context(), target)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Description != "Possible open redirect via parameter url" {
			t.Fatalf("findings = %v", descriptions(got))
		}
		if req.count() != 0 {
			t.Errorf("requests = %d, want 0 with an empty budget", req.count())
		}
	})

	t.Run("protocol-relative value is external", func(t *testing.T) {
		t.Parallel()

		target := Target{Page: newPage("http://app.test/go?ReturnTo=//evil.test/", nil)}
		got, err := NewRedirectProbe(nil).Check(t.Context(), target)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Description != "Possible open redirect via parameter ReturnTo" {
			t.Fatalf("findings = %v", descriptions(got))
		}
	})

	t.Run("redirect chain leaving the origin", func(t *testing.T) {
		t.Parallel()

		page := newPage("https://evil.test/landing", nil)
		page.RequestedURL = "http://app.test/go?dest=https://evil.test/landing"
		page.Redirects = []string{"http://app.test/go?dest=https://evil.test/landing"}

		got, err := NewRedirectProbe(nil).Check(t.Context(), Target{Page: page})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Description != "Open redirect via parameter dest" {
			t.Fatalf("findings = %v", descriptions(got))
		}
	})

	t.Run("passive target keeps chain and parameter checks", func(t *testing.T) {
		t.Parallel()

		page := newPage("https://evil.test/land?next=https://other.test/", nil)
		page.RequestedURL = "http://app.test/go?dest=https://evil.test/"
		page.Redirects = []string{"http://app.test/go?dest=https://evil.test/"}

		req := &fakeRequester{}
		got, err := NewRedirectProbe(req).Check(t.Context(), Target{Page: page, Passive: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"Open redirect via parameter dest", "Possible open redirect via parameter next"}
		if strings.Join(descriptions(got), "|") != strings.Join(want, "|") {
			t.Fatalf("findings = %v, want %v", descriptions(got), want)
		}
		if req.count() != 0 {
			t.Errorf("requests = %d, want 0 for a passive target", req.count())
		}
	})

	t.Run("same-host value is fine", func(t *testing.T) {
		t.Parallel()

		target := Target{Page: newPage("http://app.test/go?next=http://APP.test/home", nil)}
		got, err := NewRedirectProbe(nil).Check(t.Context(), target)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no findings, got %v", descriptions(got))
		}
	})
}

func TestDisclosureProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		status  int
		headers map[string]string
		body    string
		want    []string
	}{
		{
			name:    "versioned server banner",
			url:     "http://example.test/",
			status:  http.StatusOK,
			headers: map[string]string{"Server": "nginx/1.18.0 (Ubuntu)"},
			want:    []string{"Server banner: nginx/1.18.0 (Ubuntu)"},
		},
		{
			name:    "bare server name is fine",
			url:     "http://example.test/",
			status:  http.StatusOK,
			headers: map[string]string{"Server": "nginx"},
			want:    []string{},
		},
		{
			name:    "x-powered-by",
			url:     "http://example.test/",
			status:  http.StatusOK,
			headers: map[string]string{"X-Powered-By": "PHP/8.1.2"},
			want:    []string{"X-Powered-By header reveals PHP/8.1.2"},
		},
		{
			name:   "directory listing",
			url:    "http://example.test/files/",
			status: http.StatusOK,
			body:   "<html><head><title>Index of /files</title></head></html>",
			want:   []string{"Directory listing enabled"},
		},
		{
			name:   "exposed git head",
			url:    "http://example.test/.git/HEAD",
			status: http.StatusOK,
			want:   []string{"Sensitive file accessible"},
		},
		{
			name:   "missing git head",
			url:    "http://example.test/.git/HEAD",
			status: http.StatusNotFound,
			want:   []string{},
		},
		{
			name:   "admin path",
			url:    "http://example.test/wp-admin/index.php",
			status: http.StatusForbidden,
			want:   []string{"Admin panel path detected", "Forbidden (403)"},
		},
		{
			name:    "basic auth challenge",
			url:     "http://example.test/reports",
			status:  http.StatusUnauthorized,
			headers: map[string]string{"WWW-Authenticate": `Basic realm="reports"`},
			want:    []string{"Requires authentication (401)"},
		},
		{
			name:   "forbidden page",
			url:    "http://example.test/private/",
			status: http.StatusForbidden,
			want:   []string{"Forbidden (403)"},
		},
		{
			name:   "admin word inside another segment",
			url:    "http://example.test/administration-guide",
			status: http.StatusOK,
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page := newPage(tt.url, tt.headers)
			page.Status = tt.status
			page.Body = tt.body

			got, err := NewDisclosureProbe().Check(t.Context(), Target{Page: page})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(descriptions(got), "|") != strings.Join(tt.want, "|") {
				t.Errorf("findings = %v, want %v", descriptions(got), tt.want)
			}
		})
	}
}

func TestDefaultEngineWithServer(t *testing.T) {
	t.Parallel()

	srv := newReflectionServer(t)
	opts := model.DefaultScanOptions()
	opts.ProbeBudget = 1

	engine := NewDefaultEngine(newTestFetcher(t), opts)
	page := newPage(srv.URL+"/search?q=a&safe=b", map[string]string{
		"Content-Security-Policy": "default-src 'self'",
		"X-Frame-Options":         "DENY",
		"X-Content-Type-Options":  "nosniff",
	})

	got := engine.RunAll(t.Context(), Target{Page: page})
	want := []string{"Reflected input in parameter q"}
	if strings.Join(descriptions(got), "|") != strings.Join(want, "|") {
		t.Errorf("findings = %v, want %v", descriptions(got), want)
	}
}
