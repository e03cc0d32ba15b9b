package probe

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/devscan/internal/fetcher"
	"github.com/nao1215/devscan/internal/model"
)

// CanaryRedirectHost is the external host substituted into redirect
// parameters. The .invalid TLD guarantees it never resolves.
const CanaryRedirectHost = "devscan-canary.invalid"

// redirectParams are parameter names commonly used to carry a redirect
// destination. Matching is case-insensitive.
var redirectParams = []string{
	"url", "redirect", "redirect_url", "redirect_uri", "redirecturl",
	"return", "return_url", "returnurl", "returnto", "return_to",
	"next", "next_url", "goto", "target", "destination", "dest",
	"continue", "callback", "redir", "out", "view", "link", "ref",
}

// RedirectProbe looks for open redirects in three ways:
//   - passive: a redirect-style parameter on the page URL holds an
//     absolute or protocol-relative URL to another host
//   - chain: the page was reached through redirects that left the origin
//     for a host supplied by a parameter
//   - active: replacing a redirect-style parameter with an external canary
//     URL yields a Location header pointing at the canary
type RedirectProbe struct {
	client Requester
	now    func() time.Time
}

// NewRedirectProbe creates a new RedirectProbe. A nil client disables the
// active check.
func NewRedirectProbe(client Requester) *RedirectProbe {
	return &RedirectProbe{client: client, now: time.Now}
}

// Name returns the probe name.
func (p *RedirectProbe) Name() string {
	return "redirect"
}

// Kind returns the vulnerability kind.
func (p *RedirectProbe) Kind() model.VulnerabilityKind {
	return model.KindOpenRedirect
}

// Check runs the chain, active and passive checks, reporting each
// parameter once with the strongest evidence. A passive target skips the
// active check.
func (p *RedirectProbe) Check(ctx context.Context, target Target) ([]model.Finding, error) {
	page := target.Page
	confirmed := make(map[string]bool)
	findings := make([]model.Finding, 0)

	if f, param := p.checkChain(page); f != nil {
		confirmed[strings.ToLower(param)] = true
		findings = append(findings, *f)
	}

	pageURL, err := url.Parse(page.URL)
	if err != nil {
		return findings, nil
	}
	params := redirectStyleParams(pageURL.Query())

	for _, name := range params {
		if confirmed[strings.ToLower(name)] {
			continue
		}
		if ctx.Err() != nil || target.expired(p.now()) || p.client == nil || target.Passive {
			break
		}
		if !target.Budget.Take() {
			break
		}
		if f := p.checkActive(ctx, pageURL, name); f != nil {
			confirmed[strings.ToLower(name)] = true
			findings = append(findings, *f)
		}
	}

	for _, name := range params {
		if confirmed[strings.ToLower(name)] {
			continue
		}
		value := pageURL.Query().Get(name)
		if host, ok := externalHost(value, pageURL.Hostname()); ok {
			findings = append(findings, model.Finding{
				Kind:        model.KindOpenRedirect,
				Description: fmt.Sprintf("Possible open redirect via parameter %s", name),
				Evidence:    model.Truncate(fmt.Sprintf("%s=%s points to %s", name, value, host), model.MaxEvidenceSize),
				Severity:    model.SeverityMedium,
			})
		}
	}

	return findings, nil
}

// checkChain reports a redirect chain that ended on a foreign host named by
// a redirect-style parameter of the requested URL.
func (p *RedirectProbe) checkChain(page *model.FetchResult) (*model.Finding, string) {
	if len(page.Redirects) == 0 {
		return nil, ""
	}
	final, err := url.Parse(page.URL)
	if err != nil {
		return nil, ""
	}

	for _, hop := range page.Redirects {
		hopURL, err := url.Parse(hop)
		if err != nil || strings.EqualFold(hopURL.Hostname(), final.Hostname()) {
			continue
		}
		query := hopURL.Query()
		for _, name := range redirectStyleParams(query) {
			host, ok := externalHost(query.Get(name), hopURL.Hostname())
			if !ok || !strings.EqualFold(host, final.Hostname()) {
				continue
			}
			return &model.Finding{
				Kind:        model.KindOpenRedirect,
				Description: fmt.Sprintf("Open redirect via parameter %s", name),
				Evidence:    model.Truncate(fmt.Sprintf("%s redirected to %s", hop, page.URL), model.MaxEvidenceSize),
				Severity:    model.SeverityHigh,
			}, name
		}
	}
	return nil, ""
}

// checkActive substitutes the canary URL into one parameter and inspects
// the unfollowed response.
func (p *RedirectProbe) checkActive(ctx context.Context, pageURL *url.URL, name string) *model.Finding {
	canary := "https://" + CanaryRedirectHost + "/"
	injected := *pageURL
	q := pageURL.Query()
	q.Set(name, canary)
	injected.RawQuery = q.Encode()

	resp, err := p.client.Do(ctx, fetcher.Request{
		Method:   model.MethodGet,
		URL:      injected.String(),
		NoFollow: true,
	})
	if err != nil || resp.Status < 300 || resp.Status >= 400 {
		return nil
	}

	location := resp.Header("Location")
	loc, err := injected.Parse(location)
	if err != nil || !strings.EqualFold(loc.Hostname(), CanaryRedirectHost) {
		return nil
	}

	return &model.Finding{
		Kind:        model.KindOpenRedirect,
		Description: fmt.Sprintf("Open redirect via parameter %s", name),
		Evidence:    model.Truncate(fmt.Sprintf("%d Location: %s", resp.Status, location), model.MaxEvidenceSize),
		Severity:    model.SeverityHigh,
	}
}

// redirectStyleParams returns the redirect-style parameter names present in
// query, sorted for stable output.
func redirectStyleParams(query url.Values) []string {
	names := make([]string, 0)
	for name := range query {
		if slices.Contains(redirectParams, strings.ToLower(name)) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// externalHost reports the host of value when it is an absolute or
// protocol-relative URL to a host other than own.
func externalHost(value, own string) (string, bool) {
	value = strings.TrimSpace(value)
	lower := strings.ToLower(value)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") && !strings.HasPrefix(value, "//") {
		return "", false
	}
	u, err := url.Parse(value)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	if strings.EqualFold(u.Hostname(), own) {
		return "", false
	}
	return u.Hostname(), true
}
