package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nao1215/devscan/internal/model"
)

// CookieProbe reports Set-Cookie headers missing protective attributes.
//
// This probe checks for:
//   - Secure (https pages only; a plaintext page cannot set it meaningfully)
//   - HttpOnly
//   - an explicit SameSite attribute
type CookieProbe struct{}

// NewCookieProbe creates a new CookieProbe.
func NewCookieProbe() *CookieProbe {
	return &CookieProbe{}
}

// Name returns the probe name.
func (p *CookieProbe) Name() string {
	return "cookies"
}

// Kind returns the vulnerability kind.
func (p *CookieProbe) Kind() model.VulnerabilityKind {
	return model.KindInsecureCookie
}

// Check parses every Set-Cookie header on the page.
func (p *CookieProbe) Check(_ context.Context, target Target) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)
	page := target.Page

	for _, raw := range page.HeaderValues("Set-Cookie") {
		cookie, err := http.ParseSetCookie(raw)
		if err != nil {
			continue
		}
		// Deletion cookies carry no value worth protecting.
		if cookie.MaxAge < 0 || cookie.Value == "" {
			continue
		}

		evidence := redactCookie(cookie.Name)
		if page.IsHTTPS() && !cookie.Secure {
			findings = append(findings, model.Finding{
				Kind:        model.KindInsecureCookie,
				Description: fmt.Sprintf("Cookie %s missing Secure flag", cookie.Name),
				Evidence:    evidence,
				Severity:    model.SeverityMedium,
			})
		}
		if !cookie.HttpOnly {
			findings = append(findings, model.Finding{
				Kind:        model.KindInsecureCookie,
				Description: fmt.Sprintf("Cookie %s missing HttpOnly flag", cookie.Name),
				Evidence:    evidence,
				Severity:    cookieSeverity(cookie.Name),
			})
		}
		if !hasSameSite(raw) {
			findings = append(findings, model.Finding{
				Kind:        model.KindInsecureCookie,
				Description: fmt.Sprintf("Cookie %s missing SameSite attribute", cookie.Name),
				Evidence:    evidence,
				Severity:    model.SeverityLow,
			})
		}
	}

	return findings, nil
}

// hasSameSite reports whether the raw header names a SameSite attribute.
// http.Cookie.SameSite cannot tell an absent attribute from an invalid one.
func hasSameSite(raw string) bool {
	for _, part := range strings.Split(raw, ";")[1:] {
		name, _, _ := strings.Cut(strings.TrimSpace(part), "=")
		if strings.EqualFold(name, "SameSite") {
			return true
		}
	}
	return false
}

// cookieSeverity rates a missing HttpOnly flag higher for cookies whose
// names suggest a session or credential.
func cookieSeverity(name string) model.Severity {
	lower := strings.ToLower(name)
	for _, hint := range []string{"sess", "auth", "token", "sid", "login"} {
		if strings.Contains(lower, hint) {
			return model.SeverityHigh
		}
	}
	return model.SeverityMedium
}

// redactCookie renders a cookie for evidence without its value.
func redactCookie(name string) string {
	return name + "=<redacted>"
}
