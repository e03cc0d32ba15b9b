package probe

import (
	"context"
	"fmt"

	"github.com/nao1215/devscan/internal/model"
)

// securityHeader describes one response header every page should send.
type securityHeader struct {
	name      string
	severity  model.Severity
	httpsOnly bool
}

// securityHeaders are checked in this order.
//
// X-XSS-Protection is deliberately absent: modern browsers ignore it and
// the current guidance is to omit it.
var securityHeaders = []securityHeader{
	{name: "Content-Security-Policy", severity: model.SeverityMedium},
	{name: "X-Frame-Options", severity: model.SeverityMedium},
	{name: "X-Content-Type-Options", severity: model.SeverityLow},
	{name: "Strict-Transport-Security", severity: model.SeverityMedium, httpsOnly: true},
}

// HeaderProbe reports missing HTTP security headers.
//
// Strict-Transport-Security is only meaningful over TLS, so it is checked
// on https pages only.
type HeaderProbe struct{}

// NewHeaderProbe creates a new HeaderProbe.
func NewHeaderProbe() *HeaderProbe {
	return &HeaderProbe{}
}

// Name returns the probe name.
func (p *HeaderProbe) Name() string {
	return "headers"
}

// Kind returns the vulnerability kind.
func (p *HeaderProbe) Kind() model.VulnerabilityKind {
	return model.KindMissingSecurityHeader
}

// Check examines the page's response headers.
func (p *HeaderProbe) Check(_ context.Context, target Target) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)
	page := target.Page

	for _, h := range securityHeaders {
		if h.httpsOnly && !page.IsHTTPS() {
			continue
		}
		if page.HasHeader(h.name) {
			continue
		}
		// A report-only policy still shows the site has a CSP in progress.
		if h.name == "Content-Security-Policy" && page.HasHeader("Content-Security-Policy-Report-Only") {
			continue
		}
		findings = append(findings, model.Finding{
			Kind:        model.KindMissingSecurityHeader,
			Description: fmt.Sprintf("Missing %s header", h.name),
			Severity:    h.severity,
		})
	}

	return findings, nil
}
