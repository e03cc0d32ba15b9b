package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/nao1215/devscan/internal/model"
)

// sensitivePaths are path suffixes of files that should never be public.
var sensitivePaths = []string{
	"/.git/head",
	"/.git/config",
	"/.env",
	"/.htpasswd",
	"/id_rsa",
	"/backup.zip",
	"/db_dump.sql",
	"/config.php.bak",
	"/wp-config.php.bak",
}

// adminSegments are path segments that usually lead to an admin panel.
var adminSegments = []string{
	"admin", "administrator", "wp-admin", "login", "cpanel", "dashboard",
}

// versionRegex matches a product/version token such as nginx/1.18.0 or PHP/8.1.
var versionRegex = regexp.MustCompile(`[A-Za-z][\w.-]*/\d+(\.\d+)*`)

// directoryListingMarkers are lowercase fragments of auto-index pages.
var directoryListingMarkers = []string{
	"<title>index of /",
	"<h1>index of /",
	"directory listing for /",
}

// DisclosureProbe reports information leaks visible in a fetched page:
// versioned server banners, technology headers, directory listings,
// sensitive files served successfully, admin panel paths and pages that
// refused access with 401 or 403.
//
// Design decision: This probe is passive. It classifies pages the crawler
// reached instead of guessing paths, so a scan never requests a URL the
// site itself does not link to.
type DisclosureProbe struct{}

// NewDisclosureProbe creates a new DisclosureProbe.
func NewDisclosureProbe() *DisclosureProbe {
	return &DisclosureProbe{}
}

// Name returns the probe name.
func (p *DisclosureProbe) Name() string {
	return "disclosure"
}

// Kind returns the vulnerability kind.
func (p *DisclosureProbe) Kind() model.VulnerabilityKind {
	return model.KindInformationDisclosure
}

// Check examines headers, body and URL of the page.
func (p *DisclosureProbe) Check(_ context.Context, target Target) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)
	page := target.Page

	if server := page.Header("Server"); server != "" && versionRegex.MatchString(server) {
		findings = append(findings, model.Finding{
			Kind:        model.KindInformationDisclosure,
			Description: fmt.Sprintf("Server banner: %s", model.Truncate(server, 80)),
			Evidence:    model.Truncate(server, model.MaxEvidenceSize),
			Severity:    model.SeverityLow,
		})
	}

	if poweredBy := page.Header("X-Powered-By"); poweredBy != "" {
		findings = append(findings, model.Finding{
			Kind:        model.KindInformationDisclosure,
			Description: fmt.Sprintf("X-Powered-By header reveals %s", model.Truncate(poweredBy, 80)),
			Evidence:    model.Truncate(poweredBy, model.MaxEvidenceSize),
			Severity:    model.SeverityLow,
		})
	}

	if page.Status == http.StatusOK && page.IsHTML() && isDirectoryListing(page.Body) {
		findings = append(findings, model.Finding{
			Kind:        model.KindInformationDisclosure,
			Description: "Directory listing enabled",
			Severity:    model.SeverityMedium,
		})
	}

	u, err := url.Parse(page.URL)
	if err != nil {
		return findings, nil
	}
	path := strings.ToLower(u.Path)

	if page.Status == http.StatusOK {
		for _, sensitive := range sensitivePaths {
			if strings.HasSuffix(path, sensitive) {
				findings = append(findings, model.Finding{
					Kind:        model.KindInformationDisclosure,
					Description: "Sensitive file accessible",
					Evidence:    u.Path,
					Severity:    model.SeverityHigh,
				})
				break
			}
		}
	}

	if segment, ok := adminSegment(path); ok && page.Status < http.StatusInternalServerError {
		findings = append(findings, model.Finding{
			Kind:        model.KindInformationDisclosure,
			Description: "Admin panel path detected",
			Evidence:    fmt.Sprintf("/%s (status %d)", segment, page.Status),
			Severity:    model.SeverityLow,
		})
	}

	if f := statusNote(page); f != nil {
		findings = append(findings, *f)
	}

	return findings, nil
}

// statusNote reports a page the crawler reached but was refused, which
// tells the site owner where access control is in place.
func statusNote(page *model.FetchResult) *model.Finding {
	switch page.Status {
	case http.StatusUnauthorized:
		evidence := "HTTP 401"
		if challenge := page.Header("WWW-Authenticate"); challenge != "" {
			evidence += " WWW-Authenticate: " + challenge
		}
		return &model.Finding{
			Kind:        model.KindInformationDisclosure,
			Description: "Requires authentication (401)",
			Evidence:    model.Truncate(evidence, model.MaxEvidenceSize),
			Severity:    model.SeverityLow,
		}
	case http.StatusForbidden:
		return &model.Finding{
			Kind:        model.KindInformationDisclosure,
			Description: "Forbidden (403)",
			Evidence:    "HTTP 403",
			Severity:    model.SeverityLow,
		}
	default:
		return nil
	}
}

// isDirectoryListing reports whether body looks like a server auto-index.
func isDirectoryListing(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range directoryListingMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// adminSegment returns the first admin-like segment of path.
func adminSegment(path string) (string, bool) {
	for _, segment := range strings.Split(path, "/") {
		for _, admin := range adminSegments {
			if segment == admin {
				return segment, true
			}
		}
	}
	return "", false
}
