package model

import "fmt"

// VulnerabilityKind classifies a finding by the probe family that produced it.
//
// The declaration order is significant: reports list findings for a page
// grouped by kind in this order, so output stays stable across runs.
type VulnerabilityKind int

const (
	// KindMissingSecurityHeader marks an absent HTTP security header.
	KindMissingSecurityHeader VulnerabilityKind = iota

	// KindInsecureCookie marks a Set-Cookie without Secure, HttpOnly, or SameSite.
	KindInsecureCookie

	// KindReflectedInput marks a parameter echoed back without HTML escaping.
	KindReflectedInput

	// KindOpenRedirect marks a parameter that steers redirects off-site.
	KindOpenRedirect

	// KindInformationDisclosure marks banners, listings, and exposed files.
	KindInformationDisclosure
)

// kindNames are the stable identifiers used in JSON output.
var kindNames = map[VulnerabilityKind]string{
	KindMissingSecurityHeader: "missing_security_header",
	KindInsecureCookie:        "insecure_cookie",
	KindReflectedInput:        "reflected_input",
	KindOpenRedirect:          "open_redirect",
	KindInformationDisclosure: "information_disclosure",
}

// String returns the stable identifier of the kind.
func (k VulnerabilityKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the kind as its stable identifier.
func (k VulnerabilityKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a stable kind identifier.
func (k *VulnerabilityKind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown vulnerability kind %q", string(text))
}

// Kinds returns every kind in declared order.
func Kinds() []VulnerabilityKind {
	return []VulnerabilityKind{
		KindMissingSecurityHeader,
		KindInsecureCookie,
		KindReflectedInput,
		KindOpenRedirect,
		KindInformationDisclosure,
	}
}

// KindInfo contains reader-facing metadata about a vulnerability kind.
type KindInfo struct {
	Impact         string
	Recommendation string
}

// kindInfoMapping is the single source of impact and remediation text.
//
// Design decision: We keep this text out of the probes so that reports can
// explain a kind even when the probe that produced it is not registered.
var kindInfoMapping = map[VulnerabilityKind]KindInfo{
	KindMissingSecurityHeader: {
		Impact:         "Browsers fall back to permissive defaults, which widens the impact of XSS, clickjacking, and MIME sniffing.",
		Recommendation: "Send the missing header from the web server or application middleware on every HTML response.",
	},
	KindInsecureCookie: {
		Impact:         "Cookies can be read by scripts, sent over plaintext HTTP, or attached to cross-site requests.",
		Recommendation: "Set Secure, HttpOnly, and an explicit SameSite attribute on session and authentication cookies.",
	},
	KindReflectedInput: {
		Impact:         "Attacker-controlled input is rendered without encoding, which is the precondition for reflected XSS.",
		Recommendation: "Apply context-aware output encoding to every request parameter before writing it into the page.",
	},
	KindOpenRedirect: {
		Impact:         "Users can be bounced to an attacker-controlled site through a trusted URL, aiding phishing and token theft.",
		Recommendation: "Allow-list redirect destinations or accept only relative paths in redirect parameters.",
	},
	KindInformationDisclosure: {
		Impact:         "Version banners, directory listings, and exposed files help attackers map the stack and harvest secrets.",
		Recommendation: "Remove version banners, disable auto-indexing, and block public access to backups and VCS metadata.",
	},
}

// GetKindInfo returns the metadata for a kind.
func GetKindInfo(k VulnerabilityKind) KindInfo {
	if info, ok := kindInfoMapping[k]; ok {
		return info
	}
	return KindInfo{
		Impact:         "Unknown impact.",
		Recommendation: "Review this finding manually.",
	}
}

// Finding is one detected weakness on one page.
type Finding struct {
	// Kind is the probe family that produced the finding.
	Kind VulnerabilityKind `json:"kind"`

	// Description is the human-readable one-liner shown in the UI,
	// e.g. "Missing X-Frame-Options header".
	Description string `json:"description"`

	// Evidence is the observed value that triggered the finding
	// (header value, parameter name, reflected snippet). May be empty.
	Evidence string `json:"evidence,omitempty"`

	// Severity is the risk level.
	Severity Severity `json:"severity"`
}

// String returns the description, which is the wire rendering of a finding.
func (f Finding) String() string {
	return f.Description
}
