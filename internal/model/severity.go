package model

import (
	"fmt"
	"strings"
)

// Severity represents the risk level of a finding.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// the lowercase wire form used in reports and the HTTP API.
type Severity int

const (
	// SeverityLow indicates hardening gaps with limited direct impact.
	// Examples: missing X-Content-Type-Options, version banners.
	SeverityLow Severity = iota

	// SeverityMedium indicates weaknesses that enable attacks under some conditions.
	// Examples: missing CSP, session cookies without HttpOnly.
	SeverityMedium

	// SeverityHigh indicates weaknesses that are likely exploitable as found.
	// Examples: unescaped reflected input, confirmed open redirects, exposed .git.
	SeverityHigh
)

// String returns the lowercase name of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity as its lowercase name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name (case-insensitive).
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a severity name into a Severity.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	default:
		return SeverityLow, fmt.Errorf("unknown severity %q", name)
	}
}

// Severities returns all severity levels from most to least severe.
func Severities() []Severity {
	return []Severity{SeverityHigh, SeverityMedium, SeverityLow}
}
