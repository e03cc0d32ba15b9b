package report

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/nao1215/devscan/internal/model"
)

// Risk directions reported by Compare.
const (
	RiskImproved  = "improved"
	RiskWorsened  = "worsened"
	RiskUnchanged = "unchanged"
)

// ErrUnknownReportFormat is returned when a document is neither a scan
// response nor a full JSON report.
var ErrUnknownReportFormat = errors.New("unrecognized report format")

// SnapshotFinding is one finding on one page, as read back from a saved report.
type SnapshotFinding struct {
	URL         string `json:"url"`
	Description string `json:"description"`

	// Kind and Severity are empty when the report was saved in the
	// description-only response format.
	Kind     string `json:"kind,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// Snapshot is a saved report reduced to what comparisons need.
type Snapshot struct {
	StartURL     string            `json:"start_url"`
	PagesScanned int               `json:"pages_scanned"`
	Findings     []SnapshotFinding `json:"findings"`
}

// snapshotDocument accepts both the response format and the full format.
type snapshotDocument struct {
	StartURL        string              `json:"start_url"`
	PagesScanned    int                 `json:"pages_scanned"`
	Vulnerabilities map[string][]string `json:"vulnerabilities"`
	Report          *struct {
		StartURL        string                     `json:"start_url"`
		PagesScanned    int                        `json:"pages_scanned"`
		Vulnerabilities map[string][]model.Finding `json:"vulnerabilities"`
	} `json:"report"`
}

// LoadSnapshot reads a report written by JSONWriter, FullJSONWriter, or
// downloaded from the API.
func LoadSnapshot(r io.Reader) (*Snapshot, error) {
	var doc snapshotDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}

	snap := &Snapshot{}
	switch {
	case doc.Report != nil:
		snap.StartURL = doc.Report.StartURL
		snap.PagesScanned = doc.Report.PagesScanned
		for url, findings := range doc.Report.Vulnerabilities {
			for _, f := range findings {
				snap.Findings = append(snap.Findings, SnapshotFinding{
					URL:         url,
					Description: f.Description,
					Kind:        f.Kind.String(),
					Severity:    f.Severity.String(),
				})
			}
		}
	case doc.Vulnerabilities != nil:
		snap.StartURL = doc.StartURL
		snap.PagesScanned = doc.PagesScanned
		for url, descriptions := range doc.Vulnerabilities {
			for _, d := range descriptions {
				snap.Findings = append(snap.Findings, SnapshotFinding{URL: url, Description: d})
			}
		}
	default:
		return nil, ErrUnknownReportFormat
	}

	sortSnapshotFindings(snap.Findings)
	return snap, nil
}

// Comparison is the difference between two snapshots of the same application.
type Comparison struct {
	StartURL         string            `json:"start_url"`
	PreviousTotal    int               `json:"previous_total"`
	CurrentTotal     int               `json:"current_total"`
	NewFindings      []SnapshotFinding `json:"new_findings"`
	ResolvedFindings []SnapshotFinding `json:"resolved_findings"`
	UnchangedCount   int               `json:"unchanged_count"`
	Direction        string            `json:"direction"`
}

// Compare reports which findings appeared and which disappeared between
// previous and current. Findings are matched by page URL and description.
func Compare(previous, current *Snapshot) *Comparison {
	result := &Comparison{
		StartURL:         current.StartURL,
		PreviousTotal:    len(previous.Findings),
		CurrentTotal:     len(current.Findings),
		NewFindings:      []SnapshotFinding{},
		ResolvedFindings: []SnapshotFinding{},
	}

	prev := make(map[string]struct{}, len(previous.Findings))
	for _, f := range previous.Findings {
		prev[findingKey(f)] = struct{}{}
	}
	curr := make(map[string]struct{}, len(current.Findings))
	for _, f := range current.Findings {
		curr[findingKey(f)] = struct{}{}
	}

	for _, f := range current.Findings {
		if _, ok := prev[findingKey(f)]; !ok {
			result.NewFindings = append(result.NewFindings, f)
		}
	}
	for _, f := range previous.Findings {
		if _, ok := curr[findingKey(f)]; ok {
			result.UnchangedCount++
		} else {
			result.ResolvedFindings = append(result.ResolvedFindings, f)
		}
	}

	prevScore, currScore := riskScore(previous.Findings), riskScore(current.Findings)
	switch {
	case currScore < prevScore:
		result.Direction = RiskImproved
	case currScore > prevScore:
		result.Direction = RiskWorsened
	default:
		result.Direction = RiskUnchanged
	}

	return result
}

func findingKey(f SnapshotFinding) string {
	return f.URL + "|" + f.Description
}

// riskScore weights findings by severity. Findings without a severity
// count as low.
func riskScore(findings []SnapshotFinding) int {
	score := 0
	for _, f := range findings {
		switch f.Severity {
		case model.SeverityHigh.String():
			score += 50
		case model.SeverityMedium.String():
			score += 10
		default:
			score += 5
		}
	}
	return score
}

func sortSnapshotFindings(findings []SnapshotFinding) {
	slices.SortFunc(findings, func(a, b SnapshotFinding) int {
		return cmp.Or(cmp.Compare(a.URL, b.URL), cmp.Compare(a.Description, b.Description))
	})
}
