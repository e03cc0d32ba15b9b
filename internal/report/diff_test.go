package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/devscan/internal/model"
)

func TestLoadSnapshot(t *testing.T) {
	t.Parallel()

	rep := &model.Report{
		StartURL:     "http://example.test/",
		PagesScanned: 2,
		Vulnerabilities: map[string][]model.Finding{
			"http://example.test/b": {{
				Kind:        model.KindReflectedInput,
				Description: "Reflected input in parameter q",
				Severity:    model.SeverityHigh,
			}},
			"http://example.test/a": {{
				Kind:        model.KindMissingSecurityHeader,
				Description: "Missing X-Frame-Options header",
				Severity:    model.SeverityMedium,
			}},
		},
		Errors: []model.ErrorEntry{},
	}

	t.Run("response format", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(rep); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		snap, err := LoadSnapshot(&buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap.StartURL != "http://example.test/" || snap.PagesScanned != 2 {
			t.Errorf("unexpected snapshot header: %+v", snap)
		}
		if len(snap.Findings) != 2 || snap.Findings[0].URL != "http://example.test/a" {
			t.Fatalf("findings = %+v", snap.Findings)
		}
		if snap.Findings[0].Severity != "" {
			t.Errorf("response format carries no severity, got %q", snap.Findings[0].Severity)
		}
	})

	t.Run("full format", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "v1.0.0").Write(rep); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		snap, err := LoadSnapshot(&buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(snap.Findings) != 2 {
			t.Fatalf("findings = %+v", snap.Findings)
		}
		got := snap.Findings[1]
		if got.Kind != "reflected_input" || got.Severity != "high" {
			t.Errorf("finding = %+v", got)
		}
	})

	t.Run("unknown document", func(t *testing.T) {
		t.Parallel()

		_, err := LoadSnapshot(strings.NewReader(`{"hello": "world"}`))
		if !errors.Is(err, ErrUnknownReportFormat) {
			t.Errorf("expected ErrUnknownReportFormat, got %v", err)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadSnapshot(strings.NewReader(`{`)); err == nil {
			t.Error("expected error")
		}
	})
}

func TestCompare(t *testing.T) {
	t.Parallel()

	xfo := SnapshotFinding{URL: "http://example.test/", Description: "Missing X-Frame-Options header", Severity: "medium"}
	csp := SnapshotFinding{URL: "http://example.test/", Description: "Missing Content-Security-Policy header", Severity: "medium"}
	xss := SnapshotFinding{URL: "http://example.test/search", Description: "Reflected input in parameter q", Severity: "high"}

	tests := []struct {
		name          string
		previous      []SnapshotFinding
		current       []SnapshotFinding
		wantNew       int
		wantResolved  int
		wantUnchanged int
		wantDirection string
	}{
		{
			name:          "identical",
			previous:      []SnapshotFinding{xfo, csp},
			current:       []SnapshotFinding{xfo, csp},
			wantUnchanged: 2,
			wantDirection: RiskUnchanged,
		},
		{
			name:          "fixed a header",
			previous:      []SnapshotFinding{xfo, csp},
			current:       []SnapshotFinding{xfo},
			wantResolved:  1,
			wantUnchanged: 1,
			wantDirection: RiskImproved,
		},
		{
			name:          "new reflected input",
			previous:      []SnapshotFinding{xfo},
			current:       []SnapshotFinding{xfo, xss},
			wantNew:       1,
			wantUnchanged: 1,
			wantDirection: RiskWorsened,
		},
		{
			name:          "swap two mediums for one high",
			previous:      []SnapshotFinding{xfo, csp},
			current:       []SnapshotFinding{xss},
			wantNew:       1,
			wantResolved:  2,
			wantDirection: RiskWorsened,
		},
		{
			name:          "both empty",
			wantDirection: RiskUnchanged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Compare(&Snapshot{Findings: tt.previous}, &Snapshot{StartURL: "http://example.test/", Findings: tt.current})
			if len(got.NewFindings) != tt.wantNew {
				t.Errorf("new = %d, want %d", len(got.NewFindings), tt.wantNew)
			}
			if len(got.ResolvedFindings) != tt.wantResolved {
				t.Errorf("resolved = %d, want %d", len(got.ResolvedFindings), tt.wantResolved)
			}
			if got.UnchangedCount != tt.wantUnchanged {
				t.Errorf("unchanged = %d, want %d", got.UnchangedCount, tt.wantUnchanged)
			}
			if got.Direction != tt.wantDirection {
				t.Errorf("direction = %q, want %q", got.Direction, tt.wantDirection)
			}
			if got.NewFindings == nil || got.ResolvedFindings == nil {
				t.Error("finding lists must be non-nil")
			}
		})
	}
}
