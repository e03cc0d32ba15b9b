package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/devscan/internal/report"
)

// writeReport stores a description-only report in dir.
func writeReport(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
	return path
}

// TestRunCompareCmd tests comparisons between saved reports.
func TestRunCompareCmd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	previous := writeReport(t, dir, "previous.json", `{
  "start_url": "http://localhost:8080/",
  "pages_scanned": 2,
  "vulnerabilities": {
    "http://localhost:8080/": ["Missing X-Frame-Options header", "Missing Content-Security-Policy header"],
    "http://localhost:8080/about": []
  },
  "errors": []
}`)
	current := writeReport(t, dir, "current.json", `{
  "start_url": "http://localhost:8080/",
  "pages_scanned": 2,
  "vulnerabilities": {
    "http://localhost:8080/": ["Missing X-Frame-Options header"],
    "http://localhost:8080/search": ["Reflected input in parameter q"]
  },
  "errors": []
}`)

	t.Run("text output", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := runCLI(t, "compare", previous, current)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{
			"Scan Comparison: http://localhost:8080/",
			"Findings: 2 -> 2 (0)",
			"New Findings (1):",
			"[+] Reflected input in parameter q",
			"Resolved Findings (1):",
			"[-] Missing Content-Security-Policy header",
			"Unchanged: 1 findings",
		} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, stdout)
			}
		}
	})

	t.Run("json output", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := runCLI(t, "compare", "--json", previous, current)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got report.Comparison
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(got.NewFindings) != 1 || got.NewFindings[0].URL != "http://localhost:8080/search" {
			t.Errorf("new findings = %+v", got.NewFindings)
		}
		if got.UnchangedCount != 1 || got.Direction != report.RiskUnchanged {
			t.Errorf("unexpected comparison: %+v", got)
		}
	})

	t.Run("markdown output", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := runCLI(t, "compare", "-m", previous, current)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"# Scan Comparison", "## New Findings (1)", "## Resolved Findings (1)"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, stdout)
			}
		}
	})

	t.Run("fail on new", func(t *testing.T) {
		t.Parallel()

		_, _, err := runCLI(t, "compare", "--fail-on-new", previous, current)
		if !errors.Is(err, errNewFindings) {
			t.Errorf("expected errNewFindings, got %v", err)
		}

		if _, _, err := runCLI(t, "compare", "--fail-on-new", current, current); err != nil {
			t.Errorf("identical reports must pass, got %v", err)
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		t.Parallel()

		if _, _, err := runCLI(t, "compare", "-j", "-m", previous, current); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("missing and invalid files", func(t *testing.T) {
		t.Parallel()

		if _, _, err := runCLI(t, "compare", filepath.Join(dir, "nope.json"), current); err == nil {
			t.Error("expected error for missing file")
		}

		invalid := writeReport(t, t.TempDir(), "invalid.json", `{"hello": "world"}`)
		_, _, err := runCLI(t, "compare", invalid, current)
		if !errors.Is(err, report.ErrUnknownReportFormat) {
			t.Errorf("expected ErrUnknownReportFormat, got %v", err)
		}
	})

	t.Run("requires two arguments", func(t *testing.T) {
		t.Parallel()

		if _, _, err := runCLI(t, "compare", previous); err == nil {
			t.Error("expected argument error")
		}
	})
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := map[int]string{3: "+3", 0: "0", -2: "-2"}
	for in, want := range tests {
		if got := formatDelta(in); got != want {
			t.Errorf("formatDelta(%d) = %q, want %q", in, got, want)
		}
	}
}
