package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/devscan/internal/model"
)

func scrape(t *testing.T, r *Recorder) string {
	t.Helper()

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("failed to scrape: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(body)
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	r, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	r.PageFetched(120*time.Millisecond, nil)
	r.PageFetched(0, model.NewFetchError(model.FetchTimeout, "http://example.test/", nil))
	r.PageFetched(0, errors.New("other"))
	r.ProbeFailed("reflection", errors.New("boom"))
	r.ScanFinished(&model.Report{
		Outcome:  model.CrawlCompleted,
		Duration: 2 * time.Second,
		Vulnerabilities: map[string][]model.Finding{
			"http://example.test/": {
				{Kind: model.KindMissingSecurityHeader, Severity: model.SeverityMedium},
				{Kind: model.KindMissingSecurityHeader, Severity: model.SeverityMedium},
			},
		},
	}, nil)
	r.ScanFinished(nil, model.NewInvalidURLError("URL must start with http:// or https://"))
	r.ScanFinished(nil, model.NewInternalError(errors.New("panic")))

	body := scrape(t, r)
	for _, want := range []string{
		`devscan_pages_fetched_total{result="ok"} 1`,
		`devscan_pages_fetched_total{result="timeout"} 1`,
		`devscan_pages_fetched_total{result="error"} 1`,
		`devscan_probe_errors_total{probe="reflection"} 1`,
		`devscan_scans_total{outcome="completed"} 1`,
		`devscan_scans_total{outcome="rejected"} 1`,
		`devscan_scans_total{outcome="failed"} 1`,
		`devscan_findings_total{kind="missing_security_header",severity="medium"} 2`,
		`devscan_scan_duration_seconds_count 1`,
		`devscan_fetch_duration_seconds_count 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics to contain %q", want)
		}
	}
}

func TestRecordersAreIndependent(t *testing.T) {
	t.Parallel()

	a, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b, err := New()
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}

	a.ProbeFailed("headers", nil)
	if strings.Contains(scrape(t, b), `probe="headers"`) {
		t.Error("metrics leaked between registries")
	}
}
