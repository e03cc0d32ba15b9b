package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/devscan/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty lists pages that have no findings.
	showEmpty bool

	// verbose adds evidence and remediation text.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to list clean pages too.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables evidence and remediation output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writePages(&sb, report)
	w.writeErrors(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          DEVSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Start URL:      %s\n", report.StartURL)
	fmt.Fprintf(sb, "Scan Date:      %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:       %s\n", report.Duration.Round(timeRounding))
	fmt.Fprintf(sb, "Pages Scanned:  %d\n", report.PagesScanned)

	switch report.Outcome {
	case model.CrawlBudgetExhausted:
		sb.WriteString("Status:         BUDGET EXHAUSTED (partial results)\n")
	case model.CrawlAborted:
		sb.WriteString("Status:         ABORTED (partial results)\n")
	default:
		sb.WriteString("Status:         Complete\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.Report) {
	writeSection(sb, "SEVERITY SUMMARY")

	for _, s := range model.Severities() {
		fmt.Fprintf(sb, "  %-8s %d\n", strings.ToUpper(s.String())+":", report.CountBySeverity(s))
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:   %d findings on %d page(s)\n\n", report.TotalFindings(), len(report.AffectedPages()))
}

// writePages lists findings page by page in URL order.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.Report) {
	if !report.HasFindings() && !w.showEmpty {
		return
	}

	writeSection(sb, "FINDINGS")

	for _, url := range report.URLs() {
		findings := report.Vulnerabilities[url]
		if len(findings) == 0 {
			if w.showEmpty {
				fmt.Fprintf(sb, "%s\n  No findings\n\n", url)
			}
			continue
		}

		fmt.Fprintf(sb, "%s\n", url)
		for _, f := range findings {
			fmt.Fprintf(sb, "  [%s] %s\n", severityIndicator(f.Severity), f.Description)
			if w.verbose && f.Evidence != "" {
				fmt.Fprintf(sb, "        Evidence: %s\n", f.Evidence)
			}
		}
		sb.WriteString("\n")
	}

	if w.verbose {
		w.writeRemediation(sb, report)
	}
}

// writeRemediation prints the recommendation for each kind that was found.
func (w *SimpleWriter) writeRemediation(sb *strings.Builder, report *model.Report) {
	writeSection(sb, "REMEDIATION")
	for _, kind := range model.Kinds() {
		if report.CountByKind(kind) == 0 {
			continue
		}
		fmt.Fprintf(sb, "  * %s: %s\n", kindTitle(kind), model.GetKindInfo(kind).Recommendation)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeErrors(sb *strings.Builder, report *model.Report) {
	if len(report.Errors) == 0 {
		return
	}

	writeSection(sb, "FETCH ERRORS")
	for _, e := range report.Errors {
		fmt.Fprintf(sb, "  [x] %s\n      %s\n", e.URL, e.Message)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by DevScan\n")
	sb.WriteString("https://github.com/nao1215/devscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// severityIndicator returns a visual marker for the severity level.
func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	default:
		return "?"
	}
}
