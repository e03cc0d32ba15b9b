package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/devscan/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MarkdownWriter outputs reports in Markdown format for sharing in
// issues, pull requests, and wikis.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeFindings(md, report)
	w.writeErrors(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the scan information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	md.H1("DevScan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + report.StartURL + "`"},
			{"Scan ID", "`" + report.ScanID + "`"},
			{"Scan Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration.Round(timeRounding).String()},
			{"Pages Scanned", strconv.Itoa(report.PagesScanned)},
			{"Status", statusText(report.Outcome)},
		},
	})
	md.PlainText("")
}

// statusText returns the status cell for the crawl outcome.
func statusText(outcome model.CrawlState) string {
	switch outcome {
	case model.CrawlBudgetExhausted:
		return "⚠️ Budget exhausted (partial results)"
	case model.CrawlAborted:
		return "❌ Aborted (partial results)"
	default:
		return "✅ Complete"
	}
}

// writeSummary writes the severity table, chart, and alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.Report) {
	md.H2("Severity Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🟠 High", strconv.Itoa(report.CountBySeverity(model.SeverityHigh))},
			{"🟡 Medium", strconv.Itoa(report.CountBySeverity(model.SeverityMedium))},
			{"🔵 Low", strconv.Itoa(report.CountBySeverity(model.SeverityLow))},
			{"**Total**", "**" + strconv.Itoa(report.TotalFindings()) + "**"},
		},
	})
	md.PlainText("")

	if report.HasFindings() {
		w.writePieChart(md, report)
	}
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of findings per severity.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.Report) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	for _, s := range model.Severities() {
		if count := report.CountBySeverity(s); count > 0 {
			chart.LabelAndIntValue(titleCase(s.String()), uint64(count))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes a GitHub alert matching the worst severity found.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.Report) {
	high := report.CountBySeverity(model.SeverityHigh)
	medium := report.CountBySeverity(model.SeverityMedium)

	switch {
	case high > 0:
		md.Warningf("High severity issues detected. %d finding(s) are likely exploitable as found.", high)
	case medium > 0:
		md.Importantf("Medium severity issues found. %d finding(s) weaken the application's defenses.", medium)
	case report.HasFindings():
		md.Note("Only low severity findings detected.")
	default:
		md.Tip("No vulnerabilities detected on the scanned pages.")
	}
	md.PlainText("")
}

// writeFindings writes one section per vulnerability kind.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.Report) {
	md.H2("Findings")
	md.PlainText("")

	if !report.HasFindings() {
		md.PlainText("No security findings detected.")
		md.PlainText("")
		return
	}

	for _, kind := range model.Kinds() {
		rows := findingRows(report, kind)
		if len(rows) == 0 {
			continue
		}

		info := model.GetKindInfo(kind)
		md.PlainText("### " + kindTitle(kind))
		md.PlainText("")
		md.PlainTextf("**Impact:** %s", info.Impact)
		md.PlainText("")
		md.PlainTextf("**Recommendation:** %s", info.Recommendation)
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Page", "Description", "Severity", "Evidence"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// findingRows returns table rows for every finding of kind, by page URL.
func findingRows(report *model.Report, kind model.VulnerabilityKind) [][]string {
	var rows [][]string
	for _, url := range report.URLs() {
		for _, f := range report.Vulnerabilities[url] {
			if f.Kind != kind {
				continue
			}
			evidence := f.Evidence
			if evidence == "" {
				evidence = "-"
			}
			rows = append(rows, []string{
				truncateString(url, 60),
				f.Description,
				f.Severity.String(),
				"`" + truncateString(strings.ReplaceAll(evidence, "`", "'"), 50) + "`",
			})
		}
	}
	return rows
}

// writeErrors lists the URLs that could not be fetched.
func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, report *model.Report) {
	if len(report.Errors) == 0 {
		return
	}

	md.H2("Fetch Errors")
	md.PlainText("")

	rows := make([][]string, 0, len(report.Errors))
	for _, e := range report.Errors {
		rows = append(rows, []string{truncateString(e.URL, 60), e.Kind, truncateString(e.Message, 80)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [DevScan](https://github.com/nao1215/devscan)*")
}

// kindTitle turns "missing_security_header" into "Missing Security Header".
func kindTitle(kind model.VulnerabilityKind) string {
	return titleCase(strings.ReplaceAll(kind.String(), "_", " "))
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
