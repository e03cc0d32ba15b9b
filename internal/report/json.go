package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/devscan/internal/model"
)

// JSONWriter writes reports in the scan API's wire format.
//
// Design decision: Both the CLI and the HTTP server emit the same shape
// (start_url, pages_scanned, vulnerabilities, errors), so a report saved
// from either can be posted back to the download endpoint.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report as a wire Response.
func (w *JSONWriter) Write(report *model.Report) (int, error) {
	return w.writeJSON(NewResponse(report))
}

// writeJSON marshals v and writes it followed by a newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps the full report, findings with kind, severity, and
// evidence included, together with the version that produced it.
type JSONReport struct {
	// Version is the DevScan version that generated this report.
	Version string `json:"version"`

	// Report is the full scan report.
	Report *model.Report `json:"report"`

	// Summary holds finding counts per severity.
	Summary map[string]int `json:"summary"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(report *model.Report, version string) *JSONReport {
	summary := make(map[string]int, len(model.Severities()))
	for _, s := range model.Severities() {
		summary[s.String()] = report.CountBySeverity(s)
	}
	return &JSONReport{
		Version: version,
		Report:  report,
		Summary: summary,
	}
}

// FullJSONWriter writes the complete report rather than the wire form.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the full report wrapped with metadata.
func (w *FullJSONWriter) Write(report *model.Report) (int, error) {
	return w.writeJSON(NewJSONReport(report, w.version))
}
