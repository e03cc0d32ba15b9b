package report

import (
	"io"
	"time"

	"github.com/nao1215/devscan/internal/model"
)

// Writer renders a scan report to some destination.
//
// Design decision: We use an interface so the CLI can pick text, JSON,
// or Markdown output and fan out to several destinations with the same call.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.Report) (int, error)
}

// MultiWriter writes the same report to several Writers in order.
// It stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to every configured Writer and returns the
// total number of bytes written.
func (m *MultiWriter) Write(report *model.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// timeRounding is the precision of durations shown in human-readable reports.
const timeRounding = time.Millisecond

// baseWriter holds the destination shared by all writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
