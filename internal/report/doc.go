// Package report collects scan results and renders them.
//
// The Aggregator is the only shared mutable state of a scan: the crawler
// records each page's findings or fetch error into it, and Finalize turns
// it into a read-only model.Report.
//
// Writers render a finished report:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: the scan API wire format (start_url, pages_scanned,
//     vulnerabilities, errors)
//   - FullJSONWriter: the complete report with kinds, severities, and evidence
//   - MarkdownWriter: a shareable document with a severity chart
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed with MultiWriter.
package report
