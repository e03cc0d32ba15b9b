package report

import "github.com/nao1215/devscan/internal/model"

// Response is the JSON body returned by the scan API and written by JSONWriter.
// Findings are flattened to their descriptions so clients can render them
// directly.
type Response struct {
	StartURL        string              `json:"start_url"`
	PagesScanned    int                 `json:"pages_scanned"`
	Vulnerabilities map[string][]string `json:"vulnerabilities"`
	Errors          []ResponseError     `json:"errors"`
}

// ResponseError is one failed fetch in a Response.
type ResponseError struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// NewResponse converts a report into its wire form. Every vulnerabilities
// value is a JSON array, never null.
func NewResponse(report *model.Report) *Response {
	resp := &Response{
		StartURL:        report.StartURL,
		PagesScanned:    report.PagesScanned,
		Vulnerabilities: make(map[string][]string, len(report.Vulnerabilities)),
		Errors:          make([]ResponseError, 0, len(report.Errors)),
	}

	for url, findings := range report.Vulnerabilities {
		descriptions := make([]string, 0, len(findings))
		for _, f := range findings {
			descriptions = append(descriptions, f.Description)
		}
		resp.Vulnerabilities[url] = descriptions
	}

	for _, e := range report.Errors {
		resp.Errors = append(resp.Errors, ResponseError{URL: e.URL, Error: e.Message})
	}

	return resp
}
