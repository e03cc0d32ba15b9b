// Package server provides the DevScan HTTP API.
//
// Endpoints:
//   - POST /api/scan: body {"url": "..."}; runs a scan and returns
//     {"start_url", "pages_scanned", "vulnerabilities", "errors"}
//   - POST /api/download: echoes the posted JSON report, pretty-printed,
//     as the attachment DevScan_Report.json
//   - GET /healthz: liveness
//   - GET /metrics: Prometheus metrics, when a metrics handler is configured
//
// Errors are returned as {"error": "..."} with status 400 for bad input and
// 500 when the scan itself failed.
package server
