// Package scan wires the fetcher, crawler, probe engine, and report
// aggregator into a single scan.
//
// Orchestrator.Run validates the request, builds fresh per-scan components,
// enforces the time budget, and turns crawl failures into *model.ScanError.
// Batch runs several scans concurrently for the CLI.
//
// Usage:
//
//	orch := scan.New(scan.WithLogger(logger))
//	rep, err := orch.Run(ctx, model.NewScanRequest("https://app.example.com/"))
//	if model.IsInputError(err) {
//	    // reject the request
//	}
package scan
