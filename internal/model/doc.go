// Package model defines the core data structures used throughout DevScan.
//
// This package contains the following main types:
//   - ScanRequest and ScanOptions: the immutable input of one scan
//   - FetchResult and Form: what the fetcher and extractor produce per page
//   - Finding: a single detected weakness with kind, evidence, and severity
//   - Report: the aggregated, read-only outcome of a scan
//   - FetchError and ScanError: the typed error taxonomy
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, probe, report, and scan packages all exchange
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// the HTTP API.
package model
