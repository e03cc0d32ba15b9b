// Package config provides configuration structures and utilities for DevScan.
// It defines the command-line options for scanning, the optional YAML file
// with per-site overrides (cookies, headers, depth, URL patterns), and the
// conversion of both into model.ScanOptions for one target.
package config
