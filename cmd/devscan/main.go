// Package main provides the entry point for the DevScan CLI.
//
// DevScan crawls a web application from a start URL and reports missing
// security headers, insecure cookies, reflected input, open redirects,
// and information disclosure for every page it reaches.
//
// Usage:
//
//	devscan scan https://app.example.com/
//	devscan serve --addr 127.0.0.1:5000
//
// See --help for all available options.
package main

func main() {
	Execute()
}
