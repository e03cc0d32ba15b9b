// Package probe implements the vulnerability checks DevScan runs on every
// fetched page.
//
// # Architecture
//
// Each check is a Probe. The Engine runs the registered probes in a fixed
// order and concatenates their findings, so a page's findings are grouped
// by probe and stable across runs. A probe that fails is logged and
// skipped without affecting the others.
//
// The built-in probes, in order:
//
//   - headers: missing Content-Security-Policy, X-Frame-Options,
//     X-Content-Type-Options, and Strict-Transport-Security (https only)
//   - cookies: Set-Cookie without Secure, HttpOnly or SameSite
//   - reflection: canary injection into query parameters and form fields
//   - redirect: open redirect parameters and redirect chains
//   - disclosure: server banners, directory listings, exposed files
//
// # Active probes
//
// The reflection and redirect probes send extra requests. They share a
// per-page Budget, never run past the scan deadline, and the reflection
// probe keeps at most a fixed number of requests in flight.
//
// # Usage
//
//	engine := probe.NewDefaultEngine(f, opts, probe.WithEngineLogger(logger))
//	findings := engine.RunAll(ctx, probe.Target{Page: page, Forms: forms})
package probe
