// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// A scanner handles other people's session cookies, bearer tokens and
// password-reset links as a matter of course, so every logger DevScan creates
// goes through SecureHandler:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (JWTs, bearer tokens, PEM keys)
//   - Sensitive query parameters inside logged URLs (token, session, ...)
//
// Even in verbose mode, sensitive values are masked.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Info("fetched",
//	    "url", "https://app.test/reset?token=abc", // token value is masked
//	    "cookie", "session=abc123",                 // masked entirely
//	)
package log
