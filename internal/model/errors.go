package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching against FetchError and ScanError.
//
// Design decision: We expose one sentinel per error kind and implement Is on
// the typed errors, so callers can write errors.Is(err, model.ErrTimeout)
// without type assertions while still getting the URL from errors.As.
var (
	// ErrTimeout is matched by fetches that exceeded the request timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrConnectionRefused is matched by fetches whose TCP connect was refused.
	ErrConnectionRefused = errors.New("connection refused")

	// ErrTooManyRedirects is matched by fetches that exceeded MaxRedirects.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrInvalidScheme is matched by fetches of non-http(s) URLs.
	ErrInvalidScheme = errors.New("unsupported URL scheme")

	// ErrNetwork is matched by any other transport failure (DNS, TLS, reset).
	ErrNetwork = errors.New("network error")

	// ErrInvalidURL is matched by scans rejected before any I/O.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInternal is matched by scans that failed for reasons other than input.
	ErrInternal = errors.New("internal error")
)

// FetchErrorKind classifies fetch failures.
type FetchErrorKind int

const (
	// FetchTimeout means the request timeout elapsed.
	FetchTimeout FetchErrorKind = iota
	// FetchConnectionRefused means the server refused the connection.
	FetchConnectionRefused
	// FetchTooManyRedirects means more than MaxRedirects hops were needed.
	FetchTooManyRedirects
	// FetchInvalidScheme means the URL was not http or https.
	FetchInvalidScheme
	// FetchNetwork covers DNS, TLS, and other transport failures.
	FetchNetwork
)

// String returns the snake_case name of the kind.
func (k FetchErrorKind) String() string {
	switch k {
	case FetchTimeout:
		return "timeout"
	case FetchConnectionRefused:
		return "connection_refused"
	case FetchTooManyRedirects:
		return "too_many_redirects"
	case FetchInvalidScheme:
		return "invalid_scheme"
	case FetchNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// sentinel returns the errors.Is target for the kind.
func (k FetchErrorKind) sentinel() error {
	switch k {
	case FetchTimeout:
		return ErrTimeout
	case FetchConnectionRefused:
		return ErrConnectionRefused
	case FetchTooManyRedirects:
		return ErrTooManyRedirects
	case FetchInvalidScheme:
		return ErrInvalidScheme
	default:
		return ErrNetwork
	}
}

// FetchError describes a failed fetch. It never aborts a scan; the crawler
// records it against the URL and moves on.
type FetchError struct {
	// Kind classifies the failure.
	Kind FetchErrorKind

	// URL is the URL that was being fetched.
	URL string

	// Err is the underlying transport error, if any.
	Err error
}

// NewFetchError creates a FetchError.
func NewFetchError(kind FetchErrorKind, rawURL string, err error) *FetchError {
	return &FetchError{Kind: kind, URL: rawURL, Err: err}
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.sentinel(), e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.sentinel(), e.URL)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *FetchError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// ScanErrorKind classifies errors that escape a scan.
type ScanErrorKind int

const (
	// ScanInvalidURL means the request was rejected before any I/O.
	ScanInvalidURL ScanErrorKind = iota
	// ScanInternal means the scan failed and partial results were discarded.
	ScanInternal
)

// String returns the snake_case name of the kind.
func (k ScanErrorKind) String() string {
	switch k {
	case ScanInvalidURL:
		return "invalid_url"
	case ScanInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// ScanError is the only error type returned by a scan. Fetch failures and
// probe failures never surface as ScanError.
type ScanError struct {
	// Kind classifies the failure.
	Kind ScanErrorKind

	// Message is safe to show to the API caller.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// NewInvalidURLError creates an input error with the given message.
func NewInvalidURLError(message string) *ScanError {
	return &ScanError{Kind: ScanInvalidURL, Message: message}
}

// NewInternalError wraps err as an internal scan failure.
func NewInternalError(err error) *ScanError {
	return &ScanError{Kind: ScanInternal, Message: err.Error(), Err: err}
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *ScanError) Unwrap() error {
	return e.Err
}

// Is matches ErrInvalidURL or ErrInternal according to the kind.
func (e *ScanError) Is(target error) bool {
	switch e.Kind {
	case ScanInvalidURL:
		return target == ErrInvalidURL
	case ScanInternal:
		return target == ErrInternal
	default:
		return false
	}
}

// IsInputError reports whether err is a ScanError caused by bad input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidURL)
}
