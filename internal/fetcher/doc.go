// Package fetcher retrieves pages for the crawler and probes.
//
// A Fetcher wraps http.Client with the policies every scan needs:
//   - a per-request timeout covering the whole redirect chain
//   - at most five redirects, with the chain recorded in the result
//   - rejection of non-http(s) URLs before any network I/O
//   - a token-bucket rate limit per host
//   - a response body cap and decoding of the body to UTF-8
//
// Every failure is returned as a *model.FetchError so that callers can
// record it against the URL and continue.
//
// # Usage
//
//	f, err := fetcher.New(fetcher.WithTimeout(10*time.Second))
//	if err != nil {
//	    return err
//	}
//	result, err := f.Fetch(ctx, "https://example.com/")
//	if errors.Is(err, model.ErrTimeout) {
//	    // record and move on
//	}
package fetcher
