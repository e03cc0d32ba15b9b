// Package crawler discovers the pages of a web application and hands each
// one to the probe engine.
//
// # Architecture
//
// The crawler package is designed around the Spider type, which coordinates
// the crawling process. It pulls URLs from a Frontier, fetches them through
// a Fetcher, runs the probes, and refills the Frontier with the links and
// GET form submissions the Parser finds.
//
// Design decision: The crawl is breadth-first and sequential because:
//  1. Shallow pages are the most valuable when a budget cuts the crawl short
//  2. The frontier and visited set need no locking
//  3. Per-host rate limiting lives in the fetcher either way
//
// # Components
//
//   - Spider: state machine Idle, Running, then Completed, BudgetExhausted or Aborted
//   - Frontier: FIFO queue with normalized-URL deduplication and scope rules
//   - Parser: HTML link and form extraction, plus robots.txt and sitemap parsing
//
// # Scope
//
// By default only the start URL's host is crawled. Subdomain following
// widens the scope to the registrable domain (via the public suffix list),
// and ignore/follow path globs narrow it further.
//
// # Usage
//
//	spider := crawler.NewSpider(f, aggregator,
//	    crawler.WithMaxDepth(3),
//	    crawler.WithProber(engine),
//	)
//	result, err := spider.Crawl(ctx, "https://app.example.com/")
package crawler
