package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/devscan/internal/config"
	seclog "github.com/nao1215/devscan/internal/log"
	"github.com/nao1215/devscan/internal/model"
	"github.com/nao1215/devscan/internal/report"
	"github.com/nao1215/devscan/internal/scan"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Scan web applications for common vulnerabilities",
		Long: `Scan crawls each start URL and checks every reachable page for:
- Missing security headers (CSP, X-Frame-Options, X-Content-Type-Options, HSTS)
- Cookies without Secure, HttpOnly, or SameSite
- Request parameters reflected without HTML escaping
- Open redirects through URL parameters
- Version banners, directory listings, exposed files, and admin paths

Examples:
  # Scan a single application
  devscan scan http://localhost:8080/

  # Scan several applications, three at a time
  devscan scan --batch 3 https://a.example.com/ https://b.example.com/

  # Limit the crawl and write a Markdown report
  devscan scan -d 2 -p 50 --markdown -o report.md https://app.example.com/

  # Output the API's JSON format
  devscan scan --json https://app.example.com/

Configuration file (.devscan) example:
  defaults:
    ignorePatterns: ["/logout*"]
  sites:
    app.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 3`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	addCrawlFlags(cmd)

	// Batch scanning
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent scans")

	// Report
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().Bool("full", false,
		"With --json, include kinds, severities, and evidence")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := config.Load(cfg); err != nil {
		return err
	}
	if err := cfg.ValidateScan(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	out, closeOut, err := openOutput(cfg.ReportFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	r := &scanRunner{
		cfg:      cfg,
		logger:   logger,
		writer:   newReportWriter(cfg, full, out),
		progress: cmd.ErrOrStderr(),
		scanner:  scan.New(scan.WithLogger(logger)),
	}
	return r.run(ctx)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getJSONLogsFlag retrieves the json-logs flag from the command or its parent.
func getJSONLogsFlag(cmd *cobra.Command) bool {
	jsonLogs, err := cmd.Flags().GetBool("json-logs")
	if err != nil {
		jsonLogs, err = cmd.Root().PersistentFlags().GetBool("json-logs")
		if err != nil {
			return false
		}
	}
	return jsonLogs
}

// addCrawlFlags registers the flags shared by scan and serve.
func addCrawlFlags(cmd *cobra.Command) {
	// Crawl limits
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Duration("budget", config.DefaultScanBudget,
		"Time budget per scan (0 disables it)")
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum link distance from the start URL")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages fetched per scan")

	// Scope
	cmd.Flags().Bool("cross-origin", false,
		"Follow links to other origins")
	cmd.Flags().Bool("subdomains", false,
		"Follow links to subdomains of the start URL's registrable domain")
	cmd.Flags().Bool("well-known", false,
		"Also crawl /robots.txt and /sitemap.xml")

	// Request behavior
	cmd.Flags().Int("rate-limit", model.DefaultRateLimit,
		"Maximum requests per second per host (0 disables it)")
	cmd.Flags().Int("probe-budget", model.DefaultProbeBudget,
		"Canary requests allowed per page (0 disables active probes)")
	cmd.Flags().Int("probe-workers", model.DefaultProbeWorkers,
		"Concurrent canary requests per page")
	cmd.Flags().String("user-agent", model.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (host:port)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .devscan in current or home directory)")
}

// buildCrawlConfig creates a Config from the flags registered by addCrawlFlags.
func buildCrawlConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.ScanBudget, err = flags.GetDuration("budget"); err != nil {
		return nil, err
	}
	if cfg.CrawlDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.CrossOrigin, err = flags.GetBool("cross-origin"); err != nil {
		return nil, err
	}
	if cfg.FollowSubdomains, err = flags.GetBool("subdomains"); err != nil {
		return nil, err
	}
	if cfg.DiscoverWellKnown, err = flags.GetBool("well-known"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = flags.GetInt("rate-limit"); err != nil {
		return nil, err
	}
	if cfg.ProbeBudget, err = flags.GetInt("probe-budget"); err != nil {
		return nil, err
	}
	if cfg.ProbeWorkers, err = flags.GetInt("probe-workers"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.JSONLogs = getJSONLogsFlag(cmd)

	return cfg, nil
}

// buildConfig creates a scan Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()

	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	cfg.Targets = args

	return cfg, nil
}

// newLogger creates the secure logger on stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	if cfg.JSONLogs {
		return seclog.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
	}
	return seclog.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// openOutput returns the report destination: the file at path, created with
// owner-only permissions, or fallback when path is empty.
func openOutput(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return fallback, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list the weaknesses of the scanned application.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// newReportWriter picks the writer for the requested format.
func newReportWriter(cfg *config.Config, full bool, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport && full:
		return report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case cfg.JSONReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
}

// scanRunner scans the configured targets and writes their reports.
type scanRunner struct {
	cfg      *config.Config
	logger   *slog.Logger
	writer   report.Writer
	progress io.Writer
	scanner  scan.Runner

	mu     sync.Mutex
	failed int
}

// run scans every target, sequentially or as a batch.
func (r *scanRunner) run(ctx context.Context) error {
	reqs := make([]model.ScanRequest, 0, len(r.cfg.Targets))
	for _, target := range r.cfg.Targets {
		reqs = append(reqs, model.ScanRequest{StartURL: target, Options: r.cfg.ScanOptions(target)})
	}

	start := time.Now()
	if len(reqs) > 1 && r.cfg.BatchSize > 1 {
		fmt.Fprintf(r.progress, "Starting batch scan of %d targets (concurrency: %d)...\n\n", len(reqs), r.cfg.BatchSize)
		batch := scan.NewBatch(r.scanner, scan.WithConcurrency(r.cfg.BatchSize), scan.WithBatchLogger(r.logger))
		batch.RunWithCallback(ctx, reqs, func(i int, result scan.BatchResult) {
			r.handle(i, len(reqs), result)
		})
		fmt.Fprintf(r.progress, "\nBatch scan completed in %s\n", time.Since(start).Round(time.Millisecond))
	} else {
		for i, req := range reqs {
			if ctx.Err() != nil {
				r.handle(i, len(reqs), scan.BatchResult{Request: req, Err: ctx.Err()})
				continue
			}
			fmt.Fprintf(r.progress, "Scanning %s...\n", req.StartURL)
			rep, err := r.scanner.Run(ctx, req)
			r.handle(i, len(reqs), scan.BatchResult{Request: req, Report: rep, Err: err})
		}
	}

	if r.failed > 0 {
		return fmt.Errorf("%d of %d scans failed", r.failed, len(reqs))
	}
	return nil
}

// handle reports one finished scan. It is called concurrently in batch mode.
func (r *scanRunner) handle(index, total int, result scan.BatchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if result.Err != nil {
		r.failed++
		var scanErr *model.ScanError
		if errors.As(result.Err, &scanErr) && scanErr.Kind == model.ScanInternal {
			fmt.Fprintf(r.progress, "Scan failed for %s: %v\n", result.Request.StartURL, result.Err)
		} else {
			fmt.Fprintf(r.progress, "Skipping %s: %v\n", result.Request.StartURL, result.Err)
		}
		return
	}

	fmt.Fprintf(r.progress, "[%d/%d] Scan completed: %s (%d pages, %s)\n",
		index+1, total, result.Report.StartURL, result.Report.PagesScanned,
		result.Report.Duration.Round(time.Millisecond))

	if _, err := r.writer.Write(result.Report); err != nil {
		r.logger.Error("report failed", "target", result.Request.StartURL, "error", err)
	}
}
