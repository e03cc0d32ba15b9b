package main

import (
	"fmt"
	"time"

	"github.com/nao1215/devscan/internal/config"
	"github.com/nao1215/devscan/internal/metrics"
	"github.com/nao1215/devscan/internal/scan"
	"github.com/nao1215/devscan/internal/server"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long in-flight scans may run after a signal.
const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scanner over HTTP",
		Long: `Serve starts the DevScan HTTP API.

Endpoints:
  POST /api/scan      {"url": "..."} runs a scan and returns the findings
  POST /api/download  returns the posted report as DevScan_Report.json
  GET  /healthz       liveness probe
  GET  /metrics       Prometheus metrics (disable with --metrics=false)

Crawl flags apply to every scan the server runs.

Examples:
  # Listen on the default address
  devscan serve

  # Listen on all interfaces with a smaller crawl
  devscan serve --addr :5000 -d 2 -p 30`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("addr", config.DefaultListenAddress,
		"Address to listen on")
	cmd.Flags().Bool("metrics", true,
		"Expose Prometheus metrics at /metrics")
	addCrawlFlags(cmd)

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.ListenAddress, err = cmd.Flags().GetString("addr"); err != nil {
		return err
	}
	exposeMetrics, err := cmd.Flags().GetBool("metrics")
	if err != nil {
		return err
	}
	if err := config.Load(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cfg)

	scanOpts := []scan.Option{scan.WithLogger(logger)}
	serverOpts := []server.Option{
		server.WithLogger(logger),
		server.WithScanOptions(cfg.ScanOptions("")),
	}
	if exposeMetrics {
		rec, err := metrics.New()
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		scanOpts = append(scanOpts, scan.WithObserver(rec))
		serverOpts = append(serverOpts, server.WithMetricsHandler(rec.Handler()))
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	srv := server.New(scan.New(scanOpts...), serverOpts...)
	return srv.ListenAndServe(ctx, cfg.ListenAddress, shutdownTimeout)
}
