package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for DevScan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devscan",
		Short: "Web application vulnerability scanner",
		Long: `DevScan is a web application vulnerability scanner for developers.

It crawls a site from a start URL within configurable limits and checks
every page for missing security headers, insecure cookies, reflected input,
open redirects, and information disclosure.

Only scan applications you own or are authorized to test.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json-logs", false, "Write logs as JSON lines")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
