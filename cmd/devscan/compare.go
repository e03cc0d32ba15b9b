package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nao1215/devscan/internal/report"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
)

// NewCompareCmd creates the compare command.
// This command compares two JSON reports saved by 'devscan scan --json'.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <previous.json> <current.json>",
		Short: "Compare two saved scan reports",
		Long: `Compare displays differences between two JSON scan reports.

Both files must be written by 'devscan scan --json' (with or without
--full) or downloaded from the API. The comparison shows:
- New findings that appeared since the previous scan
- Resolved findings that are no longer present
- Whether overall risk improved or worsened

Findings are matched by page URL and description.

Examples:
  # Compare last week's report with today's
  devscan compare last-week.json today.json

  # Output comparison in JSON format
  devscan compare --json last-week.json today.json

  # Fail a CI job when new findings appear
  devscan compare --fail-on-new baseline.json current.json`,
		Args: cobra.ExactArgs(2),
		RunE: runCompareCmd,
	}

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().Bool("fail-on-new", false,
		"Exit with an error when the current report has new findings")

	return cmd
}

// errNewFindings is returned with --fail-on-new.
var errNewFindings = errors.New("new findings detected")

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown are mutually exclusive")
	}
	failOnNew, err := cmd.Flags().GetBool("fail-on-new")
	if err != nil {
		return err
	}

	previous, err := loadSnapshotFile(args[0])
	if err != nil {
		return err
	}
	current, err := loadSnapshotFile(args[1])
	if err != nil {
		return err
	}

	result := report.Compare(previous, current)

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		err = outputComparisonJSON(out, result)
	case markdownOutput:
		err = outputComparisonMarkdown(out, result)
	default:
		err = outputComparisonText(out, result)
	}
	if err != nil {
		return err
	}

	if failOnNew && len(result.NewFindings) > 0 {
		return fmt.Errorf("%w: %d", errNewFindings, len(result.NewFindings))
	}
	return nil
}

// loadSnapshotFile reads a saved report from path.
func loadSnapshotFile(path string) (*report.Snapshot, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided report path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	snap, err := report.LoadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(w io.Writer, result *report.Comparison) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(w io.Writer, result *report.Comparison) error {
	md := markdown.NewMarkdown(w)
	md.H1("Scan Comparison: " + result.StartURL)
	md.PlainText("")
	md.PlainTextf("**Risk Status:** %s", formatRiskDirection(result.Direction))
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{
				"Findings",
				strconv.Itoa(result.PreviousTotal),
				strconv.Itoa(result.CurrentTotal),
				formatDelta(result.CurrentTotal - result.PreviousTotal),
			},
		},
	})
	md.PlainText("")

	if len(result.NewFindings) > 0 {
		md.H2(fmt.Sprintf("New Findings (%d)", len(result.NewFindings)))
		md.PlainText("")
		items := make([]string, 0, len(result.NewFindings))
		for _, f := range result.NewFindings {
			items = append(items, fmt.Sprintf("%s`%s`: %s", severityPrefix(f), f.URL, f.Description))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.ResolvedFindings) > 0 {
		md.H2(fmt.Sprintf("Resolved Findings (%d)", len(result.ResolvedFindings)))
		md.PlainText("")
		items := make([]string, 0, len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			items = append(items, fmt.Sprintf("~~%s`%s`: %s~~", severityPrefix(f), f.URL, f.Description))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainTextf("*%d findings unchanged*", result.UnchangedCount)
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(w io.Writer, result *report.Comparison) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Scan Comparison: %s\n", result.StartURL)
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "\nRisk Status: %s\n", formatRiskDirection(result.Direction))
	fmt.Fprintf(&b, "\nFindings: %d -> %d (%s)\n",
		result.PreviousTotal, result.CurrentTotal,
		formatDelta(result.CurrentTotal-result.PreviousTotal))

	if len(result.NewFindings) > 0 {
		fmt.Fprintf(&b, "\nNew Findings (%d):\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Fprintf(&b, "  [+] %s%s\n", severityPrefix(f), f.Description)
			fmt.Fprintf(&b, "      Page: %s\n", f.URL)
		}
	}

	if len(result.ResolvedFindings) > 0 {
		fmt.Fprintf(&b, "\nResolved Findings (%d):\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Fprintf(&b, "  [-] %s%s\n", severityPrefix(f), f.Description)
			fmt.Fprintf(&b, "      Page: %s\n", f.URL)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(&b, "\nUnchanged: %d findings\n", result.UnchangedCount)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// severityPrefix renders "[high] " or nothing when the report had no severities.
func severityPrefix(f report.SnapshotFinding) string {
	if f.Severity == "" {
		return ""
	}
	return "[" + f.Severity + "] "
}

// formatRiskDirection formats the risk change direction for display.
func formatRiskDirection(direction string) string {
	switch direction {
	case report.RiskImproved:
		return "IMPROVED (risk decreased)"
	case report.RiskWorsened:
		return "WORSENED (risk increased)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
