package main

import (
	"fmt"
	"strings"

	"github.com/jamesainslie/sumtree/pkg/sumtree/config"
	"github.com/jamesainslie/sumtree/pkg/sumtree/journal"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	Long: `View the history of hash, verify and import runs.

When the journal is enabled every run is recorded with its target, manifest,
counts and, for failed verifications, the failing paths.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a specific run",
	Long:  `Display detailed information about a run by its ID or a unique ID prefix.`,
	Args:  exactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old history records",
	Long:  `Remove records older than journal.retention_days (or --days).`,
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var (
	historyLimit     int
	historyOperation string
	historyDays      int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of records to show")
	historyCmd.Flags().StringVar(&historyOperation, "operation", "", "only show hash, verify or import runs")
	historyCleanCmd.Flags().IntVar(&historyDays, "days", 0, "retention in days (default from config)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getJournal returns a journal over the configured directory.
func getJournal() (*journal.Journal, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	j, err := journal.New(cfg.Journal.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return j, cfg, nil
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, args []string) error {
	var op journal.Operation
	switch journal.Operation(historyOperation) {
	case "":
	case journal.OpHash, journal.OpVerify, journal.OpImport:
		op = journal.Operation(historyOperation)
	default:
		return usageErrorf("invalid --operation %q: want hash, verify or import", historyOperation)
	}

	j, cfg, err := getJournal()
	if err != nil {
		return err
	}

	records, err := j.List(historyLimit, op)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(records) == 0 {
		printInfo("No history records found.")
		if !cfg.Journal.Enabled {
			printInfo("The journal is disabled; set journal.enabled: true to record runs.")
		}
		return nil
	}

	fmt.Printf("\n%-34s  %-6s  %-6s  %-24s  %s\n", "ID", "OP", "STATUS", "SUMMARY", "TARGET")
	fmt.Println(strings.Repeat("-", 100))

	for _, r := range records {
		fmt.Printf("%-34s  %-6s  %-6s  %-24s  %s\n",
			truncateString(r.ID, 34),
			r.Operation,
			r.Status,
			summaryLine(r),
			r.Target,
		)
	}

	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("\nShowing %d records. Use --limit to see more.\n", len(records))
	fmt.Println("Use 'sumtree history show <id>' for details on a specific run.")

	return nil
}

// summaryLine condenses a record's counts for the list view.
func summaryLine(r journal.Record) string {
	s := r.Summary
	switch {
	case r.Status == journal.StatusError:
		return "error"
	case r.Operation == journal.OpVerify:
		return fmt.Sprintf("%d ok, %d bad, %d gone", s.OK, s.Mismatch, s.Missing)
	case r.Operation == journal.OpImport:
		return fmt.Sprintf("%d entries, %d skipped", s.Entries, s.Skipped)
	case s.Added > 0:
		return fmt.Sprintf("%d entries (+%d)", s.Entries, s.Added)
	default:
		return fmt.Sprintf("%d entries", s.Entries)
	}
}

// runHistoryShow displays details of a specific run.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	j, _, err := getJournal()
	if err != nil {
		return err
	}

	r, err := j.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get record: %w", err)
	}

	fmt.Println("\nRun Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:         %s\n", r.ID)
	fmt.Printf("Timestamp:  %s\n", r.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Operation:  %s\n", r.Operation)
	fmt.Printf("Status:     %s\n", r.Status)
	fmt.Printf("Target:     %s\n", r.Target)
	if r.Manifest != "" {
		fmt.Printf("Manifest:   %s\n", r.Manifest)
	}
	if r.Algorithm != "" {
		fmt.Printf("Algorithm:  %s\n", r.Algorithm)
	}
	if r.Mode != "" {
		fmt.Printf("Mode:       %s\n", r.Mode)
	}
	fmt.Printf("Summary:    %s\n", summaryLine(*r))
	if r.Summary.Bytes > 0 {
		fmt.Printf("Hashed:     %s\n", types.FormatSize(r.Summary.Bytes))
	}
	fmt.Printf("Took:       %dms\n", r.Summary.DurationMs)
	if r.ErrorLog != "" {
		fmt.Printf("Error log:  %s\n", r.ErrorLog)
	}
	if r.Error != "" {
		fmt.Printf("Error:      %s\n", r.Error)
	}

	if len(r.Failures) > 0 {
		fmt.Println("\nFailures:")
		fmt.Println(strings.Repeat("-", 60))

		limit := min(len(r.Failures), 50)
		for _, f := range r.Failures[:limit] {
			fmt.Printf("%-9s  %s\n", f.Outcome, f.Path)
		}
		if len(r.Failures) > limit {
			fmt.Printf("\n... and %d more (see the error log)\n", len(r.Failures)-limit)
		}
	}

	return nil
}

// runHistoryClean removes old records.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	j, cfg, err := getJournal()
	if err != nil {
		return err
	}

	days := historyDays
	if days <= 0 {
		days = cfg.Journal.RetentionDays
	}
	if days <= 0 {
		days = config.DefaultRetentionDays
	}

	printInfo("Removing history records older than %d days...", days)

	removed, err := j.Cleanup(days)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d records.", removed)
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
