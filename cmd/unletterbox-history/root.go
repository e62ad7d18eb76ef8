package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"unletterbox/internal/history"
)

const defaultDBPath = "/var/lib/unletterbox/history.db"

type queryOpts struct {
	dbPath string
	json   bool
	limit  int
}

func newRootCmd(out io.Writer) *cobra.Command {
	o := &queryOpts{}

	root := &cobra.Command{
		Use:   "unletterbox-history",
		Short: "Query the unletterbox processing history",
		Example: `  unletterbox-history recent --limit 20
  unletterbox-history stats --days 7
  unletterbox-history action FAILED
  unletterbox-history path '/srv/media/%'
  unletterbox-history run 2f1c...`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&o.dbPath, "db", defaultDBPath, "path to history database")
	root.PersistentFlags().BoolVar(&o.json, "json", false, "output in JSON format")
	root.PersistentFlags().IntVar(&o.limit, "limit", 50, "maximum number of records")

	withDB := func(fn func(db *history.DB, w io.Writer, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			db, err := history.Open(o.dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database %s: %w", o.dbPath, err)
			}
			defer db.Close()
			return fn(db, cmd.OutOrStdout(), args)
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "recent",
		Short: "Show the most recent records",
		Args:  cobra.NoArgs,
		RunE: withDB(func(db *history.DB, w io.Writer, _ []string) error {
			records, err := db.Recent(o.limit)
			if err != nil {
				return err
			}
			return emit(w, o.json, records)
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "action ACTION",
		Short: "Show records with an action (CROPPED, UNCHANGED, SKIPPED, FAILED, DRY_RUN)",
		Args:  cobra.ExactArgs(1),
		RunE: withDB(func(db *history.DB, w io.Writer, args []string) error {
			records, err := db.ByAction(args[0], o.limit)
			if err != nil {
				return err
			}
			return emit(w, o.json, records)
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "path PATTERN",
		Short: "Show records whose path matches a SQL LIKE pattern",
		Args:  cobra.ExactArgs(1),
		RunE: withDB(func(db *history.DB, w io.Writer, args []string) error {
			records, err := db.ByPath(args[0], o.limit)
			if err != nil {
				return err
			}
			return emit(w, o.json, records)
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "run RUN_ID",
		Short: "Show every record of one run",
		Args:  cobra.ExactArgs(1),
		RunE: withDB(func(db *history.DB, w io.Writer, args []string) error {
			records, err := db.ByRun(args[0])
			if err != nil {
				return err
			}
			return emit(w, o.json, records)
		}),
	})

	var days int
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregated statistics",
		Args:  cobra.NoArgs,
		RunE: withDB(func(db *history.DB, w io.Writer, _ []string) error {
			stats, err := db.Stats(days)
			if err != nil {
				return err
			}
			if o.json {
				return writeJSON(w, stats)
			}
			printStats(w, days, stats)
			return nil
		}),
	}
	statsCmd.Flags().IntVar(&days, "days", 30, "number of days to aggregate")
	root.AddCommand(statsCmd)

	var olderThan int
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete records older than --days and vacuum the database",
		Args:  cobra.NoArgs,
		RunE: withDB(func(db *history.DB, w io.Writer, _ []string) error {
			n, err := db.DeleteOldRecords(olderThan)
			if err != nil {
				return err
			}
			if err := db.Vacuum(); err != nil {
				return err
			}
			fmt.Fprintf(w, "Deleted %d records older than %d days\n", n, olderThan)
			return nil
		}),
	}
	pruneCmd.Flags().IntVar(&olderThan, "days", 90, "age in days")
	root.AddCommand(pruneCmd)

	return root
}

func emit(w io.Writer, asJSON bool, records []history.Record) error {
	if asJSON {
		return writeJSON(w, records)
	}
	printRecords(w, records)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printStats(w io.Writer, days int, stats *history.Stats) {
	fmt.Fprintf(w, "Processing Statistics (Last %d days)\n", days)
	fmt.Fprintf(w, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Runs:         %d\n", stats.Runs)
	fmt.Fprintf(w, "Cropped:      %d\n", stats.Cropped)
	fmt.Fprintf(w, "Unchanged:    %d\n", stats.Unchanged)
	fmt.Fprintf(w, "Skipped:      %d\n", stats.Skipped)
	fmt.Fprintf(w, "Failed:       %d\n", stats.Failed)
	fmt.Fprintf(w, "Dry run:      %d\n", stats.DryRun)
	fmt.Fprintf(w, "Bytes saved:  %s\n", formatBytes(stats.BytesSaved))

	if len(stats.ByKind) > 0 {
		fmt.Fprintln(w, "\nBy Kind:")
		kinds := make([]string, 0, len(stats.ByKind))
		for k := range stats.ByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(w, "  %-15s %d\n", k, stats.ByKind[k])
		}
	}
}

func printRecords(out io.Writer, records []history.Record) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tAction\tKind\tBefore\tAfter\tPath")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t----\t------\t-----\t----")

	for _, r := range records {
		path := r.Path
		if r.ErrorMessage != "" {
			path += "  (" + r.ErrorMessage + ")"
		} else if r.Reason != "" {
			path += "  (" + r.Reason + ")"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.Action, r.Kind,
			formatBytes(r.SizeBefore), formatBytes(r.SizeAfter), path)
	}
	_ = w.Flush()
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
