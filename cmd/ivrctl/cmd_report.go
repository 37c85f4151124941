package main

import (
	"ProjectIVR/internal/api/calls"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	listPage  int
	listLimit int
)

func init() {
	callsListCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	callsListCmd.Flags().IntVar(&listLimit, "limit", calls.DefaultPageSize, "records per page")
	callsCmd.AddCommand(callsListCmd)
	rootCmd.AddCommand(reportCmd, callsCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print call counts by priority and issue type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, db, err := openCalls(newLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := svc.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}

		fmt.Printf("Total calls: %d\n\n", stats.Total)
		if err := printDistribution("PRIORITY", stats.ByPriority); err != nil {
			return err
		}
		fmt.Println()
		return printDistribution("ISSUE TYPE", stats.ByIssue)
	},
}

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Inspect call records",
}

var callsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List call records, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listLimit < 1 || listLimit > calls.MaxPageSize {
			return fmt.Errorf("--limit must be between 1 and %d", calls.MaxPageSize)
		}

		svc, db, err := openCalls(newLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := svc.ListCalls(cmd.Context(), calls.ListCallsQuery{Page: listPage, Limit: listLimit})
		if err != nil {
			return fmt.Errorf("list calls: %w", err)
		}
		if len(res.Calls) == 0 {
			fmt.Println("No calls found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCALLER\tNAME\tISSUE\tPRIORITY\tSTATUS\tCREATED")
		for _, c := range res.Calls {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				c.ID,
				c.CallerNumber,
				c.CustomerName,
				c.IssueType,
				c.Priority,
				c.Status,
				c.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\nPage %d, %d of %d record(s)\n", res.Page, len(res.Calls), res.Total)
		return nil
	},
}

func printDistribution(title string, counts map[string]int) error {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tCALLS\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%d\n", k, counts[k])
	}
	return w.Flush()
}
