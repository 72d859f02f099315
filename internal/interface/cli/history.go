package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/neilberkman/eqviz/internal/core/dashboard"
	"github.com/neilberkman/eqviz/internal/core/history"
	"github.com/neilberkman/eqviz/internal/core/render"
	"github.com/spf13/cobra"
)

var historySince string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the last uploads",
	Long: `List the most recent uploads, newest first. The service keeps five.

Examples:
  eqviz history
  eqviz history --since yesterday
  eqviz history --since 2025-01-31`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only uploads after this date (natural language accepted)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireLogin(); err != nil {
		return err
	}

	var since time.Time
	if historySince != "" {
		if since, err = history.ParseSince(historySince, time.Now()); err != nil {
			return err
		}
	}

	cache := history.New(context.Background(), a.gateway)
	if err := cache.Err(); err != nil {
		return describe(err, dashboard.HistoryFailedMessage)
	}
	records := cache.Current()
	if !since.IsZero() {
		records = history.Since(records, since)
	}

	if len(records) == 0 {
		if !since.IsZero() {
			fmt.Printf("No uploads since %s\n", render.Timestamp(since))
		} else {
			fmt.Println("No uploads yet. Run 'eqviz upload <file.csv>' to add one.")
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILE\tUPLOADED\t")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s (%s)\t\n", r.ID, r.Filename, render.Timestamp(r.UploadedAt), render.Ago(r.UploadedAt))
	}
	return w.Flush()
}
