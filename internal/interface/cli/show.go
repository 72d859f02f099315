package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/neilberkman/eqviz/internal/core/config"
	"github.com/neilberkman/eqviz/internal/core/dashboard"
	"github.com/neilberkman/eqviz/internal/core/logger"
	"github.com/neilberkman/eqviz/internal/core/models"
	"github.com/neilberkman/eqviz/internal/core/render"
	"github.com/spf13/cobra"
)

var (
	showRows     bool
	showTemplate string
)

var showCmd = &cobra.Command{
	Use:   "show <dataset-id>",
	Short: "Show the analysis of a previous upload",
	Long: `Load a dataset from the history and print its summary.

The summary uses ~/.config/eqviz/summary_template.txt when present
(mustache syntax), or --template.

Examples:
  eqviz show 12
  eqviz show 12 --rows
  eqviz show 12 --template '{{filename}}: {{total_count}} units'`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showRows, "rows", false, "Also print every row of the dataset")
	showCmd.Flags().StringVar(&showTemplate, "template", "", "Mustache template for the summary")
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid dataset id %q", args[0])
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireLogin(); err != nil {
		return err
	}
	if showTemplate != "" {
		a.cfg.SummaryTemplate = showTemplate
	}

	ctx := context.Background()
	sp := newSpinner(os.Stderr, "Loading dataset...")
	sp.Start()
	d := a.dashboard(ctx)
	ds, err := d.SelectHistory(ctx, id)
	sp.Stop()
	if err != nil {
		return describe(err, dashboard.LoadFailedMessage)
	}

	if err := printSummary(a.cfg, ds); err != nil {
		return err
	}
	if showRows {
		fmt.Println()
		printRows(ds)
	}
	return nil
}

// printSummary renders the configured summary template, falling back to
// the built-in one when the custom template is broken
func printSummary(cfg *config.Config, ds *models.Dataset) error {
	out, err := render.Summary(cfg.SummaryTemplate, ds)
	if err != nil {
		logger.Warn("cli.summary_template_failed", "error", err)
		if out, err = render.Summary(config.DefaultSummaryTemplate, ds); err != nil {
			return err
		}
	}
	fmt.Println(strings.TrimRight(out, "\n"))
	return nil
}

func printRows(ds *models.Dataset) {
	cols, rows := render.Table(ds)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	_ = w.Flush()
}
