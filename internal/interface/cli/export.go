package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/eqviz/internal/core/dashboard"
	"github.com/neilberkman/eqviz/internal/core/render"
	"github.com/neilberkman/eqviz/internal/core/report"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportsLimit int
)

var exportCmd = &cobra.Command{
	Use:   "export <dataset-id>",
	Short: "Download the PDF report of a dataset",
	Long: `Download the PDF report of a dataset as report_<id>.pdf.

By default the report goes to the download directory from the config
(~/Downloads). Use --output to pick another directory.

Examples:
  eqviz export 12
  eqviz export 12 --output ./reports
  eqviz export 12 -o .`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var exportsCmd = &cobra.Command{
	Use:   "exports",
	Short: "List reports downloaded on this machine",
	RunE:  runExports,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(exportsCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output directory (default: download_dir from config)")
	exportsCmd.Flags().IntVar(&exportsLimit, "limit", 20, "Maximum number of entries to display")
}

func runExport(cmd *cobra.Command, args []string) error {
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

	if exportOutput != "" {
		// Make relative paths absolute to current directory
		out, err := filepath.Abs(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", exportOutput, err)
		}
		a.cfg.DownloadDir = out
	}

	ctx := context.Background()
	sp := newSpinner(os.Stderr, "Downloading report...")
	sp.Start()
	d := a.dashboard(ctx)
	if _, err := d.SelectHistory(ctx, id); err != nil {
		sp.Stop()
		return describe(err, dashboard.LoadFailedMessage)
	}
	saved, err := d.DownloadReport(ctx)
	sp.Stop()
	if err != nil {
		return describe(err, report.FailedMessage)
	}

	fmt.Printf("Exported report for dataset #%d to: %s\n", saved.DatasetID, saved.Path)
	return nil
}

func runExports(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.db.ListExports(exportsLimit)
	if err != nil {
		return fmt.Errorf("failed to list exports: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No reports exported yet. Run 'eqviz export <dataset-id>'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATASET\tFILE\tSIZE\tEXPORTED\tPATH\t")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t\n",
			e.DatasetID, e.Filename, humanize.Bytes(uint64(e.Size)), render.Ago(e.ExportedAt), e.Path)
	}
	return w.Flush()
}
