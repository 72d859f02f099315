package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neilberkman/eqviz/internal/core/render"
	"github.com/neilberkman/eqviz/internal/core/upload"
	"github.com/neilberkman/eqviz/internal/core/watch"
	"github.com/spf13/cobra"
)

var watchSettle time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Upload CSV files as they appear in a directory",
	Long: `Watch a directory and upload every CSV file written to it.

A file is uploaded once it has stopped changing for the settle time. Uploads
run one at a time. Press Ctrl-C to stop.

Examples:
  eqviz watch ~/plant-exports
  eqviz watch . --settle 2s`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchSettle, "settle", watch.DefaultSettle, "How long a file must be unchanged before upload")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireLogin(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := a.dashboard(ctx)
	handle := func(ctx context.Context, path string) error {
		if err := d.Upload.SelectPath(path); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", path, upload.Message(err))
			return err
		}
		ds, err := d.UploadSelected(ctx)
		if err != nil {
			if !errors.Is(err, upload.ErrCanceled) {
				fmt.Fprintf(os.Stderr, "✗ %s: %s\n", path, upload.Message(err))
			}
			return err
		}
		fmt.Printf("✓ %s → dataset #%d (%d items, %s)\n",
			ds.Filename, ds.ID, ds.Summary.TotalCount, render.Ago(ds.UploadedAt))
		return nil
	}

	w, err := watch.New(args[0], a.cfg.AllowedExtensions, watchSettle, handle)
	if err != nil {
		return err
	}

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", args[0])
	if err := w.Run(ctx); err != nil {
		return err
	}

	stats := w.Stats()
	fmt.Printf("\nUploaded %d file(s), %d failed, in %s\n",
		stats.Handled, stats.Errors, time.Since(stats.StartTime).Round(time.Second))
	return nil
}
