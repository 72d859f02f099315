package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/neilberkman/eqviz/internal/core/dashboard"
	"github.com/neilberkman/eqviz/internal/core/upload"
	"github.com/spf13/cobra"
)

var uploadQuiet bool

var uploadCmd = &cobra.Command{
	Use:   "upload <file.csv>",
	Short: "Upload a CSV and show its analysis",
	Long: `Upload a CSV of equipment readings and print the resulting summary.

The file needs the columns Type, Flowrate, Pressure and Temperature.
Press Ctrl-C to cancel a running upload.

Examples:
  eqviz upload readings.csv
  eqviz upload readings.csv --quiet`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().BoolVarP(&uploadQuiet, "quiet", "q", false, "Only print the dataset id")
}

func runUpload(cmd *cobra.Command, args []string) error {
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
	if err := d.Upload.SelectPath(args[0]); err != nil {
		return fmt.Errorf("%s", upload.Message(err))
	}

	file := d.Upload.State().File
	var bar *progressBar
	if !uploadQuiet {
		bar = newProgressBar(os.Stderr, file.Name, file.Size)
		defer d.Upload.Subscribe(bar.Update)()
	}

	ds, err := d.UploadSelected(ctx)
	if bar != nil {
		bar.Finish(err == nil)
	}
	if err != nil {
		return errors.New(upload.Message(err))
	}

	if uploadQuiet {
		fmt.Println(ds.ID)
		return nil
	}
	fmt.Println(dashboard.UploadedMessage)
	fmt.Println()
	return printSummary(a.cfg, ds)
}
