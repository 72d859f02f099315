package cli

import (
	"fmt"

	"github.com/neilberkman/eqviz/internal/core/render"
	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored login",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	who, ok := a.store.Whoami()
	if !ok {
		fmt.Println("Not logged in")
		return nil
	}
	name := who.Username
	if name == "" {
		name = "(unknown user)"
	}
	fmt.Printf("%s\n", name)
	fmt.Printf("  Service:   %s\n", a.cfg.APIURL)
	if !who.Since.IsZero() {
		fmt.Printf("  Logged in: %s (%s)\n", render.Timestamp(who.Since), render.Ago(who.Since))
	}
	return nil
}
