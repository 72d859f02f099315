package cli

import (
	"context"
	"fmt"

	"github.com/neilberkman/eqviz/cmd/eqviz/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server for assistant integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio that lets an
assistant list recent uploads, load datasets, upload CSV files and export
reports using the stored login.

Configure in your client's config file:
  {
    "mcpServers": {
      "eqviz": {
        "command": "eqviz",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol; logs go to the file only
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireLogin(); err != nil {
		return err
	}

	d := a.dashboard(context.Background())
	if err := mcp.StartServer(d, a.cfg.SummaryTemplate); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
