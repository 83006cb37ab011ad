package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lplens/lplens/internal/config"
	"github.com/lplens/lplens/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve program analysis over the Model Context Protocol",
	Long: `Mcp analyzes the project once and serves the result on stdio as
MCP tools: lplens_statements, lplens_search and lplens_symbol.

Add to an MCP client configuration:
  { "command": "lplens", "args": ["mcp"] }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rootDir, err := projectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	srv, err := mcp.NewServer(ctx, rootDir, cfg)
	if err != nil {
		return fmt.Errorf("failed to start MCP server: %w", err)
	}
	defer srv.Close()

	return srv.Serve(ctx)
}
