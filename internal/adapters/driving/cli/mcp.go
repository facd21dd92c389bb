package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/r3form/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes the case list, prior submissions and form submission
as MCP tools and resources. By default it communicates over stdio using
JSON-RPC. Use --port to start an HTTP server instead.

Tools:
  list_cases         List cases, optionally filtered
  find_submission    Show the existing submission for a case
  submit_assessment  Fill in and submit the form for a case
  generate_report    Build and email the assessment document

Examples:
  # Stdio mode (default)
  r3form mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  r3form mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	if formService == nil || submissionService == nil {
		return errors.New("form service not configured")
	}

	ports := &mcp.Ports{
		Form:        formService,
		Submissions: submissionService,
		Cache:       cacheService,
		Report:      reportService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}
	defer flushForm(context.WithoutCancel(cmd.Context()))

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
