package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fedreg/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search the
store directly.

Tools:
  search_documents       the validated document search
  ask_federal_register   a full assistant turn (only when an LLM is configured)

Resources:
  fedreg://stats                    stored document count
  fedreg://documents/{documentId}   one stored document

By default, the server communicates over stdio using JSON-RPC. Use --port
to serve streamable HTTP instead; Prometheus metrics are then exposed at
/metrics on the same port.

Examples:
  # Stdio mode (for desktop assistants)
  fedreg mcp serve

  # HTTP mode (for MCP Inspector, remote access and scraping)
  fedreg mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

// mcpPorts collects the services exposed over MCP.
func mcpPorts(ctx context.Context) (*mcp.Ports, error) {
	tool, lookup, err := requireSearch()
	if err != nil {
		return nil, err
	}
	agent, err := optionalAgent(ctx)
	if err != nil {
		return nil, err
	}
	return &mcp.Ports{Search: tool, Documents: lookup, Agent: agent}, nil
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports, err := mcpPorts(cmd.Context())
	if err != nil {
		return err
	}

	var opts []mcp.Option
	if port > 0 {
		opts = append(opts, mcp.WithMetricsHandler(metrics().Handler()))
	}

	server, err := mcp.NewServer(ports, opts...)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
