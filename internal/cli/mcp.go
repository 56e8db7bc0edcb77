package cli

import (
	"github.com/spf13/cobra"

	"github.com/schedulebridge/schedule-bridge/internal/mcp"
)

// Version is reported to MCP clients
var Version = "dev"

func init() {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve calendar tools over MCP (stdio)",
		Long:  "Expose calendar_search and, when an LLM key is configured, schedule_extract to an MCP client over stdin/stdout.",
		Args:  cobra.NoArgs,
		Run:   runMCP,
	}

	RootCmd.AddCommand(cmd)
}

func runMCP(cmd *cobra.Command, args []string) {
	c, err := openCore(false)
	if err != nil {
		exitErr("open", err)
	}
	defer c.Close()

	srv := mcp.NewServer(c.search, c.extraction, c.loc, Version)
	if err := srv.Run(cmd.Context()); err != nil {
		exitErr("mcp", err)
	}
}
