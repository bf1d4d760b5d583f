package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cogvm/cog/internal/cli"
	"github.com/cogvm/cog/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the puzzle toolkit as an MCP server on stdio.
This allows AI agents (like Claude Desktop) to compile and run solutions as tools.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("puzzles")

		logger, err := newLogger(cmd)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		slog.SetDefault(logger)

		source, err := cli.OpenSource(dir, logger)
		if err != nil {
			log.Fatalf("Error opening catalog: %v", err)
		}

		srv := mcp.NewServer(source)

		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		slog.Info("Starting MCP server (stdio)")
		if err := srv.ServeStdio(); err != nil {
			slog.Error("MCP server execution failed", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
