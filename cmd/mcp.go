package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flowdeck/flowdeck/internal/config"
	"github.com/flowdeck/flowdeck/internal/db"
	"github.com/flowdeck/flowdeck/internal/flows"
	mcpserver "github.com/flowdeck/flowdeck/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing flow
search and retrieval tools for AI agents like Claude Code.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		dbPath := filepath.Join(cfg.Server.DataDir, "flowdeck.db")
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		index, err := buildIndex(cmd.Context(), cfg, database)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: semantic search unavailable: %v\n", err)
		}

		mcpserver.Version = Version
		fmt.Fprintf(os.Stderr, "flowdeck MCP server started on stdio (db=%s)\n", dbPath)

		srv := mcpserver.NewServer(flows.NewStore(database), index)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
