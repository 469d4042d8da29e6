package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	botmcp "github.com/valter-silva-au/supportbot/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the supportbot MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the supportbot MCP server on stdio",
	Long: `Start the supportbot MCP server on stdio transport.

The server hosts one chat session and exposes it as MCP tools: ask,
send_feedback, reset_session, list_faqs, get_history, get_metrics,
get_suggestions, get_alerts, and list_sessions. The session is archived when
the client disconnects.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		agentCfg, err := agentConfig("mcp", nil)
		if err != nil {
			return err
		}

		srv, err := botmcp.NewServer(botmcp.Deps{
			Agent:       agentCfg,
			Catalog:     Catalog,
			Metrics:     MetricsCalc,
			Alerts:      AlertEngine,
			Suggestions: Suggestions,
			Transcripts: Transcripts,
		}, appVersion)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
