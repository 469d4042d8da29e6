package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/supportbot/internal/logger"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

var (
	logLevel string
	logJSON  bool
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "supportbot",
	Short: "Rule-based FAQ support chatbot",
	Long: `supportbot answers customer questions from a curated FAQ catalog.

Questions are matched against the catalog with a weighted semantic scorer and
a word-overlap fallback; anything the catalog cannot answer gets a
topic-aware generated reply. Conversations are tracked to an event log and
archived as transcripts, which the analytics commands (metrics, suggestions,
alerts) read back.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("log-level") && !cmd.Flags().Changed("log-json") {
			return nil
		}
		level := logger.ParseLevel(logLevel)
		if logLevel != "" && string(level) != strings.ToLower(strings.TrimSpace(logLevel)) {
			return fmt.Errorf("invalid --log-level %q (use debug, info, warn, or error)", logLevel)
		}
		Log = logger.NewLogger(&logger.Config{
			Level:      level,
			Output:     os.Stderr,
			JSON:       logJSON,
			TimeFormat: "15:04:05",
		})
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "supportbot %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
