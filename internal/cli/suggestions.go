package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var suggestionsJSON bool

var suggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "Suggest new FAQ entries from unanswered questions",
	Long: `Scan the event log for questions that went unmatched or whose answers were
rated unhelpful, and suggest catalog entries for those asked at least twice.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Suggestions == nil {
			return fmt.Errorf("suggestion engine not initialized (observability may be disabled)")
		}

		suggestions, err := Suggestions.Suggest()
		if err != nil {
			return fmt.Errorf("building suggestions: %w", err)
		}

		out := cmd.OutOrStdout()
		if suggestionsJSON {
			data, err := json.MarshalIndent(suggestions, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting suggestions as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(suggestions) == 0 {
			fmt.Fprintln(out, "No suggestions. The catalog is covering what users ask.")
			return nil
		}
		fmt.Fprintf(out, "%d suggestion(s):\n\n", len(suggestions))
		for _, s := range suggestions {
			fmt.Fprintf(out, "  %3dx  %s\n", s.Count, s.Suggestion)
		}
		return nil
	},
}

func init() {
	suggestionsCmd.Flags().BoolVar(&suggestionsJSON, "json", false, "Output suggestions as JSON")
	rootCmd.AddCommand(suggestionsCmd)
}
