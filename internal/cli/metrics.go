package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display chat analytics",
	Long: `Display aggregated chat metrics derived from the event log.

Metrics include query counts and match rate, follow-ups, average response
time, answer feedback, sessions, resets, errors and retries, and matched
queries by catalog category.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}

		sinceTime, err := parseSinceDuration(metricsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		// Table format.
		fmt.Fprintf(out, "Metrics (since %s)\n\n", sinceTime.Format("2006-01-02 15:04"))
		fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Queries:", metrics.Queries)
		fmt.Fprintf(out, "  %-24s %d (%.0f%%)\n", "Matched:", metrics.Matched, metrics.MatchRate*100)
		fmt.Fprintf(out, "  %-24s %d\n", "Unmatched:", metrics.Unmatched)
		fmt.Fprintf(out, "  %-24s %d\n", "Follow-ups:", metrics.FollowUps)
		fmt.Fprintf(out, "  %-24s %.0fms\n", "Avg response time:", metrics.AvgResponseMS)
		fmt.Fprintf(out, "  %-24s %d helpful, %d unhelpful\n", "Feedback:", metrics.FeedbackHelpful, metrics.FeedbackUnhelpful)
		fmt.Fprintf(out, "  %-24s %d started, %d ended\n", "Sessions:", metrics.SessionsStarted, metrics.SessionsEnded)
		fmt.Fprintf(out, "  %-24s %d\n", "Resets:", metrics.Resets)
		fmt.Fprintf(out, "  %-24s %d (%d retries)\n", "Errors:", metrics.Errors, metrics.Retries)

		if len(metrics.QueriesByCategory) > 0 {
			fmt.Fprintln(out, "\n  Matched by category:")
			categories := make([]string, 0, len(metrics.QueriesByCategory))
			for category := range metrics.QueriesByCategory {
				categories = append(categories, category)
			}
			sort.Strings(categories)
			for _, category := range categories {
				fmt.Fprintf(out, "    %-26s %d\n", category+":", metrics.QueriesByCategory[category])
			}
		}

		if metrics.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}

		return nil
	},
}

// parseSinceDuration parses a human-friendly duration string like "7d",
// "30d", "24h", or "1w2d" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
	}
	if d < 0 {
		return time.Time{}, fmt.Errorf("duration %q must not be negative", s)
	}
	return now.Add(-d), nil
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
