package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/supportbot/pkg/models"
)

var (
	sessionsTopic    string
	sessionsSince    string
	sessionsMinTurns int
	sessionsLimit    int
	sessionsJSON     bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Browse archived chat transcripts",
	Long: `Commands for browsing transcripts of finished chat sessions.

Every session with at least one turn is archived under sessions/ in the
base directory when it ends or is reset.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Transcripts == nil {
			return fmt.Errorf("transcript store not initialized")
		}
		if err := Transcripts.Load(); err != nil {
			return fmt.Errorf("loading sessions: %w", err)
		}

		filter := models.TranscriptFilter{Topic: sessionsTopic, MinTurns: sessionsMinTurns}
		if sessionsSince != "" {
			since, err := parseSinceDuration(sessionsSince)
			if err != nil {
				return fmt.Errorf("parsing --since: %w", err)
			}
			filter.Since = &since
		}
		matching, err := Transcripts.List(filter)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		keep := make(map[string]bool, len(matching))
		for _, t := range matching {
			keep[t.ID] = true
		}
		recent, err := Transcripts.Recent(0)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		var sessions []models.Transcript
		for _, t := range recent {
			if !keep[t.ID] {
				continue
			}
			sessions = append(sessions, t)
			if sessionsLimit > 0 && len(sessions) == sessionsLimit {
				break
			}
		}

		out := cmd.OutOrStdout()
		if sessionsJSON {
			data, err := json.MarshalIndent(sessions, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting sessions as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(sessions) == 0 {
			fmt.Fprintln(out, "No archived sessions found.")
			return nil
		}
		for _, t := range sessions {
			fmt.Fprintf(out, "%-36s  %s  %-8s %3d turns (%d matched)  %s\n",
				t.ID,
				t.StartedAt.Local().Format("2006-01-02 15:04"),
				t.Duration,
				t.TurnCount,
				t.MatchedCount,
				strings.Join(t.Topics, ", "),
			)
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show an archived session's transcript",
	Long:  `Show a transcript by session ID or by a unique prefix of it.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Transcripts == nil {
			return fmt.Errorf("transcript store not initialized")
		}
		if err := Transcripts.Load(); err != nil {
			return fmt.Errorf("loading sessions: %w", err)
		}
		transcript, err := Transcripts.Get(args[0])
		if err != nil {
			return err
		}
		turns, err := Transcripts.Turns(transcript.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if sessionsJSON {
			data, err := json.MarshalIndent(struct {
				Transcript *models.Transcript        `json:"transcript"`
				Turns      []models.ConversationTurn `json:"turns"`
			}{transcript, turns}, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting session as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "Session %s\n", transcript.ID)
		fmt.Fprintf(out, "  Started:  %s\n", transcript.StartedAt.Local().Format(time.RFC1123))
		fmt.Fprintf(out, "  Duration: %s\n", transcript.Duration)
		fmt.Fprintf(out, "  Turns:    %d (%d matched)\n", transcript.TurnCount, transcript.MatchedCount)
		if len(transcript.Topics) > 0 {
			fmt.Fprintf(out, "  Topics:   %s\n", strings.Join(transcript.Topics, ", "))
		}
		for _, turn := range turns {
			fmt.Fprintf(out, "\n[%s] you> %s\n", turn.Timestamp.Local().Format("15:04:05"), turn.Query)
			fmt.Fprintf(out, "           bot> %s\n", turn.Response)
		}
		return nil
	},
}

func init() {
	sessionsListCmd.Flags().StringVar(&sessionsTopic, "topic", "", "Only sessions that discussed this topic")
	sessionsListCmd.Flags().StringVar(&sessionsSince, "since", "", "Only sessions that ended within this window (e.g. 7d, 24h)")
	sessionsListCmd.Flags().IntVar(&sessionsMinTurns, "min-turns", 0, "Only sessions with at least this many turns")
	sessionsListCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum number of sessions to list (0 for all)")
	sessionsListCmd.Flags().BoolVar(&sessionsJSON, "json", false, "Output as JSON")
	sessionsShowCmd.Flags().BoolVar(&sessionsJSON, "json", false, "Output as JSON")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}
