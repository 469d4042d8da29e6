package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/supportbot/internal/core"
)

var askJSON bool

type askTurn struct {
	Query           string  `json:"query"`
	Intent          string  `json:"intent"`
	Kind            string  `json:"kind"`
	Reply           string  `json:"reply"`
	MatchedQuestion string  `json:"matched_question,omitempty"`
	Confidence      float64 `json:"confidence"`
	QueryID         string  `json:"query_id,omitempty"`
	Attempts        int     `json:"attempts"`
	Error           string  `json:"error,omitempty"`
}

var askCmd = &cobra.Command{
	Use:   "ask <message> [message...]",
	Short: "Ask the support agent one or more questions",
	Long: `Send each argument to the support agent as a separate message in a single
conversation and print the replies. Later messages can follow up on earlier
ones ("tell me more").

The conversation is tracked and archived like any other session. Use the
printed query id with 'supportbot feedback' to rate an answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		cfg, err := agentConfig("cli", nil)
		if err != nil {
			return err
		}
		if askJSON {
			cfg.Deliverer = discardDeliverer{}
		} else {
			cfg.Deliverer = &writerDeliverer{w: out}
		}
		agent, err := core.NewChatAgent(cfg)
		if err != nil {
			return err
		}
		defer agent.Close()

		var turns []askTurn
		for _, message := range args {
			if !askJSON {
				fmt.Fprintf(out, "you> %s\n", message)
			}
			result, err := agent.HandleMessage(commandContext(cmd), message)
			if err != nil {
				return fmt.Errorf("handling %q: %w", message, err)
			}
			if result == nil {
				continue
			}
			turn := askTurn{
				Query:      result.Query,
				Intent:     string(result.Intent),
				Kind:       string(result.Reply.Kind),
				Reply:      result.Reply.Rich.Plain(),
				Confidence: result.Confidence,
				QueryID:    result.Reply.QueryID,
				Attempts:   result.Attempts,
			}
			if result.Matched != nil {
				turn.MatchedQuestion = result.Matched.Question
			}
			if result.Err != nil {
				turn.Error = result.Err.Error()
			}
			turns = append(turns, turn)
			if !askJSON && turn.QueryID != "" {
				fmt.Fprintf(out, "      (query id %s)\n", turn.QueryID)
			}
		}

		if askJSON {
			data, err := json.MarshalIndent(turns, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting replies as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
		}
		return nil
	},
}

var (
	feedbackUnhelpful bool
	feedbackComment   string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <query-id>",
	Short: "Rate an answer as helpful or unhelpful",
	Long: `Record feedback for an answer given by 'supportbot ask' or the chat UI.
Answers are rated helpful unless --unhelpful is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Telemetry == nil {
			return fmt.Errorf("telemetry not initialized (event log may be disabled)")
		}
		helpful := !feedbackUnhelpful
		if err := Telemetry.TrackFeedback(args[0], helpful, feedbackComment); err != nil {
			return fmt.Errorf("recording feedback: %w", err)
		}
		rating := "helpful"
		if !helpful {
			rating = "unhelpful"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s feedback for %s.\n", rating, args[0])
		return nil
	},
}

type discardDeliverer struct{}

func (discardDeliverer) Deliver(core.BotMessage) error { return nil }

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Output replies as JSON")
	feedbackCmd.Flags().BoolVar(&feedbackUnhelpful, "unhelpful", false, "Rate the answer as unhelpful")
	feedbackCmd.Flags().StringVarP(&feedbackComment, "comment", "m", "", "Optional comment")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(feedbackCmd)
}
