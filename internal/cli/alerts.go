package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/supportbot/internal/observability"
)

var (
	alertsNotify  bool
	alertsWebhook string
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active alerts and warnings",
	Long: `Evaluate alert conditions against the event log and display any triggered alerts.

Alerts check for a high unmatched-query rate, error spikes, negative answer
feedback, and slow responses. Thresholds come from the alerts section of
.supportbot.yaml.

With --notify, triggered alerts are also posted to alerts.webhook_url, or to
the URL given with --webhook.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized (observability may be disabled)")
		}

		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(alerts) == 0 {
			fmt.Fprintln(out, "No active alerts.")
			return nil
		}

		fmt.Fprintf(out, "%d active alert(s):\n\n", len(alerts))
		for _, alert := range alerts {
			severity := strings.ToUpper(string(alert.Severity))
			fmt.Fprintf(out, "  [%s] %s\n", severity, alert.Message)
			fmt.Fprintf(out, "         triggered at %s\n\n", alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
		}

		if !alertsNotify && alertsWebhook == "" {
			return nil
		}
		notifier := Notifier
		if alertsWebhook != "" {
			notifier = observability.NewWebhookNotifier(alertsWebhook)
		}
		if notifier == nil {
			return fmt.Errorf("notifier not configured (set alerts.webhook_url or pass --webhook)")
		}
		if err := notifier.Notify(commandContext(cmd), alerts); err != nil {
			return fmt.Errorf("sending notifications: %w", err)
		}
		fmt.Fprintf(out, "Sent %d alert(s) to webhook.\n", len(alerts))
		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Post triggered alerts to the configured webhook")
	alertsCmd.Flags().StringVar(&alertsWebhook, "webhook", "", "Post triggered alerts to this webhook URL (implies --notify)")
	rootCmd.AddCommand(alertsCmd)
}
