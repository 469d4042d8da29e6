package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/supportbot/internal/core"
	"github.com/valter-silva-au/supportbot/internal/logger"
	"github.com/valter-silva-au/supportbot/internal/observability"
)

// agentConfig assembles the chat agent's collaborators from the wired
// services. deliverer is left for the caller to set.
func agentConfig(userAgent string, log logger.Logger) (core.AgentConfig, error) {
	if Matcher == nil {
		return core.AgentConfig{}, fmt.Errorf("catalog matcher not initialized")
	}
	if log == nil {
		log = Log
	}
	if log == nil {
		log = logger.Nop()
	}
	return core.AgentConfig{
		Matcher:   Matcher,
		Telemetry: Telemetry,
		Visits:    Visits,
		Errors:    observability.NewErrorLog(EventLog, log),
		Logger:    log,
		Settings:  Settings,
		UserAgent: userAgent,
	}, nil
}

// writerDeliverer prints bot messages as they arrive, ignoring delays.
type writerDeliverer struct {
	mu sync.Mutex
	w  io.Writer
}

func (d *writerDeliverer) Deliver(msg core.BotMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := io.WriteString(d.w, formatBotMessage(msg))
	return err
}

func (d *writerDeliverer) RetryAttempt(_ uint64, attempt, maxAttempts int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, "  (retrying %d/%d)\n", attempt, maxAttempts)
}

// formatBotMessage renders msg as plain text with link targets inline.
func formatBotMessage(msg core.BotMessage) string {
	return "bot> " + msg.Rich.Plain() + "\n"
}

// commandContext returns cmd's context, or Background when the command is
// run without Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
