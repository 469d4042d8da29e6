package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/supportbot/internal/core"
	"github.com/valter-silva-au/supportbot/internal/logger"
	"github.com/valter-silva-au/supportbot/pkg/models"
)

// chatLogFileName receives logs while the chat UI owns the terminal.
const chatLogFileName = "supportbot.log"

// chatChromeHeight is the number of rows used by the title, status line,
// and input box.
const chatChromeHeight = 6

var (
	userStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	botStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	degradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	apologyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	linkStyle     = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("39"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	inputStyle    = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// --- Messages ---

// botMessageMsg carries a delivered bot message into the UI loop.
type botMessageMsg struct{ msg core.BotMessage }

// showMessageMsg fires once a bot message's typing delay has elapsed.
type showMessageMsg struct{ msg core.BotMessage }

type retryMsg struct {
	generation  uint64
	attempt     int
	maxAttempts int
}

type turnDoneMsg struct {
	result *core.TurnResult
	err    error
}

// checkInMsg fires after the idle period. activity tags the user activity
// count when it was scheduled so stale timers are ignored.
type checkInMsg struct {
	generation uint64
	activity   int
}

type actionDoneMsg struct {
	status string
	err    error
}

// --- Deliverer ---

// programDeliverer forwards agent output into the bubbletea event loop.
type programDeliverer struct {
	send func(tea.Msg)
}

func (d *programDeliverer) Deliver(msg core.BotMessage) error {
	d.send(botMessageMsg{msg: msg})
	return nil
}

func (d *programDeliverer) RetryAttempt(generation uint64, attempt, maxAttempts int) {
	d.send(retryMsg{generation: generation, attempt: attempt, maxAttempts: maxAttempts})
}

// --- Model ---

type chatLine struct {
	user  bool
	kind  core.MessageKind
	text  string
	links []models.Span
}

type chatModel struct {
	ctx          context.Context
	agent        core.ChatAgent
	checkInAfter time.Duration

	input   textinput.Model
	view    viewport.Model
	spinner spinner.Model
	ready   bool
	width   int

	suggested   []string
	lines       []chatLine
	pending     int
	busy        bool
	status      string
	lastQueryID string
	activity    int
}

func newChatModel(ctx context.Context, agent core.ChatAgent, checkInAfter time.Duration, suggested []string) chatModel {
	input := textinput.New()
	input.Placeholder = "Ask a question..."
	input.Prompt = "> "
	input.CharLimit = 500
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	return chatModel{
		ctx:          ctx,
		agent:        agent,
		checkInAfter: checkInAfter,
		input:        input,
		spinner:      s,
		suggested:    suggested,
	}
}

func (m chatModel) Init() tea.Cmd {
	agent := m.agent
	return tea.Batch(textinput.Blink, m.spinner.Tick, func() tea.Msg {
		return actionDoneMsg{err: agent.Start()}
	})
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.send()
		case "ctrl+r":
			m.activity++
			m.status = ""
			m.lastQueryID = ""
			m.lines = nil
			m.refresh()
			agent := m.agent
			return m, func() tea.Msg {
				return actionDoneMsg{status: "Started a new conversation.", err: agent.Reset()}
			}
		case "ctrl+y", "ctrl+n":
			return m.feedback(msg.String() == "ctrl+y")
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := msg.Height - chatChromeHeight
		if height < 3 {
			height = 3
		}
		if !m.ready {
			m.view = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = height
		}
		m.input.Width = msg.Width - 6
		m.refresh()
		return m, nil

	case botMessageMsg:
		m.pending++
		shown := msg.msg
		return m, tea.Tick(shown.Delay, func(time.Time) tea.Msg {
			return showMessageMsg{msg: shown}
		})

	case showMessageMsg:
		m.pending--
		if msg.msg.Generation != m.agent.Generation() {
			return m, nil
		}
		m.lines = append(m.lines, chatLine{
			kind:  msg.msg.Kind,
			text:  spanText(msg.msg.Rich),
			links: msg.msg.Rich.Links(),
		})
		if msg.msg.QueryID != "" {
			m.lastQueryID = msg.msg.QueryID
		}
		if msg.msg.Kind != core.KindDegraded {
			m.status = ""
		}
		m.refresh()
		return m, m.scheduleCheckIn()

	case retryMsg:
		if msg.generation == m.agent.Generation() {
			m.status = fmt.Sprintf("Retrying (%d/%d)...", msg.attempt, msg.maxAttempts)
		}
		return m, nil

	case turnDoneMsg:
		m.busy = false
		if msg.err != nil && !errors.Is(msg.err, core.ErrStaleSession) {
			m.status = "Error: " + msg.err.Error()
		}
		return m, nil

	case checkInMsg:
		if msg.activity != m.activity || m.busy {
			return m, nil
		}
		agent := m.agent
		return m, func() tea.Msg {
			_, err := agent.CheckIn(msg.generation)
			return actionDoneMsg{err: err}
		}

	case actionDoneMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else if msg.status != "" {
			m.status = msg.status
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.ready {
		m.view, cmd = m.view.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// send hands the input line to the agent in the background.
func (m chatModel) send() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.SetValue("")
	m.activity++
	m.busy = true
	m.status = ""
	m.lines = append(m.lines, chatLine{user: true, text: text})
	m.refresh()

	ctx, agent := m.ctx, m.agent
	return m, func() tea.Msg {
		result, err := agent.HandleMessage(ctx, text)
		return turnDoneMsg{result: result, err: err}
	}
}

func (m chatModel) feedback(helpful bool) (tea.Model, tea.Cmd) {
	if m.lastQueryID == "" {
		m.status = "Nothing to rate yet."
		return m, nil
	}
	queryID := m.lastQueryID
	m.lastQueryID = ""
	agent := m.agent
	return m, func() tea.Msg {
		status := "Thanks for the feedback!"
		if !helpful {
			status = "Thanks, we'll use that to improve our answers."
		}
		return actionDoneMsg{status: status, err: agent.Feedback(queryID, helpful, "")}
	}
}

// scheduleCheckIn arms the idle timer for the current activity count.
func (m chatModel) scheduleCheckIn() tea.Cmd {
	if m.checkInAfter <= 0 {
		return nil
	}
	tag := checkInMsg{generation: m.agent.Generation(), activity: m.activity}
	return tea.Tick(m.checkInAfter, func(time.Time) tea.Msg { return tag })
}

func (m *chatModel) refresh() {
	if !m.ready {
		return
	}
	m.view.SetContent(m.renderTranscript())
	m.view.GotoBottom()
}

func (m chatModel) renderTranscript() string {
	wrap := lipgloss.NewStyle().Width(max(m.width-8, 20))
	var b strings.Builder
	for _, line := range m.lines {
		if line.user {
			b.WriteString(userStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(wrap.Render(line.text))
			b.WriteString("\n\n")
			continue
		}
		b.WriteString(botStyle.Render("Support"))
		b.WriteString("\n")
		text := wrap.Render(line.text)
		switch line.kind {
		case core.KindDegraded:
			text = degradedStyle.Render(text)
		case core.KindApology:
			text = apologyStyle.Render(text)
		}
		b.WriteString(text)
		b.WriteString("\n")
		for _, l := range line.links {
			b.WriteString("  ")
			b.WriteString(linkStyle.Render(l.Text))
			b.WriteString(statusStyle.Render(" " + l.URL))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if !m.hasUserLines() && len(m.suggested) > 0 {
		b.WriteString(statusStyle.Render("Try asking:"))
		b.WriteString("\n")
		for _, q := range m.suggested {
			b.WriteString(statusStyle.Render("  - " + q))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m chatModel) hasUserLines() bool {
	for _, line := range m.lines {
		if line.user {
			return true
		}
	}
	return false
}

// suggestedQuestions returns the first n catalog questions.
func suggestedQuestions(catalog []models.KnowledgeItem, n int) []string {
	var out []string
	for _, item := range catalog {
		if len(out) == n {
			break
		}
		out = append(out, item.Question)
	}
	return out
}

// spanText joins the visible text of rich; link targets are listed below
// the message instead.
func spanText(rich models.RichText) string {
	var b strings.Builder
	for _, s := range rich {
		b.WriteString(s.Text)
	}
	return b.String()
}

func (m chatModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	status := m.status
	if m.busy || m.pending > 0 {
		status = m.spinner.View() + " Support is typing... " + status
	}
	help := "enter: send | ctrl+y/ctrl+n: rate answer | ctrl+r: new chat | esc: quit"

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s",
		titleStyle.Render(" supportbot "),
		m.view.View(),
		statusStyle.Render(status),
		inputStyle.Width(max(m.width-2, 20)).Render(m.input.View()),
		helpStyle.Render(help),
	)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the support agent in the terminal",
	Long: `Open an interactive chat with the support agent.

Replies appear after a short typing delay. Rate the last answer with ctrl+y
(helpful) or ctrl+n (not helpful), start over with ctrl+r, and quit with esc.
Logs are written to supportbot.log in the base directory while the chat is
open.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logFile, err := os.OpenFile(filepath.Join(BasePath, chatLogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening chat log: %w", err)
		}
		defer logFile.Close()

		level := logger.InfoLevel
		if Settings != nil {
			level = logger.ParseLevel(Settings.Log.Level)
		}
		if cmd.Flags().Changed("log-level") {
			level = logger.ParseLevel(logLevel)
		}
		chatLog := logger.NewLogger(&logger.Config{Level: level, Output: logFile, JSON: logJSON, TimeFormat: time.RFC3339})

		cfg, err := agentConfig("tui", chatLog)
		if err != nil {
			return err
		}
		deliverer := &programDeliverer{}
		cfg.Deliverer = deliverer
		agent, err := core.NewChatAgent(cfg)
		if err != nil {
			return err
		}
		defer agent.Close()

		checkInAfter := core.DefaultBotConfig().Timing.CheckInAfter
		if Settings != nil {
			checkInAfter = Settings.Timing.CheckInAfter
		}

		ctx := commandContext(cmd)
		p := tea.NewProgram(newChatModel(ctx, agent, checkInAfter, suggestedQuestions(Catalog, 3)), tea.WithAltScreen(), tea.WithContext(ctx))
		deliverer.send = p.Send
		_, err = p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
