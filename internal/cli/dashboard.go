package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Dashboard panel indices.
const (
	panelMetrics = iota
	panelAlerts
	panelSuggestions
	panelCount
)

var dashboardSince string

type dashboardModel struct {
	activePanel int
	width       int
	height      int
	since       time.Time

	// Data.
	metricsData *metricsSnapshot
	alerts      []alertSnapshot
	suggestions []suggestionSnapshot

	// State.
	loading bool
	err     error
}

type metricsSnapshot struct {
	queries    int
	matchRate  float64
	followUps  int
	avgMS      float64
	helpful    int
	unhelpful  int
	sessions   int
	errors     int
	eventCount int
	categories map[string]int
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

type suggestionSnapshot struct {
	query string
	count int
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	metrics     *metricsSnapshot
	alerts      []alertSnapshot
	suggestions []suggestionSnapshot
	err         error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	goodStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	badStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel(since time.Time) dashboardModel {
	return dashboardModel{
		activePanel: panelMetrics,
		since:       since,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return m.load
}

func (m dashboardModel) load() tea.Msg {
	return loadData(m.since)
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, m.load
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.metricsData = msg.metrics
		m.alerts = msg.alerts
		m.suggestions = msg.suggestions
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" supportbot analytics ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	metricsPanel := m.renderMetricsPanel()
	alertsPanel := m.renderAlertsPanel()
	suggestionsPanel := m.renderSuggestionsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		suggestionsPanel = m.applyPanelStyle(panelSuggestions, suggestionsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, metricsPanel, alertsPanel, suggestionsPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		suggestionsPanel = m.applyPanelStyle(panelSuggestions, suggestionsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, metricsPanel, alertsPanel, suggestionsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderMetricsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Metrics since " + m.since.Local().Format("Jan 2")))
	b.WriteString("\n")

	if m.metricsData == nil {
		b.WriteString("  No metrics available.")
		return b.String()
	}

	md := m.metricsData
	rate := fmt.Sprintf("  %-14s %.0f%%", "Match rate", md.matchRate*100)
	b.WriteString(styleForRate(md.matchRate).Render(rate))
	b.WriteString("\n")

	lines := []struct {
		label string
		value string
	}{
		{"Queries", fmt.Sprint(md.queries)},
		{"Follow-ups", fmt.Sprint(md.followUps)},
		{"Avg response", fmt.Sprintf("%.0fms", md.avgMS)},
		{"Helpful", fmt.Sprint(md.helpful)},
		{"Unhelpful", fmt.Sprint(md.unhelpful)},
		{"Sessions", fmt.Sprint(md.sessions)},
		{"Errors", fmt.Sprint(md.errors)},
		{"Events", fmt.Sprint(md.eventCount)},
	}
	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-14s %s\n", l.label, l.value))
	}

	if len(md.categories) > 0 {
		b.WriteString("\n  Top categories:\n")
		for _, c := range topCategories(md.categories, 5) {
			b.WriteString(fmt.Sprintf("    %-22s %d\n", c, md.categories[c]))
		}
	}

	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))

	return b.String()
}

func (m dashboardModel) renderSuggestionsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Catalog gaps"))
	b.WriteString("\n")

	if len(m.suggestions) == 0 {
		b.WriteString("  No repeated unanswered questions.")
		return b.String()
	}

	for _, s := range m.suggestions {
		b.WriteString(fmt.Sprintf("  %3dx %s\n", s.count, s.query))
	}

	return b.String()
}

// topCategories returns up to n category names, most queried first.
func topCategories(counts map[string]int, n int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func styleForRate(rate float64) lipgloss.Style {
	switch {
	case rate >= 0.8:
		return goodStyle
	case rate >= 0.5:
		return warnStyle
	default:
		return badStyle
	}
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func loadData(since time.Time) tea.Msg {
	var result dataLoadedMsg

	if MetricsCalc != nil {
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.metrics = &metricsSnapshot{
			queries:    metrics.Queries,
			matchRate:  metrics.MatchRate,
			followUps:  metrics.FollowUps,
			avgMS:      metrics.AvgResponseMS,
			helpful:    metrics.FeedbackHelpful,
			unhelpful:  metrics.FeedbackUnhelpful,
			sessions:   metrics.SessionsStarted,
			errors:     metrics.Errors,
			eventCount: metrics.EventCount,
			categories: metrics.QueriesByCategory,
		}
	}

	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			result.err = fmt.Errorf("loading alerts: %w", err)
			return result
		}
		result.alerts = make([]alertSnapshot, 0, len(alerts))

		// Sort alerts by severity: high first, then medium, then low.
		sort.SliceStable(alerts, func(i, j int) bool {
			return severityRank(string(alerts[i].Severity)) < severityRank(string(alerts[j].Severity))
		})

		for _, a := range alerts {
			result.alerts = append(result.alerts, alertSnapshot{
				severity: string(a.Severity),
				message:  a.Message,
				time:     a.TriggeredAt.Format("2006-01-02 15:04 UTC"),
			})
		}
	}

	if Suggestions != nil {
		suggestions, err := Suggestions.Suggest()
		if err != nil {
			result.err = fmt.Errorf("loading suggestions: %w", err)
			return result
		}
		for _, s := range suggestions {
			result.suggestions = append(result.suggestions, suggestionSnapshot{query: s.Query, count: s.Count})
		}
	}

	return result
}

func severityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for chat analytics",
	Long: `Launch an interactive terminal dashboard showing chat metrics, active
alerts, and catalog gaps from the event log.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}
		since, err := parseSinceDuration(dashboardSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
		p := tea.NewProgram(newDashboardModel(since), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(dashboardCmd)
}
