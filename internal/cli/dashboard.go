package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/build-brain/internal/core"
)

// Dashboard panel indices.
const (
	panelProjects = iota
	panelTasks
	panelMetrics
	panelAlerts
	panelCount
)

// allProjects keys the task counts summed over every project.
const allProjects = ""

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	projects table.Model
	spinner  spinner.Model

	// Data.
	taskCounts  map[string]map[string]int
	metricsData *metricsSnapshot
	alerts      []alertSnapshot

	// State.
	loading bool
	err     error
}

type projectSnapshot struct {
	id          string
	title       string
	projectType string
	completion  int
}

type metricsSnapshot struct {
	projectsCreated     int
	tasksGenerated      int
	generatedHours      int
	tasksCompleted      int
	milestonesTriggered int
	eventCount          int
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	projects   []projectSnapshot
	taskCounts map[string]map[string]int
	metrics    *metricsSnapshot
	alerts     []alertSnapshot
	err        error
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

	statusNotStarted = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusOnHold     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusCompleted  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusCancelled  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var projectColumns = []table.Column{
	{Title: "ID", Width: 12},
	{Title: "Title", Width: 32},
	{Title: "Type", Width: 12},
	{Title: "Done", Width: 5},
}

func newDashboardModel() dashboardModel {
	t := table.New(
		table.WithColumns(projectColumns),
		table.WithFocused(true),
		table.WithHeight(6),
	)
	styles := table.DefaultStyles()
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("62"))
	t.SetStyles(styles)

	return dashboardModel{
		activePanel: panelProjects,
		loading:     true,
		projects:    t,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		taskCounts:  make(map[string]map[string]int),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(loadData, m.spinner.Tick)
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			m.syncTableFocus()
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			m.syncTableFocus()
			return m, nil
		case "r":
			m.loading = true
			return m, tea.Batch(loadData, m.spinner.Tick)
		}
		if m.activePanel == panelProjects {
			var cmd tea.Cmd
			m.projects, cmd = m.projects.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		rows := make([]table.Row, 0, len(msg.projects))
		for _, p := range msg.projects {
			rows = append(rows, table.Row{p.id, p.title, p.projectType, fmt.Sprintf("%d%%", p.completion)})
		}
		m.projects.SetRows(rows)
		m.taskCounts = msg.taskCounts
		m.metricsData = msg.metrics
		m.alerts = msg.alerts
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m *dashboardModel) syncTableFocus() {
	if m.activePanel == panelProjects {
		m.projects.Focus()
	} else {
		m.projects.Blur()
	}
}

// selectedProjectID returns the highlighted project, or allProjects when the
// table is empty.
func (m dashboardModel) selectedProjectID() string {
	row := m.projects.SelectedRow()
	if len(row) == 0 {
		return allProjects
	}
	return row[0]
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" bdb Dashboard ")
	help := helpStyle.Render("tab: switch panel | up/down: select project | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  %s Loading data...\n\n%s", title, m.spinner.View(), help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	projectsPanel := m.renderProjectsPanel()
	tasksPanel := m.renderTasksPanel()
	metricsPanel := m.renderMetricsPanel()
	alertsPanel := m.renderAlertsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Projects across the top, three columns below.
		colWidth := availableWidth / 3
		projectsPanel = m.applyPanelStyle(panelProjects, projectsPanel, availableWidth-4)
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, colWidth-4)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		body = lipgloss.JoinVertical(lipgloss.Left,
			projectsPanel,
			lipgloss.JoinHorizontal(lipgloss.Top, tasksPanel, metricsPanel, alertsPanel))
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		projectsPanel = m.applyPanelStyle(panelProjects, projectsPanel, panelWidth)
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, panelWidth)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, projectsPanel, tasksPanel, metricsPanel, alertsPanel)
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

func (m dashboardModel) renderProjectsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Projects"))
	b.WriteString("\n")

	if len(m.projects.Rows()) == 0 {
		b.WriteString("  No projects yet. Create one with 'bdb project create'.")
		return b.String()
	}
	b.WriteString(m.projects.View())
	return b.String()
}

// taskStatusOrder is the lifecycle display order for the tasks panel.
var taskStatusOrder = []string{"in_progress", "on_hold", "not_started", "completed", "cancelled"}

func (m dashboardModel) renderTasksPanel() string {
	projectID := m.selectedProjectID()

	var b strings.Builder
	if projectID == allProjects {
		b.WriteString(headerStyle.Render("Tasks"))
	} else {
		b.WriteString(headerStyle.Render("Tasks: " + projectID))
	}
	b.WriteString("\n")

	counts := m.taskCounts[projectID]
	if len(counts) == 0 {
		b.WriteString("  No tasks found.")
		return b.String()
	}

	total := 0
	for _, status := range taskStatusOrder {
		count := counts[status]
		if count == 0 {
			continue
		}
		total += count
		label := fmt.Sprintf("  %-14s %d", status, count)
		b.WriteString(styleForStatus(status).Render(label))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("\n  Total: %d", total))

	return b.String()
}

func (m dashboardModel) renderMetricsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Metrics (7d)"))
	b.WriteString("\n")

	if m.metricsData == nil {
		b.WriteString("  No metrics available.")
		return b.String()
	}

	md := m.metricsData
	lines := []struct {
		label string
		value int
	}{
		{"Events", md.eventCount},
		{"Projects", md.projectsCreated},
		{"Generated", md.tasksGenerated},
		{"Hours", md.generatedHours},
		{"Completed", md.tasksCompleted},
		{"Milestones", md.milestonesTriggered},
	}

	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-14s %d\n", l.label, l.value))
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

func styleForStatus(status string) lipgloss.Style {
	switch status {
	case "not_started":
		return statusNotStarted
	case "in_progress":
		return statusInProgress
	case "on_hold":
		return statusOnHold
	case "completed":
		return statusCompleted
	case "cancelled":
		return statusCancelled
	default:
		return lipgloss.NewStyle()
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

func loadData() tea.Msg {
	result := dataLoadedMsg{
		taskCounts: map[string]map[string]int{allProjects: {}},
	}

	if Projects != nil {
		projects, err := Projects.ListProjects()
		if err != nil {
			result.err = fmt.Errorf("loading projects: %w", err)
			return result
		}
		for _, p := range projects {
			completion, err := Projects.ProjectCompletion(p.ID)
			if err != nil {
				result.err = fmt.Errorf("loading project %s: %w", p.ID, err)
				return result
			}
			result.projects = append(result.projects, projectSnapshot{
				id:          p.ID,
				title:       p.Title,
				projectType: string(p.ProjectType),
				completion:  completion,
			})
		}

		tasks, err := Projects.ListTasks(core.TaskFilter{})
		if err != nil {
			result.err = fmt.Errorf("loading tasks: %w", err)
			return result
		}
		for _, t := range tasks {
			if result.taskCounts[t.ProjectID] == nil {
				result.taskCounts[t.ProjectID] = make(map[string]int)
			}
			result.taskCounts[t.ProjectID][string(t.Status)]++
			result.taskCounts[allProjects][string(t.Status)]++
		}
	}

	if MetricsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.metrics = &metricsSnapshot{
			projectsCreated:     metrics.ProjectsCreated,
			tasksGenerated:      metrics.TasksGenerated,
			generatedHours:      metrics.GeneratedHours,
			tasksCompleted:      metrics.TasksCompleted,
			milestonesTriggered: metrics.MilestonesTriggered,
			eventCount:          metrics.EventCount,
		}
	}

	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate("")
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
	Short: "Interactive TUI dashboard for projects, tasks, metrics and alerts",
	Long: `Launch an interactive terminal dashboard showing projects with their
completion, task status counts for the selected project, generation metrics,
and schedule alerts.

Navigate between panels with Tab, select a project with the arrow keys,
refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil {
			return fmt.Errorf("project service not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
