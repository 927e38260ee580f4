// Package tui provides the interactive pipeline dashboard for Millrun.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true)

	daemonOnlineStyle = lipgloss.NewStyle().
				Foreground(successColor).
				Bold(true)

	daemonOfflineStyle = lipgloss.NewStyle().
				Foreground(errorColor)
)

const refreshInterval = 2 * time.Second

// App is the dashboard application model.
type App struct {
	client       *Client
	stats        *PipelineStats
	evals        []EvalRow
	selectedIdx  int
	input        textinput.Model
	width        int
	height       int
	message      string
	daemonOnline bool
}

// New creates a new dashboard application.
func New(apiAddr string) *App {
	ti := textinput.New()
	ti.Placeholder = "Type: add <title> | research <title> | code <title> | analysis <title>"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 80

	return &App{
		client: NewClient(apiAddr),
		input:  ti,
	}
}

// Run starts the dashboard.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// --- Messages ---

type statsLoadedMsg struct {
	stats *PipelineStats
	evals []EvalRow
}

type daemonStatusMsg struct{ online bool }

type commandResultMsg struct{ message string }

type tickMsg time.Time

type errMsg struct{ err error }

// --- Commands ---

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		stats, err := a.client.GetStats()
		if err != nil {
			return errMsg{err}
		}
		evals, err := a.client.ListEvaluations(15)
		if err != nil {
			return errMsg{err}
		}
		return statsLoadedMsg{stats: stats, evals: evals}
	}
}

func (a *App) checkDaemon() tea.Cmd {
	return func() tea.Msg {
		ok, err := a.client.CheckHealth()
		return daemonStatusMsg{online: err == nil && ok}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) executeCommand(cmd string) tea.Cmd {
	return func() tea.Msg {
		verb, rest := splitCommand(cmd)

		workType := "generic"
		switch verb {
		case "add":
		case "research", "code", "analysis", "communication", "decision":
			workType = verb
		default:
			return errMsg{fmt.Errorf("unknown command: %s", verb)}
		}

		if rest == "" {
			return errMsg{fmt.Errorf("usage: %s <title>", verb)}
		}

		id, err := a.client.QueueSubtask(rest, workType)
		if err != nil {
			return errMsg{err}
		}
		return commandResultMsg{message: fmt.Sprintf("Queued %s subtask %s", workType, shortID(id))}
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.checkDaemon(),
		a.refresh(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return a, tea.Quit

		case "up", "k":
			if a.selectedIdx > 0 {
				a.selectedIdx--
			}

		case "down", "j":
			if a.selectedIdx < len(a.evals)-1 {
				a.selectedIdx++
			}

		case "r":
			return a, a.refresh()

		case "enter":
			cmd := strings.TrimSpace(a.input.Value())
			if cmd != "" {
				a.input.SetValue("")
				return a, a.executeCommand(cmd)
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 4

	case statsLoadedMsg:
		a.stats = msg.stats
		a.evals = msg.evals
		if a.selectedIdx >= len(a.evals) {
			a.selectedIdx = max(0, len(a.evals)-1)
		}
		// Schedule the next poll only after the current fetch is complete.
		cmds = append(cmds, a.tickCmd())

	case daemonStatusMsg:
		a.daemonOnline = msg.online

	case tickMsg:
		return a, tea.Batch(a.refresh(), a.checkDaemon())

	case commandResultMsg:
		a.message = msg.message
		return a, a.refresh()

	case errMsg:
		a.message = "Error: " + msg.err.Error()
		cmds = append(cmds, a.tickCmd())
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	daemonStatus := daemonOnlineStyle.Render("● DAEMON")
	if !a.daemonOnline {
		daemonStatus = daemonOfflineStyle.Render("○ DAEMON")
	}

	header := titleStyle.Render("MILLRUN Pipeline") + "  " + daemonStatus
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(0, a.width)) + "\n")

	b.WriteString(a.renderStatsPanel() + "\n")

	contentHeight := a.height - 14
	if contentHeight < 5 {
		contentHeight = 5
	}
	b.WriteString(a.renderEvalList(contentHeight))

	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message))
	} else {
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(a.input.View()))
	b.WriteString("\n")

	status := fmt.Sprintf(" Evaluations: %d | ↑↓:nav | r:refresh | Enter:queue | Esc:quit", len(a.evals))
	b.WriteString(statusBarStyle.Width(a.width).Render(status))

	return b.String()
}

func (a *App) renderStatsPanel() string {
	if a.stats == nil {
		return panelStyle.Render("Loading stats...")
	}

	active := fmt.Sprintf("Active %d/%d", a.stats.ActiveExecutions, a.stats.MaxConcurrent)
	activeStyle := lipgloss.NewStyle().Foreground(successColor)
	if a.stats.ActiveExecutions >= a.stats.MaxConcurrent {
		activeStyle = lipgloss.NewStyle().Foreground(warningColor)
	}

	line := strings.Join([]string{
		activeStyle.Render(active),
		fmt.Sprintf("Queued %d", a.stats.QueuedSubtasks),
		fmt.Sprintf("Evaluated %d", a.stats.TotalEvaluations),
		fmt.Sprintf("Avg score %d", a.stats.AverageScore),
		fmt.Sprintf("Eval queue %d", a.stats.EvalQueueSize),
	}, "   ")

	return panelStyle.Render(line)
}

func (a *App) renderEvalList(height int) string {
	if len(a.evals) == 0 {
		return "\n  No evaluations yet. Queue a subtask to get started.\n"
	}

	var lines []string
	for i, e := range a.evals {
		score := a.formatScore(e.OverallScore)
		text := fmt.Sprintf(" %s  %s  C%d Q%d E%d I%d  %s",
			shortID(e.TaskID), score,
			e.Completeness, e.Quality, e.Efficiency, e.Innovation,
			clip(e.Feedback, 60))

		if i == a.selectedIdx {
			lines = append(lines, selectedStyle.Render("▶"+text))
		} else {
			lines = append(lines, " "+text)
		}
	}

	if len(lines) > height {
		start := a.selectedIdx - height/2
		if start < 0 {
			start = 0
		}
		end := start + height
		if end > len(lines) {
			end = len(lines)
			start = max(0, end-height)
		}
		lines = lines[start:end]
	}

	return strings.Join(lines, "\n")
}

func (a *App) formatScore(score int) string {
	label := fmt.Sprintf("%3d", score)
	switch {
	case score >= 80:
		return daemonOnlineStyle.Render(label)
	case score >= 60:
		return lipgloss.NewStyle().Foreground(warningColor).Render(label)
	default:
		return lipgloss.NewStyle().Foreground(errorColor).Render(label)
	}
}

// --- Helpers ---

func splitCommand(s string) (verb, rest string) {
	parts := strings.SplitN(strings.TrimSpace(s), " ", 2)
	verb = parts[0]
	if len(parts) > 1 {
		rest = strings.TrimSpace(parts[1])
	}
	return verb, rest
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
