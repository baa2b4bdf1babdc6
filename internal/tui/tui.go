package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/directive/engine"
	"github.com/sokinpui/directive/internal/fs"
	"github.com/sokinpui/directive/internal/ui"
	"github.com/sokinpui/directive/model"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	pathStyle    = lipgloss.NewStyle()
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// Task is the work shown behind the spinner. It returns either a processed
// response or a bare summary (undo, redo).
type Task func(ctx context.Context) (Outcome, error)

// Outcome is what a Task produced.
type Outcome struct {
	Response *model.Response
	Summary  model.Summary
}

// ProcessTask runs one response through the engine.
func ProcessTask(e *engine.Engine, raw string, registry *fs.Registry) Task {
	return func(ctx context.Context) (Outcome, error) {
		resp, err := e.Process(ctx, raw, registry)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Response: &resp, Summary: model.Summarize(resp.Results)}, nil
	}
}

// SummaryTask wraps undo or redo.
func SummaryTask(fn func() (model.Summary, error)) Task {
	return func(context.Context) (Outcome, error) {
		s, err := fn()
		return Outcome{Summary: s}, err
	}
}

// --- Messages ---
type outcomeMsg struct {
	Outcome
}

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

// --- Model ---
type Model struct {
	ctx     context.Context
	task    Task
	root    string
	spinner spinner.Model
	state   state
	outcome Outcome
	err     error
}

type state int

const (
	stateProcessing state = iota
	stateSummary
	stateError
)

// New creates the program model. root shortens paths in the summary.
func New(ctx context.Context, root string, task Task) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		ctx:     ctx,
		task:    task,
		root:    root,
		spinner: s,
		state:   stateProcessing,
	}
}

// Outcome returns the finished task's result once the program has exited.
func (m Model) Outcome() (Outcome, error) {
	return m.outcome, m.err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.state == stateProcessing {
				m.state = stateError
				m.err = context.Canceled
			}
			return m, tea.Quit
		}

	case outcomeMsg:
		m.state = stateSummary
		m.outcome = msg.Outcome
		return m, tea.Quit

	case errorMsg:
		m.state = stateError
		m.err = msg.err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.state {
	case stateProcessing:
		return fmt.Sprintf("%s Processing...", m.spinner.View())
	case stateError:
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	case stateSummary:
		return m.renderOutcome()
	default:
		return ""
	}
}

func (m *Model) renderOutcome() string {
	var b strings.Builder

	if resp := m.outcome.Response; resp != nil {
		if narrative := strings.TrimSpace(resp.Narrative); narrative != "" {
			b.WriteString(narrative)
			b.WriteString("\n\n")
		}
		if len(resp.Results) > 0 {
			b.WriteString(headerStyle.Render("Operations"))
			b.WriteString("\n")
			for _, r := range resp.Results {
				b.WriteString(resultStyle(r.Kind).Render(r.String()))
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(m.renderSummary())

	if resp := m.outcome.Response; resp != nil {
		if len(resp.Commands) > 0 {
			b.WriteString(headerStyle.Render("Commands"))
			b.WriteString("\n")
			for _, c := range resp.Commands {
				line := "  $ " + c.Text
				if c.IsInteractive {
					line += faintStyle.Render(fmt.Sprintf("  (interactive, answers %q)", c.DefaultResponse))
				}
				b.WriteString(line + "\n")
			}
			b.WriteString("\n")
		}
		if resp.Summary != "" {
			b.WriteString(headerStyle.Render("Work Summary"))
			b.WriteString("\n" + resp.Summary + "\n\n")
		}
		if resp.Description != "" {
			b.WriteString(headerStyle.Render("Work Description"))
			b.WriteString("\n" + resp.Description + "\n")
		}
	}
	return b.String()
}

func (m *Model) renderSummary() string {
	var b strings.Builder
	s := m.outcome.Summary

	if s.Message != "" {
		b.WriteString(headerStyle.Render(s.Message))
		b.WriteString("\n\n")
	}

	hasContent := false
	group := func(title string, style lipgloss.Style, files []string) {
		if len(files) == 0 {
			return
		}
		hasContent = true
		b.WriteString(style.Render(title))
		b.WriteString("\n")
		for _, f := range files {
			b.WriteString(fmt.Sprintf("  %s\n", pathStyle.Render(ui.Rel(m.root, f))))
		}
	}
	group("Created:", successStyle, s.Created)
	group("Modified:", successStyle, s.Modified)
	group("Deleted:", successStyle, s.Deleted)
	group("Failed:", errorStyle, s.Failed)

	if !hasContent && s.Message == "" {
		b.WriteString(faintStyle.Render("No files were updated."))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func resultStyle(kind model.ResultKind) lipgloss.Style {
	switch kind {
	case model.ResultSuccess:
		return successStyle
	case model.ResultWarning:
		return warningStyle
	case model.ResultFailure:
		return errorStyle
	default:
		return infoStyle
	}
}

func (m Model) run() tea.Msg {
	outcome, err := m.task(m.ctx)
	if err != nil {
		// Stack traces of a DetailedError are printed by the caller after the program exits.
		return errorMsg{err}
	}
	return outcomeMsg{outcome}
}
