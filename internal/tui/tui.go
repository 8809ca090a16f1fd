package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/patchspace/app"
	"github.com/sokinpui/patchspace/internal/tree"
	"github.com/sokinpui/patchspace/model"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))  // Mauve
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))             // Green
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))            // Orange
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))            // Red
	dirStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")) // Blue
	pathStyle    = lipgloss.NewStyle()
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// --- Messages ---
type summaryMsg struct {
	model.Summary
	tree *tree.Node
}

type progressMsg struct{ current, total int }

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

// ErrInterrupted is reported when the user quits before the run finished.
var ErrInterrupted = errors.New("interrupted")

// --- Model ---
type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	app      *app.App
	req      app.Request
	spinner  spinner.Model
	state    state
	summary  summaryMsg
	progress progressMsg
	err      error
}

type state int

const (
	stateProcessing state = iota
	stateSummary
	stateError
)

// New creates the model for one request. Quitting early cancels ctx for
// the running request.
func New(ctx context.Context, a *app.App, req app.Request) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	ctx, cancel := context.WithCancel(ctx)
	return Model{
		ctx:     ctx,
		cancel:  cancel,
		app:     a,
		req:     req,
		spinner: s,
		state:   stateProcessing,
	}
}

// SetProgram connects progress reports from the app to p.
func (m Model) SetProgram(p *tea.Program) {
	m.app.SetProgressCallback(func(current, total int) {
		p.Send(progressMsg{current: current, total: total})
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runApp)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			if m.state == stateProcessing {
				m.err = ErrInterrupted
			}
			return m, tea.Quit
		}

	case progressMsg:
		m.progress = msg
		return m, nil

	case summaryMsg:
		m.cancel()
		m.state = stateSummary
		m.summary = msg
		return m, tea.Quit

	case errorMsg:
		m.cancel()
		m.state = stateError
		m.err = msg
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
		label := "Processing..."
		if m.req.Command == app.CommandAsk {
			label = "Waiting for the assistant..."
		}
		if m.progress.total > 0 {
			label = fmt.Sprintf("Updating buffers [%d/%d]", m.progress.current, m.progress.total)
		}
		return fmt.Sprintf("%s %s", m.spinner.View(), label)
	case stateError:
		return errorStyle.Render("Error: ", m.err.Error()) + "\n"
	case stateSummary:
		return m.renderSummary()
	default:
		return ""
	}
}

func (m *Model) renderSummary() string {
	var b strings.Builder

	if m.summary.Message != "" {
		b.WriteString(headerStyle.Render(m.summary.Message))
		b.WriteString("\n\n")
	}

	hasContent := false
	section := func(style lipgloss.Style, title string, paths []string) {
		if len(paths) == 0 {
			return
		}
		hasContent = true
		b.WriteString(style.Render(title))
		b.WriteString("\n")
		for _, f := range paths {
			b.WriteString(fmt.Sprintf("  %s\n", pathStyle.Render(f)))
		}
	}
	section(successStyle, "Created:", m.summary.Created)
	section(successStyle, "Modified:", m.summary.Modified)
	section(warningStyle, "Ambiguous (first match used):", m.summary.Ambiguous)
	section(errorStyle, "Failed:", m.summary.Failed)

	if m.summary.Added > 0 || m.summary.Removed > 0 {
		b.WriteString(fmt.Sprintf("%s %s\n",
			successStyle.Render(fmt.Sprintf("+%d", m.summary.Added)),
			errorStyle.Render(fmt.Sprintf("-%d", m.summary.Removed))))
	}

	if !hasContent && m.summary.Message == "" {
		b.WriteString(faintStyle.Render("Nothing to do."))
		b.WriteString("\n")
	}

	if hasContent && m.summary.tree != nil {
		b.WriteString("\n")
		b.WriteString(renderTree(m.summary.tree))
	}

	return b.String()
}

func renderTree(root *tree.Node) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(tree.Render(root), "\n"), "\n") {
		if strings.HasSuffix(line, "/") {
			line = dirStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) runApp() tea.Msg {
	summary, err := m.app.Execute(m.ctx, m.req)
	if err != nil {
		// Check for detailed error to print stack
		var e *app.DetailedError
		if errors.As(err, &e) {
			// The TUI will exit, so we can print to stderr here for the stack trace.
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", e.Stack)
		}
		return errorMsg{err}
	}
	return summaryMsg{
		Summary: summary,
		tree:    m.app.Session().Tree(),
	}
}

// Err returns the error the run ended with, if any.
func (m Model) Err() error {
	return m.err
}
