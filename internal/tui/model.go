// Package tui renders the tools listing in the terminal. It drives the same
// listing.Controller the web portal uses, one controller per terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bobmcallan/webtools-portal/internal/common"
	"github.com/bobmcallan/webtools-portal/internal/listing"
)

const descriptionWidth = 100

// snapshotMsg carries a controller state change into the update loop.
type snapshotMsg listing.Snapshot

// opDoneMsg reports the result of a controller operation.
type opDoneMsg struct {
	op  string
	err error
}

// Model is the bubbletea model for the listing.
type Model struct {
	ctx    context.Context
	ctrl   *listing.Controller
	logger *common.Logger

	tags     []string
	cursor   int
	snap     listing.Snapshot
	status   string
	width    int
	quitting bool
}

// New builds a model over ctrl. tags are the selectable filters; the all
// label is prepended.
func New(ctx context.Context, ctrl *listing.Controller, tags []string, logger *common.Logger) *Model {
	all := append([]string{ctrl.AllLabel()}, tags...)
	m := &Model{
		ctx:    ctx,
		ctrl:   ctrl,
		logger: logger,
		tags:   all,
		snap:   ctrl.Snapshot(),
	}
	for i, t := range all {
		if t == m.snap.Tag {
			m.cursor = i
		}
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		m.snap = listing.Snapshot(msg)
		return m, nil

	case opDoneMsg:
		m.status = describeOutcome(msg.op, msg.err)
		m.snap = m.ctrl.Snapshot()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "left", "h":
		if m.cursor > 0 {
			m.cursor--
			return m, m.selectTag(m.tags[m.cursor])
		}
	case "right", "l", "tab":
		if m.cursor < len(m.tags)-1 {
			m.cursor++
			return m, m.selectTag(m.tags[m.cursor])
		}
	case "m", "enter":
		return m, m.run(listing.OpLoadMore, m.ctrl.LoadMore)
	case "r":
		return m, m.run("retry", m.ctrl.Retry)
	case "R":
		return m, m.run(listing.OpReload, m.ctrl.Reload)
	}
	return m, nil
}

func (m *Model) selectTag(tag string) tea.Cmd {
	return m.run(listing.OpSelectTag, func(ctx context.Context) error {
		return m.ctrl.SelectTag(ctx, tag)
	})
}

func (m *Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	m.status = ""
	return func() tea.Msg {
		err := fn(m.ctx)
		if err != nil && m.logger != nil {
			m.logger.Debug().Str("operation", op).Str("error", err.Error()).Msg("listing operation finished with error")
		}
		return opDoneMsg{op: op, err: err}
	}
}

// describeOutcome turns an operation result into a status line.
func describeOutcome(op string, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, listing.ErrStale):
		return ""
	case errors.Is(err, listing.ErrNoMorePages):
		return "no more tools"
	case errors.Is(err, listing.ErrBusy):
		return "still loading"
	case errors.Is(err, listing.ErrNothingToRetry):
		return "nothing to retry"
	default:
		return fmt.Sprintf("%s failed", strings.ReplaceAll(op, "_", " "))
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s Tools", common.Capitalize(m.snap.Tag))))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	tools := m.snap.Tools()
	if len(tools) == 0 && !m.snap.Loading() {
		b.WriteString(statusStyle.Render("No tools to show. Press R to reload."))
		b.WriteString("\n")
	}
	for i, tool := range tools {
		b.WriteString(cardNameStyle.Render(fmt.Sprintf("%2d. %s", i+1, tool.Name)))
		meta := []string{}
		if host := common.Hostname(tool.URL); host != "" {
			meta = append(meta, host)
		}
		if d := common.FormatDate(tool.CreatedAt); d != "" {
			meta = append(meta, d)
		}
		if len(meta) > 0 {
			b.WriteString("  ")
			b.WriteString(cardMetaStyle.Render(strings.Join(meta, " · ")))
		}
		b.WriteString("\n")
		if tool.Description != "" {
			b.WriteString("    ")
			b.WriteString(common.Truncate(tool.Description, descriptionWidth))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.snap.Loading():
		b.WriteString(statusStyle.Render("Loading..."))
	case m.snap.Error != "":
		msg := "Error: " + m.snap.Error
		if m.snap.CanRetry {
			msg += " (press r to retry)"
		}
		b.WriteString(errorStyle.Render(msg))
	case m.snap.HasMore:
		b.WriteString(statusStyle.Render("Press m for more"))
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("←/→ tag • m more • r retry • R reload • q quit"))
	b.WriteString("\n")

	return b.String()
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(m.tags))
	for i, tag := range m.tags {
		label := common.Capitalize(tag)
		if tag == m.snap.Tag {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = tabStyle.Render(label)
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if m.width > 0 {
		row = lipgloss.NewStyle().MaxWidth(m.width).Render(row)
	}
	return row
}

// Run starts the terminal UI and blocks until the user quits. Controller
// changes are forwarded to the program as they happen.
func Run(ctx context.Context, ctrl *listing.Controller, tags []string, logger *common.Logger, opts ...tea.ProgramOption) error {
	m := New(ctx, ctrl, tags, logger)

	program := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)...)

	updates, cancel := ctrl.Subscribe()
	defer cancel()

	go func() {
		for snap := range updates {
			program.Send(snapshotMsg(snap))
		}
	}()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run TUI program: %w", err)
	}
	return nil
}
