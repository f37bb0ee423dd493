package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/mirror"
)

var (
	barFullStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
	phaseStyle    = lipgloss.NewStyle().Foreground(colorGray).Width(8)
)

const barWidth = 30

var phaseOrder = []string{mirror.PhaseCreate, mirror.PhaseUpdate, mirror.PhaseDelete}

type phaseMsg struct {
	phase       string
	done, total int
}

type passDoneMsg struct {
	res *mirror.Result
	err error
}

type phaseCount struct{ done, total int }

// =============================================================================
// SyncModel - live progress of a reconciliation pass
// =============================================================================

// SyncModel renders one progress bar per phase while a pass runs. Ctrl+C
// cancels the pass; the model quits once the pass has returned.
type SyncModel struct {
	cancel      context.CancelFunc
	phases      map[string]phaseCount
	interrupted bool
	finished    bool
	res         *mirror.Result
	err         error
}

func newSyncModel(cancel context.CancelFunc) SyncModel {
	return SyncModel{cancel: cancel, phases: make(map[string]phaseCount)}
}

func (m SyncModel) Init() tea.Cmd {
	return nil
}

func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.interrupted {
			m.interrupted = true
			if m.cancel != nil {
				m.cancel()
			}
		}
	case phaseMsg:
		m.phases[msg.phase] = phaseCount{done: msg.done, total: msg.total}
	case passDoneMsg:
		m.finished = true
		m.res, m.err = msg.res, msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m SyncModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Syncing"))
	b.WriteString("\n")
	for _, phase := range phaseOrder {
		c, ok := m.phases[phase]
		if !ok {
			continue
		}
		b.WriteString(phaseStyle.Render(phase))
		b.WriteString(" ")
		b.WriteString(renderBar(c.done, c.total))
		b.WriteString(StyleDim.Render(fmt.Sprintf(" %d/%d", c.done, c.total)))
		b.WriteString("\n")
	}
	switch {
	case m.interrupted && !m.finished:
		b.WriteString(StyleWarning.Render("interrupting, waiting for in-flight fetches..."))
		b.WriteString("\n")
	case !m.finished:
		b.WriteString(StyleDim.Render("ctrl+c to stop"))
		b.WriteString("\n")
	}
	return b.String()
}

func renderBar(done, total int) string {
	filled := barWidth
	if total > 0 {
		filled = barWidth * done / total
	}
	filled = min(max(filled, 0), barWidth)
	return barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}

// passFunc runs a pass, reporting through progress.
type passFunc func(ctx context.Context, progress func(phase string, done, total int)) (*mirror.Result, error)

// runWithProgress runs pass while drawing a SyncModel on w. If the terminal
// UI cannot start, the pass still runs to completion without it.
func runWithProgress(ctx context.Context, w io.Writer, pass passFunc) (*mirror.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSyncModel(cancel), tea.WithOutput(w))
	results := make(chan passDoneMsg, 1)

	go func() {
		res, err := pass(ctx, func(phase string, done, total int) {
			p.Send(phaseMsg{phase: phase, done: done, total: total})
		})
		results <- passDoneMsg{res: res, err: err}
		p.Send(passDoneMsg{res: res, err: err})
	}()

	if _, err := p.Run(); err != nil {
		p.Kill()
	}
	out := <-results
	return out.res, out.err
}
