// Package tui provides the Bubble Tea quiz interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trickia-quiz/internal/session"
)

type (
	themesMsg struct{ err error }
	startedMsg struct {
		sel session.Selection
		err error
	}
	advancedMsg struct {
		action session.Action
		err    error
	}
	answeredMsg struct {
		out session.Outcome
		err error
	}
	finalizedMsg struct{ err error }
	tickMsg      time.Time
)

// Model drives a session.Controller from the keyboard.
type Model struct {
	ctx  context.Context
	ctrl *session.Controller

	width int

	modeChosen bool
	cursor     int
	picked     map[string]bool
	status     string
	quitting   bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#6E6E6E")).Padding(0, 1)
	chartWidth   = 30
	tickInterval = time.Second
)

// NewModel constructs a quiz TUI model around ctrl.
func NewModel(ctx context.Context, ctrl *session.Controller) *Model {
	return &Model{ctx: ctx, ctrl: ctrl, picked: map[string]bool{}}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadThemes(), tick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		return m, tick()
	case themesMsg:
		if msg.err != nil {
			m.status = "Could not load themes: " + msg.err.Error() + " (press t to retry)"
		}
		return m, nil
	case startedMsg:
		return m.onStarted(msg)
	case advancedMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.status = "Could not load the next question (press n to retry)"
		}
		return m, nil
	case answeredMsg:
		return m.onAnswered(msg)
	case finalizedMsg:
		if msg.err != nil && !errors.Is(msg.err, session.ErrSessionFinished) {
			m.status = "Could not finish the session: " + msg.err.Error()
		}
		return m, nil
	case tea.KeyMsg:
		return m.onKey(msg)
	}
	return m, nil
}

func (m *Model) onStarted(msg startedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = msg.err.Error()
		if errors.Is(msg.err, session.ErrNotEnoughThemes) {
			m.status = fmt.Sprintf("Pick at least %d themes", session.MinThemes)
		}
		return m, nil
	}
	m.status = ""
	if len(msg.sel.Excluded) > 0 {
		m.status = "Excluded: " + strings.Join(msg.sel.Excluded, ", ")
	}
	return m, m.advance()
}

func (m *Model) onAnswered(msg answeredMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, session.ErrAnswersLocked) {
			return m, nil
		}
		m.status = "Answer not sent, try again"
		return m, nil
	}
	m.status = ""
	if msg.out.ReadyToFinish {
		return m, nil
	}
	return m, m.advance()
}

func (m *Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}
	view := m.ctrl.Snapshot()
	switch view.Phase {
	case session.PhaseIdle, session.PhaseThemeSelected:
		if !m.modeChosen {
			return m.onModeKey(msg)
		}
		return m.onThemeKey(msg, view)
	case session.PhaseAwaitingAnswer:
		return m.onAnswerKey(msg, view)
	case session.PhaseInProgress:
		switch msg.String() {
		case "n", "enter":
			return m, m.advance()
		case "esc", "f":
			return m, m.finalize()
		}
	case session.PhaseFinished:
		switch msg.String() {
		case "r":
			m.ctrl.Reset()
			m.modeChosen = false
			m.cursor = 0
			m.status = ""
			return m, nil
		case "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) onModeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.cursor = wrap(m.cursor-1, len(session.AllowedSizes))
	case "down", "j":
		m.cursor = wrap(m.cursor+1, len(session.AllowedSizes))
	case "enter":
		if err := m.ctrl.ChooseMode(session.AllowedSizes[m.cursor]); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.modeChosen = true
		m.cursor = 0
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) onThemeKey(msg tea.KeyMsg, view session.View) (tea.Model, tea.Cmd) {
	n := len(view.Themes)
	switch msg.String() {
	case "up", "k":
		m.cursor = wrap(m.cursor-1, n)
	case "down", "j":
		m.cursor = wrap(m.cursor+1, n)
	case " ", "x":
		if n > 0 {
			id := view.Themes[m.cursor].ID
			m.picked[id] = !m.picked[id]
		}
	case "a":
		for _, t := range view.Themes {
			m.picked[t.ID] = true
		}
	case "t":
		return m, m.loadThemes()
	case "enter":
		var selected []string
		for _, t := range view.Themes {
			if m.picked[t.ID] {
				selected = append(selected, t.ID)
			}
		}
		return m, m.selectThemes(selected)
	case "esc":
		m.modeChosen = false
		m.cursor = 0
	}
	return m, nil
}

func (m *Model) onAnswerKey(msg tea.KeyMsg, view session.View) (tea.Model, tea.Cmd) {
	if view.Question == nil {
		return m, nil
	}
	answers := view.Question.Answers
	key := msg.String()
	switch key {
	case "up", "k":
		m.cursor = wrap(m.cursor-1, len(answers))
		return m, nil
	case "down", "j":
		m.cursor = wrap(m.cursor+1, len(answers))
		return m, nil
	case "enter":
		if m.cursor < len(answers) {
			return m, m.submit(answers[m.cursor])
		}
	case "esc":
		return m, m.finalize()
	}
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		i := int(key[0] - '1')
		if i < len(answers) {
			m.cursor = i
			return m, m.submit(answers[i])
		}
	}
	return m, nil
}

func (m *Model) loadThemes() tea.Cmd {
	return func() tea.Msg {
		_, err := m.ctrl.LoadThemes(m.ctx)
		return themesMsg{err: err}
	}
}

func (m *Model) selectThemes(selected []string) tea.Cmd {
	return func() tea.Msg {
		sel, err := m.ctrl.SelectThemes(m.ctx, selected)
		return startedMsg{sel: sel, err: err}
	}
}

func (m *Model) advance() tea.Cmd {
	m.cursor = 0
	return func() tea.Msg {
		action, err := m.ctrl.Advance(m.ctx)
		return advancedMsg{action: action, err: err}
	}
}

func (m *Model) submit(answer string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.ctrl.SubmitAnswer(m.ctx, answer)
		return answeredMsg{out: out, err: err}
	}
}

func (m *Model) finalize() tea.Cmd {
	return func() tea.Msg {
		_, err := m.ctrl.Finalize(m.ctx)
		return finalizedMsg{err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func wrap(i, n int) int {
	if n <= 0 {
		return 0
	}
	return ((i % n) + n) % n
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	view := m.ctrl.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Trickia"))
	b.WriteString("\n\n")

	switch view.Phase {
	case session.PhaseIdle, session.PhaseThemeSelected:
		if !m.modeChosen {
			b.WriteString(m.renderModes())
		} else {
			b.WriteString(m.renderThemes(view))
		}
	case session.PhaseInProgress, session.PhaseAwaitingAnswer:
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.renderQuestion(view), "  ", renderStats(view)))
	case session.PhaseFinished:
		b.WriteString(renderSummary(view))
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(footer(view, m.modeChosen)))
	return b.String()
}

func (m *Model) renderModes() string {
	var b strings.Builder
	b.WriteString("How many questions?\n")
	for i, size := range session.AllowedSizes {
		b.WriteString(choice(i == m.cursor, fmt.Sprintf("%d questions", size)))
	}
	return b.String()
}

func (m *Model) renderThemes(view session.View) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Pick at least %d themes\n", session.MinThemes))
	if len(view.Themes) == 0 {
		b.WriteString(dimStyle.Render("  loading themes..."))
		b.WriteString("\n")
	}
	for i, t := range view.Themes {
		box := "[ ]"
		if m.picked[t.ID] {
			box = "[x]"
		}
		b.WriteString(choice(i == m.cursor, box+" "+t.Name))
	}
	return b.String()
}

func (m *Model) renderQuestion(view session.View) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Question %d/%d  Score %d  Streak %d (best %d)  %s\n\n",
		min(view.Index+1, view.Total), view.Total, view.Correct, view.Streak, view.BestStreak,
		session.FormatElapsed(view.Elapsed)))

	if view.Question == nil {
		b.WriteString(dimStyle.Render("Loading..."))
		b.WriteString("\n")
	} else {
		q := view.Question
		b.WriteString(fmt.Sprintf("%s  %s\n", titleStyle.Render(q.Category), dimStyle.Render(q.Difficulty)))
		b.WriteString(q.Prompt)
		b.WriteString("\n\n")
		for i, a := range q.Answers {
			label := fmt.Sprintf("%d. %s", i+1, a)
			if view.LastResult != nil {
				if a == view.LastResult.Correct {
					label = goodStyle.Render(label)
				}
				b.WriteString("  " + label + "\n")
				continue
			}
			b.WriteString(choice(view.AnswersEnabled && i == m.cursor, label))
		}
	}

	if r := view.LastResult; r != nil {
		b.WriteString("\n")
		if r.Success() {
			b.WriteString(goodStyle.Render("Correct!"))
		} else {
			b.WriteString(badStyle.Render("Wrong, the answer was " + r.Correct))
		}
		b.WriteString("\n")
	}
	if view.Phase == session.PhaseInProgress && view.ReadyToFinish {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Press enter to see results"))
		b.WriteString("\n")
	}
	return b.String()
}

func renderStats(view session.View) string {
	var b strings.Builder
	b.WriteString("Themes\n")
	if len(view.Stats.Rows) == 0 {
		b.WriteString(dimStyle.Render("no answers yet"))
		b.WriteString("\n")
	}
	for _, row := range view.Stats.Desc {
		b.WriteString(fmt.Sprintf("%-18s %2d/%-2d %3d%%\n", row.Theme, row.Correct, row.Total, row.Percent))
	}
	b.WriteString("\n")
	b.WriteString(renderChart(view.Chart))
	if len(view.Sources) > 0 {
		b.WriteString("\nSources\n")
		for _, s := range view.Sources {
			b.WriteString(fmt.Sprintf("%-14s %2d/%-2d\n", s.Source, s.Correct, s.Total))
		}
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// renderChart draws the correct/wrong split as a single bar.
func renderChart(p session.Projection) string {
	if p.NoData {
		return dimStyle.Render(strings.Repeat("░", chartWidth)) + "\n"
	}
	correct, wrong := p.Percentages()
	filled := correct * chartWidth / 100
	return goodStyle.Render(strings.Repeat("█", filled)) +
		badStyle.Render(strings.Repeat("█", chartWidth-filled)) +
		fmt.Sprintf("\n%d%% correct  %d%% wrong\n", correct, wrong)
}

func renderSummary(view session.View) string {
	r := view.Report
	if r == nil {
		return dimStyle.Render("Saving session...") + "\n"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Score %d/%d (%d%%)  Best streak %d  Time %s\n\n", r.Score, r.Answered, r.Percent, r.BestStreak, r.Elapsed))
	b.WriteString(r.Message)
	b.WriteString("\n\n")
	b.WriteString(renderThemeList("Strongest themes", r.Strongest, goodStyle))
	b.WriteString(renderThemeList("Themes to review", r.Weakest, badStyle))
	if len(r.Badges) > 0 {
		b.WriteString("Badges\n")
		for _, badge := range r.Badges {
			b.WriteString("  " + titleStyle.Render(badge.Label) + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(renderChart(view.Chart))
	return b.String()
}

func renderThemeList(title string, list session.ThemeList, style lipgloss.Style) string {
	var b strings.Builder
	b.WriteString(title + "\n")
	if list.Placeholder != "" {
		b.WriteString("  " + dimStyle.Render(list.Placeholder) + "\n\n")
		return b.String()
	}
	for _, t := range list.Themes {
		b.WriteString(fmt.Sprintf("  %s %d%% (%d/%d) %s\n", style.Render(t.Theme), t.Percent, t.Correct, t.Total, dimStyle.Render(t.Comment)))
	}
	b.WriteString("\n")
	return b.String()
}

func choice(selected bool, label string) string {
	if selected {
		return cursorStyle.Render("> "+label) + "\n"
	}
	return "  " + label + "\n"
}

func footer(view session.View, modeChosen bool) string {
	switch view.Phase {
	case session.PhaseIdle, session.PhaseThemeSelected:
		if !modeChosen {
			return "↑/↓ move  enter choose  q quit"
		}
		return "↑/↓ move  space toggle  a all  enter start  esc back"
	case session.PhaseAwaitingAnswer:
		return "1-9 or enter answer  esc finish early"
	case session.PhaseInProgress:
		if view.ReadyToFinish {
			return "enter see results"
		}
		return "n next  esc finish early"
	case session.PhaseFinished:
		return "r play again  q quit"
	}
	return ""
}
