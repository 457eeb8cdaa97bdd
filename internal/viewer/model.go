// Package viewer renders a live debate session in the terminal.
package viewer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/koscakluka/ema-debate/core"
	"github.com/koscakluka/ema-debate/core/debate"
	"github.com/koscakluka/ema-debate/core/events"
)

// Source is the session being viewed.
type Source interface {
	ID() string
	Snapshot() orchestration.Snapshot
	Results() (debate.Results, bool)
	Close()
}

// DoneMsg tells the model the session is over.
type DoneMsg struct {
	Err error
}

type Model struct {
	source Source
	title  string
	theme  theme

	snapshot   orchestration.Snapshot
	thinking   string
	status     string
	results    *debate.Results
	resultsErr error
	failure    error
	done       bool

	spinner  spinner.Model
	progress progress.Model
	viewport viewport.Model
	width    int
	height   int
}

func New(source Source, title string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		source:   source,
		title:    title,
		theme:    newTheme(),
		status:   "connecting",
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		viewport: viewport.New(80, 20),
		width:    80,
		height:   24,
	}
	m.snapshot = source.Snapshot()
	m.renderContent()
	return m
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.source.Close()
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderContent()

	case EventMsg:
		cmds = append(cmds, m.apply(msg.Event))

	case DoneMsg:
		m.done = true
		switch {
		case errors.Is(msg.Err, orchestration.ErrSessionClosed):
			m.status = "closed"
		case msg.Err != nil && m.failure == nil:
			m.status = msg.Err.Error()
		case msg.Err == nil:
			m.status = "finished"
		}
		if results, ok := m.source.Results(); ok && m.results == nil {
			m.results = &results
		}
		m.snapshot = m.source.Snapshot()
		m.renderContent()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		model, cmd := m.progress.Update(msg)
		if updated, ok := model.(progress.Model); ok {
			m.progress = updated
		}
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) apply(event events.Event) tea.Cmd {
	switch typedEvent := event.(type) {
	case events.SessionStarted:
		m.status = "debate started"
	case events.SpeakerThinking:
		m.thinking = typedEvent.SpeakerName
		if m.thinking == "" {
			m.thinking = typedEvent.SpeakerID
		}
	case events.TurnRevealed:
		if m.thinking == typedEvent.Turn.DisplayName() {
			m.thinking = ""
		}
		m.status = fmt.Sprintf("%s, round %d", typedEvent.Turn.DisplayName(), typedEvent.Turn.Round)
	case events.RoundCompleted:
		m.status = fmt.Sprintf("round %d complete", typedEvent.Round)
	case events.SessionCompleted:
		m.thinking = ""
		m.status = "debate over, finishing playback"
	case events.SessionFinished:
		m.status = "fetching results"
	case events.ResultsReady:
		results := typedEvent.Results
		m.results = &results
		m.status = "results ready"
	case events.ResultsUnavailable:
		m.resultsErr = typedEvent.Err
		m.status = "results unavailable"
	case events.TransportFailed:
		m.failure = typedEvent.Err
		m.thinking = ""
	}

	m.snapshot = m.source.Snapshot()
	m.renderContent()
	return m.progress.SetPercent(m.snapshot.Progress.Fraction())
}

func (m *Model) resize() {
	contentWidth := max(20, m.width-2)
	m.viewport.Width = contentWidth
	m.viewport.Height = max(5, m.height-6)
	m.progress.Width = max(10, min(40, contentWidth-40))
}

func (m *Model) renderContent() {
	content := renderTurns(m.theme, m.snapshot.VisibleTurns(), m.viewport.Width)
	if m.results != nil {
		content += "\n\n" + renderResults(m.theme, *m.results, m.viewport.Width)
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	header := m.theme.header.Width(max(20, m.width-2)).Render(m.renderHeader())
	body := m.theme.panel.Render(m.viewport.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderFooter())
}

func (m Model) renderHeader() string {
	title := m.title
	if title == "" {
		title = "Debate " + m.source.ID()
	}

	p := m.snapshot.Progress
	round := "waiting"
	if p.Current > 0 {
		round = fmt.Sprintf("round %d", p.Current)
		if p.TotalRounds > 0 {
			round = fmt.Sprintf("round %d/%d", p.Current, p.TotalRounds)
		}
	}
	return title + "  " + m.theme.muted.Render(round) + "  " + m.progress.View()
}

func (m Model) renderFooter() string {
	var lines []string

	switch {
	case m.failure != nil:
		lines = append(lines, m.theme.errStatus.Render("Stream lost: "+m.failure.Error()))
	case m.thinking != "":
		lines = append(lines, m.spinner.View()+" "+m.thinking+" is thinking...")
	case !m.done:
		lines = append(lines, m.spinner.View()+" "+m.theme.status.Render(m.status))
	default:
		lines = append(lines, m.theme.status.Render(m.status))
	}

	if m.snapshot.AudioBlocked {
		lines = append(lines, m.theme.advisory.Render("Audio could not be played; turns continue without voice."))
	}
	if m.resultsErr != nil {
		lines = append(lines, m.theme.errStatus.Render("Results unavailable: "+m.resultsErr.Error()))
	}

	lines = append(lines, m.theme.muted.Render("↑/↓ scroll · q quit"))
	return strings.Join(lines, "\n")
}
