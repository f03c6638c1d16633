// Package tui is an interactive question/answer loop over the query service.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rax/types"
)

// Asker is the TUI-facing subset of the query service.
type Asker interface {
	Ask(ctx context.Context, question string, topK int) (*types.AskResponse, error)
}

type exchange struct {
	question string
	answer   string
	sources  []types.Source
	err      error
}

type answerMsg struct {
	resp *types.AskResponse
	err  error
}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	asker    Asker
	topK     int
	timeout  time.Duration
	summary  string
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	history  []exchange
	pending  bool
	ready    bool
}

func New(asker Asker, topK int, timeout time.Duration, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyle

	return Model{
		asker:    asker,
		topK:     topK,
		timeout:  timeout,
		summary:  summary,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := transcriptStyle.GetFrameSize()
		_, qh := inputStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and summary, status, input box
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-fh)
		m.refresh()
		return m, nil

	case answerMsg:
		m.pending = false
		last := &m.history[len(m.history)-1]
		last.err = msg.err
		if msg.resp != nil {
			last.answer = msg.resp.Answer
			last.sources = msg.resp.Sources
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.input.Reset()
			m.pending = true
			m.history = append(m.history, exchange{question: q})
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.ask(q))
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	asker, topK, timeout := m.asker, m.topK, m.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		resp, err := asker.Ask(ctx, question, topK)
		return answerMsg{resp: resp, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("rax chat")
	summary := summaryStyle.Render(m.summary)
	status := statusStyle.Render("Enter to ask · PgUp/PgDn to scroll · Esc to quit")
	if m.pending {
		status = m.spinner.View() + statusStyle.Render(" retrieving and answering...")
	}
	return header + "\n" + summary + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return summaryStyle.Render("No questions yet.")
	}
	width := max(10, m.viewport.Width-2)
	var b strings.Builder
	for i, ex := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Width(width).Render("Q: " + ex.question))
		b.WriteString("\n")
		switch {
		case ex.err != nil:
			b.WriteString(errorStyle.Width(width).Render("Error: " + ex.err.Error()))
		case ex.answer == "":
			b.WriteString(summaryStyle.Render("..."))
		default:
			b.WriteString(lipgloss.NewStyle().Width(width).Render(ex.answer))
			for _, src := range ex.sources {
				b.WriteString("\n")
				b.WriteString(sourceStyle.Render(fmt.Sprintf("  %s  score=%.3f", src.SourceFile, src.Score)))
			}
		}
	}
	return b.String()
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	summaryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	sourceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
