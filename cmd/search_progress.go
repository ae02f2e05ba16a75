package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/krau/tgkw/engine"
	"github.com/krau/tgkw/types"
)

type scanProgressMsg struct {
	scanned int
	limit   int
	matched int
}

type scanDoneMsg struct {
	err error
}

type searchProgressModel struct {
	req       types.SearchRequest
	spinner   spinner.Model
	progress  progress.Model
	scanned   int
	limit     int
	matched   int
	startTime time.Time
	done      bool
	canceled  bool
	err       error
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginLeft(2)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF0000"))

	statStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			MarginLeft(2)
)

func newSearchProgressModel(req types.SearchRequest) searchProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return searchProgressModel{
		req:       req,
		spinner:   s,
		progress:  progress.New(progress.WithDefaultGradient()),
		limit:     req.Limit,
		startTime: time.Now(),
	}
}

func (m searchProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m searchProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.canceled = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.progress.Width = max(msg.Width-20, 10)
		return m, nil

	case scanProgressMsg:
		m.scanned = msg.scanned
		m.limit = msg.limit
		m.matched = msg.matched
		return m, nil

	case scanDoneMsg:
		m.err = msg.err
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m searchProgressModel) View() string {
	elapsed := time.Since(m.startTime).Round(time.Second)
	if m.done {
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("✗ Search failed: %v", m.err)) + "\n"
		}
		var result strings.Builder
		result.WriteString(successStyle.Render("✓ Search finished") + "\n\n")
		result.WriteString(statStyle.Render(fmt.Sprintf("Messages examined: %d", m.scanned)) + "\n")
		result.WriteString(statStyle.Render(fmt.Sprintf("Matches: %d", m.matched)) + "\n")
		result.WriteString(statStyle.Render(fmt.Sprintf("Time elapsed: %s", elapsed)) + "\n")
		return result.String()
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("Searching %s for %q", m.req.Channel, m.req.Keyword)))
	s.WriteString("\n\n")
	s.WriteString(m.spinner.View() + " ")
	if m.limit > 0 {
		s.WriteString(m.progress.ViewAs(float64(m.scanned) / float64(m.limit)))
		fmt.Fprintf(&s, " %d/%d\n\n", m.scanned, m.limit)
	}
	s.WriteString(messageStyle.Render(fmt.Sprintf("Matches so far: %d", m.matched)))
	s.WriteString("\n")
	s.WriteString(messageStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)))
	s.WriteString("\n\n")
	s.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Render("Press Ctrl+C to cancel"))
	return s.String()
}

// runSearchWithProgress runs searchFunc in the background and renders its progress.
func runSearchWithProgress(ctx context.Context, req types.SearchRequest, searchFunc func(ctx context.Context, progress engine.ProgressFunc) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p := tea.NewProgram(newSearchProgressModel(req), tea.WithContext(ctx))

	errCh := make(chan error, 1)
	go func() {
		err := searchFunc(ctx, func(scanned, limit, matched int) {
			p.Send(scanProgressMsg{scanned: scanned, limit: limit, matched: matched})
		})
		errCh <- err
		p.Send(scanDoneMsg{err: err})
	}()

	final, err := p.Run()
	if m, ok := final.(searchProgressModel); ok && m.canceled {
		cancel()
		<-errCh
		return context.Canceled
	}
	if err != nil {
		return err
	}
	return <-errCh
}
