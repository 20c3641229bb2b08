package dashboard

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const refreshInterval = time.Second

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)
	panelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
	hintStyle = lipgloss.NewStyle().
			Faint(true)
)

type tickMsg time.Time

type statusMsg []string

type model struct {
	ctx      context.Context
	provider StatusProvider
	lines    []string
}

func newModel(ctx context.Context, provider StatusProvider) model {
	return model{ctx: ctx, provider: provider}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

func (m model) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// refresh 在 Cmd goroutine 里做一次状态读取，避免阻塞 UI 循环
func (m model) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, 800*time.Millisecond)
		defer cancel()
		return statusMsg(m.provider.FormatStatus(ctx))
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case statusMsg:
		m.lines = msg
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.refresh(), m.tick())
	}
	return m, nil
}

func (m model) View() string {
	if len(m.lines) == 0 {
		return hintStyle.Render("等待数据...")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("simbot · activity simulator"))
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(strings.Join(m.lines, "\n")))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("q 退出面板"))
	return b.String()
}
