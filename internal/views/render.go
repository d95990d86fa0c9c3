package views

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type AppData struct {
	Header     string
	Board      string
	SidePane   string
	StatusLine string
	Footer     string
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	badgeVencida   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	badgePorVencer = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	badgePendiente = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badgeTerminal  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func RenderApp(data AppData) string {
	board := panelStyle.Width(72).Render(data.Board)
	lines := []string{headerStyle.Render(data.Header)}
	if data.SidePane != "" {
		side := panelStyle.Width(44).Render(data.SidePane)
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, board, side))
	} else {
		lines = append(lines, board)
	}

	status := statusStyle.Render(data.StatusLine)
	if strings.Contains(strings.ToLower(data.StatusLine), "error") {
		status = errorStyle.Render(data.StatusLine)
	}
	lines = append(lines, status)
	if data.Footer != "" {
		lines = append(lines, footerStyle.Render(data.Footer))
	}
	return strings.Join(lines, "\n")
}

// EstadoBadge renders the colored state tag shown next to each row.
func EstadoBadge(estado string) string {
	tag := "[" + estado + "]"
	switch estado {
	case "Vencida":
		return badgeVencida.Render(tag)
	case "Por vencer":
		return badgePorVencer.Render(tag)
	case "Pendiente":
		return badgePendiente.Render(tag)
	default:
		return badgeTerminal.Render(tag)
	}
}

func RenderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}
