package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#7F8C8D")
)

var styles = struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Header  lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorSuccess),
	Success: lipgloss.NewStyle().Foreground(colorSuccess),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Header: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorMuted).
		Padding(0, 1),
}

func (a *App) success(format string, args ...any) {
	fmt.Fprintln(a.out, styles.Success.Render(fmt.Sprintf(format, args...)))
}

func (a *App) warn(format string, args ...any) {
	fmt.Fprintln(a.out, styles.Warning.Render(fmt.Sprintf(format, args...)))
}

func (a *App) fail(format string, args ...any) {
	fmt.Fprintln(a.out, styles.Error.Render(fmt.Sprintf(format, args...)))
}

func (a *App) println(format string, args ...any) {
	fmt.Fprintln(a.out, fmt.Sprintf(format, args...))
}
