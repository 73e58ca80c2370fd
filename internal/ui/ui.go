// Package ui provides terminal output styling for the repomap CLI.
//
// Styling degrades to plain text when stdout is not a terminal, when
// the terminal reports no color support, or when NO_COLOR is set.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

var colorEnabled = detectColor()

func detectColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	return termenv.NewOutput(os.Stdout).Profile != termenv.Ascii
}

// Width returns the terminal width, or a sensible default when stdout
// is not a terminal.
func Width() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

func render(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

// RenderPass styles success markers and values.
func RenderPass(s string) string { return render(passStyle, s) }

// RenderWarn styles warnings.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderErr styles errors.
func RenderErr(s string) string { return render(errStyle, s) }

// RenderAccent styles highlighted values.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderMuted styles secondary text.
func RenderMuted(s string) string { return render(mutedStyle, s) }

// RenderTitle styles section headings.
func RenderTitle(s string) string { return render(titleStyle, s) }

// RenderStatus styles a project status label by severity.
func RenderStatus(status string) string {
	switch status {
	case "done":
		return RenderPass(status)
	case "error":
		return RenderErr(status)
	case "scanning", "analyzing":
		return RenderAccent(status)
	default:
		return RenderMuted(status)
	}
}
