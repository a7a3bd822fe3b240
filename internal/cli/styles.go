package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#2F81F7") // SongLab blue
	accentColor  = lipgloss.Color("#D29922") // Amber
	goodColor    = lipgloss.Color("#3FB950") // Green
	badColor     = lipgloss.Color("#F85149") // Red
	mutedColor   = lipgloss.Color("#888888") // Gray
	textColor    = lipgloss.Color("#FFFFFF") // White
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(badColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginTop(1)

	GoodStyle = lipgloss.NewStyle().Foreground(goodColor)
	BadStyle  = lipgloss.NewStyle().Foreground(badColor)
)

// PrintVersion prints version information
func PrintVersion(w io.Writer, version string) {
	fmt.Fprintln(w, TitleStyle.Render("SongLab micmeter"))
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Fprintln(w)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), message)
}
