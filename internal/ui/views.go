package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/okian/songlab/internal/domain/model"
)

const meterWidth = 50

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2F81F7"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D29922"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F85149"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2F81F7")).
			Padding(0, 1).
			Width(meterWidth + 14)
)

// renderMeterView renders the live meter
func renderMeterView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	snap := m.State.Snapshot
	var panel strings.Builder
	panel.WriteString(fmt.Sprintf("Level  %s %3.0f\n", renderLevelBar(snap.Level, meterWidth), snap.Level))
	panel.WriteString(fmt.Sprintf("Peak   %s %3.0f\n\n", renderLevelBar(m.PeakLevel, meterWidth), m.PeakLevel))
	panel.WriteString(fmt.Sprintf("Noise floor: %s | SNR: %s | Quality: %s\n\n",
		formatOptional(snap.NoiseFloor, "%.1f"),
		formatOptional(snap.SNRDB, "%.1f dB"),
		renderQuality(snap.Quality)))
	panel.WriteString(renderEnvironment(snap.Environment))
	b.WriteString(panelStyle.Render(panel.String()))
	b.WriteString("\n")

	if m.State.Error != "" {
		b.WriteString(badStyle.Render("Error: " + m.State.Error))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(renderFooter(m)))
	return b.String()
}

func renderHeader(m Model) string {
	title := titleStyle.Render("SongLab micmeter - live input check")
	device := m.Device
	if device == "" {
		device = "default input"
	}
	subtitle := mutedStyle.Italic(true).Render(fmt.Sprintf("Listening on %s (%s)", device, m.State.Stage))
	return title + "\n" + subtitle
}

func renderFooter(m Model) string {
	elapsed := m.Elapsed().Truncate(100 * time.Millisecond)
	if m.Duration > 0 {
		return fmt.Sprintf("%s / %s elapsed | q to quit", elapsed, m.Duration)
	}
	return fmt.Sprintf("%s elapsed | q to quit", elapsed)
}

// renderLevelBar draws a 0..100 level as a coloured bar.
func renderLevelBar(level float64, width int) string {
	level = max(0, min(100, level))
	filled := int(level / 100 * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case level >= 85:
		return badStyle.Render(bar)
	case level >= 60:
		return warnStyle.Render(bar)
	default:
		return okStyle.Render(bar)
	}
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func renderQuality(q model.QualityClass) string {
	switch q {
	case model.QualityExcellent, model.QualityGood:
		return okStyle.Bold(true).Render(string(q))
	case model.QualityFair:
		return warnStyle.Bold(true).Render(string(q))
	case model.QualityPoor:
		return badStyle.Bold(true).Render(string(q))
	default:
		return mutedStyle.Render(string(model.QualityUnknown))
	}
}

func renderEnvironment(env model.Environment) string {
	items := []struct {
		label string
		ok    bool
	}{
		{"Microphone permission", env.MicPermission},
		{"Quiet location", env.QuietLocation},
		{"Low background noise", env.BackgroundNoise},
		{"Steady phone distance", env.PhoneDistance},
	}
	var b strings.Builder
	for _, it := range items {
		icon := badStyle.Render("✗")
		if it.ok {
			icon = okStyle.Render("✓")
		}
		b.WriteString(fmt.Sprintf(" %s %s\n", icon, it.label))
	}
	return b.String()
}

// renderSummary renders the final line once monitoring has ended.
func renderSummary(m Model) string {
	return Summary(m) + "\n"
}

// Summary describes a finished session in one or two lines.
func Summary(m Model) string {
	var b strings.Builder
	if m.Err != nil {
		b.WriteString(badStyle.Render("✗ Monitoring stopped: " + m.Err.Error()))
		b.WriteString("\n")
	} else {
		b.WriteString(okStyle.Render("✓ Monitoring finished"))
		b.WriteString("\n")
	}
	snap := m.State.Snapshot
	b.WriteString(fmt.Sprintf("   %d ticks | peak level %.0f | SNR %s | quality %s",
		m.Ticks, m.PeakLevel, formatOptional(snap.SNRDB, "%.1f dB"), renderQuality(snap.Quality)))
	return b.String()
}
