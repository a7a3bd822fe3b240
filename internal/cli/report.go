package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/internal/domain/scoring"
)

const axisBarWidth = 41

var reportBox = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(primaryColor).
	Padding(0, 1)

// RenderReport renders a scored report for the terminal.
func RenderReport(r *model.Report) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Vocal type " + typeCodeOrDash(r.TypeCode)))
	b.WriteString("\n")

	var axes strings.Builder
	for i := range r.Axes {
		if i > 0 {
			axes.WriteString("\n")
		}
		axes.WriteString(renderAxis(&r.Axes[i]))
	}
	if len(r.Axes) > 0 {
		b.WriteString(reportBox.Render(axes.String()))
		b.WriteString("\n")
	}

	b.WriteString(SectionStyle.Render("Pitch"))
	b.WriteString("\n")
	b.WriteString(keyValue("Stable range", r.Pitch.Stability))
	b.WriteString(keyValue("Practice range", r.Pitch.Practice))

	b.WriteString(SectionStyle.Render("Feedback"))
	b.WriteString("\n")
	b.WriteString(keyValue("Tone", r.Segments.Tone))
	b.WriteString(keyValue("Strength", r.Segments.Strength))
	b.WriteString(keyValue("Caution", r.Segments.Caution))
	b.WriteString(keyValue("Routine", r.Segments.Routine))
	b.WriteString(keyValue("Insight", r.Segments.Insight))

	b.WriteString(SectionStyle.Render("Next"))
	b.WriteString("\n")
	b.WriteString(keyValue("Practice", r.Focus.Query))
	if r.Focus.WeakestAxis != "" {
		b.WriteString(keyValue("Weakest axis", r.Focus.WeakestAxis))
	}
	return b.String()
}

func typeCodeOrDash(code string) string {
	if code == "" {
		return "-"
	}
	return code
}

func keyValue(key, value string) string {
	return fmt.Sprintf("  %s %s\n", KeyStyle.Render(key+":"), ValueStyle.Render(value))
}

// renderAxis draws one axis as a bar with a marker at its position.
func renderAxis(a *model.AxisScore) string {
	marker := int(math.Round(a.Position / 100 * float64(axisBarWidth-1)))
	marker = max(0, min(axisBarWidth-1, marker))
	bar := strings.Repeat("─", marker) + "●" + strings.Repeat("─", axisBarWidth-1-marker)

	value := a.DisplayValue
	if a.Fallback {
		value = BadStyle.Render(value + " (fallback)")
	}
	return fmt.Sprintf("%-10s %s %-10s %s %s\n%s",
		a.MinLabel, bar, a.MaxLabel,
		ValueStyle.Render(fmt.Sprintf("%s %s", a.Label, scoring.FormatScore(a.Score))),
		KeyStyle.Render(fmt.Sprintf("%d%%", a.Percent)),
		KeyStyle.Render("  "+value))
}
