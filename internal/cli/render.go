package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/callguard/internal/guidance"
	"github.com/Veraticus/callguard/internal/model"
)

// Renderer formats analysis output with localized labels.
type Renderer struct {
	gen    *guidance.Generator
	locale string
}

// NewRenderer creates a renderer for locale. A nil generator uses the
// embedded guidance bundle.
func NewRenderer(gen *guidance.Generator, locale string) *Renderer {
	if gen == nil {
		gen = guidance.MustDefault()
	}
	return &Renderer{gen: gen, locale: locale}
}

// RiskHeadline is the colored "<icon> <label> (<score>/100)" line.
func (r *Renderer) RiskHeadline(result model.AnalysisResult) string {
	label := r.gen.RiskLabel(result.RiskLevel, r.locale)
	return RiskStyle(result.RiskLevel).Render(fmt.Sprintf("%s %s (%d/100)", RiskIcon(result.RiskLevel), label, result.RiskScore))
}

// Indicators lists the detected indicators with their confidence and evidence.
func (r *Renderer) Indicators(dets []model.IndicatorDetection) string {
	var b strings.Builder
	for _, det := range dets {
		if !det.Detected {
			continue
		}
		style := WarningStyle
		if det.Severity == model.SeverityHigh {
			style = ErrorStyle
		}
		fmt.Fprintf(&b, "  %s %s %s\n",
			style.Render("•"),
			r.gen.IndicatorLabel(det.IndicatorDefinition, r.locale),
			SubtleStyle.Render(fmt.Sprintf("%d%%", int(det.Confidence*100+0.5))))
		if det.Evidence != "" {
			fmt.Fprintf(&b, "    %s\n", SubtleStyle.Render(fmt.Sprintf("%q", det.Evidence)))
		}
	}
	if b.Len() == 0 {
		return SubtleStyle.Render("  " + r.gen.Label(r.locale, "indicators.none"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Result renders one analysis in a box.
func (r *Renderer) Result(result model.AnalysisResult) string {
	var b strings.Builder
	b.WriteString(r.RiskHeadline(result))
	if result.Source == model.SourceFallback {
		b.WriteString("  " + SubtleStyle.Render("(offline estimate)"))
	}
	b.WriteString("\n\n")
	b.WriteString(BoldStyle.Render(r.gen.Label(r.locale, "indicators.title")))
	b.WriteString("\n")
	b.WriteString(r.Indicators(result.Indicators))
	b.WriteString("\n\n")
	b.WriteString(r.guidanceList(result.Guidance))

	title := fmt.Sprintf("%s %s", PhoneIcon, result.Timestamp.Local().Format("15:04:05"))
	return RenderBox(title, b.String())
}

// Guidance renders the guidance for level.
func (r *Renderer) Guidance(level model.RiskLevel) string {
	return RiskStyle(level).Render(RiskIcon(level)+" "+r.gen.RiskLabel(level, r.locale)) + "\n" +
		r.guidanceList(r.gen.Guidance(level, r.locale))
}

func (r *Renderer) guidanceList(lines []string) string {
	var b strings.Builder
	b.WriteString(BoldStyle.Render(r.gen.Label(r.locale, "guidance.title")))
	for _, line := range lines {
		b.WriteString("\n  → " + line)
	}
	return b.String()
}

// Record summarizes a completed call.
func (r *Renderer) Record(rec model.CallRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render("Call"), rec.ID)
	fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render("Started"), rec.StartedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render("Duration"), FormatDuration(rec.DurationSeconds))
	fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render("Risk"),
		RiskStyle(rec.RiskLevel).Render(fmt.Sprintf("%s (%d/100)", r.gen.RiskLabel(rec.RiskLevel, r.locale), rec.RiskScore)))
	b.WriteString(r.Indicators(rec.Indicators))
	return RenderBox(FormatTitle("Call summary"), b.String())
}

// History renders records as a table, newest first.
func (r *Renderer) History(records []model.CallRecord) string {
	if len(records) == 0 {
		return SubtleStyle.Render(r.gen.Label(r.locale, "history.empty"))
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		TableHeaderStyle.Width(18).Render("Started"),
		TableHeaderStyle.Width(8).Render("Kind"),
		TableHeaderStyle.Width(10).Render("Duration"),
		TableHeaderStyle.Width(16).Render("Risk"),
		TableHeaderStyle.Render("Indicators"),
	)

	rows := []string{header}
	for _, rec := range records {
		names := make([]string, 0, len(rec.Indicators))
		for _, det := range rec.Indicators {
			names = append(names, r.gen.IndicatorLabel(det.IndicatorDefinition, r.locale))
		}
		indicators := strings.Join(names, ", ")
		if indicators == "" {
			indicators = "-"
		}

		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			TableCellStyle.Width(18).Render(rec.StartedAt.Local().Format("Jan 02 15:04")),
			TableCellStyle.Width(8).Render(string(rec.Kind)),
			TableCellStyle.Width(10).Render(FormatDuration(rec.DurationSeconds)),
			TableCellStyle.Width(16).Render(RiskStyle(rec.RiskLevel).Render(fmt.Sprintf("%s %d", rec.RiskLevel, rec.RiskScore))),
			TableCellStyle.Render(indicators),
		))
	}
	return strings.Join(rows, "\n")
}

// Tips renders safety tips and emergency contacts.
func (r *Renderer) Tips() string {
	var b strings.Builder
	for i, tip := range r.gen.Tips(r.locale) {
		fmt.Fprintf(&b, "%s %s\n   %s\n", InfoStyle.Render(fmt.Sprintf("%d.", i+1)), BoldStyle.Render(tip.Title), tip.Description)
	}

	contacts := r.gen.EmergencyContacts()
	if len(contacts) > 0 {
		b.WriteString("\n" + BoldStyle.Render(r.gen.Label(r.locale, "help.emergency")) + "\n")
		for _, c := range contacts {
			fmt.Fprintf(&b, "  %s %s: %s\n", PhoneIcon, c.Name, ErrorStyle.Render(c.Number))
		}
	}
	return RenderBox(FormatTitle(r.gen.Label(r.locale, "help.safetyTips")), strings.TrimRight(b.String(), "\n"))
}

// FormatDuration renders seconds as m:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
