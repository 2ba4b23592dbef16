package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/callguard/internal/model"
)

// View renders the monitor screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.headerView()}
	if m.current == nil {
		sections = append(sections, m.spinner.View()+" "+m.theme.Subtitle.Render(m.gen.Label(m.locale, "risk.analyzing")))
	} else {
		sections = append(sections,
			m.riskView(*m.current),
			m.indicatorsView(m.current.Indicators),
			m.guidanceView(m.current.Guidance),
		)
	}
	sections = append(sections, m.theme.Help.Render(m.help.View(m.keymap)))

	return m.theme.Box.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) headerView() string {
	elapsed := int(m.now().Sub(m.startedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	title := m.theme.Title.Render("📞 Call in progress")
	clock := m.theme.Subtitle.Render(fmt.Sprintf("  %d:%02d", elapsed/60, elapsed%60))
	if m.updates > 0 {
		clock += m.theme.Muted.Render(fmt.Sprintf("  · %d updates", m.updates))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, title, clock)
}

func (m Model) riskView(result model.AnalysisResult) string {
	label := m.theme.Risk(result.RiskLevel).Render(m.gen.RiskLabel(result.RiskLevel, m.locale))
	score := m.theme.Subtitle.Render(fmt.Sprintf("%s %d/100", m.gen.Label(m.locale, "risk.score"), result.RiskScore))
	if result.Source == model.SourceFallback {
		score += m.theme.Muted.Render("  (offline estimate)")
	}
	return label + "\n" + m.meter.View() + "\n" + score + "\n"
}

func (m Model) indicatorsView(dets []model.IndicatorDetection) string {
	var b strings.Builder
	b.WriteString(m.theme.Bold.Render(m.gen.Label(m.locale, "indicators.title")))

	detected := 0
	for _, det := range dets {
		if !det.Detected {
			continue
		}
		detected++
		color := m.theme.Medium
		if det.Severity == model.SeverityHigh {
			color = m.theme.High
		}
		marker := lipgloss.NewStyle().Foreground(color).Render("●")
		fmt.Fprintf(&b, "\n %s %s %s", marker,
			m.gen.IndicatorLabel(det.IndicatorDefinition, m.locale),
			m.theme.Muted.Render(fmt.Sprintf("%d%%", int(det.Confidence*100+0.5))))
		if m.showEvidence && det.Evidence != "" {
			fmt.Fprintf(&b, "\n     %s", m.theme.Muted.Render(fmt.Sprintf("%q", det.Evidence)))
		}
	}
	if detected == 0 {
		b.WriteString("\n " + m.theme.Muted.Render(m.gen.Label(m.locale, "indicators.none")))
	}
	return b.String() + "\n"
}

func (m Model) guidanceView(lines []string) string {
	var b strings.Builder
	b.WriteString(m.theme.Bold.Render(m.gen.Label(m.locale, "guidance.title")))
	for _, line := range lines {
		b.WriteString("\n → " + m.theme.Normal.Render(line))
	}
	return b.String()
}
