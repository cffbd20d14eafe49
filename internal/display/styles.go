package display

import "github.com/charmbracelet/lipgloss"

var (
	primary = lipgloss.Color("#7D56F4")
	accent  = lipgloss.Color("#00D4AA")
	muted   = lipgloss.Color("#6B7280")

	critical = lipgloss.Color("#FF0000")
	high     = lipgloss.Color("#FF6B6B")
	medium   = lipgloss.Color("#FFD93D")
	low      = lipgloss.Color("#6BCB77")
)

// styles groups every style the panel uses so color can be switched off in one place.
type styles struct {
	header  lipgloss.Style
	panel   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	status  lipgloss.Style
	finding func(confidence int) lipgloss.Style
}

func newStyles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{
			header:  plain.Bold(true),
			panel:   plain.Border(lipgloss.NormalBorder()).Padding(0, 1),
			label:   plain,
			value:   plain,
			status:  plain,
			finding: func(int) lipgloss.Style { return plain },
		}
	}

	return styles{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(primary).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(0, 1),
		label:  lipgloss.NewStyle().Foreground(muted),
		value:  lipgloss.NewStyle().Foreground(accent).Bold(true),
		status: lipgloss.NewStyle().Foreground(low),
		finding: func(confidence int) lipgloss.Style {
			return lipgloss.NewStyle().Foreground(confidenceColor(confidence))
		},
	}
}

func confidenceColor(confidence int) lipgloss.Color {
	switch {
	case confidence >= 85:
		return critical
	case confidence >= 70:
		return high
	case confidence >= 50:
		return medium
	default:
		return low
	}
}
