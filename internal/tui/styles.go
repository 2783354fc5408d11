package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/adanyl0v/taskboard/internal/models"
)

var (
	colorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	colorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	colorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	colorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	colorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	colorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	focusedColumnStyle = columnStyle.
				BorderForeground(colorBlue)

	cardStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	selectedCardStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Bold(true).
				Foreground(colorBlue).
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(colorBlue)

	grabbedCardStyle = cardStyle.
				Foreground(colorGray).
				Strikethrough(true)

	dropSlotStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	errorNoticeStyle = lipgloss.NewStyle().
				Foreground(colorRed).
				Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Italic(true)
)

func statusColor(status models.Status) lipgloss.AdaptiveColor {
	switch status {
	case models.StatusInProgress:
		return colorYellow
	case models.StatusCompleted:
		return colorGreen
	default:
		return colorBlue
	}
}

func priorityMarker(priority models.Priority) string {
	switch priority {
	case models.PriorityHigh:
		return lipgloss.NewStyle().Foreground(colorRed).Render("!")
	case models.PriorityLow:
		return lipgloss.NewStyle().Foreground(colorGray).Render("·")
	default:
		return " "
	}
}
