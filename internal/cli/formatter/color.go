package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// BoxStyle picks the style a time box is drawn in.
func BoxStyle(t domain.TimeBoxType) lipgloss.Style {
	switch t {
	case domain.TimeBoxWork:
		return StyleGreen
	case domain.TimeBoxLongBreak:
		return StyleBlue
	case domain.TimeBoxDebrief:
		return StylePurple
	default:
		return StyleDim
	}
}

// BoxLabel returns a fixed-width marker such as "● work".
func BoxLabel(t domain.TimeBoxType) string {
	var label string
	switch t {
	case domain.TimeBoxWork:
		label = "● work"
	case domain.TimeBoxShortBreak:
		label = "○ break"
	case domain.TimeBoxLongBreak:
		label = "◎ long break"
	case domain.TimeBoxDebrief:
		label = "◆ debrief"
	default:
		label = "? " + string(t)
	}
	return BoxStyle(t).Render(fmt.Sprintf("%-12s", label))
}

// StatusPill renders a run status.
func StatusPill(status domain.RunStatus) string {
	switch status {
	case domain.RunSucceeded:
		return StyleGreen.Render("✔ succeeded")
	case domain.RunFailed:
		return StyleRed.Render("✖ failed")
	case domain.RunPending:
		return StyleYellow.Render("… pending")
	default:
		return StyleDim.Render(string(status))
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
