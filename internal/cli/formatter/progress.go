package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/timeboxer/internal/app"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderProgress renders a bar like [████░░░░] 45%. Green above two thirds,
// yellow above one third, red below.
func RenderProgress(pct float64, width int) string {
	pct = min(max(pct, 0), 1)
	width = max(width, 2)

	filled := min(int(pct*float64(width)), width)
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	style := StyleGreen
	if pct < 0.33 {
		style = StyleRed
	} else if pct < 0.66 {
		style = StyleYellow
	}
	return fmt.Sprintf("[%s] %3.0f%%", style.Render(bar), pct*100)
}

// AttemptLine describes one attempt event for the spinner or a log line.
func AttemptLine(ev app.AttemptEvent) string {
	prefix := fmt.Sprintf("attempt %d/%d", ev.Attempt, ev.MaxAttempts)
	switch ev.Phase {
	case app.PhaseStarted:
		return prefix + ": generating schedule"
	case app.PhaseSucceeded:
		return prefix + ": schedule validated"
	}
	line := fmt.Sprintf("%s: %s", prefix, ev.Code)
	switch {
	case ev.Retrying && ev.Mutated:
		line += fmt.Sprintf(", reworked stories, retrying in %s", ev.Backoff)
	case ev.Retrying:
		line += fmt.Sprintf(", retrying in %s", ev.Backoff)
	default:
		line += ", giving up"
	}
	return line
}
