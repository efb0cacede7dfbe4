package tui

import (
	"fmt"
	"strings"
)

// renderProgressBar creates a visual progress bar like the CLI
func renderProgressBar(pct float64, width int) string {
	// Progress bar (use available width, max 50)
	barWidth := width - 30 // Leave space for percentage and file name
	if barWidth > 50 {
		barWidth = 50
	}
	if barWidth < 20 {
		barWidth = 20
	}

	filled := int(float64(barWidth) * pct / 100)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	return fmt.Sprintf("[%s] %3.0f%%", bar, pct)
}
