package output

import (
	"fmt"
	"math"
	"strings"

	"charm.land/lipgloss/v2"
)

var (
	styleGreen  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleYellow = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleRed    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleCyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleBold   = lipgloss.NewStyle().Bold(true)
)

func paint(style lipgloss.Style, text string, color bool) string {
	if !color {
		return text
	}
	return style.Render(text)
}

// Dim renders secondary text.
func Dim(text string, color bool) string {
	return paint(dimStyle, text, color)
}

// Bold renders emphasized text.
func Bold(text string, color bool) string {
	return paint(styleBold, text, color)
}

// Green, Yellow, Red and Cyan render status text.
func Green(text string, color bool) string  { return paint(styleGreen, text, color) }
func Yellow(text string, color bool) string { return paint(styleYellow, text, color) }
func Red(text string, color bool) string    { return paint(styleRed, text, color) }
func Cyan(text string, color bool) string   { return paint(styleCyan, text, color) }

// RecoveryZone names the band a recovery score falls in.
func RecoveryZone(score float64) string {
	switch {
	case score >= 67:
		return "Green"
	case score >= 34:
		return "Yellow"
	default:
		return "Red"
	}
}

// ColorRecovery renders a recovery score: green from 67, yellow from 34, red below.
func ColorRecovery(score float64, color bool) string {
	text := fmt.Sprintf("%.0f%%", score)
	switch RecoveryZone(score) {
	case "Green":
		return paint(styleGreen, text, color)
	case "Yellow":
		return paint(styleYellow, text, color)
	default:
		return paint(styleRed, text, color)
	}
}

// RecoveryEmoji is a colored circle for the recovery band.
func RecoveryEmoji(score float64) string {
	switch RecoveryZone(score) {
	case "Green":
		return "\U0001F7E2"
	case "Yellow":
		return "\U0001F7E1"
	default:
		return "\U0001F534"
	}
}

// ColorStrain renders a 0-21 strain value.
func ColorStrain(strain float64, color bool) string {
	text := fmt.Sprintf("%.1f", strain)
	switch {
	case strain >= 18:
		return paint(styleRed, text, color)
	case strain >= 14:
		return paint(styleYellow, text, color)
	case strain >= 10:
		return paint(styleCyan, text, color)
	default:
		return paint(styleGreen, text, color)
	}
}

// ColorSleepPerformance renders sleep performance: green from 85, yellow from 70.
func ColorSleepPerformance(pct float64, color bool) string {
	text := fmt.Sprintf("%.0f%%", pct)
	switch {
	case pct >= 85:
		return paint(styleGreen, text, color)
	case pct >= 70:
		return paint(styleYellow, text, color)
	default:
		return paint(styleRed, text, color)
	}
}

// RenderBar draws a horizontal bar for a 0..1 fraction followed by its percentage.
func RenderBar(fraction float64, width int, color bool) string {
	fraction = math.Max(0, math.Min(1, fraction))
	filled := int(math.Round(fraction * float64(width)))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s  %.0f%%", paint(styleCyan, bar, color), fraction*100)
}
