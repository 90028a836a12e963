package ui

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	currentStepStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	// Note colors
	noteColors = map[string]string{
		"C": "#E8D6B0", // Beige
		"D": "#A020F0", // Purple
		"E": "#FFFF00", // Yellow
		"F": "#FFA500", // Orange
		"G": "#00FF00", // Green
		"A": "#FF0000", // Red
		"B": "#0000FF", // Blue
	}

	// Accuracy gradient end points
	offColor, _    = colorful.Hex("#FF4040")
	inTuneColor, _ = colorful.Hex("#40FF80")
)

// sparkBlocks render a value in [0, 1] as one character
var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// noteStyle returns the box style for a natural note
func noteStyle(noteName string) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(noteColors[noteName])).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(2, 4).
		MarginBottom(1)
}

// Get the next note in the scale (for sharp note colors)
func getNextNote(note string) string {
	switch note {
	case "C":
		return "D"
	case "D":
		return "E"
	case "E":
		return "F"
	case "F":
		return "G"
	case "G":
		return "A"
	case "A":
		return "B"
	default:
		return "C"
	}
}

// renderNote draws a note box. Sharps are split between the colors of the
// two naturals they sit between.
func renderNote(name string, octave int) string {
	text := name + strconv.Itoa(octave)
	if !strings.HasSuffix(name, "#") {
		return noteStyle(name).Render(text)
	}

	baseNote := name[:1]
	leftStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(noteColors[baseNote])).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		BorderLeft(true).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(false).
		PaddingLeft(2).
		PaddingRight(1).
		PaddingTop(2).
		PaddingBottom(2)

	rightStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(noteColors[getNextNote(baseNote)])).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		BorderLeft(false).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(true).
		PaddingLeft(1).
		PaddingRight(2).
		PaddingTop(2).
		PaddingBottom(2)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftStyle.Render(baseNote), rightStyle.Render("#"+strconv.Itoa(octave)))
}

// accuracyColor blends from red at 0 to green at 100
func accuracyColor(accuracy float64) lipgloss.Color {
	t := math.Max(0, math.Min(1, accuracy/100))
	return lipgloss.Color(offColor.BlendLab(inTuneColor, t).Clamped().Hex())
}

// sparkline renders accuracies as a row of block characters
func sparkline(values []float64) string {
	var b strings.Builder
	for _, v := range values {
		i := int(math.Round(math.Max(0, math.Min(1, v/100)) * float64(len(sparkBlocks)-1)))
		b.WriteString(lipgloss.NewStyle().Foreground(accuracyColor(v)).Render(string(sparkBlocks[i])))
	}
	return b.String()
}

// levelMeter renders a dB level as a bar of width cells from -60 to 0 dB
func levelMeter(db float64, width int) string {
	filled := int(math.Round(math.Max(0, math.Min(1, (db+60)/60)) * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
