package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cdi-tuner.klederson.com/internal/config"
)

// DetailInfo is the live reading shown by the AFR detail panel.
type DetailInfo struct {
	Live    bool
	RPM     float64
	AFR     float64
	HasAFR  bool
	Timing  float64 // Interpolated ignition advance at RPM
	Limiter int
	Cells   int
	Trace   []float64
	Canvas  string // Pre-rendered AFR detail canvas rows
}

// RenderDetailPanel renders the AFR detail panel that replaces the map table.
func RenderDetailPanel(d DetailInfo, width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}

	title := StylePanelTitle.Render("AFR DETAIL")
	escHint := StyleHelp.Render("[ESC]")
	titleLine := title + strings.Repeat(" ", max(0, innerW-lipgloss.Width(title)-lipgloss.Width(escHint))) + escHint

	lines := []string{titleLine, StyleSeparator.Render(strings.Repeat("-", innerW))}

	rpm, afr := "----", "--.-"
	if d.Live {
		rpm = fmt.Sprintf("%d rpm", int(math.Round(d.RPM)))
	}
	if d.HasAFR {
		afr = fmt.Sprintf("%.1f", d.AFR)
	}
	fields := []struct{ label, value string }{
		{"RPM", rpm},
		{"AFR", afr},
		{"Advance", fmt.Sprintf("%.1f deg", d.Timing)},
		{"History", fmt.Sprintf("%d cells", d.Cells)},
	}
	for _, f := range fields {
		lines = append(lines, StyleLabel.Render(fmt.Sprintf("  %-9s", f.label))+StyleValue.Render(f.value))
	}

	barWidth := innerW - 18
	if barWidth < 10 {
		barWidth = 10
	}
	lines = append(lines, StyleLabel.Render("  Mixture ")+renderAFRBar(d.AFR, d.HasAFR, barWidth))
	lines = append(lines, "")

	if d.Canvas != "" {
		lines = append(lines, strings.Split(d.Canvas, "\n")...)
		lines = append(lines, "")
	}

	if len(d.Trace) > 0 {
		sparkW := innerW - 4
		if sparkW < 10 {
			sparkW = 10
		}
		lines = append(lines, StyleLabel.Render("  AFR Trace:"))
		lines = append(lines, "  "+lipgloss.NewStyle().Foreground(ColorGreen).Render(renderSparkline(d.Trace, sparkW)))
		lines = append(lines, "")
	}

	// Tachometer fills whatever is left
	tachH := height - len(lines) - 3
	if tachH >= 5 {
		tachW := innerW
		if tachW > tachH*3 {
			tachW = tachH * 3 // keep roughly proportional
		}
		if tach := RenderTachometer(tachW, tachH, d.RPM, d.Limiter, d.Live); tach != "" {
			prefix := strings.Repeat(" ", max(0, (innerW-tachW)/2))
			for _, tl := range strings.Split(tach, "\n") {
				lines = append(lines, prefix+tl)
			}
		}
	}

	content := strings.Join(lines, "\n")
	return fitHeight(StylePanelActive.Width(width-2).Height(height-2).Render(content), height)
}

// renderAFRBar places a marker on the safe AFR range with stoich in the middle.
func renderAFRBar(afr float64, ok bool, width int) string {
	cells := []byte(strings.Repeat("-", width))
	stoich := int(math.Round((config.AFRStoich - config.AFRSafeMin) / (config.AFRSafeMax - config.AFRSafeMin) * float64(width-1)))
	cells[stoich] = '|'

	bar := StyleHelp.Render(string(cells))
	if ok {
		ratio := (afr - config.AFRSafeMin) / (config.AFRSafeMax - config.AFRSafeMin)
		ratio = math.Max(0, math.Min(1, ratio))
		pos := int(math.Round(ratio * float64(width-1)))
		bar = StyleHelp.Render(string(cells[:pos])) +
			lipgloss.NewStyle().Foreground(AFRColor(afr)).Bold(true).Render("#") +
			StyleHelp.Render(string(cells[pos+1:]))
	}
	return StyleHelp.Render("[") + bar + StyleHelp.Render("]")
}

func renderSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	chars := []rune("▁▂▃▄▅▆▇█")

	minV, maxV := values[0], values[0]
	for _, v := range values {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	rng := maxV - minV
	if rng < 0.5 {
		rng = 0.5
	}

	// Take last `width` values
	start := 0
	if len(values) > width {
		start = len(values) - width
	}

	var sb strings.Builder
	for i := start; i < len(values); i++ {
		idx := int((values[i] - minV) / rng * float64(len(chars)-1))
		idx = max(0, min(len(chars)-1, idx))
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}
