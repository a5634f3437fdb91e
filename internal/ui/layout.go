package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ComposeLayout joins the plot panel and side panel horizontally,
// with menu bar on top and status bar on bottom.
func ComposeLayout(menuBar, plotPanel, sidePanel, statusBar string) string {
	middle := lipgloss.JoinHorizontal(lipgloss.Top, plotPanel, sidePanel)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, statusBar)
}

// RenderPlotPanel wraps pre-rendered canvas rows with a border.
func RenderPlotPanel(width, height int, title, content, footer string) string {
	body := StylePanelTitle.Render(title) + "\n" + content
	if footer != "" {
		body += "\n" + footer
	}
	return fitHeight(StylePanelBorder.Width(width-2).Height(height-2).Render(body), height)
}

// fitHeight pads or cuts a rendered block to exactly height lines.
// lipgloss Height() only sets a minimum; it won't truncate overflow.
func fitHeight(s string, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// truncRaw pads or truncates a raw string to exactly w characters.
func truncRaw(s string, w int) string {
	if len(s) > w {
		return s[:w]
	}
	if len(s) < w {
		return s + strings.Repeat(" ", w-len(s))
	}
	return s
}
