package ui

import (
	"github.com/charmbracelet/lipgloss"

	"cdi-tuner.klederson.com/internal/history"
)

// AFRColor returns the terminal color for an AFR reading, on the same scale
// the plot uses.
func AFRColor(afr float64) lipgloss.Color {
	return lipgloss.Color(history.Color(afr).Hex())
}
