package ui

import "github.com/charmbracelet/lipgloss"

// Phosphor color palette
var (
	ColorMatrixGreen  = lipgloss.Color("#00FF41")
	ColorGreen        = lipgloss.Color("#00CC33")
	ColorMidGreen     = lipgloss.Color("#008F11")
	ColorDimGreen     = lipgloss.Color("#004A0A")
	ColorBlack        = lipgloss.Color("#000000")
	ColorMapAlt       = lipgloss.Color("#00FFAA")
	ColorLocked       = lipgloss.Color("#3A4A3A")
	ColorLive         = lipgloss.Color("#FF3B30")
	ColorBorderBright = lipgloss.Color("#00FF41")
	ColorBorderNorm   = lipgloss.Color("#00AA22")
	ColorError        = lipgloss.Color("#FF3300")
	ColorWarning      = lipgloss.Color("#FFAA00")
)

// Pre-built styles
var (
	StyleMenuBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleMenuKey = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleMenuLabel = lipgloss.NewStyle().
			Foreground(ColorGreen)

	StyleMenuOn = lipgloss.NewStyle().
			Foreground(ColorBlack).
			Background(ColorMatrixGreen).
			Bold(true)

	StyleMenuDisabled = lipgloss.NewStyle().
				Foreground(ColorDimGreen)

	StyleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorGreen).
			Padding(0, 1)

	StyleStatusOnline = lipgloss.NewStyle().
				Foreground(ColorMatrixGreen).
				Bold(true)

	StyleStatusOffline = lipgloss.NewStyle().
				Foreground(ColorWarning).
				Bold(true)

	StyleNoticeInfo = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen)

	StyleNoticeError = lipgloss.NewStyle().
				Foreground(ColorError).
				Bold(true)

	StylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderNorm)

	StylePanelActive = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderBright)

	StylePanelTitle = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleSeparator = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleRPM = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleTiming = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleTimingAlt = lipgloss.NewStyle().
			Foreground(ColorMapAlt)

	StyleTimingLocked = lipgloss.NewStyle().
				Foreground(ColorLocked)

	StyleLiveRow = lipgloss.NewStyle().
			Foreground(ColorLive).
			Bold(true)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleValue = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorDimGreen)

	// Cursor row: black text on bright green
	StyleCursorLine = lipgloss.NewStyle().
			Foreground(ColorBlack).
			Background(ColorMatrixGreen).
			Bold(true)

	StyleInput = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)
)
