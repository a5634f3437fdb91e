package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the bottom status bar reflects.
type StatusInfo struct {
	Online  bool
	Engine  bool
	Profile string
	Live    bool
	RPM     int
	AFR     float64
	HasAFR  bool
	Cells   int // Recorded history cells
	Notice  string
	IsError bool
}

// RenderStatusBar renders the bottom status bar. A notice, when present,
// replaces the readings.
func RenderStatusBar(width int, st StatusInfo) string {
	status := StyleStatusOffline.Render("[OFFLINE]")
	if st.Online {
		status = StyleStatusOnline.Render("[ONLINE]")
	}

	var info string
	switch {
	case st.Notice != "" && st.IsError:
		info = " " + StyleNoticeError.Render(st.Notice)
	case st.Notice != "":
		info = " " + StyleNoticeInfo.Render(st.Notice)
	default:
		engine := "stopped"
		if st.Engine {
			engine = "running"
		}
		afr := "--.-"
		if st.HasAFR {
			afr = fmt.Sprintf("%.1f", st.AFR)
		}
		rpm := "----"
		if st.Live {
			rpm = fmt.Sprintf("%d", st.RPM)
		}
		info = StyleStatusBar.Foreground(ColorGreen).Render(fmt.Sprintf(
			" Engine: %s  Profile: %s  RPM: %s  AFR: %s  History: %d cells",
			engine, st.Profile, rpm, afr, st.Cells))
	}

	content := status + info
	gap := width - lipgloss.Width(content) - 2
	if gap < 0 {
		gap = 0
	}
	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}
