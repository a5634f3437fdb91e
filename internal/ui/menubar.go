package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"cdi-tuner.klederson.com/internal/config"
)

// Menu button zone ids, matched against mouse clicks by the app.
const (
	ZoneRead    = "menu-read"
	ZoneSend    = "menu-send"
	ZoneLive    = "menu-live"
	ZoneOverlay = "menu-overlay"
	ZonePanel   = "menu-panel"
	ZoneMap     = "menu-map"
	ZoneVariant = "menu-variant"
)

// MenuState is what the menu bar reflects.
type MenuState struct {
	Variant  config.Variant
	Active   int // Active map index
	Maps     int
	Live     bool
	Overlay  bool
	Panel    bool
	Busy     string // Running device operation, "" when idle
	HostName string
}

type menuButton struct {
	zone, key, label string
	on, disabled     bool
}

// RenderMenuBar renders the top menu bar. Every button is wrapped in a
// bubblezone mark so mouse clicks can be resolved after zone.Scan.
func RenderMenuBar(width int, st MenuState) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	busy := st.Busy != ""
	buttons := []menuButton{
		{zone: ZoneRead, key: "R", label: "ead", disabled: busy},
		{zone: ZoneSend, key: "S", label: "end", disabled: busy},
		{zone: ZoneLive, key: "L", label: "ive", on: st.Live},
		{zone: ZoneOverlay, key: "O", label: "verlay", on: st.Overlay},
		{zone: ZonePanel, key: "A", label: "FR", on: st.Panel},
	}
	if st.Maps > 1 {
		buttons = append(buttons, menuButton{zone: ZoneMap, key: "M", label: fmt.Sprintf("ap %d", st.Active+1)})
	}
	buttons = append(buttons, menuButton{zone: ZoneVariant, key: "V", label: ":" + strings.ToUpper(string(st.Variant))})

	var menu strings.Builder
	for _, b := range buttons {
		menu.WriteString("  ")
		menu.WriteString(zone.Mark(b.zone, renderButton(b)))
	}

	right := StyleMenuLabel.Render(st.HostName) + " "
	if busy {
		right = StyleStatusOffline.Render(strings.ToUpper(st.Busy)+"...") + "  " + right
	}

	left := StyleMenuKey.Render(title) + menu.String()
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 0 {
		gap = 0
	}
	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func renderButton(b menuButton) string {
	text := "[" + b.key + "]" + b.label
	switch {
	case b.disabled:
		return StyleMenuDisabled.Render(text)
	case b.on:
		return StyleMenuOn.Render(text)
	}
	return StyleMenuKey.Render("["+b.key+"]") + StyleMenuLabel.Render(b.label)
}
