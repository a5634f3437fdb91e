package app

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit     key.Binding
	Help     key.Binding
	Read     key.Binding
	Send     key.Binding
	Live     key.Binding
	Overlay  key.Binding
	Panel    key.Binding
	Map      key.Binding
	Variant  key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Inc      key.Binding
	Dec      key.Binding
	Edit     key.Binding
	Pickup   key.Binding
	Limiter  key.Binding
	Host     key.Binding
	Clear    key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	PanLeft  key.Binding
	PanRight key.Binding
	Reset    key.Binding
	Cancel   key.Binding
	Apply    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Read:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "read")),
		Send:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "send")),
		Live:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "live")),
		Overlay:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "overlay")),
		Panel:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "afr panel")),
		Map:      key.NewBinding(key.WithKeys("m", "tab"), key.WithHelp("m", "next map")),
		Variant:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "basic/dual")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "prev rpm")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next rpm")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "-10 rows")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "+10 rows")),
		Inc:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "advance")),
		Dec:      key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "retard")),
		Edit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit value")),
		Pickup:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pickup")),
		Limiter:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "limiter")),
		Host:     key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "device host")),
		Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear afr")),
		ZoomIn:   key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "zoom in")),
		ZoomOut:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "zoom out")),
		PanLeft:  key.NewBinding(key.WithKeys("<", ","), key.WithHelp("<", "pan left")),
		PanRight: key.NewBinding(key.WithKeys(">", "."), key.WithHelp(">", "pan right")),
		Reset:    key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "full view")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Apply:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Read, k.Send, k.Live, k.Panel, k.Inc, k.Dec, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Read, k.Send, k.Host, k.Quit},
		{k.Live, k.Overlay, k.Panel, k.Clear},
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Inc, k.Dec, k.Edit, k.Pickup, k.Limiter},
		{k.Map, k.Variant, k.ZoomIn, k.ZoomOut, k.PanLeft, k.PanRight, k.Reset},
	}
}
