package app

import (
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"cdi-tuner.klederson.com/internal/drag"
	"cdi-tuner.klederson.com/internal/plot"
	"cdi-tuner.klederson.com/internal/ui"
)

// Terminals report one pointer.
const mousePointer = 1

// event converts a mouse message into a pointer event in the canvas's
// logical pixels. Cells outside the canvas map to coordinates outside the
// plot, which is what a captured drag needs.
func (m Model) event(msg tea.MouseMsg) drag.Event {
	lay := m.layout()
	x, y := plot.CellCenter(msg.X-lay.originX, msg.Y-lay.originY)
	return drag.Event{ID: mousePointer, X: x, Y: y, Kind: plot.PointerMouse}
}

func (m Model) inCanvas(msg tea.MouseMsg) bool {
	lay := m.layout()
	col, row := msg.X-lay.originX, msg.Y-lay.originY
	return col >= 0 && col < lay.canvasCols && row >= 0 && row < lay.canvasRows
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	sh := m.shared
	ctrl := sh.drag

	switch msg.Action {
	case tea.MouseActionMotion:
		if ctrl.State() == drag.Dragging && sh.captured == mousePointer {
			ctrl.Move(m.event(msg))
		}
		return m, nil

	case tea.MouseActionRelease:
		ctrl.Up(m.event(msg))
		return m, nil
	}

	if msg.Action != tea.MouseActionPress {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		if !sh.scroll || !m.inCanvas(msg) || !sh.mapperOK {
			return m, nil
		}
		center := sh.mapper.ToIndex(m.event(msg).X)
		factor := 0.5
		if msg.Button == tea.MouseButtonWheelDown {
			factor = 2
		}
		sh.sess.View = sh.sess.View.Zoom(center, factor)
		return m, nil

	case tea.MouseButtonLeft:
		if cmd, ok := m.clickMenu(msg); ok {
			return m, cmd
		}
		if !m.inCanvas(msg) {
			return m, nil
		}
		ev := m.event(msg)
		if ctrl.Down(ev) {
			if _, i, ok := ctrl.Target(); ok {
				sh.sess.Cursor = i
			}
			return m, nil
		}
		if sh.mapperOK {
			sh.sess.Cursor = sh.mapper.ToIndex(ev.X)
		}
	}
	return m, nil
}

func (m Model) clickMenu(msg tea.MouseMsg) (tea.Cmd, bool) {
	sess := m.shared.sess
	hit := func(id string) bool {
		return zone.Get(id).InBounds(msg)
	}
	switch {
	case hit(ui.ZoneRead):
		return m.startRead(), true
	case hit(ui.ZoneSend):
		return m.startSend(), true
	case hit(ui.ZoneLive):
		return m.toggleLive(), true
	case hit(ui.ZoneOverlay):
		sess.ToggleOverlay()
		return nil, true
	case hit(ui.ZonePanel):
		sess.TogglePanel()
		return nil, true
	case hit(ui.ZoneMap):
		sess.CycleMap()
		return nil, true
	case hit(ui.ZoneVariant):
		return m.toggleVariant(), true
	}
	return nil, false
}

var _ drag.Surface = (*shared)(nil)
