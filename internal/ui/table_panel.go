package ui

import (
	"fmt"
	"strings"

	"cdi-tuner.klederson.com/internal/curve"
	"cdi-tuner.klederson.com/internal/grid"
)

// TableState is the map table view state.
type TableState struct {
	Cursor  int
	LiveRow int // Grid index under the live marker, -1 when live is off
}

// RenderTablePanel renders the scrollable map table. The header with the
// pickup and limiters stays fixed at the top; only the rows scroll.
func RenderTablePanel(set *curve.Set, width, height int, st TableState) string {
	innerW := width - 4
	if innerW < 16 {
		innerW = 16
	}

	headerLines := []string{
		StylePanelTitle.Render(fmt.Sprintf("MAP TABLE [%d]", len(set.Maps))),
		StyleSeparator.Render(strings.Repeat("-", innerW)),
		StyleLabel.Render(" Pickup ") + StyleValue.Render(fmt.Sprintf("%.1f deg", set.Pickup)),
	}
	for n, m := range set.Maps {
		label := fmt.Sprintf(" Limit%d ", n+1)
		headerLines = append(headerLines, StyleLabel.Render(label)+StyleValue.Render(fmt.Sprintf("%d rpm", m.Limiter)))
	}
	headerLines = append(headerLines, StyleLabel.Render(tableHeader(len(set.Maps))))

	innerH := height - 2
	if innerH < len(headerLines)+1 {
		innerH = len(headerLines) + 1
	}

	rowSpace := innerH - len(headerLines)
	if rowSpace < 1 {
		rowSpace = 1
	}

	// Compute viewport start so cursor is always visible
	viewStart := 0
	if st.Cursor >= rowSpace {
		viewStart = st.Cursor - rowSpace + 1
	}

	var rows []string
	for i := viewStart; i < grid.Count && len(rows) < rowSpace; i++ {
		rows = append(rows, renderTableRow(set, i, innerW, st))
	}
	for len(rows) < rowSpace {
		rows = append(rows, "")
	}

	all := make([]string, 0, innerH)
	all = append(all, headerLines...)
	all = append(all, rows...)
	if len(all) > innerH {
		all = all[:innerH]
	}

	rendered := StylePanelBorder.Width(width - 2).Height(innerH).Render(strings.Join(all, "\n"))
	return fitHeight(rendered, height)
}

func tableHeader(maps int) string {
	h := "    RPM"
	for n := 0; n < maps; n++ {
		h += fmt.Sprintf("   MAP%d", n+1)
	}
	return h
}

func renderTableRow(set *curve.Set, i, maxW int, st TableState) string {
	cursor := "  "
	if i == st.Cursor {
		cursor = ">>"
	}
	raw := fmt.Sprintf("%s%5d", cursor, grid.RPM(i))
	for _, m := range set.Maps {
		if m.Locked(i) {
			raw += fmt.Sprintf("  %5s", "--")
		} else {
			raw += fmt.Sprintf("  %5.1f", m.Curve[i])
		}
	}
	raw = truncRaw(raw, maxW)

	switch {
	case i == st.Cursor:
		return StyleCursorLine.Render(raw)
	case i == st.LiveRow:
		return StyleLiveRow.Render(raw)
	}

	line := StyleRPM.Render(fmt.Sprintf("  %5d", grid.RPM(i)))
	for n, m := range set.Maps {
		cell := fmt.Sprintf("  %5.1f", m.Curve[i])
		switch {
		case m.Locked(i):
			line += StyleTimingLocked.Render(fmt.Sprintf("  %5s", "--"))
		case n == set.Active:
			line += StyleTiming.Render(cell)
		default:
			line += StyleTimingAlt.Render(cell)
		}
	}
	return line
}
