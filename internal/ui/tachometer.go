package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cdi-tuner.klederson.com/internal/config"
)

// Gauge sweep in radians, 0 = north, clockwise.
const (
	tachStart = -3 * math.Pi / 4
	tachSweep = 3 * math.Pi / 2
)

// TachAngle maps rpm onto the gauge sweep.
func TachAngle(rpm float64) float64 {
	frac := (rpm - config.RPMMin) / (config.RPMMax - config.RPMMin)
	frac = math.Max(0, math.Min(1, frac))
	return tachStart + frac*tachSweep
}

// RenderTachometer renders a dial with a needle at rpm. The arc past the
// limiter is drawn in the live color. An empty string means the area is
// too small.
func RenderTachometer(width, height int, rpm float64, limiter int, live bool) string {
	if width < 9 || height < 5 {
		return ""
	}

	grid := make([][]byte, height)
	kind := make([][]byte, height) // 0 blank, 'r' ring, 'x' redline, 'n' needle, 'm' mark
	for i := range grid {
		grid[i] = make([]byte, width)
		kind[i] = make([]byte, width)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	fcx := float64(width) / 2.0
	fcy := float64(height) / 2.0
	rx := math.Max(3, fcx-2.0) // horizontal radius in columns
	ry := math.Max(2, fcy-1.0) // vertical radius in rows

	redline := TachAngle(float64(limiter))
	steps := 80
	for i := 0; i <= steps; i++ {
		a := tachStart + float64(i)*tachSweep/float64(steps)
		col := int(math.Round(fcx + rx*math.Sin(a)))
		row := int(math.Round(fcy - ry*math.Cos(a)))
		if col >= 0 && col < width && row >= 0 && row < height && grid[row][col] == ' ' {
			grid[row][col] = ringChar(a)
			kind[row][col] = 'r'
			if a > redline {
				kind[row][col] = 'x'
			}
		}
	}

	cx := int(math.Round(fcx))
	cy := int(math.Round(fcy))

	// Scale marks every 5000 rpm, labelled with the thousands digit
	for k := 0; k <= 20; k += 5 {
		a := TachAngle(float64(k * 1000))
		col := int(math.Round(fcx + (rx-1.5)*math.Sin(a)))
		row := int(math.Round(fcy - (ry-1)*math.Cos(a)))
		label := fmt.Sprintf("%d", k)
		for n := 0; n < len(label); n++ {
			setCell(grid, kind, col+n, row, label[n], 'm')
		}
	}

	if live {
		angle := TachAngle(rpm)
		sinA, cosA := math.Sin(angle), math.Cos(angle)
		shaftSteps := int(math.Max(rx, ry) * 0.8)
		if shaftSteps < 2 {
			shaftSteps = 2
		}
		for s := 1; s <= shaftSteps; s++ {
			t := float64(s) / float64(shaftSteps) * 0.8
			col := int(math.Round(fcx + t*rx*sinA))
			row := int(math.Round(fcy - t*ry*cosA))
			setCell(grid, kind, col, row, shaftChar(angle), 'n')
		}
	}
	setCell(grid, kind, cx, cy, 'o', 'm')

	needleSty := lipgloss.NewStyle().Foreground(ColorLive).Bold(true)
	ringSty := lipgloss.NewStyle().Foreground(ColorMidGreen)
	redSty := lipgloss.NewStyle().Foreground(ColorError)
	markSty := lipgloss.NewStyle().Foreground(ColorMatrixGreen).Bold(true)

	var sb strings.Builder
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			ch := string(grid[row][col])
			switch kind[row][col] {
			case 'n':
				sb.WriteString(needleSty.Render(ch))
			case 'm':
				sb.WriteString(markSty.Render(ch))
			case 'x':
				sb.WriteString(redSty.Render(ch))
			case 'r':
				sb.WriteString(ringSty.Render(ch))
			default:
				sb.WriteByte(' ')
			}
		}
		if row < height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func setCell(grid, kind [][]byte, col, row int, ch, k byte) {
	if row >= 0 && row < len(grid) && col >= 0 && col < len(grid[row]) {
		grid[row][col] = ch
		kind[row][col] = k
	}
}

func normAngle(a float64) float64 {
	for a < 0 {
		a += 2 * math.Pi
	}
	for a >= 2*math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

func ringChar(a float64) byte {
	switch int(math.Round(normAngle(a)/(math.Pi/4))) % 8 {
	case 1, 5:
		return '\\'
	case 2, 6:
		return '|'
	case 3, 7:
		return '/'
	}
	return '-'
}

// shaftChar returns the line character for a given angle direction.
func shaftChar(a float64) byte {
	switch int(math.Round(normAngle(a)/(math.Pi/4))) % 8 {
	case 2, 6: // E, W
		return '-'
	case 1, 5: // NE, SW
		return '/'
	case 3, 7: // SE, NW
		return '\\'
	}
	return '|'
}
