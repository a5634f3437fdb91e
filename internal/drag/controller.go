// Package drag turns pointer gestures on the curve plot into curve edits.
package drag

import (
	"cdi-tuner.klederson.com/internal/curve"
	"cdi-tuner.klederson.com/internal/plot"
)

// State of the controller.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Surface is the plot a controller drives. The controller reads its
// geometry and toggles scrolling and pointer capture; it never draws.
type Surface interface {
	// Mapper returns the geometry of the last drawn frame. ok is false
	// while the plot is degenerate.
	Mapper() (plot.Mapper, bool)
	SetScrollEnabled(enabled bool)
	CapturePointer(id int)
	ReleasePointer(id int)
	Redraw()
}

// Event is one pointer event in logical pixels.
type Event struct {
	ID   int
	X, Y float64
	Kind plot.PointerKind
}

// Controller is a single-pointer drag state machine over the active map.
type Controller struct {
	set     *curve.Set
	surface Surface

	state   State
	pointer int
	mapIdx  int
	index   int
}

// NewController binds a controller to a curve set and its surface.
func NewController(set *curve.Set, surface Surface) *Controller {
	return &Controller{set: set, surface: surface, index: -1}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Target returns the grabbed map and sample while dragging.
func (c *Controller) Target() (mapIdx, index int, ok bool) {
	if c.state != Dragging {
		return 0, -1, false
	}
	return c.mapIdx, c.index, true
}

// Down grabs the editable point under the pointer. It returns true only
// when a point was grabbed; otherwise the event is left to the caller.
func (c *Controller) Down(e Event) bool {
	if c.state == Dragging {
		return false
	}
	m, ok := c.surface.Mapper()
	if !ok {
		return false
	}
	i, ok := m.HitTest(c.set.ActiveMap(), e.X, e.Y, e.Kind)
	if !ok {
		return false
	}

	c.state = Dragging
	c.pointer = e.ID
	c.mapIdx = c.set.Active
	c.index = i
	c.surface.SetScrollEnabled(false)
	c.surface.CapturePointer(e.ID)
	c.surface.Redraw()
	return true
}

// Move writes the value under the pointer into the grabbed sample.
func (c *Controller) Move(e Event) bool {
	if c.state != Dragging || e.ID != c.pointer {
		return false
	}
	m, ok := c.surface.Mapper()
	if !ok {
		return false
	}
	if _, ok := c.set.SetValue(c.mapIdx, c.index, m.ToValue(e.Y)); !ok {
		return false
	}
	c.surface.Redraw()
	return true
}

// Up ends the drag.
func (c *Controller) Up(e Event) bool {
	return c.end(e.ID)
}

// Cancel ends the drag without a final move.
func (c *Controller) Cancel(e Event) bool {
	return c.end(e.ID)
}

func (c *Controller) end(id int) bool {
	if c.state != Dragging || id != c.pointer {
		return false
	}
	c.surface.ReleasePointer(id)
	c.surface.SetScrollEnabled(true)
	c.state = Idle
	c.index = -1
	c.surface.Redraw()
	return true
}

// Reset abandons any drag and rebinds the controller to set.
func (c *Controller) Reset(set *curve.Set) {
	if c.state == Dragging {
		c.end(c.pointer)
	}
	c.set = set
}
