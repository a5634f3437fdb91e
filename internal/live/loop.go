package live

import "time"

// Loop tracks the running frame chain. Every Start opens a new epoch;
// frames carrying an older epoch are dropped, and the first frame that
// finds the loop stopped ends the chain by not being rescheduled.
type Loop struct {
	epoch   uint64
	enabled bool
	last    time.Time
}

// Start enables the loop and returns the epoch its frames must carry.
func (l *Loop) Start(now time.Time) uint64 {
	l.epoch++
	l.enabled = true
	l.last = now
	return l.epoch
}

// Stop disables the loop. Safe to call repeatedly.
func (l *Loop) Stop() {
	l.enabled = false
}

// Enabled reports whether live mode is on.
func (l *Loop) Enabled() bool {
	return l.enabled
}

// Epoch returns the current epoch.
func (l *Loop) Epoch() uint64 {
	return l.epoch
}

// Frame accepts a frame from epoch at now. It returns the clamped time
// since the previous frame and whether the chain should continue.
func (l *Loop) Frame(epoch uint64, now time.Time) (time.Duration, bool) {
	if !l.enabled || epoch != l.epoch {
		return 0, false
	}
	dt := ClampDelta(now.Sub(l.last))
	l.last = now
	return dt, true
}
