// Package history records live AFR readings against the RPM axis.
package history

import (
	"math"
	"sort"
	"sync"
	"time"

	"cdi-tuner.klederson.com/internal/config"
)

// Entry is the last AFR recorded for one 100-RPM cell.
type Entry struct {
	RPM int
	AFR float64
	At  time.Time
}

// Sink receives live (rpm, afr) samples. Break ends the current run: the
// next sample must not be joined to the previous one.
type Sink interface {
	Record(rpm, afr float64, now time.Time)
	Break()
}

// Recorder is a thread-safe sparse map of 100-RPM cells to AFR readings.
// Every cell crossed between two samples receives the newer reading, so a
// fast RPM sweep leaves no holes.
type Recorder struct {
	mu      sync.RWMutex
	entries map[int]Entry
	prior   int
	primed  bool
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		entries: make(map[int]Entry),
	}
}

// Key rounds rpm to its 100-RPM cell. Halves round away from zero, so 1450
// lands on 1500.
func Key(rpm float64) int {
	return int(math.Round(rpm/config.HistoryStep)) * config.HistoryStep
}

func inRange(k int) bool {
	return k >= config.RPMMin && k <= config.RPMMax
}

// Record stores afr at the cell for rpm and at every cell between it and
// the previously recorded cell.
func (r *Recorder) Record(rpm, afr float64, now time.Time) {
	if math.IsNaN(rpm) || math.IsInf(rpm, 0) || math.IsNaN(afr) || math.IsInf(afr, 0) {
		return
	}
	// Keep the walk bounded; one cell past either end is enough to stay
	// outside the axis.
	rpm = math.Max(config.RPMMin-config.HistoryStep, math.Min(config.RPMMax+config.HistoryStep, rpm))
	cur := Key(rpm)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.primed || cur == r.prior {
		r.put(cur, afr, now)
		r.prior = cur
		r.primed = true
		return
	}

	step := config.HistoryStep
	if cur < r.prior {
		step = -step
	}
	for k := r.prior + step; ; k += step {
		r.put(k, afr, now)
		if k == cur {
			break
		}
	}
	r.prior = cur
}

// Break forgets the previous cell and keeps every entry.
func (r *Recorder) Break() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.primed = false
}

func (r *Recorder) put(k int, afr float64, now time.Time) {
	if !inRange(k) {
		return
	}
	r.entries[k] = Entry{RPM: k, AFR: afr, At: now}
}

// Get returns the entry for the cell containing rpm.
func (r *Recorder) Get(rpm int) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[Key(float64(rpm))]
	return e, ok
}

// Snapshot returns a copy of all entries ordered by RPM.
func (r *Recorder) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RPM < result[j].RPM
	})
	return result
}

// Len returns the number of recorded cells.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clear drops every entry and forgets the previous cell.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[int]Entry)
	r.prior = 0
	r.primed = false
}
