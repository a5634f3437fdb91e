package history

// Trace is a circular buffer of the most recent AFR samples.
type Trace struct {
	buf   []float64
	pos   int
	count int
}

// NewTrace creates a trace holding up to capacity samples.
func NewTrace(capacity int) *Trace {
	if capacity < 1 {
		capacity = 1
	}
	return &Trace{
		buf: make([]float64, capacity),
	}
}

// Push appends a sample, overwriting the oldest once full.
func (t *Trace) Push(afr float64) {
	t.buf[t.pos] = afr
	t.pos = (t.pos + 1) % len(t.buf)
	if t.count < len(t.buf) {
		t.count++
	}
}

// Values returns the samples oldest first.
func (t *Trace) Values() []float64 {
	if t.count == 0 {
		return nil
	}
	result := make([]float64, t.count)
	if t.count < len(t.buf) {
		copy(result, t.buf[:t.count])
	} else {
		n := copy(result, t.buf[t.pos:])
		copy(result[n:], t.buf[:t.pos])
	}
	return result
}

// Last returns the newest sample.
func (t *Trace) Last() (float64, bool) {
	if t.count == 0 {
		return 0, false
	}
	return t.buf[(t.pos-1+len(t.buf))%len(t.buf)], true
}

// MinMax returns the range of stored samples.
func (t *Trace) MinMax() (lo, hi float64) {
	vals := t.Values()
	if len(vals) == 0 {
		return 0, 0
	}
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// Len returns the number of stored samples.
func (t *Trace) Len() int {
	return t.count
}

// Reset empties the trace.
func (t *Trace) Reset() {
	t.pos, t.count = 0, 0
}
