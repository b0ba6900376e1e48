package sensor

// History is a fixed-capacity ring of recent filtered readings, kept for
// diagnostics only. Not safe for concurrent use.
type History struct {
	buf   []int
	head  int // next write position
	count int
}

// NewHistory creates a History holding at most capacity readings.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]int, capacity)}
}

// Push records v, overwriting the oldest reading when full.
func (h *History) Push(v int) {
	h.buf[h.head] = v
	h.head = (h.head + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// Values returns the readings oldest first.
func (h *History) Values() []int {
	out := make([]int, h.count)
	start := (h.head - h.count + len(h.buf)) % len(h.buf)
	for i := 0; i < h.count; i++ {
		out[i] = h.buf[(start+i)%len(h.buf)]
	}
	return out
}

// Mean returns the integer mean of the stored readings, or 0 when empty.
func (h *History) Mean() int {
	if h.count == 0 {
		return 0
	}
	sum := 0
	for i := 0; i < h.count; i++ {
		sum += h.buf[(h.head-1-i+2*len(h.buf))%len(h.buf)]
	}
	return sum / h.count
}

// Len returns the number of stored readings.
func (h *History) Len() int {
	return h.count
}
