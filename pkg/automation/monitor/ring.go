package monitor

import "time"

// Sample is one recorded rule execution.
type Sample struct {
	Timestamp  time.Time `json:"timestamp"`
	DurationMs float64   `json:"duration_ms"`
	Success    bool      `json:"success"`
}

// ring is a fixed-capacity sample buffer. Appending past capacity evicts
// the oldest sample. Zero value is not usable; use newRing.
type ring struct {
	buf   []Sample
	head  int // index of the oldest sample
	count int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ring{buf: make([]Sample, capacity)}
}

// append adds a sample, evicting the oldest when full.
func (r *ring) append(s Sample) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = s
		r.count++
		return
	}
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
}

// len returns the number of stored samples.
func (r *ring) len() int {
	return r.count
}

// samples returns the stored samples oldest first.
func (r *ring) samples() []Sample {
	out := make([]Sample, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// stats recomputes the success rate and mean duration over the buffer.
func (r *ring) stats() (successRate, avgDurationMs float64) {
	if r.count == 0 {
		return 0, 0
	}

	var successes int
	var totalMs float64
	for i := 0; i < r.count; i++ {
		s := r.buf[(r.head+i)%len(r.buf)]
		if s.Success {
			successes++
		}
		totalMs += s.DurationMs
	}

	return float64(successes) / float64(r.count), totalMs / float64(r.count)
}
