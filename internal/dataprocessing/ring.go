package dataprocessing

import "math"

// ring is a fixed-capacity window over the most recent values.
// Aggregates are recomputed from the window so that a window of zeros sums to
// exactly zero no matter what was evicted before.
type ring struct {
	buf  []float64
	next int
	full bool
}

func newRing(size int) *ring {
	return &ring{buf: make([]float64, size)}
}

// push adds v, evicting the oldest value once the window is full
func (r *ring) push(v float64) {
	r.buf[r.next] = v
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *ring) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// values returns the window contents; order is not preserved
func (r *ring) values() []float64 {
	return r.buf[:r.len()]
}

func (r *ring) mean() float64 {
	return mean(r.values())
}

func (r *ring) stddev() float64 {
	return sampleStdDev(r.values())
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// sampleStdDev uses the n-1 denominator; fewer than two values yield 0
func sampleStdDev(vals []float64) float64 {
	n := len(vals)
	if n < 2 {
		return 0
	}
	m := mean(vals)
	var ss float64
	for _, v := range vals {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
