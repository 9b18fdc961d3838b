// Package smoothing suppresses per-frame jitter with fixed-size moving
// averages over recent placements.
package smoothing

import "gonum.org/v1/gonum/stat"

// DefaultWindow is the number of samples averaged per kind.
const DefaultWindow = 5

// Window is a bounded FIFO of fixed-width samples. Pushing onto a full
// window evicts the oldest sample. Not safe for concurrent use.
type Window struct {
	dims  int
	slots [][]float64
	start int // Index of the oldest sample
	n     int

	col  []float64 // Per-field scratch for the mean
	mean []float64
}

// NewWindow creates a window holding up to size samples of dims values.
func NewWindow(size, dims int) *Window {
	if size < 1 {
		size = DefaultWindow
	}
	if dims < 1 {
		dims = 1
	}
	slots := make([][]float64, size)
	for i := range slots {
		slots[i] = make([]float64, dims)
	}
	return &Window{
		dims:  dims,
		slots: slots,
		col:   make([]float64, 0, size),
		mean:  make([]float64, dims),
	}
}

// Push appends a sample and returns the mean of the samples now held.
// Missing trailing values count as zero; extra values are ignored.
func (w *Window) Push(v ...float64) []float64 {
	var slot []float64
	if w.n < len(w.slots) {
		slot = w.slots[(w.start+w.n)%len(w.slots)]
		w.n++
	} else {
		slot = w.slots[w.start]
		w.start = (w.start + 1) % len(w.slots)
	}

	clear(slot)
	copy(slot, v)
	return w.Mean()
}

// Mean returns the per-field arithmetic mean, or nil when empty.
// The returned slice is a copy.
//
// Each field is averaged as the oldest sample plus the mean offset from it,
// so a window of identical samples yields that sample exactly.
func (w *Window) Mean() []float64 {
	if w.n == 0 {
		return nil
	}
	base := w.slots[w.start]
	for d := 0; d < w.dims; d++ {
		w.col = w.col[:0]
		for i := 0; i < w.n; i++ {
			w.col = append(w.col, w.at(i)[d]-base[d])
		}
		w.mean[d] = base[d] + stat.Mean(w.col, nil)
	}
	out := make([]float64, w.dims)
	copy(out, w.mean)
	return out
}

// at returns the i-th oldest sample.
func (w *Window) at(i int) []float64 {
	return w.slots[(w.start+i)%len(w.slots)]
}

// Len returns the number of samples held.
func (w *Window) Len() int { return w.n }

// Cap returns the window size.
func (w *Window) Cap() int { return len(w.slots) }

// Reset drops all samples.
func (w *Window) Reset() {
	w.start = 0
	w.n = 0
}
