package landmark

import "sync"

// Deduper wraps a provider so each frame timestamp is processed once.
// A repeated timestamp returns the previous result with ErrDuplicateFrame
// instead of running inference again.
type Deduper struct {
	provider Provider

	mu         sync.Mutex
	lastTime   int64
	hasLast    bool
	lastResult Result
}

// NewDeduper wraps p.
func NewDeduper(p Provider) *Deduper {
	return &Deduper{provider: p}
}

// Detect implements Provider.
func (d *Deduper) Detect(frame Frame) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ts := int64(frame.Timestamp)
	if d.hasLast && ts == d.lastTime {
		return d.lastResult, ErrDuplicateFrame
	}

	result, err := d.provider.Detect(frame)
	if err != nil {
		return Result{}, err
	}

	d.lastTime = ts
	d.hasLast = true
	d.lastResult = result
	return result, nil
}

// Reset forgets the last processed timestamp (e.g. when the camera restarts
// and its clock starts over).
func (d *Deduper) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hasLast = false
	d.lastResult = Result{}
}

// Close implements Provider.
func (d *Deduper) Close() error {
	return d.provider.Close()
}
