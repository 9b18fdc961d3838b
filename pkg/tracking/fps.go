package tracking

import "time"

// fpsCounter counts processed frames and refreshes its rate once per
// interval.
type fpsCounter struct {
	interval time.Duration
	start    time.Time
	frames   int
	fps      float64
}

func newFPSCounter(interval time.Duration) *fpsCounter {
	return &fpsCounter{interval: interval}
}

// tick records a frame at now and reports whether the rate was refreshed.
func (c *fpsCounter) tick(now time.Time) bool {
	if c.start.IsZero() {
		c.start = now
	}
	c.frames++

	elapsed := now.Sub(c.start)
	if elapsed < c.interval {
		return false
	}
	c.fps = float64(c.frames) / elapsed.Seconds()
	c.frames = 0
	c.start = now
	return true
}

func (c *fpsCounter) rate() float64 {
	return c.fps
}

func (c *fpsCounter) reset() {
	*c = fpsCounter{interval: c.interval}
}
