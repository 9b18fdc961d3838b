package tracking

import "time"

// TuningParams holds the real-time adjustable tracking parameters.
// These can be modified via the tuning API without restarting.
type TuningParams struct {
	FrameHz float64 `json:"frame_hz"` // Frame processing rate (1-60 Hz)
	Window  int     `json:"window"`   // Smoothing window (1-30 samples)
	Mapping Mapping `json:"mapping"`  // "approx" or "exact"
}

// Tuning limits
const (
	MinFrameHz = 1.0
	MaxFrameHz = 60.0
	MaxWindow  = 30
)

// GetTuningParams returns current tuning parameters from the tracker.
func (t *Tracker) GetTuningParams() TuningParams {
	s := t.State()
	return TuningParams{
		FrameHz: 1.0 / time.Duration(t.interval.Load()).Seconds(),
		Window:  s.Window,
		Mapping: s.Mapping,
	}
}

// SetTuningParams queues parameters for the loop. Only non-zero values are
// applied. A newer request replaces one still pending.
func (t *Tracker) SetTuningParams(params TuningParams) {
	for {
		select {
		case t.tuningUpdates <- params:
			return
		default:
		}
		// Drop the stale request and retry
		select {
		case <-t.tuningUpdates:
		default:
		}
	}
}

// applyTuning runs on the loop goroutine. It returns the new frame
// interval, or 0 when unchanged.
func (t *Tracker) applyTuning(params TuningParams) time.Duration {
	if params.Window > 0 {
		w := params.Window
		if w > MaxWindow {
			w = MaxWindow
		}
		t.pipeline.SetWindow(w)
	}
	if params.Mapping != "" {
		t.pipeline.SetMapping(params.Mapping)
	}

	t.logger.Info("tuning applied",
		"frame_hz", params.FrameHz,
		"window", t.pipeline.Window(),
		"mapping", t.pipeline.Mapping(),
	)

	if params.FrameHz <= 0 {
		return 0
	}
	hz := clamp(params.FrameHz, MinFrameHz, MaxFrameHz)
	d := time.Duration(float64(time.Second) / hz)
	t.interval.Store(int64(d))
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
