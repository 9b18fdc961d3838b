// Package tracking runs the per-frame face tracking loop: landmarks in,
// smoothed accessory placements out.
package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-tryon/internal/log"
	"github.com/teslashibe/go-tryon/pkg/accessory"
	"github.com/teslashibe/go-tryon/pkg/landmark"
	"github.com/teslashibe/go-tryon/pkg/placement"
)

// FrameSource interface for capturing frames
type FrameSource interface {
	CaptureFrame() (landmark.Frame, error)
}

// CameraSource provides the render camera at placement time
type CameraSource interface {
	Camera() placement.Camera
}

// Applier receives the smoothed placement for every frame with a face
type Applier interface {
	ApplyPlacement(p placement.Placement)
}

// StateUpdater interface for updating dashboard state
type StateUpdater interface {
	UpdateTrackingState(s State)
}

// Recorder persists tracking sessions
type Recorder interface {
	StartSession(s Session) error
	RecordSample(s Sample) error
	EndSession(id string, end time.Time) error
}

// Selection is an accessory choice.
type Selection struct {
	ProductID string         `json:"product_id,omitempty"`
	Meta      accessory.Meta `json:"meta"`
}

// Session describes one run of the tracking loop.
type Session struct {
	ID        string
	Started   time.Time
	Selection Selection
	Config    Config
}

// Sample is one processed frame with a face.
type Sample struct {
	SessionID string
	Frame     uint64
	Timestamp time.Duration
	Selection Selection
	Output    Output
}

// State is the tracker status surfaced to dashboards. FaceVisible doubles
// as the "no face" indicator.
type State struct {
	SessionID   string    `json:"session_id"`
	Running     bool      `json:"running"`
	FaceVisible bool      `json:"face_visible"`
	FPS         float64   `json:"fps"`
	Selection   Selection `json:"selection"`
	Mapping     Mapping   `json:"mapping"`
	Window      int       `json:"window"`
	Frames      uint64    `json:"frames"`
	Placements  uint64    `json:"placements"`
	Misses      int       `json:"misses"`
	Errors      uint64    `json:"errors"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tracker drives the pipeline from a single goroutine. Other goroutines
// post selection, reset and tuning requests, which are applied at the
// start of the next tick.
type Tracker struct {
	config   Config
	frames   FrameSource
	provider *landmark.Deduper
	camera   CameraSource
	applier  Applier
	state    StateUpdater
	recorder Recorder
	logger   *slog.Logger

	// Owned by the loop goroutine
	pipeline  *Pipeline
	selection Selection
	fps       *fpsCounter
	sessionID string
	frameNo   uint64
	placed    uint64
	misses    int
	errCount  uint64
	lastErrAt time.Time
	faceSeen  bool

	// Posted from other goroutines
	pendingSel    atomic.Pointer[Selection]
	pendingReset  atomic.Bool
	tuningUpdates chan TuningParams
	interval      atomic.Int64 // Current frame interval, ns

	// Snapshot for readers
	mu       sync.RWMutex
	snapshot State

	// Start/Stop
	runMu   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool
}

// New creates a tracker. provider is wrapped so repeated frame timestamps
// are skipped.
func New(config Config, frames FrameSource, provider landmark.Provider, camera CameraSource) *Tracker {
	config = config.normalize()
	sel := Selection{Meta: accessory.DefaultMeta()}
	t := &Tracker{
		config:        config,
		frames:        frames,
		provider:      landmark.NewDeduper(provider),
		camera:        camera,
		logger:        log.Component("tracker"),
		pipeline:      NewPipeline(sel.Meta, config.Window, config.Mapping),
		selection:     sel,
		fps:           newFPSCounter(config.FPSInterval),
		tuningUpdates: make(chan TuningParams, 1),
	}
	t.interval.Store(int64(config.FrameInterval))
	t.snapshot = t.buildState(time.Now())
	return t
}

// SetApplier sets the placement consumer
func (t *Tracker) SetApplier(a Applier) {
	t.applier = a
}

// SetStateUpdater sets the dashboard state updater
func (t *Tracker) SetStateUpdater(state StateUpdater) {
	t.state = state
}

// SetRecorder enables session recording
func (t *Tracker) SetRecorder(r Recorder) {
	t.recorder = r
}

// SelectAccessory switches the active accessory at the next frame.
// Smoothing is cleared when it takes effect.
func (t *Tracker) SelectAccessory(meta accessory.Meta, productID string) {
	meta.Category = accessory.ParseCategory(string(meta.Category))
	t.pendingSel.Store(&Selection{ProductID: productID, Meta: meta})
}

// Reset clears smoothing at the next frame.
func (t *Tracker) Reset() {
	t.pendingReset.Store(true)
}

// State returns the latest tracker status.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// IsRunning reports whether the loop is active.
func (t *Tracker) IsRunning() bool {
	return t.running.Load()
}

// Start runs the loop in a new goroutine. It is a no-op when already
// running.
func (t *Tracker) Start(ctx context.Context) {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel, t.done = cancel, done
	go func() {
		defer close(done)
		t.Run(ctx)
	}()
}

// Stop cancels a loop started with Start and waits for it to exit.
func (t *Tracker) Stop() {
	t.runMu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run processes frames until ctx is cancelled. Each run is a new session
// with empty smoothing buffers.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(t.interval.Load()))
	defer ticker.Stop()

	t.beginSession(time.Now())
	defer t.endSession()

	t.logger.Info("tracker started",
		"session", t.sessionID,
		"interval", time.Duration(t.interval.Load()),
		"window", t.pipeline.Window(),
		"mapping", t.pipeline.Mapping(),
	)

	for {
		select {
		case <-ctx.Done():
			return

		case params := <-t.tuningUpdates:
			window, mapping := t.pipeline.Window(), t.pipeline.Mapping()
			if d := t.applyTuning(params); d > 0 {
				ticker.Reset(d)
			}
			now := time.Now()
			if t.pipeline.Window() != window || t.pipeline.Mapping() != mapping {
				t.rotateSession(now)
			}
			t.publish(now)

		case now := <-ticker.C:
			t.Step(now)
		}
	}
}

func (t *Tracker) beginSession(now time.Time) {
	t.running.Store(true)
	t.sessionID = uuid.NewString()
	t.frameNo, t.placed, t.misses, t.errCount = 0, 0, 0, 0
	t.faceSeen = false
	t.applyPending()
	t.pipeline.Reset()
	t.provider.Reset()
	t.fps.reset()

	t.startRecording(now)
	t.publish(now)
}

// liveConfig is the config the pipeline is running with, including
// runtime tuning.
func (t *Tracker) liveConfig() Config {
	c := t.config
	c.FrameInterval = time.Duration(t.interval.Load())
	c.Window = t.pipeline.Window()
	c.Mapping = t.pipeline.Mapping()
	return c
}

func (t *Tracker) startRecording(now time.Time) {
	if t.recorder == nil {
		return
	}
	err := t.recorder.StartSession(Session{
		ID:        t.sessionID,
		Started:   now,
		Selection: t.selection,
		Config:    t.liveConfig(),
	})
	if err != nil {
		t.logger.Warn("recorder start failed", "session", t.sessionID, "error", err)
	}
}

// rotateSession closes the current session and opens a new one so every
// recorded session was produced by a single window and mapping. Counters
// carry over.
func (t *Tracker) rotateSession(now time.Time) {
	prev := t.sessionID
	if t.recorder != nil {
		if err := t.recorder.EndSession(prev, now); err != nil {
			t.logger.Warn("recorder end failed", "session", prev, "error", err)
		}
	}
	t.sessionID = uuid.NewString()
	t.startRecording(now)
	t.logger.Info("session rotated after tuning", "previous", prev, "session", t.sessionID)
}

func (t *Tracker) endSession() {
	now := time.Now()
	t.running.Store(false)
	if t.recorder != nil {
		if err := t.recorder.EndSession(t.sessionID, now); err != nil {
			t.logger.Warn("recorder end failed", "session", t.sessionID, "error", err)
		}
	}
	t.publish(now)
	t.logger.Info("tracker stopped",
		"session", t.sessionID,
		"frames", t.frameNo,
		"placements", t.placed,
		"errors", t.errCount,
	)
}

// applyPending applies posted selection and reset requests.
func (t *Tracker) applyPending() {
	if sel := t.pendingSel.Swap(nil); sel != nil {
		t.selection = *sel
		t.pipeline.SetAccessory(sel.Meta)
		t.logger.Info("accessory selected",
			"product", sel.ProductID,
			"category", sel.Meta.Category,
			"scale_factor", sel.Meta.ScaleFactor,
		)
	}
	if t.pendingReset.Swap(false) {
		t.pipeline.Reset()
		t.logger.Debug("smoothing reset")
	}
}

// Step processes one frame. Run calls it on every tick; tests call it
// directly.
func (t *Tracker) Step(now time.Time) {
	t.applyPending()
	defer t.publish(now)

	frame, err := t.frames.CaptureFrame()
	if err != nil {
		if !errors.Is(err, landmark.ErrNoFrame) {
			t.frameError(now, "capture failed", err)
		}
		return
	}

	result, err := t.provider.Detect(frame)
	if errors.Is(err, landmark.ErrDuplicateFrame) {
		return
	}
	if err != nil {
		t.frameError(now, "landmark detection failed", err)
		return
	}
	t.frameNo++
	if t.fps.tick(now) {
		t.logger.Debug("fps", "fps", t.fps.rate(), "samples", t.pipeline.Samples())
	}

	out, ok := t.pipeline.Process(result.Primary(), t.camera.Camera())
	if !ok {
		t.noFace(result.HasFace())
		return
	}

	if t.misses >= t.config.MissLogThreshold {
		t.logger.Info("face reacquired", "after_frames", t.misses)
	}
	t.misses = 0
	t.faceSeen = true
	t.placed++

	if t.applier != nil {
		t.applier.ApplyPlacement(out.Smoothed)
	}
	if t.recorder != nil {
		err := t.recorder.RecordSample(Sample{
			SessionID: t.sessionID,
			Frame:     t.frameNo,
			Timestamp: frame.Timestamp,
			Selection: t.selection,
			Output:    out,
		})
		if err != nil {
			t.frameError(now, "record failed", err)
		}
	}
}

// noFace leaves smoothing untouched so tracking resumes after short gaps.
func (t *Tracker) noFace(hadFace bool) {
	t.faceSeen = false
	t.misses++
	if hadFace {
		t.logger.Debug("dropped non-finite placement")
	}
	if t.misses == t.config.MissLogThreshold {
		t.logger.Info("lost face", "consecutive_misses", t.misses)
	}
}

func (t *Tracker) frameError(now time.Time, msg string, err error) {
	t.errCount++
	if now.Sub(t.lastErrAt) < t.config.ErrorLogInterval {
		return
	}
	t.lastErrAt = now
	t.logger.Warn(msg, "error", err, "errors", t.errCount)
}

func (t *Tracker) buildState(now time.Time) State {
	return State{
		SessionID:   t.sessionID,
		Running:     t.running.Load(),
		FaceVisible: t.faceSeen,
		FPS:         t.fps.rate(),
		Selection:   t.selection,
		Mapping:     t.pipeline.Mapping(),
		Window:      t.pipeline.Window(),
		Frames:      t.frameNo,
		Placements:  t.placed,
		Misses:      t.misses,
		Errors:      t.errCount,
		UpdatedAt:   now,
	}
}

func (t *Tracker) publish(now time.Time) {
	s := t.buildState(now)

	t.mu.Lock()
	t.snapshot = s
	t.mu.Unlock()

	if t.state != nil {
		t.state.UpdateTrackingState(s)
	}
}
