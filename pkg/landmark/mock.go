package landmark

import (
	"sync"
	"time"
)

// Mock implements Provider for testing.
type Mock struct {
	// DetectFunc is called when Detect is invoked.
	DetectFunc func(frame Frame) (Result, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu     sync.Mutex
	frames []time.Duration
	closed bool
}

// NewMock creates a mock provider that always returns the given face.
// A nil face yields "no face" results.
func NewMock(face Set) *Mock {
	return &Mock{
		DetectFunc: func(Frame) (Result, error) {
			if face == nil {
				return Result{}, nil
			}
			return Result{Faces: []Set{face}}, nil
		},
	}
}

// Detect calls DetectFunc and records the frame timestamp.
func (m *Mock) Detect(frame Frame) (Result, error) {
	m.mu.Lock()
	m.frames = append(m.frames, frame.Timestamp)
	m.mu.Unlock()

	if m.DetectFunc != nil {
		return m.DetectFunc(frame)
	}
	return Result{}, nil
}

// Close calls CloseFunc.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns the timestamps of every frame passed to Detect.
func (m *Mock) Calls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.frames))
	copy(out, m.frames)
	return out
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SyntheticFace builds a full-size landmark set with every point at the
// frame center and the key points overridden by kp. Useful for tests and
// offline replays.
func SyntheticFace(kp KeyPoints) Set {
	s := make(Set, NumPoints)
	for i := range s {
		s[i] = Point{X: 0.5, Y: 0.5}
	}
	s[NoseBridge] = kp.NoseBridge
	s[NoseTip] = kp.NoseTip
	s[LeftEyeOuter] = kp.LeftEyeOuter
	s[RightEyeOuter] = kp.RightEyeOuter
	s[LeftEyeInner] = kp.LeftEyeInner
	s[RightEyeInner] = kp.RightEyeInner
	s[Forehead] = kp.Forehead
	s[LeftTemple] = kp.LeftTemple
	s[RightTemple] = kp.RightTemple
	s[LeftEarBottom] = kp.LeftEarBottom
	s[RightEarBottom] = kp.RightEarBottom
	s[Chin] = kp.Chin
	return s
}
