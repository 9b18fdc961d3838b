package smoothing

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/teslashibe/go-tryon/pkg/placement"
	"github.com/teslashibe/go-tryon/pkg/pose"
)

// Kind selects one of the independent smoothing windows.
type Kind int

// Window kinds.
const (
	Position Kind = iota
	Rotation
	Scale
	numKinds
)

var kindDims = [numKinds]int{Position: 3, Rotation: 3, Scale: 1}

func (k Kind) String() string {
	switch k {
	case Position:
		return "position"
	case Rotation:
		return "rotation"
	case Scale:
		return "scale"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// State owns the smoothing windows for one active accessory. It must be
// reset whenever the accessory changes or tracking restarts so samples
// computed under different tuning are never blended.
type State struct {
	windows [numKinds]*Window
}

// NewState creates smoothing state with the given window size.
// A size below 1 uses DefaultWindow.
func NewState(size int) *State {
	s := &State{}
	for k := range s.windows {
		s.windows[k] = NewWindow(size, kindDims[k])
	}
	return s
}

// Push adds a sample to the kind's window and returns the smoothed value.
func (s *State) Push(kind Kind, values ...float64) []float64 {
	return s.windows[kind].Push(values...)
}

// PushPosition smooths a position sample.
func (s *State) PushPosition(v r3.Vector) r3.Vector {
	m := s.Push(Position, v.X, v.Y, v.Z)
	return r3.Vector{X: m[0], Y: m[1], Z: m[2]}
}

// PushRotation smooths a rotation sample.
func (s *State) PushRotation(r pose.Rotation) pose.Rotation {
	m := s.Push(Rotation, r.Yaw, r.Pitch, r.Roll)
	return pose.Rotation{Yaw: m[0], Pitch: m[1], Roll: m[2]}
}

// PushScale smooths a scale sample.
func (s *State) PushScale(v float64) float64 {
	return s.Push(Scale, v)[0]
}

// Smooth pushes a raw placement and returns the smoothed one. Rotation is
// only pushed when hasRotation is set; otherwise the result has zero
// rotation and the rotation window is left untouched.
func (s *State) Smooth(raw placement.Placement, hasRotation bool) placement.Placement {
	out := placement.Placement{
		Position: s.PushPosition(raw.Position),
		Scale:    s.PushScale(raw.Scale),
	}
	if hasRotation {
		out.Rotation = s.PushRotation(raw.Rotation)
	}
	return out
}

// Reset clears every window.
func (s *State) Reset() {
	for _, w := range s.windows {
		w.Reset()
	}
}

// Len returns the number of samples held for kind.
func (s *State) Len(kind Kind) int {
	return s.windows[kind].Len()
}

// Size returns the window size.
func (s *State) Size() int {
	return s.windows[Position].Cap()
}
