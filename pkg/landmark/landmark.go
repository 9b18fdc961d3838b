// Package landmark defines facial landmark sets and the provider boundary
// that produces them from camera frames.
package landmark

import "math"

// Face-mesh landmark indices (468-point topology).
// See: https://github.com/google/mediapipe/blob/master/mediapipe/modules/face_geometry/data/canonical_face_model_uv_visualization.png
const (
	NoseTip        = 1
	Forehead       = 10
	LeftEyeOuter   = 33
	LeftEarBottom  = 132
	LeftEyeInner   = 133
	Chin           = 152
	NoseBridge     = 168
	LeftTemple     = 234
	RightEyeOuter  = 263
	RightEarBottom = 361
	RightEyeInner  = 362
	RightTemple    = 454

	// The mesh has no dedicated ear or cheek points; the temple landmarks
	// sit on the face contour and double for both.
	LeftEar    = LeftTemple
	RightEar   = RightTemple
	LeftCheek  = LeftTemple
	RightCheek = RightTemple

	NumPoints = 468
)

// Point is a landmark in normalized image space.
// X and Y are in [0,1] with the origin at the top-left corner; Z is the
// provider's relative depth estimate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IsFinite reports whether all coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Z)
}

// Set is an ordered landmark set; the index of a point is its identity.
type Set []Point

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// KeyPoints is the subset of a landmark set used to place accessories.
type KeyPoints struct {
	NoseBridge    Point `json:"nose_bridge"`
	NoseTip       Point `json:"nose_tip"`
	LeftEyeOuter  Point `json:"left_eye_outer"`
	RightEyeOuter Point `json:"right_eye_outer"`
	LeftEyeInner  Point `json:"left_eye_inner"`
	RightEyeInner Point `json:"right_eye_inner"`

	Forehead    Point `json:"forehead"`
	LeftTemple  Point `json:"left_temple"`
	RightTemple Point `json:"right_temple"`

	LeftEar        Point `json:"left_ear"`
	RightEar       Point `json:"right_ear"`
	LeftEarBottom  Point `json:"left_ear_bottom"`
	RightEarBottom Point `json:"right_ear_bottom"`

	Chin       Point `json:"chin"`
	LeftCheek  Point `json:"left_cheek"`
	RightCheek Point `json:"right_cheek"`
}

// KeyPoints projects the set onto its named key points.
// Returns nil if the set is too short for the face-mesh topology.
func (s Set) KeyPoints() *KeyPoints {
	if len(s) < NumPoints {
		return nil
	}
	return &KeyPoints{
		NoseBridge:     s[NoseBridge],
		NoseTip:        s[NoseTip],
		LeftEyeOuter:   s[LeftEyeOuter],
		RightEyeOuter:  s[RightEyeOuter],
		LeftEyeInner:   s[LeftEyeInner],
		RightEyeInner:  s[RightEyeInner],
		Forehead:       s[Forehead],
		LeftTemple:     s[LeftTemple],
		RightTemple:    s[RightTemple],
		LeftEar:        s[LeftEar],
		RightEar:       s[RightEar],
		LeftEarBottom:  s[LeftEarBottom],
		RightEarBottom: s[RightEarBottom],
		Chin:           s[Chin],
		LeftCheek:      s[LeftCheek],
		RightCheek:     s[RightCheek],
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
