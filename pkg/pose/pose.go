// Package pose estimates a coarse head orientation from facial key points.
//
// The estimate is heuristic: it reads asymmetries between a handful of
// landmarks rather than solving for a rotation matrix. Gains were tuned by
// hand and are kept as-is for behavioural parity.
package pose

import (
	"math"

	"github.com/teslashibe/go-tryon/pkg/landmark"
)

// Empirical gains.
const (
	// YawGain compensates for landmark compression at strong head turns.
	YawGain = 1.5

	// PitchGain scales the forehead/chin balance into radians.
	PitchGain = 1.2

	// ChinWeight is the share of the nose-to-chin span counted against the
	// forehead-to-nose span.
	ChinWeight = 0.6
)

// Rotation is a head orientation in radians.
// Values are not clamped; in practice they stay within roughly ±60°.
type Rotation struct {
	Yaw   float64 `json:"yaw"`   // About the vertical axis
	Pitch float64 `json:"pitch"` // About the horizontal axis
	Roll  float64 `json:"roll"`  // About the depth axis
}

// Estimate derives yaw, pitch and roll from key points.
// Returns nil when kp is nil.
func Estimate(kp *landmark.KeyPoints) *Rotation {
	if kp == nil {
		return nil
	}

	leo, reo, nb := kp.LeftEyeOuter, kp.RightEyeOuter, kp.NoseBridge

	// Yaw: how far off-center the nose bridge sits between the eye corners
	faceWidth := landmark.Distance(leo, reo)
	leftDist := math.Abs(nb.X - leo.X)
	rightDist := math.Abs(nb.X - reo.X)
	yaw := math.Atan2(leftDist-rightDist, faceWidth) * YawGain

	// Pitch: balance of the upper and lower face
	foreheadToNose := nb.Y - kp.Forehead.Y
	noseToChin := kp.Chin.Y - nb.Y
	pitch := math.Atan2(foreheadToNose-noseToChin*ChinWeight, foreheadToNose+noseToChin) * PitchGain

	// Roll: tilt of the eye-corner line
	roll := math.Atan2(reo.Y-leo.Y, reo.X-leo.X)

	return &Rotation{Yaw: yaw, Pitch: pitch, Roll: roll}
}

// IsFinite reports whether all angles are finite numbers.
func (r Rotation) IsFinite() bool {
	for _, v := range [...]float64{r.Yaw, r.Pitch, r.Roll} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Degrees converts radians to degrees for logging/display.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}
