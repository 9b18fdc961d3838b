package pose

import (
	"math"
	"testing"

	"github.com/teslashibe/go-tryon/pkg/landmark"
)

func frontalFace() *landmark.KeyPoints {
	return &landmark.KeyPoints{
		LeftEyeOuter:  landmark.Point{X: 0.3, Y: 0.5},
		RightEyeOuter: landmark.Point{X: 0.7, Y: 0.5},
		NoseBridge:    landmark.Point{X: 0.5, Y: 0.45, Z: 0.01},
		Forehead:      landmark.Point{X: 0.5, Y: 0.3},
		Chin:          landmark.Point{X: 0.5, Y: 0.75},
	}
}

func TestEstimate_Nil(t *testing.T) {
	if r := Estimate(nil); r != nil {
		t.Errorf("Estimate(nil) = %+v, want nil", r)
	}
}

func TestEstimate_Frontal(t *testing.T) {
	r := Estimate(frontalFace())
	if r == nil {
		t.Fatal("Estimate returned nil")
	}

	if math.Abs(r.Yaw) > 1e-12 {
		t.Errorf("Yaw: got %v, want 0 for a centered nose", r.Yaw)
	}
	if math.Abs(r.Roll) > 1e-12 {
		t.Errorf("Roll: got %v, want 0 for level eyes", r.Roll)
	}

	// f2n = 0.15, n2c = 0.30 -> atan2(0.15 - 0.18, 0.45) * 1.2
	wantPitch := math.Atan2(0.15-0.30*0.6, 0.15+0.30) * 1.2
	if math.Abs(r.Pitch-wantPitch) > 1e-12 {
		t.Errorf("Pitch: got %v, want %v", r.Pitch, wantPitch)
	}
}

func TestEstimate_Yaw(t *testing.T) {
	tests := []struct {
		name     string
		noseX    float64
		positive bool
	}{
		{"nose toward right eye", 0.6, true},
		{"nose toward left eye", 0.4, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kp := frontalFace()
			kp.NoseBridge.X = tc.noseX
			r := Estimate(kp)

			leftDist := math.Abs(tc.noseX - 0.3)
			rightDist := math.Abs(tc.noseX - 0.7)
			want := math.Atan2(leftDist-rightDist, 0.4) * YawGain
			if math.Abs(r.Yaw-want) > 1e-12 {
				t.Errorf("Yaw: got %v, want %v", r.Yaw, want)
			}
			if (r.Yaw > 0) != tc.positive {
				t.Errorf("Yaw sign: got %v, want positive=%v", r.Yaw, tc.positive)
			}
		})
	}
}

func TestEstimate_Roll(t *testing.T) {
	kp := frontalFace()
	kp.RightEyeOuter.Y = 0.6 // right eye lower: head tilted
	r := Estimate(kp)

	want := math.Atan2(0.1, 0.4)
	if math.Abs(r.Roll-want) > 1e-12 {
		t.Errorf("Roll: got %v, want %v", r.Roll, want)
	}
}

func TestEstimate_FaceWidthIncludesDepth(t *testing.T) {
	kp := frontalFace()
	kp.NoseBridge.X = 0.6
	kp.RightEyeOuter.Z = 0.3 // turned head: far eye recedes

	r := Estimate(kp)
	faceWidth := math.Sqrt(0.4*0.4 + 0.3*0.3)
	want := math.Atan2(0.3-0.1, faceWidth) * YawGain
	if math.Abs(r.Yaw-want) > 1e-12 {
		t.Errorf("Yaw: got %v, want %v", r.Yaw, want)
	}
}

func TestRotation_IsFinite(t *testing.T) {
	if !(Rotation{0.1, -0.2, 0.3}).IsFinite() {
		t.Error("finite rotation reported non-finite")
	}
	if (Rotation{Yaw: math.NaN()}).IsFinite() {
		t.Error("NaN rotation reported finite")
	}
}

func TestDegreesRadiansConversion(t *testing.T) {
	degrees := 63.0
	radians := Radians(degrees)
	backToDegrees := Degrees(radians)

	if math.Abs(backToDegrees-degrees) > 1e-9 {
		t.Errorf("Round-trip conversion failed: 63° -> %v rad -> %.4f°", radians, backToDegrees)
	}
}
