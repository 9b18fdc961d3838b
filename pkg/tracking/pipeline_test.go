package tracking

import (
	"math"
	"testing"
	"time"

	"github.com/teslashibe/go-tryon/pkg/accessory"
	"github.com/teslashibe/go-tryon/pkg/landmark"
	"github.com/teslashibe/go-tryon/pkg/placement"
)

func TestPipeline_ShortSetIsNoFace(t *testing.T) {
	p := NewPipeline(accessory.DefaultMeta(), 5, MappingApprox)
	if _, ok := p.Process(landmark.Set{{X: 0.5, Y: 0.5}}, placement.DefaultCamera()); ok {
		t.Error("short landmark set should not produce a placement")
	}
	if _, ok := p.Process(nil, placement.DefaultCamera()); ok {
		t.Error("nil landmark set should not produce a placement")
	}
	if p.Samples() != 0 {
		t.Error("no-face input must not push samples")
	}
}

func TestPipeline_ExactMatchesApprox(t *testing.T) {
	face := faceAt(0.42)
	cam := placement.DefaultCamera()
	meta := accessory.Meta{Category: accessory.Glasses, VerticalOffset: 0.05, ScaleFactor: 1.5}

	approx := NewPipeline(meta, 5, MappingApprox)
	exact := NewPipeline(meta, 5, MappingExact)

	a, ok := approx.Process(face, cam)
	if !ok {
		t.Fatal("approx failed")
	}
	e, ok := exact.Process(face, cam)
	if !ok {
		t.Fatal("exact failed")
	}

	if math.Abs(a.Raw.Position.X-e.Raw.Position.X) > 1e-6 ||
		math.Abs(a.Raw.Position.Y-e.Raw.Position.Y) > 1e-6 {
		t.Errorf("approx %v vs exact %v", a.Raw.Position, e.Raw.Position)
	}
	if a.Raw.Scale != e.Raw.Scale {
		t.Errorf("scale differs: %v vs %v", a.Raw.Scale, e.Raw.Scale)
	}
}

func TestPipeline_RotationAttached(t *testing.T) {
	p := NewPipeline(accessory.DefaultMeta(), 5, MappingApprox)
	out, ok := p.Process(faceAt(0.5), placement.DefaultCamera())
	if !ok {
		t.Fatal("Process failed")
	}
	if out.Rotation == nil {
		t.Fatal("rotation missing")
	}
	if out.Raw.Rotation != *out.Rotation {
		t.Errorf("raw rotation %+v != estimate %+v", out.Raw.Rotation, *out.Rotation)
	}
}

func TestPipeline_TuningSetters(t *testing.T) {
	p := NewPipeline(accessory.DefaultMeta(), 5, "bogus")
	if p.Mapping() != MappingApprox {
		t.Errorf("invalid mapping should fall back to approx, got %q", p.Mapping())
	}

	p.Process(faceAt(0.5), placement.DefaultCamera())
	p.SetMapping(MappingExact)
	if p.Mapping() != MappingExact || p.Samples() != 0 {
		t.Error("mapping change should switch mode and clear smoothing")
	}

	p.SetWindow(9)
	if p.Window() != 9 {
		t.Errorf("Window = %d, want 9", p.Window())
	}
	p.SetWindow(0)
	if p.Window() != 9 {
		t.Error("zero window must be ignored")
	}
}

func TestConfigPresets(t *testing.T) {
	configs := []struct {
		name string
		cfg  Config
	}{
		{"Default", DefaultConfig()},
		{"Smooth", SmoothConfig()},
		{"Responsive", ResponsiveConfig()},
	}

	for _, tc := range configs {
		if tc.cfg.Window < 1 || tc.cfg.FrameInterval <= 0 || !tc.cfg.Mapping.Valid() {
			t.Errorf("%s: invalid preset %+v", tc.name, tc.cfg)
		}
	}
	if DefaultConfig().Window != 5 {
		t.Errorf("default window = %d, want 5", DefaultConfig().Window)
	}
}

func TestConfig_Normalize(t *testing.T) {
	cfg := Config{}.normalize()
	if cfg != DefaultConfig() {
		t.Errorf("zero config should normalize to defaults, got %+v", cfg)
	}
}

func TestFPSCounter(t *testing.T) {
	c := newFPSCounter(time.Second)
	start := time.Unix(0, 0)

	for i := 0; i < 30; i++ {
		if c.tick(start.Add(time.Duration(i) * 33 * time.Millisecond)) {
			t.Fatalf("refreshed early at frame %d", i)
		}
	}
	if !c.tick(start.Add(time.Second)) {
		t.Fatal("expected refresh after one second")
	}
	if math.Abs(c.rate()-31) > 1e-9 {
		t.Errorf("rate = %v, want 31", c.rate())
	}

	c.reset()
	if c.rate() != 0 {
		t.Error("reset should clear the rate")
	}
}

func TestTuning(t *testing.T) {
	tr, _, _, _ := newTestTracker(landmark.NewMock(faceAt(0.5)))

	d := tr.applyTuning(TuningParams{FrameHz: 100, Window: 50, Mapping: MappingExact})
	if d != time.Second/60 {
		t.Errorf("interval = %v, want clamped to 60 Hz", d)
	}
	tr.publish(time.Now())

	got := tr.GetTuningParams()
	if got.Window != MaxWindow {
		t.Errorf("Window = %d, want %d", got.Window, MaxWindow)
	}
	if got.Mapping != MappingExact {
		t.Errorf("Mapping = %q", got.Mapping)
	}
	if math.Abs(got.FrameHz-60) > 0.01 {
		t.Errorf("FrameHz = %v, want 60", got.FrameHz)
	}

	if d := tr.applyTuning(TuningParams{}); d != 0 {
		t.Errorf("empty params changed interval to %v", d)
	}
}

func TestSetTuningParams_ReplacesPending(t *testing.T) {
	tr, _, _, _ := newTestTracker(landmark.NewMock(nil))
	tr.SetTuningParams(TuningParams{Window: 3})
	tr.SetTuningParams(TuningParams{Window: 7})

	got := <-tr.tuningUpdates
	if got.Window != 7 {
		t.Errorf("pending Window = %d, want latest 7", got.Window)
	}
}

func TestGetPreset(t *testing.T) {
	for _, name := range PresetNames() {
		if GetPreset(name) == nil {
			t.Errorf("preset %q missing", name)
		}
	}
	if got := GetPreset(PresetSmooth); got.Window != 8 {
		t.Errorf("smooth window = %d, want 8", got.Window)
	}
	if got := GetPreset(PresetResponsive); got.FrameInterval != 16*time.Millisecond || got.Window != 3 {
		t.Errorf("responsive = %+v", *got)
	}
	if GetPreset("turbo") != nil {
		t.Error("unknown preset should be nil")
	}
}
