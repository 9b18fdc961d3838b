package tracking

import (
	"github.com/teslashibe/go-tryon/pkg/accessory"
	"github.com/teslashibe/go-tryon/pkg/landmark"
	"github.com/teslashibe/go-tryon/pkg/placement"
	"github.com/teslashibe/go-tryon/pkg/pose"
	"github.com/teslashibe/go-tryon/pkg/smoothing"
)

// Output is everything the pipeline derived from one face.
type Output struct {
	Anchor   accessory.Anchor    `json:"anchor"`
	Rotation *pose.Rotation      `json:"rotation,omitempty"`
	Raw      placement.Placement `json:"raw"`
	Smoothed placement.Placement `json:"smoothed"`
}

// Pipeline turns landmark sets into smoothed placements for the active
// accessory. It owns its smoothing state and is not safe for concurrent
// use; the tracker drives it from a single goroutine.
type Pipeline struct {
	meta     accessory.Meta
	mapping  Mapping
	smoother *smoothing.State

	// Exact mapping caches the inverse camera matrix per camera.
	unprojCam placement.Camera
	unproj    *placement.Unprojector
}

// NewPipeline creates a pipeline for the given accessory.
func NewPipeline(meta accessory.Meta, window int, mapping Mapping) *Pipeline {
	if !mapping.Valid() {
		mapping = MappingApprox
	}
	return &Pipeline{
		meta:     meta,
		mapping:  mapping,
		smoother: smoothing.NewState(window),
	}
}

// Accessory returns the active accessory tuning.
func (p *Pipeline) Accessory() accessory.Meta {
	return p.meta
}

// SetAccessory switches the active accessory and clears smoothing so
// samples from the previous accessory are never blended in.
func (p *Pipeline) SetAccessory(meta accessory.Meta) {
	p.meta = meta
	p.smoother.Reset()
}

// SetMapping switches the mapping mode. Smoothing is cleared since the two
// modes may disagree slightly.
func (p *Pipeline) SetMapping(m Mapping) {
	if !m.Valid() || m == p.mapping {
		return
	}
	p.mapping = m
	p.smoother.Reset()
}

// Mapping returns the active mapping mode.
func (p *Pipeline) Mapping() Mapping {
	return p.mapping
}

// SetWindow replaces the smoothing state with one of the given size.
func (p *Pipeline) SetWindow(size int) {
	if size < 1 || size == p.smoother.Size() {
		return
	}
	p.smoother = smoothing.NewState(size)
}

// Window returns the smoothing window size.
func (p *Pipeline) Window() int {
	return p.smoother.Size()
}

// Reset clears smoothing, e.g. when tracking restarts.
func (p *Pipeline) Reset() {
	p.smoother.Reset()
}

// Samples returns how many position samples are buffered.
func (p *Pipeline) Samples() int {
	return p.smoother.Len(smoothing.Position)
}

// Process runs one face through pose estimation, anchor resolution, mapping
// and smoothing. It returns false without touching smoothing when the set
// is too short or the raw placement is not finite.
func (p *Pipeline) Process(set landmark.Set, cam placement.Camera) (Output, bool) {
	kp := set.KeyPoints()
	if kp == nil {
		return Output{}, false
	}

	rot := pose.Estimate(kp)
	if rot != nil && !rot.IsFinite() {
		rot = nil
	}
	anchor := accessory.Resolve(p.meta.Category, kp, p.meta)

	raw, ok := p.mapAnchor(anchor, cam)
	if !ok {
		return Output{}, false
	}
	raw = raw.WithRotation(rot)
	if !raw.IsFinite() {
		return Output{}, false
	}

	return Output{
		Anchor:   anchor,
		Rotation: rot,
		Raw:      raw,
		Smoothed: p.smoother.Smooth(raw, rot != nil),
	}, true
}

func (p *Pipeline) mapAnchor(a accessory.Anchor, cam placement.Camera) (placement.Placement, bool) {
	if p.mapping != MappingExact {
		return placement.Map(a, cam, p.meta), true
	}

	if p.unproj == nil || p.unprojCam != cam {
		u, err := placement.NewUnprojector(cam)
		if err != nil {
			p.unproj = nil
			return placement.Placement{}, false
		}
		p.unproj, p.unprojCam = u, cam
	}
	pl, err := p.unproj.Map(a, cam, p.meta)
	if err != nil {
		return placement.Placement{}, false
	}
	return pl, true
}
