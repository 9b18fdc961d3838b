// Package placement maps a face anchor in normalized image space into a 3D
// transform for the render scene.
//
// The scene follows the renderer's conventions: the camera sits on the +Z
// axis looking at the origin, and the accessory lives near the z = 0 plane.
// The video is shown mirrored, so both screen axes are negated.
package placement

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/teslashibe/go-tryon/pkg/accessory"
	"github.com/teslashibe/go-tryon/pkg/pose"
)

// Mapping constants.
const (
	// DepthScale converts the provider's relative depth into scene units.
	DepthScale = -5.0

	// ScaleGain converts a scale reference at the camera distance into the
	// model's uniform scale.
	ScaleGain = 4.0
)

// Camera describes the render camera at placement time.
type Camera struct {
	FOV      float64 `json:"fov"`      // Vertical field of view in radians
	Distance float64 `json:"distance"` // Camera distance from the z = 0 plane
	Aspect   float64 `json:"aspect"`   // Video width / height
}

// DefaultCamera matches the web renderer: 63° vertical FOV, camera at z=5,
// 16:9 video.
func DefaultCamera() Camera {
	return Camera{
		FOV:      pose.Radians(63),
		Distance: 5,
		Aspect:   16.0 / 9.0,
	}
}

// halfHeight is the visible half-height of the z = 0 plane.
func (c Camera) halfHeight() float64 {
	return c.Distance * math.Tan(c.FOV/2)
}

// Placement is the transform applied to the active accessory.
type Placement struct {
	Position r3.Vector     `json:"position"`
	Rotation pose.Rotation `json:"rotation"`
	Scale    float64       `json:"scale"`
}

// WithRotation returns p with the rotation set, or zeroed when r is nil.
func (p Placement) WithRotation(r *pose.Rotation) Placement {
	if r == nil {
		p.Rotation = pose.Rotation{}
		return p
	}
	p.Rotation = *r
	return p
}

// IsFinite reports whether every component is a finite number.
func (p Placement) IsFinite() bool {
	for _, v := range [...]float64{p.Position.X, p.Position.Y, p.Position.Z, p.Scale} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return p.Rotation.IsFinite()
}

// Map converts an anchor into a placement with a closed-form approximation
// of perspective unprojection onto the z = 0 plane. Rotation is zero.
func Map(a accessory.Anchor, cam Camera, meta accessory.Meta) Placement {
	h := cam.halfHeight()

	x := -(a.Point.X - 0.5) * 2 * cam.Aspect * h
	y := -(a.Point.Y-0.5)*2*h + meta.VerticalOffset

	return Placement{
		Position: r3.Vector{X: x, Y: y, Z: depth(a, meta)},
		Scale:    scale(a, cam, meta),
	}
}

func depth(a accessory.Anchor, meta accessory.Meta) float64 {
	return a.Point.Z*DepthScale + meta.DepthOffset
}

// scale is linear in the anchor's reference distance. The scale factor is
// applied again on top of the one already folded into ScaleRef.
func scale(a accessory.Anchor, cam Camera, meta accessory.Meta) float64 {
	return a.ScaleRef * cam.Distance * ScaleGain * meta.Scale()
}
