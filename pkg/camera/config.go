// Package camera provides runtime-configurable capture and render-camera
// settings. The render camera values feed the placement mapper on every
// frame.
package camera

import (
	"github.com/teslashibe/go-tryon/pkg/placement"
	"github.com/teslashibe/go-tryon/pkg/pose"
)

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// === Capture ===
	Device    int `json:"device"`    // Capture device index
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS
	Quality   int `json:"quality"`   // JPEG quality 1-100

	// === Render camera ===
	// FOV is the vertical field of view in degrees.
	FOV float64 `json:"fov"`

	// Distance is how far the render camera sits from the accessory plane.
	Distance float64 `json:"distance"`
}

// Limits
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MinFOV       = 10.0
	MaxFOV       = 120.0
	MaxDistance  = 100.0
	MaxFramerate = 120
)

// DefaultConfig returns the configuration used by the web renderer:
// 1280x720 capture and a 63° camera five units from the scene.
func DefaultConfig() Config {
	return Config{
		Device:    0,
		Width:     1280,
		Height:    720,
		Framerate: 30,
		Quality:   85,

		FOV:      63,
		Distance: 5,
	}
}

// Aspect returns the video aspect ratio, or 0 when height is unset.
func (c Config) Aspect() float64 {
	if c.Height == 0 {
		return 0
	}
	return float64(c.Width) / float64(c.Height)
}

// Camera returns the render camera for the placement mapper.
func (c Config) Camera() placement.Camera {
	return placement.Camera{
		FOV:      pose.Radians(c.FOV),
		Distance: c.Distance,
		Aspect:   c.Aspect(),
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	// Capture
	if c.Device < 0 {
		errors = append(errors, "device must not be negative")
	}
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	// Render camera
	if !(c.FOV >= MinFOV && c.FOV <= MaxFOV) {
		errors = append(errors, "fov must be between 10 and 120 degrees")
	}
	if !(c.Distance > 0 && c.Distance <= MaxDistance) {
		errors = append(errors, "distance must be greater than 0 and at most 100")
	}

	return errors
}

// Capabilities returns the supported ranges.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"max_width":     MaxWidth,
		"max_height":    MaxHeight,
		"max_framerate": MaxFramerate,
		"fov_range":     []float64{MinFOV, MaxFOV},
		"max_distance":  MaxDistance,
		"presets":       PresetNames(),
	}
}
