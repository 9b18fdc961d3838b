package tracking

import (
	"time"

	"github.com/teslashibe/go-tryon/pkg/smoothing"
)

// Mapping selects how anchors are converted into scene coordinates.
type Mapping string

// Mapping modes.
const (
	MappingApprox Mapping = "approx" // Closed-form approximation
	MappingExact  Mapping = "exact"  // Inverse camera matrix
)

// Valid reports whether m is a known mapping mode.
func (m Mapping) Valid() bool {
	return m == MappingApprox || m == MappingExact
}

// Config holds all tunable parameters for face tracking
type Config struct {
	// Timing
	FrameInterval time.Duration // How often a frame is pulled and processed
	FPSInterval   time.Duration // How often the fps estimate is refreshed

	// Smoothing
	Window int // Samples averaged per kind

	// Mapping
	Mapping Mapping

	// Logging
	MissLogThreshold int // Log once after this many consecutive no-face frames
	ErrorLogInterval time.Duration
}

// DefaultConfig returns the recommended configuration: ~30 fps, five-sample
// smoothing, closed-form mapping.
func DefaultConfig() Config {
	return Config{
		FrameInterval: 33 * time.Millisecond,
		FPSInterval:   time.Second,

		Window: smoothing.DefaultWindow,

		Mapping: MappingApprox,

		MissLogThreshold: 30,
		ErrorLogInterval: 5 * time.Second,
	}
}

// SmoothConfig returns a configuration for steadier, laggier placement.
func SmoothConfig() Config {
	cfg := DefaultConfig()
	cfg.Window = 8
	return cfg
}

// ResponsiveConfig returns a configuration for fast head movement.
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.FrameInterval = 16 * time.Millisecond // ~60 fps
	cfg.Window = 3
	return cfg
}

// Preset names accepted by GetPreset
const (
	PresetDefault    = "default"
	PresetSmooth     = "smooth"
	PresetResponsive = "responsive"
)

// PresetNames returns the available preset names.
func PresetNames() []string {
	return []string{PresetDefault, PresetSmooth, PresetResponsive}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	var cfg Config
	switch name {
	case PresetDefault:
		cfg = DefaultConfig()
	case PresetSmooth:
		cfg = SmoothConfig()
	case PresetResponsive:
		cfg = ResponsiveConfig()
	default:
		return nil
	}
	return &cfg
}

// normalize fills zero values with defaults.
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.FrameInterval <= 0 {
		c.FrameInterval = d.FrameInterval
	}
	if c.FPSInterval <= 0 {
		c.FPSInterval = d.FPSInterval
	}
	if c.Window < 1 {
		c.Window = d.Window
	}
	if !c.Mapping.Valid() {
		c.Mapping = d.Mapping
	}
	if c.MissLogThreshold < 1 {
		c.MissLogThreshold = d.MissLogThreshold
	}
	if c.ErrorLogInterval <= 0 {
		c.ErrorLogInterval = d.ErrorLogInterval
	}
	return c
}
