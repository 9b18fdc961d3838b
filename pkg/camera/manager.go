package camera

import (
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/teslashibe/go-tryon/pkg/placement"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Manager holds the current camera configuration and handles updates.
type Manager struct {
	config Config
	mu     sync.RWMutex

	// Callback when config changes (for reopening the capture device)
	OnConfigChange func(cfg Config) error
}

// NewManager creates a new camera manager with default config.
func NewManager() *Manager {
	return &Manager{
		config: DefaultConfig(),
	}
}

// NewManagerWithConfig creates a manager starting from cfg.
func NewManagerWithConfig(cfg Config) (*Manager, error) {
	if errors := cfg.Validate(); len(errors) > 0 {
		return nil, fmt.Errorf("validation failed: %v", errors)
	}
	return &Manager{config: cfg}, nil
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Camera returns the current render camera. Safe to call every frame.
func (m *Manager) Camera() placement.Camera {
	return m.GetConfig().Camera()
}

// SetConfig updates the camera configuration.
func (m *Manager) SetConfig(cfg Config) error {
	// Validate
	if errors := cfg.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	m.mu.Lock()
	prev := m.config
	m.config = cfg
	callback := m.OnConfigChange
	m.mu.Unlock()

	// Only capture changes need the device reopened
	if callback != nil && captureChanged(prev, cfg) {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}

	return nil
}

func captureChanged(a, b Config) bool {
	return a.Device != b.Device || a.Width != b.Width || a.Height != b.Height ||
		a.Framerate != b.Framerate || a.Quality != b.Quality
}

// UpdateConfig updates specific fields of the configuration.
// Accepts a map of field names to values.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	// Check for preset first
	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		// Presets never move the capture device
		preset.Device = cfg.Device
		cfg = *preset
		delete(params, "preset")
	}

	// Apply individual parameters
	for key, value := range params {
		switch key {
		case "device":
			if v, ok := toInt(value); ok {
				cfg.Device = v
			}
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "framerate":
			if v, ok := toInt(value); ok {
				cfg.Framerate = v
			}
		case "quality":
			if v, ok := toInt(value); ok {
				cfg.Quality = v
			}
		case "fov":
			if v, ok := toFloat(value); ok {
				cfg.FOV = v
			}
		case "distance":
			if v, ok := toFloat(value); ok {
				cfg.Distance = v
			}
		}
	}

	return m.SetConfig(cfg)
}

// GetConfigJSON returns the current config as a map for JSON serialization.
func (m *Manager) GetConfigJSON() map[string]interface{} {
	cfg := m.GetConfig()

	// Convert to map via JSON for consistent serialization
	data, _ := json.Marshal(cfg)
	var result map[string]interface{}
	json.Unmarshal(data, &result)

	result["aspect"] = cfg.Aspect()
	return result
}

// Helper functions for type conversion. Number cases match both
// encoding/json and jsoniter numbers.

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case interface{ Int64() (int64, error) }:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case interface{ Float64() (float64, error) }:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}
