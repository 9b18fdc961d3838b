package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	Preset480p    = "480p"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
	PresetWide    = "wide"
	PresetNarrow  = "narrow"
	PresetLowFPS  = "lowfps"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		Preset480p:    SD480Config(),
		Preset720p:    HD720Config(),
		Preset1080p:   HD1080Config(),
		PresetWide:    WideConfig(),
		PresetNarrow:  NarrowConfig(),
		PresetLowFPS:  LowFPSConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		Preset480p,
		Preset720p,
		Preset1080p,
		PresetWide,
		PresetNarrow,
		PresetLowFPS,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// SD480Config returns 640x480. Cheapest to run inference on; 4:3 aspect.
func SD480Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// HD720Config returns 720p HD configuration.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p Full HD configuration.
// Sharper landmarks at a higher inference cost.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// WideConfig matches a wide-angle webcam.
func WideConfig() Config {
	cfg := DefaultConfig()
	cfg.FOV = 78
	return cfg
}

// NarrowConfig matches a telephoto or zoomed-in view.
func NarrowConfig() Config {
	cfg := DefaultConfig()
	cfg.FOV = 45
	cfg.Distance = 7
	return cfg
}

// LowFPSConfig trades latency for CPU on slow machines.
func LowFPSConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	cfg.Framerate = 15
	return cfg
}
