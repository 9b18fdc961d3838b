// Package config loads process configuration for go-tryon commands.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults used when the environment does not override them.
const (
	DefaultHTTPPort     = 8181
	DefaultCameraDevice = 0
	DefaultMeshModel    = "models/face_mesh.onnx"
	DefaultDetector     = "models/face_detection_yunet.onnx"
	DefaultServerURL    = "http://localhost:8181"
)

// Config holds settings read from the environment.
type Config struct {
	HTTPPort          int
	CameraDevice      int
	MeshModelPath     string
	DetectorModelPath string
	CatalogPath       string // Empty means the built-in demo catalog
	RecordDB          string // Empty disables session recording
	ServerURL         string
	LogLevel          string
	LogFile           string // Empty logs to stdout only
	Environment       string
}

// Load reads a .env file if present, then the environment.
// A missing .env file is not an error.
func Load(files ...string) *Config {
	// Ignore the error: plain environment variables are enough.
	_ = godotenv.Load(files...)

	return &Config{
		HTTPPort:          getEnvInt("TRYON_HTTP_PORT", DefaultHTTPPort),
		CameraDevice:      getEnvInt("TRYON_CAMERA_DEVICE", DefaultCameraDevice),
		MeshModelPath:     getEnv("TRYON_MESH_MODEL", DefaultMeshModel),
		DetectorModelPath: getEnv("TRYON_DETECTOR_MODEL", DefaultDetector),
		CatalogPath:       getEnv("TRYON_CATALOG", ""),
		RecordDB:          getEnv("TRYON_RECORD_DB", ""),
		ServerURL:         getEnv("TRYON_SERVER_URL", DefaultServerURL),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("TRYON_LOG_FILE", ""),
		Environment:       getEnv("GO_ENV", "development"),
	}
}

// IsProduction reports whether GO_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
	}
	return defaultVal
}
