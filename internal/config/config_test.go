package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"TRYON_HTTP_PORT", "TRYON_CAMERA_DEVICE", "TRYON_MESH_MODEL",
		"TRYON_DETECTOR_MODEL", "TRYON_CATALOG", "TRYON_RECORD_DB",
		"TRYON_SERVER_URL", "TRYON_LOG_FILE", "LOG_LEVEL", "GO_ENV",
	} {
		t.Setenv(k, "")
	}

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	if cfg.HTTPPort != DefaultHTTPPort {
		t.Errorf("HTTPPort = %d, want %d", cfg.HTTPPort, DefaultHTTPPort)
	}
	if cfg.MeshModelPath != DefaultMeshModel {
		t.Errorf("MeshModelPath = %q, want %q", cfg.MeshModelPath, DefaultMeshModel)
	}
	if cfg.CatalogPath != "" || cfg.RecordDB != "" {
		t.Errorf("optional paths should be empty, got catalog=%q record=%q", cfg.CatalogPath, cfg.RecordDB)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.LogFile != "" {
		t.Errorf("LogFile = %q, want empty", cfg.LogFile)
	}
	if cfg.IsProduction() {
		t.Error("IsProduction should be false by default")
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("TRYON_HTTP_PORT", "9000")
	t.Setenv("TRYON_CAMERA_DEVICE", "2")
	t.Setenv("TRYON_RECORD_DB", "sessions.db")
	t.Setenv("GO_ENV", "production")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	if cfg.HTTPPort != 9000 {
		t.Errorf("HTTPPort = %d, want 9000", cfg.HTTPPort)
	}
	if cfg.CameraDevice != 2 {
		t.Errorf("CameraDevice = %d, want 2", cfg.CameraDevice)
	}
	if cfg.RecordDB != "sessions.db" {
		t.Errorf("RecordDB = %q, want sessions.db", cfg.RecordDB)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction should be true")
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	// godotenv never overrides a variable that is already set, even empty.
	t.Setenv("TRYON_CATALOG", "")
	os.Unsetenv("TRYON_CATALOG")
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TRYON_CATALOG=products.json\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.CatalogPath != "products.json" {
		t.Errorf("CatalogPath = %q, want products.json", cfg.CatalogPath)
	}
}

func TestGetEnvInt_Invalid(t *testing.T) {
	t.Setenv("TRYON_TEST_INT", "not-a-number")
	if got := getEnvInt("TRYON_TEST_INT", 7); got != 7 {
		t.Errorf("getEnvInt = %d, want fallback 7", got)
	}
}
