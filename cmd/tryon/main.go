// tryon tracks a face from a local camera and streams accessory placements
// to browser renderers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/teslashibe/go-tryon/internal/config"
	"github.com/teslashibe/go-tryon/internal/log"
	"github.com/teslashibe/go-tryon/pkg/accessory"
	"github.com/teslashibe/go-tryon/pkg/camera"
	"github.com/teslashibe/go-tryon/pkg/landmark"
	"github.com/teslashibe/go-tryon/pkg/landmark/mesh"
	"github.com/teslashibe/go-tryon/pkg/recorder"
	"github.com/teslashibe/go-tryon/pkg/tracking"
	"github.com/teslashibe/go-tryon/pkg/web"
)

type options struct {
	env       *config.Config
	product   string
	preset    string
	frameHz   float64
	window    int
	exact     bool
	noAutorun bool
}

func main() {
	opts := parseFlags()
	cfg := opts.env

	log.InitFile(cfg.LogLevel, cfg.LogFile)
	logger := log.Component("main")

	catalog := accessory.DefaultCatalog()
	if cfg.CatalogPath != "" {
		c, err := accessory.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			fatal("failed to load catalog", err)
		}
		catalog = c
	}

	lmCfg := landmark.DefaultConfig()
	lmCfg.MeshModelPath = cfg.MeshModelPath
	lmCfg.DetectorModelPath = cfg.DetectorModelPath
	provider, err := mesh.New(lmCfg)
	if errors.Is(err, landmark.ErrProviderUnavailable) {
		fatal("landmark provider unavailable, try-on disabled", err)
	}
	if err != nil {
		fatal("failed to create landmark provider", err)
	}
	defer provider.Close()

	cam := camera.NewManager()
	camCfg := cam.GetConfig()
	camCfg.Device = cfg.CameraDevice
	if err := cam.SetConfig(camCfg); err != nil {
		fatal("invalid camera config", err)
	}

	frames, err := openSource(cam.GetConfig())
	if err != nil {
		fatal("failed to open camera", err)
	}
	defer frames.Close()
	cam.OnConfigChange = frames.Reopen

	trackCfg, err := trackingConfig(opts)
	if err != nil {
		fatal("invalid tracking options", err)
	}
	tracker := tracking.New(trackCfg, frames, provider, cam)

	if opts.product != "" {
		p, err := catalog.Find(opts.product)
		if err != nil {
			fatal("unknown product", err)
		}
		tracker.SelectAccessory(p.Meta(), p.ID)
	}

	var sessions web.SessionStore
	if cfg.RecordDB != "" {
		db, err := recorder.Open(cfg.RecordDB)
		if err != nil {
			fatal("failed to open recording database", err)
		}
		defer db.Close()
		tracker.SetRecorder(db)
		sessions = db
		logger.Info("recording sessions", "path", cfg.RecordDB)
	}

	server := web.NewServer(strconv.Itoa(cfg.HTTPPort), tracker, catalog, cam, sessions)
	tracker.SetApplier(server)
	tracker.SetStateUpdater(server)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error("web server stopped", "error", err)
			cancel()
		}
	}()

	if !opts.noAutorun {
		tracker.Start(ctx)
	}
	logger.Info("try-on ready",
		"port", cfg.HTTPPort,
		"products", catalog.Len(),
		"mapping", trackCfg.Mapping,
		"window", trackCfg.Window,
	)

	<-ctx.Done()
	logger.Info("shutting down")
	tracker.Stop()
	if err := server.Shutdown(); err != nil {
		logger.Warn("web server shutdown", "error", err)
	}
}

// trackingConfig starts from the named preset and applies flag overrides.
func trackingConfig(opts options) (tracking.Config, error) {
	preset := tracking.GetPreset(opts.preset)
	if preset == nil {
		return tracking.Config{}, fmt.Errorf("unknown tracking preset %q, want one of %v", opts.preset, tracking.PresetNames())
	}
	cfg := *preset
	if opts.frameHz > 0 {
		cfg.FrameInterval = time.Duration(float64(time.Second) / opts.frameHz)
	}
	if opts.window > 0 {
		cfg.Window = opts.window
	}
	if opts.exact {
		cfg.Mapping = tracking.MappingExact
	}
	return cfg, nil
}

// parseFlags loads the environment and applies command line overrides.
func parseFlags() options {
	envFile := flag.String("env", ".env", "Environment file to load")
	port := flag.Int("port", 0, "HTTP port (overrides TRYON_HTTP_PORT)")
	device := flag.Int("device", -1, "Camera device index (overrides TRYON_CAMERA_DEVICE)")
	meshModel := flag.String("mesh-model", "", "Face-mesh ONNX model path")
	detectorModel := flag.String("detector-model", "", "Face detector ONNX model path")
	catalogPath := flag.String("catalog", "", "Product catalog JSON file")
	record := flag.String("record", "", "SQLite file for session recording")
	product := flag.String("product", "", "Product id to select at startup")
	frameHz := flag.Float64("fps", 0, "Frame processing rate in Hz")
	preset := flag.String("preset", tracking.PresetDefault, "Tracking preset: default, smooth, responsive")
	window := flag.Int("window", 0, "Smoothing window in samples (overrides the preset)")
	exact := flag.Bool("exact", false, "Use exact camera unprojection instead of the linear mapping")
	noAutorun := flag.Bool("no-autorun", false, "Wait for POST /api/tracking/start before tracking")
	logFile := flag.String("log-file", "", "Also write logs to this rotated file")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	cfg := config.Load(*envFile)
	if *port > 0 {
		cfg.HTTPPort = *port
	}
	if *device >= 0 {
		cfg.CameraDevice = *device
	}
	if *meshModel != "" {
		cfg.MeshModelPath = *meshModel
	}
	if *detectorModel != "" {
		cfg.DetectorModelPath = *detectorModel
	}
	if *catalogPath != "" {
		cfg.CatalogPath = *catalogPath
	}
	if *record != "" {
		cfg.RecordDB = *record
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	return options{
		env:       cfg,
		product:   *product,
		frameHz:   *frameHz,
		preset:    *preset,
		window:    *window,
		exact:     *exact,
		noAutorun: *noAutorun,
	}
}

func fatal(msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
