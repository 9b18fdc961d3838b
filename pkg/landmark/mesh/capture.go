package mesh

import (
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/go-tryon/internal/log"
	"github.com/teslashibe/go-tryon/pkg/landmark"
	"gocv.io/x/gocv"
)

// CaptureConfig describes the capture device.
type CaptureConfig struct {
	Device    int
	Width     int
	Height    int
	Framerate int
	Quality   int // JPEG quality 1-100
}

// Capture reads frames from a local camera and hands them out as JPEG.
type Capture struct {
	cfg   CaptureConfig
	vc    *gocv.VideoCapture
	frame gocv.Mat
	start time.Time
	last  time.Duration
	mu    sync.Mutex
}

// OpenCapture opens the camera device and requests the configured mode.
func OpenCapture(cfg CaptureConfig) (*Capture, error) {
	vc, err := gocv.VideoCaptureDevice(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.Device, err)
	}

	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.Framerate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	log.Info("camera opened",
		"device", cfg.Device,
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight))

	return &Capture{
		cfg:   cfg,
		vc:    vc,
		frame: gocv.NewMat(),
		start: time.Now(),
	}, nil
}

// CaptureFrame reads the next frame.
// The timestamp comes from the device clock when it reports one, otherwise
// from the time since the capture was opened.
func (c *Capture) CaptureFrame() (landmark.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ok := c.vc.Read(&c.frame); !ok || c.frame.Empty() {
		return landmark.Frame{}, landmark.ErrNoFrame
	}

	ts := time.Duration(c.vc.Get(gocv.VideoCapturePosMsec) * float64(time.Millisecond))
	if ts <= 0 {
		ts = time.Since(c.start)
	}
	// Some drivers repeat the position for distinct frames; keep timestamps
	// moving so real frames are never mistaken for duplicates.
	if ts <= c.last && c.vc.Get(gocv.VideoCapturePosMsec) <= 0 {
		ts = c.last + time.Microsecond
	}
	c.last = ts

	quality := c.cfg.Quality
	if quality <= 0 {
		quality = 85
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.frame, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return landmark.Frame{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	jpeg := make([]byte, len(data))
	copy(jpeg, data)

	return landmark.Frame{Timestamp: ts, JPEG: jpeg}, nil
}

// Close releases the camera.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame.Close()
	return c.vc.Close()
}
