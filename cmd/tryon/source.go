package main

import (
	"sync"

	"github.com/teslashibe/go-tryon/pkg/camera"
	"github.com/teslashibe/go-tryon/pkg/landmark"
	"github.com/teslashibe/go-tryon/pkg/landmark/mesh"
)

// source is a frame source whose capture device can be swapped while the
// tracker is reading from it.
type source struct {
	mu  sync.RWMutex
	cap *mesh.Capture
}

func captureConfig(cfg camera.Config) mesh.CaptureConfig {
	return mesh.CaptureConfig{
		Device:    cfg.Device,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Framerate: cfg.Framerate,
		Quality:   cfg.Quality,
	}
}

func openSource(cfg camera.Config) (*source, error) {
	c, err := mesh.OpenCapture(captureConfig(cfg))
	if err != nil {
		return nil, err
	}
	return &source{cap: c}, nil
}

// CaptureFrame implements tracking.FrameSource.
func (s *source) CaptureFrame() (landmark.Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cap == nil {
		return landmark.Frame{}, landmark.ErrNoFrame
	}
	return s.cap.CaptureFrame()
}

// Reopen switches to a capture opened with cfg. The old device is closed
// only after the new one opens.
func (s *source) Reopen(cfg camera.Config) error {
	c, err := mesh.OpenCapture(captureConfig(cfg))
	if err != nil {
		return err
	}
	s.mu.Lock()
	old := s.cap
	s.cap = c
	s.mu.Unlock()
	if old != nil {
		return old.Close()
	}
	return nil
}

func (s *source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cap == nil {
		return nil
	}
	err := s.cap.Close()
	s.cap = nil
	return err
}
