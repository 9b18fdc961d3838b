package landmark

import (
	"errors"
	"time"
)

// Sentinel errors for provider conditions.
var (
	// ErrProviderUnavailable is returned when the inference backend or its
	// models cannot be loaded. It is fatal for a tracking session.
	ErrProviderUnavailable = errors.New("landmark: provider unavailable")

	// ErrDuplicateFrame is returned when a frame with an already processed
	// timestamp is submitted. The accompanying result is the previous one.
	ErrDuplicateFrame = errors.New("landmark: duplicate frame")

	// ErrNoFrame is returned by frame sources that have nothing to deliver.
	ErrNoFrame = errors.New("landmark: no frame available")
)

// Frame is one video frame submitted for inference.
type Frame struct {
	Timestamp time.Duration // Position in the video stream, monotonically increasing
	JPEG      []byte
}

// Result holds the faces found in a frame. At most one face is tracked;
// an empty result means no face.
type Result struct {
	Faces []Set
}

// HasFace reports whether the result carries a non-empty landmark set.
func (r Result) HasFace() bool {
	return len(r.Faces) > 0 && len(r.Faces[0]) > 0
}

// Primary returns the first landmark set, or nil when there is no face.
func (r Result) Primary() Set {
	if !r.HasFace() {
		return nil
	}
	return r.Faces[0]
}

// Provider is the interface for landmark inference backends.
type Provider interface {
	// Detect runs inference on a frame
	Detect(frame Frame) (Result, error)

	// Close releases resources
	Close() error
}

// Config holds provider configuration
type Config struct {
	MeshModelPath     string  // Face-mesh ONNX model (192x192 input, 468x3 output)
	DetectorModelPath string  // YuNet ONNX model used to find the face region
	ConfidenceThresh  float64 // Minimum face detection confidence (default 0.5)
	MeshInputSize     int     // Face-mesh model input edge in pixels
	RegionMargin      float64 // Padding around the detected face box, as a fraction of its size
	NumFaces          int     // Faces to return; the pipeline tracks one
}

// DefaultConfig returns production defaults for the face-mesh provider
func DefaultConfig() Config {
	return Config{
		MeshModelPath:     "models/face_mesh.onnx",
		DetectorModelPath: "models/face_detection_yunet.onnx",
		ConfidenceThresh:  0.5,
		MeshInputSize:     192,
		RegionMargin:      0.25,
		NumFaces:          1,
	}
}
