// Package mesh provides a face-mesh landmark provider and a webcam frame
// source built on OpenCV.
package mesh

import (
	"fmt"
	"image"
	"os"
	"sort"
	"sync"

	"github.com/teslashibe/go-tryon/internal/log"
	"github.com/teslashibe/go-tryon/pkg/landmark"
	"gocv.io/x/gocv"
)

// Provider finds the face region with OpenCV's FaceDetectorYN and runs a
// face-mesh ONNX model on it to produce 468 normalized landmarks.
type Provider struct {
	detector gocv.FaceDetectorYN
	net      gocv.Net
	config   landmark.Config
	mu       sync.Mutex // Protects inference
}

// region is a detected face box in pixels.
type region struct {
	rect  image.Rectangle
	score float64
}

// New loads both models. Missing or unreadable models are reported as
// landmark.ErrProviderUnavailable.
func New(cfg landmark.Config) (*Provider, error) {
	for _, path := range []string{cfg.DetectorModelPath, cfg.MeshModelPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: model file not found: %s", landmark.ErrProviderUnavailable, path)
		}
	}

	net := gocv.ReadNetFromONNX(cfg.MeshModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: cannot load face mesh model %s", landmark.ErrProviderUnavailable, cfg.MeshModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.DetectorModelPath,
		"",
		image.Pt(320, 320), // Updated per frame
		float32(cfg.ConfidenceThresh),
		0.3,  // NMS threshold
		5000, // Top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	log.Info("face mesh provider ready",
		"mesh_model", cfg.MeshModelPath,
		"detector_model", cfg.DetectorModelPath,
		"input", cfg.MeshInputSize)

	return &Provider{
		detector: detector,
		net:      net,
		config:   cfg,
	}, nil
}

// Detect implements landmark.Provider.
func (p *Provider) Detect(frame landmark.Frame) (landmark.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	img, err := gocv.IMDecode(frame.JPEG, gocv.IMReadColor)
	if err != nil {
		return landmark.Result{}, fmt.Errorf("decode frame: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return landmark.Result{}, fmt.Errorf("decode frame: empty image")
	}

	regions := p.findFaces(img)
	if len(regions) == 0 {
		return landmark.Result{}, nil
	}

	limit := p.config.NumFaces
	if limit <= 0 {
		limit = 1
	}

	var result landmark.Result
	for _, r := range rankRegions(regions) {
		if len(result.Faces) >= limit {
			break
		}
		set, err := p.runMesh(img, r.rect)
		if err != nil {
			return landmark.Result{}, err
		}
		result.Faces = append(result.Faces, set)
	}

	log.Debug("face mesh", "faces", len(result.Faces), "ts", frame.Timestamp)
	return result, nil
}

// findFaces runs YuNet and returns face boxes grown by the region margin.
func (p *Provider) findFaces(img gocv.Mat) []region {
	bounds := image.Rect(0, 0, img.Cols(), img.Rows())
	p.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	p.detector.Detect(img, &faces)

	var out []region
	for r := 0; r < faces.Rows(); r++ {
		// YuNet rows: x, y, w, h, 5 landmark pairs, score (15 columns)
		x := float64(faces.GetFloatAt(r, 0))
		y := float64(faces.GetFloatAt(r, 1))
		w := float64(faces.GetFloatAt(r, 2))
		h := float64(faces.GetFloatAt(r, 3))
		score := float64(faces.GetFloatAt(r, 14))

		rect := squareRegion(x, y, w, h, p.config.RegionMargin).Intersect(bounds)
		if rect.Empty() {
			continue
		}
		out = append(out, region{rect: rect, score: score})
	}
	return out
}

// runMesh crops the face region and maps the mesh output back to
// normalized full-frame coordinates.
func (p *Provider) runMesh(img gocv.Mat, rect image.Rectangle) (landmark.Set, error) {
	size := p.config.MeshInputSize

	crop := img.Region(rect)
	defer crop.Close()

	blob := gocv.BlobFromImage(crop, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	p.net.SetInput(blob, "")
	out := p.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read mesh output: %w", err)
	}
	if len(data) < landmark.NumPoints*3 {
		return nil, fmt.Errorf("mesh output has %d values, want %d", len(data), landmark.NumPoints*3)
	}

	return toNormalized(data, rect, img.Cols(), img.Rows(), size), nil
}

// Close releases the models.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detector.Close()
	return p.net.Close()
}

// toNormalized converts mesh output (x, y, z triples in model input pixels)
// into frame-normalized landmarks. Depth is scaled like x.
func toNormalized(data []float32, rect image.Rectangle, imgW, imgH, size int) landmark.Set {
	sx := float64(rect.Dx()) / float64(size)
	sy := float64(rect.Dy()) / float64(size)
	w := float64(imgW)
	h := float64(imgH)

	set := make(landmark.Set, landmark.NumPoints)
	for i := range set {
		lx := float64(data[i*3])
		ly := float64(data[i*3+1])
		lz := float64(data[i*3+2])
		set[i] = landmark.Point{
			X: (float64(rect.Min.X) + lx*sx) / w,
			Y: (float64(rect.Min.Y) + ly*sy) / h,
			Z: lz * sx / w,
		}
	}
	return set
}

// squareRegion grows a face box into a centered square with margin.
func squareRegion(x, y, w, h, margin float64) image.Rectangle {
	side := w
	if h > side {
		side = h
	}
	side *= 1 + 2*margin
	cx := x + w/2
	cy := y + h/2
	return image.Rect(
		int(cx-side/2), int(cy-side/2),
		int(cx+side/2), int(cy+side/2),
	)
}

// rankRegions orders faces best first.
// Priority: confidence * 0.7 + relative area * 0.3
func rankRegions(regions []region) []region {
	maxArea := 0.0
	for _, r := range regions {
		if a := area(r.rect); a > maxArea {
			maxArea = a
		}
	}

	ranked := make([]region, len(regions))
	copy(ranked, regions)
	score := func(r region) float64 {
		if maxArea == 0 {
			return r.score
		}
		return r.score*0.7 + area(r.rect)/maxArea*0.3
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})
	return ranked
}

func area(r image.Rectangle) float64 {
	return float64(r.Dx() * r.Dy())
}
