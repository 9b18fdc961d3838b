package placement

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/teslashibe/go-tryon/pkg/accessory"
	"gonum.org/v1/gonum/mat"
)

// Clip planes of the render camera.
const (
	Near = 0.1
	Far  = 1000.0
)

// ErrDegenerateCamera is returned when the camera matrix cannot be inverted
// or the view ray never reaches the z = 0 plane.
var ErrDegenerateCamera = errors.New("placement: degenerate camera")

// Projection returns the OpenGL-style perspective matrix for cam.
func Projection(cam Camera) *mat.Dense {
	f := 1 / math.Tan(cam.FOV/2)
	return mat.NewDense(4, 4, []float64{
		f / cam.Aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (Far + Near) / (Near - Far), 2 * Far * Near / (Near - Far),
		0, 0, -1, 0,
	})
}

// View returns the world-to-camera matrix for a camera at (0, 0, Distance)
// looking down -Z.
func View(cam Camera) *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, -cam.Distance,
		0, 0, 0, 1,
	})
}

// Unprojector maps normalized device coordinates back into the scene.
type Unprojector struct {
	inv mat.Dense
}

// NewUnprojector inverts projection × view for cam.
func NewUnprojector(cam Camera) (*Unprojector, error) {
	var pv mat.Dense
	pv.Mul(Projection(cam), View(cam))

	u := &Unprojector{}
	if err := u.inv.Inverse(&pv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateCamera, err)
	}
	return u, nil
}

// Unproject returns the scene point for NDC (x, y, z).
func (u *Unprojector) Unproject(x, y, z float64) r3.Vector {
	var out mat.VecDense
	out.MulVec(&u.inv, mat.NewVecDense(4, []float64{x, y, z, 1}))
	w := out.AtVec(3)
	return r3.Vector{X: out.AtVec(0) / w, Y: out.AtVec(1) / w, Z: out.AtVec(2) / w}
}

// OnPlane casts the view ray through NDC (x, y) and intersects it with the
// z = 0 plane.
func (u *Unprojector) OnPlane(x, y float64) (r3.Vector, error) {
	near := u.Unproject(x, y, -1)
	far := u.Unproject(x, y, 1)
	dir := far.Sub(near)
	if dir.Z == 0 {
		return r3.Vector{}, ErrDegenerateCamera
	}
	t := -near.Z / dir.Z
	return near.Add(dir.Mul(t)), nil
}

// MapExact converts an anchor into a placement by unprojecting through the
// inverse camera matrix. X and Y agree with Map; depth and scale use the
// same rules.
func MapExact(a accessory.Anchor, cam Camera, meta accessory.Meta) (Placement, error) {
	u, err := NewUnprojector(cam)
	if err != nil {
		return Placement{}, err
	}
	return u.Map(a, cam, meta)
}

// Map is MapExact with a precomputed inverse. cam must be the camera u was
// built from.
func (u *Unprojector) Map(a accessory.Anchor, cam Camera, meta accessory.Meta) (Placement, error) {
	// Mirrored video: image x grows to the left of the scene.
	ndcX := -(a.Point.X - 0.5) * 2
	ndcY := -(a.Point.Y - 0.5) * 2

	p, err := u.OnPlane(ndcX, ndcY)
	if err != nil {
		return Placement{}, err
	}

	return Placement{
		Position: r3.Vector{X: p.X, Y: p.Y + meta.VerticalOffset, Z: depth(a, meta)},
		Scale:    scale(a, cam, meta),
	}, nil
}
