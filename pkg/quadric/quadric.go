// Package quadric implements clipped implicit quadric surfaces: a symmetric
// 4x4 surface matrix plus up to two clipping quadrics, placed in the world by
// conjugating every matrix with the inverse of the placement transform.
//
// A point p (homogeneous, w=1) lies on the surface when pᵀ·A·p = 0 and is
// visible when pᵀ·C·p ≤ 0 for every active clipper C. A zero clipper is
// disabled.
package quadric

import (
	"errors"
	"fmt"
	"math"

	"github.com/taigrr/quadrics/pkg/math3d"
)

var (
	// ErrUninitialized is returned when a Quadric that was not created by New
	// is transformed.
	ErrUninitialized = errors.New("quadric: no preset initialized")
	// ErrFrozen is returned when a Quadric is modified after its scene has
	// been sealed.
	ErrFrozen = errors.New("quadric: primitive is frozen")
	// ErrUnknownShape is returned for shapes that have no preset.
	ErrUnknownShape = errors.New("quadric: unknown shape")
)

// Material holds the per-primitive shading inputs. They are opaque to this
// package and only carried through to the renderer.
type Material struct {
	Color       math3d.Vec3 // diffuse coefficients
	Specular    math3d.Vec3 // specular coefficients
	Reflectance math3d.Vec3 // mirror reflection weight per channel
	ProcMix     float64     // blend between flat color and procedural pattern
	Checker     float64     // checkerboard pattern weight
	Wooden      float64     // wood grain pattern weight
}

// DefaultMaterial returns a white, non-reflective material without patterns.
func DefaultMaterial() Material {
	return Material{
		Color:    math3d.Splat3(1),
		Specular: math3d.Splat3(1),
	}
}

// Quadric is one clipped implicit surface. Use New to create one; the zero
// value is uninitialized and rejects transforms.
type Quadric struct {
	shape        Shape
	surface      math3d.Mat4
	clipper      math3d.Mat4
	otherClipper math3d.Mat4
	material     Material

	// Accumulated local-to-world placements, used for bounds.
	surfacePlacement math3d.Mat4
	clipPlacement    math3d.Mat4

	frozen bool
}

// New returns a primitive initialized to the unit-frame matrices of shape.
func New(shape Shape) (*Quadric, error) {
	p, ok := presets[shape]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownShape, shape)
	}
	return &Quadric{
		shape:            shape,
		surface:          p.surface,
		clipper:          p.clipper,
		otherClipper:     p.otherClipper,
		material:         DefaultMaterial(),
		surfacePlacement: math3d.Identity(),
		clipPlacement:    math3d.Identity(),
	}, nil
}

// Shape returns the preset the primitive was built from.
func (q *Quadric) Shape() Shape { return q.shape }

// Surface returns the surface matrix.
func (q *Quadric) Surface() math3d.Mat4 { return q.surface }

// Clipper returns the first clipping matrix.
func (q *Quadric) Clipper() math3d.Mat4 { return q.clipper }

// OtherClipper returns the second clipping matrix; zero means disabled.
func (q *Quadric) OtherClipper() math3d.Mat4 { return q.otherClipper }

// Material returns the shading inputs.
func (q *Quadric) Material() Material { return q.material }

// Frozen reports whether the primitive rejects further changes.
func (q *Quadric) Frozen() bool { return q.frozen }

// Freeze makes the primitive immutable. Scenes freeze their primitives when
// sealed.
func (q *Quadric) Freeze() { q.frozen = true }

// SurfacePlacement returns the accumulated transform applied to the surface.
func (q *Quadric) SurfacePlacement() math3d.Mat4 { return q.surfacePlacement }

// ClipPlacement returns the accumulated transform applied to the clippers.
func (q *Quadric) ClipPlacement() math3d.Mat4 { return q.clipPlacement }

// SetMaterial replaces the shading inputs.
func (q *Quadric) SetMaterial(m Material) error {
	if err := q.mutable(); err != nil {
		return err
	}
	q.material = m
	return nil
}

// Transform places the surface and both clippers by T. Calls compose:
// Transform(T1) followed by Transform(T2) equals Transform(T2·T1).
func (q *Quadric) Transform(t math3d.Mat4) error {
	s, err := q.inverse(t)
	if err != nil {
		return err
	}
	q.surface = conjugate(q.surface, s)
	q.clipper = conjugate(q.clipper, s)
	q.otherClipper = conjugate(q.otherClipper, s)
	q.surfacePlacement = t.Mul(q.surfacePlacement)
	q.clipPlacement = t.Mul(q.clipPlacement)
	return nil
}

// TransformSurface places only the surface, leaving the clip region where it
// is.
func (q *Quadric) TransformSurface(t math3d.Mat4) error {
	s, err := q.inverse(t)
	if err != nil {
		return err
	}
	q.surface = conjugate(q.surface, s)
	q.surfacePlacement = t.Mul(q.surfacePlacement)
	return nil
}

// TransformClipping places only the clippers, leaving the surface where it
// is. Both clippers receive the full conjugation.
func (q *Quadric) TransformClipping(t math3d.Mat4) error {
	s, err := q.inverse(t)
	if err != nil {
		return err
	}
	q.clipper = conjugate(q.clipper, s)
	q.otherClipper = conjugate(q.otherClipper, s)
	q.clipPlacement = t.Mul(q.clipPlacement)
	return nil
}

func (q *Quadric) mutable() error {
	if !q.shape.Valid() {
		return ErrUninitialized
	}
	if q.frozen {
		return ErrFrozen
	}
	return nil
}

// inverse validates the primitive state and returns T⁻¹. T itself is a value
// and is never modified.
func (q *Quadric) inverse(t math3d.Mat4) (math3d.Mat4, error) {
	if err := q.mutable(); err != nil {
		return math3d.Mat4{}, err
	}
	s, err := t.Clone().Inverse()
	if err != nil {
		return math3d.Mat4{}, fmt.Errorf("invert placement: %w", err)
	}
	return s, nil
}

// conjugate returns Sᵀ·A·S. For world points p' = T·p we need
// p'ᵀ·A'·p' = pᵀ·A·p, and substituting p = S·p' with S = T⁻¹ gives A' = Sᵀ·A·S.
// The result is re-symmetrized to drop rounding asymmetry.
func conjugate(a, s math3d.Mat4) math3d.Mat4 {
	return symmetrize(conjugateRaw(a, s))
}

// conjugateRaw is Sᵀ·A·S as computed, before symmetrizing.
func conjugateRaw(a, s math3d.Mat4) math3d.Mat4 {
	return a.Premul(s.Transpose()).Mul(s)
}

func symmetrize(a math3d.Mat4) math3d.Mat4 {
	for row := range 4 {
		for col := row + 1; col < 4; col++ {
			v := (a.Get(row, col) + a.Get(col, row)) / 2
			a.Set(row, col, v)
			a.Set(col, row, v)
		}
	}
	return a
}

// Evaluate returns pᵀ·A·p for the surface matrix.
func (q *Quadric) Evaluate(p math3d.Vec3) float64 {
	return q.surface.QuadricForm(math3d.Point(p))
}

// OnSurface reports whether p satisfies the surface equation within tol.
func (q *Quadric) OnSurface(p math3d.Vec3, tol float64) bool {
	return math.Abs(q.Evaluate(p)) <= tol
}

// Visible reports whether p passes every active clipper.
func (q *Quadric) Visible(p math3d.Vec3) bool {
	h := math3d.Point(p)
	if q.clipper.QuadricForm(h) > 0 {
		return false
	}
	if !q.otherClipper.IsZero() && q.otherClipper.QuadricForm(h) > 0 {
		return false
	}
	return true
}

// Normal returns the unnormalized gradient direction of the surface at p,
// which is the xyz part of A·p for symmetric A.
func (q *Quadric) Normal(p math3d.Vec3) math3d.Vec3 {
	return q.surface.MulVec4(math3d.Point(p)).Vec3()
}

// Bounds returns the world-space box around the visible part. It reports
// false when the surface and the clippers were placed independently, since
// the unit-frame bounds no longer describe their intersection.
func (q *Quadric) Bounds() (math3d.AABB, bool) {
	p, ok := presets[q.shape]
	if !ok || q.surfacePlacement != q.clipPlacement {
		return math3d.AABB{}, false
	}
	return p.bounds.Transform(q.surfacePlacement), true
}
