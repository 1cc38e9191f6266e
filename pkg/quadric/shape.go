package quadric

import (
	"fmt"
	"math"

	"github.com/taigrr/quadrics/pkg/math3d"
)

// Shape selects one of the canonical unit-frame quadrics a primitive can be
// built from. The zero Shape is not a valid preset.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeSphere
	ShapeCylinder
	ShapeCone
	ShapeParaboloid
	ShapePlane
	ShapeBishopHead // sphere cut by a slanted clipper
)

var shapeNames = map[Shape]string{
	ShapeSphere:     "sphere",
	ShapeCylinder:   "cylinder",
	ShapeCone:       "cone",
	ShapeParaboloid: "paraboloid",
	ShapePlane:      "plane",
	ShapeBishopHead: "bishop-head",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Valid reports whether s names a preset.
func (s Shape) Valid() bool {
	_, ok := presets[s]
	return ok
}

// ParseShape returns the Shape with the given name.
func ParseShape(name string) (Shape, error) {
	for s, n := range shapeNames {
		if n == name {
			return s, nil
		}
	}
	return ShapeNone, fmt.Errorf("%w: %q", ErrUnknownShape, name)
}

// preset holds the unit-frame matrices of a shape. Every matrix is symmetric;
// linear terms are split evenly between [i][3] and [3][i].
type preset struct {
	surface      math3d.Mat4
	clipper      math3d.Mat4
	otherClipper math3d.Mat4
	bounds       math3d.AABB // of the visible part, in the unit frame
}

var coneRadius = math.Sqrt(0.2 * 16) // x²+z² = 0.2y² at y = -4

var presets = map[Shape]preset{
	// x² + y² + z² = 1, clipped by the permissive radius-√2 sphere.
	ShapeSphere: {
		surface: math3d.Diag(1, 1, 1, -1),
		clipper: math3d.Diag(1, 1, 1, -2),
		bounds:  math3d.NewAABB(math3d.Splat3(-1), math3d.Splat3(1)),
	},
	// x² + z² = 1 for -1 ≤ y ≤ 1.
	ShapeCylinder: {
		surface: math3d.Diag(1, 0, 1, -1),
		clipper: math3d.Diag(0, 1, 0, -1),
		bounds:  math3d.NewAABB(math3d.Splat3(-1), math3d.Splat3(1)),
	},
	// x² - 0.2y² + z² = 0 for y² + 4y ≤ 0, i.e. -4 ≤ y ≤ 0.
	ShapeCone: {
		surface: math3d.Diag(1, -0.2, 1, 0),
		clipper: math3d.Mat4FromRows(
			0, 0, 0, 0,
			0, 1, 0, 2,
			0, 0, 0, 0,
			0, 2, 0, 0,
		),
		bounds: math3d.NewAABB(
			math3d.V3(-coneRadius, -4, -coneRadius),
			math3d.V3(coneRadius, 0, coneRadius),
		),
	},
	// x² - 2y + z² = 0 for y² - y ≤ 0, i.e. 0 ≤ y ≤ 1.
	ShapeParaboloid: {
		surface: math3d.Mat4FromRows(
			1, 0, 0, 0,
			0, 0, 0, -1,
			0, 0, 1, 0,
			0, -1, 0, 0,
		),
		clipper: math3d.Mat4FromRows(
			0, 0, 0, 0,
			0, 1, 0, -0.5,
			0, 0, 0, 0,
			0, -0.5, 0, 0,
		),
		bounds: math3d.NewAABB(
			math3d.V3(-math.Sqrt2, 0, -math.Sqrt2),
			math3d.V3(math.Sqrt2, 1, math.Sqrt2),
		),
	},
	// y = 0 for x² ≤ 900 and z² ≤ 900: a 60x60 tile.
	ShapePlane: {
		surface: math3d.Mat4FromRows(
			0, 0, 0, 0,
			0, 0, 0, 0.5,
			0, 0, 0, 0,
			0, 0.5, 0, 0,
		),
		clipper:      math3d.Diag(1, 0, 0, -900),
		otherClipper: math3d.Diag(0, 0, 1, -900),
		bounds:       math3d.NewAABB(math3d.V3(-30, 0, -30), math3d.V3(30, 0, 30)),
	},
	// Unit sphere keeping xy - 4y² + y ≤ 0, a cut that is not axis aligned.
	ShapeBishopHead: {
		surface: math3d.Diag(1, 1, 1, -1),
		clipper: math3d.Mat4FromRows(
			0, 0.5, 0, 0,
			0.5, -4, 0, 0.5,
			0, 0, 0, 0,
			0, 0.5, 0, 0,
		),
		bounds: math3d.NewAABB(math3d.Splat3(-1), math3d.Splat3(1)),
	},
}
