package scene

import (
	"fmt"

	"github.com/taigrr/quadrics/pkg/math3d"
	"github.com/taigrr/quadrics/pkg/quadric"
)

// piece is one primitive of the chess scene: a unit shape scaled, then moved.
type piece struct {
	name     string
	shape    quadric.Shape
	scale    math3d.Vec3
	at       math3d.Vec3
	material quadric.Material
}

func ivory() quadric.Material {
	return quadric.DefaultMaterial()
}

func wood() quadric.Material {
	m := quadric.DefaultMaterial()
	m.Wooden = 1
	return m
}

func board() quadric.Material {
	m := quadric.DefaultMaterial()
	m.Color = math3d.V3(1, 0, 0.5)
	m.Checker = 1
	return m
}

var chessPieces = []piece{
	{"board", quadric.ShapePlane, math3d.Splat3(1), math3d.V3(0, -5, 0), board()},
	{"pawn head", quadric.ShapeSphere, math3d.Splat3(1.3), math3d.V3(-11, 0, -3), wood()},
	{"pawn body", quadric.ShapeCone, math3d.Splat3(2), math3d.V3(-11, 0, -3), wood()},
	{"king crown", quadric.ShapeParaboloid, math3d.V3(1.9, 1.9, 1.4), math3d.V3(3.5, 1.8, -3), ivory()},
	{"king head", quadric.ShapeSphere, math3d.Splat3(1.4), math3d.V3(3.5, 1.5, -3), ivory()},
	{"king body", quadric.ShapeCylinder, math3d.V3(1.5, 2.8, 1.4), math3d.V3(3.5, -2.2, -3), ivory()},
	{"bishop head", quadric.ShapeBishopHead, math3d.Splat3(1.3), math3d.V3(11, 0.6, -3), ivory()},
	{"bishop body", quadric.ShapeCone, math3d.Splat3(1), math3d.V3(11, 0, -3), ivory()},
	{"rook head", quadric.ShapeBishopHead, math3d.Splat3(1), math3d.V3(-4, 0.5, -3), ivory()},
	{"rook body", quadric.ShapeCylinder, math3d.V3(1.5, 1.7, 1.4), math3d.V3(-4, -2.5, -3), ivory()},
}

// BuildChess populates s with a few chess pieces standing on a checkerboard,
// lit by a sun and a yellow point light.
func BuildChess(s *Scene) error {
	if err := s.AddLight(quadric.NewDirectionalLight(math3d.V3(1.2, 3, 2), math3d.Splat3(9))); err != nil {
		return fmt.Errorf("add sun: %w", err)
	}
	if err := s.AddLight(quadric.NewPointLight(math3d.V3(0, 1, 1), math3d.V3(3, 3, 0))); err != nil {
		return fmt.Errorf("add point light: %w", err)
	}

	for _, p := range chessPieces {
		// Scale in the unit frame first, then move into place.
		_, err := s.Place(p.shape, p.material, math3d.Scale(p.scale), math3d.Translate(p.at))
		if err != nil {
			return fmt.Errorf("build %s: %w", p.name, err)
		}
		s.logger.Debug("placed piece", "name", p.name, "shape", p.shape, "at", p.at)
	}
	return nil
}
