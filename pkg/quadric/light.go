package quadric

import (
	"math"

	"github.com/taigrr/quadrics/pkg/math3d"
)

// Light is a point or directional light. Position is homogeneous: W=0 is a
// direction toward a light at infinity, W=1 a point light.
type Light struct {
	Position     math3d.Vec4
	PowerDensity math3d.Vec3
}

// NewDirectionalLight returns a light at infinity in direction dir.
func NewDirectionalLight(dir, power math3d.Vec3) Light {
	return Light{Position: math3d.Direction(dir), PowerDensity: power}
}

// NewPointLight returns a light at pos.
func NewPointLight(pos, power math3d.Vec3) Light {
	return Light{Position: math3d.Point(pos), PowerDensity: power}
}

// Directional reports whether the light is at infinity.
func (l Light) Directional() bool {
	return l.Position.W == 0
}

// Incoming returns the unit direction from p toward the light, the distance
// to it (+Inf for directional lights) and the power density arriving at p.
func (l Light) Incoming(p math3d.Vec3) (dir math3d.Vec3, dist float64, power math3d.Vec3) {
	if l.Directional() {
		return l.Position.Vec3().Normalize(), math.Inf(1), l.PowerDensity
	}
	d := l.Position.PerspectiveDivide().Sub(p)
	dist = d.Len()
	if dist == 0 {
		return math3d.Vec3{}, 0, math3d.Vec3{}
	}
	// Point lights fall off with the inverse square of the distance.
	return d.Scale(1 / dist), dist, l.PowerDensity.Scale(1 / (dist * dist))
}
