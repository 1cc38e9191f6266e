package math3d

import "math"

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// NewAABB creates an AABB from min and max points.
func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// Center returns the center of the AABB.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the dimensions of the AABB.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Transform returns the AABB bounding all 8 corners of b after m.
func (b AABB) Transform(m Mat4) AABB {
	out := AABB{Min: Splat3(math.Inf(1)), Max: Splat3(math.Inf(-1))}
	for i := range 8 {
		corner := b.Min
		if i&1 != 0 {
			corner.X = b.Max.X
		}
		if i&2 != 0 {
			corner.Y = b.Max.Y
		}
		if i&4 != 0 {
			corner.Z = b.Max.Z
		}
		p := m.MulVec3(corner)
		out.Min = out.Min.Min(p)
		out.Max = out.Max.Max(p)
	}
	return out
}

// ContainsPoint returns true if the point is inside the AABB.
func (b AABB) ContainsPoint(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// IntersectRay runs the slab test for the ray origin + t*dir and reports
// whether it enters the box at some t in [0, tMax].
func (b AABB) IntersectRay(origin, dir Vec3, tMax float64) bool {
	tNear, tFar := 0.0, tMax
	o := origin.Array()
	d := dir.Array()
	lo := b.Min.Array()
	hi := b.Max.Array()
	for axis := range 3 {
		if d[axis] == 0 {
			if o[axis] < lo[axis] || o[axis] > hi[axis] {
				return false
			}
			continue
		}
		inv := 1 / d[axis]
		t0 := (lo[axis] - o[axis]) * inv
		t1 := (hi[axis] - o[axis]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tNear = math.Max(tNear, t0)
		tFar = math.Min(tFar, t1)
		if tNear > tFar {
			return false
		}
	}
	return true
}
