package math3d

import (
	"errors"
	"math"
)

// ErrSingularMatrix is returned when inverting a matrix whose determinant is
// numerically zero.
var ErrSingularMatrix = errors.New("math3d: singular matrix")

// SingularEpsilon is the smallest pivot magnitude Inverse accepts.
const SingularEpsilon = 1e-12

// Mat4 is a 4x4 matrix stored in column-major order, used with column vectors
// (p' = M * p).
//
// Memory layout (indices):
// | 0  4  8  12 |
// | 1  5  9  13 |
// | 2  6  10 14 |
// | 3  7  11 15 |
//
// Use Get/Set or Mat4FromRows when thinking in rows.
type Mat4 [16]float64

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mat4FromRows builds a matrix from 16 values given row by row, the way the
// matrix is written on paper.
func Mat4FromRows(
	r00, r01, r02, r03,
	r10, r11, r12, r13,
	r20, r21, r22, r23,
	r30, r31, r32, r33 float64,
) Mat4 {
	return Mat4{
		r00, r10, r20, r30,
		r01, r11, r21, r31,
		r02, r12, r22, r32,
		r03, r13, r23, r33,
	}
}

// Diag returns a diagonal matrix.
func Diag(a, b, c, d float64) Mat4 {
	return Mat4{
		a, 0, 0, 0,
		0, b, 0, 0,
		0, 0, c, 0,
		0, 0, 0, d,
	}
}

// Translate creates a translation matrix.
func Translate(v Vec3) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = v.X, v.Y, v.Z
	return m
}

// Scale creates a scaling matrix.
func Scale(v Vec3) Mat4 {
	return Diag(v.X, v.Y, v.Z, 1)
}

// ScaleUniform creates a uniform scaling matrix.
func ScaleUniform(s float64) Mat4 {
	return Diag(s, s, s, 1)
}

// RotateX creates a rotation matrix around the X axis.
func RotateX(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Mat4FromRows(
		1, 0, 0, 0,
		0, c, -s, 0,
		0, s, c, 0,
		0, 0, 0, 1,
	)
}

// RotateY creates a rotation matrix around the Y axis.
func RotateY(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Mat4FromRows(
		c, 0, s, 0,
		0, 1, 0, 0,
		-s, 0, c, 0,
		0, 0, 0, 1,
	)
}

// RotateZ creates a rotation matrix around the Z axis.
func RotateZ(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Mat4FromRows(
		c, -s, 0, 0,
		s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	)
}

// LookAt creates a view matrix looking from eye towards center.
func LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).Normalize() // Forward
	s := f.Cross(up).Normalize()     // Right
	u := s.Cross(f)                  // Up (recomputed)

	return Mat4FromRows(
		s.X, s.Y, s.Z, -s.Dot(eye),
		u.X, u.Y, u.Z, -u.Dot(eye),
		-f.X, -f.Y, -f.Z, f.Dot(eye),
		0, 0, 0, 1,
	)
}

// Perspective creates a perspective projection matrix.
// fovy is vertical field of view in radians, aspect is width/height.
func Perspective(fovy, aspect, near, far float64) Mat4 {
	f := 1.0 / math.Tan(fovy/2)
	nf := 1.0 / (near - far)

	return Mat4FromRows(
		f/aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far+near)*nf, 2*far*near*nf,
		0, 0, -1, 0,
	)
}

// Clone returns an independent copy of m. Mat4 is an array, so plain
// assignment copies too; Clone exists to make the intent explicit at call
// sites that go on to derive new matrices.
func (m Mat4) Clone() Mat4 {
	return m
}

// Mul multiplies two matrices: a * b.
//
//nolint:st1016 // a*b naming convention is clearer for matrix multiplication
func (a Mat4) Mul(b Mat4) Mat4 {
	var m Mat4
	for col := range 4 {
		for row := range 4 {
			var sum float64
			for k := range 4 {
				sum += a[row+k*4] * b[k+col*4]
			}
			m[row+col*4] = sum
		}
	}
	return m
}

// Premul left-multiplies: it returns b * a.
//
//nolint:st1016 // a*b naming convention is clearer for matrix multiplication
func (a Mat4) Premul(b Mat4) Mat4 {
	return b.Mul(a)
}

// MulVec3 transforms a Vec3 as a point (w=1).
func (m Mat4) MulVec3(v Vec3) Vec3 {
	return m.MulVec4(V4FromV3(v, 1)).PerspectiveDivide()
}

// MulVec3Dir transforms a Vec3 as a direction (w=0, no translation).
func (m Mat4) MulVec3Dir(v Vec3) Vec3 {
	return m.MulVec4(V4FromV3(v, 0)).Vec3()
}

// MulVec4 transforms a Vec4.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]*v.W,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]*v.W,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]*v.W,
		m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]*v.W,
	}
}

// QuadricForm evaluates pᵀ * m * p, the implicit equation of the quadric m
// at the homogeneous point p.
func (m Mat4) QuadricForm(p Vec4) float64 {
	return p.Dot(m.MulVec4(p))
}

// Transpose returns the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	var t Mat4
	for row := range 4 {
		for col := range 4 {
			t[col+row*4] = m[row+col*4]
		}
	}
	return t
}

// IsSymmetric reports whether m equals its transpose within tol.
func (m Mat4) IsSymmetric(tol float64) bool {
	for row := range 4 {
		for col := row + 1; col < 4; col++ {
			if math.Abs(m.Get(row, col)-m.Get(col, row)) > tol {
				return false
			}
		}
	}
	return true
}

// IsZero reports whether every element is exactly zero.
func (m Mat4) IsZero() bool {
	return m == Mat4{}
}

// ApproxEqual reports whether every element of a and b differs by at most tol.
func (a Mat4) ApproxEqual(b Mat4, tol float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

// Determinant returns the determinant of the matrix, expanded over the 2x2
// minors of the first two and last two columns.
func (m Mat4) Determinant() float64 {
	s0 := m[0]*m[5] - m[1]*m[4]
	s1 := m[0]*m[6] - m[2]*m[4]
	s2 := m[0]*m[7] - m[3]*m[4]
	s3 := m[1]*m[6] - m[2]*m[5]
	s4 := m[1]*m[7] - m[3]*m[5]
	s5 := m[2]*m[7] - m[3]*m[6]

	c5 := m[10]*m[15] - m[11]*m[14]
	c4 := m[9]*m[15] - m[11]*m[13]
	c3 := m[9]*m[14] - m[10]*m[13]
	c2 := m[8]*m[15] - m[11]*m[12]
	c1 := m[8]*m[14] - m[10]*m[12]
	c0 := m[8]*m[13] - m[9]*m[12]

	return s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
}

// Inverse returns the inverse of the matrix using Gauss-Jordan elimination
// with partial pivoting. It returns ErrSingularMatrix instead of a garbage
// result when a pivot falls below SingularEpsilon.
func (m Mat4) Inverse() (Mat4, error) {
	a := m
	inv := Identity()

	for col := range 4 {
		pivot := col
		for row := col + 1; row < 4; row++ {
			if math.Abs(a.Get(row, col)) > math.Abs(a.Get(pivot, col)) {
				pivot = row
			}
		}
		if math.Abs(a.Get(pivot, col)) < SingularEpsilon {
			return Mat4{}, ErrSingularMatrix
		}
		if pivot != col {
			a.swapRows(pivot, col)
			inv.swapRows(pivot, col)
		}

		p := 1 / a.Get(col, col)
		for k := range 4 {
			a.Set(col, k, a.Get(col, k)*p)
			inv.Set(col, k, inv.Get(col, k)*p)
		}

		for row := range 4 {
			if row == col {
				continue
			}
			f := a.Get(row, col)
			if f == 0 {
				continue
			}
			for k := range 4 {
				a.Set(row, k, a.Get(row, k)-f*a.Get(col, k))
				inv.Set(row, k, inv.Get(row, k)-f*inv.Get(col, k))
			}
		}
	}

	return inv, nil
}

func (m *Mat4) swapRows(i, j int) {
	for k := range 4 {
		m[i+k*4], m[j+k*4] = m[j+k*4], m[i+k*4]
	}
}

// Get returns the element at (row, col).
func (m Mat4) Get(row, col int) float64 {
	return m[row+col*4]
}

// Set sets the element at (row, col).
func (m *Mat4) Set(row, col int, val float64) {
	m[row+col*4] = val
}

// Translation extracts the translation component.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}
