package math3d

import (
	"errors"
	"math"
	"testing"
)

const tol = 1e-9

func TestMat4FromRowsLayout(t *testing.T) {
	m := Mat4FromRows(
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	)

	if got := m.Get(0, 3); got != 4 {
		t.Errorf("Get(0,3) = %v, want 4", got)
	}
	if got := m.Get(3, 0); got != 13 {
		t.Errorf("Get(3,0) = %v, want 13", got)
	}
	// Column-major storage: the first column is stored first.
	if m[1] != 5 || m[4] != 2 {
		t.Errorf("storage = %v, want column-major", m)
	}
}

func TestTranslateMovesPoints(t *testing.T) {
	p := Translate(V3(1, -2, 3)).MulVec3(V3(1, 1, 1))
	if p != V3(2, -1, 4) {
		t.Errorf("translated point = %v, want (2, -1, 4)", p)
	}

	d := Translate(V3(1, -2, 3)).MulVec3Dir(V3(1, 1, 1))
	if d != V3(1, 1, 1) {
		t.Errorf("translated direction = %v, want unchanged", d)
	}
}

func TestScaleThenTranslateComposition(t *testing.T) {
	// Column vectors: the transform applied first sits on the right.
	m := Translate(V3(10, 0, 0)).Mul(Scale(V3(2, 2, 2)))
	p := m.MulVec3(V3(1, 1, 1))
	if p != V3(12, 2, 2) {
		t.Errorf("p = %v, want (12, 2, 2)", p)
	}
}

func TestPremulIsLeftMultiply(t *testing.T) {
	a := RotateX(0.3).Mul(Translate(V3(1, 2, 3)))
	b := Scale(V3(2, 3, 4))

	if !a.Premul(b).ApproxEqual(b.Mul(a), tol) {
		t.Error("Premul(b) should equal b*a")
	}
}

func TestTransposeInvolution(t *testing.T) {
	m := RotateY(0.7).Mul(Translate(V3(4, 5, 6)))
	if m.Transpose().Transpose() != m {
		t.Error("transpose twice should return the original matrix")
	}
	if m.Transpose().Get(0, 3) != m.Get(3, 0) {
		t.Error("transpose should swap (0,3) and (3,0)")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := Identity()
	c := m.Clone()
	c.Set(0, 0, 42)

	if m.Get(0, 0) != 1 {
		t.Errorf("original mutated through clone: %v", m.Get(0, 0))
	}
}

func TestInverse(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
	}{
		{"identity", Identity()},
		{"translate", Translate(V3(1, 2, 3))},
		{"scale", Scale(V3(2, 0.5, 4))},
		{"rotate", RotateX(0.4).Mul(RotateY(1.1)).Mul(RotateZ(-0.3))},
		{"affine", Translate(V3(3.5, 1.8, -3)).Mul(Scale(V3(1.9, 1.9, 1.4)))},
		{"needs pivoting", Mat4FromRows(
			0, 1, 0, 0,
			1, 0, 0, 0,
			0, 0, 0, 1,
			0, 0, 1, 0,
		)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv, err := tc.m.Inverse()
			if err != nil {
				t.Fatalf("Inverse() error = %v", err)
			}
			if got := tc.m.Mul(inv); !got.ApproxEqual(Identity(), tol) {
				t.Errorf("m * inv = %v, want identity", got)
			}
			if got := inv.Mul(tc.m); !got.ApproxEqual(Identity(), tol) {
				t.Errorf("inv * m = %v, want identity", got)
			}
		})
	}
}

func TestInverseSingular(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
	}{
		{"zero", Mat4{}},
		{"flattened", Scale(V3(1, 0, 1))},
		{"repeated rows", Mat4FromRows(
			1, 2, 3, 4,
			1, 2, 3, 4,
			0, 0, 1, 0,
			0, 0, 0, 1,
		)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.m.Inverse()
			if !errors.Is(err, ErrSingularMatrix) {
				t.Errorf("Inverse() error = %v, want ErrSingularMatrix", err)
			}
		})
	}
}

func TestDeterminant(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		want float64
	}{
		{"identity", Identity(), 1},
		{"scale", Scale(V3(2, 3, 4)), 24},
		{"rotation", RotateZ(0.9).Mul(RotateX(0.2)), 1},
		{"translation", Translate(V3(7, 8, 9)), 1},
		{"singular", Scale(V3(0, 1, 1)), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.m.Determinant(); math.Abs(got-tc.want) > tol {
				t.Errorf("Determinant() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestQuadricForm(t *testing.T) {
	sphere := Diag(1, 1, 1, -1)

	if got := sphere.QuadricForm(V4(1, 0, 0, 1)); math.Abs(got) > tol {
		t.Errorf("on-surface value = %v, want 0", got)
	}
	if got := sphere.QuadricForm(V4(0, 0, 0, 1)); math.Abs(got+1) > tol {
		t.Errorf("center value = %v, want -1", got)
	}
}

func TestIsSymmetric(t *testing.T) {
	if !Diag(1, 2, 3, 4).IsSymmetric(0) {
		t.Error("diagonal matrix should be symmetric")
	}
	if Translate(V3(1, 0, 0)).IsSymmetric(tol) {
		t.Error("translation should not be symmetric")
	}
}

func TestLookAtPerspective(t *testing.T) {
	view := LookAt(V3(0, 0, 5), V3(0, 0, 0), Up())
	p := view.MulVec3(V3(0, 0, 0))
	if math.Abs(p.Z+5) > tol {
		t.Errorf("origin in view space = %v, want z=-5", p)
	}

	proj := Perspective(math.Pi/2, 1, 1, 10)
	near := proj.MulVec4(V4(0, 0, -1, 1)).PerspectiveDivide()
	far := proj.MulVec4(V4(0, 0, -10, 1)).PerspectiveDivide()
	if math.Abs(near.Z+1) > tol || math.Abs(far.Z-1) > tol {
		t.Errorf("near/far depth = %v/%v, want -1/1", near.Z, far.Z)
	}
}
