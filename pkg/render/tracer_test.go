package render

import (
	"errors"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/taigrr/quadrics/pkg/math3d"
	"github.com/taigrr/quadrics/pkg/quadric"
	"github.com/taigrr/quadrics/pkg/scene"
)

// lookDownZ is a camera at the origin looking along -Z.
var lookDownZ = scene.Pose{
	Forward:     math3d.V3(0, 0, -1),
	Right:       math3d.V3(1, 0, 0),
	Up:          math3d.V3(0, 1, 0),
	FOV:         math.Pi / 3,
	AspectRatio: 1,
}

var black = color.RGBA{A: 255}

func placed(t *testing.T, shape quadric.Shape, m math3d.Mat4) quadric.Quadric {
	t.Helper()
	q, err := quadric.New(shape)
	if err != nil {
		t.Fatalf("New(%v): %v", shape, err)
	}
	if err := q.Transform(m); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	return *q
}

func newTestTracer(w, h int) *Tracer {
	tr := NewTracer(NewFramebuffer(w, h), WithWorkers(2))
	tr.Background = math3d.Vec3{}
	return tr
}

func TestIntersectQuadric(t *testing.T) {
	sphere := placed(t, quadric.ShapeSphere, math3d.Identity())
	plane := placed(t, quadric.ShapePlane, math3d.Identity())

	backHalf := placed(t, quadric.ShapeSphere, math3d.Identity())
	if err := backHalf.TransformClipping(math3d.Translate(math3d.V3(0, 0, -1.5))); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		q      quadric.Quadric
		origin math3d.Vec3
		dir    math3d.Vec3
		want   float64
		hit    bool
	}{
		{"sphere front", sphere, math3d.V3(0, 0, 5), math3d.V3(0, 0, -1), 4, true},
		{"sphere miss", sphere, math3d.V3(0, 2, 5), math3d.V3(0, 0, -1), 0, false},
		{"inside sphere", sphere, math3d.V3(0, 0, 0), math3d.V3(1, 0, 0), 1, true},
		{"sphere behind", sphere, math3d.V3(0, 0, 5), math3d.V3(0, 0, 1), 0, false},
		{"clipped near side reveals far side", backHalf, math3d.V3(0, 0, 5), math3d.V3(0, 0, -1), 6, true},
		{"plane from above", plane, math3d.V3(0, 5, 0), math3d.V3(0, -1, 0), 5, true},
		{"plane parallel", plane, math3d.V3(0, 5, 0), math3d.V3(1, 0, 0), 0, false},
		{"plane outside tile", plane, math3d.V3(40, 5, 0), math3d.V3(0, -1, 0), 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := IntersectQuadric(&tc.q, tc.origin, tc.dir, hitEpsilon, math.Inf(1))
			if ok != tc.hit {
				t.Fatalf("hit = %v, want %v (t=%v)", ok, tc.hit, got)
			}
			if ok && math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("t = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIntersectQuadricRespectsTMax(t *testing.T) {
	sphere := placed(t, quadric.ShapeSphere, math3d.Identity())
	if _, ok := IntersectQuadric(&sphere, math3d.V3(0, 0, 5), math3d.V3(0, 0, -1), hitEpsilon, 3); ok {
		t.Error("hit beyond tMax should be ignored")
	}
}

func TestTracerSphereCenterPixel(t *testing.T) {
	tr := newTestTracer(9, 9)
	f := scene.Frame{
		Quadrics: []quadric.Quadric{placed(t, quadric.ShapeSphere, math3d.Translate(math3d.V3(0, 0, -5)))},
		Lights:   []quadric.Light{quadric.NewDirectionalLight(math3d.V3(0, 0, 1), math3d.Splat3(1))},
		Camera:   lookDownZ,
	}

	if err := tr.Render(f); err != nil {
		t.Fatalf("Render: %v", err)
	}

	fb := tr.Framebuffer()
	if got := fb.GetPixel(4, 4); got == black {
		t.Error("center pixel should show the lit sphere")
	}
	for _, p := range [][2]int{{0, 0}, {8, 0}, {0, 8}, {8, 8}} {
		if got := fb.GetPixel(p[0], p[1]); got != black {
			t.Errorf("corner %v = %v, want background", p, got)
		}
	}
	if s := tr.Stats(); s.PrimaryHits == 0 || s.Rays < 81 {
		t.Errorf("stats = %+v, want hits and at least one ray per pixel", s)
	}
}

func TestTracerClippedAway(t *testing.T) {
	q := placed(t, quadric.ShapeSphere, math3d.Translate(math3d.V3(0, 0, -5)))
	// Move the clip region far from the surface: nothing stays visible.
	if err := q.TransformClipping(math3d.Translate(math3d.V3(0, 0, 10))); err != nil {
		t.Fatal(err)
	}

	tr := newTestTracer(9, 9)
	f := scene.Frame{
		Quadrics: []quadric.Quadric{q},
		Lights:   []quadric.Light{quadric.NewDirectionalLight(math3d.V3(0, 0, 1), math3d.Splat3(1))},
		Camera:   lookDownZ,
	}
	if err := tr.Render(f); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := tr.Framebuffer().GetPixel(4, 4); got != black {
		t.Errorf("center pixel = %v, want background", got)
	}
	if hits := tr.Stats().PrimaryHits; hits != 0 {
		t.Errorf("primary hits = %d, want 0", hits)
	}
}

func TestTracerCullsBehindCamera(t *testing.T) {
	tr := newTestTracer(4, 4)
	f := scene.Frame{
		Quadrics: []quadric.Quadric{placed(t, quadric.ShapeSphere, math3d.Translate(math3d.V3(0, 0, 10)))},
		Camera:   lookDownZ,
	}
	if err := tr.Render(f); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if s := tr.Stats(); s.Culled != 1 || s.PrimaryHits != 0 {
		t.Errorf("stats = %+v, want 1 culled and no hits", s)
	}
}

func TestTracerCullsBeyondFarPlane(t *testing.T) {
	f := scene.Frame{
		Quadrics: []quadric.Quadric{placed(t, quadric.ShapeSphere, math3d.Translate(math3d.V3(0, 0, -30)))},
		Camera:   lookDownZ,
	}

	tr := newTestTracer(3, 3)
	if err := tr.Render(f); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if s := tr.Stats(); s.Culled != 0 || s.PrimaryHits == 0 {
		t.Fatalf("default clip: stats = %+v, want the sphere traced", s)
	}

	f.Camera.Near, f.Camera.Far = 0.5, 10
	if err := tr.Render(f); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if s := tr.Stats(); s.Culled != 1 || s.PrimaryHits != 0 {
		t.Errorf("far = 10: stats = %+v, want 1 culled and no hits", s)
	}
}

func TestTracerShadow(t *testing.T) {
	// A big sphere between the light and the floor darkens the point below it.
	floor := placed(t, quadric.ShapePlane, math3d.Translate(math3d.V3(0, -2, 0)))
	blocker := placed(t, quadric.ShapeSphere, math3d.Translate(math3d.V3(0, 3, -8)))
	sun := quadric.NewDirectionalLight(math3d.V3(0, 1, 0), math3d.Splat3(2))

	cam := scene.Pose{
		Position:    math3d.V3(0, 0, 0),
		Forward:     math3d.V3(0, -2, -8).Normalize(),
		Right:       math3d.V3(1, 0, 0),
		FOV:         math.Pi / 6,
		AspectRatio: 1,
	}
	cam.Up = cam.Right.Cross(cam.Forward)

	render := func(qs ...quadric.Quadric) color.RGBA {
		tr := newTestTracer(5, 5)
		if err := tr.Render(scene.Frame{Quadrics: qs, Lights: []quadric.Light{sun}, Camera: cam}); err != nil {
			t.Fatalf("Render: %v", err)
		}
		return tr.Framebuffer().GetPixel(2, 2)
	}

	lit := render(floor)
	shaded := render(floor, blocker)
	if int(shaded.R)+int(shaded.G)+int(shaded.B) >= int(lit.R)+int(lit.G)+int(lit.B) {
		t.Errorf("shadowed pixel %v should be darker than lit pixel %v", shaded, lit)
	}
}

func TestTracerReflection(t *testing.T) {
	q := placed(t, quadric.ShapeSphere, math3d.Translate(math3d.V3(0, 0, -5)))
	render := func(reflectance float64) color.RGBA {
		q := q
		m := quadric.DefaultMaterial()
		m.Color = math3d.Vec3{}
		m.Specular = math3d.Vec3{}
		m.Reflectance = math3d.Splat3(reflectance)
		if err := q.SetMaterial(m); err != nil {
			t.Fatal(err)
		}
		tr := newTestTracer(9, 9)
		tr.Background = math3d.Splat3(1)
		tr.Ambient = math3d.Vec3{}
		if err := tr.Render(scene.Frame{Quadrics: []quadric.Quadric{q}, Camera: lookDownZ}); err != nil {
			t.Fatalf("Render: %v", err)
		}
		return tr.Framebuffer().GetPixel(4, 4)
	}

	if got := render(0); got != black {
		t.Errorf("black matte sphere = %v, want black", got)
	}
	if got := render(1); got == black {
		t.Error("mirror sphere should reflect the background")
	}
}

func TestTracerErrors(t *testing.T) {
	q := placed(t, quadric.ShapeSphere, math3d.Identity())

	t.Run("no framebuffer", func(t *testing.T) {
		tr := NewTracer(nil)
		if err := tr.Render(scene.Frame{Camera: lookDownZ}); !errors.Is(err, ErrNoFramebuffer) {
			t.Errorf("err = %v, want ErrNoFramebuffer", err)
		}
	})

	t.Run("capacity", func(t *testing.T) {
		tr := NewTracer(NewFramebuffer(2, 2), WithLimits(scene.Limits{Quadrics: 1, Lights: 1}))
		err := tr.Render(scene.Frame{Quadrics: []quadric.Quadric{q, q}, Camera: lookDownZ})
		var capErr *scene.CapacityError
		if !errors.As(err, &capErr) || capErr.Kind != "quadric" || capErr.Limit != 1 {
			t.Errorf("err = %v, want quadric capacity error", err)
		}
		if !errors.Is(err, scene.ErrCapacity) {
			t.Errorf("err = %v, want to match ErrCapacity", err)
		}
	})
}

func TestTracerRendersChessScene(t *testing.T) {
	cam := NewCamera()
	cam.LookAt(math3d.V3(0, 0, -3))
	fb := NewFramebuffer(32, 18)
	cam.SetAspectRatio(fb.AspectRatio())

	s := scene.New(cam, scene.DefaultLimits)
	if err := s.Build(scene.BuildChess); err != nil {
		t.Fatalf("BuildChess: %v", err)
	}

	tr := NewTracer(fb)
	if err := s.Update(time.Unix(0, 0), scene.Input{}, tr); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if hits := tr.Stats().PrimaryHits; hits == 0 {
		t.Error("chess scene should cover some pixels")
	}
}

func TestToneMap(t *testing.T) {
	tr := NewTracer(nil)
	if got := tr.toneMap(math3d.Vec3{}); got != black {
		t.Errorf("toneMap(0) = %v, want black", got)
	}
	bright := tr.toneMap(math3d.Splat3(1e6))
	if bright.R < 250 || bright.G < 250 || bright.B < 250 {
		t.Errorf("toneMap(huge) = %v, want near white", bright)
	}
	mid := tr.toneMap(math3d.Splat3(1))
	if mid.R <= 0 || mid.R >= 255 {
		t.Errorf("toneMap(1) = %v, want mid gray", mid)
	}
}

func TestPatterns(t *testing.T) {
	if checker(math3d.V3(0.5, 0, 0.5), 3) == checker(math3d.V3(3.5, 0, 0.5), 3) {
		t.Error("adjacent checker cells should differ")
	}
	if checker(math3d.V3(0.5, 0, 0.5), 3) != checker(math3d.V3(3.5, 0, 3.5), 3) {
		t.Error("diagonal checker cells should match")
	}
	for _, p := range []math3d.Vec3{math3d.V3(0, 0, 0), math3d.V3(1.3, -2, 0.7), math3d.V3(-4, 1, 9)} {
		if v := marble(p); v < 0.5 || v > 1 {
			t.Errorf("marble(%v) = %v, want in [0.5, 1]", p, v)
		}
		w := wood(p)
		if w.X < woodDark.X-1e-9 || w.X > woodLight.X+1e-9 {
			t.Errorf("wood(%v) = %v, outside the grain palette", p, w)
		}
	}

	tr := NewTracer(nil)
	m := quadric.DefaultMaterial()
	if got := tr.albedo(m, math3d.V3(1, 2, 3)); got != m.Color {
		t.Errorf("albedo without patterns = %v, want %v", got, m.Color)
	}
}

func BenchmarkTracerChess(b *testing.B) {
	cam := NewCamera()
	cam.LookAt(math3d.V3(0, 0, -3))
	fb := NewFramebuffer(80, 48)
	cam.SetAspectRatio(fb.AspectRatio())

	s := scene.New(cam, scene.DefaultLimits)
	if err := s.Build(scene.BuildChess); err != nil {
		b.Fatal(err)
	}
	s.Seal()
	f := s.Frame()
	tr := NewTracer(fb)

	for b.Loop() {
		if err := tr.Render(f); err != nil {
			b.Fatal(err)
		}
	}
}
