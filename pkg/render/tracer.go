package render

import (
	"errors"
	"image/color"
	"io"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/sync/errgroup"

	"github.com/taigrr/quadrics/pkg/math3d"
	"github.com/taigrr/quadrics/pkg/quadric"
	"github.com/taigrr/quadrics/pkg/scene"
)

// Tracer defaults.
const (
	DefaultMaxDepth   = 2
	DefaultShininess  = 24.0
	DefaultCheckerLen = 3.0

	hitEpsilon  = 1e-4
	coefEpsilon = 1e-12
	boundsPad   = 1e-6
)

// ErrNoFramebuffer is returned by Render before a framebuffer is attached.
var ErrNoFramebuffer = errors.New("render: no framebuffer")

// Stats counts the work of the last rendered frame.
type Stats struct {
	Rays        int64 // primary, shadow and reflection rays
	PrimaryHits int64 // pixels that hit a primitive
	Culled      int   // primitives outside the view frustum
}

// Tracer is a CPU ray tracer for clipped quadrics. It implements
// scene.Renderer and writes one frame per Render into its framebuffer.
type Tracer struct {
	MaxDepth   int         // reflection bounces
	Shininess  float64     // Phong exponent
	CheckerLen float64     // world size of one checker square
	Ambient    math3d.Vec3 // linear ambient radiance
	Background math3d.Vec3 // linear radiance of missed rays without Env
	Env        *Texture    // equirectangular environment, optional
	Exposure   float64     // scale applied before tone mapping

	fb      *Framebuffer
	limits  scene.Limits
	workers int
	logger  *log.Logger

	rays   atomic.Int64
	hits   atomic.Int64
	culled int
}

// TracerOption configures a Tracer.
type TracerOption func(*Tracer)

// WithEnvironment sets the environment map seen by missed rays.
func WithEnvironment(tex *Texture) TracerOption {
	return func(t *Tracer) { t.Env = tex }
}

// WithLimits overrides the advertised uniform capacity.
func WithLimits(l scene.Limits) TracerOption {
	return func(t *Tracer) { t.limits = l }
}

// WithWorkers bounds the number of rows traced concurrently.
func WithWorkers(n int) TracerOption {
	return func(t *Tracer) { t.workers = max(n, 1) }
}

// WithLogger sets the logger frame statistics are written to.
func WithLogger(l *log.Logger) TracerOption {
	return func(t *Tracer) { t.logger = l }
}

// NewTracer returns a tracer drawing into fb.
func NewTracer(fb *Framebuffer, opts ...TracerOption) *Tracer {
	t := &Tracer{
		MaxDepth:   DefaultMaxDepth,
		Shininess:  DefaultShininess,
		CheckerLen: DefaultCheckerLen,
		Ambient:    math3d.Splat3(0.08),
		Background: math3d.V3(0.02, 0.02, 0.03),
		Exposure:   1,
		fb:         fb,
		limits:     scene.DefaultLimits,
		workers:    runtime.GOMAXPROCS(0),
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetFramebuffer replaces the render target, e.g. after a terminal resize.
func (t *Tracer) SetFramebuffer(fb *Framebuffer) { t.fb = fb }

// Framebuffer returns the render target.
func (t *Tracer) Framebuffer() *Framebuffer { return t.fb }

// Capacity implements scene.Renderer.
func (t *Tracer) Capacity() scene.Limits { return t.limits }

// Stats returns the counters of the last frame.
func (t *Tracer) Stats() Stats {
	return Stats{Rays: t.rays.Load(), PrimaryHits: t.hits.Load(), Culled: t.culled}
}

// prim is a primitive prepared for one frame.
type prim struct {
	q       *quadric.Quadric
	bounds  math3d.AABB
	bounded bool
	inView  bool
}

type hit struct {
	t    float64
	p    math3d.Vec3
	n    math3d.Vec3
	prim *prim
}

// Render implements scene.Renderer.
func (t *Tracer) Render(f scene.Frame) error {
	if t.fb == nil {
		return ErrNoFramebuffer
	}
	if len(f.Quadrics) > t.limits.Quadrics {
		return &scene.CapacityError{Kind: "quadric", Count: len(f.Quadrics), Limit: t.limits.Quadrics}
	}
	if len(f.Lights) > t.limits.Lights {
		return &scene.CapacityError{Kind: "light", Count: len(f.Lights), Limit: t.limits.Lights}
	}

	t.rays.Store(0)
	t.hits.Store(0)
	prims := t.prepare(f)

	fb := t.fb
	var g errgroup.Group
	g.SetLimit(t.workers)
	for y := range fb.Height {
		g.Go(func() error {
			t.traceRow(fb, y, f, prims)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	t.logger.Debug("frame traced",
		"time", f.Time, "rays", t.rays.Load(), "hits", t.hits.Load(), "culled", t.culled)
	return nil
}

// prepare snapshots bounds and frustum visibility of every primitive.
func (t *Tracer) prepare(f scene.Frame) []prim {
	frustum := PoseFrustum(f.Camera)
	prims := make([]prim, len(f.Quadrics))
	t.culled = 0
	for i := range f.Quadrics {
		p := prim{q: &f.Quadrics[i], inView: true}
		if b, ok := p.q.Bounds(); ok {
			pad := math3d.Splat3(boundsPad)
			p.bounds = math3d.NewAABB(b.Min.Sub(pad), b.Max.Add(pad))
			p.bounded = true
			p.inView = frustum.IntersectAABB(p.bounds)
		}
		if !p.inView {
			t.culled++
		}
		prims[i] = p
	}
	return prims
}

func (t *Tracer) traceRow(fb *Framebuffer, y int, f scene.Frame, prims []prim) {
	ndcY := 1 - 2*(float64(y)+0.5)/float64(fb.Height)
	for x := range fb.Width {
		ndcX := 2*(float64(x)+0.5)/float64(fb.Width) - 1
		dir := f.Camera.RayDirection(ndcX, ndcY)
		c := t.trace(f.Camera.Position, dir, 0, f.Lights, prims)
		fb.Pixels[y*fb.Width+x] = t.toneMap(c)
	}
}

// trace returns the linear radiance arriving at origin from direction dir.
func (t *Tracer) trace(origin, dir math3d.Vec3, depth int, lights []quadric.Light, prims []prim) math3d.Vec3 {
	h, ok := t.intersect(origin, dir, math.Inf(1), depth == 0, prims)
	if !ok {
		return t.background(dir)
	}
	if depth == 0 {
		t.hits.Add(1)
	}

	m := h.prim.q.Material()
	albedo := t.albedo(m, h.p)
	c := t.Ambient.Mul(albedo)
	view := dir.Negate()
	lift := h.p.Add(h.n.Scale(hitEpsilon * 10))

	for _, l := range lights {
		ldir, dist, power := l.Incoming(h.p)
		cos := h.n.Dot(ldir)
		if cos <= 0 {
			continue
		}
		if _, blocked := t.intersect(lift, ldir, dist, false, prims); blocked {
			continue
		}
		spec := math.Pow(math.Max(0, ldir.Negate().Reflect(h.n).Dot(view)), t.Shininess)
		c = c.Add(power.Mul(albedo.Scale(cos).Add(m.Specular.Scale(spec))))
	}

	if depth < t.MaxDepth && m.Reflectance != (math3d.Vec3{}) {
		r := t.trace(lift, dir.Reflect(h.n), depth+1, lights, prims)
		c = c.Add(m.Reflectance.Mul(r))
	}
	return c
}

// intersect finds the nearest visible surface point along the ray before
// tMax. Primary rays skip primitives outside the view frustum.
func (t *Tracer) intersect(origin, dir math3d.Vec3, tMax float64, primary bool, prims []prim) (hit, bool) {
	t.rays.Add(1)
	best := hit{t: tMax}
	found := false
	for i := range prims {
		p := &prims[i]
		if primary && !p.inView {
			continue
		}
		if p.bounded && !p.bounds.IntersectRay(origin, dir, best.t) {
			continue
		}
		if d, ok := IntersectQuadric(p.q, origin, dir, hitEpsilon, best.t); ok {
			best = hit{t: d, prim: p}
			found = true
		}
	}
	if !found {
		return hit{}, false
	}
	best.p = origin.Add(dir.Scale(best.t))
	best.n = best.prim.q.Normal(best.p).Normalize()
	if best.n.Dot(dir) > 0 {
		best.n = best.n.Negate()
	}
	return best, true
}

// IntersectQuadric returns the smallest ray parameter in (tMin, tMax) where
// origin + t·dir lies on the surface of q and passes its clippers. Both roots
// are tried in order, so a clipped-away near hit reveals the far side.
func IntersectQuadric(q *quadric.Quadric, origin, dir math3d.Vec3, tMin, tMax float64) (float64, bool) {
	a := q.Surface()
	e := math3d.Point(origin)
	d := math3d.Direction(dir)
	ae := a.MulVec4(e)

	qa := d.Dot(a.MulVec4(d))
	qb := 2 * d.Dot(ae)
	qc := e.Dot(ae)

	var roots [2]float64
	n := 0
	if math.Abs(qa) < coefEpsilon {
		if math.Abs(qb) < coefEpsilon {
			return 0, false
		}
		roots[0] = -qc / qb
		n = 1
	} else {
		disc := qb*qb - 4*qa*qc
		if disc < 0 {
			return 0, false
		}
		s := math.Sqrt(disc)
		t1, t2 := (-qb-s)/(2*qa), (-qb+s)/(2*qa)
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		roots = [2]float64{t1, t2}
		n = 2
	}

	for _, r := range roots[:n] {
		if r <= tMin || r >= tMax {
			continue
		}
		if q.Visible(origin.Add(dir.Scale(r))) {
			return r, true
		}
	}
	return 0, false
}

func (t *Tracer) background(dir math3d.Vec3) math3d.Vec3 {
	if t.Env != nil {
		return t.Env.SampleDirection(dir)
	}
	return t.Background
}

// albedo applies the procedural patterns of m at world point p.
func (t *Tracer) albedo(m quadric.Material, p math3d.Vec3) math3d.Vec3 {
	c := m.Color
	if m.Checker > 0 {
		c = c.Scale(1 - m.Checker + m.Checker*checker(p, t.CheckerLen))
	}
	if m.Wooden > 0 {
		c = mix(c, wood(p), m.Wooden)
	}
	if m.ProcMix > 0 {
		c = c.Scale(1 - m.ProcMix + m.ProcMix*marble(p))
	}
	return c
}

// checker is 1 on even cells and dark on odd ones.
func checker(p math3d.Vec3, size float64) float64 {
	cell := int(math.Floor(p.X/size)) + int(math.Floor(p.Y/size)) + int(math.Floor(p.Z/size))
	if cell%2 == 0 {
		return 1
	}
	return 0.1
}

var (
	woodLight = math3d.V3(0.75, 0.5, 0.25)
	woodDark  = math3d.V3(0.35, 0.18, 0.07)
)

// wood returns concentric rings around the vertical axis, bent slightly so
// they do not look machined.
func wood(p math3d.Vec3) math3d.Vec3 {
	r := math.Hypot(p.X, p.Z)*4 + math.Sin(p.Y*1.7+p.X)*0.35
	ring := 0.5 + 0.5*math.Sin(r*2*math.Pi)
	return mix(woodDark, woodLight, ring*ring)
}

// marble is a banded modulation in [0.5, 1].
func marble(p math3d.Vec3) float64 {
	v := math.Sin(p.X*3 + 2*math.Sin(p.Y*2+p.Z))
	return 0.75 + 0.25*v
}

func mix(a, b math3d.Vec3, w float64) math3d.Vec3 {
	return a.Scale(1 - w).Add(b.Scale(w))
}

// toneMap compresses linear radiance with Reinhard and encodes it as sRGB.
func (t *Tracer) toneMap(c math3d.Vec3) color.RGBA {
	c = c.Scale(t.Exposure)
	r, g, b := c.X/(1+c.X), c.Y/(1+c.Y), c.Z/(1+c.Z)
	sr, sg, sb := colorful.LinearRgb(r, g, b).Clamped().RGB255()
	return color.RGBA{R: sr, G: sg, B: sb, A: 255}
}

var _ scene.Renderer = (*Tracer)(nil)
