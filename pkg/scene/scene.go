// Package scene assembles clipped quadrics, lights and a camera into the
// ordered collections a renderer consumes every frame.
//
// A Scene is built once (AddQuadric, AddLight), sealed, and then only read.
// Index in the primitive and light sequences is identity: it selects the
// renderer's uniform slot, so entries are never removed or reordered.
package scene

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/taigrr/quadrics/pkg/math3d"
	"github.com/taigrr/quadrics/pkg/quadric"
)

var (
	// ErrSealed is returned when a sealed scene is modified.
	ErrSealed = errors.New("scene: sealed")
	// ErrCapacity matches every *CapacityError.
	ErrCapacity = errors.New("scene: capacity exceeded")
)

// CapacityError reports more primitives or lights than a renderer can bind.
type CapacityError struct {
	Kind  string // "quadric" or "light"
	Count int
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("scene: %d %ss exceed capacity %d", e.Count, e.Kind, e.Limit)
}

// Is makes errors.Is(err, ErrCapacity) match.
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacity
}

// Limits is the number of uniform slots a renderer provides.
type Limits struct {
	Quadrics int
	Lights   int
}

// DefaultLimits matches the uniform arrays of the reference trace shader.
var DefaultLimits = Limits{Quadrics: 16, Lights: 8}

// Builder populates an empty scene. It must be deterministic so Reset can
// rebuild the same scene.
type Builder func(*Scene) error

// Option configures a Scene.
type Option func(*Scene)

// WithLogger sets the logger used while assembling and updating.
func WithLogger(l *log.Logger) Option {
	return func(s *Scene) { s.logger = l }
}

// WithBuilder sets the function Reset uses to rebuild the scene.
func WithBuilder(b Builder) Option {
	return func(s *Scene) { s.builder = b }
}

// Scene owns the ordered primitives, the lights and the camera.
type Scene struct {
	quadrics []*quadric.Quadric
	lights   []quadric.Light
	camera   Camera
	limits   Limits
	builder  Builder
	logger   *log.Logger
	sealed   bool
	clock    clock
}

// New returns an empty scene viewed through cam.
func New(cam Camera, limits Limits, opts ...Option) *Scene {
	s := &Scene{
		camera: cam,
		limits: limits,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Camera returns the scene camera.
func (s *Scene) Camera() Camera { return s.camera }

// Limits returns the capacity the scene was created with.
func (s *Scene) Limits() Limits { return s.limits }

// Logger returns the scene logger.
func (s *Scene) Logger() *log.Logger { return s.logger }

// Sealed reports whether the scene has been sealed.
func (s *Scene) Sealed() bool { return s.sealed }

// Quadrics returns the primitives in render order. The slice is a copy; the
// primitives are shared.
func (s *Scene) Quadrics() []*quadric.Quadric {
	return append([]*quadric.Quadric(nil), s.quadrics...)
}

// Lights returns the lights in render order.
func (s *Scene) Lights() []quadric.Light {
	return append([]quadric.Light(nil), s.lights...)
}

// AddQuadric appends a primitive built from shape and returns it for
// placement.
func (s *Scene) AddQuadric(shape quadric.Shape) (*quadric.Quadric, error) {
	if err := s.roomForQuadric(); err != nil {
		return nil, err
	}
	q, err := quadric.New(shape)
	if err != nil {
		return nil, err
	}
	s.quadrics = append(s.quadrics, q)
	return q, nil
}

// Append adds a primitive that was built and placed by the caller. The scene
// takes ownership of q.
func (s *Scene) Append(q *quadric.Quadric) error {
	if err := s.roomForQuadric(); err != nil {
		return err
	}
	if !q.Shape().Valid() {
		return quadric.ErrUninitialized
	}
	if q.Frozen() {
		return quadric.ErrFrozen
	}
	s.quadrics = append(s.quadrics, q)
	return nil
}

func (s *Scene) roomForQuadric() error {
	if s.sealed {
		return ErrSealed
	}
	if len(s.quadrics) >= s.limits.Quadrics {
		return &CapacityError{Kind: "quadric", Count: len(s.quadrics) + 1, Limit: s.limits.Quadrics}
	}
	return nil
}

// AddLight appends a light.
func (s *Scene) AddLight(l quadric.Light) error {
	if s.sealed {
		return ErrSealed
	}
	if len(s.lights) >= s.limits.Lights {
		return &CapacityError{Kind: "light", Count: len(s.lights) + 1, Limit: s.limits.Lights}
	}
	s.lights = append(s.lights, l)
	return nil
}

// Place builds a primitive, applies the placements in order and sets its
// material. The primitive joins the scene only when every step succeeds.
func (s *Scene) Place(shape quadric.Shape, m quadric.Material, placements ...math3d.Mat4) (*quadric.Quadric, error) {
	if err := s.roomForQuadric(); err != nil {
		return nil, err
	}
	q, err := quadric.New(shape)
	if err != nil {
		return nil, err
	}
	for i, t := range placements {
		if err := q.Transform(t); err != nil {
			return nil, fmt.Errorf("place %v #%d: %w", shape, i, err)
		}
	}
	if err := q.SetMaterial(m); err != nil {
		return nil, err
	}
	s.quadrics = append(s.quadrics, q)
	return q, nil
}

// Validate checks the scene against the capacity a renderer advertises.
func (s *Scene) Validate(l Limits) error {
	if len(s.quadrics) > l.Quadrics {
		return &CapacityError{Kind: "quadric", Count: len(s.quadrics), Limit: l.Quadrics}
	}
	if len(s.lights) > l.Lights {
		return &CapacityError{Kind: "light", Count: len(s.lights), Limit: l.Lights}
	}
	return nil
}

// Seal ends assembly: every primitive is frozen and further additions fail.
func (s *Scene) Seal() {
	if s.sealed {
		return
	}
	for _, q := range s.quadrics {
		q.Freeze()
	}
	s.sealed = true
	s.logger.Debug("scene sealed", "quadrics", len(s.quadrics), "lights", len(s.lights))
}

// Reset discards every primitive and light and runs the builder again. The
// clock restarts with the next Update.
func (s *Scene) Reset() error {
	s.quadrics = nil
	s.lights = nil
	s.sealed = false
	s.clock = clock{}
	if s.builder == nil {
		return nil
	}
	if err := s.builder(s); err != nil {
		return fmt.Errorf("rebuild scene: %w", err)
	}
	s.logger.Info("scene rebuilt", "quadrics", len(s.quadrics), "lights", len(s.lights))
	return nil
}

// Build runs b on the scene and records it for Reset.
func (s *Scene) Build(b Builder) error {
	s.builder = b
	return s.Reset()
}

// clock tracks frame timing in seconds.
type clock struct {
	started bool
	first   time.Time
	last    time.Time
	elapsed float64
}

// MaxFrameDelta caps the time step after stalls.
const MaxFrameDelta = 0.1

// advance returns the clamped time since the previous call. The first call
// returns zero.
func (c *clock) advance(now time.Time) float64 {
	if !c.started {
		c.started = true
		c.first, c.last = now, now
		return 0
	}
	dt := max(0, min(now.Sub(c.last).Seconds(), MaxFrameDelta))
	// A backwards step keeps last, so the interval is not counted twice.
	if now.After(c.last) {
		c.last = now
	}

	c.elapsed = max(c.elapsed, now.Sub(c.first).Seconds())
	return dt
}
