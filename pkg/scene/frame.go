package scene

import (
	"fmt"
	"math"
	"time"

	"github.com/taigrr/quadrics/pkg/math3d"
	"github.com/taigrr/quadrics/pkg/quadric"
)

// Input is the movement and look intent for one frame. Directional flags
// move the camera; Yaw and Pitch are look rates in [-1, 1].
type Input struct {
	Forward, Back bool
	Left, Right   bool
	Up, Down      bool
	Boost         bool
	Yaw, Pitch    float64
}

// Pose is the camera state a renderer needs to generate primary rays.
type Pose struct {
	Position    math3d.Vec3
	Forward     math3d.Vec3
	Right       math3d.Vec3
	Up          math3d.Vec3
	FOV         float64 // vertical, radians
	AspectRatio float64 // width / height
	Near, Far   float64 // clip distances, zero means the default
}

// Clip distances used when a pose leaves them unset.
const (
	DefaultNear = 0.1
	DefaultFar  = 1000.0
)

// Clip returns the near and far clip distances of the pose.
func (p Pose) Clip() (near, far float64) {
	near, far = p.Near, p.Far
	if near <= 0 {
		near = DefaultNear
	}
	if far <= near {
		far = max(DefaultFar, near*2)
	}
	return near, far
}

// RayDirection returns the unit direction through the normalized device
// coordinates (ndcX, ndcY), both in [-1, 1] with +Y up.
func (p Pose) RayDirection(ndcX, ndcY float64) math3d.Vec3 {
	h := math.Tan(p.FOV / 2)
	return p.Forward.
		Add(p.Right.Scale(ndcX * h * p.AspectRatio)).
		Add(p.Up.Scale(ndcY * h)).
		Normalize()
}

// Camera is moved by the per-frame update and reports its pose.
type Camera interface {
	Move(dt float64, in Input)
	Pose() Pose
}

// Renderer draws one frame. Capacity reports how many primitives and lights
// it can bind.
type Renderer interface {
	Capacity() Limits
	Render(f Frame) error
}

// Frame is a value snapshot of the scene for one render pass.
type Frame struct {
	Quadrics []quadric.Quadric
	Lights   []quadric.Light
	Camera   Pose
	Time     float64 // seconds since the first frame
	Delta    float64 // seconds since the previous frame
}

// Export writes every uniform of the frame to sink.
func (f Frame) Export(sink quadric.UniformSink) {
	for i := range f.Quadrics {
		f.Quadrics[i].Export(i, sink)
	}
	for i, l := range f.Lights {
		l.Export(i, sink)
	}
	sink.SetVec3("camera.position", f.Camera.Position)
	sink.SetVec3("camera.forward", f.Camera.Forward)
	sink.SetVec3("camera.right", f.Camera.Right)
	sink.SetVec3("camera.up", f.Camera.Up)
	sink.SetFloat("camera.fov", f.Camera.FOV)
	sink.SetFloat("camera.aspectRatio", f.Camera.AspectRatio)
	near, far := f.Camera.Clip()
	sink.SetFloat("camera.near", near)
	sink.SetFloat("camera.far", far)
	sink.SetFloat("scene.time", f.Time)
}

// Frame returns the current snapshot.
func (s *Scene) Frame() Frame {
	f := Frame{
		Quadrics: make([]quadric.Quadric, len(s.quadrics)),
		Lights:   s.Lights(),
		Camera:   s.camera.Pose(),
		Time:     s.clock.elapsed,
	}
	for i, q := range s.quadrics {
		f.Quadrics[i] = *q
	}
	return f
}

// Update advances the clock to now, moves the camera and renders one frame.
// The first call seals the scene after checking it fits the renderer.
func (s *Scene) Update(now time.Time, in Input, r Renderer) error {
	if !s.sealed {
		if err := s.Validate(r.Capacity()); err != nil {
			return err
		}
		s.Seal()
	}

	dt := s.clock.advance(now)
	s.camera.Move(dt, in)

	f := s.Frame()
	f.Delta = dt
	if err := r.Render(f); err != nil {
		return fmt.Errorf("render frame: %w", err)
	}
	return nil
}
