package render

import (
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/taigrr/quadrics/pkg/math3d"
	"github.com/taigrr/quadrics/pkg/scene"
)

// Movement defaults.
const (
	DefaultMoveSpeed = 6.0 // units per second
	DefaultTurnSpeed = 1.5 // radians per second at full look rate
	BoostFactor      = 3.0
)

// Camera represents a 3D camera with position and orientation. It
// implements scene.Camera.
type Camera struct {
	// Position in world space
	Position math3d.Vec3

	// Orientation (Euler angles in radians)
	Pitch float64 // Rotation around X axis (look up/down)
	Yaw   float64 // Rotation around Y axis (look left/right)

	// Projection parameters
	FOV         float64 // Vertical field of view in radians
	AspectRatio float64 // Width / Height
	Near        float64 // Near clipping plane
	Far         float64 // Far clipping plane

	// Movement tuning
	MoveSpeed float64
	TurnSpeed float64
	Stiffness float64 // spring angular frequency for velocity easing

	// Spring-smoothed velocity in camera space (right, up, forward).
	vel      [3]velocityAxis
	spring   harmonica.Spring
	springDT float64
}

// velocityAxis eases one velocity component toward its target.
type velocityAxis struct {
	Value float64
	accel float64 // spring velocity of Value
}

func (a *velocityAxis) update(s harmonica.Spring, target float64) {
	a.Value, a.accel = s.Update(a.Value, a.accel, target)
}

// NewCamera creates a new camera with default settings.
func NewCamera() *Camera {
	return &Camera{
		Position:    math3d.V3(0, 5, 18),
		FOV:         math.Pi / 3, // 60 degrees
		AspectRatio: 16.0 / 9.0,
		Near:        scene.DefaultNear,
		Far:         scene.DefaultFar,
		MoveSpeed:   DefaultMoveSpeed,
		TurnSpeed:   DefaultTurnSpeed,
		Stiffness:   8.0,
	}
}

// SetPosition sets the camera position.
func (c *Camera) SetPosition(pos math3d.Vec3) {
	c.Position = pos
}

// SetFOV sets the field of view (in radians).
func (c *Camera) SetFOV(fov float64) {
	c.FOV = fov
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	c.AspectRatio = aspect
}

// SetClipPlanes sets the near and far clipping planes.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.Near = near
	c.Far = far
}

// Forward returns the forward direction vector.
func (c *Camera) Forward() math3d.Vec3 {
	// Forward is -Z in camera space, rotated by yaw and pitch
	return math3d.V3(
		-math.Sin(c.Yaw)*math.Cos(c.Pitch),
		math.Sin(c.Pitch),
		-math.Cos(c.Yaw)*math.Cos(c.Pitch),
	)
}

// Right returns the right direction vector.
func (c *Camera) Right() math3d.Vec3 {
	return math3d.V3(
		math.Cos(c.Yaw),
		0,
		-math.Sin(c.Yaw),
	)
}

// Up returns the up direction vector.
func (c *Camera) Up() math3d.Vec3 {
	return c.Right().Cross(c.Forward())
}

// Velocity returns the current smoothed velocity in camera space
// (right, up, forward).
func (c *Camera) Velocity() math3d.Vec3 {
	return math3d.V3(c.vel[0].Value, c.vel[1].Value, c.vel[2].Value)
}

// MoveForward moves the camera forward (or backward if negative).
func (c *Camera) MoveForward(distance float64) {
	c.Position = c.Position.Add(c.Forward().Scale(distance))
}

// MoveRight moves the camera right (or left if negative).
func (c *Camera) MoveRight(distance float64) {
	c.Position = c.Position.Add(c.Right().Scale(distance))
}

// MoveUp moves the camera up (or down if negative).
func (c *Camera) MoveUp(distance float64) {
	c.Position = c.Position.Add(math3d.Up().Scale(distance))
}

// Rotate rotates the camera by the given angles (in radians).
func (c *Camera) Rotate(deltaPitch, deltaYaw float64) {
	c.Pitch += deltaPitch
	c.Yaw += deltaYaw

	// Clamp pitch to avoid gimbal lock issues
	const maxPitch = math.Pi/2 - 0.01
	c.Pitch = math.Max(-maxPitch, math.Min(maxPitch, c.Pitch))

}

// LookAt makes the camera look at a target point.
func (c *Camera) LookAt(target math3d.Vec3) {
	dir := target.Sub(c.Position).Normalize()

	c.Pitch = math.Asin(dir.Y)
	c.Yaw = math.Atan2(-dir.X, -dir.Z)

}

// Move applies one frame of input. Look rates turn the camera directly;
// movement velocity eases toward the requested speed through critically
// damped springs, so releasing a key glides to a stop.
func (c *Camera) Move(dt float64, in scene.Input) {
	if dt <= 0 {
		return
	}
	if dt != c.springDT {
		c.spring = harmonica.NewSpring(dt, c.Stiffness, 1.0)
		c.springDT = dt
	}

	c.Rotate(in.Pitch*c.TurnSpeed*dt, -in.Yaw*c.TurnSpeed*dt)

	speed := c.MoveSpeed
	if in.Boost {
		speed *= BoostFactor
	}
	target := [3]float64{
		axis(in.Right, in.Left) * speed,
		axis(in.Up, in.Down) * speed,
		axis(in.Forward, in.Back) * speed,
	}
	for i := range c.vel {
		c.vel[i].update(c.spring, target[i])
	}

	c.MoveRight(c.vel[0].Value * dt)
	c.MoveUp(c.vel[1].Value * dt)
	c.MoveForward(c.vel[2].Value * dt)
}

func axis(pos, neg bool) float64 {
	switch {
	case pos && !neg:
		return 1
	case neg && !pos:
		return -1
	}
	return 0
}

// Stop zeroes the smoothed velocity.
func (c *Camera) Stop() {
	c.vel = [3]velocityAxis{}
}

// Pose returns the state a ray generator needs.
func (c *Camera) Pose() scene.Pose {
	return scene.Pose{
		Position:    c.Position,
		Forward:     c.Forward(),
		Right:       c.Right(),
		Up:          c.Up(),
		FOV:         c.FOV,
		AspectRatio: c.AspectRatio,
		Near:        c.Near,
		Far:         c.Far,
	}
}

var _ scene.Camera = (*Camera)(nil)
