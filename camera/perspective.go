// Package camera provides the perspective camera the scene is viewed through.
package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Perspective is a pinhole camera. Field of view and clip planes are fixed at
// construction; Aspect must follow the viewport and be followed by a call to
// UpdateProjectionMatrix.
type Perspective struct {
	Aspect   float32
	Position mgl32.Vec3
	Up       mgl32.Vec3

	fov        float32
	near, far  float32
	target     mgl32.Vec3
	projection mgl32.Mat4
}

// NewPerspective returns a camera at the origin looking down -Z. fov is the
// vertical field of view in degrees.
func NewPerspective(fov, aspect, near, far float32) *Perspective {
	c := &Perspective{
		Aspect: aspect,
		Up:     mgl32.Vec3{0, 1, 0},
		fov:    fov,
		near:   near,
		far:    far,
		target: mgl32.Vec3{0, 0, -1},
	}
	c.UpdateProjectionMatrix()
	return c
}

// FOV returns the vertical field of view in degrees.
func (c *Perspective) FOV() float32 { return c.fov }

// Near returns the near clip distance.
func (c *Perspective) Near() float32 { return c.near }

// Far returns the far clip distance.
func (c *Perspective) Far() float32 { return c.far }

// UpdateProjectionMatrix recomputes the projection from the current Aspect.
func (c *Perspective) UpdateProjectionMatrix() {
	c.projection = mgl32.Perspective(mgl32.DegToRad(c.fov), c.Aspect, c.near, c.far)
}

// Projection returns the projection matrix computed by the last
// UpdateProjectionMatrix.
func (c *Perspective) Projection() mgl32.Mat4 { return c.projection }

// SetPosition moves the camera without changing what it looks at.
func (c *Perspective) SetPosition(x, y, z float32) {
	c.Position = mgl32.Vec3{x, y, z}
}

// LookAt points the camera at target.
func (c *Perspective) LookAt(target mgl32.Vec3) { c.target = target }

// Target returns the point the camera looks at.
func (c *Perspective) Target() mgl32.Vec3 { return c.target }

// View returns the world to camera matrix.
func (c *Perspective) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.target, c.Up)
}
