// Package controls maps pointer input to camera motion around a target.
package controls

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/toxichemicals/GO/showroom/camera"
)

// ErrInvalidRange is returned by New when a minimum exceeds its maximum.
var ErrInvalidRange = errors.New("controls: minimum exceeds maximum")

// Keeps the polar angle off the poles where the view direction is parallel to Up.
const polarEpsilon = 1e-6

// Camera moves shorter than this are float noise from the spherical round trip.
const moveEpsilon = 1e-4

// Options configure an Orbit.
type Options struct {
	EnableDamping bool
	// DampingFactor is the share of the pending motion applied per Update.
	DampingFactor float32

	EnableRotate bool
	EnableZoom   bool
	EnablePan    bool

	MinDistance, MaxDistance     float32
	MinPolarAngle, MaxPolarAngle float32

	Target mgl32.Vec3

	AutoRotate bool
	// AutoRotateSpeed is in turns per minute at 60 updates per second.
	AutoRotateSpeed float32

	RotateSpeed float32
	ZoomSpeed   float32
}

// DefaultOptions returns unclamped controls with rotate, zoom and pan enabled.
func DefaultOptions() Options {
	return Options{
		DampingFactor:   0.05,
		EnableRotate:    true,
		EnableZoom:      true,
		EnablePan:       true,
		MinDistance:     0,
		MaxDistance:     math32.Inf(1),
		MinPolarAngle:   0,
		MaxPolarAngle:   math32.Pi,
		AutoRotateSpeed: 2,
		RotateSpeed:     1,
		ZoomSpeed:       1,
	}
}

// Validate reports inverted ranges.
func (o Options) Validate() error {
	if o.MinDistance > o.MaxDistance {
		return fmt.Errorf("distance [%g, %g]: %w", o.MinDistance, o.MaxDistance, ErrInvalidRange)
	}
	if o.MinPolarAngle > o.MaxPolarAngle {
		return fmt.Errorf("polar angle [%g, %g]: %w", o.MinPolarAngle, o.MaxPolarAngle, ErrInvalidRange)
	}
	return nil
}

// spherical coordinates with Y up: phi from +Y, theta around Y from +Z.
type spherical struct {
	radius, phi, theta float32
}

func fromVector(v mgl32.Vec3) spherical {
	r := v.Len()
	if r == 0 {
		return spherical{}
	}
	return spherical{
		radius: r,
		theta:  math32.Atan2(v.X(), v.Z()),
		phi:    math32.Acos(math32.Max(-1, math32.Min(1, v.Y()/r))),
	}
}

func (s spherical) vector() mgl32.Vec3 {
	sinPhi := math32.Sin(s.phi) * s.radius
	return mgl32.Vec3{
		sinPhi * math32.Sin(s.theta),
		math32.Cos(s.phi) * s.radius,
		sinPhi * math32.Cos(s.theta),
	}
}

// Orbit rotates and dollies a camera around a fixed target. Input methods only
// accumulate motion; Update applies it and must run once after configuration
// and once per frame.
type Orbit struct {
	cam  *camera.Perspective
	opts Options

	state     spherical
	delta     spherical
	scale     float32
	panOffset mgl32.Vec3
}

// New binds controls to cam.
func New(cam *camera.Perspective, opts Options) (*Orbit, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	o := &Orbit{cam: cam, opts: opts, scale: 1}
	o.state = fromVector(cam.Position.Sub(opts.Target))
	return o, nil
}

// Options returns the current configuration. Target follows panning.
func (o *Orbit) Options() Options { return o.opts }

// Target returns the orbit centre.
func (o *Orbit) Target() mgl32.Vec3 { return o.opts.Target }

// Distance returns the camera distance to the target as of the last Update.
func (o *Orbit) Distance() float32 { return o.state.radius }

// PolarAngle returns the angle from the up axis as of the last Update.
func (o *Orbit) PolarAngle() float32 { return o.state.phi }

// AzimuthalAngle returns the angle around the up axis as of the last Update.
func (o *Orbit) AzimuthalAngle() float32 { return o.state.theta }

// Rotate queues a drag of dx, dy pixels on a surface height pixels tall.
func (o *Orbit) Rotate(dx, dy, height float32) {
	if !o.opts.EnableRotate || height <= 0 || !finite(dx, dy) {
		return
	}
	o.delta.theta -= 2 * math32.Pi * dx / height * o.opts.RotateSpeed
	o.delta.phi -= 2 * math32.Pi * dy / height * o.opts.RotateSpeed
}

// Dolly queues a zoom of delta scroll steps; positive moves towards the target.
func (o *Orbit) Dolly(delta float32) {
	if !o.opts.EnableZoom || delta == 0 || math32.IsNaN(delta) {
		return
	}
	step := math32.Pow(0.95, o.opts.ZoomSpeed*math32.Abs(delta))
	if delta > 0 {
		o.scale *= step
	} else {
		o.scale /= step
	}
}

// Pan queues a sideways move of dx, dy pixels on a surface height pixels tall.
// It does nothing when panning is disabled.
func (o *Orbit) Pan(dx, dy, height float32) {
	if !o.opts.EnablePan || height <= 0 || !finite(dx, dy) {
		return
	}
	offset := o.cam.Position.Sub(o.opts.Target)
	span := offset.Len() * math32.Tan(mgl32.DegToRad(o.cam.FOV())/2)
	forward := offset.Mul(-1)
	if forward.Len() == 0 {
		return
	}
	right := forward.Cross(o.cam.Up).Normalize()
	up := right.Cross(forward).Normalize()
	o.panOffset = o.panOffset.
		Sub(right.Mul(2 * dx * span / height)).
		Add(up.Mul(2 * dy * span / height))
}

// Update applies queued motion, clamps it and moves the camera. It returns
// whether the camera moved.
func (o *Orbit) Update() bool {
	before := o.cam.Position
	s := fromVector(o.cam.Position.Sub(o.opts.Target))

	if o.opts.AutoRotate {
		o.delta.theta -= 2 * math32.Pi / 60 / 60 * o.opts.AutoRotateSpeed
	}

	factor := float32(1)
	if o.opts.EnableDamping {
		factor = o.opts.DampingFactor
	}
	s.theta += o.delta.theta * factor
	s.phi += o.delta.phi * factor

	s.phi = clamp(s.phi, polarEpsilon, math32.Pi-polarEpsilon)
	s.phi = clamp(s.phi, o.opts.MinPolarAngle, o.opts.MaxPolarAngle)
	s.radius = clamp(s.radius*o.scale, o.opts.MinDistance, o.opts.MaxDistance)

	o.opts.Target = o.opts.Target.Add(o.panOffset.Mul(factor))

	o.cam.Position = o.opts.Target.Add(s.vector())
	o.cam.LookAt(o.opts.Target)
	o.state = s

	if o.opts.EnableDamping {
		o.delta.theta *= 1 - o.opts.DampingFactor
		o.delta.phi *= 1 - o.opts.DampingFactor
		o.panOffset = o.panOffset.Mul(1 - o.opts.DampingFactor)
	} else {
		o.delta = spherical{}
		o.panOffset = mgl32.Vec3{}
	}
	o.scale = 1

	return before.Sub(o.cam.Position).Len() > moveEpsilon
}

func clamp(x, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, x))
}

func finite(vs ...float32) bool {
	for _, v := range vs {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}
