package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	defaultShadowMapSize = 512
	shadowNear           = 0.5
	shadowFar            = 500
)

// SpotLight is a cone light shining from its node position towards Target.
type SpotLight struct {
	// Color is linear RGB.
	Color     mgl32.Vec3
	Intensity float32
	// Distance is the range cutoff; zero means unlimited.
	Distance float32
	// Angle is the cone half angle in radians.
	Angle float32
	// Penumbra is the attenuated share of the cone, usually in [0, 1].
	Penumbra float32
	Decay    float32

	// Target is a world position.
	Target mgl32.Vec3

	CastShadow    bool
	ShadowBias    float32
	ShadowMapSize int
}

// NewSpotLight returns a spot light of the sRGB color hex aiming at the origin.
func NewSpotLight(hex uint32, intensity, distance, angle, penumbra, decay float32) *SpotLight {
	return &SpotLight{
		Color:         Hex(hex),
		Intensity:     intensity,
		Distance:      distance,
		Angle:         angle,
		Penumbra:      penumbra,
		Decay:         decay,
		ShadowMapSize: defaultShadowMapSize,
	}
}

// ConeCos returns the cosine of the outer cone angle.
func (s *SpotLight) ConeCos() float32 { return math32.Cos(s.Angle) }

// PenumbraCos returns the cosine of the angle at which the full intensity ends.
func (s *SpotLight) PenumbraCos() float32 { return math32.Cos(s.Angle * (1 - s.Penumbra)) }

// Attenuation returns the fraction of the light intensity reaching a point at
// distance d from the light and at angleCos from the cone axis.
func (s *SpotLight) Attenuation(d, angleCos float32) float32 {
	return smoothstep(s.ConeCos(), s.PenumbraCos(), angleCos) * s.distanceFalloff(d)
}

func (s *SpotLight) distanceFalloff(d float32) float32 {
	f := 1 / math32.Max(math32.Pow(d, s.Decay), 0.01)
	if s.Distance > 0 {
		r := d / s.Distance
		c := clamp01(1 - r*r*r*r)
		f *= c * c
	}
	return f
}

// ShadowMatrices returns the view and projection matrices of the shadow
// camera for a light placed at position.
func (s *SpotLight) ShadowMatrices(position mgl32.Vec3) (view, projection mgl32.Mat4) {
	dir := s.Target.Sub(position)
	if dir.Len() == 0 {
		dir = mgl32.Vec3{0, -1, 0}
	}
	dir = dir.Normalize()
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(dir.Dot(up)) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	far := float32(shadowFar)
	if s.Distance > 0 {
		far = s.Distance
	}
	view = mgl32.LookAtV(position, position.Add(dir), up)
	projection = mgl32.Perspective(2*s.Angle, 1, shadowNear, far)
	return view, projection
}

// AmbientLight lights every surface equally.
type AmbientLight struct {
	Color     mgl32.Vec3
	Intensity float32
}

// NewAmbientLight returns an ambient light of the sRGB color hex.
func NewAmbientLight(hex uint32, intensity float32) *AmbientLight {
	return &AmbientLight{Color: Hex(hex), Intensity: intensity}
}

// Radiance returns Color scaled by Intensity.
func (a *AmbientLight) Radiance() mgl32.Vec3 { return a.Color.Mul(a.Intensity) }

func smoothstep(lo, hi, x float32) float32 {
	if lo == hi {
		if x < lo {
			return 0
		}
		return 1
	}
	t := clamp01((x - lo) / (hi - lo))
	return t * t * (3 - 2*t)
}

func clamp01(x float32) float32 {
	return math32.Max(0, math32.Min(1, x))
}
