package scene

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// FloatsPerVertex is the interleaved layout size: position, normal, uv.
const FloatsPerVertex = 8

// Geometry is an indexed triangle list.
type Geometry struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int { return len(g.Positions) }

// RotateX bakes a rotation of angle radians about the X axis into the
// positions and normals.
func (g *Geometry) RotateX(angle float32) {
	g.apply(mgl32.Rotate3DX(angle))
}

func (g *Geometry) apply(m mgl32.Mat3) {
	for i, p := range g.Positions {
		g.Positions[i] = m.Mul3x1(p)
	}
	for i, n := range g.Normals {
		g.Normals[i] = m.Mul3x1(n).Normalize()
	}
}

// ComputeNormals replaces the normals with area weighted vertex normals.
func (g *Geometry) ComputeNormals() {
	normals := make([]mgl32.Vec3, len(g.Positions))
	for i := 0; i+2 < len(g.Indices); i += 3 {
		a, b, c := g.Indices[i], g.Indices[i+1], g.Indices[i+2]
		if int(a) >= len(normals) || int(b) >= len(normals) || int(c) >= len(normals) {
			continue
		}
		pa, pb, pc := g.Positions[a], g.Positions[b], g.Positions[c]
		face := pc.Sub(pb).Cross(pa.Sub(pb))
		normals[a] = normals[a].Add(face)
		normals[b] = normals[b].Add(face)
		normals[c] = normals[c].Add(face)
	}
	for i, n := range normals {
		if n.Len() > 0 {
			normals[i] = n.Normalize()
		}
	}
	g.Normals = normals
}

// Bounds returns the axis aligned bounding box of the positions.
func (g *Geometry) Bounds() (min, max mgl32.Vec3) {
	if len(g.Positions) == 0 {
		return
	}
	min, max = g.Positions[0], g.Positions[0]
	for _, p := range g.Positions[1:] {
		for k := 0; k < 3; k++ {
			min[k] = math32.Min(min[k], p[k])
			max[k] = math32.Max(max[k], p[k])
		}
	}
	return min, max
}

// Interleaved packs the vertices as FloatsPerVertex floats each. Missing
// normals or uvs are written as zeros.
func (g *Geometry) Interleaved() []float32 {
	out := make([]float32, 0, len(g.Positions)*FloatsPerVertex)
	for i, p := range g.Positions {
		var n mgl32.Vec3
		var uv mgl32.Vec2
		if i < len(g.Normals) {
			n = g.Normals[i]
		}
		if i < len(g.UVs) {
			uv = g.UVs[i]
		}
		out = append(out, p[0], p[1], p[2], n[0], n[1], n[2], uv[0], uv[1])
	}
	return out
}

// Side selects which faces of a mesh are shaded.
type Side int

const (
	FrontSide Side = iota
	DoubleSide
)

// Material is a metallic/roughness surface description.
type Material struct {
	// Color is the linear base color.
	Color mgl32.Vec4
	// Map is an optional sRGB base color texture.
	Map       image.Image
	Side      Side
	Metallic  float32
	Roughness float32
}

// NewStandardMaterial returns an opaque, fully rough material of the sRGB
// color hex.
func NewStandardMaterial(hex uint32) *Material {
	return &Material{Color: Hex(hex).Vec4(1), Roughness: 1}
}

// Mesh pairs geometry with a material.
type Mesh struct {
	Geometry *Geometry
	Material *Material
}

// Hex converts a 0xRRGGBB sRGB color into linear RGB.
func Hex(hex uint32) mgl32.Vec3 {
	r := float32((hex>>16)&0xff) / 255
	g := float32((hex>>8)&0xff) / 255
	b := float32(hex&0xff) / 255
	return mgl32.Vec3{SRGBToLinear(r), SRGBToLinear(g), SRGBToLinear(b)}
}

// SRGBToLinear decodes one sRGB channel.
func SRGBToLinear(c float32) float32 {
	if c < 0.04045 {
		return c * 0.0773993808
	}
	return math32.Pow(c*0.9478672986+0.0521327014, 2.4)
}
