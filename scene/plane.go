package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// NewPlane builds a width x height plane centred on the origin in the XY
// plane, facing +Z, split into widthSegments x heightSegments quads.
// Segment counts below one are treated as one.
func NewPlane(width, height float32, widthSegments, heightSegments int) *Geometry {
	gridX := max(widthSegments, 1)
	gridY := max(heightSegments, 1)
	gridX1, gridY1 := gridX+1, gridY+1
	segW := width / float32(gridX)
	segH := height / float32(gridY)

	g := &Geometry{
		Positions: make([]mgl32.Vec3, 0, gridX1*gridY1),
		Normals:   make([]mgl32.Vec3, 0, gridX1*gridY1),
		UVs:       make([]mgl32.Vec2, 0, gridX1*gridY1),
		Indices:   make([]uint32, 0, gridX*gridY*6),
	}
	for iy := 0; iy < gridY1; iy++ {
		y := float32(iy)*segH - height/2
		for ix := 0; ix < gridX1; ix++ {
			x := float32(ix)*segW - width/2
			g.Positions = append(g.Positions, mgl32.Vec3{x, -y, 0})
			g.Normals = append(g.Normals, mgl32.Vec3{0, 0, 1})
			g.UVs = append(g.UVs, mgl32.Vec2{float32(ix) / float32(gridX), 1 - float32(iy)/float32(gridY)})
		}
	}
	for iy := 0; iy < gridY; iy++ {
		for ix := 0; ix < gridX; ix++ {
			a := uint32(ix + gridX1*iy)
			b := uint32(ix + gridX1*(iy+1))
			c := uint32(ix + 1 + gridX1*(iy+1))
			d := uint32(ix + 1 + gridX1*iy)
			g.Indices = append(g.Indices, a, b, d, b, c, d)
		}
	}
	return g
}
