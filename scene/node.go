package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Kind tells what a node carries.
type Kind int

const (
	KindGroup Kind = iota
	KindMesh
	KindSpotLight
	KindAmbientLight
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindMesh:
		return "mesh"
	case KindSpotLight:
		return "spot"
	case KindAmbientLight:
		return "ambient"
	}
	return "unknown"
}

// Transform is a local translation, rotation and scale.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// Identity returns the transform that leaves a node where its parent is.
func Identity() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// SetScale sets a uniform scale.
func (t *Transform) SetScale(s float32) {
	t.Scale = mgl32.Vec3{s, s, s}
}

// Matrix composes translation * rotation * scale.
func (t Transform) Matrix() mgl32.Mat4 {
	m := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	m = m.Mul4(t.Rotation.Normalize().Mat4())
	return m.Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

// Node is one element of the scene graph.
type Node struct {
	Name      string
	Kind      Kind
	Transform Transform
	Visible   bool

	CastShadow    bool
	ReceiveShadow bool

	Mesh    *Mesh
	Spot    *SpotLight
	Ambient *AmbientLight

	children []NodeID
	used     bool
}

// NewGroup returns an empty visible group node.
func NewGroup(name string) Node {
	return Node{Name: name, Kind: KindGroup, Transform: Identity(), Visible: true}
}

// NewMeshNode returns a visible node drawing m.
func NewMeshNode(name string, m *Mesh) Node {
	return Node{Name: name, Kind: KindMesh, Transform: Identity(), Visible: true, Mesh: m}
}

// NewSpotNode returns a visible node holding a spot light.
func NewSpotNode(name string, l *SpotLight) Node {
	return Node{Name: name, Kind: KindSpotLight, Transform: Identity(), Visible: true, Spot: l}
}

// NewAmbientNode returns a visible node holding an ambient light.
func NewAmbientNode(name string, l *AmbientLight) Node {
	return Node{Name: name, Kind: KindAmbientLight, Transform: Identity(), Visible: true, Ambient: l}
}

// IsMesh reports whether the node draws geometry.
func (n *Node) IsMesh() bool { return n.Kind == KindMesh && n.Mesh != nil }

// Children returns a copy of the child ids in draw order.
func (n *Node) Children() []NodeID {
	out := make([]NodeID, len(n.children))
	copy(out, n.children)
	return out
}
