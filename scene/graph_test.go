package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraph(t *testing.T) {
	g := NewGraph("scene")
	assert.Equal(t, 1, g.Len())
	root := g.Node(g.Root())
	require.NotNil(t, root)
	assert.Equal(t, "scene", root.Name)
	assert.Equal(t, KindGroup, root.Kind)
	assert.Equal(t, 0, g.ChildCount(g.Root()))
	assert.Equal(t, Nil, g.Parent(g.Root()))
}

func TestAddAndParent(t *testing.T) {
	g := NewGraph("scene")
	a, err := g.Add(g.Root(), NewGroup("a"))
	require.NoError(t, err)
	b, err := g.Add(a, NewGroup("b"))
	require.NoError(t, err)

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, g.Root(), g.Parent(a))
	assert.Equal(t, a, g.Parent(b))
	assert.True(t, g.Contains(b))

	_, err = g.Add(NodeID(42), NewGroup("orphan"))
	assert.ErrorIs(t, err, ErrNoNode)
}

func TestRemoveDetachesSubtree(t *testing.T) {
	g := NewGraph("scene")
	a, _ := g.Add(g.Root(), NewGroup("a"))
	b, _ := g.Add(a, NewGroup("b"))
	c, _ := g.Add(b, NewGroup("c"))
	keep, _ := g.Add(g.Root(), NewGroup("keep"))

	require.NoError(t, g.Remove(a))
	assert.Equal(t, 2, g.Len())
	assert.Nil(t, g.Node(a))
	assert.Nil(t, g.Node(b))
	assert.Nil(t, g.Node(c))
	assert.Equal(t, []NodeID{keep}, g.Node(g.Root()).Children())

	assert.ErrorIs(t, g.Remove(g.Root()), ErrRoot)
	assert.ErrorIs(t, g.Remove(a), ErrNoNode)

	// freed slots are reused
	d, err := g.Add(keep, NewGroup("d"))
	require.NoError(t, err)
	assert.Equal(t, "d", g.Node(d).Name)
	assert.Equal(t, 3, g.Len())
}

func TestGraftCopiesSubtree(t *testing.T) {
	src := NewGraph("model")
	body, _ := src.Add(src.Root(), NewMeshNode("body", &Mesh{Geometry: NewPlane(1, 1, 1, 1)}))
	_, _ = src.Add(body, NewMeshNode("wheel", &Mesh{Geometry: NewPlane(1, 1, 1, 1)}))

	dst := NewGraph("scene")
	_, _ = dst.Add(dst.Root(), NewGroup("ground"))
	id, err := dst.Graft(dst.Root(), src, src.Root())
	require.NoError(t, err)

	assert.Equal(t, 2, dst.ChildCount(dst.Root()))
	assert.Equal(t, 5, dst.Len())
	assert.Equal(t, "model", dst.Node(id).Name)

	var names []string
	dst.Traverse(id, func(_ NodeID, n *Node) bool {
		names = append(names, n.Name)
		return true
	})
	assert.Equal(t, []string{"model", "body", "wheel"}, names)

	// the source is untouched
	assert.Equal(t, 3, src.Len())
}

func TestTraverseSkipsChildren(t *testing.T) {
	g := NewGraph("scene")
	a, _ := g.Add(g.Root(), NewGroup("a"))
	_, _ = g.Add(a, NewGroup("hidden"))
	_, _ = g.Add(g.Root(), NewGroup("b"))

	var names []string
	g.Traverse(g.Root(), func(_ NodeID, n *Node) bool {
		names = append(names, n.Name)
		return n.Name != "a"
	})
	assert.Equal(t, []string{"scene", "a", "b"}, names)
}

func TestWalkWorldMatrices(t *testing.T) {
	g := NewGraph("scene")
	parent := NewGroup("parent")
	parent.Transform.Position = mgl32.Vec3{0, 1, 0}
	parent.Transform.SetScale(2)
	p, _ := g.Add(g.Root(), parent)

	child := NewGroup("child")
	child.Transform.Position = mgl32.Vec3{1, 0, 0}
	c, _ := g.Add(p, child)

	hidden := NewGroup("hidden")
	hidden.Visible = false
	h, _ := g.Add(g.Root(), hidden)
	_, _ = g.Add(h, NewGroup("under-hidden"))

	worlds := map[NodeID]mgl32.Mat4{}
	g.Walk(func(id NodeID, _ *Node, world mgl32.Mat4) {
		worlds[id] = world
	})

	assert.Len(t, worlds, 3)
	got := worlds[c].Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	assert.InDelta(t, 2, got.X(), 1e-5)
	assert.InDelta(t, 1, got.Y(), 1e-5)
	assert.InDelta(t, 0, got.Z(), 1e-5)
}
