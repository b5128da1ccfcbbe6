// Package scene holds the scene graph: an arena of nodes where every parent
// exclusively owns its children and nodes carry no reference to their parent.
package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// NodeID addresses a node inside a Graph.
type NodeID int

// Nil is the id of no node.
const Nil NodeID = -1

var (
	// ErrNoNode is returned when an id does not address a live node.
	ErrNoNode = errors.New("scene: no such node")
	// ErrRoot is returned when trying to remove the root node.
	ErrRoot = errors.New("scene: cannot remove the root node")
)

// Graph is a tree of nodes stored in a flat slice. The root is created with the
// graph and lives for as long as the graph does.
//
// Pointers returned by Node stay valid only until the next call that adds
// nodes to the graph.
type Graph struct {
	nodes []Node
	free  []NodeID
	root  NodeID
	live  int
}

// NewGraph returns a graph holding only an empty root group named name.
func NewGraph(name string) *Graph {
	g := &Graph{}
	g.root = g.alloc(NewGroup(name))
	return g
}

// Root returns the id of the root node.
func (g *Graph) Root() NodeID { return g.root }

// Len returns the number of live nodes, root included.
func (g *Graph) Len() int { return g.live }

// Node returns the node addressed by id, or nil if id is not live.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) || !g.nodes[id].used {
		return nil
	}
	return &g.nodes[id]
}

func (g *Graph) alloc(n Node) NodeID {
	n.used = true
	n.children = nil
	g.live++
	if k := len(g.free); k > 0 {
		id := g.free[k-1]
		g.free = g.free[:k-1]
		g.nodes[id] = n
		return id
	}
	g.nodes = append(g.nodes, n)
	return NodeID(len(g.nodes) - 1)
}

// Add creates a copy of n as the last child of parent and returns its id.
// Children listed in n are ignored.
func (g *Graph) Add(parent NodeID, n Node) (NodeID, error) {
	if g.Node(parent) == nil {
		return Nil, fmt.Errorf("add %q under %d: %w", n.Name, parent, ErrNoNode)
	}
	id := g.alloc(n)
	p := &g.nodes[parent]
	p.children = append(p.children, id)
	return id, nil
}

// Parent returns the parent of id, or Nil for the root and for dead ids.
// Nodes do not store their parent, so this scans the arena.
func (g *Graph) Parent(id NodeID) NodeID {
	if g.Node(id) == nil {
		return Nil
	}
	for i := range g.nodes {
		if !g.nodes[i].used {
			continue
		}
		for _, c := range g.nodes[i].children {
			if c == id {
				return NodeID(i)
			}
		}
	}
	return Nil
}

// Remove detaches id from its parent and frees its whole subtree.
func (g *Graph) Remove(id NodeID) error {
	if id == g.root {
		return ErrRoot
	}
	if g.Node(id) == nil {
		return fmt.Errorf("remove %d: %w", id, ErrNoNode)
	}
	if p := g.Parent(id); p != Nil {
		kids := g.nodes[p].children
		for i, c := range kids {
			if c == id {
				g.nodes[p].children = append(kids[:i:i], kids[i+1:]...)
				break
			}
		}
	}
	g.release(id)
	return nil
}

func (g *Graph) release(id NodeID) {
	for _, c := range g.nodes[id].children {
		g.release(c)
	}
	g.nodes[id] = Node{}
	g.free = append(g.free, id)
	g.live--
}

// Graft copies the subtree of src rooted at from under parent in g and returns
// the id of the copied subtree root. Meshes and lights are shared, not cloned.
func (g *Graph) Graft(parent NodeID, src *Graph, from NodeID) (NodeID, error) {
	if g.Node(parent) == nil {
		return Nil, fmt.Errorf("graft under %d: %w", parent, ErrNoNode)
	}
	n := src.Node(from)
	if n == nil {
		return Nil, fmt.Errorf("graft source %d: %w", from, ErrNoNode)
	}
	kids := n.Children()
	id, err := g.Add(parent, *n)
	if err != nil {
		return Nil, err
	}
	for _, c := range kids {
		if _, err := g.Graft(id, src, c); err != nil {
			return Nil, err
		}
	}
	return id, nil
}

// ChildCount returns the number of direct children of id.
func (g *Graph) ChildCount(id NodeID) int {
	n := g.Node(id)
	if n == nil {
		return 0
	}
	return len(n.children)
}

// Traverse calls fn for id and every descendant, depth first, parents before
// children. Returning false from fn skips the children of that node.
func (g *Graph) Traverse(id NodeID, fn func(NodeID, *Node) bool) {
	n := g.Node(id)
	if n == nil {
		return
	}
	if !fn(id, n) {
		return
	}
	// fn may have added nodes and moved the arena.
	for _, c := range g.nodes[id].Children() {
		g.Traverse(c, fn)
	}
}

// Contains reports whether id is reachable from the root.
func (g *Graph) Contains(id NodeID) bool {
	found := false
	g.Traverse(g.root, func(n NodeID, _ *Node) bool {
		if n == id {
			found = true
		}
		return !found
	})
	return found
}

// Walk visits every visible node reachable from the root along with its world
// matrix. Invisible nodes hide their whole subtree.
func (g *Graph) Walk(fn func(id NodeID, n *Node, world mgl32.Mat4)) {
	g.walk(g.root, mgl32.Ident4(), fn)
}

func (g *Graph) walk(id NodeID, parent mgl32.Mat4, fn func(NodeID, *Node, mgl32.Mat4)) {
	n := g.Node(id)
	if n == nil || !n.Visible {
		return
	}
	world := parent.Mul4(n.Transform.Matrix())
	fn(id, n, world)
	for _, c := range n.children {
		g.walk(c, world, fn)
	}
}
