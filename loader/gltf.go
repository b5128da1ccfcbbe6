package loader

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"net/url"
	"path"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	_ "golang.org/x/image/webp"

	"github.com/toxichemicals/GO/showroom/scene"
)

const (
	attrPosition = "POSITION"
	attrNormal   = "NORMAL"
	attrTexCoord = "TEXCOORD_0"
)

var identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// builder instantiates one document as a scene graph. Meshes, materials and
// images referenced from several nodes are decoded once and shared.
type builder struct {
	doc    *gltf.Document
	fsys   fs.FS
	logger *slog.Logger

	g         *scene.Graph
	meshes    map[int][]*scene.Mesh
	materials map[int]*scene.Material
	images    map[int]image.Image
	visiting  map[int]bool
}

func newBuilder(doc *gltf.Document, fsys fs.FS, logger *slog.Logger) *builder {
	return &builder{
		doc:       doc,
		fsys:      fsys,
		logger:    logger,
		meshes:    make(map[int][]*scene.Mesh),
		materials: make(map[int]*scene.Material),
		images:    make(map[int]image.Image),
		visiting:  make(map[int]bool),
	}
}

func (b *builder) build(name string) (*scene.Graph, error) {
	if len(b.doc.Scenes) == 0 {
		return nil, ErrNoScene
	}
	index := 0
	if b.doc.Scene != nil {
		index = *b.doc.Scene
	}
	if index < 0 || index >= len(b.doc.Scenes) {
		return nil, fmt.Errorf("%w: scene %d of %d", ErrNoScene, index, len(b.doc.Scenes))
	}
	sc := b.doc.Scenes[index]
	if sc.Name != "" {
		name = sc.Name
	}
	b.g = scene.NewGraph(name)
	for _, n := range sc.Nodes {
		if err := b.node(b.g.Root(), n); err != nil {
			return nil, err
		}
	}
	return b.g, nil
}

func (b *builder) node(parent scene.NodeID, index int) error {
	if index < 0 || index >= len(b.doc.Nodes) {
		return fmt.Errorf("%w: node %d of %d", ErrMalformed, index, len(b.doc.Nodes))
	}
	if b.visiting[index] {
		return fmt.Errorf("%w: node %d is its own ancestor", ErrMalformed, index)
	}
	b.visiting[index] = true
	defer delete(b.visiting, index)

	src := b.doc.Nodes[index]
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("node%d", index)
	}
	n := scene.NewGroup(name)
	n.Transform = transformOf(src)

	var prims []*scene.Mesh
	if src.Mesh != nil {
		var err error
		if prims, err = b.mesh(*src.Mesh); err != nil {
			return fmt.Errorf("node %q: %w", name, err)
		}
	}
	if len(prims) == 1 {
		n.Kind, n.Mesh = scene.KindMesh, prims[0]
	}
	id, err := b.g.Add(parent, n)
	if err != nil {
		return err
	}
	if len(prims) > 1 {
		for i, m := range prims {
			if _, err := b.g.Add(id, scene.NewMeshNode(fmt.Sprintf("%s.%d", name, i), m)); err != nil {
				return err
			}
		}
	}
	for _, c := range src.Children {
		if err := b.node(id, c); err != nil {
			return err
		}
	}
	return nil
}

func transformOf(n *gltf.Node) scene.Transform {
	if m := n.MatrixOrDefault(); m != identityMatrix {
		var mat mgl32.Mat4
		for i, v := range m {
			mat[i] = float32(v)
		}
		return decompose(mat)
	}
	t := scene.Identity()
	tr := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	t.Position = mgl32.Vec3{float32(tr[0]), float32(tr[1]), float32(tr[2])}
	t.Rotation = mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	t.Scale = mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])}
	return t
}

// decompose splits an affine column major matrix into translation, rotation
// and scale. Shear is lost.
func decompose(m mgl32.Mat4) scene.Transform {
	t := scene.Identity()
	t.Position = m.Col(3).Vec3()
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	if m.Mat3().Det() < 0 {
		sx = -sx
	}
	t.Scale = mgl32.Vec3{sx, sy, sz}
	if sx == 0 || sy == 0 || sz == 0 {
		return t
	}
	rot := mgl32.Ident4()
	rot.SetCol(0, m.Col(0).Mul(1/sx))
	rot.SetCol(1, m.Col(1).Mul(1/sy))
	rot.SetCol(2, m.Col(2).Mul(1/sz))
	rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
	t.Rotation = mgl32.Mat4ToQuat(rot).Normalize()
	return t
}

func (b *builder) mesh(index int) ([]*scene.Mesh, error) {
	if m, ok := b.meshes[index]; ok {
		return m, nil
	}
	if index < 0 || index >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("%w: mesh %d of %d", ErrMalformed, index, len(b.doc.Meshes))
	}
	src := b.doc.Meshes[index]
	var out []*scene.Mesh
	for i, p := range src.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			b.logger.Warn("skipping non triangle primitive", "mesh", src.Name, "primitive", i, "mode", p.Mode)
			continue
		}
		geo, err := b.geometry(p)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", src.Name, i, err)
		}
		out = append(out, &scene.Mesh{Geometry: geo, Material: b.material(p.Material)})
	}
	b.meshes[index] = out
	return out, nil
}

func (b *builder) accessor(index int) (*gltf.Accessor, error) {
	if index < 0 || index >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d of %d", ErrMalformed, index, len(b.doc.Accessors))
	}
	return b.doc.Accessors[index], nil
}

func (b *builder) geometry(p *gltf.Primitive) (*scene.Geometry, error) {
	pi, ok := p.Attributes[attrPosition]
	if !ok {
		return nil, fmt.Errorf("%w: primitive has no %s", ErrMalformed, attrPosition)
	}
	acr, err := b.accessor(pi)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(b.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}
	geo := &scene.Geometry{Positions: make([]mgl32.Vec3, len(positions))}
	for i, v := range positions {
		geo.Positions[i] = mgl32.Vec3(v)
	}

	if ni, ok := p.Attributes[attrNormal]; ok {
		acr, err := b.accessor(ni)
		if err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(b.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
		geo.Normals = make([]mgl32.Vec3, len(normals))
		for i, v := range normals {
			geo.Normals[i] = mgl32.Vec3(v)
		}
	}

	if ti, ok := p.Attributes[attrTexCoord]; ok {
		acr, err := b.accessor(ti)
		if err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(b.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read texture coordinates: %w", err)
		}
		geo.UVs = make([]mgl32.Vec2, len(uvs))
		for i, v := range uvs {
			geo.UVs[i] = mgl32.Vec2(v)
		}
	}

	if p.Indices != nil {
		acr, err := b.accessor(*p.Indices)
		if err != nil {
			return nil, err
		}
		if geo.Indices, err = modeler.ReadIndices(b.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
	} else {
		geo.Indices = make([]uint32, len(geo.Positions))
		for i := range geo.Indices {
			geo.Indices[i] = uint32(i)
		}
	}
	for _, i := range geo.Indices {
		if int(i) >= len(geo.Positions) {
			return nil, fmt.Errorf("%w: index %d past %d vertices", ErrMalformed, i, len(geo.Positions))
		}
	}

	if len(geo.Normals) != len(geo.Positions) {
		geo.ComputeNormals()
	}
	return geo, nil
}

func (b *builder) material(index *int) *scene.Material {
	if index == nil || *index < 0 || *index >= len(b.doc.Materials) {
		return scene.NewStandardMaterial(0xffffff)
	}
	if m, ok := b.materials[*index]; ok {
		return m
	}
	src := b.doc.Materials[*index]
	out := &scene.Material{Color: mgl32.Vec4{1, 1, 1, 1}, Metallic: 1, Roughness: 1}
	if src.DoubleSided {
		out.Side = scene.DoubleSide
	}
	if pbr := src.PBRMetallicRoughness; pbr != nil {
		c := pbr.BaseColorFactorOrDefault()
		out.Color = mgl32.Vec4{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}
		out.Metallic = float32(pbr.MetallicFactorOrDefault())
		out.Roughness = float32(pbr.RoughnessFactorOrDefault())
		if pbr.BaseColorTexture != nil {
			out.Map = b.texture(pbr.BaseColorTexture.Index)
		}
	}
	b.materials[*index] = out
	return out
}

// texture returns nil when the image cannot be read; the material then falls
// back to its base color.
func (b *builder) texture(index int) image.Image {
	if index < 0 || index >= len(b.doc.Textures) || b.doc.Textures[index].Source == nil {
		return nil
	}
	source := *b.doc.Textures[index].Source
	if img, ok := b.images[source]; ok {
		return img
	}
	img, err := b.image(source)
	if err != nil {
		b.logger.Warn("texture not loaded", "texture", index, "image", source, "err", err)
	}
	b.images[source] = img
	return img
}

func (b *builder) image(index int) (image.Image, error) {
	if index < 0 || index >= len(b.doc.Images) {
		return nil, fmt.Errorf("%w: image %d of %d", ErrMalformed, index, len(b.doc.Images))
	}
	src := b.doc.Images[index]
	var data []byte
	var err error
	switch {
	case src.BufferView != nil:
		data, err = b.bufferView(*src.BufferView)
	case src.IsEmbeddedResource():
		data, err = src.MarshalData()
	case src.URI != "":
		var name string
		if name, err = url.PathUnescape(src.URI); err == nil {
			data, err = fs.ReadFile(b.fsys, path.Clean(name))
		}
	default:
		err = fmt.Errorf("%w: image %d has no source", ErrMalformed, index)
	}
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image %d: %w", index, err)
	}
	return img, nil
}

func (b *builder) bufferView(index int) ([]byte, error) {
	if index < 0 || index >= len(b.doc.BufferViews) {
		return nil, fmt.Errorf("%w: buffer view %d of %d", ErrMalformed, index, len(b.doc.BufferViews))
	}
	bv := b.doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(b.doc.Buffers) {
		return nil, fmt.Errorf("%w: buffer %d of %d", ErrMalformed, bv.Buffer, len(b.doc.Buffers))
	}
	data := b.doc.Buffers[bv.Buffer].Data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(data) {
		return nil, fmt.Errorf("%w: buffer view %d out of range", ErrMalformed, index)
	}
	return data[bv.ByteOffset:end], nil
}
