// Package core is the GLFW and OpenGL 4.1 backend of the showroom: the window
// that hosts the frame loop and the renderer that draws a scene graph.
package core

import (
	"fmt"
	"image"
	"log/slog"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/toxichemicals/GO/showroom/camera"
	"github.com/toxichemicals/GO/showroom/config"
	"github.com/toxichemicals/GO/showroom/scene"
)

// meshBuffers holds the uploaded geometry of one scene.Geometry.
type meshBuffers struct {
	vao, vbo, ebo uint32
	count         int32
	indexed       bool
}

// drawItem is a mesh together with its world matrix for one frame.
type drawItem struct {
	node  *scene.Node
	world mgl32.Mat4
}

// Renderer draws scene graphs with OpenGL. It must be created and used on the
// goroutine that owns the GL context.
type Renderer struct {
	width, height int
	ratio         float32
	clear         mgl32.Vec3
	shadows       bool

	lit   uniforms
	depth uniforms

	shadowFBO  uint32
	shadowTex  uint32
	shadowSize int32

	meshes   map[*scene.Geometry]*meshBuffers
	textures map[image.Image]uint32
	// failed remembers images that could not be uploaded.
	failed map[image.Image]bool

	items  []drawItem
	logger *slog.Logger
}

// NewRenderer initializes GL on the current context and compiles the
// programs.
func NewRenderer(cfg config.Renderer, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	logger.Info("OpenGL initialized", "version", gl.GoStr(gl.GetString(gl.VERSION)), "renderer", gl.GoStr(gl.GetString(gl.RENDERER)))

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.FRAMEBUFFER_SRGB)
	gl.Enable(gl.MULTISAMPLE)
	gl.CullFace(gl.BACK)

	r := &Renderer{
		ratio:    1,
		clear:    scene.Hex(cfg.ClearColor),
		shadows:  cfg.Shadows,
		meshes:   make(map[*scene.Geometry]*meshBuffers),
		textures: make(map[image.Image]uint32),
		failed:   make(map[image.Image]bool),
		logger:   logger,
	}

	program, err := compileShader(litVertexSource, litFragmentSource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shaders: %w", err)
	}
	r.lit = newUniforms(program,
		"model", "normalMatrix", "view", "projection", "lightSpace",
		"baseColor", "metallic", "roughness", "hasMap", "baseMap",
		"cameraPos", "ambient",
		"spotEnabled", "spotPosition", "spotDirection", "spotColor",
		"spotDistance", "spotDecay", "spotConeCos", "spotPenumbraCos",
		"receiveShadow", "shadowEnabled", "shadowBias", "shadowMap",
	)

	program, err = compileShader(depthVertexSource, depthFragmentSource)
	if err != nil {
		gl.DeleteProgram(r.lit.program)
		return nil, fmt.Errorf("failed to compile depth shaders: %w", err)
	}
	r.depth = newUniforms(program, "lightSpace", "model")

	if r.shadows {
		r.shadowSize = int32(cfg.ShadowMapSize)
		if r.shadowFBO, r.shadowTex, err = newShadowMap(r.shadowSize); err != nil {
			r.Dispose()
			return nil, err
		}
	}
	return r, nil
}

// SetSize sets the drawing size in screen coordinates.
func (r *Renderer) SetSize(width, height int) {
	r.width, r.height = width, height
}

// Size returns the drawing size in screen coordinates.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// SetPixelRatio sets the framebuffer pixels per screen coordinate.
func (r *Renderer) SetPixelRatio(ratio float32) {
	if ratio <= 0 {
		ratio = 1
	}
	r.ratio = ratio
}

func (r *Renderer) viewport() (int32, int32) {
	return int32(float32(r.width) * r.ratio), int32(float32(r.height) * r.ratio)
}

// Render draws g as seen through cam into the default framebuffer.
func (r *Renderer) Render(g *scene.Graph, cam *camera.Perspective) {
	r.items = r.items[:0]
	var (
		spot      *scene.SpotLight
		spotPos   mgl32.Vec3
		ambient   mgl32.Vec3
		castShade bool
	)
	g.Walk(func(_ scene.NodeID, n *scene.Node, world mgl32.Mat4) {
		switch {
		case n.IsMesh():
			r.items = append(r.items, drawItem{node: n, world: world})
			castShade = castShade || n.CastShadow
		case n.Kind == scene.KindSpotLight && n.Spot != nil && spot == nil:
			spot = n.Spot
			spotPos = world.Col(3).Vec3()
		case n.Kind == scene.KindAmbientLight && n.Ambient != nil:
			ambient = ambient.Add(n.Ambient.Radiance())
		}
	})

	lightSpace := mgl32.Ident4()
	shadowed := r.shadows && spot != nil && spot.CastShadow && castShade
	if spot != nil {
		view, proj := spot.ShadowMatrices(spotPos)
		lightSpace = proj.Mul4(view)
	}
	if shadowed {
		r.shadowPass(lightSpace)
	}

	w, h := r.viewport()
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, w, h)
	gl.ClearColor(r.clear[0], r.clear[1], r.clear[2], 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	u := r.lit
	gl.UseProgram(u.program)
	view, proj := cam.View(), cam.Projection()
	gl.UniformMatrix4fv(u.get("view"), 1, false, &view[0])
	gl.UniformMatrix4fv(u.get("projection"), 1, false, &proj[0])
	gl.UniformMatrix4fv(u.get("lightSpace"), 1, false, &lightSpace[0])
	gl.Uniform3fv(u.get("cameraPos"), 1, &cam.Position[0])
	gl.Uniform3fv(u.get("ambient"), 1, &ambient[0])

	gl.Uniform1i(u.get("spotEnabled"), boolInt(spot != nil))
	if spot != nil {
		dir := spot.Target.Sub(spotPos)
		if dir.Len() == 0 {
			dir = mgl32.Vec3{0, -1, 0}
		}
		dir = dir.Normalize()
		radiance := spot.Color.Mul(spot.Intensity)
		gl.Uniform3fv(u.get("spotPosition"), 1, &spotPos[0])
		gl.Uniform3fv(u.get("spotDirection"), 1, &dir[0])
		gl.Uniform3fv(u.get("spotColor"), 1, &radiance[0])
		gl.Uniform1f(u.get("spotDistance"), spot.Distance)
		gl.Uniform1f(u.get("spotDecay"), spot.Decay)
		gl.Uniform1f(u.get("spotConeCos"), spot.ConeCos())
		gl.Uniform1f(u.get("spotPenumbraCos"), spot.PenumbraCos())
		gl.Uniform1f(u.get("shadowBias"), spot.ShadowBias)
	}
	gl.Uniform1i(u.get("shadowEnabled"), boolInt(shadowed))
	gl.Uniform1i(u.get("baseMap"), 0)
	gl.Uniform1i(u.get("shadowMap"), 1)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, r.shadowTex)

	for _, it := range r.items {
		r.drawLit(it)
	}
	gl.BindVertexArray(0)
}

func (r *Renderer) shadowPass(lightSpace mgl32.Mat4) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, r.shadowFBO)
	gl.Viewport(0, 0, r.shadowSize, r.shadowSize)
	gl.Clear(gl.DEPTH_BUFFER_BIT)
	gl.Disable(gl.CULL_FACE)

	u := r.depth
	gl.UseProgram(u.program)
	gl.UniformMatrix4fv(u.get("lightSpace"), 1, false, &lightSpace[0])
	for _, it := range r.items {
		if !it.node.CastShadow {
			continue
		}
		b := r.upload(it.node.Mesh.Geometry)
		if b == nil {
			continue
		}
		gl.UniformMatrix4fv(u.get("model"), 1, false, &it.world[0])
		b.draw()
	}
}

func (r *Renderer) drawLit(it drawItem) {
	mesh := it.node.Mesh
	b := r.upload(mesh.Geometry)
	if b == nil {
		return
	}
	u := r.lit
	normal := it.world.Mat3().Inv().Transpose()
	gl.UniformMatrix4fv(u.get("model"), 1, false, &it.world[0])
	gl.UniformMatrix3fv(u.get("normalMatrix"), 1, false, &normal[0])
	gl.Uniform1i(u.get("receiveShadow"), boolInt(it.node.ReceiveShadow))

	mat := mesh.Material
	if mat == nil {
		mat = scene.NewStandardMaterial(0xffffff)
	}
	gl.Uniform4fv(u.get("baseColor"), 1, &mat.Color[0])
	gl.Uniform1f(u.get("metallic"), mat.Metallic)
	gl.Uniform1f(u.get("roughness"), mat.Roughness)

	tex := r.texture(mat.Map)
	gl.Uniform1i(u.get("hasMap"), boolInt(tex != 0))
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex)

	if mat.Side == scene.DoubleSide {
		gl.Disable(gl.CULL_FACE)
	} else {
		gl.Enable(gl.CULL_FACE)
	}
	b.draw()
}

// upload returns the buffers of geo, uploading it on first use.
func (r *Renderer) upload(geo *scene.Geometry) *meshBuffers {
	if geo == nil || geo.VertexCount() == 0 {
		return nil
	}
	if b, ok := r.meshes[geo]; ok {
		return b
	}

	vertices := geo.Interleaved()
	b := &meshBuffers{indexed: len(geo.Indices) > 0}
	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)

	gl.GenBuffers(1, &b.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	if b.indexed {
		gl.GenBuffers(1, &b.ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(geo.Indices)*4, gl.Ptr(geo.Indices), gl.STATIC_DRAW)
		b.count = int32(len(geo.Indices))
	} else {
		b.count = int32(geo.VertexCount())
	}

	stride := int32(scene.FloatsPerVertex * 4)
	gl.VertexAttribPointer(attribPosition, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(attribPosition)
	gl.VertexAttribPointer(attribNormal, 3, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(attribNormal)
	gl.VertexAttribPointer(attribUV, 2, gl.FLOAT, false, stride, gl.PtrOffset(6*4))
	gl.EnableVertexAttribArray(attribUV)

	gl.BindVertexArray(0)
	r.meshes[geo] = b
	r.logger.Debug("uploaded mesh", "vertices", geo.VertexCount(), "indices", len(geo.Indices))
	return b
}

func (b *meshBuffers) draw() {
	gl.BindVertexArray(b.vao)
	if b.indexed {
		gl.DrawElements(gl.TRIANGLES, b.count, gl.UNSIGNED_INT, unsafe.Pointer(uintptr(0)))
		return
	}
	gl.DrawArrays(gl.TRIANGLES, 0, b.count)
}

// texture returns the GL texture of img, creating it on first use. Zero means
// no texture.
func (r *Renderer) texture(img image.Image) uint32 {
	if img == nil || r.failed[img] {
		return 0
	}
	if t, ok := r.textures[img]; ok {
		return t
	}
	t, err := newTexture(img)
	if err != nil {
		r.logger.Warn("texture upload failed", "err", err)
		r.failed[img] = true
		return 0
	}
	r.textures[img] = t
	return t
}

// Dispose releases every GL object owned by the renderer.
func (r *Renderer) Dispose() {
	for geo, b := range r.meshes {
		gl.DeleteVertexArrays(1, &b.vao)
		gl.DeleteBuffers(1, &b.vbo)
		if b.indexed {
			gl.DeleteBuffers(1, &b.ebo)
		}
		delete(r.meshes, geo)
	}
	for img, t := range r.textures {
		gl.DeleteTextures(1, &t)
		delete(r.textures, img)
	}
	if r.shadowFBO != 0 {
		gl.DeleteFramebuffers(1, &r.shadowFBO)
		gl.DeleteTextures(1, &r.shadowTex)
		r.shadowFBO, r.shadowTex = 0, 0
	}
	if r.lit.program != 0 {
		gl.DeleteProgram(r.lit.program)
		r.lit.program = 0
	}
	if r.depth.program != 0 {
		gl.DeleteProgram(r.depth.program)
		r.depth.program = 0
	}
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
