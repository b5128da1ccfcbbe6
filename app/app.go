// Package app builds the showroom scene and owns everything the render loop
// and the window callbacks touch.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/toxichemicals/GO/showroom/camera"
	"github.com/toxichemicals/GO/showroom/config"
	"github.com/toxichemicals/GO/showroom/controls"
	"github.com/toxichemicals/GO/showroom/loader"
	"github.com/toxichemicals/GO/showroom/scene"
)

// ErrModelAttached is returned when a second model is attached.
var ErrModelAttached = errors.New("app: model already attached")

// Renderer draws a scene graph through a camera onto a surface.
type Renderer interface {
	SetSize(width, height int)
	Size() (width, height int)
	SetPixelRatio(ratio float32)
	Render(g *scene.Graph, cam *camera.Perspective)
}

// Indicator shows model loading progress until hidden.
type Indicator interface {
	SetProgress(percent float64)
	Hide()
}

type noIndicator struct{}

func (noIndicator) SetProgress(float64) {}
func (noIndicator) Hide()               {}

// Context owns the scene, camera, controls and renderer of one window. Every
// method must be called from the render goroutine.
type Context struct {
	Config   config.Config
	Renderer Renderer
	Scene    *scene.Graph
	Camera   *camera.Perspective
	Controls *controls.Orbit

	Ground  scene.NodeID
	Spot    scene.NodeID
	Ambient scene.NodeID
	// Model is Nil until a model has been attached.
	Model scene.NodeID

	indicator Indicator
	request   *loader.Request
	logger    *slog.Logger
}

// Bootstrap configures r for a width x height viewport and builds the scene.
func Bootstrap(cfg config.Config, r Renderer, ind Indicator, width, height int, pixelRatio float32, logger *slog.Logger) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: viewport %dx%d", config.ErrInvalid, width, height)
	}
	if ind == nil {
		ind = noIndicator{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	r.SetSize(width, height)
	r.SetPixelRatio(pixelRatio)

	c := &Context{
		Config:    cfg,
		Renderer:  r,
		Scene:     scene.NewGraph("scene"),
		Model:     scene.Nil,
		indicator: ind,
		logger:    logger,
	}

	cc := cfg.Camera
	c.Camera = camera.NewPerspective(cc.FOV, float32(width)/float32(height), cc.Near, cc.Far)
	c.Camera.SetPosition(cc.Position[0], cc.Position[1], cc.Position[2])

	var err error
	if c.Controls, err = controls.New(c.Camera, orbitOptions(cfg.Controls)); err != nil {
		return nil, fmt.Errorf("orbit controls: %w", err)
	}
	c.Controls.Update()

	if err := c.addGround(); err != nil {
		return nil, err
	}
	if err := c.addLights(); err != nil {
		return nil, err
	}
	logger.Debug("scene ready", "nodes", c.Scene.Len(), "width", width, "height", height, "pixel_ratio", pixelRatio)
	return c, nil
}

func orbitOptions(cc config.Controls) controls.Options {
	o := controls.DefaultOptions()
	o.EnableDamping = cc.EnableDamping
	o.DampingFactor = cc.DampingFactor
	o.EnablePan = cc.EnablePan
	o.MinDistance = cc.MinDistance
	o.MaxDistance = cc.MaxDistance
	o.MinPolarAngle = cc.MinPolarAngle
	o.MaxPolarAngle = cc.MaxPolarAngle
	o.Target = mgl32.Vec3(cc.Target)
	o.AutoRotate = cc.AutoRotate
	return o
}

func (c *Context) addGround() error {
	gc := c.Config.Ground
	geo := scene.NewPlane(gc.Width, gc.Height, gc.WidthSegments, gc.HeightSegments)
	geo.RotateX(-math32.Pi / 2)
	mat := scene.NewStandardMaterial(gc.Color)
	if gc.DoubleSided {
		mat.Side = scene.DoubleSide
	}
	n := scene.NewMeshNode("ground", &scene.Mesh{Geometry: geo, Material: mat})
	n.CastShadow = false
	n.ReceiveShadow = true

	var err error
	c.Ground, err = c.Scene.Add(c.Scene.Root(), n)
	return err
}

func (c *Context) addLights() error {
	sc := c.Config.Spot
	spot := scene.NewSpotLight(sc.Color, sc.Intensity, sc.Distance, sc.Angle, sc.Penumbra, sc.Decay)
	spot.CastShadow = sc.CastShadow
	spot.ShadowBias = sc.ShadowBias
	spot.ShadowMapSize = c.Config.Renderer.ShadowMapSize
	sn := scene.NewSpotNode("spot", spot)
	sn.Transform.Position = mgl32.Vec3(sc.Position)

	var err error
	if c.Spot, err = c.Scene.Add(c.Scene.Root(), sn); err != nil {
		return err
	}

	ac := c.Config.Ambient
	c.Ambient, err = c.Scene.Add(c.Scene.Root(), scene.NewAmbientNode("ambient", scene.NewAmbientLight(ac.Color, ac.Intensity)))
	return err
}

// Resize follows a viewport change. Zero sized viewports, as reported for
// minimized windows, are ignored.
func (c *Context) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Camera.Aspect = float32(width) / float32(height)
	c.Camera.UpdateProjectionMatrix()
	c.Renderer.SetSize(width, height)
	c.logger.Debug("resized", "width", width, "height", height)
}

// LoadModel starts loading the configured model through l. It returns nil
// when no model is configured.
func (c *Context) LoadModel(ctx context.Context, l *loader.Loader) *loader.Request {
	mc := c.Config.Model
	if mc.Path() == "" {
		c.indicator.Hide()
		return nil
	}
	c.request = l.SetPath(mc.Dir).Load(ctx, mc.File, loader.Callbacks{
		OnSuccess: func(m *loader.Model) {
			c.logger.Info("model loaded", "path", m.Path)
			if _, err := c.AttachModel(m); err != nil {
				c.logger.Error("attach model", "path", m.Path, "err", err)
			}
		},
		OnProgress: func(p loader.Progress) {
			c.logger.Debug("loading", "percent", fmt.Sprintf("%.0f%%", p.Percent()), "loaded", p.Loaded, "total", p.Total)
			c.indicator.SetProgress(p.Percent())
		},
		OnError: func(err error) {
			c.logger.Error("model load failed", "err", err)
		},
	})
	return c.request
}

// AttachModel makes every mesh of m cast and receive shadows, places its root
// and adds it under the scene root. Only one model is ever attached.
func (c *Context) AttachModel(m *loader.Model) (scene.NodeID, error) {
	if c.Model != scene.Nil {
		return scene.Nil, ErrModelAttached
	}
	m.Graph.Traverse(m.Root(), func(_ scene.NodeID, n *scene.Node) bool {
		if n.IsMesh() {
			n.CastShadow = true
			n.ReceiveShadow = true
		}
		return true
	})
	root := m.Graph.Node(m.Root())
	root.Transform.SetScale(c.Config.Model.Scale)
	root.Transform.Position = mgl32.Vec3(c.Config.Model.Position)

	id, err := c.Scene.Graft(c.Scene.Root(), m.Graph, m.Root())
	if err != nil {
		return scene.Nil, err
	}
	c.Model = id
	c.indicator.Hide()
	return id, nil
}

// Tick runs one frame: deliver loader events, advance the controls, render.
func (c *Context) Tick(time.Time) {
	if c.request != nil && c.request.Poll() != loader.Pending {
		c.request = nil
	}
	c.Controls.Update()
	c.Renderer.Render(c.Scene, c.Camera)
}
