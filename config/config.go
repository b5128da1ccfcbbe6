// Package config holds every literal the showroom is built from. Defaults
// reproduce the stock scene; a TOML file may override any subset of them.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid")

// Vec3 is an x, y, z triple.
type Vec3 [3]float32

type Window struct {
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Title   string `toml:"title"`
	VSync   bool   `toml:"vsync"`
	Samples int    `toml:"samples"`
}

type Renderer struct {
	ClearColor    uint32 `toml:"clear_color"`
	Shadows       bool   `toml:"shadows"`
	ShadowMapSize int    `toml:"shadow_map_size"`
}

type Camera struct {
	FOV      float32 `toml:"fov"`
	Near     float32 `toml:"near"`
	Far      float32 `toml:"far"`
	Position Vec3    `toml:"position"`
}

type Controls struct {
	EnableDamping bool    `toml:"enable_damping"`
	DampingFactor float32 `toml:"damping_factor"`
	EnablePan     bool    `toml:"enable_pan"`
	MinDistance   float32 `toml:"min_distance"`
	MaxDistance   float32 `toml:"max_distance"`
	MinPolarAngle float32 `toml:"min_polar_angle"`
	MaxPolarAngle float32 `toml:"max_polar_angle"`
	Target        Vec3    `toml:"target"`
	AutoRotate    bool    `toml:"auto_rotate"`
}

type Ground struct {
	Width          float32 `toml:"width"`
	Height         float32 `toml:"height"`
	WidthSegments  int     `toml:"width_segments"`
	HeightSegments int     `toml:"height_segments"`
	Color          uint32  `toml:"color"`
	DoubleSided    bool    `toml:"double_sided"`
}

type Spot struct {
	Color      uint32  `toml:"color"`
	Intensity  float32 `toml:"intensity"`
	Distance   float32 `toml:"distance"`
	Angle      float32 `toml:"angle"`
	Penumbra   float32 `toml:"penumbra"`
	Decay      float32 `toml:"decay"`
	Position   Vec3    `toml:"position"`
	CastShadow bool    `toml:"cast_shadow"`
	ShadowBias float32 `toml:"shadow_bias"`
}

type Ambient struct {
	Color     uint32  `toml:"color"`
	Intensity float32 `toml:"intensity"`
}

// Model locates the GLTF asset and where it is placed. An empty File skips
// loading.
type Model struct {
	Dir      string  `toml:"dir"`
	File     string  `toml:"file"`
	Scale    float32 `toml:"scale"`
	Position Vec3    `toml:"position"`
}

// Path joins Dir and File.
func (m Model) Path() string {
	if m.File == "" {
		return ""
	}
	return filepath.Join(m.Dir, m.File)
}

type Config struct {
	LogLevel string   `toml:"log_level"`
	Window   Window   `toml:"window"`
	Renderer Renderer `toml:"renderer"`
	Camera   Camera   `toml:"camera"`
	Controls Controls `toml:"controls"`
	Ground   Ground   `toml:"ground"`
	Spot     Spot     `toml:"spot_light"`
	Ambient  Ambient  `toml:"ambient_light"`
	Model    Model    `toml:"model"`
}

// Default returns the stock scene.
func Default() Config {
	return Config{
		LogLevel: "info",
		Window: Window{
			Width:   1280,
			Height:  720,
			Title:   "Go OpenGL Showroom (GLFW)",
			VSync:   true,
			Samples: 4,
		},
		Renderer: Renderer{
			ClearColor:    0x000000,
			Shadows:       true,
			ShadowMapSize: 1024,
		},
		Camera: Camera{
			FOV:      45,
			Near:     1,
			Far:      1000,
			Position: Vec3{4, 5, 11},
		},
		Controls: Controls{
			EnableDamping: true,
			DampingFactor: 0.05,
			EnablePan:     false,
			MinDistance:   5,
			MaxDistance:   20,
			MinPolarAngle: 0.5,
			MaxPolarAngle: 1.5,
			Target:        Vec3{0, 1, 0},
			AutoRotate:    false,
		},
		Ground: Ground{
			Width:          20,
			Height:         20,
			WidthSegments:  32,
			HeightSegments: 32,
			Color:          0x555555,
			DoubleSided:    true,
		},
		Spot: Spot{
			Color:      0xffffff,
			Intensity:  3000,
			Distance:   100,
			Angle:      0.25,
			Penumbra:   1.2,
			Decay:      2,
			Position:   Vec3{0, 25, 0},
			CastShadow: true,
			ShadowBias: -0.0001,
		},
		Ambient: Ambient{
			Color:     0xffffff,
			Intensity: 0.1,
		},
		Model: Model{
			Dir:      "public/2021_czinger_21c",
			File:     "scene.gltf",
			Scale:    175,
			Position: Vec3{0, 1, 0},
		},
	}
}

// Load reads a TOML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return cfg, fmt.Errorf("parse config %s:%d:%d: %w", path, row, col, err)
		}
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects sizes that cannot be rendered and inverted ranges.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}
	check(c.Window.Width > 0 && c.Window.Height > 0, "window size %dx%d", c.Window.Width, c.Window.Height)
	check(c.Window.Samples >= 0, "window samples %d", c.Window.Samples)
	check(c.Renderer.ShadowMapSize > 0, "shadow map size %d", c.Renderer.ShadowMapSize)
	check(c.Camera.FOV > 0 && c.Camera.FOV < 180, "camera fov %g", c.Camera.FOV)
	check(c.Camera.Near > 0 && c.Camera.Near < c.Camera.Far, "camera clip [%g, %g]", c.Camera.Near, c.Camera.Far)
	check(c.Controls.DampingFactor > 0 && c.Controls.DampingFactor <= 1, "damping factor %g", c.Controls.DampingFactor)
	check(c.Controls.MinDistance <= c.Controls.MaxDistance, "controls distance [%g, %g]", c.Controls.MinDistance, c.Controls.MaxDistance)
	check(c.Controls.MinPolarAngle <= c.Controls.MaxPolarAngle, "controls polar angle [%g, %g]", c.Controls.MinPolarAngle, c.Controls.MaxPolarAngle)
	check(c.Controls.MinPolarAngle >= 0 && c.Controls.MaxPolarAngle <= math.Pi, "controls polar angle outside [0, pi]")
	check(c.Ground.Width > 0 && c.Ground.Height > 0, "ground size %gx%g", c.Ground.Width, c.Ground.Height)
	check(c.Ground.WidthSegments > 0 && c.Ground.HeightSegments > 0, "ground segments %dx%d", c.Ground.WidthSegments, c.Ground.HeightSegments)
	check(c.Spot.Angle > 0 && c.Spot.Angle < math.Pi/2, "spot angle %g", c.Spot.Angle)
	check(c.Spot.Distance >= 0, "spot distance %g", c.Spot.Distance)
	check(c.Model.Scale > 0, "model scale %g", c.Model.Scale)
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return l, nil
}
