package core

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/toxichemicals/GO/showroom/config"
	"github.com/toxichemicals/GO/showroom/controls"
)

// Window is a GLFW window with a current OpenGL 4.1 core context. It hosts
// the frame loop: RequestFrame callbacks run from Run, one per swap.
type Window struct {
	window *glfw.Window
	title  string
	logger *slog.Logger

	pending  func(time.Time)
	onResize func(width, height int, ratio float32)

	// pointer drag state
	orbit      *controls.Orbit
	dragging   glfw.MouseButton
	dragActive bool
	mouseLastX float64
	mouseLastY float64

	vsyncEnabled bool
	status       string

	fpsFrames         int
	fpsLastUpdateTime time.Time
}

// NewWindow initializes GLFW and opens a window. It must be called from the
// main goroutine with the OS thread locked.
func NewWindow(cfg config.Window, logger *slog.Logger) (*Window, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.SRGBCapable, glfw.True)
	glfw.WindowHint(glfw.Samples, cfg.Samples)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	window.MakeContextCurrent()

	w := &Window{
		window:            window,
		title:             cfg.Title,
		logger:            logger,
		vsyncEnabled:      cfg.VSync,
		fpsLastUpdateTime: time.Now(),
	}
	w.applyVSync()

	window.SetFramebufferSizeCallback(func(_ *glfw.Window, _, _ int) {
		if w.onResize == nil {
			return
		}
		width, height := w.Size()
		w.onResize(width, height, w.PixelRatio())
	})
	window.SetKeyCallback(w.onKey)
	window.SetMouseButtonCallback(w.onMouseButton)
	window.SetCursorPosCallback(w.onCursorPos)
	window.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if w.orbit != nil {
			w.orbit.Dolly(float32(yoff))
		}
	})
	return w, nil
}

// Size returns the window size in screen coordinates.
func (w *Window) Size() (int, int) { return w.window.GetSize() }

// PixelRatio returns framebuffer pixels per screen coordinate.
func (w *Window) PixelRatio() float32 {
	width, _ := w.window.GetSize()
	fbWidth, _ := w.window.GetFramebufferSize()
	if width == 0 || fbWidth == 0 {
		x, _ := w.window.GetContentScale()
		return x
	}
	return float32(fbWidth) / float32(width)
}

// OnResize registers fn to run when the framebuffer changes size. Minimized
// windows report a zero size.
func (w *Window) OnResize(fn func(width, height int, ratio float32)) { w.onResize = fn }

// BindControls routes pointer input to o: left drag rotates, right drag pans
// and the wheel dollies.
func (w *Window) BindControls(o *controls.Orbit) { w.orbit = o }

// RequestFrame runs fn once at the next frame.
func (w *Window) RequestFrame(fn func(time.Time)) { w.pending = fn }

// Run pumps events and frames until the window is closed or no frame is
// pending.
func (w *Window) Run() {
	for !w.window.ShouldClose() {
		glfw.PollEvents()
		fn := w.pending
		if fn == nil {
			return
		}
		w.pending = nil
		fn(time.Now())
		w.window.SwapBuffers()
		w.updateAndDisplayFPS()
	}
}

// Close asks Run to return after the current frame. It may be called from
// any goroutine.
func (w *Window) Close() { w.window.SetShouldClose(true) }

// SetProgress shows the model loading percentage in the title.
func (w *Window) SetProgress(percent float64) {
	w.status = fmt.Sprintf("Loading %.0f%%", percent)
	w.window.SetTitle(w.title + " | " + w.status)
}

// Hide removes the loading status from the title.
func (w *Window) Hide() {
	if w.status == "" {
		return
	}
	w.status = ""
	w.window.SetTitle(w.title)
}

// Destroy closes the window and terminates GLFW.
func (w *Window) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	glfw.Terminate()
}

func (w *Window) applyVSync() {
	if w.vsyncEnabled {
		glfw.SwapInterval(1)
		w.logger.Info("VSync: ON")
	} else {
		glfw.SwapInterval(0)
		w.logger.Info("VSync: OFF")
	}
}

func (w *Window) onKey(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	switch key {
	case glfw.KeyEscape:
		w.window.SetShouldClose(true)
	case glfw.KeyV:
		w.vsyncEnabled = !w.vsyncEnabled
		w.applyVSync()
	}
}

func (w *Window) onMouseButton(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	switch action {
	case glfw.Press:
		if w.dragActive || (button != glfw.MouseButtonLeft && button != glfw.MouseButtonRight) {
			return
		}
		w.dragging = button
		w.dragActive = true
		w.mouseLastX, w.mouseLastY = w.window.GetCursorPos()
	case glfw.Release:
		if w.dragActive && button == w.dragging {
			w.dragActive = false
		}
	}
}

func (w *Window) onCursorPos(_ *glfw.Window, xpos, ypos float64) {
	if !w.dragActive || w.orbit == nil {
		return
	}
	dx := float32(xpos - w.mouseLastX)
	dy := float32(ypos - w.mouseLastY)
	w.mouseLastX, w.mouseLastY = xpos, ypos

	_, height := w.window.GetSize()
	if height <= 0 {
		return
	}
	switch w.dragging {
	case glfw.MouseButtonLeft:
		w.orbit.Rotate(dx, dy, float32(height))
	case glfw.MouseButtonRight:
		w.orbit.Pan(dx, dy, float32(height))
	}
}

// updateAndDisplayFPS calculates and displays FPS in the window title.
func (w *Window) updateAndDisplayFPS() {
	w.fpsFrames++
	if time.Since(w.fpsLastUpdateTime) < time.Second {
		return
	}
	fps := float64(w.fpsFrames) / time.Since(w.fpsLastUpdateTime).Seconds()
	title := fmt.Sprintf("%s | FPS: %.2f", w.title, fps)
	if w.status != "" {
		title += " | " + w.status
	}
	w.window.SetTitle(title)
	w.fpsFrames = 0
	w.fpsLastUpdateTime = time.Now()
}
