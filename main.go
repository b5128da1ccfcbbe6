// Command showroom displays a GLTF model on a lit ground plane with orbit
// controls.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/toxichemicals/GO/showroom/app"
	"github.com/toxichemicals/GO/showroom/config"
	"github.com/toxichemicals/GO/showroom/core"
	"github.com/toxichemicals/GO/showroom/loader"
	"github.com/toxichemicals/GO/showroom/loop"
)

func init() {
	// GLFW and GL calls must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	var (
		configPath = flag.String("config", "", "TOML file overriding the default scene")
		modelPath  = flag.String("model", "", "GLTF file to show instead of the configured one")
		logLevel   = flag.String("log-level", "", "debug, info, warn or error")
		width      = flag.Int("width", 0, "initial window width")
		height     = flag.Int("height", 0, "initial window height")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			slog.Error("config", "err", err)
			os.Exit(1)
		}
	}
	if *modelPath != "" {
		cfg.Model.Dir, cfg.Model.File = filepath.Split(*modelPath)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *width > 0 {
		cfg.Window.Width = *width
	}
	if *height > 0 {
		cfg.Window.Height = *height
	}

	level, err := cfg.Level()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Application failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	window, err := core.NewWindow(cfg.Window, logger)
	if err != nil {
		return err
	}
	defer window.Destroy()
	// SIGINT or SIGTERM closes the window; Run then returns.
	defer context.AfterFunc(ctx, window.Close)()

	renderer, err := core.NewRenderer(cfg.Renderer, logger)
	if err != nil {
		return err
	}
	defer renderer.Dispose()

	w, h := window.Size()
	showroom, err := app.Bootstrap(cfg, renderer, window, w, h, window.PixelRatio(), logger)
	if err != nil {
		return err
	}
	window.OnResize(func(width, height int, ratio float32) {
		renderer.SetPixelRatio(ratio)
		showroom.Resize(width, height)
	})
	window.BindControls(showroom.Controls)

	showroom.LoadModel(ctx, loader.New(logger))

	l := loop.New(window, showroom.Tick)
	l.Start(ctx)
	logger.Info("Engine initialized. Starting main loop...")

	window.Run()

	l.Stop()
	logger.Info("Engine shutting down.", "frames", l.Frames())
	return nil
}
