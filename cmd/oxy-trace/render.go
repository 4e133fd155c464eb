package main

import (
	"github.com/Carmen-Shannon/oxy-trace/engine"
	"github.com/Carmen-Shannon/oxy-trace/engine/accumulation"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/input"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-trace/engine/telemetry"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
	"github.com/urfave/cli"
)

// RenderInteractive opens the window and runs the tracer until it is closed.
func RenderInteractive(ctx *cli.Context) error {
	cfg, err := resolveConfig(ctx)
	if err != nil {
		return err
	}
	setupLogging(ctx, cfg.LogLevel())

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return err
	}
	defer win.Close()

	presentMode := renderer.PresentModeUncapped
	if cfg.Window.VSync {
		presentMode = renderer.PresentModeVSync
	}
	paths := shader.StagePathsIn(cfg.Shaders.Dir)

	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, win,
		renderer.WithStagePaths(paths),
		renderer.WithValidation(cfg.Shaders.Validate),
		renderer.WithPresentMode(presentMode),
		renderer.WithForceSoftwareRenderer(cfg.Window.ForceSoftware),
	)
	if err != nil {
		return err
	}
	defer r.Release()

	info := r.AdapterInfo()
	logger.Noticef("adapter: %s (%s, %s backend)", info.Name, info.AdapterType, info.Backend)

	opts := []engine.EngineBuilderOption{
		engine.WithWindow(win),
		engine.WithGPU(r),
		engine.WithCamera(camera.NewCamera(cfg.CameraOptions()...)),
		engine.WithAccumulator(accumulation.NewAccumulator(cfg.AccumulatorOptions()...)),
		engine.WithTelemetry(telemetry.NewTelemetry(cfg.TelemetryOptions()...)),
		engine.WithEventQueue(input.NewQueue(cfg.Input.QueueCapacity)),
		engine.WithInputOptions(cfg.InputOptions()...),
		engine.WithRenderFrameLimit(cfg.Window.FrameLimit),
	}
	if cfg.Watcher.Enabled {
		opts = append(opts, engine.WithWatcher(paths.Files(), cfg.WatcherOptions()...))
	} else {
		logger.Info("shader hot reload disabled")
	}

	e, err := engine.NewEngine(opts...)
	if err != nil {
		return err
	}
	return e.Run()
}
