package main

import (
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/config"
	"github.com/urfave/cli"
)

var (
	shadersFlag = cli.StringFlag{
		Name:  "shaders, s",
		Usage: "directory holding compute.wgsl, vertex.wgsl and fragment.wgsl",
	}
	configFlag = cli.StringFlag{
		Name:  "config, c",
		Usage: "TOML configuration file",
	}
)

var renderFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "width",
		Usage: "initial window width",
	},
	cli.IntFlag{
		Name:  "height",
		Usage: "initial window height",
	},
	shadersFlag,
	configFlag,
	cli.BoolFlag{
		Name:  "vsync",
		Usage: "wait for vertical blank when presenting",
	},
	cli.BoolFlag{
		Name:  "no-vsync",
		Usage: "present immediately",
	},
	cli.Float64Flag{
		Name:  "frame-limit",
		Usage: "cap the render loop to this many frames per second (0 = uncapped)",
	},
	cli.UintFlag{
		Name:  "max-samples",
		Usage: "stop accumulating after this many samples per pixel (0 = unbounded)",
	},
	cli.BoolFlag{
		Name:  "no-watch",
		Usage: "disable shader hot reload",
	},
	cli.BoolFlag{
		Name:  "software",
		Usage: "request the software fallback adapter",
	},
}

// overrides are the command line values that take precedence over the configuration file.
// Zero values leave the file value in place.
type overrides struct {
	Width      int
	Height     int
	Shaders    string
	VSync      *bool
	FrameLimit float64
	MaxSamples uint32
	NoWatch    bool
	Software   bool
}

// overridesFrom collects the overrides present on the command line.
func overridesFrom(ctx *cli.Context) overrides {
	o := overrides{
		Width:      ctx.Int("width"),
		Height:     ctx.Int("height"),
		Shaders:    ctx.String("shaders"),
		FrameLimit: ctx.Float64("frame-limit"),
		MaxSamples: uint32(ctx.Uint("max-samples")),
		NoWatch:    ctx.Bool("no-watch"),
		Software:   ctx.Bool("software"),
	}
	switch {
	case ctx.Bool("no-vsync"):
		off := false
		o.VSync = &off
	case ctx.Bool("vsync"):
		on := true
		o.VSync = &on
	}
	return o
}

// loadConfig reads the file named by --config, or the defaults when none is given.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	path := ctx.String("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// merge applies the overrides to cfg and validates the result.
func merge(cfg config.Config, o overrides) (config.Config, error) {
	cfg.Window.Width = common.Coalesce(o.Width, cfg.Window.Width)
	cfg.Window.Height = common.Coalesce(o.Height, cfg.Window.Height)
	cfg.Window.FrameLimit = common.Coalesce(o.FrameLimit, cfg.Window.FrameLimit)
	cfg.Window.ForceSoftware = cfg.Window.ForceSoftware || o.Software
	cfg.Shaders.Dir = common.Coalesce(o.Shaders, cfg.Shaders.Dir)
	cfg.Camera.MaxSamples = common.Coalesce(o.MaxSamples, cfg.Camera.MaxSamples)
	if o.VSync != nil {
		cfg.Window.VSync = *o.VSync
	}
	if o.NoWatch {
		cfg.Watcher.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// resolveConfig loads the configuration file and merges the command line over it.
func resolveConfig(ctx *cli.Context) (config.Config, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return config.Config{}, err
	}
	return merge(cfg, overridesFrom(ctx))
}
