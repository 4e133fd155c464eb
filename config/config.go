// Package config loads the tracer's TOML configuration and turns it into component options.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/accumulation"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/hotreload"
	"github.com/Carmen-Shannon/oxy-trace/engine/input"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-trace/engine/telemetry"
	"github.com/Carmen-Shannon/oxy-trace/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
)

// ErrConfig is wrapped by every load and validation failure.
var ErrConfig = errors.New("config: invalid configuration")

// Duration is a time.Duration written as a Go duration string ("250ms", "1s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the complete application configuration.
type Config struct {
	Window    Window    `toml:"window"`
	Camera    Camera    `toml:"camera"`
	Shaders   Shaders   `toml:"shaders"`
	Input     Input     `toml:"input"`
	Telemetry Telemetry `toml:"telemetry"`
	Watcher   Watcher   `toml:"watcher"`
}

// Window configures the output window and presentation.
type Window struct {
	Title         string  `toml:"title"`
	Width         int     `toml:"width"`
	Height        int     `toml:"height"`
	VSync         bool    `toml:"vsync"`
	FrameLimit    float64 `toml:"frame_limit"`
	ForceSoftware bool    `toml:"force_software"`
}

// Camera configures the initial view and accumulation.
type Camera struct {
	Eye            [3]float32 `toml:"eye"`
	LookAt         [3]float32 `toml:"look_at"`
	Up             [3]float32 `toml:"up"`
	Fov            float32    `toml:"fov"`
	SampleDuration float32    `toml:"sample_duration"`
	MaxSamples     uint32     `toml:"max_samples"`
}

// Shaders configures where the kernel sources live.
type Shaders struct {
	Dir      string `toml:"dir"`
	Validate bool   `toml:"validate"`
}

// Input configures the control constants.
type Input struct {
	RotateStep      float32 `toml:"rotate_step"`
	DragSensitivity float32 `toml:"drag_sensitivity"`
	ScrollStep      float32 `toml:"scroll_step"`
	SpinStep        float32 `toml:"spin_step"`
	SnapLookAt      bool    `toml:"snap_look_at"`
	Spin            bool    `toml:"spin"`
	QueueCapacity   int     `toml:"queue_capacity"`
}

// Telemetry configures the periodic report and logging.
type Telemetry struct {
	Interval Duration `toml:"interval"`
	MemStats bool     `toml:"mem_stats"`
	LogLevel string   `toml:"log_level"`
}

// Watcher configures shader hot reload.
type Watcher struct {
	Enabled      bool     `toml:"enabled"`
	Notify       bool     `toml:"notify"`
	PollInterval Duration `toml:"poll_interval"`
	AckInterval  Duration `toml:"ack_interval"`
}

// Default returns the built-in configuration.
//
// Returns:
//   - Config: the defaults
func Default() Config {
	return Config{
		Window: Window{
			Title:  "oxy-trace",
			Width:  400,
			Height: 300,
			VSync:  true,
		},
		Camera: Camera{
			Eye:            [3]float32{4, 5, 5},
			LookAt:         [3]float32{0, 0.5, 0},
			Up:             [3]float32{0, 1, 0},
			Fov:            math.Pi / 3,
			SampleDuration: accumulation.DefaultSampleDuration,
		},
		Shaders: Shaders{
			Dir:      shader.DefaultDir,
			Validate: true,
		},
		Input: Input{
			RotateStep:      input.DefaultRotateStep,
			DragSensitivity: input.DefaultDragSensitivity,
			ScrollStep:      input.DefaultScrollStep,
			SpinStep:        input.DefaultSpinStep,
			SnapLookAt:      true,
			QueueCapacity:   input.DefaultQueueCapacity,
		},
		Telemetry: Telemetry{
			Interval: Duration{telemetry.DefaultInterval},
			MemStats: true,
			LogLevel: "notice",
		},
		Watcher: Watcher{
			Enabled:      true,
			Notify:       true,
			PollInterval: Duration{hotreload.DefaultPollInterval},
			AckInterval:  Duration{hotreload.DefaultAckInterval},
		},
	}
}

// Load reads a TOML file over the defaults and validates the result.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the merged configuration
//   - error: an error wrapping ErrConfig if the file is missing, malformed or invalid
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result. Unknown keys are rejected.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the merged configuration
//   - error: an error wrapping ErrConfig on a decode or validation failure
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfig, strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return Config{}, fmt.Errorf("%w: line %d column %d: %v", ErrConfig, row, col, decodeErr)
		}
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the components rely on.
//
// Returns:
//   - error: an error wrapping ErrConfig naming the first invalid field
func (c *Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d must be positive", ErrConfig, c.Window.Width, c.Window.Height)
	case c.Window.FrameLimit < 0:
		return fmt.Errorf("%w: window.frame_limit must not be negative", ErrConfig)
	case c.Camera.Fov <= 0 || c.Camera.Fov >= math.Pi:
		return fmt.Errorf("%w: camera.fov %.4f must be in (0, pi)", ErrConfig, c.Camera.Fov)
	case c.Camera.SampleDuration <= 0:
		return fmt.Errorf("%w: camera.sample_duration must be positive", ErrConfig)
	case c.Shaders.Dir == "":
		return fmt.Errorf("%w: shaders.dir is empty", ErrConfig)
	case c.Telemetry.Interval.Duration <= 0:
		return fmt.Errorf("%w: telemetry.interval must be positive", ErrConfig)
	case c.Watcher.PollInterval.Duration <= 0 || c.Watcher.AckInterval.Duration <= 0:
		return fmt.Errorf("%w: watcher intervals must be positive", ErrConfig)
	}

	eye, lookAt, up := mgl32.Vec3(c.Camera.Eye), mgl32.Vec3(c.Camera.LookAt), mgl32.Vec3(c.Camera.Up)
	forward := eye.Sub(lookAt)
	if forward.Len() < 1e-6 {
		return fmt.Errorf("%w: camera.eye and camera.look_at coincide", ErrConfig)
	}
	if up.Len() < 1e-6 || forward.Cross(up).Len() < 1e-6*forward.Len()*up.Len() {
		return fmt.Errorf("%w: camera.up is parallel to eye - look_at", ErrConfig)
	}

	if _, ok := log.ParseLevel(c.Telemetry.LogLevel); !ok {
		return fmt.Errorf("%w: unknown telemetry.log_level %q", ErrConfig, c.Telemetry.LogLevel)
	}
	return nil
}

// CameraOptions returns the camera options for the configured view.
//
// Returns:
//   - []camera.CameraBuilderOption: the options
func (c *Config) CameraOptions() []camera.CameraBuilderOption {
	e, l, u := c.Camera.Eye, c.Camera.LookAt, c.Camera.Up
	return []camera.CameraBuilderOption{
		camera.WithEye(e[0], e[1], e[2]),
		camera.WithLookAt(l[0], l[1], l[2]),
		camera.WithUp(u[0], u[1], u[2]),
		camera.WithFov(c.Camera.Fov),
	}
}

// AccumulatorOptions returns the accumulation options.
//
// Returns:
//   - []accumulation.AccumulatorBuilderOption: the options
func (c *Config) AccumulatorOptions() []accumulation.AccumulatorBuilderOption {
	return []accumulation.AccumulatorBuilderOption{
		accumulation.WithSampleDuration(c.Camera.SampleDuration),
		accumulation.WithMaxSamples(c.Camera.MaxSamples),
	}
}

// InputOptions returns the input controller's control constants.
//
// Returns:
//   - []input.ControllerOption: the options
func (c *Config) InputOptions() []input.ControllerOption {
	return []input.ControllerOption{
		input.WithRotateStep(c.Input.RotateStep),
		input.WithDragSensitivity(c.Input.DragSensitivity),
		input.WithScrollStep(c.Input.ScrollStep),
		input.WithSpinStep(c.Input.SpinStep),
		input.WithSnapLookAt(c.Input.SnapLookAt),
		input.WithSpinning(c.Input.Spin),
	}
}

// TelemetryOptions returns the telemetry options.
//
// Returns:
//   - []telemetry.TelemetryOption: the options
func (c *Config) TelemetryOptions() []telemetry.TelemetryOption {
	return []telemetry.TelemetryOption{
		telemetry.WithInterval(c.Telemetry.Interval.Duration),
		telemetry.WithMemStats(c.Telemetry.MemStats),
	}
}

// WatcherOptions returns the shader watcher options.
//
// Returns:
//   - []hotreload.WatcherOption: the options
func (c *Config) WatcherOptions() []hotreload.WatcherOption {
	return []hotreload.WatcherOption{
		hotreload.WithPollInterval(c.Watcher.PollInterval.Duration),
		hotreload.WithAckInterval(c.Watcher.AckInterval.Duration),
		hotreload.WithNotify(c.Watcher.Notify),
	}
}

// LogLevel returns the configured log level.
//
// Returns:
//   - log.Level: the level, Notice if the name is unknown
func (c *Config) LogLevel() log.Level {
	l, _ := log.ParseLevel(c.Telemetry.LogLevel)
	return l
}
