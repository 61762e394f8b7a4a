package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer"
	"gopkg.in/yaml.v3"
)

// Config is the rigviewer configuration file layout.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Camera  CameraConfig  `yaml:"camera"`
	Models  []ModelConfig `yaml:"models"`
	Workers int           `yaml:"workers"`
	NodeLog bool          `yaml:"node_log"`
	Profile bool          `yaml:"profile"`
	// UpdateRate is how many times per second skeletons are re-evaluated and staged.
	UpdateRate float64 `yaml:"update_rate"`
	// Spacing is the X distance between rigs that have no explicit position.
	Spacing float32 `yaml:"spacing"`
}

type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	// Present is "vsync" or "uncapped".
	Present string `yaml:"present"`
	MSAA    int    `yaml:"msaa"`
	// FrameLimit caps rendered frames per second; 0 leaves the render loop uncapped.
	FrameLimit float64    `yaml:"frame_limit"`
	ClearColor [3]float64 `yaml:"clear_color"`
	// Software requests the fallback (CPU) adapter.
	Software bool `yaml:"software"`
}

type CameraConfig struct {
	Eye    [3]float32 `yaml:"eye"`
	Target [3]float32 `yaml:"target"`
	Up     [3]float32 `yaml:"up"`
	// FovDegrees is the vertical field of view.
	FovDegrees float32 `yaml:"fov"`
	Near       float32 `yaml:"near"`
	Far        float32 `yaml:"far"`
}

type ModelConfig struct {
	Path     string      `yaml:"path"`
	Position *[3]float32 `yaml:"position,omitempty"`
	Scale    float32     `yaml:"scale,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Title:      "oxy-rig viewer",
			Width:      1280,
			Height:     720,
			Present:    "vsync",
			MSAA:       4,
			ClearColor: [3]float64{0.1, 0.1, 0.1},
		},
		Camera: CameraConfig{
			Eye:        [3]float32{0, 1, 5},
			Target:     [3]float32{0, 1, 0},
			Up:         [3]float32{0, 1, 0},
			FovDegrees: 45,
			Near:       0.1,
			Far:        100,
		},
		Workers:    4,
		Spacing:    2,
		UpdateRate: 60,
	}
}

// LoadConfig reads a YAML config file. Missing fields fall back to DefaultConfig.
// An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := ParseConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes a YAML config and fills unset fields from DefaultConfig.
// Unknown keys are rejected.
func ParseConfig(r io.Reader) (Config, error) {
	var cfg Config
	// Black is a valid clear color, so the default is seeded before decoding instead of coalesced.
	cfg.Window.ClearColor = DefaultConfig().Window.ClearColor
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()

	c.Window.Title = common.Coalesce(c.Window.Title, d.Window.Title)
	c.Window.Width = common.Coalesce(c.Window.Width, d.Window.Width)
	c.Window.Height = common.Coalesce(c.Window.Height, d.Window.Height)
	c.Window.Present = strings.ToLower(common.Coalesce(c.Window.Present, d.Window.Present))
	c.Window.MSAA = common.Coalesce(c.Window.MSAA, d.Window.MSAA)

	// Eye and target default as a pair so a config that sets only one still looks somewhere sensible.
	if c.Camera.Eye == ([3]float32{}) && c.Camera.Target == ([3]float32{}) {
		c.Camera.Eye = d.Camera.Eye
		c.Camera.Target = d.Camera.Target
	}
	if c.Camera.Up == ([3]float32{}) {
		c.Camera.Up = d.Camera.Up
	}
	c.Camera.FovDegrees = common.Coalesce(c.Camera.FovDegrees, d.Camera.FovDegrees)
	c.Camera.Near = common.Coalesce(c.Camera.Near, d.Camera.Near)
	c.Camera.Far = common.Coalesce(c.Camera.Far, d.Camera.Far)

	c.Workers = common.Coalesce(c.Workers, d.Workers)
	c.Spacing = common.Coalesce(c.Spacing, d.Spacing)
	c.UpdateRate = common.Coalesce(c.UpdateRate, d.UpdateRate)
	for i := range c.Models {
		c.Models[i].Scale = common.Coalesce(c.Models[i].Scale, 1)
	}
	return c
}

// Validate reports settings the viewer cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width < 0 || c.Window.Height < 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d is negative", c.Window.Width, c.Window.Height))
	}
	if _, err := renderer.ParsePresentMode(c.Window.Present); err != nil {
		errs = append(errs, err)
	}
	if !renderer.MSAASampleCount(c.Window.MSAA).Valid() {
		errs = append(errs, fmt.Errorf("msaa must be 1, 4, 8 or 16, got %d", c.Window.MSAA))
	}
	if c.Window.FrameLimit < 0 {
		errs = append(errs, fmt.Errorf("frame_limit %g is negative", c.Window.FrameLimit))
	}
	for _, ch := range c.Window.ClearColor {
		if ch < 0 || ch > 1 {
			errs = append(errs, fmt.Errorf("clear_color %v must be in [0, 1]", c.Window.ClearColor))
			break
		}
	}
	if c.Camera.FovDegrees <= 0 || c.Camera.FovDegrees >= 180 {
		errs = append(errs, fmt.Errorf("camera fov %.1f out of range", c.Camera.FovDegrees))
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		errs = append(errs, fmt.Errorf("camera clip range [%g, %g] is invalid", c.Camera.Near, c.Camera.Far))
	}
	if c.Camera.Eye == c.Camera.Target {
		errs = append(errs, errors.New("camera eye and target coincide"))
	} else if parallel(sub3(c.Camera.Target, c.Camera.Eye), c.Camera.Up) {
		errs = append(errs, errors.New("camera up is parallel to the view direction"))
	}
	if c.UpdateRate < 0 {
		errs = append(errs, fmt.Errorf("update_rate %g is negative", c.UpdateRate))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d is negative", c.Workers))
	}
	for i, m := range c.Models {
		if m.Path == "" {
			errs = append(errs, fmt.Errorf("models[%d] has no path", i))
		}
	}
	return errors.Join(errs...)
}

// AddPaths appends models given on the command line.
func (c *Config) AddPaths(paths ...string) {
	for _, p := range paths {
		c.Models = append(c.Models, ModelConfig{Path: p, Scale: 1})
	}
}

// Paths returns the model paths in config order.
func (c Config) Paths() []string {
	paths := make([]string, len(c.Models))
	for i, m := range c.Models {
		paths[i] = m.Path
	}
	return paths
}

// Placement returns where the i-th model is drawn. Models without a position are laid out
// side by side along X, centred on the origin.
func (c Config) Placement(i int) (pos [3]float32, scale float32) {
	m := c.Models[i]
	if m.Position != nil {
		return *m.Position, m.Scale
	}
	offset := (float32(i) - float32(len(c.Models)-1)/2) * c.Spacing
	return [3]float32{offset, 0, 0}, m.Scale
}

func sub3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// parallel reports whether a and b have a zero cross product.
func parallel(a, b [3]float32) bool {
	x := a[1]*b[2] - a[2]*b[1]
	y := a[2]*b[0] - a[0]*b[2]
	z := a[0]*b[1] - a[1]*b[0]
	return x*x+y*y+z*z < 1e-12
}
