// Command rigviewer loads rigged models (glTF, GLB or .rig.yaml) and draws their skeletons as
// bone lines from a fixed camera.
//
// Usage:
//
//	rigviewer [-config viewer.yaml] [-workers n] [-nodelog] [-profile] model...
//
// Keys: Escape closes the window, P toggles the profiler, Space freezes skeleton updates.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Carmen-Shannon/oxy-rig/engine"
	"github.com/Carmen-Shannon/oxy-rig/engine/camera"
	"github.com/Carmen-Shannon/oxy-rig/engine/game_object"
	"github.com/Carmen-Shannon/oxy-rig/engine/loader"
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-rig/engine/scene"
	"github.com/Carmen-Shannon/oxy-rig/engine/window"
	"github.com/chewxy/math32"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetPrefix("[rigviewer] ")

	configPath := flag.String("config", "", "path to a YAML viewer config")
	workers := flag.Int("workers", 0, "parallel model loads (overrides config)")
	nodeLog := flag.Bool("nodelog", false, "log every hierarchy node while skeletons are built")
	profile := flag.Bool("profile", false, "start with the profiler enabled")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] model...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	cfg.AddPaths(flag.Args()...)
	if *workers > 0 {
		cfg.Workers = *workers
	}
	cfg.NodeLog = cfg.NodeLog || *nodeLog
	cfg.Profile = cfg.Profile || *profile

	if len(cfg.Models) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg Config) error {
	ld := loader.NewLoader(
		loader.WithWorkers(cfg.Workers),
		loader.WithNodeLog(cfg.NodeLog),
	)
	models, err := ld.LoadAll(cfg.Paths())
	if err != nil {
		// Failed files are already logged by the loader; the rest still render.
		log.Printf("some models failed to load")
	}
	logSummary(models)

	eng := engine.NewEngine(
		engine.WithProfiling(cfg.Profile),
		engine.WithFPSInTitle(cfg.Window.Title),
		engine.WithTickRate(cfg.UpdateRate),
		engine.WithRenderFrameLimit(cfg.Window.FrameLimit),
		engine.WithWindow(window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithSize(cfg.Window.Width, cfg.Window.Height),
		)),
	)
	win := eng.Window()

	// Validated by ParseConfig.
	presentMode, _ := renderer.ParsePresentMode(cfg.Window.Present)
	r := renderer.NewRenderer(
		renderer.BackendTypeWGPU,
		win,
		renderer.WithPresentMode(presentMode),
		renderer.WithMSAA(renderer.MSAASampleCount(cfg.Window.MSAA)),
		renderer.WithClearColor(cfg.Window.ClearColor[0], cfg.Window.ClearColor[1], cfg.Window.ClearColor[2]),
		renderer.WithForceSoftwareRenderer(cfg.Window.Software),
	)

	cam := camera.NewCamera(
		camera.WithEye(cfg.Camera.Eye[0], cfg.Camera.Eye[1], cfg.Camera.Eye[2]),
		camera.WithTarget(cfg.Camera.Target[0], cfg.Camera.Target[1], cfg.Camera.Target[2]),
		camera.WithUp(cfg.Camera.Up[0], cfg.Camera.Up[1], cfg.Camera.Up[2]),
		camera.WithFov(cfg.Camera.FovDegrees*math32.Pi/180),
		camera.WithAspect(win.AspectRatio()),
		camera.WithNear(cfg.Camera.Near),
		camera.WithFar(cfg.Camera.Far),
	)

	objects := make([]game_object.GameObject, 0, len(models))
	for i, m := range models {
		if m == nil || !m.Loaded() {
			continue
		}
		pos, scale := cfg.Placement(i)
		// The loader caches by path, so a model listed twice is shared; labels keep its animators apart.
		anim := animator.NewAnimator(
			animator.WithLabel(fmt.Sprintf("%s#%d", m.Name(), i)),
			animator.WithModel(m),
		)
		objects = append(objects, game_object.NewGameObject(
			game_object.WithAnimator(anim),
			game_object.WithPosition(pos[0], pos[1], pos[2]),
			game_object.WithScale(scale, scale, scale),
		))
	}
	if len(objects) == 0 {
		r.Release()
		closeWindow(win)
		return fmt.Errorf("no model could be loaded")
	}

	eng.AddScene(0, scene.NewScene("rigs", cam, r,
		scene.WithActive(true),
		scene.WithObjects(objects...),
	))

	log.Printf("viewing %d rig(s); Esc quits, P toggles profiler, Space freezes updates", len(objects))
	eng.Run()

	for name := range ld.Models() {
		ld.Release(name)
	}
	return nil
}

// closeWindow closes a window the engine never ran, logging a failure instead of dropping it.
func closeWindow(w interface{ Close() error }) {
	if err := w.Close(); err != nil {
		log.Printf("close window: %v", err)
	}
}

func logSummary(models []model.Model) {
	for _, m := range models {
		if m == nil || !m.Loaded() {
			continue
		}
		g := m.Geometry()
		log.Printf("%s: %d bones, %d segments (%s)", m.Name(), m.BoneCount(), g.EdgeCount(), m.Path())
	}
}
