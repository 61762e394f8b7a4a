package engine

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rig/engine/scene"
	"github.com/Carmen-Shannon/oxy-rig/engine/window"
)

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window      window.Window
	windowTitle string
	closeOnce   sync.Once
	// pendingTitle is set off the main thread and applied by the window loop.
	pendingTitle atomic.Pointer[string]

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	// paused freezes the update phase; the last uploaded pose keeps drawing.
	paused atomic.Bool

	// engineTickRate paces the update phase (skinning and staging).
	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	scenesMu sync.RWMutex
	scenes   map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It orchestrates the engine loop, render loop, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// ProfilerEnabled reports whether profiling output is on.
	ProfilerEnabled() bool

	// Profiler returns the profiler fed by the render loop.
	Profiler() *profiler.Profiler

	// SetPaused stops (or resumes) per-frame skeleton updates. Drawing continues with the last pose.
	SetPaused(paused bool)

	// Paused reports whether skeleton updates are stopped.
	Paused() bool

	// SetTickRate sets the engine tick rate in frames per second.
	// Each tick runs the update phase of every active scene and then the tick callback.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick, after the scenes update.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each presented frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// Scenes are rendered in ascending key order during the render loop.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Run starts the engine and render loops and blocks in the window message loop until the
	// window closes. On return every scene and renderer has been released.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
		e.window.SetKeyDownCallback(e.keyDown)
		e.window.SetUpdateCallback(e.windowUpdate)
		if e.windowTitle != "" {
			e.profiler.SetReportCallback(func(r profiler.Report) {
				title := fmt.Sprintf("%s | %.0f FPS", e.windowTitle, r.FPS)
				e.pendingTitle.Store(&title)
			})
		}
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Run() {
	e.running.Store(true)
	// Stage the bind pose so the first frame has bones even when starting paused.
	e.updateScenes()
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
	} else {
		<-e.quitChannel
	}
	e.signalQuit()
	e.wg.Wait()
	e.release()
	e.closeWindow()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// The window is closed by its own message loop on the next iteration.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// windowUpdate runs on the window thread once per message loop iteration.
// GLFW calls must stay on that thread, so title changes and shutdown are applied here.
func (e *engine) windowUpdate() {
	if title := e.pendingTitle.Swap(nil); title != nil {
		e.window.SetTitle(*title)
	}
	select {
	case <-e.quitChannel:
		e.closeWindow()
	default:
	}
}

func (e *engine) closeWindow() {
	if e.window == nil {
		return
	}
	e.closeOnce.Do(func() {
		if err := e.window.Close(); err != nil {
			log.Printf("close window: %v", err)
		}
	})
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// handle launches the engine and render goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate update loop in its own goroutine.
// Each tick runs the update phase and fires the tick callback, and the loop listens for
// rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.tick(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			e.renderFrame()

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// tick runs one update phase: skinning and staging for every active scene unless paused,
// then the tick callback.
func (e *engine) tick(dt float32) {
	if !e.paused.Load() {
		e.updateScenes()
	}
	if e.tickCallback != nil {
		e.tickCallback(dt)
	}
}

// updateScenes evaluates and stages the skeletons of every active scene.
// Staged data waits for the next render phase; a newer update replaces it.
func (e *engine) updateScenes() {
	for _, s := range e.activeScenes() {
		s.Update()
	}
}

// renderFrame executes one render phase for all active scenes in ascending z-index order.
// All scenes are drawn within a single render pass owned by the first active scene's renderer:
// BeginFrame, then per scene Flush (uploads of what the last update staged), then the draw
// calls, and finally EndFrame and Present.
//
// Returns:
//   - bool: true if a frame was presented
func (e *engine) renderFrame() bool {
	activeScenes := e.activeScenes()
	if len(activeScenes) == 0 {
		return false
	}

	frameRenderer := activeScenes[0].Renderer()
	if frameRenderer == nil {
		return false
	}
	if err := frameRenderer.BeginFrame(); err != nil {
		return false
	}

	for _, s := range activeScenes {
		s.Flush()
	}
	for _, s := range activeScenes {
		if err := s.DrawCalls(); err != nil {
			log.Printf("scene %q draw failed: %v", s.Name(), err)
		}
	}
	frameRenderer.EndFrame()
	frameRenderer.Present()

	if e.profilingEnabled.Load() && e.profiler != nil {
		e.profiler.Tick(frameRenderer.Stats())
	}
	return true
}

// activeScenes returns the active scenes sorted by ascending z-index.
func (e *engine) activeScenes() []scene.Scene {
	e.scenesMu.RLock()
	defer e.scenesMu.RUnlock()

	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	active := make([]scene.Scene, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

// resize forwards a window size change to every renderer once and to every scene camera.
func (e *engine) resize(width, height int) {
	e.scenesMu.RLock()
	defer e.scenesMu.RUnlock()

	resized := make(map[renderer.Renderer]struct{})
	for _, s := range e.scenes {
		if r := s.Renderer(); r != nil {
			if _, ok := resized[r]; !ok {
				r.Resize(width, height)
				resized[r] = struct{}{}
			}
		}
		s.Resize(width, height)
	}
}

// keyDown handles the viewer hotkeys: P toggles profiling, Space pauses skeleton updates.
func (e *engine) keyDown(keyCode uint32) {
	switch keyCode {
	case common.KeyP:
		if e.profilingEnabled.Load() {
			e.DisableProfiler()
		} else {
			e.EnableProfiler()
		}
	case common.KeySpace:
		e.SetPaused(!e.paused.Load())
	}
}

// release frees every scene and then every distinct renderer.
func (e *engine) release() {
	e.scenesMu.Lock()
	defer e.scenesMu.Unlock()

	released := make(map[renderer.Renderer]struct{})
	for _, s := range e.scenes {
		s.Release()
	}
	for _, s := range e.scenes {
		if r := s.Renderer(); r != nil {
			if _, ok := released[r]; !ok {
				r.Release()
				released[r] = struct{}{}
			}
		}
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
	log.Println("profiler enabled")
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
	log.Println("profiler disabled")
}

func (e *engine) ProfilerEnabled() bool {
	return e.profilingEnabled.Load()
}

func (e *engine) SetPaused(paused bool) {
	e.paused.Store(paused)
}

func (e *engine) Paused() bool {
	return e.paused.Load()
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}

	// Non-blocking send; a pending value is replaced.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.scenesMu.Lock()
	defer e.scenesMu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.scenesMu.Lock()
	defer e.scenesMu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.scenesMu.RLock()
	defer e.scenesMu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.scenesMu.RLock()
	defer e.scenesMu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
