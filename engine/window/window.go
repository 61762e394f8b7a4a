package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is the viewer's native window: it owns the GPU surface source, the message loop, and
// the keyboard and resize callbacks. All methods except the Set*Callback ones must be called
// from the goroutine that created the window.
type Window interface {
	// SetUpdateCallback sets the function called once per message loop iteration on the window thread.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer size changes.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	// Escape never reaches it; Escape closes the window.
	//
	// Parameters:
	//   - callback: function receiving the key code (see common.Key*)
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	SetKeyUpCallback(callback func(keyCode uint32))

	// SurfaceDescriptor returns the platform surface descriptor for creating a WebGPU surface.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil if the window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true until the window is closed.
	IsRunning() bool

	// Close destroys the native window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was never created
	Close() error

	// ProcessMessages runs the message loop until the window closes, calling the update
	// callback each iteration.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int

	// AspectRatio returns width/height of the framebuffer, or 1 for an empty framebuffer.
	AspectRatio() float32

	// Title returns the current title.
	Title() string

	// SetTitle replaces the text shown in the title bar.
	SetTitle(title string)
}

// sizeLimits bounds the window size during interactive resizing.
type sizeLimits struct {
	minWidth, minHeight int
	maxWidth, maxHeight int
}

// fit widens the limits until width x height lies inside them.
func (l sizeLimits) fit(width, height int) sizeLimits {
	return sizeLimits{
		minWidth:  min(l.minWidth, width),
		minHeight: min(l.minHeight, height),
		maxWidth:  max(l.maxWidth, width),
		maxHeight: max(l.maxHeight, height),
	}
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title     string
	limits    sizeLimits
	resizable bool

	// width and height track the framebuffer, which differs from the window size on high-DPI displays.
	width, height int

	// internalWindow holds the platform window (*glfwWindow).
	internalWindow any

	onUpdate  func()
	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
	onKeyUp   func(keyCode uint32)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a native window. The requested size always fits within the
// resize limits; limits are widened where needed.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the created window
func NewWindow(options ...WindowBuilderOption) Window {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

// newEngineWindow applies defaults and options without touching the platform layer.
func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:     "oxy-rig",
		limits:    sizeLimits{minWidth: 600, minHeight: 200, maxWidth: 1600, maxHeight: 1200},
		resizable: true,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	w.limits = w.limits.fit(w.width, w.height)
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if !platformProcessMessages(w) {
			break
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

func (w *engineWindow) AspectRatio() float32 {
	if w.width <= 0 || w.height <= 0 {
		return 1
	}
	return float32(w.width) / float32(w.height)
}

func (w *engineWindow) Title() string {
	return w.title
}

func (w *engineWindow) SetTitle(title string) {
	w.title = title
	platformSetTitle(w, title)
}

// framebufferResized records a new framebuffer size and notifies the resize callback.
// A minimized window reports 0x0; that is recorded but not forwarded.
func (w *engineWindow) framebufferResized(width, height int) {
	w.width, w.height = width, height
	if width <= 0 || height <= 0 {
		return
	}
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

// keyEvent routes a key transition to the key callbacks.
func (w *engineWindow) keyEvent(keyCode uint32, pressed bool) {
	if pressed {
		if w.onKeyDown != nil {
			w.onKeyDown(keyCode)
		}
		return
	}
	if w.onKeyUp != nil {
		w.onKeyUp(keyCode)
	}
}
