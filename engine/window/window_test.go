package window

import "testing"

func TestNewEngineWindowFitsLimits(t *testing.T) {
	tests := []struct {
		name string
		opts []WindowBuilderOption
		want sizeLimits
		size [2]int
	}{
		{
			name: "defaults",
			want: sizeLimits{minWidth: 600, minHeight: 200, maxWidth: 1600, maxHeight: 1200},
			size: [2]int{1280, 720},
		},
		{
			name: "larger than max",
			opts: []WindowBuilderOption{WithSize(2560, 1440)},
			want: sizeLimits{minWidth: 600, minHeight: 200, maxWidth: 2560, maxHeight: 1440},
			size: [2]int{2560, 1440},
		},
		{
			name: "smaller than min",
			opts: []WindowBuilderOption{WithSize(320, 180), WithMinSize(400, 300)},
			want: sizeLimits{minWidth: 320, minHeight: 180, maxWidth: 1600, maxHeight: 1200},
			size: [2]int{320, 180},
		},
		{
			name: "non-positive size keeps default",
			opts: []WindowBuilderOption{WithSize(0, -5), WithMaxSize(1920, 1080)},
			want: sizeLimits{minWidth: 600, minHeight: 200, maxWidth: 1920, maxHeight: 1080},
			size: [2]int{1280, 720},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newEngineWindow(tt.opts...)
			if w.limits != tt.want {
				t.Errorf("limits = %+v, want %+v", w.limits, tt.want)
			}
			if got := [2]int{w.width, w.height}; got != tt.size {
				t.Errorf("size = %v, want %v", got, tt.size)
			}
		})
	}
}

func TestFramebufferResized(t *testing.T) {
	w := newEngineWindow(WithTitle("rigs"), WithResizable(false))
	if w.Title() != "rigs" || w.resizable {
		t.Fatalf("options not applied: %q resizable=%v", w.Title(), w.resizable)
	}

	var calls [][2]int
	w.SetResizeCallback(func(width, height int) { calls = append(calls, [2]int{width, height}) })

	w.framebufferResized(1000, 500)
	w.framebufferResized(0, 0)

	if len(calls) != 1 || calls[0] != [2]int{1000, 500} {
		t.Errorf("resize callbacks = %v, want only 1000x500", calls)
	}
	if w.AspectRatio() != 1 {
		t.Errorf("minimized aspect = %v, want 1", w.AspectRatio())
	}
	w.framebufferResized(1000, 500)
	if w.AspectRatio() != 2 {
		t.Errorf("aspect = %v, want 2", w.AspectRatio())
	}
}

func TestKeyEventRouting(t *testing.T) {
	w := newEngineWindow()
	var down, up []uint32
	w.SetKeyDownCallback(func(k uint32) { down = append(down, k) })
	w.SetKeyUpCallback(func(k uint32) { up = append(up, k) })

	w.keyEvent(80, true)
	w.keyEvent(80, false)
	w.keyEvent(32, true)

	if len(down) != 2 || down[0] != 80 || down[1] != 32 {
		t.Errorf("down = %v", down)
	}
	if len(up) != 1 || up[0] != 80 {
		t.Errorf("up = %v", up)
	}
}

func TestUninitializedWindow(t *testing.T) {
	w := newEngineWindow()
	if w.IsRunning() {
		t.Error("window without a platform window reports running")
	}
	if err := w.Close(); err == nil {
		t.Error("Close on an uncreated window should fail")
	}
	if w.SurfaceDescriptor() != nil {
		t.Error("uncreated window returned a surface descriptor")
	}
	w.SetTitle("still fine")
}
