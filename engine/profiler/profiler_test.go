package profiler

import (
	"bytes"
	"log"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-rig/engine/renderer"
)

func TestTickReportsAveragesPerInterval(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	start := time.Unix(0, 0)
	clock := start
	p := NewProfiler()
	p.lastTime = start
	p.now = func() time.Time { return clock }

	var got []Report
	p.SetReportCallback(func(r Report) { got = append(got, r) })

	frame := renderer.FrameStats{DrawCalls: 2, BufferWrites: 4, BytesWritten: 512}
	for i := 0; i < 9; i++ {
		clock = clock.Add(100 * time.Millisecond)
		if p.Tick(frame) {
			t.Fatalf("tick %d reported before the interval elapsed", i)
		}
	}
	clock = clock.Add(100 * time.Millisecond)
	if !p.Tick(frame) {
		t.Fatal("expected a report after one second")
	}

	if len(got) != 1 {
		t.Fatalf("got %d reports, want 1", len(got))
	}
	r := got[0]
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"fps", r.FPS, 10},
		{"draws per frame", r.DrawCalls, 2},
		{"writes per frame", r.BufferWrites, 4},
		{"upload KB/s", r.UploadKBps, 5},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 1e-6 {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if !strings.Contains(buf.String(), "[Profiler] FPS: 10.00") {
		t.Errorf("log output %q missing report", buf.String())
	}
	if p.frameCount != 0 || p.drawCalls != 0 || p.bytesWritten != 0 {
		t.Error("counters were not reset after reporting")
	}
}

func TestSetIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler()
	p.SetInterval(0)
	if p.updateInterval != time.Second {
		t.Errorf("interval = %v, want 1s", p.updateInterval)
	}
	p.SetInterval(250 * time.Millisecond)
	if p.updateInterval != 250*time.Millisecond {
		t.Errorf("interval = %v, want 250ms", p.updateInterval)
	}
}
