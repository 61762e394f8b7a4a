package profiler

import (
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-rig/engine/renderer"
)

// Report is one logged profiler interval.
type Report struct {
	FPS          float64
	DrawCalls    float64 // average per frame
	BufferWrites float64 // average per frame
	UploadKBps   float64
	HeapMB       float64
	GCCount      uint32
}

// String formats the report the way it is written to the log.
func (r Report) String() string {
	return fmt.Sprintf("FPS: %.2f | Draws/frame: %.1f | Writes/frame: %.1f | Upload: %.2f KB/s | Heap: %.2f MB | GC: %d",
		r.FPS, r.DrawCalls, r.BufferWrites, r.UploadKBps, r.HeapMB, r.GCCount)
}

// Profiler tracks frame rate, renderer traffic and memory statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	drawCalls      int
	bufferWrites   int
	bytesWritten   uint64
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	onReport       func(Report)
	now            func() time.Time
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		now:            time.Now,
	}
}

// SetInterval changes how often stats are reported. Values <= 0 are ignored.
func (p *Profiler) SetInterval(d time.Duration) {
	if d > 0 {
		p.updateInterval = d
	}
}

// SetReportCallback registers a function that receives every report after it is logged,
// e.g. to show the frame rate in a window title.
func (p *Profiler) SetReportCallback(callback func(Report)) {
	p.onReport = callback
}

// Tick should be called once per rendered frame with that frame's renderer statistics.
// Logs a Report when the update interval has elapsed.
//
// Parameters:
//   - stats: the draw and upload counters of the frame just presented
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats renderer.FrameStats) bool {
	p.frameCount++
	p.drawCalls += stats.DrawCalls
	p.bufferWrites += stats.BufferWrites
	p.bytesWritten += stats.BytesWritten

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	frames := float64(p.frameCount)
	report := Report{
		FPS:          frames / elapsed.Seconds(),
		DrawCalls:    float64(p.drawCalls) / frames,
		BufferWrites: float64(p.bufferWrites) / frames,
		UploadKBps:   float64(p.bytesWritten) / 1024 / elapsed.Seconds(),
		HeapMB:       float64(p.memStats.Alloc) / 1024 / 1024,
		GCCount:      p.memStats.NumGC,
	}
	log.Printf("[Profiler] %s", report)
	if p.onReport != nil {
		p.onReport(report)
	}

	p.frameCount = 0
	p.drawCalls = 0
	p.bufferWrites = 0
	p.bytesWritten = 0
	p.lastTime = currentTime
	return true
}
