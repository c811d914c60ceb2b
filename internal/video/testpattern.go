package video

import (
	"sync"
	"time"
)

// TestPattern is a synthetic Source that renders a traffic-light mock: a dark
// NV12 frame with one bright lamp disc that cycles red → yellow → green every
// couple of seconds. It reproduces the vendor pool discipline with a fixed
// number of reusable buffers, so leaked frames show up as a stalled Fetch.
type TestPattern struct {
	width  int
	height int
	fps    int

	// MaxFrames, when non-zero, ends the stream after that many frames.
	MaxFrames uint64

	free chan []byte
	seq  uint64
	last time.Time

	mu      sync.Mutex
	stopped chan struct{}
	started bool
}

// Lamp mock geometry, placed inside the default ROI so the factory settings
// detect the cycling light out of the box.
var patternLamps = [3]struct{ x, y int }{
	{385 + 42, 207 + 33},  // red
	{385 + 40, 207 + 154}, // yellow
	{385 + 40, 207 + 251}, // green
}

const patternLampRadius = 37

// NewTestPattern creates a test pattern source with bufferCount pooled
// frame buffers, pacing output at roughly fps frames per second.
func NewTestPattern(width, height, bufferCount, fps int) *TestPattern {
	if bufferCount < 1 {
		bufferCount = 1
	}
	if fps < 1 {
		fps = 1
	}
	tp := &TestPattern{
		width:   width,
		height:  height,
		fps:     fps,
		free:    make(chan []byte, bufferCount),
		stopped: make(chan struct{}),
	}
	for i := 0; i < bufferCount; i++ {
		tp.free <- make([]byte, width*height*3/2)
	}
	return tp
}

// Start marks the source as producing. It never fails for the test pattern
// but keeps the vendor contract of a fallible start.
func (tp *TestPattern) Start() error {
	tp.mu.Lock()
	tp.started = true
	tp.mu.Unlock()
	return nil
}

// Fetch blocks until a pooled buffer is free, paints the next pattern frame
// into it and returns it. Returns nil after Stop or once MaxFrames frames
// have been produced.
func (tp *TestPattern) Fetch() *Frame {
	if tp.MaxFrames > 0 && tp.seq >= tp.MaxFrames {
		return nil
	}

	select {
	case <-tp.stopped:
		return nil
	default:
	}

	var buf []byte
	select {
	case <-tp.stopped:
		return nil
	case buf = <-tp.free:
	}

	tp.pace()
	tp.seq++
	tp.paint(buf)
	return &Frame{Data: buf, Width: tp.width, Height: tp.height, Seq: tp.seq}
}

// Release returns the frame's buffer to the pool.
func (tp *TestPattern) Release(f *Frame) {
	if f == nil {
		return
	}
	select {
	case tp.free <- f.Data:
	default:
		// Double release; drop the buffer rather than grow the pool.
	}
}

// Stop ends the stream.
func (tp *TestPattern) Stop() {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	select {
	case <-tp.stopped:
	default:
		close(tp.stopped)
	}
}

func (tp *TestPattern) pace() {
	interval := time.Second / time.Duration(tp.fps)
	if !tp.last.IsZero() {
		if wait := interval - time.Since(tp.last); wait > 0 {
			select {
			case <-tp.stopped:
			case <-time.After(wait):
			}
		}
	}
	tp.last = time.Now()
}

// paint fills the buffer with a dim background and one bright lamp disc,
// advancing the active lamp every two seconds' worth of frames.
func (tp *TestPattern) paint(buf []byte) {
	luma := buf[:tp.width*tp.height]
	for i := range luma {
		luma[i] = 24
	}
	// Neutral chroma.
	chroma := buf[tp.width*tp.height:]
	for i := range chroma {
		chroma[i] = 128
	}

	active := int(tp.seq/uint64(2*tp.fps)) % len(patternLamps)
	lamp := patternLamps[active]
	r := patternLampRadius
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			x, y := lamp.x+dx, lamp.y+dy
			if x < 0 || y < 0 || x >= tp.width || y >= tp.height {
				continue
			}
			luma[y*tp.width+x] = 235
		}
	}
}
