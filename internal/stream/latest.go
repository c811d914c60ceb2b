// Package stream holds the single-slot, latest-wins buffers shared between
// the processing loop (sole writer) and the HTTP handlers (many readers).
package stream

import (
	"sync"
	"time"

	"github.com/acap-vision/tld/internal/detect"
)

// LatestFrame is the published frame buffer: one slot holding the most
// recently encoded JPEG. Publishing replaces the slot; readers copy the
// bytes out under the lock so no handler ever holds the lock during network
// I/O. Its mutex is independent of the config store's so stream readers and
// config writers never contend.
type LatestFrame struct {
	mu   sync.Mutex
	data []byte
}

// Publish replaces the stored frame. The caller must not reuse data after
// publishing; the processing loop hands over a freshly encoded buffer each
// frame.
func (l *LatestFrame) Publish(data []byte) {
	l.mu.Lock()
	l.data = data
	l.mu.Unlock()
}

// Copy returns a copy of the stored frame, or ok=false if nothing has been
// published yet.
func (l *LatestFrame) Copy() ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.data) == 0 {
		return nil, false
	}
	out := make([]byte, len(l.data))
	copy(out, l.data)
	return out, true
}

// Status is the most recent classification outcome, exposed on the state
// endpoint for observability.
type Status struct {
	Result detect.Result
	When   time.Time
}

// LatestStatus is a single-slot holder for the most recent Status.
type LatestStatus struct {
	mu  sync.Mutex
	cur Status
	set bool
}

// Store replaces the stored status.
func (l *LatestStatus) Store(res detect.Result) {
	l.mu.Lock()
	l.cur = Status{Result: res, When: time.Now()}
	l.set = true
	l.mu.Unlock()
}

// Load returns the stored status, or ok=false before the first frame.
func (l *LatestStatus) Load() (Status, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cur, l.set
}
