package overlay

import (
	"sync"
	"time"
)

// DefaultZoomMaskWindow is how long the overlay stays hidden after a zoom request
const DefaultZoomMaskWindow = 500 * time.Millisecond

// ZoomMask marks the overlay as stale for a fixed window after each zoom change,
// while the page raster is re-rendered at the new scale. A fresh raster ends the
// window early through Reveal. Field positions are correct regardless.
type ZoomMask struct {
	mu     sync.Mutex
	window time.Duration
	until  time.Time
	now    func() time.Time
}

// NewZoomMask creates a mask with the given window; zero or negative uses the default
func NewZoomMask(window time.Duration) *ZoomMask {
	if window <= 0 {
		window = DefaultZoomMaskWindow
	}
	return &ZoomMask{window: window, now: time.Now}
}

// Zoomed records a zoom change and restarts the window
func (m *ZoomMask) Zoomed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.until = m.now().Add(m.window)
}

// Reveal ends the window early, e.g. once the new raster has arrived
func (m *ZoomMask) Reveal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.until = time.Time{}
}

// Masked reports whether the overlay is currently hidden
func (m *ZoomMask) Masked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Before(m.until)
}
