package shape

import "sync"

// MemoryStrip is a Strip backed by an in-memory pixel slice. The sculpture
// binary uses it when no hardware driver is linked in, and tests inspect
// it to assert what an animation rendered.
type MemoryStrip struct {
	mu     sync.Mutex
	pixels []Color
	writes int
}

// NewMemoryStrip allocates a strip of n pixels. The strip grows to fit
// the highest index written, so n may be zero when the LED count is not
// known until the shape loads.
func NewMemoryStrip(n int) *MemoryStrip {
	return &MemoryStrip{pixels: make([]Color, n)}
}

func (m *MemoryStrip) Set(index int, c Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 {
		return
	}
	for index >= len(m.pixels) {
		m.pixels = append(m.pixels, Color{})
	}
	m.pixels[index] = c
}

func (m *MemoryStrip) Write() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	return nil
}

// Pixels returns a copy of the current pixel values.
func (m *MemoryStrip) Pixels() []Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Color, len(m.pixels))
	copy(out, m.pixels)
	return out
}

// Writes reports how many times the buffer was flushed.
func (m *MemoryStrip) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
