package sensor

import "time"

type sample struct {
	at   time.Time
	temp int
}

// tempHistory is a fixed-capacity ring of (timestamp, temperature) samples
// covering the trailing detection window. Capacity is window ÷ poll
// interval, so pushing evicts anything older than the window.
type tempHistory struct {
	samples []sample
	head    int
	size    int
}

func newTempHistory(capacity int) *tempHistory {
	if capacity < 1 {
		capacity = 1
	}
	return &tempHistory{samples: make([]sample, capacity)}
}

func (h *tempHistory) push(at time.Time, temp int) {
	h.samples[h.head] = sample{at: at, temp: temp}
	h.head = (h.head + 1) % len(h.samples)
	if h.size < len(h.samples) {
		h.size++
	}
}

// risen reports whether current exceeds any sample still in the window by
// more than threshold.
func (h *tempHistory) risen(current, threshold int) bool {
	for i := 0; i < h.size; i++ {
		if current-h.samples[i].temp > threshold {
			return true
		}
	}
	return false
}

func (h *tempHistory) len() int {
	return h.size
}
