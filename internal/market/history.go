package market

import (
	"sync"
	"time"
)

// Sample 是一次取价的结果。
type Sample struct {
	Price float64
	Time  time.Time
}

const defaultHistoryCapacity = 1000

// History 保存最近 N 个价格样本。环形缓冲：追加 O(1)，写满后覆盖最旧样本。
type History struct {
	mu   sync.RWMutex
	buf  []Sample
	next int
	size int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	return &History{buf: make([]Sample, capacity)}
}

func (h *History) Append(s Sample) {
	h.mu.Lock()
	h.buf[h.next] = s
	h.next = (h.next + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
	h.mu.Unlock()
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

func (h *History) Capacity() int {
	return len(h.buf)
}

// Last 返回最新样本；缓冲为空时 ok 为 false。
func (h *History) Last() (Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.size == 0 {
		return Sample{}, false
	}
	idx := (h.next - 1 + len(h.buf)) % len(h.buf)
	return h.buf[idx], true
}

// Closes 按从旧到新的顺序返回全部收盘价快照。
func (h *History) Closes() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]float64, h.size)
	for i := 0; i < h.size; i++ {
		idx := (h.next - h.size + i + len(h.buf)) % len(h.buf)
		out[i] = h.buf[idx].Price
	}
	return out
}
