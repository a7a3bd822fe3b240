package monitor

// rollingBuffer keeps the most recent level readings in arrival order and
// drops the oldest once full.
type rollingBuffer struct {
	data  []float64
	start int
	size  int
}

func newRollingBuffer(capacity int) *rollingBuffer {
	return &rollingBuffer{data: make([]float64, capacity)}
}

func (b *rollingBuffer) push(v float64) {
	if b.size < len(b.data) {
		b.data[(b.start+b.size)%len(b.data)] = v
		b.size++
		return
	}
	b.data[b.start] = v
	b.start = (b.start + 1) % len(b.data)
}

func (b *rollingBuffer) count() int {
	return b.size
}

// values returns the readings oldest first.
func (b *rollingBuffer) values() []float64 {
	out := make([]float64, b.size)
	for i := range out {
		out[i] = b.data[(b.start+i)%len(b.data)]
	}
	return out
}

func (b *rollingBuffer) reset() {
	b.start, b.size = 0, 0
}
