package pipeline

// BandwidthLimiter caps how many instructions a pipeline stage may process in
// one cycle. Each stage owns one limiter; the engine resets every limiter to
// its full width at the start of each cycle, so unused bandwidth never
// carries over.
type BandwidthLimiter struct {
	width    int
	consumed int
}

// NewBandwidthLimiter creates a limiter with the given per-cycle width.
func NewBandwidthLimiter(width int) *BandwidthLimiter {
	return &BandwidthLimiter{width: width}
}

// HasRemaining reports whether another unit may be consumed this cycle.
func (b *BandwidthLimiter) HasRemaining() bool {
	return b.consumed < b.width
}

// Consume uses one unit of bandwidth.
func (b *BandwidthLimiter) Consume() {
	b.consumed++
}

// AmountConsumed returns the bandwidth used since the last Reset.
func (b *BandwidthLimiter) AmountConsumed() int {
	return b.consumed
}

// Width returns the configured per-cycle width.
func (b *BandwidthLimiter) Width() int {
	return b.width
}

// Reset restores the full width for a new cycle.
func (b *BandwidthLimiter) Reset() {
	b.consumed = 0
}
