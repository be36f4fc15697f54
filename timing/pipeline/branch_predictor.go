package pipeline

// BranchPredictor is the prediction collaborator the engine consults at
// fetch time. The core does not compute predictions itself; it records the
// speculative outcome on the instruction and verifies it at execute time.
type BranchPredictor interface {
	// Predict returns the speculative taken outcome for the branch at ip.
	Predict(ip uint64) bool

	// Update trains the predictor with the actual outcome.
	Update(ip uint64, taken bool)
}

// BranchStats holds prediction counters.
type BranchStats struct {
	// Predictions is the total number of branch predictions made.
	Predictions uint64
	// Correct is the number of correct predictions.
	Correct uint64
	// Mispredictions is the number of incorrect predictions.
	Mispredictions uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s BranchStats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Predictions) * 100
}

// BimodalPredictor is a table of 2-bit saturating counters indexed by the
// branch address. States: 0=strongly not taken, 1=weakly not taken,
// 2=weakly taken, 3=strongly taken. Counters start weakly taken.
type BimodalPredictor struct {
	counters []uint8
	size     uint32
	stats    BranchStats
}

// NewBimodalPredictor creates a predictor with the given table size, which
// must be a power of two. Size 0 selects the default of 1024 entries.
func NewBimodalPredictor(size uint32) *BimodalPredictor {
	if size == 0 {
		size = 1024
	}
	p := &BimodalPredictor{
		counters: make([]uint8, size),
		size:     size,
	}
	for i := range p.counters {
		p.counters[i] = 2
	}
	return p
}

// Stats returns the accumulated counters.
func (p *BimodalPredictor) Stats() BranchStats { return p.stats }

func (p *BimodalPredictor) index(ip uint64) uint32 {
	return uint32((ip >> 2) & uint64(p.size-1))
}

// Predict implements BranchPredictor.
func (p *BimodalPredictor) Predict(ip uint64) bool {
	p.stats.Predictions++
	return p.counters[p.index(ip)] >= 2
}

// Update implements BranchPredictor.
func (p *BimodalPredictor) Update(ip uint64, taken bool) {
	i := p.index(ip)
	predicted := p.counters[i] >= 2
	if predicted == taken {
		p.stats.Correct++
	} else {
		p.stats.Mispredictions++
	}
	if taken {
		if p.counters[i] < 3 {
			p.counters[i]++
		}
	} else if p.counters[i] > 0 {
		p.counters[i]--
	}
}

// AlwaysTaken is a trivial predictor useful in tests.
type AlwaysTaken struct{}

// Predict implements BranchPredictor.
func (AlwaysTaken) Predict(uint64) bool { return true }

// Update implements BranchPredictor.
func (AlwaysTaken) Update(uint64, bool) {}
