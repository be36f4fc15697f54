package mem

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds the cache model configuration.
type Config struct {
	// Size in bytes.
	Size int
	// Associativity (number of ways).
	Associativity int
	// BlockSize in bytes (cache line size).
	BlockSize int
	// HitLatency in cycles.
	HitLatency int64
	// MissLatency in cycles (includes next-level access time).
	MissLatency int64
	// MaxPerCycle is the number of requests served per cycle.
	MaxPerCycle int
}

// DefaultL1DConfig returns a generic L1 data cache configuration.
func DefaultL1DConfig() Config {
	return Config{
		Size:          64 * 1024,
		Associativity: 8,
		BlockSize:     64,
		HitLatency:    4,
		MissLatency:   100,
		MaxPerCycle:   2,
	}
}

// Statistics holds memory-system counters.
type Statistics struct {
	Loads      uint64
	Stores     uint64
	Prefetches uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
}

// HitRate returns the fraction of demand accesses that hit, as a percentage.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// System is a single-level cache model that serves the pipeline's memory
// channels. Tag and replacement state live in an Akita cache directory; the
// model is timing-only, so no data array is kept. The system is an Operable:
// the enclosing scheduler calls Tick once per simulated cycle.
type System struct {
	cfg       Config
	directory *akitacache.DirectoryImpl
	channels  *Channels
	cycle     int64
	period    int64
	stats     Statistics
}

// NewSystem creates a memory system serving the given channel bundle.
// clockPeriod is the system's tick length in the scheduler's time unit.
func NewSystem(cfg Config, channels *Channels, clockPeriod int64) *System {
	numSets := cfg.Size / (cfg.Associativity * cfg.BlockSize)
	return &System{
		cfg: cfg,
		directory: akitacache.NewDirectory(
			numSets,
			cfg.Associativity,
			cfg.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		channels: channels,
		period:   clockPeriod,
	}
}

// Config returns the cache configuration.
func (s *System) Config() Config { return s.cfg }

// Stats returns the accumulated counters.
func (s *System) Stats() Statistics { return s.stats }

// CurrentTime returns the system's simulated time.
func (s *System) CurrentTime() int64 { return s.cycle * s.period }

// Tick serves one cycle of memory traffic: it drains each request channel
// once, looks every request up in the directory, and pushes a response on
// the return channel with the access latency applied. Returns the number of
// requests served.
func (s *System) Tick() int {
	now := s.cycle
	s.cycle++

	served := 0
	budget := s.cfg.MaxPerCycle
	if budget <= 0 {
		budget = 1
	}

	for _, req := range s.channels.LoadReq.DrainUpTo(budget - served) {
		s.stats.Loads++
		latency := s.access(req.Address)
		s.respond(req, now+latency)
		served++
	}
	for _, req := range s.channels.StoreReq.DrainUpTo(budget - served) {
		s.stats.Stores++
		latency := s.access(req.Address)
		s.respond(req, now+latency)
		served++
	}
	for _, req := range s.channels.PrefetchReq.DrainUpTo(budget - served) {
		s.stats.Prefetches++
		// Prefetches warm the directory but produce no completion.
		s.access(req.Address)
		served++
	}

	return served
}

// access looks up the block, updates tag/LRU state, and returns the access
// latency in cycles.
func (s *System) access(addr uint64) int64 {
	blockAddr := (addr / uint64(s.cfg.BlockSize)) * uint64(s.cfg.BlockSize)

	block := s.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		s.stats.Hits++
		s.directory.Visit(block)
		return s.cfg.HitLatency
	}

	s.stats.Misses++

	victim := s.directory.FindVictim(blockAddr)
	if victim == nil {
		return s.cfg.MissLatency
	}
	if victim.IsValid {
		s.stats.Evictions++
	}
	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	s.directory.Visit(victim)

	return s.cfg.MissLatency
}

func (s *System) respond(req Request, availableTime int64) {
	s.channels.Return.Push(Response{
		Address:       req.Address,
		Kind:          req.Kind,
		InstrID:       req.InstrID,
		Dependents:    req.Dependents,
		AvailableTime: availableTime,
	})
}

// Reset invalidates all cache state and clears statistics.
func (s *System) Reset() {
	s.directory.Reset()
	s.stats = Statistics{}
	s.cycle = 0
}
