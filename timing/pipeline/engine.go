package pipeline

import (
	"io"
	"os"

	"github.com/sarchlab/tracesim/insts"
	"github.com/sarchlab/tracesim/timing/mem"
	"github.com/sarchlab/tracesim/trace"
)

// EngineOption is a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithBranchPredictor replaces the default bimodal predictor.
func WithBranchPredictor(bp BranchPredictor) EngineOption {
	return func(e *Engine) {
		e.predictor = bp
	}
}

// WithHeartbeatWriter redirects heartbeat output (default os.Stdout).
func WithHeartbeatWriter(w io.Writer) EngineOption {
	return func(e *Engine) {
		e.heartbeatOut = w
	}
}

// Engine is the pipeline execution core. Each Tick simulates exactly one
// cycle: the stage handlers run in the fixed reversed order (see StageOrder),
// each gated by its own bandwidth limiter, and the aggregate progress count
// is returned for the enclosing scheduler's livelock detection.
//
// The engine is single-threaded and cooperative. Within one Tick it has
// exclusive access to its reorder buffer, load/store queue, and rename
// state; all interaction with the memory hierarchy goes through the bounded
// request/response channels, drained at most once per cycle.
type Engine struct {
	cfg    Config
	source trace.Source

	rob   *ReorderBuffer
	alloc *RegisterAllocator
	lsq   *LoadStoreQueue
	dib   *dib

	predictor    BranchPredictor
	channels     *mem.Channels
	heartbeat    *HeartbeatMonitor
	heartbeatOut io.Writer

	discipline ExecutionDiscipline

	// Front-end buffers between fetch/decode and decode/dispatch.
	fetchBuffer  []*insts.InstructionRecord
	decodeBuffer []*insts.InstructionRecord

	bwFetch    *BandwidthLimiter
	bwDecode   *BandwidthLimiter
	bwDispatch *BandwidthLimiter
	bwSchedule *BandwidthLimiter
	bwExec     *BandwidthLimiter
	bwRetire   *BandwidthLimiter
	bwLSQ      *BandwidthLimiter

	byID        map[insts.InstrID]*insts.InstructionRecord
	nextID      insts.InstrID
	cycle       int64
	fetchResume int64
	traceDone   bool

	stats Statistics
}

// NewEngine creates a pipeline engine pulling instructions from source and
// talking to the memory hierarchy through channels.
func NewEngine(cfg Config, source trace.Source, channels *mem.Channels,
	opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tieBreak, err := cfg.tieBreak()
	if err != nil {
		return nil, err
	}
	discipline, err := NewDiscipline(cfg.Discipline, tieBreak)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:          cfg,
		source:       source,
		rob:          NewReorderBuffer(cfg.ROBSize),
		alloc:        NewRegisterAllocator(),
		lsq:          NewLoadStoreQueue(cfg.LoadQueueSize, cfg.StoreQueueSize),
		dib:          newDIB(cfg.DIBSize),
		channels:     channels,
		discipline:   discipline,
		heartbeatOut: os.Stdout,
		bwFetch:      NewBandwidthLimiter(cfg.FetchWidth),
		bwDecode:     NewBandwidthLimiter(cfg.DecodeWidth),
		bwDispatch:   NewBandwidthLimiter(cfg.DispatchWidth),
		bwSchedule:   NewBandwidthLimiter(cfg.ScheduleWidth),
		bwExec:       NewBandwidthLimiter(cfg.ExecWidth),
		bwRetire:     NewBandwidthLimiter(cfg.RetireWidth),
		bwLSQ:        NewBandwidthLimiter(cfg.LSQWidth),
		byID:         make(map[insts.InstrID]*insts.InstructionRecord),
		nextID:       1,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.predictor == nil {
		e.predictor = NewBimodalPredictor(1024)
	}
	e.heartbeat = NewHeartbeatMonitor(
		cfg.CPUID, cfg.HeartbeatPeriod, cfg.ShowHeartbeat, e.heartbeatOut)

	return e, nil
}

// Tick simulates one cycle and returns the number of instructions that
// advanced at least one stage. A return of zero is a stall, retried by the
// enclosing scheduler on a later call; the engine never blocks.
func (e *Engine) Tick() int {
	now := e.cycle

	for _, bw := range []*BandwidthLimiter{
		e.bwFetch, e.bwDecode, e.bwDispatch, e.bwSchedule,
		e.bwExec, e.bwRetire, e.bwLSQ,
	} {
		bw.Reset()
	}

	progress := 0
	for _, st := range engineStages {
		progress += st.run(e, now)
	}

	e.stats.Cycles++
	e.cycle++
	e.heartbeat.Observe(e.stats.Retired, e.cycle)

	return progress
}

// CurrentTime returns the engine's simulated time (cycle * clock period).
func (e *Engine) CurrentTime() int64 {
	return e.cycle * e.cfg.ClockPeriod
}

// Cycle returns the number of cycles simulated so far.
func (e *Engine) Cycle() int64 { return e.cycle }

// Stats returns a copy of the performance counters.
func (e *Engine) Stats() Statistics { return e.stats }

// Discipline returns the active execution discipline.
func (e *Engine) Discipline() ExecutionDiscipline { return e.discipline }

// ROB exposes the reorder buffer, primarily for tests and tooling.
func (e *Engine) ROB() *ReorderBuffer { return e.rob }

// Allocator exposes the register allocator.
func (e *Engine) Allocator() *RegisterAllocator { return e.alloc }

// LSQ exposes the load/store queue.
func (e *Engine) LSQ() *LoadStoreQueue { return e.lsq }

// BeginPhase resets the heartbeat baseline, e.g. at the warmup-to-ROI
// transition. Invoked by the surrounding controller between cycles.
func (e *Engine) BeginPhase() {
	e.heartbeat.BeginPhase(e.stats.Retired, e.cycle)
}

// TraceDone reports whether the instruction source is exhausted. This is a
// normal termination condition, reported upward, never an error of the core.
func (e *Engine) TraceDone() bool { return e.traceDone }

// Drained reports whether the trace is exhausted and every in-flight
// instruction has retired.
func (e *Engine) Drained() bool {
	return e.traceDone &&
		len(e.fetchBuffer) == 0 &&
		len(e.decodeBuffer) == 0 &&
		e.rob.Len() == 0
}

// Squash removes the instruction with ID cut and everything younger: reorder
// buffer entries, load/store queue entries, and front-end buffer contents.
// The rename table is rebuilt from the survivors. Squashing happens between
// cycles (there is no mid-cycle cancellation); responses for in-flight
// requests of squashed instructions will return and match nothing. Returns
// the number of instructions removed.
func (e *Engine) Squash(cut insts.InstrID) int {
	squashed := e.rob.Squash(cut, e.alloc)
	e.lsq.SquashFrom(cut)
	for _, rec := range squashed {
		delete(e.byID, rec.ID)
	}

	removed := len(squashed)
	removed += dropFrom(&e.fetchBuffer, cut)
	removed += dropFrom(&e.decodeBuffer, cut)

	e.stats.Squashed += uint64(removed)
	return removed
}

func dropFrom(buf *[]*insts.InstructionRecord, cut insts.InstrID) int {
	kept := (*buf)[:0]
	dropped := 0
	for _, rec := range *buf {
		if rec.ID >= cut {
			dropped++
			continue
		}
		kept = append(kept, rec)
	}
	*buf = kept
	return dropped
}
