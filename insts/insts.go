// Package insts provides the dynamic instruction representation used by the
// timing simulator.
//
// Instructions arrive from the trace reader already decoded: the operand sets
// (source/destination registers and memory addresses) are pre-populated. The
// timing core only tracks each instruction's progress through the pipeline,
// so the record here carries the pipeline-progress flags alongside the
// decoded operands.
package insts

// InstrID uniquely identifies a dynamic instruction for the lifetime of a
// simulation. IDs are assigned in fetch (program) order, so comparing IDs
// compares instruction age. InvalidInstrID is never assigned.
type InstrID uint64

// InvalidInstrID is the zero value of InstrID and marks "no instruction".
const InvalidInstrID InstrID = 0

// Reg is an architectural register number.
type Reg uint8

// NumArchRegs is the number of architectural registers the rename table
// tracks. Trace registers are expected to be below this bound.
const NumArchRegs = 64

// Operand set capacities. These bound how many operands a single decoded
// instruction may carry.
const (
	// SrcRegCap is the maximum number of source registers per instruction.
	SrcRegCap = 4
	// DstRegCap is the maximum number of destination registers per instruction.
	DstRegCap = 2
	// SrcMemCap is the maximum number of source memory operands (loads).
	SrcMemCap = 4
	// DstMemCap is the maximum number of destination memory operands (stores).
	DstMemCap = 2
)

// RegSet is a small fixed-capacity set of register numbers. Unlike a
// sentinel-encoded array, it carries its own occupancy count, so every
// register number from 0 to NumArchRegs-1 is a legal member. Duplicate adds
// are suppressed.
type RegSet struct {
	regs [SrcRegCap]Reg
	n    int
}

// Add inserts a register into the set. Adding a register already present is a
// no-op. Returns false when the set is at capacity.
func (s *RegSet) Add(r Reg) bool {
	for i := 0; i < s.n; i++ {
		if s.regs[i] == r {
			return true
		}
	}
	if s.n >= len(s.regs) {
		return false
	}
	s.regs[s.n] = r
	s.n++
	return true
}

// Len returns the number of registers in the set.
func (s *RegSet) Len() int { return s.n }

// At returns the i-th register in insertion order.
func (s *RegSet) At(i int) Reg { return s.regs[i] }

// Contains reports whether r is a member of the set.
func (s *RegSet) Contains(r Reg) bool {
	for i := 0; i < s.n; i++ {
		if s.regs[i] == r {
			return true
		}
	}
	return false
}

// AddrSet is a small fixed-capacity set of memory addresses with the same
// occupancy-count design as RegSet. Address 0 is a legal member.
type AddrSet struct {
	addrs [SrcMemCap]uint64
	n     int
}

// Add inserts an address into the set. Adding an address already present is a
// no-op. Returns false when the set is at capacity.
func (s *AddrSet) Add(addr uint64) bool {
	for i := 0; i < s.n; i++ {
		if s.addrs[i] == addr {
			return true
		}
	}
	if s.n >= len(s.addrs) {
		return false
	}
	s.addrs[s.n] = addr
	s.n++
	return true
}

// Len returns the number of addresses in the set.
func (s *AddrSet) Len() int { return s.n }

// At returns the i-th address in insertion order.
func (s *AddrSet) At(i int) uint64 { return s.addrs[i] }

// Contains reports whether addr is a member of the set.
func (s *AddrSet) Contains(addr uint64) bool {
	for i := 0; i < s.n; i++ {
		if s.addrs[i] == addr {
			return true
		}
	}
	return false
}

// InstructionRecord is one dynamic instruction in flight. A record is created
// at fetch time and lives until it retires from the reorder buffer (or is
// squashed). The pipeline-progress flags are monotonic: each only ever
// transitions false to true.
type InstructionRecord struct {
	// ID is the fetch-order identity of this dynamic instruction.
	ID InstrID

	// IP is the instruction pointer (address) of the instruction.
	IP uint64

	// IsBranch marks branch instructions. BranchTaken is the actual outcome
	// recorded in the trace; PredictedTaken is the speculative outcome the
	// branch predictor produced at fetch time.
	IsBranch       bool
	BranchTaken    bool
	PredictedTaken bool

	// Decoded operand sets, pre-populated by the trace reader.
	SrcRegs RegSet
	DstRegs RegSet
	SrcMem  AddrSet
	DstMem  AddrSet

	// Pipeline-progress flags, in stage order. Monotonic false -> true.
	Fetched    bool
	DIBChecked bool
	Decoded    bool
	Dispatched bool
	Scheduled  bool
	Executed   bool
	Completed  bool
	Retired    bool

	// ReadyTime is the earliest cycle at which all source operands can be
	// known valid. It is set when the instruction is scheduled and pushed
	// forward when a producer completes.
	ReadyTime int64

	// StageReadyTime gates front-end stage transitions (decode, dispatch)
	// to model per-stage latency.
	StageReadyTime int64

	// ExecDoneTime is the cycle at which the execution latency has elapsed,
	// valid once Executed is set.
	ExecDoneTime int64

	// PendingSources counts source registers whose producer had not completed
	// when this instruction was scheduled. The count is captured once, at
	// schedule time, and decremented as those producers complete; execution
	// gates on it reaching zero. Capturing at schedule keeps the instruction
	// immune to later renames of its source registers (including by itself,
	// when a destination equals a source).
	PendingSources int

	// PendingLoads counts source-memory operands that have not yet been
	// satisfied by the memory hierarchy (or by store-to-load forwarding).
	// The instruction cannot complete while any load is outstanding.
	PendingLoads int

	// Dependents lists younger instructions waiting on this instruction's
	// result. They are woken when this instruction completes.
	Dependents []InstrID
}

// ExecuteReady reports whether the record may execute at the given cycle: it
// has been scheduled, has not executed, every source-register producer it was
// scheduled behind has completed, and its operand-ready time has passed.
func (r *InstructionRecord) ExecuteReady(now int64) bool {
	return r.Scheduled && !r.Executed && r.PendingSources == 0 && r.ReadyTime <= now
}

// IsLoad reports whether the instruction reads memory.
func (r *InstructionRecord) IsLoad() bool { return r.SrcMem.Len() > 0 }

// IsStore reports whether the instruction writes memory.
func (r *InstructionRecord) IsStore() bool { return r.DstMem.Len() > 0 }

// Mispredicted reports whether the speculative branch outcome disagrees with
// the traced outcome.
func (r *InstructionRecord) Mispredicted() bool {
	return r.IsBranch && r.PredictedTaken != r.BranchTaken
}
