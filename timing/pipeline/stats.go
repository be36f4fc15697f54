package pipeline

// Statistics holds pipeline performance counters.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Retired is the number of instructions retired.
	Retired uint64
	// Fetched is the number of instructions pulled from the trace.
	Fetched uint64
	// Executed is the number of instructions fired by the discipline.
	Executed uint64
	// Completed is the number of instructions that finished all their work.
	Completed uint64
	// Squashed is the number of instructions removed by squashes.
	Squashed uint64

	// ROBStalls counts cycles in which dispatch made no progress because
	// the reorder buffer was full.
	ROBStalls uint64
	// LSQStalls counts cycles in which dispatch made no progress because a
	// load or store queue was full.
	LSQStalls uint64
	// ExecStalls counts cycles in which the discipline fired nothing while
	// unexecuted instructions were in flight.
	ExecStalls uint64

	// Flushes is the number of front-end redirects after mispredictions.
	Flushes uint64
	// DIBHits counts fetches that hit the decoded-instruction buffer.
	DIBHits uint64
	// DIBMisses counts fetches that missed it.
	DIBMisses uint64
}

// IPC returns retired instructions per cycle.
func (s Statistics) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Retired) / float64(s.Cycles)
}

// CPI returns cycles per retired instruction.
func (s Statistics) CPI() float64 {
	if s.Retired == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Retired)
}
