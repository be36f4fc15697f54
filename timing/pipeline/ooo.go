package pipeline

import "github.com/sarchlab/tracesim/insts"

// OutOfOrder executes any ready entry regardless of age. Entries that are
// not ready are skipped, never blocking; a younger ready instruction may
// execute while an older one is still waiting on its operands.
type OutOfOrder struct {
	tieBreak TieBreak
}

// Name implements ExecutionDiscipline.
func (d *OutOfOrder) Name() string { return "ooo" }

// Execute implements ExecutionDiscipline. With the oldest-first tie-break
// the scan runs oldest to youngest, so when bandwidth is short the oldest
// ready entries win. Youngest-first scans the other way.
func (d *OutOfOrder) Execute(rob *ReorderBuffer,
	now int64, bw *BandwidthLimiter, fire func(*insts.InstructionRecord)) int {
	fired := 0

	visit := func(rec *insts.InstructionRecord) bool {
		if !bw.HasRemaining() {
			return false
		}
		if rec.ExecuteReady(now) {
			fire(rec)
			bw.Consume()
			fired++
		}
		return true
	}

	if d.tieBreak == TieBreakYoungestFirst {
		for i := rob.Len() - 1; i >= 0; i-- {
			if !visit(rob.At(i)) {
				break
			}
		}
		return fired
	}

	for i := 0; i < rob.Len(); i++ {
		if !visit(rob.At(i)) {
			break
		}
	}
	return fired
}
