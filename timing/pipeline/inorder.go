package pipeline

import "github.com/sarchlab/tracesim/insts"

// StrictInOrder only ever fires the oldest unexecuted instruction (and, with
// spare bandwidth, a consecutive ready run behind it). The first unexecuted
// entry that is not ready stops the scan for the whole cycle: nothing
// younger may execute while an older unexecuted instruction is outstanding.
// This is a hard stall, distinct from the out-of-order skip.
type StrictInOrder struct{}

// Name implements ExecutionDiscipline.
func (d *StrictInOrder) Name() string { return "inorder" }

// Execute implements ExecutionDiscipline.
func (d *StrictInOrder) Execute(rob *ReorderBuffer,
	now int64, bw *BandwidthLimiter, fire func(*insts.InstructionRecord)) int {
	fired := 0

	for i := 0; i < rob.Len() && bw.HasRemaining(); i++ {
		rec := rob.At(i)
		if rec.ExecuteReady(now) {
			fire(rec)
			bw.Consume()
			fired++
		} else if !rec.Executed {
			break // in-order stall: cannot skip past this instruction
		}
	}

	return fired
}
