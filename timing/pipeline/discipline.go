package pipeline

import (
	"fmt"

	"github.com/sarchlab/tracesim/insts"
)

// TieBreak selects which ready instruction wins when more instructions are
// ready than execute bandwidth remains. Oldest-ready-first is the default;
// the exact hardware policy is not observable from traces, so it is exposed
// as configuration rather than hard-coded.
type TieBreak int

// Tie-break policies for the out-of-order discipline.
const (
	TieBreakOldestFirst TieBreak = iota
	TieBreakYoungestFirst
)

// ExecutionDiscipline decides which scheduled-but-unexecuted reorder buffer
// entries execute in a given cycle. Both variants are gated by the same
// execute-stage BandwidthLimiter and test readiness identically, through
// InstructionRecord.ExecuteReady: scheduled, not yet executed, no outstanding
// source-register producers, ready time passed. They differ only in what
// happens at a not-ready entry: out-of-order skips it, strict in-order stops
// the whole scan.
//
// Either way retirement order is unchanged; the discipline affects only
// execution timing.
type ExecutionDiscipline interface {
	// Name returns the discipline's configuration name.
	Name() string

	// Execute scans the reorder buffer and fires ready entries through the
	// fire callback, consuming one unit of bw per entry. Returns the number
	// of entries fired, the discipline's contribution to cycle progress.
	Execute(rob *ReorderBuffer, now int64,
		bw *BandwidthLimiter, fire func(*insts.InstructionRecord)) int
}

// NewDiscipline builds the discipline named by configuration: "ooo" or
// "inorder".
func NewDiscipline(name string, tieBreak TieBreak) (ExecutionDiscipline, error) {
	switch name {
	case "ooo", "out-of-order":
		return &OutOfOrder{tieBreak: tieBreak}, nil
	case "inorder", "in-order":
		return &StrictInOrder{}, nil
	default:
		return nil, fmt.Errorf("pipeline: unknown execution discipline %q", name)
	}
}
