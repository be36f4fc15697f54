package pipeline

import "github.com/sarchlab/tracesim/insts"

// ReorderBuffer is the bounded, age-ordered window of in-flight
// instructions. Allocation appends at the tail in program order; retirement
// removes from the head, and only while the head is completed. Entries are
// never reordered: execution and completion may happen out of age order
// (discipline permitting), but removal is always strict FIFO by age.
type ReorderBuffer struct {
	entries  []*insts.InstructionRecord
	capacity int
}

// NewReorderBuffer creates a reorder buffer with the given capacity.
func NewReorderBuffer(capacity int) *ReorderBuffer {
	return &ReorderBuffer{capacity: capacity}
}

// Allocate appends rec at the tail. Returns ErrCapacityExceeded when the
// buffer is full; the caller retries on a later cycle and must not block.
func (r *ReorderBuffer) Allocate(rec *insts.InstructionRecord) error {
	if len(r.entries) >= r.capacity {
		return ErrCapacityExceeded
	}
	r.entries = append(r.entries, rec)
	return nil
}

// Len returns the number of in-flight entries.
func (r *ReorderBuffer) Len() int { return len(r.entries) }

// Cap returns the configured capacity.
func (r *ReorderBuffer) Cap() int { return r.capacity }

// At returns the i-th entry by age (0 is the oldest).
func (r *ReorderBuffer) At(i int) *insts.InstructionRecord { return r.entries[i] }

// Head returns the oldest entry, or nil when the buffer is empty.
func (r *ReorderBuffer) Head() *insts.InstructionRecord {
	if len(r.entries) == 0 {
		return nil
	}
	return r.entries[0]
}

// Retire removes completed entries from the head, oldest first, while
// retire bandwidth remains. Each retired entry is passed to onRetire (which
// updates counters and releases rename state). Returns the number retired.
func (r *ReorderBuffer) Retire(bw *BandwidthLimiter, onRetire func(*insts.InstructionRecord)) int {
	retired := 0
	for len(r.entries) > 0 && bw.HasRemaining() {
		head := r.entries[0]
		if !head.Completed {
			break
		}
		r.entries = r.entries[1:]
		head.Retired = true
		bw.Consume()
		retired++
		if onRetire != nil {
			onRetire(head)
		}
	}
	return retired
}

// Complete marks rec completed, publishes its destination registers as valid
// in the allocator, and returns the dependents to wake. The entry stays in
// the buffer until it reaches the head and retires.
func (r *ReorderBuffer) Complete(rec *insts.InstructionRecord, alloc *RegisterAllocator) []insts.InstrID {
	rec.Completed = true
	for i := 0; i < rec.DstRegs.Len(); i++ {
		alloc.Publish(rec.DstRegs.At(i), rec.ID)
	}
	return rec.Dependents
}

// Squash removes every entry with ID >= cut (the mispredicted or faulting
// instruction and everything younger) and rebuilds the rename table from the
// survivors. Called by the surrounding engine between cycles; there is no
// mid-cycle cancellation. Returns the squashed entries, youngest last.
func (r *ReorderBuffer) Squash(cut insts.InstrID, alloc *RegisterAllocator) []*insts.InstructionRecord {
	keep := 0
	for keep < len(r.entries) && r.entries[keep].ID < cut {
		keep++
	}
	squashed := r.entries[keep:]
	r.entries = r.entries[:keep]
	alloc.Rebuild(r.entries)
	return squashed
}
