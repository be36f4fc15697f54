package pipeline

import "github.com/sarchlab/tracesim/insts"

// producerEntry records the most recent in-flight producer of one
// architectural register.
type producerEntry struct {
	id    insts.InstrID
	valid bool
}

// RegisterAllocator is the rename table plus per-register readiness tracking.
// Each architectural register maps to the identifier of its most recent
// in-flight producer; IsValid is true exactly when that producer has
// completed (or when no producer is in flight). Write-after-write and
// write-after-read hazards are eliminated structurally: a read always
// observes the producer that was current at the time of renaming, and an
// older producer completing can never flip the validity of a register that
// has since been renamed.
type RegisterAllocator struct {
	table [insts.NumArchRegs]producerEntry
}

// NewRegisterAllocator creates an allocator with every register valid (the
// architectural state is the producer of record).
func NewRegisterAllocator() *RegisterAllocator {
	return &RegisterAllocator{}
}

// IsValid reports whether reading reg would observe a completed value.
func (a *RegisterAllocator) IsValid(reg insts.Reg) bool {
	e := a.table[reg]
	return e.id == insts.InvalidInstrID || e.valid
}

// Producer returns the identifier of the in-flight producer of reg, or
// InvalidInstrID when the register holds architectural state.
func (a *RegisterAllocator) Producer(reg insts.Reg) insts.InstrID {
	return a.table[reg].id
}

// Rename makes id the current producer of reg. The register becomes invalid
// until the producer publishes.
func (a *RegisterAllocator) Rename(reg insts.Reg, id insts.InstrID) {
	a.table[reg] = producerEntry{id: id}
}

// Publish marks reg valid, but only if id is still its current producer. A
// stale producer (one whose destination has since been renamed) publishes
// nothing; the younger generation's validity is untouched.
func (a *RegisterAllocator) Publish(reg insts.Reg, id insts.InstrID) {
	if a.table[reg].id == id {
		a.table[reg].valid = true
	}
}

// Release frees the rename entry on retirement, but only if id is still the
// producer of record. The register reverts to architectural state, which is
// always valid, so validity remains monotonic across release.
func (a *RegisterAllocator) Release(reg insts.Reg, id insts.InstrID) {
	if a.table[reg].id == id {
		a.table[reg] = producerEntry{}
	}
}

// Rebuild reconstructs the rename table from the surviving in-flight
// instructions, oldest first. Used after a squash: the squashed producers
// vanish, and each register's producer of record becomes the youngest
// surviving writer (or architectural state if none remains).
func (a *RegisterAllocator) Rebuild(surviving []*insts.InstructionRecord) {
	a.table = [insts.NumArchRegs]producerEntry{}
	for _, rec := range surviving {
		for i := 0; i < rec.DstRegs.Len(); i++ {
			reg := rec.DstRegs.At(i)
			a.table[reg] = producerEntry{id: rec.ID, valid: rec.Completed}
		}
	}
}
