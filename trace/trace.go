// Package trace supplies already-decoded instructions to the timing core.
//
// The pipeline engine never parses raw trace bytes: a Source hands it
// InstructionRecords with operand sets pre-populated, one at a time, in
// program order. SliceSource replays a fixed sequence (used heavily in
// tests); Generator synthesizes parameterized instruction streams for
// calibration workloads without needing trace files on disk.
package trace

import (
	"errors"

	"github.com/sarchlab/tracesim/insts"
)

// ErrDone is returned by a Source when the instruction stream is exhausted.
// It is a normal termination condition, not a failure.
var ErrDone = errors.New("trace: instruction stream exhausted")

// Source supplies decoded instructions in program order.
type Source interface {
	// Next returns the next instruction of the stream, or ErrDone when the
	// stream is exhausted. The returned record is owned by the caller.
	Next() (*insts.InstructionRecord, error)
}

// SliceSource replays a fixed slice of instruction records.
type SliceSource struct {
	records []*insts.InstructionRecord
	pos     int
}

// NewSliceSource creates a Source that replays the given records in order.
func NewSliceSource(records []*insts.InstructionRecord) *SliceSource {
	return &SliceSource{records: records}
}

// Next implements Source.
func (s *SliceSource) Next() (*insts.InstructionRecord, error) {
	if s.pos >= len(s.records) {
		return nil, ErrDone
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

// Remaining returns the number of records not yet consumed.
func (s *SliceSource) Remaining() int {
	return len(s.records) - s.pos
}

// Builder assembles instruction records for tests and synthetic workloads.
// Each call produces one record with the requested operands; the instruction
// pointer advances by four bytes per instruction.
type Builder struct {
	nextIP uint64
}

// NewBuilder creates a Builder starting at the given instruction pointer.
func NewBuilder(startIP uint64) *Builder {
	return &Builder{nextIP: startIP}
}

// ALU returns a register-to-register instruction reading srcs and writing dst.
func (b *Builder) ALU(dst insts.Reg, srcs ...insts.Reg) *insts.InstructionRecord {
	rec := &insts.InstructionRecord{IP: b.nextIP}
	b.nextIP += 4
	rec.DstRegs.Add(dst)
	for _, s := range srcs {
		rec.SrcRegs.Add(s)
	}
	return rec
}

// Load returns an instruction that loads from addr into dst, using base as
// the address-generation source register.
func (b *Builder) Load(dst insts.Reg, base insts.Reg, addr uint64) *insts.InstructionRecord {
	rec := &insts.InstructionRecord{IP: b.nextIP}
	b.nextIP += 4
	rec.DstRegs.Add(dst)
	rec.SrcRegs.Add(base)
	rec.SrcMem.Add(addr)
	return rec
}

// Store returns an instruction that stores src to addr, using base as the
// address-generation source register.
func (b *Builder) Store(src insts.Reg, base insts.Reg, addr uint64) *insts.InstructionRecord {
	rec := &insts.InstructionRecord{IP: b.nextIP}
	b.nextIP += 4
	rec.SrcRegs.Add(src)
	rec.SrcRegs.Add(base)
	rec.DstMem.Add(addr)
	return rec
}

// Branch returns a conditional branch reading cond with the traced outcome.
func (b *Builder) Branch(cond insts.Reg, taken bool) *insts.InstructionRecord {
	rec := &insts.InstructionRecord{IP: b.nextIP}
	b.nextIP += 4
	rec.IsBranch = true
	rec.BranchTaken = taken
	rec.SrcRegs.Add(cond)
	return rec
}
