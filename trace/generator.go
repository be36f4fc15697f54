package trace

import (
	"math/rand"

	"github.com/sarchlab/tracesim/insts"
)

// GeneratorConfig parameterizes a synthetic instruction stream.
type GeneratorConfig struct {
	// Count is the total number of instructions to generate.
	Count uint64

	// DependencyFraction is the fraction of ALU instructions that read the
	// previous instruction's destination register (RAW chain pressure).
	DependencyFraction float64

	// LoadFraction and StoreFraction are the fractions of instructions that
	// access memory. The remainder are plain ALU operations.
	LoadFraction  float64
	StoreFraction float64

	// BranchFraction is the fraction of instructions that are conditional
	// branches; TakenBias is the probability a generated branch is taken.
	BranchFraction float64
	TakenBias      float64

	// MemStride is the byte distance between consecutive generated memory
	// addresses. A stride equal to the cache line size defeats spatial reuse.
	MemStride uint64

	// Seed makes the stream reproducible.
	Seed int64
}

// DefaultGeneratorConfig returns a mixed workload: mostly ALU with moderate
// dependency pressure, some memory traffic, and biased branches.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Count:              100000,
		DependencyFraction: 0.3,
		LoadFraction:       0.2,
		StoreFraction:      0.1,
		BranchFraction:     0.1,
		TakenBias:          0.6,
		MemStride:          64,
		Seed:               1,
	}
}

// Generator synthesizes a reproducible instruction stream. It implements
// Source.
type Generator struct {
	cfg      GeneratorConfig
	rng      *rand.Rand
	emitted  uint64
	nextIP   uint64
	nextAddr uint64
	lastDst  insts.Reg
}

// NewGenerator creates a Generator for the given configuration.
func NewGenerator(cfg GeneratorConfig) *Generator {
	return &Generator{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		nextIP:   0x400000,
		nextAddr: 0x800000,
		lastDst:  1,
	}
}

// Next implements Source.
func (g *Generator) Next() (*insts.InstructionRecord, error) {
	if g.emitted >= g.cfg.Count {
		return nil, ErrDone
	}
	g.emitted++

	rec := &insts.InstructionRecord{IP: g.nextIP}
	g.nextIP += 4

	dst := insts.Reg(1 + g.rng.Intn(insts.NumArchRegs-1))
	src := insts.Reg(1 + g.rng.Intn(insts.NumArchRegs-1))
	if g.rng.Float64() < g.cfg.DependencyFraction {
		src = g.lastDst
	}

	r := g.rng.Float64()
	switch {
	case r < g.cfg.BranchFraction:
		rec.IsBranch = true
		rec.BranchTaken = g.rng.Float64() < g.cfg.TakenBias
		rec.SrcRegs.Add(src)
	case r < g.cfg.BranchFraction+g.cfg.LoadFraction:
		rec.DstRegs.Add(dst)
		rec.SrcRegs.Add(src)
		rec.SrcMem.Add(g.addr())
		g.lastDst = dst
	case r < g.cfg.BranchFraction+g.cfg.LoadFraction+g.cfg.StoreFraction:
		rec.SrcRegs.Add(src)
		rec.SrcRegs.Add(g.lastDst)
		rec.DstMem.Add(g.addr())
	default:
		rec.DstRegs.Add(dst)
		rec.SrcRegs.Add(src)
		g.lastDst = dst
	}

	return rec, nil
}

func (g *Generator) addr() uint64 {
	a := g.nextAddr
	g.nextAddr += g.cfg.MemStride
	return a
}
