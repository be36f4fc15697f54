package pipeline_test

import (
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tracesim/insts"
	"github.com/sarchlab/tracesim/timing/mem"
	"github.com/sarchlab/tracesim/timing/pipeline"
	"github.com/sarchlab/tracesim/trace"
)

var _ = Describe("Engine", func() {
	var (
		cfg      pipeline.Config
		channels *mem.Channels
		memory   *mem.System
	)

	BeforeEach(func() {
		cfg = pipeline.DefaultConfig()
		channels = mem.NewChannels(32)
		memory = mem.NewSystem(mem.DefaultL1DConfig(), channels, 1)
	})

	newEngine := func(recs []*insts.InstructionRecord, opts ...pipeline.EngineOption) *pipeline.Engine {
		opts = append(opts, pipeline.WithHeartbeatWriter(io.Discard))
		e, err := pipeline.NewEngine(cfg, trace.NewSliceSource(recs), channels, opts...)
		Expect(err).ToNot(HaveOccurred())
		return e
	}

	// runToDrain ticks the engine and the memory system in lockstep until
	// every instruction has retired, and returns the cycle count.
	runToDrain := func(e *pipeline.Engine) int64 {
		for i := 0; i < 100000 && !e.Drained(); i++ {
			e.Tick()
			memory.Tick()
		}
		Expect(e.Drained()).To(BeTrue(), "engine failed to drain")
		return e.Cycle()
	}

	Describe("stage invocation order", func() {
		It("runs retire first and fetch last, reversed against flow", func() {
			Expect(pipeline.StageOrder()).To(Equal([]string{
				"retire", "complete", "execute", "schedule",
				"memory-return", "lsq", "dispatch", "decode", "fetch",
			}))
		})
	})

	Describe("construction", func() {
		It("rejects an invalid configuration", func() {
			cfg.ROBSize = 0
			_, err := pipeline.NewEngine(cfg, trace.NewSliceSource(nil), channels)
			Expect(err).To(HaveOccurred())
		})

		It("rejects an unknown discipline", func() {
			cfg.Discipline = "speculative"
			_, err := pipeline.NewEngine(cfg, trace.NewSliceSource(nil), channels)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("draining a trace", func() {
		It("retires every instruction of an ALU-only trace", func() {
			b := trace.NewBuilder(0x1000)
			var recs []*insts.InstructionRecord
			for i := 0; i < 20; i++ {
				recs = append(recs, b.ALU(insts.Reg(i%8), insts.Reg((i+1)%8)))
			}

			e := newEngine(recs)
			runToDrain(e)

			stats := e.Stats()
			Expect(stats.Retired).To(Equal(uint64(20)))
			Expect(stats.Fetched).To(Equal(uint64(20)))
			Expect(stats.Executed).To(Equal(uint64(20)))
			Expect(stats.Completed).To(Equal(uint64(20)))
		})

		It("takes at least one cycle per pipeline stage plus one per retire group", func() {
			b := trace.NewBuilder(0x1000)
			recs := []*insts.InstructionRecord{b.ALU(1, 2)}

			e := newEngine(recs)
			cycles := runToDrain(e)

			// fetch, decode, dispatch, schedule, execute, complete, retire:
			// a single instruction cannot clear the pipeline faster than the
			// stage count even with all widths at 4.
			Expect(cycles).To(BeNumerically(">=", 7))
		})

		It("never advances an instruction more than one stage per cycle", func() {
			b := trace.NewBuilder(0x1000)
			recs := []*insts.InstructionRecord{b.ALU(1, 2), b.ALU(2, 1)}

			e := newEngine(recs)
			e.Tick()
			// After one cycle the records are fetched but cannot have moved
			// further.
			Expect(recs[0].Fetched).To(BeTrue())
			Expect(recs[0].Decoded).To(BeFalse())
			Expect(recs[0].Dispatched).To(BeFalse())
		})
	})

	Describe("data dependencies", func() {
		It("serializes a dependent chain", func() {
			b := trace.NewBuilder(0x1000)
			var chain []*insts.InstructionRecord
			for i := 0; i < 10; i++ {
				chain = append(chain, b.ALU(1, 1)) // each reads the previous result
			}
			e := newEngine(chain)
			chainCycles := runToDrain(e)

			b = trace.NewBuilder(0x1000)
			var indep []*insts.InstructionRecord
			for i := 0; i < 10; i++ {
				indep = append(indep, b.ALU(insts.Reg(i+1), 0))
			}
			channels = mem.NewChannels(32)
			memory = mem.NewSystem(mem.DefaultL1DConfig(), channels, 1)
			e = newEngine(indep)
			indepCycles := runToDrain(e)

			Expect(chainCycles).To(BeNumerically(">", indepCycles))
		})

		It("retires dependent instructions in program order", func() {
			b := trace.NewBuilder(0x1000)
			recs := []*insts.InstructionRecord{
				b.ALU(1, 0),
				b.ALU(2, 1),
				b.ALU(3, 2),
			}
			e := newEngine(recs)
			runToDrain(e)

			for i, rec := range recs {
				Expect(rec.Retired).To(BeTrue(), "record %d", i)
			}
		})
	})

	Describe("memory operations", func() {
		It("round-trips a load through the memory system", func() {
			b := trace.NewBuilder(0x1000)
			recs := []*insts.InstructionRecord{
				b.Load(1, 0, 0x8000),
				b.ALU(2, 1), // consumes the loaded value
			}
			e := newEngine(recs)
			runToDrain(e)

			Expect(e.Stats().Retired).To(Equal(uint64(2)))
			Expect(e.LSQ().Stats().LoadsIssued).To(Equal(uint64(1)))
			Expect(memory.Stats().Misses).To(Equal(uint64(1)))
		})

		It("a load takes at least one extra cycle versus pure ALU", func() {
			b := trace.NewBuilder(0x1000)
			e := newEngine([]*insts.InstructionRecord{b.ALU(1, 0)})
			aluCycles := runToDrain(e)

			channels = mem.NewChannels(32)
			memory = mem.NewSystem(mem.DefaultL1DConfig(), channels, 1)
			b = trace.NewBuilder(0x1000)
			e = newEngine([]*insts.InstructionRecord{b.Load(1, 0, 0x8000)})
			loadCycles := runToDrain(e)

			Expect(loadCycles).To(BeNumerically(">", aluCycles))
		})

		It("issues a store only after the owner retires", func() {
			b := trace.NewBuilder(0x1000)
			recs := []*insts.InstructionRecord{b.Store(1, 0, 0x9000)}
			e := newEngine(recs)
			runToDrain(e)

			// Drained means the owner retired; the write may still be in
			// flight but must have issued after retirement, not before.
			Expect(recs[0].Retired).To(BeTrue())
			Expect(e.LSQ().Stats().StoresIssued).To(Equal(uint64(1)))

			// The entry leaves the queue once the write is acknowledged.
			for i := 0; i < 300 && e.LSQ().StoreLen() > 0; i++ {
				e.Tick()
				memory.Tick()
			}
			Expect(e.LSQ().StoreLen()).To(BeZero())
		})

		It("forwards a load from an older in-flight store", func() {
			b := trace.NewBuilder(0x1000)
			recs := []*insts.InstructionRecord{
				b.Store(1, 0, 0xA000),
				b.Load(2, 0, 0xA000),
			}
			e := newEngine(recs)
			runToDrain(e)

			Expect(e.LSQ().Stats().LoadsForwarded).To(Equal(uint64(1)))
			Expect(e.LSQ().Stats().LoadsIssued).To(BeZero())
		})
	})

	Describe("branch handling", func() {
		// branchTrace builds one leading branch with the given outcome
		// followed by enough independent work that the fetch stall after a
		// misprediction is visible in the cycle count.
		branchTrace := func(taken bool) []*insts.InstructionRecord {
			b := trace.NewBuilder(0x1000)
			recs := []*insts.InstructionRecord{b.Branch(1, taken)}
			for i := 0; i < 30; i++ {
				recs = append(recs, b.ALU(insts.Reg(i%8+2), 0))
			}
			return recs
		}

		It("counts a flush and delays fetch on a misprediction", func() {
			// Fetch width 1 makes fetch the bottleneck, so every suspended
			// fetch cycle lengthens the run.
			cfg.FetchWidth = 1

			// Predicted taken, taken: no flush.
			e := newEngine(branchTrace(true), pipeline.WithBranchPredictor(pipeline.AlwaysTaken{}))
			goodCycles := runToDrain(e)
			Expect(e.Stats().Flushes).To(BeZero())

			channels = mem.NewChannels(32)
			memory = mem.NewSystem(mem.DefaultL1DConfig(), channels, 1)

			// Predicted taken, not taken: flush, fetch resumes after the
			// penalty elapses.
			e = newEngine(branchTrace(false), pipeline.WithBranchPredictor(pipeline.AlwaysTaken{}))
			badCycles := runToDrain(e)

			Expect(e.Stats().Flushes).To(Equal(uint64(1)))
			Expect(badCycles).To(BeNumerically(">=", goodCycles+cfg.MispredictPenalty))
		})
	})

	Describe("decoded-instruction buffer", func() {
		It("skips decode latency when the same address fetches again", func() {
			first := &insts.InstructionRecord{IP: 0x1000}
			first.DstRegs.Add(1)
			second := &insts.InstructionRecord{IP: 0x1000}
			second.DstRegs.Add(2)

			e := newEngine([]*insts.InstructionRecord{first, second})
			runToDrain(e)

			Expect(e.Stats().DIBMisses).To(Equal(uint64(1)))
			Expect(e.Stats().DIBHits).To(Equal(uint64(1)))
		})
	})

	Describe("squash", func() {
		It("removes the cut instruction and everything younger", func() {
			b := trace.NewBuilder(0x1000)
			var recs []*insts.InstructionRecord
			for i := 0; i < 8; i++ {
				recs = append(recs, b.ALU(insts.Reg(i+1), 0))
			}

			// A huge exec latency parks everything in the reorder buffer.
			cfg.ExecLatency = 1000
			e := newEngine(recs)
			for i := 0; i < 20; i++ {
				e.Tick()
			}
			Expect(e.ROB().Len()).To(BeNumerically(">", 4))

			before := e.ROB().Len()
			removed := e.Squash(5)
			Expect(removed).To(BeNumerically(">=", before-4))
			Expect(e.ROB().Len()).To(BeNumerically("<=", 4))
			for i := 0; i < e.ROB().Len(); i++ {
				Expect(e.ROB().At(i).ID).To(BeNumerically("<", 5))
			}
			Expect(e.Stats().Squashed).To(Equal(uint64(removed)))
		})
	})

	Describe("stall accounting", func() {
		It("counts reorder buffer stalls when the window is full", func() {
			cfg.ROBSize = 2
			cfg.ExecLatency = 50 // keep the window occupied

			b := trace.NewBuilder(0x1000)
			var recs []*insts.InstructionRecord
			for i := 0; i < 8; i++ {
				recs = append(recs, b.ALU(insts.Reg(i+1), 0))
			}
			e := newEngine(recs)
			for i := 0; i < 30; i++ {
				e.Tick()
			}
			Expect(e.Stats().ROBStalls).To(BeNumerically(">", 0))
		})
	})

	Describe("time accounting", func() {
		It("advances CurrentTime by the clock period per cycle", func() {
			e := newEngine(nil)
			Expect(e.CurrentTime()).To(BeZero())
			e.Tick()
			e.Tick()
			Expect(e.CurrentTime()).To(Equal(2 * cfg.ClockPeriod))
		})
	})
})
