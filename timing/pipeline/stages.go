package pipeline

import (
	"errors"

	"github.com/sarchlab/tracesim/insts"
	"github.com/sarchlab/tracesim/trace"
)

// engineStages is the stage-invocation contract: one cycle runs these
// handlers in exactly this order. The order is deliberately reversed with
// respect to instruction flow (retire first, fetch last) so that every stage
// observes only state produced by prior cycles, never state produced earlier
// in the same cycle. That is what bounds every instruction to one stage of
// progress per cycle and makes each stage's simulated latency exactly one
// cycle regardless of call order inside a handler.
//
// This ordering is a documented, tested contract (see StageOrder), not an
// implementation accident.
var engineStages = []struct {
	name string
	run  func(e *Engine, now int64) int
}{
	{"retire", (*Engine).retire},
	{"complete", (*Engine).complete},
	{"execute", (*Engine).execute},
	{"schedule", (*Engine).schedule},
	{"memory-return", (*Engine).memoryReturn},
	{"lsq", (*Engine).operateLSQ},
	{"dispatch", (*Engine).dispatch},
	{"decode", (*Engine).decode},
	{"fetch", (*Engine).fetch},
}

// StageOrder returns the names of the stage handlers in invocation order.
func StageOrder() []string {
	names := make([]string, len(engineStages))
	for i, st := range engineStages {
		names[i] = st.name
	}
	return names
}

// retire removes completed entries from the reorder buffer head in strict
// age order, up to the retire width.
func (e *Engine) retire(int64) int {
	return e.rob.Retire(e.bwRetire, func(rec *insts.InstructionRecord) {
		for i := 0; i < rec.DstRegs.Len(); i++ {
			e.alloc.Release(rec.DstRegs.At(i), rec.ID)
		}
		delete(e.byID, rec.ID)
		e.stats.Retired++
	})
}

// complete finishes instructions whose execution latency has elapsed and
// whose memory operands (if any) have all returned: destination registers
// become valid and dependents are woken.
func (e *Engine) complete(now int64) int {
	progress := 0
	for i := 0; i < e.rob.Len(); i++ {
		rec := e.rob.At(i)
		if rec.Executed && !rec.Completed &&
			rec.ExecDoneTime <= now && rec.PendingLoads == 0 {
			e.completeInstruction(rec, now)
			progress++
		}
	}
	return progress
}

func (e *Engine) completeInstruction(rec *insts.InstructionRecord, now int64) {
	deps := e.rob.Complete(rec, e.alloc)
	e.stats.Completed++
	for _, id := range deps {
		if dep, ok := e.byID[id]; ok && !dep.Executed {
			dep.PendingSources--
			// The value is observable one cycle after completion.
			if dep.ReadyTime < now+1 {
				dep.ReadyTime = now + 1
			}
		}
	}
}

// execute lets the active discipline pick which scheduled entries fire this
// cycle, gated by the execute-stage bandwidth.
func (e *Engine) execute(now int64) int {
	fired := e.discipline.Execute(e.rob, now, e.bwExec,
		func(rec *insts.InstructionRecord) {
			e.doExecution(rec, now)
		})

	if fired == 0 {
		for i := 0; i < e.rob.Len(); i++ {
			if !e.rob.At(i).Executed {
				e.stats.ExecStalls++
				break
			}
		}
	}
	return fired
}

// doExecution fires one instruction: its execution latency starts now, and
// branches are resolved against the traced outcome. A misprediction delays
// further fetch instead of squashing; in a trace-driven simulator the trace
// already is the correct path.
func (e *Engine) doExecution(rec *insts.InstructionRecord, now int64) {
	rec.Executed = true
	rec.ExecDoneTime = now + e.cfg.ExecLatency
	e.stats.Executed++

	if rec.IsBranch {
		e.predictor.Update(rec.IP, rec.BranchTaken)
		if rec.Mispredicted() {
			resume := rec.ExecDoneTime + e.cfg.MispredictPenalty
			if resume > e.fetchResume {
				e.fetchResume = resume
			}
			e.stats.Flushes++
		}
	}
}

// schedule renames dispatched entries in age order, up to the schedule
// width. Source dependencies are captured before the destinations are
// renamed, so an instruction reading its own destination waits on the
// previous producer, and later renames of a source cannot re-block a
// consumer that was already scheduled.
func (e *Engine) schedule(now int64) int {
	progress := 0
	for i := 0; i < e.rob.Len() && e.bwSchedule.HasRemaining(); i++ {
		rec := e.rob.At(i)
		if !rec.Dispatched || rec.Scheduled {
			continue
		}

		for j := 0; j < rec.SrcRegs.Len(); j++ {
			src := rec.SrcRegs.At(j)
			if e.alloc.IsValid(src) {
				continue
			}
			if producer, ok := e.byID[e.alloc.Producer(src)]; ok {
				producer.Dependents = append(producer.Dependents, rec.ID)
				rec.PendingSources++
			}
		}
		for j := 0; j < rec.DstRegs.Len(); j++ {
			e.alloc.Rename(rec.DstRegs.At(j), rec.ID)
		}

		rec.Scheduled = true
		rec.ReadyTime = now + e.cfg.ScheduleLatency
		e.bwSchedule.Consume()
		progress++
	}
	return progress
}

// memoryReturn drains the return channel once and matches each response to
// its waiting load/store queue entries. An instruction whose last load just
// returned completes here if its execution latency has already elapsed; this
// path is functionally identical to complete.
func (e *Engine) memoryReturn(now int64) int {
	progress := 0
	for _, resp := range e.channels.Return.DrainReady(now) {
		for _, rec := range e.lsq.HandleReturn(resp) {
			if rec.Executed && !rec.Completed && rec.ExecDoneTime <= now {
				e.completeInstruction(rec, now)
			}
		}
		progress++
	}
	return progress
}

// operateLSQ issues ready loads and stores into the request channels, up to
// the memory-stage bandwidth.
func (e *Engine) operateLSQ(now int64) int {
	progress := e.lsq.Operate(now, e.bwLSQ, e.channels)
	e.lsq.ReleaseLoads()
	return progress
}

// dispatch moves decoded instructions into the reorder buffer and allocates
// their load/store queue entries. A full structure stops dispatch for the
// cycle with zero progress; the instruction stays buffered and is retried.
func (e *Engine) dispatch(now int64) int {
	progress := 0
	for len(e.decodeBuffer) > 0 && e.bwDispatch.HasRemaining() {
		rec := e.decodeBuffer[0]
		if rec.StageReadyTime > now {
			break
		}
		if !e.lsq.HasSpace(rec.SrcMem.Len(), rec.DstMem.Len()) {
			e.stats.LSQStalls++
			break
		}
		if err := e.rob.Allocate(rec); err != nil {
			if errors.Is(err, ErrCapacityExceeded) {
				e.stats.ROBStalls++
			}
			break
		}
		// LSQ space was checked above, so allocation cannot fail here.
		_ = e.lsq.Allocate(rec)

		if e.cfg.NextLinePrefetch {
			for j := 0; j < rec.SrcMem.Len(); j++ {
				e.lsq.Prefetch(rec.SrcMem.At(j)+e.cfg.PrefetchStride, now, e.channels)
			}
		}

		rec.Dispatched = true
		e.byID[rec.ID] = rec
		e.decodeBuffer = e.decodeBuffer[1:]
		e.bwDispatch.Consume()
		progress++
	}
	return progress
}

// decode moves fetched instructions into the dispatch buffer once their
// decode latency has elapsed, up to the decode width.
func (e *Engine) decode(now int64) int {
	progress := 0
	for len(e.fetchBuffer) > 0 && e.bwDecode.HasRemaining() {
		rec := e.fetchBuffer[0]
		if rec.StageReadyTime > now {
			break
		}
		if len(e.decodeBuffer) >= e.cfg.DecodeBufferSize {
			break
		}
		rec.Decoded = true
		rec.StageReadyTime = now + e.cfg.DispatchLatency
		e.decodeBuffer = append(e.decodeBuffer, rec)
		e.fetchBuffer = e.fetchBuffer[1:]
		e.bwDecode.Consume()
		progress++
	}
	return progress
}

// fetch pulls decoded records from the trace source, checks the decoded-
// instruction buffer, and consults the branch predictor for the speculative
// outcome. Fetch is suspended until fetchResume after a misprediction.
func (e *Engine) fetch(now int64) int {
	if e.traceDone || now < e.fetchResume {
		return 0
	}

	progress := 0
	for e.bwFetch.HasRemaining() && len(e.fetchBuffer) < e.cfg.FetchBufferSize {
		rec, err := e.source.Next()
		if err != nil {
			if errors.Is(err, trace.ErrDone) {
				e.traceDone = true
			}
			break
		}

		rec.ID = e.nextID
		e.nextID++
		rec.Fetched = true

		rec.DIBChecked = true
		if e.dib.lookup(rec.IP) {
			e.stats.DIBHits++
			rec.StageReadyTime = now + 1
		} else {
			e.stats.DIBMisses++
			e.dib.insert(rec.IP)
			rec.StageReadyTime = now + e.cfg.DecodeLatency
		}

		if rec.IsBranch {
			rec.PredictedTaken = e.predictor.Predict(rec.IP)
		}

		e.fetchBuffer = append(e.fetchBuffer, rec)
		e.bwFetch.Consume()
		e.stats.Fetched++
		progress++
	}
	return progress
}
