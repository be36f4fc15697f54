package pipeline

import (
	"github.com/sarchlab/tracesim/insts"
	"github.com/sarchlab/tracesim/timing/mem"
)

// lsqEntry is one outstanding memory operation, tied to its owning reorder
// buffer entry.
type lsqEntry struct {
	rec      *insts.InstructionRecord
	addr     uint64
	issued   bool
	returned bool
}

// LSQStats counts load/store queue activity.
type LSQStats struct {
	LoadsIssued    uint64
	StoresIssued   uint64
	LoadsForwarded uint64
	Prefetches     uint64
}

// LoadStoreQueue holds the bounded load and store queues bridging the
// pipeline to the external memory channels. Loads issue once their owner is
// scheduled; a load whose address matches an older resident store is
// satisfied by forwarding without a memory round trip. Stores issue only
// after their owner retires and stay queued until the write is acknowledged.
type LoadStoreQueue struct {
	loads    []*lsqEntry
	stores   []*lsqEntry
	loadCap  int
	storeCap int
	stats    LSQStats
}

// NewLoadStoreQueue creates load and store queues with the given capacities.
func NewLoadStoreQueue(loadCap, storeCap int) *LoadStoreQueue {
	return &LoadStoreQueue{loadCap: loadCap, storeCap: storeCap}
}

// Stats returns the accumulated counters.
func (q *LoadStoreQueue) Stats() LSQStats { return q.stats }

// LoadLen returns the number of outstanding load entries.
func (q *LoadStoreQueue) LoadLen() int { return len(q.loads) }

// StoreLen returns the number of outstanding store entries.
func (q *LoadStoreQueue) StoreLen() int { return len(q.stores) }

// HasSpace reports whether nLoads load entries and nStores store entries can
// be allocated. Dispatch checks this before moving an instruction into the
// reorder buffer so that allocation never partially succeeds.
func (q *LoadStoreQueue) HasSpace(nLoads, nStores int) bool {
	return len(q.loads)+nLoads <= q.loadCap &&
		len(q.stores)+nStores <= q.storeCap
}

// Allocate creates queue entries for every memory operand of rec. Returns
// ErrCapacityExceeded (and allocates nothing) when either queue lacks space.
func (q *LoadStoreQueue) Allocate(rec *insts.InstructionRecord) error {
	if !q.HasSpace(rec.SrcMem.Len(), rec.DstMem.Len()) {
		return ErrCapacityExceeded
	}
	for i := 0; i < rec.SrcMem.Len(); i++ {
		q.loads = append(q.loads, &lsqEntry{rec: rec, addr: rec.SrcMem.At(i)})
	}
	rec.PendingLoads = rec.SrcMem.Len()
	for i := 0; i < rec.DstMem.Len(); i++ {
		q.stores = append(q.stores, &lsqEntry{rec: rec, addr: rec.DstMem.At(i)})
	}
	return nil
}

// Operate issues ready memory operations into the external channels, up to
// the memory-stage bandwidth. Returns the number of operations that made
// progress this cycle (issues plus forwards).
func (q *LoadStoreQueue) Operate(now int64, bw *BandwidthLimiter, ch *mem.Channels) int {
	progress := 0

	for _, e := range q.loads {
		if !bw.HasRemaining() {
			break
		}
		if e.issued || !e.rec.Scheduled {
			continue
		}
		if store := q.forwardingStore(e); store != nil {
			e.issued = true
			e.returned = true
			e.rec.PendingLoads--
			q.stats.LoadsForwarded++
			bw.Consume()
			progress++
			continue
		}
		if !ch.LoadReq.HasSpace() {
			break
		}
		ch.LoadReq.Push(mem.Request{
			Address:    e.addr,
			Kind:       mem.KindLoad,
			InstrID:    e.rec.ID,
			Dependents: e.rec.Dependents,
			IssueTime:  now,
		})
		e.issued = true
		q.stats.LoadsIssued++
		bw.Consume()
		progress++
	}

	for _, e := range q.stores {
		if !bw.HasRemaining() {
			break
		}
		// A store may not leave the queue before its owner retires.
		if e.issued || !e.rec.Retired {
			continue
		}
		if !ch.StoreReq.HasSpace() {
			break
		}
		ch.StoreReq.Push(mem.Request{
			Address:   e.addr,
			Kind:      mem.KindStore,
			InstrID:   e.rec.ID,
			IssueTime: now,
		})
		e.issued = true
		q.stats.StoresIssued++
		bw.Consume()
		progress++
	}

	return progress
}

// Prefetch pushes a software/next-line prefetch into its channel. Prefetches
// are fire-and-forget: no destination register, no completion.
func (q *LoadStoreQueue) Prefetch(addr uint64, now int64, ch *mem.Channels) {
	if !ch.PrefetchReq.HasSpace() {
		return
	}
	ch.PrefetchReq.Push(mem.Request{
		Address:   addr,
		Kind:      mem.KindPrefetch,
		IssueTime: now,
	})
	q.stats.Prefetches++
}

// forwardingStore returns the youngest store older than the load that
// matches its address, or nil. The store need not have completed its own
// memory write; residency with a known address is enough.
func (q *LoadStoreQueue) forwardingStore(load *lsqEntry) *lsqEntry {
	var match *lsqEntry
	for _, s := range q.stores {
		if s.rec.ID < load.rec.ID && s.addr == load.addr {
			match = s
		}
	}
	return match
}

// HandleReturn matches one memory response against the waiting entries. All
// outstanding loads on the same address are satisfied at once. Returns the
// owners whose last outstanding load was just satisfied, so the caller can
// publish their destination registers and wake dependents (functionally the
// same path as ReorderBuffer.Complete).
func (q *LoadStoreQueue) HandleReturn(resp mem.Response) []*insts.InstructionRecord {
	var finished []*insts.InstructionRecord

	switch resp.Kind {
	case mem.KindLoad:
		kept := q.loads[:0]
		for _, e := range q.loads {
			if e.issued && !e.returned && e.addr == resp.Address {
				e.returned = true
				e.rec.PendingLoads--
				if e.rec.PendingLoads == 0 {
					finished = append(finished, e.rec)
				}
				continue
			}
			kept = append(kept, e)
		}
		q.loads = kept
	case mem.KindStore:
		kept := q.stores[:0]
		for _, e := range q.stores {
			if e.issued && !e.returned && e.addr == resp.Address {
				continue
			}
			kept = append(kept, e)
		}
		q.stores = kept
	}

	return finished
}

// ReleaseLoads drops any satisfied (forwarded) load entries that are still
// resident. Called each cycle after forwarding so satisfied entries free
// their slots.
func (q *LoadStoreQueue) ReleaseLoads() {
	kept := q.loads[:0]
	for _, e := range q.loads {
		if e.issued && e.returned {
			continue
		}
		kept = append(kept, e)
	}
	q.loads = kept
}

// SquashFrom drops every entry owned by an instruction with ID >= cut.
// In-flight requests for dropped entries will return and match nothing,
// which is harmless.
func (q *LoadStoreQueue) SquashFrom(cut insts.InstrID) {
	keptLoads := q.loads[:0]
	for _, e := range q.loads {
		if e.rec.ID >= cut {
			continue
		}
		keptLoads = append(keptLoads, e)
	}
	q.loads = keptLoads

	keptStores := q.stores[:0]
	for _, e := range q.stores {
		if e.rec.ID >= cut {
			continue
		}
		keptStores = append(keptStores, e)
	}
	q.stores = keptStores
}
