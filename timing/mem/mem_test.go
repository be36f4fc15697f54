package mem_test

import (
	"testing"

	"github.com/sarchlab/tracesim/timing/mem"
)

func TestRequestChannelBounded(t *testing.T) {
	ch := mem.NewRequestChannel(2)

	if !ch.Push(mem.Request{Address: 0x100}) || !ch.Push(mem.Request{Address: 0x200}) {
		t.Fatal("pushes within capacity should succeed")
	}
	if ch.Push(mem.Request{Address: 0x300}) {
		t.Fatal("push on a full channel should fail")
	}

	drained := ch.Drain()
	if len(drained) != 2 || drained[0].Address != 0x100 {
		t.Fatalf("drain should return queued requests in order, got %v", drained)
	}
	if ch.Len() != 0 {
		t.Fatal("drain should empty the channel")
	}
}

func TestRequestChannelDrainUpTo(t *testing.T) {
	ch := mem.NewRequestChannel(4)
	for i := 0; i < 4; i++ {
		ch.Push(mem.Request{Address: uint64(i)})
	}

	first := ch.DrainUpTo(3)
	if len(first) != 3 || first[0].Address != 0 {
		t.Fatalf("expected oldest 3 requests, got %v", first)
	}
	rest := ch.DrainUpTo(3)
	if len(rest) != 1 || rest[0].Address != 3 {
		t.Fatalf("expected the remaining request, got %v", rest)
	}
}

func TestResponseChannelHoldsFutureResponses(t *testing.T) {
	ch := mem.NewResponseChannel(4)
	ch.Push(mem.Response{Address: 0x100, AvailableTime: 5})
	ch.Push(mem.Response{Address: 0x200, AvailableTime: 10})

	if got := ch.DrainReady(4); len(got) != 0 {
		t.Fatalf("nothing should be ready at cycle 4, got %v", got)
	}
	if got := ch.DrainReady(5); len(got) != 1 || got[0].Address != 0x100 {
		t.Fatalf("only the first response should be ready at cycle 5, got %v", got)
	}
	if got := ch.DrainReady(10); len(got) != 1 || got[0].Address != 0x200 {
		t.Fatalf("the second response should be ready at cycle 10, got %v", got)
	}
}

func TestSystemMissThenHit(t *testing.T) {
	cfg := mem.Config{
		Size:          1024,
		Associativity: 2,
		BlockSize:     64,
		HitLatency:    2,
		MissLatency:   20,
		MaxPerCycle:   4,
	}
	channels := mem.NewChannels(8)
	sys := mem.NewSystem(cfg, channels, 1)

	channels.LoadReq.Push(mem.Request{Address: 0x1000, Kind: mem.KindLoad, InstrID: 1})
	sys.Tick() // cycle 0

	resps := channels.Return.DrainReady(20)
	if len(resps) != 1 {
		t.Fatalf("expected one response, got %d", len(resps))
	}
	if resps[0].AvailableTime != 20 {
		t.Fatalf("miss should take MissLatency cycles, available at %d", resps[0].AvailableTime)
	}

	// Same line again: now a hit.
	channels.LoadReq.Push(mem.Request{Address: 0x1008, Kind: mem.KindLoad, InstrID: 2})
	sys.Tick() // cycle 1

	resps = channels.Return.DrainReady(100)
	if len(resps) != 1 {
		t.Fatalf("expected one response, got %d", len(resps))
	}
	if resps[0].AvailableTime != 1+2 {
		t.Fatalf("hit should take HitLatency cycles, available at %d", resps[0].AvailableTime)
	}

	stats := sys.Stats()
	if stats.Misses != 1 || stats.Hits != 1 {
		t.Fatalf("expected 1 miss and 1 hit, got %+v", stats)
	}
}

func TestSystemPrefetchWarmsCacheWithoutResponse(t *testing.T) {
	cfg := mem.DefaultL1DConfig()
	channels := mem.NewChannels(8)
	sys := mem.NewSystem(cfg, channels, 1)

	channels.PrefetchReq.Push(mem.Request{Address: 0x2000, Kind: mem.KindPrefetch})
	sys.Tick()

	if channels.Return.Len() != 0 {
		t.Fatal("prefetches should not produce completions")
	}

	channels.LoadReq.Push(mem.Request{Address: 0x2000, Kind: mem.KindLoad, InstrID: 1})
	sys.Tick()

	if sys.Stats().Hits != 1 {
		t.Fatalf("demand load after prefetch should hit, got %+v", sys.Stats())
	}
}

func TestSystemServiceBudgetPerCycle(t *testing.T) {
	cfg := mem.DefaultL1DConfig()
	cfg.MaxPerCycle = 1
	channels := mem.NewChannels(8)
	sys := mem.NewSystem(cfg, channels, 1)

	channels.LoadReq.Push(mem.Request{Address: 0x100, Kind: mem.KindLoad, InstrID: 1})
	channels.LoadReq.Push(mem.Request{Address: 0x200, Kind: mem.KindLoad, InstrID: 2})

	if served := sys.Tick(); served != 1 {
		t.Fatalf("budget 1 should serve exactly 1 request, served %d", served)
	}
	if channels.LoadReq.Len() != 1 {
		t.Fatal("the second request should stay queued")
	}
	if served := sys.Tick(); served != 1 {
		t.Fatal("the second request should be served on the next cycle")
	}
}
