// Package core wires the pipeline engine to its collaborators (memory
// system, trace source) and drives them with a cooperative, cycle-stepped
// scheduler.
package core

import (
	"errors"
	"fmt"

	"github.com/sarchlab/tracesim/timing/mem"
	"github.com/sarchlab/tracesim/timing/pipeline"
	"github.com/sarchlab/tracesim/trace"
)

// ErrLivelock is returned when the pipeline stops retiring instructions for
// an extended window while work is still in flight.
var ErrLivelock = errors.New("core: no retirement progress (livelock)")

// Operable is a component the scheduler can advance: each call to Tick
// simulates one of the component's cycles and returns its progress count.
// Tick never blocks; a stall is simply zero progress, retried later.
type Operable interface {
	// CurrentTime returns the component's simulated time.
	CurrentTime() int64
	// Tick advances the component by one cycle.
	Tick() int
}

// Config holds the full simulation configuration.
type Config struct {
	// Pipeline configures the execution engine.
	Pipeline pipeline.Config

	// Cache configures the memory system.
	Cache mem.Config

	// ChannelCapacity bounds each memory channel.
	ChannelCapacity int

	// WarmupInstructions is the retirement count at which the warmup phase
	// ends and statistics baselines reset.
	WarmupInstructions uint64

	// MaxInstructions stops the run after this many retirements (0 = run
	// until the trace drains).
	MaxInstructions uint64

	// MaxCycles bounds the run length in engine cycles (0 = unbounded).
	MaxCycles uint64

	// LivelockWindow is the number of consecutive engine cycles without a
	// retirement, with instructions in flight, after which the run aborts.
	LivelockWindow uint64
}

// DefaultConfig returns a complete single-core configuration.
func DefaultConfig() Config {
	return Config{
		Pipeline:        pipeline.DefaultConfig(),
		Cache:           mem.DefaultL1DConfig(),
		ChannelCapacity: 32,
		LivelockWindow:  100000,
	}
}

// Core bundles one pipeline engine with its memory system and the channels
// between them.
type Core struct {
	Engine   *pipeline.Engine
	Memory   *mem.System
	Channels *mem.Channels

	cfg Config
}

// NewCore builds a core pulling instructions from source.
func NewCore(cfg Config, source trace.Source, opts ...pipeline.EngineOption) (*Core, error) {
	if cfg.ChannelCapacity <= 0 {
		return nil, fmt.Errorf("core: channel capacity must be positive, got %d",
			cfg.ChannelCapacity)
	}

	channels := mem.NewChannels(cfg.ChannelCapacity)
	engine, err := pipeline.NewEngine(cfg.Pipeline, source, channels, opts...)
	if err != nil {
		return nil, err
	}
	memory := mem.NewSystem(cfg.Cache, channels, cfg.Pipeline.ClockPeriod)

	return &Core{
		Engine:   engine,
		Memory:   memory,
		Channels: channels,
		cfg:      cfg,
	}, nil
}

// Run advances the engine and memory system, always ticking the component
// with the smallest simulated time, until the trace drains or a
// configured limit is reached. Returns the final statistics.
func (c *Core) Run() (pipeline.Statistics, error) {
	operables := []Operable{c.Engine, c.Memory}

	var idleCycles uint64
	lastRetired := c.Engine.Stats().Retired
	warmupDone := c.cfg.WarmupInstructions == 0

	for !c.Engine.Drained() {
		stats := c.Engine.Stats()

		if c.cfg.MaxInstructions > 0 && stats.Retired >= c.cfg.MaxInstructions {
			break
		}
		if c.cfg.MaxCycles > 0 && stats.Cycles >= c.cfg.MaxCycles {
			break
		}
		if !warmupDone && stats.Retired >= c.cfg.WarmupInstructions {
			c.Engine.BeginPhase()
			warmupDone = true
		}

		// Advance whichever components are furthest behind in simulated
		// time; ties advance together.
		minTime := operables[0].CurrentTime()
		for _, op := range operables[1:] {
			if t := op.CurrentTime(); t < minTime {
				minTime = t
			}
		}
		for _, op := range operables {
			if op.CurrentTime() == minTime {
				op.Tick()
			}
		}

		retired := c.Engine.Stats().Retired
		if retired == lastRetired && c.Engine.ROB().Len() > 0 {
			idleCycles++
			if c.cfg.LivelockWindow > 0 && idleCycles >= c.cfg.LivelockWindow {
				return c.Engine.Stats(), ErrLivelock
			}
		} else {
			idleCycles = 0
			lastRetired = retired
		}
	}

	return c.Engine.Stats(), nil
}
