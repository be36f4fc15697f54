// Package benchmarks provides workload infrastructure for comparing the
// execution disciplines and calibrating pipeline configurations.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sarchlab/tracesim/timing/core"
	"github.com/sarchlab/tracesim/trace"
)

// Result holds the timing results for a single workload run.
type Result struct {
	// Name identifies the workload.
	Name string `json:"name"`

	// Discipline is the execution policy used for the run.
	Discipline string `json:"discipline"`

	// SimulatedCycles is the total cycle count from the timing simulator.
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of retired instructions.
	InstructionsRetired uint64 `json:"instructions_retired"`

	// IPC is retired instructions per cycle.
	IPC float64 `json:"ipc"`

	// ExecStalls is the number of cycles the execute stage fired nothing.
	ExecStalls uint64 `json:"exec_stalls"`

	// ROBStalls is the number of cycles dispatch was blocked on a full
	// reorder buffer.
	ROBStalls uint64 `json:"rob_stalls"`

	// CacheHitRatePercent is the memory system's demand hit rate.
	CacheHitRatePercent float64 `json:"cache_hit_rate_percent"`

	// WallTime is the host time taken to run the simulation.
	WallTime time.Duration `json:"wall_time_ns"`
}

// Workload is a named synthetic instruction stream.
type Workload struct {
	// Name identifies the workload in reports.
	Name string

	// Generator parameterizes the stream.
	Generator trace.GeneratorConfig
}

// StandardWorkloads returns the calibration set: each workload stresses one
// pipeline behavior.
func StandardWorkloads() []Workload {
	independent := trace.DefaultGeneratorConfig()
	independent.Count = 50000
	independent.DependencyFraction = 0
	independent.LoadFraction = 0
	independent.StoreFraction = 0
	independent.BranchFraction = 0

	chained := independent
	chained.DependencyFraction = 1.0

	memory := trace.DefaultGeneratorConfig()
	memory.Count = 50000
	memory.LoadFraction = 0.4
	memory.StoreFraction = 0.2
	memory.BranchFraction = 0

	branchy := trace.DefaultGeneratorConfig()
	branchy.Count = 50000
	branchy.BranchFraction = 0.3
	branchy.LoadFraction = 0
	branchy.StoreFraction = 0

	return []Workload{
		{Name: "alu_independent", Generator: independent},
		{Name: "alu_chained", Generator: chained},
		{Name: "memory_mixed", Generator: memory},
		{Name: "branch_heavy", Generator: branchy},
	}
}

// Run executes one workload under the given configuration and collects the
// result.
func Run(w Workload, cfg core.Config) (Result, error) {
	source := trace.NewGenerator(w.Generator)

	c, err := core.NewCore(cfg, source)
	if err != nil {
		return Result{}, fmt.Errorf("building core for %s: %w", w.Name, err)
	}

	start := time.Now()
	stats, err := c.Run()
	if err != nil {
		return Result{}, fmt.Errorf("running %s: %w", w.Name, err)
	}

	return Result{
		Name:                w.Name,
		Discipline:          cfg.Pipeline.Discipline,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Retired,
		IPC:                 stats.IPC(),
		ExecStalls:          stats.ExecStalls,
		ROBStalls:           stats.ROBStalls,
		CacheHitRatePercent: c.Memory.Stats().HitRate(),
		WallTime:            time.Since(start),
	}, nil
}

// RunAll executes every workload under both disciplines and returns the
// results, out-of-order first for each workload.
func RunAll(workloads []Workload) ([]Result, error) {
	var results []Result
	for _, w := range workloads {
		for _, cfg := range []core.Config{oooConfig(), inorderConfig()} {
			res, err := Run(w, cfg)
			if err != nil {
				return results, err
			}
			results = append(results, res)
		}
	}
	return results, nil
}

// WriteJSON writes results as indented JSON.
func WriteJSON(results []Result, out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func oooConfig() core.Config {
	return core.DefaultConfig()
}

func inorderConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.Pipeline.Discipline = "inorder"
	return cfg
}
