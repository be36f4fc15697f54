// Package main provides the TraceSim command-line interface.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/tracesim/timing/core"
	"github.com/sarchlab/tracesim/timing/mem"
	"github.com/sarchlab/tracesim/timing/pipeline"
	"github.com/sarchlab/tracesim/trace"
)

var (
	configPath = flag.String("config", "", "Path to pipeline configuration JSON file")
	discipline = flag.String("discipline", "", "Execution discipline: ooo or inorder (overrides config)")
	count      = flag.Uint64("n", 1000000, "Number of synthetic instructions to simulate")
	warmup     = flag.Uint64("warmup", 0, "Instructions to retire before the measured region begins")
	maxCycles  = flag.Uint64("max-cycles", 0, "Stop after this many cycles (0 = unbounded)")
	heartbeat  = flag.Bool("heartbeat", false, "Emit periodic heartbeat reports")
	seed       = flag.Int64("seed", 1, "Synthetic workload seed")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	cfg := core.DefaultConfig()

	if *configPath != "" {
		pipeCfg, err := pipeline.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg.Pipeline = pipeCfg
	}
	if *discipline != "" {
		cfg.Pipeline.Discipline = *discipline
	}
	cfg.Pipeline.ShowHeartbeat = *heartbeat
	cfg.WarmupInstructions = *warmup
	cfg.MaxCycles = *maxCycles

	genCfg := trace.DefaultGeneratorConfig()
	genCfg.Count = *count
	genCfg.Seed = *seed
	source := trace.NewGenerator(genCfg)

	c, err := core.NewCore(cfg, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building core: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Discipline: %s\n", c.Engine.Discipline().Name())
		fmt.Printf("ROB: %d entries, LQ: %d, SQ: %d\n",
			cfg.Pipeline.ROBSize, cfg.Pipeline.LoadQueueSize, cfg.Pipeline.StoreQueueSize)
		fmt.Printf("Instructions: %d (seed %d)\n", *count, *seed)
	}

	stats, err := c.Run()
	if err != nil {
		if errors.Is(err, core.ErrLivelock) {
			fmt.Fprintf(os.Stderr, "Livelock detected after %d cycles\n", stats.Cycles)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Simulation error: %v\n", err)
		os.Exit(1)
	}

	printReport(stats, c.Memory.Stats())
}

func printReport(stats pipeline.Statistics, cacheStats mem.Statistics) {
	fmt.Printf("=== Simulation Results ===\n")
	fmt.Printf("Instructions retired: %d\n", stats.Retired)
	fmt.Printf("Cycles:               %d\n", stats.Cycles)
	fmt.Printf("IPC:                  %.4f\n", stats.IPC())
	fmt.Printf("CPI:                  %.4f\n", stats.CPI())
	fmt.Printf("Exec stall cycles:    %d\n", stats.ExecStalls)
	fmt.Printf("ROB stall cycles:     %d\n", stats.ROBStalls)
	fmt.Printf("LSQ stall cycles:     %d\n", stats.LSQStalls)
	fmt.Printf("Fetch redirects:      %d\n", stats.Flushes)
	fmt.Printf("DIB hits/misses:      %d/%d\n", stats.DIBHits, stats.DIBMisses)
	fmt.Printf("Cache hit rate:       %.2f%% (%d hits, %d misses)\n",
		cacheStats.HitRate(), cacheStats.Hits, cacheStats.Misses)
}
