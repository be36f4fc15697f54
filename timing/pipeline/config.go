package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the pipeline engine configuration: per-stage bandwidth
// widths, structure capacities, stage latencies, and the execution
// discipline. It is read-only once the engine is constructed.
type Config struct {
	// CPUID identifies this core in multi-core reports.
	CPUID int `json:"cpu_id"`

	// Per-stage bandwidth widths (instructions per cycle).
	FetchWidth    int `json:"fetch_width"`
	DecodeWidth   int `json:"decode_width"`
	DispatchWidth int `json:"dispatch_width"`
	ScheduleWidth int `json:"schedule_width"`
	ExecWidth     int `json:"exec_width"`
	RetireWidth   int `json:"retire_width"`
	LSQWidth      int `json:"lsq_width"`

	// Structure capacities.
	ROBSize          int `json:"rob_size"`
	LoadQueueSize    int `json:"load_queue_size"`
	StoreQueueSize   int `json:"store_queue_size"`
	FetchBufferSize  int `json:"fetch_buffer_size"`
	DecodeBufferSize int `json:"decode_buffer_size"`

	// Stage latencies in cycles.
	DecodeLatency     int64 `json:"decode_latency"`
	DispatchLatency   int64 `json:"dispatch_latency"`
	ScheduleLatency   int64 `json:"schedule_latency"`
	ExecLatency       int64 `json:"exec_latency"`
	MispredictPenalty int64 `json:"mispredict_penalty"`

	// ClockPeriod is the length of one cycle in the scheduler's time unit
	// (picoseconds by convention).
	ClockPeriod int64 `json:"clock_period"`

	// Discipline selects the execution policy: "ooo" or "inorder".
	Discipline string `json:"discipline"`

	// OoOTieBreak selects the out-of-order tie-break when ready
	// instructions exceed execute bandwidth: "oldest" (default) or
	// "youngest".
	OoOTieBreak string `json:"ooo_tie_break"`

	// DIBSize is the decoded-instruction buffer entry count (power of two).
	// Instructions that hit skip the decode latency.
	DIBSize uint32 `json:"dib_size"`

	// NextLinePrefetch issues a prefetch for the following cache line
	// alongside every demand load.
	NextLinePrefetch bool `json:"next_line_prefetch"`
	// PrefetchStride is the byte distance for next-line prefetches.
	PrefetchStride uint64 `json:"prefetch_stride"`

	// Heartbeat reporting.
	ShowHeartbeat   bool   `json:"show_heartbeat"`
	HeartbeatPeriod uint64 `json:"heartbeat_period"`
}

// DefaultConfig returns a 4-wide out-of-order core configuration.
func DefaultConfig() Config {
	return Config{
		CPUID:             0,
		FetchWidth:        4,
		DecodeWidth:       4,
		DispatchWidth:     4,
		ScheduleWidth:     4,
		ExecWidth:         4,
		RetireWidth:       4,
		LSQWidth:          2,
		ROBSize:           128,
		LoadQueueSize:     32,
		StoreQueueSize:    24,
		FetchBufferSize:   16,
		DecodeBufferSize:  16,
		DecodeLatency:     2,
		DispatchLatency:   1,
		ScheduleLatency:   1,
		ExecLatency:       1,
		MispredictPenalty: 8,
		ClockPeriod:       250,
		Discipline:        "ooo",
		OoOTieBreak:       "oldest",
		DIBSize:           512,
		NextLinePrefetch:  false,
		PrefetchStride:    64,
		ShowHeartbeat:     false,
		HeartbeatPeriod:   10000000,
	}
}

// InOrderConfig returns the same core with the strict in-order discipline.
func InOrderConfig() Config {
	cfg := DefaultConfig()
	cfg.Discipline = "inorder"
	return cfg
}

// LoadConfig reads a configuration from a JSON file. Fields omitted in the
// file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c Config) Validate() error {
	if c.ROBSize <= 0 {
		return fmt.Errorf("rob_size must be positive, got %d", c.ROBSize)
	}
	if c.LoadQueueSize <= 0 || c.StoreQueueSize <= 0 {
		return fmt.Errorf("load/store queue sizes must be positive, got %d/%d",
			c.LoadQueueSize, c.StoreQueueSize)
	}
	for _, w := range []struct {
		name  string
		width int
	}{
		{"fetch_width", c.FetchWidth},
		{"decode_width", c.DecodeWidth},
		{"dispatch_width", c.DispatchWidth},
		{"schedule_width", c.ScheduleWidth},
		{"exec_width", c.ExecWidth},
		{"retire_width", c.RetireWidth},
		{"lsq_width", c.LSQWidth},
	} {
		if w.width <= 0 {
			return fmt.Errorf("%s must be positive, got %d", w.name, w.width)
		}
	}
	if _, err := NewDiscipline(c.Discipline, TieBreakOldestFirst); err != nil {
		return err
	}
	if _, err := c.tieBreak(); err != nil {
		return err
	}
	return nil
}

func (c Config) tieBreak() (TieBreak, error) {
	switch c.OoOTieBreak {
	case "", "oldest":
		return TieBreakOldestFirst, nil
	case "youngest":
		return TieBreakYoungestFirst, nil
	default:
		return TieBreakOldestFirst,
			fmt.Errorf("pipeline: unknown tie-break %q", c.OoOTieBreak)
	}
}

// SaveConfig writes the configuration to a JSON file.
func SaveConfig(cfg Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
