package pipeline

import (
	"fmt"
	"io"
	"time"
)

// HeartbeatMonitor emits one progress line every fixed number of newly
// retired instructions. It is observability only: it never gates progress,
// and all of its counters are per-engine state rather than process globals.
// The surrounding controller calls BeginPhase at the warmup-to-ROI
// transition to reset the cumulative-IPC baseline.
type HeartbeatMonitor struct {
	cpuID   int
	period  uint64
	enabled bool
	out     io.Writer

	lastInstr  uint64
	lastCycle  int64
	phaseInstr uint64
	phaseCycle int64

	start time.Time
}

// NewHeartbeatMonitor creates a monitor writing to out. A period of zero
// disables reporting regardless of enabled.
func NewHeartbeatMonitor(cpuID int, period uint64, enabled bool, out io.Writer) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		cpuID:   cpuID,
		period:  period,
		enabled: enabled && period > 0,
		out:     out,
		start:   time.Now(),
	}
}

// BeginPhase resets the measurement baseline, e.g. when warmup ends and the
// region of interest begins.
func (h *HeartbeatMonitor) BeginPhase(retired uint64, cycle int64) {
	h.phaseInstr = retired
	h.phaseCycle = cycle
	h.lastInstr = retired
	h.lastCycle = cycle
	h.start = time.Now()
}

// Observe checks the retirement counter after a cycle and emits a report if
// a full period of retirements has elapsed since the previous report.
// Returns true when a report was written. A report is never re-triggered
// within the same window.
func (h *HeartbeatMonitor) Observe(retired uint64, cycle int64) bool {
	if !h.enabled || retired < h.lastInstr+h.period {
		return false
	}

	windowInstr := float64(retired - h.lastInstr)
	windowCycle := float64(cycle - h.lastCycle)
	phaseInstr := float64(retired - h.phaseInstr)
	phaseCycle := float64(cycle - h.phaseCycle)

	elapsed := time.Since(h.start).Round(time.Second)
	hours := int(elapsed.Hours())
	minutes := int(elapsed.Minutes()) % 60
	seconds := int(elapsed.Seconds()) % 60

	fmt.Fprintf(h.out,
		"Heartbeat CPU %d instructions: %d cycles: %d heartbeat IPC: %.4g cumulative IPC: %.4g (Simulation time: %d hr %d min %d sec)\n",
		h.cpuID, retired, cycle,
		safeDiv(windowInstr, windowCycle),
		safeDiv(phaseInstr, phaseCycle),
		hours, minutes, seconds)

	h.lastInstr = retired
	h.lastCycle = cycle
	return true
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
