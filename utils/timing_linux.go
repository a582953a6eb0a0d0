//go:build linux
// +build linux

package utils

import (
	"time"

	perf "github.com/hodgesds/perf-utils"
)

// HardwareRegion samples hardware cycle counts around a timed region,
// when the kernel allows perf events. Counter errors are returned to
// the caller; Stop still reports the elapsed wall time when they occur.
type HardwareRegion struct {
	profiler perf.HardwareProfiler
	start    time.Time
}

func NewHardwareRegion() (*HardwareRegion, error) {
	p, err := perf.NewHardwareProfiler(0, -1, perf.CpuCyclesProfiler|perf.CpuInstrProfiler)
	if err != nil {
		return nil, err
	}
	return &HardwareRegion{profiler: p}, nil
}

func (h *HardwareRegion) Start() error {
	h.start = time.Now()
	return h.profiler.Start()
}

// Stop returns the elapsed wall time plus cycle and instruction counts
// (zero when the counter was unavailable).
func (h *HardwareRegion) Stop() (elapsed time.Duration, cycles, instructions uint64, err error) {
	elapsed = time.Since(h.start)
	profile := &perf.HardwareProfile{}
	if err = h.profiler.Profile(profile); err != nil {
		return
	}
	if err = h.profiler.Stop(); err != nil {
		return
	}
	if profile.CPUCycles != nil {
		cycles = *profile.CPUCycles
	}
	if profile.Instructions != nil {
		instructions = *profile.Instructions
	}
	return
}

func (h *HardwareRegion) Close() error { return h.profiler.Close() }
