package probe

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/obsidian-forge/hfo/pkg/herrors"
)

func errPanic(r any) error { return fmt.Errorf("probe: recovered panic: %v", r) }

const bytesPerGB = 1024 * 1024 * 1024

func toGB(b uint64) float64 { return float64(b) / bytesPerGB }

// captureMemory fills the memory dimension via gopsutil's mem package.
func captureMemory(ctx context.Context) (Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Memory{}, err
	}
	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		// Swap is best-effort; report zero rather than fail the whole
		// dimension over an absent swap device.
		swap = &mem.SwapMemoryStat{}
	}

	m := Memory{
		TotalGB:     toGB(vm.Total),
		UsedGB:      toGB(vm.Used),
		FreeGB:      toGB(vm.Free),
		Percent:     vm.UsedPercent,
		SwapPercent: swap.UsedPercent,
	}
	switch {
	case vm.UsedPercent >= 95:
		m.Verdict = VerdictCritical
	case vm.UsedPercent >= 80:
		m.Verdict = VerdictWarning
	default:
		m.Verdict = VerdictOK
	}
	return m, nil
}

// captureGPU has no corpus library for vendor-specific GPU telemetry
// (nvidia-smi/ROCm bindings are absent from every example repo's go.mod);
// it reports NO_GPU unless HFO_GPU_VRAM_USED_GB / HFO_GPU_VRAM_FREE_GB are
// set by the environment that launched the daemon fleet, which is how the
// supervisor's child processes are expected to surface accelerator state
// discovered at spawn time (see pkg/supervisor).
func captureGPU(ctx context.Context) (GPU, error) {
	usedStr, okUsed := os.LookupEnv("HFO_GPU_VRAM_USED_GB")
	freeStr, okFree := os.LookupEnv("HFO_GPU_VRAM_FREE_GB")
	if !okUsed || !okFree {
		return GPU{Verdict: VerdictNoGPU, LoadedModels: []LoadedModel{}}, nil
	}
	var used, free float64
	_, _ = fmt.Sscanf(usedStr, "%f", &used)
	_, _ = fmt.Sscanf(freeStr, "%f", &free)

	g := GPU{VRAMUsedGB: used, VRAMFreeGB: free, LoadedModels: []LoadedModel{}}
	total := used + free
	switch {
	case total > 0 && used/total >= 0.95:
		g.Verdict = VerdictCritical
	case total > 0 && used/total >= 0.80:
		g.Verdict = VerdictWarning
	default:
		g.Verdict = VerdictOK
	}
	return g, nil
}

// captureNPU takes the accelerator runtime from HFO_NPU_RUNTIME and its
// devices from HFO_NPU_DEVICES; when both are set, it probes the host
// process table for a known worker process name (HFO_NPU_WORKER_PROCESS),
// the same liveness-by-process-scan technique the supervisor uses for
// daemon watchdog ticks (pkg/supervisor), to choose active over idle.
func captureNPU(ctx context.Context) (NPU, error) {
	runtimeBin, installed := os.LookupEnv("HFO_NPU_RUNTIME")
	if !installed || runtimeBin == "" {
		return NPU{Verdict: VerdictNoRuntime, Devices: []string{}}, nil
	}

	devices := []string{}
	if devStr := os.Getenv("HFO_NPU_DEVICES"); devStr != "" {
		devices = append(devices, devStr)
	}
	if len(devices) == 0 {
		return NPU{Verdict: VerdictNoDevice, RuntimeInstalled: true, Devices: devices}, nil
	}

	workerName := os.Getenv("HFO_NPU_WORKER_PROCESS")
	running := false
	if workerName != "" {
		running = processRunning(ctx, workerName)
	}

	n := NPU{RuntimeInstalled: true, Devices: devices, WorkerRunning: running}
	if running {
		n.Verdict = VerdictActive
	} else {
		n.Verdict = VerdictIdle
	}
	return n, nil
}

func processRunning(ctx context.Context, name string) bool {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false
	}
	for _, p := range procs {
		n, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if n == name {
			return true
		}
	}
	return false
}

// captureAI pings the configured model provider, if any, via the injected
// ModelPinger (implemented by pkg/models).
func captureAI(ctx context.Context, opts Options) (AI, error) {
	if opts.Pinger == nil {
		return AI{Verdict: VerdictNoCreds}, nil
	}
	mode, latencyMS, err := opts.Pinger.Ping(ctx)
	if err != nil {
		return AI{Verdict: classifyPingError(err)}, nil
	}
	a := AI{Reachable: true, LatencyMS: &latencyMS}
	if mode != "" {
		a.Mode = &mode
	}
	switch {
	case latencyMS > 5000:
		a.Verdict = VerdictSlow
	default:
		a.Verdict = VerdictOK
	}
	return a, nil
}

// classifyPingError maps a provider error's herrors.Kind to a probe
// verdict. pkg/models wraps provider errors with herrors.Kind before
// returning them from Ping, so this function reads that back out without
// importing pkg/models (avoiding an import cycle — pkg/models implements
// ModelPinger against this package's interface, not the reverse).
func classifyPingError(err error) Verdict {
	switch herrors.KindOf(err) {
	case herrors.KindAuthFailed:
		return VerdictAuthFailed
	case herrors.KindRateLimited:
		return VerdictRateLimited
	default:
		return VerdictUnreachable
	}
}

// captureSystem is informational: no verdict domain (§4.3 row 5).
func captureSystem(ctx context.Context) (System, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	cpuPercent := 0.0
	if err == nil && len(percents) > 0 {
		cpuPercent = percents[0]
	}

	procs, err := process.PidsWithContext(ctx)
	procCount := 0
	if err == nil {
		procCount = len(procs)
	}

	s := System{
		CPUPercent:   cpuPercent,
		CPUCores:     runtime.NumCPU(),
		ProcessCount: procCount,
		Platform:     runtime.GOOS,
	}
	return s, nil
}

// captureSystemVolume augments captureSystem with working-volume disk
// usage; split out because disk.Usage needs Options.WorkingVolume.
func captureSystemVolume(ctx context.Context, opts Options) (System, error) {
	s, err := captureSystem(ctx)
	if err != nil {
		return s, err
	}
	path := opts.WorkingVolume
	if path == "" {
		path = "."
	}
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return s, nil // disk stats are best-effort informational fields
	}
	s.DiskFreeGB = toGB(usage.Free)
	s.DiskPercent = usage.UsedPercent
	return s, nil
}

// captureSSOT reports event-log stats via the injected StoreStats.
func captureSSOT(ctx context.Context, opts Options) (SSOT, error) {
	if opts.Store == nil {
		return SSOT{FTSOk: true}, nil
	}
	docCount, eventCount, ftsOk, err := opts.Store.Stats(ctx)
	if err != nil {
		return SSOT{}, err
	}
	return SSOT{DocCount: docCount, EventCount: eventCount, FTSOk: ftsOk}, nil
}
