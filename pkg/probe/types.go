// Package probe implements the C3 Resource Probe: a point-in-time capture
// of memory, compute (GPU/NPU), external model reachability, system, and
// event-store facts, with each dimension independently fail-closed on
// error or timeout. See spec.md §4.3, §6.2.
package probe

import (
	"context"
	"time"
)

// Verdict is the per-dimension health classification. Not every dimension
// uses every value — see the Verdict domain column in §4.3.
type Verdict string

const (
	VerdictOK          Verdict = "OK"
	VerdictWarning     Verdict = "WARNING"
	VerdictCritical    Verdict = "CRITICAL"
	VerdictHot         Verdict = "HOT"
	VerdictNoGPU       Verdict = "NO_GPU"
	VerdictActive      Verdict = "ACTIVE"
	VerdictIdle        Verdict = "IDLE"
	VerdictNoRuntime   Verdict = "NO_RUNTIME"
	VerdictNoDevice    Verdict = "NO_DEVICE"
	VerdictSlow        Verdict = "SLOW"
	VerdictAuthFailed  Verdict = "AUTH_FAILED"
	VerdictRateLimited Verdict = "RATE_LIMITED"
	VerdictUnreachable Verdict = "UNREACHABLE"
	VerdictNoCreds     Verdict = "NO_CREDENTIALS"
)

// Status is the overall rollup reported alongside the per-dimension detail
// (§6.2 top-level "status" field).
type Status string

const (
	StatusHealthy  Status = "HEALTHY"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
	StatusFallback Status = "FALLBACK"
)

// LoadedModel describes one model resident in expensive-compute memory.
type LoadedModel struct {
	Name   string  `json:"name"`
	VRAMGB float64 `json:"vram_gb"`
}

// Memory is the memory dimension (§4.3 row 1).
type Memory struct {
	Verdict     Verdict `json:"verdict"`
	TotalGB     float64 `json:"total_gb"`
	UsedGB      float64 `json:"used_gb"`
	FreeGB      float64 `json:"free_gb"`
	Percent     float64 `json:"percent"`
	SwapPercent float64 `json:"swap_percent"`
}

// GPU is the compute-expensive dimension (§4.3 row 2).
type GPU struct {
	Verdict      Verdict       `json:"verdict"`
	VRAMUsedGB   float64       `json:"vram_used_gb"`
	VRAMFreeGB   float64       `json:"vram_free_gb"`
	LoadedModels []LoadedModel `json:"loaded_models"`
	TempC        *float64      `json:"temp_c,omitempty"`
	Driver       *string       `json:"driver,omitempty"`
}

// NPU is the compute-cheap dimension (§4.3 row 3).
type NPU struct {
	Verdict           Verdict  `json:"verdict"`
	RuntimeInstalled  bool     `json:"runtime_installed"`
	RuntimeVersion    *string  `json:"runtime_version,omitempty"`
	Devices           []string `json:"devices"`
	WorkerRunning     bool     `json:"worker_running"`
}

// AI is the external-AI dimension (§4.3 row 4).
type AI struct {
	Verdict   Verdict `json:"verdict"`
	Mode      *string `json:"mode,omitempty"`
	Reachable bool    `json:"reachable"`
	LatencyMS *int64  `json:"latency_ms,omitempty"`
}

// System is the informational system dimension (§4.3 row 5).
type System struct {
	CPUPercent   float64 `json:"cpu_percent"`
	CPUCores     int     `json:"cpu_cores"`
	DiskFreeGB   float64 `json:"disk_free_gb"`
	DiskPercent  float64 `json:"disk_percent"`
	ProcessCount int     `json:"process_count"`
	Platform     string  `json:"platform"`
}

// SSOT is the event-store-stats dimension (§4.3 row 6; "ssot" per §6.2).
type SSOT struct {
	DocCount   int  `json:"doc_count"`
	EventCount int  `json:"event_count"`
	FTSOk      bool `json:"fts_ok"`
}

// Report is the full probe_report shape (§6.2).
type Report struct {
	Status Status `json:"status"`
	RAM    Memory `json:"ram"`
	GPU    GPU    `json:"gpu"`
	NPU    NPU    `json:"npu"`
	AI     AI     `json:"ai"`
	System System `json:"system"`
	SSOT   SSOT   `json:"ssot"`
}

// ModelPinger abstracts reaching a model provider for the AI dimension —
// implemented by pkg/models so this package stays free of HTTP concerns.
type ModelPinger interface {
	Ping(ctx context.Context) (mode string, latencyMS int64, err error)
}

// StoreStats abstracts the event-log stats needed for the ssot dimension —
// implemented by pkg/corpus's StoreStatsAdapter over a stigmergy Store.
type StoreStats interface {
	Stats(ctx context.Context) (docCount, eventCount int, ftsOk bool, err error)
}

// Options configures a single Probe() invocation.
type Options struct {
	// WorkingVolume is the filesystem path the system dimension reports
	// free space for (normally the project root).
	WorkingVolume string
	Pinger        ModelPinger // nil => ai dimension reports NO_CREDENTIALS
	Store         StoreStats  // nil => ssot dimension reports zero counts with fts_ok true
	// PerDimensionTimeout bounds each dimension's capture independently
	// (§4.3: "per-dimension soft timeouts").
	PerDimensionTimeout time.Duration
}
