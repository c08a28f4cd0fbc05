package strangeloop

import "github.com/obsidian-forge/hfo/pkg/probe"

// pressureTable is the fixed batch-size table (§4.11).
var pressureTable = map[Pressure]BatchSizes{
	PressureIdle:      {Cheap: 50, Expensive: 20},
	PressureNominal:   {Cheap: 20, Expensive: 8},
	PressureElevated:  {Cheap: 5, Expensive: 1},
	PressureThrottled: {Cheap: 5, Expensive: 0},
	PressureCritical:  {Cheap: 0, Expensive: 0},
}

func batchSizesFor(p Pressure) BatchSizes {
	if sizes, ok := pressureTable[p]; ok {
		return sizes
	}
	return pressureTable[PressureCritical]
}

// FromProbeStatus maps a Resource Probe rollup to a strange-loop pressure
// reading. It is a reasonable default Sensor for callers that don't have a
// domain-specific notion of load; the CRITICAL/WARNING/FALLBACK/HEALTHY
// rollup doesn't distinguish IDLE from NOMINAL, so both map to NOMINAL —
// callers wanting an IDLE reading (e.g. "nothing in the queue") should
// supply their own Sensor.
func FromProbeStatus(status probe.Status) Pressure {
	switch status {
	case probe.StatusCritical:
		return PressureCritical
	case probe.StatusWarning:
		return PressureElevated
	case probe.StatusFallback:
		return PressureThrottled
	default:
		return PressureNominal
	}
}
