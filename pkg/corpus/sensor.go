package corpus

import (
	"context"

	"github.com/obsidian-forge/hfo/pkg/probe"
	"github.com/obsidian-forge/hfo/pkg/strangeloop"
)

// ProbeSensor adapts a resource probe into the strange-loop's Sensor
// contract, mapping the probe's overall rollup status onto the
// strange-loop's own pressure vocabulary (§4.11's pressure table). The
// probe has no IDLE concept of its own, so this sensor never reports
// PressureIdle — a cold/quiet system reads as NOMINAL here.
type ProbeSensor struct {
	Opts probe.Options
}

// Sense runs one probe and returns the corresponding pressure.
func (s ProbeSensor) Sense(ctx context.Context) strangeloop.Pressure {
	report := probe.Probe(ctx, s.Opts)
	switch report.Status {
	case probe.StatusHealthy:
		return strangeloop.PressureNominal
	case probe.StatusWarning:
		return strangeloop.PressureElevated
	case probe.StatusFallback:
		return strangeloop.PressureThrottled
	case probe.StatusCritical:
		return strangeloop.PressureCritical
	default:
		return strangeloop.PressureNominal
	}
}

// AsSensor adapts Sense to the strangeloop.Sensor function type.
func (s ProbeSensor) AsSensor() strangeloop.Sensor {
	return s.Sense
}
