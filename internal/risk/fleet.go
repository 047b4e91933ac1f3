package risk

import "github.com/openfleet/fleetmeter/internal/types"

// FleetScore averages the composite scores of all driver assessments for a
// company-wide risk figure. An empty fleet scores zero; the divisor is
// guarded so partially-onboarded companies never divide by zero.
func FleetScore(assessments []Assessment) float64 {
	divisor := len(assessments)
	if divisor == 0 {
		divisor = 1
	}

	total := 0.0
	for _, a := range assessments {
		total += float64(a.Score)
	}
	return total / float64(divisor)
}

// EventTypeCounts tallies events by type for the overview dashboard cards.
func EventTypeCounts(events []types.TelemetryEvent) map[types.EventType]int {
	counts := make(map[types.EventType]int, 4)
	for _, e := range events {
		counts[e.EventType]++
	}
	return counts
}
