package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/openfleet/fleetmeter/internal/types"
)

// Per-type severity weights. Unknown event types fall back to a mild default
// so imported events with unmapped labels still contribute.
var severityWeights = map[types.EventType]float64{
	types.EventSpeeding:          0.8,
	types.EventHardBraking:       0.7,
	types.EventSharpTurn:         0.6,
	types.EventRapidAcceleration: 0.5,
}

const defaultSeverityWeight = 0.3

// Factor weights for the composite score.
var factorWeights = struct {
	frequency, severity, timeOfDay, location, behavior float64
}{0.25, 0.30, 0.15, 0.15, 0.15}

// analysisWindowDays is the assumed reporting window for frequency: events
// are imported in 30-day batches, so events/day divides by a fixed 30.
const analysisWindowDays = 30

// recommendationThreshold: a factor above this emits its remediation message.
const recommendationThreshold = 70

// Hour buckets for time-of-day risk. Late night and early morning carry the
// highest weight, rush hours a medium one, regular daytime the lowest.
func hourRisk(hour int) float64 {
	switch {
	case hour <= 5 || hour >= 22:
		return 1.0
	case (hour >= 6 && hour <= 8) || (hour >= 18 && hour <= 21):
		return 0.6
	default:
		return 0.3
	}
}

// Analyze computes the risk assessment for one driver from its raw event
// list. Events are assumed to be pre-filtered to the driver; an empty list
// yields a zero sentinel rather than an error so dashboards degrade to a
// "no data" card.
func Analyze(events []types.TelemetryEvent, driverID string) Assessment {
	if len(events) == 0 {
		return Assessment{
			DriverID:        driverID,
			Score:           0,
			Factors:         Factors{},
			Recommendations: []string{"Insufficient telemetry data for analysis"},
			Level:           LevelLow,
			Analysis:        "No recorded events available for analysis.",
			EventCount:      0,
		}
	}

	n := float64(len(events))

	// 1. Event frequency: linear ramp saturating at 5 events/day.
	eventsPerDay := n / analysisWindowDays
	frequencyScore := math.Min(100, eventsPerDay*20)

	// 2. Event severity: mean of per-type weights.
	severitySum := 0.0
	for _, e := range events {
		w, ok := severityWeights[e.EventType]
		if !ok {
			w = defaultSeverityWeight
		}
		severitySum += w
	}
	severityScore := severitySum / n * 100

	// 3. Time-of-day pattern.
	timeSum := 0.0
	for _, e := range events {
		timeSum += hourRisk(e.Timestamp.Hour())
	}
	timeScore := timeSum / n * 100

	// 4. Location diversity as a proxy for unpredictable driving patterns.
	// Deliberately rewards geographic spread; see DESIGN.md before changing.
	locations := make(map[[2]float64]struct{}, len(events))
	for _, e := range events {
		locations[[2]float64{e.Latitude, e.Longitude}] = struct{}{}
	}
	locationScore := math.Min(100, float64(len(locations))/n*150)

	// 5. Behavior concentration: share of the dominant event type.
	dominant, dominantCount := dominantEventType(events)
	behaviorScore := float64(dominantCount) / n * 100

	// Factors are exposed as whole numbers, and the composite is built from
	// the rounded factors so the breakdown always adds up to the headline
	// score.
	frequencyScore = math.Round(frequencyScore)
	severityScore = math.Round(severityScore)
	timeScore = math.Round(timeScore)
	locationScore = math.Round(locationScore)
	behaviorScore = math.Round(behaviorScore)

	final := frequencyScore*factorWeights.frequency +
		severityScore*factorWeights.severity +
		timeScore*factorWeights.timeOfDay +
		locationScore*factorWeights.location +
		behaviorScore*factorWeights.behavior

	recommendations := buildRecommendations(frequencyScore, severityScore, timeScore, locationScore, behaviorScore, dominant)

	return Assessment{
		DriverID: driverID,
		Score:    clampScore(int(math.Round(final))),
		Factors: Factors{
			EventFrequency:  frequencyScore,
			EventSeverity:   severityScore,
			TimePatterns:    timeScore,
			LocationRisk:    locationScore,
			BehaviorPattern: behaviorScore,
		},
		Recommendations: recommendations,
		Level:           levelFor(final),
		Analysis:        buildAnalysis(len(events), eventsPerDay, severityScore, timeScore, locationScore, dominant, dominantCount),
		EventCount:      len(events),
	}
}

// dominantEventType returns the most frequent event type and its count,
// breaking ties lexicographically so the result is deterministic.
func dominantEventType(events []types.TelemetryEvent) (types.EventType, int) {
	counts := make(map[types.EventType]int, 4)
	for _, e := range events {
		counts[e.EventType]++
	}

	kinds := make([]types.EventType, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if counts[kinds[i]] != counts[kinds[j]] {
			return counts[kinds[i]] > counts[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})

	return kinds[0], counts[kinds[0]]
}

func buildRecommendations(frequency, severity, timeOfDay, location, behavior float64, dominant types.EventType) []string {
	recs := make([]string, 0, 5)
	if frequency > recommendationThreshold {
		recs = append(recs, "Reduce the overall frequency of risk events")
	}
	if severity > recommendationThreshold {
		recs = append(recs, "Focus on reducing high-severity events")
	}
	if timeOfDay > recommendationThreshold {
		recs = append(recs, "Avoid driving during high-risk hours")
	}
	if location > recommendationThreshold {
		recs = append(recs, "Pay special attention in frequent risk areas")
	}
	if behavior > recommendationThreshold {
		recs = append(recs, fmt.Sprintf("Work on reducing %s events", dominant))
	}
	return recs
}

func buildAnalysis(eventCount int, eventsPerDay, severity, timeOfDay, location float64, dominant types.EventType, dominantCount int) string {
	timeRemark := "The temporal distribution of events is adequate."
	if timeOfDay > 50 {
		timeRemark = "There is a significant concentration of events during high-risk hours."
	}

	locationRemark := "Good geographic distribution of events."
	if location > 50 {
		locationRemark = "Events are concentrated in specific areas."
	}

	share := float64(dominantCount) / float64(eventCount) * 100

	return fmt.Sprintf(
		"Analysis based on %d events over the last %d days. "+
			"The driver averages %.1f events per day with a mean severity of %.1f%%. "+
			"%s is the most frequent event type, representing %.1f%% of all cases. %s %s",
		eventCount, analysisWindowDays, eventsPerDay, severity, dominant, share, timeRemark, locationRemark,
	)
}

func levelFor(score float64) Level {
	switch {
	case score < 40:
		return LevelLow
	case score < 60:
		return LevelMedium
	case score < 80:
		return LevelHigh
	default:
		return LevelCritical
	}
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
