package risk

// Level classifies a composite risk score.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Factors holds the five independent sub-scores feeding the composite, each
// in [0,100] and rounded to the nearest integer for display.
type Factors struct {
	EventFrequency  float64 `json:"event_frequency"`
	EventSeverity   float64 `json:"event_severity"`
	TimePatterns    float64 `json:"time_patterns"`
	LocationRisk    float64 `json:"location_risk"`
	BehaviorPattern float64 `json:"behavior_pattern"`
}

// Assessment is the derived risk profile for one driver. It is a pure
// function of the driver's event list; the caller decides persistence.
type Assessment struct {
	DriverID        string   `json:"driver_id"`
	Score           int      `json:"score"`
	Factors         Factors  `json:"factors"`
	Recommendations []string `json:"recommendations"`
	Level           Level    `json:"risk_level"`
	Analysis        string   `json:"analysis"`
	EventCount      int      `json:"event_count"`
}
