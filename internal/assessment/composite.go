package assessment

import "sort"

// PassBarSource selects where the overall pass threshold comes from.
type PassBarSource string

const (
	// PassBarCompany uses the company-level selection config MinScore.
	PassBarCompany PassBarSource = "company"
	// PassBarFirstModule reuses the passing score of the first enabled
	// module, matching the legacy dashboard behavior. Kept for companies
	// migrated from the old configuration.
	PassBarFirstModule PassBarSource = "first_module"
)

// PassBar is the explicit overall pass threshold for the selection process.
type PassBar struct {
	Source   PassBarSource `json:"source"`
	MinScore int           `json:"min_score"`
}

// CompositeResult is the final selection-process outcome across modules.
type CompositeResult struct {
	FinalScore   float64                `json:"final_score"`
	PerModule    map[ModuleType]float64 `json:"per_module"`
	PassingScore int                    `json:"passing_score"`
	Passed       bool                   `json:"passed"`
}

// ScoreComposite combines per-module scores into the weighted final score
// and pass decision. Only enabled modules participate; a module with no
// recorded score contributes zero, matching the legacy flow where abandoning
// a module scores whatever was answered. A zero total weight yields a
// zero, failed result rather than a division error.
func ScoreComposite(scores map[ModuleType]float64, cfgs []ModuleConfig, bar PassBar) CompositeResult {
	enabled := enabledByOrder(cfgs)

	totalWeight := 0
	for _, cfg := range enabled {
		totalWeight += cfg.Weight
	}

	result := CompositeResult{
		PerModule:    make(map[ModuleType]float64, len(enabled)),
		PassingScore: passBarScore(bar, enabled),
	}
	if totalWeight == 0 {
		return result
	}

	for _, cfg := range enabled {
		score := scores[cfg.Module]
		result.PerModule[cfg.Module] = score
		result.FinalScore += score * float64(cfg.Weight) / float64(totalWeight)
	}

	result.Passed = result.FinalScore >= float64(result.PassingScore)
	return result
}

func passBarScore(bar PassBar, enabled []ModuleConfig) int {
	if bar.Source == PassBarFirstModule && len(enabled) > 0 {
		return enabled[0].PassingScore
	}
	if bar.MinScore > 0 {
		return bar.MinScore
	}
	return 70
}

func enabledByOrder(cfgs []ModuleConfig) []ModuleConfig {
	enabled := make([]ModuleConfig, 0, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.Enabled {
			enabled = append(enabled, cfg)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Order < enabled[j].Order
	})
	return enabled
}
