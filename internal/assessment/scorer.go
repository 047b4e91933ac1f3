package assessment

import "time"

// MinAchievableReaction is the floor of the reaction scoring ramp: a mean
// reaction at or below this maps to 100%. Sub-150ms reactions are beyond
// human perception latency, so nothing faster earns extra credit.
const MinAchievableReaction = 150 * time.Millisecond

// ScoreTest grades answered questions against a test instance and returns
// the percentage correct. Unanswered questions count as incorrect.
//
// The second return is false when the instance holds no questions: an empty
// module is not-applicable, not a 0% score, so the composite scorer can skip
// it instead of dragging the average down.
func ScoreTest(instance TestInstance, answers map[string]int) (float64, bool) {
	total := len(instance.Questions)
	if total == 0 {
		return 0, false
	}

	correct := 0
	for _, q := range instance.Questions {
		if idx, ok := answers[q.ID]; ok && idx == q.CorrectIndex {
			correct++
		}
	}

	return float64(correct) / float64(total) * 100, true
}

// ScoreReaction converts reaction attempts into a 0-100 score. Attempts
// above maxReaction are discarded as invalid; the mean of the rest is mapped
// linearly so that maxReaction scores 0% and MinAchievableReaction scores
// 100%. No valid attempts scores 0.
func ScoreReaction(attempts []time.Duration, maxReaction time.Duration) float64 {
	if maxReaction <= MinAchievableReaction {
		return 0
	}

	var sum time.Duration
	valid := 0
	for _, t := range attempts {
		if t <= maxReaction {
			sum += t
			valid++
		}
	}
	if valid == 0 {
		return 0
	}

	mean := float64(sum) / float64(valid)
	score := (float64(maxReaction) - mean) / float64(maxReaction-MinAchievableReaction) * 100

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
