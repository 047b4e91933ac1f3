package assessment

import (
	"math/rand"
)

// Compose builds a test instance from a question bank and a module config.
//
// Questions are grouped by type tag; each group is (optionally) shuffled and
// capped at QuestionsPerType, the concatenation is shuffled again and capped
// at TotalQuestions, and alternatives are (optionally) shuffled per question
// with the correct index remapped. Caps of zero mean "no cap". Short groups
// and short banks are not errors: the instance simply holds what exists.
//
// The caller owns the rand source, which keeps composition deterministic
// under test and uniformly shuffled in production (Fisher-Yates via
// rand.Shuffle rather than the sort-by-random-comparator the legacy UI
// used, which is biased).
func Compose(bank []Question, cfg ModuleConfig, rng *rand.Rand) TestInstance {
	groups := make(map[string][]Question)
	tagOrder := make([]string, 0)
	for _, q := range bank {
		if _, seen := groups[q.TypeTag]; !seen {
			tagOrder = append(tagOrder, q.TypeTag)
		}
		groups[q.TypeTag] = append(groups[q.TypeTag], q)
	}

	selected := make([]Question, 0, len(bank))
	for _, tag := range tagOrder {
		group := groups[tag]
		if cfg.ShuffleQuestions {
			rng.Shuffle(len(group), func(i, j int) {
				group[i], group[j] = group[j], group[i]
			})
		}
		take := len(group)
		if cfg.QuestionsPerType > 0 && cfg.QuestionsPerType < take {
			take = cfg.QuestionsPerType
		}
		selected = append(selected, group[:take]...)
	}

	if cfg.ShuffleQuestions {
		rng.Shuffle(len(selected), func(i, j int) {
			selected[i], selected[j] = selected[j], selected[i]
		})
	}

	if cfg.TotalQuestions > 0 && len(selected) > cfg.TotalQuestions {
		selected = selected[:cfg.TotalQuestions]
	}

	instance := TestInstance{Module: cfg.Module, Questions: make([]Question, len(selected))}
	for i, q := range selected {
		if cfg.ShuffleAlternatives {
			instance.Questions[i] = shuffleAlternatives(q, rng)
		} else {
			instance.Questions[i] = q
		}
	}
	return instance
}

// shuffleAlternatives reorders a question's alternatives and remaps
// CorrectIndex so grading stays valid after the reorder.
func shuffleAlternatives(q Question, rng *rand.Rand) Question {
	perm := rng.Perm(len(q.Alternatives))

	shuffled := make([]string, len(q.Alternatives))
	correct := q.CorrectIndex
	for newIdx, oldIdx := range perm {
		shuffled[newIdx] = q.Alternatives[oldIdx]
		if oldIdx == q.CorrectIndex {
			correct = newIdx
		}
	}

	q.Alternatives = shuffled
	q.CorrectIndex = correct
	return q
}
