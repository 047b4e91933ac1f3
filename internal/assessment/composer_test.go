package assessment

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bankOf(perType map[string]int) []Question {
	var bank []Question
	seq := 1
	for _, tag := range []string{"legislation", "signals", "safety"} {
		for i := 0; i < perType[tag]; i++ {
			bank = append(bank, Question{
				ID:      fmt.Sprintf("%s-%d", tag, i),
				Seq:     seq,
				TypeTag: tag,
				Prompt:  fmt.Sprintf("question %d", seq),
				Alternatives: []string{
					"alternative a", "alternative b", "alternative c", "alternative d",
				},
				CorrectIndex: seq % 4,
			})
			seq++
		}
	}
	return bank
}

func TestComposeCapsPerTypeAndTotal(t *testing.T) {
	bank := bankOf(map[string]int{"legislation": 5, "signals": 5, "safety": 5})
	cfg := ModuleConfig{
		Module:           ModuleKnowledge,
		ShuffleQuestions: true,
		QuestionsPerType: 2,
		TotalQuestions:   5,
	}

	instance := Compose(bank, cfg, rand.New(rand.NewSource(1)))

	assert.Equal(t, ModuleKnowledge, instance.Module)
	require.Len(t, instance.Questions, 5)

	perType := make(map[string]int)
	seen := make(map[string]bool)
	for _, q := range instance.Questions {
		perType[q.TypeTag]++
		assert.False(t, seen[q.ID], "question %s selected twice", q.ID)
		seen[q.ID] = true
	}
	for tag, count := range perType {
		assert.LessOrEqual(t, count, 2, "type %s over its cap", tag)
	}
}

func TestComposeZeroCapsMeanNoCap(t *testing.T) {
	bank := bankOf(map[string]int{"legislation": 3, "signals": 4})
	cfg := ModuleConfig{Module: ModuleKnowledge}

	instance := Compose(bank, cfg, rand.New(rand.NewSource(1)))
	assert.Len(t, instance.Questions, 7)
}

func TestComposeShortBank(t *testing.T) {
	// Caps larger than the bank are not an error: the instance holds what
	// exists.
	bank := bankOf(map[string]int{"legislation": 1})
	cfg := ModuleConfig{
		Module:           ModuleKnowledge,
		ShuffleQuestions: true,
		QuestionsPerType: 10,
		TotalQuestions:   20,
	}

	instance := Compose(bank, cfg, rand.New(rand.NewSource(7)))
	assert.Len(t, instance.Questions, 1)
}

func TestComposeEmptyBank(t *testing.T) {
	cfg := ModuleConfig{Module: ModuleKnowledge, TotalQuestions: 20}
	instance := Compose(nil, cfg, rand.New(rand.NewSource(1)))
	assert.Empty(t, instance.Questions)
}

func TestComposeDeterministicUnderSeed(t *testing.T) {
	bank := bankOf(map[string]int{"legislation": 6, "signals": 6})
	cfg := ModuleConfig{
		Module:              ModuleKnowledge,
		ShuffleQuestions:    true,
		ShuffleAlternatives: true,
		QuestionsPerType:    3,
		TotalQuestions:      5,
	}

	first := Compose(bank, cfg, rand.New(rand.NewSource(42)))
	second := Compose(bank, cfg, rand.New(rand.NewSource(42)))

	assert.Equal(t, first, second)
}

func TestComposeNoShuffleKeepsBankOrder(t *testing.T) {
	bank := bankOf(map[string]int{"legislation": 3, "signals": 3})
	cfg := ModuleConfig{Module: ModuleKnowledge, QuestionsPerType: 2}

	instance := Compose(bank, cfg, rand.New(rand.NewSource(1)))

	require.Len(t, instance.Questions, 4)
	assert.Equal(t, "legislation-0", instance.Questions[0].ID)
	assert.Equal(t, "legislation-1", instance.Questions[1].ID)
	assert.Equal(t, "signals-0", instance.Questions[2].ID)
	assert.Equal(t, "signals-1", instance.Questions[3].ID)
}

func TestShuffleAlternativesRemapsCorrectIndex(t *testing.T) {
	q := Question{
		ID:           "q1",
		Alternatives: []string{"red", "green", "blue", "yellow"},
		CorrectIndex: 2,
	}

	for seed := int64(0); seed < 20; seed++ {
		shuffled := shuffleAlternatives(q, rand.New(rand.NewSource(seed)))

		assert.ElementsMatch(t, q.Alternatives, shuffled.Alternatives)
		assert.Equal(t, "blue", shuffled.Alternatives[shuffled.CorrectIndex],
			"seed %d lost the correct alternative", seed)
	}
}

func TestComposeShuffledInstanceStillGradable(t *testing.T) {
	bank := bankOf(map[string]int{"legislation": 4, "signals": 4})
	cfg := ModuleConfig{
		Module:              ModuleKnowledge,
		ShuffleQuestions:    true,
		ShuffleAlternatives: true,
	}

	instance := Compose(bank, cfg, rand.New(rand.NewSource(99)))

	byID := make(map[string]Question)
	for _, q := range bank {
		byID[q.ID] = q
	}

	// After shuffling, the remapped correct index must still point to the
	// original correct alternative text.
	for _, q := range instance.Questions {
		orig := byID[q.ID]
		assert.Equal(t, orig.Alternatives[orig.CorrectIndex], q.Alternatives[q.CorrectIndex])
	}
}
