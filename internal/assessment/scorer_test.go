package assessment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradableInstance(n int) TestInstance {
	instance := TestInstance{Module: ModuleKnowledge}
	for i := 0; i < n; i++ {
		instance.Questions = append(instance.Questions, Question{
			ID:           string(rune('a' + i)),
			Alternatives: []string{"w", "x", "y", "z"},
			CorrectIndex: i % 4,
		})
	}
	return instance
}

func TestScoreTest(t *testing.T) {
	instance := gradableInstance(4)

	t.Run("all correct scores 100", func(t *testing.T) {
		answers := map[string]int{"a": 0, "b": 1, "c": 2, "d": 3}
		score, ok := ScoreTest(instance, answers)
		require.True(t, ok)
		assert.Equal(t, 100.0, score)
	})

	t.Run("all wrong scores 0", func(t *testing.T) {
		answers := map[string]int{"a": 1, "b": 2, "c": 3, "d": 0}
		score, ok := ScoreTest(instance, answers)
		require.True(t, ok)
		assert.Equal(t, 0.0, score)
	})

	t.Run("unanswered count as incorrect", func(t *testing.T) {
		answers := map[string]int{"a": 0, "b": 1}
		score, ok := ScoreTest(instance, answers)
		require.True(t, ok)
		assert.Equal(t, 50.0, score)
	})

	t.Run("stray answers are ignored", func(t *testing.T) {
		answers := map[string]int{"a": 0, "zz": 3}
		score, ok := ScoreTest(instance, answers)
		require.True(t, ok)
		assert.Equal(t, 25.0, score)
	})

	t.Run("empty instance is not applicable", func(t *testing.T) {
		score, ok := ScoreTest(TestInstance{Module: ModuleKnowledge}, nil)
		assert.False(t, ok)
		assert.Equal(t, 0.0, score)
	})
}

func TestScoreReaction(t *testing.T) {
	maxReaction := 500 * time.Millisecond

	t.Run("fastest achievable scores 100", func(t *testing.T) {
		score := ScoreReaction([]time.Duration{MinAchievableReaction}, maxReaction)
		assert.Equal(t, 100.0, score)
	})

	t.Run("at the limit scores 0", func(t *testing.T) {
		score := ScoreReaction([]time.Duration{maxReaction}, maxReaction)
		assert.Equal(t, 0.0, score)
	})

	t.Run("midpoint scores 50", func(t *testing.T) {
		// 325ms sits halfway between 150ms and 500ms.
		score := ScoreReaction([]time.Duration{325 * time.Millisecond}, maxReaction)
		assert.InDelta(t, 50.0, score, 0.001)
	})

	t.Run("attempts above the limit are discarded", func(t *testing.T) {
		attempts := []time.Duration{
			325 * time.Millisecond,
			2 * time.Second,
			10 * time.Second,
		}
		score := ScoreReaction(attempts, maxReaction)
		assert.InDelta(t, 50.0, score, 0.001)
	})

	t.Run("no valid attempts scores 0", func(t *testing.T) {
		attempts := []time.Duration{time.Second, 2 * time.Second}
		assert.Equal(t, 0.0, ScoreReaction(attempts, maxReaction))
		assert.Equal(t, 0.0, ScoreReaction(nil, maxReaction))
	})

	t.Run("superhuman speed clamps at 100", func(t *testing.T) {
		score := ScoreReaction([]time.Duration{10 * time.Millisecond}, maxReaction)
		assert.Equal(t, 100.0, score)
	})

	t.Run("degenerate limit scores 0", func(t *testing.T) {
		score := ScoreReaction([]time.Duration{100 * time.Millisecond}, 100*time.Millisecond)
		assert.Equal(t, 0.0, score)
	})
}
