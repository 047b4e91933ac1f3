package assessment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedResult(module ModuleType, completedAt time.Time) ModuleResult {
	return ModuleResult{
		Module:      module,
		Score:       80,
		CompletedAt: completedAt,
		Completed:   true,
	}
}

func TestFlowNext(t *testing.T) {
	flow := NewFlow(DefaultConfigs("acme"))
	now := time.Now()

	t.Run("starts at the lowest order", func(t *testing.T) {
		next, ok := flow.Next(nil)
		require.True(t, ok)
		assert.Equal(t, ModuleKnowledge, next.Module)
	})

	t.Run("advances in order", func(t *testing.T) {
		results := map[ModuleType]ModuleResult{
			ModuleKnowledge: completedResult(ModuleKnowledge, now),
		}
		next, ok := flow.Next(results)
		require.True(t, ok)
		assert.Equal(t, ModuleReaction, next.Module)
	})

	t.Run("incomplete result does not advance", func(t *testing.T) {
		results := map[ModuleType]ModuleResult{
			ModuleKnowledge: {Module: ModuleKnowledge, Score: 40, Completed: false},
		}
		next, ok := flow.Next(results)
		require.True(t, ok)
		assert.Equal(t, ModuleKnowledge, next.Module)
	})

	t.Run("exhausted after all modules", func(t *testing.T) {
		results := map[ModuleType]ModuleResult{
			ModuleKnowledge:   completedResult(ModuleKnowledge, now),
			ModuleReaction:    completedResult(ModuleReaction, now),
			ModuleRisk:        completedResult(ModuleRisk, now),
			ModuleMaintenance: completedResult(ModuleMaintenance, now),
		}
		_, ok := flow.Next(results)
		assert.False(t, ok)
		assert.True(t, flow.AllCompleted(results))
	})
}

func TestFlowSkipsDisabledModules(t *testing.T) {
	cfgs := DefaultConfigs("acme")
	for i := range cfgs {
		if cfgs[i].Module == ModuleReaction {
			cfgs[i].Enabled = false
		}
	}

	flow := NewFlow(cfgs)
	results := map[ModuleType]ModuleResult{
		ModuleKnowledge: completedResult(ModuleKnowledge, time.Now()),
	}

	next, ok := flow.Next(results)
	require.True(t, ok)
	assert.Equal(t, ModuleRisk, next.Module)
	assert.Len(t, flow.Modules(), 3)
}

func TestAllCompletedEmptyFlow(t *testing.T) {
	flow := NewFlow(nil)
	assert.False(t, flow.AllCompleted(nil))
}

func TestCanRetake(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cfg := ModuleConfig{
		Module:             ModuleKnowledge,
		AllowRetake:        true,
		RetakeIntervalDays: 30,
	}

	t.Run("never taken", func(t *testing.T) {
		assert.True(t, CanRetake(cfg, ModuleResult{}, now))
	})

	t.Run("retakes disabled", func(t *testing.T) {
		noRetake := cfg
		noRetake.AllowRetake = false
		last := completedResult(ModuleKnowledge, now.AddDate(0, -6, 0))
		assert.False(t, CanRetake(noRetake, last, now))
	})

	t.Run("interval not yet elapsed", func(t *testing.T) {
		last := completedResult(ModuleKnowledge, now.AddDate(0, 0, -29))
		assert.False(t, CanRetake(cfg, last, now))
	})

	t.Run("interval elapsed", func(t *testing.T) {
		last := completedResult(ModuleKnowledge, now.AddDate(0, 0, -30))
		assert.True(t, CanRetake(cfg, last, now))
	})
}
