package assessment

import "time"

// Flow tracks a candidate's progression through the enabled modules of a
// company's selection process: NotStarted -> per-module completion in Order
// -> AllCompleted -> composite scoring. There are no backward transitions;
// retakes are only possible after full completion and only when the module
// allows them.
type Flow struct {
	modules []ModuleConfig
}

// NewFlow builds a flow over the enabled modules sorted by Order.
func NewFlow(cfgs []ModuleConfig) *Flow {
	return &Flow{modules: enabledByOrder(cfgs)}
}

// Modules returns the ordered enabled modules.
func (f *Flow) Modules() []ModuleConfig {
	return f.modules
}

// Next returns the first enabled module the candidate has not completed.
// ok is false once every module is done.
func (f *Flow) Next(results map[ModuleType]ModuleResult) (ModuleConfig, bool) {
	for _, cfg := range f.modules {
		if r, done := results[cfg.Module]; !done || !r.Completed {
			return cfg, true
		}
	}
	return ModuleConfig{}, false
}

// AllCompleted reports whether every enabled module has a completed result.
func (f *Flow) AllCompleted(results map[ModuleType]ModuleResult) bool {
	_, pending := f.Next(results)
	return !pending && len(f.modules) > 0
}

// CanRetake reports whether a completed module may be repeated: the module
// must allow retakes and the retake interval must have elapsed since the
// last completion. A module never taken can always be started.
func CanRetake(cfg ModuleConfig, last ModuleResult, now time.Time) bool {
	if !last.Completed {
		return true
	}
	if !cfg.AllowRetake {
		return false
	}
	elapsed := now.Sub(last.CompletedAt)
	return elapsed >= time.Duration(cfg.RetakeIntervalDays)*24*time.Hour
}
