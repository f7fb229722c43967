// Package stagegate computes stage lock state from ordered completion counters.
package stagegate

// Counts is the completion tally of a single stage.
type Counts struct {
	TotalTasks     int
	TasksCompleted int
}

// Complete reports whether every task in the stage is done. A stage with no
// tasks counts as complete and never blocks its successor.
func (c Counts) Complete() bool {
	return c.TasksCompleted >= c.TotalTasks
}

// Locked returns, for each stage in order, whether it is locked. Stage 0 is
// never locked; stage i is locked iff stage i-1 is not complete. The result is
// always recomputed from counters and never persisted, so it cannot drift.
func Locked(stages []Counts) []bool {
	locked := make([]bool, len(stages))
	for i := 1; i < len(stages); i++ {
		locked[i] = !stages[i-1].Complete()
	}
	return locked
}
