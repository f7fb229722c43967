package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"stageline/api/internal/store"
)

// memStore is a stateful in-memory store honoring the same task+counter
// contracts as the SQL store, so full service sequences can run in tests.
type memStore struct {
	*fakeStore
	stages map[string]*store.Stage
	tasks  map[string]*store.Task
}

func newMemStore() *memStore {
	return &memStore{
		fakeStore: &fakeStore{},
		stages:    map[string]*store.Stage{},
		tasks:     map[string]*store.Task{},
	}
}

func (m *memStore) GetStage(_ context.Context, stageID string) (store.Stage, error) {
	stage, ok := m.stages[stageID]
	if !ok {
		return store.Stage{}, sql.ErrNoRows
	}
	return *stage, nil
}

func (m *memStore) GetTask(_ context.Context, taskID string) (store.Task, error) {
	task, ok := m.tasks[taskID]
	if !ok {
		return store.Task{}, sql.ErrNoRows
	}
	return *task, nil
}

func (m *memStore) CreateTask(_ context.Context, task store.Task) error {
	copied := task
	m.tasks[task.ID] = &copied
	m.stages[task.StageID].TotalTasks++
	return nil
}

func (m *memStore) ClaimTask(_ context.Context, taskID, identity string) (bool, error) {
	task, ok := m.tasks[taskID]
	if !ok || task.Status != store.TaskAvailable {
		return false, nil
	}
	now := time.Now()
	task.Assignee = identity
	task.Status = store.TaskAssigned
	task.AssignedAt = &now
	return true, nil
}

func (m *memStore) SwapAssignee(_ context.Context, taskID, identity string) (bool, error) {
	task, ok := m.tasks[taskID]
	if !ok || task.Status != store.TaskAssigned {
		return false, nil
	}
	now := time.Now()
	task.Assignee = identity
	task.AssignedAt = &now
	return true, nil
}

func (m *memStore) DropTask(_ context.Context, taskID, identity string) (bool, error) {
	task, ok := m.tasks[taskID]
	if !ok || task.Status != store.TaskAssigned || task.Assignee != identity {
		return false, nil
	}
	task.Assignee = ""
	task.Status = store.TaskAvailable
	task.AssignedAt = nil
	return true, nil
}

func (m *memStore) SetTaskCompletion(_ context.Context, taskID string, completed bool) (store.Task, error) {
	task, ok := m.tasks[taskID]
	if !ok {
		return store.Task{}, sql.ErrNoRows
	}
	if task.IsCompleted == completed {
		return *task, nil
	}
	if completed && task.Status == store.TaskAvailable {
		return store.Task{}, store.ErrTaskUnclaimed
	}
	stage := m.stages[task.StageID]
	task.IsCompleted = completed
	if completed {
		task.Status = store.TaskCompleted
		task.CompletionPercentage = 100
		if stage.TasksCompleted < stage.TotalTasks {
			stage.TasksCompleted++
		}
	} else {
		task.Status = store.TaskAssigned
		task.CompletionPercentage = 0
		if stage.TasksCompleted > 0 {
			stage.TasksCompleted--
		}
	}
	return *task, nil
}

func (m *memStore) DeleteTask(_ context.Context, taskID string) error {
	task, ok := m.tasks[taskID]
	if !ok {
		return sql.ErrNoRows
	}
	stage := m.stages[task.StageID]
	if stage.TotalTasks > 0 {
		stage.TotalTasks--
	}
	if task.IsCompleted && stage.TasksCompleted > 0 {
		stage.TasksCompleted--
	}
	delete(m.tasks, taskID)
	return nil
}

func (m *memStore) ListReclaimable(_ context.Context, projectID string, now time.Time) ([]store.Task, error) {
	var items []store.Task
	for _, task := range m.tasks {
		if task.ProjectID != projectID || !task.CanBeReassigned || task.Status == store.TaskCompleted {
			continue
		}
		if task.SoftDeadline == nil || !task.SoftDeadline.Before(now) {
			continue
		}
		items = append(items, *task)
	}
	return items, nil
}

func TestTaskLifecycleCounters(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.stages["stg-1"] = &store.Stage{ID: "stg-1", ProjectID: "prj-1", Title: "Build"}
	svc := newTestService(st)
	actor := Session{UserName: "Avery"}

	taskIDs := make([]string, 0, 3)
	for _, title := range []string{"API", "Schema", "Docs"} {
		payload, err := svc.CreateTask(ctx, actor, "prj-1", "stg-1", CreateTaskInput{Title: title})
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		taskIDs = append(taskIDs, payload["id"].(string))
	}
	if got := st.stages["stg-1"].TotalTasks; got != 3 {
		t.Fatalf("total_tasks = %d, want 3", got)
	}

	if _, err := svc.ClaimTask(ctx, actor, taskIDs[0]); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Redundant completion toggles must not double-count.
	for i := 0; i < 2; i++ {
		if _, err := svc.SetCompletion(ctx, actor, taskIDs[0], true); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}
	if got := st.stages["stg-1"].TasksCompleted; got != 1 {
		t.Fatalf("tasks_completed = %d after redundant toggles, want 1", got)
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.SetCompletion(ctx, actor, taskIDs[0], false); err != nil {
			t.Fatalf("un-complete: %v", err)
		}
	}
	if got := st.stages["stg-1"].TasksCompleted; got != 0 {
		t.Fatalf("tasks_completed = %d after clamped decrement, want 0", got)
	}

	// Deleting a completed task decrements both counters.
	if _, err := svc.ClaimTask(ctx, actor, taskIDs[1]); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := svc.SetCompletion(ctx, actor, taskIDs[1], true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := svc.DeleteTask(ctx, actor, taskIDs[1]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	stage := st.stages["stg-1"]
	if stage.TotalTasks != 2 || stage.TasksCompleted != 0 {
		t.Fatalf("counters = %d/%d after delete, want 2/0", stage.TasksCompleted, stage.TotalTasks)
	}
}

func TestCompleteUnclaimedTaskRejected(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.stages["stg-1"] = &store.Stage{ID: "stg-1", ProjectID: "prj-1", Title: "Build"}
	svc := newTestService(st)
	actor := Session{UserName: "Avery"}

	payload, err := svc.CreateTask(ctx, actor, "prj-1", "stg-1", CreateTaskInput{Title: "Unclaimed"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	taskID := payload["id"].(string)

	_, err = svc.SetCompletion(ctx, actor, taskID, true)
	domainErr := asDomainError(t, err)
	if domainErr.Code != "CONFLICT" {
		t.Fatalf("code = %q, want CONFLICT", domainErr.Code)
	}
	task := st.tasks[taskID]
	if task.Status != store.TaskAvailable || task.Assignee != "" {
		t.Fatalf("task mutated by rejected completion: status=%q assignee=%q", task.Status, task.Assignee)
	}
	if got := st.stages["stg-1"].TasksCompleted; got != 0 {
		t.Fatalf("tasks_completed = %d after rejected completion, want 0", got)
	}
}

func TestSwapRequiresAssignedTask(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.stages["stg-1"] = &store.Stage{ID: "stg-1", ProjectID: "prj-1", Title: "Build"}
	svc := newTestService(st)
	actor := Session{UserName: "Avery"}

	payload, err := svc.CreateTask(ctx, actor, "prj-1", "stg-1", CreateTaskInput{Title: "Open"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	taskID := payload["id"].(string)

	_, err = svc.SwapTask(ctx, actor, taskID, "Bob")
	domainErr := asDomainError(t, err)
	if domainErr.Code != "CONFLICT" {
		t.Fatalf("code = %q, want CONFLICT", domainErr.Code)
	}
	if got := st.tasks[taskID].Assignee; got != "" {
		t.Fatalf("assignee = %q after rejected swap, want empty", got)
	}

	if _, err := svc.ClaimTask(ctx, actor, taskID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := svc.SwapTask(ctx, actor, taskID, "Bob"); err != nil {
		t.Fatalf("swap after claim: %v", err)
	}
	task := st.tasks[taskID]
	if task.Assignee != "Bob" || task.Status != store.TaskAssigned {
		t.Fatalf("swap result: status=%q assignee=%q, want assigned/Bob", task.Status, task.Assignee)
	}
}

func TestBountyViewTracksCompletion(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.stages["stg-1"] = &store.Stage{ID: "stg-1", ProjectID: "prj-1", Title: "Build"}
	svc := newTestService(st)
	actor := Session{UserName: "Avery"}

	overdue := time.Now().Add(-2 * time.Hour)
	payload, err := svc.CreateTask(ctx, actor, "prj-1", "stg-1", CreateTaskInput{
		Title: "Late task", Assignee: "Bob", SoftDeadline: &overdue,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	taskID := payload["id"].(string)

	bounty, err := svc.ListReclaimable(ctx, "prj-1")
	if err != nil {
		t.Fatalf("list reclaimable: %v", err)
	}
	if len(bounty["tasks"].([]map[string]any)) != 1 {
		t.Fatal("expected the overdue assigned task on the bounty board")
	}

	// Completing the task removes it from the board even though the deadline
	// stays in the past.
	if _, err := svc.SetCompletion(ctx, actor, taskID, true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	bounty, err = svc.ListReclaimable(ctx, "prj-1")
	if err != nil {
		t.Fatalf("list reclaimable: %v", err)
	}
	if len(bounty["tasks"].([]map[string]any)) != 0 {
		t.Fatal("completed tasks must not appear on the bounty board")
	}
}
