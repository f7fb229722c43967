package reassign

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type recordingStore struct {
	calls  []Mutation
	failOn func(Mutation) error
}

func (r *recordingStore) AddMember(_ context.Context, projectID, identity, role string) error {
	return r.record(Mutation{ProjectID: projectID, Identity: identity, Role: role, Op: OpAdd})
}

func (r *recordingStore) RemoveMember(_ context.Context, projectID, identity, role string) error {
	return r.record(Mutation{ProjectID: projectID, Identity: identity, Role: role, Op: OpRemove})
}

func (r *recordingStore) record(m Mutation) error {
	if r.failOn != nil {
		if err := r.failOn(m); err != nil {
			return err
		}
	}
	r.calls = append(r.calls, m)
	return nil
}

func TestCommitAppliesRemovalsBeforeAdditions(t *testing.T) {
	store := &recordingStore{}
	engine := NewEngine(store)

	diffs := map[string]Diff{
		"proj-a": {
			AddedMembers:   []string{"new@team.dev"},
			RemovedMembers: []string{"old@team.dev"},
		},
	}

	report, err := engine.Commit(context.Background(), diffs)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if len(report.Applied) != 2 || len(report.Failures) != 0 {
		t.Fatalf("report = %+v", report)
	}
	if store.calls[0].Op != OpRemove || store.calls[1].Op != OpAdd {
		t.Fatalf("mutation order = %+v, want remove before add", store.calls)
	}
}

func TestCommitContinuesPastFailures(t *testing.T) {
	store := &recordingStore{
		failOn: func(m Mutation) error {
			if m.Identity == "flaky@team.dev" {
				return fmt.Errorf("write rejected")
			}
			return nil
		},
	}
	engine := NewEngine(store)

	diffs := map[string]Diff{
		"proj-a": {AddedMembers: []string{"one@team.dev", "flaky@team.dev", "two@team.dev"}},
		"proj-b": {AddedAdmins: []string{"three@team.dev"}},
	}

	report, err := engine.Commit(context.Background(), diffs)

	var partial *PartialCommitError
	if !errors.As(err, &partial) {
		t.Fatalf("Commit() error = %v, want PartialCommitError", err)
	}
	if len(partial.Failures) != 1 {
		t.Fatalf("failures = %+v, want exactly one", partial.Failures)
	}
	failure := partial.Failures[0]
	if failure.ProjectID != "proj-a" || failure.Identity != "flaky@team.dev" {
		t.Fatalf("failure = %+v", failure)
	}
	// The other three mutations were still attempted and applied.
	if len(report.Applied) != 3 {
		t.Fatalf("applied = %+v, want 3 mutations", report.Applied)
	}
}

func TestCommitSkipsEmptyDiffs(t *testing.T) {
	store := &recordingStore{}
	engine := NewEngine(store)

	report, err := engine.Commit(context.Background(), map[string]Diff{"proj-a": {}})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if len(report.Applied) != 0 || len(store.calls) != 0 {
		t.Fatalf("empty diff must not produce mutations, got %+v", store.calls)
	}
}

func TestCommitAdminCopyUsesAdminRole(t *testing.T) {
	store := &recordingStore{}
	engine := NewEngine(store)

	_, err := engine.Commit(context.Background(), map[string]Diff{
		"proj-b": {AddedAdmins: []string{"ada@team.dev"}},
	})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if len(store.calls) != 1 || store.calls[0].Role != RoleAdmin || store.calls[0].Op != OpAdd {
		t.Fatalf("calls = %+v", store.calls)
	}
}
