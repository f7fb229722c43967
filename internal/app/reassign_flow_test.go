package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"stageline/api/internal/reassign"
	"stageline/api/internal/store"
)

func reassignTestStore(failRemove bool) *fakeStore {
	return &fakeStore{
		listProjectsFn: func(context.Context) ([]store.Project, error) {
			return []store.Project{
				{ID: "prj-a", Name: "Atlas", TeamSize: 5},
				{ID: "prj-b", Name: "Borealis", TeamSize: 5},
			}, nil
		},
		listMembersFn: func(_ context.Context, projectID string) ([]store.Member, error) {
			switch projectID {
			case "prj-a":
				return []store.Member{
					{ProjectID: projectID, Identity: "Alice", Role: store.MemberRoleMember},
					{ProjectID: projectID, Identity: "Dana", Role: store.MemberRoleAdmin},
				}, nil
			case "prj-b":
				return []store.Member{
					{ProjectID: projectID, Identity: "Bob", Role: store.MemberRoleMember},
				}, nil
			}
			return nil, nil
		},
		removeMemberFn: func(_ context.Context, projectID, identity, role string) error {
			if failRemove {
				return errors.New("membership write rejected")
			}
			return nil
		},
	}
}

func startSession(t *testing.T, svc *Service) string {
	t.Helper()
	payload, err := svc.StartReassignment(context.Background(), Session{UserName: "Dana"})
	if err != nil {
		t.Fatalf("start reassignment: %v", err)
	}
	return payload["sessionId"].(string)
}

func TestReassignmentMoveAndCancel(t *testing.T) {
	svc := newTestService(reassignTestStore(false))
	sessionID := startSession(t, svc)

	payload, err := svc.ProposeMove(context.Background(), sessionID, MoveInput{
		Identity: "Alice", FromProject: "prj-a", ToProject: "prj-b",
	})
	if err != nil {
		t.Fatalf("propose move: %v", err)
	}
	diffs := payload["diffs"].(map[string]reassign.Diff)
	if len(diffs["prj-b"].AddedMembers) != 1 || len(diffs["prj-a"].RemovedMembers) != 1 {
		t.Fatalf("expected a move diff, got %+v", diffs)
	}

	svc.CancelReassignment(sessionID)

	if _, err := svc.ProposeMove(context.Background(), sessionID, MoveInput{
		Identity: "Bob", FromProject: "prj-b", ToProject: "prj-a",
	}); err == nil {
		t.Fatal("expected cancelled session to be gone")
	}
}

func TestReassignmentConflictOnEffectiveMembership(t *testing.T) {
	svc := newTestService(reassignTestStore(false))
	sessionID := startSession(t, svc)

	_, err := svc.ProposeMove(context.Background(), sessionID, MoveInput{
		Identity: "Bob", FromProject: "prj-a", ToProject: "prj-b",
	})
	domainErr := asDomainError(t, err)
	if domainErr.Status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", domainErr.Status)
	}
}

func TestReassignmentUnassignedSource(t *testing.T) {
	svc := newTestService(reassignTestStore(false))
	sessionID := startSession(t, svc)

	// Blank fromProject means a suggested candidate with no persisted home.
	payload, err := svc.ProposeMove(context.Background(), sessionID, MoveInput{
		Identity: "Noor", ToProject: "prj-b",
	})
	if err != nil {
		t.Fatalf("propose move: %v", err)
	}
	diffs := payload["diffs"].(map[string]reassign.Diff)
	if len(diffs) != 1 || len(diffs["prj-b"].AddedMembers) != 1 {
		t.Fatalf("expected a single added member, got %+v", diffs)
	}
}

func TestReassignmentCommitClearsSession(t *testing.T) {
	st := reassignTestStore(false)
	var added []string
	st.addMemberFn = func(_ context.Context, projectID, identity, role string) error {
		added = append(added, projectID+"/"+identity+"/"+role)
		return nil
	}
	svc := newTestService(st)
	sessionID := startSession(t, svc)

	if _, err := svc.ProposeMove(context.Background(), sessionID, MoveInput{
		Identity: "Alice", FromProject: "prj-a", ToProject: "prj-b",
	}); err != nil {
		t.Fatalf("propose move: %v", err)
	}

	payload, err := svc.CommitReassignment(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(payload["failures"].([]map[string]any)) != 0 {
		t.Fatalf("expected clean commit, got %v", payload["failures"])
	}
	if len(added) != 1 || added[0] != "prj-b/Alice/member" {
		t.Fatalf("unexpected membership writes: %v", added)
	}

	if _, err := svc.CommitReassignment(context.Background(), sessionID); err == nil {
		t.Fatal("expected the session to be cleared after commit")
	}
}

func TestReassignmentPartialCommit(t *testing.T) {
	st := reassignTestStore(true)
	var added []string
	st.addMemberFn = func(_ context.Context, projectID, identity, role string) error {
		added = append(added, projectID+"/"+identity)
		return nil
	}
	svc := newTestService(st)
	sessionID := startSession(t, svc)

	if _, err := svc.ProposeMove(context.Background(), sessionID, MoveInput{
		Identity: "Alice", FromProject: "prj-a", ToProject: "prj-b",
	}); err != nil {
		t.Fatalf("propose move: %v", err)
	}

	_, err := svc.CommitReassignment(context.Background(), sessionID)
	domainErr := asDomainError(t, err)
	if domainErr.Code != "PARTIAL_COMMIT" {
		t.Fatalf("expected PARTIAL_COMMIT, got %s", domainErr.Code)
	}
	// The failed removal must not block the addition.
	if len(added) != 1 {
		t.Fatalf("expected the addition to be applied regardless, got %v", added)
	}
	report := domainErr.Details.(map[string]any)
	if len(report["failures"].([]map[string]any)) != 1 {
		t.Fatalf("expected exactly one recorded failure, got %v", report["failures"])
	}
}
