package reassign

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
)

// MembershipStore is the slice of the document store the commit engine
// touches. Every call is an independent remote mutation.
type MembershipStore interface {
	AddMember(ctx context.Context, projectID, identity, role string) error
	RemoveMember(ctx context.Context, projectID, identity, role string) error
}

const (
	RoleMember = "member"
	RoleAdmin  = "admin"

	OpAdd    = "add"
	OpRemove = "remove"
)

// Mutation is one applied membership change.
type Mutation struct {
	ProjectID string `json:"projectId"`
	Identity  string `json:"identity"`
	Role      string `json:"role"`
	Op        string `json:"op"`
}

// MutationFailure is one membership change that could not be applied.
type MutationFailure struct {
	Mutation
	Err error `json:"-"`
}

// Report lists per-mutation outcomes so callers can render partial success
// accurately instead of collapsing it into a boolean.
type Report struct {
	Applied  []Mutation        `json:"applied"`
	Failures []MutationFailure `json:"failures"`
}

// PartialCommitError reports that one or more mutations in a best-effort
// commit failed after the engine attempted every remaining one.
type PartialCommitError struct {
	Failures []MutationFailure
}

func (e *PartialCommitError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s %s %s/%s: %v", failure.Op, failure.Role, failure.ProjectID, failure.Identity, failure.Err))
	}
	return fmt.Sprintf("%d membership mutations failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Engine applies a set of project diffs against the membership store.
type Engine struct {
	store MembershipStore
}

func NewEngine(store MembershipStore) *Engine {
	return &Engine{store: store}
}

// Commit applies every non-empty diff. Per project, removals are attempted
// before additions; each identity is its own store call. The pass is
// deliberately best-effort: a failed mutation is logged and recorded, and the
// engine carries on with the rest rather than rolling anything back. When any
// mutation failed the returned error is a *PartialCommitError alongside the
// full report.
func (e *Engine) Commit(ctx context.Context, diffs map[string]Diff) (Report, error) {
	var report Report

	projectIDs := make([]string, 0, len(diffs))
	for projectID := range diffs {
		projectIDs = append(projectIDs, projectID)
	}
	sort.Strings(projectIDs)

	for _, projectID := range projectIDs {
		diff := diffs[projectID]
		if diff.Empty() {
			continue
		}

		steps := []struct {
			identities []string
			role       string
			op         string
		}{
			{diff.RemovedMembers, RoleMember, OpRemove},
			{diff.RemovedAdmins, RoleAdmin, OpRemove},
			{diff.AddedMembers, RoleMember, OpAdd},
			{diff.AddedAdmins, RoleAdmin, OpAdd},
		}

		for _, step := range steps {
			for _, identity := range step.identities {
				mutation := Mutation{ProjectID: projectID, Identity: identity, Role: step.role, Op: step.op}
				var err error
				if step.op == OpRemove {
					err = e.store.RemoveMember(ctx, projectID, identity, step.role)
				} else {
					err = e.store.AddMember(ctx, projectID, identity, step.role)
				}
				if err != nil {
					log.Printf("reassign: %s %s %s on %s failed: %v", step.op, step.role, identity, projectID, err)
					report.Failures = append(report.Failures, MutationFailure{Mutation: mutation, Err: err})
					continue
				}
				report.Applied = append(report.Applied, mutation)
			}
		}
	}

	if len(report.Failures) > 0 {
		return report, &PartialCommitError{Failures: report.Failures}
	}
	return report, nil
}
