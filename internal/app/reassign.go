package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"stageline/api/internal/reassign"
	"stageline/api/internal/store"
	"stageline/api/internal/util"
)

type MoveInput struct {
	Identity    string `json:"identity"`
	FromProject string `json:"fromProject"`
	ToProject   string `json:"toProject"`
}

type RemoveInput struct {
	Identity    string `json:"identity"`
	FromProject string `json:"fromProject"`
}

// reassignSession is one open staffing-review session. The ledger inside is
// transient: it is never persisted and dies with the session.
type reassignSession struct {
	actor     string
	ledger    *reassign.Ledger
	expiresAt time.Time
}

// StartReassignment snapshots every project's roster into a new ledger
// session and returns its handle.
func (s *Service) StartReassignment(ctx context.Context, actor Session) (map[string]any, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	rosters := make([]reassign.Roster, 0, len(projects))
	for _, project := range projects {
		members, err := s.store.ListMembers(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		roster := reassign.Roster{ProjectID: project.ID, TeamSize: project.TeamSize}
		for _, member := range members {
			if member.Role == store.MemberRoleAdmin {
				roster.Admins = append(roster.Admins, member.Identity)
				continue
			}
			roster.Members = append(roster.Members, member.Identity)
		}
		rosters = append(rosters, roster)
	}

	sessionID := util.ShortID("rsn")
	s.reassignMu.Lock()
	s.reassignSessions[sessionID] = &reassignSession{
		actor:     actor.UserName,
		ledger:    reassign.NewLedger(rosters),
		expiresAt: time.Now().Add(s.reassignTTL),
	}
	s.reassignMu.Unlock()

	return map[string]any{
		"sessionId": sessionID,
		"rosters":   rosters,
		"diffs":     map[string]reassign.Diff{},
	}, nil
}

// lookupReassignSession must be called with reassignMu held. Expired sessions
// are pruned on every lookup.
func (s *Service) lookupReassignSession(sessionID string) (*reassignSession, bool) {
	now := time.Now()
	for key, record := range s.reassignSessions {
		if now.After(record.expiresAt) {
			delete(s.reassignSessions, key)
		}
	}
	record, ok := s.reassignSessions[sessionID]
	return record, ok
}

// ProposeMove records a pending move in the session ledger. Nothing is
// persisted until commit.
func (s *Service) ProposeMove(ctx context.Context, sessionID string, input MoveInput) (map[string]any, error) {
	if input.Identity == "" {
		return nil, validationError("identity is required")
	}
	if input.ToProject == "" {
		return nil, validationError("toProject is required")
	}
	from := input.FromProject
	if from == "" {
		from = reassign.Unassigned
	}

	s.reassignMu.Lock()
	defer s.reassignMu.Unlock()
	record, ok := s.lookupReassignSession(sessionID)
	if !ok {
		return nil, notFoundError("Reassignment session not found or expired")
	}
	if err := record.ledger.ProposeMove(input.Identity, from, input.ToProject); err != nil {
		return nil, mapLedgerError(err)
	}
	return ledgerPayload(sessionID, record.ledger), nil
}

// ProposeRemove records dropping an identity out of a project entirely.
func (s *Service) ProposeRemove(ctx context.Context, sessionID string, input RemoveInput) (map[string]any, error) {
	if input.Identity == "" {
		return nil, validationError("identity is required")
	}
	if input.FromProject == "" {
		return nil, validationError("fromProject is required")
	}

	s.reassignMu.Lock()
	defer s.reassignMu.Unlock()
	record, ok := s.lookupReassignSession(sessionID)
	if !ok {
		return nil, notFoundError("Reassignment session not found or expired")
	}
	if err := record.ledger.ProposeRemove(input.Identity, input.FromProject); err != nil {
		return nil, mapLedgerError(err)
	}
	return ledgerPayload(sessionID, record.ledger), nil
}

// CancelReassignment discards every pending change and the session itself.
// Always safe: nothing was persisted.
func (s *Service) CancelReassignment(sessionID string) map[string]any {
	s.reassignMu.Lock()
	defer s.reassignMu.Unlock()
	if record, ok := s.lookupReassignSession(sessionID); ok {
		record.ledger.CancelAll()
		delete(s.reassignSessions, sessionID)
	}
	return map[string]any{"ok": true}
}

// CommitReassignment applies the session's pending diffs best-effort and
// closes the session. When some mutations fail the applied ones stay applied;
// the report carries both lists.
func (s *Service) CommitReassignment(ctx context.Context, sessionID string) (map[string]any, error) {
	s.reassignMu.Lock()
	record, ok := s.lookupReassignSession(sessionID)
	if !ok {
		s.reassignMu.Unlock()
		return nil, notFoundError("Reassignment session not found or expired")
	}
	diffs := record.ledger.Diffs()
	delete(s.reassignSessions, sessionID)
	s.reassignMu.Unlock()

	engine := reassign.NewEngine(s.store)
	report, err := engine.Commit(ctx, diffs)
	if err != nil {
		var partial *reassign.PartialCommitError
		if errors.As(err, &partial) {
			return nil, domainError(http.StatusConflict, "PARTIAL_COMMIT",
				"Some membership changes could not be applied", reportPayload(report))
		}
		return nil, err
	}
	return reportPayload(report), nil
}

func ledgerPayload(sessionID string, ledger *reassign.Ledger) map[string]any {
	effective := make(map[string]any, len(ledger.ProjectIDs()))
	for _, projectID := range ledger.ProjectIDs() {
		effective[projectID] = map[string]any{
			"members": ledger.EffectiveMembers(projectID),
			"admins":  ledger.EffectiveAdmins(projectID),
		}
	}
	return map[string]any{
		"sessionId": sessionID,
		"diffs":     ledger.Diffs(),
		"effective": effective,
	}
}

func reportPayload(report reassign.Report) map[string]any {
	failures := make([]map[string]any, 0, len(report.Failures))
	for _, failure := range report.Failures {
		failures = append(failures, map[string]any{
			"projectId": failure.ProjectID,
			"identity":  failure.Identity,
			"role":      failure.Role,
			"op":        failure.Op,
			"error":     failure.Err.Error(),
		})
	}
	return map[string]any{
		"applied":  report.Applied,
		"failures": failures,
	}
}

func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, reassign.ErrAlreadyInProject):
		return conflictError("Identity is already in the target project", nil)
	case errors.Is(err, reassign.ErrTeamFull):
		return conflictError("Target project is at capacity", nil)
	case errors.Is(err, reassign.ErrNotInProject):
		return validationError("identity is not in the source project")
	case errors.Is(err, reassign.ErrUnknownProject):
		return notFoundError("Unknown project")
	default:
		return err
	}
}
