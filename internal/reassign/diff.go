// Package reassign holds the transient team-reassignment ledger and the
// commit engine that applies it to persisted membership.
package reassign

import (
	"errors"
	"fmt"
	"sort"
)

// Unassigned is the sentinel source for candidates that exist only as
// suggestions and are not persisted in any project.
const Unassigned = "unassigned"

var (
	ErrAlreadyInProject = errors.New("identity is already in the target project")
	ErrNotInProject     = errors.New("identity is not in the source project")
	ErrUnknownProject   = errors.New("unknown project")
	ErrTeamFull         = errors.New("target project is at capacity")
)

// Roster is the persisted membership snapshot a ledger session starts from.
type Roster struct {
	ProjectID string   `json:"projectId"`
	TeamSize  int      `json:"teamSize"`
	Members   []string `json:"members"`
	Admins    []string `json:"admins"`
}

// Diff is the pending, uncommitted membership change set for one project. An
// identity never appears in both the added and removed list of the same
// project; proposing the opposite move reconciles to a no-op instead.
type Diff struct {
	AddedMembers   []string `json:"addedMembers"`
	RemovedMembers []string `json:"removedMembers"`
	AddedAdmins    []string `json:"addedAdmins"`
	RemovedAdmins  []string `json:"removedAdmins"`
}

// Empty reports whether the diff carries no pending change.
func (d Diff) Empty() bool {
	return len(d.AddedMembers) == 0 && len(d.RemovedMembers) == 0 &&
		len(d.AddedAdmins) == 0 && len(d.RemovedAdmins) == 0
}

// Ledger accumulates proposed membership moves across projects before any of
// them are persisted. It is a plain value object: no I/O, fully serializable,
// discardable at any time.
type Ledger struct {
	rosters map[string]Roster
	diffs   map[string]*Diff
}

func NewLedger(rosters []Roster) *Ledger {
	byID := make(map[string]Roster, len(rosters))
	for _, roster := range rosters {
		byID[roster.ProjectID] = roster
	}
	return &Ledger{
		rosters: byID,
		diffs:   make(map[string]*Diff),
	}
}

func (l *Ledger) diff(projectID string) *Diff {
	if d, ok := l.diffs[projectID]; ok {
		return d
	}
	d := &Diff{}
	l.diffs[projectID] = d
	return d
}

// EffectiveMembers returns the project's member list as it would look after
// commit: persisted members minus pending removals plus pending additions.
func (l *Ledger) EffectiveMembers(projectID string) []string {
	roster := l.rosters[projectID]
	d := l.diffs[projectID]
	if d == nil {
		d = &Diff{}
	}
	return applyDiff(roster.Members, d.AddedMembers, d.RemovedMembers)
}

// EffectiveAdmins is EffectiveMembers for the admin list.
func (l *Ledger) EffectiveAdmins(projectID string) []string {
	roster := l.rosters[projectID]
	d := l.diffs[projectID]
	if d == nil {
		d = &Diff{}
	}
	return applyDiff(roster.Admins, d.AddedAdmins, d.RemovedAdmins)
}

func applyDiff(persisted, added, removed []string) []string {
	result := make([]string, 0, len(persisted)+len(added))
	for _, identity := range persisted {
		if !contains(removed, identity) {
			result = append(result, identity)
		}
	}
	for _, identity := range added {
		if !contains(result, identity) {
			result = append(result, identity)
		}
	}
	return result
}

// ProposeMove records moving identity from one project (or the unassigned
// pool) into another. Admins are copied rather than moved: an admin may
// belong to several projects at once.
func (l *Ledger) ProposeMove(identity, fromProject, toProject string) error {
	if _, ok := l.rosters[toProject]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProject, toProject)
	}
	if fromProject != Unassigned {
		if _, ok := l.rosters[fromProject]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownProject, fromProject)
		}
	}

	if contains(l.EffectiveMembers(toProject), identity) || contains(l.EffectiveAdmins(toProject), identity) {
		return fmt.Errorf("%w: %s in %s", ErrAlreadyInProject, identity, toProject)
	}

	target := l.rosters[toProject]
	if target.TeamSize > 0 {
		headcount := len(l.EffectiveMembers(toProject)) + len(l.EffectiveAdmins(toProject))
		if headcount+1 > target.TeamSize {
			return fmt.Errorf("%w: %s holds %d of %d", ErrTeamFull, toProject, headcount, target.TeamSize)
		}
	}

	to := l.diff(toProject)

	if fromProject == Unassigned {
		// Candidate only ever existed as a suggestion; nothing to remove.
		addReconciled(&to.AddedMembers, &to.RemovedMembers, identity)
		return nil
	}

	if contains(l.EffectiveAdmins(fromProject), identity) {
		// Copy, not move: the source keeps its admin.
		addReconciled(&to.AddedAdmins, &to.RemovedAdmins, identity)
		return nil
	}

	if !contains(l.EffectiveMembers(fromProject), identity) {
		return fmt.Errorf("%w: %s in %s", ErrNotInProject, identity, fromProject)
	}

	from := l.diff(fromProject)
	removeReconciled(&from.RemovedMembers, &from.AddedMembers, identity)
	addReconciled(&to.AddedMembers, &to.RemovedMembers, identity)
	return nil
}

// ProposeRemove records dropping identity from a project entirely.
func (l *Ledger) ProposeRemove(identity, fromProject string) error {
	if _, ok := l.rosters[fromProject]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProject, fromProject)
	}
	d := l.diff(fromProject)
	switch {
	case contains(l.EffectiveAdmins(fromProject), identity):
		removeReconciled(&d.RemovedAdmins, &d.AddedAdmins, identity)
	case contains(l.EffectiveMembers(fromProject), identity):
		removeReconciled(&d.RemovedMembers, &d.AddedMembers, identity)
	default:
		return fmt.Errorf("%w: %s in %s", ErrNotInProject, identity, fromProject)
	}
	return nil
}

// addReconciled records identity as added, first cancelling any pending
// removal of the same identity so the two lists stay disjoint.
func addReconciled(added, removed *[]string, identity string) {
	if contains(*removed, identity) {
		*removed = without(*removed, identity)
		return
	}
	if !contains(*added, identity) {
		*added = append(*added, identity)
	}
}

// removeReconciled records identity as removed, first cancelling any pending
// addition of the same identity.
func removeReconciled(removed, added *[]string, identity string) {
	if contains(*added, identity) {
		*added = without(*added, identity)
		return
	}
	if !contains(*removed, identity) {
		*removed = append(*removed, identity)
	}
}

// Diffs returns a copy of every non-empty project diff.
func (l *Ledger) Diffs() map[string]Diff {
	result := make(map[string]Diff)
	for projectID, d := range l.diffs {
		if d.Empty() {
			continue
		}
		result[projectID] = Diff{
			AddedMembers:   append([]string(nil), d.AddedMembers...),
			RemovedMembers: append([]string(nil), d.RemovedMembers...),
			AddedAdmins:    append([]string(nil), d.AddedAdmins...),
			RemovedAdmins:  append([]string(nil), d.RemovedAdmins...),
		}
	}
	return result
}

// Empty reports whether no project has pending changes.
func (l *Ledger) Empty() bool {
	for _, d := range l.diffs {
		if !d.Empty() {
			return false
		}
	}
	return true
}

// CancelAll discards every pending diff. Safe at any time; nothing has been
// persisted yet.
func (l *Ledger) CancelAll() {
	l.diffs = make(map[string]*Diff)
}

// ProjectIDs lists every project in the ledger's snapshot, ordered.
func (l *Ledger) ProjectIDs() []string {
	ids := make([]string, 0, len(l.rosters))
	for id := range l.rosters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func contains(list []string, identity string) bool {
	for _, item := range list {
		if item == identity {
			return true
		}
	}
	return false
}

func without(list []string, identity string) []string {
	result := make([]string, 0, len(list))
	for _, item := range list {
		if item != identity {
			result = append(result, item)
		}
	}
	return result
}
