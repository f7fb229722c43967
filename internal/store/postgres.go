package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrTaskUnclaimed is returned when a completion toggle targets a task that
// nobody has claimed. Completion moves between assigned and completed only.
var ErrTaskUnclaimed = errors.New("task is not assigned")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- users & sessions ----

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at
		FROM users WHERE email=$1
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at
		FROM users WHERE id=$1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.display_name, u.email
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.DisplayName, &user.Email)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// ---- projects & membership ----

func (s *PostgresStore) InsertProject(ctx context.Context, project Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, team_size, created_by)
		VALUES ($1, $2, $3, $4, $5)
	`, project.ID, project.Name, project.Description, project.TeamSize, project.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (Project, error) {
	var item Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, team_size, created_by, created_at, updated_at
		FROM projects WHERE id=$1
	`, projectID).Scan(&item.ID, &item.Name, &item.Description, &item.TeamSize, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Project{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, team_size, created_by, created_at, updated_at
		FROM projects
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]Project, 0)
	for rows.Next() {
		var item Project
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.TeamSize, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListMembers(ctx context.Context, projectID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, identity, role, added_at
		FROM project_members
		WHERE project_id=$1
		ORDER BY role ASC, identity ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	items := make([]Member, 0)
	for rows.Next() {
		var item Member
		if err := rows.Scan(&item.ProjectID, &item.Identity, &item.Role, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return items, nil
}

// RoleForIdentity returns the identity's role within the project, preferring
// admin when the identity somehow holds both rows.
func (s *PostgresStore) RoleForIdentity(ctx context.Context, projectID, identity string) (string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role FROM project_members WHERE project_id=$1 AND identity=$2
	`, projectID, identity)
	if err != nil {
		return "", fmt.Errorf("lookup member role: %w", err)
	}
	defer rows.Close()

	role := ""
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return "", fmt.Errorf("scan member role: %w", err)
		}
		if r == MemberRoleAdmin || role == "" {
			role = r
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate member roles: %w", err)
	}
	return role, nil
}

// AddMember inserts a membership row. Re-adding an existing row is a no-op so
// the commit engine can retry additions safely.
func (s *PostgresStore) AddMember(ctx context.Context, projectID, identity, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_members (project_id, identity, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, identity, role) DO NOTHING
	`, projectID, identity, role)
	if err != nil {
		return fmt.Errorf("add %s %s to %s: %w", role, identity, projectID, err)
	}
	return nil
}

func (s *PostgresStore) RemoveMember(ctx context.Context, projectID, identity, role string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM project_members WHERE project_id=$1 AND identity=$2 AND role=$3
	`, projectID, identity, role)
	if err != nil {
		return fmt.Errorf("remove %s %s from %s: %w", role, identity, projectID, err)
	}
	return nil
}

// ---- stages ----

func (s *PostgresStore) InsertStage(ctx context.Context, stage Stage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stages (id, project_id, title, stage_order, total_tasks, tasks_completed)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, stage.ID, stage.ProjectID, stage.Title, stage.Order, stage.TotalTasks, stage.TasksCompleted)
	if err != nil {
		return fmt.Errorf("insert stage: %w", err)
	}
	return nil
}

// InsertStages writes a generated roadmap as one atomic group.
func (s *PostgresStore) InsertStages(ctx context.Context, stages []Stage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert stages: %w", err)
	}
	for _, stage := range stages {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stages (id, project_id, title, stage_order, total_tasks, tasks_completed)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, stage.ID, stage.ProjectID, stage.Title, stage.Order, stage.TotalTasks, stage.TasksCompleted); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert stage %s: %w", stage.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert stages: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetStage(ctx context.Context, stageID string) (Stage, error) {
	var item Stage
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, stage_order, total_tasks, tasks_completed, created_at
		FROM stages WHERE id=$1
	`, stageID).Scan(&item.ID, &item.ProjectID, &item.Title, &item.Order, &item.TotalTasks, &item.TasksCompleted, &item.CreatedAt)
	if err != nil {
		return Stage{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListStages(ctx context.Context, projectID string) ([]Stage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, title, stage_order, total_tasks, tasks_completed, created_at
		FROM stages
		WHERE project_id=$1
		ORDER BY stage_order ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	items := make([]Stage, 0)
	for rows.Next() {
		var item Stage
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.Title, &item.Order, &item.TotalTasks, &item.TasksCompleted, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}
	return items, nil
}

// DeleteStage removes a stage and every task under it in one transaction.
func (s *PostgresStore) DeleteStage(ctx context.Context, stageID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete stage: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE stage_id=$1`, stageID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete stage tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stages WHERE id=$1`, stageID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete stage: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete stage: %w", err)
	}
	return nil
}

// ---- tasks ----

// CreateTask inserts the task and bumps the stage's total_tasks counter in
// the same transaction, so the counter can never drift from the task set.
func (s *PostgresStore) CreateTask(ctx context.Context, task Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create task: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (id, stage_id, project_id, title, description, assignee, status, points,
			completion_percentage, can_be_reassigned, soft_deadline, hard_deadline, task_order,
			is_completed, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, task.ID, task.StageID, task.ProjectID, task.Title, task.Description, task.Assignee, task.Status,
		task.Points, task.CompletionPercentage, task.CanBeReassigned, task.SoftDeadline, task.HardDeadline,
		task.Order, task.IsCompleted, task.AssignedAt); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert task: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE stages SET total_tasks = total_tasks + 1 WHERE id=$1
	`, task.StageID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("bump stage total: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create task: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTask(ctx context.Context, taskID string) (Task, error) {
	var item Task
	err := s.db.QueryRowContext(ctx, `
		SELECT id, stage_id, project_id, title, description, assignee, status, points,
			completion_percentage, can_be_reassigned, soft_deadline, hard_deadline, task_order,
			is_completed, assigned_at, created_at
		FROM tasks WHERE id=$1
	`, taskID).Scan(&item.ID, &item.StageID, &item.ProjectID, &item.Title, &item.Description,
		&item.Assignee, &item.Status, &item.Points, &item.CompletionPercentage, &item.CanBeReassigned,
		&item.SoftDeadline, &item.HardDeadline, &item.Order, &item.IsCompleted, &item.AssignedAt, &item.CreatedAt)
	if err != nil {
		return Task{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListTasksByStage(ctx context.Context, stageID string) ([]Task, error) {
	return s.listTasks(ctx, `WHERE stage_id=$1 ORDER BY task_order ASC, created_at ASC`, stageID)
}

func (s *PostgresStore) ListProjectTasks(ctx context.Context, projectID string) ([]Task, error) {
	return s.listTasks(ctx, `WHERE project_id=$1 ORDER BY task_order ASC, created_at ASC`, projectID)
}

func (s *PostgresStore) listTasks(ctx context.Context, clause string, args ...any) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stage_id, project_id, title, description, assignee, status, points,
			completion_percentage, can_be_reassigned, soft_deadline, hard_deadline, task_order,
			is_completed, assigned_at, created_at
		FROM tasks `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		var item Task
		if err := rows.Scan(&item.ID, &item.StageID, &item.ProjectID, &item.Title, &item.Description,
			&item.Assignee, &item.Status, &item.Points, &item.CompletionPercentage, &item.CanBeReassigned,
			&item.SoftDeadline, &item.HardDeadline, &item.Order, &item.IsCompleted, &item.AssignedAt, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return items, nil
}

// ClaimTask assigns an available task to the actor. The status guard in the
// WHERE clause means exactly one of two concurrent claimers can win; the
// loser sees false and must surface the conflict.
func (s *PostgresStore) ClaimTask(ctx context.Context, taskID, identity string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET assignee=$2, status=$3, assigned_at=NOW()
		WHERE id=$1 AND status=$4
	`, taskID, identity, TaskAssigned, TaskAvailable)
	if err != nil {
		return false, fmt.Errorf("claim task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim task rows: %w", err)
	}
	return affected > 0, nil
}

// SwapAssignee replaces the assignee of an assigned task without touching
// status. Reports false when the task is not currently assigned.
func (s *PostgresStore) SwapAssignee(ctx context.Context, taskID, identity string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET assignee=$2, assigned_at=NOW() WHERE id=$1 AND status=$3
	`, taskID, identity, TaskAssigned)
	if err != nil {
		return false, fmt.Errorf("swap assignee: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap assignee rows: %w", err)
	}
	return affected > 0, nil
}

// DropTask releases a claimed task back to the pool, but only for the actor
// that currently holds it.
func (s *PostgresStore) DropTask(ctx context.Context, taskID, identity string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET assignee='', status=$3, assigned_at=NULL
		WHERE id=$1 AND assignee=$2 AND status=$4
	`, taskID, identity, TaskAvailable, TaskAssigned)
	if err != nil {
		return false, fmt.Errorf("drop task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("drop task rows: %w", err)
	}
	return affected > 0, nil
}

// SetTaskCompletion toggles the task's completed state and adjusts the stage's
// tasks_completed counter in the same transaction. Redundant toggles are
// no-ops and counter adjustments are clamped, so the counter never goes
// negative and never exceeds total_tasks. Completing an unclaimed task fails
// with ErrTaskUnclaimed.
func (s *PostgresStore) SetTaskCompletion(ctx context.Context, taskID string, completed bool) (Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Task{}, fmt.Errorf("begin set completion: %w", err)
	}

	var current Task
	err = tx.QueryRowContext(ctx, `
		SELECT id, stage_id, project_id, assignee, status, is_completed
		FROM tasks WHERE id=$1
		FOR UPDATE
	`, taskID).Scan(&current.ID, &current.StageID, &current.ProjectID, &current.Assignee, &current.Status, &current.IsCompleted)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, sql.ErrNoRows
		}
		return Task{}, fmt.Errorf("lock task: %w", err)
	}

	if current.IsCompleted == completed {
		_ = tx.Rollback()
		return s.GetTask(ctx, taskID)
	}
	if completed && current.Status == TaskAvailable {
		_ = tx.Rollback()
		return Task{}, ErrTaskUnclaimed
	}

	status := TaskAssigned
	percentage := 0
	counter := `GREATEST(tasks_completed - 1, 0)`
	if completed {
		status = TaskCompleted
		percentage = 100
		counter = `LEAST(tasks_completed + 1, total_tasks)`
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks SET status=$2, is_completed=$3, completion_percentage=$4 WHERE id=$1
	`, taskID, status, completed, percentage); err != nil {
		_ = tx.Rollback()
		return Task{}, fmt.Errorf("update task completion: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE stages SET tasks_completed = `+counter+` WHERE id=$1
	`, current.StageID); err != nil {
		_ = tx.Rollback()
		return Task{}, fmt.Errorf("adjust stage completed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Task{}, fmt.Errorf("commit set completion: %w", err)
	}
	return s.GetTask(ctx, taskID)
}

// DeleteTask removes the task and decrements the stage counters in the same
// transaction; tasks_completed is only decremented when the deleted task was
// complete, and both counters are clamped at zero.
func (s *PostgresStore) DeleteTask(ctx context.Context, taskID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete task: %w", err)
	}

	var stageID string
	var wasCompleted bool
	err = tx.QueryRowContext(ctx, `
		SELECT stage_id, is_completed FROM tasks WHERE id=$1 FOR UPDATE
	`, taskID).Scan(&stageID, &wasCompleted)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("lock task: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1`, taskID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete task: %w", err)
	}

	completedAdjust := ""
	if wasCompleted {
		completedAdjust = `, tasks_completed = GREATEST(tasks_completed - 1, 0)`
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE stages SET total_tasks = GREATEST(total_tasks - 1, 0)`+completedAdjust+` WHERE id=$1
	`, stageID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("adjust stage totals: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete task: %w", err)
	}
	return nil
}

// ListReclaimable returns the project's overdue, still-incomplete, reassignable
// tasks. Derived on demand, never cached.
func (s *PostgresStore) ListReclaimable(ctx context.Context, projectID string, now time.Time) ([]Task, error) {
	return s.listTasks(ctx, `
		WHERE project_id=$1
		  AND can_be_reassigned
		  AND status <> $2
		  AND soft_deadline IS NOT NULL
		  AND soft_deadline < $3
		ORDER BY soft_deadline ASC`, projectID, TaskCompleted, now)
}

// SearchTasks is the Postgres fallback for task search when Meilisearch is
// not available.
func (s *PostgresStore) SearchTasks(ctx context.Context, projectID, query string, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 25
	}
	return s.listTasks(ctx, `
		WHERE project_id=$1
		  AND (title ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
		ORDER BY task_order ASC
		LIMIT $3`, projectID, query, limit)
}
