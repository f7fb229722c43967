package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"stageline/api/internal/auth"
	"stageline/api/internal/authpw"
	"stageline/api/internal/config"
	"stageline/api/internal/rbac"
	"stageline/api/internal/scoring"
	"stageline/api/internal/search"
	"stageline/api/internal/stagegate"
	"stageline/api/internal/store"
	"stageline/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	JTI          string
	ExpiresAt    time.Time
}

type CreateProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TeamSize    int    `json:"teamSize"`
}

type CreateStageInput struct {
	Title string `json:"title"`
	Order int    `json:"order"`
}

type CreateTaskInput struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Assignee        string     `json:"assignee"`
	Points          int        `json:"points"`
	Order           int        `json:"order"`
	CanBeReassigned *bool      `json:"canBeReassigned"`
	SoftDeadline    *time.Time `json:"softDeadline"`
	HardDeadline    *time.Time `json:"hardDeadline"`
}

type RoadmapStageInput struct {
	Title string            `json:"title"`
	Tasks []CreateTaskInput `json:"tasks"`
}

type RoadmapInput struct {
	Stages []RoadmapStageInput `json:"stages"`
}

type SuggestInput struct {
	Candidates []string `json:"candidates"`
}

type dataStore interface {
	CreateUser(context.Context, store.User) error
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	InsertProject(context.Context, store.Project) error
	GetProject(context.Context, string) (store.Project, error)
	ListProjects(context.Context) ([]store.Project, error)
	ListMembers(context.Context, string) ([]store.Member, error)
	RoleForIdentity(context.Context, string, string) (string, error)
	AddMember(ctx context.Context, projectID, identity, role string) error
	RemoveMember(ctx context.Context, projectID, identity, role string) error
	InsertStage(context.Context, store.Stage) error
	InsertStages(context.Context, []store.Stage) error
	GetStage(context.Context, string) (store.Stage, error)
	ListStages(context.Context, string) ([]store.Stage, error)
	DeleteStage(context.Context, string) error
	CreateTask(context.Context, store.Task) error
	GetTask(context.Context, string) (store.Task, error)
	ListProjectTasks(context.Context, string) ([]store.Task, error)
	ClaimTask(context.Context, string, string) (bool, error)
	SwapAssignee(context.Context, string, string) (bool, error)
	DropTask(context.Context, string, string) (bool, error)
	SetTaskCompletion(context.Context, string, bool) (store.Task, error)
	DeleteTask(context.Context, string) error
	ListReclaimable(context.Context, string, time.Time) ([]store.Task, error)
	Ping(ctx context.Context) error
}

// refreshSessionStore is the refresh-token backend: Redis when configured,
// Postgres otherwise.
type refreshSessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// pgSessionStore adapts the document store to refreshSessionStore.
type pgSessionStore struct {
	store dataStore
}

func (p pgSessionStore) SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error {
	return p.store.SaveRefreshSession(ctx, tokenHash, user.ID, expiresAt)
}

func (p pgSessionStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	return p.store.LookupRefreshSession(ctx, tokenHash)
}

func (p pgSessionStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	return p.store.RevokeRefreshSession(ctx, tokenHash)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions refreshSessionStore
	accounts *authpw.Service
	scoring  *scoring.Client
	search   *search.Service

	reassignTTL      time.Duration
	reassignMu       sync.Mutex
	reassignSessions map[string]*reassignSession
}

// New wires the service. sessions may be nil, in which case refresh sessions
// live in Postgres. searchSvc and oracle may be nil when not configured.
func New(cfg config.Config, st *store.PostgresStore, sessions refreshSessionStore, searchSvc *search.Service, oracle *scoring.Client) *Service {
	svc := &Service{
		cfg:              cfg,
		store:            st,
		sessions:         sessions,
		accounts:         authpw.NewService(st),
		scoring:          oracle,
		search:           searchSvc,
		reassignTTL:      30 * time.Minute,
		reassignSessions: make(map[string]*reassignSession),
	}
	if svc.sessions == nil {
		svc.sessions = pgSessionStore{store: st}
	}
	return svc
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// --- Identity ---

func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	user, err := s.accounts.SignUp(ctx, authpw.SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		if errors.Is(err, authpw.ErrEmailTaken) {
			return Session{}, conflictError("Email already registered", nil)
		}
		return Session{}, validationError(err.Error())
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.accounts.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   user.ID,
		Name:  user.DisplayName,
		Email: user.Email,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Email:     user.Email,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// roleFor resolves an identity's role inside one project. Identities with no
// membership row are viewers.
func (s *Service) roleFor(ctx context.Context, projectID, identity string) rbac.Role {
	role, err := s.store.RoleForIdentity(ctx, projectID, identity)
	if err != nil {
		return rbac.RoleViewer
	}
	return rbac.Normalize(role)
}

func (s *Service) requireRole(ctx context.Context, projectID, identity string, action rbac.Action) error {
	if !rbac.Can(s.roleFor(ctx, projectID, identity), action) {
		return forbiddenError("Forbidden")
	}
	return nil
}

// --- Projects ---

func (s *Service) CreateProject(ctx context.Context, actor Session, input CreateProjectInput) (map[string]any, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, validationError("name is required")
	}
	if input.TeamSize < 0 {
		return nil, validationError("teamSize must not be negative")
	}

	project := store.Project{
		ID:          util.NewID("prj"),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		TeamSize:    input.TeamSize,
		CreatedBy:   actor.UserName,
	}
	if err := s.store.InsertProject(ctx, project); err != nil {
		return nil, err
	}
	if err := s.store.AddMember(ctx, project.ID, actor.UserName, store.MemberRoleAdmin); err != nil {
		return nil, err
	}
	return s.GetBoard(ctx, project.ID)
}

func (s *Service) ListProjects(ctx context.Context) (map[string]any, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(projects))
	for _, project := range projects {
		items = append(items, projectPayload(project))
	}
	return map[string]any{"projects": items}, nil
}

// GetBoard returns a project with its stages in order, each stage carrying its
// gate state and task pool. Lock flags are recomputed on every read.
func (s *Service) GetBoard(ctx context.Context, projectID string) (map[string]any, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	stages, err := s.store.ListStages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListProjectTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, projectID)
	if err != nil {
		return nil, err
	}

	counts := make([]stagegate.Counts, len(stages))
	for i, stage := range stages {
		counts[i] = stagegate.Counts{TotalTasks: stage.TotalTasks, TasksCompleted: stage.TasksCompleted}
	}
	locked := stagegate.Locked(counts)

	tasksByStage := make(map[string][]map[string]any, len(stages))
	for _, task := range tasks {
		tasksByStage[task.StageID] = append(tasksByStage[task.StageID], taskPayload(task))
	}

	stageItems := make([]map[string]any, 0, len(stages))
	for i, stage := range stages {
		item := stagePayload(stage)
		item["locked"] = locked[i]
		stageTasks := tasksByStage[stage.ID]
		if stageTasks == nil {
			stageTasks = []map[string]any{}
		}
		item["tasks"] = stageTasks
		stageItems = append(stageItems, item)
	}

	memberNames := make([]string, 0, len(members))
	adminNames := make([]string, 0)
	for _, member := range members {
		if member.Role == store.MemberRoleAdmin {
			adminNames = append(adminNames, member.Identity)
			continue
		}
		memberNames = append(memberNames, member.Identity)
	}

	payload := projectPayload(project)
	payload["stages"] = stageItems
	payload["members"] = memberNames
	payload["admins"] = adminNames
	return payload, nil
}

// --- Stages ---

func (s *Service) CreateStage(ctx context.Context, actor Session, projectID string, input CreateStageInput) (map[string]any, error) {
	if err := s.requireRole(ctx, projectID, actor.UserName, rbac.ActionManage); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validationError("title is required")
	}
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	order := input.Order
	if order <= 0 {
		stages, err := s.store.ListStages(ctx, projectID)
		if err != nil {
			return nil, err
		}
		order = len(stages)
	}
	if err := s.store.InsertStage(ctx, store.Stage{
		ID:        util.NewID("stg"),
		ProjectID: projectID,
		Title:     title,
		Order:     order,
	}); err != nil {
		return nil, err
	}
	return s.GetBoard(ctx, projectID)
}

// CreateRoadmap bulk-creates ordered stages with their initial task pools,
// the shape a generated roadmap arrives in. Tasks carrying an assignee are
// created already claimed.
func (s *Service) CreateRoadmap(ctx context.Context, actor Session, projectID string, input RoadmapInput) (map[string]any, error) {
	if err := s.requireRole(ctx, projectID, actor.UserName, rbac.ActionManage); err != nil {
		return nil, err
	}
	if len(input.Stages) == 0 {
		return nil, validationError("stages is required")
	}
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	existing, err := s.store.ListStages(ctx, projectID)
	if err != nil {
		return nil, err
	}

	stages := make([]store.Stage, 0, len(input.Stages))
	for i, stageInput := range input.Stages {
		title := strings.TrimSpace(stageInput.Title)
		if title == "" {
			return nil, validationError("every stage needs a title")
		}
		stages = append(stages, store.Stage{
			ID:        util.NewID("stg"),
			ProjectID: projectID,
			Title:     title,
			Order:     len(existing) + i,
		})
	}
	if err := s.store.InsertStages(ctx, stages); err != nil {
		return nil, err
	}

	for i, stageInput := range input.Stages {
		for j, taskInput := range stageInput.Tasks {
			taskInput.Order = j
			task, err := buildTask(projectID, stages[i].ID, taskInput)
			if err != nil {
				return nil, err
			}
			if err := s.store.CreateTask(ctx, task); err != nil {
				return nil, err
			}
			s.indexTask(task)
		}
	}
	return s.GetBoard(ctx, projectID)
}

func (s *Service) DeleteStage(ctx context.Context, actor Session, projectID, stageID string) (map[string]any, error) {
	if err := s.requireRole(ctx, projectID, actor.UserName, rbac.ActionManage); err != nil {
		return nil, err
	}
	stage, err := s.store.GetStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if stage.ProjectID != projectID {
		return nil, sql.ErrNoRows
	}
	if err := s.store.DeleteStage(ctx, stageID); err != nil {
		return nil, err
	}
	return s.GetBoard(ctx, projectID)
}

// --- Tasks ---

func buildTask(projectID, stageID string, input CreateTaskInput) (store.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return store.Task{}, validationError("title is required")
	}
	points := input.Points
	if points == 0 {
		points = 10
	}
	if points < 0 {
		return store.Task{}, validationError("points must be positive")
	}
	if input.SoftDeadline != nil && input.HardDeadline != nil && input.SoftDeadline.After(*input.HardDeadline) {
		return store.Task{}, validationError("softDeadline must not be after hardDeadline")
	}
	canBeReassigned := true
	if input.CanBeReassigned != nil {
		canBeReassigned = *input.CanBeReassigned
	}

	task := store.Task{
		ID:              util.NewID("tsk"),
		StageID:         stageID,
		ProjectID:       projectID,
		Title:           title,
		Description:     strings.TrimSpace(input.Description),
		Status:          store.TaskAvailable,
		Points:          points,
		CanBeReassigned: canBeReassigned,
		SoftDeadline:    input.SoftDeadline,
		HardDeadline:    input.HardDeadline,
		Order:           input.Order,
	}
	if assignee := strings.TrimSpace(input.Assignee); assignee != "" {
		now := time.Now()
		task.Assignee = assignee
		task.Status = store.TaskAssigned
		task.AssignedAt = &now
	}
	return task, nil
}

func (s *Service) CreateTask(ctx context.Context, actor Session, projectID, stageID string, input CreateTaskInput) (map[string]any, error) {
	if err := s.requireRole(ctx, projectID, actor.UserName, rbac.ActionEdit); err != nil {
		return nil, err
	}
	stage, err := s.store.GetStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if stage.ProjectID != projectID {
		return nil, sql.ErrNoRows
	}

	task, err := buildTask(projectID, stageID, input)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.indexTask(task)
	return taskPayload(task), nil
}

// ClaimTask assigns an available task to the caller. Exactly one of two
// concurrent claimers wins; the loser gets a conflict.
func (s *Service) ClaimTask(ctx context.Context, actor Session, taskID string) (map[string]any, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, task.ProjectID, actor.UserName, rbac.ActionClaim); err != nil {
		return nil, err
	}

	claimed, err := s.store.ClaimTask(ctx, taskID, actor.UserName)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, conflictError("Task is no longer available", map[string]any{"taskId": taskID})
	}
	task, err = s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	s.indexTask(task)
	return taskPayload(task), nil
}

// SwapTask hands an assigned task to a different member without returning it
// to the pool.
func (s *Service) SwapTask(ctx context.Context, actor Session, taskID, newAssignee string) (map[string]any, error) {
	newAssignee = strings.TrimSpace(newAssignee)
	if newAssignee == "" {
		return nil, validationError("assignee is required")
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	action := rbac.ActionManage
	if task.Assignee == actor.UserName {
		action = rbac.ActionClaim
	}
	if err := s.requireRole(ctx, task.ProjectID, actor.UserName, action); err != nil {
		return nil, err
	}

	swapped, err := s.store.SwapAssignee(ctx, taskID, newAssignee)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, conflictError("Task is not currently assigned", map[string]any{"taskId": taskID})
	}
	task, err = s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	s.indexTask(task)
	return taskPayload(task), nil
}

// DropTask returns the caller's assigned task to the pool.
func (s *Service) DropTask(ctx context.Context, actor Session, taskID string) (map[string]any, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, task.ProjectID, actor.UserName, rbac.ActionClaim); err != nil {
		return nil, err
	}
	if task.Status == store.TaskAssigned && task.Assignee != actor.UserName {
		return nil, forbiddenError("Only the assignee can drop a task")
	}

	dropped, err := s.store.DropTask(ctx, taskID, actor.UserName)
	if err != nil {
		return nil, err
	}
	if !dropped {
		return nil, conflictError("Task is not currently assigned to you", map[string]any{"taskId": taskID})
	}
	task, err = s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	s.indexTask(task)
	return taskPayload(task), nil
}

// SetCompletion toggles a task's completed state and adjusts the parent
// stage's counter in the same transaction. Redundant toggles are no-ops.
func (s *Service) SetCompletion(ctx context.Context, actor Session, taskID string, completed bool) (map[string]any, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, task.ProjectID, actor.UserName, rbac.ActionClaim); err != nil {
		return nil, err
	}

	task, err = s.store.SetTaskCompletion(ctx, taskID, completed)
	if err != nil {
		if errors.Is(err, store.ErrTaskUnclaimed) {
			return nil, conflictError("Task must be claimed before completion", map[string]any{"taskId": taskID})
		}
		return nil, err
	}
	s.indexTask(task)
	return taskPayload(task), nil
}

func (s *Service) DeleteTask(ctx context.Context, actor Session, taskID string) error {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.requireRole(ctx, task.ProjectID, actor.UserName, rbac.ActionEdit); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteTask(taskID)
	}
	return nil
}

// ListReclaimable surfaces the bounty board: tasks past their soft deadline,
// not completed, and flagged reassignable. Computed on demand, never stored.
func (s *Service) ListReclaimable(ctx context.Context, projectID string) (map[string]any, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListReclaimable(ctx, projectID, time.Now())
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, taskPayload(task))
	}
	return map[string]any{"tasks": items}, nil
}

func (s *Service) SearchTasks(ctx context.Context, projectID, query string, limit int) (map[string]any, error) {
	if s.search == nil {
		return map[string]any{"results": []map[string]any{}, "total": 0, "query": query}, nil
	}
	resp := s.search.Search(ctx, search.Query{Text: query, ProjectID: projectID, Limit: limit})
	return map[string]any{"results": resp.Results, "total": resp.Total, "query": resp.Query}, nil
}

// Suggest asks the scoring oracle to rate a candidate grouping for a project.
// A nil score means the oracle declined to produce a number; the rationale is
// still worth surfacing.
func (s *Service) Suggest(ctx context.Context, actor Session, projectID string, input SuggestInput) (map[string]any, error) {
	if s.scoring == nil {
		return nil, domainError(http.StatusServiceUnavailable, "SUGGESTIONS_UNAVAILABLE", "Scoring service not configured", nil)
	}
	if err := s.requireRole(ctx, projectID, actor.UserName, rbac.ActionSuggest); err != nil {
		return nil, err
	}
	if len(input.Candidates) == 0 {
		return nil, validationError("candidates is required")
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	result, err := s.scoring.Score(ctx, scoring.Request{
		ProjectName:    project.Name,
		ProjectContext: project.Description,
		Candidates:     input.Candidates,
	})
	if err != nil {
		return nil, domainError(http.StatusBadGateway, "SCORING_ERROR", "Scoring service failed", nil)
	}
	return map[string]any{
		"projectId":  projectID,
		"candidates": input.Candidates,
		"score":      result.Score,
		"rationale":  result.Rationale,
	}, nil
}

func (s *Service) indexTask(task store.Task) {
	if s.search == nil {
		return
	}
	s.search.IndexTask(search.TaskRecord{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		ProjectID:   task.ProjectID,
		StageID:     task.StageID,
		Status:      task.Status,
		Assignee:    task.Assignee,
	})
}

// --- Payloads ---

func projectPayload(project store.Project) map[string]any {
	return map[string]any{
		"id":          project.ID,
		"name":        project.Name,
		"description": project.Description,
		"teamSize":    project.TeamSize,
		"createdBy":   project.CreatedBy,
		"createdAt":   project.CreatedAt,
		"updatedAt":   project.UpdatedAt,
	}
}

func stagePayload(stage store.Stage) map[string]any {
	return map[string]any{
		"id":             stage.ID,
		"projectId":      stage.ProjectID,
		"title":          stage.Title,
		"order":          stage.Order,
		"totalTasks":     stage.TotalTasks,
		"tasksCompleted": stage.TasksCompleted,
	}
}

func taskPayload(task store.Task) map[string]any {
	return map[string]any{
		"id":                   task.ID,
		"stageId":              task.StageID,
		"projectId":            task.ProjectID,
		"title":                task.Title,
		"description":          task.Description,
		"assignee":             task.Assignee,
		"status":               task.Status,
		"points":               task.Points,
		"completionPercentage": task.CompletionPercentage,
		"canBeReassigned":      task.CanBeReassigned,
		"softDeadline":         task.SoftDeadline,
		"hardDeadline":         task.HardDeadline,
		"order":                task.Order,
		"isCompleted":          task.IsCompleted,
		"assignedAt":           task.AssignedAt,
	}
}
