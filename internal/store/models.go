package store

import "time"

const (
	TaskAvailable = "available"
	TaskAssigned  = "assigned"
	TaskCompleted = "completed"
)

const (
	MemberRoleMember = "member"
	MemberRoleAdmin  = "admin"
)

type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type Project struct {
	ID          string
	Name        string
	Description string
	TeamSize    int
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Member is one identity's row in a project's membership list. An identity may
// hold the admin role in one project and the member role in another.
type Member struct {
	ProjectID string
	Identity  string
	Role      string
	AddedAt   time.Time
}

type Stage struct {
	ID             string
	ProjectID      string
	Title          string
	Order          int
	TotalTasks     int
	TasksCompleted int
	CreatedAt      time.Time
}

type Task struct {
	ID                   string
	StageID              string
	ProjectID            string
	Title                string
	Description          string
	Assignee             string
	Status               string
	Points               int
	CompletionPercentage int
	CanBeReassigned      bool
	SoftDeadline         *time.Time
	HardDeadline         *time.Time
	Order                int
	IsCompleted          bool
	AssignedAt           *time.Time
	CreatedAt            time.Time
}
