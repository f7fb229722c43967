package authpw

import (
	"context"
	"database/sql"
	"testing"

	"stageline/api/internal/store"
)

type memoryUserStore struct {
	byEmail map[string]store.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{byEmail: make(map[string]store.User)}
}

func (m *memoryUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (m *memoryUserStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	for _, user := range m.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (m *memoryUserStore) CreateUser(_ context.Context, user store.User) error {
	m.byEmail[user.Email] = user
	return nil
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := NewService(newMemoryUserStore())
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpRequest{Email: "Rowan@Team.dev", Password: "long-enough", DisplayName: "Rowan"})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if user.Email != "rowan@team.dev" {
		t.Fatalf("email not normalized: %q", user.Email)
	}

	got, err := svc.SignIn(ctx, "rowan@team.dev", "long-enough")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("SignIn() returned %q, want %q", got.ID, user.ID)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	svc := NewService(newMemoryUserStore())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "jun@team.dev", Password: "long-enough"}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if _, err := svc.SignIn(ctx, "jun@team.dev", "wrong-password"); err != ErrInvalidCredentials {
		t.Fatalf("SignIn() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	svc := NewService(newMemoryUserStore())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "sam@team.dev", Password: "long-enough"}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "sam@team.dev", Password: "another-one"}); err != ErrEmailTaken {
		t.Fatalf("second SignUp() error = %v, want ErrEmailTaken", err)
	}
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	svc := NewService(newMemoryUserStore())
	if _, err := svc.SignUp(context.Background(), SignUpRequest{Email: "kit@team.dev", Password: "short"}); err == nil {
		t.Fatal("expected SignUp() to reject short password")
	}
}
