package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"judgehub/internal/common"
	"judgehub/internal/common/security"
	"judgehub/internal/domain/model"
	"judgehub/internal/platform/config"
)

func initTestJWT(t *testing.T) {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour}
	security.InitJWT()
}

type fakeUserRepo struct {
	byID       map[string]*model.User
	byEmail    map[string]*model.User
	byUsername map[string]*model.User
	created    int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:       map[string]*model.User{},
		byEmail:    map[string]*model.User{},
		byUsername: map[string]*model.User{},
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if _, ok := f.byUsername[user.Username]; ok {
		return common.ErrConflict
	}
	if _, ok := f.byEmail[user.Email]; ok {
		return common.ErrConflict
	}
	stored := *user
	f.byID[stored.ID] = &stored
	f.byEmail[stored.Email] = &stored
	f.byUsername[stored.Username] = &stored
	f.created++
	return nil
}

func (f *fakeUserRepo) find(m map[string]*model.User, key string) (*model.User, error) {
	user, ok := m[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return f.find(f.byEmail, email)
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return f.find(f.byUsername, username)
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return f.find(f.byID, id)
}

func (f *fakeUserRepo) UpdateStreak(ctx context.Context, tx *sql.Tx, userID string, streak int, lastActive time.Time) error {
	return nil
}

func (f *fakeUserRepo) ResetExpiredStreaks(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func TestSignupValidation(t *testing.T) {
	initTestJWT(t)

	tests := []struct {
		name string
		req  SignupRequest
	}{
		{"missing username", SignupRequest{Email: "a@b.com", Password: "longenough"}},
		{"missing email", SignupRequest{Username: "alice", Password: "longenough"}},
		{"missing password", SignupRequest{Username: "alice", Email: "a@b.com"}},
		{"short password", SignupRequest{Username: "alice", Email: "a@b.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeUserRepo()
			svc := NewAuthService(repo)

			_, err := svc.Signup(context.Background(), tt.req)
			if !errors.Is(err, common.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
			if repo.created != 0 {
				t.Errorf("no user may be created for invalid input, got %d", repo.created)
			}
		})
	}
}

func TestSignupAndLogin(t *testing.T) {
	initTestJWT(t)
	repo := newFakeUserRepo()
	svc := NewAuthService(repo)

	resp, err := svc.Signup(context.Background(), SignupRequest{
		Username: "alice", Email: "alice@example.com", Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if resp.Token == "" {
		t.Error("signup must return a token")
	}
	if resp.User.HashedPassword != "" {
		t.Error("hashed password must not leave the service layer")
	}

	// The login identifier works as either username or email.
	for _, identifier := range []string{"alice", "alice@example.com"} {
		if _, err := svc.Login(context.Background(), LoginRequest{LoginField: identifier, Password: "correct horse"}); err != nil {
			t.Errorf("Login(%q): %v", identifier, err)
		}
	}

	if _, err := svc.Login(context.Background(), LoginRequest{LoginField: "alice", Password: "wrong"}); !errors.Is(err, common.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for bad password, got %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginRequest{LoginField: "nobody", Password: "correct horse"}); !errors.Is(err, common.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for unknown user, got %v", err)
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	initTestJWT(t)
	repo := newFakeUserRepo()
	svc := NewAuthService(repo)

	req := SignupRequest{Username: "alice", Email: "alice@example.com", Password: "correct horse"}
	if _, err := svc.Signup(context.Background(), req); err != nil {
		t.Fatalf("first Signup: %v", err)
	}
	if _, err := svc.Signup(context.Background(), req); !errors.Is(err, common.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate signup, got %v", err)
	}
}
