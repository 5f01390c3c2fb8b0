package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"judgehub/internal/common"
	"judgehub/internal/common/security"
	"judgehub/internal/domain/model"
	"judgehub/internal/domain/repository"

	"github.com/google/uuid"
)

const minPasswordLength = 8

type AuthService struct {
	userRepo repository.UserRepository
}

func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	LoginField string `json:"login_field"` // username or email
	Password   string `json:"password"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, common.Errorf("username, email and password are all required: %w", common.ErrValidation)
	}
	if len(req.Password) < minPasswordLength {
		return nil, common.Errorf("password must be at least %d characters: %w", minPasswordLength, common.ErrValidation)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashedPassword,
		Role:           model.RoleUser,
	}

	// Repo surfaces common.ErrConflict on a username/email collision.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issueToken(user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.LoginField == "" || req.Password == "" {
		return nil, common.Errorf("login_field and password are required: %w", common.ErrValidation)
	}

	user, err := s.lookupUser(ctx, req.LoginField)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Do not reveal which half of the credentials was wrong.
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrUnauthorized
	}

	return s.issueToken(user)
}

// lookupUser treats an identifier containing "@" as an email first; either way
// the other lookup is tried before giving up.
func (s *AuthService) lookupUser(ctx context.Context, identifier string) (*model.User, error) {
	first, second := s.userRepo.FindByUsername, s.userRepo.FindByEmail
	if strings.Contains(identifier, "@") {
		first, second = second, first
	}

	user, err := first(ctx, identifier)
	if errors.Is(err, common.ErrNotFound) {
		user, err = second(ctx, identifier)
	}
	return user, err
}

func (s *AuthService) issueToken(user *model.User) (*AuthResponse, error) {
	token, err := security.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = "" // never leaves the service layer
	return &AuthResponse{User: user, Token: token}, nil
}
