package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leadflow/backend/internal/logger"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/repository"
	"github.com/leadflow/backend/pkg/supabase"
)

type authService struct {
	auth     AuthProvider
	userRepo repository.UserRepository
	audit    AuditService
}

// NewAuthService creates a new authentication service
func NewAuthService(auth AuthProvider, userRepo repository.UserRepository, auditService AuditService) AuthService {
	return &authService{
		auth:     auth,
		userRepo: userRepo,
		audit:    auditService,
	}
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	session, err := s.auth.SignIn(ctx, email, req.Password)
	if err != nil {
		if supabase.IsClientError(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(supabase.WithUserToken(ctx, ""), session.User.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: no profile for %s", ErrUnauthorized, email)
		}
		return nil, err
	}
	if user.IsPending() {
		return nil, ErrPendingApproval
	}

	s.audit.Record(ctx, user, models.AuditLogin, nil, nil, nil)

	return &models.AuthResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         user,
	}, nil
}

// Signup registers an account that stays pending until an admin approves it.
// No tokens are handed out for pending accounts.
func (s *authService) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)

	if _, err := s.userRepo.GetByEmail(supabase.WithUserToken(ctx, ""), email); err == nil {
		return nil, fmt.Errorf("%w: a user with email %s already exists", ErrConflict, email)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	session, err := s.auth.SignUp(ctx, email, req.Password, map[string]any{"name": name})
	if err != nil {
		if supabase.IsClientError(err) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, err
	}

	user, err := s.userRepo.Create(supabase.WithUserToken(ctx, ""), &models.User{
		ID:       session.User.ID,
		Name:     name,
		Email:    email,
		Role:     models.RolePending,
		EntityID: req.EntityID,
		Status:   models.UserStatusPending,
	})
	if err != nil {
		if delErr := s.auth.AdminDeleteUser(ctx, session.User.ID); delErr != nil {
			log := logger.FromContext(ctx)
			log.Warn("failed to roll back signup", logger.Err(delErr), logger.String("user_id", session.User.ID))
		}
		return nil, err
	}

	s.audit.Record(ctx, user, models.AuditSignup, nil, nil, map[string]any{"email": email})
	return &models.AuthResponse{User: user}, nil
}

func (s *authService) Logout(ctx context.Context, actor *models.User) error {
	s.audit.Record(ctx, actor, models.AuditLogout, nil, nil, nil)
	return nil
}
