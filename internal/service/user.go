package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leadflow/backend/internal/audit"
	"github.com/leadflow/backend/internal/logger"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/repository"
)

type userService struct {
	userRepo   repository.UserRepository
	entityRepo repository.EntityRepository
	auth       AuthProvider
	audit      AuditService
}

// NewUserService creates a new user administration service
func NewUserService(
	userRepo repository.UserRepository,
	entityRepo repository.EntityRepository,
	auth AuthProvider,
	auditService AuditService,
) UserService {
	return &userService{
		userRepo:   userRepo,
		entityRepo: entityRepo,
		auth:       auth,
		audit:      auditService,
	}
}

func (s *userService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) List(ctx context.Context, actor *models.User) ([]models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.userRepo.List(ctx)
}

func (s *userService) ListPending(ctx context.Context, actor *models.User) ([]models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.userRepo.ListByStatus(ctx, models.UserStatusPending)
}

// checkGrant verifies that actor may hand out role. Only super roles may
// create other super roles.
func checkGrant(actor *models.User, role models.UserRole) error {
	if !role.Valid() {
		return invalidf("unknown role %q", role)
	}
	if role.IsSuper() && actor != nil && !actor.Role.IsSuper() {
		return fmt.Errorf("%w: only super roles can grant %q", ErrForbidden, role)
	}
	return nil
}

func (s *userService) checkEntity(ctx context.Context, entityID *string) error {
	if entityID == nil || *entityID == "" {
		return nil
	}
	if _, err := s.entityRepo.GetByID(ctx, *entityID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalidf("entity %s does not exist", *entityID)
		}
		return err
	}
	return nil
}

func (s *userService) Create(ctx context.Context, actor *models.User, req *models.CreateUserRequest) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := checkGrant(actor, req.Role); err != nil {
		return nil, err
	}
	if err := s.checkEntity(ctx, req.EntityID); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: a user with email %s already exists", ErrConflict, email)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	authUser, err := s.auth.AdminCreateUser(ctx, email, req.Password, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}

	created, err := s.userRepo.Create(ctx, &models.User{
		ID:       authUser.ID,
		Name:     name,
		Email:    email,
		Role:     req.Role,
		EntityID: req.EntityID,
		Status:   models.UserStatusApproved,
	})
	if err != nil {
		// Do not leave an auth account without a profile behind
		if delErr := s.auth.AdminDeleteUser(ctx, authUser.ID); delErr != nil {
			log := logger.FromContext(ctx)
			log.Warn("failed to roll back auth user", logger.Err(delErr), logger.String("user_id", authUser.ID))
		}
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditCreateUser, nil, audit.UserSnapshot{User: *created}, nil)
	return created, nil
}

func (s *userService) Update(ctx context.Context, actor *models.User, id string, req *models.UpdateUserRequest) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	existing, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Role.IsSuper() && actor != nil && !actor.Role.IsSuper() {
		return nil, fmt.Errorf("%w: only super roles can edit %q users", ErrForbidden, existing.Role)
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalidf("name must not be empty")
		}
		fields["name"] = name
	}
	if req.Email != nil {
		fields["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Role != nil {
		if err := checkGrant(actor, *req.Role); err != nil {
			return nil, err
		}
		fields["role"] = *req.Role
	}
	if req.EntityID.Set {
		entityID := req.EntityID.ToPtr()
		if err := s.checkEntity(ctx, entityID); err != nil {
			return nil, err
		}
		fields["entityId"] = entityID
	}
	if len(fields) == 0 {
		return existing, nil
	}

	updated, err := s.userRepo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditUpdateUser,
		audit.UserSnapshot{User: *existing}, audit.UserSnapshot{User: *updated}, nil)
	return updated, nil
}

// Approve activates a self-registered user with the Viewer role
func (s *userService) Approve(ctx context.Context, actor *models.User, id string) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	existing, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.IsPending() {
		return nil, fmt.Errorf("%w: user %s is not awaiting approval", ErrConflict, existing.Email)
	}

	approved, err := s.userRepo.Update(ctx, id, map[string]any{
		"status": models.UserStatusApproved,
		"role":   models.RoleViewer,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditApproveUser,
		map[string]any{"status": string(existing.Status), "role": string(existing.Role)},
		map[string]any{"status": string(approved.Status), "role": string(approved.Role)},
		map[string]any{"userId": id, "email": approved.Email})
	return approved, nil
}

// Reject removes a pending registration entirely
func (s *userService) Reject(ctx context.Context, actor *models.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	existing, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !existing.IsPending() {
		return fmt.Errorf("%w: user %s is not awaiting approval", ErrConflict, existing.Email)
	}

	if err := s.remove(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, actor, models.AuditRejectUser, audit.UserSnapshot{User: *existing}, nil,
		map[string]any{"userId": id, "email": existing.Email})
	return nil
}

func (s *userService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if actor != nil && actor.ID == id {
		return invalidf("you cannot delete your own account")
	}
	existing, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.Role.IsSuper() && actor != nil && !actor.Role.IsSuper() {
		return fmt.Errorf("%w: only super roles can delete %q users", ErrForbidden, existing.Role)
	}

	if err := s.remove(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, actor, models.AuditDeleteUser, audit.UserSnapshot{User: *existing}, nil, nil)
	return nil
}

// remove deletes the profile row, then the auth account. A failure on the
// second step leaves an orphan login that cannot reach any data.
func (s *userService) remove(ctx context.Context, id string) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.auth.AdminDeleteUser(ctx, id); err != nil {
		log := logger.FromContext(ctx)
		log.Warn("failed to delete auth user", logger.Err(err), logger.String("user_id", id))
	}
	return nil
}
