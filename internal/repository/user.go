package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/pkg/supabase"
)

const usersTable = "users"

type userRepository struct {
	client *supabase.Client
}

// NewUserRepository creates a new user repository
func NewUserRepository(client *supabase.Client) UserRepository {
	return &userRepository{client: client}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	body, err := r.client.Query(ctx, usersTable, supabase.Filter{
		"select": "*",
		"id":     supabase.Eq(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return decodeFirst[models.User](body, "user", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	body, err := r.client.Query(ctx, usersTable, supabase.Filter{
		"select": "*",
		"email":  supabase.Eq(email),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return decodeFirst[models.User](body, "user", email)
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	body, err := r.client.Query(ctx, usersTable, supabase.Filter{
		"select": "*",
		"order":  "name.asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return decodeList[models.User](body, "users")
}

func (r *userRepository) ListByStatus(ctx context.Context, status models.UserStatus) ([]models.User, error) {
	body, err := r.client.Query(ctx, usersTable, supabase.Filter{
		"select": "*",
		"status": supabase.Eq(string(status)),
		"order":  "name.asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return decodeList[models.User](body, "users")
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	body, err := r.client.Insert(ctx, usersTable, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return decodeFirst[models.User](body, "user", user.ID)
}

func (r *userRepository) Update(ctx context.Context, id string, fields map[string]any) (*models.User, error) {
	body, err := r.client.Update(ctx, usersTable, id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return decodeFirst[models.User](body, "user", id)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, usersTable, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
