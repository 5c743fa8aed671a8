package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// AuthUser is the identity held by Supabase Auth
type AuthUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is the token pair returned by a password sign-in
type Session struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         AuthUser `json:"user"`
}

type tokenKey struct{}

// WithUserToken returns a context whose requests are authorized with the user's JWT
// so that row level security applies.
func WithUserToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// UserTokenFromContext returns the user JWT carried by ctx, if any
func UserTokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(tokenKey{}).(string); ok {
		return token
	}
	return ""
}

// VerifyToken verifies a JWT token and returns the user
func (c *Client) VerifyToken(ctx context.Context, token string) (*AuthUser, error) {
	body, err := c.do(WithUserToken(ctx, token), requestOptions{method: http.MethodGet, path: "/auth/v1/user"})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var user AuthUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

// SignIn exchanges an email and password for a session
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body, err := c.do(ctx, requestOptions{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  Filter{"grant_type": "password"},
		body:   map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// SignUp registers a new account. The session tokens are empty when email
// confirmation is required.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, error) {
	body, err := c.do(ctx, requestOptions{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body: map[string]any{
			"email":    email,
			"password": password,
			"data":     metadata,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("signup failed: %w", err)
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signup response: %w", err)
	}
	if session.User.ID == "" {
		// Without auto-confirm, Supabase returns the user object at the top level.
		if err := json.Unmarshal(body, &session.User); err != nil {
			return nil, fmt.Errorf("failed to unmarshal signup user: %w", err)
		}
	}
	return &session, nil
}

// AdminCreateUser creates a confirmed account with the service key
func (c *Client) AdminCreateUser(ctx context.Context, email, password string, metadata map[string]any) (*AuthUser, error) {
	body, err := c.do(WithUserToken(ctx, ""), requestOptions{
		method: http.MethodPost,
		path:   "/auth/v1/admin/users",
		body: map[string]any{
			"email":         email,
			"password":      password,
			"email_confirm": true,
			"user_metadata": metadata,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create auth user: %w", err)
	}

	var user AuthUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auth user: %w", err)
	}
	return &user, nil
}

// AdminDeleteUser removes an account with the service key
func (c *Client) AdminDeleteUser(ctx context.Context, id string) error {
	_, err := c.do(WithUserToken(ctx, ""), requestOptions{
		method: http.MethodDelete,
		path:   "/auth/v1/admin/users/" + id,
	})
	if err != nil {
		return fmt.Errorf("failed to delete auth user: %w", err)
	}
	return nil
}
