package apiclient

import (
	"context"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func (c *Client) Register(ctx context.Context, req transport.RegisterRequest) error {
	return c.do(ctx, "auth.register", http.MethodPost, "/auth/register/", "", req, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp transport.LoginResponse
	err := c.do(ctx, "auth.login", http.MethodPost, "/auth/login/", "", transport.LoginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token() == "" {
		return "", apperr.Auth("auth.login", "login response carried no token")
	}
	return resp.Token(), nil
}

func (c *Client) GetProfile(ctx context.Context, token string) (*models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, "auth.profile", http.MethodGet, "/auth/profile/", token, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, token string, p models.Profile) (*models.Profile, error) {
	var out models.Profile
	if err := c.do(ctx, "auth.update_profile", http.MethodPut, "/auth/profile/", token, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RequestPasswordReset(ctx context.Context, req transport.PasswordResetRequest) (string, error) {
	var resp transport.MessageResponse
	if err := c.do(ctx, "auth.password_reset", http.MethodPost, "/auth/password-reset/", "", req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) ConfirmPasswordReset(ctx context.Context, req transport.PasswordResetConfirmRequest) (string, error) {
	var resp transport.MessageResponse
	if err := c.do(ctx, "auth.password_reset_confirm", http.MethodPost, "/auth/password-reset-confirm/", "", req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
