package fduhole

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fduhole/dxkit/internal/domain/model"
	"github.com/fduhole/dxkit/internal/domain/port/driven"
)

// pushService identifies the push provider the device token belongs to.
const pushService = "apns"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Verification string `json:"verification"`
}

// Login exchanges email and password for a credential.
func (c *Client) Login(ctx context.Context, email, password string) (model.Credential, error) {
	var cred model.Credential
	err := c.do(ctx, call{
		method:    http.MethodPost,
		base:      c.auth,
		path:      "/api/login",
		body:      loginRequest{Email: email, Password: password},
		out:       &cred,
		anonymous: true,
	})
	if err != nil {
		return model.Credential{}, err
	}
	return checkCredential("/api/login", cred)
}

// Register creates an account (create=true) or resets its password.
func (c *Client) Register(ctx context.Context, email, password, verification string, create bool) (model.Credential, error) {
	method := http.MethodPut
	if create {
		method = http.MethodPost
	}

	var cred model.Credential
	err := c.do(ctx, call{
		method:    method,
		base:      c.auth,
		path:      "/api/register",
		body:      registerRequest{Email: email, Password: password, Verification: verification},
		out:       &cred,
		anonymous: true,
	})
	if err != nil {
		return model.Credential{}, err
	}
	return checkCredential("/api/register", cred)
}

// RefreshToken presents refreshToken and returns the new credential.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (model.Credential, error) {
	var cred model.Credential
	err := c.do(ctx, call{
		method: http.MethodPost,
		base:   c.auth,
		path:   "/api/refresh",
		out:    &cred,
		bearer: refreshToken,
	})
	if err != nil {
		return model.Credential{}, err
	}
	return checkCredential("/api/refresh", cred)
}

// Logout invalidates the current credential server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{
		method: http.MethodGet,
		base:   c.auth,
		path:   "/api/logout",
	})
}

// LoadUserInfo returns the signed-in user.
func (c *Client) LoadUserInfo(ctx context.Context) (model.User, error) {
	var user model.User
	err := c.do(ctx, call{
		method: http.MethodGet,
		base:   c.auth,
		path:   "/api/users/me",
		out:    &user,
	})
	return user, err
}

type pushTokenRequest struct {
	Service  string `json:"service,omitempty"`
	DeviceID string `json:"device_id"`
	Token    string `json:"token,omitempty"`
}

// UploadNotificationToken registers token for deviceID.
func (c *Client) UploadNotificationToken(ctx context.Context, deviceID, token string) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		base:   c.forum,
		path:   "/api/users/push-tokens",
		body:   pushTokenRequest{Service: pushService, DeviceID: deviceID, Token: token},
	})
}

// DeleteNotificationToken removes the push token registered for deviceID.
func (c *Client) DeleteNotificationToken(ctx context.Context, deviceID string) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		base:   c.forum,
		path:   "/api/users/push-tokens",
		body:   pushTokenRequest{DeviceID: deviceID},
	})
}

// checkCredential rejects a 2xx response that carries no access token.
func checkCredential(path string, cred model.Credential) (model.Credential, error) {
	if cred.Access == "" {
		return model.Credential{}, fmt.Errorf("%s: %w: response has no access token", path, driven.ErrDecode)
	}
	return cred, nil
}
