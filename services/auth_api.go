package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/feeriepay/checkout/models"
)

type AuthAPI struct {
	c *APIClient
}

// EnsureCSRFCookie fetches the Sanctum XSRF cookie. It lives at the API
// origin, outside the /api/v1 prefix.
func (a *AuthAPI) EnsureCSRFCookie(ctx context.Context) error {
	return a.c.Do(ctx, http.MethodGet, a.csrfURL(), nil, nil, Public())
}

func (a *AuthAPI) csrfURL() string {
	u := *a.c.baseURL
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/api/v1") + "/sanctum/csrf-cookie"
	u.RawQuery = ""
	return u.String()
}

func (a *AuthAPI) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var out models.LoginResponse
	if err := a.c.Post(ctx, "/login", body, &out, Public()); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout never fires the unauthorized callback; a 401 here means the
// session is already gone.
func (a *AuthAPI) Logout(ctx context.Context) error {
	return a.c.Post(ctx, "/logout", nil, nil, SkipAuthRedirect())
}

func (a *AuthAPI) Me(ctx context.Context) (*models.User, error) {
	var out models.MeResponse
	if err := a.c.Get(ctx, "/me", &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (a *AuthAPI) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out models.MessageResponse
	if err := a.c.Post(ctx, "/forgot-password", map[string]string{"email": email}, &out, Public()); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (a *AuthAPI) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (string, error) {
	var out models.MessageResponse
	if err := a.c.Post(ctx, "/password/reset", req, &out, Public()); err != nil {
		return "", err
	}
	return out.Message, nil
}
