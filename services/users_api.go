package services

import (
	"context"
	"net/url"

	"github.com/feeriepay/checkout/models"
)

type UsersAPI struct {
	c *APIClient
}

func (a *UsersAPI) Create(ctx context.Context, req models.CreateUserRequest) (string, error) {
	var out models.MessageResponse
	if err := a.c.Post(ctx, "/users", req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (a *UsersAPI) Update(ctx context.Context, id string, req models.UpdateUserRequest) (*models.User, error) {
	var out struct {
		Message string      `json:"message"`
		Data    models.User `json:"data"`
	}
	if err := a.c.Patch(ctx, "/users/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (a *UsersAPI) Delete(ctx context.Context, id string) (string, error) {
	var out models.MessageResponse
	if err := a.c.Delete(ctx, "/users/"+url.PathEscape(id), &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
