package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/feeriepay/checkout/models"
)

type CustomersAPI struct {
	c *APIClient
}

func (a *CustomersAPI) List(ctx context.Context, page, perPage int) (*models.Paginated[models.Customer], error) {
	if perPage <= 0 {
		perPage = 10
	}
	var out models.Paginated[models.Customer]
	endpoint := fmt.Sprintf("/customers?page=%d&per_page=%d", normalizePage(page), perPage)
	if err := a.c.Get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *CustomersAPI) Get(ctx context.Context, id string) (*models.Customer, error) {
	var out models.Customer
	if err := a.c.Get(ctx, "/customers/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *CustomersAPI) Create(ctx context.Context, req models.CreateCustomerRequest) (*models.Customer, error) {
	var out models.Customer
	if err := a.c.Post(ctx, "/customers", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update accepts both {message, data} and the bare customer as response.
func (a *CustomersAPI) Update(ctx context.Context, id string, req models.UpdateCustomerRequest) (*models.Customer, error) {
	var raw json.RawMessage
	if err := a.c.Patch(ctx, "/customers/"+url.PathEscape(id), req, &raw); err != nil {
		return nil, err
	}
	var out models.Customer
	if err := decodeEnvelope(raw, &out); err != nil {
		return nil, fmt.Errorf("error unmarshaling customer: %w", err)
	}
	return &out, nil
}

// Delete returns the backend message, empty on 204.
func (a *CustomersAPI) Delete(ctx context.Context, id string) (string, error) {
	var out models.MessageResponse
	if err := a.c.Delete(ctx, "/customers/"+url.PathEscape(id), &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
