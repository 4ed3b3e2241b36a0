package services

import (
	"context"
	"fmt"

	"github.com/feeriepay/checkout/models"
)

type OrdersAPI struct {
	c *APIClient
}

// Create places an order. Public: the checkout runs without a session.
func (a *OrdersAPI) Create(ctx context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	var out models.CreateOrderResponse
	if err := a.c.Post(ctx, "/orders", req, &out, Public()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *OrdersAPI) List(ctx context.Context, page int) (*models.Paginated[models.Order], error) {
	var out models.Paginated[models.Order]
	if err := a.c.Get(ctx, fmt.Sprintf("/orders?page=%d", normalizePage(page)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
