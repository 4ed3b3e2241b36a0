package services

import (
	"context"
	"net/url"

	"github.com/feeriepay/checkout/models"
)

type PaymentsAPI struct {
	c *APIClient
}

// Get reads the current state of a payment. Public so the checkout can poll
// it.
func (a *PaymentsAPI) Get(ctx context.Context, paymentID string) (*models.GetPaymentResponse, error) {
	var out models.GetPaymentResponse
	if err := a.c.Get(ctx, "/payments/"+url.PathEscape(paymentID), &out, Public()); err != nil {
		return nil, err
	}
	return &out, nil
}
