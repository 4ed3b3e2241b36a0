package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/feeriepay/checkout/models"
)

type CouponsAPI struct {
	c *APIClient
}

func (a *CouponsAPI) List(ctx context.Context, page, perPage int) (*models.Paginated[models.Coupon], error) {
	if perPage <= 0 {
		perPage = 15
	}
	var out models.Paginated[models.Coupon]
	endpoint := fmt.Sprintf("/coupons?page=%d&per_page=%d", normalizePage(page), perPage)
	if err := a.c.Get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *CouponsAPI) Get(ctx context.Context, id string) (*models.Coupon, error) {
	return a.coupon(ctx, http.MethodGet, "/coupons/"+url.PathEscape(id), nil)
}

func (a *CouponsAPI) Create(ctx context.Context, in models.CouponInput) (*models.Coupon, error) {
	return a.coupon(ctx, http.MethodPost, "/coupons", in)
}

func (a *CouponsAPI) Update(ctx context.Context, id string, in models.CouponInput) (*models.Coupon, error) {
	return a.coupon(ctx, http.MethodPatch, "/coupons/"+url.PathEscape(id), in)
}

func (a *CouponsAPI) Delete(ctx context.Context, id string) error {
	return a.c.Delete(ctx, "/coupons/"+url.PathEscape(id), nil)
}

// Validate previews a coupon for the checkout. The endpoint is optional on
// the backend, so any failure yields nil and the code is still sent with
// the order for server-side validation.
func (a *CouponsAPI) Validate(ctx context.Context, code string, amount float64) *models.CouponValidation {
	q := url.Values{}
	q.Set("code", strings.TrimSpace(code))
	q.Set("amount", models.DecimalFromFloat(amount).String())

	var raw json.RawMessage
	if err := a.c.Get(ctx, "/coupons/validate?"+q.Encode(), &raw, Public()); err != nil {
		return nil
	}
	var out models.CouponValidation
	if err := decodeEnvelope(raw, &out); err != nil {
		return nil
	}
	return &out
}

func (a *CouponsAPI) coupon(ctx context.Context, method, endpoint string, body interface{}) (*models.Coupon, error) {
	var raw json.RawMessage
	if err := a.c.Do(ctx, method, endpoint, body, &raw); err != nil {
		return nil, err
	}
	var out models.Coupon
	if err := decodeEnvelope(raw, &out); err != nil {
		return nil, fmt.Errorf("error unmarshaling coupon: %w", err)
	}
	return &out, nil
}
