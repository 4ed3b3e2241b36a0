package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/feeriepay/checkout/models"
)

type ProductsAPI struct {
	c *APIClient
}

func (a *ProductsAPI) List(ctx context.Context, page, perPage int) (*models.Paginated[models.Product], error) {
	endpoint := fmt.Sprintf("/products?page=%d", normalizePage(page))
	if perPage > 0 {
		endpoint += fmt.Sprintf("&per_page=%d", perPage)
	}
	var out models.Paginated[models.Product]
	if err := a.c.Get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *ProductsAPI) Get(ctx context.Context, id string) (*models.Product, error) {
	var raw json.RawMessage
	if err := a.c.Get(ctx, "/products/"+url.PathEscape(id), &raw); err != nil {
		return nil, err
	}
	var out models.Product
	if err := decodeEnvelope(raw, &out); err != nil {
		return nil, fmt.Errorf("error unmarshaling product: %w", err)
	}
	return &out, nil
}

// Create uploads a product. Files (cover, downloadable asset) travel in the
// multipart form.
func (a *ProductsAPI) Create(ctx context.Context, form *MultipartForm) (*models.Product, error) {
	var out models.Product
	if err := a.c.Post(ctx, "/products", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update sends the form as POST with _method=PATCH; PHP does not parse
// multipart bodies on real PATCH requests.
func (a *ProductsAPI) Update(ctx context.Context, id string, form *MultipartForm) (*models.Product, error) {
	if form.Fields == nil {
		form.Fields = map[string]string{}
	}
	form.Fields["_method"] = "PATCH"
	var out models.Product
	if err := a.c.Post(ctx, "/products/"+url.PathEscape(id), form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *ProductsAPI) Delete(ctx context.Context, id string) error {
	return a.c.Delete(ctx, "/products/"+url.PathEscape(id), nil)
}

// DownloadURL is the authenticated download link of a product file.
func (a *ProductsAPI) DownloadURL(id string) string {
	return a.c.resolve("/products/" + url.PathEscape(id) + "/download")
}
