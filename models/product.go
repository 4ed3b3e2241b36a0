package models

type ProductType string

const (
	ProductTypeEbook   ProductType = "ebook"
	ProductTypeCourse  ProductType = "course"
	ProductTypeFile    ProductType = "file"
	ProductTypeService ProductType = "service"
)

type Product struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   *string     `json:"description"`
	Price         Decimal     `json:"price"`
	Type          ProductType `json:"type"`
	FilePath      *string     `json:"file_path"`
	ExternalLink  *string     `json:"external_link"`
	Instructions  *string     `json:"instructions"`
	Status        *string     `json:"status"`
	CoverImageURL *string     `json:"cover_image_url,omitempty"`

	// Placeholder marks the demo product shown when the catalogue is
	// empty or unreachable. It can never be purchased.
	Placeholder bool `json:"placeholder,omitempty"`
}

// ProductSummary is the product embedded in an order.
type ProductSummary struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Price Decimal     `json:"price"`
	Type  ProductType `json:"type"`
}

const PlaceholderProductID = "demo-product"

// PlaceholderProduct is the non-purchasable stand-in for an empty catalogue.
func PlaceholderProduct() Product {
	return Product{
		ID:          PlaceholderProductID,
		Name:        "Produto de demonstração",
		Price:       "25000.00",
		Type:        ProductTypeEbook,
		Placeholder: true,
	}
}

// Purchasable reports whether an order may be placed for p.
func (p Product) Purchasable() bool {
	return !p.Placeholder && p.ID != ""
}
