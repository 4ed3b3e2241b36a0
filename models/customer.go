package models

type Customer struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Phone       *string  `json:"phone"`
	Status      string   `json:"status,omitempty"`
	TotalSpent  *Decimal `json:"total_spent,omitempty"`
	OrdersCount int      `json:"orders_count,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

type CreateCustomerRequest struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

type UpdateCustomerRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Status *string `json:"status,omitempty"`
}
