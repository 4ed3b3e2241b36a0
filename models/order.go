package models

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// Order is a purchase intent. Status transitions belong to the backend;
// the checkout only ever re-reads it.
type Order struct {
	ID             string          `json:"id"`
	CustomerID     string          `json:"customer_id"`
	ProductID      string          `json:"product_id"`
	Subtotal       Decimal         `json:"subtotal"`
	DiscountAmount Decimal         `json:"discount_amount"`
	Total          Decimal         `json:"total"`
	Status         OrderStatus     `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	Customer       *Customer       `json:"customer,omitempty"`
	Product        *ProductSummary `json:"product,omitempty"`
	Payments       []Payment       `json:"payments,omitempty"`
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	ProductID    string  `json:"product_id"`
	Gateway      Gateway `json:"gateway"`
	CouponCode   string  `json:"coupon_code,omitempty"`
	PhoneNumber  string  `json:"phone_number,omitempty"`
	MobileNumber string  `json:"mobile_number,omitempty"`
}

// CreateOrderResponse is returned by POST /orders.
type CreateOrderResponse struct {
	Order           Order          `json:"order"`
	Payment         Payment        `json:"payment"`
	GatewayResponse map[string]any `json:"gateway_response,omitempty"`
}
