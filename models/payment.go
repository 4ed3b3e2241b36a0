package models

import "time"

// Gateway discriminates the payment rail. It is an open string set; the
// constants below are the rails the checkout knows how to present.
type Gateway string

const (
	GatewayGPO           Gateway = "gpo"
	GatewayReference     Gateway = "ref"
	GatewayEKwanzaTicket Gateway = "ekwanza_ticket"
)

// Known reports whether the checkout can drive this gateway.
func (g Gateway) Known() bool {
	switch g {
	case GatewayGPO, GatewayReference, GatewayEKwanzaTicket:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusExpired   PaymentStatus = "expired"
)

// Terminal reports whether no further transition is expected from s.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusPaid || s.Failed()
}

// Failed reports whether s is a terminal non-success status.
func (s PaymentStatus) Failed() bool {
	switch s {
	case PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusExpired:
		return true
	}
	return false
}

// Payment represents one gateway attempt tied to an order.
type Payment struct {
	ID                    string         `json:"id"`
	OrderID               *string        `json:"order_id"`
	Gateway               Gateway        `json:"gateway"`
	MerchantTransactionID string         `json:"merchant_transaction_id,omitempty"`
	GatewayTransactionID  string         `json:"gateway_transaction_id,omitempty"`
	GatewayStatusCode     string         `json:"gateway_status_code,omitempty"`
	GatewayReference      string         `json:"gateway_reference,omitempty"`
	Status                PaymentStatus  `json:"status"`
	Amount                Decimal        `json:"amount"`
	Currency              string         `json:"currency,omitempty"`
	RawResponse           map[string]any `json:"raw_response,omitempty"`
	ExpiresAt             *time.Time     `json:"expires_at,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// GetPaymentResponse is returned by GET /payments/{id}.
type GetPaymentResponse struct {
	Payment Payment `json:"payment"`
}
