package models

type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
)

type Coupon struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	Type       CouponType `json:"type"`
	Value      Decimal    `json:"value"`
	UsageLimit *int       `json:"usage_limit"`
	UsedCount  int        `json:"used_count"`
	ExpiresAt  *string    `json:"expires_at"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  string     `json:"created_at"`
	UpdatedAt  string     `json:"updated_at"`
}

// CouponInput is the body of POST and PATCH /coupons. Nil fields are left
// untouched on update.
type CouponInput struct {
	Code       *string     `json:"code,omitempty"`
	Type       *CouponType `json:"type,omitempty"`
	Value      *float64    `json:"value,omitempty"`
	UsageLimit *int        `json:"usage_limit,omitempty"`
	ExpiresAt  *string     `json:"expires_at,omitempty"`
	IsActive   *bool       `json:"is_active,omitempty"`
}

// CouponValidation is the checkout preview of a coupon.
type CouponValidation struct {
	Valid          bool        `json:"valid"`
	DiscountAmount *float64    `json:"discount_amount,omitempty"`
	Type           *CouponType `json:"type,omitempty"`
	Value          *float64    `json:"value,omitempty"`
	Message        string      `json:"message,omitempty"`
}
