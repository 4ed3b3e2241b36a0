package models

import "time"

type AttemptOutcome string

const (
	OutcomePending   AttemptOutcome = "pending"
	OutcomePaid      AttemptOutcome = "paid"
	OutcomeFailed    AttemptOutcome = "failed"
	OutcomeCancelled AttemptOutcome = "cancelled"
	OutcomeTimedOut  AttemptOutcome = "timed_out"
	OutcomeAbandoned AttemptOutcome = "abandoned"
)

// CheckoutAttempt records one submitted checkout and how it ended. Buyer
// contact details are never stored here.
type CheckoutAttempt struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	SessionID  string         `json:"session_id" gorm:"type:varchar(64);index"`
	OrderID    string         `json:"order_id" gorm:"type:varchar(64)"`
	PaymentID  string         `json:"payment_id" gorm:"type:varchar(64);uniqueIndex"`
	Gateway    Gateway        `json:"gateway" gorm:"type:varchar(32)"`
	Total      float64        `json:"total" gorm:"type:decimal(12,2);not null;default:0.00"`
	Outcome    AttemptOutcome `json:"outcome" gorm:"type:varchar(20);not null;default:'pending';index"`
	FinishedAt *time.Time     `json:"finished_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
