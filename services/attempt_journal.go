package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/feeriepay/checkout/models"
)

// AttemptJournal keeps a record of every submitted checkout and how it
// ended. It is an audit trail; nothing in the flow reads it back.
type AttemptJournal struct {
	db *gorm.DB
}

func NewAttemptJournal(db *gorm.DB) *AttemptJournal {
	return &AttemptJournal{db: db}
}

// Open records a freshly created order/payment pair as pending.
func (j *AttemptJournal) Open(ctx context.Context, sessionID string, res models.CreateOrderResponse) error {
	attempt := models.CheckoutAttempt{
		SessionID: sessionID,
		OrderID:   res.Order.ID,
		PaymentID: res.Payment.ID,
		Gateway:   res.Payment.Gateway,
		Total:     res.Order.Total.Float(),
		Outcome:   models.OutcomePending,
	}
	if err := j.db.WithContext(ctx).Create(&attempt).Error; err != nil {
		return fmt.Errorf("failed to record checkout attempt: %w", err)
	}
	return nil
}

// Finish stamps the outcome of the attempt for paymentID. Attempts that
// already have a final outcome are left untouched.
func (j *AttemptJournal) Finish(ctx context.Context, paymentID string, outcome models.AttemptOutcome) error {
	tx := j.db.WithContext(ctx).Begin()

	var attempt models.CheckoutAttempt
	if err := tx.Where("payment_id = ?", paymentID).First(&attempt).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find checkout attempt: %w", err)
	}

	if attempt.Outcome != models.OutcomePending && attempt.Outcome != models.OutcomeTimedOut {
		tx.Rollback()
		return nil
	}

	now := time.Now()
	attempt.Outcome = outcome
	attempt.FinishedAt = &now
	if err := tx.Save(&attempt).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update checkout attempt: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Summary counts attempts per outcome.
func (j *AttemptJournal) Summary(ctx context.Context) (map[models.AttemptOutcome]int64, error) {
	var rows []struct {
		Outcome models.AttemptOutcome
		Count   int64
	}
	err := j.db.WithContext(ctx).
		Model(&models.CheckoutAttempt{}).
		Select("outcome, count(*) as count").
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarise checkout attempts: %w", err)
	}

	out := make(map[models.AttemptOutcome]int64, len(rows))
	for _, r := range rows {
		out[r.Outcome] = r.Count
	}
	return out, nil
}
