package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/feeriepay/checkout/models"
	"github.com/feeriepay/checkout/utils"
)

const DefaultPollInterval = 5 * time.Second

// ErrAlreadyPolling is returned by Start while a previous task is alive.
var ErrAlreadyPolling = errors.New("payment poller already running")

// PaymentStatusReader is the part of PaymentsAPI the poller needs.
type PaymentStatusReader interface {
	Get(ctx context.Context, paymentID string) (*models.GetPaymentResponse, error)
}

// PollResult is the outcome of one status read: either a payment with its
// status, or a transient error that the poller retries on the next tick.
type PollResult struct {
	Payment *models.Payment
	Err     error
}

// Transient reports whether this tick failed and will be retried.
func (r PollResult) Transient() bool {
	return r.Err != nil
}

// Status is the observed status, "" for transient results.
func (r PollResult) Status() models.PaymentStatus {
	if r.Payment == nil {
		return ""
	}
	return r.Payment.Status
}

// PollHandlers receive the poller's signals. They run on the poll goroutine.
// OnPaid and OnFailed fire at most once and end the task.
type PollHandlers struct {
	OnTick   func(PollResult)
	OnPaid   func(models.Payment)
	OnFailed func(models.Payment)
}

// PollMetrics counts what the poller has seen.
type PollMetrics struct {
	Ticks           int64
	TransientErrors int64
	Paid            int64
	Failed          int64
}

// PaymentPoller reads a payment's status at a fixed interval until it is
// terminal. One poller drives at most one task at a time.
type PaymentPoller struct {
	reader   PaymentStatusReader
	interval time.Duration

	mutex   sync.Mutex
	active  *Task
	metrics PollMetrics
}

// NewPaymentPoller creates a poller; interval <= 0 means DefaultPollInterval.
func NewPaymentPoller(reader PaymentStatusReader, interval time.Duration) *PaymentPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PaymentPoller{
		reader:   reader,
		interval: interval,
	}
}

// Start begins polling paymentID. The first read happens one interval after
// Start. Results that arrive after the task was cancelled are dropped.
func (p *PaymentPoller) Start(ctx context.Context, paymentID string, h PollHandlers) (*Task, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.active.Running() {
		return nil, ErrAlreadyPolling
	}

	log := utils.Info().WithField("payment_id", paymentID)
	task := startTask(ctx, func(ctx context.Context) {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			result := p.read(ctx, paymentID)
			if ctx.Err() != nil {
				return
			}
			p.record(result)

			if h.OnTick != nil {
				h.OnTick(result)
			}

			if result.Transient() {
				log.WithError(result.Err).Warn("payment status check failed, retrying")
				continue
			}

			status := result.Status()
			log.WithFields(logrus.Fields{"status": status}).Debug("payment status checked")

			switch {
			case status == models.PaymentStatusPaid:
				if h.OnPaid != nil {
					h.OnPaid(*result.Payment)
				}
				return
			case status.Failed():
				if h.OnFailed != nil {
					h.OnFailed(*result.Payment)
				}
				return
			}
		}
	})
	p.active = task
	return task, nil
}

func (p *PaymentPoller) read(ctx context.Context, paymentID string) PollResult {
	res, err := p.reader.Get(ctx, paymentID)
	if err != nil {
		return PollResult{Err: err}
	}
	if res == nil {
		return PollResult{Err: errors.New("empty payment status response")}
	}
	payment := res.Payment
	return PollResult{Payment: &payment}
}

func (p *PaymentPoller) record(r PollResult) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.metrics.Ticks++
	switch {
	case r.Transient():
		p.metrics.TransientErrors++
	case r.Status() == models.PaymentStatusPaid:
		p.metrics.Paid++
	case r.Status().Failed():
		p.metrics.Failed++
	}
}

// GetMetrics returns the current counters
func (p *PaymentPoller) GetMetrics() PollMetrics {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.metrics
}
