// Package checkout drives the public checkout: a buyer fills in the form,
// an order is placed, and the payment is followed until it settles.
//
// The flow is an explicit state machine with three states. Form is where
// the buyer starts and where failures return them. Waiting holds the order
// and payment that were just created while the payment is polled. Success
// is terminal.
package checkout

import (
	"errors"
	"fmt"

	"github.com/feeriepay/checkout/models"
)

// ErrInvalidTransition is returned by Next for an event the state does not
// accept.
var ErrInvalidTransition = errors.New("invalid checkout transition")

type Step int

const (
	StepForm    Step = 1
	StepWaiting Step = 2
	StepSuccess Step = 3
)

func (s Step) String() string {
	switch s {
	case StepForm:
		return "form"
	case StepWaiting:
		return "waiting"
	case StepSuccess:
		return "success"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// State is one of Form, Waiting or Success.
type State interface {
	Step() Step
	isState()
}

type Form struct{}

// Waiting always carries the order and payment it is waiting on. Countdown
// is nil for gateways without an acceptance window.
type Waiting struct {
	Order           models.Order
	Payment         models.Payment
	GatewayResponse map[string]any
	Countdown       *int
	TimedOut        bool
}

type Success struct {
	Order   models.Order
	Payment models.Payment
}

func (Form) Step() Step    { return StepForm }
func (Waiting) Step() Step { return StepWaiting }
func (Success) Step() Step { return StepSuccess }

func (Form) isState()    {}
func (Waiting) isState() {}
func (Success) isState() {}

// Event is something that may move the checkout to another state.
type Event interface {
	isEvent()
}

// OrderSubmitted: the backend accepted the order.
type OrderSubmitted struct {
	Response  models.CreateOrderResponse
	Countdown *int
}

// PaymentSucceeded: the poller saw "paid".
type PaymentSucceeded struct {
	Payment models.Payment
}

// PaymentPolled: a non-terminal status read. The waiting payment is
// refreshed with it.
type PaymentPolled struct {
	Payment models.Payment
}

// PaymentFailed: the poller saw failed, cancelled or expired.
type PaymentFailed struct {
	Payment models.Payment
}

// CheckoutCancelled: the buyer gave up while waiting.
type CheckoutCancelled struct{}

type CountdownTicked struct {
	Remaining int
}

// CountdownExpired: the acceptance window closed. The checkout stays in
// Waiting; only the display changes.
type CountdownExpired struct{}

func (OrderSubmitted) isEvent()    {}
func (PaymentSucceeded) isEvent()  {}
func (PaymentPolled) isEvent()     {}
func (PaymentFailed) isEvent()     {}
func (CheckoutCancelled) isEvent() {}
func (CountdownTicked) isEvent()   {}
func (CountdownExpired) isEvent()  {}

// Next returns the state that follows s after e.
func Next(s State, e Event) (State, error) {
	switch cur := s.(type) {
	case Form:
		if ev, ok := e.(OrderSubmitted); ok {
			return Waiting{
				Order:           ev.Response.Order,
				Payment:         ev.Response.Payment,
				GatewayResponse: ev.Response.GatewayResponse,
				Countdown:       copyInt(ev.Countdown),
			}, nil
		}

	case Waiting:
		switch ev := e.(type) {
		case PaymentSucceeded:
			return Success{Order: cur.Order, Payment: ev.Payment}, nil
		case PaymentPolled:
			if ev.Payment.ID != cur.Payment.ID {
				break
			}
			cur.Payment = ev.Payment
			return cur, nil
		case PaymentFailed, CheckoutCancelled:
			return Form{}, nil
		case CountdownTicked:
			if cur.Countdown == nil {
				break
			}
			remaining := ev.Remaining
			if remaining < 0 {
				remaining = 0
			}
			cur.Countdown = &remaining
			return cur, nil
		case CountdownExpired:
			if cur.Countdown == nil {
				break
			}
			zero := 0
			cur.Countdown = &zero
			cur.TimedOut = true
			return cur, nil
		}
	}

	return s, fmt.Errorf("%w: %T in %s", ErrInvalidTransition, e, s.Step())
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
