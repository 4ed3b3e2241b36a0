package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feeriepay/checkout/models"
	"github.com/feeriepay/checkout/services"
)

const (
	testTick = 5 * time.Millisecond
	waitFor  = time.Second
)

// gateways maps payment ids to the rail they were created on, so status
// reads return the same payment the order created.
type gateways struct {
	sync.Map
}

func (g *gateways) of(paymentID string) models.Gateway {
	v, _ := g.Load(paymentID)
	gw, _ := v.(models.Gateway)
	return gw
}

type fakeOrders struct {
	mu       sync.Mutex
	calls    []models.CreateOrderRequest
	err      error
	gateways *gateways
}

func (f *fakeOrders) Create(ctx context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	n := len(f.calls)
	orderID := fmt.Sprintf("order-%d", n)
	res := &models.CreateOrderResponse{
		Order: models.Order{
			ID:        orderID,
			ProductID: req.ProductID,
			Subtotal:  "25000.00",
			Total:     "25000.00",
			Status:    models.OrderStatusPending,
		},
		Payment: models.Payment{
			ID:      fmt.Sprintf("pay-%d", n),
			OrderID: &orderID,
			Gateway: req.Gateway,
			Status:  models.PaymentStatusPending,
			Amount:  "25000.00",
		},
	}
	f.gateways.Store(res.Payment.ID, req.Gateway)
	if req.Gateway == models.GatewayEKwanzaTicket {
		res.GatewayResponse = map[string]any{"Code": "123456789"}
	}
	return res, nil
}

func (f *fakeOrders) requests() []models.CreateOrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CreateOrderRequest(nil), f.calls...)
}

type pollStep struct {
	status models.PaymentStatus
	err    error
}

// fakePayments answers status reads from a script and repeats the last step
// once the script runs out.
type fakePayments struct {
	mu       sync.Mutex
	script   []pollStep
	calls    int32
	gateways *gateways
}

func (f *fakePayments) Get(ctx context.Context, paymentID string) (*models.GetPaymentResponse, error) {
	n := int(atomic.AddInt32(&f.calls, 1)) - 1

	f.mu.Lock()
	defer f.mu.Unlock()
	step := pollStep{status: models.PaymentStatusPending}
	if len(f.script) > 0 {
		if n >= len(f.script) {
			n = len(f.script) - 1
		}
		step = f.script[n]
	}
	if step.err != nil {
		return nil, step.err
	}
	return &models.GetPaymentResponse{Payment: models.Payment{
		ID:      paymentID,
		Gateway: f.gateways.of(paymentID),
		Status:  step.status,
		Amount:  "25000.00",
	}}, nil
}

func (f *fakePayments) count() int32 {
	return atomic.LoadInt32(&f.calls)
}

type fakeProducts struct {
	products []models.Product
	err      error
}

func (f *fakeProducts) List(ctx context.Context, page, perPage int) (*models.Paginated[models.Product], error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Paginated[models.Product]{Data: f.products}, nil
}

type fakeJournal struct {
	mu       sync.Mutex
	opened   []string
	outcomes map[string][]models.AttemptOutcome
}

func (f *fakeJournal) Open(ctx context.Context, sessionID string, res models.CreateOrderResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, res.Payment.ID)
	return nil
}

func (f *fakeJournal) Finish(ctx context.Context, paymentID string, outcome models.AttemptOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outcomes == nil {
		f.outcomes = map[string][]models.AttemptOutcome{}
	}
	f.outcomes[paymentID] = append(f.outcomes[paymentID], outcome)
	return nil
}

func (f *fakeJournal) outcomesFor(paymentID string) []models.AttemptOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AttemptOutcome(nil), f.outcomes[paymentID]...)
}

var catalogue = []models.Product{
	{ID: "p1", Name: "Ebook de Vendas", Price: "25000.00", Type: models.ProductTypeEbook},
	{ID: "p2", Name: "Curso de Go", Price: "15000.00", Type: models.ProductTypeCourse},
}

type testRig struct {
	session  *Session
	orders   *fakeOrders
	payments *fakePayments
	journal  *fakeJournal
}

func newRig(t *testing.T, script []pollStep, tweak func(*Config)) *testRig {
	t.Helper()
	gws := &gateways{}
	rig := &testRig{
		orders:   &fakeOrders{gateways: gws},
		payments: &fakePayments{script: script, gateways: gws},
		journal:  &fakeJournal{},
	}
	cfg := Config{
		Orders:           rig.orders,
		Payments:         rig.payments,
		Products:         &fakeProducts{products: catalogue},
		Journal:          rig.journal,
		PollInterval:     testTick,
		CountdownSeconds: DefaultCountdownSeconds,
		CountdownTick:    testTick,
		NotificationTTL:  time.Minute,
	}
	if tweak != nil {
		tweak(&cfg)
	}
	session, err := NewSession(context.Background(), "sess-1", cfg)
	require.NoError(t, err)
	t.Cleanup(session.Close)
	rig.session = session
	return rig
}

func anaForm(method models.Gateway) SubmitForm {
	return SubmitForm{Name: "Ana Silva", Email: "ana@x.com", Phone: "923456789", Method: method}
}

// assertStopped checks that no status read happens for a few intervals.
func assertStopped(t *testing.T, p *fakePayments) {
	t.Helper()
	before := p.count()
	time.Sleep(10 * testTick)
	assert.Equal(t, before, p.count(), "poller kept running")
}

func TestNewSession_InitialProduct(t *testing.T) {
	tests := []struct {
		name     string
		products *fakeProducts
		inject   string
		wantID   string
		wantList int
	}{
		{"first product", &fakeProducts{products: catalogue}, "", "p1", 2},
		{"injected product", &fakeProducts{products: catalogue}, "p2", "p2", 2},
		{"unknown injected product", &fakeProducts{products: catalogue}, "p9", "p1", 2},
		{"empty catalogue", &fakeProducts{}, "", models.PlaceholderProductID, 1},
		{"catalogue unreachable", &fakeProducts{err: errors.New("connection refused")}, "p1", models.PlaceholderProductID, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newRig(t, nil, func(c *Config) {
				c.Products = tt.products
				c.ProductID = tt.inject
			})

			snap := rig.session.Snapshot()
			assert.Equal(t, StepForm, snap.Step)
			assert.Equal(t, tt.wantID, snap.SelectedProduct.ID)
			assert.Len(t, snap.Products, tt.wantList)
			assert.Equal(t, DefaultMethod, snap.Method)
		})
	}
}

func TestNewSession_RequiresCollaborators(t *testing.T) {
	_, err := NewSession(context.Background(), "x", Config{})
	assert.Error(t, err)
}

func TestSession_EKwanzaPaid(t *testing.T) {
	rig := newRig(t, []pollStep{
		{status: models.PaymentStatusPending},
		{status: models.PaymentStatusPending},
		{status: models.PaymentStatusPaid},
	}, nil)

	snap, err := rig.session.Submit(context.Background(), anaForm(models.GatewayEKwanzaTicket))
	require.NoError(t, err)
	assert.Equal(t, StepWaiting, snap.Step)
	assert.Nil(t, snap.Countdown, "no countdown outside gpo")
	require.NotNil(t, snap.QRCode)
	assert.Equal(t, "123456789", snap.QRCode.Ticket)

	reqs := rig.orders.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "923456789", reqs[0].MobileNumber)
	assert.Empty(t, reqs[0].PhoneNumber)
	assert.Equal(t, "p1", reqs[0].ProductID)

	require.Eventually(t, func() bool {
		_, ok := rig.session.State().(Success)
		return ok
	}, waitFor, testTick)

	snap = rig.session.Snapshot()
	assert.Equal(t, StepSuccess, snap.Step)
	assert.Equal(t, "25.000,00 Kz", snap.Total)
	assert.Equal(t, "E-Kwanza", snap.MethodLabel)
	assert.Equal(t, models.PaymentStatusPaid, snap.Payment.Status)
	assert.Equal(t, int32(3), rig.payments.count())
	assertStopped(t, rig.payments)

	assert.Equal(t, []models.AttemptOutcome{models.OutcomePaid}, rig.journal.outcomesFor("pay-1"))
}

func TestSession_PaymentCancelledReturnsToForm(t *testing.T) {
	rig := newRig(t, []pollStep{{status: models.PaymentStatusCancelled}}, nil)

	_, err := rig.session.Submit(context.Background(), anaForm(models.GatewayReference))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := rig.session.State().(Form)
		return ok
	}, waitFor, testTick)
	assertStopped(t, rig.payments)

	snap := rig.session.Snapshot()
	require.NotEmpty(t, snap.Notifications)
	assert.Equal(t, msgPaymentFailed, snap.Notifications[len(snap.Notifications)-1].Message)
	assert.Nil(t, snap.Order)
	assert.Equal(t, []models.AttemptOutcome{models.OutcomeCancelled}, rig.journal.outcomesFor("pay-1"))
}

func TestSession_TransientPollErrorsKeepWaiting(t *testing.T) {
	rig := newRig(t, []pollStep{
		{err: errors.New("connection reset")},
		{err: &services.APIError{Status: http.StatusBadGateway, Message: "upstream down"}},
		{status: models.PaymentStatusPaid},
	}, nil)

	_, err := rig.session.Submit(context.Background(), anaForm(models.GatewayReference))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := rig.session.State().(Success)
		return ok
	}, waitFor, testTick)
	assert.Equal(t, int32(3), rig.payments.count())
}

func TestSession_GPOCountdownExpiryStopsPolling(t *testing.T) {
	rig := newRig(t, nil, func(c *Config) {
		c.CountdownSeconds = 4
		c.PollInterval = 2 * testTick
	})

	snap, err := rig.session.Submit(context.Background(), anaForm(models.GatewayGPO))
	require.NoError(t, err)
	require.NotNil(t, snap.Countdown)
	assert.Equal(t, 4, *snap.Countdown)
	assert.Equal(t, "244923456789", rig.orders.requests()[0].PhoneNumber)

	require.Eventually(t, func() bool {
		w, ok := rig.session.State().(Waiting)
		return ok && w.TimedOut
	}, waitFor, testTick)
	assertStopped(t, rig.payments)

	w := rig.session.State().(Waiting)
	assert.Equal(t, 0, *w.Countdown)
	assert.Equal(t, []models.AttemptOutcome{models.OutcomeTimedOut}, rig.journal.outcomesFor("pay-1"))

	snap, err = rig.session.Cancel()
	require.NoError(t, err)
	assert.Equal(t, StepForm, snap.Step)
	assert.Equal(t, []models.AttemptOutcome{models.OutcomeTimedOut, models.OutcomeCancelled}, rig.journal.outcomesFor("pay-1"))
}

func TestSession_ValidationFailureStaysInForm(t *testing.T) {
	rig := newRig(t, nil, nil)

	form := anaForm(models.GatewayGPO)
	form.Name = "   "
	snap, err := rig.session.Submit(context.Background(), form)

	var vErr *services.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, StepForm, snap.Step)
	assert.False(t, snap.Submitting)
	assert.Empty(t, rig.orders.requests(), "validation must not reach the backend")
	require.Len(t, snap.Notifications, 1)
	assert.Equal(t, "Preencha nome, email e telefone.", snap.Notifications[0].Message)
	assert.Equal(t, NotifyError, snap.Notifications[0].Kind)
}

func TestSession_PlaceholderCannotBePurchased(t *testing.T) {
	rig := newRig(t, nil, func(c *Config) { c.Products = &fakeProducts{} })

	_, err := rig.session.Submit(context.Background(), anaForm(models.GatewayGPO))
	require.Error(t, err)
	assert.Equal(t, "Nenhum produto disponível. Adicione produtos primeiro.", err.Error())
	assert.Empty(t, rig.orders.requests())
}

func TestSession_BackendErrorStaysInForm(t *testing.T) {
	rig := newRig(t, nil, nil)
	rig.orders.err = &services.APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    services.CodeValidation,
		Message: "Dados inválidos",
		Errors:  map[string][]string{"email": {"O email já está em uso."}},
	}

	snap, err := rig.session.Submit(context.Background(), anaForm(models.GatewayGPO))
	require.Error(t, err)
	assert.Equal(t, StepForm, snap.Step)
	require.Len(t, snap.Notifications, 1)
	assert.Equal(t, "O email já está em uso.", snap.Notifications[0].Message)
	assert.Len(t, rig.orders.requests(), 1, "no automatic retry")
	assert.Zero(t, rig.payments.count())
}

func TestSession_ResubmitAfterFailure(t *testing.T) {
	rig := newRig(t, []pollStep{
		{status: models.PaymentStatusFailed},
		{status: models.PaymentStatusPaid},
	}, nil)

	_, err := rig.session.Submit(context.Background(), anaForm(models.GatewayReference))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := rig.session.State().(Form)
		return ok
	}, waitFor, testTick)

	snap, err := rig.session.Submit(context.Background(), anaForm(models.GatewayReference))
	require.NoError(t, err)
	assert.Equal(t, "order-2", snap.Order.ID)

	require.Eventually(t, func() bool {
		_, ok := rig.session.State().(Success)
		return ok
	}, waitFor, testTick)
	assert.Equal(t, []models.AttemptOutcome{models.OutcomeFailed}, rig.journal.outcomesFor("pay-1"))
	assert.Equal(t, []models.AttemptOutcome{models.OutcomePaid}, rig.journal.outcomesFor("pay-2"))
}

func TestSession_RejectsEditsOutsideForm(t *testing.T) {
	rig := newRig(t, nil, nil)

	_, err := rig.session.Cancel()
	assert.ErrorIs(t, err, ErrInvalidTransition, "nothing to cancel in form")

	_, err = rig.session.Submit(context.Background(), anaForm(models.GatewayReference))
	require.NoError(t, err)

	_, err = rig.session.SetMethod(models.GatewayGPO)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = rig.session.SelectProduct("p2")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = rig.session.Submit(context.Background(), anaForm(models.GatewayReference))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, rig.orders.requests(), 1)
}

func TestSession_SelectProductAndMethod(t *testing.T) {
	rig := newRig(t, nil, nil)

	snap, err := rig.session.SelectProduct("p2")
	require.NoError(t, err)
	assert.Equal(t, "p2", snap.SelectedProduct.ID)
	assert.Equal(t, "15.000,00 Kz", snap.Price)

	_, err = rig.session.SelectProduct("nope")
	assert.ErrorIs(t, err, ErrProductNotFound)

	snap, err = rig.session.SetMethod(models.GatewayEKwanzaTicket)
	require.NoError(t, err)
	assert.Equal(t, "E-Kwanza", snap.MethodLabel)

	_, err = rig.session.SetMethod("card")
	var vErr *services.ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, models.GatewayEKwanzaTicket, rig.session.Snapshot().Method)
}

func TestSession_CloseDuringWaiting(t *testing.T) {
	rig := newRig(t, nil, func(c *Config) { c.CountdownSeconds = 1000 })

	var updates int32
	rig.session.Subscribe(func(Update) { atomic.AddInt32(&updates, 1) })

	_, err := rig.session.Submit(context.Background(), anaForm(models.GatewayGPO))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rig.payments.count() >= 2 }, waitFor, testTick)

	rig.session.Close()
	rig.session.Close()
	assert.True(t, rig.session.Closed())

	seen := atomic.LoadInt32(&updates)
	assertStopped(t, rig.payments)
	assert.Equal(t, seen, atomic.LoadInt32(&updates), "no update after close")

	_, err = rig.session.Submit(context.Background(), anaForm(models.GatewayGPO))
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = rig.session.Cancel()
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, []models.AttemptOutcome{models.OutcomeAbandoned}, rig.journal.outcomesFor("pay-1"))
}

func TestSession_SubscribersSeeStateAndNotifications(t *testing.T) {
	rig := newRig(t, []pollStep{{status: models.PaymentStatusPaid}}, nil)

	var mu sync.Mutex
	var events []string
	var steps []Step
	unsubscribe := rig.session.Subscribe(func(u Update) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, u.Event)
		if u.Snapshot != nil {
			steps = append(steps, u.Snapshot.Step)
		}
	})

	_, err := rig.session.Submit(context.Background(), anaForm(models.GatewayReference))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := rig.session.State().(Success)
		return ok
	}, waitFor, testTick)

	unsubscribe()

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, events, EventNotification)
	require.NotEmpty(t, steps)
	assert.Equal(t, StepForm, steps[0], "submitting is published from the form")
	assert.Equal(t, StepSuccess, steps[len(steps)-1])
	assert.Contains(t, steps, StepWaiting)
}

func TestSession_IdleSince(t *testing.T) {
	rig := newRig(t, nil, nil)

	future := time.Now().Add(time.Minute)
	assert.True(t, rig.session.IdleSince(future))

	unsubscribe := rig.session.Subscribe(func(Update) {})
	assert.False(t, rig.session.IdleSince(future), "watched sessions are never idle")
	unsubscribe()

	assert.False(t, rig.session.IdleSince(time.Now().Add(-time.Minute)))
}
