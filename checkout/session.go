package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/feeriepay/checkout/models"
	"github.com/feeriepay/checkout/services"
	"github.com/feeriepay/checkout/utils"
)

const (
	DefaultCountdownSeconds = 90
	DefaultMethod           = models.GatewayGPO

	productPageSize = 50
	journalTimeout  = 5 * time.Second

	msgPaymentFailed    = "O pagamento foi cancelado ou expirou."
	msgPaymentConfirmed = "Pagamento confirmado!"
	msgInvalidMethod    = "Método de pagamento inválido."
)

var (
	ErrSessionClosed   = errors.New("checkout session closed")
	ErrSubmitInFlight  = errors.New("checkout submission already in progress")
	ErrProductNotFound = errors.New("product not found")
)

// ProductLister is the part of ProductsAPI a session needs.
type ProductLister interface {
	List(ctx context.Context, page, perPage int) (*models.Paginated[models.Product], error)
}

// Recorder keeps the audit trail of submitted checkouts.
type Recorder interface {
	Open(ctx context.Context, sessionID string, res models.CreateOrderResponse) error
	Finish(ctx context.Context, paymentID string, outcome models.AttemptOutcome) error
}

// Config wires a session to the backend. Orders, Payments and Products are
// required; Journal is optional.
type Config struct {
	Orders   services.OrderCreator
	Payments services.PaymentStatusReader
	Products ProductLister
	Journal  Recorder

	PollInterval     time.Duration
	CountdownSeconds int
	CountdownTick    time.Duration
	NotificationTTL  time.Duration

	// ProductID preselects a product when it is in the catalogue.
	ProductID string
}

// Buyer is the contact part of the checkout form.
type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// SubmitForm is one press of the pay button. Empty Method and ProductID
// keep the current selection.
type SubmitForm struct {
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone"`
	Method     models.Gateway `json:"method"`
	ProductID  string         `json:"product_id"`
	CouponCode string         `json:"coupon_code"`
}

const (
	EventState        = "checkout_state"
	EventNotification = "checkout_notification"
)

// Update is what subscribers receive. Exactly one of Snapshot and
// Notification is set, matching Event.
type Update struct {
	Event        string
	Snapshot     *Snapshot
	Notification *Notification
}

// Session is one buyer's checkout. All state lives behind mu; the poller and
// countdown goroutines re-enter through it and drop their results once the
// attempt they belong to is over.
type Session struct {
	id        string
	cfg       Config
	submitter *services.OrderSubmitter
	poller    *services.PaymentPoller
	notes     *Notifications
	log       *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	products   []models.Product
	selected   models.Product
	method     models.Gateway
	buyer      Buyer
	submitting bool
	closed     bool
	attempt    uint64
	pollTask   *services.Task
	countdown  *services.Task
	lastActive time.Time
	listeners  map[uint64]func(Update)
	nextListen uint64
}

// NewSession loads the catalogue and returns a session in Form. A catalogue
// that cannot be loaded or is empty leaves only the placeholder product.
func NewSession(ctx context.Context, id string, cfg Config) (*Session, error) {
	if cfg.Orders == nil || cfg.Payments == nil || cfg.Products == nil {
		return nil, errors.New("checkout session needs orders, payments and products")
	}
	if cfg.CountdownSeconds <= 0 {
		cfg.CountdownSeconds = DefaultCountdownSeconds
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		cfg:        cfg,
		submitter:  services.NewOrderSubmitter(cfg.Orders),
		poller:     services.NewPaymentPoller(cfg.Payments, cfg.PollInterval),
		notes:      NewNotifications(cfg.NotificationTTL),
		log:        utils.Info().WithField("session_id", id),
		ctx:        runCtx,
		cancel:     cancel,
		state:      Form{},
		method:     DefaultMethod,
		lastActive: time.Now(),
		listeners:  map[uint64]func(Update){},
	}
	s.products = s.loadProducts(ctx)
	s.selected = s.initialProduct()
	return s, nil
}

func (s *Session) loadProducts(ctx context.Context) []models.Product {
	page, err := s.cfg.Products.List(ctx, 1, productPageSize)
	if err != nil {
		s.log.WithError(err).Warn("product catalogue unavailable, using placeholder")
		return nil
	}
	if page == nil {
		return nil
	}
	return page.Data
}

func (s *Session) initialProduct() models.Product {
	if p, ok := s.findProduct(s.cfg.ProductID); ok {
		return p
	}
	if len(s.products) > 0 {
		return s.products[0]
	}
	return models.PlaceholderProduct()
}

func (s *Session) findProduct(id string) (models.Product, bool) {
	if id == "" {
		return models.Product{}, false
	}
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

func (s *Session) ID() string {
	return s.id
}

// SelectProduct changes the product while the form is showing.
func (s *Session) SelectProduct(id string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	p, ok := s.findProduct(id)
	if !ok {
		return s.snapshotLocked(), fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	s.selected = p
	s.publishStateLocked()
	return s.snapshotLocked(), nil
}

// SetMethod changes the payment rail while the form is showing.
func (s *Session) SetMethod(method models.Gateway) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	if !method.Known() {
		return s.snapshotLocked(), &services.ValidationError{Message: msgInvalidMethod}
	}
	s.method = method
	s.publishStateLocked()
	return s.snapshotLocked(), nil
}

func (s *Session) editableLocked() error {
	s.lastActive = time.Now()
	if s.closed {
		return ErrSessionClosed
	}
	if _, ok := s.state.(Form); !ok {
		return fmt.Errorf("%w: form is not editable in %s", ErrInvalidTransition, s.state.Step())
	}
	if s.submitting {
		return ErrSubmitInFlight
	}
	return nil
}

// Submit places the order and moves to Waiting. Validation and backend
// failures leave the session in Form with an error notification; the
// error is returned as well.
func (s *Session) Submit(ctx context.Context, form SubmitForm) (Snapshot, error) {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, err
	}

	product := s.selected
	if form.ProductID != "" {
		// An unknown id fails validation below without losing the selection.
		p, ok := s.findProduct(form.ProductID)
		if ok {
			s.selected = p
		}
		product = p
	}
	method := s.method
	if form.Method != "" {
		method = form.Method
		if method.Known() {
			s.method = method
		}
	}
	s.buyer = Buyer{Name: form.Name, Email: form.Email, Phone: form.Phone}
	input := services.SubmitInput{
		Name:       form.Name,
		Email:      form.Email,
		Phone:      form.Phone,
		Product:    product,
		Method:     method,
		CouponCode: form.CouponCode,
	}
	products := s.products
	s.submitting = true
	prevPoll, prevCountdown := s.pollTask, s.countdown
	s.publishStateLocked()
	s.mu.Unlock()

	// The previous attempt's goroutines were cancelled when it ended; make
	// sure they are gone before the poller is reused.
	prevPoll.Wait()
	prevCountdown.Wait()

	res, err := s.submitter.Submit(ctx, products, input)
	if err == nil {
		s.record(func(ctx context.Context) error { return s.cfg.Journal.Open(ctx, s.id, *res) })
	}

	s.mu.Lock()
	s.submitting = false
	if s.closed {
		s.mu.Unlock()
		if err == nil {
			s.finish(res.Payment.ID, models.OutcomeAbandoned)
			return Snapshot{}, ErrSessionClosed
		}
		return Snapshot{}, err
	}
	if err != nil {
		s.notifyLocked(NotifyError, services.FriendlyMessage(err))
		s.publishStateLocked()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, err
	}

	var countdown *int
	if input.Method == models.GatewayGPO {
		seconds := s.cfg.CountdownSeconds
		countdown = &seconds
	}
	next, terr := Next(s.state, OrderSubmitted{Response: *res, Countdown: countdown})
	if terr != nil {
		s.mu.Unlock()
		return Snapshot{}, terr
	}
	s.state = next
	s.attempt++
	s.startTasksLocked(s.attempt, res.Payment.ID, countdown)
	s.publishStateLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	return snap, nil
}

func (s *Session) startTasksLocked(attempt uint64, paymentID string, countdown *int) {
	log := s.log.WithField("payment_id", paymentID)

	task, err := s.poller.Start(s.ctx, paymentID, services.PollHandlers{
		OnTick:   func(r services.PollResult) { s.onPollTick(attempt, r) },
		OnPaid:   func(p models.Payment) { s.onPaid(attempt, p) },
		OnFailed: func(p models.Payment) { s.onFailed(attempt, p) },
	})
	if err != nil {
		log.WithError(err).Error("could not start payment poller")
	}
	s.pollTask = task

	s.countdown = nil
	if countdown != nil {
		s.countdown = services.StartCountdown(s.ctx, *countdown, s.cfg.CountdownTick,
			func(remaining int) { s.onCountdownTick(attempt, remaining) },
			func() { s.onCountdownExpired(attempt) },
		)
	}
	log.Info("waiting for payment")
}

// current reports whether a callback from attempt may still touch state.
func (s *Session) currentLocked(attempt uint64) bool {
	return !s.closed && s.attempt == attempt
}

func (s *Session) onPollTick(attempt uint64, r services.PollResult) {
	if r.Transient() || r.Status().Terminal() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(attempt) {
		return
	}
	if next, err := Next(s.state, PaymentPolled{Payment: *r.Payment}); err == nil {
		s.state = next
		s.publishStateLocked()
	}
}

func (s *Session) onPaid(attempt uint64, p models.Payment) {
	s.mu.Lock()
	if !s.currentLocked(attempt) {
		s.mu.Unlock()
		return
	}
	next, err := Next(s.state, PaymentSucceeded{Payment: p})
	if err != nil {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.countdown.Cancel()
	s.notifyLocked(NotifySuccess, msgPaymentConfirmed)
	s.publishStateLocked()
	s.mu.Unlock()

	s.log.WithField("payment_id", p.ID).Info("payment confirmed")
	s.finish(p.ID, models.OutcomePaid)
}

func (s *Session) onFailed(attempt uint64, p models.Payment) {
	s.mu.Lock()
	if !s.currentLocked(attempt) {
		s.mu.Unlock()
		return
	}
	next, err := Next(s.state, PaymentFailed{Payment: p})
	if err != nil {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.attempt++
	s.countdown.Cancel()
	s.notifyLocked(NotifyError, msgPaymentFailed)
	s.publishStateLocked()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"payment_id": p.ID, "status": p.Status}).Warn("payment did not complete")
	outcome := models.OutcomeFailed
	if p.Status == models.PaymentStatusCancelled {
		outcome = models.OutcomeCancelled
	}
	s.finish(p.ID, outcome)
}

func (s *Session) onCountdownTick(attempt uint64, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(attempt) {
		return
	}
	if next, err := Next(s.state, CountdownTicked{Remaining: remaining}); err == nil {
		s.state = next
		s.publishStateLocked()
	}
}

// onCountdownExpired stops polling but stays in Waiting. The buyer leaves
// the timed-out screen with Cancel.
func (s *Session) onCountdownExpired(attempt uint64) {
	s.mu.Lock()
	if !s.currentLocked(attempt) {
		s.mu.Unlock()
		return
	}
	next, err := Next(s.state, CountdownExpired{})
	if err != nil {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.pollTask.Cancel()
	paymentID := next.(Waiting).Payment.ID
	s.publishStateLocked()
	s.mu.Unlock()

	s.log.WithField("payment_id", paymentID).Warn("payment acceptance window closed")
	s.finish(paymentID, models.OutcomeTimedOut)
}

// Cancel abandons the payment being waited on and returns to Form.
func (s *Session) Cancel() (Snapshot, error) {
	s.mu.Lock()
	s.lastActive = time.Now()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionClosed
	}
	next, err := Next(s.state, CheckoutCancelled{})
	if err != nil {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, err
	}
	waiting := s.state.(Waiting)
	s.state = next
	s.attempt++
	s.pollTask.Cancel()
	s.countdown.Cancel()
	s.publishStateLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.WithField("payment_id", waiting.Payment.ID).Info("checkout cancelled by buyer")
	s.finish(waiting.Payment.ID, models.OutcomeCancelled)
	return snap, nil
}

// Close tears the session down. Both timers are stopped and awaited, and no
// subscriber is called afterwards. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.attempt++
	s.listeners = map[uint64]func(Update){}
	pollTask, countdown := s.pollTask, s.countdown
	pollTask.Cancel()
	countdown.Cancel()
	s.cancel()
	waiting, wasWaiting := s.state.(Waiting)
	s.mu.Unlock()

	pollTask.Wait()
	countdown.Wait()

	if wasWaiting {
		s.finish(waiting.Payment.ID, models.OutcomeAbandoned)
	}
	s.log.Debug("checkout session closed")
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Subscribe calls fn with the current state, then for every state change
// and notification. fn runs with the session locked and must not call back
// into the session. The returned func removes the subscription.
func (s *Session) Subscribe(fn func(Update)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()
	if s.closed {
		return func() {}
	}
	id := s.nextListen
	s.nextListen++
	s.listeners[id] = fn

	snap := s.snapshotLocked()
	fn(Update{Event: EventState, Snapshot: &snap})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
		s.lastActive = time.Now()
	}
}

// DismissNotification hides a notification before it expires.
func (s *Session) DismissNotification(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()
	if !s.notes.Dismiss(id) {
		return false
	}
	s.publishStateLocked()
	return true
}

// IdleSince reports whether nobody has used or watched the session since
// cutoff.
func (s *Session) IdleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners) == 0 && s.lastActive.Before(cutoff)
}

func (s *Session) notifyLocked(kind NotificationKind, message string) {
	n := s.notes.Push(kind, message)
	s.emitLocked(Update{Event: EventNotification, Notification: &n})
}

func (s *Session) publishStateLocked() {
	snap := s.snapshotLocked()
	s.emitLocked(Update{Event: EventState, Snapshot: &snap})
}

func (s *Session) emitLocked(u Update) {
	if s.closed {
		return
	}
	for _, fn := range s.listeners {
		fn(u)
	}
}

func (s *Session) finish(paymentID string, outcome models.AttemptOutcome) {
	s.record(func(ctx context.Context) error { return s.cfg.Journal.Finish(ctx, paymentID, outcome) })
}

func (s *Session) record(fn func(ctx context.Context) error) {
	if s.cfg.Journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		utils.Error().WithField("session_id", s.id).Errorf("checkout journal: %v", err)
	}
}
