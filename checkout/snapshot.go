package checkout

import (
	"time"

	"github.com/feeriepay/checkout/models"
	"github.com/feeriepay/checkout/utils"
)

// Snapshot is everything the checkout page renders, computed from the
// session at one instant.
type Snapshot struct {
	SessionID       string           `json:"session_id"`
	Step            Step             `json:"step"`
	StepName        string           `json:"step_name"`
	Products        []models.Product `json:"products"`
	SelectedProduct models.Product   `json:"selected_product"`
	Price           string           `json:"price"`
	Method          models.Gateway   `json:"method"`
	MethodLabel     string           `json:"method_label"`
	Buyer           Buyer            `json:"buyer"`
	Submitting      bool             `json:"submitting"`
	Notifications   []Notification   `json:"notifications"`

	Order       *models.Order     `json:"order,omitempty"`
	Payment     *models.Payment   `json:"payment,omitempty"`
	Total       string            `json:"total,omitempty"`
	OrderStatus string            `json:"order_status,omitempty"`
	Countdown   *int              `json:"countdown,omitempty"`
	TimedOut    bool              `json:"timed_out,omitempty"`
	QRCode      *QRCode           `json:"qr_code,omitempty"`
	Reference   *PaymentReference `json:"reference,omitempty"`
	ExpiresAt   string            `json:"expires_at,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()
	return s.snapshotLocked()
}

// State returns the current state value.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QRCode returns the code to scan while waiting on an E-Kwanza ticket.
func (s *Session) QRCode() (QRCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()
	w, ok := s.state.(Waiting)
	if !ok || w.Payment.Gateway != models.GatewayEKwanzaTicket {
		return QRCode{}, false
	}
	return ExtractQRCode(w.Payment.RawResponse, w.GatewayResponse)
}

func (s *Session) snapshotLocked() Snapshot {
	products := s.products
	if len(products) == 0 {
		products = []models.Product{models.PlaceholderProduct()}
	}

	snap := Snapshot{
		SessionID:       s.id,
		Step:            s.state.Step(),
		StepName:        s.state.Step().String(),
		Products:        append([]models.Product(nil), products...),
		SelectedProduct: s.selected,
		Price:           utils.FormatCurrencyAOA(s.selected.Price.Float()),
		Method:          s.method,
		MethodLabel:     MethodLabel(s.method),
		Buyer:           s.buyer,
		Submitting:      s.submitting,
		Notifications:   s.notes.Active(time.Now()),
	}

	switch st := s.state.(type) {
	case Waiting:
		s.fillOrder(&snap, st.Order, st.Payment)
		snap.Countdown = copyInt(st.Countdown)
		snap.TimedOut = st.TimedOut
		snap.ExpiresAt = FormatExpiry(st.Payment.ExpiresAt)

		switch st.Payment.Gateway {
		case models.GatewayEKwanzaTicket:
			if qr, ok := ExtractQRCode(st.Payment.RawResponse, st.GatewayResponse); ok {
				snap.QRCode = &qr
			}
		case models.GatewayReference:
			if ref, ok := ExtractReference(st.Payment, st.GatewayResponse); ok {
				snap.Reference = &ref
			}
		}
	case Success:
		s.fillOrder(&snap, st.Order, st.Payment)
	}
	return snap
}

func (s *Session) fillOrder(snap *Snapshot, order models.Order, payment models.Payment) {
	snap.Order = &order
	snap.Payment = &payment
	snap.Total = utils.FormatCurrencyAOA(order.Total.Float())
	snap.OrderStatus = OrderStatusLabel(order.Status)
	if payment.Gateway != "" {
		snap.Method = payment.Gateway
		snap.MethodLabel = MethodLabel(payment.Gateway)
	}
}
