package services

import (
	"context"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/feeriepay/checkout/models"
	"github.com/feeriepay/checkout/utils"
)

const (
	phoneDigits       = 9
	angolaCountryCode = "244"
	msgNoProducts     = "Nenhum produto disponível. Adicione produtos primeiro."
	msgSelectProduct  = "Selecione um produto válido."
	msgRequiredFields = "Preencha nome, email e telefone."
	msgInvalidPhone   = "Número de telefone inválido. Indique os 9 dígitos do telemóvel."
	msgInvalidGateway = "Método de pagamento inválido."
)

// ValidationError is a submission rejected before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SubmitInput is what the buyer filled in on the checkout form.
type SubmitInput struct {
	Name       string
	Email      string
	Phone      string
	Product    models.Product
	Method     models.Gateway
	CouponCode string
}

// NormalizePhone strips everything but digits and keeps the last nine, the
// Angolan mobile number without country code.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > phoneDigits {
		digits = digits[len(digits)-phoneDigits:]
	}
	return digits
}

// ValidateSubmission checks the form before anything is sent.
func ValidateSubmission(products []models.Product, in SubmitInput) error {
	if len(products) == 0 {
		return &ValidationError{Message: msgNoProducts}
	}
	if !in.Product.Purchasable() {
		return &ValidationError{Message: msgSelectProduct}
	}
	if isBlank(in.Name) || isBlank(in.Email) || isBlank(in.Phone) {
		return &ValidationError{Message: msgRequiredFields}
	}
	if len(NormalizePhone(in.Phone)) < phoneDigits {
		return &ValidationError{Message: msgInvalidPhone}
	}
	if !in.Method.Known() {
		return &ValidationError{Message: msgInvalidGateway}
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}

// BuildCreateOrderRequest maps a validated form to the order payload. The
// push-to-phone rail wants the full MSISDN, the QR ticket rail the bare
// nine digits.
func BuildCreateOrderRequest(in SubmitInput) models.CreateOrderRequest {
	phone := NormalizePhone(in.Phone)
	req := models.CreateOrderRequest{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Phone:     phone,
		ProductID: in.Product.ID,
		Gateway:   in.Method,
	}
	if code := strings.TrimSpace(in.CouponCode); code != "" {
		req.CouponCode = strings.ToUpper(code)
	}
	switch in.Method {
	case models.GatewayGPO:
		req.PhoneNumber = angolaCountryCode + phone
	case models.GatewayEKwanzaTicket:
		req.MobileNumber = phone
	}
	return req
}

// OrderCreator is the part of OrdersAPI the submitter needs.
type OrderCreator interface {
	Create(ctx context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error)
}

// OrderSubmitter validates a checkout form and places exactly one order.
// Failures are returned as is; the buyer resubmits by hand.
type OrderSubmitter struct {
	orders OrderCreator
}

func NewOrderSubmitter(orders OrderCreator) *OrderSubmitter {
	return &OrderSubmitter{orders: orders}
}

func (s *OrderSubmitter) Submit(ctx context.Context, products []models.Product, in SubmitInput) (*models.CreateOrderResponse, error) {
	if err := ValidateSubmission(products, in); err != nil {
		return nil, err
	}

	req := BuildCreateOrderRequest(in)
	res, err := s.orders.Create(ctx, req)
	if err != nil {
		utils.Error().WithFields(logrus.Fields{
			"product_id": req.ProductID,
			"gateway":    req.Gateway,
		}).Errorf("order creation failed: %v", err)
		return nil, err
	}

	utils.Info().WithFields(logrus.Fields{
		"order_id":   res.Order.ID,
		"payment_id": res.Payment.ID,
		"gateway":    res.Payment.Gateway,
	}).Info("order created")
	return res, nil
}
