package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feeriepay/checkout/models"
)

type fakeOrderCreator struct {
	calls    []models.CreateOrderRequest
	response *models.CreateOrderResponse
	err      error
}

func (f *fakeOrderCreator) Create(ctx context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

var testProduct = models.Product{ID: "p1", Name: "E-book Finanças", Price: "25000.00", Type: models.ProductTypeEbook}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"923456789", "923456789"},
		{"+244 923 456 789", "923456789"},
		{"(244) 923-456-789", "923456789"},
		{"00244923456789", "923456789"},
		{"92345", "92345"},
		{"abc", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	inputs := []string{
		"923456789", "+244 923 456 789", "9 2 3", "tel: 923-456-789 ext 12",
		"٩٢٣", "244244244244244", "  ", "+1 (555) 010-9999",
	}
	for _, in := range inputs {
		once := NormalizePhone(in)
		assert.Equal(t, once, NormalizePhone(once), "input %q", in)
	}
}

func TestValidateSubmission(t *testing.T) {
	products := []models.Product{testProduct}
	valid := SubmitInput{
		Name: "Ana Silva", Email: "ana@x.com", Phone: "923456789",
		Product: testProduct, Method: models.GatewayEKwanzaTicket,
	}

	tests := []struct {
		name     string
		products []models.Product
		mutate   func(*SubmitInput)
		wantMsg  string
	}{
		{"valid", products, func(*SubmitInput) {}, ""},
		{"no products", nil, func(*SubmitInput) {}, msgNoProducts},
		{"placeholder product", products, func(in *SubmitInput) { in.Product = models.PlaceholderProduct() }, msgSelectProduct},
		{"no product", products, func(in *SubmitInput) { in.Product = models.Product{} }, msgSelectProduct},
		{"blank name", products, func(in *SubmitInput) { in.Name = "   " }, msgRequiredFields},
		{"blank email", products, func(in *SubmitInput) { in.Email = "" }, msgRequiredFields},
		{"blank phone", products, func(in *SubmitInput) { in.Phone = "\t" }, msgRequiredFields},
		{"short phone", products, func(in *SubmitInput) { in.Phone = "92345" }, msgInvalidPhone},
		{"unknown gateway", products, func(in *SubmitInput) { in.Method = "card" }, msgInvalidGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := ValidateSubmission(tt.products, in)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantMsg, vErr.Message)
		})
	}
}

func TestBuildCreateOrderRequest(t *testing.T) {
	base := SubmitInput{
		Name: "  Ana Silva ", Email: " ana@x.com ", Phone: "+244 923 456 789",
		Product: testProduct, CouponCode: " promo10 ",
	}

	t.Run("gpo", func(t *testing.T) {
		in := base
		in.Method = models.GatewayGPO
		req := BuildCreateOrderRequest(in)
		assert.Equal(t, "Ana Silva", req.Name)
		assert.Equal(t, "ana@x.com", req.Email)
		assert.Equal(t, "923456789", req.Phone)
		assert.Equal(t, "244923456789", req.PhoneNumber)
		assert.Empty(t, req.MobileNumber)
		assert.Equal(t, "PROMO10", req.CouponCode)
		assert.Equal(t, "p1", req.ProductID)
	})

	t.Run("ekwanza ticket", func(t *testing.T) {
		in := base
		in.Method = models.GatewayEKwanzaTicket
		req := BuildCreateOrderRequest(in)
		assert.Equal(t, "923456789", req.MobileNumber)
		assert.Empty(t, req.PhoneNumber)
	})

	t.Run("reference", func(t *testing.T) {
		in := base
		in.Method = models.GatewayReference
		in.CouponCode = ""
		req := BuildCreateOrderRequest(in)
		assert.Empty(t, req.MobileNumber)
		assert.Empty(t, req.PhoneNumber)
		assert.Empty(t, req.CouponCode)
		assert.Equal(t, models.GatewayReference, req.Gateway)
	})
}

func TestOrderSubmitter_GuardSkipsNetwork(t *testing.T) {
	creator := &fakeOrderCreator{}
	submitter := NewOrderSubmitter(creator)

	forms := []SubmitInput{
		{Name: "", Email: "ana@x.com", Phone: "923456789", Product: testProduct, Method: models.GatewayGPO},
		{Name: "Ana", Email: " ", Phone: "923456789", Product: testProduct, Method: models.GatewayGPO},
		{Name: "Ana", Email: "ana@x.com", Phone: "", Product: testProduct, Method: models.GatewayGPO},
		{Name: "Ana", Email: "ana@x.com", Phone: "923456789", Product: models.PlaceholderProduct(), Method: models.GatewayGPO},
	}
	for _, in := range forms {
		_, err := submitter.Submit(context.Background(), []models.Product{testProduct}, in)
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	}
	assert.Empty(t, creator.calls)
}

func TestOrderSubmitter_SingleCallNoRetry(t *testing.T) {
	creator := &fakeOrderCreator{err: errors.New("boom")}
	submitter := NewOrderSubmitter(creator)

	in := SubmitInput{Name: "Ana", Email: "ana@x.com", Phone: "923456789", Product: testProduct, Method: models.GatewayReference}
	_, err := submitter.Submit(context.Background(), []models.Product{testProduct}, in)
	assert.Error(t, err)
	assert.Len(t, creator.calls, 1)

	creator.err = nil
	creator.response = &models.CreateOrderResponse{Order: models.Order{ID: "o1"}, Payment: models.Payment{ID: "pay1"}}
	res, err := submitter.Submit(context.Background(), []models.Product{testProduct}, in)
	require.NoError(t, err)
	assert.Equal(t, "o1", res.Order.ID)
	assert.Len(t, creator.calls, 2)
}
